package inspect

import (
	cmdUtil "github.com/ValentinKolb/h5tree/cmd/util"
	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/lib/h5"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	TreeCmd = &cobra.Command{
		Use:     "tree <file> [path]",
		Short:   "Print the node tree of a file",
		Args:    cobra.RangeArgs(1, 2),
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(args[0], func(s *h5.Storage) error {
				return printTree(cmd.OutOrStdout(), s, pathArg(args, 1))
			})
		},
	}

	LsCmd = &cobra.Command{
		Use:     "ls <file> [path]",
		Short:   "List the children of a group",
		Args:    cobra.RangeArgs(1, 2),
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(args[0], func(s *h5.Storage) error {
				return printChildren(cmd.OutOrStdout(), s, pathArg(args, 1))
			})
		},
	}

	AttrsCmd = &cobra.Command{
		Use:     "attrs <file> <path>",
		Short:   "Print the attributes of a node",
		Args:    cobra.ExactArgs(2),
		PreRunE: bindFlags,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStorage(args[0], func(s *h5.Storage) error {
				return printAttrs(cmd.OutOrStdout(), s, pathArg(args, 1), viper.GetString("format"))
			})
		},
	}
)

func init() {
	cobra.OnInitialize(cmdUtil.InitConfig)

	for _, cmd := range []*cobra.Command{TreeCmd, LsCmd, AttrsCmd} {
		cmdUtil.SetupBackendFlags(cmd)
	}

	key := "format"
	AttrsCmd.Flags().String(key, "yaml", cmdUtil.WrapString("The output format (yaml, json)"))
}

func bindFlags(cmd *cobra.Command, _ []string) error {
	return cmdUtil.BindCommandFlags(cmd)
}

// pathArg returns args[i] as a node path, the root if it is missing.
func pathArg(args []string, i int) h5.Path {
	if i < len(args) {
		return h5.Path(args[i])
	}
	return h5.Path("/")
}

// withStorage opens file read only for the duration of fn.
func withStorage(file string, fn func(s *h5.Storage) error) error {
	id := backend.ID(viper.GetString("backend"))
	s, err := cmdUtil.OpenStorage(cmdUtil.Capabilities(id == backend.IDH5pyd), id, file, backend.ModeRead)
	if err != nil {
		return err
	}
	defer s.CloseFile()
	return fn(s)
}
