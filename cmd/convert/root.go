package convert

import (
	"fmt"

	cmdUtil "github.com/ValentinKolb/h5tree/cmd/util"
	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/lib/h5"
	"github.com/cheggaaa/pb"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ConvertCmd = &cobra.Command{
	Use:   "convert <src> <dst>",
	Short: "Copy a file to another backend",
	Long: `Copy every group, array and attribute of <src> into a new file <dst>.
The source is read with --from (detected for local files if empty), the
destination is written with --to. For the h5pyd backend the file names are
resolved below the data directory of the server.`,
	Args:    cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, _ []string) error { return cmdUtil.BindCommandFlags(cmd) },
	RunE:    run,
}

func init() {
	cobra.OnInitialize(cmdUtil.InitConfig)
	cmdUtil.SetupRPCClientFlags(ConvertCmd)

	key := "from"
	ConvertCmd.Flags().String(key, "", cmdUtil.WrapString("The backend of the source file (tables, h5py, h5pyd). Detected from the content of local files if empty"))

	key = "to"
	ConvertCmd.Flags().String(key, string(backend.IDH5py), cmdUtil.WrapString("The backend of the destination file (tables, h5py, h5pyd)"))

	key = "engine"
	ConvertCmd.Flags().String(key, "bolt", cmdUtil.WrapString("The engine of the destination if it is a h5py file (bolt, maple)"))

	key = "compression"
	ConvertCmd.Flags().String(key, "", cmdUtil.WrapString("The compression filter of the destination arrays (gzip, zlib, zstd). Empty keeps arrays uncompressed"))

	key = "complevel"
	ConvertCmd.Flags().Int(key, 5, cmdUtil.WrapString("The compression level (0 disables compression)"))

	key = "no-progress"
	ConvertCmd.Flags().Bool(key, false, cmdUtil.WrapString("Do not show a progress bar"))
}

func run(cmd *cobra.Command, args []string) error {
	from := backend.ID(viper.GetString("from"))
	to := backend.ID(viper.GetString("to"))
	caps := cmdUtil.Capabilities(from == backend.IDH5pyd || to == backend.IDH5pyd)

	src, err := cmdUtil.OpenStorage(caps, from, args[0], backend.ModeRead)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer src.CloseFile()

	dst, err := h5.New(caps, to)
	if err != nil {
		return err
	}
	if name := viper.GetString("compression"); name != "" {
		if err := dst.DefineCompression(name, viper.GetInt("complevel")); err != nil {
			return err
		}
	}

	root, err := src.Root()
	if err != nil {
		return err
	}
	dstPath := args[1]
	if to != backend.IDH5pyd {
		if dstPath, err = cmdUtil.ExpandPath(dstPath); err != nil {
			return err
		}
	}
	if err := dst.OpenFile(dstPath, backend.ModeWrite, root.Title()); err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	defer dst.CloseFile()

	var done func(h5.Node)
	if !viper.GetBool("no-progress") {
		total, err := countNodes(src)
		if err != nil {
			return err
		}
		bar := pb.New(total)
		bar.Output = cmd.ErrOrStderr()
		bar.ShowSpeed = false
		bar.Start()
		defer bar.Finish()
		done = func(h5.Node) { bar.Increment() }
	}

	if err := copyTree(src, dst, done); err != nil {
		return err
	}
	cmd.Printf("copied %s (%s) to %s (%s)\n", src.FilePath(), src.BackendID(), dstPath, to)
	return nil
}
