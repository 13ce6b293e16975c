package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/h5tree/cmd/convert"
	"github.com/ValentinKolb/h5tree/cmd/inspect"
	"github.com/ValentinKolb/h5tree/cmd/serve"
	"github.com/ValentinKolb/h5tree/cmd/util"
	"github.com/ValentinKolb/h5tree/lib/h5"
	"github.com/spf13/cobra"
)

const (
	Version = "0.4.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "h5tree",
		Short: "hierarchical container files with interchangeable backends",
		Long: fmt.Sprintf(`h5tree (v%s)

Inspect, convert and serve hierarchical container files. A file is a tree
of groups and arrays with attributes; it can be written by the tables
(SQLite), h5py (KV tree) or h5pyd (remote server) backend.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of h5tree",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("h5tree v%s (file format %s)\n", Version, h5.Version)
		},
	}
)

func init() {
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(inspect.TreeCmd)
	RootCmd.AddCommand(inspect.LsCmd)
	RootCmd.AddCommand(inspect.AttrsCmd)
	RootCmd.AddCommand(convert.ConvertCmd)
	RootCmd.AddCommand(versionCmd)

	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer of the networked backend (json, gob, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "http", util.WrapString("transport of the networked backend (http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
