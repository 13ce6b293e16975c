package serve

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	cmdUtil "github.com/ValentinKolb/h5tree/cmd/util"
	"github.com/ValentinKolb/h5tree/lib/db"
	"github.com/ValentinKolb/h5tree/rpc/common"
	"github.com/ValentinKolb/h5tree/rpc/server"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the h5tree server",
		Long:    `Start the h5tree server that hosts the files of the networked backend (h5pyd). The configuration can be set via command line flags or environment variables. The format of the environment variables is H5TREE_<flag> (e.g. H5TREE_DATA_DIR=/srv/h5)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	cobra.OnInitialize(cmdUtil.InitConfig)

	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:8080", cmdUtil.WrapString("The address on which the server will listen (e.g. localhost:8080 or /tmp/h5tree.sock for the unix transport)"))

	key = "data-dir"
	ServeCmd.PersistentFlags().String(key, "data", cmdUtil.WrapString("DataDir is the directory all hosted files live in. Client file names are resolved below it"))

	key = "engine"
	ServeCmd.PersistentFlags().String(key, string(db.ImplBolt), cmdUtil.WrapString("The KV engine of new hosted files (bolt, maple). Existing files keep the engine they were written with"))

	key = "shards"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The shard count of the maple engine (0 uses the default)"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, 64, cmdUtil.WrapString("The number of requests processed concurrently (tcp and unix only)"))

	key = "buffer-size"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The size of the read buffers in KB (0 uses the transport default)"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 30, cmdUtil.WrapString("Timeout in seconds for reading and writing a request"))

	key = "tcp-nodelay"
	ServeCmd.PersistentFlags().Bool(key, true, cmdUtil.WrapString("Whether to enable TCP_NODELAY (tcp only)"))

	key = "tcp-keepalive"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The keepalive interval in seconds (tcp only)"))

	key = "tcp-linger"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The linger time in seconds (tcp only)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))

	key = "log-format"
	ServeCmd.PersistentFlags().String(key, "console", cmdUtil.WrapString("The format of the log output (console, json)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	dataDir, err := cmdUtil.ExpandPath(viper.GetString("data-dir"))
	if err != nil {
		return err
	}

	engine := db.Implementation(viper.GetString("engine"))
	if engine != db.ImplBolt && engine != db.ImplMaple {
		return fmt.Errorf("invalid engine %s (expected bolt or maple)", engine)
	}

	// environment values arrive as strings
	shards, err := cast.ToIntE(viper.Get("shards"))
	if err != nil || shards < 0 {
		return fmt.Errorf("invalid shard count %v", viper.Get("shards"))
	}
	workers, err := cast.ToIntE(viper.Get("workers"))
	if err != nil || workers < 1 {
		return fmt.Errorf("invalid worker count %v", viper.Get("workers"))
	}

	serveCmdConfig.DataDir = dataDir
	serveCmdConfig.Engine = string(engine)
	serveCmdConfig.Shards = shards
	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.LogFormat = viper.GetString("log-format")
	serveCmdConfig.Transport = common.ServerTransportConfig{
		Endpoint:        viper.GetString("endpoint"),
		BufferSize:      viper.GetInt("buffer-size") * 1024,
		Workers:         workers,
		TCPNoDelay:      viper.GetBool("tcp-nodelay"),
		TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
		TCPLingerSec:    viper.GetInt("tcp-linger"),
	}

	return common.InitLoggers(serveCmdConfig.LogLevel, serveCmdConfig.LogFormat)
}

// run starts the server and stops it on SIGINT or SIGTERM
func run(cmd *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}
	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(*serveCmdConfig, t, s)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() { errCh <- serv.Serve() }()

	select {
	case err := <-errCh:
		_ = serv.Close()
		return err
	case sig := <-sigCh:
		cmd.PrintErrf("received %s, shutting down\n", sig)
		if err := serv.Close(); err != nil {
			return err
		}
		return <-errCh
	}
}
