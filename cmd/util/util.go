package util

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/lib/backend/kvtree"
	"github.com/ValentinKolb/h5tree/lib/backend/tables"
	"github.com/ValentinKolb/h5tree/lib/db"
	"github.com/ValentinKolb/h5tree/lib/h5"
	"github.com/ValentinKolb/h5tree/rpc/client"
	"github.com/ValentinKolb/h5tree/rpc/common"
	"github.com/ValentinKolb/h5tree/rpc/serializer"
	"github.com/ValentinKolb/h5tree/rpc/transport"
	"github.com/ValentinKolb/h5tree/rpc/transport/http"
	"github.com/ValentinKolb/h5tree/rpc/transport/tcp"
	"github.com/ValentinKolb/h5tree/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("cmd")

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables read by the CLI
	EnvPrefix = "h5tree"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes every flag readable from
// H5TREE_<FLAG> environment variables.
func InitConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// ExpandPath resolves a leading ~ to the home directory of the user.
func ExpandPath(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("failed to expand %s: %w", path, err)
	}
	return expanded, nil
}

// --------------------------------------------------------------------------
// RPC setup
// --------------------------------------------------------------------------

// SetupRPCClientFlags adds the flags of the networked backend to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "transport-endpoints"
	cmd.PersistentFlags().String(key, "http://localhost:8080", WrapString("The address of the h5tree server. Multiple endpoints can be specified as a comma-separated list, requests are spread across them"))

	key = "transport-conn-per-endpoint"
	cmd.PersistentFlags().Int(key, 1, WrapString("Simultaneous connections per endpoint (tcp and unix only)"))

	key = "transport-retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to retry the request"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (tcp only)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval in seconds (tcp only)"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() common.ClientConfig {
	var endpoints []string
	for _, e := range strings.Split(viper.GetString("transport-endpoints"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}

	return common.ClientConfig{
		TimeoutSecond: viper.GetInt("timeout"),
		Transport: common.ClientTransportConfig{
			Endpoints:              endpoints,
			RetryCount:             viper.GetInt("transport-retries"),
			ConnectionsPerEndpoint: viper.GetInt("transport-conn-per-endpoint"),
			TCPNoDelay:             viper.GetBool("transport-tcp-nodelay"),
			TCPKeepAliveSec:        viper.GetInt("transport-tcp-keepalive"),
		},
	}
}

// GetSerializer creates a serializer based on configuration
func GetSerializer() (serializer.IRPCSerializer, error) {
	switch viper.GetString("serializer") {
	case "json":
		return serializer.NewJSONSerializer(), nil
	case "gob":
		return serializer.NewGOBSerializer(), nil
	case "binary":
		return serializer.NewBinarySerializer(), nil
	default:
		return nil, fmt.Errorf("invalid serializer %s", viper.GetString("serializer"))
	}
}

// GetClientTransport returns a factory for the configured client transport
func GetClientTransport() (client.TransportFactory, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpClientTransport, nil
	case "tcp":
		return tcp.NewTCPClientTransport, nil
	case "unix":
		return unix.NewUnixClientTransport, nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetServerTransport creates the configured server transport
func GetServerTransport() (transport.IRPCServerTransport, error) {
	switch viper.GetString("transport") {
	case "http":
		return http.NewHttpServerTransport(), nil
	case "tcp":
		return tcp.NewTCPServerTransport(), nil
	case "unix":
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// --------------------------------------------------------------------------
// Backends
// --------------------------------------------------------------------------

// SetupBackendFlags adds the flags that select and configure a backend
func SetupBackendFlags(cmd *cobra.Command) {
	key := "backend"
	cmd.PersistentFlags().String(key, "", WrapString("The backend used to open files (tables, h5py, h5pyd). Local files are detected from their content if empty"))

	key = "engine"
	cmd.PersistentFlags().String(key, string(db.ImplBolt), WrapString("The engine of new h5py files (bolt, maple)"))

	SetupRPCClientFlags(cmd)
}

// BackendConfig selects how the stock drivers are built.
type BackendConfig struct {
	// Engine of new h5py files, the driver default if empty
	Engine db.Implementation

	// Remote adds the h5pyd driver built from the fields below
	Remote     bool
	Client     common.ClientConfig
	Serializer serializer.IRPCSerializer
	Transport  client.TransportFactory
}

// DefaultDrivers builds the tables, h5py and (if cfg.Remote) h5pyd drivers.
func DefaultDrivers(cfg BackendConfig) []backend.IDriver {
	var kvOpts []kvtree.Option
	if cfg.Engine != "" {
		kvOpts = append(kvOpts, kvtree.WithEngine(cfg.Engine))
	}
	drivers := []backend.IDriver{tables.NewDriver(), kvtree.NewDriver(kvOpts...)}
	if cfg.Remote {
		drivers = append(drivers, client.NewDriver(cfg.Client, cfg.Transport, cfg.Serializer))
	}
	return drivers
}

// GetBackendConfig reads the backend configuration from viper. The networked
// backend is left out if its transport or serializer is invalid.
func GetBackendConfig(remote bool) BackendConfig {
	cfg := BackendConfig{Engine: db.Implementation(viper.GetString("engine"))}
	if !remote {
		return cfg
	}

	ser, serErr := GetSerializer()
	factory, transportErr := GetClientTransport()
	if serErr != nil || transportErr != nil {
		Logger.Warningf("backend %s disabled: %v", backend.IDH5pyd, errors.Join(serErr, transportErr))
		return cfg
	}
	cfg.Remote = true
	cfg.Client = GetClientConfig()
	cfg.Serializer = ser
	cfg.Transport = factory
	return cfg
}

// Capabilities probes the stock drivers configured in viper. The h5pyd probe
// contacts the server, it only runs if remote is set.
func Capabilities(remote bool) backend.Capabilities {
	return backend.Probe(DefaultDrivers(GetBackendConfig(remote))...)
}

// DetectBackend returns the backend that wrote the local file at path. Files
// that are not SQLite databases belong to h5py.
func DetectBackend(path string) (backend.ID, error) {
	header, err := backend.ReadHeader(path)
	if err != nil {
		return "", backend.Errorf(backend.RetCNotFound, "cannot open %s: %v", path, err)
	}
	if tables.NewDriver().Recognize(header) {
		return backend.IDTables, nil
	}
	return backend.IDH5py, nil
}

// OpenStorage opens path with the backend id through the facade. An empty id
// is resolved with DetectBackend.
func OpenStorage(caps backend.Capabilities, id backend.ID, path string, mode backend.Mode) (*h5.Storage, error) {
	if id != backend.IDH5pyd {
		expanded, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		path = expanded
	}
	if id == "" {
		detected, err := DetectBackend(path)
		if err != nil {
			return nil, err
		}
		id = detected
	}

	s, err := h5.New(caps, id)
	if err != nil {
		return nil, err
	}
	if err := s.OpenFile(path, mode, ""); err != nil {
		return nil, err
	}
	return s, nil
}
