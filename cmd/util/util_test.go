package util

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/lib/backend/kvtree"
	"github.com/ValentinKolb/h5tree/lib/backend/tables"
	"github.com/ValentinKolb/h5tree/lib/db"
	"github.com/ValentinKolb/h5tree/rpc/common"
	"github.com/ValentinKolb/h5tree/rpc/serializer"
	"github.com/ValentinKolb/h5tree/rpc/transport/tcp"
	"github.com/spf13/viper"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 40)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("Line exceeds %d characters: %q", Wrap, line)
		}
	}
	if got := WrapString("  short   text "); got != "short text" {
		t.Errorf("Expected %q, got %q", "short text", got)
	}
}

func TestDetectBackend(t *testing.T) {
	dir := t.TempDir()
	caps := backend.Probe(tables.NewDriver(), kvtree.NewDriver(kvtree.WithEngine(db.ImplBolt)))

	for _, id := range []backend.ID{backend.IDTables, backend.IDH5py} {
		t.Run(string(id), func(t *testing.T) {
			path := filepath.Join(dir, string(id)+".h5")
			driver, err := caps.Driver(id)
			if err != nil {
				t.Fatalf("Driver failed: %v", err)
			}
			b, err := driver.Open(path, backend.ModeWrite)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			if err := b.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}

			got, err := DetectBackend(path)
			if err != nil {
				t.Fatalf("DetectBackend failed: %v", err)
			}
			if got != id {
				t.Errorf("Expected %s, got %s", id, got)
			}

			s, err := OpenStorage(caps, "", path, backend.ModeRead)
			if err != nil {
				t.Fatalf("OpenStorage failed: %v", err)
			}
			defer s.CloseFile()
			if s.BackendID() != id {
				t.Errorf("Expected storage for %s, got %s", id, s.BackendID())
			}
		})
	}

	if _, err := DetectBackend(filepath.Join(dir, "missing.h5")); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if got, err := DetectBackend(empty); err != nil || got != backend.IDH5py {
		t.Errorf("Expected h5py for a file without header, got %s (%v)", got, err)
	}
}

func TestGetClientConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("timeout", 7)
	viper.Set("transport-endpoints", "localhost:1, localhost:2,,")
	viper.Set("transport-retries", 2)
	viper.Set("serializer", "gob")
	viper.Set("transport", "tcp")

	conf := GetClientConfig()
	if conf.TimeoutSecond != 7 || conf.Transport.RetryCount != 2 {
		t.Errorf("Unexpected config %+v", conf)
	}
	if len(conf.Transport.Endpoints) != 2 || conf.Transport.Endpoints[1] != "localhost:2" {
		t.Errorf("Unexpected endpoints %v", conf.Transport.Endpoints)
	}
	if _, err := GetSerializer(); err != nil {
		t.Errorf("GetSerializer failed: %v", err)
	}
	if _, err := GetClientTransport(); err != nil {
		t.Errorf("GetClientTransport failed: %v", err)
	}

	viper.Set("transport", "carrier-pigeon")
	if _, err := GetServerTransport(); err == nil {
		t.Errorf("Expected an error for an unknown transport")
	}
	if caps := Capabilities(true); caps.Has(backend.IDH5pyd) {
		t.Errorf("h5pyd must be unavailable without a valid transport")
	}
}

func TestDefaultDrivers(t *testing.T) {
	ids := func(drivers []backend.IDriver) []backend.ID {
		out := make([]backend.ID, len(drivers))
		for i, d := range drivers {
			out[i] = d.ID()
		}
		return out
	}

	local := ids(DefaultDrivers(BackendConfig{Engine: db.ImplMaple}))
	if len(local) != 2 || local[0] != backend.IDTables || local[1] != backend.IDH5py {
		t.Errorf("Unexpected local drivers %v", local)
	}

	all := ids(DefaultDrivers(BackendConfig{
		Remote:     true,
		Client:     common.ClientConfig{TimeoutSecond: 1, Transport: common.ClientTransportConfig{Endpoints: []string{"localhost:1"}}},
		Serializer: serializer.NewBinarySerializer(),
		Transport:  tcp.NewTCPClientTransport,
	}))
	if len(all) != 3 || all[2] != backend.IDH5pyd {
		t.Errorf("Unexpected drivers %v", all)
	}
}
