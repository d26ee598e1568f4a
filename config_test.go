package vfc_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nuln/vfc"
)

type memoryStore struct{ vfc.Store }

func TestLoadConfig(t *testing.T) {
	require := require.New(t)
	path := filepath.Join(t.TempDir(), "vfc.yaml")
	require.NoError(os.WriteFile(path, []byte(`
path: /var/lib/app/data.vfc
mode: read-only
identifier: "Inesonic, LLC.\nAion Test"
options:
  remote: "gdrive:backup"
`), 0o644))

	cfg, err := vfc.LoadConfig(path)
	require.NoError(err)
	require.Equal("file", cfg.Type)
	require.Equal("/var/lib/app/data.vfc", cfg.Path)
	require.Equal(vfc.ReadOnly, cfg.Mode)
	require.Equal("Inesonic, LLC.\nAion Test", cfg.Identifier)
	require.Equal("gdrive:backup", cfg.Options["remote"])
}

func TestLoadConfigErrors(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	_, err := vfc.LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(err, os.ErrNotExist)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(os.WriteFile(bad, []byte("mode: sideways\n"), 0o644))
	_, err = vfc.LoadConfig(bad)
	require.Error(err)
}

func TestRegistry(t *testing.T) {
	require := require.New(t)

	var seen *vfc.Config
	vfc.Register("test-memory", func(cfg *vfc.Config) (vfc.Store, error) {
		seen = cfg
		return memoryStore{}, nil
	})
	require.Contains(vfc.Drivers(), "test-memory")
	require.Panics(func() {
		vfc.Register("test-memory", nil)
	})

	cfg := &vfc.Config{Type: "test-memory", Identifier: "id"}
	s, err := vfc.OpenStore(cfg)
	require.NoError(err)
	require.IsType(memoryStore{}, s)
	require.Same(cfg, seen)
	require.NotNil(vfc.MustOpenStore(cfg))

	_, err = vfc.OpenStore(&vfc.Config{Type: "does-not-exist"})
	require.Error(err)
	_, err = vfc.OpenStore(nil)
	require.Error(err)
	require.Panics(func() {
		vfc.MustOpenStore(&vfc.Config{Type: "does-not-exist"})
	})
}

func TestConfigJSON(t *testing.T) {
	require := require.New(t)
	data, err := json.Marshal(vfc.Config{Type: "file", Path: "c.vfc", Mode: vfc.Overwrite, Identifier: "id"})
	require.NoError(err)
	require.JSONEq(`{"type":"file","path":"c.vfc","mode":"overwrite","identifier":"id"}`, string(data))

	var cfg vfc.Config
	require.NoError(json.Unmarshal(data, &cfg))
	require.Equal(vfc.Overwrite, cfg.Mode)
}
