package file_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/nuln/vfc"
	"github.com/nuln/vfc/store/file"
	"github.com/nuln/vfc/vfctest"
)

func TestFileStore(t *testing.T) {
	vfctest.StoreTestSuite(t, func(t *testing.T) vfc.Store {
		s, err := file.Open(afero.NewMemMapFs(), "container.vfc", vfc.ReadWrite)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestFileStoreOs(t *testing.T) {
	vfctest.StoreTestSuite(t, func(t *testing.T) vfc.Store {
		s, err := file.NewOs(filepath.Join(t.TempDir(), "container.vfc"), vfc.Overwrite)
		if err != nil {
			t.Fatalf("NewOs: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestModes(t *testing.T) {
	fs := afero.NewMemMapFs()

	if _, err := file.Open(fs, "missing.vfc", vfc.ReadOnly); !errors.Is(err, vfc.ErrNotFound) {
		t.Fatalf("Open read-only of missing file = %v, want ErrNotFound", err)
	}

	s, err := file.Open(fs, "data.vfc", vfc.ReadWrite)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Write([]byte("persisted")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ro, err := file.Open(fs, "data.vfc", vfc.ReadOnly)
	if err != nil {
		t.Fatalf("Open read-only: %v", err)
	}
	defer func() { _ = ro.Close() }()
	if !ro.ReadOnly() || !vfc.IsReadOnly(ro) {
		t.Error("read-only store does not report ReadOnly")
	}
	if ro.Size() != 9 {
		t.Errorf("Size = %d, want 9", ro.Size())
	}
	if _, err := ro.Write([]byte("x")); !errors.Is(err, vfc.ErrReadOnly) {
		t.Errorf("Write on read-only = %v, want ErrReadOnly", err)
	}
	if err := ro.Truncate(); !errors.Is(err, vfc.ErrReadOnly) {
		t.Errorf("Truncate on read-only = %v, want ErrReadOnly", err)
	}
	if err := ro.Flush(); err != nil {
		t.Errorf("Flush on read-only: %v", err)
	}

	ow, err := file.Open(fs, "data.vfc", vfc.Overwrite)
	if err != nil {
		t.Fatalf("Open overwrite: %v", err)
	}
	defer func() { _ = ow.Close() }()
	if ow.Size() != 0 {
		t.Errorf("Size after Overwrite = %d, want 0", ow.Size())
	}
	if ow.Mode() != vfc.Overwrite {
		t.Errorf("Mode = %v, want %v", ow.Mode(), vfc.Overwrite)
	}
}

func TestNameAndClose(t *testing.T) {
	s, err := file.Open(afero.NewMemMapFs(), "dir/../c.vfc", vfc.ReadWrite)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := vfc.StoreName(s); got != "dir/../c.vfc" {
		t.Errorf("StoreName = %q, want the name as given", got)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if s.Size() != -1 {
		t.Errorf("Size after Close = %d, want -1", s.Size())
	}
	if err := s.Flush(); !errors.Is(err, vfc.ErrNotOpen) {
		t.Errorf("Flush after Close = %v, want ErrNotOpen", err)
	}
}

func TestRegisteredDriver(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := vfc.OpenStore(&vfc.Config{
		Type:    "file",
		Path:    "registered.vfc",
		Options: map[string]any{"fs": fs},
	})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if _, err := s.Write([]byte("x")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if ok, _ := afero.Exists(fs, "registered.vfc"); !ok {
		t.Error("file not created on the configured filesystem")
	}

	if _, err := vfc.OpenStore(&vfc.Config{Type: "file"}); err == nil {
		t.Error("OpenStore without path succeeded")
	}
}
