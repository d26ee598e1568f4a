// Package file provides a vfc.Store backed by a single file on an afero
// filesystem. Unlike the generic device adapter it supports truncation and
// owns the file's lifecycle.
package file

import (
	"fmt"
	"io"

	"github.com/spf13/afero"

	"github.com/nuln/vfc"
	"github.com/nuln/vfc/store/device"
)

// Auto-register the file store driver. cfg.Options["fs"] may hold an
// afero.Fs; the OS filesystem is used otherwise.
func init() {
	vfc.Register("file", func(cfg *vfc.Config) (vfc.Store, error) {
		fs := afero.NewOsFs()
		if v, ok := cfg.Options["fs"].(afero.Fs); ok {
			fs = v
		}
		if cfg.Path == "" {
			return nil, fmt.Errorf("vfc/file: path is required")
		}
		return Open(fs, cfg.Path, cfg.Mode)
	})
}

// Store implements vfc.Store for one file.
type Store struct {
	*device.Store
	file afero.File
	name string
	mode vfc.OpenMode
}

// Open opens or creates the file at name on fs according to mode. The name
// is passed to the filesystem unchanged.
func Open(fs afero.Fs, name string, mode vfc.OpenMode) (*Store, error) {
	f, err := fs.OpenFile(name, mode.Flags(), 0644)
	if err != nil {
		return nil, fmt.Errorf("vfc/file: opening %s (%s): %w", name, mode, err)
	}
	return &Store{
		Store: device.New(f),
		file:  f,
		name:  name,
		mode:  mode,
	}, nil
}

// NewOs is a shortcut for Open on the OS filesystem.
func NewOs(name string, mode vfc.OpenMode) (*Store, error) {
	return Open(afero.NewOsFs(), name, mode)
}

func (s *Store) Write(p []byte) (int, error) {
	if s.mode == vfc.ReadOnly {
		return 0, fmt.Errorf("vfc/file: %s: %w", s.name, vfc.ErrReadOnly)
	}
	return s.Store.Write(p)
}

func (s *Store) SupportsTruncation() bool {
	return true
}

// Truncate cuts the file at the current position.
func (s *Store) Truncate() error {
	if s.file == nil {
		return vfc.ErrNotOpen
	}
	if s.mode == vfc.ReadOnly {
		return fmt.Errorf("vfc/file: %s: %w", s.name, vfc.ErrReadOnly)
	}
	pos, err := s.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("vfc/file: truncating %s: %w", s.name, err)
	}
	if err := s.file.Truncate(pos); err != nil {
		return fmt.Errorf("vfc/file: truncating %s at %d: %w", s.name, pos, err)
	}
	return nil
}

// Flush syncs the file to stable storage. Read-only files have nothing to
// flush.
func (s *Store) Flush() error {
	if s.file == nil {
		return vfc.ErrNotOpen
	}
	if s.mode == vfc.ReadOnly {
		return nil
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("vfc/file: syncing %s: %w", s.name, err)
	}
	return nil
}

// ReadOnly reports whether the file was opened with vfc.ReadOnly.
func (s *Store) ReadOnly() bool {
	return s.mode == vfc.ReadOnly
}

// Name returns the file name exactly as given to Open.
func (s *Store) Name() string {
	return s.name
}

// Mode returns the mode the file was opened with.
func (s *Store) Mode() vfc.OpenMode {
	return s.mode
}

// Close closes the file. The store reports ErrNotOpen afterwards.
func (s *Store) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.Attach(nil)
	return err
}

// Compile-time interface checks.
var (
	_ vfc.Store         = (*Store)(nil)
	_ vfc.ReadOnlyStore = (*Store)(nil)
	_ vfc.NamedStore    = (*Store)(nil)
	_ io.Closer         = (*Store)(nil)
)
