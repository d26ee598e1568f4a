// Package rclone keeps a container image on any rclone remote. The image is
// downloaded into memory when the store is opened, edited there, and
// uploaded again whenever the store is flushed after a change.
package rclone

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/rclone/rclone/fs"
	"github.com/rclone/rclone/fs/operations"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/nuln/vfc"
	"github.com/nuln/vfc/store/device"
)

// Auto-register the rclone store driver.
func init() {
	vfc.Register("rclone", func(cfg *vfc.Config) (vfc.Store, error) {
		remote := ""
		if v, ok := cfg.Options["remote"]; ok {
			remote, _ = v.(string)
		}
		if remote == "" {
			return nil, fmt.Errorf("vfc/rclone: remote is required (set Options[\"remote\"])")
		}
		if cfg.Path == "" {
			return nil, fmt.Errorf("vfc/rclone: path of the container object is required")
		}
		return Open(context.Background(), remote, cfg.Path, cfg.Mode)
	})
}

// Store implements vfc.Store for a container object on an rclone remote.
type Store struct {
	*device.Store
	ctx    context.Context
	remote fs.Fs
	object string
	image  afero.File
	mode   vfc.OpenMode
	dirty  bool
}

// Open connects to remotePath (e.g. "gdrive:backup") and loads object.
func Open(ctx context.Context, remotePath, object string, mode vfc.OpenMode) (*Store, error) {
	remote, err := fs.NewFs(ctx, remotePath)
	if err != nil {
		return nil, err
	}
	return OpenFs(ctx, remote, object, mode)
}

// OpenFs loads object from an already configured remote. With vfc.ReadWrite
// a missing object starts out empty; vfc.Overwrite ignores any existing one.
func OpenFs(ctx context.Context, remote fs.Fs, object string, mode vfc.OpenMode) (*Store, error) {
	image, err := afero.NewMemMapFs().Create(path.Base(object))
	if err != nil {
		return nil, err
	}

	s := &Store{
		Store:  device.New(image),
		ctx:    ctx,
		remote: remote,
		object: object,
		image:  image,
		mode:   mode,
	}

	if mode != vfc.Overwrite {
		if err := s.download(); err != nil {
			_ = image.Close()
			return nil, err
		}
	}
	if _, err := image.Seek(0, io.SeekStart); err != nil {
		_ = image.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) download() error {
	obj, err := s.remote.NewObject(s.ctx, s.object)
	if errors.Is(err, fs.ErrorObjectNotFound) {
		if s.mode == vfc.ReadOnly {
			return fmt.Errorf("vfc/rclone: %s: %w", s.object, vfc.ErrNotFound)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("vfc/rclone: looking up %s: %w", s.object, err)
	}

	rc, err := obj.Open(s.ctx)
	if err != nil {
		return fmt.Errorf("vfc/rclone: opening %s: %w", s.object, err)
	}
	defer func() { _ = rc.Close() }()

	n, err := io.Copy(s.image, rc)
	if err != nil {
		return fmt.Errorf("vfc/rclone: downloading %s: %w", s.object, err)
	}
	log.Debug().
		Str("remote", fs.ConfigString(s.remote)).
		Str("object", s.object).
		Int64("bytes", n).
		Msg("rclone: container image downloaded")
	return nil
}

func (s *Store) Write(p []byte) (int, error) {
	if s.mode == vfc.ReadOnly {
		return 0, fmt.Errorf("vfc/rclone: %s: %w", s.object, vfc.ErrReadOnly)
	}
	n, err := s.Store.Write(p)
	if n > 0 {
		s.dirty = true
	}
	return n, err
}

func (s *Store) SupportsTruncation() bool {
	return true
}

// Truncate cuts the in-memory image at the current position.
func (s *Store) Truncate() error {
	if s.image == nil {
		return vfc.ErrNotOpen
	}
	if s.mode == vfc.ReadOnly {
		return fmt.Errorf("vfc/rclone: %s: %w", s.object, vfc.ErrReadOnly)
	}
	pos, err := s.image.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if pos == s.Size() {
		return nil
	}
	if err := s.image.Truncate(pos); err != nil {
		return err
	}
	s.dirty = true
	return nil
}

// Flush uploads the image if it changed since the last upload.
func (s *Store) Flush() error {
	if s.image == nil {
		return vfc.ErrNotOpen
	}
	if !s.dirty {
		return nil
	}

	size := s.Size()
	in := io.NopCloser(io.NewSectionReader(s.image, 0, size))
	if _, err := operations.Rcat(s.ctx, s.remote, s.object, in, time.Now(), nil); err != nil {
		return fmt.Errorf("vfc/rclone: uploading %s: %w", s.object, err)
	}
	s.dirty = false

	log.Debug().
		Str("remote", fs.ConfigString(s.remote)).
		Str("object", s.object).
		Int64("bytes", size).
		Msg("rclone: container image uploaded")
	return nil
}

// ReadOnly reports whether the store was opened with vfc.ReadOnly.
func (s *Store) ReadOnly() bool {
	return s.mode == vfc.ReadOnly
}

// Name returns the remote location of the container object.
func (s *Store) Name() string {
	return fs.ConfigString(s.remote) + "/" + s.object
}

// Close uploads pending changes and releases the in-memory image.
func (s *Store) Close() error {
	if s.image == nil {
		return nil
	}
	err := s.Flush()
	_ = s.image.Close()
	s.image = nil
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
