package container

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/nuln/vfc"
	"github.com/nuln/vfc/engine"
	"github.com/nuln/vfc/store/file"
)

// FileContainer is a container stored in a file it opens and closes itself.
// Files support truncation, so the container never keeps stale bytes past
// its directory.
type FileContainer struct {
	*Container
	fs afero.Fs
}

// NewFile creates a closed container whose files live on fs. A nil fs
// selects the OS filesystem.
func NewFile(identifier string, fs afero.Fs, opts ...engine.Option) *FileContainer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	c := &FileContainer{
		Container: New(identifier, nil, opts...),
		fs:        fs,
	}
	c.ownsStore = true
	return c
}

// Open opens the container file at name. ReadWrite creates a missing file,
// Overwrite discards an existing one and ReadOnly rejects every change.
func (c *FileContainer) Open(name string, mode vfc.OpenMode) error {
	if c.IsOpen() {
		return c.record(vfc.ErrAlreadyOpen)
	}
	store, err := file.Open(c.fs, name, mode)
	if err != nil {
		return c.record(err)
	}
	if err := c.engine.SetStore(store); err != nil {
		_ = store.Close()
		return c.record(err)
	}
	if err := c.Container.Open(); err != nil {
		_ = store.Close()
		_ = c.engine.SetStore(nil)
		return err
	}

	log.Debug().
		Str("file", name).
		Stringer("mode", mode).
		Msg("container: file opened")
	return nil
}

// Filename returns the name of the open container file, or "" when the
// container is closed.
func (c *FileContainer) Filename() string {
	if !c.IsOpen() {
		return ""
	}
	return vfc.StoreName(c.Store())
}

// Compile-time interface check.
var _ Interface = (*FileContainer)(nil)
