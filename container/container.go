// Package container exposes the streams of a vfc container as virtual files.
//
// A Container keeps an externally visible directory in sync with the
// engine's authoritative one: handles for unchanged names keep their
// identity across directory queries, handles for removed names are retired
// immediately. DeviceContainer and FileContainer are the two ways of
// supplying the backing store; both share the projection and handle logic.
//
// Containers and virtual files are not safe for concurrent use. Callers must
// serialize every operation on a container and its handles.
package container

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/nuln/vfc"
	"github.com/nuln/vfc/engine"
)

// Interface is the capability set shared by every container variant.
type Interface interface {
	IsOpen() bool
	Close() error
	Directory() (Directory, error)
	CreateStream(name string) (*VirtualFile, error)
	ErrorString() string
}

// Container hosts virtual files in any vfc.Store.
type Container struct {
	engine    *engine.Engine
	dir       Directory
	epoch     uint64
	ownsStore bool
	lastErr   error
}

// New creates a closed container over store. The store may be nil until
// the container is opened.
func New(identifier string, store vfc.Store, opts ...engine.Option) *Container {
	c := &Container{}
	opts = append([]engine.Option{engine.WithStreamHook(c.streamInstantiated)}, opts...)
	c.engine = engine.New(identifier, store, opts...)
	return c
}

// OpenConfig opens a store through the driver registry and then the
// container inside it. The store is closed together with the container.
func OpenConfig(cfg *vfc.Config, opts ...engine.Option) (*Container, error) {
	store, err := vfc.OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	c := New(cfg.Identifier, store, opts...)
	c.ownsStore = true
	if err := c.Open(); err != nil {
		if closer, ok := store.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, err
	}
	return c, nil
}

// Identifier returns the identifier the header is checked against.
func (c *Container) Identifier() string { return c.engine.Identifier() }

// Store returns the backing store.
func (c *Container) Store() vfc.Store { return c.engine.Store() }

// Engine returns the underlying container engine.
func (c *Container) Engine() *engine.Engine { return c.engine }

// IsOpen reports whether the container is open.
func (c *Container) IsOpen() bool { return c.engine.IsOpen() }

// LastError returns the outcome of the most recent container operation.
func (c *Container) LastError() error { return c.lastErr }

// ErrorString describes the most recent failure, or returns "" when the
// most recent operation succeeded.
func (c *Container) ErrorString() string { return vfc.Describe(c.lastErr) }

func (c *Container) record(err error) error {
	c.lastErr = err
	return err
}

// Open validates the header of a non-empty store, or writes a fresh header
// to an empty one. Handles from any earlier open are invalid afterwards.
func (c *Container) Open() error {
	if c.engine.IsOpen() {
		return c.record(vfc.ErrAlreadyOpen)
	}
	c.retireAll()
	if err := c.engine.Open(); err != nil {
		return c.record(fmt.Errorf("container: opening %q: %w", c.Identifier(), err))
	}
	c.epoch++
	c.dir = make(Directory)

	log.Debug().
		Str("identifier", c.Identifier()).
		Str("store", vfc.StoreName(c.Store())).
		Msg("container: opened")
	return c.record(nil)
}

// Close flushes and invalidates every live virtual file, closes the engine
// and, for owned stores, releases the store. The container ends up closed
// even when an error is reported; a failed close cannot be retried.
func (c *Container) Close() error {
	if !c.engine.IsOpen() {
		return c.record(vfc.ErrNotOpen)
	}

	var errs []error
	for _, name := range c.dir.Names() {
		f := c.dir[name]
		if f.Valid() {
			if err := f.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	c.retireAll()

	if err := c.engine.Close(); err != nil {
		errs = append(errs, err)
	}
	c.epoch++

	if c.ownsStore {
		if closer, ok := c.Store().(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("container: releasing store: %w", err))
			}
		}
	}

	err := errors.Join(errs...)
	log.Debug().
		Str("identifier", c.Identifier()).
		Err(err).
		Msg("container: closed")
	return c.record(err)
}

// CreateStream creates an empty stream and returns its handle, which is
// immediately part of the projected directory.
func (c *Container) CreateStream(name string) (*VirtualFile, error) {
	if !c.engine.IsOpen() {
		return nil, c.record(vfc.ErrNotOpen)
	}
	s, err := c.engine.NewVirtualFile(name)
	if err != nil {
		return nil, c.record(fmt.Errorf("container: creating %q: %w", name, err))
	}

	f := c.newVirtualFile(s)
	if old, ok := c.dir[name]; ok {
		old.retire()
	}
	c.dir[name] = f
	return f, c.record(nil)
}

// Stream returns the handle for name after synchronizing the directory.
func (c *Container) Stream(name string) (*VirtualFile, error) {
	dir, err := c.Directory()
	if err != nil {
		return nil, err
	}
	f, ok := dir[name]
	if !ok {
		return nil, c.record(fmt.Errorf("container: stream %q: %w", name, vfc.ErrNotFound))
	}
	return f, nil
}

// List returns a snapshot of every stream, sorted by name.
func (c *Container) List() ([]vfc.StreamInfo, error) {
	dir, err := c.Directory()
	if err != nil {
		return nil, err
	}
	infos := make([]vfc.StreamInfo, 0, len(dir))
	for _, name := range dir.Names() {
		infos = append(infos, dir[name].Info())
	}
	return infos, nil
}

func (c *Container) newVirtualFile(s *engine.Stream) *VirtualFile {
	return &VirtualFile{c: c, stream: s, epoch: c.epoch}
}

func (c *Container) retireAll() {
	for _, f := range c.dir {
		f.retire()
	}
	c.dir = nil
}

func (c *Container) streamInstantiated(name string, s *engine.Stream) {
	log.Trace().
		Str("name", name).
		Int64("size", s.Size()).
		Msg("container: engine stream instantiated")
}

// Compile-time interface check.
var _ Interface = (*Container)(nil)
