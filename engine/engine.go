// Package engine implements the container engine: it creates and verifies
// the container header, owns the authoritative stream directory and stores
// each stream's bytes as extents inside a vfc.Store.
//
// An Engine is not safe for concurrent use.
package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/nuln/vfc"
)

// DefaultCacheSize is the default per-stream write cache size (64KB).
const DefaultCacheSize = 64 * 1024

// StreamHook is called every time the engine instantiates a stream object,
// both when streams are discovered while opening a container and when a new
// stream is created.
type StreamHook func(name string, s *Stream)

// Option configures an Engine.
type Option func(*Engine)

// WithCacheSize sets the per-stream write cache size. Values <= 0 disable
// caching.
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		if n < 0 {
			n = 0
		}
		e.cacheSize = n
	}
}

// WithStreamHook installs a stream factory hook.
func WithStreamHook(h StreamHook) Option {
	return func(e *Engine) {
		e.hook = h
	}
}

// Engine manages a container held in a single vfc.Store.
type Engine struct {
	identifier string
	store      vfc.Store
	cacheSize  int
	hook       StreamHook

	open     bool
	readOnly bool
	dirty    bool
	streams  map[string]*Stream
	allocEnd int64
	lastErr  error
}

// New creates an Engine for the container identified by identifier. The
// store may be nil and attached later with SetStore.
func New(identifier string, store vfc.Store, opts ...Option) *Engine {
	e := &Engine{
		identifier: identifier,
		store:      store,
		cacheSize:  DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Identifier returns the container identifier.
func (e *Engine) Identifier() string { return e.identifier }

// Store returns the attached store, or nil.
func (e *Engine) Store() vfc.Store { return e.store }

// IsOpen reports whether Open succeeded and Close has not been called since.
func (e *Engine) IsOpen() bool { return e.open }

// SetStore attaches s. The store of an open container cannot be replaced.
func (e *Engine) SetStore(s vfc.Store) error {
	if e.open {
		return e.record(vfc.ErrAlreadyOpen)
	}
	e.store = s
	return nil
}

// LastError returns the outcome of the most recent operation.
func (e *Engine) LastError() error { return e.lastErr }

// ErrorString describes the most recent failure, or returns "" if the most
// recent operation succeeded.
func (e *Engine) ErrorString() string { return vfc.Describe(e.lastErr) }

func (e *Engine) record(err error) error {
	e.lastErr = err
	return err
}

// Open creates a fresh header on an empty store or validates the header of
// an existing container and loads its directory.
func (e *Engine) Open() error {
	if e.open {
		return e.record(vfc.ErrAlreadyOpen)
	}
	if e.store == nil {
		return e.record(vfc.ErrNotOpen)
	}
	if len(e.identifier) > MaxIdentifierLen {
		return e.record(fmt.Errorf("engine: identifier is %d bytes, limit is %d", len(e.identifier), MaxIdentifierLen))
	}

	size := e.store.Size()
	if size < 0 {
		return e.record(vfc.ErrNotOpen)
	}

	e.readOnly = vfc.IsReadOnly(e.store)
	e.streams = make(map[string]*Stream)
	e.allocEnd = HeaderSize

	if size == 0 {
		if err := e.create(); err != nil {
			e.streams = nil
			return e.record(err)
		}
	} else if err := e.load(size); err != nil {
		e.streams = nil
		return e.record(err)
	}

	e.open = true
	e.dirty = false

	log.Debug().
		Str("identifier", e.identifier).
		Int64("size", size).
		Int("streams", len(e.streams)).
		Msg("engine: container opened")

	return e.record(nil)
}

func (e *Engine) create() error {
	if e.readOnly {
		return fmt.Errorf("engine: creating header: %w", vfc.ErrReadOnly)
	}
	if err := e.writeDirectory(); err != nil {
		return err
	}
	if err := e.store.Flush(); err != nil {
		return fmt.Errorf("engine: flushing new header: %w", err)
	}
	log.Debug().Str("identifier", e.identifier).Msg("engine: header created")
	return nil
}

func (e *Engine) load(size int64) error {
	buf := make([]byte, min(size, HeaderSize))
	if err := readAt(e.store, 0, buf); err != nil {
		return fmt.Errorf("engine: reading header: %w", err)
	}
	h, err := parseHeader(buf)
	if err != nil {
		return err
	}
	if h.identifier != e.identifier {
		return fmt.Errorf("%w: found %q, want %q", vfc.ErrHeaderMismatch, h.identifier, e.identifier)
	}
	if h.dirOffset > size || h.dirLength > size-h.dirOffset {
		return fmt.Errorf("%w: directory at %d+%d beyond end of store (%d)", vfc.ErrCorrupt, h.dirOffset, h.dirLength, size)
	}

	data := make([]byte, h.dirLength)
	if err := readAt(e.store, h.dirOffset, data); err != nil {
		return fmt.Errorf("engine: reading directory: %w", err)
	}
	records, err := decodeDirectory(data, h.digest, h.dirOffset)
	if err != nil {
		return err
	}

	for _, name := range sortedNames(records) {
		rec := records[name]
		s := e.newStream(name)
		s.size = rec.Size
		s.extents = rec.Extents
		for _, x := range rec.Extents {
			e.allocEnd = max(e.allocEnd, x.End())
		}
		e.streams[name] = s
		e.notify(name, s)
	}
	return nil
}

// writeDirectory writes the header followed by the directory, placed just
// past the last allocated extent, and trims the store after it if possible.
func (e *Engine) writeDirectory() error {
	data, digest, err := encodeDirectory(e.streams)
	if err != nil {
		return err
	}
	h := header{
		version:    formatVersion,
		identifier: e.identifier,
		dirOffset:  e.allocEnd,
		dirLength:  int64(len(data)),
		digest:     digest,
	}
	// The header goes first: on an empty store the directory offset does
	// not exist until the header has been written.
	if err := writeAt(e.store, 0, h.marshal()); err != nil {
		return fmt.Errorf("engine: writing header: %w", err)
	}
	if err := writeAt(e.store, h.dirOffset, data); err != nil {
		return fmt.Errorf("engine: writing directory: %w", err)
	}
	if e.store.SupportsTruncation() {
		if err := e.store.Truncate(); err != nil {
			return fmt.Errorf("engine: truncating store: %w", err)
		}
	}
	e.dirty = false
	return nil
}

// Close flushes every stream and, if anything changed, rewrites the
// directory. The engine is closed afterwards even when an error is returned.
func (e *Engine) Close() error {
	if !e.open {
		return e.record(vfc.ErrNotOpen)
	}

	var errs []error
	for _, name := range sortedNames(e.streams) {
		if err := e.streams[name].flushCache(); err != nil {
			errs = append(errs, err)
		}
	}
	if e.dirty && len(errs) == 0 {
		if err := e.writeDirectory(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := e.store.Flush(); err != nil {
		errs = append(errs, fmt.Errorf("engine: flushing store: %w", err))
	}

	for _, s := range e.streams {
		s.detached = true
	}
	e.streams = nil
	e.open = false

	err := errors.Join(errs...)
	log.Debug().
		Str("identifier", e.identifier).
		Err(err).
		Msg("engine: container closed")
	return e.record(err)
}

// Directory returns the authoritative name to stream mapping. The map is a
// copy; the streams are shared.
func (e *Engine) Directory() map[string]*Stream {
	dir := make(map[string]*Stream, len(e.streams))
	for name, s := range e.streams {
		dir[name] = s
	}
	return dir
}

// NewVirtualFile creates an empty stream called name.
func (e *Engine) NewVirtualFile(name string) (*Stream, error) {
	if !e.open {
		return nil, e.record(vfc.ErrNotOpen)
	}
	if err := validateName(name); err != nil {
		return nil, e.record(err)
	}
	if e.readOnly {
		return nil, e.record(fmt.Errorf("engine: creating stream %q: %w", name, vfc.ErrReadOnly))
	}
	if _, exists := e.streams[name]; exists {
		return nil, e.record(fmt.Errorf("engine: stream %q: %w", name, vfc.ErrExist))
	}

	s := e.newStream(name)
	e.streams[name] = s
	e.dirty = true
	e.notify(name, s)

	log.Debug().Str("name", name).Msg("engine: stream created")
	return s, e.record(nil)
}

func (e *Engine) newStream(name string) *Stream {
	return &Stream{e: e, name: name}
}

func (e *Engine) notify(name string, s *Stream) {
	if e.hook != nil {
		e.hook(name, s)
	}
}

// remove drops s from the directory after an erase.
func (e *Engine) remove(s *Stream) {
	if e.streams[s.name] == s {
		delete(e.streams, s.name)
	}
	e.dirty = true
	log.Debug().Str("name", s.name).Msg("engine: stream erased")
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
