package engine

import (
	"fmt"

	"github.com/nuln/vfc"
)

// Stream is one named byte sequence inside a container. It tracks its own
// position, so every holder of the same *Stream observes the same position
// and size. Writes are buffered in a per-stream cache until they become
// non-contiguous, the cache fills, or the stream is read, flushed or closed.
type Stream struct {
	e       *Engine
	name    string
	extents []Extent
	size    int64
	pos     int64

	cache    []byte
	cacheOff int64

	erased   bool
	detached bool
}

// Name returns the stream name.
func (s *Stream) Name() string { return s.name }

// Size returns the logical size of the stream, cached bytes included.
func (s *Stream) Size() int64 { return s.size }

// Position returns the current offset within the stream.
func (s *Stream) Position() int64 { return s.pos }

// Erased reports whether the stream has been deleted.
func (s *Stream) Erased() bool { return s.erased }

// BytesInWriteCache returns the number of bytes not yet written to the store.
func (s *Stream) BytesInWriteCache() int64 { return int64(len(s.cache)) }

// Extents returns a copy of the stream's store extents. Cached bytes are not
// part of any extent until flushed.
func (s *Stream) Extents() []Extent {
	out := make([]Extent, len(s.extents))
	copy(out, s.extents)
	return out
}

func (s *Stream) usable() error {
	switch {
	case s.erased:
		return fmt.Errorf("engine: stream %q: %w", s.name, vfc.ErrNotFound)
	case s.detached:
		return fmt.Errorf("engine: stream %q: %w", s.name, vfc.ErrNotOpen)
	}
	return nil
}

// SetPosition moves to offset, which must lie within [0, Size()].
func (s *Stream) SetPosition(offset int64) error {
	if err := s.usable(); err != nil {
		return s.e.record(err)
	}
	if offset < 0 || offset > s.size {
		return s.e.record(&vfc.SeekError{Offset: offset, Size: s.size})
	}
	s.pos = offset
	return s.e.record(nil)
}

// Read transfers up to len(p) bytes from the current position. It returns
// 0 and a nil error at the end of the stream.
func (s *Stream) Read(p []byte) (int, error) {
	if err := s.usable(); err != nil {
		return 0, s.e.record(err)
	}
	if err := s.flushCache(); err != nil {
		return 0, s.e.record(err)
	}
	n := int(min(int64(len(p)), s.size-s.pos))
	if n <= 0 {
		return 0, s.e.record(nil)
	}
	if err := s.readData(s.pos, p[:n]); err != nil {
		return 0, s.e.record(fmt.Errorf("engine: reading stream %q: %w", s.name, err))
	}
	s.pos += int64(n)
	return n, s.e.record(nil)
}

// Write transfers all of p at the current position, extending the stream
// when writing past its end.
func (s *Stream) Write(p []byte) (int, error) {
	if err := s.usable(); err != nil {
		return 0, s.e.record(err)
	}
	if s.e.readOnly {
		return 0, s.e.record(fmt.Errorf("engine: writing stream %q: %w", s.name, vfc.ErrReadOnly))
	}
	if len(p) == 0 {
		return 0, s.e.record(nil)
	}

	if len(s.cache) > 0 && (s.pos != s.cacheOff+int64(len(s.cache)) || len(s.cache)+len(p) > s.e.cacheSize) {
		if err := s.flushCache(); err != nil {
			return 0, s.e.record(err)
		}
	}

	if len(p) >= s.e.cacheSize {
		if err := s.writeData(s.pos, p); err != nil {
			return 0, s.e.record(fmt.Errorf("engine: writing stream %q: %w", s.name, err))
		}
	} else {
		if len(s.cache) == 0 {
			s.cacheOff = s.pos
		}
		s.cache = append(s.cache, p...)
	}

	s.pos += int64(len(p))
	s.size = max(s.size, s.pos)
	s.e.dirty = true
	return len(p), s.e.record(nil)
}

// Flush writes any cached bytes to the store.
func (s *Stream) Flush() error {
	if err := s.usable(); err != nil {
		return s.e.record(err)
	}
	return s.e.record(s.flushCache())
}

// Erase deletes the stream from the container. The stream, and every
// handle built on it, is unusable afterwards.
func (s *Stream) Erase() error {
	if err := s.usable(); err != nil {
		return s.e.record(err)
	}
	if s.e.readOnly {
		return s.e.record(fmt.Errorf("engine: erasing stream %q: %w", s.name, vfc.ErrReadOnly))
	}
	s.e.remove(s)
	s.erased = true
	s.cache = nil
	return s.e.record(nil)
}

func (s *Stream) flushCache() error {
	if len(s.cache) == 0 {
		return nil
	}
	if err := s.writeData(s.cacheOff, s.cache); err != nil {
		return fmt.Errorf("engine: flushing stream %q: %w", s.name, err)
	}
	s.cache = s.cache[:0]
	return nil
}

// readData copies stream bytes [off, off+len(p)) from their extents.
func (s *Stream) readData(off int64, p []byte) error {
	var logical int64
	for _, x := range s.extents {
		if len(p) == 0 {
			break
		}
		end := logical + x.Length
		if off < end {
			inner := off - logical
			n := min(x.Length-inner, int64(len(p)))
			if err := readAt(s.e.store, x.Offset+inner, p[:n]); err != nil {
				return err
			}
			p = p[n:]
			off += n
		}
		logical = end
	}
	if len(p) > 0 {
		return fmt.Errorf("%w: stream %q has no extent for offset %d", vfc.ErrCorrupt, s.name, off)
	}
	return nil
}

// writeData overwrites existing extents in place and allocates a new extent
// at the end of the data area for whatever extends past them.
func (s *Stream) writeData(off int64, p []byte) error {
	var logical int64
	for _, x := range s.extents {
		if len(p) == 0 {
			return nil
		}
		end := logical + x.Length
		if off < end {
			inner := off - logical
			n := min(x.Length-inner, int64(len(p)))
			if err := writeAt(s.e.store, x.Offset+inner, p[:n]); err != nil {
				return err
			}
			p = p[n:]
			off += n
		}
		logical = end
	}
	if len(p) == 0 {
		return nil
	}
	if off != logical {
		return fmt.Errorf("%w: stream %q write at %d leaves a gap after %d", vfc.ErrCorrupt, s.name, off, logical)
	}

	at := s.e.allocEnd
	if err := writeAt(s.e.store, at, p); err != nil {
		return err
	}
	n := int64(len(p))
	if last := len(s.extents) - 1; last >= 0 && s.extents[last].End() == at {
		s.extents[last].Length += n
	} else {
		s.extents = append(s.extents, Extent{Offset: at, Length: n})
	}
	s.e.allocEnd = at + n
	return nil
}
