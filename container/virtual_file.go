package container

import (
	"errors"
	"fmt"
	"io"

	"github.com/nuln/vfc"
	"github.com/nuln/vfc/engine"
)

// VirtualFile is a random-access handle to one stream of a container. It
// implements io.Reader, io.Writer, io.Seeker and io.Closer.
//
// A VirtualFile shares its engine stream with every other handle bound to
// the same stream, so position and size changes are visible through all of
// them. A handle becomes invalid once its stream is erased, once a directory
// query retires it, or once its container is closed; I/O on an invalid
// handle fails with vfc.ErrStaleHandle.
type VirtualFile struct {
	c       *Container
	stream  *engine.Stream
	epoch   uint64
	retired bool
	lastErr error
}

// Name returns the name of the stream the handle is bound to.
func (f *VirtualFile) Name() string { return f.stream.Name() }

// Stream returns the shared engine stream.
func (f *VirtualFile) Stream() *engine.Stream { return f.stream }

// Valid reports whether the handle can still be used for I/O.
func (f *VirtualFile) Valid() bool { return f.check() == nil }

// LastError returns the outcome of the most recent operation on the handle.
func (f *VirtualFile) LastError() error { return f.lastErr }

// ErrorString describes the most recent failure on the handle.
func (f *VirtualFile) ErrorString() string { return vfc.Describe(f.lastErr) }

func (f *VirtualFile) record(err error) error {
	f.lastErr = err
	return err
}

func (f *VirtualFile) check() error {
	if f.retired || f.epoch != f.c.epoch || !f.c.engine.IsOpen() || f.stream.Erased() {
		return fmt.Errorf("container: %q: %w", f.stream.Name(), vfc.ErrStaleHandle)
	}
	return nil
}

func (f *VirtualFile) retire() {
	f.retired = true
}

// Size returns the stream size in bytes.
func (f *VirtualFile) Size() int64 { return f.stream.Size() }

// Pos returns the current position in the stream.
func (f *VirtualFile) Pos() int64 { return f.stream.Position() }

// AtEnd reports whether the position is at the end of the stream.
func (f *VirtualFile) AtEnd() bool { return f.stream.Position() == f.stream.Size() }

// BytesAvailable returns the number of bytes between the position and the
// end of the stream.
func (f *VirtualFile) BytesAvailable() int64 {
	return max(0, f.stream.Size()-f.stream.Position())
}

// BytesToWrite returns the number of written bytes not yet in the store.
// Handles do no buffering of their own; all pending bytes sit in the
// engine stream's write cache.
func (f *VirtualFile) BytesToWrite() int64 {
	return f.stream.BytesInWriteCache()
}

// Info returns a snapshot of the stream's state.
func (f *VirtualFile) Info() vfc.StreamInfo {
	return vfc.StreamInfo{
		Name:     f.Name(),
		Size:     f.Size(),
		Position: f.Pos(),
		Pending:  f.BytesToWrite(),
	}
}

// Read reads up to len(p) bytes. It returns io.EOF at the end of the stream.
func (f *VirtualFile) Read(p []byte) (int, error) {
	if err := f.check(); err != nil {
		return 0, f.record(err)
	}
	if len(p) == 0 {
		return 0, f.record(nil)
	}
	n, err := f.stream.Read(p)
	if err != nil {
		return 0, f.record(err)
	}
	if n == 0 {
		return 0, f.record(io.EOF)
	}
	return n, f.record(nil)
}

// Write writes p at the current position, growing the stream as needed.
func (f *VirtualFile) Write(p []byte) (int, error) {
	if err := f.check(); err != nil {
		return 0, f.record(err)
	}
	if len(p) == 0 {
		return 0, f.record(nil)
	}
	n, err := f.stream.Write(p)
	if err != nil {
		return 0, f.record(err)
	}
	return n, f.record(nil)
}

// Seek implements io.Seeker. The target must lie within [0, Size()]; on
// failure the position is left where it was.
func (f *VirtualFile) Seek(offset int64, whence int) (int64, error) {
	if err := f.check(); err != nil {
		return 0, f.record(err)
	}
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = f.stream.Position() + offset
	case io.SeekEnd:
		target = f.stream.Size() + offset
	default:
		return f.stream.Position(), f.record(errors.New("container: invalid whence"))
	}
	if err := f.stream.SetPosition(target); err != nil {
		return f.stream.Position(), f.record(err)
	}
	return target, f.record(nil)
}

// Flush writes the stream's cached bytes to the store.
func (f *VirtualFile) Flush() error {
	if err := f.check(); err != nil {
		return f.record(err)
	}
	return f.record(f.stream.Flush())
}

// Close flushes the stream. A flush failure is reported and remembered,
// but the handle stays bound; Close does not invalidate it.
func (f *VirtualFile) Close() error {
	if err := f.check(); err != nil {
		return f.record(err)
	}
	if err := f.stream.Flush(); err != nil {
		return f.record(fmt.Errorf("container: closing %q: %w", f.Name(), err))
	}
	return f.record(nil)
}

// Erase deletes the stream. On success the handle, and every other handle
// bound to the same stream, is permanently invalid; the next directory
// query drops the name. On failure the handle remains usable.
func (f *VirtualFile) Erase() error {
	if err := f.check(); err != nil {
		return f.record(err)
	}
	if err := f.stream.Erase(); err != nil {
		return f.record(fmt.Errorf("container: erasing %q: %w", f.Name(), err))
	}
	return f.record(nil)
}

// Assign rebinds f to the stream other is bound to, taking over other's
// validity: a retired or stale other leaves f invalid, a live other makes f
// usable again even if f itself had been retired.
//
// f keeps its identity and its place in any directory. A projected directory
// therefore maps f's old name to a handle whose Name() is other's stream
// until the next directory query that finds the old name gone.
func (f *VirtualFile) Assign(other *VirtualFile) {
	f.c = other.c
	f.stream = other.stream
	f.epoch = other.epoch
	f.retired = other.retired
	f.lastErr = nil
}

// Compile-time interface check.
var _ io.ReadWriteSeeker = (*VirtualFile)(nil)
