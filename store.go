package vfc

import "io"

// Store is the set of primitives a container engine needs from its backing
// byte store. All offsets are absolute byte positions from the start of the
// store. Implementations report failures through the returned error and never
// panic on a detached device.
type Store interface {
	// Size returns the current length of the store in bytes, or -1 when no
	// device is attached.
	Size() int64

	// SetPosition moves to offset. Offsets beyond Size fail with a
	// *SeekError; a detached store fails with ErrNotOpen.
	SetPosition(offset int64) error

	// SetPositionLast moves just past the last byte of the store.
	SetPositionLast() error

	// Position returns the current offset. A detached store reports
	// ErrNotOpen.
	Position() (int64, error)

	// Read transfers up to len(p) bytes from the current position. A short
	// count is not an error; callers loop for the remainder.
	Read(p []byte) (int, error)

	// Write transfers up to len(p) bytes at the current position. A short
	// count is not an error; callers loop for the remainder.
	Write(p []byte) (int, error)

	// SupportsTruncation reports whether Truncate actually shrinks the store.
	SupportsTruncation() bool

	// Truncate cuts the store at the current position. Stores that cannot
	// shrink in place return nil without doing anything.
	Truncate() error

	// Flush forces buffered writes down to the device.
	Flush() error
}

// Device is a random-access byte device that a generic store adapter can
// drive. Devices that also implement Stat() (os.FileInfo, error), like
// os.File and afero.File, report their size without moving the position.
type Device interface {
	io.Reader
	io.Writer
	io.Seeker
}
