package vfc

import (
	"errors"
	"fmt"
	"os"
)

// Common container errors. Where possible, these alias os package errors
// for compatibility with os.IsNotExist, os.IsExist, etc.
var (
	ErrNotFound       = os.ErrNotExist
	ErrExist          = os.ErrExist
	ErrNotOpen        = errors.New("vfc: backing store not open")
	ErrAlreadyOpen    = errors.New("vfc: container already open")
	ErrSeekOutOfRange = errors.New("vfc: seek offset out of range")
	ErrRead           = errors.New("vfc: read error")
	ErrWrite          = errors.New("vfc: write error")
	ErrHeaderMismatch = errors.New("vfc: container identifier mismatch")
	ErrCorrupt        = errors.New("vfc: malformed container")
	ErrInvalidName    = errors.New("vfc: invalid stream name")
	ErrReadOnly       = errors.New("vfc: store is read-only")
	ErrStaleHandle    = errors.New("vfc: virtual file is no longer valid")
	ErrNotSupported   = errors.New("vfc: feature not supported by this store")
)

// SeekError reports a position request beyond the end of a store or stream.
// It matches ErrSeekOutOfRange with errors.Is.
type SeekError struct {
	Offset int64
	Size   int64
}

func (e *SeekError) Error() string {
	return fmt.Sprintf("vfc: seek to offset %d out of range (size %d)", e.Offset, e.Size)
}

func (e *SeekError) Is(target error) bool {
	return target == ErrSeekOutOfRange
}

// Describe returns the human readable description of err, or "" for nil.
// Containers and handles report their most recent failure this way.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
