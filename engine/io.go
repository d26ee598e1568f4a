package engine

import (
	"fmt"
	"io"

	"github.com/nuln/vfc"
)

// readAt fills p from the store starting at off, looping over short reads.
func readAt(s vfc.Store, off int64, p []byte) error {
	if err := s.SetPosition(off); err != nil {
		return err
	}
	for len(p) > 0 {
		n, err := s.Read(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w at offset %d: %w", vfc.ErrRead, off, io.ErrUnexpectedEOF)
		}
		p = p[n:]
		off += int64(n)
	}
	return nil
}

// writeAt stores all of p starting at off, looping over short writes.
func writeAt(s vfc.Store, off int64, p []byte) error {
	if err := s.SetPosition(off); err != nil {
		return err
	}
	for len(p) > 0 {
		n, err := s.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w at offset %d: %w", vfc.ErrWrite, off, io.ErrShortWrite)
		}
		p = p[n:]
		off += int64(n)
	}
	return nil
}
