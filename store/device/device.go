// Package device adapts any random-access vfc.Device to the vfc.Store
// primitives. The adapter cannot shrink a device in place, so it reports no
// truncation support.
package device

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nuln/vfc"
)

// Auto-register the device store driver. The device itself travels in
// cfg.Options["device"].
func init() {
	vfc.Register("device", func(cfg *vfc.Config) (vfc.Store, error) {
		dev, ok := cfg.Options["device"].(vfc.Device)
		if !ok || dev == nil {
			return nil, fmt.Errorf("vfc/device: Options[\"device\"] must hold a vfc.Device")
		}
		return New(dev), nil
	})
}

// Store implements vfc.Store on top of a vfc.Device. A Store without a
// device reports ErrNotOpen from every primitive.
type Store struct {
	dev vfc.Device
}

// New creates a Store for dev. dev may be nil and attached later.
func New(dev vfc.Device) *Store {
	return &Store{dev: dev}
}

// Attach replaces the device used for I/O. Passing nil detaches it.
func (s *Store) Attach(dev vfc.Device) {
	s.dev = dev
}

// Device returns the attached device, or nil.
func (s *Store) Device() vfc.Device {
	return s.dev
}

func (s *Store) Size() int64 {
	if s.dev == nil {
		return -1
	}
	size, err := deviceSize(s.dev)
	if err != nil {
		return -1
	}
	return size
}

func (s *Store) SetPosition(offset int64) error {
	if s.dev == nil {
		return vfc.ErrNotOpen
	}
	size := s.Size()
	if offset < 0 || offset > size {
		return &vfc.SeekError{Offset: offset, Size: size}
	}
	if _, err := s.dev.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("vfc/device: seeking to %d: %w", offset, err)
	}
	return nil
}

func (s *Store) SetPositionLast() error {
	if s.dev == nil {
		return vfc.ErrNotOpen
	}
	size := s.Size()
	if size < 0 {
		return fmt.Errorf("vfc/device: seeking to end: cannot determine device size")
	}
	if _, err := s.dev.Seek(size, io.SeekStart); err != nil {
		return fmt.Errorf("vfc/device: seeking to %d: %w", size, err)
	}
	return nil
}

func (s *Store) Position() (int64, error) {
	if s.dev == nil {
		return 0, vfc.ErrNotOpen
	}
	return s.dev.Seek(0, io.SeekCurrent)
}

func (s *Store) Read(p []byte) (int, error) {
	if s.dev == nil {
		return 0, vfc.ErrNotOpen
	}
	n, err := s.dev.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		pos, _ := s.Position()
		return n, fmt.Errorf("%w at offset %d: %w", vfc.ErrRead, pos, err)
	}
	return n, nil
}

func (s *Store) Write(p []byte) (int, error) {
	if s.dev == nil {
		return 0, vfc.ErrNotOpen
	}
	n, err := s.dev.Write(p)
	if err != nil {
		pos, _ := s.Position()
		return n, fmt.Errorf("%w at offset %d: %w", vfc.ErrWrite, pos, err)
	}
	return n, nil
}

func (s *Store) SupportsTruncation() bool {
	return false
}

// Truncate is a no-op: a generic device cannot shrink in place.
func (s *Store) Truncate() error {
	return nil
}

// Flush pushes buffered data down when the device buffers writes itself
// (for example a *bufio.ReadWriter wrapper exposing Flush).
func (s *Store) Flush() error {
	if s.dev == nil {
		return vfc.ErrNotOpen
	}
	if f, ok := s.dev.(interface{ Flush() error }); ok {
		return f.Flush()
	}
	return nil
}

// deviceSize prefers Stat, which leaves the position alone, and falls back
// to seeking to the end and back.
func deviceSize(dev vfc.Device) (int64, error) {
	if st, ok := dev.(interface{ Stat() (os.FileInfo, error) }); ok {
		info, err := st.Stat()
		if err != nil {
			return -1, err
		}
		return info.Size(), nil
	}
	cur, err := dev.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1, err
	}
	end, err := dev.Seek(0, io.SeekEnd)
	if err != nil {
		return -1, err
	}
	if _, err := dev.Seek(cur, io.SeekStart); err != nil {
		return -1, err
	}
	return end, nil
}

// Compile-time interface check.
var _ vfc.Store = (*Store)(nil)
