// Package vfctest provides conformance suites for vfc stores and containers.
package vfctest

import (
	"errors"
	"io"
	"testing"

	"github.com/nuln/vfc"
)

// StoreTestSuite runs the store primitive checks against stores returned by
// newStore, which must hand out a fresh, empty, writable store per call:
//
//	func TestFileStore(t *testing.T) {
//	    vfctest.StoreTestSuite(t, func(t *testing.T) vfc.Store {
//	        s, err := file.Open(afero.NewMemMapFs(), "c.vfc", vfc.ReadWrite)
//	        ...
//	    })
//	}
func StoreTestSuite(t *testing.T, newStore func(t *testing.T) vfc.Store) { //nolint:gocyclo
	t.Helper()

	t.Run("Write_Read_Position", func(t *testing.T) {
		s := newStore(t)
		if size := s.Size(); size != 0 {
			t.Fatalf("Size of new store = %d, want 0", size)
		}

		writeAll(t, s, []byte("hello world"))
		pos, err := s.Position()
		if err != nil {
			t.Fatalf("Position: %v", err)
		}
		if pos != 11 {
			t.Errorf("Position after write = %d, want 11", pos)
		}
		if size := s.Size(); size != 11 {
			t.Errorf("Size after write = %d, want 11", size)
		}

		if err := s.SetPosition(6); err != nil {
			t.Fatalf("SetPosition(6): %v", err)
		}
		got := readN(t, s, 5)
		if string(got) != "world" {
			t.Errorf("read after seek = %q, want %q", got, "world")
		}
	})

	t.Run("Overwrite_In_Place", func(t *testing.T) {
		s := newStore(t)
		writeAll(t, s, []byte("hello world"))
		if err := s.SetPosition(0); err != nil {
			t.Fatalf("SetPosition(0): %v", err)
		}
		writeAll(t, s, []byte("HELLO"))
		if size := s.Size(); size != 11 {
			t.Errorf("Size after overwrite = %d, want 11", size)
		}
		if err := s.SetPosition(0); err != nil {
			t.Fatalf("SetPosition(0): %v", err)
		}
		if got := readN(t, s, 11); string(got) != "HELLO world" {
			t.Errorf("content = %q, want %q", got, "HELLO world")
		}
	})

	t.Run("Seek_Bounds", func(t *testing.T) {
		s := newStore(t)
		writeAll(t, s, make([]byte, 100))

		for _, off := range []int64{0, 1, 50, 99, 100} {
			if err := s.SetPosition(off); err != nil {
				t.Errorf("SetPosition(%d): %v", off, err)
			}
		}

		err := s.SetPosition(101)
		if !errors.Is(err, vfc.ErrSeekOutOfRange) {
			t.Fatalf("SetPosition(101) = %v, want ErrSeekOutOfRange", err)
		}
		var seekErr *vfc.SeekError
		if !errors.As(err, &seekErr) {
			t.Fatalf("SetPosition(101) error %T is not a *vfc.SeekError", err)
		}
		if seekErr.Offset != 101 || seekErr.Size != 100 {
			t.Errorf("SeekError = {%d, %d}, want {101, 100}", seekErr.Offset, seekErr.Size)
		}

		if err := s.SetPositionLast(); err != nil {
			t.Fatalf("SetPositionLast: %v", err)
		}
		if pos, _ := s.Position(); pos != 100 {
			t.Errorf("Position after SetPositionLast = %d, want 100", pos)
		}
	})

	t.Run("Truncate", func(t *testing.T) {
		s := newStore(t)
		writeAll(t, s, []byte("0123456789"))
		if err := s.SetPosition(4); err != nil {
			t.Fatalf("SetPosition(4): %v", err)
		}
		if err := s.Truncate(); err != nil {
			t.Fatalf("Truncate: %v", err)
		}
		want := int64(10)
		if s.SupportsTruncation() {
			want = 4
		}
		if size := s.Size(); size != want {
			t.Errorf("Size after Truncate = %d, want %d", size, want)
		}
	})

	t.Run("Flush", func(t *testing.T) {
		s := newStore(t)
		writeAll(t, s, []byte("flush me"))
		if err := s.Flush(); err != nil {
			t.Fatalf("Flush: %v", err)
		}
	})
}

// DetachedStoreSuite checks that every primitive of a store without a
// device fails with vfc.ErrNotOpen.
func DetachedStoreSuite(t *testing.T, s vfc.Store) {
	t.Helper()

	if size := s.Size(); size >= 0 {
		t.Errorf("Size = %d, want negative", size)
	}
	if err := s.SetPosition(0); !errors.Is(err, vfc.ErrNotOpen) {
		t.Errorf("SetPosition = %v, want ErrNotOpen", err)
	}
	if err := s.SetPositionLast(); !errors.Is(err, vfc.ErrNotOpen) {
		t.Errorf("SetPositionLast = %v, want ErrNotOpen", err)
	}
	if _, err := s.Position(); !errors.Is(err, vfc.ErrNotOpen) {
		t.Errorf("Position = %v, want ErrNotOpen", err)
	}
	if n, err := s.Read(make([]byte, 4)); n != 0 || !errors.Is(err, vfc.ErrNotOpen) {
		t.Errorf("Read = (%d, %v), want (0, ErrNotOpen)", n, err)
	}
	if n, err := s.Write([]byte("data")); n != 0 || !errors.Is(err, vfc.ErrNotOpen) {
		t.Errorf("Write = (%d, %v), want (0, ErrNotOpen)", n, err)
	}
}

func writeAll(t *testing.T, s vfc.Store, p []byte) {
	t.Helper()
	for len(p) > 0 {
		n, err := s.Write(p)
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		if n == 0 {
			t.Fatalf("Write: %v", io.ErrShortWrite)
		}
		p = p[n:]
	}
}

func readN(t *testing.T, s vfc.Store, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	p := buf
	for len(p) > 0 {
		m, err := s.Read(p)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if m == 0 {
			t.Fatalf("Read: %v", io.ErrUnexpectedEOF)
		}
		p = p[m:]
	}
	return buf
}
