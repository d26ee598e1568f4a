package vfctest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"testing"

	"github.com/nuln/vfc"
	"github.com/nuln/vfc/container"
)

// OpenFunc opens a container over one backing store. Every call must return
// an open container on the same store, so that data written before a Close
// is visible after the next call.
type OpenFunc func(t *testing.T) container.Interface

// Pattern returns n bytes of the repeating i % 254 test pattern.
func Pattern(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i % 254)
	}
	return buf
}

// ContainerTestSuite runs the container conformance checks. newStore must
// return an OpenFunc over a fresh, empty backing store on each call:
//
//	func TestDeviceContainer(t *testing.T) {
//	    vfctest.ContainerTestSuite(t, func(t *testing.T) vfctest.OpenFunc {
//	        dev := newDevice(t)
//	        return func(t *testing.T) container.Interface { ... }
//	    })
//	}
func ContainerTestSuite(t *testing.T, newStore func(t *testing.T) OpenFunc) { //nolint:gocyclo
	t.Helper()

	t.Run("RoundTrip", func(t *testing.T) {
		open := newStore(t)
		want := Pattern(1024)

		c := open(t)
		f, err := c.CreateStream("a.dat")
		if err != nil {
			t.Fatalf("CreateStream: %v", err)
		}
		writeStream(t, f, want)
		if err := c.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		c = open(t)
		dir, err := c.Directory()
		if err != nil {
			t.Fatalf("Directory: %v", err)
		}
		if names := dir.Names(); len(names) != 1 || names[0] != "a.dat" {
			t.Fatalf("Directory names = %v, want [a.dat]", names)
		}
		got := readStream(t, dir["a.dat"])
		if !bytes.Equal(got, want) {
			t.Errorf("a.dat content differs after reopen (got %d bytes, want %d)", len(got), len(want))
		}
		if err := c.Close(); err != nil {
			t.Fatalf("Close reader: %v", err)
		}
	})

	t.Run("Directory_Completeness", func(t *testing.T) {
		open := newStore(t)
		contents := map[string][]byte{
			"empty":          nil,
			"small.txt":      []byte("small"),
			"nested/name":    Pattern(4096),
			"Case.Sensitive": []byte("upper"),
			"case.sensitive": []byte("lower"),
		}

		c := open(t)
		for name, data := range contents {
			f, err := c.CreateStream(name)
			if err != nil {
				t.Fatalf("CreateStream(%q): %v", name, err)
			}
			writeStream(t, f, data)
		}
		if err := c.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		c = open(t)
		dir, err := c.Directory()
		if err != nil {
			t.Fatalf("Directory: %v", err)
		}
		want := make([]string, 0, len(contents))
		for name := range contents {
			want = append(want, name)
		}
		sort.Strings(want)
		if got := dir.Names(); fmt.Sprint(got) != fmt.Sprint(want) {
			t.Fatalf("Directory names = %v, want %v", got, want)
		}
		for name, data := range contents {
			if got := readStream(t, dir[name]); !bytes.Equal(got, data) {
				t.Errorf("%s content = %q, want %q", name, truncate(got), truncate(data))
			}
		}
		_ = c.Close()
	})

	t.Run("Identity_Stability", func(t *testing.T) {
		open := newStore(t)
		c := open(t)
		created, err := c.CreateStream("one")
		if err != nil {
			t.Fatalf("CreateStream: %v", err)
		}
		if _, err := c.CreateStream("two"); err != nil {
			t.Fatalf("CreateStream: %v", err)
		}

		first, err := c.Directory()
		if err != nil {
			t.Fatalf("Directory: %v", err)
		}
		second, err := c.Directory()
		if err != nil {
			t.Fatalf("Directory: %v", err)
		}
		if first["one"] != created {
			t.Error("Directory returned a different handle than CreateStream")
		}
		for name, f := range first {
			if second[name] != f {
				t.Errorf("handle for %q changed between directory queries", name)
			}
		}
		_ = c.Close()

		c = open(t)
		a, _ := c.Directory()
		b, _ := c.Directory()
		if a["one"] == nil || a["one"] != b["one"] {
			t.Error("handles discovered after reopen are not stable")
		}
		_ = c.Close()
	})

	t.Run("Erase", func(t *testing.T) {
		open := newStore(t)
		c := open(t)
		doomed, err := c.CreateStream("doomed")
		if err != nil {
			t.Fatalf("CreateStream: %v", err)
		}
		writeStream(t, doomed, []byte("bye"))
		keep, err := c.CreateStream("keep")
		if err != nil {
			t.Fatalf("CreateStream: %v", err)
		}
		writeStream(t, keep, []byte("stay"))

		if err := doomed.Erase(); err != nil {
			t.Fatalf("Erase: %v", err)
		}
		if doomed.Valid() {
			t.Error("erased handle still reports Valid")
		}
		if _, err := doomed.Write([]byte("x")); !errors.Is(err, vfc.ErrStaleHandle) {
			t.Errorf("Write on erased handle = %v, want ErrStaleHandle", err)
		}
		if _, err := doomed.Read(make([]byte, 1)); !errors.Is(err, vfc.ErrStaleHandle) {
			t.Errorf("Read on erased handle = %v, want ErrStaleHandle", err)
		}

		dir, err := c.Directory()
		if err != nil {
			t.Fatalf("Directory: %v", err)
		}
		if _, ok := dir["doomed"]; ok {
			t.Error("erased stream still in directory")
		}
		if dir["keep"] != keep {
			t.Error("surviving handle changed identity after erase")
		}
		if err := c.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		c = open(t)
		dir, _ = c.Directory()
		if names := dir.Names(); len(names) != 1 || names[0] != "keep" {
			t.Errorf("Directory after reopen = %v, want [keep]", names)
		}
		if got := readStream(t, dir["keep"]); string(got) != "stay" {
			t.Errorf("keep content = %q, want %q", got, "stay")
		}
		_ = c.Close()
	})

	t.Run("Seek_Bounds", func(t *testing.T) {
		open := newStore(t)
		c := open(t)
		f, err := c.CreateStream("seek")
		if err != nil {
			t.Fatalf("CreateStream: %v", err)
		}
		writeStream(t, f, []byte("0123456789"))

		for _, off := range []int64{0, 5, 10} {
			if pos, err := f.Seek(off, io.SeekStart); err != nil || pos != off {
				t.Errorf("Seek(%d) = (%d, %v)", off, pos, err)
			}
		}
		if !f.AtEnd() || f.BytesAvailable() != 0 {
			t.Errorf("at offset 10: AtEnd=%v BytesAvailable=%d", f.AtEnd(), f.BytesAvailable())
		}
		if _, err := f.Seek(11, io.SeekStart); !errors.Is(err, vfc.ErrSeekOutOfRange) {
			t.Errorf("Seek(11) = %v, want ErrSeekOutOfRange", err)
		}
		if f.ErrorString() == "" {
			t.Error("ErrorString empty after failed seek")
		}
		if f.Pos() != 10 {
			t.Errorf("Pos after failed seek = %d, want 10", f.Pos())
		}
		if _, err := f.Seek(-1, io.SeekStart); err == nil {
			t.Error("Seek(-1): expected error")
		}
		if pos, err := f.Seek(-4, io.SeekEnd); err != nil || pos != 6 {
			t.Errorf("Seek(-4, SeekEnd) = (%d, %v), want (6, nil)", pos, err)
		}
		if f.BytesAvailable() != 4 {
			t.Errorf("BytesAvailable = %d, want 4", f.BytesAvailable())
		}
		if f.ErrorString() != "" {
			t.Errorf("ErrorString after successful seek = %q, want empty", f.ErrorString())
		}
		_ = c.Close()
	})

	t.Run("Overwrite_And_Extend", func(t *testing.T) {
		open := newStore(t)
		c := open(t)
		f, err := c.CreateStream("doc")
		if err != nil {
			t.Fatalf("CreateStream: %v", err)
		}
		writeStream(t, f, []byte("hello world"))
		if err := c.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		c = open(t)
		dir, _ := c.Directory()
		f = dir["doc"]
		if _, err := f.Seek(6, io.SeekStart); err != nil {
			t.Fatalf("Seek: %v", err)
		}
		writeStream(t, f, []byte("there, friend"))
		if err := c.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		c = open(t)
		dir, _ = c.Directory()
		if got := readStream(t, dir["doc"]); string(got) != "hello there, friend" {
			t.Errorf("content = %q, want %q", got, "hello there, friend")
		}
		_ = c.Close()
	})

	t.Run("Names", func(t *testing.T) {
		open := newStore(t)
		c := open(t)
		if _, err := c.CreateStream("dup"); err != nil {
			t.Fatalf("CreateStream: %v", err)
		}
		if f, err := c.CreateStream("dup"); !errors.Is(err, vfc.ErrExist) || f != nil {
			t.Errorf("duplicate CreateStream = (%v, %v), want (nil, ErrExist)", f, err)
		}
		if c.ErrorString() == "" {
			t.Error("ErrorString empty after failed CreateStream")
		}
		if _, err := c.CreateStream(""); !errors.Is(err, vfc.ErrInvalidName) {
			t.Errorf("CreateStream(\"\") = %v, want ErrInvalidName", err)
		}
		_ = c.Close()
	})

	t.Run("Closed_Guards", func(t *testing.T) {
		open := newStore(t)
		c := open(t)
		f, err := c.CreateStream("s")
		if err != nil {
			t.Fatalf("CreateStream: %v", err)
		}
		writeStream(t, f, []byte("data"))
		if err := c.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		if c.IsOpen() {
			t.Error("IsOpen after Close")
		}
		if f.Valid() {
			t.Error("handle still valid after container Close")
		}
		if _, err := f.Read(make([]byte, 4)); !errors.Is(err, vfc.ErrStaleHandle) {
			t.Errorf("Read after Close = %v, want ErrStaleHandle", err)
		}
		if _, err := c.Directory(); !errors.Is(err, vfc.ErrNotOpen) {
			t.Errorf("Directory after Close = %v, want ErrNotOpen", err)
		}
		if _, err := c.CreateStream("t"); !errors.Is(err, vfc.ErrNotOpen) {
			t.Errorf("CreateStream after Close = %v, want ErrNotOpen", err)
		}
		if err := c.Close(); !errors.Is(err, vfc.ErrNotOpen) {
			t.Errorf("second Close = %v, want ErrNotOpen", err)
		}
	})

	t.Run("Shared_Stream", func(t *testing.T) {
		open := newStore(t)
		c := open(t)
		a, err := c.CreateStream("a")
		if err != nil {
			t.Fatalf("CreateStream: %v", err)
		}
		b, err := c.CreateStream("b")
		if err != nil {
			t.Fatalf("CreateStream: %v", err)
		}

		b.Assign(a)
		if b.Name() != "a" || b.Stream() != a.Stream() {
			t.Fatalf("Assign: b bound to %q", b.Name())
		}
		writeStream(t, a, []byte("shared"))
		if b.Size() != 6 || b.Pos() != 6 {
			t.Errorf("b sees size=%d pos=%d, want 6/6", b.Size(), b.Pos())
		}
		if _, err := b.Seek(0, io.SeekStart); err != nil {
			t.Fatalf("Seek: %v", err)
		}
		if a.Pos() != 0 {
			t.Errorf("a.Pos after seeking b = %d, want 0", a.Pos())
		}

		// The rebound handle keeps its directory slot.
		dir, err := c.Directory()
		if err != nil {
			t.Fatalf("Directory: %v", err)
		}
		if dir["b"] != b || dir["b"].Name() != "a" {
			t.Errorf("dir[b] = %p named %q, want the rebound handle %p named \"a\"", dir["b"], dir["b"].Name(), b)
		}
		_ = c.Close()
	})

	t.Run("Rebind_Retired", func(t *testing.T) {
		open := newStore(t)
		c := open(t)
		a, err := c.CreateStream("a")
		if err != nil {
			t.Fatalf("CreateStream: %v", err)
		}
		b, err := c.CreateStream("b")
		if err != nil {
			t.Fatalf("CreateStream: %v", err)
		}
		if err := b.Erase(); err != nil {
			t.Fatalf("Erase: %v", err)
		}
		if _, err := c.Directory(); err != nil {
			t.Fatalf("Directory: %v", err)
		}
		if b.Valid() {
			t.Fatal("erased handle still valid after directory query")
		}

		b.Assign(a)
		if !b.Valid() {
			t.Fatalf("rebound handle invalid: %s", b.ErrorString())
		}
		if _, err := b.Write([]byte("x")); err != nil {
			t.Fatalf("Write through rebound handle: %v", err)
		}
		if a.Size() != 1 {
			t.Errorf("a.Size = %d, want 1", a.Size())
		}

		// Rebinding to a stale handle leaves the target stale too.
		doomed, err := c.CreateStream("doomed")
		if err != nil {
			t.Fatalf("CreateStream: %v", err)
		}
		if err := doomed.Erase(); err != nil {
			t.Fatalf("Erase: %v", err)
		}
		a.Assign(doomed)
		if a.Valid() {
			t.Error("handle rebound to an erased stream reports Valid")
		}
		if _, err := a.Write([]byte("y")); !errors.Is(err, vfc.ErrStaleHandle) {
			t.Errorf("Write after rebinding to erased stream = %v, want ErrStaleHandle", err)
		}
		if !b.Valid() {
			t.Error("rebinding a must not affect b")
		}
		_ = c.Close()
	})

	t.Run("Zero_Length_IO", func(t *testing.T) {
		open := newStore(t)
		c := open(t)
		f, err := c.CreateStream("z")
		if err != nil {
			t.Fatalf("CreateStream: %v", err)
		}
		if n, err := f.Write(nil); n != 0 || err != nil {
			t.Errorf("Write(nil) = (%d, %v), want (0, nil)", n, err)
		}
		if n, err := f.Read(nil); n != 0 || err != nil {
			t.Errorf("Read(nil) = (%d, %v), want (0, nil)", n, err)
		}
		if n, err := f.Read(make([]byte, 8)); n != 0 || err != io.EOF {
			t.Errorf("Read at end = (%d, %v), want (0, EOF)", n, err)
		}
		_ = c.Close()
	})

	t.Run("Large_Stream", func(t *testing.T) {
		open := newStore(t)
		want := Pattern(300 * 1024)

		c := open(t)
		f, err := c.CreateStream("large")
		if err != nil {
			t.Fatalf("CreateStream: %v", err)
		}
		for p := want; len(p) > 0; {
			n := min(len(p), 1000)
			writeStream(t, f, p[:n])
			p = p[n:]
		}
		if f.BytesToWrite() == 0 {
			t.Error("BytesToWrite = 0 with small writes pending")
		}
		if err := f.Flush(); err != nil {
			t.Fatalf("Flush: %v", err)
		}
		if f.BytesToWrite() != 0 {
			t.Errorf("BytesToWrite after Flush = %d, want 0", f.BytesToWrite())
		}
		if err := c.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}

		c = open(t)
		dir, _ := c.Directory()
		if got := readStream(t, dir["large"]); !bytes.Equal(got, want) {
			t.Errorf("large content differs after reopen (got %d bytes)", len(got))
		}
		_ = c.Close()
	})
}

func writeStream(t *testing.T, f *container.VirtualFile, p []byte) {
	t.Helper()
	for len(p) > 0 {
		n, err := f.Write(p)
		if err != nil {
			t.Fatalf("Write %s: %v", f.Name(), err)
		}
		p = p[n:]
	}
}

func readStream(t *testing.T, f *container.VirtualFile) []byte {
	t.Helper()
	if f == nil {
		t.Fatal("readStream: nil handle")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek %s: %v", f.Name(), err)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll %s: %v", f.Name(), err)
	}
	return data
}

func truncate(p []byte) string {
	if len(p) > 32 {
		return fmt.Sprintf("%q... (%d bytes)", p[:32], len(p))
	}
	return string(p)
}
