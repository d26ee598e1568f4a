package device_test

import (
	"errors"
	"testing"

	"github.com/spf13/afero"

	"github.com/nuln/vfc"
	"github.com/nuln/vfc/store/device"
	"github.com/nuln/vfc/vfctest"
)

func memFile(t *testing.T) afero.File {
	t.Helper()
	f, err := afero.NewMemMapFs().Create("device.img")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestDeviceStore(t *testing.T) {
	vfctest.StoreTestSuite(t, func(t *testing.T) vfc.Store {
		return device.New(memFile(t))
	})
}

// seekOnly hides Stat so the size is found by seeking.
type seekOnly struct{ vfc.Device }

func TestDeviceStoreWithoutStat(t *testing.T) {
	vfctest.StoreTestSuite(t, func(t *testing.T) vfc.Store {
		return device.New(seekOnly{memFile(t)})
	})
}

func TestDetachedDeviceStore(t *testing.T) {
	vfctest.DetachedStoreSuite(t, device.New(nil))
}

func TestAttach(t *testing.T) {
	s := device.New(nil)
	if s.Size() != -1 {
		t.Errorf("Size without device = %d, want -1", s.Size())
	}

	f := memFile(t)
	s.Attach(f)
	if s.Device() != f {
		t.Error("Device() does not return the attached device")
	}
	if _, err := s.Write([]byte("abc")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if s.Size() != 3 {
		t.Errorf("Size = %d, want 3", s.Size())
	}

	s.Attach(nil)
	if _, err := s.Position(); !errors.Is(err, vfc.ErrNotOpen) {
		t.Errorf("Position after detach = %v, want ErrNotOpen", err)
	}
}

func TestSizeKeepsPosition(t *testing.T) {
	s := device.New(seekOnly{memFile(t)})
	if _, err := s.Write([]byte("0123456789")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := s.SetPosition(4); err != nil {
		t.Fatalf("SetPosition: %v", err)
	}
	if s.Size() != 10 {
		t.Errorf("Size = %d, want 10", s.Size())
	}
	pos, err := s.Position()
	if err != nil || pos != 4 {
		t.Errorf("Position after Size = (%d, %v), want (4, nil)", pos, err)
	}
}

func TestRegisteredDriver(t *testing.T) {
	f := memFile(t)
	s, err := vfc.OpenStore(&vfc.Config{
		Type:    "device",
		Options: map[string]any{"device": f},
	})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if s.Size() != 0 {
		t.Errorf("Size = %d, want 0", s.Size())
	}

	if _, err := vfc.OpenStore(&vfc.Config{Type: "device"}); err == nil {
		t.Error("OpenStore without a device succeeded")
	}
}

var errSeek = errors.New("seek failed")

// brokenSeek reports its size through Stat but cannot move.
type brokenSeek struct{ afero.File }

func (brokenSeek) Seek(int64, int) (int64, error) { return 0, errSeek }

func TestSeekFailureIsNotRangeError(t *testing.T) {
	s := device.New(brokenSeek{memFile(t)})
	if s.Size() != 0 {
		t.Fatalf("Size = %d, want 0", s.Size())
	}

	err := s.SetPosition(0)
	if !errors.Is(err, errSeek) {
		t.Errorf("SetPosition = %v, want the device error", err)
	}
	if errors.Is(err, vfc.ErrSeekOutOfRange) {
		t.Errorf("SetPosition device failure reported as out of range: %v", err)
	}

	err = s.SetPositionLast()
	if !errors.Is(err, errSeek) || errors.Is(err, vfc.ErrSeekOutOfRange) {
		t.Errorf("SetPositionLast = %v, want the device error only", err)
	}
}
