package vfc_test

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/nuln/vfc"
)

func TestSeekError(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &vfc.SeekError{Offset: 12, Size: 10})
	if !errors.Is(err, vfc.ErrSeekOutOfRange) {
		t.Errorf("SeekError does not match ErrSeekOutOfRange")
	}
	var se *vfc.SeekError
	if !errors.As(err, &se) || se.Offset != 12 || se.Size != 10 {
		t.Errorf("errors.As = %+v", se)
	}
}

func TestErrorAliases(t *testing.T) {
	if !os.IsNotExist(vfc.ErrNotFound) {
		t.Error("ErrNotFound is not os.IsNotExist")
	}
	if !os.IsExist(vfc.ErrExist) {
		t.Error("ErrExist is not os.IsExist")
	}
}

func TestDescribe(t *testing.T) {
	if got := vfc.Describe(nil); got != "" {
		t.Errorf("Describe(nil) = %q, want empty", got)
	}
	if got := vfc.Describe(vfc.ErrCorrupt); got != vfc.ErrCorrupt.Error() {
		t.Errorf("Describe = %q", got)
	}
}
