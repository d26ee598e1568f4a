package vfc_test

import (
	"os"
	"testing"

	"github.com/nuln/vfc"
)

func TestParseOpenMode(t *testing.T) {
	tests := []struct {
		in   string
		want vfc.OpenMode
	}{
		{"", vfc.ReadWrite},
		{"rw", vfc.ReadWrite},
		{"read-write", vfc.ReadWrite},
		{" RO ", vfc.ReadOnly},
		{"read-only", vfc.ReadOnly},
		{"Overwrite", vfc.Overwrite},
	}
	for _, tt := range tests {
		got, err := vfc.ParseOpenMode(tt.in)
		if err != nil {
			t.Errorf("ParseOpenMode(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOpenMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := vfc.ParseOpenMode("append"); err == nil {
		t.Error("ParseOpenMode(\"append\"): expected error")
	}
}

func TestOpenModeFlags(t *testing.T) {
	if f := vfc.ReadOnly.Flags(); f&(os.O_WRONLY|os.O_RDWR|os.O_CREATE) != 0 {
		t.Errorf("ReadOnly flags %#x allow writing or creation", f)
	}
	if f := vfc.ReadWrite.Flags(); f&os.O_CREATE == 0 || f&os.O_TRUNC != 0 {
		t.Errorf("ReadWrite flags %#x, want create without truncate", f)
	}
	if f := vfc.Overwrite.Flags(); f&os.O_TRUNC == 0 {
		t.Errorf("Overwrite flags %#x, want truncate", f)
	}
	if s := vfc.OpenMode(9).String(); s != "OpenMode(9)" {
		t.Errorf("String() = %q", s)
	}
}
