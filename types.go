package vfc

import (
	"fmt"
	"os"
	"strings"
)

// OpenMode selects how a file-backed container is opened.
type OpenMode int

const (
	// ReadWrite opens an existing container or creates an empty one.
	ReadWrite OpenMode = iota
	// ReadOnly opens an existing container; every write fails.
	ReadOnly
	// Overwrite discards any existing content and starts an empty container.
	Overwrite
)

// Flags returns the os.OpenFile flags for the mode.
func (m OpenMode) Flags() int {
	switch m {
	case ReadOnly:
		return os.O_RDONLY
	case Overwrite:
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC
	default:
		return os.O_RDWR | os.O_CREATE
	}
}

func (m OpenMode) String() string {
	switch m {
	case ReadWrite:
		return "read-write"
	case ReadOnly:
		return "read-only"
	case Overwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("OpenMode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m OpenMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty value selects
// ReadWrite.
func (m *OpenMode) UnmarshalText(text []byte) error {
	mode, err := ParseOpenMode(string(text))
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// ParseOpenMode parses the textual form of an OpenMode.
func ParseOpenMode(s string) (OpenMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "read-write", "rw":
		return ReadWrite, nil
	case "read-only", "ro":
		return ReadOnly, nil
	case "overwrite":
		return Overwrite, nil
	}
	return ReadWrite, fmt.Errorf("vfc: unknown open mode %q", s)
}

// StreamInfo describes one virtual file in a container.
type StreamInfo struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Position int64  `json:"position"`
	Pending  int64  `json:"pending,omitempty"` // Bytes still in the write cache
}
