package engine

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/nuln/vfc"
	"github.com/nuln/vfc/internal/codec"
)

const (
	// HeaderSize is the fixed size of the container header at offset 0.
	HeaderSize = 512

	// MaxIdentifierLen is the longest identifier the header can hold.
	MaxIdentifierLen = HeaderSize - identifierOffset

	// MaxNameLen is the longest accepted stream name, in bytes.
	MaxNameLen = 4096

	formatVersion    = 1
	identifierOffset = 64
)

var signature = [8]byte{'V', 'F', 'C', 'S', 'T', 'O', 'R', 'E'}

// header layout, all integers big endian:
//
//	0   signature      [8]byte
//	8   version        uint32
//	12  identifier len uint32
//	16  directory off  uint64
//	24  directory len  uint64
//	32  directory hash [32]byte (BLAKE3-256)
//	64  identifier     [448]byte, zero padded
type header struct {
	version    uint32
	identifier string
	dirOffset  int64
	dirLength  int64
	digest     [32]byte
}

func (h *header) marshal() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:8], signature[:])
	binary.BigEndian.PutUint32(buf[8:12], h.version)
	binary.BigEndian.PutUint32(buf[12:16], uint32(len(h.identifier)))
	binary.BigEndian.PutUint64(buf[16:24], uint64(h.dirOffset))
	binary.BigEndian.PutUint64(buf[24:32], uint64(h.dirLength))
	copy(buf[32:64], h.digest[:])
	copy(buf[identifierOffset:], h.identifier)
	return buf
}

// parseHeader decodes a header. A foreign signature is reported as
// ErrHeaderMismatch; a truncated or inconsistent header as ErrCorrupt.
func parseHeader(buf []byte) (*header, error) {
	if len(buf) < len(signature) || !bytes.Equal(buf[:len(signature)], signature[:]) {
		return nil, fmt.Errorf("%w: missing container signature", vfc.ErrHeaderMismatch)
	}
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: header is %d bytes, want %d", vfc.ErrCorrupt, len(buf), HeaderSize)
	}

	h := &header{
		version:   binary.BigEndian.Uint32(buf[8:12]),
		dirOffset: int64(binary.BigEndian.Uint64(buf[16:24])),
		dirLength: int64(binary.BigEndian.Uint64(buf[24:32])),
	}
	if h.version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", vfc.ErrCorrupt, h.version)
	}
	idLen := binary.BigEndian.Uint32(buf[12:16])
	if idLen > MaxIdentifierLen {
		return nil, fmt.Errorf("%w: identifier length %d exceeds %d", vfc.ErrCorrupt, idLen, MaxIdentifierLen)
	}
	h.identifier = string(buf[identifierOffset : identifierOffset+int(idLen)])
	copy(h.digest[:], buf[32:64])
	if h.dirOffset < HeaderSize || h.dirLength < 0 {
		return nil, fmt.Errorf("%w: directory at %d+%d overlaps header", vfc.ErrCorrupt, h.dirOffset, h.dirLength)
	}
	return h, nil
}

// Extent is a run of stream bytes stored contiguously in the container.
type Extent struct {
	Offset int64 `cbor:"off"`
	Length int64 `cbor:"len"`
}

// End returns the first store offset past the extent.
func (x Extent) End() int64 {
	return x.Offset + x.Length
}

type streamRecord struct {
	Size    int64    `cbor:"size"`
	Extents []Extent `cbor:"extents"`
}

type directoryRecord struct {
	Streams map[string]streamRecord `cbor:"streams"`
}

func encodeDirectory(streams map[string]*Stream) ([]byte, [32]byte, error) {
	rec := directoryRecord{Streams: make(map[string]streamRecord, len(streams))}
	for name, s := range streams {
		rec.Streams[name] = streamRecord{Size: s.size, Extents: s.extents}
	}
	data, err := codec.Marshal(rec)
	if err != nil {
		return nil, [32]byte{}, fmt.Errorf("engine: encoding directory: %w", err)
	}
	return data, blake3.Sum256(data), nil
}

// decodeDirectory verifies data against digest and checks every extent lies
// between the header and limit.
func decodeDirectory(data []byte, digest [32]byte, limit int64) (map[string]streamRecord, error) {
	if blake3.Sum256(data) != digest {
		return nil, fmt.Errorf("%w: directory checksum mismatch", vfc.ErrCorrupt)
	}
	var rec directoryRecord
	if err := codec.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: decoding directory: %v", vfc.ErrCorrupt, err)
	}
	for name, sr := range rec.Streams {
		if err := validateName(name); err != nil {
			return nil, fmt.Errorf("%w: %v", vfc.ErrCorrupt, err)
		}
		if sr.Size < 0 {
			return nil, fmt.Errorf("%w: stream %q has negative size %d", vfc.ErrCorrupt, name, sr.Size)
		}
		var total int64
		for _, x := range sr.Extents {
			if x.Offset < HeaderSize || x.Offset > limit || x.Length <= 0 || x.Length > limit-x.Offset {
				return nil, fmt.Errorf("%w: stream %q extent %d+%d out of bounds", vfc.ErrCorrupt, name, x.Offset, x.Length)
			}
			if x.Length > sr.Size-total {
				return nil, fmt.Errorf("%w: stream %q extents exceed its size %d", vfc.ErrCorrupt, name, sr.Size)
			}
			total += x.Length
		}
		if total != sr.Size {
			return nil, fmt.Errorf("%w: stream %q size %d does not match extents (%d)", vfc.ErrCorrupt, name, sr.Size, total)
		}
	}
	return rec.Streams, nil
}

func validateName(name string) error {
	if name == "" || len(name) > MaxNameLen || bytes.IndexByte([]byte(name), 0) >= 0 {
		return fmt.Errorf("engine: stream name %q: %w", name, vfc.ErrInvalidName)
	}
	return nil
}
