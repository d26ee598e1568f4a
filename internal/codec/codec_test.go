package codec

import (
	"bytes"
	"testing"
)

type record struct {
	Streams map[string][]int64 `cbor:"streams"`
}

func TestMarshalDeterministic(t *testing.T) {
	a := record{Streams: map[string][]int64{"b": {2}, "a": {1}, "c": {3, 4}}}
	b := record{Streams: map[string][]int64{"c": {3, 4}, "a": {1}, "b": {2}}}

	encA, err := Marshal(a)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for i := 0; i < 10; i++ {
		encB, err := Marshal(b)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(encA, encB) {
			t.Fatalf("encoding not deterministic:\n%x\n%x", encA, encB)
		}
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	var r record
	if err := Unmarshal([]byte{0xff, 0x00, 0x13}, &r); err == nil {
		t.Fatal("Unmarshal of garbage: expected error, got nil")
	}
}
