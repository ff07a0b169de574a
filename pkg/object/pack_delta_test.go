package object

import (
	"bytes"
	"testing"
)

func TestDeltaVarintRoundTrip(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 20, 1<<63 - 1} {
		encoded := encodeDeltaVarint(v)
		decoded, err := decodeDeltaVarint(bytes.NewReader(encoded))
		if err != nil {
			t.Fatalf("decode %d: %v", v, err)
		}
		if decoded != v {
			t.Errorf("varint %d round-tripped to %d", v, decoded)
		}
	}
}

func TestOfsDeltaDistanceRoundTrip(t *testing.T) {
	for _, v := range []uint64{1, 127, 128, 16511, 16512, 1 << 30} {
		encoded := encodeOfsDeltaDistance(v)
		decoded, n, err := decodeOfsDeltaDistance(encoded)
		if err != nil {
			t.Fatalf("decode %d: %v", v, err)
		}
		if decoded != v || n != len(encoded) {
			t.Errorf("distance %d: got %d (consumed %d of %d)", v, decoded, n, len(encoded))
		}
	}
}

func TestApplyInsertOnlyDelta(t *testing.T) {
	base := []byte("base object content")
	target := bytes.Repeat([]byte("target bytes "), 40)

	delta := buildInsertOnlyDelta(base, target)
	got, err := applyDelta(base, delta)
	if err != nil {
		t.Fatalf("applyDelta: %v", err)
	}
	if !bytes.Equal(got, target) {
		t.Error("reconstructed target differs")
	}
}

func TestApplyDeltaCopyCommand(t *testing.T) {
	base := []byte("0123456789abcdef")

	// Copy 8 bytes from offset 4, then insert "XY".
	var delta bytes.Buffer
	delta.Write(encodeDeltaVarint(uint64(len(base))))
	delta.Write(encodeDeltaVarint(10))
	delta.WriteByte(0x80 | 0x01 | 0x10) // copy with 1 offset byte, 1 size byte
	delta.WriteByte(4)
	delta.WriteByte(8)
	delta.WriteByte(2) // insert 2 literal bytes
	delta.WriteString("XY")

	got, err := applyDelta(base, delta.Bytes())
	if err != nil {
		t.Fatalf("applyDelta: %v", err)
	}
	if string(got) != "456789abXY" {
		t.Errorf("got %q, want %q", got, "456789abXY")
	}
}

func TestApplyDeltaBaseSizeMismatch(t *testing.T) {
	delta := buildInsertOnlyDelta([]byte("expected base"), []byte("t"))
	if _, err := applyDelta([]byte("different"), delta); err == nil {
		t.Error("applyDelta should reject a wrong-size base")
	}
}

func TestApplyDeltaCopyOutOfBounds(t *testing.T) {
	base := []byte("short")
	var delta bytes.Buffer
	delta.Write(encodeDeltaVarint(uint64(len(base))))
	delta.Write(encodeDeltaVarint(64))
	delta.WriteByte(0x80 | 0x01 | 0x10)
	delta.WriteByte(3)
	delta.WriteByte(64) // copies past the end of base

	if _, err := applyDelta(base, delta.Bytes()); err == nil {
		t.Error("applyDelta should reject out-of-bounds copies")
	}
}
