package object

import (
	"bytes"
	"testing"
)

func samplePackIndexEntries() []PackIndexEntry {
	return []PackIndexEntry{
		{Hash: HashObject(TypeBlob, []byte("one")), Offset: 12},
		{Hash: HashObject(TypeBlob, []byte("two")), Offset: 60},
		{Hash: HashObject(TypeCommit, []byte("three")), Offset: 111},
	}
}

func TestPackIndexRoundTrip(t *testing.T) {
	entries := samplePackIndexEntries()
	packChecksum := HashBytes([]byte("fake pack payload"))

	var buf bytes.Buffer
	if _, err := WritePackIndex(&buf, entries, packChecksum); err != nil {
		t.Fatalf("WritePackIndex: %v", err)
	}

	idx, err := ReadPackIndex(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadPackIndex: %v", err)
	}
	if idx.PackChecksum != packChecksum {
		t.Errorf("pack checksum: got %s, want %s", idx.PackChecksum, packChecksum)
	}
	if len(idx.Entries()) != len(entries) {
		t.Fatalf("entries: got %d, want %d", len(idx.Entries()), len(entries))
	}

	for _, want := range entries {
		got, ok := idx.Find(want.Hash)
		if !ok {
			t.Errorf("Find(%s): missing", want.Hash)
			continue
		}
		if got.Offset != want.Offset {
			t.Errorf("Find(%s): offset %d, want %d", want.Hash, got.Offset, want.Offset)
		}
	}
	if _, ok := idx.Find(HashObject(TypeBlob, []byte("absent"))); ok {
		t.Error("Find on absent hash succeeded")
	}
}

func TestPackIndexLargeOffsets(t *testing.T) {
	entries := []PackIndexEntry{
		{Hash: HashObject(TypeBlob, []byte("small")), Offset: 100},
		{Hash: HashObject(TypeBlob, []byte("huge")), Offset: 1 << 33},
	}

	var buf bytes.Buffer
	if _, err := WritePackIndex(&buf, entries, HashBytes([]byte("p"))); err != nil {
		t.Fatalf("WritePackIndex: %v", err)
	}
	idx, err := ReadPackIndex(buf.Bytes())
	if err != nil {
		t.Fatalf("ReadPackIndex: %v", err)
	}

	got, ok := idx.Find(entries[1].Hash)
	if !ok || got.Offset != 1<<33 {
		t.Errorf("large offset: got %d, %v", got.Offset, ok)
	}
}

func TestPackIndexChecksumMismatch(t *testing.T) {
	var buf bytes.Buffer
	if _, err := WritePackIndex(&buf, samplePackIndexEntries(), HashBytes([]byte("p"))); err != nil {
		t.Fatalf("WritePackIndex: %v", err)
	}

	data := buf.Bytes()
	data[len(data)/2] ^= 0xff
	if _, err := ReadPackIndex(data); err == nil {
		t.Error("ReadPackIndex accepted a damaged index")
	}
}

func TestPackIndexRejectsBadMagic(t *testing.T) {
	data := make([]byte, packIndexHeaderSize+packIndexFanoutSize+40)
	if _, err := ReadPackIndex(data); err == nil {
		t.Error("ReadPackIndex accepted a zeroed buffer")
	}
}
