package object

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fixtureObj struct {
	objType ObjectType
	data    []byte
}

// writePackFixture builds a pack archive plus its idx inside dir and
// returns the pack path with the entries that went into it.
func writePackFixture(t *testing.T, dir string, objs []fixtureObj) (string, []PackIndexEntry) {
	t.Helper()

	var buf bytes.Buffer
	pw, err := NewPackWriter(&buf, uint32(len(objs)))
	if err != nil {
		t.Fatalf("NewPackWriter: %v", err)
	}

	var entries []PackIndexEntry
	for _, o := range objs {
		offset := pw.CurrentOffset()
		if err := pw.WriteEntry(packTypeOf(o.objType), o.data); err != nil {
			t.Fatalf("WriteEntry: %v", err)
		}
		entries = append(entries, PackIndexEntry{
			Hash:   HashObject(o.objType, o.data),
			Offset: offset,
		})
	}
	checksum, err := pw.Finish()
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	packPath := filepath.Join(dir, "pack-fixture.pack")
	if err := os.WriteFile(packPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	var idxBuf bytes.Buffer
	if _, err := WritePackIndex(&idxBuf, entries, checksum); err != nil {
		t.Fatalf("WritePackIndex: %v", err)
	}
	idxPath := strings.TrimSuffix(packPath, ".pack") + ".idx"
	if err := os.WriteFile(idxPath, idxBuf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return packPath, entries
}

func TestPackReaderRoundTrip(t *testing.T) {
	objs := []fixtureObj{
		{TypeBlob, []byte("first blob")},
		{TypeCommit, []byte("tree " + strings.Repeat("0", 40) + "\nauthor A <a@x> 1 +0000\ncommitter A <a@x> 1 +0000\n\nmsg")},
		{TypeBlob, bytes.Repeat([]byte("bulk"), 300)},
	}
	packPath, entries := writePackFixture(t, t.TempDir(), objs)

	pr, err := OpenPackReader(packPath)
	if err != nil {
		t.Fatalf("OpenPackReader: %v", err)
	}
	if got := len(pr.Entries()); got != len(objs) {
		t.Fatalf("Entries: got %d, want %d", got, len(objs))
	}

	for i, entry := range entries {
		objType, data, err := pr.ObjectAt(entry.Offset)
		if err != nil {
			t.Fatalf("ObjectAt(%d): %v", entry.Offset, err)
		}
		if objType != objs[i].objType {
			t.Errorf("object %d: type %q, want %q", i, objType, objs[i].objType)
		}
		if !bytes.Equal(data, objs[i].data) {
			t.Errorf("object %d: payload differs", i)
		}
	}
}

func TestPackReaderFindPrefix(t *testing.T) {
	packPath, entries := writePackFixture(t, t.TempDir(), []fixtureObj{
		{TypeBlob, []byte("alpha")},
		{TypeBlob, []byte("beta")},
	})

	pr, err := OpenPackReader(packPath)
	if err != nil {
		t.Fatalf("OpenPackReader: %v", err)
	}
	for _, entry := range entries {
		hits := pr.Find(string(entry.Hash[:8]))
		if len(hits) != 1 || hits[0].Hash != entry.Hash || hits[0].Value != entry.Offset {
			t.Errorf("Find(%s): got %v", entry.Hash[:8], hits)
		}
	}
}

func TestPackReaderOfsDelta(t *testing.T) {
	base := []byte("the base object for delta encoding")
	target := []byte("the target reconstructed from the base")

	var buf bytes.Buffer
	pw, err := NewPackWriter(&buf, 2)
	if err != nil {
		t.Fatal(err)
	}
	baseOffset := pw.CurrentOffset()
	if err := pw.WriteEntry(PackBlob, base); err != nil {
		t.Fatal(err)
	}
	deltaOffset := pw.CurrentOffset()
	if err := pw.WriteOfsDelta(baseOffset, base, target); err != nil {
		t.Fatal(err)
	}
	checksum, err := pw.Finish()
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	packPath := filepath.Join(dir, "pack-delta.pack")
	if err := os.WriteFile(packPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	entries := []PackIndexEntry{
		{Hash: HashObject(TypeBlob, base), Offset: baseOffset},
		{Hash: HashObject(TypeBlob, target), Offset: deltaOffset},
	}
	var idxBuf bytes.Buffer
	if _, err := WritePackIndex(&idxBuf, entries, checksum); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pack-delta.idx"), idxBuf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	pr, err := OpenPackReader(packPath)
	if err != nil {
		t.Fatalf("OpenPackReader: %v", err)
	}
	objType, data, err := pr.ObjectAt(deltaOffset)
	if err != nil {
		t.Fatalf("ObjectAt(delta): %v", err)
	}
	if objType != TypeBlob {
		t.Errorf("delta type: got %q", objType)
	}
	if !bytes.Equal(data, target) {
		t.Errorf("delta payload: got %q, want %q", data, target)
	}
}

func TestPackReaderRefDelta(t *testing.T) {
	base := []byte("ref delta base")
	target := []byte("ref delta target content")
	baseHash := HashObject(TypeBlob, base)

	var buf bytes.Buffer
	pw, err := NewPackWriter(&buf, 2)
	if err != nil {
		t.Fatal(err)
	}
	baseOffset := pw.CurrentOffset()
	if err := pw.WriteEntry(PackBlob, base); err != nil {
		t.Fatal(err)
	}
	deltaOffset := pw.CurrentOffset()
	if err := pw.WriteRefDelta(baseHash, base, target); err != nil {
		t.Fatal(err)
	}
	checksum, err := pw.Finish()
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	packPath := filepath.Join(dir, "pack-refdelta.pack")
	if err := os.WriteFile(packPath, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	entries := []PackIndexEntry{
		{Hash: baseHash, Offset: baseOffset},
		{Hash: HashObject(TypeBlob, target), Offset: deltaOffset},
	}
	var idxBuf bytes.Buffer
	if _, err := WritePackIndex(&idxBuf, entries, checksum); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pack-refdelta.idx"), idxBuf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	pr, err := OpenPackReader(packPath)
	if err != nil {
		t.Fatalf("OpenPackReader: %v", err)
	}
	_, data, err := pr.ObjectAt(deltaOffset)
	if err != nil {
		t.Fatalf("ObjectAt(ref delta): %v", err)
	}
	if !bytes.Equal(data, target) {
		t.Errorf("ref delta payload: got %q", data)
	}
}

func TestPackReaderBadOffsetIsCorrupt(t *testing.T) {
	packPath, _ := writePackFixture(t, t.TempDir(), []fixtureObj{{TypeBlob, []byte("x")}})
	pr, err := OpenPackReader(packPath)
	if err != nil {
		t.Fatalf("OpenPackReader: %v", err)
	}

	for _, offset := range []uint64{0, 1 << 40} {
		if _, _, err := pr.ObjectAt(offset); !errors.Is(err, ErrCorrupt) {
			t.Errorf("ObjectAt(%d): got %v, want ErrCorrupt", offset, err)
		}
	}
}

func TestPackReaderDamagedArchive(t *testing.T) {
	packPath, _ := writePackFixture(t, t.TempDir(), []fixtureObj{{TypeBlob, []byte("payload")}})

	raw, err := os.ReadFile(packPath)
	if err != nil {
		t.Fatal(err)
	}
	raw[packHeaderSize+2] ^= 0xff
	if err := os.WriteFile(packPath, raw, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := OpenPackReader(packPath); !errors.Is(err, ErrCorrupt) {
		t.Errorf("damaged pack: got %v, want ErrCorrupt", err)
	}
}

func TestStoreResolvesPackedObjects(t *testing.T) {
	root := t.TempDir()
	packDir := filepath.Join(root, "objects", "pack")
	if err := os.MkdirAll(packDir, 0o755); err != nil {
		t.Fatal(err)
	}
	objs := []fixtureObj{
		{TypeBlob, []byte("packed blob")},
		{TypeBlob, []byte("other packed blob")},
	}
	_, entries := writePackFixture(t, packDir, objs)

	s, err := OpenStore(root)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}

	obj, err := s.Get(string(entries[0].Hash))
	if err != nil {
		t.Fatalf("Get full digest from pack: %v", err)
	}
	if !bytes.Equal(obj.Data, objs[0].data) {
		t.Errorf("payload: got %q", obj.Data)
	}

	obj, err = s.Get(string(entries[1].Hash[:10]))
	if err != nil {
		t.Fatalf("Get prefix from pack: %v", err)
	}
	if !bytes.Equal(obj.Data, objs[1].data) {
		t.Errorf("prefix payload: got %q", obj.Data)
	}
}
