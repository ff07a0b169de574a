package object

import (
	"bytes"
	"errors"
	"testing"
)

func TestIdentRoundTrip(t *testing.T) {
	id := Ident{Name: "Ada Lovelace", Email: "ada@example.com", Time: 1234567890, TZ: "+0100"}
	parsed, err := ParseIdent(id.String())
	if err != nil {
		t.Fatalf("ParseIdent: %v", err)
	}
	if parsed != id {
		t.Errorf("round trip: got %+v, want %+v", parsed, id)
	}
}

func TestParseIdentMalformed(t *testing.T) {
	if _, err := ParseIdent("no email here"); err == nil {
		t.Error("ParseIdent should reject a stamp without an email")
	}
}

func TestTreeRoundTripAndOrdering(t *testing.T) {
	blobHash := HashObject(TypeBlob, []byte("x"))
	subHash := HashObject(TypeTree, nil)

	tr := &TreeObj{Entries: []TreeEntry{
		{Mode: TreeModeFile, Name: "foo.txt", Hash: blobHash},
		// "foo" as a directory sorts after "foo.txt": compared as "foo/".
		{Mode: TreeModeDir, Name: "foo", Hash: subHash},
		{Mode: TreeModeFile, Name: "a", Hash: blobHash},
	}}

	data, err := MarshalTree(tr)
	if err != nil {
		t.Fatalf("MarshalTree: %v", err)
	}
	decoded, err := UnmarshalTree(data)
	if err != nil {
		t.Fatalf("UnmarshalTree: %v", err)
	}

	wantOrder := []string{"a", "foo.txt", "foo"}
	if len(decoded.Entries) != len(wantOrder) {
		t.Fatalf("entries: got %d, want %d", len(decoded.Entries), len(wantOrder))
	}
	for i, name := range wantOrder {
		if decoded.Entries[i].Name != name {
			t.Errorf("entry %d: got %q, want %q", i, decoded.Entries[i].Name, name)
		}
	}
	if decoded.Entries[2].Hash != subHash || !decoded.Entries[2].IsDir() {
		t.Errorf("subtree entry mangled: %+v", decoded.Entries[2])
	}
}

func TestUnmarshalTreeTruncated(t *testing.T) {
	if _, err := UnmarshalTree([]byte("100644 f\x00shorthash")); !errors.Is(err, ErrCorrupt) {
		t.Errorf("truncated tree: got %v, want ErrCorrupt", err)
	}
}

func TestCommitRoundTrip(t *testing.T) {
	c := &CommitObj{
		TreeHash: HashObject(TypeTree, nil),
		Parents:  []Hash{HashObject(TypeCommit, []byte("p1")), HashObject(TypeCommit, []byte("p2"))},
		Author:   Ident{Name: "A", Email: "a@x", Time: 100, TZ: "+0000"},
		Committer: Ident{
			Name: "C", Email: "c@x", Time: 200, TZ: "-0500",
		},
		Message: "subject line\n\nbody\n",
	}

	decoded, err := UnmarshalCommit(MarshalCommit(c))
	if err != nil {
		t.Fatalf("UnmarshalCommit: %v", err)
	}
	if decoded.TreeHash != c.TreeHash {
		t.Errorf("tree: got %s, want %s", decoded.TreeHash, c.TreeHash)
	}
	if len(decoded.Parents) != 2 || decoded.Parents[0] != c.Parents[0] {
		t.Errorf("parents: got %v", decoded.Parents)
	}
	if decoded.Author != c.Author || decoded.Committer != c.Committer {
		t.Errorf("idents: got %+v / %+v", decoded.Author, decoded.Committer)
	}
	if decoded.Message != c.Message {
		t.Errorf("message: got %q, want %q", decoded.Message, c.Message)
	}
}

func TestUnmarshalCommitMissingTree(t *testing.T) {
	_, err := UnmarshalCommit([]byte("author A <a@x> 1 +0000\ncommitter A <a@x> 1 +0000\n\nmsg"))
	if !errors.Is(err, ErrCorrupt) {
		t.Errorf("missing tree: got %v, want ErrCorrupt", err)
	}
}

func TestTagRoundTrip(t *testing.T) {
	tag := &TagObj{
		TargetHash: HashObject(TypeCommit, []byte("c")),
		TargetType: TypeCommit,
		Name:       "v1.0",
		Tagger:     Ident{Name: "T", Email: "t@x", Time: 4, TZ: "+0000"},
		Message:    "release",
	}
	decoded, err := UnmarshalTag(MarshalTag(tag))
	if err != nil {
		t.Fatalf("UnmarshalTag: %v", err)
	}
	if decoded.TargetHash != tag.TargetHash || decoded.TargetType != TypeCommit || decoded.Name != "v1.0" {
		t.Errorf("tag mangled: %+v", decoded)
	}
}

func TestBlobRoundTrip(t *testing.T) {
	b := &Blob{Data: []byte{0, 1, 2, 0xff}}
	decoded, err := UnmarshalBlob(MarshalBlob(b))
	if err != nil {
		t.Fatalf("UnmarshalBlob: %v", err)
	}
	if !bytes.Equal(decoded.Data, b.Data) {
		t.Errorf("blob: got %v, want %v", decoded.Data, b.Data)
	}
}
