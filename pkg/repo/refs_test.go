package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/niloc132/gitrb/pkg/object"
)

func tempRepo(t *testing.T) *Repo {
	t.Helper()
	dir := t.TempDir()
	gitDir := filepath.Join(dir, ".git")
	for _, sub := range []string{"objects", filepath.Join("refs", "heads")} {
		if err := os.MkdirAll(filepath.Join(gitDir, sub), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	r, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return r
}

func TestReadHeadEmptyRepository(t *testing.T) {
	r := tempRepo(t)
	h, err := r.ReadHead("master")
	if err != nil {
		t.Fatalf("ReadHead: %v", err)
	}
	if h != "" {
		t.Errorf("empty repository head: got %q, want empty", h)
	}
}

func TestWriteHeadReadHead(t *testing.T) {
	r := tempRepo(t)
	want := object.HashObject(object.TypeCommit, []byte("c"))

	if err := r.WriteHead("master", want); err != nil {
		t.Fatalf("WriteHead: %v", err)
	}
	got, err := r.ReadHead("master")
	if err != nil {
		t.Fatalf("ReadHead: %v", err)
	}
	if got != want {
		t.Errorf("head: got %s, want %s", got, want)
	}

	// Trailing whitespace in the pointer file is trimmed.
	if err := os.WriteFile(r.headPath("master"), []byte(string(want)+"  \n\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = r.ReadHead("master")
	if err != nil || got != want {
		t.Errorf("head with whitespace: got %q, %v", got, err)
	}
}

func TestReadHeadPackedRefs(t *testing.T) {
	r := tempRepo(t)
	packedHash := object.HashObject(object.TypeCommit, []byte("packed"))
	peeled := object.HashObject(object.TypeCommit, []byte("peeled"))

	content := "# pack-refs with: peeled fully-peeled sorted\n" +
		string(packedHash) + " refs/heads/feature\n" +
		"^" + string(peeled) + "\n" +
		string(peeled) + " refs/tags/v1\n"
	if err := os.WriteFile(r.packedRefsPath(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := r.ReadHead("feature")
	if err != nil {
		t.Fatalf("ReadHead: %v", err)
	}
	if got != packedHash {
		t.Errorf("packed head: got %s, want %s", got, packedHash)
	}

	// No refs/heads entry for this name anywhere.
	got, err = r.ReadHead("v1")
	if err != nil || got != "" {
		t.Errorf("tag name as branch: got %q, %v", got, err)
	}
}

func TestReadHeadLooseWinsOverPacked(t *testing.T) {
	r := tempRepo(t)
	loose := object.HashObject(object.TypeCommit, []byte("loose"))
	packed := object.HashObject(object.TypeCommit, []byte("stale"))

	if err := os.WriteFile(r.packedRefsPath(), []byte(string(packed)+" refs/heads/master\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.WriteHead("master", loose); err != nil {
		t.Fatal(err)
	}

	got, err := r.ReadHead("master")
	if err != nil || got != loose {
		t.Errorf("head: got %q, %v; want %s", got, err, loose)
	}
}

func TestListBranchesMergesPackedAndLoose(t *testing.T) {
	r := tempRepo(t)
	loose := object.HashObject(object.TypeCommit, []byte("a"))
	packedOnly := object.HashObject(object.TypeCommit, []byte("b"))
	stale := object.HashObject(object.TypeCommit, []byte("old"))

	content := string(packedOnly) + " refs/heads/archive\n" +
		string(stale) + " refs/heads/main\n"
	if err := os.WriteFile(r.packedRefsPath(), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.WriteHead("main", loose); err != nil {
		t.Fatal(err)
	}

	branches, err := r.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	if branches["archive"] != packedOnly {
		t.Errorf("archive: got %s", branches["archive"])
	}
	if branches["main"] != loose {
		t.Errorf("main should prefer the loose ref: got %s", branches["main"])
	}

	names, err := r.BranchNames()
	if err != nil {
		t.Fatalf("BranchNames: %v", err)
	}
	if len(names) != 2 || names[0] != "archive" || names[1] != "main" {
		t.Errorf("names: got %v", names)
	}
}
