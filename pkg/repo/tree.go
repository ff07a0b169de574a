package repo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/niloc132/gitrb/pkg/object"
)

// Tree is the in-memory working snapshot of a branch's content: a flat
// path→bytes view of the hierarchical tree, loaded from the head commit
// at transaction start and persisted as nested tree objects on commit.
// Paths use forward slashes.
type Tree struct {
	files    map[string][]byte
	modified bool
}

// NewTree returns an empty working tree.
func NewTree() *Tree {
	return &Tree{files: make(map[string][]byte)}
}

// LoadTree materializes the working tree for the commit named by head.
// An empty head yields an empty tree.
func LoadTree(store *object.Store, head object.Hash) (*Tree, error) {
	t := NewTree()
	if head == "" {
		return t, nil
	}
	commit, err := store.GetCommit(string(head))
	if err != nil {
		return nil, fmt.Errorf("load tree at %s: %w", head, err)
	}
	if err := t.loadDir(store, commit.TreeHash, ""); err != nil {
		return nil, fmt.Errorf("load tree at %s: %w", head, err)
	}
	return t, nil
}

func (t *Tree) loadDir(store *object.Store, treeHash object.Hash, prefix string) error {
	tr, err := store.GetTree(string(treeHash))
	if err != nil {
		return err
	}
	for _, e := range tr.Entries {
		p := e.Name
		if prefix != "" {
			p = prefix + "/" + e.Name
		}
		if e.IsDir() {
			if err := t.loadDir(store, e.Hash, p); err != nil {
				return err
			}
			continue
		}
		blob, err := store.GetBlob(string(e.Hash))
		if err != nil {
			return err
		}
		t.files[p] = blob.Data
	}
	return nil
}

// Get returns the content stored at path.
func (t *Tree) Get(path string) ([]byte, bool) {
	data, ok := t.files[path]
	return data, ok
}

// Put stages content at path, replacing any previous entry.
func (t *Tree) Put(path string, data []byte) {
	stored := make([]byte, len(data))
	copy(stored, data)
	t.files[path] = stored
	t.modified = true
}

// Delete removes path from the tree, reporting whether it was present.
func (t *Tree) Delete(path string) bool {
	if _, ok := t.files[path]; !ok {
		return false
	}
	delete(t.files, path)
	t.modified = true
	return true
}

// Len returns the number of file entries.
func (t *Tree) Len() int { return len(t.files) }

// Paths returns all file paths in sorted order.
func (t *Tree) Paths() []string {
	paths := make([]string, 0, len(t.files))
	for p := range t.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Modified reports whether the tree changed since it was loaded.
func (t *Tree) Modified() bool { return t.modified }

// Save persists the tree bottom-up through the store, writing blobs and
// nested tree objects, and returns the root tree digest. Put's
// idempotence makes re-saving unchanged subtrees a no-op on disk.
// A path staged both as a file and as a directory prefix (e.g. "a" and
// "a/b") cannot be represented and is rejected with an error.
func (t *Tree) Save(store *object.Store) (object.Hash, error) {
	return t.saveDir(store, "")
}

func (t *Tree) saveDir(store *object.Store, prefix string) (object.Hash, error) {
	// Collect direct children: file names and immediate subdirectories.
	files := make(map[string][]byte)
	subdirs := make(map[string]struct{})

	for p, data := range t.files {
		rel := p
		if prefix != "" {
			if !strings.HasPrefix(p, prefix+"/") {
				continue
			}
			rel = p[len(prefix)+1:]
		}

		if slash := strings.IndexByte(rel, '/'); slash < 0 {
			files[rel] = data
		} else {
			subdirs[rel[:slash]] = struct{}{}
		}
	}

	names := make([]string, 0, len(files)+len(subdirs))
	for name := range files {
		names = append(names, name)
	}
	for name := range subdirs {
		if _, isFile := files[name]; isFile {
			full := name
			if prefix != "" {
				full = prefix + "/" + name
			}
			return "", fmt.Errorf("save tree: %q is staged as both a file and a directory", full)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var entries []object.TreeEntry
	for _, name := range names {
		if data, isFile := files[name]; isFile {
			blobHash, err := store.WriteBlob(&object.Blob{Data: data})
			if err != nil {
				return "", fmt.Errorf("save tree: write blob %q: %w", name, err)
			}
			entries = append(entries, object.TreeEntry{
				Mode: object.TreeModeFile,
				Name: name,
				Hash: blobHash,
			})
			continue
		}

		childPrefix := name
		if prefix != "" {
			childPrefix = prefix + "/" + name
		}
		subHash, err := t.saveDir(store, childPrefix)
		if err != nil {
			return "", err
		}
		entries = append(entries, object.TreeEntry{
			Mode: object.TreeModeDir,
			Name: name,
			Hash: subHash,
		})
	}

	h, err := store.WriteTree(&object.TreeObj{Entries: entries})
	if err != nil {
		return "", fmt.Errorf("save tree (prefix=%q): %w", prefix, err)
	}
	return h, nil
}
