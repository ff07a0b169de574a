package object

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// MinAbbrevLen is the shortest abbreviated digest the store will resolve.
// Anything shorter is too ambiguous to be useful and reports not-found.
const MinAbbrevLen = 5

// Store is a content-addressed object store over a repository directory:
// loose objects under objects/ with a 2-character fan-out layout
// (objects/ab/cdef...), pack archives under objects/pack/. Decoded
// objects are cached in a prefix trie, so repeated reads and abbreviated
// lookups stay cheap.
//
// Resolution order for Get is cache, then loose file, then every loaded
// pack archive.
type Store struct {
	root  string
	cache *Trie[*Object]
	packs []*PackReader
}

// OpenStore opens a store rooted at the given repository directory and
// scans objects/pack for archives. The objects/ subdirectory itself is
// created lazily on first write.
func OpenStore(root string) (*Store, error) {
	s := &Store{
		root:  root,
		cache: NewTrie[*Object](),
	}
	if err := s.loadPacks(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the repository directory the store was opened at.
func (s *Store) Root() string { return s.root }

// Refresh drops the decoded-object cache and re-scans pack archives.
// Called by the transaction layer when another writer changed disk state.
func (s *Store) Refresh() error {
	s.cache = NewTrie[*Object]()
	s.packs = nil
	return s.loadPacks()
}

func (s *Store) loadPacks() error {
	packDir := filepath.Join(s.root, "objects", "pack")
	entries, err := os.ReadDir(packDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("scan pack dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".pack") {
			names = append(names, e.Name())
		}
	}
	// Stable query order across processes.
	sort.Strings(names)

	for _, name := range names {
		pr, err := OpenPackReader(filepath.Join(packDir, name))
		if err != nil {
			return fmt.Errorf("load pack %s: %w", name, err)
		}
		s.packs = append(s.packs, pr)
	}
	return nil
}

// Packs returns the loaded pack archive readers.
func (s *Store) Packs() []*PackReader { return s.packs }

// objectPath returns the loose-file path for a full digest.
func (s *Store) objectPath(h Hash) string {
	return filepath.Join(s.root, "objects", string(h[:2]), string(h[2:]))
}

// Has reports whether the store contains an object with the given full
// digest, without decoding it.
func (s *Store) Has(h Hash) bool {
	if len(h) != 40 {
		return false
	}
	if _, ok := s.cache.Get(h); ok {
		return true
	}
	if _, err := os.Stat(s.objectPath(h)); err == nil {
		return true
	}
	for _, pack := range s.packs {
		if _, ok := pack.index.Find(h); ok {
			return true
		}
	}
	return false
}

// Get resolves a full or abbreviated digest to a decoded object. Keys
// shorter than MinAbbrevLen report ErrNotFound. An abbreviation matching
// more than one object reports ErrAmbiguous; callers must treat that as
// "need more characters", not absence.
func (s *Store) Get(key string) (*Object, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if len(key) < MinAbbrevLen || len(key) > 40 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}

	// 1. Decoded-object cache.
	if hits := s.cache.Find(key); len(hits) == 1 {
		return hits[0].Value, nil
	} else if len(hits) > 1 {
		return nil, fmt.Errorf("%w: %q matches %d cached objects", ErrAmbiguous, key, len(hits))
	}

	// 2. Loose file.
	obj, err := s.getLoose(key)
	if err == nil {
		return obj, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// 3. Pack archives.
	return s.getPacked(key)
}

// getLoose resolves key against the fan-out directory. A buffer that
// fails the loose framing check is reported as ErrNotFound so Get can
// fall back to pack lookup; a decodable-but-invalid envelope is corrupt.
func (s *Store) getLoose(key string) (*Object, error) {
	var full Hash
	if len(key) == 40 {
		full = Hash(key)
		if _, err := os.Stat(s.objectPath(full)); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
	} else {
		dir := filepath.Join(s.root, "objects", key[:2])
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
			}
			return nil, fmt.Errorf("read object dir %s: %w", dir, err)
		}

		var matches []string
		for _, e := range entries {
			if !e.IsDir() && strings.HasPrefix(e.Name(), key[2:]) {
				matches = append(matches, e.Name())
			}
		}
		switch len(matches) {
		case 0:
			return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		case 1:
			full = Hash(key[:2] + matches[0])
		default:
			return nil, fmt.Errorf("%w: %q matches %d loose objects", ErrAmbiguous, key, len(matches))
		}
	}

	raw, err := os.ReadFile(s.objectPath(full))
	if err != nil {
		return nil, fmt.Errorf("read loose object %s: %w", full, err)
	}
	if !IsLooseFrame(raw) {
		return nil, fmt.Errorf("%w: %s is not a loose object encoding", ErrNotFound, full)
	}
	objType, content, err := DecodeLoose(raw)
	if err != nil {
		return nil, fmt.Errorf("loose object %s: %w", full, err)
	}

	obj := &Object{Type: objType, Data: content}
	s.cache.Insert(full, obj)
	return obj, nil
}

// getPacked resolves key against every loaded archive's digest trie.
func (s *Store) getPacked(key string) (*Object, error) {
	type packHit struct {
		pack   *PackReader
		offset uint64
	}

	hits := make(map[Hash]packHit)
	for _, pack := range s.packs {
		for _, entry := range pack.Find(key) {
			// The same digest in two archives is the same object.
			if _, seen := hits[entry.Hash]; !seen {
				hits[entry.Hash] = packHit{pack: pack, offset: entry.Value}
			}
		}
	}

	switch len(hits) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	case 1:
	default:
		return nil, fmt.Errorf("%w: %q matches %d packed objects", ErrAmbiguous, key, len(hits))
	}

	for full, hit := range hits {
		objType, content, err := hit.pack.ObjectAt(hit.offset)
		if err != nil {
			return nil, err
		}
		obj := &Object{Type: objType, Data: content}
		s.cache.Insert(full, obj)
		return obj, nil
	}
	panic("unreachable")
}

// Put stores an object, returning its content digest. The write is
// idempotent: an existing loose file for the digest is left untouched,
// but the cache entry is always refreshed.
func (s *Store) Put(objType ObjectType, data []byte) (Hash, error) {
	h := HashObject(objType, data)

	if _, err := os.Stat(s.objectPath(h)); err != nil {
		if err := s.writeLoose(h, objType, data); err != nil {
			return "", err
		}
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	s.cache.Insert(h, &Object{Type: objType, Data: stored})
	return h, nil
}

// writeLoose writes the compressed envelope via temp file + rename so a
// concurrent reader never observes a partial object.
func (s *Store) writeLoose(h Hash, objType ObjectType, data []byte) error {
	frame, err := EncodeLoose(objType, data)
	if err != nil {
		return err
	}

	dir := filepath.Join(s.root, "objects", string(h[:2]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("object write mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("object write tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(frame); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("object write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("object write close: %w", err)
	}
	if err := os.Rename(tmpName, s.objectPath(h)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("object write rename: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Typed convenience methods
// ---------------------------------------------------------------------------

func (s *Store) getTyped(key string, want ObjectType) (*Object, error) {
	obj, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	if obj.Type != want {
		return nil, fmt.Errorf("%w: object %s: got %q, want %q", ErrTypeMismatch, key, obj.Type, want)
	}
	return obj, nil
}

// GetBlob resolves key and decodes it as a Blob.
func (s *Store) GetBlob(key string) (*Blob, error) {
	obj, err := s.getTyped(key, TypeBlob)
	if err != nil {
		return nil, err
	}
	return UnmarshalBlob(obj.Data)
}

// GetTree resolves key and decodes it as a TreeObj.
func (s *Store) GetTree(key string) (*TreeObj, error) {
	obj, err := s.getTyped(key, TypeTree)
	if err != nil {
		return nil, err
	}
	return UnmarshalTree(obj.Data)
}

// GetCommit resolves key and decodes it as a CommitObj.
func (s *Store) GetCommit(key string) (*CommitObj, error) {
	obj, err := s.getTyped(key, TypeCommit)
	if err != nil {
		return nil, err
	}
	return UnmarshalCommit(obj.Data)
}

// GetTag resolves key and decodes it as a TagObj.
func (s *Store) GetTag(key string) (*TagObj, error) {
	obj, err := s.getTyped(key, TypeTag)
	if err != nil {
		return nil, err
	}
	return UnmarshalTag(obj.Data)
}

// WriteBlob serializes and stores a Blob.
func (s *Store) WriteBlob(b *Blob) (Hash, error) {
	return s.Put(TypeBlob, MarshalBlob(b))
}

// WriteTree serializes and stores a TreeObj.
func (s *Store) WriteTree(tr *TreeObj) (Hash, error) {
	data, err := MarshalTree(tr)
	if err != nil {
		return "", err
	}
	return s.Put(TypeTree, data)
}

// WriteCommit serializes and stores a CommitObj.
func (s *Store) WriteCommit(c *CommitObj) (Hash, error) {
	return s.Put(TypeCommit, MarshalCommit(c))
}

// WriteTag serializes and stores a TagObj.
func (s *Store) WriteTag(t *TagObj) (Hash, error) {
	return s.Put(TypeTag, MarshalTag(t))
}
