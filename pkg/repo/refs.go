package repo

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/niloc132/gitrb/pkg/object"
)

func (r *Repo) headPath(branch string) string {
	return filepath.Join(r.GitDir, "refs", "heads", branch)
}

func (r *Repo) packedRefsPath() string {
	return filepath.Join(r.GitDir, "packed-refs")
}

// ReadHead returns the digest the named branch points at. The per-branch
// pointer file wins; absent that, packed-refs is scanned. An empty digest
// with no error means the branch has no head yet (empty repository
// state).
func (r *Repo) ReadHead(branch string) (object.Hash, error) {
	data, err := os.ReadFile(r.headPath(branch))
	if err == nil {
		return object.Hash(strings.TrimSpace(string(data))), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("read head %q: %w", branch, err)
	}

	packed, err := r.readPackedRefs()
	if err != nil {
		return "", err
	}
	return packed["refs/heads/"+branch], nil
}

// readPackedRefs parses packed-refs: one "<digest> <ref name>" per line,
// "#" comment lines and "^" peeled-target lines skipped. A missing file
// is an empty map.
func (r *Repo) readPackedRefs() (map[string]object.Hash, error) {
	f, err := os.Open(r.packedRefsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]object.Hash{}, nil
		}
		return nil, fmt.Errorf("read packed-refs: %w", err)
	}
	defer f.Close()

	refs := make(map[string]object.Hash)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "^") {
			continue
		}
		digest, name, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		refs[strings.TrimSpace(name)] = object.Hash(digest)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read packed-refs: %w", err)
	}
	return refs, nil
}

// WriteHead overwrites the branch's pointer file with the digest.
// Concurrent readers during the write window are excluded by the
// transaction lock, not by this operation.
func (r *Repo) WriteHead(branch string, h object.Hash) error {
	path := r.headPath(branch)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("write head %q: %w", branch, err)
	}
	if err := os.WriteFile(path, []byte(string(h)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write head %q: %w", branch, err)
	}
	return nil
}

// ListBranches merges loose refs/heads entries with packed-refs (loose
// wins) and returns branch name → head digest.
func (r *Repo) ListBranches() (map[string]object.Hash, error) {
	branches := make(map[string]object.Hash)

	packed, err := r.readPackedRefs()
	if err != nil {
		return nil, err
	}
	for name, h := range packed {
		if rest, ok := strings.CutPrefix(name, "refs/heads/"); ok {
			branches[rest] = h
		}
	}

	headsDir := filepath.Join(r.GitDir, "refs", "heads")
	err = filepath.WalkDir(headsDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".lock") {
			return nil
		}
		rel, err := filepath.Rel(headsDir, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		branches[filepath.ToSlash(rel)] = object.Hash(strings.TrimSpace(string(data)))
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	return branches, nil
}

// BranchNames returns the sorted names of all branches.
func (r *Repo) BranchNames() ([]string, error) {
	branches, err := r.ListBranches()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(branches))
	for name := range branches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
