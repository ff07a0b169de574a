// Package repo layers branch pointers, transactions, and the external
// version-control subprocess boundary on top of the object store.
package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/niloc132/gitrb/pkg/object"
)

// Repo is an opened repository: a git directory with its object store,
// branch pointers, and subprocess client.
type Repo struct {
	GitDir string
	Store  *object.Store
	Client Client

	config *Config

	// loaded records the head digest observed when each branch's state
	// was last loaded, so Begin can detect external commits and refresh.
	loaded map[string]object.Hash
}

// Open opens the repository at path. Path may be a working directory
// containing .git or a bare git directory.
func Open(path string) (*Repo, error) {
	gitDir := path
	if fi, err := os.Stat(filepath.Join(path, ".git")); err == nil && fi.IsDir() {
		gitDir = filepath.Join(path, ".git")
	}
	if _, err := os.Stat(filepath.Join(gitDir, "objects")); err != nil {
		return nil, fmt.Errorf("open repository %s: no objects directory", path)
	}

	store, err := object.OpenStore(gitDir)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}
	cfg, err := ReadConfig(gitDir)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}

	return &Repo{
		GitDir: gitDir,
		Store:  store,
		Client: NewExecClient(gitDir),
		config: cfg,
		loaded: make(map[string]object.Hash),
	}, nil
}

// Init bootstraps a repository at path via the external executable, then
// opens it.
func Init(ctx context.Context, path string, bare bool) (*Repo, error) {
	client := NewExecClient("")
	if err := client.Init(ctx, path, bare); err != nil {
		return nil, err
	}
	return Open(path)
}

// Config returns the repository's engine configuration.
func (r *Repo) Config() *Config { return r.config }
