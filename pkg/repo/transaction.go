package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bobg/flock"

	"github.com/niloc132/gitrb/pkg/object"
)

// Tx is one open transaction on a branch. It is the explicit lock guard:
// whoever holds the *Tx owns the branch's write path until Finish. A Tx
// must not be shared across goroutines, and transactions do not nest —
// a second Begin for the same branch blocks until the first finishes.
type Tx struct {
	repo     *Repo
	branch   string
	locker   flock.Locker
	lockPath string

	base     object.Hash
	tree     *Tree
	finished bool
}

// Begin acquires the branch's exclusive lock (blocking, no timeout),
// reloads in-memory state if another writer committed since it was last
// observed, and loads the working tree from the current head. Callers
// needing a timeout wrap the call externally.
func (r *Repo) Begin(branch string) (*Tx, error) {
	lockPath := r.headPath(branch) + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("begin %q: %w", branch, err)
	}

	tx := &Tx{repo: r, branch: branch, lockPath: lockPath}
	if err := tx.locker.Lock(lockPath); err != nil {
		return nil, fmt.Errorf("begin %q: lock: %w", branch, err)
	}
	if err := tx.load(); err != nil {
		_ = tx.Finish()
		return nil, err
	}
	return tx, nil
}

// load reads the head from disk, refreshing the store when it moved
// behind our back, and rebuilds the working tree.
func (tx *Tx) load() error {
	head, err := tx.repo.ReadHead(tx.branch)
	if err != nil {
		return err
	}
	if tx.repo.loaded[tx.branch] != head {
		if err := tx.repo.Store.Refresh(); err != nil {
			return fmt.Errorf("begin %q: refresh: %w", tx.branch, err)
		}
	}

	tree, err := LoadTree(tx.repo.Store, head)
	if err != nil {
		return err
	}
	tx.base = head
	tx.tree = tree
	tx.repo.loaded[tx.branch] = head
	return nil
}

// Branch returns the branch this transaction is scoped to.
func (tx *Tx) Branch() string { return tx.branch }

// Base returns the head digest observed when the transaction loaded.
func (tx *Tx) Base() object.Hash { return tx.base }

// Tree returns the working tree for caller mutation.
func (tx *Tx) Tree() *Tree { return tx.tree }

// Commit persists the working tree and advances the branch pointer,
// returning the new head digest. When the tree was never mutated it is a
// no-op and returns the unchanged head. A nil author falls back to the
// repository's default identity.
func (tx *Tx) Commit(ctx context.Context, message string, author *object.Ident) (object.Hash, error) {
	if tx.finished {
		return "", fmt.Errorf("commit %q: transaction already finished", tx.branch)
	}
	if !tx.tree.Modified() {
		return tx.base, nil
	}

	id, err := tx.resolveIdent(ctx, author)
	if err != nil {
		return "", fmt.Errorf("commit %q: %w", tx.branch, err)
	}

	treeHash, err := tx.tree.Save(tx.repo.Store)
	if err != nil {
		return "", fmt.Errorf("commit %q: %w", tx.branch, err)
	}

	commit := &object.CommitObj{
		TreeHash:  treeHash,
		Author:    id,
		Committer: id,
		Message:   message,
	}
	if tx.base != "" {
		commit.Parents = []object.Hash{tx.base}
	}

	commitHash, err := tx.repo.Store.WriteCommit(commit)
	if err != nil {
		return "", fmt.Errorf("commit %q: write commit: %w", tx.branch, err)
	}
	if err := tx.repo.WriteHead(tx.branch, commitHash); err != nil {
		return "", fmt.Errorf("commit %q: %w", tx.branch, err)
	}

	if err := tx.load(); err != nil {
		return "", fmt.Errorf("commit %q: reload: %w", tx.branch, err)
	}
	return commitHash, nil
}

func (tx *Tx) resolveIdent(ctx context.Context, author *object.Ident) (object.Ident, error) {
	if author != nil {
		id := *author
		if id.Time == 0 {
			now := time.Now()
			id.Time = now.Unix()
			id.TZ = now.Format("-0700")
		}
		return id, nil
	}
	return tx.repo.DefaultIdent(ctx)
}

// Rollback discards in-memory mutations unconditionally and reloads from
// disk.
func (tx *Tx) Rollback() error {
	if tx.finished {
		return fmt.Errorf("rollback %q: transaction already finished", tx.branch)
	}
	if err := tx.repo.Store.Refresh(); err != nil {
		return fmt.Errorf("rollback %q: %w", tx.branch, err)
	}
	// Force the tree reload even when the head did not move.
	delete(tx.repo.loaded, tx.branch)
	if err := tx.load(); err != nil {
		return fmt.Errorf("rollback %q: %w", tx.branch, err)
	}
	return nil
}

// Finish releases the branch lock and removes the lock file. It runs on
// every transaction exit path and is idempotent. Lock-file removal is
// best effort and ordered after unlock: exclusion is carried by the
// flock held from Begin, not by the lock file's presence or identity on
// disk, so the removal ordering carries no correctness weight.
func (tx *Tx) Finish() error {
	if tx.finished {
		return nil
	}
	tx.finished = true

	err := tx.locker.Unlock(tx.lockPath)
	if rmErr := os.Remove(tx.lockPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
		slog.Warn("could not remove branch lock file", "path", tx.lockPath, "err", rmErr)
	}
	if err != nil {
		return fmt.Errorf("finish %q: unlock: %w", tx.branch, err)
	}
	return nil
}

// Transaction runs fn inside a transaction on branch. Any error (or
// panic) from fn rolls the transaction back before propagating; the lock
// is released on every exit path. fn drives Commit itself.
func (r *Repo) Transaction(branch string, fn func(*Tx) error) (err error) {
	tx, err := r.Begin(branch)
	if err != nil {
		return err
	}
	defer func() {
		if ferr := tx.Finish(); ferr != nil && err == nil {
			err = ferr
		}
	}()
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}
	return nil
}
