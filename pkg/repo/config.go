package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/niloc132/gitrb/pkg/object"
)

// DefaultBranch is used when neither gitdb.toml nor the caller names one.
const DefaultBranch = "master"

// Config is the optional engine configuration read from
// <gitdir>/gitdb.toml.
type Config struct {
	User UserConfig `toml:"user"`
	Core CoreConfig `toml:"core"`
}

// UserConfig is the fallback identity for new history records.
type UserConfig struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
}

// CoreConfig holds engine-level settings.
type CoreConfig struct {
	DefaultBranch string `toml:"default_branch"`
}

func configPath(gitDir string) string {
	return filepath.Join(gitDir, "gitdb.toml")
}

// ReadConfig reads gitdb.toml from the git directory. A missing file
// yields defaults.
func ReadConfig(gitDir string) (*Config, error) {
	cfg := &Config{Core: CoreConfig{DefaultBranch: DefaultBranch}}

	data, err := os.ReadFile(configPath(gitDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read gitdb.toml: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("read gitdb.toml: %w", err)
	}
	if cfg.Core.DefaultBranch == "" {
		cfg.Core.DefaultBranch = DefaultBranch
	}
	return cfg, nil
}

// DefaultIdent resolves the identity to stamp new history records with
// when the caller supplies none: environment, then gitdb.toml, then the
// external executable's configuration.
func (r *Repo) DefaultIdent(ctx context.Context) (object.Ident, error) {
	name := os.Getenv("GIT_AUTHOR_NAME")
	email := os.Getenv("GIT_AUTHOR_EMAIL")

	if name == "" {
		name = r.config.User.Name
	}
	if email == "" {
		email = r.config.User.Email
	}

	if name == "" {
		v, err := r.Client.ConfigGet(ctx, "user.name")
		if err != nil {
			return object.Ident{}, fmt.Errorf("default identity: %w", err)
		}
		name = v
	}
	if email == "" {
		v, err := r.Client.ConfigGet(ctx, "user.email")
		if err != nil {
			return object.Ident{}, fmt.Errorf("default identity: %w", err)
		}
		email = v
	}

	if name == "" {
		return object.Ident{}, fmt.Errorf("default identity: no user name configured")
	}

	now := time.Now()
	return object.Ident{
		Name:  name,
		Email: email,
		Time:  now.Unix(),
		TZ:    now.Format("-0700"),
	}, nil
}
