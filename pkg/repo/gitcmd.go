package repo

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/niloc132/gitrb/pkg/object"
)

// LogEntry is one history record parsed from the external executable.
type LogEntry struct {
	Hash    object.Hash
	Author  object.Ident
	Message string
}

// Client is the narrow subprocess boundary to the external
// version-control executable. History traversal, diff computation,
// host-level configuration, and repository bootstrap live behind it;
// the storage engine itself never interprets history.
type Client interface {
	// Log lists history starting at rev (a digest or branch name),
	// optionally filtered to path, newest first. limit <= 0 means no
	// limit. An empty repository yields an empty slice, not an error.
	Log(ctx context.Context, rev, path string, limit int) ([]LogEntry, error)

	// Diff returns the textual diff between two revisions, optionally
	// filtered to path.
	Diff(ctx context.Context, a, b, path string) (string, error)

	// ConfigGet reads one configuration value; an unset key returns the
	// empty string with no error.
	ConfigGet(ctx context.Context, key string) (string, error)

	// Init bootstraps a repository at dir.
	Init(ctx context.Context, dir string, bare bool) error
}

// ExecError reports a subprocess that exited non-zero, with its captured
// output.
type ExecError struct {
	Args     []string
	ExitCode int
	Output   string
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("git %s: exit %d: %s", strings.Join(e.Args, " "), e.ExitCode, strings.TrimSpace(e.Output))
}

// ExecClient shells out to the git executable.
type ExecClient struct {
	// GitDir is passed as --git-dir when non-empty.
	GitDir string
}

// NewExecClient returns a Client bound to the given git directory.
func NewExecClient(gitDir string) *ExecClient {
	return &ExecClient{GitDir: gitDir}
}

func (c *ExecClient) run(ctx context.Context, args ...string) (string, error) {
	full := args
	if c.GitDir != "" {
		full = append([]string{"--git-dir", c.GitDir}, args...)
	}
	out, err := exec.CommandContext(ctx, "git", full...).CombinedOutput()
	if err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return string(out), &ExecError{Args: full, ExitCode: exitCode, Output: string(out)}
	}
	return string(out), nil
}

// Record separators for log parsing: unit separator between fields,
// record separator between commits.
const (
	logFieldSep  = "\x1f"
	logRecordSep = "\x1e"
	logFormat    = "%H" + logFieldSep + "%an" + logFieldSep + "%ae" + logFieldSep + "%at" + logFieldSep + "%B" + logRecordSep
)

// Log implements Client.
func (c *ExecClient) Log(ctx context.Context, rev, path string, limit int) ([]LogEntry, error) {
	args := []string{"log", "--pretty=format:" + logFormat}
	if limit > 0 {
		args = append(args, "-n", strconv.Itoa(limit))
	}
	if rev != "" {
		args = append(args, rev)
	}
	if path != "" {
		args = append(args, "--", path)
	}

	out, err := c.run(ctx, args...)
	if err != nil {
		// A branch with no commits yet is "no results", not a failure.
		if isEmptyHistoryError(out) {
			return nil, nil
		}
		return nil, err
	}
	return parseLogOutput(out)
}

func isEmptyHistoryError(output string) bool {
	for _, marker := range []string{
		"does not have any commits yet",
		"bad default revision",
		"unknown revision or path not in the working tree",
	} {
		if strings.Contains(output, marker) {
			return true
		}
	}
	return false
}

func parseLogOutput(out string) ([]LogEntry, error) {
	var entries []LogEntry
	for _, record := range strings.Split(out, logRecordSep) {
		record = strings.TrimLeft(record, "\n")
		if strings.TrimSpace(record) == "" {
			continue
		}
		fields := strings.SplitN(record, logFieldSep, 5)
		if len(fields) != 5 {
			return nil, fmt.Errorf("parse log record: %d fields in %q", len(fields), record)
		}
		ts, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse log timestamp %q: %w", fields[3], err)
		}
		entries = append(entries, LogEntry{
			Hash: object.Hash(fields[0]),
			Author: object.Ident{
				Name:  fields[1],
				Email: fields[2],
				Time:  ts,
			},
			Message: strings.TrimRight(fields[4], "\n"),
		})
	}
	return entries, nil
}

// Diff implements Client.
func (c *ExecClient) Diff(ctx context.Context, a, b, path string) (string, error) {
	args := []string{"diff", a, b}
	if path != "" {
		args = append(args, "--", path)
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return "", err
	}
	return out, nil
}

// ConfigGet implements Client. An unset key (exit status 1) is the clean
// no-result case and returns the empty string.
func (c *ExecClient) ConfigGet(ctx context.Context, key string) (string, error) {
	out, err := c.run(ctx, "config", "--get", key)
	if err != nil {
		var ee *ExecError
		if errors.As(err, &ee) && ee.ExitCode == 1 {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Init implements Client. The --git-dir flag is never passed for init.
func (c *ExecClient) Init(ctx context.Context, dir string, bare bool) error {
	args := []string{"init"}
	if bare {
		args = append(args, "--bare")
	}
	args = append(args, dir)
	out, err := exec.CommandContext(ctx, "git", args...).CombinedOutput()
	if err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return &ExecError{Args: args, ExitCode: exitCode, Output: string(out)}
	}
	return nil
}
