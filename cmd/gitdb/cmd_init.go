package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/niloc132/gitrb/pkg/repo"
)

func newInitCmd() *cobra.Command {
	var bare bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			r, err := repo.Init(cmd.Context(), abs, bare)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "initialized empty repository in %s\n", r.GitDir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&bare, "bare", false, "create a bare repository")
	return cmd
}

// openRepo opens the repository at --repo (default: current directory).
func openRepo(cmd *cobra.Command) (*repo.Repo, error) {
	path, err := cmd.Flags().GetString("repo")
	if err != nil || path == "" {
		path = "."
	}
	return repo.Open(path)
}

func addRepoFlag(cmd *cobra.Command) {
	cmd.Flags().String("repo", ".", "repository path")
}
