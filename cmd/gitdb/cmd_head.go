package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHeadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "head <branch>",
		Short: "Print the digest a branch points at",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}

			h, err := r.ReadHead(args[0])
			if err != nil {
				return err
			}
			if h == "" {
				return fmt.Errorf("branch %q has no head", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
	addRepoFlag(cmd)
	return cmd
}

func newBranchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branches",
		Short: "List branches with their head digests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}

			names, err := r.BranchNames()
			if err != nil {
				return err
			}
			branches, err := r.ListBranches()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", branches[name], name)
			}
			return nil
		},
	}
	addRepoFlag(cmd)
	return cmd
}
