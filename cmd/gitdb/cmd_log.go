package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newLogCmd() *cobra.Command {
	var (
		limit int
		path  string
	)

	cmd := &cobra.Command{
		Use:   "log [rev]",
		Short: "List history via the external executable",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}

			rev := ""
			if len(args) > 0 {
				rev = args[0]
			}
			entries, err := r.Client.Log(cmd.Context(), rev, path, limit)
			if err != nil {
				return err
			}

			for _, e := range entries {
				when := time.Unix(e.Author.Time, 0).UTC().Format(time.DateTime)
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s <%s>\n    %s\n",
					e.Hash, when, e.Author.Name, e.Author.Email, e.Message)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of commits")
	cmd.Flags().StringVar(&path, "path", "", "restrict history to a path")
	addRepoFlag(cmd)
	return cmd
}
