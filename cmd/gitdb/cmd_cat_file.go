package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCatFileCmd() *cobra.Command {
	var showType bool

	cmd := &cobra.Command{
		Use:   "cat-file <digest>",
		Short: "Print a stored object by full or abbreviated digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo(cmd)
			if err != nil {
				return err
			}

			obj, err := r.Store.Get(args[0])
			if err != nil {
				return err
			}
			if showType {
				fmt.Fprintln(cmd.OutOrStdout(), obj.Type)
				return nil
			}
			_, err = cmd.OutOrStdout().Write(obj.Data)
			return err
		},
	}
	cmd.Flags().BoolVarP(&showType, "type", "t", false, "print only the object type")
	addRepoFlag(cmd)
	return cmd
}
