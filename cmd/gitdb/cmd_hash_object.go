package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/niloc132/gitrb/pkg/object"
)

func newHashObjectCmd() *cobra.Command {
	var (
		write   bool
		typeTag string
	)

	cmd := &cobra.Command{
		Use:   "hash-object <file>",
		Short: "Compute the digest of a file, optionally storing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			objType, err := object.ParseObjectType(typeTag)
			if err != nil {
				return err
			}

			if write {
				r, err := openRepo(cmd)
				if err != nil {
					return err
				}
				h, err := r.Store.Put(objType, data)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), h)
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), object.HashObject(objType, data))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "store the object")
	cmd.Flags().StringVarP(&typeTag, "type", "t", "blob", "object type tag")
	addRepoFlag(cmd)
	return cmd
}
