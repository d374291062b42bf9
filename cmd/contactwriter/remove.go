package main

import (
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/localcontacts/contactwriter/internal/model"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove one or more contacts by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			ids := make([]model.ID, len(args))
			for i, a := range args {
				n, err := strconv.ParseInt(a, 10, 64)
				if err != nil {
					return err
				}
				ids[i] = model.ID(n)
			}

			errs, err := e.w.Remove(cmd.Context(), ids)
			if err != nil {
				color.Red("remove failed: %v\n", err)
				return err
			}
			for i, id := range ids {
				if itemErr, ok := errs[i]; ok {
					color.Yellow("id %d: %v\n", id, itemErr)
					continue
				}
				color.Green("removed id %d\n", id)
			}
			return nil
		},
	}
}
