package main

import (
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/localcontacts/contactwriter/internal/model"
)

func newRegenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regen <aggregate-id>...",
		Short: "Recompose one or more aggregates from their surviving constituents",
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

			if err := e.w.RegenerateAggregates(cmd.Context(), ids, nil); err != nil {
				color.Red("regen failed: %v\n", err)
				return err
			}
			color.Green("regenerated %d aggregate(s)\n", len(ids))
			return nil
		},
	}
}
