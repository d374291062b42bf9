package main

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/localcontacts/contactwriter/internal/coordinator"
	"github.com/localcontacts/contactwriter/internal/model"
	"github.com/localcontacts/contactwriter/internal/notify"
	"github.com/localcontacts/contactwriter/internal/reader"
)

func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show a contact by id, or every aggregate if no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			coord := coordinator.New(e.store, notify.NoopSink{})
			tx, err := coord.Begin(cmd.Context())
			if err != nil {
				return err
			}
			defer coord.Rollback(cmd.Context())

			rdr := reader.New()
			if len(args) == 1 {
				n, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return err
				}
				c, ok, err := rdr.ReadByID(cmd.Context(), tx, model.ID(n), nil)
				if err != nil {
					return err
				}
				if !ok {
					color.Yellow("no such contact: %d\n", n)
					return nil
				}
				printContact(c)
				return nil
			}

			aggregates, err := rdr.ReadAllAggregates(cmd.Context(), tx, nil)
			if err != nil {
				return err
			}
			for _, a := range aggregates {
				printContact(a)
			}
			return nil
		},
	}
	return cmd
}

func printContact(c model.Contact) {
	color.Cyan("contact %d  [%s]  %q\n", c.ID, c.SyncTarget, c.DisplayLabel)
	for _, d := range c.Details {
		fmt.Printf("  %-14s %+v\n", d.Kind, d.Fields)
	}
}
