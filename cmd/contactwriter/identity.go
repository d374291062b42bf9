package main

import (
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/localcontacts/contactwriter/internal/coordinator"
	"github.com/localcontacts/contactwriter/internal/identity"
	"github.com/localcontacts/contactwriter/internal/model"
	"github.com/localcontacts/contactwriter/internal/notify"
)

func newIdentityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage identity slots (the self-contact binding)",
	}
	cmd.AddCommand(newIdentitySetCmd())
	cmd.AddCommand(newIdentityShowCmd())
	return cmd
}

func newIdentitySetCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "set <contact-id>",
		Short: "Bind an identity slot to a contact id (0 clears the slot)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}
			if err := e.w.SetIdentity(cmd.Context(), model.IdentityKind(kind), model.ID(n)); err != nil {
				color.Red("set identity failed: %v\n", err)
				return err
			}
			if model.ID(n) == model.NoID {
				color.Green("cleared identity %q\n", kind)
			} else {
				color.Green("bound identity %q to contact %d\n", kind, n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(model.IdentitySelfContact), "identity kind")
	return cmd
}

func newIdentityShowCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the contact id bound to an identity slot",
		Args:  cobra.NoArgs,
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

			id, ok, err := identity.Get(cmd.Context(), tx, model.IdentityKind(kind))
			if err != nil {
				return err
			}
			if !ok {
				color.Yellow("identity %q is not bound\n", kind)
				return nil
			}
			color.Cyan("identity %q -> contact %d\n", kind, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(model.IdentitySelfContact), "identity kind")
	return cmd
}
