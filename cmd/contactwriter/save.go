package main

import (
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/localcontacts/contactwriter/internal/model"
	"github.com/localcontacts/contactwriter/internal/werr"
)

func newSaveCmd() *cobra.Command {
	var (
		first, last, syncTarget, guid string
		emails, phones                []string
	)
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a single constituent contact",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			c := model.Contact{
				SyncTarget: model.SyncTarget(syncTarget),
				Details: []model.Detail{
					{Kind: model.KindName, Fields: model.NameFields{First: first, Last: last}},
				},
			}
			for _, addr := range emails {
				c.Details = append(c.Details, model.Detail{Kind: model.KindEmailAddress, Fields: model.EmailAddressFields{EmailAddress: addr}})
			}
			for _, p := range phones {
				c.Details = append(c.Details, model.Detail{Kind: model.KindPhoneNumber, Fields: model.PhoneNumberFields{PhoneNumber: p}})
			}
			// A provider-owned Guid is unpromoted and never flows onto the
			// aggregate, so a freshly-minted one is always safe for a
			// brand-new constituent that didn't come with its own.
			if guid == "" && model.SyncTarget(syncTarget) != model.SyncTargetLocal && model.SyncTarget(syncTarget) != model.SyncTargetAggregate {
				guid = uuid.NewString()
			}
			if guid != "" {
				c.Details = append(c.Details, model.Detail{Kind: model.KindGuid, Fields: model.GuidFields{Guid: guid}})
			}

			outcomes, err := e.w.SaveContacts(cmd.Context(), []model.Contact{c}, nil)
			if err != nil {
				kind := werr.KindOf(err)
				color.Red("save failed (%s): %v\n", kind, err)
				return err
			}
			color.Green("saved contact id %d\n", outcomes[0].ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&first, "first", "", "first name")
	cmd.Flags().StringVar(&last, "last", "", "last name")
	cmd.Flags().StringVar(&syncTarget, "sync-target", string(model.SyncTargetLocal), "sync-target tag (local, aggregate, or a provider name)")
	cmd.Flags().StringVar(&guid, "guid", "", "sync-provider guid (auto-generated for non-local/aggregate contacts if omitted)")
	cmd.Flags().StringArrayVar(&emails, "email", nil, "email address (repeatable)")
	cmd.Flags().StringArrayVar(&phones, "phone", nil, "phone number (repeatable)")
	return cmd
}
