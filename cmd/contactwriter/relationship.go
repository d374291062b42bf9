package main

import (
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/localcontacts/contactwriter/internal/model"
	"github.com/localcontacts/contactwriter/internal/werr"
)

func newRelationshipCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relationship",
		Short: "Save or remove relationship edges between contacts",
	}
	cmd.AddCommand(newRelationshipSaveCmd())
	cmd.AddCommand(newRelationshipRemoveCmd())
	return cmd
}

func newRelationshipSaveCmd() *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "save <first-id> <second-id>",
		Short: "Save one Aggregates/IsNot/custom relationship edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			rel, err := parseRelationshipArgs(args, typ)
			if err != nil {
				return err
			}

			errs, err := e.w.SaveRelationships(cmd.Context(), []model.Relationship{rel})
			if err != nil && werr.KindOf(err) != werr.InvalidRelationshipError {
				color.Red("save relationship failed: %v\n", err)
				return err
			}
			if itemErr, ok := errs[0]; ok {
				color.Yellow("rejected: %v\n", itemErr)
				return nil
			}
			color.Green("saved relationship %d -> %d (%s)\n", rel.FirstID, rel.SecondID, rel.Type)
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", string(model.RelationIsNot), "relationship type (Aggregates, IsNot, or a custom tag)")
	return cmd
}

func newRelationshipRemoveCmd() *cobra.Command {
	var typ string
	cmd := &cobra.Command{
		Use:   "remove <first-id> <second-id>",
		Short: "Remove one relationship edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			rel, err := parseRelationshipArgs(args, typ)
			if err != nil {
				return err
			}

			errs, err := e.w.RemoveRelationships(cmd.Context(), []model.Relationship{rel})
			if err != nil && werr.KindOf(err) != werr.DoesNotExistError {
				color.Red("remove relationship failed: %v\n", err)
				return err
			}
			if itemErr, ok := errs[0]; ok {
				color.Yellow("%v\n", itemErr)
				return nil
			}
			color.Green("removed relationship %d -> %d (%s)\n", rel.FirstID, rel.SecondID, rel.Type)
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", string(model.RelationIsNot), "relationship type (Aggregates, IsNot, or a custom tag)")
	return cmd
}

func parseRelationshipArgs(args []string, typ string) (model.Relationship, error) {
	first, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return model.Relationship{}, err
	}
	second, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return model.Relationship{}, err
	}
	return model.Relationship{FirstID: model.ID(first), SecondID: model.ID(second), Type: model.RelationType(typ)}, nil
}
