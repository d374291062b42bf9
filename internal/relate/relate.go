// Package relate is the relationship store: bulk, idempotent
// inserts and best-effort deletes of (firstId, type, secondId) edges.
// Grounded on beads' preload-then-diff pattern in
// internal/storage/dolt/queries.go, which loads existing rows into memory
// before deciding what to write rather than issuing one query per
// candidate row.
package relate

import (
	"context"

	"github.com/localcontacts/contactwriter/internal/model"
	"github.com/localcontacts/contactwriter/internal/storage"
	"github.com/localcontacts/contactwriter/internal/werr"
)

// Save inserts every relationship in rels that isn't already present
// (either already in the store, per the existingEdges preload, or a duplicate
// earlier in rels) and isn't invalid. errs maps the index of any rejected
// entry in rels to why it was rejected; entries with no error were
// persisted (or silently deduped, which is not an error).
//
// A relationship is rejected if either endpoint is the zero id, the two
// endpoints are equal, or either endpoint doesn't name a contact that
// actually exists in the store. This module's ids are opaque ints rather
// than cross-provider URIs, so there's no separate "foreign manager"
// check distinct from "not present in the contacts table" -- both
// collapse to the same existence test here.
func Save(ctx context.Context, tx storage.Transaction, rels []model.Relationship) (map[int]error, error) {
	existingIDs, err := tx.ExistingContactIDs(ctx)
	if err != nil {
		return nil, err
	}
	existingEdges, err := tx.ExistingRelationships(ctx)
	if err != nil {
		return nil, err
	}

	errs := make(map[int]error)
	var toInsert []model.Relationship
	for i, rel := range rels {
		if rel.FirstID == model.NoID || rel.SecondID == model.NoID || rel.FirstID == rel.SecondID {
			errs[i] = werr.InvalidRelationship("relationship endpoints must be distinct, nonzero contact ids")
			continue
		}
		if !existingIDs[rel.FirstID] || !existingIDs[rel.SecondID] {
			errs[i] = werr.InvalidRelationship("relationship endpoint does not name an existing contact")
			continue
		}
		if hasEdge(existingEdges, rel) {
			continue
		}
		toInsert = append(toInsert, rel)
		existingEdges[rel.FirstID] = append(existingEdges[rel.FirstID], storage.RelationshipEdge{Type: rel.Type, SecondID: rel.SecondID})
	}

	if len(toInsert) > 0 {
		if err := tx.InsertRelationships(ctx, toInsert); err != nil {
			return nil, err
		}
	}
	return errs, nil
}

func hasEdge(edges map[model.ID][]storage.RelationshipEdge, rel model.Relationship) bool {
	for _, e := range edges[rel.FirstID] {
		if e.Type == rel.Type && e.SecondID == rel.SecondID {
			return true
		}
	}
	return false
}

// Remove deletes every relationship in rels, best-effort: one missing or
// failing entry doesn't stop the rest. errs maps the index of any entry
// that didn't end in a successful delete to why (ErrDoesNotExist if it
// was never there, ErrUnspecified if the store itself failed). A
// duplicate entry later in rels than an already-processed one is skipped
// without error once the first occurrence has been handled.
func Remove(ctx context.Context, tx storage.Transaction, rels []model.Relationship) map[int]error {
	errs := make(map[int]error)
	handled := make(map[model.Relationship]bool)
	for i, rel := range rels {
		if handled[rel] {
			continue
		}
		handled[rel] = true
		existed, err := tx.DeleteRelationship(ctx, rel)
		if err != nil {
			errs[i] = werr.Wrap("delete relationship", err)
			continue
		}
		if !existed {
			errs[i] = werr.DoesNotExist("relationship")
		}
	}
	return errs
}
