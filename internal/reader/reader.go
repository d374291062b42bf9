// Package reader assembles whole model.Contact values from a
// storage.Transaction. It plays the role of the narrow read-only
// collaborator the write path consults for matching and regeneration,
// implemented directly against storage.Transaction since both sides share
// the one open transaction (beads' internal/storage/dolt queries
// follow the same in-transaction-read shape in queries.go).
package reader

import (
	"context"
	"sort"

	"github.com/localcontacts/contactwriter/internal/model"
	"github.com/localcontacts/contactwriter/internal/storage"
)

// Reader reads fully-assembled contacts back out of a transaction.
type Reader interface {
	ReadByID(ctx context.Context, tx storage.Transaction, id model.ID, mask model.KindMask) (model.Contact, bool, error)
	ReadAllAggregates(ctx context.Context, tx storage.Transaction, mask model.KindMask) ([]model.Contact, error)
}

// TxReader is the default Reader, reading straight through whatever
// transaction it's handed.
type TxReader struct{}

// New returns the default reader.
func New() TxReader { return TxReader{} }

// ReadByID loads a contact's header and details. ok is false if no header
// row exists for id.
func (TxReader) ReadByID(ctx context.Context, tx storage.Transaction, id model.ID, mask model.KindMask) (model.Contact, bool, error) {
	header, ok, err := tx.ReadHeader(ctx, id)
	if err != nil {
		return model.Contact{}, false, err
	}
	if !ok {
		return model.Contact{}, false, nil
	}
	details, err := tx.ReadAllDetails(ctx, id)
	if err != nil {
		return model.Contact{}, false, err
	}
	details = filterByMask(details, mask)
	return assemble(id, header, details), true, nil
}

// ReadAllAggregates loads every contact whose SyncTarget is the aggregate
// marker, with details pruned by mask. Results are ordered by ascending id
// so the matcher's "first candidate at or above threshold" scan is
// deterministic.
func (TxReader) ReadAllAggregates(ctx context.Context, tx storage.Transaction, mask model.KindMask) ([]model.Contact, error) {
	existing, err := tx.ExistingContactIDs(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]model.ID, 0, len(existing))
	for id := range existing {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []model.Contact
	for _, id := range ids {
		target, ok, err := tx.ContactSyncTarget(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok || target != model.SyncTargetAggregate {
			continue
		}
		c, ok, err := TxReader{}.ReadByID(ctx, tx, id, mask)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func filterByMask(details []model.Detail, mask model.KindMask) []model.Detail {
	if mask == nil {
		return details
	}
	out := make([]model.Detail, 0, len(details))
	for _, d := range details {
		if mask.Allows(d.Kind) {
			out = append(out, d)
		}
	}
	return out
}

func assemble(id model.ID, header storage.ContactHeader, details []model.Detail) model.Contact {
	c := model.Contact{
		ID:           id,
		SyncTarget:   header.SyncTarget,
		DisplayLabel: header.DisplayLabel,
		Name:         header.Name,
		Created:      header.Created,
		Modified:     header.Modified,
		Gender:       header.Gender,
		Favorite:     header.Favorite,
		Details:      details,
	}
	return c
}
