// Package identity is a thin wrapper over storage.Transaction's identity
// slots: named, at-most-one-contact bindings such as "which contact
// is the device owner". Grounded on beads' small single-purpose
// wrapper packages around storage.Transaction methods (see
// internal/storage/dolt's query helpers), kept separate from the write
// orchestrator so it can be called outside a write (e.g. a lookup-only
// CLI command) without pulling in the rest of the write orchestrator.
package identity

import (
	"context"

	"github.com/localcontacts/contactwriter/internal/model"
	"github.com/localcontacts/contactwriter/internal/storage"
)

// Set binds kind to id. Passing model.NoID clears the slot.
func Set(ctx context.Context, tx storage.Transaction, kind model.IdentityKind, id model.ID) error {
	return tx.SetIdentity(ctx, kind, id)
}

// Get reads kind's bound contact id, if any.
func Get(ctx context.Context, tx storage.Transaction, kind model.IdentityKind) (model.ID, bool, error) {
	return tx.GetIdentity(ctx, kind)
}

// SelfContact is a convenience wrapper around Get for the one identity
// kind this module's callers rely on by name.
func SelfContact(ctx context.Context, tx storage.Transaction) (model.ID, bool, error) {
	return Get(ctx, tx, model.IdentitySelfContact)
}
