// Package storage defines the boundary-facing interfaces the write path
// depends on. The sole implementation lives in internal/storage/sqlite;
// the interface exists so internal/coordinator, internal/relate and
// internal/writer depend on a contract rather than a concrete driver,
// mirroring the storage.Transaction / storage.Storage split beads uses to
// keep its Dolt and ephemeral backends interchangeable.
package storage

import (
	"context"
	"time"

	"github.com/localcontacts/contactwriter/internal/model"
)

// ContactHeader is the scalar row bound to the Contacts table.
type ContactHeader struct {
	DisplayLabel string
	Name         model.NameFields
	SyncTarget   model.SyncTarget
	Created      time.Time
	Modified     time.Time
	Gender       string
	Favorite     bool
}

// RelationshipEdge is one persisted (type, secondId) pair hanging off a
// firstId, as used by the relationship store's in-memory existing-set
// cache.
type RelationshipEdge struct {
	Type     model.RelationType
	SecondID model.ID
}

// Transaction is the row-codec surface a single write transaction
// exposes to the relationship store and write orchestrator. It
// never begins, commits or rolls back itself -- that is the transaction
// coordinator's job; Transaction only binds domain values to
// parametrized statements within whatever transaction is already open.
type Transaction interface {
	// InsertContactHeader inserts a new Contacts row and returns its
	// external id.
	InsertContactHeader(ctx context.Context, h ContactHeader) (model.ID, error)
	// UpdateContactHeader rewrites an existing Contacts row.
	UpdateContactHeader(ctx context.Context, id model.ID, h ContactHeader) error
	// DeleteContactHeader removes a Contacts row (and, via ON DELETE
	// CASCADE, its detail/relationship rows).
	DeleteContactHeader(ctx context.Context, id model.ID) error
	// ContactSyncTarget returns the stored sync-target for id, or ok=false
	// if no such contact exists.
	ContactSyncTarget(ctx context.Context, id model.ID) (target model.SyncTarget, ok bool, err error)
	// ExistingContactIDs returns every contact id currently in the store.
	ExistingContactIDs(ctx context.Context) (map[model.ID]bool, error)

	// WriteDetails replaces every stored detail of kind k for contactId
	// with details, in order. An empty details slice just clears the
	// kind's rows.
	WriteDetails(ctx context.Context, contactID model.ID, k model.Kind, details []model.Detail) error
	// ClearDetails deletes every stored detail of kind k for contactId
	// without writing replacements.
	ClearDetails(ctx context.Context, contactID model.ID, k model.Kind) error
	// ReadDetails loads every stored detail of kind k for contactId, in
	// the order they were written.
	ReadDetails(ctx context.Context, contactID model.ID, k model.Kind) ([]model.Detail, error)
	// ReadAllDetails loads every stored detail (any kind) for contactId.
	ReadAllDetails(ctx context.Context, contactID model.ID) ([]model.Detail, error)
	// ReadHeader loads the scalar header for contactID.
	ReadHeader(ctx context.Context, contactID model.ID) (ContactHeader, bool, error)

	// InsertRelationships bulk-inserts relationships already known not to
	// collide with existing rows (the relationship store dedupes before
	// calling this).
	InsertRelationships(ctx context.Context, rels []model.Relationship) error
	// ExistingRelationships preloads the full relationship set as a
	// firstId -> edges multimap.
	ExistingRelationships(ctx context.Context) (map[model.ID][]RelationshipEdge, error)
	// DeleteRelationship removes one relationship triple, reporting
	// whether it existed.
	DeleteRelationship(ctx context.Context, rel model.Relationship) (existed bool, err error)
	// AggregatesWithoutEdges returns aggregate contact ids with zero
	// outgoing Aggregates edges (the orphan sweep during removal).
	AggregatesWithoutEdges(ctx context.Context) ([]model.ID, error)
	// ConstituentsOf returns the constituent ids an aggregate's Aggregates
	// edges point at.
	ConstituentsOf(ctx context.Context, aggregateID model.ID) ([]model.ID, error)
	// AggregatesOf returns the aggregate id(s) with an Aggregates edge
	// pointing at constituentID. Normally at most one.
	AggregatesOf(ctx context.Context, constituentID model.ID) ([]model.ID, error)
	// HasIsNotEdge reports whether an IsNot relationship exists between a
	// and b in either direction.
	HasIsNotEdge(ctx context.Context, a, b model.ID) (bool, error)

	// SetIdentity upserts (or, if id is NoID, deletes) an identity slot.
	SetIdentity(ctx context.Context, kind model.IdentityKind, id model.ID) error
	// GetIdentity reads an identity slot.
	GetIdentity(ctx context.Context, kind model.IdentityKind) (model.ID, bool, error)
}

// Beginner opens transactions. internal/coordinator depends on this rather
// than *sql.DB directly so it can be exercised against a fake in tests.
type Beginner interface {
	BeginTx(ctx context.Context) (Transaction, Committer, error)
}

// Committer is the commit/rollback half of a transaction, kept separate
// from Transaction so the coordinator -- not row-codec callers -- decides
// when the transaction's lifetime ends.
type Committer interface {
	Commit() error
	Rollback() error
}
