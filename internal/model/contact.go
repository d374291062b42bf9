package model

import "time"

// SyncTarget tags which source owns a contact row. "local" and "aggregate"
// are reserved; anything else names a sync provider (a device's address
// book sync adapter, a telephony bridge, ...).
type SyncTarget string

const (
	SyncTargetLocal     SyncTarget = "local"
	SyncTargetAggregate SyncTarget = "aggregate"
)

// IsReserved reports whether t is one of the two reserved tags.
func (t SyncTarget) IsReserved() bool {
	return t == SyncTargetLocal || t == SyncTargetAggregate
}

// ID is an external, nonzero contact identifier. The store's underlying row
// ids are zero-based; internal/storage/sqlite is solely responsible for the
// "external = row + 1" translation, so ID never carries a
// zero-based value across that boundary.
type ID int64

// NoID is the reserved "no id" sentinel.
const NoID ID = 0

// Contact is a record identified by a stable nonzero local id, with a
// scalar header and a set of details.
type Contact struct {
	ID           ID
	DisplayLabel string
	Name         NameFields
	SyncTarget   SyncTarget
	Created      time.Time
	Modified     time.Time
	Gender       string
	Favorite     bool

	// Details holds every non-header detail attached to this contact,
	// including the Name/SyncTarget/Timestamp/Gender/Favorite/DisplayLabel
	// unique details mirrored above for convenience by internal/writer
	// when it assembles rows to persist. Callers populate Details; the
	// header fields above are derived/kept in sync by internal/writer.
	Details []Detail
}

// DetailsOfKind returns the subset of Details with the given kind, in
// input order.
func (c *Contact) DetailsOfKind(k Kind) []Detail {
	var out []Detail
	for _, d := range c.Details {
		if d.Kind == k {
			out = append(out, d)
		}
	}
	return out
}

// UniqueDetail returns the single detail of a unique kind, if present.
func (c *Contact) UniqueDetail(k Kind) (Detail, bool) {
	for _, d := range c.Details {
		if d.Kind == k {
			return d, true
		}
	}
	return Detail{}, false
}

// IsAggregate reports whether this contact is an aggregate (derived,
// composed from constituents) rather than a constituent.
func (c *Contact) IsAggregate() bool {
	return c.SyncTarget == SyncTargetAggregate
}

// SyncHeaderFromDetails copies the Name/Gender/Favorite unique details into
// their header-mirror fields. Details is the field callers and compose
// populate directly; internal/writer calls this once per write so the
// header mirrors (read by internal/match and the stored header row) never
// drift from what was actually written.
func (c *Contact) SyncHeaderFromDetails() {
	if d, ok := c.UniqueDetail(KindName); ok {
		if f, ok := d.Fields.(NameFields); ok {
			c.Name = f
		}
	}
	if d, ok := c.UniqueDetail(KindGender); ok {
		if f, ok := d.Fields.(GenderFields); ok {
			c.Gender = f.Value
		}
	}
	if d, ok := c.UniqueDetail(KindFavorite); ok {
		if f, ok := d.Fields.(FavoriteFields); ok {
			c.Favorite = f.Value
		}
	}
}

// RelationType tags the kind of a Relationship edge. "Aggregates" and
// "IsNot" are reserved; other values are not used by this module but are
// accepted and persisted opaquely.
type RelationType string

const (
	// RelationAggregates is the aggregate->constituent edge.
	RelationAggregates RelationType = "Aggregates"
	// RelationIsNot is a manual "do not merge" assertion.
	RelationIsNot RelationType = "IsNot"
)

// Relationship is a directed triple (FirstID, SecondID, Type). The set of
// relationships is unique on the full triple; self-relationships are
// forbidden.
type Relationship struct {
	FirstID  ID
	SecondID ID
	Type     RelationType
}

// IdentityKind names a distinguished, at-most-one-contact identity slot
// (e.g. "self").
type IdentityKind string

// IdentitySelfContact is the only identity kind this module's callers rely
// on, but the registry itself is kind-agnostic.
const IdentitySelfContact IdentityKind = "SelfContact"
