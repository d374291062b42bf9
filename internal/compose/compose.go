// Package compose implements the promote/demote rules that keep an
// aggregate contact's details in sync with its constituents. Grounded on
// beads' dynamic WHERE-clause assembly in
// internal/storage/dolt/queries.go, generalized from "build a query from
// independent predicates" to "build a detail set from independent
// per-kind composition rules".
package compose

import (
	"fmt"
	"os"

	"github.com/localcontacts/contactwriter/internal/model"
)

// PromoteToAggregate folds constituent's details onto aggregate in place,
// skipping unpromoted kinds and anything mask excludes. Unique kinds are
// composed field-by-field; multi kinds are appended if no equivalent
// already exists, with URIs rewritten for the aggregate's namespace and,
// when constituent isn't itself local, access constraints applied so the
// aggregate's copy can't be edited or removed directly.
func PromoteToAggregate(constituent model.Contact, aggregate *model.Contact, mask model.KindMask) {
	for _, d := range constituent.Details {
		if d.Kind.IsUnpromoted() || !mask.Allows(d.Kind) {
			continue
		}
		if d.Kind == model.KindGlobalPresence {
			// Derived independently per contact by internal/presence; never
			// flows from a constituent onto its aggregate.
			continue
		}
		if d.Kind.IsUnique() {
			composeUnique(aggregate, d)
			continue
		}
		composeMulti(constituent, aggregate, d)
	}
}

func composeUnique(aggregate *model.Contact, d model.Detail) {
	switch d.Kind {
	case model.KindName:
		composeName(aggregate, d)
	case model.KindTimestamp:
		composeTimestamp(aggregate, d)
	case model.KindGender:
		composeIfEmpty(aggregate, d, func(f model.Fields) bool {
			v, _ := f.(model.GenderFields)
			return v.Value == ""
		})
	case model.KindFavorite:
		composeIfEmpty(aggregate, d, func(f model.Fields) bool {
			v, _ := f.(model.FavoriteFields)
			return !v.Value
		})
	}
}

func composeName(aggregate *model.Contact, d model.Detail) {
	incoming, ok := d.Fields.(model.NameFields)
	if !ok {
		return
	}
	idx := findUniqueIndex(aggregate, model.KindName)
	if idx == -1 {
		d.Constraints = model.ConstraintNone
		aggregate.Details = append(aggregate.Details, d)
		return
	}
	current, _ := aggregate.Details[idx].Fields.(model.NameFields)
	current.First = firstNonEmpty(current.First, incoming.First)
	current.Last = firstNonEmpty(current.Last, incoming.Last)
	current.Middle = firstNonEmpty(current.Middle, incoming.Middle)
	current.Prefix = firstNonEmpty(current.Prefix, incoming.Prefix)
	current.Suffix = firstNonEmpty(current.Suffix, incoming.Suffix)
	current.CustomLabel = firstNonEmpty(current.CustomLabel, incoming.CustomLabel)
	aggregate.Details[idx].Fields = current
}

func composeTimestamp(aggregate *model.Contact, d model.Detail) {
	incoming, ok := d.Fields.(model.TimestampFields)
	if !ok {
		return
	}
	idx := findUniqueIndex(aggregate, model.KindTimestamp)
	if idx == -1 {
		d.Constraints = model.ConstraintNone
		aggregate.Details = append(aggregate.Details, d)
		return
	}
	current, _ := aggregate.Details[idx].Fields.(model.TimestampFields)
	if current.Created.IsZero() {
		current.Created = incoming.Created
	}
	if incoming.LastModified.After(current.LastModified) {
		current.LastModified = incoming.LastModified
	}
	aggregate.Details[idx].Fields = current
}

func composeIfEmpty(aggregate *model.Contact, d model.Detail, isEmpty func(model.Fields) bool) {
	idx := findUniqueIndex(aggregate, d.Kind)
	if idx == -1 {
		d.Constraints = model.ConstraintNone
		aggregate.Details = append(aggregate.Details, d)
		return
	}
	if isEmpty(aggregate.Details[idx].Fields) {
		aggregate.Details[idx].Fields = d.Fields
	}
}

func composeMulti(constituent model.Contact, aggregate *model.Contact, d model.Detail) {
	rewritten := d.RewriteURIsForAggregate()
	if model.ContainsEquivalent(aggregate.Details, rewritten) {
		return
	}
	if constituent.SyncTarget != model.SyncTargetLocal && constituent.SyncTarget != "" {
		rewritten.Constraints |= model.ConstraintReadOnly | model.ConstraintIrremovable
	}
	aggregate.Details = append(aggregate.Details, rewritten)
}

// DemoteToLocal replays an aggregate-level edit back onto a constituent:
// addDelta entries are applied (unique kinds replace the corresponding
// field outright; multi kinds are appended, with the aggregate: URI
// prefix stripped, unless an equivalent detail already exists on local)
// and remDelta entries are removed from local.
//
// Multi-kind additions are suppressed only when an equivalent detail is
// already present on local. Whether the detail existed on the stored
// aggregate before the edit is not consulted, so a detail newly added at
// the aggregate level (a new nickname, say) flows down to local.
func DemoteToLocal(local *model.Contact, addDelta, remDelta []model.Detail) {
	for _, d := range remDelta {
		if d.Kind.IsUnpromoted() {
			continue
		}
		removeEquivalent(local, d)
	}
	for _, d := range addDelta {
		if d.Kind.IsUnpromoted() {
			continue
		}
		if d.Kind.IsUnique() {
			replaceUnique(local, d)
			continue
		}
		stripped := d.StripAggregateURIPrefix()
		if model.ContainsEquivalent(local.Details, stripped) {
			continue
		}
		local.Details = append(local.Details, stripped)
	}
}

func replaceUnique(local *model.Contact, d model.Detail) {
	idx := findUniqueIndex(local, d.Kind)
	if idx == -1 {
		local.Details = append(local.Details, d)
		return
	}
	local.Details[idx] = d
}

func removeEquivalent(local *model.Contact, d model.Detail) {
	for i, existing := range local.Details {
		if model.Equivalent(existing, d) {
			local.Details = append(local.Details[:i], local.Details[i+1:]...)
			return
		}
	}
	fmt.Fprintf(os.Stderr, "compose: remove-delta detail %s not found on local contact, ignoring\n", d.Kind)
}

func findUniqueIndex(c *model.Contact, k model.Kind) int {
	for i, d := range c.Details {
		if d.Kind == k {
			return i
		}
	}
	return -1
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
