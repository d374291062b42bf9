package model

import "strings"

// Constraint is a bitmask of access restrictions carried by a Detail's
// envelope. Equivalence (Equivalent, below) deliberately ignores it.
type Constraint int

const (
	ConstraintNone        Constraint = 0
	ConstraintReadOnly    Constraint = 1 << 0
	ConstraintIrremovable Constraint = 1 << 1
)

// Has reports whether the given flag is set.
func (c Constraint) Has(flag Constraint) bool {
	return c&flag != 0
}

// Fields is implemented by every kind-specific field bundle (AddressFields,
// PhoneNumberFields, ...). It exists only to constrain Detail.Fields to a
// known, closed set of variants: a tagged sum rather than a class
// hierarchy.
type Fields interface {
	fieldsKind() Kind
	// equalValue compares the kind-specific value fields of two instances
	// of the same kind, ignoring envelope data (URI, contexts, ...).
	equalValue(other Fields) bool
}

// Detail is one tagged field-bundle attached to a Contact: an envelope
// (URI, linked URIs, contexts, access constraints) shared by every kind,
// plus a Fields value holding whatever that Kind actually carries.
type Detail struct {
	Kind        Kind
	URI         string
	LinkedURIs  []string
	Contexts    []string
	Constraints Constraint
	Fields      Fields
}

// Equivalent implements the equivalence rule from the data model: two
// details are equivalent iff their kind matches and their kind-specific
// value fields are equal. Access constraints, URIs, linked URIs and
// contexts are disregarded.
func Equivalent(a, b Detail) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Fields == nil || b.Fields == nil {
		return a.Fields == b.Fields
	}
	return a.Fields.equalValue(b.Fields)
}

// WithoutConstraints returns a copy of d with Constraints cleared. Used by
// the delta engine, which strips access-constraint flags before comparing.
func (d Detail) WithoutConstraints() Detail {
	d.Constraints = ConstraintNone
	return d
}

// ContainsEquivalent reports whether details contains a detail equivalent
// to d.
func ContainsEquivalent(details []Detail, d Detail) bool {
	for _, existing := range details {
		if Equivalent(existing, d) {
			return true
		}
	}
	return false
}

// RewriteURIsForAggregate returns a copy of d with its URI and linked URIs
// each prefixed with "aggregate:" (empty URIs are left empty), per the
// composer's promotion rule.
func (d Detail) RewriteURIsForAggregate() Detail {
	d.URI = prefixIfNonEmpty(d.URI, "aggregate:")
	if len(d.LinkedURIs) > 0 {
		rewritten := make([]string, len(d.LinkedURIs))
		for i, u := range d.LinkedURIs {
			rewritten[i] = prefixIfNonEmpty(u, "aggregate:")
		}
		d.LinkedURIs = rewritten
	}
	return d
}

// StripAggregateURIPrefix returns a copy of d with a leading "aggregate:"
// removed from its URI and linked URIs, the inverse of
// RewriteURIsForAggregate, used when demoting details back to a local
// constituent.
func (d Detail) StripAggregateURIPrefix() Detail {
	d.URI = strings.TrimPrefix(d.URI, "aggregate:")
	if len(d.LinkedURIs) > 0 {
		stripped := make([]string, len(d.LinkedURIs))
		for i, u := range d.LinkedURIs {
			stripped[i] = strings.TrimPrefix(u, "aggregate:")
		}
		d.LinkedURIs = stripped
	}
	return d
}

func prefixIfNonEmpty(s, prefix string) string {
	if s == "" {
		return s
	}
	return prefix + s
}
