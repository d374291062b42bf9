// Package delta computes what changed between a newly-composed aggregate
// form and the one already in the store, so internal/compose can replay
// only the genuine edits back onto a constituent. Grounded on beads'
// diff-before-write pattern in internal/storage/dolt/queries.go
// (comparing a candidate row against the stored row before issuing an
// UPDATE), generalized here from single-row diffing to detail-set
// diffing with equivalence instead of column equality.
package delta

import (
	"reflect"

	"github.com/localcontacts/contactwriter/internal/model"
)

// Calculate returns the details added and removed going from stored to
// newAggregate: add is present in newAggregate but not stored, rem is
// present in stored but not newAggregate. DisplayLabel and Type are
// always excluded (they're unpromoted and regenerator/tag-owned, never
// user edits to replay). Both lists are further filtered by mask.
//
// Comparison ignores access constraints on both sides. After the direct
// equivalence elimination, a second pass drops any remaining pair of the
// same kind where every field the new side sets is matched by the stored
// side and the stored side carries additional non-empty fields beyond
// that -- the common case of a provider augmenting a record (e.g. filling
// in a Timestamp's Created field) that shouldn't read back as a user edit.
func Calculate(stored, newAggregate []model.Detail, mask model.KindMask) (add, rem []model.Detail) {
	newRemaining := stripConstraints(newAggregate)
	storedRemaining := stripConstraints(stored)

	newRemaining, storedRemaining = eliminateEquivalent(newRemaining, storedRemaining)
	newRemaining, storedRemaining = eliminateSupersets(newRemaining, storedRemaining)

	for _, d := range newRemaining {
		if d.Kind == model.KindDisplayLabel || d.Kind == model.KindType {
			continue
		}
		if !mask.Allows(d.Kind) {
			continue
		}
		add = append(add, d)
	}
	for _, d := range storedRemaining {
		if d.Kind == model.KindDisplayLabel || d.Kind == model.KindType {
			continue
		}
		if !mask.Allows(d.Kind) {
			continue
		}
		rem = append(rem, d)
	}
	return add, rem
}

func stripConstraints(details []model.Detail) []model.Detail {
	out := make([]model.Detail, len(details))
	for i, d := range details {
		out[i] = d.WithoutConstraints()
	}
	return out
}

func eliminateEquivalent(newDetails, storedDetails []model.Detail) (n, s []model.Detail) {
	storedUsed := make([]bool, len(storedDetails))
	var newRemaining []model.Detail
	for _, nd := range newDetails {
		matched := false
		for i, sd := range storedDetails {
			if storedUsed[i] {
				continue
			}
			if model.Equivalent(nd, sd) {
				storedUsed[i] = true
				matched = true
				break
			}
		}
		if !matched {
			newRemaining = append(newRemaining, nd)
		}
	}
	var storedRemaining []model.Detail
	for i, sd := range storedDetails {
		if !storedUsed[i] {
			storedRemaining = append(storedRemaining, sd)
		}
	}
	return newRemaining, storedRemaining
}

func eliminateSupersets(newDetails, storedDetails []model.Detail) (n, s []model.Detail) {
	storedUsed := make([]bool, len(storedDetails))
	newUsed := make([]bool, len(newDetails))
	for ni, nd := range newDetails {
		for si, sd := range storedDetails {
			if storedUsed[si] || nd.Kind != sd.Kind {
				continue
			}
			if isSupersetAugmentation(nd.Fields, sd.Fields) {
				newUsed[ni] = true
				storedUsed[si] = true
				break
			}
		}
	}
	var newRemaining, storedRemaining []model.Detail
	for i, d := range newDetails {
		if !newUsed[i] {
			newRemaining = append(newRemaining, d)
		}
	}
	for i, d := range storedDetails {
		if !storedUsed[i] {
			storedRemaining = append(storedRemaining, d)
		}
	}
	return newRemaining, storedRemaining
}

// isSupersetAugmentation reports whether stored carries every non-empty
// field new sets, plus at least one additional non-empty field new
// doesn't set.
func isSupersetAugmentation(newFields, storedFields model.Fields) bool {
	if newFields == nil || storedFields == nil {
		return false
	}
	nv := reflect.ValueOf(newFields)
	sv := reflect.ValueOf(storedFields)
	if nv.Type() != sv.Type() || nv.Kind() != reflect.Struct {
		return false
	}
	extra := false
	for i := 0; i < nv.NumField(); i++ {
		nf := nv.Field(i)
		sf := sv.Field(i)
		if nf.IsZero() {
			if !sf.IsZero() {
				extra = true
			}
			continue
		}
		if !reflect.DeepEqual(nf.Interface(), sf.Interface()) {
			return false
		}
	}
	return extra
}
