// Package match scores how likely a constituent contact is to belong to a
// candidate aggregate, as a pure 0..10 function the write orchestrator
// consults when deciding whether to attach to an existing aggregate or
// mint a new one. Grounded on beads' scored-candidate pattern in
// internal/storage/dolt/queries.go (building up a WHERE clause from
// independent predicates), generalized here to independent scoring
// deductions instead of SQL predicates.
package match

import (
	"strings"

	"github.com/localcontacts/contactwriter/internal/model"
)

// Threshold is the minimum score at which a constituent is considered to
// belong to a candidate aggregate. A var, not a const, so cmd/contactwriter
// can override it from configuration.
var Threshold = 7

// detailOutcome is the +1/0/-1 result of comparing one detail kind between
// two contacts.
type detailOutcome int

const (
	outcomeMismatch detailOutcome = -1
	outcomeNoData   detailOutcome = 0
	outcomeMatch    detailOutcome = 1
)

// Likelihood scores how likely constituent belongs to candidate, from 0
// (never) to 10 (certain). hasIsNot must be true iff an IsNot relationship
// exists between the two in either direction; the matcher itself never
// reads relationships.
func Likelihood(constituent, candidate model.Contact, hasIsNot bool) int {
	if hasIsNot {
		return 0
	}

	score := 10
	score += lastNameDeduction(constituent.Name, candidate.Name)
	score += firstNameDeduction(constituent.Name, candidate.Name)

	phone := detailMatch(constituent.DetailsOfKind(model.KindPhoneNumber), candidate.DetailsOfKind(model.KindPhoneNumber))
	email := detailMatch(constituent.DetailsOfKind(model.KindEmailAddress), candidate.DetailsOfKind(model.KindEmailAddress))
	account := detailMatch(constituent.DetailsOfKind(model.KindOnlineAccount), candidate.DetailsOfKind(model.KindOnlineAccount))
	score += int(account)

	switch {
	case phone == outcomeMatch:
		return clamp(score)
	case email == outcomeMatch:
		return clamp(score)
	}

	if phone == outcomeNoData && email == outcomeNoData {
		score--
	}
	if phone == outcomeMismatch {
		score -= 2
	}
	if email == outcomeMismatch {
		score -= 2
	}
	return clamp(score)
}

func lastNameDeduction(a, b model.NameFields) int {
	switch {
	case a.Last != "" && b.Last != "":
		if strings.EqualFold(a.Last, b.Last) {
			return 0
		}
		return -6
	case a.Last == "" && b.Last == "":
		return 0
	default:
		return -2
	}
}

func firstNameDeduction(a, b model.NameFields) int {
	if a.First == "" || b.First == "" {
		return -3
	}
	if strings.EqualFold(a.First, b.First) {
		return 0
	}
	if isCaseInsensitivePrefix(a.First, b.First) || isCaseInsensitivePrefix(b.First, a.First) {
		return -1
	}
	return -3
}

func isCaseInsensitivePrefix(prefix, s string) bool {
	if len(prefix) == 0 || len(prefix) > len(s) {
		return false
	}
	return strings.EqualFold(prefix, s[:len(prefix)])
}

func detailMatch(a, b []model.Detail) detailOutcome {
	if len(a) == 0 || len(b) == 0 {
		return outcomeNoData
	}
	for _, da := range a {
		for _, db := range b {
			if model.Equivalent(da.WithoutConstraints(), db.WithoutConstraints()) {
				return outcomeMatch
			}
		}
	}
	return outcomeMismatch
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 10 {
		return 10
	}
	return score
}
