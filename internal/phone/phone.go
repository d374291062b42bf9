// Package phone supplies the default phone-number normalizer consumed by
// internal/writer when persisting PhoneNumberFields. Kept as an injectable
// function type, not a hardwired call, so callers can swap in a
// locale-aware normalizer without touching the write path -- the same
// seam beads uses for its pluggable ref-name formatter in
// internal/storage/dolt.
package phone

import "strings"

// Normalizer reduces a raw phone number string to a canonical comparable
// form.
type Normalizer func(raw string) string

// Normalize strips everything but digits and a single leading '+'.
func Normalize(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}
