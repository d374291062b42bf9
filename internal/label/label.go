// Package label supplies the default display-label regenerator consumed
// by internal/writer whenever a contact's Name or organization details
// change. Injectable for the same reason internal/phone's normalizer is:
// callers may prefer a locale-specific "Last, First" formatter without
// forking the write path.
package label

import "github.com/localcontacts/contactwriter/internal/model"

// Regenerator derives a contact's display label from its current details.
type Regenerator func(c model.Contact) string

// Default prefers an explicit custom label, then "First Last", then the
// first organization name, then falls back to empty. The header Name
// mirror covers contacts carrying no Name detail, such as a freshly
// synthesized local constituent.
func Default(c model.Contact) string {
	nameFields := c.Name
	if name, ok := c.UniqueDetail(model.KindName); ok {
		if f, ok := name.Fields.(model.NameFields); ok {
			nameFields = f
		}
	}
	if nameFields.CustomLabel != "" {
		return nameFields.CustomLabel
	}
	if joined := joinNonEmpty(" ", nameFields.First, nameFields.Last); joined != "" {
		return joined
	}
	for _, d := range c.DetailsOfKind(model.KindOrganization) {
		if f, ok := d.Fields.(model.OrganizationFields); ok && f.Name != "" {
			return f.Name
		}
	}
	return ""
}

func joinNonEmpty(sep string, parts ...string) string {
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	out := ""
	for i, p := range nonEmpty {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}
