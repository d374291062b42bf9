package model_test

import (
	"testing"

	"github.com/localcontacts/contactwriter/internal/model"
)

func TestEquivalentIgnoresConstraints(t *testing.T) {
	a := model.Detail{Kind: model.KindPhoneNumber, Fields: model.PhoneNumberFields{PhoneNumber: "+15550100"}}
	b := model.Detail{
		Kind:        model.KindPhoneNumber,
		Fields:      model.PhoneNumberFields{PhoneNumber: "+15550100"},
		Constraints: model.ConstraintReadOnly | model.ConstraintIrremovable,
		URI:         "aggregate:phone-1",
	}
	if !model.Equivalent(a, b) {
		t.Fatalf("expected details to be equivalent ignoring constraints/uri")
	}
}

func TestEquivalentRequiresSameKind(t *testing.T) {
	a := model.Detail{Kind: model.KindEmailAddress, Fields: model.EmailAddressFields{EmailAddress: "a@example.com"}}
	b := model.Detail{Kind: model.KindNote, Fields: model.NoteFields{Note: "a@example.com"}}
	if model.Equivalent(a, b) {
		t.Fatalf("expected details of differing kinds never to be equivalent")
	}
}

func TestEquivalentRequiresEqualValue(t *testing.T) {
	a := model.Detail{Kind: model.KindEmailAddress, Fields: model.EmailAddressFields{EmailAddress: "a@example.com"}}
	b := model.Detail{Kind: model.KindEmailAddress, Fields: model.EmailAddressFields{EmailAddress: "b@example.com"}}
	if model.Equivalent(a, b) {
		t.Fatalf("expected differing values not to be equivalent")
	}
}

func TestRewriteAndStripURIPrefixRoundTrip(t *testing.T) {
	d := model.Detail{URI: "phone-1", LinkedURIs: []string{"email-1", ""}}
	rewritten := d.RewriteURIsForAggregate()
	if rewritten.URI != "aggregate:phone-1" {
		t.Fatalf("got URI %q, want aggregate:phone-1", rewritten.URI)
	}
	if rewritten.LinkedURIs[0] != "aggregate:email-1" || rewritten.LinkedURIs[1] != "" {
		t.Fatalf("got linked uris %v", rewritten.LinkedURIs)
	}
	stripped := rewritten.StripAggregateURIPrefix()
	if stripped.URI != d.URI || stripped.LinkedURIs[0] != d.LinkedURIs[0] {
		t.Fatalf("round trip mismatch: got %+v, want %+v", stripped, d)
	}
}

func TestKindMaskEmptyAllowsEverything(t *testing.T) {
	var mask model.KindMask
	if !mask.Allows(model.KindNote) {
		t.Fatalf("nil mask should allow every kind")
	}
	mask = model.NewKindMask()
	if !mask.Allows(model.KindNote) {
		t.Fatalf("mask built from zero kinds should allow every kind")
	}
}

func TestKindMaskRestricts(t *testing.T) {
	mask := model.NewKindMask(model.KindPhoneNumber, model.KindEmailAddress)
	if !mask.Allows(model.KindPhoneNumber) {
		t.Fatalf("mask should allow listed kind")
	}
	if mask.Allows(model.KindNote) {
		t.Fatalf("mask should reject unlisted kind")
	}
}

func TestUniqueAndMultiClassification(t *testing.T) {
	uniqueKinds := []model.Kind{model.KindName, model.KindTimestamp, model.KindGender,
		model.KindFavorite, model.KindSyncTarget, model.KindDisplayLabel, model.KindType, model.KindGlobalPresence}
	for _, k := range uniqueKinds {
		if !k.IsUnique() {
			t.Errorf("expected %s to be a unique kind", k)
		}
		if k.IsMulti() {
			t.Errorf("expected %s not to be classified as multi", k)
		}
	}
	if !model.KindPhoneNumber.IsMulti() {
		t.Fatalf("expected PhoneNumber to be a multi kind")
	}
}

func TestUnpromotedKinds(t *testing.T) {
	for _, k := range []model.Kind{model.KindSyncTarget, model.KindGuid, model.KindType, model.KindDisplayLabel} {
		if !k.IsUnpromoted() {
			t.Errorf("expected %s to be unpromoted", k)
		}
	}
	if model.KindNickname.IsUnpromoted() {
		t.Fatalf("expected Nickname to promote normally")
	}
}
