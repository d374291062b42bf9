package compose_test

import (
	"testing"
	"time"

	"github.com/localcontacts/contactwriter/internal/compose"
	"github.com/localcontacts/contactwriter/internal/model"
)

func TestPromoteToAggregateFillsEmptyNameFields(t *testing.T) {
	constituent := model.Contact{
		SyncTarget: model.SyncTargetLocal,
		Details: []model.Detail{
			{Kind: model.KindName, Fields: model.NameFields{First: "Jane", Last: "Doe", Middle: "Q"}},
		},
	}
	aggregate := model.Contact{
		SyncTarget: model.SyncTargetAggregate,
		Details: []model.Detail{
			{Kind: model.KindName, Fields: model.NameFields{First: "Jane"}},
		},
	}
	compose.PromoteToAggregate(constituent, &aggregate, nil)
	name, ok := aggregate.UniqueDetail(model.KindName)
	if !ok {
		t.Fatalf("expected a Name detail on the aggregate")
	}
	got := name.Fields.(model.NameFields)
	if got.First != "Jane" || got.Last != "Doe" || got.Middle != "Q" {
		t.Fatalf("got %+v, want composed name filling empty fields only", got)
	}
}

func TestPromoteToAggregateNeverOverwritesExistingField(t *testing.T) {
	constituent := model.Contact{Details: []model.Detail{
		{Kind: model.KindName, Fields: model.NameFields{Last: "Smith"}},
	}}
	aggregate := model.Contact{Details: []model.Detail{
		{Kind: model.KindName, Fields: model.NameFields{Last: "Doe"}},
	}}
	compose.PromoteToAggregate(constituent, &aggregate, nil)
	name, _ := aggregate.UniqueDetail(model.KindName)
	if got := name.Fields.(model.NameFields).Last; got != "Doe" {
		t.Fatalf("got last name %q, want existing aggregate value preserved", got)
	}
}

func TestPromoteToAggregateTimestampOnlyAdvances(t *testing.T) {
	earlier := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	later := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)

	aggregate := model.Contact{Details: []model.Detail{
		{Kind: model.KindTimestamp, Fields: model.TimestampFields{Created: earlier, LastModified: later}},
	}}
	olderConstituent := model.Contact{Details: []model.Detail{
		{Kind: model.KindTimestamp, Fields: model.TimestampFields{Created: earlier, LastModified: earlier}},
	}}
	compose.PromoteToAggregate(olderConstituent, &aggregate, nil)
	ts, _ := aggregate.UniqueDetail(model.KindTimestamp)
	if got := ts.Fields.(model.TimestampFields).LastModified; !got.Equal(later) {
		t.Fatalf("older constituent timestamp should not move LastModified backward, got %v", got)
	}

	newerConstituent := model.Contact{Details: []model.Detail{
		{Kind: model.KindTimestamp, Fields: model.TimestampFields{Created: earlier, LastModified: later.AddDate(1, 0, 0)}},
	}}
	compose.PromoteToAggregate(newerConstituent, &aggregate, nil)
	ts, _ = aggregate.UniqueDetail(model.KindTimestamp)
	if got := ts.Fields.(model.TimestampFields).LastModified; !got.Equal(later.AddDate(1, 0, 0)) {
		t.Fatalf("newer constituent timestamp should advance LastModified, got %v", got)
	}
}

func TestPromoteToAggregateSkipsUnpromotedKinds(t *testing.T) {
	constituent := model.Contact{
		SyncTarget: "carddav",
		Details: []model.Detail{
			{Kind: model.KindGuid, Fields: model.GuidFields{Guid: "provider-guid-1"}},
			{Kind: model.KindSyncTarget, Fields: model.SyncTargetFields{Value: "carddav"}},
		},
	}
	var aggregate model.Contact
	compose.PromoteToAggregate(constituent, &aggregate, nil)
	if len(aggregate.Details) != 0 {
		t.Fatalf("expected unpromoted kinds to be skipped entirely, got %+v", aggregate.Details)
	}
}

func TestPromoteToAggregateDuplicatesMultiDetailWithRewrittenURI(t *testing.T) {
	constituent := model.Contact{
		SyncTarget: "carddav",
		Details: []model.Detail{
			{Kind: model.KindNickname, URI: "nick-1", Fields: model.NicknameFields{Nickname: "JD"}},
		},
	}
	var aggregate model.Contact
	compose.PromoteToAggregate(constituent, &aggregate, nil)
	if len(aggregate.Details) != 1 {
		t.Fatalf("expected one duplicated detail, got %d", len(aggregate.Details))
	}
	got := aggregate.Details[0]
	if got.URI != "aggregate:nick-1" {
		t.Fatalf("got URI %q, want aggregate:nick-1", got.URI)
	}
	if !got.Constraints.Has(model.ConstraintReadOnly) || !got.Constraints.Has(model.ConstraintIrremovable) {
		t.Fatalf("expected a non-local constituent's promoted detail to be read-only+irremovable, got %v", got.Constraints)
	}
}

func TestPromoteToAggregateLocalDetailNotConstrained(t *testing.T) {
	constituent := model.Contact{
		SyncTarget: model.SyncTargetLocal,
		Details: []model.Detail{
			{Kind: model.KindNickname, Fields: model.NicknameFields{Nickname: "JD"}},
		},
	}
	var aggregate model.Contact
	compose.PromoteToAggregate(constituent, &aggregate, nil)
	if aggregate.Details[0].Constraints != model.ConstraintNone {
		t.Fatalf("expected local constituent's detail to carry no constraints, got %v", aggregate.Details[0].Constraints)
	}
}

func TestPromoteToAggregateSuppressesEquivalentMultiDetail(t *testing.T) {
	aggregate := model.Contact{Details: []model.Detail{
		{Kind: model.KindNickname, URI: "aggregate:nick-1", Fields: model.NicknameFields{Nickname: "JD"}},
	}}
	constituent := model.Contact{
		SyncTarget: model.SyncTargetLocal,
		Details: []model.Detail{
			{Kind: model.KindNickname, Fields: model.NicknameFields{Nickname: "JD"}},
		},
	}
	compose.PromoteToAggregate(constituent, &aggregate, nil)
	if len(aggregate.Details) != 1 {
		t.Fatalf("expected equivalent detail not to be duplicated, got %d details", len(aggregate.Details))
	}
}

func TestPromoteToAggregateRespectsMask(t *testing.T) {
	constituent := model.Contact{Details: []model.Detail{
		{Kind: model.KindNickname, Fields: model.NicknameFields{Nickname: "JD"}},
		{Kind: model.KindHobby, Fields: model.HobbyFields{Hobby: "chess"}},
	}}
	var aggregate model.Contact
	mask := model.NewKindMask(model.KindNickname)
	compose.PromoteToAggregate(constituent, &aggregate, mask)
	if len(aggregate.Details) != 1 || aggregate.Details[0].Kind != model.KindNickname {
		t.Fatalf("expected only masked kind to compose, got %+v", aggregate.Details)
	}
}

func TestDemoteToLocalAppliesAddAndRemoveDeltas(t *testing.T) {
	local := model.Contact{
		SyncTarget: model.SyncTargetLocal,
		Details: []model.Detail{
			{Kind: model.KindHobby, Fields: model.HobbyFields{Hobby: "chess"}},
		},
	}
	add := []model.Detail{
		{Kind: model.KindNickname, URI: "aggregate:nick-1", Fields: model.NicknameFields{Nickname: "JD"}},
	}
	rem := []model.Detail{
		{Kind: model.KindHobby, Fields: model.HobbyFields{Hobby: "chess"}},
	}
	compose.DemoteToLocal(&local, add, rem)

	if len(local.Details) != 1 {
		t.Fatalf("got %d details, want 1 (hobby removed, nickname added)", len(local.Details))
	}
	got := local.Details[0]
	if got.Kind != model.KindNickname || got.URI != "nick-1" {
		t.Fatalf("got %+v, want demoted nickname with aggregate: prefix stripped", got)
	}
}

func TestDemoteToLocalSuppressesAlreadyPresentDetail(t *testing.T) {
	local := model.Contact{Details: []model.Detail{
		{Kind: model.KindNickname, Fields: model.NicknameFields{Nickname: "JD"}},
	}}
	add := []model.Detail{
		{Kind: model.KindNickname, URI: "aggregate:nick-1", Fields: model.NicknameFields{Nickname: "JD"}},
	}
	compose.DemoteToLocal(&local, add, nil)
	if len(local.Details) != 1 {
		t.Fatalf("expected no duplicate nickname, got %d details", len(local.Details))
	}
}

func TestDemoteToLocalReplacesUniqueField(t *testing.T) {
	local := model.Contact{Details: []model.Detail{
		{Kind: model.KindGender, Fields: model.GenderFields{Value: "unspecified"}},
	}}
	add := []model.Detail{
		{Kind: model.KindGender, Fields: model.GenderFields{Value: "female"}},
	}
	compose.DemoteToLocal(&local, add, nil)
	g, ok := local.UniqueDetail(model.KindGender)
	if !ok || g.Fields.(model.GenderFields).Value != "female" {
		t.Fatalf("expected unique detail to be replaced outright, got %+v", g)
	}
}

func TestDemoteToLocalSkipsUnpromotedKinds(t *testing.T) {
	local := model.Contact{}
	add := []model.Detail{
		{Kind: model.KindGuid, Fields: model.GuidFields{Guid: "x"}},
	}
	compose.DemoteToLocal(&local, add, nil)
	if len(local.Details) != 0 {
		t.Fatalf("expected unpromoted kind never to demote, got %+v", local.Details)
	}
}
