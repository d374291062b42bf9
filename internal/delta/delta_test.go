package delta_test

import (
	"testing"
	"time"

	"github.com/localcontacts/contactwriter/internal/delta"
	"github.com/localcontacts/contactwriter/internal/model"
)

func TestCalculateNoDifferenceYieldsEmptyDeltas(t *testing.T) {
	details := []model.Detail{
		{Kind: model.KindNickname, Fields: model.NicknameFields{Nickname: "JD"}},
	}
	add, rem := delta.Calculate(details, details, nil)
	if len(add) != 0 || len(rem) != 0 {
		t.Fatalf("got add=%v rem=%v, want both empty", add, rem)
	}
}

func TestCalculateDetectsAddition(t *testing.T) {
	stored := []model.Detail{}
	newAgg := []model.Detail{
		{Kind: model.KindNickname, Fields: model.NicknameFields{Nickname: "JD"}},
	}
	add, rem := delta.Calculate(stored, newAgg, nil)
	if len(add) != 1 || len(rem) != 0 {
		t.Fatalf("got add=%v rem=%v, want one addition", add, rem)
	}
}

func TestCalculateDetectsRemoval(t *testing.T) {
	stored := []model.Detail{
		{Kind: model.KindNickname, Fields: model.NicknameFields{Nickname: "JD"}},
	}
	add, rem := delta.Calculate(stored, nil, nil)
	if len(add) != 0 || len(rem) != 1 {
		t.Fatalf("got add=%v rem=%v, want one removal", add, rem)
	}
}

func TestCalculateIgnoresAccessConstraints(t *testing.T) {
	stored := []model.Detail{
		{Kind: model.KindNickname, Fields: model.NicknameFields{Nickname: "JD"}, Constraints: model.ConstraintReadOnly},
	}
	newAgg := []model.Detail{
		{Kind: model.KindNickname, Fields: model.NicknameFields{Nickname: "JD"}},
	}
	add, rem := delta.Calculate(stored, newAgg, nil)
	if len(add) != 0 || len(rem) != 0 {
		t.Fatalf("got add=%v rem=%v, want constraints-only difference to be a no-op", add, rem)
	}
}

func TestCalculateEliminatesSupersetAugmentation(t *testing.T) {
	// Stored timestamp has a Created field the new aggregate never set;
	// LastModified matches exactly. This should not read back as an edit.
	stored := []model.Detail{
		{Kind: model.KindTimestamp, Fields: model.TimestampFields{
			Created:      time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			LastModified: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		}},
	}
	newAgg := []model.Detail{
		{Kind: model.KindTimestamp, Fields: model.TimestampFields{
			LastModified: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		}},
	}
	add, rem := delta.Calculate(stored, newAgg, nil)
	if len(add) != 0 || len(rem) != 0 {
		t.Fatalf("got add=%v rem=%v, want superset augmentation eliminated", add, rem)
	}
}

func TestCalculateExcludesDisplayLabelAndType(t *testing.T) {
	stored := []model.Detail{
		{Kind: model.KindDisplayLabel, Fields: model.DisplayLabelFields{Label: "Old Label"}},
		{Kind: model.KindType, Fields: model.TypeFields{Value: "person"}},
	}
	newAgg := []model.Detail{
		{Kind: model.KindDisplayLabel, Fields: model.DisplayLabelFields{Label: "New Label"}},
		{Kind: model.KindType, Fields: model.TypeFields{Value: "group"}},
	}
	add, rem := delta.Calculate(stored, newAgg, nil)
	if len(add) != 0 || len(rem) != 0 {
		t.Fatalf("got add=%v rem=%v, want DisplayLabel/Type always excluded from deltas", add, rem)
	}
}

func TestCalculateAppliesMask(t *testing.T) {
	stored := []model.Detail{}
	newAgg := []model.Detail{
		{Kind: model.KindNickname, Fields: model.NicknameFields{Nickname: "JD"}},
		{Kind: model.KindHobby, Fields: model.HobbyFields{Hobby: "chess"}},
	}
	mask := model.NewKindMask(model.KindNickname)
	add, rem := delta.Calculate(stored, newAgg, mask)
	if len(rem) != 0 {
		t.Fatalf("unexpected removals: %v", rem)
	}
	if len(add) != 1 || add[0].Kind != model.KindNickname {
		t.Fatalf("got add=%v, want only the masked kind", add)
	}
}
