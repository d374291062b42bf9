package writer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/localcontacts/contactwriter/internal/coordinator"
	"github.com/localcontacts/contactwriter/internal/model"
	"github.com/localcontacts/contactwriter/internal/reader"
	"github.com/localcontacts/contactwriter/internal/storage/sqlite"
	"github.com/localcontacts/contactwriter/internal/werr"
	"github.com/localcontacts/contactwriter/internal/writer"
)

// capturingSink records every notification batch a test's coordinator
// publishes.
type capturingSink struct {
	added, changed, removed []model.ID
}

func (s *capturingSink) ContactsAdded(ids []model.ID)   { s.added = append(s.added, ids...) }
func (s *capturingSink) ContactsChanged(ids []model.ID) { s.changed = append(s.changed, ids...) }
func (s *capturingSink) ContactsRemoved(ids []model.ID) { s.removed = append(s.removed, ids...) }

type testEnv struct {
	store *sqlite.Store
	coord *coordinator.Coordinator
	w     *writer.Writer
	sink  *capturingSink
	rdr   reader.TxReader
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sink := &capturingSink{}
	coord := coordinator.New(store, sink)
	rdr := reader.New()
	w := writer.New(coord, rdr, nil, nil)
	return &testEnv{store: store, coord: coord, w: w, sink: sink, rdr: rdr}
}

func nameContact(syncTarget model.SyncTarget, first, last string, extra ...model.Detail) model.Contact {
	return model.Contact{
		SyncTarget: syncTarget,
		Details:    append([]model.Detail{{Kind: model.KindName, Fields: model.NameFields{First: first, Last: last}}}, extra...),
	}
}

func phoneDetail(n string) model.Detail {
	return model.Detail{Kind: model.KindPhoneNumber, Fields: model.PhoneNumberFields{PhoneNumber: n}}
}

func emailDetail(e string) model.Detail {
	return model.Detail{Kind: model.KindEmailAddress, Fields: model.EmailAddressFields{EmailAddress: e}}
}

func (e *testEnv) aggregateOf(t *testing.T, constituentID model.ID) model.Contact {
	t.Helper()
	ctx := context.Background()
	_, err := e.coord.Begin(ctx)
	require.NoError(t, err)
	tx, _ := e.coord.Transaction()
	aggIDs, err := tx.AggregatesOf(ctx, constituentID)
	require.NoError(t, err)
	require.Len(t, aggIDs, 1, "expected exactly one Aggregates edge for %d", constituentID)
	c, ok, err := e.rdr.ReadByID(ctx, tx, aggIDs[0], nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, e.coord.Rollback(ctx))
	return c
}

// Saving a local contact creates one constituent, one aggregate, and one
// Aggregates edge; saving a second matching constituent keeps the
// aggregate count at one with both as edges.
func TestSaveCreatesAggregateAndMergesMatchingSecondContact(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	a := nameContact(model.SyncTargetLocal, "Jane", "Doe", phoneDetail("+15550100"))
	outcomes, err := env.w.SaveContacts(ctx, []model.Contact{a}, nil)
	require.NoError(t, err)
	require.NoError(t, outcomes[0].Err)
	aID := outcomes[0].ID
	require.NotEqual(t, model.NoID, aID)

	aggA := env.aggregateOf(t, aID)
	require.Equal(t, model.SyncTargetAggregate, aggA.SyncTarget)

	b := nameContact("telepathy", "Jane", "Doe", phoneDetail("+15550100"))
	outcomes, err = env.w.SaveContacts(ctx, []model.Contact{b}, nil)
	require.NoError(t, err)
	require.NoError(t, outcomes[0].Err)
	bID := outcomes[0].ID

	aggB := env.aggregateOf(t, bID)
	require.Equal(t, aggA.ID, aggB.ID, "expected both constituents to share the same aggregate")
}

// Removing one constituent out of two leaves the aggregate composed from
// the survivor only; removing the survivor orphans and removes the
// aggregate, with a single removed-notification batch.
func TestRemoveRegeneratesThenOrphansAggregate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	a := nameContact(model.SyncTargetLocal, "Jane", "Doe", phoneDetail("+15550100"))
	outcomes, err := env.w.SaveContacts(ctx, []model.Contact{a}, nil)
	require.NoError(t, err)
	aID := outcomes[0].ID

	b := nameContact("telepathy", "Jane", "Doe", phoneDetail("+15550100"), emailDetail("jane@example.com"))
	outcomes, err = env.w.SaveContacts(ctx, []model.Contact{b}, nil)
	require.NoError(t, err)
	bID := outcomes[0].ID
	aggID := env.aggregateOf(t, bID).ID

	errs, err := env.w.Remove(ctx, []model.ID{aID})
	require.NoError(t, err)
	require.Empty(t, errs)

	aggAfterFirstRemove := env.aggregateOf(t, bID)
	require.Equal(t, aggID, aggAfterFirstRemove.ID, "aggregate should survive while B remains")
	emails := aggAfterFirstRemove.DetailsOfKind(model.KindEmailAddress)
	require.Len(t, emails, 1, "aggregate should now carry only B's email")

	env.sink.removed = nil
	errs, err = env.w.Remove(ctx, []model.ID{bID})
	require.NoError(t, err)
	require.Empty(t, errs)

	require.ElementsMatch(t, []model.ID{bID, aggID}, env.sink.removed)
}

// Different providers with matching last name and a prefix-matching first
// name, plus a shared email, cross the match threshold into one
// aggregate.
func TestSaveMergesOnPrefixNameAndSharedEmail(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	c := nameContact("carddav", "John", "Smith", emailDetail("johnny@example.com"))
	outcomes, err := env.w.SaveContacts(ctx, []model.Contact{c}, nil)
	require.NoError(t, err)
	cID := outcomes[0].ID

	// "Johnny" extends "John" as a case-insensitive prefix, so the first-name
	// deduction is -1 rather than a full mismatch; last names match exactly.
	d := nameContact(model.SyncTargetLocal, "Johnny", "Smith", emailDetail("johnny@example.com"))
	outcomes, err = env.w.SaveContacts(ctx, []model.Contact{d}, nil)
	require.NoError(t, err)
	dID := outcomes[0].ID

	require.Equal(t, env.aggregateOf(t, cID).ID, env.aggregateOf(t, dID).ID)
}

// Editing the aggregate to add a nickname demotes it onto the local
// constituent only.
func TestUpdateAggregateDemotesNicknameToLocalConstituent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	a := nameContact(model.SyncTargetLocal, "Jane", "Doe", phoneDetail("+15550100"))
	outcomes, err := env.w.SaveContacts(ctx, []model.Contact{a}, nil)
	require.NoError(t, err)
	aID := outcomes[0].ID
	agg := env.aggregateOf(t, aID)

	agg.Details = append(agg.Details, model.Detail{Kind: model.KindNickname, Fields: model.NicknameFields{Nickname: "JD"}})
	outcomes, err = env.w.SaveContacts(ctx, []model.Contact{agg}, nil)
	require.NoError(t, err)
	require.NoError(t, outcomes[0].Err)

	ctx2 := context.Background()
	_, err = env.coord.Begin(ctx2)
	require.NoError(t, err)
	tx, _ := env.coord.Transaction()
	local, ok, err := env.rdr.ReadByID(ctx2, tx, aID, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, env.coord.Rollback(ctx2))

	nicks := local.DetailsOfKind(model.KindNickname)
	require.Len(t, nicks, 1)
	require.Equal(t, "JD", nicks[0].Fields.(model.NicknameFields).Nickname)
}

// Editing an aggregate with no local constituent synthesizes one.
func TestUpdateAggregateWithoutLocalSynthesizesOne(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	remote := nameContact("telepathy", "Ada", "Lovelace", phoneDetail("+15550199"))
	outcomes, err := env.w.SaveContacts(ctx, []model.Contact{remote}, nil)
	require.NoError(t, err)
	remoteID := outcomes[0].ID
	agg := env.aggregateOf(t, remoteID)

	agg.Details = append(agg.Details, model.Detail{Kind: model.KindNickname, Fields: model.NicknameFields{Nickname: "Countess"}})
	outcomes, err = env.w.SaveContacts(ctx, []model.Contact{agg}, nil)
	require.NoError(t, err)
	require.NoError(t, outcomes[0].Err)

	ctx2 := context.Background()
	_, err = env.coord.Begin(ctx2)
	require.NoError(t, err)
	tx, _ := env.coord.Transaction()
	constituentIDs, err := tx.ConstituentsOf(ctx2, agg.ID)
	require.NoError(t, err)
	require.NoError(t, env.coord.Rollback(ctx2))

	require.Len(t, constituentIDs, 2, "expected a new local constituent alongside the original remote one")
}

// Saving two identical relationships in one batch persists one row.
func TestSaveRelationshipsDedupesWithinSingleBatch(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	a := nameContact(model.SyncTargetLocal, "Jane", "Doe")
	outcomes, err := env.w.SaveContacts(ctx, []model.Contact{a}, nil)
	require.NoError(t, err)
	aID := outcomes[0].ID
	aggID := env.aggregateOf(t, aID).ID

	rel := model.Relationship{FirstID: aggID, SecondID: aID, Type: model.RelationIsNot}
	errs, err := env.w.SaveRelationships(ctx, []model.Relationship{rel, rel})
	require.NoError(t, err)
	require.Empty(t, errs)
}

// A self-relationship is rejected as invalid.
func TestSaveRelationshipsRejectsSelfRelationship(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	a := nameContact(model.SyncTargetLocal, "Jane", "Doe")
	outcomes, err := env.w.SaveContacts(ctx, []model.Contact{a}, nil)
	require.NoError(t, err)
	aID := outcomes[0].ID

	rel := model.Relationship{FirstID: aID, SecondID: aID, Type: model.RelationIsNot}
	errs, err := env.w.SaveRelationships(ctx, []model.Relationship{rel})
	require.Error(t, err)
	require.Equal(t, werr.InvalidRelationshipError, werr.KindOf(errs[0]))
}

func TestRemoveSelfContactIsBadArgument(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	a := nameContact(model.SyncTargetLocal, "Jane", "Doe")
	outcomes, err := env.w.SaveContacts(ctx, []model.Contact{a}, nil)
	require.NoError(t, err)
	aID := outcomes[0].ID

	_, err = env.coord.Begin(ctx)
	require.NoError(t, err)
	tx, _ := env.coord.Transaction()
	require.NoError(t, tx.SetIdentity(ctx, model.IdentitySelfContact, aID))
	require.NoError(t, env.coord.Commit(ctx))

	errs, err := env.w.Remove(ctx, []model.ID{aID})
	require.Error(t, err)
	require.Equal(t, werr.BadArgumentError, werr.KindOf(errs[0]))
}

func TestUpdateRejectsSyncTargetChangeOnNonLocalContact(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	c := nameContact("carddav", "John", "Smith")
	outcomes, err := env.w.SaveContacts(ctx, []model.Contact{c}, nil)
	require.NoError(t, err)
	cID := outcomes[0].ID

	edited := nameContact(model.SyncTargetLocal, "John", "Smith")
	edited.ID = cID
	outcomes, err = env.w.SaveContacts(ctx, []model.Contact{edited}, nil)
	require.Error(t, err)
	require.Equal(t, werr.InvalidDetailError, werr.KindOf(outcomes[0].Err))
}

// Binding an identity slot and then binding it to zero clears it.
func TestSetIdentityBindAndClear(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	a := nameContact(model.SyncTargetLocal, "Jane", "Doe")
	outcomes, err := env.w.SaveContacts(ctx, []model.Contact{a}, nil)
	require.NoError(t, err)
	aID := outcomes[0].ID

	require.NoError(t, env.w.SetIdentity(ctx, model.IdentitySelfContact, aID))

	_, err = env.coord.Begin(ctx)
	require.NoError(t, err)
	tx, _ := env.coord.Transaction()
	got, ok, err := tx.GetIdentity(ctx, model.IdentitySelfContact)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, aID, got)
	require.NoError(t, env.coord.Rollback(ctx))

	require.NoError(t, env.w.SetIdentity(ctx, model.IdentitySelfContact, model.NoID))

	_, err = env.coord.Begin(ctx)
	require.NoError(t, err)
	tx, _ = env.coord.Transaction()
	_, ok, err = tx.GetIdentity(ctx, model.IdentitySelfContact)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, env.coord.Rollback(ctx))
}

func TestSetIdentityRejectsUnknownContact(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	err := env.w.SetIdentity(ctx, model.IdentitySelfContact, model.ID(9999))
	require.Error(t, err)
	require.Equal(t, werr.DoesNotExistError, werr.KindOf(err))
}

// With aggregation disabled the constituent is persisted bare: no
// aggregate contact and no Aggregates edge appear.
func TestAggregationDisabledSkipsAggregateCreation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.w.SetAggregationEnabled(false)

	a := nameContact(model.SyncTargetLocal, "Jane", "Doe")
	outcomes, err := env.w.SaveContacts(ctx, []model.Contact{a}, nil)
	require.NoError(t, err)
	aID := outcomes[0].ID

	_, err = env.coord.Begin(ctx)
	require.NoError(t, err)
	tx, _ := env.coord.Transaction()
	aggIDs, err := tx.AggregatesOf(ctx, aID)
	require.NoError(t, err)
	require.Empty(t, aggIDs)
	require.NoError(t, env.coord.Rollback(ctx))
}

// Saving a contact with several presence details derives one
// GlobalPresence carrying the best state's fields.
func TestSavePresenceDerivesGlobalPresence(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	c := nameContact(model.SyncTargetLocal, "Jane", "Doe",
		model.Detail{Kind: model.KindPresence, Fields: model.PresenceFields{PresenceState: model.PresenceBusy, Nickname: "busy-src"}},
		model.Detail{Kind: model.KindPresence, Fields: model.PresenceFields{PresenceState: model.PresenceAvailable, Nickname: "avail-src"}},
		model.Detail{Kind: model.KindPresence, Fields: model.PresenceFields{PresenceState: model.PresenceUnknown, Nickname: "unknown-src"}},
	)
	outcomes, err := env.w.SaveContacts(ctx, []model.Contact{c}, nil)
	require.NoError(t, err)
	cID := outcomes[0].ID

	_, err = env.coord.Begin(ctx)
	require.NoError(t, err)
	tx, _ := env.coord.Transaction()
	stored, ok, err := env.rdr.ReadByID(ctx, tx, cID, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, env.coord.Rollback(ctx))

	gp, ok := stored.UniqueDetail(model.KindGlobalPresence)
	require.True(t, ok, "expected a derived GlobalPresence detail")
	fields := gp.Fields.(model.GlobalPresenceFields)
	require.Equal(t, model.PresenceAvailable, fields.PresenceState)
	require.Equal(t, "avail-src", fields.Nickname)
	require.Len(t, stored.DetailsOfKind(model.KindPresence), 3)
}

func TestSaveFailureLocksPartiallyAddedContacts(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	good := nameContact(model.SyncTargetLocal, "Jane", "Doe")
	bad := model.Contact{
		SyncTarget: model.SyncTargetLocal,
		Details:    []model.Detail{{Kind: model.Kind(999), Fields: nil}},
	}
	outcomes, err := env.w.SaveContacts(ctx, []model.Contact{good, bad}, nil)
	require.Error(t, err)
	require.Equal(t, model.NoID, outcomes[0].ID)
	require.Equal(t, werr.LockedError, werr.KindOf(outcomes[0].Err))
	require.Equal(t, werr.InvalidDetailError, werr.KindOf(outcomes[1].Err))
}
