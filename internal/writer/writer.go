// Package writer is the write orchestrator: the create/update/save/
// remove entry points that drive the row codec through the delta engine
// under one transaction and keep the constituent/aggregate invariants
// intact. Grounded on beads' RunInTransaction wrapper in
// internal/storage/dolt/transaction.go for the begin-once/commit-or-
// rollback shape, generalized from a single retrying SQL call to a tree
// of reentrant domain operations sharing one transaction via
// internal/coordinator.
package writer

import (
	"context"
	"fmt"
	"time"

	"github.com/localcontacts/contactwriter/internal/compose"
	"github.com/localcontacts/contactwriter/internal/coordinator"
	"github.com/localcontacts/contactwriter/internal/delta"
	"github.com/localcontacts/contactwriter/internal/identity"
	"github.com/localcontacts/contactwriter/internal/label"
	"github.com/localcontacts/contactwriter/internal/match"
	"github.com/localcontacts/contactwriter/internal/model"
	"github.com/localcontacts/contactwriter/internal/phone"
	"github.com/localcontacts/contactwriter/internal/presence"
	"github.com/localcontacts/contactwriter/internal/reader"
	"github.com/localcontacts/contactwriter/internal/relate"
	"github.com/localcontacts/contactwriter/internal/storage"
	"github.com/localcontacts/contactwriter/internal/werr"
)

// Outcome is the per-input result of a batch save: the persisted id (or
// NoID on failure), any error, and whether saving this contact triggered
// a regeneration of its aggregate.
type Outcome struct {
	ID                   model.ID
	Err                  error
	AggregateRegenerated bool
}

// Writer is the orchestrator. One Writer is built per Coordinator and
// reused across calls; it carries no per-call state.
type Writer struct {
	coord       *coordinator.Coordinator
	reader      reader.Reader
	labelFn     label.Regenerator
	phoneFn     phone.Normalizer
	aggregation bool
}

// New builds a Writer with aggregation enabled. A nil labelFn/phoneFn falls
// back to this module's default implementations.
func New(coord *coordinator.Coordinator, rdr reader.Reader, labelFn label.Regenerator, phoneFn phone.Normalizer) *Writer {
	if labelFn == nil {
		labelFn = label.Default
	}
	if phoneFn == nil {
		phoneFn = phone.Normalize
	}
	return &Writer{coord: coord, reader: rdr, labelFn: labelFn, phoneFn: phoneFn, aggregation: true}
}

// SetAggregationEnabled toggles the matcher/composer pipeline. When
// disabled, saved contacts are persisted as-is and no aggregates are
// created, updated or regenerated.
func (w *Writer) SetAggregationEnabled(enabled bool) {
	w.aggregation = enabled
}

// SaveContacts is the externally-entered save(contacts, mask) operation.
func (w *Writer) SaveContacts(ctx context.Context, contacts []model.Contact, mask model.KindMask) ([]Outcome, error) {
	return w.save(ctx, contacts, mask, w.aggregation, false)
}

// save is the shared implementation behind SaveContacts and every reentrant
// internal caller. aggregationEnabled lets reentrant callers (the
// aggregate-side of updateOrCreateAggregate, regenerateAggregates) bypass
// matching when saving a contact they've already placed themselves.
// withinAggregateUpdate is the reentrancy flag: it stops update() from
// handing off to updateLocalAndAggregate a second time for the same
// aggregate edit.
func (w *Writer) save(ctx context.Context, contacts []model.Contact, mask model.KindMask, aggregationEnabled, withinAggregateUpdate bool) ([]Outcome, error) {
	began := !w.coord.InTransaction()
	if began {
		if _, err := w.coord.Begin(ctx); err != nil {
			return nil, err
		}
	}
	tx, _ := w.coord.Transaction()

	outcomes := make([]Outcome, len(contacts))
	var firstErr error
	failed := false

	for i, c := range contacts {
		if c.ID == model.NoID {
			id, err := w.create(ctx, tx, c, mask, aggregationEnabled)
			outcomes[i] = Outcome{ID: id, Err: err}
			if err != nil {
				failed = true
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			w.coord.MarkAdded(id)
			continue
		}
		regenerated, err := w.update(ctx, tx, c, mask, aggregationEnabled, withinAggregateUpdate)
		outcomes[i] = Outcome{ID: c.ID, Err: err, AggregateRegenerated: regenerated}
		if err != nil {
			failed = true
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		w.coord.MarkChanged(c.ID)
	}

	if failed {
		if began {
			_ = w.coord.Rollback(ctx)
			// Contacts created earlier in this batch got an id but were
			// rolled back with it; zero the id and flag them so the caller
			// doesn't treat them as persisted.
			for i := range outcomes {
				if outcomes[i].Err != nil || contacts[i].ID != model.NoID {
					continue
				}
				outcomes[i].ID = model.NoID
				outcomes[i].Err = werr.Wrap("save", werr.ErrLocked)
			}
		}
		return outcomes, firstErr
	}

	if began {
		if err := w.coord.Commit(ctx); err != nil {
			return outcomes, err
		}
	}
	return outcomes, nil
}

// create inserts a new contact header, persists its details, and
// triggers aggregation if enabled.
func (w *Writer) create(ctx context.Context, tx storage.Transaction, c model.Contact, mask model.KindMask, aggregationEnabled bool) (model.ID, error) {
	if err := validateDetailKinds(c); err != nil {
		return model.NoID, err
	}
	c.SyncHeaderFromDetails()
	if c.Created.IsZero() {
		c.Created = time.Now()
	}
	c.Modified = time.Now()
	c.DisplayLabel = w.labelFn(c)

	id, err := tx.InsertContactHeader(ctx, headerFromContact(c))
	if err != nil {
		return model.NoID, err
	}
	c.ID = id

	if err := w.write(ctx, tx, id, &c, mask); err != nil {
		_ = tx.DeleteContactHeader(ctx, id)
		return model.NoID, err
	}

	if aggregationEnabled && c.SyncTarget != model.SyncTargetAggregate {
		if err := w.updateOrCreateAggregate(ctx, tx, c, mask); err != nil {
			_ = tx.DeleteContactHeader(ctx, id)
			return model.NoID, err
		}
	}
	return id, nil
}

// update rewrites an existing contact's header and details, handing off
// to updateLocalAndAggregate when the target is an aggregate being edited
// directly.
func (w *Writer) update(ctx context.Context, tx storage.Transaction, c model.Contact, mask model.KindMask, aggregationEnabled, withinAggregateUpdate bool) (bool, error) {
	header, ok, err := tx.ReadHeader(ctx, c.ID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, werr.DoesNotExist("contact")
	}
	oldSyncTarget := header.SyncTarget
	if c.SyncTarget != oldSyncTarget && oldSyncTarget != model.SyncTargetLocal {
		return false, werr.InvalidDetail("cannot change sync-target of a non-local contact")
	}

	if aggregationEnabled && oldSyncTarget == model.SyncTargetAggregate && !withinAggregateUpdate {
		return w.updateLocalAndAggregate(ctx, tx, c, mask)
	}

	if err := validateDetailKinds(c); err != nil {
		return false, err
	}
	c.SyncHeaderFromDetails()
	if c.Created.IsZero() {
		c.Created = header.Created
	}
	c.Modified = time.Now()
	c.DisplayLabel = w.labelFn(c)

	if err := tx.UpdateContactHeader(ctx, c.ID, headerFromContact(c)); err != nil {
		return false, err
	}
	if err := w.write(ctx, tx, c.ID, &c, mask); err != nil {
		return false, err
	}

	if !c.IsAggregate() {
		aggIDs, err := tx.AggregatesOf(ctx, c.ID)
		if err != nil {
			return false, err
		}
		if len(aggIDs) > 0 {
			if err := w.regenerateAggregates(ctx, tx, aggIDs, mask); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// write persists every detail kind allowed by the mask, routing presence
// through the reducer and phone numbers through normalization.
func (w *Writer) write(ctx context.Context, tx storage.Transaction, id model.ID, c *model.Contact, mask model.KindMask) error {
	if err := validateDetailKinds(*c); err != nil {
		return err
	}
	for _, k := range model.AllKinds {
		if !mask.Allows(k) {
			continue
		}
		switch k {
		case model.KindPresence, model.KindGlobalPresence:
			continue
		case model.KindPhoneNumber:
			if err := tx.WriteDetails(ctx, id, k, normalizePhones(c.DetailsOfKind(k), w.phoneFn)); err != nil {
				return err
			}
		default:
			if err := tx.WriteDetails(ctx, id, k, c.DetailsOfKind(k)); err != nil {
				return err
			}
		}
	}

	if !mask.Allows(model.KindPresence) && !mask.Allows(model.KindGlobalPresence) {
		return nil
	}
	presenceDetails := c.DetailsOfKind(model.KindPresence)
	if mask.Allows(model.KindPresence) {
		if err := tx.WriteDetails(ctx, id, model.KindPresence, presenceDetails); err != nil {
			return err
		}
	}
	if !mask.Allows(model.KindGlobalPresence) {
		return nil
	}
	global, ok := presence.Reduce(presenceDetails)
	if !ok {
		return tx.ClearDetails(ctx, id, model.KindGlobalPresence)
	}
	gd := model.Detail{Kind: model.KindGlobalPresence, Fields: global}
	if err := tx.WriteDetails(ctx, id, model.KindGlobalPresence, []model.Detail{gd}); err != nil {
		return err
	}
	setUniqueDetail(c, gd)
	return nil
}

// updateOrCreateAggregate finds a matching aggregate for a constituent (or
// creates one), promotes the constituent's details into it, and links the
// two with an Aggregates relationship.
func (w *Writer) updateOrCreateAggregate(ctx context.Context, tx storage.Transaction, constituent model.Contact, mask model.KindMask) error {
	aggregates, err := w.reader.ReadAllAggregates(ctx, tx, mask)
	if err != nil {
		return err
	}

	var target *model.Contact
	for i := range aggregates {
		hasIsNot, err := tx.HasIsNotEdge(ctx, aggregates[i].ID, constituent.ID)
		if err != nil {
			return err
		}
		if match.Likelihood(constituent, aggregates[i], hasIsNot) >= match.Threshold {
			target = &aggregates[i]
			break
		}
	}

	isNew := target == nil
	if isNew {
		target = &model.Contact{SyncTarget: model.SyncTargetAggregate}
	}
	compose.PromoteToAggregate(constituent, target, mask)
	target.DisplayLabel = w.labelFn(*target)

	outcomes, err := w.save(ctx, []model.Contact{*target}, mask, false, false)
	if err != nil {
		return err
	}
	if outcomes[0].Err != nil {
		return outcomes[0].Err
	}
	aggID := outcomes[0].ID

	errs, err := relate.Save(ctx, tx, []model.Relationship{{FirstID: aggID, SecondID: constituent.ID, Type: model.RelationAggregates}})
	if err != nil {
		if isNew {
			_ = tx.DeleteContactHeader(ctx, aggID)
		}
		return err
	}
	if e, ok := errs[0]; ok {
		if isNew {
			_ = tx.DeleteContactHeader(ctx, aggID)
		}
		return e
	}
	return nil
}

// updateLocalAndAggregate computes the delta between an edited aggregate
// and its stored form and demotes it onto the local constituent,
// synthesizing one if none exists.
func (w *Writer) updateLocalAndAggregate(ctx context.Context, tx storage.Transaction, aggregate model.Contact, mask model.KindMask) (bool, error) {
	stored, ok, err := w.reader.ReadByID(ctx, tx, aggregate.ID, mask)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, werr.Wrap("update local and aggregate", werr.ErrUnspecified)
	}

	add, rem := delta.Calculate(stored.Details, aggregate.Details, mask)
	if len(add) == 0 && len(rem) == 0 {
		return false, nil
	}

	constituentIDs, err := tx.ConstituentsOf(ctx, aggregate.ID)
	if err != nil {
		return false, err
	}
	var local model.Contact
	isNewLocal := true
	for _, cid := range constituentIDs {
		cc, ok, err := w.reader.ReadByID(ctx, tx, cid, nil)
		if err != nil {
			return false, err
		}
		if ok && cc.SyncTarget == model.SyncTargetLocal {
			local = cc
			isNewLocal = false
			break
		}
	}
	if isNewLocal {
		local = model.Contact{
			SyncTarget: model.SyncTargetLocal,
			Name:       aggregate.Name,
		}
	}
	compose.DemoteToLocal(&local, add, rem)

	outcomes, err := w.save(ctx, []model.Contact{local}, mask, true, false)
	if err != nil {
		return false, err
	}
	if outcomes[0].Err != nil {
		if isNewLocal && outcomes[0].ID != model.NoID {
			_ = tx.DeleteContactHeader(ctx, outcomes[0].ID)
		}
		return false, outcomes[0].Err
	}
	if outcomes[0].AggregateRegenerated {
		return true, nil
	}

	if err := w.write(ctx, tx, aggregate.ID, &aggregate, mask); err != nil {
		return false, err
	}
	aggregate.SyncHeaderFromDetails()
	aggregate.DisplayLabel = w.labelFn(aggregate)
	if err := tx.UpdateContactHeader(ctx, aggregate.ID, headerFromContact(aggregate)); err != nil {
		return false, err
	}
	return false, nil
}

// SaveRelationships is the externally-entered save(relationships) operation,
// run inside its own transaction.
func (w *Writer) SaveRelationships(ctx context.Context, rels []model.Relationship) (map[int]error, error) {
	began := !w.coord.InTransaction()
	if began {
		if _, err := w.coord.Begin(ctx); err != nil {
			return nil, err
		}
	}
	tx, _ := w.coord.Transaction()

	errs, err := relate.Save(ctx, tx, rels)
	if err != nil {
		if began {
			_ = w.coord.Rollback(ctx)
		}
		return errs, err
	}
	if began {
		if err := w.coord.Commit(ctx); err != nil {
			return errs, err
		}
	}
	for _, e := range errs {
		if werr.KindOf(e) == werr.InvalidRelationshipError {
			return errs, werr.InvalidRelationship("one or more relationships were rejected")
		}
	}
	return errs, nil
}

// RemoveRelationships is the externally-entered remove(relationships)
// operation, run inside its own transaction.
func (w *Writer) RemoveRelationships(ctx context.Context, rels []model.Relationship) (map[int]error, error) {
	began := !w.coord.InTransaction()
	if began {
		if _, err := w.coord.Begin(ctx); err != nil {
			return nil, err
		}
	}
	tx, _ := w.coord.Transaction()

	errs := relate.Remove(ctx, tx, rels)
	if began {
		if err := w.coord.Commit(ctx); err != nil {
			return errs, err
		}
	}
	for _, e := range errs {
		if werr.KindOf(e) == werr.DoesNotExistError {
			return errs, werr.DoesNotExist("relationship")
		}
	}
	return errs, nil
}

// SetIdentity is the externally-entered setIdentity(kind, id) operation:
// it binds kind to id (or clears the slot when id is NoID) inside its own
// transaction when none is already live.
func (w *Writer) SetIdentity(ctx context.Context, kind model.IdentityKind, id model.ID) error {
	began := !w.coord.InTransaction()
	if began {
		if _, err := w.coord.Begin(ctx); err != nil {
			return err
		}
	}
	tx, _ := w.coord.Transaction()

	if id != model.NoID {
		existing, err := tx.ExistingContactIDs(ctx)
		if err != nil {
			if began {
				_ = w.coord.Rollback(ctx)
			}
			return err
		}
		if !existing[id] {
			if began {
				_ = w.coord.Rollback(ctx)
			}
			return werr.DoesNotExist("contact")
		}
	}
	if err := identity.Set(ctx, tx, kind, id); err != nil {
		if began {
			_ = w.coord.Rollback(ctx)
		}
		return err
	}
	if began {
		return w.coord.Commit(ctx)
	}
	return nil
}

// Remove deletes the given contacts, cascading aggregates to their
// constituents and sweeping orphaned aggregates, all in one transaction.
func (w *Writer) Remove(ctx context.Context, contactIDs []model.ID) (map[int]error, error) {
	began := !w.coord.InTransaction()
	if began {
		if _, err := w.coord.Begin(ctx); err != nil {
			return nil, err
		}
	}
	tx, _ := w.coord.Transaction()

	errs, err := w.removeWithin(ctx, tx, contactIDs)
	if err != nil {
		if began {
			_ = w.coord.Rollback(ctx)
		}
		return errs, err
	}
	if began {
		if err := w.coord.Commit(ctx); err != nil {
			return errs, err
		}
	}
	return errs, nil
}

func (w *Writer) removeWithin(ctx context.Context, tx storage.Transaction, contactIDs []model.ID) (map[int]error, error) {
	selfID, hasSelf, err := identity.SelfContact(ctx, tx)
	if err != nil {
		return nil, err
	}
	existingIDs, err := tx.ExistingContactIDs(ctx)
	if err != nil {
		return nil, err
	}

	errs := make(map[int]error)
	var valid []model.ID
	for i, id := range contactIDs {
		if hasSelf && id == selfID {
			errs[i] = werr.BadArgument("cannot remove the self-contact")
			continue
		}
		if !existingIDs[id] {
			errs[i] = werr.DoesNotExist("contact")
			continue
		}
		valid = append(valid, id)
	}

	aggregateSet := make(map[model.ID]bool)
	constituentSet := make(map[model.ID]bool)
	for _, id := range valid {
		target, ok, err := tx.ContactSyncTarget(ctx, id)
		if err != nil {
			return errs, err
		}
		if !ok {
			continue
		}
		if target == model.SyncTargetAggregate {
			aggregateSet[id] = true
		} else {
			constituentSet[id] = true
		}
	}

	removed := make(map[model.ID]bool)
	touched := make(map[model.ID]bool)

	for id := range constituentSet {
		aggIDs, err := tx.AggregatesOf(ctx, id)
		if err != nil {
			return errs, err
		}
		for _, a := range aggIDs {
			touched[a] = true
		}
		if err := tx.DeleteContactHeader(ctx, id); err != nil {
			return errs, err
		}
		removed[id] = true
	}

	for id := range aggregateSet {
		constituents, err := tx.ConstituentsOf(ctx, id)
		if err != nil {
			return errs, err
		}
		if err := tx.DeleteContactHeader(ctx, id); err != nil {
			return errs, err
		}
		removed[id] = true
		delete(touched, id)
		for _, cid := range constituents {
			if removed[cid] {
				continue
			}
			if err := tx.DeleteContactHeader(ctx, cid); err != nil {
				return errs, err
			}
			removed[cid] = true
		}
	}

	orphans, err := tx.AggregatesWithoutEdges(ctx)
	if err != nil {
		return errs, err
	}
	for _, o := range orphans {
		if removed[o] {
			continue
		}
		if err := tx.DeleteContactHeader(ctx, o); err != nil {
			return errs, err
		}
		removed[o] = true
		delete(touched, o)
	}

	for id := range removed {
		w.coord.MarkRemoved(id)
	}

	var toRegen []model.ID
	for a := range touched {
		if removed[a] {
			continue
		}
		toRegen = append(toRegen, a)
	}
	if len(toRegen) > 0 {
		if err := w.regenerateAggregates(ctx, tx, toRegen, nil); err != nil {
			return errs, err
		}
	}

	for _, e := range errs {
		if werr.KindOf(e) == werr.BadArgumentError {
			return errs, werr.BadArgument("self-contact cannot be removed")
		}
	}
	for _, e := range errs {
		if werr.KindOf(e) == werr.DoesNotExistError {
			return errs, werr.DoesNotExist("contact")
		}
	}
	return errs, nil
}

// RegenerateAggregates is the externally-entered form of regenerateAggregates,
// opening its own transaction when none is already live.
func (w *Writer) RegenerateAggregates(ctx context.Context, ids []model.ID, mask model.KindMask) error {
	began := !w.coord.InTransaction()
	if began {
		if _, err := w.coord.Begin(ctx); err != nil {
			return err
		}
	}
	tx, _ := w.coord.Transaction()

	if err := w.regenerateAggregates(ctx, tx, ids, mask); err != nil {
		if began {
			_ = w.coord.Rollback(ctx)
		}
		return err
	}
	if began {
		return w.coord.Commit(ctx)
	}
	return nil
}

// regenerateAggregates rebuilds an aggregate's composed details from its
// surviving constituents, promoting the local constituent first.
func (w *Writer) regenerateAggregates(ctx context.Context, tx storage.Transaction, ids []model.ID, mask model.KindMask) error {
	var rebuilt []model.Contact
	for _, aggID := range ids {
		stored, ok, err := w.reader.ReadByID(ctx, tx, aggID, nil)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		constituentIDs, err := tx.ConstituentsOf(ctx, aggID)
		if err != nil {
			return err
		}
		var constituents []model.Contact
		localIdx := -1
		for _, cid := range constituentIDs {
			cc, ok, err := w.reader.ReadByID(ctx, tx, cid, nil)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if cc.SyncTarget == model.SyncTargetLocal {
				localIdx = len(constituents)
			}
			constituents = append(constituents, cc)
		}

		fresh := model.Contact{ID: aggID, SyncTarget: model.SyncTargetAggregate}
		for _, d := range stored.Details {
			if d.Kind == model.KindSyncTarget || d.Kind == model.KindGuid || d.Kind == model.KindType {
				fresh.Details = append(fresh.Details, d)
				continue
			}
			if mask != nil && !mask.Allows(d.Kind) {
				fresh.Details = append(fresh.Details, d)
			}
		}

		if localIdx >= 0 {
			compose.PromoteToAggregate(constituents[localIdx], &fresh, mask)
		}
		for i, c := range constituents {
			if i == localIdx {
				continue
			}
			compose.PromoteToAggregate(c, &fresh, mask)
		}
		fresh.DisplayLabel = w.labelFn(fresh)
		rebuilt = append(rebuilt, fresh)
	}
	if len(rebuilt) == 0 {
		return nil
	}
	outcomes, err := w.save(ctx, rebuilt, mask, false, false)
	if err != nil {
		return err
	}
	for _, o := range outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}

func headerFromContact(c model.Contact) storage.ContactHeader {
	return storage.ContactHeader{
		DisplayLabel: c.DisplayLabel,
		Name:         c.Name,
		SyncTarget:   c.SyncTarget,
		Created:      c.Created,
		Modified:     c.Modified,
		Gender:       c.Gender,
		Favorite:     c.Favorite,
	}
}

func validateDetailKinds(c model.Contact) error {
	for _, d := range c.Details {
		if !d.Kind.Valid() {
			return werr.InvalidDetail(fmt.Sprintf("unknown detail kind %d", int(d.Kind)))
		}
	}
	return nil
}

func normalizePhones(details []model.Detail, fn phone.Normalizer) []model.Detail {
	out := make([]model.Detail, len(details))
	for i, d := range details {
		if f, ok := d.Fields.(model.PhoneNumberFields); ok {
			f.NormalizedNumber = fn(f.PhoneNumber)
			d.Fields = f
		}
		out[i] = d
	}
	return out
}

func setUniqueDetail(c *model.Contact, d model.Detail) {
	for i, existing := range c.Details {
		if existing.Kind == d.Kind {
			c.Details[i] = d
			return
		}
	}
	c.Details = append(c.Details, d)
}

