// Package coordinator owns the single live transaction and the
// added/changed/removed id bookkeeping that gets published to a
// notify.Sink exactly once, on commit. It is grounded on the retry/backoff
// transaction wrapper in beads' internal/storage/dolt/transaction.go,
// generalized here to a thinner begin/commit/rollback shim since this
// write path targets a single local sqlite file rather than a clustered
// dolt server.
package coordinator

import (
	"context"
	"errors"

	"github.com/localcontacts/contactwriter/internal/model"
	"github.com/localcontacts/contactwriter/internal/notify"
	"github.com/localcontacts/contactwriter/internal/storage"
)

// ErrAlreadyOpen is returned by Begin when a transaction is already live.
// Callers (the write orchestrator) are expected to check InTransaction
// first so nested calls reuse the outer transaction instead of hitting
// this error.
var ErrAlreadyOpen = errors.New("coordinator: transaction already open")

// ErrNoTransaction is returned by Commit/Rollback when none is open.
var ErrNoTransaction = errors.New("coordinator: no open transaction")

// Coordinator serializes write access to one storage.Beginner and
// accumulates the ids touched by the current transaction so they can be
// published as a single batch per kind on commit.
type Coordinator struct {
	beginner storage.Beginner
	sink     notify.Sink

	tx        storage.Transaction
	committer storage.Committer

	added, changed, removed []model.ID
	seen                    map[model.ID]rune
}

// New builds a Coordinator. A nil sink is replaced with notify.NoopSink.
func New(beginner storage.Beginner, sink notify.Sink) *Coordinator {
	if sink == nil {
		sink = notify.NoopSink{}
	}
	return &Coordinator{beginner: beginner, sink: sink}
}

// InTransaction reports whether a transaction is currently open.
func (c *Coordinator) InTransaction() bool {
	return c.tx != nil
}

// Transaction returns the currently open transaction, if any.
func (c *Coordinator) Transaction() (storage.Transaction, bool) {
	return c.tx, c.tx != nil
}

// Begin opens a new transaction. Returns ErrAlreadyOpen if one is live;
// the orchestrator is expected to call InTransaction first and reuse the
// existing transaction for reentrant calls instead of calling Begin again.
func (c *Coordinator) Begin(ctx context.Context) (storage.Transaction, error) {
	if c.tx != nil {
		return nil, ErrAlreadyOpen
	}
	tx, committer, err := c.beginner.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	c.tx = tx
	c.committer = committer
	c.added = nil
	c.changed = nil
	c.removed = nil
	c.seen = make(map[model.ID]rune)
	return tx, nil
}

// MarkAdded records id as newly created in the current transaction. A
// later MarkChanged/MarkRemoved for the same id supersedes this.
func (c *Coordinator) MarkAdded(id model.ID) { c.mark(id, 'a', &c.added) }

// MarkChanged records id as modified in the current transaction.
func (c *Coordinator) MarkChanged(id model.ID) { c.mark(id, 'c', &c.changed) }

// MarkRemoved records id as deleted in the current transaction.
func (c *Coordinator) MarkRemoved(id model.ID) { c.mark(id, 'r', &c.removed) }

func (c *Coordinator) mark(id model.ID, bucket rune, list *[]model.ID) {
	if c.seen == nil {
		c.seen = make(map[model.ID]rune)
	}
	if prev, ok := c.seen[id]; ok {
		if prev == bucket {
			return
		}
		c.removeFrom(prev, id)
	}
	c.seen[id] = bucket
	*list = append(*list, id)
}

func (c *Coordinator) removeFrom(bucket rune, id model.ID) {
	var list *[]model.ID
	switch bucket {
	case 'a':
		list = &c.added
	case 'c':
		list = &c.changed
	case 'r':
		list = &c.removed
	default:
		return
	}
	for i, v := range *list {
		if v == id {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// Commit clears the coordinator's state, commits the open transaction and,
// only if the commit succeeds, publishes the accumulated id lists to the
// sink in removed, changed, added order.
func (c *Coordinator) Commit(ctx context.Context) error {
	if c.tx == nil {
		return ErrNoTransaction
	}
	committer := c.committer
	added, changed, removed := c.added, c.changed, c.removed
	c.reset()
	if err := committer.Commit(); err != nil {
		return err
	}
	c.sink.ContactsRemoved(removed)
	c.sink.ContactsChanged(changed)
	c.sink.ContactsAdded(added)
	return nil
}

// Rollback discards the open transaction and all accumulated id state
// without publishing anything.
func (c *Coordinator) Rollback(ctx context.Context) error {
	if c.tx == nil {
		return ErrNoTransaction
	}
	committer := c.committer
	c.reset()
	return committer.Rollback()
}

func (c *Coordinator) reset() {
	c.tx = nil
	c.committer = nil
	c.added = nil
	c.changed = nil
	c.removed = nil
	c.seen = nil
}
