package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/localcontacts/contactwriter/internal/model"
	"github.com/localcontacts/contactwriter/internal/storage"
)

// transaction implements storage.Transaction and storage.Committer over a
// single *sql.Tx. It encapsulates the external-id/row-id translation:
// every method that takes a model.ID converts it to the zero-based row id
// with rowID before touching the store, and every id read back out
// (InsertContactHeader's new id and the contact, relationship, aggregate
// and identity lookups) is converted with externalID. No other package in
// this module ever sees a row id.
type transaction struct {
	tx *sql.Tx
}

func rowID(id model.ID) int64       { return int64(id) - 1 }
func externalID(row int64) model.ID { return model.ID(row + 1) }

func (t *transaction) Commit() error   { return wrapDBError("commit", t.tx.Commit()) }
func (t *transaction) Rollback() error { return wrapDBError("rollback", t.tx.Rollback()) }

func (t *transaction) InsertContactHeader(ctx context.Context, h storage.ContactHeader) (model.ID, error) {
	var nextRow int64
	row := t.tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), -1) + 1 FROM contacts`)
	if err := row.Scan(&nextRow); err != nil {
		return model.NoID, wrapDBError("insert contact header: next row id", err)
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO contacts (id, display_label, name_first, name_last, name_middle,
			name_prefix, name_suffix, name_custom_label, sync_target, created_at,
			modified_at, gender, favorite)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nextRow, h.DisplayLabel, h.Name.First, h.Name.Last, h.Name.Middle,
		h.Name.Prefix, h.Name.Suffix, h.Name.CustomLabel, string(h.SyncTarget),
		h.Created, h.Modified, h.Gender, h.Favorite)
	if err != nil {
		return model.NoID, wrapDBError("insert contact header", err)
	}
	return externalID(nextRow), nil
}

func (t *transaction) UpdateContactHeader(ctx context.Context, id model.ID, h storage.ContactHeader) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE contacts SET display_label = ?, name_first = ?, name_last = ?,
			name_middle = ?, name_prefix = ?, name_suffix = ?, name_custom_label = ?,
			sync_target = ?, created_at = ?, modified_at = ?, gender = ?, favorite = ?
		WHERE id = ?`,
		h.DisplayLabel, h.Name.First, h.Name.Last, h.Name.Middle, h.Name.Prefix,
		h.Name.Suffix, h.Name.CustomLabel, string(h.SyncTarget), h.Created, h.Modified,
		h.Gender, h.Favorite, rowID(id))
	if err != nil {
		return wrapDBError("update contact header", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("update contact header: rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("contact %d: %w", id, ErrNotFound)
	}
	return nil
}

func (t *transaction) DeleteContactHeader(ctx context.Context, id model.ID) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, rowID(id)); err != nil {
		return wrapDBError("delete contact header", err)
	}
	return nil
}

func (t *transaction) ContactSyncTarget(ctx context.Context, id model.ID) (model.SyncTarget, bool, error) {
	var tag string
	err := t.tx.QueryRowContext(ctx, `SELECT sync_target FROM contacts WHERE id = ?`, rowID(id)).Scan(&tag)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrapDBError("contact sync target", err)
	}
	return model.SyncTarget(tag), true, nil
}

func (t *transaction) ExistingContactIDs(ctx context.Context) (map[model.ID]bool, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT id FROM contacts`)
	if err != nil {
		return nil, wrapDBError("existing contact ids", err)
	}
	defer rows.Close()
	out := make(map[model.ID]bool)
	for rows.Next() {
		var row int64
		if err := rows.Scan(&row); err != nil {
			return nil, wrapDBError("existing contact ids: scan", err)
		}
		out[externalID(row)] = true
	}
	return out, wrapDBError("existing contact ids: rows", rows.Err())
}

func (t *transaction) ReadHeader(ctx context.Context, contactID model.ID) (storage.ContactHeader, bool, error) {
	var h storage.ContactHeader
	var tag string
	row := t.tx.QueryRowContext(ctx, `
		SELECT display_label, name_first, name_last, name_middle, name_prefix,
			name_suffix, name_custom_label, sync_target, created_at, modified_at,
			gender, favorite
		FROM contacts WHERE id = ?`, rowID(contactID))
	err := row.Scan(&h.DisplayLabel, &h.Name.First, &h.Name.Last, &h.Name.Middle,
		&h.Name.Prefix, &h.Name.Suffix, &h.Name.CustomLabel, &tag, &h.Created,
		&h.Modified, &h.Gender, &h.Favorite)
	if err == sql.ErrNoRows {
		return storage.ContactHeader{}, false, nil
	}
	if err != nil {
		return storage.ContactHeader{}, false, wrapDBError("read header", err)
	}
	h.SyncTarget = model.SyncTarget(tag)
	return h, true, nil
}

// WriteDetails replaces every stored detail of kind k for contactID with
// details, in order. It clears first, then inserts one row per
// detail into both the kind table and the generic details envelope table,
// sharing the kind-local ordinal `seq` as the join key.
func (t *transaction) WriteDetails(ctx context.Context, contactID model.ID, k model.Kind, details []model.Detail) error {
	if err := t.ClearDetails(ctx, contactID, k); err != nil {
		return err
	}
	if len(details) == 0 {
		return nil
	}
	codec, err := codecFor(k)
	if err != nil {
		return fmt.Errorf("write details: %w", err)
	}
	row := rowID(contactID)
	insertCols := append([]string{"contact_id", "seq"}, codec.columns...)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(insertCols)), ", ")
	insertSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", codec.table,
		strings.Join(insertCols, ", "), placeholders)

	for seq, d := range details {
		if d.Fields == nil {
			return fmt.Errorf("write details: kind %s detail %d has no fields", k, seq)
		}
		args := append([]any{row, seq}, codec.encode(d.Fields)...)
		if _, err := t.tx.ExecContext(ctx, insertSQL, args...); err != nil {
			return wrapDBError(fmt.Sprintf("write details: insert %s", codec.table), err)
		}
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO details (contact_id, kind, seq, detail_uri, linked_uris, contexts, access_constraints)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			row, int(k), seq, d.URI, joinSemi(d.LinkedURIs), joinSemi(d.Contexts), int(d.Constraints))
		if err != nil {
			return wrapDBError("write details: insert envelope", err)
		}
	}
	return nil
}

func (t *transaction) ClearDetails(ctx context.Context, contactID model.ID, k model.Kind) error {
	codec, err := codecFor(k)
	if err != nil {
		return fmt.Errorf("clear details: %w", err)
	}
	row := rowID(contactID)
	if _, err := t.tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE contact_id = ?", codec.table), row); err != nil {
		return wrapDBError("clear details: kind table", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM details WHERE contact_id = ? AND kind = ?`, row, int(k)); err != nil {
		return wrapDBError("clear details: envelope table", err)
	}
	return nil
}

// ReadDetails loads the envelope rows and the kind-value rows with two
// separate queries and merges them by seq in memory. database/sql requires
// a single Scan call covering every selected column, and the envelope/value
// columns are decoded by different code (generic here, per-kind in
// codec.go) -- a join-then-scan-once would force every codec to know the
// envelope's column layout too, so two passes keep the per-kind codecs
// self-contained.
func (t *transaction) ReadDetails(ctx context.Context, contactID model.ID, k model.Kind) ([]model.Detail, error) {
	codec, err := codecFor(k)
	if err != nil {
		return nil, fmt.Errorf("read details: %w", err)
	}
	row := rowID(contactID)

	type envelope struct {
		uri, linkedCSV, ctxCSV string
		constraints            int
	}
	envelopes := make(map[int]envelope)
	envRows, err := t.tx.QueryContext(ctx, `
		SELECT seq, detail_uri, linked_uris, contexts, access_constraints
		FROM details WHERE contact_id = ? AND kind = ?`, row, int(k))
	if err != nil {
		return nil, wrapDBError("read details: envelope", err)
	}
	for envRows.Next() {
		var seq int
		var e envelope
		if err := envRows.Scan(&seq, &e.uri, &e.linkedCSV, &e.ctxCSV, &e.constraints); err != nil {
			envRows.Close()
			return nil, wrapDBError("read details: envelope scan", err)
		}
		envelopes[seq] = e
	}
	if err := envRows.Err(); err != nil {
		envRows.Close()
		return nil, wrapDBError("read details: envelope rows", err)
	}
	envRows.Close()

	query := fmt.Sprintf("SELECT seq, %s FROM %s WHERE contact_id = ? ORDER BY seq",
		strings.Join(codec.columns, ", "), codec.table)
	rows, err := t.tx.QueryContext(ctx, query, row)
	if err != nil {
		return nil, wrapDBError("read details: values", err)
	}
	defer rows.Close()

	var out []model.Detail
	for rows.Next() {
		seq, fields, err := codec.scan(rows)
		if err != nil {
			return nil, wrapDBError("read details: value scan", err)
		}
		e := envelopes[seq]
		out = append(out, model.Detail{
			Kind:        k,
			URI:         e.uri,
			LinkedURIs:  splitSemi(e.linkedCSV),
			Contexts:    splitSemi(e.ctxCSV),
			Constraints: model.Constraint(e.constraints),
			Fields:      fields,
		})
	}
	return out, wrapDBError("read details: value rows", rows.Err())
}

func (t *transaction) ReadAllDetails(ctx context.Context, contactID model.ID) ([]model.Detail, error) {
	var out []model.Detail
	for _, k := range model.AllKinds {
		details, err := t.ReadDetails(ctx, contactID, k)
		if err != nil {
			return nil, err
		}
		out = append(out, details...)
	}
	return out, nil
}

func (t *transaction) InsertRelationships(ctx context.Context, rels []model.Relationship) error {
	if len(rels) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("INSERT INTO relationships (first_id, second_id, type) VALUES ")
	args := make([]any, 0, len(rels)*3)
	for i, r := range rels {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?, ?)")
		args = append(args, rowID(r.FirstID), rowID(r.SecondID), string(r.Type))
	}
	if _, err := t.tx.ExecContext(ctx, b.String(), args...); err != nil {
		return wrapDBError("insert relationships", err)
	}
	return nil
}

func (t *transaction) ExistingRelationships(ctx context.Context) (map[model.ID][]storage.RelationshipEdge, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT first_id, second_id, type FROM relationships`)
	if err != nil {
		return nil, wrapDBError("existing relationships", err)
	}
	defer rows.Close()
	out := make(map[model.ID][]storage.RelationshipEdge)
	for rows.Next() {
		var first, second int64
		var typ string
		if err := rows.Scan(&first, &second, &typ); err != nil {
			return nil, wrapDBError("existing relationships: scan", err)
		}
		fid := externalID(first)
		out[fid] = append(out[fid], storage.RelationshipEdge{Type: model.RelationType(typ), SecondID: externalID(second)})
	}
	return out, wrapDBError("existing relationships: rows", rows.Err())
}

func (t *transaction) DeleteRelationship(ctx context.Context, rel model.Relationship) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM relationships WHERE first_id = ? AND second_id = ? AND type = ?`,
		rowID(rel.FirstID), rowID(rel.SecondID), string(rel.Type))
	if err != nil {
		return false, wrapDBError("delete relationship", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapDBError("delete relationship: rows affected", err)
	}
	return n > 0, nil
}

func (t *transaction) AggregatesWithoutEdges(ctx context.Context) ([]model.ID, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT c.id FROM contacts c
		WHERE c.sync_target = ?
		AND NOT EXISTS (
			SELECT 1 FROM relationships r WHERE r.first_id = c.id AND r.type = ?
		)`, string(model.SyncTargetAggregate), string(model.RelationAggregates))
	if err != nil {
		return nil, wrapDBError("aggregates without edges", err)
	}
	defer rows.Close()
	var out []model.ID
	for rows.Next() {
		var row int64
		if err := rows.Scan(&row); err != nil {
			return nil, wrapDBError("aggregates without edges: scan", err)
		}
		out = append(out, externalID(row))
	}
	return out, wrapDBError("aggregates without edges: rows", rows.Err())
}

func (t *transaction) ConstituentsOf(ctx context.Context, aggregateID model.ID) ([]model.ID, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT second_id FROM relationships WHERE first_id = ? AND type = ?`,
		rowID(aggregateID), string(model.RelationAggregates))
	if err != nil {
		return nil, wrapDBError("constituents of", err)
	}
	defer rows.Close()
	var out []model.ID
	for rows.Next() {
		var row int64
		if err := rows.Scan(&row); err != nil {
			return nil, wrapDBError("constituents of: scan", err)
		}
		out = append(out, externalID(row))
	}
	return out, wrapDBError("constituents of: rows", rows.Err())
}

func (t *transaction) AggregatesOf(ctx context.Context, constituentID model.ID) ([]model.ID, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT first_id FROM relationships WHERE second_id = ? AND type = ?`,
		rowID(constituentID), string(model.RelationAggregates))
	if err != nil {
		return nil, wrapDBError("aggregates of", err)
	}
	defer rows.Close()
	var out []model.ID
	for rows.Next() {
		var row int64
		if err := rows.Scan(&row); err != nil {
			return nil, wrapDBError("aggregates of: scan", err)
		}
		out = append(out, externalID(row))
	}
	return out, wrapDBError("aggregates of: rows", rows.Err())
}

func (t *transaction) HasIsNotEdge(ctx context.Context, a, b model.ID) (bool, error) {
	var exists int
	err := t.tx.QueryRowContext(ctx, `
		SELECT 1 FROM relationships
		WHERE type = ? AND ((first_id = ? AND second_id = ?) OR (first_id = ? AND second_id = ?))
		LIMIT 1`,
		string(model.RelationIsNot), rowID(a), rowID(b), rowID(b), rowID(a)).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, wrapDBError("has is-not edge", err)
	}
	return true, nil
}

func (t *transaction) SetIdentity(ctx context.Context, kind model.IdentityKind, id model.ID) error {
	if id == model.NoID {
		if _, err := t.tx.ExecContext(ctx, `DELETE FROM identities WHERE kind = ?`, string(kind)); err != nil {
			return wrapDBError("set identity: delete", err)
		}
		return nil
	}
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO identities (kind, contact_id) VALUES (?, ?)
		ON CONFLICT(kind) DO UPDATE SET contact_id = excluded.contact_id`,
		string(kind), rowID(id))
	if err != nil {
		return wrapDBError("set identity: upsert", err)
	}
	return nil
}

func (t *transaction) GetIdentity(ctx context.Context, kind model.IdentityKind) (model.ID, bool, error) {
	var row int64
	err := t.tx.QueryRowContext(ctx, `SELECT contact_id FROM identities WHERE kind = ?`, string(kind)).Scan(&row)
	if err == sql.ErrNoRows {
		return model.NoID, false, nil
	}
	if err != nil {
		return model.NoID, false, wrapDBError("get identity", err)
	}
	return externalID(row), true, nil
}

