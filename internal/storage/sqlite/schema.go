package sqlite

import (
	"database/sql"
	"fmt"
)

// schema is applied with CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT
// EXISTS statements, the same idempotent migration style beads uses
// for its own sqlite backend (internal/storage/sqlite/migrations/*.go in
// steveyegge/beads): safe to run on every process start, no separate
// version-tracking table needed because every statement is already
// conditional.
//
// The Contacts header table holds the scalar header fields. Every detail
// kind gets its own table ("one table per multi-detail kind
// keyed by contactId") holding only that kind's value fields; the shared
// envelope (detailUri, linkedDetailUris, contexts, accessConstraints) lives
// in the generic Details table and is joined back to its kind table by
// (contact_id, seq), where seq is the kind-local insertion ordinal the row
// codec uses to preserve input order within a kind.
const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	display_label TEXT NOT NULL DEFAULT '',
	name_first TEXT NOT NULL DEFAULT '',
	name_last TEXT NOT NULL DEFAULT '',
	name_middle TEXT NOT NULL DEFAULT '',
	name_prefix TEXT NOT NULL DEFAULT '',
	name_suffix TEXT NOT NULL DEFAULT '',
	name_custom_label TEXT NOT NULL DEFAULT '',
	sync_target TEXT NOT NULL,
	created_at TIMESTAMP,
	modified_at TIMESTAMP,
	gender TEXT NOT NULL DEFAULT '',
	favorite INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS details (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	kind INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	detail_uri TEXT NOT NULL DEFAULT '',
	linked_uris TEXT NOT NULL DEFAULT '',
	contexts TEXT NOT NULL DEFAULT '',
	access_constraints INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (contact_id, kind, seq)
);
CREATE INDEX IF NOT EXISTS idx_details_contact ON details(contact_id);

CREATE TABLE IF NOT EXISTS addresses (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	street TEXT NOT NULL DEFAULT '', po_box TEXT NOT NULL DEFAULT '',
	region TEXT NOT NULL DEFAULT '', locality TEXT NOT NULL DEFAULT '',
	post_code TEXT NOT NULL DEFAULT '', country TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS anniversaries (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	original_date_time TIMESTAMP, calendar_id TEXT NOT NULL DEFAULT '',
	sub_type TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS avatars (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	image_url TEXT NOT NULL DEFAULT '', video_url TEXT NOT NULL DEFAULT '',
	avatar_metadata TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS birthdays (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	birthday TIMESTAMP, calendar_id TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS email_addresses (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	email_address TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS global_presences (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	presence_state INTEGER NOT NULL DEFAULT 99, timestamp TIMESTAMP,
	nickname TEXT NOT NULL DEFAULT '', custom_message TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS guids (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	guid TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS hobbies (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	hobby TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS nicknames (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	nickname TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS notes (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	note TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS online_accounts (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	account_uri TEXT NOT NULL DEFAULT '', protocol TEXT NOT NULL DEFAULT '',
	service_provider TEXT NOT NULL DEFAULT '', capabilities TEXT NOT NULL DEFAULT '',
	sub_types TEXT NOT NULL DEFAULT '', account_path TEXT NOT NULL DEFAULT '',
	account_icon_path TEXT NOT NULL DEFAULT '', enabled INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS organizations (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	name TEXT NOT NULL DEFAULT '', role TEXT NOT NULL DEFAULT '',
	title TEXT NOT NULL DEFAULT '', location TEXT NOT NULL DEFAULT '',
	department TEXT NOT NULL DEFAULT '', logo_url TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS phone_numbers (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	phone_number TEXT NOT NULL DEFAULT '', sub_types TEXT NOT NULL DEFAULT '',
	normalized_number TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS presences (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	presence_state INTEGER NOT NULL DEFAULT 99, timestamp TIMESTAMP,
	nickname TEXT NOT NULL DEFAULT '', custom_message TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS ringtones (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	audio_ringtone TEXT NOT NULL DEFAULT '', video_ringtone TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS tags (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	tag TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS urls (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	url TEXT NOT NULL DEFAULT '', sub_types TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS tp_metadata (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	telepathy_id TEXT NOT NULL DEFAULT '', account_id TEXT NOT NULL DEFAULT '',
	account_enabled INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS names (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	first TEXT NOT NULL DEFAULT '', last TEXT NOT NULL DEFAULT '',
	middle TEXT NOT NULL DEFAULT '', prefix TEXT NOT NULL DEFAULT '',
	suffix TEXT NOT NULL DEFAULT '', custom_label TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS sync_targets (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	value TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS timestamps (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	created TIMESTAMP, last_modified TIMESTAMP,
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS genders (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	value TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS favorites (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	value INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS display_labels (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	label TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);
CREATE TABLE IF NOT EXISTS types (
	contact_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE, seq INTEGER NOT NULL,
	value TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (contact_id, seq)
);

CREATE TABLE IF NOT EXISTS relationships (
	first_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	second_id INTEGER NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	type TEXT NOT NULL,
	PRIMARY KEY (first_id, second_id, type)
);
CREATE INDEX IF NOT EXISTS idx_relationships_second ON relationships(second_id, type);

CREATE TABLE IF NOT EXISTS identities (
	kind TEXT PRIMARY KEY,
	contact_id INTEGER NOT NULL
);
`

// Migrate applies the full schema. It is safe to call on every process
// start; every statement is already guarded with IF NOT EXISTS, mirroring
// beads' own idempotent sqlite migrations.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
