package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/localcontacts/contactwriter/internal/model"
)

// kindCodec binds one model.Kind to its table name, the column list the
// generic writer/reader in transaction.go uses to build parametrized
// statements, and the encode/scan pair that translates between the
// tagged-sum model.Fields and a flat row. Every kind gets its own table;
// the shared envelope (uri/linkedUris/contexts/constraints) is read and
// written separately against the generic `details` table.
type kindCodec struct {
	table   string
	columns []string
	encode  func(model.Fields) []any
	// scan reads one row shaped (seq, <columns>...) and returns the kind-local
	// insertion ordinal alongside the decoded Fields.
	scan func(*sql.Rows) (int, model.Fields, error)
}

func splitSemi(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ";")
}

func joinSemi(parts []string) string {
	return strings.Join(parts, ";")
}

var codecs = map[model.Kind]kindCodec{
	model.KindAddress: {
		table:   "addresses",
		columns: []string{"street", "po_box", "region", "locality", "post_code", "country"},
		encode: func(f model.Fields) []any {
			v := f.(model.AddressFields)
			return []any{v.Street, v.PostOfficeBox, v.Region, v.Locality, v.PostCode, v.Country}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.AddressFields
			err := r.Scan(&seq, &v.Street, &v.PostOfficeBox, &v.Region, &v.Locality, &v.PostCode, &v.Country)
			return seq, v, err
		},
	},
	model.KindAnniversary: {
		table:   "anniversaries",
		columns: []string{"original_date_time", "calendar_id", "sub_type"},
		encode: func(f model.Fields) []any {
			v := f.(model.AnniversaryFields)
			return []any{v.OriginalDateTime, v.CalendarID, v.SubType}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.AnniversaryFields
			err := r.Scan(&seq, &v.OriginalDateTime, &v.CalendarID, &v.SubType)
			return seq, v, err
		},
	},
	model.KindAvatar: {
		table:   "avatars",
		columns: []string{"image_url", "video_url", "avatar_metadata"},
		encode: func(f model.Fields) []any {
			v := f.(model.AvatarFields)
			return []any{v.ImageURL, v.VideoURL, v.AvatarMetadata}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.AvatarFields
			err := r.Scan(&seq, &v.ImageURL, &v.VideoURL, &v.AvatarMetadata)
			return seq, v, err
		},
	},
	model.KindBirthday: {
		table:   "birthdays",
		columns: []string{"birthday", "calendar_id"},
		encode: func(f model.Fields) []any {
			v := f.(model.BirthdayFields)
			return []any{v.Birthday, v.CalendarID}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.BirthdayFields
			err := r.Scan(&seq, &v.Birthday, &v.CalendarID)
			return seq, v, err
		},
	},
	model.KindEmailAddress: {
		table:   "email_addresses",
		columns: []string{"email_address"},
		encode: func(f model.Fields) []any {
			return []any{f.(model.EmailAddressFields).EmailAddress}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.EmailAddressFields
			err := r.Scan(&seq, &v.EmailAddress)
			return seq, v, err
		},
	},
	model.KindGlobalPresence: {
		table:   "global_presences",
		columns: []string{"presence_state", "timestamp", "nickname", "custom_message"},
		encode: func(f model.Fields) []any {
			v := f.(model.GlobalPresenceFields)
			return []any{v.PresenceState, v.Timestamp, v.Nickname, v.CustomMessage}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.GlobalPresenceFields
			err := r.Scan(&seq, &v.PresenceState, &v.Timestamp, &v.Nickname, &v.CustomMessage)
			return seq, v, err
		},
	},
	model.KindGuid: {
		table:   "guids",
		columns: []string{"guid"},
		encode: func(f model.Fields) []any {
			return []any{f.(model.GuidFields).Guid}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.GuidFields
			err := r.Scan(&seq, &v.Guid)
			return seq, v, err
		},
	},
	model.KindHobby: {
		table:   "hobbies",
		columns: []string{"hobby"},
		encode: func(f model.Fields) []any {
			return []any{f.(model.HobbyFields).Hobby}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.HobbyFields
			err := r.Scan(&seq, &v.Hobby)
			return seq, v, err
		},
	},
	model.KindNickname: {
		table:   "nicknames",
		columns: []string{"nickname"},
		encode: func(f model.Fields) []any {
			return []any{f.(model.NicknameFields).Nickname}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.NicknameFields
			err := r.Scan(&seq, &v.Nickname)
			return seq, v, err
		},
	},
	model.KindNote: {
		table:   "notes",
		columns: []string{"note"},
		encode: func(f model.Fields) []any {
			return []any{f.(model.NoteFields).Note}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.NoteFields
			err := r.Scan(&seq, &v.Note)
			return seq, v, err
		},
	},
	model.KindOnlineAccount: {
		table: "online_accounts",
		columns: []string{"account_uri", "protocol", "service_provider", "capabilities",
			"sub_types", "account_path", "account_icon_path", "enabled"},
		encode: func(f model.Fields) []any {
			v := f.(model.OnlineAccountFields)
			return []any{v.AccountURI, v.Protocol, v.ServiceProvider, joinSemi(v.Capabilities),
				joinSemi(v.SubTypes), v.AccountPath, v.AccountIconPath, v.Enabled}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.OnlineAccountFields
			var caps, subs string
			err := r.Scan(&seq, &v.AccountURI, &v.Protocol, &v.ServiceProvider, &caps,
				&subs, &v.AccountPath, &v.AccountIconPath, &v.Enabled)
			v.Capabilities = splitSemi(caps)
			v.SubTypes = splitSemi(subs)
			return seq, v, err
		},
	},
	model.KindOrganization: {
		table:   "organizations",
		columns: []string{"name", "role", "title", "location", "department", "logo_url"},
		encode: func(f model.Fields) []any {
			v := f.(model.OrganizationFields)
			return []any{v.Name, v.Role, v.Title, v.Location, v.Department, v.LogoURL}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.OrganizationFields
			err := r.Scan(&seq, &v.Name, &v.Role, &v.Title, &v.Location, &v.Department, &v.LogoURL)
			return seq, v, err
		},
	},
	model.KindPhoneNumber: {
		table:   "phone_numbers",
		columns: []string{"phone_number", "sub_types", "normalized_number"},
		encode: func(f model.Fields) []any {
			v := f.(model.PhoneNumberFields)
			return []any{v.PhoneNumber, joinSemi(v.SubTypes), v.NormalizedNumber}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.PhoneNumberFields
			var subs string
			err := r.Scan(&seq, &v.PhoneNumber, &subs, &v.NormalizedNumber)
			v.SubTypes = splitSemi(subs)
			return seq, v, err
		},
	},
	model.KindPresence: {
		table:   "presences",
		columns: []string{"presence_state", "timestamp", "nickname", "custom_message"},
		encode: func(f model.Fields) []any {
			v := f.(model.PresenceFields)
			return []any{v.PresenceState, v.Timestamp, v.Nickname, v.CustomMessage}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.PresenceFields
			err := r.Scan(&seq, &v.PresenceState, &v.Timestamp, &v.Nickname, &v.CustomMessage)
			return seq, v, err
		},
	},
	model.KindRingtone: {
		table:   "ringtones",
		columns: []string{"audio_ringtone", "video_ringtone"},
		encode: func(f model.Fields) []any {
			v := f.(model.RingtoneFields)
			return []any{v.AudioRingtone, v.VideoRingtone}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.RingtoneFields
			err := r.Scan(&seq, &v.AudioRingtone, &v.VideoRingtone)
			return seq, v, err
		},
	},
	model.KindTag: {
		table:   "tags",
		columns: []string{"tag"},
		encode: func(f model.Fields) []any {
			return []any{f.(model.TagFields).Tag}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.TagFields
			err := r.Scan(&seq, &v.Tag)
			return seq, v, err
		},
	},
	model.KindUrl: {
		table:   "urls",
		columns: []string{"url", "sub_types"},
		encode: func(f model.Fields) []any {
			v := f.(model.UrlFields)
			return []any{v.Url, joinSemi(v.SubTypes)}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.UrlFields
			var subs string
			err := r.Scan(&seq, &v.Url, &subs)
			v.SubTypes = splitSemi(subs)
			return seq, v, err
		},
	},
	model.KindTpMetadata: {
		table:   "tp_metadata",
		columns: []string{"telepathy_id", "account_id", "account_enabled"},
		encode: func(f model.Fields) []any {
			v := f.(model.TpMetadataFields)
			return []any{v.TelepathyID, v.AccountID, v.AccountEnabled}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.TpMetadataFields
			err := r.Scan(&seq, &v.TelepathyID, &v.AccountID, &v.AccountEnabled)
			return seq, v, err
		},
	},
	model.KindName: {
		table:   "names",
		columns: []string{"first", "last", "middle", "prefix", "suffix", "custom_label"},
		encode: func(f model.Fields) []any {
			v := f.(model.NameFields)
			return []any{v.First, v.Last, v.Middle, v.Prefix, v.Suffix, v.CustomLabel}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.NameFields
			err := r.Scan(&seq, &v.First, &v.Last, &v.Middle, &v.Prefix, &v.Suffix, &v.CustomLabel)
			return seq, v, err
		},
	},
	model.KindSyncTarget: {
		table:   "sync_targets",
		columns: []string{"value"},
		encode: func(f model.Fields) []any {
			return []any{string(f.(model.SyncTargetFields).Value)}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.SyncTargetFields
			err := r.Scan(&seq, &v.Value)
			return seq, v, err
		},
	},
	model.KindTimestamp: {
		table:   "timestamps",
		columns: []string{"created", "last_modified"},
		encode: func(f model.Fields) []any {
			v := f.(model.TimestampFields)
			return []any{v.Created, v.LastModified}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.TimestampFields
			err := r.Scan(&seq, &v.Created, &v.LastModified)
			return seq, v, err
		},
	},
	model.KindGender: {
		table:   "genders",
		columns: []string{"value"},
		encode: func(f model.Fields) []any {
			return []any{f.(model.GenderFields).Value}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.GenderFields
			err := r.Scan(&seq, &v.Value)
			return seq, v, err
		},
	},
	model.KindFavorite: {
		table:   "favorites",
		columns: []string{"value"},
		encode: func(f model.Fields) []any {
			return []any{f.(model.FavoriteFields).Value}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.FavoriteFields
			err := r.Scan(&seq, &v.Value)
			return seq, v, err
		},
	},
	model.KindDisplayLabel: {
		table:   "display_labels",
		columns: []string{"label"},
		encode: func(f model.Fields) []any {
			return []any{f.(model.DisplayLabelFields).Label}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.DisplayLabelFields
			err := r.Scan(&seq, &v.Label)
			return seq, v, err
		},
	},
	model.KindType: {
		table:   "types",
		columns: []string{"value"},
		encode: func(f model.Fields) []any {
			return []any{f.(model.TypeFields).Value}
		},
		scan: func(r *sql.Rows) (int, model.Fields, error) {
			var seq int
			var v model.TypeFields
			err := r.Scan(&seq, &v.Value)
			return seq, v, err
		},
	},
}

func codecFor(k model.Kind) (kindCodec, error) {
	c, ok := codecs[k]
	if !ok {
		return kindCodec{}, fmt.Errorf("unknown detail kind %d", int(k))
	}
	return c, nil
}
