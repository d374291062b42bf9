// Package model defines the contact/detail data model and the equivalence
// rule used everywhere else in this module to decide whether two details
// describe the same thing.
package model

// Kind identifies the variant carried by a Detail. It mirrors the table
// names the underlying store keeps one-per-kind (see internal/storage/sqlite),
// one per detail variant (Address, PhoneNumber, ...).
type Kind int

const (
	KindAddress Kind = iota
	KindAnniversary
	KindAvatar
	KindBirthday
	KindEmailAddress
	KindGlobalPresence
	KindGuid
	KindHobby
	KindNickname
	KindNote
	KindOnlineAccount
	KindOrganization
	KindPhoneNumber
	KindPresence
	KindRingtone
	KindTag
	KindUrl
	KindTpMetadata
	KindName
	KindSyncTarget
	KindTimestamp
	KindGender
	KindFavorite
	KindDisplayLabel
	KindType
)

var kindNames = map[Kind]string{
	KindAddress:        "Address",
	KindAnniversary:    "Anniversary",
	KindAvatar:         "Avatar",
	KindBirthday:       "Birthday",
	KindEmailAddress:   "EmailAddress",
	KindGlobalPresence: "GlobalPresence",
	KindGuid:           "Guid",
	KindHobby:          "Hobby",
	KindNickname:       "Nickname",
	KindNote:           "Note",
	KindOnlineAccount:  "OnlineAccount",
	KindOrganization:   "Organization",
	KindPhoneNumber:    "PhoneNumber",
	KindPresence:       "Presence",
	KindRingtone:       "Ringtone",
	KindTag:            "Tag",
	KindUrl:            "Url",
	KindTpMetadata:     "TpMetadata",
	KindName:           "Name",
	KindSyncTarget:     "SyncTarget",
	KindTimestamp:      "Timestamp",
	KindGender:         "Gender",
	KindFavorite:       "Favorite",
	KindDisplayLabel:   "DisplayLabel",
	KindType:           "Type",
}

// AllKinds is every known detail kind, in a stable order. internal/writer
// walks this slice when clearing/rewriting a contact's detail rows, so the
// order here fixes the order tables are touched in a single write.
var AllKinds = []Kind{
	KindAddress, KindAnniversary, KindAvatar, KindBirthday, KindEmailAddress,
	KindGlobalPresence, KindGuid, KindHobby, KindNickname, KindNote,
	KindOnlineAccount, KindOrganization, KindPhoneNumber, KindPresence,
	KindRingtone, KindTag, KindUrl, KindTpMetadata, KindName, KindSyncTarget,
	KindTimestamp, KindGender, KindFavorite, KindDisplayLabel, KindType,
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Unknown"
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

// uniqueKinds may appear at most once per contact.
var uniqueKinds = map[Kind]bool{
	KindName:           true,
	KindTimestamp:      true,
	KindGender:         true,
	KindFavorite:       true,
	KindSyncTarget:     true,
	KindDisplayLabel:   true,
	KindType:           true,
	KindGlobalPresence: true,
}

// IsUnique reports whether at most one detail of this kind may exist on a
// contact.
func (k Kind) IsUnique() bool {
	return uniqueKinds[k]
}

// IsMulti reports the complement of IsUnique.
func (k Kind) IsMulti() bool {
	return !uniqueKinds[k]
}

// unpromotedKinds never flow from a constituent onto its aggregate, and
// therefore never flow back down via a delta either.
var unpromotedKinds = map[Kind]bool{
	KindSyncTarget:   true,
	KindGuid:         true,
	KindType:         true,
	KindDisplayLabel: true,
}

// IsUnpromoted reports whether values of this kind are excluded from
// constituent->aggregate composition and the reverse delta.
func (k Kind) IsUnpromoted() bool {
	return unpromotedKinds[k]
}

// KindMask is an optional allow-list of detail kinds. An empty/nil mask
// means "no filtering" throughout this module (write masks, delta masks,
// aggregate-pruning masks all share this convention).
type KindMask map[Kind]bool

// NewKindMask builds a mask from a list of kinds. An empty list yields a
// nil mask (meaning: unrestricted), matching the "non-empty mask gates"
// language used throughout this package.
func NewKindMask(kinds ...Kind) KindMask {
	if len(kinds) == 0 {
		return nil
	}
	m := make(KindMask, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return m
}

// Allows reports whether the mask permits kind k. A nil/empty mask allows
// everything.
func (m KindMask) Allows(k Kind) bool {
	if len(m) == 0 {
		return true
	}
	return m[k]
}
