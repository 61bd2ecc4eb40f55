// Package query implements the version-aware semantic layer on top of
// the in-memory database the replay engine builds: recipients,
// threads, messages (with body templates, attachments, mentions and
// reactions), grounded line-for-line on sbk_build_recipient_tree,
// sbk_get_all_messages/sbk_get_message, sbk_get_body,
// sbk_insert_mentions, sbk_get_reactions, sbk_get_attachments and
// sbk_get_threads in original_source/sbk.c.
package query

import "github.com/jackwilsdon/sigbak-go/internal/store"

// Schema-version thresholds at which a query variant or a column
// changes shape. Named after the SBK_DB_VERSION_* constants in
// original_source/sbk.c.
const (
	VersionRecipientIDs       = 24
	VersionReactions          = 37
	VersionSplitProfileNames  = 43
	VersionMentions           = 68
)

// RecipientID identifies a recipient row. Schemas before
// VersionRecipientIDs key recipients by a legacy phone/email string;
// later schemas use an integer row id. Exactly one of the two is
// meaningful, selected by Legacy.
type RecipientID struct {
	Legacy bool
	Old    string
	New    int64
}

// RecipientKind selects which variant of Recipient is populated.
type RecipientKind int

const (
	RecipientContact RecipientKind = iota
	RecipientGroup
)

// Contact holds the columns consulted for a contact's display name
// and identity, per SBK_RECIPIENTS_QUERY_1/2/3.
type Contact struct {
	Phone               *string
	Email               *string
	SystemDisplayName   *string
	SystemPhoneLabel    *string
	ProfileName         *string
	ProfileFamilyName   *string
	ProfileJoinedName   *string
}

// Group holds the columns consulted for a group recipient. GroupID is
// carried even though spec.md's display-name logic never reads it —
// see SPEC_FULL.md §11's supplemented-features note.
type Group struct {
	Name    *string
	GroupID *string
}

// Recipient is the tagged union spec.md calls for: exactly one of
// Contact or Group is populated, selected by Kind.
type Recipient struct {
	ID      RecipientID
	Kind    RecipientKind
	Contact *Contact
	Group   *Group
}

// Thread is one row of the `thread` table.
type Thread struct {
	Recipient    *Recipient
	ID           int64
	Date         int64
	MessageCount int64
}

// Attachment is one row of the `part` table, joined against the
// replay engine's AttachmentIndex. Ref carries the payload's file
// position whenever the attachment's transfer is DONE and a FileRef
// was actually recorded for it — nil otherwise (pending transfer, or a
// DONE part with no matching payload, which attachmentsFromRows
// already rejects with a lookup error before an Attachment is ever
// returned). Holding the ref here, the way struct sbk_attachment
// hangs a file offset off of itself in the original, is what lets a
// caller that listed attachments via AttachmentsAll/AttachmentsForThread
// turn around and call Context.WriteAttachment without a separate
// index lookup.
type Attachment struct {
	Filename     *string
	ContentType  *string
	RowID        int64
	AttachmentID int64
	Status       int64
	Size         int64
	Ref          *store.FileRef
}

// StatusDone is the `pending_push` value meaning the attachment's
// payload is fully present in the backup (SBK_ATTACHMENT_TRANSFER_DONE).
const StatusDone = 0

// LongTextContentType marks an attachment that is really the
// overflow of a too-long message body, inlined back into the
// message's text rather than exposed as a regular attachment.
const LongTextContentType = "application/x-signal-long-text"

// Mention is a recipient reference tied to one occurrence of the
// U+FFFC placeholder in a message's text, in range_start order.
type Mention struct {
	Recipient *Recipient
}

// Reaction is one entry of a message's decoded ReactionList.
type Reaction struct {
	Recipient *Recipient
	Emoji     string
	TimeSent  int64
	TimeRecv  int64
}

// Message is one row of the SMS/MMS union, fully resolved: recipient,
// synthesized or literal body text, attachments, mentions applied,
// and reactions decoded.
type Message struct {
	Recipient   *Recipient
	Text        string
	TimeSent    int64
	TimeRecv    int64
	Type        int64
	ThreadID    int64
	Attachments []Attachment
	Mentions    []Mention
	Reactions   []Reaction
}

// Type is the bitfield stored in the sms/mms `type`/`msg_box` column.
// The low 5 bits select a base type; the remaining bits are
// independent flags, checked in the priority order sbk_get_body uses.
//
// The numeric values below are this reimplementation's own internal
// assignment: original_source/sbk.c references the SBK_* names
// through a header this pack's filtered retrieval did not include, so
// no pinned values were available to copy. They are internally
// consistent (distinct bits, base mask fits the lowest 5 bits) but
// are a judgment call — see DESIGN.md's Open Questions entry.
type Type uint64

const baseTypeMask Type = 0x1f

const (
	baseIncomingAudioCall Type = 1
	baseIncomingVideoCall Type = 2
	baseOutgoingAudioCall Type = 3
	baseOutgoingVideoCall Type = 4
	baseMissedAudioCall   Type = 5
	baseMissedVideoCall   Type = 6
	baseJoined            Type = 7
	baseUnsupportedMsg    Type = 8
	baseInvalidMsg        Type = 9
	baseProfileChange     Type = 10
	baseGV1Migration      Type = 11
	baseOutbox            Type = 21
	baseSending           Type = 22
	baseSent              Type = 23
	baseSentFailed        Type = 24
	basePendingSecureFallback   Type = 25
	basePendingInsecureFallback Type = 26
)

const (
	bitEncryptionRemoteFailed     Type = 1 << 5
	bitEncryptionRemoteNoSession  Type = 1 << 6
	bitEncryptionRemoteDuplicate  Type = 1 << 7
	bitEncryptionRemoteLegacy     Type = 1 << 8
	bitEncryptionRemote           Type = 1 << 9
	bitGroupUpdate                Type = 1 << 10
	bitGroupQuit                  Type = 1 << 11
	bitEndSession                 Type = 1 << 12
	bitKeyExchangeIdentityVerified Type = 1 << 13
	bitKeyExchangeIdentityDefault  Type = 1 << 14
	bitKeyExchangeCorrupted        Type = 1 << 15
	bitKeyExchangeInvalidVersion   Type = 1 << 16
	bitKeyExchangeBundle           Type = 1 << 17
	bitKeyExchangeIdentityUpdate   Type = 1 << 18
	bitKeyExchange                 Type = 1 << 19
)

// IsOutgoing reports whether t's base type marks a message the device
// itself sent, per sbk_is_outgoing_message.
func IsOutgoing(t Type) bool {
	switch t & baseTypeMask {
	case baseOutgoingAudioCall, baseOutbox, baseSending, baseSent,
		baseSentFailed, basePendingSecureFallback, basePendingInsecureFallback,
		baseOutgoingVideoCall:
		return true
	default:
		return false
	}
}
