// Package frame decodes the backup file's BackupFrame protobuf schema
// (spec §6) using the strict wire-format subset implemented by
// internal/wire. It mirrors the field-number-to-struct mapping of
// Signal's own Signal.BackupFrame message, grounded on
// original_source/backup.pb-c.{c,h} and the dispatch in
// sbk_get_frame (original_source/sbk.c).
package frame

import "github.com/jackwilsdon/sigbak-go/internal/bkerrors"

// ErrFormat is re-exported from bkerrors for convenience; callers can
// also match against bkerrors.ErrFormat directly.
var ErrFormat = bkerrors.ErrFormat

// Kind identifies which variant of the BackupFrame tagged union a
// Frame holds.
type Kind int

const (
	KindHeader Kind = iota
	KindStatement
	KindPreference
	KindAttachment
	KindVersion
	KindEnd
	KindAvatar
	KindSticker
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindStatement:
		return "statement"
	case KindPreference:
		return "preference"
	case KindAttachment:
		return "attachment"
	case KindVersion:
		return "version"
	case KindEnd:
		return "end"
	case KindAvatar:
		return "avatar"
	case KindSticker:
		return "sticker"
	default:
		return "unknown"
	}
}

// Header is the backup file's unencrypted first frame.
type Header struct {
	IV   [16]byte
	Salt []byte // optional
}

// ParamKind identifies which variant of a SqlParameter is populated.
type ParamKind int

const (
	ParamString ParamKind = iota
	ParamInt64
	ParamDouble
	ParamBytes
	ParamNull
)

// Param is one positional parameter of a Statement.
type Param struct {
	Kind    ParamKind
	Str     string
	Int64   int64
	Float64 float64
	Bytes   []byte
}

// Statement is a recorded SQL statement plus its positional
// parameters, replayed verbatim against the in-memory database.
type Statement struct {
	SQL    string
	Params []Param
}

// Preference is a recorded Android SharedPreferences entry. It has no
// database side effect; the replay engine keeps it only for file
// position bookkeeping (spec §4.3).
type Preference struct {
	File  string
	Key   string
	Value string
}

// Attachment records the position of an attachment payload that
// follows this frame in the backup file.
type Attachment struct {
	RowID        int64
	AttachmentID int64
	Length       uint32
	HasLength    bool
}

// Avatar records the position of an avatar payload that follows this
// frame in the backup file.
type Avatar struct {
	Name        string
	RecipientID string
	Length      uint32
	HasLength   bool
}

// Sticker records the position of a sticker payload that follows this
// frame in the backup file.
type Sticker struct {
	RowID     int64
	Length    uint32
	HasLength bool
}

// DatabaseVersion carries the value to assign to PRAGMA user_version.
type DatabaseVersion struct {
	Version uint32
}

// Frame is the decoded tagged union over one BackupFrame message. At
// most one of the pointer fields is non-nil, matching the "tagged
// frames" design note in spec §9 — this replaces the wire format's
// parallel optional submessages with a single Kind-selected payload.
// End is tracked separately because the wire format allows it
// alongside another variant in principle, even though in practice it
// only ever appears alone on the final frame.
type Frame struct {
	Kind       Kind
	Header     *Header
	Statement  *Statement
	Preference *Preference
	Attachment *Attachment
	Avatar     *Avatar
	Sticker    *Sticker
	Version    *DatabaseVersion
	End        bool
}

// HasFileData reports whether this frame is followed by an
// attachment/avatar/sticker payload in the file.
func (f *Frame) HasFileData() bool {
	return f.Attachment != nil || f.Avatar != nil || f.Sticker != nil
}

// FileDataLength returns the length of the payload that follows this
// frame, and whether one was declared at all (spec: "Every Attachment
// frame with payload must declare a length; absence of length is a
// format error.").
func (f *Frame) FileDataLength() (uint32, bool) {
	switch {
	case f.Attachment != nil:
		return f.Attachment.Length, f.Attachment.HasLength
	case f.Avatar != nil:
		return f.Avatar.Length, f.Avatar.HasLength
	case f.Sticker != nil:
		return f.Sticker.Length, f.Sticker.HasLength
	default:
		return 0, false
	}
}
