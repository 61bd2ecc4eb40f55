package query

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
)

const mentionsQuery = `SELECT recipient_id FROM mention WHERE message_id = ? ORDER BY range_start`

// mentionPlaceholder is the Unicode object-replacement character
// Signal uses as an inline marker for a mention, U+FFFC.
const mentionPlaceholder = "￼"

const mentionPrefix = "@"

// mentionsForMessage loads the mentions attached to mmsID, in
// range_start order, per SBK_MENTIONS_QUERY. It returns an empty
// slice (not an error) below VersionMentions, matching
// sbk_get_mentions_for_message's early return.
func mentionsForMessage(db *sql.DB, cache *Cache, userVersion int, legacy bool, mmsID int64) ([]Mention, error) {
	if userVersion < VersionMentions {
		return nil, nil
	}

	rows, err := db.Query(mentionsQuery, mmsID)
	if err != nil {
		return nil, fmt.Errorf("%w: mentions query: %v", bkerrors.ErrDatabase, err)
	}
	defer rows.Close()

	var mentions []Mention
	for rows.Next() {
		id, err := scanRecipientID(rows, legacy)
		if err != nil {
			return nil, err
		}
		r, err := cache.Lookup(id)
		if err != nil {
			return nil, err
		}
		mentions = append(mentions, Mention{Recipient: r})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate mentions: %v", bkerrors.ErrDatabase, err)
	}
	return mentions, nil
}

// scanRecipientID reads a single recipient-id column from the current
// row, dispatching on the legacy-id/row-id schema split.
func scanRecipientID(rows *sql.Rows, legacy bool) (RecipientID, error) {
	if legacy {
		var s sql.NullString
		if err := rows.Scan(&s); err != nil {
			return RecipientID{}, fmt.Errorf("%w: scan recipient id: %v", bkerrors.ErrDatabase, err)
		}
		if !s.Valid {
			return RecipientID{}, fmt.Errorf("%w: missing legacy recipient id", bkerrors.ErrFormat)
		}
		return recipientIDFromLegacyColumn(s.String), nil
	}
	var v int64
	if err := rows.Scan(&v); err != nil {
		return RecipientID{}, fmt.Errorf("%w: scan recipient id: %v", bkerrors.ErrDatabase, err)
	}
	return recipientIDFromIntColumn(v), nil
}

// insertMentions replaces each successive U+FFFC occurrence in text
// with "@" + the mention's display name, in order, implementing
// sbk_insert_mentions. It returns an error (spec.md's corruption
// error) if there are fewer placeholders than mentions, or any remain
// after every mention has been applied.
func insertMentions(text string, mentions []Mention) (string, error) {
	if len(mentions) == 0 {
		return text, nil
	}

	var b strings.Builder
	rest := text
	for _, m := range mentions {
		idx := strings.Index(rest, mentionPlaceholder)
		if idx == -1 {
			return "", fmt.Errorf("%w: fewer mention placeholders than mentions", bkerrors.ErrCorruption)
		}
		b.WriteString(rest[:idx])
		b.WriteString(mentionPrefix)
		b.WriteString(DisplayName(m.Recipient))
		rest = rest[idx+len(mentionPlaceholder):]
	}

	if strings.Contains(rest, mentionPlaceholder) {
		return "", fmt.Errorf("%w: leftover mention placeholder", bkerrors.ErrCorruption)
	}

	b.WriteString(rest)
	return b.String(), nil
}
