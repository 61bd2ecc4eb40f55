package query

import (
	"database/sql"
	"fmt"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
)

const threadsQuery = `SELECT recipient_ids, _id, date, message_count FROM thread ORDER BY _id`

// Threads returns every row of the `thread` table, resolved against
// cache, per SBK_THREADS_QUERY/sbk_get_threads.
func Threads(db *sql.DB, cache *Cache, userVersion int) ([]Thread, error) {
	legacy := userVersion < VersionRecipientIDs

	rows, err := db.Query(threadsQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: threads query: %v", bkerrors.ErrDatabase, err)
	}
	defer rows.Close()

	var out []Thread
	for rows.Next() {
		var (
			id, date, count int64
			recipientCol    sql.NullString
			recipientInt    int64
		)

		var scanErr error
		if legacy {
			scanErr = rows.Scan(&recipientCol, &id, &date, &count)
		} else {
			scanErr = rows.Scan(&recipientInt, &id, &date, &count)
		}
		if scanErr != nil {
			return nil, fmt.Errorf("%w: scan thread row: %v", bkerrors.ErrDatabase, scanErr)
		}

		var rid RecipientID
		if legacy {
			if !recipientCol.Valid {
				return nil, fmt.Errorf("%w: thread: missing legacy recipient id", bkerrors.ErrFormat)
			}
			rid = recipientIDFromLegacyColumn(recipientCol.String)
		} else {
			rid = recipientIDFromIntColumn(recipientInt)
		}

		r, err := cache.Lookup(rid)
		if err != nil {
			return nil, err
		}

		out = append(out, Thread{Recipient: r, ID: id, Date: date, MessageCount: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate threads: %v", bkerrors.ErrDatabase, err)
	}
	return out, nil
}
