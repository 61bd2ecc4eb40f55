package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
)

// Database wraps the in-memory SQLite database reconstructed by
// replaying a backup's Statement frames, plus the attachment index
// built alongside it.
type Database struct {
	DB          *sql.DB
	UserVersion int
	Attachments *AttachmentIndex
}

// openMemoryDB opens a private, in-process SQLite database using the
// pure-Go modernc.org/sqlite driver (see SPEC_FULL.md §10 for why this
// was chosen over a cgo-based driver). Pooled connections over
// :memory: each get their own, separate empty database, so the pool
// is pinned to a single connection — otherwise a query issued while
// another is still open (e.g. resolving an attachment or mention
// mid-scan of the message rows) would silently land on a fresh, empty
// database instead of the replayed one.
func openMemoryDB() (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("%w: open in-memory database: %v", bkerrors.ErrDatabase, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Close releases the database handle.
func (d *Database) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
