package query

import (
	"database/sql"
	"fmt"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
	"github.com/jackwilsdon/sigbak-go/internal/store"
)

const (
	attachmentsSelect      = `SELECT file_name, ct, _id, unique_id, pending_push, data_size FROM part `
	attachmentsWhereThread = `WHERE mid IN (SELECT _id FROM mms WHERE thread_id = ?) `
	attachmentsWhereMsg    = `WHERE mid = ? `
	attachmentsOrder       = `ORDER BY unique_id, _id`

	attachmentsQueryAll    = attachmentsSelect + attachmentsOrder
	attachmentsQueryThread = attachmentsSelect + attachmentsWhereThread + attachmentsOrder
	attachmentsQueryMsg    = attachmentsSelect + attachmentsWhereMsg + attachmentsOrder
)

// attachmentsFromRows scans every row of an already-executed
// attachments query, checking the DONE-length invariant against idx
// (spec.md §3: "For ATTACHMENT_TRANSFER_DONE, the part row's data_size
// must equal the recorded FileRef length").
func attachmentsFromRows(rows *sql.Rows, idx *store.AttachmentIndex) ([]Attachment, error) {
	defer rows.Close()

	var out []Attachment
	for rows.Next() {
		var (
			filename, contentType sql.NullString
			rowID, attachmentID   int64
			status, size          int64
		)
		if err := rows.Scan(&filename, &contentType, &rowID, &attachmentID, &status, &size); err != nil {
			return nil, fmt.Errorf("%w: scan attachment row: %v", bkerrors.ErrDatabase, err)
		}

		att := Attachment{
			Filename:     nullString(filename),
			ContentType:  nullString(contentType),
			RowID:        rowID,
			AttachmentID: attachmentID,
			Status:       status,
			Size:         size,
		}

		if status == StatusDone {
			ref, ok := idx.Lookup(rowID, attachmentID)
			if !ok {
				return nil, fmt.Errorf("%w: attachment (%d, %d) marked done but no payload recorded",
					bkerrors.ErrLookup, rowID, attachmentID)
			}
			if int64(ref.Length) != size {
				return nil, fmt.Errorf("%w: attachment (%d, %d): data_size %d != payload length %d",
					bkerrors.ErrCorruption, rowID, attachmentID, size, ref.Length)
			}
			att.Ref = &ref
		}

		out = append(out, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate attachments: %v", bkerrors.ErrDatabase, err)
	}
	return out, nil
}

// AttachmentsAll returns every attachment in the backup, per
// SBK_ATTACHMENTS_QUERY_ALL.
func AttachmentsAll(db *sql.DB, idx *store.AttachmentIndex) ([]Attachment, error) {
	rows, err := db.Query(attachmentsQueryAll)
	if err != nil {
		return nil, fmt.Errorf("%w: attachments query: %v", bkerrors.ErrDatabase, err)
	}
	return attachmentsFromRows(rows, idx)
}

// AttachmentsForThread returns every attachment belonging to a
// message in threadID, per SBK_ATTACHMENTS_QUERY_THREAD.
func AttachmentsForThread(db *sql.DB, idx *store.AttachmentIndex, threadID int64) ([]Attachment, error) {
	rows, err := db.Query(attachmentsQueryThread, threadID)
	if err != nil {
		return nil, fmt.Errorf("%w: attachments query: %v", bkerrors.ErrDatabase, err)
	}
	return attachmentsFromRows(rows, idx)
}

// attachmentsForMessage returns the attachments of one MMS message,
// per SBK_ATTACHMENTS_QUERY_MESSAGE — used while assembling Message
// values (step 4 of spec.md §4.4).
func attachmentsForMessage(db *sql.DB, idx *store.AttachmentIndex, mmsID int64) ([]Attachment, error) {
	rows, err := db.Query(attachmentsQueryMsg, mmsID)
	if err != nil {
		return nil, fmt.Errorf("%w: attachments query: %v", bkerrors.ErrDatabase, err)
	}
	return attachmentsFromRows(rows, idx)
}
