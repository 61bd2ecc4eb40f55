package query

import (
	"database/sql"
	"fmt"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
	"github.com/jackwilsdon/sigbak-go/internal/store"
)

const (
	messagesSelectSMS1 = `SELECT address, body, date_sent, date AS date_received, type, thread_id, 0, -1, NULL FROM sms `
	messagesSelectSMS2 = `SELECT address, body, date_sent, date AS date_received, type, thread_id, 0, -1, reactions FROM sms `
	messagesSelectMMS1 = `SELECT address, body, date, date_received, msg_box, thread_id, part_count, _id, NULL FROM mms `
	messagesSelectMMS2 = `SELECT address, body, date, date_received, msg_box, thread_id, part_count, _id, reactions FROM mms `

	messagesWhereThread = `WHERE thread_id = ? `
	messagesOrder        = `ORDER BY date_received`

	messagesQueryAll1    = messagesSelectSMS1 + "UNION ALL " + messagesSelectMMS1 + messagesOrder
	messagesQueryAll2    = messagesSelectSMS2 + "UNION ALL " + messagesSelectMMS2 + messagesOrder
	messagesQueryThread1 = messagesSelectSMS1 + messagesWhereThread + "UNION ALL " + messagesSelectMMS1 + messagesWhereThread + messagesOrder
	messagesQueryThread2 = messagesSelectSMS2 + messagesWhereThread + "UNION ALL " + messagesSelectMMS2 + messagesWhereThread + messagesOrder
)

// Engine ties the replay engine's database and attachment payloads to
// the recipient cache needed to resolve messages, threads and
// reactions. Build one with NewEngine after MaterializeDatabase.
type Engine struct {
	db          *sql.DB
	attachments *store.AttachmentIndex
	reader      *store.FrameReader
	cache       *Cache
	userVersion int
}

// NewEngine builds the recipient cache and returns an Engine ready to
// answer Threads/Messages/Attachments queries. reader is used only
// for long-message attachment extraction (step 5 of spec.md §4.4);
// it must be the same FrameReader that produced attachments.
func NewEngine(db *sql.DB, attachments *store.AttachmentIndex, reader *store.FrameReader, userVersion int) (*Engine, error) {
	cache, err := BuildCache(db, userVersion)
	if err != nil {
		return nil, err
	}
	return &Engine{db: db, attachments: attachments, reader: reader, cache: cache, userVersion: userVersion}, nil
}

// Threads returns every thread, per spec.md §4.4's Threads query.
func (e *Engine) Threads() ([]Thread, error) {
	return Threads(e.db, e.cache, e.userVersion)
}

// AttachmentsAll returns every attachment in the backup.
func (e *Engine) AttachmentsAll() ([]Attachment, error) {
	return AttachmentsAll(e.db, e.attachments)
}

// AttachmentsForThread returns every attachment belonging to threadID.
func (e *Engine) AttachmentsForThread(threadID int64) ([]Attachment, error) {
	return AttachmentsForThread(e.db, e.attachments, threadID)
}

// MessagesAll returns every message in the backup, ordered by
// date_received.
func (e *Engine) MessagesAll() ([]Message, error) {
	query := messagesQueryAll1
	if e.userVersion >= VersionReactions {
		query = messagesQueryAll2
	}
	return e.queryMessages(query)
}

// MessagesForThread returns every message belonging to threadID,
// ordered by date_received.
func (e *Engine) MessagesForThread(threadID int64) ([]Message, error) {
	query := messagesQueryThread1
	if e.userVersion >= VersionReactions {
		query = messagesQueryThread2
	}
	return e.queryMessages(query, threadID, threadID)
}

// pendingMessage is a message row scanned from the outer cursor, with
// everything resolvable from the row alone already applied (recipient
// lookup, body synthesis), but attachment/mention resolution deferred
// until after the outer cursor is closed.
type pendingMessage struct {
	msg           *Message
	mmsID         int64
	partCount     int64
	reactionsBlob []byte
}

// queryMessages runs query and resolves every row into a Message.
// The database is opened with a single pooled connection (see
// store.openMemoryDB), since modernc's :memory: database is private
// to the connection that created it — every row must therefore be
// scanned and the outer *sql.Rows closed before attachmentsForMessage
// or mentionsForMessage issue their own db.Query, or the nested call
// would block forever waiting for a second connection that can never
// be pooled.
func (e *Engine) queryMessages(query string, args ...any) ([]Message, error) {
	rows, err := e.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: messages query: %v", bkerrors.ErrDatabase, err)
	}

	legacy := e.userVersion < VersionRecipientIDs

	var pending []pendingMessage
	for rows.Next() {
		p, err := e.scanMessage(rows, legacy)
		if err != nil {
			rows.Close()
			return nil, err
		}
		pending = append(pending, *p)
	}
	rowsErr := rows.Err()
	rows.Close()
	if rowsErr != nil {
		return nil, fmt.Errorf("%w: iterate messages: %v", bkerrors.ErrDatabase, rowsErr)
	}

	out := make([]Message, len(pending))
	for i, p := range pending {
		if err := e.resolveMessage(p.msg, p.mmsID, p.partCount, p.reactionsBlob, legacy); err != nil {
			return nil, err
		}
		out[i] = *p.msg
	}
	return out, nil
}

func (e *Engine) scanMessage(rows *sql.Rows, legacy bool) (*pendingMessage, error) {
	var (
		addrCol             sql.NullString
		addrInt             int64
		body                sql.NullString
		timeSent, timeRecv  int64
		typ                 int64
		threadID            int64
		partCount           int64
		mmsID               int64
		reactionsBlob       []byte
	)

	var scanErr error
	if legacy {
		scanErr = rows.Scan(&addrCol, &body, &timeSent, &timeRecv, &typ, &threadID, &partCount, &mmsID, &reactionsBlob)
	} else {
		scanErr = rows.Scan(&addrInt, &body, &timeSent, &timeRecv, &typ, &threadID, &partCount, &mmsID, &reactionsBlob)
	}
	if scanErr != nil {
		return nil, fmt.Errorf("%w: scan message row: %v", bkerrors.ErrDatabase, scanErr)
	}

	var rid RecipientID
	if legacy {
		if !addrCol.Valid {
			return nil, fmt.Errorf("%w: message: missing legacy recipient id", bkerrors.ErrFormat)
		}
		rid = recipientIDFromLegacyColumn(addrCol.String)
	} else {
		rid = recipientIDFromIntColumn(addrInt)
	}
	recipient, err := e.cache.Lookup(rid)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		Recipient: recipient,
		TimeSent:  timeSent,
		TimeRecv:  timeRecv,
		Type:      typ,
		ThreadID:  threadID,
	}
	if body.Valid {
		msg.Text = body.String
	}

	if synthesized, ok := computeBody(Type(typ), DisplayName(recipient)); ok {
		msg.Text = synthesized
	}

	return &pendingMessage{msg: msg, mmsID: mmsID, partCount: partCount, reactionsBlob: reactionsBlob}, nil
}

// resolveMessage fills in everything that needs its own query against
// e.db — attachments and mentions — plus the reaction decode, which
// is pure but depends on attachments having already run for
// inlineLongMessage to have a list to search. Called only after the
// outer message cursor (queryMessages' rows) has been closed.
func (e *Engine) resolveMessage(msg *Message, mmsID, partCount int64, reactionsBlob []byte, legacy bool) error {
	if partCount > 0 {
		atts, err := attachmentsForMessage(e.db, e.attachments, mmsID)
		if err != nil {
			return err
		}
		msg.Attachments = atts

		if err := e.inlineLongMessage(msg); err != nil {
			return err
		}
	}

	if mmsID >= 0 {
		mentions, err := mentionsForMessage(e.db, e.cache, e.userVersion, legacy, mmsID)
		if err != nil {
			return err
		}
		if len(mentions) > 0 {
			text, err := insertMentions(msg.Text, mentions)
			if err != nil {
				return err
			}
			msg.Text = text
			msg.Mentions = mentions
		}
	}

	if e.userVersion >= VersionReactions && reactionsBlob != nil {
		reactions, err := decodeReactionList(reactionsBlob, e.cache)
		if err != nil {
			return err
		}
		msg.Reactions = reactions
	}

	return nil
}

// inlineLongMessage implements sbk_get_long_message: it takes the
// first attachment whose content type marks it as the long-text
// overflow of this message's body and, if its payload is present,
// decrypts it in full, replaces msg.Text with it, and drops it from
// the attachment list. Any further long-text attachments are left in
// the list unchanged.
func (e *Engine) inlineLongMessage(msg *Message) error {
	idx := -1
	for i, a := range msg.Attachments {
		if a.ContentType != nil && *a.ContentType == LongTextContentType {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil
	}

	att := msg.Attachments[idx]
	if att.Status != StatusDone || att.Ref == nil {
		return nil
	}

	text, err := e.reader.ExtractAttachmentString(*att.Ref)
	if err != nil {
		return err
	}
	msg.Text = text
	msg.Attachments = append(msg.Attachments[:idx], msg.Attachments[idx+1:]...)
	return nil
}
