// Package sigbak decrypts and queries Signal-for-Android encrypted
// backup files: key derivation, per-frame authenticated decryption,
// in-memory SQLite replay of recorded statements, and a version-aware
// semantic layer over threads, messages, attachments, mentions and
// reactions. See internal/cryptostream, internal/frame, internal/store
// and internal/query for the layers this package wires together.
package sigbak

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
	"github.com/jackwilsdon/sigbak-go/internal/cryptostream"
	"github.com/jackwilsdon/sigbak-go/internal/frame"
	"github.com/jackwilsdon/sigbak-go/internal/query"
	"github.com/jackwilsdon/sigbak-go/internal/store"
)

// defaultBufferSize matches internal/store's own chunk size for
// streaming attachment payloads.
const defaultBufferSize = 8192

// Public type aliases, so callers never need to import the internal
// packages that actually define these shapes (spec.md §6).
type (
	Frame      = frame.Frame
	FileRef    = store.FileRef
	Attachment = query.Attachment
	Message    = query.Message
	Thread     = query.Thread
	Mention    = query.Mention
	Reaction   = query.Reaction
	Recipient  = query.Recipient
	Contact    = query.Contact
	Group      = query.Group
)

// Context is a single open backup: the underlying file, its derived
// keys, a frame reader over it, and — once MaterializeDatabase has run
// — the replayed database and the semantic query engine over it. Not
// safe for concurrent use; see spec §5.
type Context struct {
	f    *os.File
	path string

	keys   cryptostream.Keys
	reader *store.FrameReader

	logger      *slog.Logger
	bufferSize  int
	stripSpaces bool

	db     *store.Database
	engine *query.Engine

	lastErr error
}

// Open opens the backup at path, derives its keys from passphrase, and
// returns a Context positioned at the start of the frame stream.
// Opening does not replay the database; call MaterializeDatabase (or
// any of the query methods, which do so implicitly) before running
// queries.
//
// Key derivation needs the Header frame's salt, which is only known
// after reading the file once; Open reads the header, derives the
// keys, then seeks back to the start so the returned Context's
// FrameReader starts from frame zero.
func Open(path, passphrase string, opts ...Option) (*Context, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", bkerrors.ErrIO, path, err)
	}

	c := &Context{
		f:           f,
		path:        path,
		logger:      slog.Default(),
		bufferSize:  defaultBufferSize,
		stripSpaces: true,
	}
	for _, opt := range opts {
		opt(c)
	}

	probe := store.NewFrameReader(f, cryptostream.Keys{})
	fr, _, err := probe.Next()
	if err != nil {
		_ = f.Close()
		return nil, c.recordErr(wrapUnknown("read header", err))
	}
	if fr.Header == nil {
		_ = f.Close()
		return nil, c.recordErr(fmt.Errorf("%w: missing header", ErrFormat))
	}

	pass := passphrase
	if c.stripSpaces {
		pass = strings.ReplaceAll(pass, " ", "")
	}

	keys, err := cryptostream.DeriveKeys(pass, fr.Header.Salt)
	if err != nil {
		_ = f.Close()
		return nil, c.recordErr(err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, c.recordErr(fmt.Errorf("%w: rewind after header probe: %v", ErrIO, err))
	}

	c.keys = keys
	c.reader = store.NewFrameReader(f, keys)
	c.reader.SetBufferSize(c.bufferSize)
	c.logger.Debug("opened backup", "path", path)
	return c, nil
}

// Close zeros the derived key material and releases the database and
// file handles. Close is idempotent.
func (c *Context) Close() error {
	c.keys.Zero()
	if c.db != nil {
		_ = c.db.Close()
		c.db = nil
	}
	c.engine = nil
	if c.f == nil {
		return nil
	}
	err := c.f.Close()
	c.f = nil
	if err != nil {
		return c.recordErr(fmt.Errorf("%w: close %q: %v", ErrIO, c.path, err))
	}
	return nil
}

// MaterializeDatabase replays every Statement frame into an in-memory
// SQLite database and builds the semantic query engine over it.
// Idempotent: a second call is a no-op as long as the reader has not
// been rewound and re-materialized with new content in between.
func (c *Context) MaterializeDatabase() error {
	if c.engine != nil {
		return nil
	}
	return c.replay()
}

// replay unconditionally rewinds and replays the frame stream,
// rebuilding the database and query engine regardless of whether one
// is already materialized. Verify uses this directly so a repeat call
// actually re-walks and re-authenticates every frame instead of
// short-circuiting on MaterializeDatabase's idempotence check.
func (c *Context) replay() error {
	if err := c.reader.Rewind(); err != nil {
		return c.recordErr(wrapUnknown("rewind before replay", err))
	}

	db, err := store.Replay(context.Background(), c.reader, c.logger)
	if err != nil {
		return c.recordErr(wrapUnknown("replay", err))
	}
	c.db = db

	engine, err := query.NewEngine(db.DB, db.Attachments, c.reader, db.UserVersion)
	if err != nil {
		return c.recordErr(wrapUnknown("build query engine", err))
	}
	c.engine = engine

	c.logger.Debug("materialized database", "user_version", db.UserVersion,
		"attachments", db.Attachments.Len())
	return nil
}

// ExportSQLite writes the replayed database out to a standalone
// SQLite file at outPath, via VACUUM INTO. MaterializeDatabase is
// called first if it hasn't been already.
func (c *Context) ExportSQLite(outPath string) error {
	if err := c.MaterializeDatabase(); err != nil {
		return err
	}
	stmt := fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(outPath, "'", "''"))
	if _, err := c.db.DB.Exec(stmt); err != nil {
		return c.recordErr(fmt.Errorf("%w: vacuum into %q: %v", ErrDatabase, outPath, err))
	}
	return nil
}

// FrameEvent is one step of a Frames iteration: the decoded frame,
// plus the optional file-payload hook spec.md §6 calls for. File is
// non-nil exactly when Frame carries an attachment, avatar or sticker
// payload — attachments are also recorded in the AttachmentIndex and
// so reachable again later via an Attachment's Ref, but avatar and
// sticker payloads are not indexed anywhere, so File here is the only
// way to reach them at all.
type FrameEvent struct {
	Frame Frame
	File  *FileRef
}

// Frames iterates every frame of the backup exactly once, in file
// order, starting from wherever the reader currently is. It is
// single-pass: once exhausted (or partially consumed), call Rewind to
// restart. Iteration stops as soon as the yield function returns
// false, or as soon as a frame produces an error (the error is
// yielded once, then iteration stops). A FrameEvent.File stays valid
// after iteration; save it and extract the payload with
// WriteAttachment/WriteAttachmentString. Extraction moves the file's
// read position and does not restore it, so frame iteration after an
// extraction has to start over with Rewind.
func (c *Context) Frames() iter.Seq2[FrameEvent, error] {
	return func(yield func(FrameEvent, error) bool) {
		n := 0
		for {
			fr, ref, err := c.reader.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(FrameEvent{}, c.recordErr(&FrameError{Frame: n, Err: wrapUnknown("read frame", err)}))
				return
			}
			if !yield(FrameEvent{Frame: *fr, File: ref}, nil) {
				return
			}
			n++
		}
	}
}

// Rewind seeks the backup file back to the start and resets frame
// iteration, so Frames (or a fresh MaterializeDatabase) starts over
// from frame zero.
func (c *Context) Rewind() error {
	if err := c.reader.Rewind(); err != nil {
		return c.recordErr(wrapUnknown("rewind", err))
	}
	return nil
}

// Verify replays the database, which authenticates every frame's
// HMAC tag as it is decrypted, and returns the first authentication or
// format error encountered, if any, without materializing query
// results beyond what replay itself needs. This mirrors cmd_check in
// the original implementation; unlike WriteAttachment, it does not
// additionally authenticate attachment/avatar/sticker payload MACs,
// since those are only read (and their trailing tag verified) when
// explicitly extracted — see DESIGN.md.
func (c *Context) Verify() error {
	return c.replay()
}

// Threads returns every thread in the backup.
func (c *Context) Threads() ([]Thread, error) {
	if err := c.MaterializeDatabase(); err != nil {
		return nil, err
	}
	out, err := c.engine.Threads()
	if err != nil {
		return nil, c.recordErr(&QueryError{Query: "threads", Err: err})
	}
	return out, nil
}

// MessagesAll returns every message in the backup, ordered by
// date_received.
func (c *Context) MessagesAll() ([]Message, error) {
	if err := c.MaterializeDatabase(); err != nil {
		return nil, err
	}
	out, err := c.engine.MessagesAll()
	if err != nil {
		return nil, c.recordErr(&QueryError{Query: "messages (all)", Err: err})
	}
	return out, nil
}

// MessagesForThread returns every message belonging to threadID,
// ordered by date_received.
func (c *Context) MessagesForThread(threadID int64) ([]Message, error) {
	if err := c.MaterializeDatabase(); err != nil {
		return nil, err
	}
	out, err := c.engine.MessagesForThread(threadID)
	if err != nil {
		return nil, c.recordErr(&QueryError{Query: "messages (thread)", Err: err})
	}
	return out, nil
}

// AttachmentsAll returns every attachment in the backup.
func (c *Context) AttachmentsAll() ([]Attachment, error) {
	if err := c.MaterializeDatabase(); err != nil {
		return nil, err
	}
	out, err := c.engine.AttachmentsAll()
	if err != nil {
		return nil, c.recordErr(&QueryError{Query: "attachments (all)", Err: err})
	}
	return out, nil
}

// AttachmentsForThread returns every attachment belonging to threadID.
func (c *Context) AttachmentsForThread(threadID int64) ([]Attachment, error) {
	if err := c.MaterializeDatabase(); err != nil {
		return nil, err
	}
	out, err := c.engine.AttachmentsForThread(threadID)
	if err != nil {
		return nil, c.recordErr(&QueryError{Query: "attachments (thread)", Err: err})
	}
	return out, nil
}

// WriteAttachment decrypts, authenticates and writes the payload
// referenced by ref to w. ref is usually *Attachment.Ref, as returned
// by AttachmentsAll/AttachmentsForThread/MessagesAll/MessagesForThread;
// a FrameEvent.File from Frames works too, e.g. for an avatar or
// sticker payload that never appears in an Attachment at all.
func (c *Context) WriteAttachment(ref FileRef, w io.Writer) error {
	if err := c.reader.ExtractAttachment(ref, w); err != nil {
		return c.recordErr(wrapUnknown("write attachment", err))
	}
	return nil
}

// DisplayName returns r's display name, following the contact/group
// fallback priority in query.DisplayName. A nil Recipient (which
// should not occur for any Recipient the query layer itself returns,
// but is cheap to guard against for callers holding one from
// elsewhere) yields "Unknown".
func DisplayName(r *Recipient) string {
	if r == nil {
		return "Unknown"
	}
	return query.DisplayName(r)
}

// WriteAttachmentString decrypts ref in full and returns it as a
// string, per sbk_get_file_as_string — used for short text
// attachments (e.g. the long-message overflow body, which the query
// layer already inlines automatically, but exposed here for callers
// that want to pull an arbitrary text attachment themselves).
func (c *Context) WriteAttachmentString(ref FileRef) (string, error) {
	s, err := c.reader.ExtractAttachmentString(ref)
	if err != nil {
		return "", c.recordErr(wrapUnknown("write attachment string", err))
	}
	return s, nil
}
