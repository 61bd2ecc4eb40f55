package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
	"github.com/jackwilsdon/sigbak-go/internal/frame"
)

// skippedTablePrefix is the case-insensitive SQL prefix the replay
// engine silently drops: the backup occasionally contains a CREATE
// TABLE for one of SQLite's own reserved sqlite_* tables, which would
// otherwise collide when replayed. Grounded on sbk_exec_stmt in
// original_source/sbk.c, which does the same skip.
const skippedTablePrefix = "create table sqlite_"

// Replay reconstructs the in-memory database by iterating every frame
// of r exactly once, replaying Statement frames inside a single
// transaction and recording attachment FileRefs as they're seen. If
// the final frame observed is not an End frame, the backup is
// considered truncated and Replay returns a CorruptionError.
func Replay(ctx context.Context, r *FrameReader, logger *slog.Logger) (*Database, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := openMemoryDB()
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: begin transaction: %v", bkerrors.ErrDatabase, err)
	}

	index := NewAttachmentIndex()
	userVersion := 0
	sawEnd := false

	for {
		fr, ref, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = tx.Rollback()
			_ = db.Close()
			return nil, err
		}

		switch fr.Kind {
		case frame.KindVersion:
			userVersion = int(fr.Version.Version)
			if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", userVersion)); err != nil {
				_ = tx.Rollback()
				_ = db.Close()
				return nil, fmt.Errorf("%w: set user_version: %v", bkerrors.ErrDatabase, err)
			}
		case frame.KindStatement:
			if strings.HasPrefix(strings.ToLower(fr.Statement.SQL), skippedTablePrefix) {
				logger.Debug("skipping reserved table statement", "sql", fr.Statement.SQL)
				continue
			}
			args := make([]any, len(fr.Statement.Params))
			for i, p := range fr.Statement.Params {
				args[i] = paramValue(p)
			}
			if _, err := tx.ExecContext(ctx, fr.Statement.SQL, args...); err != nil {
				_ = tx.Rollback()
				_ = db.Close()
				return nil, fmt.Errorf("%w: exec %q: %v", bkerrors.ErrDatabase, fr.Statement.SQL, err)
			}
		case frame.KindAttachment:
			if ref == nil {
				_ = tx.Rollback()
				_ = db.Close()
				return nil, fmt.Errorf("%w: attachment frame without payload", bkerrors.ErrFormat)
			}
			index.Record(fr.Attachment.RowID, fr.Attachment.AttachmentID, *ref)
		case frame.KindAvatar, frame.KindSticker, frame.KindPreference:
			// No database side effect; file-position bookkeeping only.
		case frame.KindEnd:
			sawEnd = true
		}
	}

	if err := tx.Commit(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: commit: %v", bkerrors.ErrDatabase, err)
	}

	if !sawEnd {
		_ = db.Close()
		return nil, fmt.Errorf("%w: backup is truncated (no end frame)", bkerrors.ErrCorruption)
	}

	return &Database{DB: db, UserVersion: userVersion, Attachments: index}, nil
}

func paramValue(p frame.Param) any {
	switch p.Kind {
	case frame.ParamString:
		return p.Str
	case frame.ParamInt64:
		return p.Int64
	case frame.ParamDouble:
		return p.Float64
	case frame.ParamBytes:
		return p.Bytes
	case frame.ParamNull:
		return nil
	default:
		return nil
	}
}
