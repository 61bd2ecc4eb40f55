// Package store implements the backup's replay engine: reading the
// outer length-prefixed frame stream, decrypting and decoding each
// frame, replaying Statement frames into an in-memory SQLite
// database, and indexing attachment/avatar/sticker payloads for later
// random-access extraction. Grounded on sbk_get_frame, sbk_skip_file_data,
// sbk_get_file and sbk_create_database in original_source/sbk.c.
package store

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
	"github.com/jackwilsdon/sigbak-go/internal/cryptostream"
	"github.com/jackwilsdon/sigbak-go/internal/frame"
)

// macLen is the trailing HMAC length stored after every ciphertext,
// frame or attachment payload alike.
const macLen = cryptostream.MacLen

// FileRef points at an attachment/avatar/sticker payload recorded
// during frame iteration: its offset in the backup file, its
// plaintext length, and the counter value needed to re-derive the IV
// and re-run the HMAC when it is later extracted.
type FileRef struct {
	Offset  int64
	Length  uint32
	Counter uint32
}

// FrameReader iterates the frames of an open backup file. The first
// call to Next reads the unencrypted Header frame; subsequent calls
// decrypt and authenticate each frame with a cryptostream.Stream
// seeded from that header. FrameReader is single-pass: Rewind seeks
// back to the start of the file and resets iteration state, matching
// the "no restartable iterator" design note in spec §9.
type FrameReader struct {
	f       io.ReadSeeker
	keys    cryptostream.Keys
	stream  *cryptostream.Stream
	counter uint32
	first   bool
	eof     bool
	header  *frame.Header
	bufSize int
}

// NewFrameReader returns a FrameReader over f, which must be
// positioned at the start of the backup file. keys are the derived
// cipher/MAC keys; they are not consumed until the Header frame sets
// the base IV.
func NewFrameReader(f io.ReadSeeker, keys cryptostream.Keys) *FrameReader {
	return &FrameReader{f: f, keys: keys, first: true, bufSize: bufSize}
}

// SetBufferSize overrides the chunk size ExtractAttachment streams
// payloads through. n <= 0 is ignored, leaving the default in place.
func (r *FrameReader) SetBufferSize(n int) {
	if n > 0 {
		r.bufSize = n
	}
}

// Rewind seeks the underlying file back to the beginning and resets
// iteration state so Next will re-read the Header frame.
func (r *FrameReader) Rewind() error {
	if _, err := r.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: rewind: %v", bkerrors.ErrIO, err)
	}
	r.first = true
	r.eof = false
	r.counter = 0
	r.stream = nil
	r.header = nil
	return nil
}

// Header returns the most recently decoded Header frame, or nil if
// Next has not yet been called since the last Rewind.
func (r *FrameReader) Header() *frame.Header {
	return r.header
}

// Counter returns the reader's current counter value.
func (r *FrameReader) Counter() uint32 {
	return r.counter
}

// Eof reports whether the reader has observed the End frame.
func (r *FrameReader) Eof() bool {
	return r.eof
}

// readRecord reads one length-prefixed record. A clean io.EOF right at
// a record boundary is returned as-is, so Next can propagate it and
// let the replay loop's own !sawEnd check (replay.go) decide whether
// that's a truncated backup. A read that fails partway through a
// record — a short length prefix or a short body — is unambiguously a
// truncated backup, not a boundary, so it's reported as
// bkerrors.ErrCorruption directly rather than as an I/O error.
func (r *FrameReader) readRecord() ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r.f, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: truncated backup (unexpected end of file)", bkerrors.ErrCorruption)
		}
		return nil, fmt.Errorf("%w: %v", bkerrors.ErrIO, err)
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	if length == 0 {
		return nil, fmt.Errorf("%w: invalid frame size", bkerrors.ErrFormat)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r.f, buf); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: truncated backup (unexpected end of file)", bkerrors.ErrCorruption)
		}
		return nil, fmt.Errorf("%w: %v", bkerrors.ErrIO, err)
	}
	return buf, nil
}

// Next decodes the next frame. It returns io.EOF once the End frame
// has already been consumed and no further frames remain to read.
// When the returned frame carries attachment/avatar/sticker file
// data, ref is non-nil and the payload has already been skipped over
// in the underlying file (the replay path never needs to look at file
// payloads directly — extraction is a separate, later, random-access
// operation keyed by ref).
func (r *FrameReader) Next() (*frame.Frame, *FileRef, error) {
	if r.eof {
		return nil, nil, io.EOF
	}

	raw, err := r.readRecord()
	if err != nil {
		return nil, nil, err
	}

	if r.first {
		r.first = false
		fr, err := frame.Decode(raw)
		if err != nil {
			return nil, nil, err
		}
		if fr.Kind != frame.KindHeader || fr.Header == nil {
			return nil, nil, fmt.Errorf("%w: first frame is not a header", bkerrors.ErrFormat)
		}
		r.header = fr.Header
		r.counter = binary.BigEndian.Uint32(fr.Header.IV[:4])
		r.stream = cryptostream.New(r.keys, fr.Header.IV)
		return fr, nil, nil
	}

	if len(raw) <= macLen {
		return nil, nil, fmt.Errorf("%w: invalid frame size", bkerrors.ErrFormat)
	}
	ciphertext := raw[:len(raw)-macLen]
	tag := raw[len(raw)-macLen:]

	plaintext, err := r.stream.DecryptFrame(r.counter, ciphertext, tag)
	if err != nil {
		return nil, nil, err
	}

	fr, err := frame.Decode(plaintext)
	if err != nil {
		return nil, nil, err
	}
	if fr.End {
		r.eof = true
	}
	r.counter++

	var ref *FileRef
	if fr.HasFileData() {
		length, has := fr.FileDataLength()
		if !has {
			return nil, nil, fmt.Errorf("%w: %s frame missing length", bkerrors.ErrFormat, fr.Kind)
		}
		pos, err := r.f.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", bkerrors.ErrIO, err)
		}
		ref = &FileRef{Offset: pos, Length: length, Counter: r.counter}

		if _, err := r.f.Seek(int64(length)+macLen, io.SeekCurrent); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", bkerrors.ErrIO, err)
		}
		r.counter++
	}

	return fr, ref, nil
}
