package store

import (
	"bytes"
	"fmt"
	"io"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
)

// bufSize is the default chunk size used to stream attachment
// payloads through decryption, matching the BUFSIZ-sized chunking
// spec §4.3 calls for. A FrameReader's own bufSize (SetBufferSize)
// takes precedence once set.
const bufSize = 8192

// ExtractAttachment seeks to ref.Offset, decrypts ref.Length bytes of
// ciphertext in r.bufSize-sized chunks, verifies the trailing MAC, and
// writes the plaintext to w. The underlying file's read position is
// left just past the MAC tag; callers that need to keep reading
// frames afterward must Rewind first (spec §5's "pointer not
// restored" rule).
func (r *FrameReader) ExtractAttachment(ref FileRef, w io.Writer) error {
	if r.stream == nil {
		return fmt.Errorf("%w: extract attachment: header not yet read", bkerrors.ErrCrypto)
	}
	if _, err := r.f.Seek(ref.Offset, io.SeekStart); err != nil {
		return fmt.Errorf("%w: seek attachment: %v", bkerrors.ErrIO, err)
	}

	dec, err := r.stream.NewAttachmentDecryptor(ref.Counter)
	if err != nil {
		return err
	}

	chunk := r.bufSize
	if chunk <= 0 {
		chunk = bufSize
	}
	in := make([]byte, chunk)
	out := make([]byte, chunk)
	remaining := ref.Length
	for remaining > 0 {
		n := chunk
		if uint32(n) > remaining {
			n = int(remaining)
		}
		if _, err := io.ReadFull(r.f, in[:n]); err != nil {
			return fmt.Errorf("%w: read attachment payload: %v", bkerrors.ErrIO, err)
		}
		dec.Update(out[:n], in[:n])
		if _, err := w.Write(out[:n]); err != nil {
			return fmt.Errorf("%w: write attachment payload: %v", bkerrors.ErrIO, err)
		}
		remaining -= uint32(n)
	}

	var tag [macLen]byte
	if _, err := io.ReadFull(r.f, tag[:]); err != nil {
		return fmt.Errorf("%w: read attachment mac: %v", bkerrors.ErrIO, err)
	}
	return dec.Verify(tag[:])
}

// ExtractAttachmentString decrypts the full payload named by ref and
// returns it as a string. Unlike the original implementation's
// C-string duplication (which truncates at the first embedded NUL),
// this preserves every byte of the declared length — see spec §9's
// design note on embedded NULs in text-like payloads.
func (r *FrameReader) ExtractAttachmentString(ref FileRef) (string, error) {
	var buf bytes.Buffer
	buf.Grow(int(ref.Length))
	if err := r.ExtractAttachment(ref, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
