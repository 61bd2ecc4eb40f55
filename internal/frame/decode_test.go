package frame

import (
	"errors"
	"testing"
)

func tag(field int, wiretype int) byte {
	return byte(field<<3 | wiretype)
}

func TestDecodeHeader(t *testing.T) {
	iv := make([]byte, 16)
	for i := range iv {
		iv[i] = byte(i)
	}
	salt := []byte{0xaa, 0xbb}

	var buf []byte
	buf = append(buf, tag(1, 2), byte(len(iv)))
	buf = append(buf, iv...)
	buf = append(buf, tag(2, 2), byte(len(salt)))
	buf = append(buf, salt...)

	h, err := DecodeHeader(buf)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if h.IV != [16]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15} {
		t.Fatalf("got iv %x", h.IV)
	}
	if string(h.Salt) != string(salt) {
		t.Fatalf("got salt %x, want %x", h.Salt, salt)
	}
}

func TestDecodeHeaderMissingIV(t *testing.T) {
	_, err := DecodeHeader(nil)
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("got %v, want ErrFormat", err)
	}
}

func TestDecodeHeaderBadIVLength(t *testing.T) {
	var buf []byte
	buf = append(buf, tag(1, 2), 4, 1, 2, 3, 4)
	_, err := DecodeHeader(buf)
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("got %v, want ErrFormat", err)
	}
}

func buildStatement(sql string, params [][]byte) []byte {
	var buf []byte
	buf = append(buf, tag(1, 2), byte(len(sql)))
	buf = append(buf, sql...)
	for _, p := range params {
		buf = append(buf, tag(2, 2), byte(len(p)))
		buf = append(buf, p...)
	}
	return buf
}

func TestDecodeStatementWithParams(t *testing.T) {
	strParam := append([]byte{tag(1, 2), 2}, "hi"...)
	intParam := []byte{tag(2, 0), 42}
	nullParam := []byte{tag(5, 0), 1}

	buf := buildStatement("INSERT INTO t VALUES (?, ?, ?)", [][]byte{strParam, intParam, nullParam})

	fr, err := Decode(wrapFrame(2, buf))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if fr.Kind != KindStatement {
		t.Fatalf("got kind %v, want statement", fr.Kind)
	}
	st := fr.Statement
	if st.SQL != "INSERT INTO t VALUES (?, ?, ?)" {
		t.Fatalf("got sql %q", st.SQL)
	}
	if len(st.Params) != 3 {
		t.Fatalf("got %d params, want 3", len(st.Params))
	}
	if st.Params[0].Kind != ParamString || st.Params[0].Str != "hi" {
		t.Fatalf("param0: %+v", st.Params[0])
	}
	if st.Params[1].Kind != ParamInt64 || st.Params[1].Int64 != 42 {
		t.Fatalf("param1: %+v", st.Params[1])
	}
	if st.Params[2].Kind != ParamNull {
		t.Fatalf("param2: %+v", st.Params[2])
	}
}

// wrapFrame wraps a submessage payload as field fieldNum of a
// BackupFrame (wire type 2, length-delimited).
func wrapFrame(fieldNum int, payload []byte) []byte {
	var buf []byte
	buf = append(buf, tag(fieldNum, 2))
	buf = appendVarint(buf, uint64(len(payload)))
	buf = append(buf, payload...)
	return buf
}

func appendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func TestDecodeEndFrame(t *testing.T) {
	buf := []byte{tag(6, 0), 1}
	fr, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if fr.Kind != KindEnd || !fr.End {
		t.Fatalf("got %+v, want end frame", fr)
	}
}

func TestDecodeUnknownFieldIsError(t *testing.T) {
	buf := []byte{tag(99, 0), 1}
	_, err := Decode(buf)
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("got %v, want ErrFormat", err)
	}
}

func TestDecodeDuplicateFieldIsError(t *testing.T) {
	buf := []byte{tag(6, 0), 1, tag(6, 0), 0}
	_, err := Decode(buf)
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("got %v, want ErrFormat", err)
	}
}

func TestDecodeAttachmentRequiresLength(t *testing.T) {
	// rowId=1, attachmentId=2, no length field. Decode itself accepts
	// the frame and reports the missing length through HasLength and
	// FileDataLength; store.FrameReader.Next rejects it on that report.
	payload := []byte{tag(1, 0), 1, tag(2, 0), 2}
	fr, err := Decode(wrapFrame(4, payload))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if fr.Attachment.HasLength {
		t.Fatalf("expected HasLength=false")
	}
	_, has := fr.FileDataLength()
	if has {
		t.Fatalf("FileDataLength reported a length despite absence")
	}
}

func TestDecodeUnsupportedWireTypeInsideSubmessage(t *testing.T) {
	// field 1 (rowId) with wire type 1 (fixed64) instead of varint.
	payload := []byte{tag(1, 1), 0, 0, 0, 0, 0, 0, 0, 0}
	_, err := Decode(wrapFrame(4, payload))
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("got %v, want ErrFormat", err)
	}
}
