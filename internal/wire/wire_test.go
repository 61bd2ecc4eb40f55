package wire

import (
	"errors"
	"testing"
)

func TestDecodeVarint(t *testing.T) {
	cases := []struct {
		name string
		buf  []byte
		want uint64
		n    int
	}{
		{"zero", []byte{0x00}, 0, 1},
		{"one byte", []byte{0x7f}, 127, 1},
		{"two bytes", []byte{0x96, 0x01}, 150, 2},
		{"max 64-bit", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01}, ^uint64(0), 10},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v, n, err := DecodeVarint(c.buf)
			if err != nil {
				t.Fatalf("DecodeVarint: %v", err)
			}
			if v != c.want || n != c.n {
				t.Fatalf("got (%d, %d), want (%d, %d)", v, n, c.want, c.n)
			}
		})
	}
}

func TestDecodeVarintTruncated(t *testing.T) {
	_, _, err := DecodeVarint([]byte{0x80})
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v, want ErrTruncated", err)
	}
}

func TestDecodeVarintTooLong(t *testing.T) {
	buf := make([]byte, 11)
	for i := range buf {
		buf[i] = 0x80
	}
	_, _, err := DecodeVarint(buf)
	if !errors.Is(err, ErrVarintTooLong) {
		t.Fatalf("got %v, want ErrVarintTooLong", err)
	}
}

func TestDecodeTag(t *testing.T) {
	// field 1, wire type 2 (bytes): (1 << 3) | 2 = 0x0a
	tag, n, err := DecodeTag([]byte{0x0a})
	if err != nil {
		t.Fatalf("DecodeTag: %v", err)
	}
	if n != 1 || tag.Field != 1 || tag.Type != Bytes {
		t.Fatalf("got %+v (n=%d), want field=1 type=Bytes n=1", tag, n)
	}
}

func TestDecodeBytes(t *testing.T) {
	buf := append([]byte{0x03}, []byte("abc")...)
	payload, n, err := DecodeBytes(buf)
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if string(payload) != "abc" || n != 4 {
		t.Fatalf("got (%q, %d), want (\"abc\", 4)", payload, n)
	}
}

func TestDecodeBytesTruncated(t *testing.T) {
	buf := []byte{0x05, 'a', 'b'}
	_, _, err := DecodeBytes(buf)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("got %v, want ErrTruncated", err)
	}
}

func TestWalkUnsupportedWireType(t *testing.T) {
	// field 1, wire type 3 (start group) is not supported.
	buf := []byte{0x0b}
	err := Walk(buf, func(Field) error { return nil })
	var uerr *UnsupportedWireTypeError
	if !errors.As(err, &uerr) {
		t.Fatalf("got %v, want *UnsupportedWireTypeError", err)
	}
}

func TestWalkFields(t *testing.T) {
	// field 1 varint=42 (tag 0x08), field 2 bytes="hi" (tag 0x12).
	buf := []byte{0x08, 0x2a, 0x12, 0x02, 'h', 'i'}

	var got []Field
	if err := Walk(buf, func(f Field) error {
		got = append(got, f)
		return nil
	}); err != nil {
		t.Fatalf("Walk: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d fields, want 2", len(got))
	}
	v, err := got[0].Varint()
	if err != nil || v != 42 {
		t.Fatalf("field 1: got (%d, %v), want (42, nil)", v, err)
	}
	if got[1].String() != "hi" {
		t.Fatalf("field 2: got %q, want %q", got[1].String(), "hi")
	}
}

func TestWalkRejectsDuplicateViaCaller(t *testing.T) {
	// Walk itself doesn't reject duplicates; the caller must. Exercise
	// the pattern used throughout internal/frame.
	buf := []byte{0x08, 0x01, 0x08, 0x02} // field 1 twice
	seen := map[int]bool{}
	err := Walk(buf, func(f Field) error {
		if seen[f.Num] {
			return errors.New("duplicate field")
		}
		seen[f.Num] = true
		return nil
	})
	if err == nil {
		t.Fatal("expected duplicate-field error")
	}
}
