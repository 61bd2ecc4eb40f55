package frame

import (
	"fmt"
	"math"

	"github.com/jackwilsdon/sigbak-go/internal/wire"
)

// fieldSet tracks which field numbers have already been seen in one
// submessage, so a second occurrence of a non-repeated field can be
// rejected per spec §4.2 ("each non-repeated field must appear at
// most once; a second occurrence is a parse error").
type fieldSet map[int]bool

func (s fieldSet) markOrError(num int) error {
	if s[num] {
		return fmt.Errorf("%w: duplicate field %d", ErrFormat, num)
	}
	s[num] = true
	return nil
}

func wantType(f wire.Field, want wire.Type) error {
	if f.Type != want {
		return fmt.Errorf("%w: field %d: wire type %d, want %d", ErrFormat, f.Num, f.Type, want)
	}
	return nil
}

// DecodeHeader decodes a Header submessage: field 1 iv (required,
// exactly 16 bytes), field 2 salt (optional).
func DecodeHeader(buf []byte) (*Header, error) {
	h := &Header{}
	seen := fieldSet{}
	haveIV := false

	err := wire.Walk(buf, func(f wire.Field) error {
		if err := seen.markOrError(f.Num); err != nil {
			return err
		}
		switch f.Num {
		case 1:
			if err := wantType(f, wire.Bytes); err != nil {
				return err
			}
			if len(f.Payload) != 16 {
				return fmt.Errorf("%w: header: iv must be 16 bytes, got %d", ErrFormat, len(f.Payload))
			}
			copy(h.IV[:], f.Payload)
			haveIV = true
		case 2:
			if err := wantType(f, wire.Bytes); err != nil {
				return err
			}
			h.Salt = append([]byte(nil), f.Payload...)
		default:
			return fmt.Errorf("%w: header: unknown field %d", ErrFormat, f.Num)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !haveIV {
		return nil, fmt.Errorf("%w: header: missing iv", ErrFormat)
	}
	return h, nil
}

func decodeParam(buf []byte) (Param, error) {
	var p Param
	seen := fieldSet{}
	have := false

	err := wire.Walk(buf, func(f wire.Field) error {
		if err := seen.markOrError(f.Num); err != nil {
			return err
		}
		if have {
			return fmt.Errorf("%w: sql parameter: more than one variant set", ErrFormat)
		}
		switch f.Num {
		case 1:
			if err := wantType(f, wire.Bytes); err != nil {
				return err
			}
			p.Kind = ParamString
			p.Str = f.String()
		case 2:
			if err := wantType(f, wire.Varint); err != nil {
				return err
			}
			v, err := f.Varint()
			if err != nil {
				return fmt.Errorf("%w: sql parameter: integer: %v", ErrFormat, err)
			}
			p.Kind = ParamInt64
			p.Int64 = int64(v)
		case 3:
			if err := wantType(f, wire.Fixed64); err != nil {
				return err
			}
			bits, err := f.Fixed64()
			if err != nil {
				return fmt.Errorf("%w: sql parameter: double: %v", ErrFormat, err)
			}
			p.Kind = ParamDouble
			p.Float64 = fixed64ToFloat64(bits)
		case 4:
			if err := wantType(f, wire.Bytes); err != nil {
				return err
			}
			p.Kind = ParamBytes
			p.Bytes = append([]byte(nil), f.Payload...)
		case 5:
			if err := wantType(f, wire.Varint); err != nil {
				return err
			}
			v, err := f.Bool()
			if err != nil {
				return fmt.Errorf("%w: sql parameter: null: %v", ErrFormat, err)
			}
			if !v {
				return fmt.Errorf("%w: sql parameter: null field present but false", ErrFormat)
			}
			p.Kind = ParamNull
		default:
			return fmt.Errorf("%w: sql parameter: unknown field %d", ErrFormat, f.Num)
		}
		have = true
		return nil
	})
	if err != nil {
		return Param{}, err
	}
	if !have {
		return Param{}, fmt.Errorf("%w: sql parameter: no variant set", ErrFormat)
	}
	return p, nil
}

func decodeStatement(buf []byte) (*Statement, error) {
	st := &Statement{}
	haveSQL := false

	// SQL is non-repeated (field 1); parameters are repeated (field 2)
	// so they are not subject to the "at most once" rule.
	sqlSeen := false

	err := wire.Walk(buf, func(f wire.Field) error {
		switch f.Num {
		case 1:
			if sqlSeen {
				return fmt.Errorf("%w: statement: duplicate field 1", ErrFormat)
			}
			sqlSeen = true
			if err := wantType(f, wire.Bytes); err != nil {
				return err
			}
			st.SQL = f.String()
			haveSQL = true
		case 2:
			if err := wantType(f, wire.Bytes); err != nil {
				return err
			}
			p, err := decodeParam(f.Payload)
			if err != nil {
				return err
			}
			st.Params = append(st.Params, p)
		default:
			return fmt.Errorf("%w: statement: unknown field %d", ErrFormat, f.Num)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !haveSQL {
		return nil, fmt.Errorf("%w: statement: missing sql", ErrFormat)
	}
	return st, nil
}

func decodePreference(buf []byte) (*Preference, error) {
	pr := &Preference{}
	seen := fieldSet{}

	err := wire.Walk(buf, func(f wire.Field) error {
		if err := seen.markOrError(f.Num); err != nil {
			return err
		}
		if err := wantType(f, wire.Bytes); err != nil {
			return err
		}
		switch f.Num {
		case 1:
			pr.File = f.String()
		case 2:
			pr.Key = f.String()
		case 3:
			pr.Value = f.String()
		default:
			return fmt.Errorf("%w: preference: unknown field %d", ErrFormat, f.Num)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pr, nil
}

func decodeAttachment(buf []byte) (*Attachment, error) {
	at := &Attachment{}
	seen := fieldSet{}

	err := wire.Walk(buf, func(f wire.Field) error {
		if err := seen.markOrError(f.Num); err != nil {
			return err
		}
		switch f.Num {
		case 1:
			if err := wantType(f, wire.Varint); err != nil {
				return err
			}
			v, err := f.Varint()
			if err != nil {
				return err
			}
			at.RowID = int64(v)
		case 2:
			if err := wantType(f, wire.Varint); err != nil {
				return err
			}
			v, err := f.Varint()
			if err != nil {
				return err
			}
			at.AttachmentID = int64(v)
		case 3:
			if err := wantType(f, wire.Varint); err != nil {
				return err
			}
			v, err := f.Varint()
			if err != nil {
				return err
			}
			at.Length = uint32(v)
			at.HasLength = true
		default:
			return fmt.Errorf("%w: attachment: unknown field %d", ErrFormat, f.Num)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return at, nil
}

func decodeAvatar(buf []byte) (*Avatar, error) {
	av := &Avatar{}
	seen := fieldSet{}

	err := wire.Walk(buf, func(f wire.Field) error {
		if err := seen.markOrError(f.Num); err != nil {
			return err
		}
		switch f.Num {
		case 1:
			if err := wantType(f, wire.Bytes); err != nil {
				return err
			}
			av.Name = f.String()
		case 2:
			if err := wantType(f, wire.Varint); err != nil {
				return err
			}
			v, err := f.Varint()
			if err != nil {
				return err
			}
			av.Length = uint32(v)
			av.HasLength = true
		case 3:
			if err := wantType(f, wire.Bytes); err != nil {
				return err
			}
			av.RecipientID = f.String()
		default:
			return fmt.Errorf("%w: avatar: unknown field %d", ErrFormat, f.Num)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return av, nil
}

func decodeSticker(buf []byte) (*Sticker, error) {
	st := &Sticker{}
	seen := fieldSet{}

	err := wire.Walk(buf, func(f wire.Field) error {
		if err := seen.markOrError(f.Num); err != nil {
			return err
		}
		switch f.Num {
		case 1:
			if err := wantType(f, wire.Varint); err != nil {
				return err
			}
			v, err := f.Varint()
			if err != nil {
				return err
			}
			st.RowID = int64(v)
		case 2:
			if err := wantType(f, wire.Varint); err != nil {
				return err
			}
			v, err := f.Varint()
			if err != nil {
				return err
			}
			st.Length = uint32(v)
			st.HasLength = true
		default:
			return fmt.Errorf("%w: sticker: unknown field %d", ErrFormat, f.Num)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

func decodeVersion(buf []byte) (*DatabaseVersion, error) {
	dv := &DatabaseVersion{}
	seen := fieldSet{}

	err := wire.Walk(buf, func(f wire.Field) error {
		if err := seen.markOrError(f.Num); err != nil {
			return err
		}
		if f.Num != 1 {
			return fmt.Errorf("%w: version: unknown field %d", ErrFormat, f.Num)
		}
		if err := wantType(f, wire.Varint); err != nil {
			return err
		}
		v, err := f.Varint()
		if err != nil {
			return err
		}
		dv.Version = uint32(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dv, nil
}

// Decode decodes one BackupFrame message (spec §6 field numbers:
// 1 header, 2 statement, 3 preference, 4 attachment, 5 version,
// 6 end, 7 avatar, 8 sticker).
func Decode(buf []byte) (*Frame, error) {
	fr := &Frame{}
	seen := fieldSet{}
	variantSet := false

	setVariant := func(k Kind) error {
		if variantSet {
			return fmt.Errorf("%w: more than one frame variant set", ErrFormat)
		}
		variantSet = true
		fr.Kind = k
		return nil
	}

	err := wire.Walk(buf, func(f wire.Field) error {
		if err := seen.markOrError(f.Num); err != nil {
			return err
		}
		switch f.Num {
		case 1:
			if err := wantType(f, wire.Bytes); err != nil {
				return err
			}
			h, err := DecodeHeader(f.Payload)
			if err != nil {
				return err
			}
			if err := setVariant(KindHeader); err != nil {
				return err
			}
			fr.Header = h
		case 2:
			if err := wantType(f, wire.Bytes); err != nil {
				return err
			}
			st, err := decodeStatement(f.Payload)
			if err != nil {
				return err
			}
			if err := setVariant(KindStatement); err != nil {
				return err
			}
			fr.Statement = st
		case 3:
			if err := wantType(f, wire.Bytes); err != nil {
				return err
			}
			pr, err := decodePreference(f.Payload)
			if err != nil {
				return err
			}
			if err := setVariant(KindPreference); err != nil {
				return err
			}
			fr.Preference = pr
		case 4:
			if err := wantType(f, wire.Bytes); err != nil {
				return err
			}
			at, err := decodeAttachment(f.Payload)
			if err != nil {
				return err
			}
			if err := setVariant(KindAttachment); err != nil {
				return err
			}
			fr.Attachment = at
		case 5:
			if err := wantType(f, wire.Bytes); err != nil {
				return err
			}
			dv, err := decodeVersion(f.Payload)
			if err != nil {
				return err
			}
			if err := setVariant(KindVersion); err != nil {
				return err
			}
			fr.Version = dv
		case 6:
			if err := wantType(f, wire.Varint); err != nil {
				return err
			}
			v, err := f.Bool()
			if err != nil {
				return err
			}
			fr.End = v
		case 7:
			if err := wantType(f, wire.Bytes); err != nil {
				return err
			}
			av, err := decodeAvatar(f.Payload)
			if err != nil {
				return err
			}
			if err := setVariant(KindAvatar); err != nil {
				return err
			}
			fr.Avatar = av
		case 8:
			if err := wantType(f, wire.Bytes); err != nil {
				return err
			}
			st, err := decodeSticker(f.Payload)
			if err != nil {
				return err
			}
			if err := setVariant(KindSticker); err != nil {
				return err
			}
			fr.Sticker = st
		default:
			return fmt.Errorf("%w: unknown field %d", ErrFormat, f.Num)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !variantSet {
		if fr.End {
			fr.Kind = KindEnd
		} else {
			return nil, fmt.Errorf("%w: empty frame", ErrFormat)
		}
	}
	return fr, nil
}

// fixed64ToFloat64 reinterprets the bits of a fixed64 field as an
// IEEE-754 double, matching protobuf's double wire encoding.
func fixed64ToFloat64(bits uint64) float64 {
	return math.Float64frombits(bits)
}
