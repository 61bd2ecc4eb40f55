package query

import (
	"fmt"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
	"github.com/jackwilsdon/sigbak-go/internal/wire"
)

// fieldSet tracks which field numbers have already been seen in one
// submessage, so a second occurrence of a non-repeated field is
// rejected per spec §4.2 ("each non-repeated field must appear at
// most once; a second occurrence is a parse error") — the same rule
// internal/frame's decoder enforces on the outer frame schema.
type fieldSet map[int]bool

func (s fieldSet) markOrError(num int) error {
	if s[num] {
		return fmt.Errorf("%w: duplicate field %d", bkerrors.ErrFormat, num)
	}
	s[num] = true
	return nil
}

// decodeReactionList decodes a ReactionList protobuf (field 1:
// repeated Reaction{author int64, emoji string, sentTime int64,
// receivedTime int64}) stored in the `reactions` column, per
// sbk_get_reactions/sbk_unpack_reaction_list_message.
func decodeReactionList(buf []byte, cache *Cache) ([]Reaction, error) {
	var out []Reaction

	err := wire.Walk(buf, func(f wire.Field) error {
		if f.Num != 1 {
			return fmt.Errorf("%w: reaction list: unknown field %d", bkerrors.ErrFormat, f.Num)
		}
		if f.Type != wire.Bytes {
			return fmt.Errorf("%w: reaction list: field 1 wire type %d", bkerrors.ErrFormat, f.Type)
		}
		r, err := decodeReaction(f.Payload, cache)
		if err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeReaction(buf []byte, cache *Cache) (Reaction, error) {
	var (
		author            int64
		haveAuthor        bool
		emoji             string
		sentTime, recvTime int64
	)

	seen := fieldSet{}
	err := wire.Walk(buf, func(f wire.Field) error {
		if err := seen.markOrError(f.Num); err != nil {
			return err
		}
		switch f.Num {
		case 1:
			if f.Type != wire.Varint {
				return fmt.Errorf("%w: reaction: author wire type %d", bkerrors.ErrFormat, f.Type)
			}
			v, err := f.Varint()
			if err != nil {
				return err
			}
			author = int64(v)
			haveAuthor = true
		case 2:
			if f.Type != wire.Bytes {
				return fmt.Errorf("%w: reaction: emoji wire type %d", bkerrors.ErrFormat, f.Type)
			}
			emoji = f.String()
		case 3:
			if f.Type != wire.Varint {
				return fmt.Errorf("%w: reaction: sentTime wire type %d", bkerrors.ErrFormat, f.Type)
			}
			v, err := f.Varint()
			if err != nil {
				return err
			}
			sentTime = int64(v)
		case 4:
			if f.Type != wire.Varint {
				return fmt.Errorf("%w: reaction: receivedTime wire type %d", bkerrors.ErrFormat, f.Type)
			}
			v, err := f.Varint()
			if err != nil {
				return err
			}
			recvTime = int64(v)
		default:
			return fmt.Errorf("%w: reaction: unknown field %d", bkerrors.ErrFormat, f.Num)
		}
		return nil
	})
	if err != nil {
		return Reaction{}, err
	}
	if !haveAuthor {
		return Reaction{}, fmt.Errorf("%w: reaction: missing author", bkerrors.ErrFormat)
	}

	recipient, err := cache.Lookup(recipientIDFromIntColumn(author))
	if err != nil {
		return Reaction{}, err
	}

	return Reaction{
		Recipient: recipient,
		Emoji:     emoji,
		TimeSent:  sentTime,
		TimeRecv:  recvTime,
	}, nil
}
