package query

import (
	"errors"
	"testing"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
)

func reactionTag(field, wiretype int) byte {
	return byte(field<<3 | wiretype)
}

func appendReactionVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// buildReaction encodes a Reaction submessage with the given author,
// optionally appending a second author field to exercise the
// duplicate-field rejection.
func buildReaction(author int64, duplicateAuthor bool) []byte {
	var buf []byte
	buf = append(buf, reactionTag(1, 0))
	buf = appendReactionVarint(buf, uint64(author))
	if duplicateAuthor {
		buf = append(buf, reactionTag(1, 0))
		buf = appendReactionVarint(buf, uint64(author))
	}
	return buf
}

func TestDecodeReactionRejectsDuplicateAuthor(t *testing.T) {
	cache := &Cache{index: make(map[RecipientID]int)}
	cache.entries = append(cache.entries, Recipient{ID: RecipientID{New: 7}, Kind: RecipientContact, Contact: &Contact{}})
	cache.index[RecipientID{New: 7}] = 0

	_, err := decodeReaction(buildReaction(7, true), cache)
	if !errors.Is(err, bkerrors.ErrFormat) {
		t.Fatalf("got err %v, want ErrFormat", err)
	}
}

func TestDecodeReactionAcceptsSingleAuthor(t *testing.T) {
	cache := &Cache{index: make(map[RecipientID]int)}
	cache.entries = append(cache.entries, Recipient{ID: RecipientID{New: 7}, Kind: RecipientContact, Contact: &Contact{}})
	cache.index[RecipientID{New: 7}] = 0

	r, err := decodeReaction(buildReaction(7, false), cache)
	if err != nil {
		t.Fatalf("decodeReaction: %v", err)
	}
	if r.Recipient.ID.New != 7 {
		t.Fatalf("got recipient %d, want 7", r.Recipient.ID.New)
	}
}
