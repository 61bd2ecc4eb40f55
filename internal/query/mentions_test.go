package query

import (
	"errors"
	"testing"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
)

func strPtr(s string) *string { return &s }

func TestInsertMentionsScenario5(t *testing.T) {
	alice := &Recipient{Kind: RecipientContact, Contact: &Contact{ProfileName: strPtr("Alice")}}
	bob := &Recipient{Kind: RecipientContact, Contact: &Contact{ProfileName: strPtr("Bob")}}

	text := "Hi ￼ and ￼!"
	mentions := []Mention{{Recipient: alice}, {Recipient: bob}}

	got, err := insertMentions(text, mentions)
	if err != nil {
		t.Fatalf("insertMentions: %v", err)
	}
	want := "Hi @Alice and @Bob!"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInsertMentionsNoMentionsIsNoop(t *testing.T) {
	got, err := insertMentions("plain text", nil)
	if err != nil {
		t.Fatalf("insertMentions: %v", err)
	}
	if got != "plain text" {
		t.Fatalf("got %q", got)
	}
}

func TestInsertMentionsFewerPlaceholdersThanMentions(t *testing.T) {
	alice := &Recipient{Kind: RecipientContact, Contact: &Contact{ProfileName: strPtr("Alice")}}
	bob := &Recipient{Kind: RecipientContact, Contact: &Contact{ProfileName: strPtr("Bob")}}

	_, err := insertMentions("Hi ￼!", []Mention{{Recipient: alice}, {Recipient: bob}})
	if !errors.Is(err, bkerrors.ErrCorruption) {
		t.Fatalf("got %v, want ErrCorruption", err)
	}
}

func TestInsertMentionsLeftoverPlaceholder(t *testing.T) {
	alice := &Recipient{Kind: RecipientContact, Contact: &Contact{ProfileName: strPtr("Alice")}}

	_, err := insertMentions("Hi ￼ and ￼!", []Mention{{Recipient: alice}})
	if !errors.Is(err, bkerrors.ErrCorruption) {
		t.Fatalf("got %v, want ErrCorruption", err)
	}
}
