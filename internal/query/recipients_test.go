package query

import "testing"

func TestDisplayNameContactPriority(t *testing.T) {
	phone := "+15555550123"
	joined := "Alice Smith"
	c := &Recipient{Kind: RecipientContact, Contact: &Contact{
		ProfileJoinedName: &joined,
		Phone:             &phone,
	}}
	if got := DisplayName(c); got != joined {
		t.Fatalf("got %q, want %q", got, joined)
	}
}

func TestDisplayNameContactFallsBackToPhone(t *testing.T) {
	phone := "+15555550123"
	c := &Recipient{Kind: RecipientContact, Contact: &Contact{Phone: &phone}}
	if got := DisplayName(c); got != phone {
		t.Fatalf("got %q, want %q", got, phone)
	}
}

func TestDisplayNameContactUnknown(t *testing.T) {
	c := &Recipient{Kind: RecipientContact, Contact: &Contact{}}
	if got := DisplayName(c); got != "Unknown" {
		t.Fatalf("got %q, want Unknown", got)
	}
}

func TestDisplayNameGroup(t *testing.T) {
	title := "Book Club"
	g := &Recipient{Kind: RecipientGroup, Group: &Group{Name: &title}}
	if got := DisplayName(g); got != title {
		t.Fatalf("got %q, want %q", got, title)
	}
}

func TestDisplayNameGroupUnknown(t *testing.T) {
	g := &Recipient{Kind: RecipientGroup, Group: &Group{}}
	if got := DisplayName(g); got != "Unknown" {
		t.Fatalf("got %q, want Unknown", got)
	}
}

func TestCacheLookupMiss(t *testing.T) {
	c := &Cache{index: make(map[RecipientID]int)}
	if _, err := c.Lookup(RecipientID{New: 42}); err == nil {
		t.Fatalf("expected lookup error for missing recipient")
	}
}
