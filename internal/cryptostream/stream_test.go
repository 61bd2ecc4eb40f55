package cryptostream

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"testing"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
)

func testKeys() Keys {
	var k Keys
	for i := range k.Cipher {
		k.Cipher[i] = byte(i)
	}
	for i := range k.Mac {
		k.Mac[i] = byte(i + 1)
	}
	return k
}

func TestDecryptFrameRoundTrip(t *testing.T) {
	keys := testKeys()
	var headerIV [IVLen]byte
	for i := range headerIV {
		headerIV[i] = byte(0xA0 + i)
	}
	s := New(keys, headerIV)

	plaintext := []byte("hello, this is a frame payload")
	counter := uint32(7)

	ctr, _, err := s.newCTR(counter)
	if err != nil {
		t.Fatalf("newCTR: %v", err)
	}
	ciphertext := make([]byte, len(plaintext))
	ctr.XORKeyStream(ciphertext, plaintext)

	mac := s.newMAC()
	mac.Write(ciphertext)
	tag := mac.Sum(nil)[:MacLen]

	got, err := s.DecryptFrame(counter, ciphertext, tag)
	if err != nil {
		t.Fatalf("DecryptFrame: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("got %q, want %q", got, plaintext)
	}
}

func TestDecryptFrameAuthFailure(t *testing.T) {
	keys := testKeys()
	var headerIV [IVLen]byte
	s := New(keys, headerIV)

	ciphertext := []byte("some ciphertext")
	badTag := make([]byte, MacLen)

	_, err := s.DecryptFrame(3, ciphertext, badTag)
	if !errors.Is(err, bkerrors.ErrAuth) {
		t.Fatalf("got %v, want ErrAuth", err)
	}
}

func TestAttachmentDecryptorFeedsIVIntoMAC(t *testing.T) {
	keys := testKeys()
	var headerIV [IVLen]byte
	for i := range headerIV {
		headerIV[i] = byte(i)
	}
	s := New(keys, headerIV)
	counter := uint32(5)

	plaintext := bytes.Repeat([]byte("x"), 100)
	ctr, iv, err := s.newCTR(counter)
	if err != nil {
		t.Fatalf("newCTR: %v", err)
	}
	ciphertext := make([]byte, len(plaintext))
	ctr.XORKeyStream(ciphertext, plaintext)

	expectedMAC := hmac.New(sha256.New, keys.Mac[:])
	expectedMAC.Write(iv[:])
	expectedMAC.Write(ciphertext)
	wantTag := expectedMAC.Sum(nil)[:MacLen]

	dec, err := s.NewAttachmentDecryptor(counter)
	if err != nil {
		t.Fatalf("NewAttachmentDecryptor: %v", err)
	}
	got := make([]byte, len(ciphertext))
	// Feed in two chunks to exercise streaming.
	half := len(ciphertext) / 2
	dec.Update(got[:half], ciphertext[:half])
	dec.Update(got[half:], ciphertext[half:])

	if err := dec.Verify(wantTag); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Fatalf("got %q, want %q", got, plaintext)
	}
}

func TestAttachmentDecryptorAuthFailure(t *testing.T) {
	keys := testKeys()
	var headerIV [IVLen]byte
	s := New(keys, headerIV)

	dec, err := s.NewAttachmentDecryptor(1)
	if err != nil {
		t.Fatalf("NewAttachmentDecryptor: %v", err)
	}
	buf := make([]byte, 4)
	dec.Update(buf, []byte("abcd"))

	if err := dec.Verify(make([]byte, MacLen)); !errors.Is(err, bkerrors.ErrAuth) {
		t.Fatalf("got %v, want ErrAuth", err)
	}
}
