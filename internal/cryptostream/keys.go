package cryptostream

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
)

const (
	// KeyLen is the size in bytes of each derived key (cipher, MAC).
	KeyLen = 32
	// rounds is the number of SHA-512 iterations in the key-stretching
	// chain, matching Signal Android's BackupKey derivation.
	rounds = 250_000
	// hkdfInfo is the HKDF context string used to expand the
	// stretched backup key into cipher and MAC keys.
	hkdfInfo = "Backup Export"
)

// Keys holds the two keys derived from a backup passphrase: one for
// AES-256-CTR, one for HMAC-SHA-256 frame authentication.
type Keys struct {
	Cipher [KeyLen]byte
	Mac    [KeyLen]byte
}

// Zero overwrites both keys with zero bytes. Callers should call this
// when a backup context is closed.
func (k *Keys) Zero() {
	for i := range k.Cipher {
		k.Cipher[i] = 0
	}
	for i := range k.Mac {
		k.Mac[i] = 0
	}
}

// DeriveKeys stretches passphrase (and optional salt) into a backup
// key via 250,000 rounds of SHA-512, then expands that key with
// HKDF-SHA-256 (empty salt, info "Backup Export") into a cipher key
// and a MAC key.
//
// Round 0 hashes salt‖passphrase‖passphrase; every following round
// hashes the previous digest‖passphrase. Only the first 32 bytes of
// the final 64-byte digest feed HKDF.
func DeriveKeys(passphrase string, salt []byte) (Keys, error) {
	pass := []byte(passphrase)

	h := sha512.New()
	h.Write(salt)
	h.Write(pass)
	h.Write(pass)
	digest := h.Sum(nil)

	for i := 1; i < rounds; i++ {
		h := sha512.New()
		h.Write(digest)
		h.Write(pass)
		digest = h.Sum(nil)
	}

	backupKey := digest[:KeyLen]

	expanded := make([]byte, 2*KeyLen)
	r := hkdf.New(sha256.New, backupKey, nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(r, expanded); err != nil {
		return Keys{}, fmt.Errorf("%w: hkdf expand: %v", bkerrors.ErrCrypto, err)
	}

	var keys Keys
	copy(keys.Cipher[:], expanded[:KeyLen])
	copy(keys.Mac[:], expanded[KeyLen:])
	return keys, nil
}
