// Package cryptostream implements the backup file's per-frame AES-256-CTR
// decryption with HMAC-SHA-256 authentication, and the key-derivation
// scheme (see keys.go) that produces the two keys it needs.
package cryptostream

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/jackwilsdon/sigbak-go/internal/bkerrors"
)

// IVLen is the size in bytes of the AES-CTR IV.
const IVLen = 16

// MacLen is the number of trailing HMAC bytes stored after each
// frame's (or attachment payload's) ciphertext.
const MacLen = 10

// Stream decrypts and authenticates the frames and attachment
// payloads of one open backup file. It holds no mutable state beyond
// the keys and the header IV; every frame gets a freshly initialized
// AES-CTR/HMAC pair keyed by its counter value, matching
// sbk_decrypt_init in the original implementation.
type Stream struct {
	keys    Keys
	baseIV  [IVLen]byte
}

// New returns a Stream for the given keys and header IV. headerIV is
// the Header frame's 16-byte iv field; its first four bytes are
// replaced per-frame by the current counter value.
func New(keys Keys, headerIV [IVLen]byte) *Stream {
	return &Stream{keys: keys, baseIV: headerIV}
}

func (s *Stream) iv(counter uint32) [IVLen]byte {
	iv := s.baseIV
	iv[0] = byte(counter >> 24)
	iv[1] = byte(counter >> 16)
	iv[2] = byte(counter >> 8)
	iv[3] = byte(counter)
	return iv
}

func (s *Stream) newCTR(counter uint32) (cipher.Stream, [IVLen]byte, error) {
	block, err := aes.NewCipher(s.keys.Cipher[:])
	if err != nil {
		return nil, [IVLen]byte{}, fmt.Errorf("%w: aes.NewCipher: %v", bkerrors.ErrCrypto, err)
	}
	iv := s.iv(counter)
	return cipher.NewCTR(block, iv[:]), iv, nil
}

func (s *Stream) newMAC() hash.Hash {
	return hmac.New(sha256.New, s.keys.Mac[:])
}

func verifyTag(mac hash.Hash, tag []byte) error {
	if len(tag) != MacLen {
		return fmt.Errorf("%w: mac tag must be %d bytes, got %d", bkerrors.ErrFormat, MacLen, len(tag))
	}
	sum := mac.Sum(nil)
	if !hmac.Equal(sum[:MacLen], tag) {
		return bkerrors.ErrAuth
	}
	return nil
}

// DecryptFrame decrypts and authenticates one non-attachment frame.
// The HMAC is computed over the ciphertext alone (the IV is not fed
// into the MAC for frames, only for attachment payloads — see
// DecryptAttachment). tag must be the trailing 10-byte MAC stored
// after the ciphertext.
func (s *Stream) DecryptFrame(counter uint32, ciphertext, tag []byte) ([]byte, error) {
	mac := s.newMAC()
	mac.Write(ciphertext)
	if err := verifyTag(mac, tag); err != nil {
		return nil, err
	}

	ctr, _, err := s.newCTR(counter)
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	ctr.XORKeyStream(plaintext, ciphertext)
	return plaintext, nil
}

// AttachmentDecryptor streams the decryption of one attachment,
// avatar, or sticker payload: the IV is fed into the HMAC ahead of
// the ciphertext (unlike frame decryption), and the caller feeds the
// ciphertext through Update in chunks before calling Verify.
type AttachmentDecryptor struct {
	ctr cipher.Stream
	mac hash.Hash
}

// NewAttachmentDecryptor initializes a streaming decryptor for the
// attachment payload recorded at the given counter value.
func (s *Stream) NewAttachmentDecryptor(counter uint32) (*AttachmentDecryptor, error) {
	ctr, iv, err := s.newCTR(counter)
	if err != nil {
		return nil, err
	}
	mac := s.newMAC()
	mac.Write(iv[:])
	return &AttachmentDecryptor{ctr: ctr, mac: mac}, nil
}

// Update decrypts one chunk of ciphertext into dst (which must be at
// least len(src) bytes) and folds the ciphertext into the running
// MAC. Chunks must be fed in order.
func (d *AttachmentDecryptor) Update(dst, src []byte) {
	d.mac.Write(src)
	d.ctr.XORKeyStream(dst, src)
}

// Verify checks the trailing 10-byte MAC tag against everything fed
// to Update so far (and the IV). It must be called exactly once,
// after every ciphertext chunk has been passed to Update.
func (d *AttachmentDecryptor) Verify(tag []byte) error {
	return verifyTag(d.mac, tag)
}
