package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// PhoneCipher encrypts phone numbers at rest and derives the deterministic
// lookup hash. Constructed once at startup and injected into the identity
// service; the AEAD is never re-derived per call.
type PhoneCipher struct {
	aead    cipher.AEAD
	hashKey []byte
}

func NewPhoneCipher(key []byte) (*PhoneCipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("phone cipher key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &PhoneCipher{aead: aead, hashKey: key}, nil
}

// Encrypt returns nonce||ciphertext.
func (c *PhoneCipher) Encrypt(plain string) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, []byte(plain), nil), nil
}

func (c *PhoneCipher) Decrypt(enc []byte) (string, error) {
	if len(enc) < c.aead.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	nonce, ct := enc[:c.aead.NonceSize()], enc[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// Hash is a keyed deterministic digest of the normalized phone, stored
// alongside the ciphertext so lookups hit a unique index instead of
// decrypting every row.
func (c *PhoneCipher) Hash(normalizedPhone string) string {
	mac := hmac.New(sha256.New, c.hashKey)
	mac.Write([]byte(normalizedPhone))
	return hex.EncodeToString(mac.Sum(nil))
}
