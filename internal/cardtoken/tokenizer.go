// Package cardtoken implements the card tokenization scheme: a
// deterministic fingerprint of the card number for deduplication, and an
// authenticated-encryption envelope for the full number and CVV.
package cardtoken

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	nonceSize = 12
	tagSize   = 16
)

// ErrInvalidBlob indicates the envelope failed decryption or authentication
var ErrInvalidBlob = errors.New("card blob failed authenticity check")

// Tokenizer encrypts and fingerprints card data under a key derived from
// the service card secret.
type Tokenizer struct {
	key []byte
}

// NewTokenizer derives the AES-256 key from the service secret
func NewTokenizer(secret string) *Tokenizer {
	key := sha256.Sum256([]byte(secret))
	return &Tokenizer{key: key[:]}
}

// Tokenize returns the deterministic lookup token for the card number and
// the encrypted envelope holding number and CVV. The token depends only on
// the number, so the same card always maps to the same token regardless of
// CVV; the envelope uses a fresh nonce per call, so blobs never repeat.
func (t *Tokenizer) Tokenize(cardNumber, cvv string) (token string, blob []byte, err error) {
	blob, err = t.encrypt([]byte(cardNumber + "|" + cvv))
	if err != nil {
		return "", nil, fmt.Errorf("failed to encrypt card data: %w", err)
	}

	digest := sha256.Sum256([]byte(cardNumber))
	return hex.EncodeToString(digest[:]), blob, nil
}

// Detokenize opens the envelope and returns the masked card number and the
// CVV. Any integrity failure (wrong key, truncated or tampered blob)
// returns ErrInvalidBlob rather than partial data.
func (t *Tokenizer) Detokenize(blob []byte) (maskedNumber, cvv string, err error) {
	plaintext, err := t.decrypt(blob)
	if err != nil {
		return "", "", ErrInvalidBlob
	}

	number, cvv, found := strings.Cut(string(plaintext), "|")
	if !found {
		return "", "", ErrInvalidBlob
	}

	return MaskNumber(number), cvv, nil
}

// MaskNumber groups the digits of a card number in blocks of four for
// display.
func MaskNumber(cardNumber string) string {
	var digits strings.Builder
	for _, r := range cardNumber {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	var masked strings.Builder
	for i, r := range digits.String() {
		if i > 0 && i%4 == 0 {
			masked.WriteByte(' ')
		}
		masked.WriteRune(r)
	}
	return masked.String()
}

// encrypt seals the plaintext as base64(nonce || tag || ciphertext)
func (t *Tokenizer) encrypt(plaintext []byte) ([]byte, error) {
	gcm, err := t.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	// gcm.Seal appends the tag after the ciphertext; the stored layout
	// keeps the tag in front of it instead.
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	raw := make([]byte, 0, nonceSize+len(sealed))
	raw = append(raw, nonce...)
	raw = append(raw, tag...)
	raw = append(raw, ciphertext...)

	blob := make([]byte, base64.StdEncoding.EncodedLen(len(raw)))
	base64.StdEncoding.Encode(blob, raw)
	return blob, nil
}

func (t *Tokenizer) decrypt(blob []byte) ([]byte, error) {
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(blob)))
	n, err := base64.StdEncoding.Decode(raw, blob)
	if err != nil {
		return nil, err
	}
	raw = raw[:n]

	if len(raw) < nonceSize+tagSize {
		return nil, errors.New("blob too short")
	}

	nonce := raw[:nonceSize]
	tag := raw[nonceSize : nonceSize+tagSize]
	ciphertext := raw[nonceSize+tagSize:]

	gcm, err := t.aead()
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	return gcm.Open(nil, nonce, sealed, nil)
}

func (t *Tokenizer) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(t.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
