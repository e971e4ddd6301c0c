// Package crypto encrypts secrets stored in the database.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// KeySize is the required key length in bytes
	KeySize = 32

	nonceSize        = 24
	ciphertextPrefix = "sbx1:"
)

var (
	ErrInvalidKey        = errors.New("crypto: secret key must be 32 bytes, base64 encoded")
	ErrInvalidCiphertext = errors.New("crypto: invalid ciphertext")
)

// SecretBox seals short secrets with NaCl secretbox.
// Sealed values carry a version prefix so plaintext rows written before
// encryption was enabled are still readable.
type SecretBox struct {
	key [KeySize]byte
}

// NewSecretBoxFromBase64 decodes a base64 key into a SecretBox
func NewSecretBoxFromBase64(encoded string) (*SecretBox, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil || len(raw) != KeySize {
		return nil, ErrInvalidKey
	}
	b := &SecretBox{}
	copy(b.key[:], raw)
	return b, nil
}

// ValidateKey reports whether encoded is a usable key
func ValidateKey(encoded string) error {
	_, err := NewSecretBoxFromBase64(encoded)
	return err
}

// IsSealed reports whether value was produced by Seal
func IsSealed(value string) bool {
	return strings.HasPrefix(value, ciphertextPrefix)
}

// Seal encrypts plaintext. Empty input stays empty.
func (b *SecretBox) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("crypto: generate nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)
	return ciphertextPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts a sealed value. Unsealed values are returned unchanged.
func (b *SecretBox) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, ciphertextPrefix))
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return "", ErrInvalidCiphertext
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])
	plaintext, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &b.key)
	if !ok {
		return "", ErrInvalidCiphertext
	}
	return string(plaintext), nil
}
