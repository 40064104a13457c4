// File: internal/infra/security/encryption_service.go
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrCiphertext is returned for any value Decrypt cannot open.
var ErrCiphertext = errors.New("invalid ciphertext")

// sealedPrefix marks stored values produced by Seal.
const sealedPrefix = "enc:v1:"

// EncryptionService seals payment method secrets (gateway keys, ledger
// passwords) at rest with AES-GCM and a random nonce per message.
type EncryptionService struct {
	gcm cipher.AEAD
}

// NewEncryptionService constructs an AES-GCM service.
// Key must be 16, 24, or 32 bytes (AES-128/192/256).
func NewEncryptionService(key string) (*EncryptionService, error) {
	k := []byte(key)
	switch len(k) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("encryption key must be 16, 24, or 32 bytes; got %d", len(k))
	}
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &EncryptionService{gcm: gcm}, nil
}

// Encrypt returns base64(nonce || ciphertext). aad binds the ciphertext to
// its owner (e.g. the method id) so it cannot be swapped between rows.
func (e *EncryptionService) Encrypt(plaintext, aad string) (string, error) {
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}
	ct := e.gcm.Seal(nonce, nonce, []byte(plaintext), []byte(aad))
	return base64.StdEncoding.EncodeToString(ct), nil
}

// Decrypt accepts output of Encrypt with the same aad.
func (e *EncryptionService) Decrypt(b64, aad string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("%w: base64: %v", ErrCiphertext, err)
	}
	ns := e.gcm.NonceSize()
	if len(data) < ns {
		return "", fmt.Errorf("%w: too short", ErrCiphertext)
	}
	pt, err := e.gcm.Open(nil, data[:ns], data[ns:], []byte(aad))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCiphertext, err)
	}
	return string(pt), nil
}

// Seal encrypts a column value. Empty stays empty.
func (e *EncryptionService) Seal(plaintext, aad string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	ct, err := e.Encrypt(plaintext, aad)
	if err != nil {
		return "", err
	}
	return sealedPrefix + ct, nil
}

// Open reverses Seal. Values stored before encryption was enabled carry no
// prefix and are returned unchanged.
func (e *EncryptionService) Open(stored, aad string) (string, error) {
	ct, ok := strings.CutPrefix(stored, sealedPrefix)
	if !ok {
		return stored, nil
	}
	return e.Decrypt(ct, aad)
}
