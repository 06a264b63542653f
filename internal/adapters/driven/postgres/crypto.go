package postgres

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
)

// Stored OAuth tokens are sealed with AES-256-GCM before they touch the
// database. Blob layout: version(1) || nonce(12) || ciphertext. The
// version byte leaves room to rotate the format without a migration.
const (
	blobVersion = 0x01
	nonceSize   = 12
	keySize     = 32
)

var (
	ErrInvalidKeySize     = errors.New("encryption key must be 32 bytes")
	ErrInvalidBlobSize    = errors.New("encrypted blob is too small")
	ErrUnsupportedVersion = errors.New("unsupported encrypted blob version")
	ErrDecryptionFailed   = errors.New("failed to decrypt blob")
)

// TokenCipher seals and opens token blobs for at-rest storage.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher builds a cipher from a 32-byte key (SECRET_KEY).
func NewTokenCipher(key []byte) (*TokenCipher, error) {
	if len(key) != keySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &TokenCipher{aead: aead}, nil
}

// Encrypt JSON-marshals the value and seals it under a fresh nonce.
func (c *TokenCipher) Encrypt(value any) ([]byte, error) {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nil, nonce, plaintext, nil)

	blob := make([]byte, 0, 1+nonceSize+len(sealed))
	blob = append(blob, blobVersion)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)
	return blob, nil
}

// Decrypt opens a blob and unmarshals the plaintext into value, which
// must be a pointer. A wrong key and corrupted data are
// indistinguishable; both return ErrDecryptionFailed.
func (c *TokenCipher) Decrypt(blob []byte, value any) error {
	if len(blob) < 1+nonceSize+c.aead.Overhead() {
		return ErrInvalidBlobSize
	}
	if blob[0] != blobVersion {
		return fmt.Errorf("%w: got version %d", ErrUnsupportedVersion, blob[0])
	}

	nonce := blob[1 : 1+nonceSize]
	plaintext, err := c.aead.Open(nil, nonce, blob[1+nonceSize:], nil)
	if err != nil {
		return ErrDecryptionFailed
	}

	if err := json.Unmarshal(plaintext, value); err != nil {
		return fmt.Errorf("unmarshal decrypted value: %w", err)
	}
	return nil
}

func (c *TokenCipher) EncryptString(s string) ([]byte, error) {
	return c.Encrypt(s)
}

func (c *TokenCipher) DecryptString(blob []byte) (string, error) {
	var s string
	if err := c.Decrypt(blob, &s); err != nil {
		return "", err
	}
	return s, nil
}
