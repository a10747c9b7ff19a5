package kms

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const sealingInfo = "ondc-onboarding/keystore-seal/v1"

// ErrUnseal is returned when a sealed record cannot be opened, usually
// because the master seed differs from the one it was sealed under.
var ErrUnseal = errors.New("failed to unseal key record")

// Sealer encrypts private key material before it reaches a storage backend.
// The sealing key is derived from a master seed, so records written by one
// instance can be read by another configured with the same seed.
type Sealer struct {
	key []byte
}

// NewSealer derives a sealing key from masterSeed.
// The master seed must be at least 32 bytes long.
func NewSealer(masterSeed []byte) (*Sealer, error) {
	if len(masterSeed) < 32 {
		return nil, errors.New("master seed must be at least 32 bytes")
	}

	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterSeed, nil, []byte(sealingInfo)), key); err != nil {
		return nil, fmt.Errorf("failed to derive sealing key: %w", err)
	}
	return &Sealer{key: key}, nil
}

// Seal encrypts plaintext bound to aad. Output is nonce || ciphertext.
func (s *Sealer) Seal(plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Open decrypts a value produced by Seal with the same aad.
func (s *Sealer) Open(sealed, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: record too short", ErrUnseal)
	}
	plaintext, err := aead.Open(nil, sealed[:aead.NonceSize()], sealed[aead.NonceSize():], aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnseal, err)
	}
	return plaintext, nil
}
