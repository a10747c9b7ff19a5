package cryptoutils

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/curve25519"
)

// x25519SPKIPrefix is the DER SubjectPublicKeyInfo header for an X25519 key
// (OID 1.3.101.110). The registry publishes encryption keys in this form.
var x25519SPKIPrefix = []byte{0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x6e, 0x03, 0x21, 0x00}

// ErrInvalidKey is returned when an encoded public key cannot be parsed.
var ErrInvalidKey = errors.New("invalid key encoding")

// SigningKeyPair is an Ed25519 key pair.
type SigningKeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// EncryptionKeyPair is an X25519 key pair.
type EncryptionKeyPair struct {
	Public  [32]byte
	Private [32]byte
}

// GenerateSigningKeyPair returns a new Ed25519 key pair drawn from r.
func GenerateSigningKeyPair(r io.Reader) (SigningKeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(r)
	if err != nil {
		return SigningKeyPair{}, err
	}
	return SigningKeyPair{Public: pub, Private: priv}, nil
}

// GenerateEncryptionKeyPair returns a new clamped X25519 key pair drawn from r.
func GenerateEncryptionKeyPair(r io.Reader) (EncryptionKeyPair, error) {
	var kp EncryptionKeyPair
	if _, err := io.ReadFull(r, kp.Private[:]); err != nil {
		return EncryptionKeyPair{}, err
	}
	kp.Private[0] &= 248
	kp.Private[31] &= 127
	kp.Private[31] |= 64

	pub, err := curve25519.X25519(kp.Private[:], curve25519.Basepoint)
	if err != nil {
		Wipe(kp.Private[:])
		return EncryptionKeyPair{}, err
	}
	copy(kp.Public[:], pub)
	return kp, nil
}

// EncodeSigningPublicKey renders an Ed25519 public key as the registry expects it:
// standard base64 of the raw 32 bytes.
func EncodeSigningPublicKey(pub ed25519.PublicKey) string {
	return base64.StdEncoding.EncodeToString(pub)
}

// ParseSigningPublicKey parses a base64 Ed25519 public key.
func ParseSigningPublicKey(s string) (ed25519.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: signing key must be %d bytes, got %d", ErrInvalidKey, ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// EncodeEncryptionPublicKey renders an X25519 public key as base64 DER SubjectPublicKeyInfo.
func EncodeEncryptionPublicKey(pub [32]byte) string {
	der := make([]byte, 0, len(x25519SPKIPrefix)+len(pub))
	der = append(der, x25519SPKIPrefix...)
	der = append(der, pub[:]...)
	return base64.StdEncoding.EncodeToString(der)
}

// ParseEncryptionPublicKey accepts an X25519 public key either as base64 DER
// SubjectPublicKeyInfo or as base64 of the raw 32 bytes.
func ParseEncryptionPublicKey(s string) ([32]byte, error) {
	var pub [32]byte
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return pub, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	switch {
	case len(raw) == 32:
		copy(pub[:], raw)
	case len(raw) == len(x25519SPKIPrefix)+32 && bytes.Equal(raw[:len(x25519SPKIPrefix)], x25519SPKIPrefix):
		copy(pub[:], raw[len(x25519SPKIPrefix):])
	default:
		return pub, fmt.Errorf("%w: not an X25519 public key (%d bytes)", ErrInvalidKey, len(raw))
	}
	return pub, nil
}
