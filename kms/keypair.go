package kms

import (
	"crypto/ed25519"

	"github.com/ruteri/ondc-onboarding-service/cryptoutils"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
)

// KeyPair holds a subscriber's signing and encryption key material.
// Private keys are unexported: outside this package they can only be used
// through Sign and SharedSecret, never read.
type KeyPair struct {
	info interfaces.KeyInfo

	signingPrivate    ed25519.PrivateKey
	encryptionPrivate [32]byte
}

// SubscriberID returns the owning subscriber.
func (kp *KeyPair) SubscriberID() string { return kp.info.SubscriberID }

// UniqueKeyID returns the key id the registry knows this pair by.
func (kp *KeyPair) UniqueKeyID() string { return kp.info.UniqueKeyID }

// Info returns the public view of the key pair.
func (kp *KeyPair) Info() interfaces.KeyInfo { return kp.info }

// SigningPublicKey returns the Ed25519 public key.
func (kp *KeyPair) SigningPublicKey() ed25519.PublicKey {
	return kp.signingPrivate.Public().(ed25519.PublicKey)
}

// Sign signs message with the Ed25519 private key.
func (kp *KeyPair) Sign(message []byte) []byte {
	return ed25519.Sign(kp.signingPrivate, message)
}

// SharedSecret derives the X25519 shared secret with a peer public key.
// Callers should Wipe the result once it has been used.
func (kp *KeyPair) SharedSecret(peer [32]byte) ([]byte, error) {
	return cryptoutils.SharedSecret(kp.encryptionPrivate, peer)
}

func (kp *KeyPair) withActive(active bool) *KeyPair {
	cp := *kp
	cp.info.Active = active
	return &cp
}
