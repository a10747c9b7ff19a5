// Package cryptoutils provides the cryptographic primitives of the ONDC
// onboarding protocol.
//
// The package covers:
//
//   - Ed25519 signing and verification of base64 messages
//   - X25519 key agreement between a subscriber and the registry
//   - AES-256-ECB challenge decryption with strict PKCS#7 unpadding
//   - the ONDC Authorization header, signing (created), (expires) and a
//     BLAKE2b-512 digest of the request body
//   - canonical JSON serialization of signed request bodies
//
// Encryption public keys are exchanged as base64 DER SubjectPublicKeyInfo:
//
//	302a300506032b656e032100 || 32-byte X25519 public key
//
// Parsers accept both that form and the raw 32-byte key.
//
// Usage example for answering a registry challenge:
//
//	secret, err := cryptoutils.SharedSecret(encryptionKey.Private, registryPublicKey)
//	if err != nil {
//	    return err
//	}
//	defer cryptoutils.Wipe(secret)
//
//	answer, err := cryptoutils.DecryptChallenge(secret, challenge)
//
// Secrets derived during decryption are wiped by the caller once used.
package cryptoutils
