package cryptoutils

import (
	"bytes"
	"crypto/aes"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/curve25519"
)

// ErrChallenge is returned when a challenge cannot be encrypted or decrypted.
var ErrChallenge = errors.New("challenge cipher failure")

// SharedSecret combines an X25519 private key with a peer public key.
// Low-order peer points are rejected.
func SharedSecret(private, peer [32]byte) ([]byte, error) {
	secret, err := curve25519.X25519(private[:], peer[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrChallenge, err)
	}
	return secret, nil
}

// EncryptChallenge encrypts plaintext the way the registry does: AES-256 in
// ECB mode with PKCS#7 padding, keyed by the 32-byte shared secret.
func EncryptChallenge(key []byte, plaintext string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChallenge, err)
	}
	bs := block.BlockSize()

	padded := pkcs7Pad([]byte(plaintext), bs)
	out := make([]byte, len(padded))
	for i := 0; i < len(padded); i += bs {
		block.Encrypt(out[i:i+bs], padded[i:i+bs])
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// DecryptChallenge reverses EncryptChallenge. It fails unless the padding is
// valid and the recovered challenge is printable ASCII, so a wrong key is
// reported instead of yielding garbage.
func DecryptChallenge(key []byte, challengeB64 string) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(challengeB64)
	if err != nil {
		return "", fmt.Errorf("%w: challenge is not base64: %v", ErrChallenge, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChallenge, err)
	}
	bs := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return "", fmt.Errorf("%w: ciphertext length %d is not a multiple of %d", ErrChallenge, len(ciphertext), bs)
	}

	plain := make([]byte, len(ciphertext))
	for i := 0; i < len(ciphertext); i += bs {
		block.Decrypt(plain[i:i+bs], ciphertext[i:i+bs])
	}

	unpadded, err := pkcs7Unpad(plain, bs)
	if err != nil {
		Wipe(plain)
		return "", err
	}
	if len(unpadded) == 0 || !printable(unpadded) {
		Wipe(plain)
		return "", fmt.Errorf("%w: recovered challenge is not printable", ErrChallenge)
	}
	return string(unpadded), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("%w: bad padding", ErrChallenge)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: bad padding", ErrChallenge)
		}
	}
	return data[:len(data)-n], nil
}

func printable(b []byte) bool {
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}
