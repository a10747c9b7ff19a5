package onboarding

import (
	"context"
	"fmt"

	"github.com/ruteri/ondc-onboarding-service/cryptoutils"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"github.com/ruteri/ondc-onboarding-service/kms"
)

// ChallengeCodec decrypts registry challenges with a subscriber's X25519 key.
type ChallengeCodec struct {
	keys KeyStore
}

// NewChallengeCodec creates a codec using keys from store.
func NewChallengeCodec(store KeyStore) *ChallengeCodec {
	return &ChallengeCodec{keys: store}
}

// Decrypt recovers the challenge plaintext. Every cryptographic failure is
// reported as interfaces.ErrDecryption; an unknown key as interfaces.ErrNotFound.
func (c *ChallengeCodec) Decrypt(ctx context.Context, subscriberID, keyID, challengeB64, registryEncryptionKey string) (string, error) {
	kp, err := c.keys.Get(ctx, subscriberID, keyID)
	if err != nil {
		return "", err
	}

	registryPub, err := cryptoutils.ParseEncryptionPublicKey(registryEncryptionKey)
	if err != nil {
		return "", fmt.Errorf("%w: registry encryption key: %v", interfaces.ErrDecryption, err)
	}

	return decryptWith(kp, registryPub, challengeB64)
}

func decryptWith(kp *kms.KeyPair, registryPub [32]byte, challengeB64 string) (string, error) {
	secret, err := kp.SharedSecret(registryPub)
	if err != nil {
		return "", fmt.Errorf("%w: %v", interfaces.ErrDecryption, err)
	}
	defer cryptoutils.Wipe(secret)

	answer, err := cryptoutils.DecryptChallenge(secret, challengeB64)
	if err != nil {
		return "", fmt.Errorf("%w: key %s: %v", interfaces.ErrDecryption, kp.UniqueKeyID(), err)
	}
	return answer, nil
}
