package onboarding

import (
	"context"

	"github.com/ruteri/ondc-onboarding-service/kms"
)

// KeyStore is the read side of kms.KeyStore the onboarding components sign
// and decrypt with.
type KeyStore interface {
	Get(ctx context.Context, subscriberID, keyID string) (*kms.KeyPair, error)
	Active(ctx context.Context, subscriberID string) (*kms.KeyPair, error)
	ForSubscriber(ctx context.Context, subscriberID string) []*kms.KeyPair
}

var _ KeyStore = (*kms.KeyStore)(nil)
