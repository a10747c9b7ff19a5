package kms

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/ondc-onboarding-service/cryptoutils"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
)

// DefaultKeyValidity is how long a freshly generated key pair is advertised as valid.
const DefaultKeyValidity = 365 * 24 * time.Hour

// Generator produces fresh key pairs for subscribers. It never reuses key
// material and does not persist what it generates.
type Generator struct {
	entropy  io.Reader
	validity time.Duration
	now      func() time.Time
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{
		entropy:  rand.Reader,
		validity: DefaultKeyValidity,
		now:      time.Now,
	}
}

// WithEntropy returns a copy of the generator reading randomness from r.
func (g *Generator) WithEntropy(r io.Reader) *Generator {
	ng := *g
	ng.entropy = r
	return &ng
}

// WithValidity returns a copy of the generator advertising keys valid for d.
func (g *Generator) WithValidity(d time.Duration) *Generator {
	ng := *g
	ng.validity = d
	return &ng
}

// Generate creates a new signing and encryption key pair under a new unique key id.
// Failures of the entropy source are reported as interfaces.ErrGeneration.
func (g *Generator) Generate(subscriberID string) (*KeyPair, error) {
	subscriberID = strings.TrimSpace(subscriberID)
	if subscriberID == "" {
		return nil, fmt.Errorf("%w: subscriberId is required", interfaces.ErrValidation)
	}

	signing, err := cryptoutils.GenerateSigningKeyPair(g.entropy)
	if err != nil {
		return nil, fmt.Errorf("%w: signing key: %v", interfaces.ErrGeneration, err)
	}

	encryption, err := cryptoutils.GenerateEncryptionKeyPair(g.entropy)
	if err != nil {
		cryptoutils.Wipe(signing.Private)
		return nil, fmt.Errorf("%w: encryption key: %v", interfaces.ErrGeneration, err)
	}

	keyID, err := uuid.NewRandomFromReader(g.entropy)
	if err != nil {
		cryptoutils.Wipe(signing.Private)
		cryptoutils.Wipe(encryption.Private[:])
		return nil, fmt.Errorf("%w: key id: %v", interfaces.ErrGeneration, err)
	}

	now := g.now().UTC()
	return &KeyPair{
		info: interfaces.KeyInfo{
			SubscriberID:        subscriberID,
			UniqueKeyID:         keyID.String(),
			SigningPublicKey:    cryptoutils.EncodeSigningPublicKey(signing.Public),
			EncryptionPublicKey: cryptoutils.EncodeEncryptionPublicKey(encryption.Public),
			CreatedAt:           now,
			ValidFrom:           now,
			ValidUntil:          now.Add(g.validity),
		},
		signingPrivate:    signing.Private,
		encryptionPrivate: encryption.Private,
	}, nil
}

