package onboarding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"github.com/ruteri/ondc-onboarding-service/kms"
	"github.com/ruteri/ondc-onboarding-service/metrics"
)

// KeyIssuer generates key pairs and registers them with the key store.
type KeyIssuer struct {
	generator *kms.Generator
	store     *kms.KeyStore
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// NewKeyIssuer creates an issuer storing generated pairs in store.
func NewKeyIssuer(generator *kms.Generator, store *kms.KeyStore, m *metrics.Metrics, log *slog.Logger) *KeyIssuer {
	return &KeyIssuer{generator: generator, store: store, metrics: m, log: log}
}

// Issue generates and stores a fresh key pair for subscriberID.
func (i *KeyIssuer) Issue(ctx context.Context, subscriberID string) (interfaces.KeyInfo, error) {
	subscriberID = strings.TrimSpace(subscriberID)
	if subscriberID == "" {
		return interfaces.KeyInfo{}, fmt.Errorf("%w: subscriberId is required", interfaces.ErrValidation)
	}

	kp, err := i.generator.Generate(subscriberID)
	if err != nil {
		i.log.Error("Key generation failed", slog.String("subscriberId", subscriberID), "err", err)
		return interfaces.KeyInfo{}, err
	}
	if err := i.store.Put(ctx, kp); err != nil {
		return interfaces.KeyInfo{}, err
	}

	i.metrics.IncKeysGenerated()
	info := kp.Info()
	info.Active = true
	i.log.Info("Generated key pair", slog.String("subscriberId", subscriberID), slog.String("uniqueKeyId", info.UniqueKeyID))
	return info, nil
}
