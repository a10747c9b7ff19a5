package onboarding

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/ondc-onboarding-service/cryptoutils"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"github.com/ruteri/ondc-onboarding-service/kms"
)

// Directory queries the registry's participant directory.
type Directory struct {
	keys     KeyStore
	registry interfaces.RegistryClient
	now      func() time.Time
	log      *slog.Logger
}

// NewDirectory creates a directory client. keys signs vlookup queries.
func NewDirectory(store KeyStore, registry interfaces.RegistryClient, log *slog.Logger) *Directory {
	return &Directory{keys: store, registry: registry, now: time.Now, log: log}
}

// Lookup runs an unsigned query. An empty result is not an error.
func (d *Directory) Lookup(ctx context.Context, env interfaces.Environment, query interfaces.LookupQuery) ([]interfaces.ParticipantRecord, error) {
	env, err := interfaces.ParseEnvironment(string(env))
	if err != nil {
		return nil, err
	}

	records, err := d.registry.Lookup(ctx, env, query)
	if err != nil {
		return nil, err
	}
	d.log.Debug("Registry lookup", slog.String("environment", string(env)), slog.Int("results", len(records)))
	return records, nil
}

// VLookup runs a query signed by senderID. An empty keyID signs with the
// sender's active key.
func (d *Directory) VLookup(ctx context.Context, env interfaces.Environment, senderID, keyID string, params interfaces.LookupQuery) ([]interfaces.ParticipantRecord, error) {
	env, err := interfaces.ParseEnvironment(string(env))
	if err != nil {
		return nil, err
	}

	var kp *kms.KeyPair
	if keyID != "" {
		kp, err = d.keys.Get(ctx, senderID, keyID)
	} else {
		kp, err = d.keys.Active(ctx, senderID)
	}
	if err != nil {
		return nil, err
	}

	query := interfaces.VLookupQuery{
		SenderSubscriberID: senderID,
		RequestID:          uuid.NewString(),
		Timestamp:          formatRegistryTime(d.now()),
		Signature:          cryptoutils.SignMessage(kp, []byte(params.SigningString())),
		SearchParameters:   params,
	}

	records, err := d.registry.VLookup(ctx, env, query)
	if err != nil {
		return nil, err
	}
	d.log.Debug("Registry vlookup",
		slog.String("environment", string(env)),
		slog.String("requestId", query.RequestID),
		slog.Int("results", len(records)))
	return records, nil
}
