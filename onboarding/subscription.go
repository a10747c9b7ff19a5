package onboarding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/ondc-onboarding-service/cryptoutils"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"github.com/ruteri/ondc-onboarding-service/kms"
	"github.com/ruteri/ondc-onboarding-service/metrics"
)

// DefaultRequestTTL is the validity of a subscribe Authorization header.
const DefaultRequestTTL = time.Hour

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	// RegistryEncryptionKeys maps environments to the registry's X25519
	// public key (raw or DER, base64) used to decrypt challenges.
	RegistryEncryptionKeys map[interfaces.Environment]string
	RequestTTL             time.Duration
	CallbackPath           string
	// DomainChecker, when set, must accept the subscriber id before signing.
	DomainChecker interfaces.DomainChecker
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

// SubscribeResult reports the outcome of a subscription attempt.
type SubscribeResult struct {
	SubscriberID string                       `json:"subscriberId"`
	UniqueKeyID  string                       `json:"uniqueKeyId"`
	Environment  interfaces.Environment       `json:"environment"`
	RequestID    string                       `json:"requestId"`
	State        interfaces.SubscriptionState `json:"state"`
	Ack          *interfaces.SubscribeAck     `json:"ack,omitempty"`
}

// Orchestrator drives subscription requests through the registry and
// answers the registry's on_subscribe challenges.
type Orchestrator struct {
	keys     KeyStore
	registry interfaces.RegistryClient
	cfg      OrchestratorConfig
	pending  *pendingTracker
	log      *slog.Logger
}

// NewOrchestrator creates an orchestrator signing with keys from store.
func NewOrchestrator(store KeyStore, registry interfaces.RegistryClient, cfg OrchestratorConfig, log *slog.Logger) *Orchestrator {
	if cfg.RequestTTL <= 0 {
		cfg.RequestTTL = DefaultRequestTTL
	}
	if cfg.CallbackPath == "" {
		cfg.CallbackPath = DefaultCallbackPath
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Orchestrator{
		keys:     store,
		registry: registry,
		cfg:      cfg,
		pending:  newPendingTracker(),
		log:      log,
	}
}

// Subscribe validates, signs and sends req to the registry of its
// environment. The request is sent at most once.
//
// A rejection returns *interfaces.RegistryRejectedError with the registry
// body. A timeout or unreachable registry returns *interfaces.RegistryCallError
// and leaves the attempt in TIMED_OUT, since the registry may still have
// processed it.
func (o *Orchestrator) Subscribe(ctx context.Context, req interfaces.SubscriptionRequest) (*SubscribeResult, error) {
	env, err := interfaces.ParseEnvironment(string(req.Environment))
	if err != nil {
		return nil, err
	}
	req.Environment = env

	log := o.log.With(
		slog.String("subscriberId", req.SubscriberID),
		slog.String("environment", string(env)),
		slog.String("ops", req.OpsNo.String()))
	log.Debug("Subscription state", slog.String("state", string(interfaces.StateInit)))

	if err := ValidateSubscription(&req); err != nil {
		return nil, err
	}
	if o.cfg.DomainChecker != nil {
		if err := o.cfg.DomainChecker.CheckDomain(ctx, req.SubscriberID); err != nil {
			return nil, err
		}
	}

	log.Debug("Subscription state", slog.String("state", string(interfaces.StateBuilding)))
	kp, err := o.signingKey(ctx, req.SubscriberID, req.UniqueKeyID)
	if err != nil {
		return nil, err
	}

	now := o.cfg.Now()
	requestID := uuid.NewString()
	payload, err := buildPayload(&req, kp, requestID, now, o.cfg.CallbackPath)
	if err != nil {
		return nil, err
	}
	body, err := cryptoutils.CanonicalJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing subscribe payload: %w", err)
	}
	authorization := cryptoutils.NewAuthorizationHeader(kp.SubscriberID(), kp.UniqueKeyID(), body, now, o.cfg.RequestTTL, kp)
	log.Debug("Subscription state", slog.String("state", string(interfaces.StateSigned)), slog.String("requestId", requestID))

	result := &SubscribeResult{
		SubscriberID: kp.SubscriberID(),
		UniqueKeyID:  kp.UniqueKeyID(),
		Environment:  env,
		RequestID:    requestID,
		State:        interfaces.StateSent,
	}
	o.pending.put(interfaces.PendingSubscription{
		SubscriberID: result.SubscriberID,
		UniqueKeyID:  result.UniqueKeyID,
		Environment:  env,
		RequestID:    requestID,
		OpsNo:        req.OpsNo,
		State:        interfaces.StateSent,
		SentAt:       now,
	})

	ack, err := o.registry.Subscribe(ctx, env, body, authorization.String())
	result.State = subscribeOutcome(err)
	if err != nil {
		o.pending.resolve(env, result.SubscriberID, requestID, result.State, o.cfg.Now(), err.Error())
		o.cfg.Metrics.IncSubscription(string(env), string(result.State))
		log.Warn("Subscription failed", slog.String("state", string(result.State)), slog.String("requestId", requestID), "err", err)
		return result, err
	}

	o.pending.acknowledge(env, result.SubscriberID, requestID)
	o.cfg.Metrics.IncSubscription(string(env), string(interfaces.StateAcked))
	result.Ack = ack
	log.Info("Subscription acknowledged", slog.String("requestId", requestID), slog.String("uniqueKeyId", result.UniqueKeyID))
	return result, nil
}

func subscribeOutcome(err error) interfaces.SubscriptionState {
	var rejected *interfaces.RegistryRejectedError
	switch {
	case err == nil:
		return interfaces.StateAcked
	case errors.As(err, &rejected):
		return interfaces.StateRejected
	case errors.Is(err, interfaces.ErrTimedOut), errors.Is(err, interfaces.ErrNetwork):
		return interfaces.StateTimedOut
	default:
		return interfaces.StateRejected
	}
}

func (o *Orchestrator) signingKey(ctx context.Context, subscriberID, keyID string) (*kms.KeyPair, error) {
	if keyID == "" {
		return o.keys.Active(ctx, subscriberID)
	}
	return o.keys.Get(ctx, subscriberID, keyID)
}

// HandleCallback answers an on_subscribe challenge for subscriberID. The key
// of the pending subscription is tried first, then every stored key of the
// subscriber, newest first. If none decrypts the challenge the call fails
// with interfaces.ErrDecryption and no answer is produced.
func (o *Orchestrator) HandleCallback(ctx context.Context, env interfaces.Environment, subscriberID, challenge string) (string, error) {
	answer, err := o.answerChallenge(ctx, env, subscriberID, challenge)
	o.cfg.Metrics.IncCallback(string(env), err == nil)
	if err != nil {
		o.log.Warn("on_subscribe challenge not answered",
			slog.String("subscriberId", subscriberID),
			slog.String("environment", string(env)),
			"err", err)
		return "", err
	}
	return answer, nil
}

func (o *Orchestrator) answerChallenge(ctx context.Context, env interfaces.Environment, subscriberID, challenge string) (string, error) {
	if subscriberID == "" || challenge == "" {
		return "", fmt.Errorf("%w: subscriber_id and challenge are required", interfaces.ErrValidation)
	}

	registryKey, ok := o.cfg.RegistryEncryptionKeys[env]
	if !ok || registryKey == "" {
		return "", fmt.Errorf("%w: no registry encryption key for environment %q", interfaces.ErrDecryption, env)
	}
	registryPub, err := cryptoutils.ParseEncryptionPublicKey(registryKey)
	if err != nil {
		return "", fmt.Errorf("%w: registry encryption key for %s: %v", interfaces.ErrDecryption, env, err)
	}

	candidates := o.keys.ForSubscriber(ctx, subscriberID)
	pending, hasPending := o.pending.get(env, subscriberID)
	if hasPending {
		candidates = moveToFront(candidates, pending.UniqueKeyID)
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: no keys stored for %s", interfaces.ErrDecryption, subscriberID)
	}

	var lastErr error
	for _, kp := range candidates {
		answer, err := decryptWith(kp, registryPub, challenge)
		if err != nil {
			lastErr = err
			continue
		}

		if hasPending {
			o.pending.resolve(env, subscriberID, pending.RequestID, interfaces.StateVerified, o.cfg.Now(), "")
		}
		o.log.Info("on_subscribe challenge answered",
			slog.String("subscriberId", subscriberID),
			slog.String("uniqueKeyId", kp.UniqueKeyID()),
			slog.String("environment", string(env)))
		return answer, nil
	}
	return "", lastErr
}

// moveToFront puts the key pair with uniqueKeyID first, keeping the relative
// order of the others.
func moveToFront(candidates []*kms.KeyPair, uniqueKeyID string) []*kms.KeyPair {
	for i, kp := range candidates {
		if kp.UniqueKeyID() == uniqueKeyID {
			return append([]*kms.KeyPair{kp}, append(candidates[:i:i], candidates[i+1:]...)...)
		}
	}
	return candidates
}

// Pending returns the subscription attempts of subscriberID, oldest first.
func (o *Orchestrator) Pending(subscriberID string) []interfaces.PendingSubscription {
	return o.pending.forSubscriber(subscriberID)
}

// ListPending returns every tracked subscription attempt, oldest first.
func (o *Orchestrator) ListPending() []interfaces.PendingSubscription {
	return o.pending.all()
}
