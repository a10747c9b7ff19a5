package onboarding

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ruteri/ondc-onboarding-service/cryptoutils"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"github.com/ruteri/ondc-onboarding-service/kms"
	"github.com/ruteri/ondc-onboarding-service/metrics"
	"github.com/ruteri/ondc-onboarding-service/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSubscriber = "tsp-seller.ondc.docboyz.in"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRequest(kid string) interfaces.SubscriptionRequest {
	return interfaces.SubscriptionRequest{
		OpsNo:        interfaces.OpsSellerApp,
		SubscriberID: testSubscriber,
		UniqueKeyID:  kid,
		Environment:  interfaces.Staging,
		EntityData: interfaces.EntityData{
			LegalEntityName:            "Novacred Private Limited",
			BusinessAddress:            "Mumbai, Maharashtra",
			CityCodes:                  []string{"std:080"},
			GSTNo:                      "27AAACN2082N1Z8",
			PANName:                    "Novacred Private Limited",
			PANNo:                      "AALCM8972B",
			DateOfIncorporation:        "01/01/2020",
			AuthorisedSignatoryName:    "Authorised Signatory",
			AuthorisedSignatoryAddress: "Mumbai, Maharashtra",
			EmailID:                    "onenovacred@gmail.com",
			MobileNo:                   "9876543210",
			Country:                    "IND",
		},
		NetworkParticipants: []interfaces.NetworkParticipant{{
			Type:          ParticipantSellerApp,
			CityCodes:     []string{"std:080"},
			SubscriberURL: "/",
			Domain:        "nic2004:60232",
		}},
	}
}

type testEnv struct {
	fake         *registry.FakeRegistry
	store        *kms.KeyStore
	issuer       *KeyIssuer
	orchestrator *Orchestrator
	directory    *Directory
	metrics      *metrics.Metrics
}

func newTestEnv(t *testing.T, timeout time.Duration) *testEnv {
	t.Helper()

	fake, err := registry.NewFakeRegistry()
	require.NoError(t, err)
	t.Cleanup(fake.Close)

	m := metrics.New("onboarding_test")
	client := registry.NewClient(registry.Config{
		BaseURLs: map[interfaces.Environment]string{interfaces.Staging: fake.URL()},
		Timeout:  timeout,
	}, testLogger(), m)

	store := kms.NewKeyStore(testLogger())
	return &testEnv{
		fake:   fake,
		store:  store,
		issuer: NewKeyIssuer(kms.NewGenerator(), store, m, testLogger()),
		orchestrator: NewOrchestrator(store, client, OrchestratorConfig{
			RegistryEncryptionKeys: map[interfaces.Environment]string{interfaces.Staging: fake.EncryptionPublicKey()},
			Metrics:                m,
		}, testLogger()),
		directory: NewDirectory(store, client, testLogger()),
		metrics:   m,
	}
}

func TestOnboarding_EndToEnd(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2*time.Second)

	info, err := env.issuer.Issue(ctx, testSubscriber)
	require.NoError(t, err)
	assert.True(t, info.Active)

	builder := NewVerificationBuilder(env.store, testLogger())
	artifact, err := builder.Build(ctx, testSubscriber, info.UniqueKeyID)
	require.NoError(t, err)

	result, err := env.orchestrator.Subscribe(ctx, sampleRequest(info.UniqueKeyID))
	require.NoError(t, err)
	assert.Equal(t, interfaces.StateAcked, result.State)
	assert.Equal(t, registry.AckStatus, result.Ack.Status)
	assert.NotEqual(t, artifact.RequestID, result.RequestID)

	payload, ok := env.fake.Subscription(testSubscriber)
	require.True(t, ok)
	entity := payload.Message.Entity
	assert.Equal(t, 2, payload.Context.Operation.OpsNo)
	assert.Equal(t, info.UniqueKeyID, entity.UniqueKeyID)
	assert.Equal(t, info.SigningPublicKey, entity.KeyPair.SigningPublicKey)
	assert.Equal(t, info.EncryptionPublicKey, entity.KeyPair.EncryptionPublicKey)
	assert.Equal(t, int64(9876543210), entity.MobileNo)
	assert.Equal(t, "27AAACN2082N1Z8", entity.GST.GSTNo)
	assert.Equal(t, DefaultCallbackPath, entity.CallbackURL)

	pending := env.orchestrator.Pending(testSubscriber)
	require.Len(t, pending, 1)
	assert.Equal(t, interfaces.StateAcked, pending[0].State)
	assert.Nil(t, pending[0].ResolvedAt, "acked attempts stay open until the callback")

	challenge, err := env.fake.Challenge(testSubscriber, "ondc-challenge-7c1f")
	require.NoError(t, err)
	answer, err := env.orchestrator.HandleCallback(ctx, interfaces.Staging, testSubscriber, challenge)
	require.NoError(t, err)
	assert.Equal(t, "ondc-challenge-7c1f", answer)

	pending = env.orchestrator.ListPending()
	require.Len(t, pending, 1)
	assert.Equal(t, interfaces.StateVerified, pending[0].State)
	assert.NotNil(t, pending[0].ResolvedAt)

	records, err := env.directory.Lookup(ctx, interfaces.Staging, interfaces.LookupQuery{Country: "IND", Domain: "nic2004:60232"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, testSubscriber, records[0].SubscriberID)

	records, err = env.directory.VLookup(ctx, interfaces.Staging, testSubscriber, "", interfaces.LookupQuery{Country: "IND", Type: ParticipantSellerApp, City: "std:080"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, info.UniqueKeyID, records[0].UniqueKeyID)
}

func TestOrchestrator_SubscribeUsesActiveKey(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2*time.Second)

	_, err := env.issuer.Issue(ctx, testSubscriber)
	require.NoError(t, err)
	newest, err := env.issuer.Issue(ctx, testSubscriber)
	require.NoError(t, err)

	result, err := env.orchestrator.Subscribe(ctx, sampleRequest(""))
	require.NoError(t, err)
	assert.Equal(t, newest.UniqueKeyID, result.UniqueKeyID)
}

func TestOrchestrator_ValidationBeforeSigning(t *testing.T) {
	ctx := context.Background()
	store := kms.NewKeyStore(testLogger())
	kp, err := kms.NewGenerator().Generate(testSubscriber)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, kp))

	reg := &registry.MockRegistry{}
	o := NewOrchestrator(store, reg, OrchestratorConfig{}, testLogger())

	cases := map[string]func(*interfaces.SubscriptionRequest){
		"ops out of range":     func(r *interfaces.SubscriptionRequest) { r.OpsNo = 6 },
		"ops zero":             func(r *interfaces.SubscriptionRequest) { r.OpsNo = 0 },
		"unknown environment":  func(r *interfaces.SubscriptionRequest) { r.Environment = "sandbox" },
		"missing subscriber":   func(r *interfaces.SubscriptionRequest) { r.SubscriberID = " " },
		"no participants":      func(r *interfaces.SubscriptionRequest) { r.NetworkParticipants = nil },
		"bad participant type": func(r *interfaces.SubscriptionRequest) { r.NetworkParticipants[0].Type = "logistics" },
		"participant domain":   func(r *interfaces.SubscriptionRequest) { r.NetworkParticipants[0].Domain = "" },
		"missing gst":          func(r *interfaces.SubscriptionRequest) { r.EntityData.GSTNo = "" },
		"missing pan":          func(r *interfaces.SubscriptionRequest) { r.EntityData.PANNo = "" },
		"missing legal name":   func(r *interfaces.SubscriptionRequest) { r.EntityData.LegalEntityName = "" },
		"bad email":            func(r *interfaces.SubscriptionRequest) { r.EntityData.EmailID = "novacred" },
		"non numeric mobile":   func(r *interfaces.SubscriptionRequest) { r.EntityData.MobileNo = "98765-43210" },
		"missing country":      func(r *interfaces.SubscriptionRequest) { r.EntityData.Country = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := sampleRequest(kp.UniqueKeyID())
			req.NetworkParticipants = append([]interfaces.NetworkParticipant(nil), req.NetworkParticipants...)
			mutate(&req)
			_, err := o.Subscribe(ctx, req)
			assert.ErrorIs(t, err, interfaces.ErrValidation)
		})
	}

	reg.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, o.ListPending())
}

func TestOrchestrator_UnknownKey(t *testing.T) {
	reg := &registry.MockRegistry{}
	o := NewOrchestrator(kms.NewKeyStore(testLogger()), reg, OrchestratorConfig{}, testLogger())

	_, err := o.Subscribe(context.Background(), sampleRequest("missing"))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	_, err = o.Subscribe(context.Background(), sampleRequest(""))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	reg.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

type mockDomainChecker struct {
	mock.Mock
}

func (m *mockDomainChecker) CheckDomain(ctx context.Context, domain string) error {
	return m.Called(ctx, domain).Error(0)
}

func TestOrchestrator_DomainCheck(t *testing.T) {
	ctx := context.Background()
	store := kms.NewKeyStore(testLogger())
	kp, err := kms.NewGenerator().Generate(testSubscriber)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, kp))

	checker := &mockDomainChecker{}
	checker.On("CheckDomain", mock.Anything, testSubscriber).
		Return(fmt.Errorf("%w: does not resolve", interfaces.ErrValidation)).Once()

	reg := &registry.MockRegistry{}
	o := NewOrchestrator(store, reg, OrchestratorConfig{DomainChecker: checker}, testLogger())

	_, err = o.Subscribe(ctx, sampleRequest(""))
	assert.ErrorIs(t, err, interfaces.ErrValidation)
	checker.AssertExpectations(t)
	reg.AssertNotCalled(t, "Subscribe", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOrchestrator_SignedBodyMatchesHeader(t *testing.T) {
	ctx := context.Background()
	store := kms.NewKeyStore(testLogger())
	kp, err := kms.NewGenerator().Generate(testSubscriber)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, kp))

	now := time.Now().Truncate(time.Second)
	reg := &registry.MockRegistry{}
	reg.On("Subscribe", mock.Anything, interfaces.Staging, mock.Anything, mock.Anything).
		Return(&interfaces.SubscribeAck{Status: registry.AckStatus}, nil).Once()

	o := NewOrchestrator(store, reg, OrchestratorConfig{Now: func() time.Time { return now }}, testLogger())
	_, err = o.Subscribe(ctx, sampleRequest(kp.UniqueKeyID()))
	require.NoError(t, err)
	reg.AssertExpectations(t)

	call := reg.Calls[0]
	body := call.Arguments.Get(2).([]byte)
	header, err := cryptoutils.ParseAuthorizationHeader(call.Arguments.Get(3).(string))
	require.NoError(t, err)
	assert.Equal(t, testSubscriber, header.SubscriberID)
	assert.Equal(t, kp.UniqueKeyID(), header.UniqueKeyID)
	assert.Equal(t, now.Unix(), header.Created)
	assert.Equal(t, now.Add(DefaultRequestTTL).Unix(), header.Expires)
	require.NoError(t, cryptoutils.VerifyAuthorization(header, body, kp.SigningPublicKey(), now))

	canonical, err := cryptoutils.CanonicalJSON(jsonValue(t, body))
	require.NoError(t, err)
	assert.Equal(t, string(body), string(canonical), "body is sent in canonical form")
}

func jsonValue(t *testing.T, body []byte) any {
	var payload registry.SubscribePayload
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload
}

func TestOrchestrator_Rejected(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 2*time.Second)
	env.fake.SetNack(true)

	info, err := env.issuer.Issue(ctx, testSubscriber)
	require.NoError(t, err)

	result, err := env.orchestrator.Subscribe(ctx, sampleRequest(info.UniqueKeyID))
	var rejected *interfaces.RegistryRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Contains(t, string(rejected.Body), "1050")
	assert.Equal(t, interfaces.StateRejected, result.State)

	pending := env.orchestrator.Pending(testSubscriber)
	require.Len(t, pending, 1)
	assert.Equal(t, interfaces.StateRejected, pending[0].State)
	assert.NotEmpty(t, pending[0].LastError)
}

func TestOrchestrator_TimedOut(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, 100*time.Millisecond)
	env.fake.SetDelay(time.Second)

	info, err := env.issuer.Issue(ctx, testSubscriber)
	require.NoError(t, err)

	start := time.Now()
	result, err := env.orchestrator.Subscribe(ctx, sampleRequest(info.UniqueKeyID))
	assert.Less(t, time.Since(start), time.Second)
	require.ErrorIs(t, err, interfaces.ErrTimedOut)

	var callErr *interfaces.RegistryCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, registry.SubscribePath, callErr.Endpoint)
	assert.Equal(t, interfaces.Staging, callErr.Environment)
	assert.Equal(t, interfaces.StateTimedOut, result.State)
}

func TestDirectory_LookupTimeoutIsNetworkError(t *testing.T) {
	env := newTestEnv(t, 50*time.Millisecond)
	env.fake.SetDelay(time.Second)

	_, err := env.directory.Lookup(context.Background(), interfaces.Staging, interfaces.LookupQuery{Country: "IND"})
	require.Error(t, err)
	assert.ErrorIs(t, err, interfaces.ErrNetwork)
	assert.ErrorIs(t, err, interfaces.ErrTimedOut)
}

func TestOrchestrator_Unreachable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, time.Second)
	info, err := env.issuer.Issue(ctx, testSubscriber)
	require.NoError(t, err)
	env.fake.Close()

	result, err := env.orchestrator.Subscribe(ctx, sampleRequest(info.UniqueKeyID))
	assert.ErrorIs(t, err, interfaces.ErrNetwork)
	assert.Equal(t, interfaces.StateTimedOut, result.State)
}

// challengeFor encrypts plaintext the way the registry does for a key pair.
func challengeFor(t *testing.T, registryKey cryptoutils.EncryptionKeyPair, kp *kms.KeyPair, plaintext string) string {
	peer, err := cryptoutils.ParseEncryptionPublicKey(kp.Info().EncryptionPublicKey)
	require.NoError(t, err)
	secret, err := cryptoutils.SharedSecret(registryKey.Private, peer)
	require.NoError(t, err)
	challenge, err := cryptoutils.EncryptChallenge(secret, plaintext)
	require.NoError(t, err)
	return challenge
}

func TestOrchestrator_CallbackKeySelection(t *testing.T) {
	ctx := context.Background()
	store := kms.NewKeyStore(testLogger())
	gen := kms.NewGenerator()

	old, err := gen.Generate(testSubscriber)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, old))
	newer, err := gen.Generate(testSubscriber)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, newer))

	registryKey, err := cryptoutils.GenerateEncryptionKeyPair(rand.Reader)
	require.NoError(t, err)
	o := NewOrchestrator(store, &registry.MockRegistry{}, OrchestratorConfig{
		RegistryEncryptionKeys: map[interfaces.Environment]string{
			interfaces.Staging: cryptoutils.EncodeEncryptionPublicKey(registryKey.Public),
		},
	}, testLogger())

	// No pending attempt: every stored key is tried.
	answer, err := o.HandleCallback(ctx, interfaces.Staging, testSubscriber, challengeFor(t, registryKey, old, "older-key-challenge"))
	require.NoError(t, err)
	assert.Equal(t, "older-key-challenge", answer)

	answer, err = o.HandleCallback(ctx, interfaces.Staging, testSubscriber, challengeFor(t, registryKey, newer, "newer-key-challenge"))
	require.NoError(t, err)
	assert.Equal(t, "newer-key-challenge", answer)

	// Unknown environment key and unknown subscriber fail closed.
	_, err = o.HandleCallback(ctx, interfaces.Production, testSubscriber, challengeFor(t, registryKey, newer, "x"))
	assert.ErrorIs(t, err, interfaces.ErrDecryption)
	_, err = o.HandleCallback(ctx, interfaces.Staging, "other.example.com", challengeFor(t, registryKey, newer, "x"))
	assert.ErrorIs(t, err, interfaces.ErrDecryption)

	// A challenge for a key the subscriber does not hold.
	foreign, err := gen.Generate("other.example.com")
	require.NoError(t, err)
	_, err = o.HandleCallback(ctx, interfaces.Staging, testSubscriber, challengeFor(t, registryKey, foreign, "x"))
	assert.ErrorIs(t, err, interfaces.ErrDecryption)

	_, err = o.HandleCallback(ctx, interfaces.Staging, testSubscriber, "")
	assert.ErrorIs(t, err, interfaces.ErrValidation)
}

func TestMoveToFrontKeepsOrder(t *testing.T) {
	gen := kms.NewGenerator()
	var pairs []*kms.KeyPair
	for i := 0; i < 4; i++ {
		kp, err := gen.Generate(testSubscriber)
		require.NoError(t, err)
		pairs = append(pairs, kp)
	}
	ids := func(kps []*kms.KeyPair) []string {
		out := make([]string, len(kps))
		for i, kp := range kps {
			out[i] = kp.UniqueKeyID()
		}
		return out
	}
	original := ids(pairs)

	moved := moveToFront(pairs, pairs[2].UniqueKeyID())
	assert.Equal(t, []string{original[2], original[0], original[1], original[3]}, ids(moved))
	assert.Equal(t, original, ids(pairs), "input slice must not be reordered")

	assert.Equal(t, original, ids(moveToFront(pairs, pairs[0].UniqueKeyID())))
	assert.Equal(t, original, ids(moveToFront(pairs, "unknown")))
}

func TestVerificationBuilder(t *testing.T) {
	ctx := context.Background()
	store := kms.NewKeyStore(testLogger())
	kp, err := kms.NewGenerator().Generate(testSubscriber)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, kp))

	b := NewVerificationBuilder(store, testLogger())
	_, ok := b.LastHTML()
	assert.False(t, ok)

	first, err := b.Build(ctx, testSubscriber, kp.UniqueKeyID())
	require.NoError(t, err)
	second, err := b.Build(ctx, testSubscriber, kp.UniqueKeyID())
	require.NoError(t, err)
	assert.NotEqual(t, first.RequestID, second.RequestID)

	for _, a := range []*interfaces.VerificationArtifact{first, second} {
		assert.NoError(t, cryptoutils.VerifyMessage(kp.SigningPublicKey(), []byte(a.RequestID), a.SignedUniqueRequestID))
		assert.Equal(t, kp.Info().SigningPublicKey, a.SigningPublicKey)
	}

	html, ok := b.LastHTML()
	require.True(t, ok)
	assert.Contains(t, html, "<meta name='ondc-site-verification' content='"+second.SignedUniqueRequestID+"' />")
	assert.NotContains(t, html, "&#43;")

	_, err = b.Build(ctx, testSubscriber, "missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = RenderHTML(&interfaces.VerificationArtifact{SignedUniqueRequestID: "<script>"})
	assert.ErrorIs(t, err, interfaces.ErrValidation)
}

func TestChallengeCodec(t *testing.T) {
	ctx := context.Background()
	store := kms.NewKeyStore(testLogger())
	kp, err := kms.NewGenerator().Generate(testSubscriber)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, kp))

	registryKey, err := cryptoutils.GenerateEncryptionKeyPair(rand.Reader)
	require.NoError(t, err)
	registryPub := cryptoutils.EncodeEncryptionPublicKey(registryKey.Public)

	codec := NewChallengeCodec(store)
	answer, err := codec.Decrypt(ctx, testSubscriber, kp.UniqueKeyID(), challengeFor(t, registryKey, kp, "abc-123"), registryPub)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", answer)

	other, err := cryptoutils.GenerateEncryptionKeyPair(rand.Reader)
	require.NoError(t, err)
	_, err = codec.Decrypt(ctx, testSubscriber, kp.UniqueKeyID(), challengeFor(t, other, kp, "abc-123"), registryPub)
	assert.ErrorIs(t, err, interfaces.ErrDecryption)

	_, err = codec.Decrypt(ctx, testSubscriber, kp.UniqueKeyID(), "not base64!", registryPub)
	assert.ErrorIs(t, err, interfaces.ErrDecryption)

	_, err = codec.Decrypt(ctx, testSubscriber, kp.UniqueKeyID(), challengeFor(t, registryKey, kp, "abc"), "garbage")
	assert.ErrorIs(t, err, interfaces.ErrDecryption)

	_, err = codec.Decrypt(ctx, testSubscriber, "missing", "x", registryPub)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestDirectory_VLookupSignature(t *testing.T) {
	ctx := context.Background()
	store := kms.NewKeyStore(testLogger())
	kp, err := kms.NewGenerator().Generate(testSubscriber)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, kp))

	params := interfaces.LookupQuery{Country: "IND", Domain: "ONDC:RET10", Type: "BPP", City: "std:080", SubscriberID: "seller.example.com"}
	reg := &registry.MockRegistry{}
	reg.On("VLookup", mock.Anything, interfaces.PreProduction, mock.MatchedBy(func(q interfaces.VLookupQuery) bool {
		return q.SenderSubscriberID == testSubscriber &&
			q.RequestID != "" &&
			strings.HasSuffix(q.Timestamp, "Z") &&
			cryptoutils.VerifyMessage(kp.SigningPublicKey(), []byte("IND|ONDC:RET10|BPP|std:080|seller.example.com"), q.Signature) == nil
	})).Return([]interfaces.ParticipantRecord{}, nil).Once()

	d := NewDirectory(store, reg, testLogger())
	records, err := d.VLookup(ctx, "pre-prod", testSubscriber, kp.UniqueKeyID(), params)
	require.NoError(t, err)
	assert.Empty(t, records)
	reg.AssertExpectations(t)

	_, err = d.VLookup(ctx, interfaces.Staging, "unknown.example.com", "", params)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	reg.On("Lookup", mock.Anything, interfaces.Staging, params).
		Return(nil, &interfaces.RegistryCallError{Endpoint: registry.LookupPath, Environment: interfaces.Staging, Err: interfaces.ErrNetwork}).Once()
	_, err = d.Lookup(ctx, interfaces.Staging, params)
	assert.True(t, errors.Is(err, interfaces.ErrNetwork))
}

func TestDirectory_VLookupKeySelection(t *testing.T) {
	ctx := context.Background()
	store := kms.NewKeyStore(testLogger())
	gen := kms.NewGenerator()
	old, err := gen.Generate(testSubscriber)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, old))
	active, err := gen.Generate(testSubscriber)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, active))

	params := interfaces.LookupQuery{Country: "IND", Domain: "ONDC:RET10"}
	signedBy := func(kp *kms.KeyPair) any {
		return mock.MatchedBy(func(q interfaces.VLookupQuery) bool {
			return cryptoutils.VerifyMessage(kp.SigningPublicKey(), []byte(params.SigningString()), q.Signature) == nil
		})
	}
	reg := &registry.MockRegistry{}
	reg.On("VLookup", mock.Anything, interfaces.Staging, signedBy(old)).Return([]interfaces.ParticipantRecord{}, nil).Once()
	reg.On("VLookup", mock.Anything, interfaces.Staging, signedBy(active)).Return([]interfaces.ParticipantRecord{}, nil).Once()

	d := NewDirectory(store, reg, testLogger())
	_, err = d.VLookup(ctx, interfaces.Staging, testSubscriber, old.UniqueKeyID(), params)
	require.NoError(t, err)
	_, err = d.VLookup(ctx, interfaces.Staging, testSubscriber, "", params)
	require.NoError(t, err)
	reg.AssertExpectations(t)

	// Key ids are scoped to their subscriber.
	_, err = d.VLookup(ctx, interfaces.Staging, "unknown.example.com", old.UniqueKeyID(), params)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestKeyIssuer(t *testing.T) {
	ctx := context.Background()
	store := kms.NewKeyStore(testLogger())
	m := metrics.New("issuer_test")
	issuer := NewKeyIssuer(kms.NewGenerator(), store, m, testLogger())

	a, err := issuer.Issue(ctx, testSubscriber)
	require.NoError(t, err)
	b, err := issuer.Issue(ctx, testSubscriber)
	require.NoError(t, err)
	assert.NotEqual(t, a.UniqueKeyID, b.UniqueKeyID)
	assert.NotEqual(t, a.SigningPublicKey, b.SigningPublicKey)
	assert.Len(t, store.List(ctx, testSubscriber), 2)

	_, err = issuer.Issue(ctx, "  ")
	assert.ErrorIs(t, err, interfaces.ErrValidation)
}
