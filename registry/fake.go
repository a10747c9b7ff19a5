package registry

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/ondc-onboarding-service/cryptoutils"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"go.uber.org/atomic"
)

// FakeRegistry is an in-process registry for tests. It verifies request
// signatures the way the real registry does, keeps accepted subscriptions in
// memory and can issue on_subscribe challenges for them.
type FakeRegistry struct {
	mu            sync.RWMutex
	subscriptions map[string]SubscribePayload

	encryption cryptoutils.EncryptionKeyPair
	delay      atomic.Duration
	nack       atomic.Bool

	server *httptest.Server
}

// NewFakeRegistry starts a fake registry on a local listener.
func NewFakeRegistry() (*FakeRegistry, error) {
	enc, err := cryptoutils.GenerateEncryptionKeyPair(rand.Reader)
	if err != nil {
		return nil, err
	}

	f := &FakeRegistry{
		subscriptions: make(map[string]SubscribePayload),
		encryption:    enc,
	}

	mux := chi.NewRouter()
	mux.Post(SubscribePath, f.handleSubscribe)
	mux.Post(LookupPath, f.handleLookup)
	mux.Post(VLookupPath, f.handleVLookup)
	f.server = httptest.NewServer(mux)
	return f, nil
}

// URL is the base URL of the fake registry.
func (f *FakeRegistry) URL() string {
	return f.server.URL
}

// Close shuts the listener down.
func (f *FakeRegistry) Close() {
	f.server.Close()
}

// EncryptionPublicKey is the registry's X25519 key in the published DER form.
func (f *FakeRegistry) EncryptionPublicKey() string {
	return cryptoutils.EncodeEncryptionPublicKey(f.encryption.Public)
}

// SetDelay makes every response wait d, for deadline tests.
func (f *FakeRegistry) SetDelay(d time.Duration) {
	f.delay.Store(d)
}

// SetNack makes subscribe answer NACK after signature verification.
func (f *FakeRegistry) SetNack(nack bool) {
	f.nack.Store(nack)
}

// Subscription returns the last accepted subscribe payload of a subscriber.
func (f *FakeRegistry) Subscription(subscriberID string) (SubscribePayload, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.subscriptions[subscriberID]
	return p, ok
}

// Challenge encrypts plaintext for a subscribed participant, as the registry
// does before calling on_subscribe.
func (f *FakeRegistry) Challenge(subscriberID, plaintext string) (string, error) {
	payload, ok := f.Subscription(subscriberID)
	if !ok {
		return "", fmt.Errorf("%w: %s has not subscribed", interfaces.ErrNotFound, subscriberID)
	}

	peer, err := cryptoutils.ParseEncryptionPublicKey(payload.Message.Entity.KeyPair.EncryptionPublicKey)
	if err != nil {
		return "", err
	}
	secret, err := cryptoutils.SharedSecret(f.encryption.Private, peer)
	if err != nil {
		return "", err
	}
	defer cryptoutils.Wipe(secret)

	return cryptoutils.EncryptChallenge(secret, plaintext)
}

func (f *FakeRegistry) wait(r *http.Request) bool {
	d := f.delay.Load()
	if d <= 0 {
		return true
	}
	select {
	case <-time.After(d):
		return true
	case <-r.Context().Done():
		return false
	}
}

func writeRegistryJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func registryError(code, message string) map[string]any {
	return map[string]any{
		"message": map[string]any{"ack": map[string]string{"status": NackStatus}},
		"error":   map[string]string{"type": "POLICY-ERROR", "code": code, "message": message},
	}
}

func (f *FakeRegistry) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if !f.wait(r) {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeRegistryJSON(w, http.StatusBadRequest, registryError("1000", err.Error()))
		return
	}

	var payload SubscribePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		writeRegistryJSON(w, http.StatusBadRequest, registryError("1001", "invalid request body"))
		return
	}

	if err := verifyAuthorization(r.Header.Get("Authorization"), body, payload.Message.Entity); err != nil {
		writeRegistryJSON(w, http.StatusUnauthorized, registryError("1015", err.Error()))
		return
	}

	if f.nack.Load() {
		writeRegistryJSON(w, http.StatusOK, registryError("1050", "subscription declined"))
		return
	}

	f.mu.Lock()
	f.subscriptions[payload.Message.Entity.SubscriberID] = payload
	f.mu.Unlock()

	writeRegistryJSON(w, http.StatusOK, map[string]any{
		"message": map[string]any{"ack": map[string]string{"status": AckStatus}},
	})
}

func verifyAuthorization(value string, body []byte, entity Entity) error {
	header, err := cryptoutils.ParseAuthorizationHeader(value)
	if err != nil {
		return err
	}
	if header.SubscriberID != entity.SubscriberID || header.UniqueKeyID != entity.UniqueKeyID {
		return errors.New("keyId does not match the subscribing entity")
	}
	pub, err := cryptoutils.ParseSigningPublicKey(entity.KeyPair.SigningPublicKey)
	if err != nil {
		return err
	}
	return cryptoutils.VerifyAuthorization(header, body, pub, time.Now())
}

func (f *FakeRegistry) handleLookup(w http.ResponseWriter, r *http.Request) {
	if !f.wait(r) {
		return
	}

	var query interfaces.LookupQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		writeRegistryJSON(w, http.StatusBadRequest, registryError("1001", "invalid lookup query"))
		return
	}
	writeRegistryJSON(w, http.StatusOK, f.match(query))
}

func (f *FakeRegistry) handleVLookup(w http.ResponseWriter, r *http.Request) {
	if !f.wait(r) {
		return
	}

	var query interfaces.VLookupQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		writeRegistryJSON(w, http.StatusBadRequest, registryError("1001", "invalid vlookup query"))
		return
	}

	sender, ok := f.Subscription(query.SenderSubscriberID)
	if !ok {
		writeRegistryJSON(w, http.StatusUnauthorized, registryError("1015", "unknown sender"))
		return
	}
	pub, err := cryptoutils.ParseSigningPublicKey(sender.Message.Entity.KeyPair.SigningPublicKey)
	if err == nil {
		err = cryptoutils.VerifyMessage(pub, []byte(query.SearchParameters.SigningString()), query.Signature)
	}
	if err != nil {
		writeRegistryJSON(w, http.StatusUnauthorized, registryError("1015", "signature verification failed"))
		return
	}

	writeRegistryJSON(w, http.StatusOK, f.match(query.SearchParameters))
}

func (f *FakeRegistry) match(q interfaces.LookupQuery) []interfaces.ParticipantRecord {
	f.mu.RLock()
	defer f.mu.RUnlock()

	records := []interfaces.ParticipantRecord{}
	for _, payload := range f.subscriptions {
		entity := payload.Message.Entity
		if q.SubscriberID != "" && q.SubscriberID != entity.SubscriberID {
			continue
		}
		if q.Country != "" && !strings.EqualFold(q.Country, entity.Country) {
			continue
		}
		for _, np := range payload.Message.NetworkParticipant {
			if q.Domain != "" && q.Domain != np.Domain {
				continue
			}
			if q.Type != "" && q.Type != np.Type {
				continue
			}
			if q.City != "" && !contains(np.CityCode, q.City) {
				continue
			}
			records = append(records, interfaces.ParticipantRecord{
				SubscriberID:        entity.SubscriberID,
				UniqueKeyID:         entity.UniqueKeyID,
				SubscriberURL:       np.SubscriberURL,
				Country:             entity.Country,
				City:                strings.Join(np.CityCode, ","),
				Domain:              np.Domain,
				Type:                np.Type,
				SigningPublicKey:    entity.KeyPair.SigningPublicKey,
				EncryptionPublicKey: entity.KeyPair.EncryptionPublicKey,
				ValidFrom:           entity.KeyPair.ValidFrom,
				ValidUntil:          entity.KeyPair.ValidUntil,
				Status:              "SUBSCRIBED",
			})
		}
	}
	return records
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
