package onboarding

import (
	"sort"
	"sync"
	"time"

	"github.com/ruteri/ondc-onboarding-service/interfaces"
)

type pendingKey struct {
	env          interfaces.Environment
	subscriberID string
}

// pendingTracker holds the latest subscription attempt per (environment, subscriber).
type pendingTracker struct {
	mu      sync.Mutex
	records map[pendingKey]*interfaces.PendingSubscription
}

func newPendingTracker() *pendingTracker {
	return &pendingTracker{records: make(map[pendingKey]*interfaces.PendingSubscription)}
}

func (t *pendingTracker) put(rec interfaces.PendingSubscription) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[pendingKey{rec.Environment, rec.SubscriberID}] = &rec
}

func (t *pendingTracker) get(env interfaces.Environment, subscriberID string) (interfaces.PendingSubscription, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[pendingKey{env, subscriberID}]
	if !ok {
		return interfaces.PendingSubscription{}, false
	}
	return *rec, true
}

// acknowledge marks the attempt as accepted by the registry. It stays open
// until its challenge is answered.
func (t *pendingTracker) acknowledge(env interfaces.Environment, subscriberID, requestID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.records[pendingKey{env, subscriberID}]; ok && rec.RequestID == requestID {
		rec.State = interfaces.StateAcked
	}
}

// resolve moves the record to state unless it was replaced by a newer attempt.
func (t *pendingTracker) resolve(env interfaces.Environment, subscriberID, requestID string, state interfaces.SubscriptionState, at time.Time, lastErr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[pendingKey{env, subscriberID}]
	if !ok || (requestID != "" && rec.RequestID != requestID) {
		return
	}
	rec.State = state
	rec.ResolvedAt = &at
	rec.LastError = lastErr
}

func (t *pendingTracker) forSubscriber(subscriberID string) []interfaces.PendingSubscription {
	return t.filter(func(r *interfaces.PendingSubscription) bool { return r.SubscriberID == subscriberID })
}

func (t *pendingTracker) all() []interfaces.PendingSubscription {
	return t.filter(func(*interfaces.PendingSubscription) bool { return true })
}

func (t *pendingTracker) filter(keep func(*interfaces.PendingSubscription) bool) []interfaces.PendingSubscription {
	t.mu.Lock()
	out := make([]interfaces.PendingSubscription, 0, len(t.records))
	for _, rec := range t.records {
		if keep(rec) {
			out = append(out, *rec)
		}
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].SentAt.Equal(out[j].SentAt) {
			return out[i].Environment < out[j].Environment
		}
		return out[i].SentAt.Before(out[j].SentAt)
	})
	return out
}
