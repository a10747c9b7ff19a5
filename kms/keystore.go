package kms

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sort"
	"sync"

	"github.com/ruteri/ondc-onboarding-service/cryptoutils"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"go.uber.org/atomic"
)

const shardCount = 32

type keyRef struct {
	subscriberID string
	keyID        string
}

func (r keyRef) String() string {
	return r.subscriberID + "/" + r.keyID
}

type entry struct {
	pair *KeyPair
	seq  uint64
}

type shard struct {
	mu      sync.RWMutex
	entries map[keyRef]*entry
	// busy holds pairs with a backend write or delete in flight. Other
	// operations on the same pair wait on the channel.
	busy map[keyRef]chan struct{}
}

// subscriberIndex keeps each subscriber's entries ordered by seq.
type subscriberIndex struct {
	mu    sync.RWMutex
	bySub map[string][]*entry
}

// KeyStore maps (subscriberId, uniqueKeyId) to key pairs.
//
// Operations on one pair are serialized; unrelated pairs proceed in
// parallel. No lock is held while a storage backend is written, private
// keys are sealed before they leave the process.
type KeyStore struct {
	shards [shardCount]*shard
	subs   [shardCount]*subscriberIndex
	seq    atomic.Uint64

	backend interfaces.StorageBackend
	sealer  *Sealer
	log     *slog.Logger
}

// NewKeyStore creates an in-memory key store.
func NewKeyStore(log *slog.Logger) *KeyStore {
	s := &KeyStore{log: log}
	for i := range s.shards {
		s.shards[i] = &shard{
			entries: make(map[keyRef]*entry),
			busy:    make(map[keyRef]chan struct{}),
		}
		s.subs[i] = &subscriberIndex{bySub: make(map[string][]*entry)}
	}
	return s
}

// NewPersistentKeyStore creates a key store that writes through to backend
// and loads the records already stored there.
func NewPersistentKeyStore(ctx context.Context, backend interfaces.StorageBackend, sealer *Sealer, log *slog.Logger) (*KeyStore, error) {
	if backend == nil || sealer == nil {
		return nil, errors.New("persistent key store requires a backend and a sealer")
	}
	s := NewKeyStore(log)
	s.backend = backend
	s.sealer = sealer
	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func fnvIndex(parts ...string) uint32 {
	h := fnv.New32a()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return h.Sum32() % shardCount
}

func (s *KeyStore) shardFor(ref keyRef) *shard {
	return s.shards[fnvIndex(ref.subscriberID, ref.keyID)]
}

func (s *KeyStore) indexFor(subscriberID string) *subscriberIndex {
	return s.subs[fnvIndex(subscriberID)]
}

// acquire locks sh and waits until no backend operation on ref is in
// flight. It returns with sh.mu held.
func (sh *shard) acquire(ctx context.Context, ref keyRef) error {
	for {
		sh.mu.Lock()
		done, busy := sh.busy[ref]
		if !busy {
			return nil
		}
		sh.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// release clears the in-flight marker of ref. sh.mu must be held.
func (sh *shard) release(ref keyRef) {
	if done, ok := sh.busy[ref]; ok {
		delete(sh.busy, ref)
		close(done)
	}
}

// Put stores a new key pair. It fails with interfaces.ErrConflict if the
// (subscriberId, uniqueKeyId) pair is already present.
func (s *KeyStore) Put(ctx context.Context, kp *KeyPair) error {
	ref := keyRef{kp.SubscriberID(), kp.UniqueKeyID()}
	sh := s.shardFor(ref)

	if err := sh.acquire(ctx, ref); err != nil {
		return err
	}
	if _, exists := sh.entries[ref]; exists {
		sh.mu.Unlock()
		return fmt.Errorf("%w: key %s already exists", interfaces.ErrConflict, ref)
	}

	e := &entry{pair: kp.withActive(false), seq: s.seq.Inc()}

	if s.backend != nil {
		sh.busy[ref] = make(chan struct{})
		sh.mu.Unlock()

		err := s.persist(ctx, ref, e)

		sh.mu.Lock()
		sh.release(ref)
		if err != nil {
			sh.mu.Unlock()
			return err
		}
	}

	sh.entries[ref] = e
	s.indexFor(ref.subscriberID).add(ref.subscriberID, e)
	sh.mu.Unlock()

	s.log.Debug("Stored key pair", slog.String("subscriberId", ref.subscriberID), slog.String("uniqueKeyId", ref.keyID))
	return nil
}

func (s *KeyStore) persist(ctx context.Context, ref keyRef, e *entry) error {
	data, err := s.encodeRecord(e.pair, e.seq)
	if err != nil {
		return err
	}
	if err := s.backend.Store(ctx, ref.String(), data); err != nil {
		return fmt.Errorf("failed to persist key %s: %w", ref, err)
	}
	return nil
}

// Get returns the key pair for (subscriberID, keyID) or interfaces.ErrNotFound.
func (s *KeyStore) Get(ctx context.Context, subscriberID, keyID string) (*KeyPair, error) {
	ref := keyRef{subscriberID, keyID}
	sh := s.shardFor(ref)

	sh.mu.RLock()
	e, ok := sh.entries[ref]
	sh.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: key %s", interfaces.ErrNotFound, ref)
	}

	latest, _ := s.indexFor(subscriberID).latest(subscriberID)
	return e.pair.withActive(latest == e), nil
}

// Active returns the key pair used for new subscription requests: the most
// recently stored pair of the subscriber.
func (s *KeyStore) Active(ctx context.Context, subscriberID string) (*KeyPair, error) {
	latest, ok := s.indexFor(subscriberID).latest(subscriberID)
	if !ok {
		return nil, fmt.Errorf("%w: no keys for subscriber %s", interfaces.ErrNotFound, subscriberID)
	}
	return latest.pair.withActive(true), nil
}

// ForSubscriber returns every key pair of a subscriber, newest first.
func (s *KeyStore) ForSubscriber(ctx context.Context, subscriberID string) []*KeyPair {
	entries := s.indexFor(subscriberID).entries(subscriberID)
	pairs := make([]*KeyPair, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		pairs = append(pairs, entries[i].pair.withActive(i == len(entries)-1))
	}
	return pairs
}

// List returns the public view of stored keys in insertion order. An empty
// subscriberID lists every subscriber.
func (s *KeyStore) List(ctx context.Context, subscriberID string) []interfaces.KeyInfo {
	var groups [][]*entry
	if subscriberID != "" {
		groups = append(groups, s.indexFor(subscriberID).entries(subscriberID))
	} else {
		for _, idx := range s.subs {
			groups = append(groups, idx.all()...)
		}
	}

	var all []*entry
	latestSeq := make(map[string]uint64)
	for _, g := range groups {
		if len(g) == 0 {
			continue
		}
		latestSeq[g[0].pair.SubscriberID()] = g[len(g)-1].seq
		all = append(all, g...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	infos := make([]interfaces.KeyInfo, 0, len(all))
	for _, e := range all {
		info := e.pair.Info()
		info.Active = latestSeq[info.SubscriberID] == e.seq
		infos = append(infos, info)
	}
	return infos
}

// Count returns the number of stored key pairs.
func (s *KeyStore) Count() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}

// Delete removes a key pair. Deleting an absent pair, including a second
// delete of the same pair, fails with interfaces.ErrNotFound.
func (s *KeyStore) Delete(ctx context.Context, subscriberID, keyID string) error {
	ref := keyRef{subscriberID, keyID}
	sh := s.shardFor(ref)

	if err := sh.acquire(ctx, ref); err != nil {
		return err
	}
	e, ok := sh.entries[ref]
	if !ok {
		sh.mu.Unlock()
		return fmt.Errorf("%w: key %s", interfaces.ErrNotFound, ref)
	}

	if s.backend != nil {
		sh.busy[ref] = make(chan struct{})
		sh.mu.Unlock()

		err := s.backend.Delete(ctx, ref.String())
		if errors.Is(err, interfaces.ErrContentNotFound) {
			err = nil
		}

		sh.mu.Lock()
		sh.release(ref)
		if err != nil {
			sh.mu.Unlock()
			return fmt.Errorf("failed to delete persisted key %s: %w", ref, err)
		}
	}

	delete(sh.entries, ref)
	s.indexFor(subscriberID).remove(subscriberID, e)
	sh.mu.Unlock()

	s.log.Debug("Deleted key pair", slog.String("subscriberId", subscriberID), slog.String("uniqueKeyId", keyID))
	return nil
}

func (idx *subscriberIndex) add(subscriberID string, e *entry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	list := idx.bySub[subscriberID]
	i := sort.Search(len(list), func(i int) bool { return list[i].seq > e.seq })
	list = append(list, nil)
	copy(list[i+1:], list[i:])
	list[i] = e
	idx.bySub[subscriberID] = list
}

func (idx *subscriberIndex) remove(subscriberID string, e *entry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	list := idx.bySub[subscriberID]
	for i, cur := range list {
		if cur == e {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(idx.bySub, subscriberID)
		return
	}
	idx.bySub[subscriberID] = list
}

func (idx *subscriberIndex) latest(subscriberID string) (*entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	list := idx.bySub[subscriberID]
	if len(list) == 0 {
		return nil, false
	}
	return list[len(list)-1], true
}

// entries returns a copy of the subscriber's entries ordered by seq.
func (idx *subscriberIndex) entries(subscriberID string) []*entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]*entry(nil), idx.bySub[subscriberID]...)
}

func (idx *subscriberIndex) all() [][]*entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([][]*entry, 0, len(idx.bySub))
	for _, list := range idx.bySub {
		out = append(out, append([]*entry(nil), list...))
	}
	return out
}

type storedRecord struct {
	Info   interfaces.KeyInfo `json:"info"`
	Seq    uint64             `json:"seq"`
	Sealed []byte             `json:"sealed"`
}

type privateMaterial struct {
	Signing    []byte `json:"signing"`
	Encryption []byte `json:"encryption"`
}

func recordAAD(info interfaces.KeyInfo) []byte {
	return []byte(info.SubscriberID + "|" + info.UniqueKeyID)
}

func (s *KeyStore) encodeRecord(kp *KeyPair, seq uint64) ([]byte, error) {
	secret, err := json.Marshal(privateMaterial{
		Signing:    kp.signingPrivate,
		Encryption: kp.encryptionPrivate[:],
	})
	if err != nil {
		return nil, err
	}
	defer cryptoutils.Wipe(secret)

	sealed, err := s.sealer.Seal(secret, recordAAD(kp.info))
	if err != nil {
		return nil, fmt.Errorf("failed to seal key %s/%s: %w", kp.info.SubscriberID, kp.info.UniqueKeyID, err)
	}

	return json.Marshal(storedRecord{Info: kp.info, Seq: seq, Sealed: sealed})
}

func (s *KeyStore) decodeRecord(data []byte) (*KeyPair, uint64, error) {
	var rec storedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, 0, fmt.Errorf("invalid key record: %w", err)
	}

	secret, err := s.sealer.Open(rec.Sealed, recordAAD(rec.Info))
	if err != nil {
		return nil, 0, err
	}
	defer cryptoutils.Wipe(secret)

	var material privateMaterial
	if err := json.Unmarshal(secret, &material); err != nil {
		return nil, 0, fmt.Errorf("invalid key material: %w", err)
	}
	defer cryptoutils.Wipe(material.Encryption)

	if len(material.Signing) != ed25519.PrivateKeySize || len(material.Encryption) != 32 {
		return nil, 0, fmt.Errorf("invalid key material sizes for %s/%s", rec.Info.SubscriberID, rec.Info.UniqueKeyID)
	}

	kp := &KeyPair{
		info:           rec.Info,
		signingPrivate: ed25519.PrivateKey(material.Signing),
	}
	copy(kp.encryptionPrivate[:], material.Encryption)
	kp.info.Active = false
	return kp, rec.Seq, nil
}

func (s *KeyStore) load(ctx context.Context) error {
	names, err := s.backend.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list key records in %s: %w", s.backend.Name(), err)
	}

	var maxSeq uint64
	for _, name := range names {
		data, err := s.backend.Fetch(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to fetch key record %s: %w", name, err)
		}
		kp, seq, err := s.decodeRecord(data)
		if err != nil {
			return fmt.Errorf("key record %s: %w", name, err)
		}

		ref := keyRef{kp.SubscriberID(), kp.UniqueKeyID()}
		e := &entry{pair: kp, seq: seq}
		s.shardFor(ref).entries[ref] = e
		s.indexFor(ref.subscriberID).add(ref.subscriberID, e)
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	s.seq.Store(maxSeq)

	s.log.Info("Loaded key records", slog.Int("count", len(names)), slog.String("backend", s.backend.LocationURI()))
	return nil
}
