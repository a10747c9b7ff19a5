package kms

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ruteri/ondc-onboarding-service/cryptoutils"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"github.com/ruteri/ondc-onboarding-service/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSubscriber = "tsp-seller.ondc.docboyz.in"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSeed(t *testing.T) []byte {
	seed := make([]byte, 32)
	_, err := rand.Read(seed)
	require.NoError(t, err)
	return seed
}

func TestGenerator_FreshKeysPerCall(t *testing.T) {
	gen := NewGenerator()

	a, err := gen.Generate(testSubscriber)
	require.NoError(t, err)
	b, err := gen.Generate(testSubscriber)
	require.NoError(t, err)

	assert.NotEqual(t, a.UniqueKeyID(), b.UniqueKeyID(), "every call yields a new key id")
	assert.NotEqual(t, a.Info().SigningPublicKey, b.Info().SigningPublicKey)
	assert.NotEqual(t, a.Info().EncryptionPublicKey, b.Info().EncryptionPublicKey)
	assert.True(t, a.Info().ValidUntil.After(a.Info().ValidFrom))

	_, err = gen.Generate("  ")
	assert.ErrorIs(t, err, interfaces.ErrValidation)
}

func TestGenerator_EntropyExhaustion(t *testing.T) {
	gen := NewGenerator().WithEntropy(strings.NewReader("not nearly enough entropy"))

	_, err := gen.Generate(testSubscriber)
	assert.ErrorIs(t, err, interfaces.ErrGeneration)
}

func TestKeyPair_SignatureVerifies(t *testing.T) {
	kp, err := NewGenerator().Generate(testSubscriber)
	require.NoError(t, err)
	other, err := NewGenerator().Generate(testSubscriber)
	require.NoError(t, err)

	msg := []byte("unique-request-id")
	sig := cryptoutils.SignMessage(kp, msg)

	pub, err := cryptoutils.ParseSigningPublicKey(kp.Info().SigningPublicKey)
	require.NoError(t, err)
	assert.NoError(t, cryptoutils.VerifyMessage(pub, msg, sig))

	otherPub, err := cryptoutils.ParseSigningPublicKey(other.Info().SigningPublicKey)
	require.NoError(t, err)
	assert.ErrorIs(t, cryptoutils.VerifyMessage(otherPub, msg, sig), cryptoutils.ErrInvalidSignature)
}

func TestKeyStore_GenerateThenGet(t *testing.T) {
	ctx := context.Background()
	store := NewKeyStore(testLogger())

	kp, err := NewGenerator().Generate(testSubscriber)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, kp))

	got, err := store.Get(ctx, testSubscriber, kp.UniqueKeyID())
	require.NoError(t, err)
	assert.Equal(t, kp.Info().SigningPublicKey, got.Info().SigningPublicKey)
	assert.Equal(t, kp.Info().EncryptionPublicKey, got.Info().EncryptionPublicKey)
	assert.True(t, got.Info().Active)

	_, err = store.Get(ctx, testSubscriber, "missing")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestKeyStore_PutConflict(t *testing.T) {
	ctx := context.Background()
	store := NewKeyStore(testLogger())

	kp, err := NewGenerator().Generate(testSubscriber)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, kp))
	assert.ErrorIs(t, store.Put(ctx, kp), interfaces.ErrConflict)
	assert.Equal(t, 1, store.Count())
}

func TestKeyStore_ConcurrentPutSamePair(t *testing.T) {
	ctx := context.Background()
	store := NewKeyStore(testLogger())

	kp, err := NewGenerator().Generate(testSubscriber)
	require.NoError(t, err)

	const workers = 16
	errs := make([]error, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = store.Put(ctx, kp)
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, interfaces.ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)
	assert.Len(t, store.List(ctx, testSubscriber), 1)
}

func TestKeyStore_ConcurrentUnrelatedKeys(t *testing.T) {
	ctx := context.Background()
	store := NewKeyStore(testLogger())
	gen := NewGenerator()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kp, err := gen.Generate(testSubscriber)
			if assert.NoError(t, err) {
				assert.NoError(t, store.Put(ctx, kp))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, store.Count())
}

func TestKeyStore_DeleteTwice(t *testing.T) {
	ctx := context.Background()
	store := NewKeyStore(testLogger())

	kp, err := NewGenerator().Generate(testSubscriber)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, kp))

	require.NoError(t, store.Delete(ctx, testSubscriber, kp.UniqueKeyID()))
	_, err = store.Get(ctx, testSubscriber, kp.UniqueKeyID())
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, testSubscriber, kp.UniqueKeyID()), interfaces.ErrNotFound)
}

func TestKeyStore_ListOrderAndActive(t *testing.T) {
	ctx := context.Background()
	store := NewKeyStore(testLogger())
	gen := NewGenerator()

	var ids []string
	for _, sub := range []string{testSubscriber, "buyer.example.com", testSubscriber} {
		kp, err := gen.Generate(sub)
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, kp))
		ids = append(ids, kp.UniqueKeyID())
	}

	all := store.List(ctx, "")
	require.Len(t, all, 3)
	for i, info := range all {
		assert.Equal(t, ids[i], info.UniqueKeyID, "insertion order")
	}
	assert.False(t, all[0].Active, "rotated out by the newer key")
	assert.True(t, all[1].Active)
	assert.True(t, all[2].Active)

	mine := store.List(ctx, testSubscriber)
	require.Len(t, mine, 2)

	active, err := store.Active(ctx, testSubscriber)
	require.NoError(t, err)
	assert.Equal(t, ids[2], active.UniqueKeyID())

	// Deleting the active key promotes the previous one.
	require.NoError(t, store.Delete(ctx, testSubscriber, ids[2]))
	active, err = store.Active(ctx, testSubscriber)
	require.NoError(t, err)
	assert.Equal(t, ids[0], active.UniqueKeyID())

	_, err = store.Active(ctx, "nobody.example.com")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	newestFirst := store.ForSubscriber(ctx, testSubscriber)
	require.Len(t, newestFirst, 1)
	assert.Equal(t, ids[0], newestFirst[0].UniqueKeyID())
}

func TestPersistentKeyStore_Rehydrates(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	seed := testSeed(t)

	backend, err := storage.NewFileBackend(dir, testLogger())
	require.NoError(t, err)
	sealer, err := NewSealer(seed)
	require.NoError(t, err)

	store, err := NewPersistentKeyStore(ctx, backend, sealer, testLogger())
	require.NoError(t, err)

	gen := NewGenerator()
	first, err := gen.Generate(testSubscriber)
	require.NoError(t, err)
	second, err := gen.Generate(testSubscriber)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, first))
	require.NoError(t, store.Put(ctx, second))

	reopened, err := NewPersistentKeyStore(ctx, backend, sealer, testLogger())
	require.NoError(t, err)

	infos := reopened.List(ctx, testSubscriber)
	require.Len(t, infos, 2)
	assert.Equal(t, first.UniqueKeyID(), infos[0].UniqueKeyID)
	assert.Equal(t, second.UniqueKeyID(), infos[1].UniqueKeyID)

	// Private keys survive the round trip: signatures still verify.
	got, err := reopened.Get(ctx, testSubscriber, first.UniqueKeyID())
	require.NoError(t, err)
	pub, err := cryptoutils.ParseSigningPublicKey(first.Info().SigningPublicKey)
	require.NoError(t, err)
	assert.NoError(t, cryptoutils.VerifyMessage(pub, []byte("m"), cryptoutils.SignMessage(got, []byte("m"))))

	// New keys continue the insertion sequence.
	third, err := gen.Generate(testSubscriber)
	require.NoError(t, err)
	require.NoError(t, reopened.Put(ctx, third))
	active, err := reopened.Active(ctx, testSubscriber)
	require.NoError(t, err)
	assert.Equal(t, third.UniqueKeyID(), active.UniqueKeyID())

	require.NoError(t, reopened.Delete(ctx, testSubscriber, first.UniqueKeyID()))
	names, err := backend.List(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 2)
}

func TestPersistentKeyStore_WrongSeed(t *testing.T) {
	ctx := context.Background()
	backend, err := storage.NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	sealer, err := NewSealer(testSeed(t))
	require.NoError(t, err)
	store, err := NewPersistentKeyStore(ctx, backend, sealer, testLogger())
	require.NoError(t, err)

	kp, err := NewGenerator().Generate(testSubscriber)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, kp))

	otherSealer, err := NewSealer(testSeed(t))
	require.NoError(t, err)
	_, err = NewPersistentKeyStore(ctx, backend, otherSealer, testLogger())
	assert.ErrorIs(t, err, ErrUnseal)
}

func TestSealer(t *testing.T) {
	_, err := NewSealer(make([]byte, 16))
	assert.Error(t, err, "short master seed")

	sealer, err := NewSealer(testSeed(t))
	require.NoError(t, err)

	sealed, err := sealer.Seal([]byte("secret"), []byte("a|b"))
	require.NoError(t, err)
	opened, err := sealer.Open(sealed, []byte("a|b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), opened)

	_, err = sealer.Open(sealed, []byte("a|c"))
	assert.ErrorIs(t, err, ErrUnseal, "associated data binds the record to its key id")
	_, err = sealer.Open(sealed[:5], []byte("a|b"))
	assert.ErrorIs(t, err, ErrUnseal)
}

// slowBackend blocks Store for records of one subscriber until release is closed.
type slowBackend struct {
	interfaces.StorageBackend
	subscriber string
	started    chan struct{}
	release    chan struct{}
}

func (b *slowBackend) Store(ctx context.Context, key string, data []byte) error {
	if strings.HasPrefix(key, b.subscriber+"/") {
		close(b.started)
		<-b.release
	}
	return b.StorageBackend.Store(ctx, key, data)
}

func TestPersistentKeyStore_SlowWriteDoesNotBlockOtherKeys(t *testing.T) {
	ctx := context.Background()
	files, err := storage.NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)
	backend := &slowBackend{
		StorageBackend: files,
		subscriber:     testSubscriber,
		started:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	sealer, err := NewSealer(testSeed(t))
	require.NoError(t, err)
	store, err := NewPersistentKeyStore(ctx, backend, sealer, testLogger())
	require.NoError(t, err)

	gen := NewGenerator()
	other, err := gen.Generate("other.example.com")
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, other))

	slow, err := gen.Generate(testSubscriber)
	require.NoError(t, err)
	putDone := make(chan error, 1)
	go func() { putDone <- store.Put(ctx, slow) }()
	<-backend.started

	reads := make(chan struct{})
	go func() {
		defer close(reads)
		got, err := store.Get(ctx, "other.example.com", other.UniqueKeyID())
		assert.NoError(t, err)
		assert.True(t, got.Info().Active)
		_, err = store.Active(ctx, "other.example.com")
		assert.NoError(t, err)
		assert.Len(t, store.List(ctx, ""), 1)
		assert.Equal(t, 1, store.Count())
	}()

	select {
	case <-reads:
	case <-time.After(2 * time.Second):
		close(backend.release)
		t.Fatal("reads of an unrelated subscriber waited on a pending backend write")
	}

	// A concurrent Put of the pair being written waits for the first one.
	dup := make(chan error, 1)
	go func() { dup <- store.Put(ctx, slow) }()

	close(backend.release)
	require.NoError(t, <-putDone)
	assert.ErrorIs(t, <-dup, interfaces.ErrConflict)

	active, err := store.Active(ctx, testSubscriber)
	require.NoError(t, err)
	assert.Equal(t, slow.UniqueKeyID(), active.UniqueKeyID())
}
