/*
Package kms manages subscriber key material for the ONDC onboarding service.

# Key Generation

Generator produces, per call, a fresh Ed25519 signing key pair, a fresh X25519
encryption key pair and a new random unique key id. Public keys are encoded the
way the registry expects them: raw base64 for the signing key, base64 DER
SubjectPublicKeyInfo for the encryption key. Nothing is persisted by the
generator; callers hand the result to a KeyStore.

# Key Store

KeyStore maps (subscriberId, uniqueKeyId) to a KeyPair:

  - Put fails with interfaces.ErrConflict on duplicates
  - Get and Delete fail with interfaces.ErrNotFound when the pair is absent
  - List returns public KeyInfo only, in insertion order
  - Active returns the newest key of a subscriber

Entries are spread over a fixed set of shards, each guarded by its own lock, so
operations on one pair are linearizable while unrelated pairs do not contend on
a process-wide lock. A second set of shards, keyed by subscriber, orders each
subscriber's keys and answers Active without visiting other shards. Shard
locks are released while a backend write is in flight; later operations on
the same pair wait for it to finish.

# Private Key Boundary

KeyPair keeps both private keys unexported. Other packages can sign with a key
pair and derive X25519 shared secrets from it, but cannot read the private keys.

# Persistence

NewPersistentKeyStore writes every Put and Delete through to an
interfaces.StorageBackend. Before a record is written its private keys are
sealed with XChaCha20-Poly1305 under a key derived by HKDF-SHA256 from the
configured master seed; the subscriber and key id are bound as associated data.
On start the store is rehydrated from the backend in the original insertion order.
*/
package kms
