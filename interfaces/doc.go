// Package interfaces defines the core interfaces and types for the ONDC
// onboarding service, separating interface definitions from implementations.
//
// # Registry Interfaces
//
// RegistryClient: Sends signed subscribe requests and lookup/vlookup queries to
// the registry of a given environment (staging, preprod, prod).
//
// DomainChecker: Confirms a subscriber id resolves in DNS before a subscription
// is signed.
//
// # Storage Interfaces
//
// StorageBackend: Persists sealed key records by name across backend types
// (file, S3, Vault, Redis).
//
// # Types
//
//   - KeyInfo: public view of a subscriber key pair
//   - VerificationArtifact: signed unique request id used for site verification
//   - SubscriptionRequest / PendingSubscription: registry subscription lifecycle
//   - LookupQuery / VLookupQuery / ParticipantRecord: directory queries
//
// # Errors
//
// Sentinel errors (ErrNotFound, ErrConflict, ErrDecryption, ErrNetwork,
// ErrTimedOut, ErrValidation, ErrGeneration) are wrapped by implementations
// and matched with errors.Is at the API boundary. RegistryCallError and
// RegistryRejectedError carry registry call context.
package interfaces
