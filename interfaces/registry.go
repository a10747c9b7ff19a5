package interfaces

import "context"

// RegistryClient talks to the ONDC registry of a given environment.
// Implementations apply a hard deadline to every call and never retry.
type RegistryClient interface {
	// Subscribe posts an already signed subscribe body. The authorization
	// header must have been computed over exactly these bytes.
	Subscribe(ctx context.Context, env Environment, body []byte, authorization string) (*SubscribeAck, error)

	// Lookup performs an unsigned directory query.
	Lookup(ctx context.Context, env Environment, query LookupQuery) ([]ParticipantRecord, error)

	// VLookup performs a directory query signed by the sender.
	VLookup(ctx context.Context, env Environment, query VLookupQuery) ([]ParticipantRecord, error)
}

// DomainChecker verifies that a subscriber id names a resolvable domain.
type DomainChecker interface {
	CheckDomain(ctx context.Context, domain string) error
}
