// Package registry is the HTTP client for the ONDC network registry.
//
// Client implements interfaces.RegistryClient for the staging, pre-production
// and production registries:
//
//   - Subscribe posts a signed subscription payload; the Authorization header
//     must cover exactly the posted bytes
//   - Lookup queries the participant directory without a signature
//   - VLookup queries the directory with a request signed by the sender
//
// Every call is a single attempt bounded by the configured timeout. Transport
// failures are returned as *interfaces.RegistryCallError wrapping
// interfaces.ErrNetwork, and also interfaces.ErrTimedOut when the deadline
// expired; non-2xx answers and NACKs
// as *interfaces.RegistryRejectedError carrying the registry body verbatim.
//
// The package also contains the registry wire payloads (SubscribePayload,
// OnSubscribeRequest), a testify MockRegistry and FakeRegistry, an
// in-process registry that verifies signatures and issues on_subscribe
// challenges for tests.
package registry
