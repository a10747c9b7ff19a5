// Package onboarding implements the subscriber side of ONDC registry
// onboarding: issuing key pairs, building site verification artifacts,
// sending signed subscription requests, answering the registry's
// on_subscribe challenge and querying the participant directory.
//
// The Orchestrator tracks each subscription attempt per environment and
// subscriber through INIT, BUILDING, SIGNED, SENT and then ACKED, REJECTED
// or TIMED_OUT. An acked attempt becomes VERIFIED once its challenge has
// been answered.
package onboarding
