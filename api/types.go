package api

import (
	"encoding/json"
	"time"

	"github.com/ruteri/ondc-onboarding-service/interfaces"
)

// EnvironmentHeader selects the registry environment of an on_subscribe callback.
const EnvironmentHeader = "X-Environment"

// Response is the envelope of every JSON response of the service.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
	// Answer repeats the challenge answer at the top level, where the
	// registry reads it from on_subscribe responses.
	Answer string `json:"answer,omitempty"`
}

// Error codes carried in failed responses.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeDecryption   = "DECRYPTION_FAILED"
	CodeRejected     = "REGISTRY_REJECTED"
	CodeTimedOut     = "REGISTRY_TIMEOUT"
	CodeNetwork      = "REGISTRY_UNREACHABLE"
	CodeInternal     = "INTERNAL_ERROR"
	CodeNotAvailable = "NOT_AVAILABLE"
)

type GenerateKeysRequest struct {
	SubscriberID string `json:"subscriberId"`
}

// GenerateKeysResponse is the public part of a freshly issued key pair.
type GenerateKeysResponse struct {
	SubscriberID        string    `json:"subscriberId"`
	UniqueKeyID         string    `json:"uniqueKeyId"`
	SigningPublicKey    string    `json:"signingPublicKey"`
	EncryptionPublicKey string    `json:"encryptionPublicKey"`
	ValidFrom           time.Time `json:"validFrom"`
	ValidUntil          time.Time `json:"validUntil"`
}

type GenerateVerificationRequest struct {
	SubscriberID string `json:"subscriberId"`
	UniqueKeyID  string `json:"uniqueKeyId"`
}

// GenerateVerificationResponse carries the signed request id and the
// rendered ondc-site-verification.html document.
type GenerateVerificationResponse struct {
	interfaces.VerificationArtifact
	HTML string `json:"html"`
}

// SubscribeResponse reports an accepted subscription.
type SubscribeResponse struct {
	Status       string                 `json:"status"`
	SubscriberID string                 `json:"subscriberId"`
	UniqueKeyID  string                 `json:"uniqueKeyId"`
	Environment  interfaces.Environment `json:"environment"`
	RequestID    string                 `json:"requestId"`
}

// SubscribeStatusAcked is the status of a subscription the registry accepted.
const SubscribeStatusAcked = "acked"

// LookupRequest is the body of /ondc/lookup.
type LookupRequest struct {
	SearchParams interfaces.LookupQuery `json:"searchParams"`
	Environment  string                 `json:"environment"`
}

// VLookupRequest is the body of /ondc/vlookup. SearchParams is either a bare
// LookupQuery or a VLookupSearch naming the sender; the service signs it.
type VLookupRequest struct {
	SearchParams json.RawMessage `json:"searchParams"`
	Environment  string          `json:"environment"`
	UniqueKeyID  string          `json:"uniqueKeyId,omitempty"`
}

// VLookupSearch is the sender-qualified form of vlookup search parameters.
// Any request id, timestamp or signature supplied by the caller is replaced.
type VLookupSearch struct {
	SenderSubscriberID string                  `json:"sender_subscriber_id"`
	SearchParameters   *interfaces.LookupQuery `json:"search_parameters"`
}

// CallbackResponse answers an on_subscribe challenge.
type CallbackResponse struct {
	Answer string `json:"answer"`
}

type DeleteKeyResponse struct {
	SubscriberID string `json:"subscriberId"`
	UniqueKeyID  string `json:"uniqueKeyId"`
	Deleted      bool   `json:"deleted"`
}

// StatusResponse describes the running service.
type StatusResponse struct {
	SubscriberID   string                            `json:"subscriberId,omitempty"`
	Environments   map[interfaces.Environment]string `json:"environments"`
	KeyCount       int                               `json:"keyCount"`
	StorageBackend string                            `json:"storageBackend,omitempty"`
	Pending        []interfaces.PendingSubscription  `json:"pendingSubscriptions"`
	Version        string                            `json:"version"`
}

// ServiceInfo is returned by the root endpoint.
type ServiceInfo struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime"`
}
