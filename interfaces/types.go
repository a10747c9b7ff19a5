// Package interfaces defines the core interfaces and types for the ONDC onboarding service.
// It provides the contract between different components without implementation details.
package interfaces

import (
	"fmt"
	"strings"
	"time"
)

// Environment selects which ONDC registry deployment a request targets.
type Environment string

const (
	Staging       Environment = "staging"
	PreProduction Environment = "preprod"
	Production    Environment = "prod"
)

// Environments lists every supported registry environment.
var Environments = []Environment{Staging, PreProduction, Production}

// ParseEnvironment normalizes the environment names accepted at the API boundary.
// An empty string selects staging.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "staging":
		return Staging, nil
	case "preprod", "pre-prod", "pre-production", "preproduction":
		return PreProduction, nil
	case "prod", "production":
		return Production, nil
	default:
		return "", fmt.Errorf("%w: unknown environment %q", ErrValidation, s)
	}
}

// OpsNo is the registry operation code of a subscription request.
type OpsNo int

const (
	// OpsBuyerApp registers a buyer application.
	OpsBuyerApp OpsNo = 1
	// OpsSellerApp registers a seller application.
	OpsSellerApp OpsNo = 2
	// OpsBuyerAndSellerApp registers a subscriber acting as both buyer and seller.
	OpsBuyerAndSellerApp OpsNo = 3
	// OpsSellerMSN registers a seller application on behalf of a marketplace seller node.
	OpsSellerMSN OpsNo = 4
	// OpsBuyerAndSellerMSN registers buyer and MSN seller applications.
	OpsBuyerAndSellerMSN OpsNo = 5
)

// Valid reports whether the operation code is one the registry accepts.
func (o OpsNo) Valid() bool {
	return o >= OpsBuyerApp && o <= OpsBuyerAndSellerMSN
}

func (o OpsNo) String() string {
	switch o {
	case OpsBuyerApp:
		return "buyer-app"
	case OpsSellerApp:
		return "seller-app"
	case OpsBuyerAndSellerApp:
		return "buyer-and-seller-app"
	case OpsSellerMSN:
		return "seller-msn"
	case OpsBuyerAndSellerMSN:
		return "buyer-and-seller-msn"
	default:
		return fmt.Sprintf("ops-%d", int(o))
	}
}

// KeyInfo is the public view of a subscriber key pair. It is the only
// representation of key material that crosses the key store boundary.
type KeyInfo struct {
	SubscriberID        string    `json:"subscriberId"`
	UniqueKeyID         string    `json:"uniqueKeyId"`
	SigningPublicKey    string    `json:"signingPublicKey"`
	EncryptionPublicKey string    `json:"encryptionPublicKey"`
	CreatedAt           time.Time `json:"createdAt"`
	ValidFrom           time.Time `json:"validFrom"`
	ValidUntil          time.Time `json:"validUntil"`
	Active              bool      `json:"active"`
}

// VerificationArtifact is the self-signed proof the registry inspects before
// trusting the subscriber's public keys. It is rebuilt for every request.
type VerificationArtifact struct {
	SubscriberID          string    `json:"subscriberId"`
	UniqueKeyID           string    `json:"uniqueKeyId"`
	RequestID             string    `json:"requestId"`
	SignedUniqueRequestID string    `json:"signedUniqueRequestId"`
	SigningPublicKey      string    `json:"signingPublicKey"`
	EncryptionPublicKey   string    `json:"encryptionPublicKey"`
	ValidFrom             time.Time `json:"validFrom"`
	ValidUntil            time.Time `json:"validUntil"`
}

// EntityData holds the legal and business identity of the subscriber.
type EntityData struct {
	LegalEntityName            string   `json:"legalEntityName"`
	BusinessAddress            string   `json:"businessAddress"`
	CityCodes                  []string `json:"cityCodes"`
	GSTNo                      string   `json:"gstNo"`
	PANName                    string   `json:"panName"`
	PANNo                      string   `json:"panNo"`
	DateOfIncorporation        string   `json:"dateOfIncorporation"`
	AuthorisedSignatoryName    string   `json:"authorisedSignatoryName"`
	AuthorisedSignatoryAddress string   `json:"authorisedSignatoryAddress"`
	EmailID                    string   `json:"emailId"`
	MobileNo                   string   `json:"mobileNo"`
	Country                    string   `json:"country"`
}

// NetworkParticipant describes one role the subscriber plays on the network.
type NetworkParticipant struct {
	Type          string   `json:"type"`
	MSN           bool     `json:"msn"`
	CityCodes     []string `json:"cityCodes"`
	SubscriberURL string   `json:"subscriberUrl"`
	Domain        string   `json:"domain"`
}

// SubscriptionRequest is a registry subscription ("ops") request prior to signing.
type SubscriptionRequest struct {
	OpsNo               OpsNo                `json:"opsNo"`
	SubscriberID        string               `json:"subscriberId"`
	UniqueKeyID         string               `json:"uniqueKeyId"`
	Environment         Environment          `json:"environment"`
	EntityData          EntityData           `json:"entityData"`
	NetworkParticipants []NetworkParticipant `json:"networkParticipants"`
}

// SubscriptionState tracks a subscription attempt through its lifecycle.
type SubscriptionState string

const (
	StateInit     SubscriptionState = "INIT"
	StateBuilding SubscriptionState = "BUILDING"
	StateSigned   SubscriptionState = "SIGNED"
	StateSent     SubscriptionState = "SENT"
	StateAcked    SubscriptionState = "ACKED"
	StateRejected SubscriptionState = "REJECTED"
	StateTimedOut SubscriptionState = "TIMED_OUT"
	// StateVerified marks an acked subscription whose challenge callback was answered.
	StateVerified SubscriptionState = "VERIFIED"
)

// PendingSubscription joins a subscribe call with the asynchronous
// on_subscribe callback that later resolves it.
type PendingSubscription struct {
	SubscriberID string            `json:"subscriberId"`
	UniqueKeyID  string            `json:"uniqueKeyId"`
	Environment  Environment       `json:"environment"`
	RequestID    string            `json:"requestId"`
	OpsNo        OpsNo             `json:"opsNo"`
	State        SubscriptionState `json:"state"`
	SentAt       time.Time         `json:"sentAt"`
	ResolvedAt   *time.Time        `json:"resolvedAt,omitempty"`
	LastError    string            `json:"lastError,omitempty"`
}

// SubscribeAck is the registry acknowledgement of a subscribe call.
type SubscribeAck struct {
	Status string `json:"status"`
}

// LookupQuery is an unsigned directory query.
type LookupQuery struct {
	SubscriberID string `json:"subscriber_id,omitempty"`
	Country      string `json:"country,omitempty"`
	Domain       string `json:"domain,omitempty"`
	Type         string `json:"type,omitempty"`
	City         string `json:"city,omitempty"`
}

// SigningString is the pipe-joined form of the query signed in a vlookup.
func (q LookupQuery) SigningString() string {
	return strings.Join([]string{q.Country, q.Domain, q.Type, q.City, q.SubscriberID}, "|")
}

// VLookupQuery is a directory query signed by the requesting subscriber.
type VLookupQuery struct {
	SenderSubscriberID string      `json:"sender_subscriber_id"`
	RequestID          string      `json:"request_id"`
	Timestamp          string      `json:"timestamp"`
	Signature          string      `json:"signature"`
	SearchParameters   LookupQuery `json:"search_parameters"`
}

// ParticipantRecord is a registry directory entry.
type ParticipantRecord struct {
	SubscriberID        string `json:"subscriber_id"`
	UniqueKeyID         string `json:"ukId,omitempty"`
	BrID                string `json:"br_id,omitempty"`
	SubscriberURL       string `json:"subscriber_url,omitempty"`
	Country             string `json:"country,omitempty"`
	City                string `json:"city,omitempty"`
	Domain              string `json:"domain,omitempty"`
	Type                string `json:"type,omitempty"`
	SigningPublicKey    string `json:"signing_public_key,omitempty"`
	EncryptionPublicKey string `json:"encr_public_key,omitempty"`
	ValidFrom           string `json:"valid_from,omitempty"`
	ValidUntil          string `json:"valid_until,omitempty"`
	Status              string `json:"status,omitempty"`
	Created             string `json:"created,omitempty"`
	Updated             string `json:"updated,omitempty"`
}
