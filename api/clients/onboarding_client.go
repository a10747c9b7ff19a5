package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ruteri/ondc-onboarding-service/api"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
)

// OnboardingProvider is the client side of the onboarding API.
type OnboardingProvider interface {
	GenerateKeys(ctx context.Context, subscriberID string) (*api.GenerateKeysResponse, error)
	GenerateVerification(ctx context.Context, subscriberID, uniqueKeyID string) (*api.GenerateVerificationResponse, error)
	Subscribe(ctx context.Context, req interfaces.SubscriptionRequest) (*api.SubscribeResponse, error)
	Lookup(ctx context.Context, env interfaces.Environment, query interfaces.LookupQuery) ([]interfaces.ParticipantRecord, error)
	VLookup(ctx context.Context, env interfaces.Environment, sender string, query interfaces.LookupQuery) ([]interfaces.ParticipantRecord, error)
	ListKeys(ctx context.Context, subscriberID string) ([]interfaces.KeyInfo, error)
	GetKey(ctx context.Context, subscriberID, uniqueKeyID string) (*interfaces.KeyInfo, error)
	DeleteKey(ctx context.Context, subscriberID, uniqueKeyID string) error
	Status(ctx context.Context) (*api.StatusResponse, error)
}

// APIError is a failed envelope returned by the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("onboarding service returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// OnboardingClient talks to an onboarding service over HTTP.
type OnboardingClient struct {
	baseURL    string
	httpClient *http.Client
}

var _ OnboardingProvider = (*OnboardingClient)(nil)

// NewOnboardingClient creates a client for the service at baseURL.
// Subscription calls wait for the registry, so timeout should exceed the
// service's registry timeout.
func NewOnboardingClient(baseURL string, timeout time.Duration) *OnboardingClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OnboardingClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *OnboardingClient) GenerateKeys(ctx context.Context, subscriberID string) (*api.GenerateKeysResponse, error) {
	var out api.GenerateKeysResponse
	err := c.call(ctx, http.MethodPost, "/ondc/generate-keys", api.GenerateKeysRequest{SubscriberID: subscriberID}, &out)
	return &out, err
}

func (c *OnboardingClient) GenerateVerification(ctx context.Context, subscriberID, uniqueKeyID string) (*api.GenerateVerificationResponse, error) {
	var out api.GenerateVerificationResponse
	err := c.call(ctx, http.MethodPost, "/ondc/generate-verification", api.GenerateVerificationRequest{
		SubscriberID: subscriberID,
		UniqueKeyID:  uniqueKeyID,
	}, &out)
	return &out, err
}

func (c *OnboardingClient) Subscribe(ctx context.Context, req interfaces.SubscriptionRequest) (*api.SubscribeResponse, error) {
	var out api.SubscribeResponse
	err := c.call(ctx, http.MethodPost, "/ondc/subscribe", req, &out)
	return &out, err
}

func (c *OnboardingClient) Lookup(ctx context.Context, env interfaces.Environment, query interfaces.LookupQuery) ([]interfaces.ParticipantRecord, error) {
	var out []interfaces.ParticipantRecord
	err := c.call(ctx, http.MethodPost, "/ondc/lookup", api.LookupRequest{SearchParams: query, Environment: string(env)}, &out)
	return out, err
}

// VLookup asks the service to sign query on behalf of sender. An empty
// sender uses the service's own subscriber id.
func (c *OnboardingClient) VLookup(ctx context.Context, env interfaces.Environment, sender string, query interfaces.LookupQuery) ([]interfaces.ParticipantRecord, error) {
	params, err := json.Marshal(api.VLookupSearch{SenderSubscriberID: sender, SearchParameters: &query})
	if err != nil {
		return nil, err
	}

	var out []interfaces.ParticipantRecord
	err = c.call(ctx, http.MethodPost, "/ondc/vlookup", api.VLookupRequest{SearchParams: params, Environment: string(env)}, &out)
	return out, err
}

func (c *OnboardingClient) ListKeys(ctx context.Context, subscriberID string) ([]interfaces.KeyInfo, error) {
	path := "/ondc/keys"
	if subscriberID != "" {
		path += "?subscriberId=" + url.QueryEscape(subscriberID)
	}
	var out []interfaces.KeyInfo
	err := c.call(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *OnboardingClient) GetKey(ctx context.Context, subscriberID, uniqueKeyID string) (*interfaces.KeyInfo, error) {
	var out interfaces.KeyInfo
	err := c.call(ctx, http.MethodGet, keyPath(subscriberID, uniqueKeyID), nil, &out)
	return &out, err
}

func (c *OnboardingClient) DeleteKey(ctx context.Context, subscriberID, uniqueKeyID string) error {
	return c.call(ctx, http.MethodDelete, keyPath(subscriberID, uniqueKeyID), nil, nil)
}

func (c *OnboardingClient) Status(ctx context.Context) (*api.StatusResponse, error) {
	var out api.StatusResponse
	err := c.call(ctx, http.MethodGet, "/ondc/status", nil, &out)
	return &out, err
}

func keyPath(subscriberID, uniqueKeyID string) string {
	return "/ondc/keys/" + url.PathEscape(subscriberID) + "/" + url.PathEscape(uniqueKeyID)
}

// call sends body as JSON and decodes the envelope's data into out.
func (c *OnboardingClient) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	var envelope api.Response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to parse %s response (status %d): %w", path, resp.StatusCode, err)
	}
	if !envelope.Success || resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Code: envelope.Code, Message: envelope.Error}
	}

	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", path, err)
	}
	return nil
}
