package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"github.com/ruteri/ondc-onboarding-service/metrics"
)

// Registry endpoints relative to the environment base URL.
const (
	SubscribePath = "/subscribe"
	LookupPath    = "/lookup"
	VLookupPath   = "/vlookup"
)

// DefaultTimeout bounds every registry call.
const DefaultTimeout = 10 * time.Second

const maxResponseSize = 4 * 1024 * 1024

// DefaultBaseURLs are the public registry deployments.
var DefaultBaseURLs = map[interfaces.Environment]string{
	interfaces.Staging:       "https://staging.registry.ondc.org",
	interfaces.PreProduction: "https://preprod.registry.ondc.org/ondc",
	interfaces.Production:    "https://prod.registry.ondc.org",
}

// DefaultEncryptionPublicKeys are the X25519 keys the registries encrypt
// on_subscribe challenges with, base64 DER SubjectPublicKeyInfo.
var DefaultEncryptionPublicKeys = map[interfaces.Environment]string{
	interfaces.Staging:       "MCowBQYDK2VuAyEAduMuZgmtpjdCuxv+Nc49K0cB6tL/Dj3HZetvVN7ZekM=",
	interfaces.PreProduction: "MCowBQYDK2VuAyEAa9Wbpvd9SsrpOZFcynyt/TO3x0Yrqyys4NUGIvyxX2Q=",
	interfaces.Production:    "MCowBQYDK2VuAyEAvVEyZY91O2yV8w8/CAwVDAnqIZDJJUPdLUUKwLo3K0M=",
}

// Config configures a Client. Missing base URLs fall back to DefaultBaseURLs.
type Config struct {
	BaseURLs   map[interfaces.Environment]string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements interfaces.RegistryClient over HTTP. Every call gets a
// single attempt bounded by the configured timeout.
type Client struct {
	baseURLs   map[interfaces.Environment]string
	timeout    time.Duration
	httpClient *http.Client
	metrics    *metrics.Metrics
	log        *slog.Logger
}

var _ interfaces.RegistryClient = (*Client)(nil)

// NewClient creates a registry client. m may be nil.
func NewClient(cfg Config, log *slog.Logger, m *metrics.Metrics) *Client {
	baseURLs := make(map[interfaces.Environment]string, len(DefaultBaseURLs))
	for env, u := range DefaultBaseURLs {
		baseURLs[env] = u
	}
	for env, u := range cfg.BaseURLs {
		if u != "" {
			baseURLs[env] = strings.TrimSuffix(u, "/")
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURLs:   baseURLs,
		timeout:    timeout,
		httpClient: httpClient,
		metrics:    m,
		log:        log,
	}
}

// BaseURL returns the registry base URL of env.
func (c *Client) BaseURL(env interfaces.Environment) (string, bool) {
	u, ok := c.baseURLs[env]
	return u, ok
}

// Subscribe posts a signed subscribe body. A 2xx response whose ack status
// is not ACK is reported as a rejection.
func (c *Client) Subscribe(ctx context.Context, env interfaces.Environment, body []byte, authorization string) (*interfaces.SubscribeAck, error) {
	status, respBody, err := c.post(ctx, env, SubscribePath, body, authorization)
	if err != nil {
		return nil, err
	}

	var ack ackResponse
	if err := json.Unmarshal(respBody, &ack); err != nil || ack.Message.Ack.Status != AckStatus {
		return nil, &interfaces.RegistryRejectedError{
			Endpoint:    SubscribePath,
			Environment: env,
			StatusCode:  status,
			Body:        respBody,
		}
	}

	return &interfaces.SubscribeAck{Status: ack.Message.Ack.Status}, nil
}

// Lookup performs an unsigned directory query. An empty result is not an error.
func (c *Client) Lookup(ctx context.Context, env interfaces.Environment, query interfaces.LookupQuery) ([]interfaces.ParticipantRecord, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrValidation, err)
	}
	return c.directoryCall(ctx, env, LookupPath, body)
}

// VLookup performs a signed directory query.
func (c *Client) VLookup(ctx context.Context, env interfaces.Environment, query interfaces.VLookupQuery) ([]interfaces.ParticipantRecord, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrValidation, err)
	}
	return c.directoryCall(ctx, env, VLookupPath, body)
}

func (c *Client) directoryCall(ctx context.Context, env interfaces.Environment, endpoint string, body []byte) ([]interfaces.ParticipantRecord, error) {
	status, respBody, err := c.post(ctx, env, endpoint, body, "")
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(respBody)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []interfaces.ParticipantRecord{}, nil
	}

	// The registry answers queries with a bare array and errors with an object.
	if trimmed[0] != '[' {
		return nil, &interfaces.RegistryRejectedError{Endpoint: endpoint, Environment: env, StatusCode: status, Body: respBody}
	}

	records := []interfaces.ParticipantRecord{}
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, &interfaces.RegistryRejectedError{Endpoint: endpoint, Environment: env, StatusCode: status, Body: respBody}
	}
	return records, nil
}

// post sends body to endpoint and returns the status and body of a 2xx
// response. Transport failures become *interfaces.RegistryCallError, non-2xx
// responses *interfaces.RegistryRejectedError.
func (c *Client) post(ctx context.Context, env interfaces.Environment, endpoint string, body []byte, authorization string) (int, []byte, error) {
	baseURL, ok := c.baseURLs[env]
	if !ok {
		return 0, nil, fmt.Errorf("%w: no registry configured for environment %q", interfaces.ErrValidation, env)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", interfaces.ErrValidation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, c.callError(ctx, env, endpoint, start, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, c.callError(ctx, env, endpoint, start, err)
	}
	elapsed := time.Since(start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.ObserveRegistryCall(endpoint, string(env), "rejected", elapsed)
		c.log.Warn("Registry rejected request",
			slog.String("endpoint", endpoint),
			slog.String("environment", string(env)),
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", elapsed))
		return resp.StatusCode, nil, &interfaces.RegistryRejectedError{
			Endpoint:    endpoint,
			Environment: env,
			StatusCode:  resp.StatusCode,
			Body:        respBody,
		}
	}

	c.metrics.ObserveRegistryCall(endpoint, string(env), "ok", elapsed)
	c.log.Debug("Registry call completed",
		slog.String("endpoint", endpoint),
		slog.String("environment", string(env)),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", elapsed))
	return resp.StatusCode, respBody, nil
}

func (c *Client) callError(ctx context.Context, env interfaces.Environment, endpoint string, start time.Time, err error) error {
	elapsed := time.Since(start)

	// A timeout is a transport failure too: it matches both sentinels.
	wrapped, outcome := fmt.Errorf("%w: %v", interfaces.ErrNetwork, err), "network"
	var netErr net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		wrapped = fmt.Errorf("%w: %w: %v", interfaces.ErrNetwork, interfaces.ErrTimedOut, err)
		outcome = "timeout"
	}

	c.metrics.ObserveRegistryCall(endpoint, string(env), outcome, elapsed)
	c.log.Warn("Registry call failed",
		slog.String("endpoint", endpoint),
		slog.String("environment", string(env)),
		slog.Duration("duration", elapsed),
		"err", err)

	return &interfaces.RegistryCallError{
		Endpoint:    endpoint,
		Environment: env,
		Elapsed:     elapsed,
		Err:         wrapped,
	}
}
