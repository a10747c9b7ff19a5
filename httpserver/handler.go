package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/ondc-onboarding-service/api"
	"github.com/ruteri/ondc-onboarding-service/common"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"github.com/ruteri/ondc-onboarding-service/kms"
	"github.com/ruteri/ondc-onboarding-service/onboarding"
	"github.com/ruteri/ondc-onboarding-service/registry"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// HandlerConfig describes the deployment the handler reports in /ondc/status.
type HandlerConfig struct {
	// SubscriberID is the service's own subscriber id. It signs vlookup
	// queries that do not name a sender.
	SubscriberID   string
	RegistryURLs   map[interfaces.Environment]string
	StorageBackend string
}

// Handler serves the onboarding API.
type Handler struct {
	keys         *kms.KeyStore
	issuer       *onboarding.KeyIssuer
	verification *onboarding.VerificationBuilder
	orchestrator *onboarding.Orchestrator
	directory    *onboarding.Directory
	cfg          HandlerConfig
	started      time.Time
	log          *slog.Logger
}

// NewHandler creates the API handler.
func NewHandler(
	keys *kms.KeyStore,
	issuer *onboarding.KeyIssuer,
	verification *onboarding.VerificationBuilder,
	orchestrator *onboarding.Orchestrator,
	directory *onboarding.Directory,
	cfg HandlerConfig,
	log *slog.Logger,
) *Handler {
	return &Handler{
		keys:         keys,
		issuer:       issuer,
		verification: verification,
		orchestrator: orchestrator,
		directory:    directory,
		cfg:          cfg,
		started:      time.Now(),
		log:          log,
	}
}

// RegisterRoutes mounts the onboarding endpoints on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleRoot)
	r.Get("/health", h.HandleHealth)
	r.Get("/ondc/status", h.HandleStatus)
	r.Get("/"+onboarding.VerificationFileName, h.HandleVerificationFile)

	r.Post("/ondc/generate-keys", h.HandleGenerateKeys)
	r.Post("/ondc/generate-verification", h.HandleGenerateVerification)
	r.Post("/ondc/subscribe", h.HandleSubscribe)
	r.Post("/ondc/callback/on_subscribe", h.HandleOnSubscribe)
	r.Post("/ondc/lookup", h.HandleLookup)
	r.Post("/ondc/vlookup", h.HandleVLookup)

	r.Get("/ondc/keys", h.HandleListKeys)
	r.Get("/ondc/keys/{subscriber_id}/{unique_key_id}", h.HandleGetKey)
	r.Delete("/ondc/keys/{subscriber_id}/{unique_key_id}", h.HandleDeleteKey)
}

var endpoints = map[string]string{
	"GET /":                                          "service info",
	"GET /health":                                    "health check",
	"GET /ondc/status":                               "service status",
	"GET /" + onboarding.VerificationFileName:        "site verification file",
	"POST /ondc/generate-keys":                       "issue signing and encryption keys",
	"POST /ondc/generate-verification":               "sign a verification request id",
	"POST /ondc/subscribe":                           "subscribe with the registry",
	"POST /ondc/callback/on_subscribe":               "registry challenge callback",
	"POST /ondc/lookup":                              "registry lookup",
	"POST /ondc/vlookup":                             "signed registry lookup",
	"GET /ondc/keys":                                 "list keys",
	"GET /ondc/keys/{subscriberId}/{uniqueKeyId}":    "key metadata",
	"DELETE /ondc/keys/{subscriberId}/{uniqueKeyId}": "delete a key",
}

func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, api.ServiceInfo{
		Service:   common.PackageName,
		Version:   common.Version,
		Endpoints: endpoints,
	}, "ONDC onboarding service")
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, api.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}, "")
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeData(w, http.StatusOK, api.StatusResponse{
		SubscriberID:   h.cfg.SubscriberID,
		Environments:   h.cfg.RegistryURLs,
		KeyCount:       h.keys.Count(),
		StorageBackend: h.cfg.StorageBackend,
		Pending:        h.orchestrator.ListPending(),
		Version:        common.Version,
	}, "")
}

// HandleVerificationFile serves the most recently built verification file.
func (h *Handler) HandleVerificationFile(w http.ResponseWriter, r *http.Request) {
	html, ok := h.verification.LastHTML()
	if !ok {
		h.writeFailure(w, http.StatusNotFound, api.CodeNotAvailable, "no verification file has been generated yet")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, html)
}

func (h *Handler) HandleGenerateKeys(w http.ResponseWriter, r *http.Request) {
	var req api.GenerateKeysRequest
	if !h.decode(w, r, &req) {
		return
	}

	info, err := h.issuer.Issue(r.Context(), req.SubscriberID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, api.GenerateKeysResponse{
		SubscriberID:        info.SubscriberID,
		UniqueKeyID:         info.UniqueKeyID,
		SigningPublicKey:    info.SigningPublicKey,
		EncryptionPublicKey: info.EncryptionPublicKey,
		ValidFrom:           info.ValidFrom,
		ValidUntil:          info.ValidUntil,
	}, "keys generated")
}

func (h *Handler) HandleGenerateVerification(w http.ResponseWriter, r *http.Request) {
	var req api.GenerateVerificationRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.SubscriberID == "" || req.UniqueKeyID == "" {
		h.writeError(w, fmt.Errorf("%w: subscriberId and uniqueKeyId are required", interfaces.ErrValidation))
		return
	}

	artifact, err := h.verification.Build(r.Context(), req.SubscriberID, req.UniqueKeyID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	html, err := onboarding.RenderHTML(artifact)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, api.GenerateVerificationResponse{
		VerificationArtifact: *artifact,
		HTML:                 html,
	}, "verification generated")
}

func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req interfaces.SubscriptionRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.orchestrator.Subscribe(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeData(w, http.StatusOK, api.SubscribeResponse{
		Status:       api.SubscribeStatusAcked,
		SubscriberID: result.SubscriberID,
		UniqueKeyID:  result.UniqueKeyID,
		Environment:  result.Environment,
		RequestID:    result.RequestID,
	}, "subscription acknowledged, awaiting on_subscribe challenge")
}

// HandleOnSubscribe answers the registry's challenge. Undecryptable
// challenges are answered with a non-2xx status and no plaintext.
func (h *Handler) HandleOnSubscribe(w http.ResponseWriter, r *http.Request) {
	env, err := interfaces.ParseEnvironment(r.Header.Get(api.EnvironmentHeader))
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req registry.OnSubscribeRequest
	if !h.decode(w, r, &req) {
		return
	}

	answer, err := h.orchestrator.HandleCallback(r.Context(), env, req.SubscriberID, req.Challenge)
	if err != nil {
		h.writeError(w, err)
		return
	}

	data, err := json.Marshal(api.CallbackResponse{Answer: answer})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.Response{Success: true, Data: data, Answer: answer})
}

func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	var req api.LookupRequest
	if !h.decode(w, r, &req) {
		return
	}
	env, err := interfaces.ParseEnvironment(req.Environment)
	if err != nil {
		h.writeError(w, err)
		return
	}

	records, err := h.directory.Lookup(r.Context(), env, req.SearchParams)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeRecords(w, env, records)
}

// HandleVLookup signs the search parameters with the sender's key (the
// service's own subscriber id unless the request names one) and forwards them.
func (h *Handler) HandleVLookup(w http.ResponseWriter, r *http.Request) {
	var req api.VLookupRequest
	if !h.decode(w, r, &req) {
		return
	}
	env, err := interfaces.ParseEnvironment(req.Environment)
	if err != nil {
		h.writeError(w, err)
		return
	}

	sender, params, err := parseVLookupSearch(req.SearchParams)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if sender == "" {
		sender = h.cfg.SubscriberID
	}
	if sender == "" {
		h.writeError(w, fmt.Errorf("%w: sender_subscriber_id is required", interfaces.ErrValidation))
		return
	}

	records, err := h.directory.VLookup(r.Context(), env, sender, req.UniqueKeyID, params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeRecords(w, env, records)
}

// writeRecords answers lookups with the bare record list as data.
func (h *Handler) writeRecords(w http.ResponseWriter, env interfaces.Environment, records []interfaces.ParticipantRecord) {
	if records == nil {
		records = []interfaces.ParticipantRecord{}
	}
	h.writeData(w, http.StatusOK, records, fmt.Sprintf("Found %d records in %s", len(records), env))
}

func parseVLookupSearch(raw json.RawMessage) (string, interfaces.LookupQuery, error) {
	if len(raw) == 0 {
		return "", interfaces.LookupQuery{}, fmt.Errorf("%w: searchParams is required", interfaces.ErrValidation)
	}

	var search api.VLookupSearch
	if err := json.Unmarshal(raw, &search); err != nil {
		return "", interfaces.LookupQuery{}, fmt.Errorf("%w: searchParams: %v", interfaces.ErrValidation, err)
	}
	if search.SearchParameters != nil {
		return search.SenderSubscriberID, *search.SearchParameters, nil
	}

	var params interfaces.LookupQuery
	if err := json.Unmarshal(raw, &params); err != nil {
		return "", interfaces.LookupQuery{}, fmt.Errorf("%w: searchParams: %v", interfaces.ErrValidation, err)
	}
	return search.SenderSubscriberID, params, nil
}

func (h *Handler) HandleListKeys(w http.ResponseWriter, r *http.Request) {
	keys := h.keys.List(r.Context(), r.URL.Query().Get("subscriberId"))
	h.writeData(w, http.StatusOK, keys, fmt.Sprintf("Found %d key pairs", len(keys)))
}

func (h *Handler) HandleGetKey(w http.ResponseWriter, r *http.Request) {
	kp, err := h.keys.Get(r.Context(), chi.URLParam(r, "subscriber_id"), chi.URLParam(r, "unique_key_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeData(w, http.StatusOK, kp.Info(), "")
}

func (h *Handler) HandleDeleteKey(w http.ResponseWriter, r *http.Request) {
	sid, kid := chi.URLParam(r, "subscriber_id"), chi.URLParam(r, "unique_key_id")
	if err := h.keys.Delete(r.Context(), sid, kid); err != nil {
		h.writeError(w, err)
		return
	}
	h.log.Info("Deleted key pair", slog.String("subscriberId", sid), slog.String("uniqueKeyId", kid))
	h.writeData(w, http.StatusOK, api.DeleteKeyResponse{SubscriberID: sid, UniqueKeyID: kid, Deleted: true}, "key deleted")
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid request body: %v", interfaces.ErrValidation, err))
		return false
	}
	return true
}

// statusFor maps service errors onto HTTP statuses and error codes.
func statusFor(err error) (int, string) {
	var rejected *interfaces.RegistryRejectedError
	switch {
	case errors.Is(err, interfaces.ErrValidation):
		return http.StatusBadRequest, api.CodeValidation
	case errors.Is(err, interfaces.ErrNotFound):
		return http.StatusNotFound, api.CodeNotFound
	case errors.Is(err, interfaces.ErrConflict):
		return http.StatusConflict, api.CodeConflict
	case errors.Is(err, interfaces.ErrDecryption):
		return http.StatusUnauthorized, api.CodeDecryption
	case errors.As(err, &rejected):
		return http.StatusBadGateway, api.CodeRejected
	case errors.Is(err, interfaces.ErrTimedOut):
		return http.StatusGatewayTimeout, api.CodeTimedOut
	case errors.Is(err, interfaces.ErrNetwork):
		return http.StatusServiceUnavailable, api.CodeNetwork
	default:
		return http.StatusInternalServerError, api.CodeInternal
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", "err", err)
		message = "internal server error"
	} else {
		h.log.Debug("Request rejected", slog.Int("status", status), "err", err)
	}
	if strings.TrimSpace(message) == "" {
		message = http.StatusText(status)
	}
	h.writeFailure(w, status, code, message)
}

func (h *Handler) writeFailure(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, api.Response{Success: false, Error: message, Code: code})
}

func (h *Handler) writeData(w http.ResponseWriter, status int, v any, message string) {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("Failed to encode response", "err", err)
		h.writeFailure(w, http.StatusInternalServerError, api.CodeInternal, "internal server error")
		return
	}
	h.writeJSON(w, status, api.Response{Success: true, Data: data, Message: message})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, resp api.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}
