package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
)

// VaultBackend implements a storage backend on a HashiCorp Vault KV v2 mount.
// Records are stored as secrets under mountPath/data/dataPath/<name>.
type VaultBackend struct {
	client      *api.Client
	mountPath   string
	dataPath    string
	log         *slog.Logger
	locationURI string
}

// VaultOptions configures authentication for NewVaultBackend. Token is used
// when set; otherwise the client falls back to VAULT_TOKEN from the
// environment. ClientCert enables TLS client certificate authentication.
type VaultOptions struct {
	Token      string
	ClientCert *tls.Certificate
	Timeout    time.Duration
}

// NewVaultBackend creates a new Vault storage backend.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: Path within the mount (e.g. "ondc/keys")
func NewVaultBackend(address, mountPath, dataPath string, opts VaultOptions, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	config.Address = address

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if opts.ClientCert != nil {
		config.HttpClient = &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					Certificates: []tls.Certificate{*opts.ClientCert},
				},
			},
			Timeout: timeout,
		}
	} else {
		config.Timeout = timeout
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if opts.Token != "" {
		client.SetToken(opts.Token)
	}

	mountPath = strings.Trim(mountPath, "/")
	dataPath = strings.Trim(dataPath, "/")

	return &VaultBackend{
		client:      client,
		mountPath:   mountPath,
		dataPath:    dataPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(strings.TrimPrefix(address, "https://"), "http://"), mountPath, dataPath),
	}, nil
}

func (b *VaultBackend) secretPath(kind, key string) string {
	parts := []string{b.mountPath, kind}
	if b.dataPath != "" {
		parts = append(parts, b.dataPath)
	}
	if key != "" {
		parts = append(parts, encodeRecordName(key))
	}
	return strings.Join(parts, "/")
}

// Fetch retrieves a record from Vault.
func (b *VaultBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	path := b.secretPath("data", key)

	secret, err := b.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		b.log.Error("Failed to read from Vault", slog.String("path", path), "err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, interfaces.ErrContentNotFound
	}

	// KV v2 wraps the payload in a nested "data" map; a deleted version has nil data.
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok || data == nil {
		return nil, interfaces.ErrContentNotFound
	}
	content, ok := data["content"].(string)
	if !ok {
		b.log.Error("Invalid content format in Vault data", slog.String("path", path))
		return nil, fmt.Errorf("invalid content format in Vault data at %s", path)
	}

	b.log.Debug("Fetched record from Vault",
		slog.String("path", path),
		slog.Duration("duration", time.Since(start)))

	return []byte(content), nil
}

// Store writes a record to Vault as a new secret version.
func (b *VaultBackend) Store(ctx context.Context, key string, data []byte) error {
	path := b.secretPath("data", key)

	_, err := b.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"data": map[string]interface{}{
			"content": string(data),
		},
	})
	if err != nil {
		b.log.Error("Failed to write to Vault", slog.String("path", path), "err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored record in Vault", slog.String("path", path))
	return nil
}

// Delete removes every version of a record together with its metadata.
func (b *VaultBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.Fetch(ctx, key); err != nil {
		return err
	}

	path := b.secretPath("metadata", key)
	if _, err := b.client.Logical().DeleteWithContext(ctx, path); err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	return nil
}

// List returns the names of all records under the data path.
func (b *VaultBackend) List(ctx context.Context) ([]string, error) {
	secret, err := b.client.Logical().ListWithContext(ctx, b.secretPath("metadata", ""))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}

	keys, _ := secret.Data["keys"].([]interface{})
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		encoded, ok := k.(string)
		if !ok || strings.HasSuffix(encoded, "/") {
			continue
		}
		name, err := decodeRecordName(encoded)
		if err != nil {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// Available checks if the Vault server is initialized and unsealed.
func (b *VaultBackend) Available(ctx context.Context) bool {
	health, err := b.client.Sys().HealthWithContext(ctx)
	if err != nil {
		b.log.Warn("Vault health check failed", "err", err)
		return false
	}
	return health.Initialized && !health.Sealed
}

// Name returns a unique identifier for this storage backend.
func (b *VaultBackend) Name() string {
	return fmt.Sprintf("vault-%s", b.mountPath)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}
