package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/ruteri/ondc-onboarding-service/interfaces"
)

// StorageBackendFactory creates storage backends from location URIs.
type StorageBackendFactory struct {
	log *slog.Logger
}

// NewStorageBackendFactory creates a new factory instance that can create storage backends.
func NewStorageBackendFactory(logger *slog.Logger) *StorageBackendFactory {
	return &StorageBackendFactory{log: logger}
}

// StorageBackendFor creates a storage backend from a location URI.
//
// Supported schemes:
//   - file:///var/lib/ondc/keys
//   - s3://[ACCESS_KEY:SECRET_KEY@]bucket/prefix?region=ap-south-1&endpoint=minio:9000
//   - vault://vault.example.com:8200/secret/ondc/keys?tls=false
//   - redis://[user:pass@]host:6379/0?hash=ondc:keys (or rediss:// for TLS)
func (sf *StorageBackendFactory) StorageBackendFor(ctx context.Context, location interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	switch location.Scheme {
	case "file":
		return sf.createFileBackend(location)
	case "s3":
		return sf.createS3Backend(location)
	case "vault":
		return sf.createVaultBackend(location)
	case "redis", "rediss":
		return sf.createRedisBackend(ctx, location)
	default:
		return nil, fmt.Errorf("%w: unsupported backend scheme: %s", interfaces.ErrInvalidLocationURI, location.Scheme)
	}
}

// createFileBackend handles file:///absolute/path and file://./relative/path.
func (sf *StorageBackendFactory) createFileBackend(loc interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating file backend", slog.String("uri", loc.String()))

	path := loc.Path
	if loc.Host != "" {
		path = loc.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI: %s", interfaces.ErrInvalidLocationURI, loc.String())
	}

	return NewFileBackend(path, sf.log)
}

// createS3Backend falls back to the default AWS credential chain when the
// URI carries no credentials.
func (sf *StorageBackendFactory) createS3Backend(loc interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating S3 backend", slog.String("bucket", loc.Host))

	if loc.Host == "" {
		return nil, fmt.Errorf("%w: missing bucket in S3 URI", interfaces.ErrInvalidLocationURI)
	}

	region := loc.GetParam("region")
	if region == "" {
		region = "ap-south-1"
	}

	var accessKey, secretKey string
	if loc.Auth != "" {
		if u, err := url.Parse(loc.Raw); err == nil && u.User != nil {
			accessKey = u.User.Username()
			secretKey, _ = u.User.Password()
		}
	}

	return NewS3Backend(loc.Host, strings.TrimPrefix(loc.Path, "/"), region, loc.GetParam("endpoint"), accessKey, secretKey, sf.log)
}

// createVaultBackend expects vault://host:port/<mount>/<data path>. The token
// comes from the token query parameter or VAULT_TOKEN.
func (sf *StorageBackendFactory) createVaultBackend(loc interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	sf.log.Debug("Creating Vault backend", slog.String("host", loc.Host))

	segments := strings.SplitN(strings.Trim(loc.Path, "/"), "/", 2)
	if loc.Host == "" || segments[0] == "" {
		return nil, fmt.Errorf("%w: expected vault://host:port/mount/path", interfaces.ErrInvalidLocationURI)
	}
	mount := segments[0]
	dataPath := ""
	if len(segments) == 2 {
		dataPath = segments[1]
	}

	scheme := "https"
	if loc.GetParam("tls") == "false" {
		scheme = "http"
	}

	token := loc.GetParam("token")
	if token == "" {
		token = os.Getenv("VAULT_TOKEN")
	}

	return NewVaultBackend(fmt.Sprintf("%s://%s", scheme, loc.Host), mount, dataPath, VaultOptions{Token: token}, sf.log)
}

// createRedisBackend strips the hash parameter, which go-redis does not
// accept, before handing the URL to the client.
func (sf *StorageBackendFactory) createRedisBackend(ctx context.Context, loc interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	u, err := url.Parse(loc.Raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrInvalidLocationURI, err)
	}

	q := u.Query()
	hashKey := q.Get("hash")
	q.Del("hash")
	u.RawQuery = q.Encode()

	sf.log.Debug("Creating Redis backend", slog.String("uri", u.Redacted()))
	return NewRedisBackend(ctx, u.String(), hashKey, sf.log)
}

// CreateMultiBackend creates a replicated backend from several location URIs.
// A single location yields that backend directly. Returns an error if no
// backend could be created.
func (sf *StorageBackendFactory) CreateMultiBackend(ctx context.Context, locations []interfaces.StorageBackendLocation) (interfaces.StorageBackend, error) {
	backends := make([]interfaces.StorageBackend, 0, len(locations))

	for _, loc := range locations {
		backend, err := sf.StorageBackendFor(ctx, loc)
		if err != nil {
			sf.log.Warn("Failed to create storage backend", "err", err, slog.String("scheme", loc.Scheme))
			continue
		}
		backends = append(backends, backend)
	}

	switch len(backends) {
	case 0:
		return nil, fmt.Errorf("no valid storage backends created")
	case 1:
		return backends[0], nil
	default:
		return NewMultiStorageBackend(backends, sf.log), nil
	}
}
