package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ruteri/ondc-onboarding-service/interfaces"
)

// MultiStorageBackend replicates key records over several backends.
// Writes go to every available backend, reads are served by the first
// backend holding the record.
type MultiStorageBackend struct {
	backends []interfaces.StorageBackend
	log      *slog.Logger
}

// NewMultiStorageBackend creates a new replicated backend.
func NewMultiStorageBackend(backends []interfaces.StorageBackend, logger *slog.Logger) *MultiStorageBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStorageBackend{
		backends: backends,
		log:      logger,
	}
}

// Fetch returns the record from the first available backend that has it.
func (m *MultiStorageBackend) Fetch(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()), slog.String("key", key))
			continue
		}

		data, err := backend.Fetch(ctx, key)
		if err == nil {
			m.log.Debug("Fetched record",
				slog.String("backend_name", backend.Name()),
				slog.String("key", key),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}
		if !errors.Is(err, interfaces.ErrContentNotFound) {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		}
	}

	if len(errs) == 0 {
		return nil, interfaces.ErrContentNotFound
	}

	m.log.Error("All backends failed to fetch record",
		slog.String("key", key),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))
	return nil, fmt.Errorf("all backends failed to fetch %s: %w", key, errors.Join(errs...))
}

// Store writes the record to every available backend. It succeeds if at
// least one backend accepted the write.
func (m *MultiStorageBackend) Store(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	var stored int
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		if err := backend.Store(ctx, key, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Warn("Failed to store to backend", slog.String("backend_name", backend.Name()), "err", err)
			continue
		}
		stored++
	}

	if stored == 0 {
		m.log.Error("All backends failed to store record",
			slog.String("key", key),
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		if len(errs) == 0 {
			return interfaces.ErrBackendUnavailable
		}
		return fmt.Errorf("all backends failed to store %s: %w", key, errors.Join(errs...))
	}
	return nil
}

// Delete removes the record from every available backend. It returns
// ErrContentNotFound only if no backend held the record.
//
// Deletes are not rolled back: if some backends fail, the record stays on
// them and is loaded again on the next restart. The error lists the failed
// backends and a warning names the replicas that did delete.
func (m *MultiStorageBackend) Delete(ctx context.Context, key string) error {
	var deleted, failed, skipped []string
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			skipped = append(skipped, backend.Name())
			continue
		}
		err := backend.Delete(ctx, key)
		switch {
		case err == nil:
			deleted = append(deleted, backend.Name())
		case errors.Is(err, interfaces.ErrContentNotFound):
		default:
			failed = append(failed, backend.Name())
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		}
	}

	if len(deleted) > 0 && (len(failed) > 0 || len(skipped) > 0) {
		m.log.Warn("Record deleted from some backends only",
			slog.String("key", key),
			slog.Any("deleted", deleted),
			slog.Any("failed", failed),
			slog.Any("unavailable", skipped))
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to delete %s from %s: %w", key, strings.Join(failed, ","), errors.Join(errs...))
	}
	if len(deleted) == 0 {
		return interfaces.ErrContentNotFound
	}
	return nil
}

// List returns the union of record names across available backends.
func (m *MultiStorageBackend) List(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var listed int
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			continue
		}
		names, err := backend.List(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			continue
		}
		listed++
		for _, name := range names {
			seen[name] = struct{}{}
		}
	}

	if listed == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("all backends failed to list records: %w", errors.Join(errs...))
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Available checks if any backend is available.
func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend.
func (m *MultiStorageBackend) Name() string {
	return "multi-storage"
}

// LocationURI combines the location URIs of all backends.
func (m *MultiStorageBackend) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}
	return "multi:[" + strings.Join(locations, ",") + "]"
}
