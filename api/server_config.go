package api

import (
	"log/slog"
	"time"
)

// HTTPServerConfig configures the onboarding API server.
type HTTPServerConfig struct {
	// ListenAddr serves the onboarding API, the registry callback and the
	// lifecycle endpoints.
	ListenAddr string
	// MetricsAddr serves Prometheus metrics. Empty disables the metrics server.
	MetricsAddr string

	EnablePprof bool
	Log         *slog.Logger

	// DrainDuration is how long the server reports not ready before it
	// stops accepting requests.
	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration

	ReadTimeout time.Duration
	// WriteTimeout must exceed the registry timeout, subscribe and vlookup
	// responses wait on the registry.
	WriteTimeout time.Duration
}
