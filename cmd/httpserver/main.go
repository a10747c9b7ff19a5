package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ruteri/ondc-onboarding-service/cmd/flags"
	"github.com/ruteri/ondc-onboarding-service/common"
	"github.com/ruteri/ondc-onboarding-service/dnscheck"
	"github.com/ruteri/ondc-onboarding-service/httpserver"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"github.com/ruteri/ondc-onboarding-service/kms"
	"github.com/ruteri/ondc-onboarding-service/metrics"
	"github.com/ruteri/ondc-onboarding-service/onboarding"
	"github.com/ruteri/ondc-onboarding-service/registry"
	"github.com/ruteri/ondc-onboarding-service/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:    "onboarding-server",
		Usage:   "Serve the ONDC registry onboarding API",
		Version: common.Version,
		Flags:   flags.ServerFlags(),
		Action:  runServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runServer(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	m := metrics.New(common.PackageName)

	keys, storageName, err := openKeyStore(cCtx.Context, cCtx, logger)
	if err != nil {
		logger.Error("Failed to open key store", "err", err)
		return err
	}

	registryURLs := flags.RegistryURLs(cCtx)
	registryClient := registry.NewClient(registry.Config{
		BaseURLs: registryURLs,
		Timeout:  cCtx.Duration(flags.RegistryTimeoutFlag.Name),
	}, logger, m)

	orchestratorCfg := onboarding.OrchestratorConfig{
		RegistryEncryptionKeys: flags.RegistryKeys(cCtx),
		CallbackPath:           cCtx.String(flags.CallbackPathFlag.Name),
		Metrics:                m,
	}
	if cCtx.Bool(flags.DNSCheckFlag.Name) {
		resolver := dnscheck.NewResolver(cCtx.String(flags.NameserverFlag.Name), 5*time.Second, logger)
		orchestratorCfg.DomainChecker = resolver
		logger.Info("DNS check enabled")
	}

	generator := kms.NewGenerator().WithValidity(cCtx.Duration(flags.KeyValidityFlag.Name))
	handler := httpserver.NewHandler(
		keys,
		onboarding.NewKeyIssuer(generator, keys, m, logger),
		onboarding.NewVerificationBuilder(keys, logger),
		onboarding.NewOrchestrator(keys, registryClient, orchestratorCfg, logger),
		onboarding.NewDirectory(keys, registryClient, logger),
		httpserver.HandlerConfig{
			SubscriberID:   cCtx.String(flags.SubscriberIDFlag.Name),
			RegistryURLs:   registryURLs,
			StorageBackend: storageName,
		},
		logger,
	)

	server := httpserver.New(flags.ConfigureServer(cCtx, logger), handler, m)
	server.RunInBackground()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
	logger.Info("Server is running, press Ctrl+C to stop", "keys", keys.Count())
	<-exit
	logger.Info("Shutdown signal received")

	server.Shutdown()
	logger.Info("Server shutdown complete")
	return nil
}

// openKeyStore returns an in-memory key store, or a sealed persistent one
// when storage URIs are configured, along with the backend name.
func openKeyStore(ctx context.Context, cCtx *cli.Context, logger *slog.Logger) (*kms.KeyStore, string, error) {
	uris := cCtx.StringSlice(flags.StorageFlag.Name)
	if len(uris) == 0 {
		logger.Warn("No storage configured, keys will be lost on restart")
		return kms.NewKeyStore(logger), "memory", nil
	}

	seedHex := cCtx.String(flags.KMSSeedFlag.Name)
	if seedHex == "" {
		return nil, "", errors.New("kms-seed is required when storage is configured")
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, "", fmt.Errorf("invalid kms-seed: %w", err)
	}
	sealer, err := kms.NewSealer(seed)
	if err != nil {
		return nil, "", err
	}

	locations := make([]interfaces.StorageBackendLocation, 0, len(uris))
	for _, uri := range uris {
		loc, err := interfaces.NewStorageBackendLocation(uri)
		if err != nil {
			return nil, "", fmt.Errorf("invalid storage location %d: %w", len(locations)+1, err)
		}
		locations = append(locations, loc)
	}

	factory := storage.NewStorageBackendFactory(logger)
	var backend interfaces.StorageBackend
	if len(locations) == 1 {
		backend, err = factory.StorageBackendFor(ctx, locations[0])
	} else {
		backend, err = factory.CreateMultiBackend(ctx, locations)
	}
	if err != nil {
		return nil, "", err
	}

	logger.Info("Opening persistent key store", "backend", backend.Name())
	keys, err := kms.NewPersistentKeyStore(ctx, backend, sealer, logger)
	return keys, backend.Name(), err
}
