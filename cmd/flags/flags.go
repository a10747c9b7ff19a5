package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/ondc-onboarding-service/api"
	"github.com/ruteri/ondc-onboarding-service/common"
	"github.com/ruteri/ondc-onboarding-service/interfaces"
	"github.com/ruteri/ondc-onboarding-service/registry"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   cCtx.Bool(LogDebugFlag.Name),
		JSON:    cCtx.Bool(LogJsonFlag.Name),
		Service: cCtx.String(LogServiceFlag.Name),
		Version: common.Version,
	})

	if cCtx.Bool(LogUidFlag.Name) {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger) *api.HTTPServerConfig {
	return &api.HTTPServerConfig{
		ListenAddr:               cCtx.String(ListenAddrFlag.Name),
		MetricsAddr:              cCtx.String(MetricsAddrFlag.Name),
		Log:                      logger,
		EnablePprof:              cCtx.Bool(PprofFlag.Name),
		DrainDuration:            time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		// Subscribe waits for the registry.
		WriteTimeout: cCtx.Duration(RegistryTimeoutFlag.Name) + 30*time.Second,
	}
}

// RegistryURLFlags holds one base URL flag per registry environment.
var RegistryURLFlags = map[interfaces.Environment]*cli.StringFlag{
	interfaces.Staging: {
		Name:    "registry-url-staging",
		Value:   registry.DefaultBaseURLs[interfaces.Staging],
		EnvVars: []string{"ONDC_STAGING_URL"},
		Usage:   "staging registry base URL",
	},
	interfaces.PreProduction: {
		Name:    "registry-url-preprod",
		Value:   registry.DefaultBaseURLs[interfaces.PreProduction],
		EnvVars: []string{"ONDC_PREPROD_URL"},
		Usage:   "pre-production registry base URL",
	},
	interfaces.Production: {
		Name:    "registry-url-prod",
		Value:   registry.DefaultBaseURLs[interfaces.Production],
		EnvVars: []string{"ONDC_PROD_URL"},
		Usage:   "production registry base URL",
	},
}

// RegistryKeyFlags holds the registry's challenge encryption key per environment.
var RegistryKeyFlags = map[interfaces.Environment]*cli.StringFlag{
	interfaces.Staging: {
		Name:    "registry-key-staging",
		Value:   registry.DefaultEncryptionPublicKeys[interfaces.Staging],
		EnvVars: []string{"ONDC_STAGING_ENCRYPTION_PUBLIC_KEY"},
		Usage:   "staging registry X25519 public key (base64, raw or DER)",
	},
	interfaces.PreProduction: {
		Name:    "registry-key-preprod",
		Value:   registry.DefaultEncryptionPublicKeys[interfaces.PreProduction],
		EnvVars: []string{"ONDC_PREPROD_ENCRYPTION_PUBLIC_KEY"},
		Usage:   "pre-production registry X25519 public key (base64, raw or DER)",
	},
	interfaces.Production: {
		Name:    "registry-key-prod",
		Value:   registry.DefaultEncryptionPublicKeys[interfaces.Production],
		EnvVars: []string{"ONDC_PROD_ENCRYPTION_PUBLIC_KEY"},
		Usage:   "production registry X25519 public key (base64, raw or DER)",
	},
}

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:3000",
	EnvVars: []string{"LISTEN_ADDR"},
	Usage:   "address to listen on for API",
}

var SubscriberIDFlag = &cli.StringFlag{
	Name:    "subscriber-id",
	EnvVars: []string{"SUBSCRIBER_ID"},
	Usage:   "subscriber id of this service, used to sign vlookup queries without a sender",
}

var StorageFlag = &cli.StringSliceFlag{
	Name:    "storage",
	EnvVars: []string{"KEY_STORAGE"},
	Usage:   "key record storage URI (file://, s3://, vault://, redis://); repeat to replicate. Keys are kept in memory only when unset",
}

var KMSSeedFlag = &cli.StringFlag{
	Name:    "kms-seed",
	EnvVars: []string{"KMS_SEED"},
	Usage:   "hex-encoded seed (at least 32 bytes) sealing key records at rest; required with --storage",
}

var KeyValidityFlag = &cli.DurationFlag{
	Name:    "key-validity",
	Value:   365 * 24 * time.Hour,
	EnvVars: []string{"KEY_VALIDITY"},
	Usage:   "validity window advertised for generated keys",
}

var RegistryTimeoutFlag = &cli.DurationFlag{
	Name:    "registry-timeout",
	Value:   registry.DefaultTimeout,
	EnvVars: []string{"REGISTRY_TIMEOUT"},
	Usage:   "deadline of a single registry call",
}

var CallbackPathFlag = &cli.StringFlag{
	Name:    "callback-path",
	Value:   "/ondc/callback",
	EnvVars: []string{"CALLBACK_PATH"},
	Usage:   "callback_url sent with subscription requests",
}

var DNSCheckFlag = &cli.BoolFlag{
	Name:    "dns-check",
	EnvVars: []string{"DNS_CHECK"},
	Usage:   "require the subscriber id to resolve before subscribing",
}

var NameserverFlag = &cli.StringFlag{
	Name:    "nameserver",
	EnvVars: []string{"NAMESERVER"},
	Usage:   "nameserver (host:port) for --dns-check; defaults to /etc/resolv.conf",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}
var LogServiceFlag = &cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}

// ServerFlags are the flags of the onboarding server.
func ServerFlags() []cli.Flag {
	fs := []cli.Flag{
		ListenAddrFlag,
		SubscriberIDFlag,
		StorageFlag,
		KMSSeedFlag,
		KeyValidityFlag,
		RegistryTimeoutFlag,
		CallbackPathFlag,
		DNSCheckFlag,
		NameserverFlag,
	}
	for _, env := range interfaces.Environments {
		fs = append(fs, RegistryURLFlags[env], RegistryKeyFlags[env])
	}
	return append(fs, CommonFlags...)
}

// RegistryURLs reads the configured base URL of every environment.
func RegistryURLs(cCtx *cli.Context) map[interfaces.Environment]string {
	urls := make(map[interfaces.Environment]string, len(RegistryURLFlags))
	for env, f := range RegistryURLFlags {
		urls[env] = cCtx.String(f.Name)
	}
	return urls
}

// RegistryKeys reads the configured registry encryption key of every environment.
func RegistryKeys(cCtx *cli.Context) map[interfaces.Environment]string {
	keys := make(map[interfaces.Environment]string, len(RegistryKeyFlags))
	for env, f := range RegistryKeyFlags {
		keys[env] = cCtx.String(f.Name)
	}
	return keys
}
