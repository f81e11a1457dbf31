package casinod

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	nodeconfig "wagerchain/config"
	"wagerchain/core/events"
	"wagerchain/crypto"
	"wagerchain/observability"
	"wagerchain/observability/logging"
	telemetry "wagerchain/observability/otel"
	"wagerchain/services/casinod/archive"
	"wagerchain/services/casinod/config"
	"wagerchain/services/casinod/node"
	"wagerchain/services/casinod/publisher"
	"wagerchain/services/casinod/server"
	"wagerchain/storage"
)

// Main initialises and runs the casino daemon.
func Main() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "services/casinod/config.yaml", "path to casinod configuration")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	env := cfg.Environment
	if env == "" {
		env = strings.TrimSpace(os.Getenv("WAGER_ENV"))
	}
	logOpts := []logging.Option{logging.WithLevel(logging.ParseLevel(cfg.Logging.Level))}
	if cfg.Logging.File != "" {
		logOpts = append(logOpts, logging.WithFile(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups, cfg.Logging.MaxAgeDays))
	}
	logger, logCloser := logging.Setup("casinod", env, logOpts...)
	defer logCloser.Close()

	nodeCfg, err := nodeconfig.Load(cfg.NodeConfig)
	if err != nil {
		return fmt.Errorf("load node config: %w", err)
	}

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: "casinod",
		Environment: env,
		Network:     nodeCfg.NetworkName,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	authority, err := crypto.KeyFileIdentity(nodeCfg.AuthorityKeystorePath)
	if err != nil {
		return fmt.Errorf("read authority key: %w", err)
	}
	secret, err := cfg.Auth.Secret()
	if err != nil {
		return err
	}

	var db storage.Database
	if cfg.InMemory {
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(filepath.Join(nodeCfg.DataDir, "casino"))
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		db = ldb
	}
	defer db.Close()

	arch, err := archive.Open(cfg.Archive.Driver, cfg.Archive.DSN, logger)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() { _ = arch.Close() }()

	sinks := events.Multi{
		publisher.NewLogSink(logger, slog.LevelDebug, env == "production"),
		arch,
	}
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password(), DB: cfg.Redis.DB})
		defer func() { _ = client.Close() }()
		sinks = append(sinks, publisher.NewStreamPublisher(client, cfg.Redis.StreamPrefix, cfg.Redis.MaxLen, logger))
	}

	metrics := observability.Casino()
	n, err := node.New(nodeCfg, db, authority, node.WithSink(sinks), node.WithMetrics(metrics))
	if err != nil {
		return fmt.Errorf("init node: %w", err)
	}
	logger.Info("casino node ready",
		"network", nodeCfg.NetworkName,
		"authority", crypto.FormatIdentity(authority),
		"entropy", nodeCfg.Entropy.Mode,
		"referral_mode", nodeCfg.Referral.Mode)

	srv, err := server.New(server.Config{
		Auth: server.AuthConfig{
			HMACSecret: secret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ClockSkew:  cfg.Auth.ClockSkew.Duration,
		},
		RateLimit:      server.RateLimit{RequestsPerMinute: cfg.RateLimit.RequestsPerMinute, Burst: cfg.RateLimit.Burst},
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		CORSMaxAge:     cfg.CORS.MaxAge,
		ExportDir:      cfg.Archive.ExportDir,
	}, n, arch, metrics, logger)
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, cfg.ListenAddress, cfg.ShutdownTimeout.Duration)
}
