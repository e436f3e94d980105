package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/vencura/vencura/internal/api"
	"github.com/vencura/vencura/internal/app"
	"github.com/vencura/vencura/internal/auth"
	"github.com/vencura/vencura/internal/config"
	"github.com/vencura/vencura/internal/crypto"
	"github.com/vencura/vencura/internal/custody"
	"github.com/vencura/vencura/internal/eth"
	"github.com/vencura/vencura/internal/kms"
	"github.com/vencura/vencura/internal/logger"
	"github.com/vencura/vencura/internal/metrics"
	"github.com/vencura/vencura/internal/storage"
	"github.com/vencura/vencura/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Init(cfg.LogFormat, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		accounts   storage.AccountRepository
		operations storage.OperationLog
		health     api.HealthChecker
	)
	switch cfg.StorageBackend {
	case config.StorageMemory:
		mem := storage.NewMemoryStore(cfg.MaxAccountsPerUser)
		accounts, operations = mem, mem
		slog.Warn("using in-memory storage; accounts are lost on restart")
	default:
		store, err := storage.New(ctx, cfg.PostgresDSN)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer store.Close()

		if _, err := store.Migrate(ctx, storage.MigrateUp, 0); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}

		accounts = storage.NewAccountRepo(store, cfg.MaxAccountsPerUser)
		operations = storage.NewOperationRepo(store)
		health = store.Ping
		slog.Info("connected to database")
	}

	kmsProvider, err := kms.NewProvider(ctx, cfg.KMS)
	if err != nil {
		slog.Error("failed to initialize KMS provider", "error", err)
		os.Exit(1)
	}
	envelope := kms.NewEnvelope(kmsProvider)
	if envelope.Enabled() {
		slog.Info("key blobs are wrapped", "kms_provider", kmsProvider.Provider())
	}

	clients := eth.NewClients(cfg.RPCURLs)
	defer clients.Close()
	signer := eth.NewSigner(clients)

	opts := wallet.Options{
		Accounts: accounts,
		Cipher:   crypto.NewKeyCipher(),
		Envelope: envelope,
		Signer:   signer,
	}
	if cfg.RemoteCustody() {
		opts.APIKey = cfg.APIKey
		opts.TxSigningEnabled = cfg.CustodyTxSigningEnabled
		opts.Custody = custody.NewHTTPClient(custody.HTTPClientOptions{
			BaseURL:       cfg.CustodyAPIURL,
			EnvironmentID: cfg.EnvironmentID,
			Debug:         !cfg.IsProduction(),
		})
	}
	managers := wallet.NewProvider(opts)

	// Fail fast on a bad custody API key instead of on the first request
	if m, err := managers.Get(ctx); err != nil {
		slog.Error("failed to initialize wallet manager", "error", err)
		os.Exit(1)
	} else {
		slog.Info("initialized wallet manager", "custody", m.Kind())
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	deps := app.Deps{
		Managers:    managers,
		Accounts:    accounts,
		Operations:  operations,
		Balances:    signer,
		Metrics:     m,
		MaxAccounts: cfg.MaxAccountsPerUser,
	}

	verifier := auth.NewVerifier(auth.JWKSURL(cfg.AuthProviderURL, cfg.EnvironmentID), auth.WithMetrics(m))

	server := api.NewServer(ctx, cfg, api.Deps{
		Accounts:      app.NewAccountService(deps),
		Operations:    app.NewOperationService(deps),
		Authenticator: auth.NewAuthenticator(verifier, cfg.EnvironmentID, m),
		Metrics:       m,
		Gatherer:      registry,
		Health:        health,
	})

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}

	case <-ctx.Done():
		slog.Info("received shutdown signal")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("error during shutdown", "error", err)
			slog.Warn("forcing shutdown")
		}

		slog.Info("server stopped")
	}
}
