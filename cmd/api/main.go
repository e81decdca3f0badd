package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/certledger/certledger/internal/config"
	"github.com/certledger/certledger/internal/credential"
	"github.com/certledger/certledger/internal/health"
	"github.com/certledger/certledger/internal/identity"
	"github.com/certledger/certledger/internal/infra"
	"github.com/certledger/certledger/internal/ledger"
	"github.com/certledger/certledger/internal/logging"
	"github.com/certledger/certledger/internal/metrics"
	"github.com/certledger/certledger/internal/routes"
	"github.com/certledger/certledger/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("server exited cleanly")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()
	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	users, closeUsers, err := openUserStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	closers = append(closers, closeUsers)

	var accounts []identity.Credentials
	if cfg.SeedDefaultUsers {
		accounts = append(accounts, identity.DefaultUsers...)
	}
	if cfg.IssuerUsername != "" {
		accounts = append(accounts, identity.Credentials{
			Username: cfg.IssuerUsername,
			Password: cfg.IssuerPassword,
			Role:     identity.RoleIssuer,
		})
	}
	if err := identity.NewService(users).Seed(ctx, logger, accounts); err != nil {
		return err
	}

	cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	if cache != nil {
		closers = append(closers, func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", slog.Any("error", err))
			}
		})
	} else {
		logger.Info("redis not configured; cache, login rate limit and idempotency disabled")
	}

	reader, writer, prober, closeLedger, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	closers = append(closers, closeLedger)

	m := metrics.New()
	monitor, err := health.NewMonitor(prober, cfg.LedgerProbeInterval, cfg.LedgerTimeout, m, logger)
	if err != nil {
		return err
	}

	srv, err := server.New(routes.Deps{
		Cfg:     cfg,
		Users:   users,
		Ledger:  reader,
		Writer:  writer,
		Cache:   cache,
		Monitor: monitor,
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-srvErrCh:
		monitor.Stop()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openUserStore prefers postgres, then sqlite.
func openUserStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (identity.Repository, func(), error) {
	if cfg.DatabaseURL != "" {
		pool, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("user store ready", slog.String("driver", "postgres"))
		return identity.NewPostgresRepository(pool), pool.Close, nil
	}
	db, err := infra.NewSQLite(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("user store ready", slog.String("driver", "sqlite"), slog.String("path", cfg.SQLitePath))
	return identity.NewSQLiteRepository(db), func() { _ = db.Close() }, nil
}

// openLedger dials the contract when an RPC endpoint is configured and falls
// back to the in-memory ledger in development.
func openLedger(ctx context.Context, cfg config.Config, logger *slog.Logger) (credential.Ledger, credential.Writer, ledger.Prober, func(), error) {
	if cfg.LedgerRPCURL == "" {
		if !cfg.IsDev() {
			return nil, nil, nil, nil, fmt.Errorf("LEDGER_RPC_URL is required when APP_ENV=%s", cfg.Env)
		}
		mem := ledger.NewInMemory(common.Address{})
		logger.Warn("using in-memory ledger; records are lost on restart")
		return mem, mem, mem, func() {}, nil
	}

	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, nil, nil, nil, fmt.Errorf("CONTRACT_ADDRESS %q is not an address", cfg.ContractAddress)
	}
	client, err := infra.NewEthClient(ctx, cfg.LedgerRPCURL)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	var opts []ledger.ContractOption
	if cfg.IssuerPrivateKey != "" {
		signer, from, err := ledger.NewSigner(ctx, cfg.IssuerPrivateKey, cfg.ChainID, client)
		if err != nil {
			client.Close()
			return nil, nil, nil, nil, err
		}
		opts = append(opts, ledger.WithSigner(client, signer))
		logger.Info("issuance enabled", slog.String("issuer", from.Hex()))
	}

	contract, err := ledger.NewContract(common.HexToAddress(cfg.ContractAddress), client, opts...)
	if err != nil {
		client.Close()
		return nil, nil, nil, nil, err
	}
	logger.Info("ledger ready", slog.String("contract", cfg.ContractAddress))

	var writer credential.Writer
	if cfg.IssuerPrivateKey != "" {
		writer = contract
	}
	return contract, writer, client, client.Close, nil
}
