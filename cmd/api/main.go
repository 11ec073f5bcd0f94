package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/paytos/paytos/internal/asset"
	"github.com/paytos/paytos/internal/chain"
	"github.com/paytos/paytos/internal/config"
	"github.com/paytos/paytos/internal/infra"
	"github.com/paytos/paytos/internal/logging"
	"github.com/paytos/paytos/internal/server"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel)

	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("REDIS_URL not set, confirmation codes held in memory")
	}

	gateway, err := dialGateway(ctx, cfg, logger)
	if err != nil {
		logger.Error("connect chain rpc", "error", err, "rpc_url", cfg.RPCURL)
		os.Exit(1)
	}

	srv, err := server.New(cfg, db, cache, gateway, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}

// dialGateway connects to the configured JSON-RPC endpoint. In development
// a failed dial falls back to a simulated chain so the webhook loop can run
// offline; outside development a chain connection is mandatory.
func dialGateway(ctx context.Context, cfg config.Config, logger *slog.Logger) (chain.Gateway, error) {
	opts := chain.Options{
		TokenAddresses: map[asset.Symbol]string{},
		TokenDecimals:  map[asset.Symbol]int32{},
		ReceiptTimeout: cfg.ReceiptTimeout,
	}
	if cfg.PYUSDAddress != "" {
		opts.TokenAddresses[asset.PYUSD] = cfg.PYUSDAddress
		opts.TokenDecimals[asset.PYUSD] = cfg.PYUSDDecimals
	}

	dialCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	gateway, err := chain.Dial(dialCtx, cfg.RPCURL, cfg.ChainID, opts)
	if err != nil {
		if cfg.IsDev() {
			logger.Warn("chain rpc unavailable, using simulated chain", "error", err)
			return chain.NewMemory(), nil
		}
		return nil, err
	}
	return gateway, nil
}
