package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/paytos/paytos/internal/account"
	"github.com/paytos/paytos/internal/chain"
	"github.com/paytos/paytos/internal/config"
	"github.com/paytos/paytos/internal/custody"
	"github.com/paytos/paytos/internal/middleware"
	"github.com/paytos/paytos/internal/notify"
	"github.com/paytos/paytos/internal/price"
	"github.com/paytos/paytos/internal/reconcile"
	"github.com/paytos/paytos/internal/sms"
	"github.com/paytos/paytos/internal/transfer"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Gateway chain.Gateway
	Logger  *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Gateway == nil {
		return fmt.Errorf("chain gateway is required")
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	// Health
	RegisterHealthRoutes(app, d)

	// Storage backends
	vault, err := custody.NewVault(d.Cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("open custody vault: %w", err)
	}

	var accountRepo account.Repository
	var txRepo transfer.Repository
	if d.DB != nil {
		accountRepo = account.NewPostgresRepository(d.DB)
		txRepo = transfer.NewPostgresRepository(d.DB)
	} else {
		accountRepo = account.NewMemoryRepository()
		txRepo = transfer.NewMemoryRepository()
	}

	var confirms transfer.ConfirmStore
	if d.Cache != nil {
		confirms = transfer.NewRedisConfirmStore(d.Cache)
	} else {
		confirms = transfer.NewMemoryConfirmStore()
	}

	// Services
	accounts := account.NewService(accountRepo, vault, d.Logger)
	reconciler := reconcile.New(d.Gateway, accountRepo, d.Logger)
	engine := transfer.NewEngine(accounts, txRepo, confirms, d.Gateway, vault, reconciler, d.Logger, d.Cfg.ConfirmTTL)
	prices := price.NewClient(d.Cfg.HermesURL, d.Cfg.PriceFeedIDs)
	emitter := notify.NewEmitter(notify.NewLoggerSender(d.Logger), d.Logger)
	dispatcher := sms.NewDispatcher(accounts, engine, reconciler, prices, emitter, d.Logger)
	smsHandler := sms.NewHandler(dispatcher)

	// Transactions stranded pending by a previous crash are terminalized
	// before new traffic arrives.
	sweepCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := engine.SweepStalePending(sweepCtx); err != nil {
		d.Logger.Warn("sweep stale pending transactions", "error", err)
	}

	// Webhook route
	webhook := app.Group("/sms")
	if d.Cache != nil {
		webhook.Use(middleware.Dedupe(d.Cache, "MessageSid", d.Cfg.DedupeTTL, d.Logger))
		webhook.Use(middleware.CommandRateLimit(d.Cache, "From", 10))
	}
	webhook.Post("/webhook", smsHandler.Webhook)

	app.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals(middleware.RequestIDKey).(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	return nil
}
