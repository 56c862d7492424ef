package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/credpay/credpay/internal/agent"
	"github.com/credpay/credpay/internal/chain"
	"github.com/credpay/credpay/internal/config"
	"github.com/credpay/credpay/internal/custodial"
	"github.com/credpay/credpay/internal/middleware"
	"github.com/credpay/credpay/internal/notification"
	"github.com/credpay/credpay/internal/payments"
	"github.com/credpay/credpay/internal/registry"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger

	// Chain overrides the RPC-backed chain client. Tests inject a simulator.
	Chain chain.Client
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	RegisterHealthRoutes(app, d)

	var userRepo registry.Repository
	if d.DB != nil {
		userRepo = registry.NewPostgresRepository(d.DB)
	} else {
		userRepo = registry.NewMemoryRepository()
	}
	registrySvc := registry.NewService(userRepo)

	chainClient := d.Chain
	if chainClient == nil {
		if d.Cfg.RPCURL != "" {
			chainClient = chain.NewRPCClient(d.Cfg.RPCURL, d.Cfg.ReceiptTimeout)
		} else {
			// No node configured: transfers run against the in-process
			// simulator. Dev only.
			chainClient = chain.NewSimulator(d.Cfg.ChainID)
		}
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	paymentSvc := payments.NewService(registrySvc, chainClient, notifier, d.Cfg.ChainID, d.Cfg.ChainName)

	var walletRepo custodial.Repository
	if d.DB != nil {
		walletRepo = custodial.NewPostgresRepository(d.DB)
	} else {
		walletRepo = custodial.NewMemoryRepository()
	}
	custodialSvc := custodial.NewService(walletRepo)

	var tracker custodial.SpendTracker
	if d.Cache != nil {
		tracker = custodial.NewRedisSpendTracker(d.Cache)
	} else {
		tracker = custodial.NewMemorySpendTracker()
	}
	gate := custodial.NewGate(walletRepo, tracker)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterUserRoutes(api, registry.NewHandler(registrySvc))
	RegisterPaymentRoutes(app, api, payments.NewHandler(paymentSvc), d)
	RegisterCustodialRoutes(api, custodial.NewHandler(custodialSvc))

	runner, err := buildAgentRunner(d, paymentSvc, custodialSvc, gate)
	if err != nil {
		return err
	}
	RegisterAgentRoutes(api, agent.NewHandler(runner, d.Logger), d)

	return nil
}

// buildAgentRunner wires the Gemini runner when the agent credentials are
// present. A nil runner keeps the endpoint up but answering with a
// configuration error.
func buildAgentRunner(d Deps, paymentSvc *payments.Service, custodialSvc *custodial.Service, gate *custodial.Gate) (agent.Runner, error) {
	if !d.Cfg.AgentConfigured() {
		return nil, nil
	}

	wallet, err := ensureAgentWallet(context.Background(), custodialSvc, d.Cfg.AgentAddress)
	if err != nil {
		return nil, err
	}

	tools := agent.NewToolset(paymentSvc, gate, wallet.WalletID, d.Cfg.AgentAddress)
	opts := []agent.GeminiOption{}
	if d.Cfg.AgentAPIURL != "" {
		opts = append(opts, agent.WithGeminiBaseURL(d.Cfg.AgentAPIURL))
	}
	return agent.NewGeminiRunner(d.Cfg.GoogleAPIKey, tools, opts...), nil
}

func ensureAgentWallet(ctx context.Context, svc *custodial.Service, address string) (custodial.Wallet, error) {
	existing, err := svc.ListByUser(ctx, address)
	if err != nil {
		return custodial.Wallet{}, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}
	return svc.Create(ctx, address, "Agent wallet")
}
