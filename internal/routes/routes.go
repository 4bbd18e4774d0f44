package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/congo_auth/internal/auth"
	"github.com/congo-pay/congo_auth/internal/config"
	"github.com/congo-pay/congo_auth/internal/identity"
	"github.com/congo-pay/congo_auth/internal/kvstore"
	"github.com/congo-pay/congo_auth/internal/middleware"
	"github.com/congo-pay/congo_auth/internal/notification"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger

	// Notifier overrides the configured OTP delivery channel.
	Notifier notification.Notifier
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// main checks this too; repeat it so tests cannot wire a prod config
	// against in-memory backends.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var (
		store kvstore.Store
		err   error
	)
	if d.Cache != nil {
		store = kvstore.NewRedisStore(d.Cache)
	} else {
		d.Logger.Warn("redis not configured, credentials live in process memory")
		store = kvstore.NewMemory()
	}

	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}
	identitySvc := identity.NewService(identityRepo)

	notifier := d.Notifier
	if notifier == nil {
		if notifier, err = newNotifier(d.Cfg, d.Logger); err != nil {
			return err
		}
	}

	authSvc, err := auth.NewService(auth.OptionsFromConfig(d.Cfg), store, notifier, identitySvc, d.Logger)
	if err != nil {
		return err
	}

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	authHandler := auth.NewHandler(authSvc)
	RegisterAuthRoutes(api, authHandler, d)

	requireSession := middleware.Authenticate(authSvc)
	api.Get("/me", requireSession, authHandler.Me)
	RegisterIdentityRoutes(api, identity.NewHandler(identitySvc), requireSession)

	return nil
}

// newNotifier picks the OTP delivery channel. Logging codes is only allowed in
// local environments.
func newNotifier(cfg config.Config, logger *slog.Logger) (notification.Notifier, error) {
	if cfg.SMSGatewayURL != "" {
		return notification.NewSMSGateway(cfg.SMSGatewayURL, cfg.SMSGatewayToken, cfg.SMSSenderID), nil
	}
	if !cfg.IsDev() {
		return nil, fmt.Errorf("SMS_GATEWAY_URL is required when APP_ENV=%s", cfg.AppEnv)
	}
	logger.Warn("SMS_GATEWAY_URL not set, OTP codes are written to the log")
	return notification.NewLoggerNotifier(logger), nil
}
