package router

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"studiovault/internal/api/v1/handler"
	"studiovault/internal/catalog"
	"studiovault/internal/config"
	"studiovault/internal/database"
	"studiovault/internal/middleware"
	"studiovault/internal/pubsub"
	"studiovault/internal/repository"
	"studiovault/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Services is the wired service layer shared by the API server and the reconciler.
type Services struct {
	Users     service.UserService
	Access    service.AccessService
	Selection service.SelectionService
	Payments  service.PaymentService
	Downloads service.DownloadService
	Admin     service.AdminService

	publisher *pubsub.PubSubPublisher
}

// Close releases clients owned by the service layer.
func (s *Services) Close() {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
}

// NewServices builds repositories and services over pool.
func NewServices(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*Services, error) {
	userRepo := repository.NewUserRepo(pool)
	projectRepo := repository.NewProjectRepo(pool, cfg.DefaultFreeVideoLimit, cfg.DefaultFreeHeadshotLimit)
	contentRepo := repository.NewContentRepo(pool)
	selectionRepo := repository.NewSelectionRepo(pool)
	paymentRepo := repository.NewPaymentRepo(pool)
	entitlementRepo := repository.NewEntitlementRepo(pool)
	downloadRepo := repository.NewDownloadRepo(pool)
	eventRepo := repository.NewWebhookEventRepo(pool)

	cat := catalog.New(cfg.PriceAdditional3VideosCents, cfg.PriceAllContentCents)
	processor := service.NewStripeProcessor(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.ProcessorTimeout(), logger)

	svcs := &Services{}
	deps := service.PaymentServiceDeps{
		Users:     userRepo,
		Projects:  projectRepo,
		Content:   contentRepo,
		Payments:  paymentRepo,
		Events:    eventRepo,
		Catalog:   cat,
		Processor: processor,
		Topic:     cfg.PubSubEntitlementTopic,
		Currency:  cfg.StripeCurrency,
	}
	if cfg.PubSubEntitlementTopic != "" {
		pub, err := pubsub.NewPublisher(ctx, cfg.GCPProjectID)
		if err != nil {
			return nil, fmt.Errorf("creating Pub/Sub publisher: %w", err)
		}
		svcs.publisher = pub
		deps.Publisher = pub
	} else {
		logger.Info().Msg("PUBSUB_ENTITLEMENT_TOPIC not set, entitlement events disabled")
	}

	svcs.Users = service.NewUserService(userRepo)
	svcs.Access = service.NewAccessService(userRepo, contentRepo, selectionRepo, entitlementRepo, cat)
	deps.Access = svcs.Access
	svcs.Selection = service.NewSelectionService(userRepo, projectRepo, contentRepo, selectionRepo, logger)
	svcs.Payments = service.NewPaymentService(deps, logger)
	svcs.Downloads = service.NewDownloadService(contentRepo, downloadRepo, svcs.Access, logger)
	svcs.Admin = service.NewAdminService(projectRepo, contentRepo, paymentRepo, entitlementRepo, logger)
	return svcs, nil
}

// New connects to the database, applies migrations and returns the API handler.
// The returned cleanup closes the pool and service clients.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (http.Handler, func(), error) {
	logger.Info().Str("environment", cfg.Environment).Msg("App environment loaded")

	pool, err := database.Connect(ctx, cfg.DBConnectionString, cfg.DBMaxConns, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBMigrationsEnabled {
		if err := database.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}

	svcs, err := NewServices(ctx, cfg, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	cleanup := func() {
		svcs.Close()
		pool.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, logger)

	return Handler(cfg, svcs, pool, validate, authMiddleware, logger), cleanup, nil
}

// Handler mounts every route on a fresh mux.
func Handler(
	cfg *config.Config,
	svcs *Services,
	db handler.Pinger,
	validate *validator.Validate,
	authMiddleware func(http.Handler) http.Handler,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Create a subrouter for API v1
	apiV1Mux := http.NewServeMux()
	handler.NewUserHandler(svcs.Users, validate, logger).RegisterRoutes(apiV1Mux, authMiddleware)
	handler.NewContentHandler(svcs.Selection, svcs.Payments, svcs.Access, svcs.Downloads, validate, logger).RegisterRoutes(apiV1Mux, authMiddleware)
	handler.NewProjectHandler(svcs.Selection, svcs.Payments, svcs.Access, validate, logger).RegisterRoutes(apiV1Mux, authMiddleware)
	handler.NewAdminHandler(svcs.Admin, logger).RegisterRoutes(apiV1Mux, authMiddleware)
	handler.NewWebhookHandler(svcs.Payments, logger).RegisterRoutes(apiV1Mux)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))
	handler.NewHealthHandler(db, logger).RegisterRoutes(mux)

	// Redirect /api/* to /v1/* for backward compatibility
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		rest := strings.TrimPrefix(r.URL.Path, "/api/")
		http.Redirect(w, r, "/v1/"+rest, http.StatusPermanentRedirect)
	})

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Stripe-Signature"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(logger)(c.Handler(mux))
}
