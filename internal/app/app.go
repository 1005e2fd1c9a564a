// Package app assembles the license server: configuration, logging,
// metrics, the sheet-backed store, the license core, and the HTTP router,
// plus the background reminder sweeper.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"idmeapi/internal/config"
	"idmeapi/internal/infrastructure"
	"idmeapi/internal/license"
	"idmeapi/internal/mail"
	"idmeapi/internal/middleware"
	"idmeapi/internal/services"
	"idmeapi/internal/sheetstore"
	httptransport "idmeapi/internal/transport/http"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// Application holds the composed server and its dependencies.
type Application struct {
	Config *config.Config
	Logger *slog.Logger
	Server *http.Server

	otel    *infrastructure.OTelProviders
	store   *sheetstore.Store
	sweeper *services.ReminderSweeper
	limiter *middleware.RateLimiter
}

// New builds the application from configuration.
func New(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	otelProviders, err := infrastructure.InitializeOTel(logger)
	if err != nil {
		return nil, fmt.Errorf("initialize metrics: %w", err)
	}

	metrics, err := infrastructure.NewLicenseMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("create license metrics: %w", err)
	}

	store, err := sheetstore.New(ctx, cfg.Sheets, logger)
	if err != nil {
		return nil, fmt.Errorf("create sheet store: %w", err)
	}

	licenseCfg := license.Config{
		DurationDays: cfg.License.DurationDays,
		ReminderDays: cfg.License.ReminderDays,
		PriceRM:      cfg.License.PriceRM,
		AdminEmail:   cfg.License.AdminEmail,
		SupportURL:   cfg.License.SupportURL,
	}

	mailer := mail.New(cfg.Mail, licenseCfg, logger)

	validator := license.NewValidator(store, licenseCfg, logger)
	issuer := license.NewIssuer(store, license.NewKeyGenerator(store), licenseCfg, notifierOrNil(mailer), logger)
	svc := services.NewLicenseService(validator, issuer, store, logger, metrics)

	var sender services.ReminderSender
	if mailer != nil {
		sender = mailer
	}
	sweeper := services.NewReminderSweeper(store, sender, licenseCfg, logger, metrics)

	a := &Application{
		Config:  cfg,
		Logger:  logger,
		otel:    otelProviders,
		store:   store,
		sweeper: sweeper,
	}

	a.Server = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      a.router(svc),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return a, nil
}

// notifierOrNil keeps a typed-nil *mail.Mailer from sneaking into the
// license.Notifier interface.
func notifierOrNil(m *mail.Mailer) license.Notifier {
	if m == nil {
		return nil
	}
	return m
}

func (a *Application) router(svc services.LicenseService) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(a.Logger))
	r.Use(middleware.Recoverer(a.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(a.Config.Server.AllowedOrigins))
	r.Use(middleware.Compress(5))

	if a.Config.Security.RateLimit.Enabled {
		a.limiter = middleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		)
		r.Use(a.limiter.Handler)
	}

	licenseHandler := httptransport.NewLicenseHandler(svc, a.Logger)
	purchaseHandler := httptransport.NewPurchaseHandler(svc, a.Logger)
	adminHandler := httptransport.NewAdminHandler(svc, a.Logger)
	healthHandler := httptransport.NewHealthHandler(a.store, Version, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(chimiddleware.Timeout(a.Config.Server.ReadTimeout))

		r.Mount("/license", licenseHandler.Routes())
		r.Mount("/purchase", purchaseHandler.Routes())
		r.Mount("/health", healthHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(middleware.AdminAuth(a.Config.Security.AdminKeyHash, a.Logger))
			r.Mount("/admin", adminHandler.Routes())
		})
	})

	r.Method(http.MethodGet, "/metrics", a.otel.PrometheusHTTP)

	return r
}

// Run starts the HTTP server and the reminder sweeper and blocks until a
// shutdown signal arrives or a component fails.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("server starting",
			slog.String("addr", a.Server.Addr),
			slog.String("version", Version))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.sweeper.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

func (a *Application) shutdown() error {
	a.Logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var firstErr error
	if err := a.Server.Shutdown(ctx); err != nil {
		firstErr = fmt.Errorf("server shutdown: %w", err)
	}
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if err := a.otel.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("metrics shutdown: %w", err)
	}
	infrastructure.CloseLogFile()
	return firstErr
}
