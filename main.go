package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"tajwid-academy/config"
	"tajwid-academy/database"
	accessapi "tajwid-academy/internal/api/access"
	adminapi "tajwid-academy/internal/api/admin"
	authapi "tajwid-academy/internal/api/auth"
	"tajwid-academy/internal/api/billing"
	cronapi "tajwid-academy/internal/api/cron"
	"tajwid-academy/internal/api/levels"
	"tajwid-academy/internal/api/progress"
	stripewebhooks "tajwid-academy/internal/api/stripewebhook"
	"tajwid-academy/internal/api/users"
	routes "tajwid-academy/internal/app/http"
	"tajwid-academy/internal/app/http/middleware"
	"tajwid-academy/internal/identity"
	"tajwid-academy/internal/infra/store"
	"tajwid-academy/internal/infra/stripe"
	"tajwid-academy/internal/lib/sl"
	"tajwid-academy/internal/lifecycle"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		fx.Provide(
			config.Load,
			provideLogger,
			provideDB,
			store.New,
			provideGateway,
			provideResolver,
			provideLifecycle,
			provideRateLimiter,
			provideHandlers,
			provideRouter,
		),
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),
		fx.Invoke(StartServer, StartTrialSweeper, StartLimiterCleanup),
	)

	app.Run()
}

func provideLogger(cfg *config.Config) *slog.Logger {
	return sl.New(cfg.Env)
}

func provideDB(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	return database.Open(cfg, log)
}

func provideGateway(cfg *config.Config) *stripe.Gateway {
	return stripe.NewGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.StripeProductID)
}

func provideResolver(cfg *config.Config) *identity.Resolver {
	return identity.NewResolver(cfg.JWTSecret, cfg.ProfessorJWTSecret)
}

func provideLifecycle(cfg *config.Config, st *store.Store, gw *stripe.Gateway, log *slog.Logger) *lifecycle.Manager {
	return lifecycle.New(st, gw, log, cfg.TrialDays)
}

func provideRateLimiter() *middleware.RateLimiter {
	return middleware.NewRateLimiter(1, 5)
}

func provideHandlers(
	cfg *config.Config,
	log *slog.Logger,
	st *store.Store,
	gw *stripe.Gateway,
	ids *identity.Resolver,
	mgr *lifecycle.Manager,
) routes.Handlers {
	var google *authapi.Google
	if cfg.GoogleEnabled() {
		google = authapi.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.GoogleFrontendRedirect)
	}

	return routes.Handlers{
		Auth:     authapi.New(st, mgr, ids, google, cfg.Env != "local", log),
		Users:    users.New(st, log),
		Billing:  billing.New(gw, st, mgr, cfg.AppURL, log),
		Webhook:  stripewebhooks.New(gw, st, mgr, log),
		Cron:     cronapi.New(mgr, log),
		Levels:   levels.New(gw, st, log),
		Access:   accessapi.New(st, log),
		Progress: progress.New(st, cfg.SSEPingInterval, log),
		Admin:    adminapi.New(st, mgr, log),
	}
}

func provideRouter(
	cfg *config.Config,
	log *slog.Logger,
	h routes.Handlers,
	st *store.Store,
	ids *identity.Resolver,
	rl *middleware.RateLimiter,
) *gin.Engine {
	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, h, routes.Guards{
		Identity:   ids,
		Accounts:   st,
		Limiter:    rl,
		CronSecret: cfg.CronSecret,
		Log:        log,
	})

	return r
}

func StartServer(lc fx.Lifecycle, cfg *config.Config, engine *gin.Engine, log *slog.Logger) {
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("starting HTTP server", slog.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("HTTP server stopped", sl.Err(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("stopping HTTP server")
			return srv.Shutdown(ctx)
		},
	})
}

// StartTrialSweeper runs the trial expiry sweep in-process when
// TRIAL_SWEEP_INTERVAL is set. The cron endpoint works either way.
func StartTrialSweeper(lc fx.Lifecycle, cfg *config.Config, mgr *lifecycle.Manager, log *slog.Logger) {
	if cfg.TrialSweepInterval <= 0 {
		return
	}
	every(lc, cfg.TrialSweepInterval, func(ctx context.Context) {
		if _, err := mgr.SweepExpiredTrials(ctx); err != nil {
			log.Error("scheduled trial sweep failed", sl.Err(err))
		}
	})
}

func StartLimiterCleanup(lc fx.Lifecycle, rl *middleware.RateLimiter) {
	every(lc, time.Minute, func(context.Context) {
		rl.Cleanup(10 * time.Minute)
	})
}

// every runs fn on a ticker between the app's start and stop hooks.
func every(lc fx.Lifecycle, interval time.Duration, fn func(ctx context.Context)) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						fn(ctx)
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
