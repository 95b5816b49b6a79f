package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tascvd/cvrisk/internal/config"
	"github.com/tascvd/cvrisk/internal/domain/assessment"
	"github.com/tascvd/cvrisk/internal/platform/auth"
	"github.com/tascvd/cvrisk/internal/platform/db"
	"github.com/tascvd/cvrisk/internal/platform/dispatch"
	"github.com/tascvd/cvrisk/internal/platform/embed"
	"github.com/tascvd/cvrisk/internal/platform/geo"
	"github.com/tascvd/cvrisk/internal/platform/metrics"
	"github.com/tascvd/cvrisk/internal/platform/middleware"
	"github.com/tascvd/cvrisk/internal/platform/session"
	"github.com/tascvd/cvrisk/internal/platform/sheets"
)

const (
	sweepInterval   = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
	drainTimeout    = 20 * time.Second
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// app is the assembled server with everything that must be released on
// shutdown.
type app struct {
	echo       *echo.Echo
	dispatcher *dispatch.Dispatcher[*assessment.Submission]
	cancel     context.CancelFunc
	closers    []func()
}

// shutdown stops the HTTP server, drains queued submissions and releases
// connections, in that order.
func (a *app) shutdown(ctx context.Context, logger zerolog.Logger) {
	if err := a.echo.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	pending := a.dispatcher.Pending()
	if err := a.dispatcher.Close(drainCtx); err != nil {
		logger.Warn().Err(err).Int("pending", pending).Msg("submissions not fully drained")
	}

	a.cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp wires every component from cfg. Without DATABASE_URL submissions
// are kept in memory; without REDIS_URL session values are kept in memory.
func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	ctx, cancel := context.WithCancel(ctx)
	a := &app{cancel: cancel}
	fail := func(err error) (*app, error) {
		cancel()
		for i := len(a.closers) - 1; i >= 0; i-- {
			a.closers[i]()
		}
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return fail(err)
	}
	checks := map[string]db.Check{}

	// Submission repository
	var (
		pool *pgxpool.Pool
		repo assessment.SubmissionRepository
	)
	if cfg.DatabaseURL != "" {
		pool, err = db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return fail(fmt.Errorf("connect to database: %w", err))
		}
		a.closers = append(a.closers, pool.Close)
		checks["database"] = pool.Ping
		repo = assessment.NewSubmissionRepoPG(pool)
		logger.Info().Msg("connected to database")
	} else {
		repo = assessment.NewMemoryRepository()
		logger.Warn().Msg("DATABASE_URL not set; submissions are kept in memory")
	}

	// Session values
	var store session.Store
	if cfg.RedisURL != "" {
		rs, err := session.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, func() { rs.Close() })
		checks["redis"] = rs.Ping
		store = rs
		logger.Info().Msg("connected to redis")
	} else {
		ms := session.NewMemoryStore(cfg.SessionTTL)
		go ms.RunSweeper(ctx, sweepInterval)
		store = ms
	}

	issuer, err := session.NewIssuer(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return fail(err)
	}
	geoCache := geo.NewCache(store, logger)
	bridge := embed.NewBridge(cfg.TrustedParents, store, logger)
	m := metrics.New()

	// Submission delivery
	sinks := []dispatch.Sink[*assessment.Submission]{assessment.RepositorySink(repo)}
	sheetsClient := sheets.New(cfg.SheetsWebAppURL, cfg.SheetsTimeout, sheets.WithAPIKey(cfg.SheetsAPIKey))
	if sheetsClient.Enabled() {
		sinks = append(sinks, assessment.SheetsSink(sheetsClient))
	} else {
		logger.Warn().Msg("SHEETS_WEBAPP_URL not set; spreadsheet logging disabled")
	}
	a.dispatcher = dispatch.New(logger, sinks,
		dispatch.WithWorkers(cfg.DispatchWorkers),
		dispatch.WithQueueSize(cfg.DispatchQueue),
		dispatch.WithObserver(m),
	)

	renderer, err := assessment.NewRenderer(cfg.DefaultLang)
	if err != nil {
		return fail(err)
	}
	svc := assessment.NewService(repo, renderer,
		assessment.WithSubmitter(a.dispatcher),
		assessment.WithCoords(geoCache),
		assessment.WithHostResolver(bridge),
		assessment.WithRecorder(m),
		assessment.WithLogger(logger),
		assessment.WithLocation(loc),
	)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(m.Middleware())
	e.Use(middleware.SecurityHeaders(bridge.TrustedOrigins()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{
			"Authorization", "Content-Type", "Accept-Language",
			middleware.RequestIDHeader, session.TokenHeader, embed.OriginHeader, auth.APIKeyHeader,
		},
		ExposeHeaders: []string{middleware.RequestIDHeader, echo.HeaderContentDisposition},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, auth.PublicSkipper))

	e.GET("/health", db.HealthHandler(pool, checks))
	e.GET("/metrics", m.Handler())

	// API group: session first so the rate limiter can key by session.
	apiV1 := e.Group("/api/v1")
	apiV1.Use(session.Middleware(issuer))
	apiV1.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}))

	sessions := apiV1.Group("/sessions")
	session.NewHandler(issuer, embed.RequestHostInfo()).RegisterRoutes(sessions)
	geo.NewHandler(geoCache).RegisterRoutes(sessions)
	embed.NewHandler(bridge).RegisterRoutes(sessions)
	assessment.NewHandler(svc).RegisterRoutes(apiV1, auth.APIKeyMiddleware(auth.NewKeyVerifier(cfg.AdminAPIKey)))

	if cfg.AdminAPIKey == "" {
		logger.Warn().Msg("ADMIN_API_KEY not set; submission listing and export are disabled")
	}

	a.echo = e
	return a, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	a, err := buildApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := a.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.shutdown(ctx, logger)
	logger.Info().Msg("server stopped")
	return nil
}
