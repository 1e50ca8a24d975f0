package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"linkgate/internal/analytics"
	"linkgate/internal/cache"
	"linkgate/internal/codegen"
	"linkgate/internal/config"
	"linkgate/internal/controllers"
	"linkgate/internal/database"
	"linkgate/internal/gate"
	"linkgate/internal/logging"
	"linkgate/internal/middleware"
	"linkgate/internal/ratelimit"
	"linkgate/internal/repository"
	"linkgate/internal/repository/memory"
	"linkgate/internal/service"
)

// stores bundles the repository implementations selected at startup.
type stores struct {
	links    repository.LinkRepository
	clicks   repository.ClickRepository
	stats    repository.StatsRepository
	settings repository.SettingsRepository
}

func main() {
	// Load configuration
	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := cfg.Validate(); err != nil {
		logging.Fatal().Err(err).Msg("invalid configuration")
	}
	loc, _ := cfg.Location()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthChecks := make(map[string]controllers.HealthCheck)

	// Connect to the link store
	var st stores
	if cfg.DatabaseURL == config.MemoryDatabaseURL {
		logging.Warn().Msg("using in-memory store, data is lost on restart")
		mem := memory.NewStore()
		st = stores{links: mem, clicks: mem, stats: mem, settings: mem}
	} else {
		db, err := database.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if err := database.RunMigrations(ctx, db); err != nil {
			logging.Fatal().Err(err).Msg("failed to run migrations")
		}
		st = postgresStores(db)
		healthChecks["database"] = db.PingContext
	}

	// Redis is optional: without it counters and settings live per process.
	var (
		cacheClient  cache.Cache = cache.Nop{}
		counterStore ratelimit.CounterStore
	)
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			logging.Warn().Err(err).Msg("failed to connect to Redis, continuing without shared cache")
		} else {
			defer redisCache.Close()
			logging.Info().Msg("connected to Redis")
			cacheClient = redisCache
			counterStore = ratelimit.NewRedisStore(redisCache.Client())
			healthChecks["redis"] = redisCache.Ping
		}
	}
	if counterStore == nil {
		counterStore = ratelimit.NewMemoryStore()
	}

	// Site mode and access tokens
	tokens := gate.NewTokenIssuer(cfg.SiteTokenSecret, cfg.SiteTokenTTL)
	siteService := service.NewSiteService(st.settings, cacheClient, tokens, cfg.CacheTTL)

	// Click analytics run in the background and drain on shutdown
	recorder := analytics.NewRecorder(st.clicks, analytics.RecorderConfig{
		Buffer:        cfg.AnalyticsBuffer,
		BatchSize:     cfg.AnalyticsBatchSize,
		FlushInterval: cfg.AnalyticsFlush,
	})
	recorderCtx, stopRecorder := context.WithCancel(context.Background())
	recorderDone := make(chan struct{})
	go func() {
		defer close(recorderDone)
		recorder.Run(recorderCtx)
	}()

	siteGate := gate.New(siteService, tokens)

	aggregator := analytics.NewAggregator(st.stats, analytics.AggregatorConfig{
		Location:   loc,
		WindowDays: cfg.StatsWindowDays,
		TopN:       cfg.StatsTopN,
	})

	// Initialize services
	linkService := service.NewLinkService(
		st.links,
		cacheClient,
		codegen.NewGenerator(cfg.CodeLength, cfg.CodeMaxAttempts),
		ratelimit.New("create", counterStore, cfg.CreateRateLimit, cfg.CreateRateWindow),
		siteGate,
		recorder,
		service.LinkServiceConfig{SelfHost: hostOf(cfg.BaseURL), CacheTTL: cfg.CacheTTL},
	)
	adminService := service.NewAdminService(st.links, cacheClient, cfg.CleanupGrace)

	router := controllers.NewRouter(controllers.RouterDeps{
		BaseURL:         cfg.BaseURL,
		AdminToken:      cfg.AdminToken,
		CORSOrigins:     cfg.CORSOrigins,
		TrustedProxies:  cfg.TrustedProxies,
		Links:           linkService,
		Admin:           adminService,
		Site:            siteService,
		Aggregator:      aggregator,
		SiteGate:        siteGate,
		PasswordLimiter: middleware.NewRateLimiter(ctx, "password", rate.Limit(cfg.VerifyRateRPS), cfg.VerifyRateBurst),
		HealthChecks:    healthChecks,
	})
	if cfg.AdminToken == "" {
		logging.Warn().Msg("ADMIN_TOKEN is not set, admin API is disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", srv.Addr).Str("base_url", cfg.BaseURL).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}

	stopRecorder()
	select {
	case <-recorderDone:
	case <-shutdownCtx.Done():
		logging.Warn().Msg("click recorder did not drain in time")
	}
	logging.Info().Msg("server stopped")
}

func postgresStores(db *sql.DB) stores {
	return stores{
		links:    repository.NewLinkRepository(db),
		clicks:   repository.NewClickRepository(db),
		stats:    repository.NewStatsRepository(db),
		settings: repository.NewSettingsRepository(db),
	}
}

// hostOf returns the host short links are served under, so links to
// ourselves can be refused.
func hostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
