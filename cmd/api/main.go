// Package main is the entrypoint for the contact bridge API server.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/contactbridge/contactbridge/internal/activity"
	"github.com/contactbridge/contactbridge/internal/brevo"
	"github.com/contactbridge/contactbridge/internal/cache"
	"github.com/contactbridge/contactbridge/internal/chatwoot"
	"github.com/contactbridge/contactbridge/internal/config"
	"github.com/contactbridge/contactbridge/internal/handler"
	"github.com/contactbridge/contactbridge/internal/metrics"
	"github.com/contactbridge/contactbridge/internal/middleware"
	"github.com/contactbridge/contactbridge/internal/server"
	"github.com/contactbridge/contactbridge/internal/service"
	"github.com/contactbridge/contactbridge/internal/upstream"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)
	metricsRecorder := metrics.NewInMemory()

	// Optional Redis: list cache and activity stream
	var (
		cacheClient *cache.Cache
		events      *activity.Publisher
		listCache   service.ListCache
		publisher   service.EventPublisher
		redisCheck  handler.HealthChecker
	)
	if cfg.RedisURL != "" {
		cacheClient, err = cache.New(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		listCache = cacheClient
		events = activity.NewPublisher(cacheClient.Client(), logger, metricsRecorder)
		publisher = events
		redisCheck = cacheClient
		logger.Info("connected to Redis", slog.String("redis_url", redactURL(cfg.RedisURL)))
	} else {
		logger.Info("REDIS_URL not set; list cache and activity stream disabled")
	}

	httpClient := upstream.NewHTTPClient(cfg.UpstreamTimeout)

	brevoClient := brevo.NewClient(brevo.Options{
		APIKey:     cfg.BrevoAPIKey,
		BaseURL:    cfg.BrevoAPIURL,
		Timeout:    cfg.UpstreamTimeout,
		HTTPClient: httpClient,
		Logger:     logger,
		Metrics:    metricsRecorder,
	})
	contactService := service.NewContactService(service.ContactServiceOptions{
		Brevo:     brevoClient,
		Cache:     listCache,
		ListsTTL:  cfg.ListsCacheTTL,
		Publisher: publisher,
		Metrics:   metricsRecorder,
		Logger:    logger,
	})

	// A nil adapter leaves resolution disabled
	var chatwootAPI service.ChatwootAPI
	if cfg.ChatwootConfigured() {
		chatwootAPI = chatwoot.NewClient(chatwoot.Options{
			BaseURL:    cfg.ChatwootURL,
			APIToken:   cfg.ChatwootToken(),
			AccountID:  cfg.ChatwootAccountID,
			Timeout:    cfg.UpstreamTimeout,
			HTTPClient: httpClient,
			Logger:     logger,
			Metrics:    metricsRecorder,
		})
	} else {
		logger.Warn("CHATWOOT_URL or CHATWOOT_API_KEY is not set; Chatwoot contact resolution is disabled")
	}
	resolverService := service.NewResolverService(chatwootAPI, logger, metricsRecorder)

	if cfg.APIToken == "" {
		logger.Warn("CHATWOOT_API_TOKEN is not set; /api routes are unauthenticated")
	} else if !cfg.EnforceAuth() {
		logger.Warn("AUTH_MODE=log: invalid API tokens are logged but not rejected; use only in development")
	}

	handlers := routerHandlers{
		base:      handler.New(),
		health:    handler.NewHealthHandler(contactService.BrevoConfigured(), resolverService.Configured(), redisCheck),
		brevo:     handler.NewBrevoHandler(contactService, logger),
		chatwoot:  handler.NewChatwootHandler(resolverService, logger),
		dashboard: handler.NewDashboardHandler(cfg.PublicDir),
		metrics:   handler.NewMetricsHandler(metricsRecorder),
	}
	if !handlers.dashboard.Available() {
		logger.Warn("dashboard page not found", "public_dir", cfg.PublicDir, "file", handler.DashboardPage)
	}

	r := setupRouter(handlers, cfg, logger)

	srv := server.New(r, server.Options{
		Port:            cfg.Port,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	// Hooks run in reverse order: pending events drain before Redis closes.
	if cacheClient != nil {
		srv.OnShutdown("redis", func(ctx context.Context) error {
			return cacheClient.Close()
		})
		srv.OnShutdown("activity", events.Drain)
	}
	srv.OnShutdown("upstream_http", func(ctx context.Context) error {
		httpClient.CloseIdleConnections()
		return nil
	})

	logger.Info("starting server",
		"port", cfg.Port,
		"env", cfg.AppEnv,
		"brevo_url", redactURL(cfg.BrevoAPIURL),
		"chatwoot_url", redactURL(cfg.ChatwootURL),
		"chatwoot_configured", resolverService.Configured(),
		"auth_mode", cfg.AuthMode,
	)

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routerHandlers struct {
	base      *handler.Handler
	health    *handler.HealthHandler
	brevo     *handler.BrevoHandler
	chatwoot  *handler.ChatwootHandler
	dashboard *handler.DashboardHandler
	metrics   *handler.MetricsHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(h routerHandlers, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	securityCfg := middleware.SecurityConfig{
		IsDevelopment:      cfg.IsDevelopment(),
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}
	if origin := cfg.ChatwootOrigin(); origin != "" {
		securityCfg.FrameAncestors = []string{origin}
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(securityCfg))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(securityCfg.MaxRequestBodySize))

	// Probes and metrics (no auth required)
	r.Get("/health", h.health.Health)
	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	r.Get("/metrics", h.metrics.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(middleware.AuthConfig{
			Logger:  logger,
			Token:   cfg.APIToken,
			Enforce: cfg.EnforceAuth(),
		}))

		r.Get("/chatwoot/contact", h.chatwoot.ResolveContact)

		r.Route("/brevo", func(r chi.Router) {
			r.Get("/contact/{email}", h.brevo.GetContact)
			r.Put("/contact/{email}", h.brevo.UpdateContact)
			r.Post("/contact", h.brevo.UpsertContact)
			r.Post("/subscribe", h.brevo.Subscribe)
			r.Get("/lists", h.brevo.Lists)
		})
	})

	// Dashboard app
	dashboard := middleware.Dashboard(securityCfg)
	r.With(dashboard).Get("/chatwoot", h.dashboard.Page)

	// Unmatched GETs fall back to public assets; everything else is a JSON 404
	assets := dashboard(http.HandlerFunc(h.dashboard.Assets))
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		if (req.Method == http.MethodGet || req.Method == http.MethodHead) && h.dashboard.HasAsset(req.URL.Path) {
			assets.ServeHTTP(w, req)
			return
		}
		h.base.NotFound(w, req)
	})
	r.MethodNotAllowed(h.base.MethodNotAllowed)

	return r
}

var secretParamPattern = regexp.MustCompile(`(?i)(password|api_key|token)=[^\s&]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}
	parsed.RawQuery = secretParamPattern.ReplaceAllString(parsed.RawQuery, "$1=redacted")

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return secretParamPattern.ReplaceAllString(msg, "$1=redacted")
}
