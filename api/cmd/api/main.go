package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/telhawk-systems/fwlens/api/internal/auth"
	"github.com/telhawk-systems/fwlens/api/internal/handlers"
	apinats "github.com/telhawk-systems/fwlens/api/internal/nats"
	"github.com/telhawk-systems/fwlens/api/internal/ratelimit"
	"github.com/telhawk-systems/fwlens/api/internal/server"
	"github.com/telhawk-systems/fwlens/api/internal/service"
	"github.com/telhawk-systems/fwlens/common/config"
	"github.com/telhawk-systems/fwlens/common/httputil"
	"github.com/telhawk-systems/fwlens/common/logging"
	"github.com/telhawk-systems/fwlens/common/messaging"
	natsclient "github.com/telhawk-systems/fwlens/common/messaging/nats"
	"github.com/telhawk-systems/fwlens/common/middleware"
	"github.com/telhawk-systems/fwlens/common/opensearch"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	addr := flag.String("addr", "", "override listen address")
	flag.Parse()

	config.MustLoad(*configPath)
	cfg := config.GetConfig()

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("fwlens-api"))
	logging.SetDefault(logger)

	listenAddr := cfg.Server.Addr()
	if *addr != "" {
		listenAddr = *addr
	}

	slog.Info("Starting fwlens API",
		slog.String("addr", listenAddr),
		slog.String("index_pattern", cfg.OpenSearch.IndexPattern),
		slog.String("log_level", cfg.Logging.Level),
	)

	osClient, err := opensearch.New(cfg.OpenSearch)
	if err != nil {
		slog.Error("Failed to create OpenSearch client", logging.Error(err))
		os.Exit(1)
	}
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := osClient.Ping(pingCtx); err != nil {
		slog.Warn("OpenSearch not reachable yet (readiness will report it)",
			slog.String("url", cfg.OpenSearch.URL),
			logging.Error(err))
	} else {
		slog.Info("Connected to OpenSearch", slog.String("url", cfg.OpenSearch.URL))
	}
	pingCancel()

	svc := service.NewAnalysisService(cfg.Pipeline(osClient), nil, logger)

	users, err := auth.NewUserStore(cfg.Auth.Users)
	if err != nil {
		slog.Error("Invalid auth users", logging.Error(err))
		os.Exit(1)
	}
	if users.Len() == 0 {
		slog.Warn("No users configured, every login will be rejected")
	}
	if cfg.Auth.UsesDefaultSecret() {
		slog.Warn("Using the default JWT secret, anyone can forge tokens; set FWLENS_AUTH_JWT_SECRET")
	}
	tokens := auth.NewTokenGenerator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL)

	proxies, err := httputil.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		slog.Error("Invalid server.trusted_proxies", logging.Error(err))
		os.Exit(1)
	}

	limiter := buildRateLimiter(cfg)
	defer func() {
		if err := limiter.Close(); err != nil {
			slog.Warn("Failed to close rate limiter", logging.Error(err))
		}
	}()

	// NATS is optional; the API works without it
	var (
		natsClient  *natsclient.Client
		natsHandler *apinats.Handler
		bus         messaging.Client
	)
	if cfg.NATS.Enabled {
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.Name = "fwlens-api"
		natsCfg.MaxReconnects = cfg.NATS.MaxReconnects
		natsCfg.ReconnectWait = cfg.NATS.ReconnectWait

		natsClient, err = natsclient.NewClient(natsCfg)
		if err != nil {
			slog.Warn("Failed to connect to NATS (continuing without NATS)",
				slog.String("url", cfg.NATS.URL),
				logging.Error(err))
		} else {
			slog.Info("Connected to NATS", slog.String("url", cfg.NATS.URL))
			bus = natsClient
			svc.SetPublisher(apinats.NewPublisher(natsClient))

			natsHandler = apinats.NewHandler(natsClient, svc)
			if err := natsHandler.Start(context.Background()); err != nil {
				slog.Warn("Failed to start NATS handler", logging.Error(err))
				natsHandler = nil
			}
		}
	} else {
		slog.Info("NATS messaging disabled")
	}

	router := server.NewRouter(server.Handlers{
		Auth:     handlers.NewAuthHandler(users, tokens, limiter, proxies, logger),
		Analysis: handlers.NewAnalysisHandler(svc),
		Health:   handlers.NewHealthHandler(osClient, bus),
		AuthMW:   auth.NewMiddleware(tokens),
	}, middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins), logger.Logger)

	srv := &http.Server{
		Addr:         listenAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("fwlens API listening", slog.String("addr", listenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", logging.Error(err))
			os.Exit(1)
		}
	}()

	<-shutdownCtx.Done()
	slog.Info("Shutdown signal received")

	if natsHandler != nil {
		if err := natsHandler.Stop(); err != nil {
			slog.Warn("NATS handler shutdown error", logging.Error(err))
		}
	}
	if natsClient != nil {
		if err := natsClient.Drain(); err != nil {
			slog.Warn("NATS drain error", logging.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Graceful shutdown failed", logging.Error(err))
	}
}

func buildRateLimiter(cfg *config.Config) ratelimit.RateLimiter {
	if !cfg.RateLimit.Enabled || !cfg.Redis.Enabled {
		slog.Info("Login rate limiting disabled")
		return &ratelimit.NoOpRateLimiter{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := ratelimit.Connect(ctx, cfg.Redis.URL, cfg.Redis.MaxRetries, cfg.Redis.PoolSize)
	if err != nil {
		slog.Warn("Failed to connect to Redis (login rate limiting disabled)", logging.Error(err))
		return &ratelimit.NoOpRateLimiter{}
	}

	slog.Info("Login rate limiting enabled",
		slog.Int("max_failures", cfg.RateLimit.Requests),
		slog.Duration("window", cfg.RateLimit.Window))
	return ratelimit.NewRedisRateLimiter(client, cfg.RateLimit.Requests, cfg.RateLimit.Window)
}
