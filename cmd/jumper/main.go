// @title           Jumper Challenge API
// @version         1.0
// @description     Sign-In with Ethereum sessions and ERC-20 token listings.
// @BasePath        /
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/dshuvalov/jumper-challenge/adapters/alchemy"
	"github.com/dshuvalov/jumper-challenge/adapters/cookiesession"
	"github.com/dshuvalov/jumper-challenge/adapters/events"
	"github.com/dshuvalov/jumper-challenge/adapters/store"
	"github.com/dshuvalov/jumper-challenge/adapters/verifier"
	"github.com/dshuvalov/jumper-challenge/config"
	"github.com/dshuvalov/jumper-challenge/ports"
	"github.com/dshuvalov/jumper-challenge/service"
	transport "github.com/dshuvalov/jumper-challenge/transport/http"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts)).With("service", "jumper")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Session store and event publisher
	sessionStore, publisher, closeBackend, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBackend()

	// Token provider
	providerURL := cfg.AlchemyURL
	if providerURL == "" {
		providerURL = alchemy.URL(cfg.AlchemyNetwork, cfg.AlchemyAPIKey)
	}
	provider, err := alchemy.Dial(ctx, providerURL, cfg.ProviderTimeout, cfg.TokensPageSize)
	if err != nil {
		return err
	}
	defer provider.Close()

	sessions, err := cookiesession.NewManager(sessionStore, cfg.AuthSecret, cfg.SessionTTL(),
		cookiesession.WithSecure(cfg.CookieSecure),
	)
	if err != nil {
		return err
	}

	authService, err := service.NewAuthService(
		verifier.NewVerifier(ethclient.NewClient(provider.RPC())),
		events.NewWatermillPublisher(publisher),
		logger,
		service.WithDomain(cfg.SIWEDomain),
		service.WithNonceInvalidation(cfg.NonceInvalidateOnFailure),
	)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	rateLimiter := transport.NewRateLimiter(cfg.RateLimitMaxRequests, cfg.RateLimitWindow())
	go sweepRateLimiter(ctx, rateLimiter)

	router := transport.SetupRouter(transport.Dependencies{
		AuthService:    authService,
		WalletService:  service.NewWalletService(provider, logger, cfg.TokensMetadataConcurrency),
		Sessions:       sessions,
		Policy:         service.NewAccessPolicy(service.DefaultPublicPaths, service.DefaultPublicPrefixes),
		Store:          sessionStore,
		Metrics:        transport.NewMetrics(registry),
		RateLimiter:    rateLimiter,
		TrustedProxies: cfg.TrustedProxies,
		Logger:         logger,
	})

	servers := []*http.Server{{
		Addr:              cfg.Addr(),
		Handler:           transport.WithCORS(router, cfg.CORSOrigin),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down server", "addr", srv.Addr, "error", err)
		}
	}

	return serveErr
}

// newBackend selects Redis when REDIS_URL is set and in-process state otherwise
func newBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ports.SessionStore, message.Publisher, func(), error) {
	wmLogger := watermill.NewSlogLogger(logger)

	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, sessions are kept in memory")
		pubSub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
		memStore := store.NewMemoryStore()
		go sweepSessions(ctx, memStore)
		return memStore, pubSub, func() { _ = pubSub.Close() }, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, wmLogger)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("failed to create redis publisher: %w", err)
	}

	closeFn := func() {
		_ = publisher.Close()
		_ = client.Close()
	}
	return store.NewRedisStore(client), publisher, closeFn, nil
}

func sweepRateLimiter(ctx context.Context, rl *transport.RateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.Cleanup(5 * time.Minute)
		case <-ctx.Done():
			return
		}
	}
}

func sweepSessions(ctx context.Context, s *store.MemoryStore) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-ctx.Done():
			return
		}
	}
}
