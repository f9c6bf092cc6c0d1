package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"topcharger/internal/audit"
	"topcharger/internal/authority"
	"topcharger/internal/charger"
	"topcharger/internal/identity"
	"topcharger/internal/matching"
	"topcharger/internal/platform/config"
	"topcharger/internal/platform/httpserver"
	"topcharger/internal/platform/logger"
	"topcharger/internal/platform/metrics"
	"topcharger/internal/platform/postgres"
	"topcharger/internal/platform/redis"
	"topcharger/internal/ratelimit"
	"topcharger/internal/recordstore"
	httptransport "topcharger/internal/transport/http"
	"topcharger/pkg/platform/circuit"
)

const auditQueueSize = 1024

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	if cfg.UsesDevSigningKey() {
		log.Warn("JWT_SIGNING_KEY not set, using the development key")
	}

	records, health, closeStore, err := buildStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	delegations, err := buildDelegations(cfg)
	if err != nil {
		return err
	}

	auditSink, closeAudit, err := buildAuditSink(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeAudit()
	queue := audit.NewQueueStore(auditQueueSize)
	publisher := audit.NewPublisher(queue)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	users := identity.New(records,
		identity.WithLogger(log),
		identity.WithAuditPublisher(publisher),
		identity.WithMetrics(identity.NewMetrics(reg)),
		identity.WithDelegations(delegations),
	)
	chargers := charger.New(records, users,
		charger.WithLogger(log),
		charger.WithAuditPublisher(publisher),
		charger.WithMetrics(charger.NewMetrics(reg)),
	)
	matches := matching.New(records, users,
		matching.WithLogger(log),
		matching.WithAuditPublisher(publisher),
		matching.WithMetrics(matching.NewMetrics(reg)),
		matching.WithAutoRelease(cfg.MatchAutoRelease),
	)

	var writeLimiter *ratelimit.SlidingWindow
	if cfg.WriteRateLimit > 0 {
		writeLimiter = ratelimit.NewSlidingWindow(cfg.WriteRateLimit, cfg.WriteRateWindow)
	}

	deps := httptransport.Dependencies{
		Users:          users,
		Chargers:       chargers,
		Matches:        matches,
		Verifier:       authority.NewTokenService(cfg.JWTSigningKey, cfg.JWTIssuer),
		Logger:         log,
		Metrics:        metrics.New(reg),
		Health:         health,
		RequestTimeout: cfg.RequestTimeout,
		TrustProxy:     cfg.TrustProxy,
	}
	if writeLimiter != nil {
		deps.WriteLimiter = writeLimiter
		deps.RateLimitMetrics = ratelimit.NewMetrics(reg)
	}
	router := httptransport.NewRouter(deps)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return audit.NewWorker(auditSink, queue.Inbox(), log).Run(ctx)
	})
	if writeLimiter != nil {
		g.Go(func() error {
			return writeLimiter.Run(ctx, cfg.WriteRateWindow)
		})
	}
	g.Go(func() error {
		log.Info("starting topcharger", "addr", cfg.Addr, "store", cfg.StoreBackend)
		return httpserver.Run(ctx, httpserver.New(cfg.Addr, router), cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		log.Info("serving metrics", "addr", cfg.MetricsAddr)
		return httpserver.Run(ctx, httpserver.New(cfg.MetricsAddr, metrics.Handler(reg)), cfg.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

func buildStore(ctx context.Context, cfg config.Server, log *slog.Logger) (recordstore.Store, httptransport.HealthCheck, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		client, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				log.Warn("closing redis client failed", "error", err)
			}
		}
		return recordstore.NewRedis(client.Client), client.Health, closeFn, nil

	case config.BackendPostgres:
		pool, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		store := recordstore.NewPostgres(pool.Pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("migrate records table: %w", err)
		}
		return store, pool.Health, pool.Close, nil

	default:
		log.Warn("using the in-memory record store, state is lost on restart")
		return recordstore.NewMemory(), nil, func() {}, nil
	}
}

func buildDelegations(cfg config.Server) (authority.Delegations, error) {
	if cfg.DelegationsFile == "" {
		return authority.NewStaticDelegations(nil, nil), nil
	}
	d, err := authority.LoadDelegations(cfg.DelegationsFile)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// buildAuditSink publishes to Kafka when brokers are configured and falls
// back to the structured log otherwise. A failing broker trips a breaker
// that diverts events to the log until Kafka answers again.
func buildAuditSink(ctx context.Context, cfg config.Server, log *slog.Logger) (audit.Store, func(), error) {
	if len(cfg.AuditBrokers) == 0 {
		return audit.NewLogStore(log), func() {}, nil
	}
	sink, err := audit.NewKafkaStore(cfg.AuditBrokers, cfg.AuditTopic)
	if err != nil {
		return nil, nil, err
	}
	if err := sink.EnsureTopic(ctx, 1, 1); err != nil {
		sink.Close()
		return nil, nil, fmt.Errorf("ensure audit topic: %w", err)
	}
	breaker := circuit.New("audit-kafka", circuit.WithFailureThreshold(5), circuit.WithCooldown(30*time.Second))
	return audit.NewFallbackStore(sink, audit.NewLogStore(log), breaker, log), sink.Close, nil
}
