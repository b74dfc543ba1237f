package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"vc-gateway/internal/authority"
	"vc-gateway/internal/issuance"
	issuancehandler "vc-gateway/internal/issuance/handler"
	"vc-gateway/internal/ledger"
	ledgermetrics "vc-gateway/internal/ledger/metrics"
	"vc-gateway/internal/platform/config"
	"vc-gateway/internal/platform/database"
	"vc-gateway/internal/platform/health"
	"vc-gateway/internal/platform/httpserver"
	"vc-gateway/internal/platform/kafka"
	"vc-gateway/internal/platform/kafka/producer"
	"vc-gateway/internal/platform/logger"
	platformmetrics "vc-gateway/internal/platform/metrics"
	platformredis "vc-gateway/internal/platform/redis"
	"vc-gateway/internal/reconcile"
	reconcilemetrics "vc-gateway/internal/reconcile/metrics"
	"vc-gateway/internal/stats"
	statshandler "vc-gateway/internal/stats/handler"
	httptransport "vc-gateway/internal/transport/http"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	log.Info("initializing vc-gateway",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"authority_base_url", cfg.AuthorityBaseURL,
		"ledger_backend", cfg.LedgerBackend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthHandler := health.New(cfg.Environment)

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck // shutdown path
		healthHandler.RegisterCheck("redis", redisClient.Health)
	}

	dbPool, err := database.New(cfg.Postgres)
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	if dbPool != nil {
		defer dbPool.Close() //nolint:errcheck // shutdown path
		healthHandler.RegisterCheck("postgres", dbPool.Health)
	}

	store, err := ledgerStore(ctx, cfg, redisClient, dbPool)
	if err != nil {
		log.Error("ledger store init failed", "error", err)
		os.Exit(1)
	}

	var sink ledger.EventSink
	if cfg.Kafka.Brokers != "" {
		kafkaProducer, perr := producer.New(cfg.Kafka, log)
		if perr != nil {
			log.Error("kafka producer init failed", "error", perr)
			os.Exit(1)
		}
		defer kafkaProducer.Close()
		sink = ledger.NewKafkaSink(kafkaProducer, cfg.Kafka.Topic, log)
		healthHandler.RegisterCheck("kafka", kafka.NewHealthChecker(cfg.Kafka.Brokers).Check)
	}

	authorityClient := authority.New(authority.Config{
		BaseURL:       cfg.AuthorityBaseURL,
		RoutingPrefix: cfg.RoutingPrefix,
		BearerToken:   cfg.AuthorityToken,
		Timeout:       cfg.AuthorityTimeout,
		Logger:        log,
	})

	ledgerOpts := []ledger.Option{
		ledger.WithCap(cfg.LedgerCap),
		ledger.WithLogger(log),
		ledger.WithMetrics(ledgermetrics.New()),
		ledger.WithAuthorityLocation(authorityClient.RoutingPrefix(), authorityClient.BaseURL()),
	}
	if sink != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithEventSink(sink))
	}
	ledgerSvc, err := ledger.New(ctx, store, ledgerOpts...)
	if err != nil {
		log.Error("ledger init failed", "error", err)
		os.Exit(1)
	}

	reconciler := reconcile.New(authorityClient,
		reconcile.WithLogger(log),
		reconcile.WithMetrics(reconcilemetrics.New()),
		reconcile.WithPendingPredicate(reconcile.DefaultPendingPredicate(cfg.PendingErrorCodes)),
	)

	issuanceSvc := issuance.New(ledgerSvc, reconciler, authorityClient, log)
	statsSvc := stats.New(ledgerSvc)

	router := httptransport.NewRouter(httptransport.Deps{
		Issuance: issuancehandler.New(issuanceSvc, log),
		Stats:    statshandler.New(statsSvc),
		Health:   healthHandler,
		Metrics:  platformmetrics.New(),
		Logger:   log,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if redisClient != nil {
		g.Go(func() error {
			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					redisClient.RecordPoolStats()
				}
			}
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// ledgerStore picks the snapshot backend from configuration.
func ledgerStore(ctx context.Context, cfg config.Config, redisClient *platformredis.Client, dbPool *database.Pool) (ledger.Store, error) {
	switch cfg.LedgerBackend {
	case "redis":
		if redisClient == nil {
			return nil, errors.New("LEDGER_BACKEND=redis requires REDIS_URL")
		}
		return ledger.NewRedisStore(redisClient.Client, ledger.DefaultRedisKey), nil
	case "postgres":
		if dbPool == nil {
			return nil, errors.New("LEDGER_BACKEND=postgres requires DATABASE_URL")
		}
		return ledger.NewPostgresStore(ctx, dbPool.DB())
	case "memory", "":
		return ledger.NewMemoryStore(), nil
	default:
		return nil, errors.New("unknown LEDGER_BACKEND: " + cfg.LedgerBackend)
	}
}
