package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"agentconsent/internal/audit"
	"agentconsent/internal/auth"
	"agentconsent/internal/consent/handler"
	consentmetrics "agentconsent/internal/consent/metrics"
	"agentconsent/internal/consent/service"
	"agentconsent/internal/consent/store"
	"agentconsent/internal/consent/workers/expiry"
	"agentconsent/internal/notification/factory"
	"agentconsent/internal/platform/config"
	"agentconsent/internal/platform/database"
	"agentconsent/internal/platform/health"
	"agentconsent/internal/platform/kafka"
	"agentconsent/internal/platform/kafka/producer"
	platformredis "agentconsent/internal/platform/redis"
	"agentconsent/internal/platform/tracer"
	ratelimitmetrics "agentconsent/internal/ratelimit/metrics"
	ratelimitmw "agentconsent/internal/ratelimit/middleware"
	ratelimitmodels "agentconsent/internal/ratelimit/models"
	"agentconsent/internal/ratelimit/store/bucket"
	"agentconsent/internal/ratelimit/workers/cleanup"
	"agentconsent/internal/seeder"
	"agentconsent/pkg/platform/audit/outbox"
	outboxmetrics "agentconsent/pkg/platform/audit/outbox/metrics"
	outboxmemory "agentconsent/pkg/platform/audit/outbox/store/memory"
	outboxpostgres "agentconsent/pkg/platform/audit/outbox/store/postgres"
	outboxworker "agentconsent/pkg/platform/audit/outbox/worker"
	authmw "agentconsent/pkg/platform/middleware/auth"
	"agentconsent/pkg/platform/middleware/metadata"
	"agentconsent/pkg/platform/middleware/request"
)

const (
	// scopeAdmin guards the test-only admin tools.
	scopeAdmin = "consent:admin"

	outboxRetention   = 7 * 24 * time.Hour
	redisStatsEvery   = 15 * time.Second
	producerCloseWait = 5 * time.Second
)

type app struct {
	router  http.Handler
	service *service.Service
	expiry  *expiry.Worker
	seeder  *seeder.Seeder
	pool    *database.Pool
	workers []func(ctx context.Context) error
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildApp wires every dependency from cfg. Postgres, Redis and Kafka are each
// optional: without DATABASE_URL the in-memory stores are used, without
// REDIS_URL active-consent lookups are uncached, and without KAFKA_BROKERS the
// outbox is written but not relayed.
func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer, gatherer prometheus.Gatherer) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	tr := tracer.NewOTel()
	consentMetrics := consentmetrics.New(reg)
	probes := health.New(cfg.Env)
	httpClient := &http.Client{Timeout: 15 * time.Second}

	pool, err := database.New(ctx, database.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	var (
		consentStore service.Store
		outboxStore  outbox.Store
		db           *sqlx.DB
	)
	if pool != nil {
		a.pool = pool
		a.closers = append(a.closers, func() { _ = pool.Close() })
		probes.RegisterCheck("postgres", pool.Health)
		db = sqlx.NewDb(pool.DB(), "pgx")
		consentStore = store.NewPostgres(pool.DB())
		outboxStore = outboxpostgres.New(db)
		logger.Info("using postgres stores")
	} else {
		consentStore = store.New()
		outboxStore = outboxmemory.New()
		logger.Warn("DATABASE_URL not set, using in-memory stores")
	}

	rc, err := platformredis.New(ctx, cfg.Redis, reg)
	if err != nil {
		return nil, err
	}
	rlMetrics := ratelimitmetrics.New(reg)
	var limiter ratelimitmw.Limiter
	var cached *store.CachedStore
	if rc != nil {
		a.closers = append(a.closers, func() { _ = rc.Close() })
		probes.RegisterCheck("redis", rc.Health)
		cached = store.NewCached(consentStore, rc.Client, cfg.Consent.CacheTTL, logger)
		consentStore = cached
		a.workers = append(a.workers, func(ctx context.Context) error {
			rc.RunPoolStats(ctx, redisStatsEvery)
			return nil
		})
		limiter = bucket.NewRedisBucketStore(rc.Client)
	} else {
		buckets := bucket.NewInMemoryBucketStore()
		limiter = buckets
		a.workers = append(a.workers, cleanup.New(buckets,
			cleanup.WithLogger(logger),
			cleanup.WithMetrics(rlMetrics),
		).Start)
	}

	var tx service.ConsentStoreTx
	if db != nil {
		tx = newConsentPostgresTx(db, cached)
	} else {
		tx = service.NewShardedTx(consentStore, 0, consentMetrics)
	}

	publisher := audit.NewPublisher(outboxStore,
		audit.WithPublisherLogger(logger),
		audit.WithAsyncBuffer(cfg.Kafka.AuditBuffer),
	)
	a.closers = append(a.closers, publisher.Close)

	svc := service.NewService(consentStore, factory.FromConfig(&cfg, httpClient, tr, logger), logger,
		service.WithTx(tx),
		service.WithAuditor(publisher),
		service.WithMetrics(consentMetrics),
		service.WithTracer(tr),
		service.WithConsentURLBuilder(service.BaseURLBuilder(cfg.Consent.BaseURL)),
	)
	a.service = svc
	a.seeder = seeder.New(consentStore, publisher, logger)

	sweeper, err := expiry.New(svc,
		expiry.WithInterval(cfg.Consent.ExpirySweepInterval),
		expiry.WithOutboxPurge(outboxStore, outboxRetention),
		expiry.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	a.expiry = sweeper
	a.workers = append(a.workers, sweeper.Start)

	if cfg.Kafka.Brokers != "" {
		prod, err := producer.New(producer.DefaultConfig(cfg.Kafka.Brokers), logger)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		a.closers = append(a.closers, func() { prod.Close(producerCloseWait) })
		probes.RegisterCheck("kafka", kafka.NewHealthChecker(cfg.Kafka.Brokers).Check)
		relay := outboxworker.New(outboxStore, prod,
			outboxworker.WithTopic(cfg.Kafka.Topic),
			outboxworker.WithBatchSize(cfg.Kafka.OutboxBatch),
			outboxworker.WithPollInterval(cfg.Kafka.OutboxInterval),
			outboxworker.WithMetrics(outboxmetrics.New(reg)),
			outboxworker.WithLogger(logger),
		)
		a.workers = append(a.workers, relay.Run)
	}

	provider, err := auth.NewProvider(cfg, httpClient)
	if err != nil {
		return nil, err
	}

	trusted, err := metadata.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, err
	}

	a.router = newRouter(routerDeps{
		cfg:      cfg,
		logger:   logger,
		gatherer: gatherer,
		httpM:    request.NewMetrics(reg),
		authM:    authmw.NewMetrics(reg),
		probes:   probes,
		provider: provider,
		consent:  handler.New(svc, logger),
		trusted:  trusted,
		limits: ratelimitmw.New(limiter, map[ratelimitmodels.Class]ratelimitmodels.Limit{
			ratelimitmodels.ClassTools: {Requests: cfg.RateLimit.ToolRequests, Window: cfg.RateLimit.Window},
			ratelimitmodels.ClassWeb:   {Requests: cfg.RateLimit.WebRequests, Window: cfg.RateLimit.Window},
		}, logger, rlMetrics),
	})
	return a, nil
}
