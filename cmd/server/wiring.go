package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"

	activityservice "lostfound/internal/activity/service"
	"lostfound/internal/activity/sink"
	kafkasink "lostfound/internal/activity/sink/kafka"
	activitystore "lostfound/internal/activity/store"
	"lostfound/internal/activity/workers/purge"
	ledgerservice "lostfound/internal/ledger/service"
	ledgerstore "lostfound/internal/ledger/store"
	"lostfound/internal/ledger/workers/cleanup"
	"lostfound/internal/platform/config"
	"lostfound/internal/platform/database"
	"lostfound/internal/platform/kafka/producer"
	"lostfound/internal/platform/metrics"
	"lostfound/internal/platform/redis"
	profileservice "lostfound/internal/profile/service"
	profilestore "lostfound/internal/profile/store"
	"lostfound/internal/ratelimit/middleware"
	rlmodels "lostfound/internal/ratelimit/models"
	"lostfound/internal/ratelimit/store/bucket"
	"lostfound/internal/workflow/guard"
	workflowservice "lostfound/internal/workflow/service"
	workflowstore "lostfound/internal/workflow/store"
	"lostfound/migrations"
)

// infra holds the optional external connections. Any of them may be nil,
// in which case the in-memory equivalent is used.
type infra struct {
	db       *database.Pool
	redis    *redis.Client
	producer *producer.Producer
}

func connect(ctx context.Context, cfg config.Server, logger *slog.Logger) (*infra, error) {
	in := &infra{}

	pool, err := database.New(ctx, database.DefaultConfig(cfg.DatabaseURL))
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		logger.Warn("DATABASE_URL not set; using in-memory stores")
	case err != nil:
		return nil, err
	default:
		applied, err := database.Migrate(ctx, pool.DB(), migrations.FS)
		if err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info("database ready", "migrations_applied", len(applied))
		in.db = pool
	}

	rc, err := redis.New(cfg.Redis)
	if err != nil {
		in.close(logger)
		return nil, err
	}
	if rc == nil {
		logger.Warn("REDIS_URL not set; guards and rate limits are per process")
	}
	in.redis = rc

	if cfg.Kafka.Brokers != "" {
		p, err := producer.New(producer.DefaultConfig(cfg.Kafka.Brokers), logger)
		if err != nil {
			in.close(logger)
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		in.producer = p
	}
	return in, nil
}

func (in *infra) close(logger *slog.Logger) {
	if in.producer != nil {
		if err := in.producer.Close(); err != nil {
			logger.Error("closing kafka producer", "error", err)
		}
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}
	if in.db != nil {
		if err := in.db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}
}

type ledgerStore interface {
	ledgerservice.Store
	cleanup.Store
}

type activityStore interface {
	activityservice.Store
	purge.Store
}

// stores selects Postgres or in-memory persistence for every module.
type stores struct {
	ledger   ledgerStore
	profiles profileservice.Store
	workflow workflowservice.Store
	activity activityStore
	tx       workflowservice.StoreTx
}

func buildStores(in *infra, cfg config.Server, m *metrics.Metrics) *stores {
	if in.db != nil {
		db := in.db.DB()
		return &stores{
			ledger:   ledgerstore.NewPostgres(db),
			profiles: profilestore.NewPostgres(db),
			workflow: workflowstore.NewPostgres(db),
			activity: activitystore.NewPostgres(db),
			tx:       newWorkflowPostgresTx(db, m, cfg.Workflow.TxTimeout),
		}
	}
	wf := workflowstore.NewInMemory()
	return &stores{
		ledger:   ledgerstore.NewInMemory(),
		profiles: profilestore.NewInMemory(),
		workflow: wf,
		activity: activitystore.NewInMemory(),
		tx:       workflowservice.NewShardedTx(wf, m),
	}
}

func buildGuard(in *infra, cfg config.Server) workflowservice.Guard {
	if in.redis != nil {
		return guard.NewRedis(in.redis.Client, cfg.Workflow.GuardTTL, guard.WithKeyPrefix(in.redis.Key("guard")+":"))
	}
	return guard.NewInMemory(cfg.Workflow.GuardTTL)
}

// buildForwarder returns nil when kafka is not configured.
func buildForwarder(in *infra, cfg config.Server, m *metrics.Metrics, logger *slog.Logger) *sink.Forwarder {
	if in.producer == nil {
		return nil
	}
	return sink.NewForwarder(
		kafkasink.New(in.producer, cfg.Kafka.ActivityTopic),
		sink.WithAsyncBuffer(256),
		sink.WithLogger(logger),
		sink.WithMetrics(m),
	)
}

func buildLimiter(in *infra, cfg config.Server, m *middleware.Metrics, logger *slog.Logger) *middleware.Middleware {
	var store middleware.BucketStore = bucket.NewInMemoryBucketStore()
	if in.redis != nil {
		store = bucket.NewRedisBucketStore(in.redis.Client, bucket.WithKeyPrefix(in.redis.Namespace()+":"))
	}
	return middleware.New(store, logger,
		middleware.WithMetrics(m),
		middleware.WithLimit(rlmodels.ClassAuth, rlmodels.Limit{Requests: cfg.RateLimit.AuthRequests, Window: cfg.RateLimit.Window}),
		middleware.WithLimit(rlmodels.ClassWrite, rlmodels.Limit{Requests: cfg.RateLimit.WriteRequests, Window: cfg.RateLimit.Window}),
	)
}

func parseProxies(raw []string, logger *slog.Logger) []netip.Prefix {
	out := make([]netip.Prefix, 0, len(raw))
	for _, cidr := range raw {
		p, err := netip.ParsePrefix(cidr)
		if err != nil {
			logger.Warn("ignoring invalid trusted proxy", "cidr", cidr, "error", err)
			continue
		}
		out = append(out, p)
	}
	return out
}
