package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	activityhandler "lostfound/internal/activity/handler"
	activityservice "lostfound/internal/activity/service"
	"lostfound/internal/activity/workers/purge"
	"lostfound/internal/admin"
	authhandler "lostfound/internal/auth/handler"
	authservice "lostfound/internal/auth/service"
	"lostfound/internal/identity/local"
	"lostfound/internal/identity/resilient"
	ledgerservice "lostfound/internal/ledger/service"
	"lostfound/internal/ledger/workers/cleanup"
	"lostfound/internal/platform/config"
	"lostfound/internal/platform/health"
	"lostfound/internal/platform/logger"
	"lostfound/internal/platform/metrics"
	profileservice "lostfound/internal/profile/service"
	ratelimit "lostfound/internal/ratelimit/middleware"
	"lostfound/internal/seeder"
	httptransport "lostfound/internal/transport/http"
	workflowhandler "lostfound/internal/workflow/handler"
	workflowservice "lostfound/internal/workflow/service"
	"lostfound/pkg/platform/circuit"
	"lostfound/pkg/platform/middleware/request"
	"lostfound/pkg/platform/tracer"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Server, log *slog.Logger) error {
	log.Info("initializing lostfound",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
	)

	// Application collectors live on their own registry; the default one
	// carries the Go runtime and process collectors.
	reg := prometheus.NewRegistry()
	gatherer := prometheus.Gatherers{reg, prometheus.DefaultGatherer}
	m := metrics.New(reg)

	in, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.close(log)

	if in.db != nil {
		if err := in.db.RegisterMetrics(reg); err != nil {
			return err
		}
	}
	if in.redis != nil {
		if err := in.redis.RegisterMetrics(reg); err != nil {
			return err
		}
	}
	st := buildStores(in, cfg, m)

	profiles, err := profileservice.New(st.profiles, profileservice.WithLogger(log))
	if err != nil {
		return err
	}
	ledger, err := ledgerservice.New(st.ledger,
		ledgerservice.WithLogger(log),
		ledgerservice.WithMetrics(m),
		ledgerservice.WithConfig(ledgerservice.Config{
			Window:          cfg.Ledger.Window,
			MaxFailures:     cfg.Ledger.MaxFailures,
			LockoutDuration: cfg.Ledger.LockoutDuration,
		}),
	)
	if err != nil {
		return err
	}

	// The local provider keeps accounts in memory; a hosted provider would
	// replace it behind the same resilient wrapper.
	provider, err := local.New(cfg.JWTSigningKey,
		local.WithLogger(log),
		local.WithConfig(local.Config{TokenTTL: cfg.TokenTTL}),
	)
	if err != nil {
		return err
	}
	identityProvider := resilient.New(provider, log,
		resilient.WithBreaker(circuit.New("identity")),
		resilient.WithTimeout(5*time.Second),
	)

	authSvc, err := authservice.New(identityProvider, ledger, profiles,
		authservice.WithLogger(log),
		authservice.WithMetrics(m),
		authservice.WithTracer(tracer.NewOTel("lostfound/auth")),
	)
	if err != nil {
		return err
	}

	activityOpts := []activityservice.Option{
		activityservice.WithLogger(log),
		activityservice.WithMetrics(m),
	}
	forwarder := buildForwarder(in, cfg, m, log)
	if forwarder != nil {
		activityOpts = append(activityOpts, activityservice.WithForwarder(forwarder))
		defer forwarder.Close()
	}
	activitySvc, err := activityservice.New(st.activity, activityOpts...)
	if err != nil {
		return err
	}

	workflowSvc, err := workflowservice.New(st.workflow, activitySvc,
		workflowservice.WithLogger(log),
		workflowservice.WithMetrics(m),
		workflowservice.WithTracer(tracer.NewOTel("lostfound/workflow")),
		workflowservice.WithTx(st.tx),
		workflowservice.WithGuard(buildGuard(in, cfg)),
	)
	if err != nil {
		return err
	}

	if in.db == nil && cfg.Environment == "development" {
		if err := seeder.New(provider, profiles, workflowSvc, log).SeedAll(ctx); err != nil {
			log.Warn("demo seed failed", "error", err)
		}
	}

	healthHandler := health.New(cfg.Environment)
	healthHandler.SetBackend("storage", "memory")
	healthHandler.SetBackend("coordination", "process")
	if in.db != nil {
		healthHandler.RegisterCheck("database", in.db.Health)
		healthHandler.SetBackend("storage", "postgres")
	}
	if in.redis != nil {
		healthHandler.RegisterCheck("redis", in.redis.Health)
		healthHandler.SetBackend("coordination", "redis")
	}
	if in.producer != nil {
		// activity forwarding is best effort; the feed itself lives in storage
		healthHandler.RegisterOptional("kafka", in.producer.Health)
		healthHandler.SetBackend("activity_stream", "kafka")
	}

	router := httptransport.NewRouter(
		httptransport.Handlers{
			Health:   healthHandler,
			Auth:     authhandler.New(authSvc, profiles, log),
			Workflow: workflowhandler.New(workflowSvc, log),
			Activity: activityhandler.New(activitySvc, log),
			Admin:    admin.New(admin.NewService(st.workflow, profiles, activitySvc, log), log),
		},
		httptransport.Security{
			Tokens:         provider,
			Revocation:     provider,
			Roles:          profiles,
			TrustedProxies: parseProxies(cfg.TrustedProxies, log),
			Limiter:        buildLimiter(in, cfg, ratelimit.NewMetrics(reg), log),
		},
		request.NewMetrics(reg),
		gatherer,
		log,
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		w := cleanup.New(st.ledger, cfg.Ledger.Window,
			cleanup.WithLogger(log),
			cleanup.WithInterval(cfg.Ledger.CleanupInterval),
		)
		return ignoreCanceled(w.Start(gctx))
	})
	g.Go(func() error {
		w := purge.New(st.activity, cfg.Activity.Retention,
			purge.WithLogger(log),
			purge.WithInterval(cfg.Activity.PurgeInterval),
		)
		return ignoreCanceled(w.Start(gctx))
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
