// Command tabsim drives several headless browser tabs through the sign-in,
// recovery and lockout paths and prints what each tab would render. It is a
// manual harness for the session orchestrator and the cross-tab coordinator.
//
//	go run ./cmd/tabsim                 # in-memory flag and bus
//	go run ./cmd/tabsim -redis redis://localhost:6379/0
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	authservice "lostfound/internal/auth/service"
	"lostfound/internal/crosstab"
	crossbus "lostfound/internal/crosstab/bus"
	crossstore "lostfound/internal/crosstab/store"
	"lostfound/internal/identity"
	"lostfound/internal/identity/local"
	ledgerservice "lostfound/internal/ledger/service"
	ledgerstore "lostfound/internal/ledger/store"
	"lostfound/internal/platform/metrics"
	profile "lostfound/internal/profile/models"
	profileservice "lostfound/internal/profile/service"
	profilestore "lostfound/internal/profile/store"
	"lostfound/internal/session"
	routestore "lostfound/internal/session/store"
	id "lostfound/pkg/domain"
)

const (
	origin   = "https://lostfound.campus.edu"
	email    = "finder@campus.edu"
	password = "correct horse battery staple"
)

type backend struct {
	flags  crosstab.Store
	bus    crosstab.Bus
	routes session.RouteStore
}

func main() {
	redisURL := flag.String("redis", "", "redis URL for the shared flag, bus and route store")
	metricsAddr := flag.String("metrics", "", "serve /metrics on this address, e.g. :9090")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if *metricsAddr != "" {
		go func() {
			fmt.Printf("Metrics available at http://localhost%s/metrics\n", *metricsAddr)
			srv := &http.Server{Addr: *metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), ReadHeaderTimeout: 5 * time.Second}
			if err := srv.ListenAndServe(); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	be, err := newBackend(ctx, *redisURL, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend: %v\n", err)
		os.Exit(1)
	}

	provider, err := local.New("tabsim-signing-key", local.WithLogger(logger))
	must(err)
	profiles, err := profileservice.New(profilestore.NewInMemory(), profileservice.WithLogger(logger))
	must(err)
	ledger, err := ledgerservice.New(ledgerstore.NewInMemory(), ledgerservice.WithLogger(logger), ledgerservice.WithMetrics(m))
	must(err)
	auth, err := authservice.New(provider, ledger, profiles, authservice.WithLogger(logger), authservice.WithMetrics(m))
	must(err)

	user, err := provider.RegisterConfirmed(ctx, email, password)
	must(err)
	_, err = profiles.Create(ctx, user.ID, email, "Demo Finder", profile.RoleFinder)
	must(err)

	client := identity.NewClient(provider, auth, identity.WithClientLogger(logger))
	open := func(name, bootURL string) *session.Orchestrator {
		coord, err := crosstab.New(id.NewTabID(), be.flags, be.bus, crosstab.WithLogger(logger))
		must(err)
		o, err := session.New(client, coord, profiles, be.routes, session.WithLogger(logger), session.WithMetrics(m))
		must(err)
		go func() { _ = o.Run(ctx, bootURL) }()
		<-o.Ready()
		fmt.Printf("   opened %s at %s\n", name, bootURL)
		return o
	}
	show := func(name string, o *session.Orchestrator) {
		st := o.State()
		fmt.Printf("   %-6s phase=%-14s route=%-16s flow=%-12s remote=%-12s role=%s\n",
			name, st.Phase, st.Route, st.Flow, st.RemoteFlow, st.Role())
	}
	settle := func() { time.Sleep(150 * time.Millisecond) }

	fmt.Println("\n=== Cross-tab session simulation ===")

	fmt.Println("\n1. Two anonymous tabs, then sign in from tab A")
	tabA := open("tab A", origin+"/")
	tabB := open("tab B", origin+"/items")
	_, err = tabA.SignIn(ctx, email, password)
	must(err)
	settle()
	show("tab A", tabA)
	show("tab B", tabB)

	fmt.Println("\n2. Sign out everywhere")
	must(tabA.SignOut(ctx))
	settle()
	show("tab A", tabA)
	show("tab B", tabB)

	fmt.Println("\n3. Recovery link opens in tab C; the other tabs must not auto-login")
	tabC := open("tab C", origin+"/reset#type=recovery")
	token, err := provider.RequestRecovery(ctx, email)
	must(err)
	sess, err := provider.VerifyRecovery(ctx, token)
	must(err)
	client.Adopt(sess, identity.EventPasswordRecovery)
	settle()
	show("tab A", tabA)
	show("tab B", tabB)
	show("tab C", tabC)

	fmt.Println("\n4. Tab C finishes the reset")
	must(provider.UpdatePassword(ctx, sess.AccessToken, password+"!"))
	tabC.CompleteFlow()
	settle()
	show("tab A", tabA)
	show("tab C", tabC)

	fmt.Println("\n5. Five wrong passwords lock the account")
	for i := 1; i <= 6; i++ {
		_, err := auth.Authenticate(ctx, email, "wrong")
		fmt.Printf("   attempt %d: %v\n", i, err)
	}
	if _, err := auth.Authenticate(ctx, email, password+"!"); err != nil {
		fmt.Printf("   correct password while locked: %v\n", err)
	}

	fmt.Println("\n=== Done ===")
	if *metricsAddr != "" {
		fmt.Println("Press Ctrl+C to exit.")
		select {}
	}
}

func newBackend(ctx context.Context, url string, logger *slog.Logger) (*backend, error) {
	if url == "" {
		return &backend{
			flags:  crossstore.NewInMemory(),
			bus:    crossbus.NewInMemory(),
			routes: routestore.NewInMemory(),
		}, nil
	}
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	ns := "tabsim:" + id.NewTabID().String()
	return &backend{
		flags:  crossstore.NewRedis(client, ns),
		bus:    crossbus.NewRedis(client, ns, logger),
		routes: routestore.NewRedis(client, ns),
	}, nil
}

func must(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "tabsim: %v\n", err)
		os.Exit(1)
	}
}
