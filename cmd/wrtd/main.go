// Command wrtd is a thin, read-only observability daemon: it exposes the
// running engine's health, capability budgets, task status, Prometheus
// metrics, and a live telemetry feed over HTTP, but never drives WASM
// execution itself — embedding wrt to actually run a component is a
// library concern (internal/engine), not this daemon's.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wrt-go/wrt/internal/capability"
	"github.com/wrt-go/wrt/internal/engine"
	"github.com/wrt-go/wrt/internal/infra/config"
	"github.com/wrt-go/wrt/internal/infra/logging"
	"github.com/wrt-go/wrt/internal/infra/metrics"
	"github.com/wrt-go/wrt/internal/infra/ratelimit"
	"github.com/wrt-go/wrt/internal/modcache"
)

// Default rate limit for this daemon's read-only surface: generous enough
// that a dashboard polling /tasks/{id} or /providers on a short interval
// never trips it, tight enough to absorb an accidental hot-loop caller.
const (
	defaultRateLimitRPS   = 50
	defaultRateLimitBurst = 100
)

func main() {
	logger := logging.NewFromEnv("wrtd")
	m := metrics.New("wrtd")
	cfg := config.LoadRuntimeConfigOrDefault()

	e, err := engine.New(cfg, logger, m)
	if err != nil {
		log.Fatalf("construct engine: %v", err)
	}

	if dsn := strings.TrimSpace(os.Getenv("WRT_MODCACHE_DSN")); dsn != "" {
		e.ModCache, err = connectModCache(dsn, logger)
		if err != nil {
			log.Fatalf("connect module cache: %v", err)
		}
	}

	limiter := ratelimit.New(defaultRateLimitRPS, defaultRateLimitBurst, logger)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Logger)
	router.Use(limiter.Handler)

	router.Get("/healthz", healthHandler())
	router.Get("/providers", providersHandler(e))
	router.Get("/tasks/{id}", taskHandler(e))
	router.Get("/events", e.Telemetry.ServeHTTP)
	router.Handle("/metrics", promhttp.Handler())

	port := config.GetObservabilityPort(9988)
	server := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.WithContext(context.Background()).Infof("wrtd listening on port %d", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.WithContext(context.Background()).Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithContext(context.Background()).WithError(err).Error("shutdown error")
	}
}

// connectModCache opens a Postgres connection pool, applies the module
// cache's schema migrations, and wraps it as a modcache.Cache. The
// "postgres" driver name is registered by the blank lib/pq import above.
func connectModCache(dsn string, logger *logging.Logger) (*modcache.Cache, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := modcache.Migrate(context.Background(), db); err != nil {
		return nil, err
	}
	return modcache.New(sqlx.NewDb(db, "postgres"), logger), nil
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

// crateBudgetView is the per-crate capability ledger as reported to an
// operator: capability.Context only tracks aggregate budget/used per
// crate, not a registry of individual live Providers, so this is the
// finest granularity it can honestly expose.
type crateBudgetView struct {
	Crate  string `json:"crate"`
	Budget int64  `json:"budget_bytes"`
	Used   int64  `json:"used_bytes"`
}

func providersHandler(e *engine.Engine) http.HandlerFunc {
	crates := []capability.CrateId{
		capability.CrateFoundation,
		capability.CrateDecoder,
		capability.CrateRuntime,
		capability.CrateComponent,
		capability.CrateHost,
		capability.CratePlatform,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		views := make([]crateBudgetView, 0, len(crates))
		for _, c := range crates {
			budget, used := e.Capability.CrateBudget(c)
			views = append(views, crateBudgetView{Crate: c.String(), Budget: budget, Used: used})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(views)
	}
}

type taskView struct {
	ID     uint64 `json:"id"`
	Status string `json:"status"`
}

func taskHandler(e *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idParam := chi.URLParam(r, "id")
		id, err := strconv.ParseUint(idParam, 10, 64)
		if err != nil {
			http.Error(w, "invalid task id", http.StatusBadRequest)
			return
		}
		status, ok := e.Executor.TaskStatus(id)
		if !ok {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(taskView{ID: id, Status: status.String()})
	}
}
