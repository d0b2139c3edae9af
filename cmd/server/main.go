// Command server wires high-level dependencies and runs the attendance HTTP
// service. Business logic lives in the internal attendance packages; this
// file only assembles them.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"punchtrust/internal/attendance/handler"
	"punchtrust/internal/attendance/lock"
	"punchtrust/internal/attendance/metrics"
	"punchtrust/internal/attendance/ports"
	"punchtrust/internal/attendance/service"
	heldstore "punchtrust/internal/attendance/store/held"
	ledgerstore "punchtrust/internal/attendance/store/ledger"
	"punchtrust/internal/attendance/trust"
	"punchtrust/internal/audit"
	kafkaaudit "punchtrust/internal/audit/kafka"
	"punchtrust/internal/platform/config"
	"punchtrust/internal/platform/httpserver"
	"punchtrust/internal/platform/logger"
	"punchtrust/internal/platform/postgres"
	redisplatform "punchtrust/internal/platform/redis"
	"punchtrust/pkg/platform/middleware/metadata"
	"punchtrust/pkg/platform/middleware/requesttime"
)

const punchLockTTL = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	loc, err := cfg.Location()
	if err != nil {
		log.Error("failed to resolve business timezone", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: PostgreSQL when a database is configured, in-memory otherwise.
	var records ports.LedgerStore
	var heldEvents ports.HeldEventStore
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		records = ledgerstore.NewPostgres(db)
		heldEvents = heldstore.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		records = ledgerstore.NewInMemoryStore()
		heldEvents = heldstore.NewInMemoryStore()
		log.Warn("no database configured; attendance records are in-memory and volatile")
	}

	// Punch lock: Redis lease across instances, keyed mutex for a single one.
	var locker ports.PunchLocker = lock.NewKeyedMutex()
	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient.Client, punchLockTTL, log)
		log.Info("using redis punch lock")
	}

	// Audit trail: Kafka sink when brokers are configured, otherwise the
	// database (or memory) keeps the trail queryable.
	var auditStore audit.Store = audit.NewInMemoryStore()
	if db != nil {
		auditStore = audit.NewPostgresStore(db)
	}
	var auditPublisher ports.AuditPublisher = audit.NewPublisher(auditStore)
	kafkaPublisher, err := kafkaaudit.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	if err != nil {
		log.Error("failed to connect to kafka", "error", err)
		os.Exit(1)
	}
	if kafkaPublisher != nil {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := kafkaPublisher.Close(flushCtx); err != nil {
				log.Warn("failed to flush audit events", "error", err)
			}
		}()
		auditPublisher = kafkaPublisher
		log.Info("using kafka audit sink", "topic", cfg.Kafka.Topic)
	}

	svc := service.New(
		records,
		heldEvents,
		locker,
		trust.NewScorer(cfg.Trust),
		cfg.Shift,
		loc,
		service.WithLogger(log),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(metrics.New()),
		service.WithHeldListLimit(cfg.HeldListLimit),
	)

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(metadata.ClientMetadata)
	router.Use(requesttime.Middleware)
	router.Get("/healthz", healthHandler(db, redisClient))
	router.Handle("/metrics", promhttp.Handler())
	handler.New(svc, loc, log).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting punchtrust", "addr", cfg.Addr, "timezone", cfg.Timezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// healthHandler reports liveness of the process and its backing stores.
func healthHandler(db *sql.DB, redisClient *redisplatform.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}
