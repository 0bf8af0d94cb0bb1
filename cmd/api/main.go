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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"classcaptain/internal/academy"
	"classcaptain/internal/api"
	"classcaptain/internal/config"
	"classcaptain/internal/domain"
	"classcaptain/internal/ident"
	"classcaptain/internal/logger"
	"classcaptain/internal/metrics"
	"classcaptain/internal/queue"
	"classcaptain/internal/reconcile"
	"classcaptain/internal/remote"
	"classcaptain/internal/store"
)

const (
	serviceName = "classcaptain-api"
	version     = "0.1.0"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewWithServiceContext(serviceName, version, cfg.Env)

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, log); err != nil {
		log.Error("http server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.App, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	checks := map[string]api.HealthCheck{}
	backend, db, err := openBackend(ctx, cfg, m, log, checks)
	if err != nil {
		return err
	}
	defer db.Close()

	academies, err := openAcademies(ctx, cfg, db, log)
	if err != nil {
		return err
	}

	var redisClient *store.Redis
	if cfg.QueueBackend == "redis" {
		redisClient = store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		checks["redis"] = redisClient.Healthy
	}
	opts := queue.Options{
		Backend:      cfg.QueueBackend,
		Key:          cfg.QueueKey,
		NATSURL:      cfg.NATSURL,
		KafkaBrokers: cfg.KafkaBrokers,
	}
	if redisClient != nil {
		opts.Redis = redisClient.Client
	}
	q, err := queue.Open(opts, log)
	if err != nil {
		return err
	}
	defer q.Close()

	refetch := make(map[domain.Collection]bool)
	for _, name := range cfg.RefetchAfterWrite {
		if col := domain.Collection(name); col.Valid() {
			refetch[col] = true
		}
	}

	manager := reconcile.NewManager(reconcile.Config{
		Backend:           backend,
		BackendConfigured: cfg.BackendConfigured,
		RefetchAfterWrite: refetch,
		Validator:         domain.NewValidator(),
		Generator:         ident.Default,
		Reporter:          reconcile.NewQueueReporter(q),
		Metrics:           m,
		Log:               log,
	})
	defer manager.CloseAll()

	srv := api.NewServer(manager, academies, api.Options{
		SigningKey:      cfg.JWTSigningKey,
		Issuer:          cfg.JWTIssuer,
		AccessTTL:       cfg.AccessTTL,
		RateLimitPerMin: cfg.RateLimitPerMin,
		CORSOrigins:     cfg.CORSOrigins,
		Checks:          checks,
	}, log)

	httpSrv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "port", cfg.HTTPPort, "remote_backend", cfg.RemoteBackend,
			"backend_configured", cfg.BackendConfigured, "queue_backend", cfg.QueueBackend)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("server forced shutdown", "error", err)
	}
	log.Info("server exited")
	return nil
}

// openBackend wires the remote adapters. An unconfigured backend gets none.
// The returned DB is nil unless postgres is in use.
func openBackend(ctx context.Context, cfg config.App, m *metrics.Metrics, log *slog.Logger, checks map[string]api.HealthCheck) (reconcile.Backend, *store.DB, error) {
	if !cfg.BackendConfigured {
		log.Warn("remote backend not configured, every collection starts in fallback mode")
		return reconcile.Backend{}, nil, nil
	}

	if cfg.RemoteBackend == "memory" {
		return reconcile.Backend{
			Students: remote.NewAdapter[*domain.Student](domain.Students, remote.NewMemory[*domain.Student](domain.Students), cfg.RemoteTimeout, m, log),
			Teachers: remote.NewAdapter[*domain.Teacher](domain.Teachers, remote.NewMemory[*domain.Teacher](domain.Teachers), cfg.RemoteTimeout, m, log),
			Batches:  remote.NewAdapter[*domain.Batch](domain.Batches, remote.NewMemory[*domain.Batch](domain.Batches), cfg.RemoteTimeout, m, log),
		}, nil, nil
	}

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if db == nil {
		return reconcile.Backend{}, nil, err
	}
	if err != nil {
		log.Warn("db not reachable, remote calls will fail as transient", "error", err)
	}
	checks["db"] = db.Healthy

	if len(cfg.ProvisionTables) > 0 {
		var cols []domain.Collection
		for _, name := range cfg.ProvisionTables {
			if col := domain.Collection(name); col.Valid() {
				cols = append(cols, col)
			}
		}
		if err := db.Provision(ctx, log, cols); err != nil {
			log.Warn("table provisioning failed", "error", err)
		}
	}

	return reconcile.Backend{
		Students: remote.NewAdapter[*domain.Student](domain.Students, remote.NewStudents(db.Client), cfg.RemoteTimeout, m, log),
		Teachers: remote.NewAdapter[*domain.Teacher](domain.Teachers, remote.NewTeachers(db.Client), cfg.RemoteTimeout, m, log),
		Batches:  remote.NewAdapter[*domain.Batch](domain.Batches, remote.NewBatches(db.Client), cfg.RemoteTimeout, m, log),
	}, db, nil
}

// openAcademies keeps the academy registry next to the records when postgres
// is in use and in process otherwise, then applies the configured seeds.
func openAcademies(ctx context.Context, cfg config.App, db *store.DB, log *slog.Logger) (*academy.Registry, error) {
	var st academy.Store = academy.NewMemory()
	if db != nil {
		pg := academy.NewPostgres(db.Client)
		if err := pg.EnsureSchema(ctx); err != nil {
			log.Warn("academies table not ready", "error", err)
		}
		st = pg
	} else {
		log.Warn("academy registry is in memory, registrations are lost on restart")
	}

	registry := academy.NewRegistry(st, log)
	for _, seed := range cfg.AcademySeeds {
		if err := registry.Seed(ctx, seed.Key, seed.Name, seed.Password); err != nil {
			return nil, fmt.Errorf("seed academy %s: %w", seed.Key, err)
		}
		log.Info("academy seeded", "academy_id", academy.NormalizeKey(seed.Key))
	}
	return registry, nil
}
