package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"classcaptain/internal/config"
	"classcaptain/internal/logger"
	"classcaptain/internal/queue"
	"classcaptain/internal/reconcile"
	"classcaptain/internal/store"
)

const (
	serviceName = "classcaptain-worker"
	version     = "0.1.0"
)

// Worker drains unsynced-record reports and leaves an operator trace for each.
// Nothing is retried.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewWithServiceContext(serviceName, version, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("worker failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.App, log *slog.Logger) error {
	opts := queue.Options{
		Backend:      cfg.QueueBackend,
		Key:          cfg.QueueKey,
		NATSURL:      cfg.NATSURL,
		KafkaBrokers: cfg.KafkaBrokers,
	}
	if cfg.QueueBackend == "redis" {
		redisClient := store.NewRedis(cfg.RedisAddr)
		defer redisClient.Close()
		if !redisClient.Healthy(ctx) {
			log.Warn("redis not reachable yet", "addr", cfg.RedisAddr)
		}
		opts.Redis = redisClient.Client
	}
	if cfg.QueueBackend == "" || cfg.QueueBackend == "memory" {
		log.Warn("memory queue is process-local, the worker will see no reports")
	}

	q, err := queue.Open(opts, log)
	if err != nil {
		return err
	}
	defer q.Close()

	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}

	log.Info("worker started, waiting for messages", "queue_backend", cfg.QueueBackend)
	for msg := range messages {
		handle(log, msg)
	}
	log.Info("worker stopped")
	return nil
}

func handle(log *slog.Logger, msg queue.Message) {
	ev, err := reconcile.DecodeUnsynced(msg)
	if err != nil {
		log.Error("skipping message", "type", msg.Type, "error", err)
		return
	}
	log.Warn("record not synced to remote store",
		"academy_id", ev.AcademyID,
		"session_id", ev.SessionID,
		"collection", string(ev.Collection),
		"record_id", ev.RecordID,
		"op", ev.Op,
		"reason", ev.Reason,
		"at", ev.At,
	)
}
