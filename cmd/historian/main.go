// cmd/historian drains finished rounds from the Redis queue into Postgres. Run
// it alongside servers started with HISTORIAN_EMBEDDED=false.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/loteria/internal/cache"
	"github.com/jason-s-yu/loteria/internal/config"
	"github.com/jason-s-yu/loteria/internal/database"
	"github.com/jason-s-yu/loteria/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("historian exited")
	}
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	if !cfg.HistoryEnabled() {
		return errors.New("DATABASE_URL is required")
	}

	rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	queue := cache.NewRoundQueue(rdb, cfg.HistoryQueue)
	if n, err := queue.Len(ctx); err == nil && n > 0 {
		logger.WithField("backlog", n).Info("resuming queued rounds")
	}

	svc := historian.New(queue, database.NewRounds(pool), logger, historian.Options{
		BatchSize:  cfg.HistoryBatchSize,
		FlushDelay: cfg.HistoryFlushDelay,
	})
	return svc.Run(ctx)
}
