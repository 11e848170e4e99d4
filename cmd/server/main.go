// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/loteria/internal/auth"
	"github.com/jason-s-yu/loteria/internal/cache"
	"github.com/jason-s-yu/loteria/internal/config"
	"github.com/jason-s-yu/loteria/internal/database"
	"github.com/jason-s-yu/loteria/internal/handlers"
	"github.com/jason-s-yu/loteria/internal/historian"
	"github.com/jason-s-yu/loteria/internal/middleware"
	"github.com/jason-s-yu/loteria/internal/room"
	"github.com/jason-s-yu/loteria/internal/store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
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
		logger.WithError(err).Fatal("server exited")
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	var (
		st  store.RoomStore
		rdb *redis.Client
		err error
	)
	switch cfg.StoreBackend {
	case config.BackendRedis:
		rdb, err = cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		// The store closes the client.
		st = store.NewRedisStore(rdb, cfg.RedisKeyPrefix, logger)
	default:
		st = store.NewMemoryStore()
	}
	defer st.Close()
	logger.WithField("backend", cfg.StoreBackend).Info("room store ready")

	opts := []room.Option{
		room.WithRetryPolicy(room.RetryPolicy{MaxAttempts: cfg.StoreMaxRetries, Backoff: cfg.StoreRetryBackoff}),
	}

	g, gctx := errgroup.WithContext(ctx)

	var history handlers.HistoryReader
	if cfg.HistoryEnabled() {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		rounds := database.NewRounds(pool)
		history = rounds

		var queue historian.Queue
		if rdb != nil {
			queue = cache.NewRoundQueue(rdb, cfg.HistoryQueue)
		} else {
			queue = historian.NewMemoryQueue(256)
		}
		hist := historian.New(queue, rounds, logger.WithField("component", "historian"), historian.Options{
			BatchSize:  cfg.HistoryBatchSize,
			FlushDelay: cfg.HistoryFlushDelay,
		})
		opts = append(opts, room.WithHooks(room.Hooks{RoundFinished: hist.Record}))
		if cfg.HistoryEmbedded {
			g.Go(func() error { return hist.Run(gctx) })
		}
		logger.WithFields(logrus.Fields{"embedded": cfg.HistoryEmbedded, "queue": cfg.HistoryQueue}).Info("round history enabled")
	}

	coord := room.NewCoordinator(st, logger, opts...)
	if cfg.DrawMode == config.DrawModeServer {
		pacer := room.NewPacer(coord, logger.WithField("component", "pacer"))
		defer pacer.Close()
		logger.Info("server paced draws enabled")
	}

	signer, err := newSigner(cfg, logger)
	if err != nil {
		return err
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	}

	srv := handlers.NewServer(coord, signer, history, logger)
	httpServer := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: srv.Router(handlers.RouterOptions{
			AllowedOrigins: cfg.AllowedOrigins,
			Production:     cfg.Production(),
			RateLimiter:    limiter,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Infof("Running on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newSigner(cfg config.Config, logger logrus.FieldLogger) (*auth.Signer, error) {
	if cfg.SeatKeysConfigured() {
		return auth.NewSignerFromFiles(cfg.SeatPrivateKeyPath, cfg.SeatPublicKeyPath, cfg.TokenTTL)
	}
	logger.Warn("seat signing keys not configured, tokens will not survive a restart")
	return auth.NewSigner(cfg.TokenTTL)
}
