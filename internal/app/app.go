package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stagepass/stagepass/internal/config"
	"github.com/stagepass/stagepass/internal/kafka"
	"github.com/stagepass/stagepass/internal/lock"
	"github.com/stagepass/stagepass/internal/postgres"
	"github.com/stagepass/stagepass/internal/redis"
	postgresrepo "github.com/stagepass/stagepass/internal/repository/postgres"
	redisrepo "github.com/stagepass/stagepass/internal/repository/redis"
	"github.com/stagepass/stagepass/internal/service"
	"github.com/stagepass/stagepass/internal/service/admission"
	"github.com/stagepass/stagepass/internal/service/payment"
	"github.com/stagepass/stagepass/internal/service/query"
	"github.com/stagepass/stagepass/internal/service/reaper"
	"github.com/stagepass/stagepass/internal/service/reservation"
	httpgin "github.com/stagepass/stagepass/internal/transport/http/gin"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	sweeper    *admission.Sweeper
	reaper     *reaper.Worker
	consumer   *kafka.Consumer
	producer   *kafka.Producer
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx := context.Background()

	pgxPool, err := postgres.New(ctx, postgres.Config{DSN: cfg.Postgres.DSN()})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	rdb, err := redis.New(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize kafka producer: %w", err)
	}

	// Repositories
	store := postgresrepo.NewStore(pgxPool)
	queue := redisrepo.NewQueueRepo(rdb, cfg.Queue.WaitingTTL)
	rankRepo := redisrepo.NewRankRepo(rdb)
	cache := redisrepo.NewCache(rdb)
	idem := redisrepo.NewIdempotencyStore(rdb, 2*time.Hour)
	locker := lock.NewRedisLocker(rdb)

	// Services
	services := service.NewServices(store, queue, rankRepo, cache, idem, locker, producer, logger, service.Config{
		Admission: admission.Config{
			MaxActive: cfg.Queue.MaxActive,
			ActiveTTL: cfg.Queue.ActiveTTL,
		},
		Reservation: reservation.Config{
			HoldWindow: cfg.Reservation.HoldWindow,
			LockLease:  cfg.Reservation.LockLease,
		},
		Payment: payment.Config{
			LockLease: cfg.Reservation.LockLease,
		},
		Query: query.Config{},
	})

	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.RankGroup, services.Rank, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize kafka consumer: %w", err)
	}

	// Background workers
	sweeper := admission.NewSweeper(store.Concerts(), services.Admission, cfg.Queue.SweepInterval, logger)
	reaperWorker := reaper.NewWorker(
		reaper.NewStoreExpirer(store, cache),
		locker,
		logger,
		reaper.Config{
			Interval:  cfg.Reaper.Interval,
			BatchSize: cfg.Reaper.BatchSize,
			LockLease: cfg.Reaper.LockLease,
		},
	)

	router := httpgin.NewRouter(services, logger)

	return &App{
		cfg:      cfg,
		logger:   logger,
		sweeper:  sweeper,
		reaper:   reaperWorker,
		consumer: consumer,
		producer: producer,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler: router,
		},
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.sweeper.Run(gCtx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := a.reaper.Run(gCtx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := a.consumer.Run(gCtx); err != nil && err != context.Canceled {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down")

		if err := a.consumer.Close(); err != nil {
			a.logger.Error("close kafka consumer", "error", err)
		}
		if err := a.producer.Close(); err != nil {
			a.logger.Error("close kafka producer", "error", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
