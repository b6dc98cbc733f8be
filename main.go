package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cinema-ticketing/cmd"
	"cinema-ticketing/internal/cache"
	"cinema-ticketing/internal/data/repository"
	"cinema-ticketing/internal/event"
	"cinema-ticketing/internal/ledger"
	"cinema-ticketing/internal/usecase"
	"cinema-ticketing/internal/wire"
	"cinema-ticketing/internal/worker"
	"cinema-ticketing/pkg/clock"
	"cinema-ticketing/pkg/database"
	"cinema-ticketing/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(config.App.Name, config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.Duration("hold_duration", config.Booking.HoldDuration),
		zap.String("refund_policy", string(config.Booking.RefundPolicy)),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected successfully")

	if config.Database.Migrate {
		if err := database.Migrate(config.Database.ConnString()); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}
		logger.Info("Migrations applied")
	}

	var availability cache.AvailabilityCache = cache.Nop{}
	if config.Redis.Addr != "" {
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{config.Redis.Addr},
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err), zap.String("addr", config.Redis.Addr))
		}
		availability = cache.NewAvailabilityCache(rdb, config.Redis.CacheTTL, logger)
		logger.Info("Redis connected", zap.String("addr", config.Redis.Addr))
	}

	var publisher event.Publisher = event.Nop{}
	if config.RabbitMQ.URL != "" {
		publisher, err = event.NewAMQPPublisher(config.RabbitMQ.URL, logger)
		if err != nil {
			logger.Fatal("Failed to connect to rabbitmq", zap.Error(err))
		}
		logger.Info("RabbitMQ connected")
	} else {
		logger.Warn("RABBITMQ_URL not set, events will not be published")
	}
	defer publisher.Close()

	seatLedger := ledger.New(
		ledger.WithLockWait(config.Booking.LockTimeout),
		ledger.WithPolicy(ledger.Policy{
			MaxHoldsPerVisitor:     config.Booking.MaxHoldsPerVisitor,
			AllowCrossSessionHolds: config.Booking.AllowCrossSessionHolds,
		}),
	)

	app := wire.Wiring(usecase.Deps{
		Repo:      repository.NewRepository(db, logger),
		UoW:       database.NewUnitOfWork(db, logger),
		Ledger:    seatLedger,
		Cache:     availability,
		Publisher: publisher,
		Clock:     clock.Real(),
		Config:    config,
		Log:       logger,
	})

	sweeper := worker.New(app.Service.Booking, app.Service.Session, config.Booking.SweepInterval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cmd.APIServer(gctx, app.Router, config.App.Port, config.App.ShutdownTimeout, logger)
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application stopped with error", zap.Error(err))
		return
	}
	logger.Info("Application stopped")
}
