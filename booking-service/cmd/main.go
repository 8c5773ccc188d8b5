package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rnqayush/starter-sub001/booking-service/internal/auth"
	"github.com/rnqayush/starter-sub001/booking-service/internal/cache"
	"github.com/rnqayush/starter-sub001/booking-service/internal/clock"
	"github.com/rnqayush/starter-sub001/booking-service/internal/config"
	"github.com/rnqayush/starter-sub001/booking-service/internal/consumer"
	bookinggrpc "github.com/rnqayush/starter-sub001/booking-service/internal/grpc"
	bookinghttp "github.com/rnqayush/starter-sub001/booking-service/internal/http"
	"github.com/rnqayush/starter-sub001/booking-service/internal/notifier"
	"github.com/rnqayush/starter-sub001/booking-service/internal/publisher"
	"github.com/rnqayush/starter-sub001/booking-service/internal/repository"
	"github.com/rnqayush/starter-sub001/booking-service/internal/service"
	"github.com/rnqayush/starter-sub001/booking-service/internal/store"
	"github.com/rnqayush/starter-sub001/booking-service/internal/sweeper"
	"github.com/rnqayush/starter-sub001/pkg/circuitbreaker"
	"github.com/rnqayush/starter-sub001/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := start(); err != nil {
		os.Exit(1)
	}
}

// start owns every deferred cleanup so that they have run before main exits.
func start() error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, otelErr := logger.Setup(ctx, logger.OTLPConfig{
		Service:  cfg.ServiceName,
		Version:  cfg.Version,
		Endpoint: cfg.OTLPEndpoint,
		Insecure: cfg.OTLPInsecure,
	})
	log := logger.New(cfg.ServiceName, cfg.LogLevel)
	if otelErr != nil {
		log.Warn("telemetry export partially disabled", zap.Error(otelErr))
	}

	err = run(ctx, cfg, log)
	if err != nil {
		log.Error("booking service stopped with error", zap.Error(err))
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if errShutdown := shutdownOTel(flushCtx); errShutdown != nil {
		log.Warn("failed to flush telemetry", zap.Error(errShutdown))
	}
	_ = log.Sync()
	return err
}

func run(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	clk := clock.Real()
	opts := []service.Option{
		service.WithClock(clk),
		service.WithMaxAttempts(cfg.BookingMaxAttempts, cfg.BookingRetryDelay),
	}

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))
		opts = append(opts, service.WithCache(cache.NewRedisCache(redisClient, cfg.CacheTTL)))
	}

	if cfg.RabbitURL != "" {
		pub, err := notifier.NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			return fmt.Errorf("rabbitmq connection failed: %w", err)
		}
		n := notifier.NewRabbitNotifier(pub, circuitbreaker.DefaultConfig("rabbitmq-notifier"), log)
		defer n.Close()
		opts = append(opts, service.WithNotifier(n))
	} else {
		opts = append(opts, service.WithNotifier(notifier.NewLogNotifier(log)))
	}

	svc := service.NewBookingService(st, auth.NewRoleAuthorizer(), log, opts...)

	g, gctx := errgroup.WithContext(ctx)

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := publisher.NewKafkaProducer(cfg.KafkaBrokers, cfg.ReservationTopic, otel.GetTracerProvider())
		if err != nil {
			return fmt.Errorf("failed to create kafka producer: %w", err)
		}
		poller := publisher.NewOutboxPoller(st, producer, cfg.OutboxPollInterval, log)
		defer poller.Close()
		g.Go(func() error {
			poller.Run(gctx)
			return nil
		})

		reader, err := consumer.NewKafkaReader(cfg.KafkaBrokers, cfg.PaymentTopic, cfg.PaymentGroupID)
		if err != nil {
			return fmt.Errorf("failed to create kafka reader: %w", err)
		}
		payments := consumer.NewConsumer(reader, svc, log)
		defer payments.Close()
		g.Go(func() error {
			payments.Run(gctx)
			return nil
		})
		log.Info("kafka enabled",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("reservation_topic", cfg.ReservationTopic),
			zap.String("payment_topic", cfg.PaymentTopic))
	}

	if cfg.PendingTTL > 0 {
		sw := sweeper.New(svc, clk, cfg.PendingTTL, cfg.SweepInterval, log)
		g.Go(func() error {
			sw.Run(gctx)
			return nil
		})
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      bookinghttp.NewRouter(svc, auth.NewTokens(cfg.JWTSecret), log, cfg.RequestTimeout),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	g.Go(func() error {
		log.Info("http server listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	grpcServer := bookinggrpc.NewServer()
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	grpcServer.SetServing(true)
	g.Go(func() error {
		log.Info("grpc server listening", zap.String("port", cfg.GRPCPort))
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down booking service")
		grpcServer.SetServing(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		grpcServer.Stop()
		return err
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config, log *zap.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		log.Warn("using in-memory store; reservations are lost on restart")
		return store.NewMemoryStore(), nil
	case config.StorePostgres:
		creds := &repository.Credentials{
			Host:              cfg.DBHost,
			Port:              cfg.DBPort,
			User:              cfg.DBUser,
			Password:          cfg.DBPassword,
			DBName:            cfg.DBName,
			SSLMode:           cfg.DBSSLMode,
			MigrationsDirPath: cfg.MigrationsDirPath,
		}
		repo, err := repository.NewRepository(ctx, creds)
		if err != nil {
			return nil, err
		}
		if err := repo.RunMigrations(creds); err != nil {
			repo.Close()
			return nil, err
		}
		log.Info("database migrations completed", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
