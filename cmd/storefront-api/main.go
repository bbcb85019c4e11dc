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

	"github.com/Chetan2520/india-food-court/internal/cache"
	"github.com/Chetan2520/india-food-court/internal/config"
	"github.com/Chetan2520/india-food-court/internal/events"
	"github.com/Chetan2520/india-food-court/internal/geo"
	"github.com/Chetan2520/india-food-court/internal/httpapi"
	"github.com/Chetan2520/india-food-court/internal/logger"
	"github.com/Chetan2520/india-food-court/internal/mongodb"
	"github.com/Chetan2520/india-food-court/internal/orders"
	"github.com/Chetan2520/india-food-court/internal/reviews"
	"github.com/Chetan2520/india-food-court/internal/shop"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.LoadServer()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, cfg.DevLogging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("storefront api failed", zap.Error(err))
	}
}

func run(cfg *config.Server, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	mongoDB, err := mongodb.Connect(startCtx, mongodb.Options{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDBName,
		MaxPoolSize: cfg.MongoMaxPoolSize,
		MinPoolSize: cfg.MongoMinPoolSize,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := mongodb.Disconnect(context.Background(), mongoDB); err != nil {
			log.Warn("mongo disconnect failed", zap.Error(err))
		}
	}()
	log.Info("connected to MongoDB", zap.String("db", cfg.MongoDBName))

	// shop
	var (
		shopCache   shop.Cache
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer client.Close()
		if err := client.Ping(startCtx).Err(); err != nil {
			log.Warn("redis unavailable, shop cache disabled", zap.Error(err))
		} else {
			redisClient = client
			shopCache = cache.NewShopCache(client, cfg.ShopCacheTTL, cfg.ShopCacheJitter)
			log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))
		}
	}

	shopRepo := shop.NewMongoRepository(mongoDB)
	if err := shop.EnsureIndexes(startCtx, shopRepo); err != nil {
		return err
	}
	shopService := shop.NewService(shopRepo, shopCache, log.Named("shop"))
	if err := shopService.Seed(startCtx, shop.DefaultShop()); err != nil {
		return fmt.Errorf("seed shop: %w", err)
	}

	// orders
	orderRepo, closeOrders, err := newOrderRepository(startCtx, cfg, mongoDB)
	if err != nil {
		return err
	}
	defer closeOrders()

	var publisher orders.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic, log.Named("events"))
		defer kp.Close()
		publisher = kp
		log.Info("publishing order events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaOrderTopic))
	}

	if cfg.CartSync && len(cfg.KafkaBrokers) > 0 && redisClient != nil {
		cleaner := events.NewCartCleaner(cfg.KafkaBrokers, cfg.KafkaOrderTopic, cfg.CartSyncGroup,
			cache.NewSessionStore(redisClient, 0), log.Named("cart-cleaner"))
		defer cleaner.Close()
		go cleaner.Run(ctx)
		log.Info("clearing session carts on order events", zap.String("group", cfg.CartSyncGroup))
	}

	orderService := orders.NewService(orderRepo, shopService, geo.NewGate(cfg.MinOrderDistance), publisher, log.Named("orders"))
	// runs before the publisher is closed
	defer orderService.Wait()

	// reviews
	reviewRepo := reviews.NewMongoRepository(mongoDB)
	if err := createIndexes(startCtx, reviewRepo); err != nil {
		return err
	}
	reviewService := reviews.NewService(reviewRepo, log.Named("reviews"))

	limiter := httpapi.NewRateLimiter(cfg.OrderRatePerMinute)
	go limiter.Run(ctx, time.Minute, 10*time.Minute)

	ready := func(ctx context.Context) error {
		return mongodb.Ping(ctx, mongoDB)
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		Orders:             orderService,
		Shop:               shopService,
		Reviews:            reviewService,
		OrderLimiter:       limiter,
		Ready:              ready,
		Log:                log,
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		CORSOrigins:        cfg.CORSOrigins,
		TrustProxy:         cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// gRPC health for orchestrators
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on grpc port: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		log.Info("http server listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		log.Info("grpc health listening", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go watchHealth(ctx, healthServer, ready, log)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	log.Info("shutting down")
	healthServer.Shutdown()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	log.Info("server exited")
	return nil
}

func newOrderRepository(ctx context.Context, cfg *config.Server, db *mongo.Database) (orders.Repository, func(), error) {
	if cfg.OrderStore == "postgres" {
		repo, err := orders.NewPostgresRepository(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.RunMigrations(); err != nil {
			repo.Close()
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	}

	repo := orders.NewMongoRepository(db)
	if err := createIndexes(ctx, repo); err != nil {
		return nil, nil, err
	}
	return repo, func() {}, nil
}

func createIndexes(ctx context.Context, repo interface{}) error {
	if r, ok := repo.(interface{ CreateIndexes(context.Context) error }); ok {
		return r.CreateIndexes(ctx)
	}
	return nil
}

func watchHealth(ctx context.Context, hs *health.Server, ready func(context.Context) error, log *zap.Logger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	status := healthpb.HealthCheckResponse_SERVING
	hs.SetServingStatus("", status)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := ready(pingCtx)
			cancel()

			next := healthpb.HealthCheckResponse_SERVING
			if err != nil {
				next = healthpb.HealthCheckResponse_NOT_SERVING
			}
			if next != status {
				log.Info("health status changed", zap.String("status", next.String()), zap.Error(err))
				status = next
				hs.SetServingStatus("", status)
			}
		}
	}
}
