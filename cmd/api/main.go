package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Fundandi1/memorybear/internal/cart"
	"github.com/Fundandi1/memorybear/internal/checkout"
	"github.com/Fundandi1/memorybear/internal/config"
	apihttp "github.com/Fundandi1/memorybear/internal/http"
	"github.com/Fundandi1/memorybear/internal/publisher"
	"github.com/Fundandi1/memorybear/internal/repository"
	"github.com/Fundandi1/memorybear/internal/vipps"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Mongo holds the carts.
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.WithError(err).Fatal("failed to connect to mongo")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.WithError(err).Warn("mongo disconnect failed")
		}
	}()
	mongoDB := mongoClient.Database(cfg.MongoDB)
	if err := cart.CreateIndexes(ctx, mongoDB); err != nil {
		log.WithError(err).Fatal("failed to create cart indexes")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()

	cartService := cart.NewService(
		cart.NewMongoRepository(mongoDB),
		cart.NewRedisCache(redisClient),
		log,
	)

	// Postgres holds orders, the payment audit trail and the outbox.
	creds := &repository.Credentials{
		Host:              cfg.DBHost,
		Port:              cfg.DBPort,
		User:              cfg.DBUser,
		Password:          cfg.DBPassword,
		DBName:            cfg.DBName,
		MigrationsDirPath: cfg.MigrationsPath,
	}
	repo, err := repository.NewRepository(creds)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer repo.Close()

	if err := repo.RunMigrations(creds); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}
	log.Info("database migrations completed")

	provider := vipps.NewClient(vipps.Config{
		BaseURL:              cfg.VippsBaseURL,
		Production:           cfg.VippsProduction,
		ClientID:             cfg.VippsClientID,
		ClientSecret:         cfg.VippsClientSecret,
		SubscriptionKey:      cfg.VippsSubscriptionKey,
		MerchantSerialNumber: cfg.VippsMerchantSerial,
		WebhookURL:           cfg.VippsWebhookURL,
	}, log)

	checkoutService := checkout.NewService(provider, repo, log, checkout.Config{
		ReturnURL:         cfg.CheckoutReturnURL,
		Currency:          cfg.Currency,
		OptimisticCapture: cfg.OptimisticCapture,
	})

	poller := publisher.NewOutboxPoller(repo, log, cfg.KafkaBrokers...)
	defer poller.Close()
	go poller.Run(ctx)

	router := apihttp.NewRouter(
		apihttp.NewCartHandler(cartService, cfg.RequestTimeout),
		apihttp.NewCheckoutHandler(checkoutService, cartService, log, cfg.RequestTimeout),
		cfg.RequestTimeout,
	)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.HTTPPort).Info("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown failed")
		os.Exit(1)
	}

	log.Info("stopped")
}
