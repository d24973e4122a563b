package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/voltline-backend/internal/analytics"
	"github.com/angelmondragon/voltline-backend/internal/analytics/writer"
	"github.com/angelmondragon/voltline-backend/internal/notifications"
	"github.com/angelmondragon/voltline-backend/internal/subscriber"
	"github.com/angelmondragon/voltline-backend/pkg/bigquery"
	"github.com/angelmondragon/voltline-backend/pkg/config"
	"github.com/angelmondragon/voltline-backend/pkg/db"
	"github.com/angelmondragon/voltline-backend/pkg/email"
	"github.com/angelmondragon/voltline-backend/pkg/instance"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
	"github.com/angelmondragon/voltline-backend/pkg/metrics"
	"github.com/angelmondragon/voltline-backend/pkg/migrate"
	"github.com/angelmondragon/voltline-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/voltline-backend/pkg/pubsub"
	"github.com/angelmondragon/voltline-backend/pkg/redis"
)

const (
	notificationConsumerName = "notification-worker"
	analyticsConsumerName    = "analytics-worker"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub", err)
		}
	}()

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	requireResource(ctx, logg, "bigquery", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "error closing bigquery", err)
		}
	}()

	notificationSubscription := pubsubClient.NotificationSubscription()
	if notificationSubscription == nil {
		requireResource(ctx, logg, "notification subscription", errors.New("subscription not configured"))
	}
	analyticsSubscription := pubsubClient.AnalyticsSubscription()
	if analyticsSubscription == nil {
		requireResource(ctx, logg, "analytics subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "notifications service", err)

	notificationConsumer, err := notifications.NewConsumer(notifications.ConsumerParams{
		Service:   notificationService,
		Sender:    email.NewSender(cfg.Sendgrid, logg),
		Templates: cfg.Sendgrid,
		Metrics:   metrics.NewDomainMetrics(prometheus.DefaultRegisterer),
		Logger:    logg,
	})
	requireResource(ctx, logg, "notification consumer", err)

	notificationSubscriber, err := subscriber.NewService(subscriber.Params{
		Name:         notificationConsumerName,
		Subscription: notificationSubscription,
		Handler:      notificationConsumer,
		Idempotency:  manager,
		Logger:       logg,
	})
	requireResource(ctx, logg, "notification subscriber", err)

	// Batch size 1 keeps the ack tied to a committed insert.
	dealerEvents, err := writer.New(bqClient, writer.Config{
		DealerEventsTable: cfg.BigQuery.DealerEventsTable,
		BatchSize:         1,
	})
	requireResource(ctx, logg, "analytics bigquery writer", err)

	analyticsConsumer, err := analytics.NewConsumer(dealerEvents, logg)
	requireResource(ctx, logg, "analytics consumer", err)

	analyticsSubscriber, err := subscriber.NewService(subscriber.Params{
		Name:         analyticsConsumerName,
		Subscription: analyticsSubscription,
		Handler:      analyticsConsumer,
		Idempotency:  manager,
		Logger:       logg,
	})
	requireResource(ctx, logg, "analytics subscriber", err)

	service, err := NewService(ServiceParams{
		Config:      cfg,
		Logger:      logg,
		DB:          dbClient,
		Redis:       redisClient,
		PubSub:      pubsubClient,
		BigQuery:    bqClient,
		Subscribers: []Runner{notificationSubscriber, analyticsSubscriber},
	})
	requireResource(ctx, logg, "worker service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})
	logg.Info(runCtx, "starting worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
