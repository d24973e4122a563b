package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/voltline-backend/pkg/config"
	"github.com/angelmondragon/voltline-backend/pkg/db/models"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
	"github.com/angelmondragon/voltline-backend/pkg/metrics"
	"github.com/angelmondragon/voltline-backend/pkg/outbox"
	"github.com/angelmondragon/voltline-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/voltline-backend/pkg/outbox/registry"
)

func TestProcessBatchContinuesAfterTransientFailure(t *testing.T) {
	repo := &fakeRepo{events: []models.OutboxEvent{
		orderPaidRow(t, 0),
		orderPaidRow(t, 0),
	}}
	pub := &fakePublisher{results: []publishResult{
		fakePublishResult{err: errors.New("unavailable")},
		fakePublishResult{},
	}}
	svc := newTestService(t, repo, pub, resolvingRegistry(), &fakeDLQRepo{}, nil)

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.True(t, processed)
	require.Equal(t, []uuid.UUID{repo.events[0].ID}, repo.failed)
	require.Equal(t, []uuid.UUID{repo.events[1].ID}, repo.published)
}

func TestProcessBatchReportsIdleWhenEmpty(t *testing.T) {
	svc := newTestService(t, &fakeRepo{}, &fakePublisher{}, resolvingRegistry(), &fakeDLQRepo{}, nil)

	processed, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.False(t, processed)
}

func TestProcessBatchDeadLettersUndecodableRow(t *testing.T) {
	row := orderPaidRow(t, 0)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	dlq := &fakeDLQRepo{}
	reg := &fakeRegistry{err: registry.NewNonRetryableError(errors.New("decode order_paid payload"))}
	svc := newTestService(t, repo, &fakePublisher{}, reg, dlq, nil)

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	entry := dlq.entries[0]
	require.Equal(t, row.ID, entry.EventID)
	require.JSONEq(t, string(row.Payload), string(entry.Payload))
	require.Equal(t, enums.OutboxDLQReasonNonRetryable, entry.ErrorReason)
	require.Equal(t, []uuid.UUID{row.ID}, repo.terminal)
}

func TestProcessBatchDeadLettersAfterMaxAttempts(t *testing.T) {
	row := orderPaidRow(t, 1)
	repo := &fakeRepo{events: []models.OutboxEvent{row}}
	dlq := &fakeDLQRepo{}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: errors.New("deadline exceeded")}}}
	svc := newTestService(t, repo, pub, resolvingRegistry(), dlq, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	_, err := svc.processBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, dlq.entries, 1)
	require.Equal(t, enums.OutboxDLQReasonMaxAttempts, dlq.entries[0].ErrorReason)
	require.Contains(t, *dlq.entries[0].ErrorMessage, "max publish attempts reached")
	require.Empty(t, repo.failed)
}

func TestProcessBatchAbortsWhenBookkeepingFails(t *testing.T) {
	repo := &fakeRepo{
		events:     []models.OutboxEvent{orderPaidRow(t, 0)},
		publishErr: errors.New("connection reset"),
	}
	pub := &fakePublisher{results: []publishResult{fakePublishResult{}}}
	svc := newTestService(t, repo, pub, resolvingRegistry(), &fakeDLQRepo{}, nil)

	_, err := svc.processBatch(context.Background())
	require.ErrorContains(t, err, "mark published")
}

func TestRelayAttributesCarryRoutingFields(t *testing.T) {
	dealerID := uuid.New()
	row := orderPaidRow(t, 0)
	var captured *gcppubsub.Message
	pub := &fakePublisher{
		results: []publishResult{fakePublishResult{}},
		onPublish: func(msg *gcppubsub.Message) {
			captured = msg
		},
	}
	reg := resolvingRegistry()
	reg.resolved.Envelope.Actor = &outbox.ActorRef{UserID: uuid.New(), DealerID: &dealerID, Role: "dealer"}
	svc := newTestService(t, &fakeRepo{events: []models.OutboxEvent{row}}, pub, reg, &fakeDLQRepo{}, nil)

	outcome, err := svc.relay(context.Background(), nil, row)
	require.NoError(t, err)
	require.Equal(t, outcomePublished, outcome)
	require.NotNil(t, captured)
	require.Equal(t, "order_paid", captured.Attributes["event_type"])
	require.Equal(t, "order", captured.Attributes["aggregate_type"])
	require.Equal(t, row.AggregateID.String(), captured.Attributes["aggregate_id"])
	require.Equal(t, row.ID.String(), captured.Attributes["event_id"])
	require.Equal(t, dealerID.String(), captured.Attributes["dealer_id"])
	require.Equal(t, "1", captured.Attributes["schema_version"])
	require.Equal(t, row.AggregateID.String(), captured.OrderingKey)
}

func TestRelayWithoutPublisherIsTerminal(t *testing.T) {
	row := orderPaidRow(t, 0)
	dlq := &fakeDLQRepo{}
	svc := newTestService(t, &fakeRepo{}, nil, resolvingRegistry(), dlq, nil)
	svc.publisherFactory = func(string) publisher { return nil }

	outcome, err := svc.relay(context.Background(), nil, row)
	require.NoError(t, err)
	require.Equal(t, outcomeDeadLettered, outcome)
	require.Len(t, dlq.entries, 1)
}

func TestCachedPublishersSkipsUnconfiguredTopic(t *testing.T) {
	factory := cachedPublishers(&fakePubSubClient{}, "voltline-domain-events")
	require.Nil(t, factory("voltline-domain-events"))
	require.Nil(t, factory("other"))
}

func TestNewServiceRequiresDLQRepository(t *testing.T) {
	_, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     testLogger(),
		DB:         &fakeDB{},
		PubSub:     &fakePubSubClient{},
		Repository: &fakeRepo{},
		Registry:   resolvingRegistry(),
	})
	require.ErrorContains(t, err, "dlq repository")
}

func TestNextBackoffCaps(t *testing.T) {
	base := 500 * time.Millisecond
	require.Equal(t, time.Second, nextBackoff(base, base, maxBackoff))
	require.Equal(t, maxBackoff, nextBackoff(8*time.Second, base, maxBackoff))
	require.Equal(t, time.Second, nextBackoff(0, base, maxBackoff))
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, reg registryResolver, dlq dlqRepository, override *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{BatchSize: 2, PollIntervalMS: 100, MaxAttempts: 5}
	if override != nil {
		outboxCfg = *override
	}
	svc, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: outboxCfg},
		Logger:           testLogger(),
		DB:               &fakeDB{},
		PubSub:           &fakePubSubClient{},
		Repository:       repo,
		Registry:         reg,
		DLQRepository:    dlq,
		Metrics:          metrics.NewOutboxMetrics(prometheus.NewRegistry()),
		PublisherFactory: func(string) publisher { return pub },
	})
	require.NoError(t, err)
	return svc
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard})
}

func orderPaidRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	id := uuid.New()
	data, err := json.Marshal(payloads.OrderPaidEvent{OrderID: uuid.New(), PaidAt: time.Now().UTC()})
	require.NoError(t, err)
	env, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    id.String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            id,
		EventType:     enums.EventOrderPaid,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       env,
		AttemptCount:  attempts,
	}
}

func resolvingRegistry() *fakeRegistry {
	return &fakeRegistry{resolved: &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			Topic:         "voltline-domain-events",
		},
		Envelope: outbox.PayloadEnvelope{Version: 1},
		Payload:  &payloads.OrderPaidEvent{},
	}}
}

type fakeRepo struct {
	events     []models.OutboxEvent
	published  []uuid.UUID
	failed     []uuid.UUID
	terminal   []uuid.UUID
	publishErr error
}

func (f *fakeRepo) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error { return nil }

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error { return nil }

func (f *fakePubSubClient) DomainPublisher() *gcppubsub.Publisher { return nil }

func (f *fakePubSubClient) Publisher(string) *gcppubsub.Publisher { return nil }

type fakePublisher struct {
	results   []publishResult
	onPublish func(*gcppubsub.Message)
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	if f.onPublish != nil {
		f.onPublish(msg)
	}
	if len(f.results) == 0 {
		return nil
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "server-id", f.err
}

type fakeRegistry struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (f *fakeRegistry) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	resolved := *f.resolved
	resolved.Envelope.EventID = event.ID.String()
	return &resolved, nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
