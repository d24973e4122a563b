package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/voltline-backend/pkg/enums"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
	"github.com/angelmondragon/voltline-backend/pkg/outbox"
)

func TestBuildEnvelope(t *testing.T) {
	eventID := uuid.New()
	payoutID := uuid.New()
	occurred := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := buildMessage(t, eventID.String(), occurred, map[string]string{
		"event_type":     "payout_created",
		"aggregate_type": "payout",
		"aggregate_id":   payoutID.String(),
	})

	env, err := buildEnvelope(msg)
	require.NoError(t, err)
	require.Equal(t, eventID, env.EventID)
	require.Equal(t, enums.EventPayoutCreated, env.EventType)
	require.Equal(t, enums.AggregatePayout, env.AggregateType)
	require.Equal(t, payoutID, env.AggregateID)
	require.True(t, occurred.Equal(env.OccurredAt))

	var data map[string]string
	require.NoError(t, env.Decode(&data))
	require.Equal(t, "bar", data["foo"])
}

func TestBuildEnvelopeFallsBackToEventIDAttribute(t *testing.T) {
	eventID := uuid.New()
	msg := buildMessage(t, "not-a-uuid", time.Now(), map[string]string{
		"event_id":       eventID.String(),
		"event_type":     "lead_assigned",
		"aggregate_type": "lead",
		"aggregate_id":   uuid.NewString(),
	})
	env, err := buildEnvelope(msg)
	require.NoError(t, err)
	require.Equal(t, eventID, env.EventID)
}

func TestBuildEnvelopeRejectsUnknownEventType(t *testing.T) {
	msg := buildMessage(t, uuid.NewString(), time.Now(), map[string]string{
		"event_type":     "license_status_changed",
		"aggregate_type": "payout",
		"aggregate_id":   uuid.NewString(),
	})
	_, err := buildEnvelope(msg)
	require.Error(t, err)
}

func TestProcessAlreadyProcessed(t *testing.T) {
	manager := &stubManager{checkResult: true}
	handler := &stubHandler{}
	svc := newTestService(t, handler, manager)

	res := svc.process(context.Background(), validMessage(t))
	require.False(t, res.nack)
	require.False(t, handler.called)
	require.Len(t, manager.checked, 1)
}

func TestProcessHandlerErrorRetries(t *testing.T) {
	manager := &stubManager{}
	handler := &stubHandler{err: errors.New("boom")}
	svc := newTestService(t, handler, manager)

	res := svc.process(context.Background(), validMessage(t))
	require.True(t, res.nack)
	require.True(t, handler.called)
	require.Len(t, manager.deleted, 1)
}

func TestProcessUnsupportedEventAcks(t *testing.T) {
	manager := &stubManager{}
	handler := &stubHandler{err: fmt.Errorf("wrap: %w", ErrUnsupportedEvent)}
	svc := newTestService(t, handler, manager)

	res := svc.process(context.Background(), validMessage(t))
	require.False(t, res.nack)
	require.Empty(t, manager.deleted)
}

func TestProcessInvalidEnvelopeAcks(t *testing.T) {
	manager := &stubManager{}
	handler := &stubHandler{}
	svc := newTestService(t, handler, manager)

	res := svc.process(context.Background(), &gcppubsub.Message{Data: []byte("invalid json")})
	require.False(t, res.nack)
	require.False(t, handler.called)
	require.Empty(t, manager.checked)
}

func TestProcessIdempotencyFailureNacks(t *testing.T) {
	manager := &stubManager{checkErr: errors.New("redis down")}
	handler := &stubHandler{}
	svc := newTestService(t, handler, manager)

	res := svc.process(context.Background(), validMessage(t))
	require.True(t, res.nack)
	require.False(t, handler.called)
}

func validMessage(t *testing.T) *gcppubsub.Message {
	return buildMessage(t, uuid.NewString(), time.Now().UTC(), map[string]string{
		"event_type":     "order_paid",
		"aggregate_type": "order",
		"aggregate_id":   uuid.NewString(),
	})
}

func buildMessage(t *testing.T, eventID string, occurred time.Time, attrs map[string]string) *gcppubsub.Message {
	t.Helper()
	data, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: occurred,
		Data:       json.RawMessage(`{"foo":"bar"}`),
	})
	require.NoError(t, err)
	return &gcppubsub.Message{ID: "msg-1", Data: data, Attributes: attrs}
}

func newTestService(t *testing.T, handler Handler, manager *stubManager) *Service {
	t.Helper()
	return &Service{
		name:    "test-consumer",
		handler: handler,
		manager: manager,
		logg:    logger.New(logger.Options{ServiceName: "subscriber-test", Output: io.Discard}),
	}
}

type stubHandler struct {
	called   bool
	envelope Envelope
	err      error
}

func (h *stubHandler) Handle(ctx context.Context, envelope Envelope) error {
	h.called = true
	h.envelope = envelope
	return h.err
}

type stubManager struct {
	checkResult bool
	checkErr    error
	checked     []uuid.UUID
	deleted     []uuid.UUID
}

func (s *stubManager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	s.checked = append(s.checked, eventID)
	return s.checkResult, s.checkErr
}

func (s *stubManager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	s.deleted = append(s.deleted, eventID)
	return nil
}
