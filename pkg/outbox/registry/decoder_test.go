package registry

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/voltline-backend/pkg/enums"
	"github.com/angelmondragon/voltline-backend/pkg/outbox/payloads"
)

func TestDecoderRegistry(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventLeadAssigned, 1, func(payload json.RawMessage) (interface{}, error) {
		var decoded map[string]string
		if err := json.Unmarshal(payload, &decoded); err != nil {
			return nil, err
		}
		return decoded, nil
	})

	output, err := reg.Decode(enums.EventLeadAssigned, 1, json.RawMessage(`{"subject":"range question"}`))
	require.NoError(t, err)
	require.Equal(t, "range question", output.(map[string]string)["subject"])

	_, err = reg.Decode(enums.EventLeadAssigned, 2, json.RawMessage(`{}`))
	require.Error(t, err)
}

func TestNewDomainDecodersCoversRegistry(t *testing.T) {
	decoders := NewDomainDecoders(newTestEventRegistry(t))

	payoutID := uuid.New()
	raw := mustMarshal(t, payloads.PayoutCreatedEvent{PayoutID: payoutID, FromDate: "2024-01-01"})
	out, err := decoders.Decode(enums.EventPayoutCreated, 1, raw)
	require.NoError(t, err)

	decoded, ok := out.(*payloads.PayoutCreatedEvent)
	require.True(t, ok)
	require.Equal(t, payoutID, decoded.PayoutID)

	for _, eventType := range []enums.OutboxEventType{
		enums.EventOrderCreated,
		enums.EventOrderPaid,
		enums.EventOrderStatusChanged,
		enums.EventPayoutStatusChanged,
		enums.EventLeadAssigned,
		enums.EventTestRideBooked,
	} {
		_, err := decoders.Decode(eventType, 1, json.RawMessage(`{}`))
		require.NoError(t, err, "event %s", eventType)
	}
}
