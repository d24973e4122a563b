package enums

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	for _, status := range OrderStatuses() {
		parsed, err := ParseOrderStatus(string(status))
		require.NoError(t, err)
		require.Equal(t, status, parsed)
	}
	_, err := ParseOrderStatus("returned")
	require.Error(t, err)
}

func TestPayoutStatusTerminal(t *testing.T) {
	require.True(t, PayoutStatusCompleted.IsTerminal())
	require.True(t, PayoutStatusFailed.IsTerminal())
	require.False(t, PayoutStatusPending.IsTerminal())
	require.False(t, PayoutStatusProcessing.IsTerminal())

	_, err := ParsePayoutStatus("paid")
	require.Error(t, err)
}

func TestParseActorRoleIgnoresCase(t *testing.T) {
	role, err := ParseActorRole(" Admin ")
	require.NoError(t, err)
	require.Equal(t, ActorRoleAdmin, role)

	_, err = ParseActorRole("superuser")
	require.Error(t, err)
}

func TestLeadEnums(t *testing.T) {
	require.True(t, LeadStatusNew.IsValid())
	require.False(t, LeadStatus("archived").IsValid())

	source, err := ParseLeadSource("test_ride")
	require.NoError(t, err)
	require.Equal(t, LeadSourceTestRide, source)

	_, err = ParseLeadPriority("low")
	require.Error(t, err)
}

func TestOutboxEventTypes(t *testing.T) {
	for _, raw := range []string{"order_paid", "payout_created", "lead_assigned", "test_ride_booked"} {
		_, err := ParseOutboxEventType(raw)
		require.NoError(t, err)
	}
	require.False(t, OutboxDLQReasonMaxAttempts == "")
	require.True(t, OutboxDLQReasonNonRetryable.IsValid())
}
