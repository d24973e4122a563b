package payouts

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/voltline-backend/pkg/enums"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]enums.PayoutStatus]bool{
		{enums.PayoutStatusPending, enums.PayoutStatusPending}:       true,
		{enums.PayoutStatusPending, enums.PayoutStatusProcessing}:    true,
		{enums.PayoutStatusPending, enums.PayoutStatusFailed}:        true,
		{enums.PayoutStatusProcessing, enums.PayoutStatusProcessing}: true,
		{enums.PayoutStatusProcessing, enums.PayoutStatusCompleted}:  true,
		{enums.PayoutStatusProcessing, enums.PayoutStatusFailed}:     true,
	}
	all := []enums.PayoutStatus{
		enums.PayoutStatusPending,
		enums.PayoutStatusProcessing,
		enums.PayoutStatusCompleted,
		enums.PayoutStatusFailed,
	}
	for _, from := range all {
		for _, to := range all {
			err := CanTransition(from, to)
			if allowed[[2]enums.PayoutStatus{from, to}] {
				require.NoError(t, err, "%s -> %s", from, to)
			} else {
				require.Error(t, err, "%s -> %s", from, to)
			}
		}
	}
}

func TestValidTransitionsFromTerminal(t *testing.T) {
	require.Empty(t, ValidTransitionsFrom(enums.PayoutStatusCompleted))
	require.Empty(t, ValidTransitionsFrom(enums.PayoutStatusFailed))
	require.ElementsMatch(t,
		[]enums.PayoutStatus{enums.PayoutStatusProcessing, enums.PayoutStatusFailed},
		ValidTransitionsFrom(enums.PayoutStatusPending))

	err := CanTransition(enums.PayoutStatusCompleted, enums.PayoutStatusPending)
	require.ErrorContains(t, err, "terminal")
}
