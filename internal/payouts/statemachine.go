package payouts

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/voltline-backend/pkg/enums"
)

type transition struct {
	From enums.PayoutStatus
	To   enums.PayoutStatus
}

// payoutTransitions lists the forward moves a payout may make. completed and
// failed have no outgoing edges.
var payoutTransitions = []transition{
	{From: enums.PayoutStatusPending, To: enums.PayoutStatusProcessing},
	{From: enums.PayoutStatusPending, To: enums.PayoutStatusFailed},
	{From: enums.PayoutStatusProcessing, To: enums.PayoutStatusCompleted},
	{From: enums.PayoutStatusProcessing, To: enums.PayoutStatusFailed},
}

var transitionSet = func() map[transition]bool {
	m := make(map[transition]bool, len(payoutTransitions))
	for _, t := range payoutTransitions {
		m[t] = true
	}
	return m
}()

// ValidTransitionsFrom returns the statuses reachable from status in one step.
func ValidTransitionsFrom(status enums.PayoutStatus) []enums.PayoutStatus {
	var next []enums.PayoutStatus
	for _, t := range payoutTransitions {
		if t.From == status {
			next = append(next, t.To)
		}
	}
	return next
}

// CanTransition reports whether a payout in from may be moved to to. Keeping
// the same status is accepted on non-terminal payouts so reference fields can
// be edited.
func CanTransition(from, to enums.PayoutStatus) error {
	if from == to && !from.IsTerminal() {
		return nil
	}
	if transitionSet[transition{From: from, To: to}] {
		return nil
	}
	return fmt.Errorf("payout cannot move from %s to %s; allowed: %s", from, to, describe(ValidTransitionsFrom(from)))
}

func describe(statuses []enums.PayoutStatus) string {
	if len(statuses) == 0 {
		return "none (terminal state)"
	}
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
