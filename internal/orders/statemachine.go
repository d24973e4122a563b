package orders

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/voltline-backend/pkg/enums"
)

type transition struct {
	From enums.OrderStatus
	To   enums.OrderStatus
}

// orderTransitions is the fulfillment path plus cancellation from every
// non-terminal state. delivered and cancelled are terminal.
var orderTransitions = []transition{
	{From: enums.OrderStatusPending, To: enums.OrderStatusConfirmed},
	{From: enums.OrderStatusConfirmed, To: enums.OrderStatusProcessing},
	{From: enums.OrderStatusProcessing, To: enums.OrderStatusShipped},
	{From: enums.OrderStatusShipped, To: enums.OrderStatusDelivered},

	{From: enums.OrderStatusPending, To: enums.OrderStatusCancelled},
	{From: enums.OrderStatusConfirmed, To: enums.OrderStatusCancelled},
	{From: enums.OrderStatusProcessing, To: enums.OrderStatusCancelled},
	{From: enums.OrderStatusShipped, To: enums.OrderStatusCancelled},
}

var transitionSet = func() map[transition]bool {
	m := make(map[transition]bool, len(orderTransitions))
	for _, t := range orderTransitions {
		m[t] = true
	}
	return m
}()

// ValidTransitionsFrom returns all valid next states from a given state.
func ValidTransitionsFrom(status enums.OrderStatus) []enums.OrderStatus {
	var next []enums.OrderStatus
	for _, t := range orderTransitions {
		if t.From == status {
			next = append(next, t.To)
		}
	}
	return next
}

// IsTerminal reports whether no transition leaves status.
func IsTerminal(status enums.OrderStatus) bool {
	return len(ValidTransitionsFrom(status)) == 0
}

// CanTransition checks a single step of the fulfillment state machine.
func CanTransition(from, to enums.OrderStatus) error {
	if transitionSet[transition{From: from, To: to}] {
		return nil
	}
	next := ValidTransitionsFrom(from)
	allowed := "none (terminal state)"
	if len(next) > 0 {
		parts := make([]string, len(next))
		for i, s := range next {
			parts[i] = string(s)
		}
		allowed = strings.Join(parts, ", ")
	}
	return fmt.Errorf("invalid transition: %s -> %s; valid transitions from %s are: %s", from, to, from, allowed)
}
