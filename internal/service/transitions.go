package service

import (
	"fmt"

	"github.com/ceivoice/ticket-service/internal/domain"
)

// TransitionPolicy decides whether a ticket may move between two statuses.
type TransitionPolicy interface {
	Allow(from, to domain.TicketStatus) error
}

// PermissiveTransitions accepts any move between recognized statuses.
type PermissiveTransitions struct{}

func (PermissiveTransitions) Allow(_, _ domain.TicketStatus) error {
	return nil
}

// ForwardOnlyTransitions rejects moving back along New → Assigned → Solving
// and leaving Solved or Failed.
type ForwardOnlyTransitions struct{}

func (ForwardOnlyTransitions) Allow(from, to domain.TicketStatus) error {
	if from == to {
		return nil
	}
	if from.Terminal() {
		return fmt.Errorf("ticket is %s and can no longer change status", from)
	}
	if to.Rank() < from.Rank() {
		return fmt.Errorf("cannot move ticket from %s back to %s", from, to)
	}
	return nil
}

// TransitionPolicyFor picks the policy for the strict-transitions setting.
func TransitionPolicyFor(strict bool) TransitionPolicy {
	if strict {
		return ForwardOnlyTransitions{}
	}
	return PermissiveTransitions{}
}
