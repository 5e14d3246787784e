package tenant

import (
	"context"
	"fmt"

	"github.com/dmitrymomot/pillar/pkg/statemachine"
)

// Event moves a tenant between statuses.
type Event string

const (
	EventActivate Event = "activate"
	EventSuspend  Event = "suspend"
	EventResume   Event = "resume"
	EventArchive  Event = "archive"
)

var lifecycle = statemachine.MustNew(
	statemachine.Transition[Status, Event]{From: StatusProvisioning, To: StatusActive, Event: EventActivate},
	statemachine.Transition[Status, Event]{From: StatusActive, To: StatusSuspended, Event: EventSuspend},
	statemachine.Transition[Status, Event]{From: StatusSuspended, To: StatusActive, Event: EventResume},
	statemachine.Transition[Status, Event]{From: StatusProvisioning, To: StatusArchived, Event: EventArchive},
	statemachine.Transition[Status, Event]{From: StatusActive, To: StatusArchived, Event: EventArchive},
	statemachine.Transition[Status, Event]{From: StatusSuspended, To: StatusArchived, Event: EventArchive},
)

// Fire applies event to the status from.
func Fire(ctx context.Context, from Status, event Event) (Status, error) {
	to, err := lifecycle.Next(ctx, from, event, nil)
	if err != nil {
		return from, fmt.Errorf("%w: %w", ErrInvalidStatusTransition, err)
	}
	return to, nil
}

// TransitionTo checks that the lifecycle allows moving from one status to
// another. Staying in the same status is always allowed.
func TransitionTo(from, to Status) error {
	if from == to {
		return nil
	}
	for _, e := range lifecycle.Events(from) {
		if target, ok := lifecycle.Target(from, e); ok && target == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, from, to)
}
