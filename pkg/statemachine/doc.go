// Package statemachine validates lifecycle transitions for entities whose
// current state lives in storage rather than in memory.
//
// A Machine is an immutable transition table built once at startup. It holds
// no current state: callers pass the persisted state to Next and store the
// returned state themselves. That makes a single Machine safe to share across
// goroutines and requests.
//
//	m := statemachine.MustNew(
//		statemachine.Transition[Status, Event]{From: Provisioning, To: Active, Event: Activate},
//		statemachine.Transition[Status, Event]{From: Active, To: Suspended, Event: Suspend},
//	)
//	next, err := m.Next(ctx, current, Activate, nil)
//
// Guards can veto a transition; actions run in order after all guards pass and
// before the new state is returned. An action error aborts the transition.
package statemachine
