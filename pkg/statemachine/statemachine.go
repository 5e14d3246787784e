package statemachine

import (
	"context"
	"fmt"
)

// Guard reports whether a transition may proceed.
type Guard[S, E ~string] func(ctx context.Context, from S, event E, data any) bool

// Action runs a side effect for an accepted transition.
type Action[S, E ~string] func(ctx context.Context, from, to S, event E, data any) error

// Transition is one edge of the lifecycle graph.
type Transition[S, E ~string] struct {
	From    S
	To      S
	Event   E
	Guards  []Guard[S, E]
	Actions []Action[S, E]
}

// Machine is an immutable transition table.
type Machine[S, E ~string] struct {
	// transitions[from][event] keeps declaration order so guard-based
	// branching picks the first edge whose guards pass.
	transitions map[S]map[E][]Transition[S, E]
}

// New builds a machine from the given transitions.
func New[S, E ~string](transitions ...Transition[S, E]) (*Machine[S, E], error) {
	m := &Machine[S, E]{transitions: make(map[S]map[E][]Transition[S, E])}
	for i, t := range transitions {
		if t.From == "" || t.To == "" || t.Event == "" {
			return nil, fmt.Errorf("transition[%d]: %w", i, ErrInvalidTransition)
		}
		if _, ok := m.transitions[t.From]; !ok {
			m.transitions[t.From] = make(map[E][]Transition[S, E])
		}
		m.transitions[t.From][t.Event] = append(m.transitions[t.From][t.Event], t)
	}
	return m, nil
}

// MustNew is like New but panics on an invalid table.
func MustNew[S, E ~string](transitions ...Transition[S, E]) *Machine[S, E] {
	m, err := New(transitions...)
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}
	return m
}

// Next returns the state reached from `from` on `event`.
func (m *Machine[S, E]) Next(ctx context.Context, from S, event E, data any) (S, error) {
	candidates := m.transitions[from][event]
	if len(candidates) == 0 {
		return from, NewErrNoTransitionAvailable(string(from), string(event))
	}

	t, ok := firstAllowed(ctx, candidates, from, event, data)
	if !ok {
		return from, NewErrTransitionRejected(string(from), string(event))
	}

	for _, action := range t.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, from, t.To, event, data); err != nil {
			return from, fmt.Errorf("action failed: %w", err)
		}
	}

	return t.To, nil
}

// Can reports whether Next would succeed, without running actions.
func (m *Machine[S, E]) Can(ctx context.Context, from S, event E, data any) bool {
	_, ok := firstAllowed(ctx, m.transitions[from][event], from, event, data)
	return ok
}

// Events lists the events that have at least one edge leaving from.
func (m *Machine[S, E]) Events(from S) []E {
	out := make([]E, 0, len(m.transitions[from]))
	for e := range m.transitions[from] {
		out = append(out, e)
	}
	return out
}

// Target returns the first declared destination for (from, event) ignoring
// guards. It is used to map a requested target state back to an event.
func (m *Machine[S, E]) Target(from S, event E) (S, bool) {
	c := m.transitions[from][event]
	if len(c) == 0 {
		return from, false
	}
	return c[0].To, true
}

func firstAllowed[S, E ~string](ctx context.Context, candidates []Transition[S, E], from S, event E, data any) (Transition[S, E], bool) {
	for _, t := range candidates {
		allowed := true
		for _, guard := range t.Guards {
			if guard != nil && !guard(ctx, from, event, data) {
				allowed = false
				break
			}
		}
		if allowed {
			return t, true
		}
	}
	return Transition[S, E]{}, false
}
