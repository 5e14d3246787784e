package statemachine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pillar/pkg/statemachine"
)

type state string
type event string

const (
	idle    state = "idle"
	running state = "running"
	stopped state = "stopped"

	start event = "start"
	stop  event = "stop"
)

type tr = statemachine.Transition[state, event]

func TestMachine(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("follows declared edges", func(t *testing.T) {
		t.Parallel()
		m := statemachine.MustNew(
			tr{From: idle, To: running, Event: start},
			tr{From: running, To: stopped, Event: stop},
		)

		next, err := m.Next(ctx, idle, start, nil)
		require.NoError(t, err)
		assert.Equal(t, running, next)

		next, err = m.Next(ctx, next, stop, nil)
		require.NoError(t, err)
		assert.Equal(t, stopped, next)
	})

	t.Run("unknown edge", func(t *testing.T) {
		t.Parallel()
		m := statemachine.MustNew(tr{From: idle, To: running, Event: start})

		next, err := m.Next(ctx, stopped, start, nil)
		require.Error(t, err)
		assert.True(t, statemachine.IsNoTransitionAvailableError(err))
		assert.Equal(t, stopped, next)
		assert.False(t, m.Can(ctx, stopped, start, nil))
	})

	t.Run("guards pick the first allowed edge", func(t *testing.T) {
		t.Parallel()
		deny := func(context.Context, state, event, any) bool { return false }
		m := statemachine.MustNew(
			tr{From: idle, To: stopped, Event: start, Guards: []statemachine.Guard[state, event]{deny}},
			tr{From: idle, To: running, Event: start},
		)

		next, err := m.Next(ctx, idle, start, nil)
		require.NoError(t, err)
		assert.Equal(t, running, next)
	})

	t.Run("all guards reject", func(t *testing.T) {
		t.Parallel()
		deny := func(context.Context, state, event, any) bool { return false }
		m := statemachine.MustNew(tr{From: idle, To: running, Event: start, Guards: []statemachine.Guard[state, event]{deny}})

		_, err := m.Next(ctx, idle, start, nil)
		assert.True(t, statemachine.IsTransitionRejectedError(err))
	})

	t.Run("action error aborts", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("boom")
		var seen []state
		m := statemachine.MustNew(tr{
			From: idle, To: running, Event: start,
			Actions: []statemachine.Action[state, event]{
				func(_ context.Context, from, to state, _ event, _ any) error {
					seen = append(seen, from, to)
					return boom
				},
			},
		})

		next, err := m.Next(ctx, idle, start, nil)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, idle, next)
		assert.Equal(t, []state{idle, running}, seen)
	})

	t.Run("introspection", func(t *testing.T) {
		t.Parallel()
		m := statemachine.MustNew(
			tr{From: idle, To: running, Event: start},
			tr{From: idle, To: stopped, Event: stop},
		)
		assert.ElementsMatch(t, []event{start, stop}, m.Events(idle))

		to, ok := m.Target(idle, stop)
		assert.True(t, ok)
		assert.Equal(t, stopped, to)

		_, ok = m.Target(running, stop)
		assert.False(t, ok)
	})

	t.Run("invalid table", func(t *testing.T) {
		t.Parallel()
		_, err := statemachine.New(tr{From: idle, Event: start})
		assert.ErrorIs(t, err, statemachine.ErrInvalidTransition)
		assert.Panics(t, func() { statemachine.MustNew(tr{}) })
	})
}
