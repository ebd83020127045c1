package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputKeyStateTransitions(t *testing.T) {
	bus := NewEventBus()
	var events []KeyEvent
	Subscribe(bus, PriorityNormal, func(e KeyEvent) { events = append(events, e) })

	in := NewInput(bus)
	in.ProcessKey(KeyW, true)
	in.ProcessKey(KeyW, true)

	assert.True(t, in.IsKeyDown(KeyW))
	assert.True(t, in.IsKeyPressed(KeyW))
	assert.Len(t, events, 1, "repeated press without release fires once")

	in.Update()
	assert.True(t, in.IsKeyDown(KeyW))
	assert.True(t, in.WasKeyDown(KeyW))
	assert.False(t, in.IsKeyPressed(KeyW))

	in.ProcessKey(KeyW, false)
	assert.False(t, in.IsKeyDown(KeyW))
	require.Len(t, events, 2)
	assert.False(t, events[1].Pressed)
}

func TestInputMouseTracking(t *testing.T) {
	bus := NewEventBus()
	var moves []MouseMovedEvent
	Subscribe(bus, PriorityNormal, func(e MouseMovedEvent) { moves = append(moves, e) })

	in := NewInput(bus)
	in.ProcessMouseMove(10, 20)
	in.ProcessMouseMove(15, 24)
	in.ProcessMouseMove(15, 24)

	x, y := in.MousePosition()
	assert.Equal(t, 15.0, x)
	assert.Equal(t, 24.0, y)
	require.Len(t, moves, 2, "unchanged position fires no event")
	assert.Equal(t, 5.0, moves[1].DeltaX)
	assert.Equal(t, 4.0, moves[1].DeltaY)

	in.ProcessButton(MouseButtonLeft, true)
	assert.True(t, in.IsButtonDown(MouseButtonLeft))

	in.Update()
	in.ProcessButton(MouseButtonLeft, false)
	assert.False(t, in.IsButtonDown(MouseButtonLeft))
	assert.True(t, in.WasButtonDown(MouseButtonLeft))
}

func TestInputIgnoresOutOfRangeCodes(t *testing.T) {
	in := NewInput(nil)

	assert.NotPanics(t, func() {
		in.ProcessKey(KeyUnknown, true)
		in.ProcessKey(Key(maxKeys), true)
		in.ProcessButton(MouseButton(maxButtons), true)
	})
	assert.False(t, in.IsKeyDown(KeyUnknown))
}

func TestInputWheelEvent(t *testing.T) {
	bus := NewEventBus()
	var wheels []MouseWheelEvent
	Subscribe(bus, PriorityNormal, func(e MouseWheelEvent) { wheels = append(wheels, e) })

	in := NewInput(bus)
	in.ProcessMouseWheel(0, -1)

	require.Len(t, wheels, 1)
	assert.Equal(t, -1.0, wheels[0].OffsetY)
}
