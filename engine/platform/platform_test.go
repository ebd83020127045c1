package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penumbra-engine/penumbra/engine/core"
)

// Only the headless paths run here; the windowed paths need a display
// and belong to manual testing.

func newHeadlessPlatform() (*Platform, *core.EventBus) {
	bus := core.NewEventBus()
	input := core.NewInput(bus)
	return New(input, bus, true), bus
}

func TestHeadlessPlatformLifecycle(t *testing.T) {
	p, _ := newHeadlessPlatform()

	require.NoError(t, p.Startup("test", 0, 0, 640, 480))
	p.PumpMessages()
	assert.False(t, p.ShouldClose())
	require.NoError(t, p.Shutdown())
}

func TestHeadlessRequestClosePublishesQuit(t *testing.T) {
	p, bus := newHeadlessPlatform()
	require.NoError(t, p.Startup("test", 0, 0, 640, 480))

	quits := 0
	sub := core.Subscribe(bus, core.PriorityNormal, func(core.QuitRequestedEvent) { quits++ })
	defer sub.Close()

	p.RequestClose()
	assert.Equal(t, 1, quits)
	assert.False(t, p.ShouldClose(), "headless close is event-driven, not window state")
}
