package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsRollingAverage(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < frameAvgCount-1; i++ {
		m.Update(0.016)
	}
	assert.Zero(t, m.FrameTime(), "average waits for a full window")

	m.Update(0.016)
	assert.InDelta(t, 16.0, m.FrameTime(), 0.01)
	assert.Equal(t, uint64(frameAvgCount), m.TotalFrames())
}

func TestMetricsFPSWindow(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 101; i++ {
		m.Update(0.010)
	}

	assert.InDelta(t, 100.0, m.FPS(), 1.0)
}

func TestClockElapsed(t *testing.T) {
	c := NewClock()
	c.Update()
	assert.Equal(t, 0.0, c.Elapsed(), "non-started clock stays at zero")

	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Update()
	assert.Greater(t, c.Elapsed(), 0.0)

	c.Stop()
	frozen := c.Elapsed()
	c.Update()
	assert.Equal(t, frozen, c.Elapsed(), "stopped clock does not advance")
}
