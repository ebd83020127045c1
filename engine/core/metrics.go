package core

import (
	"github.com/penumbra-engine/penumbra/engine/containers"
)

const frameAvgCount = 30

// Metrics aggregates per-frame timing into a rolling frame-time average
// and a frames-per-second counter. The application host owns one instance
// and feeds it once per frame; there is no global state.
type Metrics struct {
	window             *containers.Ring[float64]
	msAvg              float64
	frames             int32
	accumulatedFrameMS float64
	fps                float64
	totalFrames        uint64
}

func NewMetrics() *Metrics {
	return &Metrics{window: containers.NewRing[float64](frameAvgCount)}
}

// Update records a frame that took frameElapsed seconds. The frame-time
// average refreshes once per full window, not every frame.
func (m *Metrics) Update(frameElapsed float64) {
	frameMS := frameElapsed * 1000.0
	m.window.Push(frameMS)
	if m.totalFrames%frameAvgCount == frameAvgCount-1 {
		sum := 0.0
		m.window.Each(func(ms float64) { sum += ms })
		m.msAvg = sum / float64(frameAvgCount)
	}

	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
	}
	m.frames++
	m.totalFrames++
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

// FrameTime returns the rolling average frame time in milliseconds.
func (m *Metrics) FrameTime() float64 {
	return m.msAvg
}

func (m *Metrics) Frame() (float64, float64) {
	return m.fps, m.msAvg
}

// TotalFrames returns the number of frames recorded since startup.
func (m *Metrics) TotalFrames() uint64 {
	return m.totalFrames
}
