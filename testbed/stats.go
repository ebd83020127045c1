package testbed

import (
	"fmt"

	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/renderer"
	"github.com/penumbra-engine/penumbra/engine/systems"
)

// statsReportInterval is how many frames pass between stats lines.
const statsReportInterval uint64 = 120

// statsModule logs one line of frame, world, resource and loader
// numbers every interval frames. It reads a handful of counters in
// PostFrame and stays out of the way otherwise.
type statsModule struct {
	ctx      *systems.AppContext
	metrics  *core.Metrics
	interval uint64
}

func newStatsModule(metrics *core.Metrics, interval uint64) *statsModule {
	if interval == 0 {
		interval = statsReportInterval
	}
	return &statsModule{metrics: metrics, interval: interval}
}

func (m *statsModule) Name() string { return "stats" }

func (m *statsModule) Initialize(ctx *systems.AppContext) error {
	m.ctx = ctx
	return nil
}

func (m *statsModule) PreFrame(*systems.FrameUpdateArgs) {}

func (m *statsModule) PostFrame(args *systems.FrameUpdateArgs) {
	if args.FrameNumber == 0 || args.FrameNumber%m.interval != 0 {
		return
	}
	core.LogInfo("%s", m.reportLine())
}

// reportLine renders the current counters into a single log line.
func (m *statsModule) reportLine() string {
	fps, frameMs := m.metrics.Frame()
	loader := m.ctx.AsyncLoader
	line := fmt.Sprintf(
		"stats: fps=%.1f frame=%.2fms entities=%d resources=%d loader[pending=%d inflight=%d completed=%d]",
		fps, frameMs,
		m.ctx.World.EntityCount(),
		m.ctx.ResourceManager.Stats().Total(),
		loader.PendingCount(), loader.InFlight(), loader.CompletedCount(),
	)
	if headless, ok := m.ctx.Renderer.(*renderer.HeadlessRenderer); ok {
		line += fmt.Sprintf(" drawn=%d", headless.Stats().MeshesLastFrame)
	}
	return line
}

func (m *statsModule) Shutdown() error {
	core.LogInfo("stats: %d frames total", m.metrics.TotalFrames())
	return nil
}
