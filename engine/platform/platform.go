package platform

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/penumbra-engine/penumbra/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread.
	runtime.LockOSThread()
}

// Platform owns the OS window and feeds its events into the input state
// and the event bus. In headless mode no window library is touched at
// all, which keeps tests and CI runs free of display requirements.
type Platform struct {
	window   *glfw.Window
	input    *core.Input
	bus      *core.EventBus
	headless bool
}

func New(input *core.Input, bus *core.EventBus, headless bool) *Platform {
	return &Platform{
		input:    input,
		bus:      bus,
		headless: headless,
	}
}

// Startup creates the window and installs the event callbacks. Must be
// called from the main goroutine.
func (p *Platform) Startup(applicationName string, x, y int32, width, height uint32) error {
	if p.headless {
		core.LogInfo("platform running headless, no window created")
		return nil
	}

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	// The renderer drives the surface itself, no GL context wanted.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("create window: %w", err)
	}
	p.window = window

	p.window.SetKeyCallback(p.keyCallback)
	p.window.SetMouseButtonCallback(p.mouseButtonCallback)
	p.window.SetCursorPosCallback(p.cursorPosCallback)
	p.window.SetScrollCallback(p.scrollCallback)
	p.window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.window.SetCloseCallback(p.closeCallback)
	p.window.SetPos(int(x), int(y))
	p.window.Show()

	return nil
}

func (p *Platform) Shutdown() error {
	if p.headless {
		return nil
	}
	if p.window != nil {
		p.window.Destroy()
		p.window = nil
	}
	glfw.Terminate()
	return nil
}

// PumpMessages drains pending OS events. Main goroutine only.
func (p *Platform) PumpMessages() {
	if p.headless {
		return
	}
	glfw.PollEvents()
}

// ShouldClose reports whether the user asked the window to close.
func (p *Platform) ShouldClose() bool {
	if p.headless || p.window == nil {
		return false
	}
	return p.window.ShouldClose()
}

// RequestClose marks the window for close, as if the close button had
// been clicked. Without a window the quit event carries the request.
func (p *Platform) RequestClose() {
	if p.headless || p.window == nil {
		core.Publish(p.bus, core.QuitRequestedEvent{})
		return
	}
	p.window.SetShouldClose(true)
}

func (p *Platform) keyCallback(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if key == glfw.KeyUnknown {
		return
	}
	pressed := action == glfw.Press || action == glfw.Repeat
	p.input.ProcessKey(core.Key(key), pressed)
}

func (p *Platform) mouseButtonCallback(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
	p.input.ProcessButton(core.MouseButton(button), action == glfw.Press)
}

func (p *Platform) cursorPosCallback(_ *glfw.Window, xpos, ypos float64) {
	p.input.ProcessMouseMove(xpos, ypos)
}

func (p *Platform) scrollCallback(_ *glfw.Window, xoff, yoff float64) {
	p.input.ProcessMouseWheel(xoff, yoff)
}

func (p *Platform) framebufferSizeCallback(_ *glfw.Window, width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	// A 0x0 extent means minimized; the host suspends on it.
	core.Publish(p.bus, core.WindowResizeEvent{
		Width:  uint32(width),
		Height: uint32(height),
	})
}

func (p *Platform) closeCallback(_ *glfw.Window) {
	core.Publish(p.bus, core.QuitRequestedEvent{})
}
