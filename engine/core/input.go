package core

// Key identifies a keyboard key. Values follow the GLFW key tokens so the
// platform layer can translate with a cast.
type Key int

const (
	KeyUnknown      Key = -1
	KeySpace        Key = 32
	KeyApostrophe   Key = 39
	KeyComma        Key = 44
	KeyMinus        Key = 45
	KeyPeriod       Key = 46
	KeySlash        Key = 47
	Key0            Key = 48
	Key1            Key = 49
	Key2            Key = 50
	Key3            Key = 51
	Key4            Key = 52
	Key5            Key = 53
	Key6            Key = 54
	Key7            Key = 55
	Key8            Key = 56
	Key9            Key = 57
	KeySemicolon    Key = 59
	KeyEqual        Key = 61
	KeyA            Key = 65
	KeyB            Key = 66
	KeyC            Key = 67
	KeyD            Key = 68
	KeyE            Key = 69
	KeyF            Key = 70
	KeyG            Key = 71
	KeyH            Key = 72
	KeyI            Key = 73
	KeyJ            Key = 74
	KeyK            Key = 75
	KeyL            Key = 76
	KeyM            Key = 77
	KeyN            Key = 78
	KeyO            Key = 79
	KeyP            Key = 80
	KeyQ            Key = 81
	KeyR            Key = 82
	KeyS            Key = 83
	KeyT            Key = 84
	KeyU            Key = 85
	KeyV            Key = 86
	KeyW            Key = 87
	KeyX            Key = 88
	KeyY            Key = 89
	KeyZ            Key = 90
	KeyEscape       Key = 256
	KeyEnter        Key = 257
	KeyTab          Key = 258
	KeyBackspace    Key = 259
	KeyInsert       Key = 260
	KeyDelete       Key = 261
	KeyRight        Key = 262
	KeyLeft         Key = 263
	KeyDown         Key = 264
	KeyUp           Key = 265
	KeyPageUp       Key = 266
	KeyPageDown     Key = 267
	KeyHome         Key = 268
	KeyEnd          Key = 269
	KeyF1           Key = 290
	KeyF2           Key = 291
	KeyF3           Key = 292
	KeyF4           Key = 293
	KeyF5           Key = 294
	KeyF6           Key = 295
	KeyF7           Key = 296
	KeyF8           Key = 297
	KeyF9           Key = 298
	KeyF10          Key = 299
	KeyF11          Key = 300
	KeyF12          Key = 301
	KeyLeftShift    Key = 340
	KeyLeftControl  Key = 341
	KeyLeftAlt      Key = 342
	KeyRightShift   Key = 344
	KeyRightControl Key = 345
	KeyRightAlt     Key = 346
)

// MouseButton identifies a mouse button, GLFW numbering.
type MouseButton int

const (
	MouseButtonLeft   MouseButton = 0
	MouseButtonRight  MouseButton = 1
	MouseButtonMiddle MouseButton = 2
)

const (
	maxKeys    = 512
	maxButtons = 8
)

// KeyEvent is published when a key changes state.
type KeyEvent struct {
	Key     Key
	Pressed bool
}

// MouseButtonEvent is published when a mouse button changes state.
type MouseButtonEvent struct {
	Button  MouseButton
	Pressed bool
	X, Y    float64
}

// MouseMovedEvent is published when the cursor position changes.
type MouseMovedEvent struct {
	X, Y           float64
	DeltaX, DeltaY float64
}

// MouseWheelEvent is published on scroll input.
type MouseWheelEvent struct {
	OffsetX, OffsetY float64
}

// WindowResizeEvent is published when the framebuffer size changes.
// Width or Height of zero means the window was minimized.
type WindowResizeEvent struct {
	Width, Height uint32
}

// QuitRequestedEvent asks the application host to stop after the current
// frame.
type QuitRequestedEvent struct{}

type keyboardState struct {
	keys [maxKeys]bool
}

type mouseState struct {
	x, y    float64
	buttons [maxButtons]bool
}

// Input tracks keyboard and mouse state for the current and previous
// frames. The platform layer feeds it through the Process methods; the
// application host calls Update once per frame, after everything that
// wanted to compare the two states ran. State changes are also published
// on the event bus.
type Input struct {
	bus              *EventBus
	keyboardCurrent  keyboardState
	keyboardPrevious keyboardState
	mouseCurrent     mouseState
	mousePrevious    mouseState
}

func NewInput(bus *EventBus) *Input {
	return &Input{bus: bus}
}

// Update copies the current states into the previous states.
func (in *Input) Update() {
	in.keyboardPrevious = in.keyboardCurrent
	in.mousePrevious = in.mouseCurrent
}

// ProcessKey records a key state change. No event fires when the state
// did not actually change.
func (in *Input) ProcessKey(key Key, pressed bool) {
	if key < 0 || int(key) >= maxKeys {
		return
	}
	if in.keyboardCurrent.keys[key] == pressed {
		return
	}
	in.keyboardCurrent.keys[key] = pressed
	Publish(in.bus, KeyEvent{Key: key, Pressed: pressed})
}

// ProcessButton records a mouse button state change.
func (in *Input) ProcessButton(button MouseButton, pressed bool) {
	if button < 0 || int(button) >= maxButtons {
		return
	}
	if in.mouseCurrent.buttons[button] == pressed {
		return
	}
	in.mouseCurrent.buttons[button] = pressed
	Publish(in.bus, MouseButtonEvent{
		Button:  button,
		Pressed: pressed,
		X:       in.mouseCurrent.x,
		Y:       in.mouseCurrent.y,
	})
}

// ProcessMouseMove records a new cursor position.
func (in *Input) ProcessMouseMove(x, y float64) {
	if in.mouseCurrent.x == x && in.mouseCurrent.y == y {
		return
	}
	dx := x - in.mouseCurrent.x
	dy := y - in.mouseCurrent.y
	in.mouseCurrent.x = x
	in.mouseCurrent.y = y
	Publish(in.bus, MouseMovedEvent{X: x, Y: y, DeltaX: dx, DeltaY: dy})
}

// ProcessMouseWheel records scroll input.
func (in *Input) ProcessMouseWheel(offsetX, offsetY float64) {
	Publish(in.bus, MouseWheelEvent{OffsetX: offsetX, OffsetY: offsetY})
}

func (in *Input) IsKeyDown(key Key) bool {
	if key < 0 || int(key) >= maxKeys {
		return false
	}
	return in.keyboardCurrent.keys[key]
}

func (in *Input) IsKeyUp(key Key) bool {
	return !in.IsKeyDown(key)
}

func (in *Input) WasKeyDown(key Key) bool {
	if key < 0 || int(key) >= maxKeys {
		return false
	}
	return in.keyboardPrevious.keys[key]
}

// IsKeyPressed reports a key that is down this frame and was up the
// previous frame.
func (in *Input) IsKeyPressed(key Key) bool {
	return in.IsKeyDown(key) && !in.WasKeyDown(key)
}

func (in *Input) IsButtonDown(button MouseButton) bool {
	if button < 0 || int(button) >= maxButtons {
		return false
	}
	return in.mouseCurrent.buttons[button]
}

func (in *Input) WasButtonDown(button MouseButton) bool {
	if button < 0 || int(button) >= maxButtons {
		return false
	}
	return in.mousePrevious.buttons[button]
}

func (in *Input) MousePosition() (float64, float64) {
	return in.mouseCurrent.x, in.mouseCurrent.y
}

func (in *Input) PreviousMousePosition() (float64, float64) {
	return in.mousePrevious.x, in.mousePrevious.y
}
