package components

import (
	"github.com/penumbra-engine/penumbra/engine/math"
)

// Camera produces the view and projection matrices a frame packet
// carries. Both matrices are cached and rebuilt only after a setter
// dirtied them, so per-frame reads are cheap.
type Camera struct {
	position math.Vec3
	target   math.Vec3
	up       math.Vec3

	fovDegrees float32
	aspect     float32
	nearClip   float32
	farClip    float32

	viewDirty  bool
	projDirty  bool
	view       math.Mat4
	projection math.Mat4
}

func NewCamera() *Camera {
	c := &Camera{}
	c.Reset()
	return c
}

// Reset puts the camera back at the default vantage point.
func (c *Camera) Reset() {
	c.position = math.NewVec3(8, 6, 12)
	c.target = math.NewVec3Zero()
	c.up = math.NewVec3Up()
	c.fovDegrees = 60
	c.aspect = 16.0 / 9.0
	c.nearClip = 0.1
	c.farClip = 1000
	c.viewDirty = true
	c.projDirty = true
}

func (c *Camera) Position() math.Vec3 {
	return c.position
}

func (c *Camera) SetPosition(position math.Vec3) {
	c.position = position
	c.viewDirty = true
}

func (c *Camera) Target() math.Vec3 {
	return c.target
}

func (c *Camera) SetTarget(target math.Vec3) {
	c.target = target
	c.viewDirty = true
}

// SetViewport adapts the projection to a new framebuffer size. A zero
// extent is ignored; minimized windows must not poison the aspect.
func (c *Camera) SetViewport(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	c.aspect = float32(width) / float32(height)
	c.projDirty = true
}

func (c *Camera) SetLens(fovDegrees, nearClip, farClip float32) {
	c.fovDegrees = fovDegrees
	c.nearClip = nearClip
	c.farClip = farClip
	c.projDirty = true
}

func (c *Camera) ViewMatrix() math.Mat4 {
	if c.viewDirty {
		c.view = math.NewMat4LookAt(c.position, c.target, c.up)
		c.viewDirty = false
	}
	return c.view
}

func (c *Camera) ProjectionMatrix() math.Mat4 {
	if c.projDirty {
		c.projection = math.NewMat4Perspective(
			math.DegToRad(c.fovDegrees), c.aspect, c.nearClip, c.farClip)
		c.projDirty = false
	}
	return c.projection
}
