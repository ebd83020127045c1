package components

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/penumbra-engine/penumbra/engine/math"
)

func TestCameraDefaultsProduceUsableMatrices(t *testing.T) {
	c := NewCamera()

	assert.NotEqual(t, math.NewVec3Zero(), c.Position())
	assert.NotEqual(t, math.NewMat4Identity(), c.ViewMatrix())
	assert.NotEqual(t, math.Mat4{}, c.ProjectionMatrix())
}

func TestCameraViewRebuildsAfterMove(t *testing.T) {
	c := NewCamera()

	before := c.ViewMatrix()
	assert.Equal(t, before, c.ViewMatrix(), "cached view must be stable")

	c.SetPosition(math.NewVec3(0, 20, 0))
	assert.NotEqual(t, before, c.ViewMatrix())

	moved := c.ViewMatrix()
	c.SetTarget(math.NewVec3(5, 0, 5))
	assert.NotEqual(t, moved, c.ViewMatrix())
}

func TestCameraViewportChangesProjection(t *testing.T) {
	c := NewCamera()

	before := c.ProjectionMatrix()
	c.SetViewport(800, 600)
	assert.NotEqual(t, before, c.ProjectionMatrix())

	square := c.ProjectionMatrix()
	c.SetViewport(0, 0)
	assert.Equal(t, square, c.ProjectionMatrix(), "zero extents are ignored")
}

func TestCameraLensChangesProjection(t *testing.T) {
	c := NewCamera()

	before := c.ProjectionMatrix()
	c.SetLens(90, 0.5, 500)
	assert.NotEqual(t, before, c.ProjectionMatrix())
}
