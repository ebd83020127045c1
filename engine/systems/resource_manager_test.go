package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penumbra-engine/penumbra/engine/resources"
)

func TestResourceManagerRegisterAndLookup(t *testing.T) {
	rm := NewResourceManager()

	assert.True(t, rm.RegisterMesh("rock", &resources.Mesh{Name: "rock"}))
	assert.False(t, rm.RegisterMesh("rock", &resources.Mesh{Name: "rock"}), "duplicate register must be rejected")
	assert.False(t, rm.RegisterMesh("", &resources.Mesh{}))
	assert.False(t, rm.RegisterMesh("nil", nil))

	assert.True(t, rm.HasMesh("rock"))
	assert.False(t, rm.HasMesh("paper"))

	mesh, ok := rm.GetMesh("rock")
	require.True(t, ok)
	assert.Equal(t, "rock", mesh.Name)
}

func TestResourceManagerCleanupSweepsIdleResources(t *testing.T) {
	rm := NewResourceManager()
	require.True(t, rm.RegisterTexture("dust", &resources.Texture{Name: "dust"}))

	for i := 0; i < 3; i++ {
		rm.BeginFrame()
	}

	assert.Equal(t, 0, rm.CleanupUnused(5), "not idle long enough yet")
	assert.True(t, rm.HasTexture("dust"))

	for i := 0; i < 2; i++ {
		rm.BeginFrame()
	}

	assert.Equal(t, 1, rm.CleanupUnused(5))
	assert.False(t, rm.HasTexture("dust"))
}

func TestResourceManagerAcquireBlocksSweep(t *testing.T) {
	rm := NewResourceManager()
	require.True(t, rm.RegisterMesh("rock", &resources.Mesh{Name: "rock"}))

	_, ok := rm.AcquireMesh("rock")
	require.True(t, ok)

	for i := 0; i < 10; i++ {
		rm.BeginFrame()
	}
	assert.Equal(t, 0, rm.CleanupUnused(3), "held resources never sweep")
	assert.True(t, rm.HasMesh("rock"))
}

func TestResourceManagerReleaseRestartsIdleCounter(t *testing.T) {
	rm := NewResourceManager()
	require.True(t, rm.RegisterMesh("rock", &resources.Mesh{Name: "rock"}))

	for i := 0; i < 4; i++ {
		rm.BeginFrame()
	}

	// Acquiring resets the idle streak, so the earlier frames no longer
	// count toward the sweep threshold.
	_, ok := rm.AcquireMesh("rock")
	require.True(t, ok)
	rm.ReleaseMesh("rock")

	rm.BeginFrame()
	rm.BeginFrame()
	assert.Equal(t, 0, rm.CleanupUnused(3))

	rm.BeginFrame()
	assert.Equal(t, 1, rm.CleanupUnused(3))
}

func TestResourceManagerReleaseBelowZeroIsHarmless(t *testing.T) {
	rm := NewResourceManager()
	require.True(t, rm.RegisterFont("arial", &resources.Font{Face: "Arial"}))

	rm.ReleaseFont("arial")
	rm.ReleaseFont("arial")

	_, ok := rm.AcquireFont("arial")
	assert.True(t, ok)
}

func TestResourceManagerStats(t *testing.T) {
	rm := NewResourceManager()
	require.True(t, rm.RegisterMesh("rock", &resources.Mesh{Name: "rock"}))
	require.True(t, rm.RegisterTexture("dust", &resources.Texture{Name: "dust"}))
	require.True(t, rm.RegisterModel("boulder", &resources.Model{Name: "boulder"}))

	rm.BeginFrame()
	rm.BeginFrame()

	stats := rm.Stats()
	assert.Equal(t, 1, stats.MeshCount)
	assert.Equal(t, 1, stats.TextureCount)
	assert.Equal(t, 1, stats.ModelCount)
	assert.Equal(t, 3, stats.Total())
	assert.Equal(t, uint64(2), stats.FrameNumber)
}

func TestResourceManagerRemoveByKind(t *testing.T) {
	rm := NewResourceManager()
	require.True(t, rm.RegisterMesh("rock", &resources.Mesh{Name: "rock"}))
	require.True(t, rm.RegisterSpriteAtlas("ui", &resources.SpriteAtlas{Name: "ui"}))

	assert.True(t, rm.removeByKind(resources.KindMesh, "rock"))
	assert.False(t, rm.HasMesh("rock"))

	assert.False(t, rm.removeByKind(resources.KindMesh, "rock"), "already removed")
	assert.False(t, rm.removeByKind(resources.KindShader, "anything"), "shaders live in the shader cache")

	assert.True(t, rm.removeByKind(resources.KindSpriteAtlas, "ui"))
	assert.Equal(t, 0, rm.Stats().Total())
}
