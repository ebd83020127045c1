package systems

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penumbra-engine/penumbra/engine/assets"
	"github.com/penumbra-engine/penumbra/engine/core"
	"github.com/penumbra-engine/penumbra/engine/renderer"
	"github.com/penumbra-engine/penumbra/engine/resources"
)

const triangleOBJ = `o tri
v 0.0 0.0 0.0
v 1.0 0.0 0.0
v 0.0 1.0 0.0
vt 0.0 0.0
vt 1.0 0.0
vt 0.0 1.0
f 1/1 2/2 3/3
`

const boulderModel = `version=1
name=boulder
mesh=rock
material=stone
`

func writeFixtureFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 1, color.RGBA{B: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

type loaderFixture struct {
	loader   *AsyncResourceLoader
	assets   *assets.AssetManager
	renderer *renderer.HeadlessRenderer
	root     string
}

func newLoaderFixture(t *testing.T) *loaderFixture {
	t.Helper()
	root := t.TempDir()

	am, err := assets.NewAssetManager(core.NewEventBus())
	require.NoError(t, err)
	t.Cleanup(func() { _ = am.Close() })
	require.NoError(t, am.Initialize(root))

	hr := renderer.NewHeadless()
	require.NoError(t, hr.Initialize("loader-test", 640, 480))

	l := NewAsyncResourceLoader(am, hr)
	t.Cleanup(l.Shutdown)
	return &loaderFixture{loader: l, assets: am, renderer: hr, root: root}
}

func (f *loaderFixture) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.root, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAsyncLoaderMeshEndToEnd(t *testing.T) {
	f := newLoaderFixture(t)
	objPath := f.writeFile(t, "tri.obj", triangleOBJ)
	require.NoError(t, f.loader.Initialize(2))

	var got LoadResult
	f.loader.LoadMeshAsync(objPath, "tri", func(r LoadResult) { got = r }, PriorityRequired)

	require.True(t, f.loader.WaitForAll(2*time.Second))
	assert.Equal(t, 1, f.loader.ProcessCompletedTasks(8))

	require.True(t, got.IsSuccess())
	mesh, ok := got.Resource.(*resources.Mesh)
	require.True(t, ok)
	assert.Equal(t, "tri", mesh.Name)
	assert.NotEqual(t, resources.InvalidGPUID, mesh.GPUID)
	assert.Equal(t, uint32(3), mesh.VertexCount)
	assert.Equal(t, uint32(3), mesh.IndexCount)

	assert.Equal(t, 1, f.renderer.Stats().MeshesCreated)
	assert.Equal(t, 0, f.loader.InFlight())
}

func TestAsyncLoaderTextureEndToEnd(t *testing.T) {
	f := newLoaderFixture(t)
	pngPath := filepath.Join(f.root, "dust.png")
	writeTestPNG(t, pngPath)
	require.NoError(t, f.loader.Initialize(1))

	var got LoadResult
	f.loader.LoadTextureAsync(pngPath, "dust", func(r LoadResult) { got = r }, PriorityOptional)

	require.True(t, f.loader.WaitForAll(2*time.Second))
	require.Equal(t, 1, f.loader.ProcessCompletedTasks(1))

	require.True(t, got.IsSuccess())
	texture, ok := got.Resource.(*resources.Texture)
	require.True(t, ok)
	assert.Equal(t, uint32(2), texture.Width)
	assert.Equal(t, uint32(2), texture.Height)
	assert.Equal(t, uint8(4), texture.ChannelCount)
	assert.Equal(t, 1, f.renderer.Stats().TexturesCreated)
}

func TestAsyncLoaderModelPassesThroughWithoutUpload(t *testing.T) {
	f := newLoaderFixture(t)
	modelPath := f.writeFile(t, "boulder.model", boulderModel)
	require.NoError(t, f.loader.Initialize(1))

	var got LoadResult
	f.loader.LoadModelAsync(modelPath, "boulder", func(r LoadResult) { got = r }, PriorityRequired)

	require.True(t, f.loader.WaitForAll(2*time.Second))
	require.Equal(t, 1, f.loader.ProcessCompletedTasks(1))

	require.True(t, got.IsSuccess())
	data, ok := got.Resource.(*resources.ModelData)
	require.True(t, ok)
	assert.Equal(t, []string{"rock"}, data.MeshNames)
	assert.Equal(t, []string{"stone"}, data.MaterialNames)

	stats := f.renderer.Stats()
	assert.Zero(t, stats.MeshesCreated, "models have no GPU object")
	assert.Zero(t, stats.TexturesCreated)
}

func TestAsyncLoaderFailureStillFiresCallback(t *testing.T) {
	f := newLoaderFixture(t)
	require.NoError(t, f.loader.Initialize(1))

	var got LoadResult
	fired := false
	f.loader.LoadMeshAsync(filepath.Join(f.root, "nope.obj"), "nope", func(r LoadResult) {
		fired = true
		got = r
	}, PriorityRequired)

	require.True(t, f.loader.WaitForAll(2*time.Second))
	require.Equal(t, 1, f.loader.ProcessCompletedTasks(4))

	assert.True(t, fired)
	assert.False(t, got.IsSuccess())
	assert.Error(t, got.Err)
	assert.Equal(t, TaskFailed, got.Task.Status())
	assert.Equal(t, 0, f.loader.InFlight())
}

func TestAsyncLoaderUploadBudget(t *testing.T) {
	f := newLoaderFixture(t)
	objPath := f.writeFile(t, "tri.obj", triangleOBJ)
	require.NoError(t, f.loader.Initialize(2))

	processed := 0
	for i := 0; i < 3; i++ {
		f.loader.LoadMeshAsync(objPath, "tri", func(r LoadResult) { processed++ }, PriorityRequired)
	}

	require.True(t, f.loader.WaitForAll(2*time.Second))
	require.Equal(t, 3, f.loader.CompletedCount())

	assert.Equal(t, 2, f.loader.ProcessCompletedTasks(2), "budget caps one frame's uploads")
	assert.Equal(t, 1, f.loader.CompletedCount())
	assert.Equal(t, 2, processed)

	assert.Equal(t, 1, f.loader.ProcessCompletedTasks(2))
	assert.Equal(t, 3, processed)
	assert.Equal(t, 0, f.loader.InFlight())
}

func TestAsyncLoaderPriorityOrdersPendingQueue(t *testing.T) {
	// No workers: tasks stay queued so the ordering is observable.
	f := newLoaderFixture(t)
	objPath := f.writeFile(t, "tri.obj", triangleOBJ)

	f.loader.LoadMeshAsync(objPath, "low", nil, 1.0)
	f.loader.LoadMeshAsync(objPath, "high", nil, 10.0)
	f.loader.LoadMeshAsync(objPath, "mid", nil, 5.0)
	f.loader.LoadMeshAsync(objPath, "high2", nil, 10.0)

	f.loader.mu.Lock()
	var order []string
	for _, task := range f.loader.pending {
		order = append(order, task.Name)
	}
	f.loader.mu.Unlock()

	assert.Equal(t, []string{"high", "high2", "mid", "low"}, order,
		"highest priority first, submission order within equal priority")
}

func TestAsyncLoaderWaitForAllTimesOut(t *testing.T) {
	f := newLoaderFixture(t)
	objPath := f.writeFile(t, "tri.obj", triangleOBJ)

	// No workers, so the queue can never drain.
	f.loader.LoadMeshAsync(objPath, "stuck", nil, PriorityRequired)
	assert.False(t, f.loader.WaitForAll(50*time.Millisecond))
}

func TestAsyncLoaderSubmitAfterShutdownFailsTask(t *testing.T) {
	f := newLoaderFixture(t)
	objPath := f.writeFile(t, "tri.obj", triangleOBJ)
	require.NoError(t, f.loader.Initialize(1))
	f.loader.Shutdown()

	var got LoadResult
	task := f.loader.LoadMeshAsync(objPath, "late", func(r LoadResult) { got = r }, PriorityRequired)
	assert.Equal(t, TaskFailed, task.Status())

	require.Equal(t, 1, f.loader.ProcessCompletedTasks(0))
	assert.False(t, got.IsSuccess())
	assert.ErrorIs(t, got.Err, core.ErrShuttingDown)
	assert.Equal(t, 0, f.loader.InFlight())
}

func TestAsyncLoaderContainsPanics(t *testing.T) {
	f := newLoaderFixture(t)
	require.NoError(t, f.loader.Initialize(1))

	var got LoadResult
	task := newLoadTask(resources.KindMesh, "bomb", "bomb.obj", PriorityRequired, func(r LoadResult) { got = r })
	task.loadFunc = func() (interface{}, error) { panic("kaboom") }
	f.loader.Submit(task)

	require.True(t, f.loader.WaitForAll(2*time.Second))
	require.Equal(t, 1, f.loader.ProcessCompletedTasks(1))

	assert.Equal(t, TaskFailed, task.Status())
	require.Error(t, got.Err)
	assert.Contains(t, got.Err.Error(), "kaboom")
}

func TestAsyncLoaderCallbackPanicDoesNotEscape(t *testing.T) {
	f := newLoaderFixture(t)
	objPath := f.writeFile(t, "tri.obj", triangleOBJ)
	require.NoError(t, f.loader.Initialize(1))

	f.loader.LoadMeshAsync(objPath, "tri", func(r LoadResult) { panic("bad callback") }, PriorityRequired)

	require.True(t, f.loader.WaitForAll(2*time.Second))
	assert.NotPanics(t, func() {
		assert.Equal(t, 1, f.loader.ProcessCompletedTasks(1))
	})
	assert.Equal(t, 0, f.loader.InFlight())
}

func TestAsyncLoaderDoubleInitializeFails(t *testing.T) {
	f := newLoaderFixture(t)
	require.NoError(t, f.loader.Initialize(1))
	assert.Error(t, f.loader.Initialize(1))
}
