package systems

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingModule struct {
	name    string
	log     *[]string
	initErr error
	shutErr error
}

func (m *recordingModule) Name() string { return m.name }

func (m *recordingModule) Initialize(ctx *AppContext) error {
	*m.log = append(*m.log, "init:"+m.name)
	return m.initErr
}

func (m *recordingModule) PreFrame(args *FrameUpdateArgs) {
	*m.log = append(*m.log, "pre:"+m.name)
}

func (m *recordingModule) PostFrame(args *FrameUpdateArgs) {
	*m.log = append(*m.log, "post:"+m.name)
}

func (m *recordingModule) Shutdown() error {
	*m.log = append(*m.log, "shut:"+m.name)
	return m.shutErr
}

func TestModuleRegistryRegister(t *testing.T) {
	reg := NewModuleRegistry()
	var log []string

	assert.False(t, reg.Register(nil))
	assert.True(t, reg.Register(&recordingModule{name: "stats", log: &log}))
	assert.False(t, reg.Register(&recordingModule{name: "stats", log: &log}), "duplicate name must be rejected")
	assert.Equal(t, 1, reg.Count())

	mod, ok := reg.Get("stats")
	require.True(t, ok)
	assert.Equal(t, "stats", mod.Name())

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestModuleRegistryFrameOrder(t *testing.T) {
	reg := NewModuleRegistry()
	var log []string
	for _, name := range []string{"a", "b", "c"} {
		require.True(t, reg.Register(&recordingModule{name: name, log: &log}))
	}

	args := &FrameUpdateArgs{DeltaTime: 0.016}
	reg.PreFrame(args)
	reg.PostFrame(args)

	assert.Equal(t, []string{
		"pre:a", "pre:b", "pre:c",
		"post:c", "post:b", "post:a",
	}, log)
}

func TestModuleRegistryInitializeAllStopsAtFirstError(t *testing.T) {
	reg := NewModuleRegistry()
	var log []string
	require.True(t, reg.Register(&recordingModule{name: "a", log: &log}))
	require.True(t, reg.Register(&recordingModule{name: "b", log: &log, initErr: fmt.Errorf("boom")}))
	require.True(t, reg.Register(&recordingModule{name: "c", log: &log}))

	err := reg.InitializeAll(&AppContext{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b")
	assert.Equal(t, []string{"init:a", "init:b"}, log, "modules after the failure must not initialize")
}

func TestModuleRegistryShutdownAllRunsEveryModule(t *testing.T) {
	reg := NewModuleRegistry()
	var log []string
	require.True(t, reg.Register(&recordingModule{name: "a", log: &log}))
	require.True(t, reg.Register(&recordingModule{name: "b", log: &log, shutErr: fmt.Errorf("jammed")}))
	require.True(t, reg.Register(&recordingModule{name: "c", log: &log}))

	err := reg.ShutdownAll()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jammed")
	assert.Equal(t, []string{"shut:c", "shut:b", "shut:a"}, log, "shutdown runs in reverse and keeps going past errors")
}
