package systems

import (
	"fmt"

	"github.com/penumbra-engine/penumbra/engine/core"
)

// AppModule is a pluggable per-frame engine extension. PreFrame runs
// before the scene update, PostFrame after it.
type AppModule interface {
	Name() string
	Initialize(ctx *AppContext) error
	PreFrame(args *FrameUpdateArgs)
	PostFrame(args *FrameUpdateArgs)
	Shutdown() error
}

// ModuleRegistry holds the installed modules in registration order.
// PreFrame walks them in order, PostFrame in reverse, so a module that
// wraps the frame sees both edges in the expected nesting.
type ModuleRegistry struct {
	modules []AppModule
	names   map[string]struct{}
}

func NewModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{
		names: make(map[string]struct{}),
	}
}

// Register appends a module. Duplicate names are rejected.
func (mr *ModuleRegistry) Register(module AppModule) bool {
	if module == nil {
		core.LogError("module registry: refusing to register nil module")
		return false
	}
	name := module.Name()
	if _, exists := mr.names[name]; exists {
		core.LogError("module registry: module '%s' already registered", name)
		return false
	}
	mr.names[name] = struct{}{}
	mr.modules = append(mr.modules, module)
	return true
}

// Get returns the module registered under name.
func (mr *ModuleRegistry) Get(name string) (AppModule, bool) {
	for _, m := range mr.modules {
		if m.Name() == name {
			return m, true
		}
	}
	return nil, false
}

func (mr *ModuleRegistry) Count() int {
	return len(mr.modules)
}

// InitializeAll initializes modules in registration order, aborting on
// the first failure.
func (mr *ModuleRegistry) InitializeAll(ctx *AppContext) error {
	for _, m := range mr.modules {
		if err := m.Initialize(ctx); err != nil {
			return fmt.Errorf("initialize module '%s': %w", m.Name(), err)
		}
		core.LogDebug("module '%s' initialized", m.Name())
	}
	return nil
}

func (mr *ModuleRegistry) PreFrame(args *FrameUpdateArgs) {
	for _, m := range mr.modules {
		m.PreFrame(args)
	}
}

func (mr *ModuleRegistry) PostFrame(args *FrameUpdateArgs) {
	for i := len(mr.modules) - 1; i >= 0; i-- {
		mr.modules[i].PostFrame(args)
	}
}

// ShutdownAll shuts modules down in reverse registration order. Every
// module gets its shutdown call even when earlier ones fail; the first
// error is returned.
func (mr *ModuleRegistry) ShutdownAll() error {
	var firstErr error
	for i := len(mr.modules) - 1; i >= 0; i-- {
		m := mr.modules[i]
		if err := m.Shutdown(); err != nil {
			core.LogError("shutdown module '%s': %v", m.Name(), err)
			if firstErr == nil {
				firstErr = fmt.Errorf("shutdown module '%s': %w", m.Name(), err)
			}
		}
	}
	return firstErr
}
