package systems

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/penumbra-engine/penumbra/engine/resources"
)

// ExitReason tells a scene why it is leaving the stack.
type ExitReason int

const (
	ExitReasonPop ExitReason = iota
	ExitReasonReplace
	ExitReasonShutdown
)

func (r ExitReason) String() string {
	switch r {
	case ExitReasonPop:
		return "pop"
	case ExitReasonReplace:
		return "replace"
	case ExitReasonShutdown:
		return "shutdown"
	}
	return "unknown"
}

// SceneSnapshot is the opaque state bag a scene hands over on exit. A
// later enter of the same (or a replacing) scene receives it back.
type SceneSnapshot struct {
	ID         uuid.UUID
	SceneID    string
	CapturedAt time.Time
	Data       map[string]string
}

func NewSceneSnapshot(sceneID string) SceneSnapshot {
	return SceneSnapshot{
		ID:         uuid.New(),
		SceneID:    sceneID,
		CapturedAt: time.Now(),
		Data:       make(map[string]string),
	}
}

// SceneEnterArgs parameterizes scene entry.
type SceneEnterArgs struct {
	Props            map[string]string
	PreviousSnapshot *SceneSnapshot
}

type SceneExitArgs struct {
	Reason ExitReason
}

// Scene is the unit of application state the manager stacks. Hooks run
// on the main thread. OnEnter returning an error is recoverable: the
// manager retries it every tick until it succeeds or the scene is
// popped.
type Scene interface {
	OnAttach(ctx *AppContext, modules *ModuleRegistry) error
	OnDetach(ctx *AppContext)
	BuildManifest() SceneResourceManifest
	OnEnter(args SceneEnterArgs) error
	OnUpdate(args *FrameUpdateArgs)
	OnExit(args SceneExitArgs) SceneSnapshot
}

// SceneFactory builds a fresh scene instance for each transition.
type SceneFactory func() Scene

// ResourceScope decides what happens to a registered resource when its
// requesting scene detaches.
type ResourceScope int

const (
	// ScopeScene resources are released on scene detach.
	ScopeScene ResourceScope = iota
	// ScopeShared resources survive their requesting scene.
	ScopeShared
)

// ResourceRequest names one resource a scene needs. Identifier is the
// registry key; Source, when set, is the path the loader reads. An
// empty Source falls back to the identifier, which keeps the common
// "identifier is the file path" case terse.
type ResourceRequest struct {
	Identifier string
	Kind       resources.Kind
	Source     string
	Scope      ResourceScope
	Optional   bool
}

// ResolveSource returns the load path for the request.
func (r ResourceRequest) ResolveSource() string {
	if r.Source != "" {
		return r.Source
	}
	return r.Identifier
}

// Key returns the dedup key used in pending-load bookkeeping.
func (r ResourceRequest) Key() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.Identifier)
}

// SceneResourceManifest declares the resources a scene wants before it
// enters. Required entries gate entry; optional ones never do.
type SceneResourceManifest struct {
	Required []ResourceRequest
	Optional []ResourceRequest
}

func (m *SceneResourceManifest) AddRequired(req ResourceRequest) {
	req.Optional = false
	m.Required = append(m.Required, req)
}

func (m *SceneResourceManifest) AddOptional(req ResourceRequest) {
	req.Optional = true
	m.Optional = append(m.Optional, req)
}

func (m *SceneResourceManifest) RequiredCount() int { return len(m.Required) }
func (m *SceneResourceManifest) OptionalCount() int { return len(m.Optional) }

// Find looks a request up by kind and identifier across both lists.
func (m *SceneResourceManifest) Find(kind resources.Kind, identifier string) (ResourceRequest, bool) {
	for _, req := range m.Required {
		if req.Kind == kind && req.Identifier == identifier {
			return req, true
		}
	}
	for _, req := range m.Optional {
		if req.Kind == kind && req.Identifier == identifier {
			return req, true
		}
	}
	return ResourceRequest{}, false
}

// Merge folds another manifest into this one, deduplicating by
// kind:identifier. A request present as required anywhere ends up
// required; merging the same manifest twice changes nothing.
func (m *SceneResourceManifest) Merge(other SceneResourceManifest) {
	required := make(map[string]struct{})
	optional := make(map[string]struct{})

	var outRequired, outOptional []ResourceRequest
	// Required entries first so a request named on both sides comes out
	// required regardless of which manifest called it optional.
	for _, req := range append(append([]ResourceRequest{}, m.Required...), other.Required...) {
		key := req.Key()
		if _, seen := required[key]; seen {
			continue
		}
		required[key] = struct{}{}
		req.Optional = false
		outRequired = append(outRequired, req)
	}
	for _, req := range append(append([]ResourceRequest{}, m.Optional...), other.Optional...) {
		key := req.Key()
		if _, seen := required[key]; seen {
			continue
		}
		if _, seen := optional[key]; seen {
			continue
		}
		optional[key] = struct{}{}
		req.Optional = true
		outOptional = append(outOptional, req)
	}

	m.Required = outRequired
	m.Optional = outOptional
}
