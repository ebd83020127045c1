package systems

// TransitionKind labels what a SceneTransitionEvent announces.
type TransitionKind int

const (
	TransitionPush TransitionKind = iota
	TransitionReplace
	TransitionPop
)

func (k TransitionKind) String() string {
	switch k {
	case TransitionPush:
		return "push"
	case TransitionReplace:
		return "replace"
	case TransitionPop:
		return "pop"
	}
	return "unknown"
}

// LifecycleStage labels the scene lifecycle edges the manager reports.
type LifecycleStage int

const (
	StageAttached LifecycleStage = iota
	StageEntering
	StageEntered
	StageExiting
	StageExited
	StageDetached
)

func (s LifecycleStage) String() string {
	switch s {
	case StageAttached:
		return "attached"
	case StageEntering:
		return "entering"
	case StageEntered:
		return "entered"
	case StageExiting:
		return "exiting"
	case StageExited:
		return "exited"
	case StageDetached:
		return "detached"
	}
	return "unknown"
}

// SceneTransitionEvent announces a transition request the moment it is
// accepted, before the deferred processing happens.
type SceneTransitionEvent struct {
	Kind    TransitionKind
	SceneID string
}

// SceneManifestEvent reports the manifest sizes right after a scene
// built its manifest.
type SceneManifestEvent struct {
	SceneID       string
	RequiredCount int
	OptionalCount int
}

// SceneLifecycleEvent reports a lifecycle stage edge for a scene.
type SceneLifecycleEvent struct {
	SceneID string
	Stage   LifecycleStage
}

// ScenePreloadProgressEvent reports preload progress. Emitted only when
// something in it changed since the last report for the scene.
type ScenePreloadProgressEvent struct {
	SceneID         string
	RequiredReady   int
	RequiredTotal   int
	OptionalReady   int
	OptionalTotal   int
	Completed       bool
	Failed          bool
	MissingRequired []string
	MissingOptional []string
}
