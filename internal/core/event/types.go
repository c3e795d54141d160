package event

import "github.com/bossraid/server/internal/world"

// Gameplay events. Presentation collaborators (health bars, animators,
// scene loader) subscribe to these; the core never calls into them directly.

// LifeStateChanged fires after an entity's life state commits.
type LifeStateChanged struct {
	Entity world.EntityID
	Old    world.LifeState
	New    world.LifeState
}

// ActionStarted fires when an action instance begins. Targets are the
// provisional resolution, for early visual feedback only.
type ActionStarted struct {
	Entity      world.EntityID
	ActionID    int32
	Targets     []world.EntityID
	AnimTrigger string
}

// ActionEnded fires when an action instance finishes or is cancelled.
type ActionEnded struct {
	Entity    world.EntityID
	ActionID  int32
	Cancelled bool
}

// SceneLoadRequested commands the external scene-loading collaborator to
// switch world state. When NetworkSynced is set the host also broadcasts
// the switch to every connected client.
type SceneLoadRequested struct {
	SceneID       string
	NetworkSynced bool
}
