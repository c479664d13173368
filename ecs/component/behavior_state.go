package component

import (
	"fmt"
	"strings"

	"github.com/jakecoffman/cp"
)

type State uint8

const (
	StateIdle State = iota
	StatePatrol
	StatePursue
	StateCombat
	StateFlee
)

var stateNames = [...]string{"idle", "patrol", "pursue", "combat", "flee"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

func ParseState(name string) (State, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range stateNames {
		if n == name {
			return State(i), nil
		}
	}
	return StateIdle, fmt.Errorf("component: unknown behavior state %q", name)
}

// BehaviorState is present exactly on AI-registered entities.
type BehaviorState struct {
	Current     State
	ArchetypeID string

	Waypoints []cp.Vector
	Waypoint  int

	// Timer accumulates seconds spent in Current.
	Timer float64

	// Target is an ecs.Entity; zero when there is none.
	Target        uint64
	TargetPos     cp.Vector
	TargetVisible bool

	LastAction string
}

var BehaviorStateComponent = NewComponent[BehaviorState]()

func (b BehaviorState) HasTarget() bool { return b.Target != 0 }

func (b *BehaviorState) SetTarget(target uint64, pos cp.Vector) {
	b.Target = target
	b.TargetPos = pos
}

func (b *BehaviorState) ClearTarget() {
	b.Target = 0
	b.TargetPos = cp.Vector{}
	b.TargetVisible = false
}

// NextWaypoint returns the current patrol point, if any.
func (b BehaviorState) NextWaypoint() (cp.Vector, bool) {
	if len(b.Waypoints) == 0 {
		return cp.Vector{}, false
	}
	return b.Waypoints[b.Waypoint%len(b.Waypoints)], true
}

func (b *BehaviorState) AdvanceWaypoint() {
	if len(b.Waypoints) == 0 {
		return
	}
	b.Waypoint = (b.Waypoint + 1) % len(b.Waypoints)
}

// Position is the last location the AI observed for an entity.
type Position struct {
	At cp.Vector
}

var PositionComponent = NewComponent[Position]()
