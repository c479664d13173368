package system

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/aicore/ecs"
	"github.com/milk9111/aicore/ecs/component"
)

type ActionKind uint8

const (
	ActionNone ActionKind = iota
	ActionIdle
	ActionMove
	ActionAttack
	ActionFlee
)

func (k ActionKind) String() string {
	switch k {
	case ActionIdle:
		return "idle"
	case ActionMove:
		return "move"
	case ActionAttack:
		return "attack"
	case ActionFlee:
		return "flee"
	}
	return "none"
}

// Action is what a behavior system decided for one entity. Next, when set,
// is the behavior state the manager commits alongside the action.
type Action struct {
	Kind    ActionKind
	Actor   ecs.Entity
	Target  ecs.Entity
	Delta   cp.Vector
	Label   string
	Utility float64
	Reason  string

	Next *component.BehaviorState
}

// NoOp is returned when an entity cannot or should not act.
func NoOp(e ecs.Entity) Action {
	return Action{Kind: ActionNone, Actor: e}
}

func (a Action) IsNoOp() bool {
	return a.Kind == ActionNone && a.Next == nil
}

// ActionQueue keeps the latest action per actor in first-decision order.
type ActionQueue struct {
	order   []ecs.Entity
	byActor map[ecs.Entity]Action
}

// Push adds or replaces the pending action of a.Actor.
func (q *ActionQueue) Push(a Action) {
	if q.byActor == nil {
		q.byActor = make(map[ecs.Entity]Action)
	}
	if _, ok := q.byActor[a.Actor]; !ok {
		q.order = append(q.order, a.Actor)
	}
	q.byActor[a.Actor] = a
}

// Remove drops the pending action of e.
func (q *ActionQueue) Remove(e ecs.Entity) {
	if _, ok := q.byActor[e]; !ok {
		return
	}
	delete(q.byActor, e)
	for i, actor := range q.order {
		if actor == e {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// Drain returns all pending actions and clears the queue.
func (q *ActionQueue) Drain() []Action {
	if len(q.order) == 0 {
		return nil
	}
	out := make([]Action, 0, len(q.order))
	for _, actor := range q.order {
		out = append(out, q.byActor[actor])
	}
	q.order = nil
	q.byActor = nil
	return out
}

func (q *ActionQueue) Len() int {
	return len(q.order)
}
