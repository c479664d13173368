package system

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/aicore/ecs"
	"github.com/milk9111/aicore/ecs/component"
	"github.com/milk9111/aicore/events"
	"github.com/milk9111/aicore/logger"
)

func TestBasicTransitions(t *testing.T) {
	cases := []struct {
		from  component.State
		event string
		want  component.State
	}{
		{component.StateIdle, evIdleElapsed, component.StatePatrol},
		{component.StateIdle, evCombat, component.StateCombat},
		{component.StatePatrol, evSpotted, component.StatePursue},
		{component.StatePatrol, evAllyCall, component.StatePursue},
		{component.StatePursue, evLost, component.StatePatrol},
		{component.StateCombat, evDisengage, component.StatePursue},
		{component.StateCombat, evWounded, component.StateFlee},
		{component.StateCombat, evTargetGone, component.StatePatrol},
		{component.StateFlee, evRecovered, component.StateIdle},
		{component.StateFlee, evCombat, component.StateCombat},
		// not valid from the current state
		{component.StateCombat, evSpotted, component.StateCombat},
		{component.StateIdle, evRecovered, component.StateIdle},
		{component.StateFlee, evWounded, component.StateFlee},
	}
	for _, c := range cases {
		t.Run(c.from.String()+"_"+c.event, func(t *testing.T) {
			got, err := transition(c.from, c.event)
			if err != nil {
				t.Fatalf("transition: %v", err)
			}
			if got != c.want {
				t.Fatalf("%v --%s--> %v, want %v", c.from, c.event, got, c.want)
			}
		})
	}
}

type basicFixture struct {
	w     *ecs.World
	sys   *BasicSystem
	self  ecs.Entity
	enemy ecs.Entity
}

func newBasicFixture(t *testing.T) *basicFixture {
	t.Helper()
	w := ecs.NewWorld()
	f := &basicFixture{w: w, sys: NewBasicSystem(BasicOptions{}), self: w.CreateEntity(), enemy: w.CreateEntity()}
	must(t, ecs.Add(w, f.self, component.PositionComponent, component.Position{At: cp.Vector{}}))
	must(t, ecs.Add(w, f.enemy, component.PositionComponent, component.Position{At: cp.Vector{X: 1}}))
	must(t, ecs.Add(w, f.self, component.BehaviorStateComponent, component.BehaviorState{
		Waypoints: []cp.Vector{{X: 5}},
	}))
	return f
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

// step runs one evaluation and commits the resulting state like the manager.
func (f *basicFixture) step(t *testing.T, n *events.Notification, dt float64) Action {
	t.Helper()
	ctx := &AIContext{World: f.w, Notification: n, DeltaTime: dt, Log: logger.Discard()}
	act := f.sys.Process(f.self, ctx)
	if act.Next != nil {
		must(t, ecs.Add(f.w, f.self, component.BehaviorStateComponent, *act.Next))
	}
	return act
}

func (f *basicFixture) state(t *testing.T) component.BehaviorState {
	t.Helper()
	st, ok := ecs.Get(f.w, f.self, component.BehaviorStateComponent)
	if !ok {
		t.Fatal("behavior state missing")
	}
	return st
}

func notify(p events.Payload) *events.Notification {
	n := events.New(p, p.Kind().Cancellable(), "test")
	return &n
}

func TestBasicSystem_Lifecycle(t *testing.T) {
	f := newBasicFixture(t)

	for i := 0; i < 2; i++ {
		if act := f.step(t, nil, 1); act.Kind != ActionIdle {
			t.Fatalf("tick %d: expected idle, got %v", i, act.Kind)
		}
	}
	act := f.step(t, nil, 1)
	if f.state(t).Current != component.StatePatrol {
		t.Fatalf("expected patrol after idle timeout, got %v", f.state(t).Current)
	}
	if act.Kind != ActionMove || act.Delta != (cp.Vector{X: 1}) || act.Reason != evIdleElapsed {
		t.Fatalf("unexpected patrol action: %+v", act)
	}

	act = f.step(t, notify(events.CombatStart{Attacker: f.enemy, Defender: f.self}), 0)
	st := f.state(t)
	if st.Current != component.StateCombat || st.Target != uint64(f.enemy) {
		t.Fatalf("expected combat against %v, got %+v", f.enemy, st)
	}
	if act.Kind != ActionAttack || act.Target != f.enemy {
		t.Fatalf("adjacent enemy should be attacked, got %+v", act)
	}

	act = f.step(t, notify(events.CombatHit{Attacker: f.enemy, Defender: f.self, Damage: 8, OriginalHP: 10}), 0)
	if f.state(t).Current != component.StateFlee {
		t.Fatalf("heavy hit should cause flee, got %v", f.state(t).Current)
	}
	if act.Kind != ActionFlee || act.Delta != (cp.Vector{X: -1}) {
		t.Fatalf("unexpected flee action: %+v", act)
	}

	for i := 0; i < 3; i++ {
		f.step(t, nil, 1)
	}
	if f.state(t).Current != component.StateIdle {
		t.Fatalf("expected idle after flee duration, got %v", f.state(t).Current)
	}
}

func TestBasicSystem_LightHitKeepsFighting(t *testing.T) {
	f := newBasicFixture(t)
	f.step(t, notify(events.CombatStart{Attacker: f.enemy, Defender: f.self}), 0)
	f.step(t, notify(events.CombatHit{Attacker: f.enemy, Defender: f.self, Damage: 2, OriginalHP: 10}), 0)
	if got := f.state(t).Current; got != component.StateCombat {
		t.Fatalf("light hit changed state to %v", got)
	}
}

func TestBasicSystem_TargetDeathReturnsToPatrol(t *testing.T) {
	f := newBasicFixture(t)
	f.step(t, notify(events.CombatStart{Attacker: f.enemy, Defender: f.self}), 0)

	f.step(t, notify(events.EntityDeath{Entity: f.enemy}), 0)
	st := f.state(t)
	if st.Current != component.StatePatrol || st.HasTarget() {
		t.Fatalf("expected patrol without target, got %+v", st)
	}
}

func TestBasicSystem_LostTargetTimesOut(t *testing.T) {
	f := newBasicFixture(t)
	must(t, ecs.Add(f.w, f.self, component.BehaviorStateComponent, component.BehaviorState{
		Current:   component.StatePursue,
		Target:    uint64(f.enemy),
		TargetPos: cp.Vector{X: 4},
	}))
	for i := 0; i < 4; i++ {
		f.step(t, nil, 1)
		if f.state(t).Current != component.StatePursue {
			t.Fatalf("left pursue too early at step %d", i)
		}
	}
	f.step(t, nil, 1)
	st := f.state(t)
	if st.Current != component.StatePatrol || st.HasTarget() {
		t.Fatalf("expected patrol after losing target, got %+v", st)
	}
}

func TestBasicSystem_MissingStateIsNoOp(t *testing.T) {
	w := ecs.NewWorld()
	e := w.CreateEntity()
	act := NewBasicSystem(BasicOptions{}).Process(e, &AIContext{World: w, Log: logger.Discard()})
	if !act.IsNoOp() {
		t.Fatalf("expected no-op, got %+v", act)
	}
}

func TestBasicSystem_Deterministic(t *testing.T) {
	run := func() []Action {
		f := newBasicFixture(t)
		script := []*events.Notification{
			nil, nil, nil,
			notify(events.CombatStart{Attacker: f.enemy, Defender: f.self}),
			nil,
			notify(events.CombatHit{Attacker: f.enemy, Defender: f.self, Damage: 9, OriginalHP: 10}),
			nil, nil, nil, nil,
		}
		var out []Action
		for _, n := range script {
			act := f.step(t, n, 1)
			out = append(out, act)
		}
		return out
	}
	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Fatalf("runs diverged (-first +second):\n%s", diff)
	}
}

func TestActionQueue_LatestPerActor(t *testing.T) {
	var q ActionQueue
	q.Push(Action{Actor: 1, Kind: ActionIdle})
	q.Push(Action{Actor: 2, Kind: ActionMove})
	q.Push(Action{Actor: 1, Kind: ActionAttack})
	q.Push(Action{Actor: 3, Kind: ActionFlee})
	q.Remove(3)

	want := []Action{{Actor: 1, Kind: ActionAttack}, {Actor: 2, Kind: ActionMove}}
	if diff := cmp.Diff(want, q.Drain()); diff != "" {
		t.Fatalf("drain (-want +got):\n%s", diff)
	}
	if q.Len() != 0 || q.Drain() != nil {
		t.Fatalf("queue not empty after drain")
	}
}
