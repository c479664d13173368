package system

import (
	"context"

	"github.com/jakecoffman/cp"
	"github.com/looplab/fsm"
	"github.com/milk9111/aicore/common"
	"github.com/milk9111/aicore/ecs"
	"github.com/milk9111/aicore/ecs/component"
	"github.com/milk9111/aicore/events"
)

// Transition events of the basic state machine.
const (
	evIdleElapsed = "idle_elapsed"
	evSpotted     = "spotted"
	evCombat      = "combat"
	evAllyCall    = "ally_call"
	evWounded     = "wounded"
	evLost        = "lost"
	evDisengage   = "disengage"
	evRecovered   = "recovered"
	evTargetGone  = "target_gone"
)

var (
	stIdle   = component.StateIdle.String()
	stPatrol = component.StatePatrol.String()
	stPursue = component.StatePursue.String()
	stCombat = component.StateCombat.String()
	stFlee   = component.StateFlee.String()
)

var basicTransitions = fsm.Events{
	{Name: evIdleElapsed, Src: []string{stIdle}, Dst: stPatrol},
	{Name: evSpotted, Src: []string{stIdle, stPatrol}, Dst: stPursue},
	{Name: evAllyCall, Src: []string{stIdle, stPatrol}, Dst: stPursue},
	{Name: evCombat, Src: []string{stIdle, stPatrol, stPursue, stFlee}, Dst: stCombat},
	{Name: evWounded, Src: []string{stPursue, stCombat}, Dst: stFlee},
	{Name: evLost, Src: []string{stPursue}, Dst: stPatrol},
	{Name: evDisengage, Src: []string{stCombat}, Dst: stPursue},
	{Name: evRecovered, Src: []string{stFlee}, Dst: stIdle},
	{Name: evTargetGone, Src: []string{stPursue, stCombat}, Dst: stPatrol},
}

// BasicOptions tunes the basic state machine. Durations are in seconds of
// accumulated delta time.
type BasicOptions struct {
	IdleTimeout       float64
	LostTargetTimeout float64
	CombatTimeout     float64
	FleeDuration      float64
	// FleeHealthRatio is the remaining fraction of pre-hit HP at or below
	// which the entity flees.
	FleeHealthRatio float64
	AttackRange     float64
}

func DefaultBasicOptions() BasicOptions {
	return BasicOptions{
		IdleTimeout:       3,
		LostTargetTimeout: 5,
		CombatTimeout:     4,
		FleeDuration:      3,
		FleeHealthRatio:   0.3,
		AttackRange:       1,
	}
}

// BasicSystem is the finite state machine used for simple and background
// entities.
type BasicSystem struct {
	opts BasicOptions
}

func NewBasicSystem(opts BasicOptions) *BasicSystem {
	def := DefaultBasicOptions()
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = def.IdleTimeout
	}
	if opts.LostTargetTimeout <= 0 {
		opts.LostTargetTimeout = def.LostTargetTimeout
	}
	if opts.CombatTimeout <= 0 {
		opts.CombatTimeout = def.CombatTimeout
	}
	if opts.FleeDuration <= 0 {
		opts.FleeDuration = def.FleeDuration
	}
	if opts.FleeHealthRatio <= 0 {
		opts.FleeHealthRatio = def.FleeHealthRatio
	}
	if opts.AttackRange <= 0 {
		opts.AttackRange = def.AttackRange
	}
	return &BasicSystem{opts: opts}
}

func (b *BasicSystem) Name() string { return "basic" }

func (b *BasicSystem) Process(e ecs.Entity, ctx *AIContext) Action {
	st, ok := ecs.Get(ctx.World, e, component.BehaviorStateComponent)
	if !ok {
		ctx.logger(e).WithError(ErrComponentMissing).Debug("basic system skipped entity")
		return NoOp(e)
	}
	next := st

	var event string
	if ctx.Notification != nil {
		event = b.react(e, &next, ctx)
	} else {
		next.Timer += ctx.DeltaTime
		event = b.elapsed(&next)
	}

	reason := ""
	if event != "" {
		to, err := transition(next.Current, event)
		if err != nil {
			ctx.logger(e).WithError(err).Warn("basic transition failed")
		} else if to != next.Current {
			next.Current = to
			next.Timer = 0
			reason = event
		}
	}

	act := b.act(e, &next, ctx)
	act.Reason = reason
	act.Next = &next
	return act
}

// transition runs event through a machine positioned at from. Events that
// are not valid from the current state leave it unchanged.
func transition(from component.State, event string) (component.State, error) {
	machine := fsm.NewFSM(from.String(), basicTransitions, fsm.Callbacks{})
	if !machine.Can(event) {
		return from, nil
	}
	if err := machine.Event(context.Background(), event); err != nil {
		return from, err
	}
	return component.ParseState(machine.Current())
}

func (b *BasicSystem) react(e ecs.Entity, st *component.BehaviorState, ctx *AIContext) string {
	if dead, ok := deceased(ctx.Notification); ok {
		if st.Target == uint64(dead) {
			st.ClearTarget()
			return evTargetGone
		}
		return ""
	}

	switch p := ctx.Notification.Payload.(type) {
	case events.CombatStart:
		other, ok := counterpart(e, ctx.Notification)
		if !ok {
			return ""
		}
		engage(st, other, ctx)
		st.Timer = 0
		return evCombat
	case events.AllyInCombat:
		if p.Ally != e {
			return ""
		}
		if !st.HasTarget() {
			engage(st, p.Attacker, ctx)
		}
		return evAllyCall
	case events.CombatHit:
		other, ok := counterpart(e, ctx.Notification)
		if !ok {
			return ""
		}
		if !st.HasTarget() {
			engage(st, other, ctx)
		}
		if st.Current == component.StateCombat {
			st.Timer = 0
		}
		if p.Defender == e && p.OriginalHP > 0 {
			remaining := float64(p.OriginalHP - p.Damage)
			if remaining <= float64(p.OriginalHP)*b.opts.FleeHealthRatio {
				return evWounded
			}
		}
	case events.EntityMove:
		if st.Target != uint64(p.Entity) || !st.TargetVisible {
			return ""
		}
		if st.Current == component.StatePursue {
			st.Timer = 0
		}
		return evSpotted
	}
	return ""
}

func (b *BasicSystem) elapsed(st *component.BehaviorState) string {
	switch st.Current {
	case component.StateIdle:
		if len(st.Waypoints) > 0 && st.Timer >= b.opts.IdleTimeout {
			return evIdleElapsed
		}
	case component.StatePursue:
		if !st.HasTarget() {
			return evLost
		}
		if st.TargetVisible {
			st.Timer = 0
			return ""
		}
		if st.Timer >= b.opts.LostTargetTimeout {
			st.ClearTarget()
			return evLost
		}
	case component.StateCombat:
		if !st.HasTarget() {
			return evTargetGone
		}
		if st.Timer >= b.opts.CombatTimeout {
			return evDisengage
		}
	case component.StateFlee:
		if st.Timer >= b.opts.FleeDuration {
			return evRecovered
		}
	}
	return ""
}

func (b *BasicSystem) act(e ecs.Entity, st *component.BehaviorState, ctx *AIContext) Action {
	idleAction := Action{Kind: ActionIdle, Actor: e, Label: "idle"}
	pos, hasPos := ctx.Position(e)
	if !hasPos {
		return idleAction
	}

	switch st.Current {
	case component.StatePatrol:
		wp, ok := st.NextWaypoint()
		if !ok {
			return idleAction
		}
		if common.ChebyshevDistance(pos, wp) < 0.5 {
			st.AdvanceWaypoint()
			wp, _ = st.NextWaypoint()
		}
		return moveToward(e, pos, wp, "patrol")
	case component.StatePursue:
		if !st.HasTarget() {
			return idleAction
		}
		return moveToward(e, pos, st.TargetPos, "pursue")
	case component.StateCombat:
		if !st.HasTarget() {
			return idleAction
		}
		if common.ChebyshevDistance(pos, st.TargetPos) <= b.opts.AttackRange {
			return Action{Kind: ActionAttack, Actor: e, Target: ecs.Entity(st.Target), Label: "attack"}
		}
		return moveToward(e, pos, st.TargetPos, "close_in")
	case component.StateFlee:
		threat := pos
		if st.HasTarget() {
			threat = st.TargetPos
		}
		return Action{Kind: ActionFlee, Actor: e, Target: ecs.Entity(st.Target), Delta: common.AwayStep(pos, threat), Label: "flee"}
	}
	return idleAction
}

func moveToward(e ecs.Entity, from, to cp.Vector, label string) Action {
	step := common.GridStep(from, to)
	if step.X == 0 && step.Y == 0 {
		return Action{Kind: ActionIdle, Actor: e, Label: "hold"}
	}
	return Action{Kind: ActionMove, Actor: e, Delta: step, Label: label}
}

// engage points st at other using its last observed position.
func engage(st *component.BehaviorState, other ecs.Entity, ctx *AIContext) {
	pos, ok := ctx.Position(other)
	if !ok {
		pos = st.TargetPos
	}
	st.SetTarget(uint64(other), pos)
	st.TargetVisible = true
}
