package system

import (
	"maps"
	"slices"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/aicore/common"
	"github.com/milk9111/aicore/ecs"
	"github.com/milk9111/aicore/ecs/component"
	"github.com/milk9111/aicore/events"
	"github.com/milk9111/aicore/prefabs"
)

// binding maps a tree action name to what the entity does and the state it
// reports while doing it.
type binding struct {
	kind        ActionKind
	state       component.State
	needsTarget bool
}

var actionBindings = map[string]binding{
	"idle":            {ActionIdle, component.StateIdle, false},
	"rest":            {ActionIdle, component.StateIdle, false},
	"socialize":       {ActionIdle, component.StateIdle, false},
	"seek_food":       {ActionMove, component.StatePatrol, false},
	"guard_territory": {ActionMove, component.StatePatrol, false},
	"patrol":          {ActionMove, component.StatePatrol, false},
	"wander":          {ActionMove, component.StatePatrol, false},
	"pursue":          {ActionMove, component.StatePursue, true},
	"attack":          {ActionAttack, component.StateCombat, true},
	"flee":            {ActionFlee, component.StateFlee, true},
}

var wanderSteps = []cp.Vector{
	{X: 1}, {X: 1, Y: 1}, {Y: 1}, {X: -1, Y: 1},
	{X: -1}, {X: -1, Y: -1}, {Y: -1}, {X: 1, Y: -1},
}

type AdvancedOptions struct {
	// RecallWeight scales the memory term of every utility.
	RecallWeight float64
	// Jitter adds up to this much seeded noise to each utility; zero keeps
	// selection fully deterministic without consuming the RNG.
	Jitter      float64
	AttackRange float64
}

func DefaultAdvancedOptions() AdvancedOptions {
	return AdvancedOptions{RecallWeight: 1, AttackRange: 1}
}

// AdvancedSystem scores the actions a behavior tree makes eligible and
// picks the highest utility.
type AdvancedSystem struct {
	opts AdvancedOptions
}

func NewAdvancedSystem(opts AdvancedOptions) *AdvancedSystem {
	if opts.AttackRange <= 0 {
		opts.AttackRange = DefaultAdvancedOptions().AttackRange
	}
	return &AdvancedSystem{opts: opts}
}

func (a *AdvancedSystem) Name() string { return "advanced" }

type candidate struct {
	leaf    leaf
	target  ecs.Entity
	utility float64
}

func (a *AdvancedSystem) Process(e ecs.Entity, ctx *AIContext) Action {
	w := ctx.World
	st, ok1 := ecs.Get(w, e, component.BehaviorStateComponent)
	personality, ok2 := ecs.Get(w, e, component.PersonalityComponent)
	motivation, ok3 := ecs.Get(w, e, component.MotivationComponent)
	memory, ok4 := ecs.Get(w, e, component.MemoryComponent)
	reputation, ok5 := ecs.Get(w, e, component.ReputationComponent)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		ctx.logger(e).WithError(ErrComponentMissing).Debug("advanced system skipped entity")
		return NoOp(e)
	}
	faction, hasFaction := ecs.Get(w, e, component.FactionComponent)

	next := st
	if ctx.Notification == nil {
		next.Timer += ctx.DeltaTime
	} else {
		a.observe(e, &next, ctx)
	}

	tree := prefabs.DefaultBehaviorTree()
	if ctx.Config != nil {
		arch, _ := ctx.Config.ArchetypeOrDefault(st.ArchetypeID)
		tree, _ = ctx.Config.BehaviorTree(arch.BehaviorTree)
	}

	env := &treeEnv{
		entity:      e,
		state:       &next,
		personality: personality,
		motivation:  motivation,
		reputation:  reputation,
		faction:     faction,
		hasFaction:  hasFaction,
		ctx:         ctx,
	}
	order := 0
	leaves, _ := collect(&tree.Root, env, &order)

	best, found := candidate{}, false
	targets := a.targets(e, &next, ctx)
	for _, l := range leaves {
		bind, ok := actionBindings[l.node.Action]
		if !ok {
			continue
		}
		options := []ecs.Entity{0}
		if bind.needsTarget {
			options = targets
		}
		for _, target := range options {
			c := candidate{leaf: l, target: target}
			c.utility = a.utility(l.node, target, env, memory)
			if !found || better(c, best) {
				best, found = c, true
			}
		}
	}
	if !found {
		return NoOp(e)
	}

	bind := actionBindings[best.leaf.node.Action]
	reason := ""
	if next.Current != bind.state {
		next.Current = bind.state
		next.Timer = 0
		reason = best.leaf.node.Action
	}
	if best.target.Valid() && uint64(best.target) != next.Target {
		pos, _ := ctx.Position(best.target)
		next.SetTarget(uint64(best.target), pos)
	}

	act := a.bind(e, best, bind, &next, ctx)
	act.Utility = best.utility
	act.Reason = reason
	act.Next = &next
	return act
}

// better orders candidates by utility, then lowest target id, then tree
// order.
func better(c, than candidate) bool {
	if c.utility != than.utility {
		return c.utility > than.utility
	}
	if c.target != than.target {
		return c.target < than.target
	}
	return c.leaf.order < than.leaf.order
}

func (a *AdvancedSystem) utility(node *prefabs.NodeSpec, target ecs.Entity, env *treeEnv, memory component.Memory) float64 {
	u := node.Base
	for _, trait := range slices.Sorted(maps.Keys(node.Traits)) {
		u += node.Traits[trait] * env.personality.Trait(trait)
	}
	for _, goal := range slices.Sorted(maps.Keys(node.Goals)) {
		u += node.Goals[goal] * env.motivation.Goal(goal)
	}
	if target.Valid() && node.Reputation != 0 {
		f := env.ctx.FactionOf(target)
		u += node.Reputation * env.reputation.Effective(uint64(target), f) / component.MaxStanding
	}
	u += a.opts.RecallWeight * memory.RecallScore(node.Topic, env.ctx.Tick)
	if a.opts.Jitter > 0 && env.ctx.RNG != nil {
		u += a.opts.Jitter * env.ctx.RNG.Float64()
	}
	return u
}

// targets lists candidate targets, ascending.
func (a *AdvancedSystem) targets(e ecs.Entity, st *component.BehaviorState, ctx *AIContext) []ecs.Entity {
	var out []ecs.Entity
	if st.HasTarget() {
		out = append(out, ecs.Entity(st.Target))
	}
	if other, ok := counterpart(e, ctx.Notification); ok && other.Valid() && uint64(other) != st.Target {
		out = append(out, other)
	}
	slices.Sort(out)
	return out
}

// observe folds the notification into the entity's working state.
func (a *AdvancedSystem) observe(e ecs.Entity, st *component.BehaviorState, ctx *AIContext) {
	if dead, ok := deceased(ctx.Notification); ok {
		if st.Target == uint64(dead) {
			st.ClearTarget()
		}
		return
	}
	if p, ok := ctx.Notification.Payload.(events.CombatStart); ok && p.Defender == e {
		engage(st, p.Attacker, ctx)
		return
	}
	if other, ok := counterpart(e, ctx.Notification); ok && !st.HasTarget() {
		engage(st, other, ctx)
	}
}

func (a *AdvancedSystem) bind(e ecs.Entity, c candidate, bind binding, st *component.BehaviorState, ctx *AIContext) Action {
	label := c.leaf.node.Action
	act := Action{Kind: ActionIdle, Actor: e, Target: c.target, Label: label}
	pos, hasPos := ctx.Position(e)
	if bind.kind == ActionIdle || !hasPos {
		return act
	}

	switch label {
	case "attack":
		if common.ChebyshevDistance(pos, st.TargetPos) <= a.opts.AttackRange {
			act.Kind = ActionAttack
			return act
		}
		return withTarget(moveToward(e, pos, st.TargetPos, label), c.target)
	case "pursue":
		return withTarget(moveToward(e, pos, st.TargetPos, label), c.target)
	case "flee":
		act.Kind = ActionFlee
		act.Delta = common.AwayStep(pos, st.TargetPos)
		return act
	case "wander", "seek_food":
		step := wanderSteps[0]
		if ctx.RNG != nil {
			step = wanderSteps[ctx.RNG.Intn(len(wanderSteps))]
		}
		act.Kind = ActionMove
		act.Delta = step
		return act
	}

	wp, ok := st.NextWaypoint()
	if !ok {
		return act
	}
	if common.ChebyshevDistance(pos, wp) < 0.5 {
		st.AdvanceWaypoint()
		wp, _ = st.NextWaypoint()
	}
	move := moveToward(e, pos, wp, label)
	move.Label = label
	return move
}

func withTarget(a Action, target ecs.Entity) Action {
	a.Target = target
	return a
}
