package system

import (
	"github.com/milk9111/aicore/ecs"
	"github.com/milk9111/aicore/ecs/component"
	"github.com/milk9111/aicore/events"
	"github.com/milk9111/aicore/prefabs"
)

// treeEnv is the read-only view conditions are evaluated against.
type treeEnv struct {
	entity      ecs.Entity
	state       *component.BehaviorState
	personality component.Personality
	motivation  component.Motivation
	reputation  component.Reputation
	faction     component.Faction
	hasFaction  bool
	ctx         *AIContext
}

type conditionFunc func(env *treeEnv) bool

var conditionRegistry = map[string]conditionFunc{
	"is_threatened": func(env *treeEnv) bool { return env.motivation.Drive(component.DriveFear) >= 0.6 },
	"is_wounded":    func(env *treeEnv) bool { return env.motivation.Drive(component.DrivePain) >= 0.5 },
	"is_hungry":     func(env *treeEnv) bool { return env.motivation.Drive(component.DriveHunger) > 0.7 },
	"is_angry":      func(env *treeEnv) bool { return env.motivation.Drive(component.DriveAnger) >= 0.5 },
	"is_confident":  func(env *treeEnv) bool { return env.personality.Trait(component.TraitCourage) > 0.6 },
	"is_loyal":      func(env *treeEnv) bool { return env.hasFaction && env.faction.Loyalty >= 0.5 },
	"has_target":    func(env *treeEnv) bool { return env.state.HasTarget() },
	"target_visible": func(env *treeEnv) bool {
		return env.state.HasTarget() && env.state.TargetVisible
	},
	"target_hostile": func(env *treeEnv) bool {
		if !env.state.HasTarget() {
			return false
		}
		f := env.ctx.FactionOf(ecs.Entity(env.state.Target))
		if f != "" && env.hasFaction && f == env.faction.FactionID {
			return false
		}
		return env.reputation.Effective(env.state.Target, f) < 0
	},
	"ally_in_combat": func(env *treeEnv) bool {
		if env.ctx.Notification == nil {
			return false
		}
		p, ok := env.ctx.Notification.Payload.(events.AllyInCombat)
		return ok && p.Ally == env.entity
	},
	"under_attack": func(env *treeEnv) bool {
		if env.ctx.Notification == nil {
			return false
		}
		switch p := env.ctx.Notification.Payload.(type) {
		case events.CombatStart:
			return p.Defender == env.entity
		case events.CombatHit:
			return p.Defender == env.entity
		}
		return false
	},
}

// leaf is an eligible action node together with its position in the tree.
type leaf struct {
	node  *prefabs.NodeSpec
	order int
}

// collect evaluates node and returns the action leaves it makes eligible.
// A selector offers every succeeding child, a sequence offers its actions
// only when all of its children succeed, and an inverter negates success
// without offering anything.
func collect(node *prefabs.NodeSpec, env *treeEnv, order *int) ([]leaf, bool) {
	*order++
	switch node.Type {
	case prefabs.NodeAction:
		return []leaf{{node: node, order: *order}}, true
	case prefabs.NodeCondition:
		fn, ok := conditionRegistry[node.Condition]
		return nil, ok && fn(env)
	case prefabs.NodeInverter:
		if len(node.Children) != 1 {
			return nil, false
		}
		_, ok := collect(&node.Children[0], env, order)
		return nil, !ok
	case prefabs.NodeSequence:
		var out []leaf
		for i := range node.Children {
			leaves, ok := collect(&node.Children[i], env, order)
			if !ok {
				return nil, false
			}
			out = append(out, leaves...)
		}
		return out, true
	case prefabs.NodeSelector:
		var out []leaf
		succeeded := false
		for i := range node.Children {
			leaves, ok := collect(&node.Children[i], env, order)
			if ok {
				succeeded = true
				out = append(out, leaves...)
			}
		}
		return out, succeeded
	}
	return nil, false
}
