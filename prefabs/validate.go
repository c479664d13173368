package prefabs

import (
	"maps"
	"slices"
	"strconv"
)

func validateConfig(cfg *Config, cerr *ConfigError) {
	for _, id := range slices.Sorted(maps.Keys(cfg.Factions)) {
		f := cfg.Factions[id]
		for _, other := range slices.Sorted(maps.Keys(f.Relations)) {
			v := f.Relations[other]
			if v < -1 || v > 1 {
				cerr.addError("faction %q: relation to %q is %v, must be within [-1, 1]", id, other, v)
			}
			if _, ok := cfg.Factions[other]; !ok {
				cerr.addWarning("faction %q: relation to unknown faction %q", id, other)
			}
		}
	}

	for _, id := range slices.Sorted(maps.Keys(cfg.BehaviorTrees)) {
		validateNode(id, "root", cfg.BehaviorTrees[id].Root, cerr)
	}

	claimed := map[string]string{}
	for _, id := range slices.Sorted(maps.Keys(cfg.Archetypes)) {
		a := cfg.Archetypes[id]
		if id == DefaultArchetypeID {
			cerr.addError("archetype %q: id is reserved for the built-in default", id)
		}
		if _, ok := cfg.Factions[a.Faction]; !ok {
			cerr.addError("archetype %q: unknown faction %q", id, a.Faction)
		}
		if a.BehaviorTree != "" {
			if _, ok := cfg.BehaviorTrees[a.BehaviorTree]; !ok {
				cerr.addError("archetype %q: unknown behavior tree %q", id, a.BehaviorTree)
			}
		}
		if a.System == SystemAdvanced && a.BehaviorTree == "" {
			cerr.addWarning("archetype %q: advanced system without a behavior tree uses the default tree", id)
		}
		for _, t := range a.EntityTypes {
			if prev, ok := claimed[t]; ok {
				cerr.addWarning("archetype %q: entity type %q already mapped to %q", id, t, prev)
				continue
			}
			claimed[t] = id
		}
	}
}

func validateNode(tree, path string, n NodeSpec, cerr *ConfigError) {
	switch n.Type {
	case NodeSelector, NodeSequence:
		if len(n.Children) == 0 {
			cerr.addError("behavior tree %q: %s: %s needs at least one child", tree, path, n.Type)
		}
	case NodeInverter:
		if len(n.Children) != 1 {
			cerr.addError("behavior tree %q: %s: inverter needs exactly one child", tree, path)
		}
	case NodeCondition:
		if !slices.Contains(KnownConditions, n.Condition) {
			cerr.addError("behavior tree %q: %s: unknown condition %q", tree, path, n.Condition)
		}
	case NodeAction:
		if !slices.Contains(KnownActions, n.Action) {
			cerr.addError("behavior tree %q: %s: unknown action %q", tree, path, n.Action)
		}
	default:
		cerr.addError("behavior tree %q: %s: unknown node type %q", tree, path, n.Type)
	}
	if (n.Type == NodeCondition || n.Type == NodeAction) && len(n.Children) > 0 {
		cerr.addError("behavior tree %q: %s: %s nodes cannot have children", tree, path, n.Type)
	}
	for i, child := range n.Children {
		validateNode(tree, path+"."+childLabel(child, i), child, cerr)
	}
}

func childLabel(n NodeSpec, i int) string {
	if n.Name != "" {
		return n.Name
	}
	return n.Type + "[" + strconv.Itoa(i) + "]"
}
