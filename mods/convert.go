package mods

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/aicore/ecs"
	"github.com/milk9111/aicore/events"
)

// Fields flattens a notification into the plain map handed to scripts.
// Entities become integers and positions {x, y} maps.
func Fields(n events.Notification) map[string]any {
	out := map[string]any{
		"id":          n.ID.String(),
		"kind":        n.Kind.String(),
		"source":      n.Source,
		"cancellable": n.Cancellable,
	}
	for k, v := range payloadFields(n.Payload) {
		out[k] = v
	}
	return out
}

func entity(e ecs.Entity) int64 { return int64(e) }

func vec(v cp.Vector) map[string]any {
	return map[string]any{"x": v.X, "y": v.Y}
}

func payloadFields(p events.Payload) map[string]any {
	switch p := p.(type) {
	case events.EntitySpawn:
		return map[string]any{
			"entity":         entity(p.Entity),
			"position":       vec(p.Position),
			"entity_type":    p.EntityType,
			"archetype_hint": p.ArchetypeHint,
		}
	case events.EntityMove:
		return map[string]any{
			"entity":       entity(p.Entity),
			"old_position": vec(p.OldPosition),
			"new_position": vec(p.NewPosition),
			"is_player":    p.IsPlayer,
		}
	case events.EntityDeath:
		return map[string]any{
			"entity":   entity(p.Entity),
			"killer":   entity(p.Killer),
			"position": vec(p.Position),
			"cause":    p.Cause,
		}
	case events.CombatStart:
		return map[string]any{
			"attacker": entity(p.Attacker),
			"defender": entity(p.Defender),
			"position": vec(p.Position),
		}
	case events.CombatHit:
		return map[string]any{
			"attacker":    entity(p.Attacker),
			"defender":    entity(p.Defender),
			"damage":      int64(p.Damage),
			"original_hp": int64(p.OriginalHP),
		}
	case events.TurnStart:
		return map[string]any{"turn": int64(p.Turn)}
	case events.TurnEnd:
		return map[string]any{"turn": int64(p.Turn)}
	case events.LevelGenerate:
		rooms := make([]any, 0, len(p.Rooms))
		for _, r := range p.Rooms {
			rooms = append(rooms, map[string]any{
				"x": int64(r.X), "y": int64(r.Y), "w": int64(r.W), "h": int64(r.H),
			})
		}
		return map[string]any{"rooms": rooms, "player_start": vec(p.PlayerStart)}
	case events.PlayerDeath:
		return map[string]any{
			"entity":   entity(p.Entity),
			"position": vec(p.Position),
			"cause":    p.Cause,
		}
	case events.BehaviorStateChanged:
		return map[string]any{
			"entity": entity(p.Entity),
			"from":   p.From.String(),
			"to":     p.To.String(),
			"reason": p.Reason,
		}
	case events.ReputationChanged:
		return map[string]any{
			"entity":  entity(p.Entity),
			"faction": p.Faction,
			"old":     p.Old,
			"new":     p.New,
			"cause":   p.Cause,
		}
	case events.MemoryStored:
		return map[string]any{
			"entity":     entity(p.Entity),
			"topic":      p.Topic,
			"content":    p.Content,
			"importance": p.Importance,
			"evicted":    p.Evicted,
		}
	case events.AllyInCombat:
		return map[string]any{
			"ally":     entity(p.Ally),
			"attacker": entity(p.Attacker),
			"defender": entity(p.Defender),
			"faction":  p.Faction,
		}
	}
	return nil
}

// verdictOf maps a script return value to a verdict: "cancel" or true
// cancels, anything else continues.
func verdictOf(v any) events.Verdict {
	switch v := v.(type) {
	case bool:
		if v {
			return events.Cancel
		}
	case string:
		if v == events.Cancel.String() {
			return events.Cancel
		}
	}
	return events.Continue
}
