package events

import (
	"fmt"
	"strings"
)

// Kind is the closed set of notification kinds.
type Kind uint8

const (
	EntitySpawnKind Kind = iota + 1
	EntityMoveKind
	EntityDeathKind
	CombatStartKind
	CombatHitKind
	TurnStartKind
	TurnEndKind
	LevelGenerateKind
	PlayerDeathKind

	BehaviorStateChangedKind
	ReputationChangedKind
	MemoryStoredKind
	AllyInCombatKind
)

var kindNames = map[Kind]string{
	EntitySpawnKind:          "entity_spawn",
	EntityMoveKind:           "entity_move",
	EntityDeathKind:          "entity_death",
	CombatStartKind:          "combat_start",
	CombatHitKind:            "combat_hit",
	TurnStartKind:            "turn_start",
	TurnEndKind:              "turn_end",
	LevelGenerateKind:        "level_generate",
	PlayerDeathKind:          "player_death",
	BehaviorStateChangedKind: "behavior_state_changed",
	ReputationChangedKind:    "reputation_changed",
	MemoryStoredKind:         "memory_stored",
	AllyInCombatKind:         "ally_in_combat",
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames))
	for k := EntitySpawnKind; k <= AllyInCombatKind; k++ {
		out = append(out, k)
	}
	return out
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Cancellable reports whether notifications of k are emitted cancellable by
// default.
func (k Kind) Cancellable() bool {
	return k == CombatStartKind
}

// ParseKind accepts the lower snake case name of a kind, case-insensitively.
func ParseKind(name string) (Kind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("events: unknown kind %q", name)
}
