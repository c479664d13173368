package events

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/aicore/ecs"
	"github.com/milk9111/aicore/ecs/component"
)

// Payload is implemented only by the structs in this file.
type Payload interface {
	Kind() Kind
	payload()
}

type EntitySpawn struct {
	Entity        ecs.Entity
	Position      cp.Vector
	EntityType    string
	ArchetypeHint string
}

type EntityMove struct {
	Entity      ecs.Entity
	OldPosition cp.Vector
	NewPosition cp.Vector
	IsPlayer    bool
}

type EntityDeath struct {
	Entity ecs.Entity
	// Killer is zero when the death had no attributable cause.
	Killer   ecs.Entity
	Position cp.Vector
	Cause    string
}

type CombatStart struct {
	Attacker ecs.Entity
	Defender ecs.Entity
	Position cp.Vector
}

type CombatHit struct {
	Attacker   ecs.Entity
	Defender   ecs.Entity
	Damage     int
	OriginalHP int
}

type TurnStart struct {
	Turn int
}

type TurnEnd struct {
	Turn int
}

type Room struct {
	X, Y, W, H int
}

func (r Room) Center() cp.Vector {
	return cp.Vector{X: float64(r.X) + float64(r.W)/2, Y: float64(r.Y) + float64(r.H)/2}
}

type LevelGenerate struct {
	Rooms       []Room
	PlayerStart cp.Vector
}

type PlayerDeath struct {
	Entity   ecs.Entity
	Position cp.Vector
	Cause    string
}

type BehaviorStateChanged struct {
	Entity ecs.Entity
	From   component.State
	To     component.State
	Reason string
}

type ReputationChanged struct {
	Entity  ecs.Entity
	Faction string
	Old     float64
	New     float64
	Cause   string
}

type MemoryStored struct {
	Entity     ecs.Entity
	Topic      string
	Content    string
	Importance float64
	Evicted    bool
}

type AllyInCombat struct {
	Ally     ecs.Entity
	Attacker ecs.Entity
	Defender ecs.Entity
	Faction  string
}

func (EntitySpawn) Kind() Kind          { return EntitySpawnKind }
func (EntityMove) Kind() Kind           { return EntityMoveKind }
func (EntityDeath) Kind() Kind          { return EntityDeathKind }
func (CombatStart) Kind() Kind          { return CombatStartKind }
func (CombatHit) Kind() Kind            { return CombatHitKind }
func (TurnStart) Kind() Kind            { return TurnStartKind }
func (TurnEnd) Kind() Kind              { return TurnEndKind }
func (LevelGenerate) Kind() Kind        { return LevelGenerateKind }
func (PlayerDeath) Kind() Kind          { return PlayerDeathKind }
func (BehaviorStateChanged) Kind() Kind { return BehaviorStateChangedKind }
func (ReputationChanged) Kind() Kind    { return ReputationChangedKind }
func (MemoryStored) Kind() Kind         { return MemoryStoredKind }
func (AllyInCombat) Kind() Kind         { return AllyInCombatKind }

func (EntitySpawn) payload()          {}
func (EntityMove) payload()           {}
func (EntityDeath) payload()          {}
func (CombatStart) payload()          {}
func (CombatHit) payload()            {}
func (TurnStart) payload()            {}
func (TurnEnd) payload()              {}
func (LevelGenerate) payload()        {}
func (PlayerDeath) payload()          {}
func (BehaviorStateChanged) payload() {}
func (ReputationChanged) payload()    {}
func (MemoryStored) payload()         {}
func (AllyInCombat) payload()         {}
