package engine

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/aicore/common"
	"github.com/milk9111/aicore/ecs"
)

// Hit is the outcome of one resolved attack.
type Hit struct {
	Damage     int
	OriginalHP int
	Killed     bool
	Position   cp.Vector
}

// Game is the part of the host game the bridge drives. The game owns
// positions and hit points; the AI only observes them through notifications.
type Game interface {
	Position(e ecs.Entity) (cp.Vector, bool)
	// Move applies a one-tile delta and reports the old and new position.
	Move(e ecs.Entity, delta cp.Vector) (from, to cp.Vector, ok bool)
	// ResolveAttack applies damage for a confirmed attack.
	ResolveAttack(attacker, defender ecs.Entity) (Hit, bool)
}

// DefaultDamage is dealt by sandbox actors placed without a damage value.
const DefaultDamage = 3

type actor struct {
	pos    cp.Vector
	health *Health
	damage int
}

// Sandbox is an in-memory Game on an unbounded grid. Two living actors never
// share a tile.
type Sandbox struct {
	actors map[ecs.Entity]*actor
	// Reach is the attack range in tiles.
	Reach float64
}

func NewSandbox() *Sandbox {
	return &Sandbox{actors: make(map[ecs.Entity]*actor), Reach: 1}
}

// Place puts e on the grid with hp hit points.
func (s *Sandbox) Place(e ecs.Entity, pos cp.Vector, hp, damage int) {
	if damage <= 0 {
		damage = DefaultDamage
	}
	s.actors[e] = &actor{pos: pos, health: NewHealth(hp), damage: damage}
}

func (s *Sandbox) Remove(e ecs.Entity) {
	delete(s.actors, e)
}

func (s *Sandbox) Health(e ecs.Entity) (*Health, bool) {
	a, ok := s.actors[e]
	if !ok {
		return nil, false
	}
	return a.health, true
}

func (s *Sandbox) Position(e ecs.Entity) (cp.Vector, bool) {
	a, ok := s.actors[e]
	if !ok {
		return cp.Vector{}, false
	}
	return a.pos, true
}

func (s *Sandbox) occupied(pos cp.Vector, except ecs.Entity) bool {
	for e, a := range s.actors {
		if e != except && a.health.IsAlive() && a.pos == pos {
			return true
		}
	}
	return false
}

func (s *Sandbox) Move(e ecs.Entity, delta cp.Vector) (cp.Vector, cp.Vector, bool) {
	a, ok := s.actors[e]
	if !ok || !a.health.IsAlive() {
		return cp.Vector{}, cp.Vector{}, false
	}
	from := a.pos
	to := from.Add(delta)
	if to == from || s.occupied(to, e) {
		return from, from, false
	}
	a.pos = to
	return from, to, true
}

func (s *Sandbox) ResolveAttack(attacker, defender ecs.Entity) (Hit, bool) {
	atk, ok1 := s.actors[attacker]
	def, ok2 := s.actors[defender]
	if !ok1 || !ok2 || !atk.health.IsAlive() || !def.health.IsAlive() {
		return Hit{}, false
	}
	if common.ChebyshevDistance(atk.pos, def.pos) > s.Reach {
		return Hit{}, false
	}
	hit := Hit{OriginalHP: def.health.Current, Position: def.pos}
	before := def.health.Current
	_, hit.Killed = def.health.ApplyDamage(atk.damage)
	hit.Damage = before - def.health.Current
	return hit, true
}
