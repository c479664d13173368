// Package engine connects a host game to the AI core: it turns game
// occurrences into notifications and applies AI actions back to the game.
package engine

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/aicore/ecs"
	"github.com/milk9111/aicore/ecs/component"
	"github.com/milk9111/aicore/ecs/system"
	"github.com/milk9111/aicore/events"
	"github.com/milk9111/aicore/prefabs"
	"github.com/sirupsen/logrus"
)

// PlayerType is the spawn entity type that marks the player.
const PlayerType = "player"

const source = "engine"

// ScriptHost picks up changed mod scripts once per tick.
type ScriptHost interface {
	ApplyPending(changes <-chan string) int
}

type Bridge struct {
	world   *ecs.World
	bus     *events.Bus
	ai      *system.Manager
	game    Game
	scripts ScriptHost
	log     logrus.FieldLogger

	turn int
}

type Option func(*Bridge)

func WithScripts(h ScriptHost) Option {
	return func(b *Bridge) { b.scripts = h }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(b *Bridge) {
		if log != nil {
			b.log = log
		}
	}
}

func NewBridge(world *ecs.World, bus *events.Bus, ai *system.Manager, game Game, opts ...Option) *Bridge {
	b := &Bridge{
		world: world,
		bus:   bus,
		ai:    ai,
		game:  game,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.WithField("component", "bridge")
	return b
}

func (b *Bridge) Turn() int { return b.turn }

// Dispatch wraps p using its kind's default cancellability.
func (b *Bridge) Dispatch(p events.Payload) events.Notification {
	return b.DispatchNotification(events.New(p, p.Kind().Cancellable(), source))
}

// DispatchNotification emits n on the bus and, unless a handler vetoed it,
// hands it to the AI and applies its game-side consequences. Called from
// inside a bus handler, n is queued: the returned value carries no verdict
// and the consequences follow once n has been dispatched.
func (b *Bridge) DispatchNotification(n events.Notification) events.Notification {
	n, _ = b.bus.EmitThen(n, b.settle)
	return n
}

func (b *Bridge) settle(n events.Notification) {
	if n.Cancelled() {
		b.log.WithFields(logrus.Fields{"kind": n.Kind.String(), "notification": n.ID}).Debug("notification cancelled")
		return
	}

	switch p := n.Payload.(type) {
	case events.EntitySpawn:
		b.spawn(p)
		b.ai.ProcessNotification(n)
	case events.EntityDeath:
		b.ai.ProcessNotification(n)
		b.ai.UnregisterEntity(p.Entity)
		b.world.DestroyEntity(p.Entity)
	case events.CombatStart:
		b.ai.ProcessNotification(n)
		b.resolve(p)
	case events.TurnStart:
		b.turn = p.Turn
		b.ai.ProcessNotification(n)
	default:
		b.ai.ProcessNotification(n)
	}
}

// StartTurn advances the turn counter and dispatches TURN_START.
func (b *Bridge) StartTurn() events.Notification {
	return b.Dispatch(events.TurnStart{Turn: b.turn + 1})
}

func (b *Bridge) EndTurn() events.Notification {
	return b.Dispatch(events.TurnEnd{Turn: b.turn})
}

func (b *Bridge) spawn(p events.EntitySpawn) {
	e := p.Entity
	if !b.world.IsAlive(e) {
		b.log.WithField("entity", e).Warn("spawn for unknown entity ignored")
		return
	}
	if p.EntityType == PlayerType {
		b.ai.SetPlayer(e)
		return
	}

	id := b.archetypeFor(p)
	kind, err := system.ParseSystemKind(b.ai.Config().Archetype(id).SystemOrDefault())
	if err != nil {
		b.log.WithField("archetype", id).WithError(err).Warn("falling back to basic system")
	}
	if err := b.ai.RegisterEntity(e, kind, id); err != nil {
		b.log.WithField("entity", e).WithError(err).Error("registration failed")
	}
}

// archetypeFor resolves the spawn hint, then the entity type mapping, then
// the default archetype.
func (b *Bridge) archetypeFor(p events.EntitySpawn) string {
	cfg := b.ai.Config().Current()
	if p.ArchetypeHint != "" {
		if _, ok := cfg.Archetype(p.ArchetypeHint); ok {
			return p.ArchetypeHint
		}
		b.log.WithField("archetype", p.ArchetypeHint).Warn("unknown archetype hint")
	}
	if id, ok := cfg.ArchetypeForType(p.EntityType); ok {
		return id
	}
	return prefabs.DefaultArchetypeID
}

func (b *Bridge) resolve(p events.CombatStart) {
	hit, ok := b.game.ResolveAttack(p.Attacker, p.Defender)
	if !ok {
		return
	}
	b.Dispatch(events.CombatHit{
		Attacker:   p.Attacker,
		Defender:   p.Defender,
		Damage:     hit.Damage,
		OriginalHP: hit.OriginalHP,
	})
	if !hit.Killed {
		return
	}
	if p.Defender == b.ai.Player() {
		b.Dispatch(events.PlayerDeath{Entity: p.Defender, Position: hit.Position, Cause: "combat"})
		return
	}
	b.Dispatch(events.EntityDeath{Entity: p.Defender, Killer: p.Attacker, Position: hit.Position, Cause: "combat"})
}

// Tick runs one AI update and applies the resulting actions. Nothing raised
// while ticking escapes.
func (b *Bridge) Tick(dt float64) (applied int) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorf("tick aborted: %v", r)
		}
	}()
	if b.scripts != nil {
		b.scripts.ApplyPending(b.ai.Config().ScriptChanges())
	}
	b.ai.Update(dt)
	return b.ApplyActions()
}

// ApplyActions applies every queued AI action to the game. Actions decided
// while applying wait for the next call.
func (b *Bridge) ApplyActions() int {
	applied := 0
	for _, act := range b.ai.DrainActions() {
		if _, ok := b.ai.Assigned(act.Actor); !ok {
			continue
		}
		switch act.Kind {
		case system.ActionMove, system.ActionFlee:
			if b.move(act.Actor, act.Delta) {
				applied++
			}
		case system.ActionAttack:
			if !b.world.IsAlive(act.Target) {
				continue
			}
			pos, _ := b.game.Position(act.Target)
			b.Dispatch(events.CombatStart{Attacker: act.Actor, Defender: act.Target, Position: pos})
			applied++
		}
	}
	return applied
}

func (b *Bridge) move(e ecs.Entity, delta cp.Vector) bool {
	from, to, ok := b.game.Move(e, delta)
	if !ok {
		return false
	}
	b.Dispatch(events.EntityMove{Entity: e, OldPosition: from, NewPosition: to, IsPlayer: e == b.ai.Player()})
	return true
}

// MovePlayer moves the player through the game and reports the move.
func (b *Bridge) MovePlayer(delta cp.Vector) bool {
	if !b.ai.Player().Valid() {
		return false
	}
	return b.move(b.ai.Player(), delta)
}

// Observed returns the AI's last known position of e.
func (b *Bridge) Observed(e ecs.Entity) (cp.Vector, bool) {
	p, ok := ecs.Get(b.world, e, component.PositionComponent)
	return p.At, ok
}
