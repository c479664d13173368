package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/aicore/common"
	"github.com/milk9111/aicore/ecs"
	"github.com/milk9111/aicore/ecs/component"
	"github.com/milk9111/aicore/events"
	"github.com/milk9111/aicore/prefabs"
	"github.com/sirupsen/logrus"
)

// PlayerFaction is the faction id attributed to the player entity.
const PlayerFaction = "player"

// ErrComponentMissing is logged when an entity lacks a component its system
// requires; the entity then takes no action.
var ErrComponentMissing = errors.New("ai: required component missing")

// BehaviorSystem decides one entity's next action. Implementations read the
// world through ctx and must not write components.
type BehaviorSystem interface {
	Name() string
	Process(e ecs.Entity, ctx *AIContext) Action
}

type SystemKind uint8

const (
	SystemBasic SystemKind = iota
	SystemAdvanced
)

func (k SystemKind) String() string {
	if k == SystemAdvanced {
		return prefabs.SystemAdvanced
	}
	return prefabs.SystemBasic
}

func ParseSystemKind(name string) (SystemKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", prefabs.SystemBasic:
		return SystemBasic, nil
	case prefabs.SystemAdvanced:
		return SystemAdvanced, nil
	}
	return SystemBasic, fmt.Errorf("ai: unknown behavior system %q", name)
}

// AIContext is what a behavior system sees for one evaluation.
// Notification is nil for periodic evaluations.
type AIContext struct {
	World        *ecs.World
	Config       *prefabs.Config
	Notification *events.Notification
	Tick         int64
	DeltaTime    float64
	Player       ecs.Entity
	RNG          *common.RNG
	Log          logrus.FieldLogger
}

// Position returns the last observed position of e.
func (c *AIContext) Position(e ecs.Entity) (cp.Vector, bool) {
	p, ok := ecs.Get(c.World, e, component.PositionComponent)
	return p.At, ok
}

// FactionOf returns e's faction id, PlayerFaction for the player, or "".
func (c *AIContext) FactionOf(e ecs.Entity) string {
	return factionOf(c.World, c.Player, e)
}

func factionOf(w *ecs.World, player, e ecs.Entity) string {
	if !e.Valid() {
		return ""
	}
	if f, ok := ecs.Get(w, e, component.FactionComponent); ok {
		return f.FactionID
	}
	if e == player {
		return PlayerFaction
	}
	return ""
}

func (c *AIContext) logger(e ecs.Entity) logrus.FieldLogger {
	log := c.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return log.WithField("entity", e)
}

// counterpart returns the other party of a two-sided notification involving e.
func counterpart(e ecs.Entity, n *events.Notification) (ecs.Entity, bool) {
	if n == nil {
		return 0, false
	}
	switch p := n.Payload.(type) {
	case events.CombatStart:
		if p.Defender == e {
			return p.Attacker, true
		}
		if p.Attacker == e {
			return p.Defender, true
		}
	case events.CombatHit:
		if p.Defender == e {
			return p.Attacker, true
		}
		if p.Attacker == e {
			return p.Defender, true
		}
	case events.AllyInCombat:
		if p.Ally == e {
			return p.Attacker, true
		}
	}
	return 0, false
}

// deceased returns the entity a death notification is about.
func deceased(n *events.Notification) (ecs.Entity, bool) {
	if n == nil {
		return 0, false
	}
	switch p := n.Payload.(type) {
	case events.EntityDeath:
		return p.Entity, true
	case events.PlayerDeath:
		return p.Entity, true
	}
	return 0, false
}
