package system

import (
	"fmt"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/aicore/common"
	"github.com/milk9111/aicore/ecs"
	"github.com/milk9111/aicore/ecs/component"
	"github.com/milk9111/aicore/events"
	"github.com/sirupsen/logrus"
)

// Standing penalties applied when an entity or its faction is wronged.
const (
	AttackPenalty    = 10.0
	AllyHarmPenalty  = 5.0
	AllyDeathPenalty = 15.0
)

// ProcessNotification applies a game notification to AI state and lets every
// affected entity react. Cancelled notifications are ignored.
func (m *Manager) ProcessNotification(n events.Notification) {
	if n.Cancelled() {
		return
	}
	m.stats.Notifications++

	switch p := n.Payload.(type) {
	case events.EntitySpawn:
		m.observe(p.Entity, p.Position)
		if p.EntityType == PlayerFaction {
			m.player = p.Entity
		}
	case events.EntityMove:
		m.onMove(n, p)
	case events.CombatStart:
		m.onCombatStart(n, p)
	case events.CombatHit:
		m.onCombatHit(n, p)
	case events.EntityDeath:
		m.onDeath(n, p.Entity, p.Killer, p.Position)
	case events.PlayerDeath:
		m.onDeath(n, p.Entity, 0, p.Position)
		m.player = 0
	case events.TurnStart:
		m.turn = p.Turn
		if err := m.turnSystems.Update(m.world); err != nil {
			m.stats.Errors++
			m.log.WithField("turn", p.Turn).WithError(err).Error("turn systems failed")
		}
	case events.LevelGenerate:
		m.onLevel(p)
	}
}

func (m *Manager) observe(e ecs.Entity, pos cp.Vector) {
	if m.world.IsAlive(e) {
		_ = ecs.Add(m.world, e, component.PositionComponent, component.Position{At: pos})
	}
}

func (m *Manager) position(e ecs.Entity) (cp.Vector, bool) {
	p, ok := ecs.Get(m.world, e, component.PositionComponent)
	return p.At, ok
}

func (m *Manager) factionOf(e ecs.Entity) string {
	return factionOf(m.world, m.player, e)
}

func (m *Manager) registered(e ecs.Entity) bool {
	_, ok := m.assigned[e]
	return ok
}

func (m *Manager) react(e ecs.Entity, n *events.Notification) {
	if kind, ok := m.assigned[e]; ok {
		m.evaluate(e, kind, 0, n)
	}
}

// hostile reports whether e regards other as an enemy: a negative effective
// standing, or the configured faction relation when e keeps no reputation.
func (m *Manager) hostile(e, other ecs.Entity) bool {
	f := m.factionOf(other)
	if f != "" && f == m.factionOf(e) {
		return false
	}
	if rep, ok := ecs.Get(m.world, e, component.ReputationComponent); ok {
		return rep.Effective(uint64(other), f) < 0
	}
	faction, ok := ecs.Get(m.world, e, component.FactionComponent)
	return ok && f != "" && faction.Relation(f) < 0
}

func (m *Manager) remember(e ecs.Entity, entry component.MemoryEntry) {
	mem, ok := ecs.Get(m.world, e, component.MemoryComponent)
	if !ok {
		return
	}
	entry.Timestamp = m.tick
	_, evicted := mem.Add(entry, m.tick)
	if err := ecs.Add(m.world, e, component.MemoryComponent, mem); err != nil {
		return
	}
	m.emit(events.MemoryStored{
		Entity:     e,
		Topic:      entry.Topic,
		Content:    entry.Content,
		Importance: entry.Importance,
		Evicted:    evicted,
	})
}

// wrong lowers e's personal standing toward culprit and, when culprit belongs
// to another faction, e's standing toward that faction.
func (m *Manager) wrong(e, culprit ecs.Entity, penalty float64, kind string, witnessed bool) {
	if !culprit.Valid() || culprit == e || penalty <= 0 {
		return
	}
	rep, ok := ecs.Get(m.world, e, component.ReputationComponent)
	if !ok {
		return
	}
	rep.ModifyToward(uint64(culprit), -penalty)
	faction := m.factionOf(culprit)
	var old, next float64
	if faction != "" && faction != m.factionOf(e) {
		old, next = rep.Modify(faction, -penalty)
		rep.AddGrievance(component.Grievance{Kind: kind, Faction: faction, Witnessed: witnessed, Tick: m.tick})
	}
	if err := ecs.Add(m.world, e, component.ReputationComponent, rep); err != nil {
		return
	}
	if old != next {
		m.emit(events.ReputationChanged{Entity: e, Faction: faction, Old: old, New: next, Cause: kind})
	}
}

func (m *Manager) entitle(e ecs.Entity, title string) {
	rep, ok := ecs.Get(m.world, e, component.ReputationComponent)
	if ok && rep.AddTitle(title) {
		_ = ecs.Add(m.world, e, component.ReputationComponent, rep)
	}
}

func (m *Manager) forgetStanding(e, subject ecs.Entity) {
	rep, ok := ecs.Get(m.world, e, component.ReputationComponent)
	if _, known := rep.Individuals[uint64(subject)]; ok && known {
		rep.Forget(uint64(subject))
		_ = ecs.Add(m.world, e, component.ReputationComponent, rep)
	}
}

func (m *Manager) stir(e ecs.Entity, drive string, delta float64) {
	mot, ok := ecs.Get(m.world, e, component.MotivationComponent)
	if !ok || delta == 0 {
		return
	}
	mot.AdjustDrive(drive, delta)
	_ = ecs.Add(m.world, e, component.MotivationComponent, mot)
}

func (m *Manager) trait(e ecs.Entity, name string) float64 {
	p, ok := ecs.Get(m.world, e, component.PersonalityComponent)
	if !ok {
		return component.DefaultTraitValue
	}
	return p.Trait(name)
}

func (m *Manager) loyalty(e ecs.Entity) float64 {
	f, ok := ecs.Get(m.world, e, component.FactionComponent)
	if !ok {
		return 0
	}
	return f.Loyalty
}

// sight returns e's perception range from its archetype.
func (m *Manager) sight(e ecs.Entity) float64 {
	st, ok := ecs.Get(m.world, e, component.BehaviorStateComponent)
	if !ok {
		return 0
	}
	arch, _ := m.cfg.Current().ArchetypeOrDefault(st.ArchetypeID)
	return arch.SightRange
}

func (m *Manager) within(a, b ecs.Entity, dist float64) bool {
	pa, ok1 := m.position(a)
	pb, ok2 := m.position(b)
	return ok1 && ok2 && common.ChebyshevDistance(pa, pb) <= dist
}

// onMove updates perception of the mover for every registered observer.
func (m *Manager) onMove(n events.Notification, p events.EntityMove) {
	m.observe(p.Entity, p.NewPosition)
	if p.IsPlayer {
		m.player = p.Entity
	}
	for _, e := range m.Registered() {
		if e == p.Entity || !m.registered(e) {
			continue
		}
		st, ok := ecs.Get(m.world, e, component.BehaviorStateComponent)
		if !ok {
			continue
		}
		tracking := st.Target == uint64(p.Entity)
		if !tracking && (st.HasTarget() || !m.hostile(e, p.Entity)) {
			continue
		}
		pos, ok := m.position(e)
		if !ok {
			continue
		}
		visible := common.ChebyshevDistance(pos, p.NewPosition) <= m.sight(e)
		if !tracking && !visible {
			continue
		}

		if visible {
			st.SetTarget(uint64(p.Entity), p.NewPosition)
		}
		st.TargetVisible = visible
		if err := ecs.Add(m.world, e, component.BehaviorStateComponent, st); err != nil {
			continue
		}
		if !tracking && p.Entity == m.player {
			m.remember(e, component.MemoryEntry{
				Content:    fmt.Sprintf("spotted the player at %v,%v", p.NewPosition.X, p.NewPosition.Y),
				Topic:      component.TopicPlayer,
				Subject:    uint64(p.Entity),
				Importance: 0.3,
				Witnessed:  true,
				Location:   p.NewPosition,
				Located:    true,
			})
		}
		m.react(e, &n)
	}
}

func (m *Manager) onCombatStart(n events.Notification, p events.CombatStart) {
	atk, def := p.Attacker, p.Defender
	defFaction := m.factionOf(def)
	where, located := m.position(def)

	if m.registered(def) {
		m.remember(def, component.MemoryEntry{
			Content:    fmt.Sprintf("attacked by %v", atk),
			Topic:      component.TopicCombat,
			Subject:    uint64(atk),
			Importance: 0.8,
			Witnessed:  true,
			Location:   where,
			Located:    located,
		})
		m.wrong(def, atk, AttackPenalty, component.GrievanceAttacked, true)
		m.stir(def, component.DriveAnger, 0.2)
		m.stir(def, component.DriveFear, 0.2*m.trait(def, component.TraitCaution))
	}
	if m.registered(atk) {
		m.remember(atk, component.MemoryEntry{
			Content:    fmt.Sprintf("attacked %v", def),
			Topic:      component.TopicCombat,
			Subject:    uint64(def),
			Importance: 0.5,
			Witnessed:  true,
			Location:   where,
			Located:    located,
		})
	}
	m.react(def, &n)
	m.react(atk, &n)

	if defFaction == "" || defFaction == PlayerFaction {
		return
	}
	for _, e := range m.Registered() {
		if e == def || e == atk || !m.registered(e) || m.factionOf(e) != defFaction {
			continue
		}
		if m.opts.AllyRadius > 0 && !m.within(e, def, m.opts.AllyRadius) {
			continue
		}
		ally := events.New(events.AllyInCombat{Ally: e, Attacker: atk, Defender: def, Faction: defFaction}, false, notificationSource)
		if m.bus != nil {
			ally = m.bus.Emit(ally)
		}
		m.remember(e, component.MemoryEntry{
			Content:    fmt.Sprintf("ally %v attacked by %v", def, atk),
			Topic:      component.TopicAlly,
			Subject:    uint64(atk),
			Importance: 0.5,
			Location:   where,
			Located:    located,
		})
		m.wrong(e, atk, AllyHarmPenalty*m.loyalty(e), component.GrievanceAllyHarmed, false)
		m.react(e, &ally)
	}
}

func (m *Manager) onCombatHit(n events.Notification, p events.CombatHit) {
	if m.registered(p.Defender) {
		where, located := m.position(p.Defender)
		ratio := 0.0
		if p.OriginalHP > 0 {
			ratio = common.Clamp(float64(p.Damage)/float64(p.OriginalHP), 0, 1)
		}
		m.remember(p.Defender, component.MemoryEntry{
			Content:    fmt.Sprintf("hit by %v for %d", p.Attacker, p.Damage),
			Topic:      component.TopicCombat,
			Subject:    uint64(p.Attacker),
			Importance: 0.4 + 0.6*ratio,
			Witnessed:  true,
			Location:   where,
			Located:    located,
		})
		m.stir(p.Defender, component.DrivePain, ratio)
		m.stir(p.Defender, component.DriveFear, ratio*m.trait(p.Defender, component.TraitCaution))
	}
	m.react(p.Defender, &n)
	m.react(p.Attacker, &n)
}

func (m *Manager) onDeath(n events.Notification, dead, killer ecs.Entity, at cp.Vector) {
	m.observe(dead, at)
	deadFaction := m.factionOf(dead)
	killerFaction := m.factionOf(killer)

	if m.registered(killer) && killer != dead {
		m.entitle(killer, component.TitleSlayer)
	}
	for _, e := range m.Registered() {
		if e == dead || !m.registered(e) {
			continue
		}
		m.forgetStanding(e, dead)
		witnessed := m.within(e, dead, m.sight(e))
		if deadFaction != "" && m.factionOf(e) == deadFaction {
			m.remember(e, component.MemoryEntry{
				Content:    fmt.Sprintf("ally %v died", dead),
				Topic:      component.TopicDeath,
				Subject:    uint64(dead),
				Importance: 0.7,
				Witnessed:  witnessed,
				Location:   at,
				Located:    true,
			})
			if killerFaction != deadFaction {
				m.wrong(e, killer, AllyDeathPenalty*m.loyalty(e), component.GrievanceAllyKilled, witnessed)
			}
		}
		st, ok := ecs.Get(m.world, e, component.BehaviorStateComponent)
		if ok && st.Target == uint64(dead) {
			m.react(e, &n)
		}
	}
	m.log.WithFields(logrus.Fields{"entity": dead, "killer": killer}).Debug("death processed")
}

// onLevel stores room centres as patrol points and routes patrolling
// archetypes that have none yet.
func (m *Manager) onLevel(p events.LevelGenerate) {
	m.rooms = m.rooms[:0]
	for _, r := range p.Rooms {
		m.rooms = append(m.rooms, r.Center())
	}
	cfg := m.cfg.Current()
	for _, e := range m.Registered() {
		st, ok := ecs.Get(m.world, e, component.BehaviorStateComponent)
		if !ok || len(st.Waypoints) > 0 {
			continue
		}
		if arch, _ := cfg.ArchetypeOrDefault(st.ArchetypeID); !arch.Patrol {
			continue
		}
		st.Waypoints = m.patrolRoute(e)
		st.Waypoint = 0
		_ = ecs.Add(m.world, e, component.BehaviorStateComponent, st)
	}
}
