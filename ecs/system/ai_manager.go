package system

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/aicore/common"
	"github.com/milk9111/aicore/ecs"
	"github.com/milk9111/aicore/ecs/component"
	"github.com/milk9111/aicore/events"
	"github.com/milk9111/aicore/prefabs"
	"github.com/sirupsen/logrus"
)

// notificationSource tags notifications emitted by the manager.
const notificationSource = "ai"

type ManagerOptions struct {
	// TickBudget caps the periodic pass of Update. Zero disables the cap.
	TickBudget time.Duration
	// BackgroundCadence is how many ticks pass between periodic evaluations
	// of basic-assigned entities.
	BackgroundCadence int
	ReputationDecay   float64
	RecencyHalfLife   float64
	// AllyRadius limits ALLY_IN_COMBAT to members within this distance of the
	// defender. Zero reaches the whole faction.
	AllyRadius float64
	Seed       int64
	Clock      func() time.Time

	Basic    BasicOptions
	Advanced AdvancedOptions
}

func DefaultManagerOptions() ManagerOptions {
	return ManagerOptions{
		TickBudget:        4 * time.Millisecond,
		BackgroundCadence: 4,
		ReputationDecay:   1,
		RecencyHalfLife:   component.DefaultRecencyHalfLife,
		Seed:              1,
		Basic:             DefaultBasicOptions(),
		Advanced:          DefaultAdvancedOptions(),
	}
}

type Stats struct {
	Ticks         int64
	Registered    int
	Evaluations   int64
	Deferred      int64
	Throttled     int64
	Notifications int64
	StateChanges  int64
	Errors        int64
	LastTick      time.Duration
}

// Manager owns AI registration and runs the behavior systems, both on a
// periodic tick and in reaction to notifications.
type Manager struct {
	world *ecs.World
	bus   *events.Bus
	cfg   *prefabs.Manager
	log   logrus.FieldLogger
	opts  ManagerOptions

	systems  map[SystemKind]BehaviorSystem
	assigned map[ecs.Entity]SystemKind
	player   ecs.Entity

	tick   int64
	turn   int
	cursor int
	rooms  []cp.Vector

	turnSystems *ecs.Scheduler
	actions     ActionQueue
	rng         *common.RNG
	stats       Stats
}

func NewManager(world *ecs.World, bus *events.Bus, cfg *prefabs.Manager, log logrus.FieldLogger, opts ManagerOptions) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.BackgroundCadence < 1 {
		opts.BackgroundCadence = 1
	}
	if opts.RecencyHalfLife <= 0 {
		opts.RecencyHalfLife = component.DefaultRecencyHalfLife
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Advanced.RecallWeight == 0 && opts.Advanced.AttackRange == 0 && opts.Advanced.Jitter == 0 {
		opts.Advanced = DefaultAdvancedOptions()
	}

	m := &Manager{
		world:    world,
		bus:      bus,
		cfg:      cfg,
		log:      log.WithField("component", "ai_manager"),
		opts:     opts,
		assigned: make(map[ecs.Entity]SystemKind),
		rng:      common.NewRNG(opts.Seed),
	}
	m.systems = map[SystemKind]BehaviorSystem{
		SystemBasic:    NewBasicSystem(opts.Basic),
		SystemAdvanced: NewAdvancedSystem(opts.Advanced),
	}
	now := func() int64 { return m.tick }
	m.turnSystems = ecs.NewScheduler(
		&ReputationDecaySystem{Bound: opts.ReputationDecay, HalfLife: opts.RecencyHalfLife, Now: now},
		&MemoryFadeSystem{Now: now},
	)
	return m
}

// SetSystem replaces the behavior system used for kind.
func (m *Manager) SetSystem(kind SystemKind, s BehaviorSystem) {
	if s != nil {
		m.systems[kind] = s
	}
}

func (m *Manager) SetPlayer(e ecs.Entity) { m.player = e }
func (m *Manager) Player() ecs.Entity     { return m.player }
func (m *Manager) Tick() int64            { return m.tick }
func (m *Manager) Turn() int              { return m.turn }
func (m *Manager) World() *ecs.World      { return m.world }
func (m *Manager) Config() *prefabs.Manager {
	return m.cfg
}

func (m *Manager) Stats() Stats {
	s := m.stats
	s.Registered = len(m.assigned)
	return s
}

// Assigned reports which system e is registered with.
func (m *Manager) Assigned(e ecs.Entity) (SystemKind, bool) {
	kind, ok := m.assigned[e]
	return kind, ok
}

// Registered returns every registered entity, ascending.
func (m *Manager) Registered() []ecs.Entity {
	return slices.Sorted(maps.Keys(m.assigned))
}

// RegisterEntity attaches the AI components described by archetypeID and
// assigns e to kind. Re-registering replaces the assignment and archetype
// but keeps existing memories and standings.
func (m *Manager) RegisterEntity(e ecs.Entity, kind SystemKind, archetypeID string) error {
	if !m.world.IsAlive(e) {
		return fmt.Errorf("ai: register %v: %w", e, component.ErrEntityNotAlive)
	}
	if _, ok := m.systems[kind]; !ok {
		return fmt.Errorf("ai: register %v: unknown system %v", e, kind)
	}
	arch := m.cfg.Archetype(archetypeID)

	faction := component.NewFaction(arch.Faction, arch.Rank, arch.Loyalty)
	if spec, ok := m.cfg.Faction(arch.Faction); ok {
		faction.Name = spec.Name
		faction.Relations = maps.Clone(spec.Relations)
		faction.Territory = slices.Clone(spec.Territory)
	}

	memory, ok := ecs.Get(m.world, e, component.MemoryComponent)
	if !ok {
		memory = component.NewMemory(arch.MemoryCapacity, arch.ImportanceThreshold)
		memory.HalfLife = m.opts.RecencyHalfLife
	}
	reputation, ok := ecs.Get(m.world, e, component.ReputationComponent)
	if !ok {
		reputation = component.NewReputation()
		for _, other := range slices.Sorted(maps.Keys(faction.Relations)) {
			reputation.Set(other, faction.Relations[other]*component.MaxStanding)
		}
	}

	state := component.BehaviorState{Current: component.StateIdle, ArchetypeID: arch.ID}
	if arch.Patrol {
		state.Waypoints = m.patrolRoute(e)
	}

	var errs []error
	if arch.Faction != "" {
		errs = append(errs, ecs.Add(m.world, e, component.FactionComponent, faction))
	}
	errs = append(errs,
		ecs.Add(m.world, e, component.PersonalityComponent, component.NewPersonality(arch.Personality, arch.Preferences)),
		ecs.Add(m.world, e, component.MemoryComponent, memory),
		ecs.Add(m.world, e, component.MotivationComponent, component.NewMotivation(arch.Goals, arch.Drives)),
		ecs.Add(m.world, e, component.ReputationComponent, reputation),
		ecs.Add(m.world, e, component.BehaviorStateComponent, state),
	)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("ai: register %v: %w", e, err)
	}

	if prev, ok := m.assigned[e]; ok && prev != kind {
		m.log.WithFields(logrus.Fields{"entity": e, "from": prev, "to": kind}).Info("entity reassigned")
	}
	m.assigned[e] = kind
	m.log.WithFields(logrus.Fields{"entity": e, "system": kind, "archetype": arch.ID}).Debug("entity registered")
	return nil
}

// UnregisterEntity detaches every AI component from e. Its Position stays
// with the game's entity.
func (m *Manager) UnregisterEntity(e ecs.Entity) bool {
	if _, ok := m.assigned[e]; !ok {
		return false
	}
	delete(m.assigned, e)
	m.actions.Remove(e)
	ecs.Remove(m.world, e, component.FactionComponent)
	ecs.Remove(m.world, e, component.PersonalityComponent)
	ecs.Remove(m.world, e, component.MemoryComponent)
	ecs.Remove(m.world, e, component.MotivationComponent)
	ecs.Remove(m.world, e, component.ReputationComponent)
	ecs.Remove(m.world, e, component.BehaviorStateComponent)
	m.log.WithField("entity", e).Debug("entity unregistered")
	return true
}

// Update runs one periodic pass. Config changes staged since the previous
// tick become visible before any entity thinks.
func (m *Manager) Update(dt float64) {
	start := m.opts.Clock()
	defer func() { m.stats.LastTick = m.opts.Clock().Sub(start) }()

	m.cfg.ApplyPending()
	m.tick++
	m.stats.Ticks++

	ents := m.Registered()
	n := len(ents)
	if n == 0 {
		return
	}
	if m.cursor >= n {
		m.cursor = 0
	}
	cadence := int64(m.opts.BackgroundCadence)

	processed := 0
	for i := 0; i < n; i++ {
		e := ents[(m.cursor+i)%n]
		kind, ok := m.assigned[e]
		if !ok {
			// unregistered earlier in this pass
			continue
		}
		if m.opts.TickBudget > 0 && processed > 0 && m.opts.Clock().Sub(start) >= m.opts.TickBudget {
			m.stats.Deferred += int64(n - i)
			m.cursor = (m.cursor + i) % n
			return
		}
		step := dt
		if kind == SystemBasic && cadence > 1 {
			if (m.tick+int64(uint32(e)))%cadence != 0 {
				m.stats.Throttled++
				continue
			}
			step = dt * float64(cadence)
		}
		m.evaluate(e, kind, step, nil)
		processed++
	}
	m.cursor = 0
}

// DrainActions returns the actions decided since the last drain.
func (m *Manager) DrainActions() []Action {
	return m.actions.Drain()
}

func (m *Manager) context(dt float64, n *events.Notification) *AIContext {
	return &AIContext{
		World:        m.world,
		Config:       m.cfg.Current(),
		Notification: n,
		Tick:         m.tick,
		DeltaTime:    dt,
		Player:       m.player,
		RNG:          m.rng,
		Log:          m.log,
	}
}

// evaluate runs e's system and commits the result. A panicking system costs
// only this entity's decision.
func (m *Manager) evaluate(e ecs.Entity, kind SystemKind, dt float64, n *events.Notification) {
	defer func() {
		if r := recover(); r != nil {
			m.stats.Errors++
			m.log.WithFields(logrus.Fields{"entity": e, "system": kind}).Errorf("behavior system panic: %v", r)
		}
	}()
	sys, ok := m.systems[kind]
	if !ok {
		return
	}
	act := sys.Process(e, m.context(dt, n))
	m.stats.Evaluations++
	m.commit(e, act)
}

func (m *Manager) commit(e ecs.Entity, act Action) {
	if _, ok := m.assigned[e]; !ok {
		return
	}
	if act.Next != nil {
		prev, ok := ecs.Get(m.world, e, component.BehaviorStateComponent)
		if !ok {
			return
		}
		next := *act.Next
		if act.Kind != ActionNone {
			next.LastAction = act.Label
		}
		if err := ecs.Add(m.world, e, component.BehaviorStateComponent, next); err != nil {
			m.log.WithField("entity", e).WithError(err).Warn("behavior state not committed")
			return
		}
		if prev.Current != next.Current {
			m.stats.StateChanges++
			m.emit(events.BehaviorStateChanged{Entity: e, From: prev.Current, To: next.Current, Reason: act.Reason})
		}
	}
	if act.Kind != ActionNone {
		act.Next = nil
		m.actions.Push(act)
	}
}

func (m *Manager) emit(p events.Payload) {
	if m.bus != nil {
		m.bus.Emit(events.New(p, false, notificationSource))
	}
}

// patrolRoute picks up to four rooms from the current level, rotated by the
// entity's slot so neighbours spread out.
func (m *Manager) patrolRoute(e ecs.Entity) []cp.Vector {
	if len(m.rooms) == 0 {
		return nil
	}
	n := min(4, len(m.rooms))
	offset := int(uint32(e)) % len(m.rooms)
	route := make([]cp.Vector, 0, n)
	for i := 0; i < n; i++ {
		route = append(route, m.rooms[(offset+i)%len(m.rooms)])
	}
	return route
}
