package system

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/aicore/common"
	"github.com/milk9111/aicore/ecs"
	"github.com/milk9111/aicore/ecs/component"
	"github.com/milk9111/aicore/events"
	"github.com/milk9111/aicore/logger"
	"github.com/milk9111/aicore/prefabs"
)

func defaults(t *testing.T) *prefabs.Config {
	t.Helper()
	cfg, err := prefabs.LoadDefaults()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	return cfg
}

// spawnThinker attaches the components RegisterEntity would for archetypeID.
func spawnThinker(t *testing.T, w *ecs.World, cfg *prefabs.Config, archetypeID string, at cp.Vector) ecs.Entity {
	t.Helper()
	arch, ok := cfg.Archetype(archetypeID)
	if !ok {
		t.Fatalf("unknown archetype %q", archetypeID)
	}
	e := w.CreateEntity()
	fs, _ := cfg.Faction(arch.Faction)
	faction := component.NewFaction(arch.Faction, arch.Rank, arch.Loyalty)
	faction.Relations = fs.Relations
	rep := component.NewReputation()
	for other, rel := range fs.Relations {
		rep.Set(other, rel*100)
	}
	must(t, ecs.Add(w, e, component.FactionComponent, faction))
	must(t, ecs.Add(w, e, component.PersonalityComponent, component.NewPersonality(arch.Personality, arch.Preferences)))
	must(t, ecs.Add(w, e, component.MotivationComponent, component.NewMotivation(arch.Goals, arch.Drives)))
	must(t, ecs.Add(w, e, component.MemoryComponent, component.NewMemory(arch.MemoryCapacity, arch.ImportanceThreshold)))
	must(t, ecs.Add(w, e, component.ReputationComponent, rep))
	must(t, ecs.Add(w, e, component.BehaviorStateComponent, component.BehaviorState{ArchetypeID: arch.ID}))
	must(t, ecs.Add(w, e, component.PositionComponent, component.Position{At: at}))
	return e
}

func setTarget(t *testing.T, w *ecs.World, e, target ecs.Entity) {
	t.Helper()
	st, _ := ecs.Get(w, e, component.BehaviorStateComponent)
	pos, _ := ecs.Get(w, target, component.PositionComponent)
	st.SetTarget(uint64(target), pos.At)
	st.TargetVisible = true
	must(t, ecs.Add(w, e, component.BehaviorStateComponent, st))
}

func setDrive(t *testing.T, w *ecs.World, e ecs.Entity, drive string, v float64) {
	t.Helper()
	mot, _ := ecs.Get(w, e, component.MotivationComponent)
	mot.SetDrive(drive, v)
	must(t, ecs.Add(w, e, component.MotivationComponent, mot))
}

func advancedCtx(w *ecs.World, cfg *prefabs.Config, n *events.Notification) *AIContext {
	return &AIContext{World: w, Config: cfg, Notification: n, Tick: 1, DeltaTime: 1, RNG: common.NewRNG(7), Log: logger.Discard()}
}

func TestAdvancedSystem_WarriorAttacksAdjacentEnemy(t *testing.T) {
	cfg := defaults(t)
	w := ecs.NewWorld()
	orc := spawnThinker(t, w, cfg, "orc_warrior", cp.Vector{})
	guard := spawnThinker(t, w, cfg, "town_guard", cp.Vector{X: 1})
	setTarget(t, w, orc, guard)

	act := NewAdvancedSystem(DefaultAdvancedOptions()).Process(orc, advancedCtx(w, cfg, nil))
	if act.Kind != ActionAttack || act.Target != guard || act.Label != "attack" {
		t.Fatalf("expected attack on %v, got %+v", guard, act)
	}
	if act.Next == nil || act.Next.Current != component.StateCombat {
		t.Fatalf("expected combat state, got %+v", act.Next)
	}
	// 1.2*0.9 + 0.3*0.8 + -0.8*-0.9
	if want := 2.04; act.Utility < want-1e-9 || act.Utility > want+1e-9 {
		t.Fatalf("utility = %v, want %v", act.Utility, want)
	}
}

func TestAdvancedSystem_PersonalGrudgeRaisesAttackUtility(t *testing.T) {
	cfg := defaults(t)
	w := ecs.NewWorld()
	orc := spawnThinker(t, w, cfg, "orc_warrior", cp.Vector{})
	guard := spawnThinker(t, w, cfg, "town_guard", cp.Vector{X: 1})
	setTarget(t, w, orc, guard)
	rep, _ := ecs.Get(w, orc, component.ReputationComponent)
	rep.ModifyToward(uint64(guard), -10)
	must(t, ecs.Add(w, orc, component.ReputationComponent, rep))

	act := NewAdvancedSystem(DefaultAdvancedOptions()).Process(orc, advancedCtx(w, cfg, nil))
	if act.Kind != ActionAttack || act.Target != guard {
		t.Fatalf("expected attack on %v, got %+v", guard, act)
	}
	// 1.2*0.9 + 0.3*0.8 + -0.8*(-90-10)/100
	if want := 2.12; act.Utility < want-1e-9 || act.Utility > want+1e-9 {
		t.Fatalf("utility = %v, want %v", act.Utility, want)
	}
}

func TestAdvancedSystem_WarriorClosesDistance(t *testing.T) {
	cfg := defaults(t)
	w := ecs.NewWorld()
	orc := spawnThinker(t, w, cfg, "orc_warrior", cp.Vector{})
	guard := spawnThinker(t, w, cfg, "town_guard", cp.Vector{X: 4, Y: -3})
	setTarget(t, w, orc, guard)

	act := NewAdvancedSystem(DefaultAdvancedOptions()).Process(orc, advancedCtx(w, cfg, nil))
	if act.Kind != ActionMove || act.Delta != (cp.Vector{X: 1, Y: -1}) || act.Target != guard {
		t.Fatalf("expected a step toward the target, got %+v", act)
	}
}

func TestAdvancedSystem_NoTargetPatrols(t *testing.T) {
	cfg := defaults(t)
	w := ecs.NewWorld()
	orc := spawnThinker(t, w, cfg, "orc_warrior", cp.Vector{})

	act := NewAdvancedSystem(DefaultAdvancedOptions()).Process(orc, advancedCtx(w, cfg, nil))
	if act.Label != "patrol" || act.Next.Current != component.StatePatrol {
		t.Fatalf("expected patrol, got %+v", act)
	}
}

func TestAdvancedSystem_ThreatenedSkulkerFlees(t *testing.T) {
	cfg := defaults(t)
	w := ecs.NewWorld()
	gob := spawnThinker(t, w, cfg, "goblin_skulker", cp.Vector{X: 2, Y: 2})
	guard := spawnThinker(t, w, cfg, "town_guard", cp.Vector{X: 3, Y: 2})
	setTarget(t, w, gob, guard)
	setDrive(t, w, gob, component.DriveFear, 0.7)

	act := NewAdvancedSystem(DefaultAdvancedOptions()).Process(gob, advancedCtx(w, cfg, nil))
	if act.Kind != ActionFlee || act.Delta != (cp.Vector{X: -1}) {
		t.Fatalf("expected flee away from the guard, got %+v", act)
	}
	if act.Next.Current != component.StateFlee || act.Reason != "flee" {
		t.Fatalf("unexpected state %v reason %q", act.Next.Current, act.Reason)
	}
}

func TestCollect_InverterBlocksWoundedAmbush(t *testing.T) {
	cfg := defaults(t)
	tree, ok := cfg.BehaviorTree("skulker")
	if !ok {
		t.Fatal("skulker tree missing")
	}
	cases := []struct {
		name string
		pain float64
		want []string
	}{
		{"healthy", 0, []string{"attack", "wander", "idle"}},
		{"wounded", 0.6, []string{"wander", "idle"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			st := component.BehaviorState{Target: 99}
			env := &treeEnv{
				state:      &st,
				motivation: component.NewMotivation(nil, map[string]float64{component.DrivePain: c.pain}),
				ctx:        &AIContext{World: ecs.NewWorld()},
			}
			order := 0
			leaves, ok := collect(&tree.Root, env, &order)
			if !ok {
				t.Fatal("root selector should succeed")
			}
			var got []string
			for _, l := range leaves {
				got = append(got, l.node.Action)
			}
			if diff := cmp.Diff(c.want, got); diff != "" {
				t.Fatalf("eligible actions (-want +got):\n%s", diff)
			}
		})
	}
}

const tieTrees = `
behavior_trees:
  tie:
    root:
      type: selector
      children:
        - {type: action, action: rest, base: 1}
        - {type: action, action: idle, base: 1}
  duel:
    root:
      type: action
      action: attack
      base: 1
`

const tieArchetypes = `
archetypes:
  restful:
    faction: orcs
    system: advanced
    behavior_tree: tie
  duelist:
    faction: orcs
    system: advanced
    behavior_tree: duel
`

const tieFactions = `
factions:
  orcs: {}
`

func tieConfig(t *testing.T) *prefabs.Config {
	t.Helper()
	cfg, err := prefabs.Build("test", map[string][]byte{
		prefabs.ArchetypesFile:    []byte(tieArchetypes),
		prefabs.FactionsFile:      []byte(tieFactions),
		prefabs.BehaviorTreesFile: []byte(tieTrees),
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return cfg
}

func TestAdvancedSystem_TieBreaksByTreeOrder(t *testing.T) {
	cfg := tieConfig(t)
	w := ecs.NewWorld()
	e := spawnThinker(t, w, cfg, "restful", cp.Vector{})

	act := NewAdvancedSystem(DefaultAdvancedOptions()).Process(e, advancedCtx(w, cfg, nil))
	if act.Label != "rest" {
		t.Fatalf("equal utilities should pick the first leaf, got %q", act.Label)
	}
}

func TestAdvancedSystem_TieBreaksByLowestTarget(t *testing.T) {
	cfg := tieConfig(t)
	w := ecs.NewWorld()
	e := spawnThinker(t, w, cfg, "duelist", cp.Vector{})
	low := spawnThinker(t, w, cfg, "duelist", cp.Vector{X: 1})
	high := spawnThinker(t, w, cfg, "duelist", cp.Vector{Y: 1})
	setTarget(t, w, e, high)

	n := notify(events.CombatHit{Attacker: low, Defender: e, Damage: 1, OriginalHP: 10})
	act := NewAdvancedSystem(DefaultAdvancedOptions()).Process(e, advancedCtx(w, cfg, n))
	if act.Target != low {
		t.Fatalf("expected lowest target %v, got %v", low, act.Target)
	}
	if act.Next.Target != uint64(low) {
		t.Fatalf("state should track the chosen target, got %v", act.Next.Target)
	}
}

func TestAdvancedSystem_DeterministicWithSeededJitter(t *testing.T) {
	run := func() []Action {
		cfg := defaults(t)
		w := ecs.NewWorld()
		orc := spawnThinker(t, w, cfg, "orc_warrior", cp.Vector{})
		gob := spawnThinker(t, w, cfg, "goblin_skulker", cp.Vector{X: 3})
		guard := spawnThinker(t, w, cfg, "town_guard", cp.Vector{X: 2})
		setTarget(t, w, orc, guard)

		sys := NewAdvancedSystem(AdvancedOptions{RecallWeight: 1, Jitter: 0.5})
		ctx := advancedCtx(w, cfg, nil)
		var out []Action
		for i := 0; i < 5; i++ {
			for _, e := range []ecs.Entity{orc, gob} {
				act := sys.Process(e, ctx)
				if act.Next != nil {
					must(t, ecs.Add(w, e, component.BehaviorStateComponent, *act.Next))
				}
				out = append(out, act)
			}
			ctx.Tick++
		}
		return out
	}
	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Fatalf("identical inputs diverged (-first +second):\n%s", diff)
	}
}

func TestAdvancedSystem_MissingComponentIsNoOp(t *testing.T) {
	cfg := defaults(t)
	w := ecs.NewWorld()
	e := spawnThinker(t, w, cfg, "orc_warrior", cp.Vector{})
	ecs.Remove(w, e, component.MemoryComponent)

	act := NewAdvancedSystem(DefaultAdvancedOptions()).Process(e, advancedCtx(w, cfg, nil))
	if !act.IsNoOp() {
		t.Fatalf("expected no-op, got %+v", act)
	}
}

func TestRegistriesCoverConfigVocabulary(t *testing.T) {
	for _, name := range prefabs.KnownConditions {
		if _, ok := conditionRegistry[name]; !ok {
			t.Errorf("condition %q has no implementation", name)
		}
	}
	for _, name := range prefabs.KnownActions {
		if _, ok := actionBindings[name]; !ok {
			t.Errorf("action %q has no binding", name)
		}
	}
	if len(conditionRegistry) != len(prefabs.KnownConditions) {
		t.Errorf("registry has conditions the config cannot name")
	}
	if !slices.Contains(prefabs.KnownActions, "idle") {
		t.Errorf("idle must stay a known action")
	}
}
