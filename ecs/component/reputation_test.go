package component

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestReputation_ClampUnderArbitraryDeltas(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := NewReputation()
	for i := 0; i < 1000; i++ {
		r.Modify("orcs", (rng.Float64()-0.5)*400)
		if s := r.Standing("orcs"); s < MinStanding || s > MaxStanding {
			t.Fatalf("standing %v out of range after %d steps", s, i)
		}
	}
}

func TestReputation_ModifyReportsClampedValues(t *testing.T) {
	r := NewReputation()
	r.Set("humans", 95)
	old, next := r.Modify("humans", 20)
	if old != 95 || next != MaxStanding {
		t.Fatalf("Modify returned (%v, %v), want (95, 100)", old, next)
	}
}

func TestReputation_DecayNeverCrossesNeutral(t *testing.T) {
	cases := []struct {
		name  string
		start float64
		step  float64
		want  float64
	}{
		{"negative_partial", -90, 2, -88},
		{"positive_partial", 40, 5, 35},
		{"overshoot_negative", -1.5, 2, 0},
		{"overshoot_positive", 0.5, 2, 0},
		{"neutral", 0, 2, 0},
		{"zero_step", -10, 0, -10},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := NewReputation()
			r.Set("f", c.start)
			delta := r.DecayToward("f", c.step)
			if got := r.Standing("f"); got != c.want {
				t.Fatalf("standing = %v, want %v", got, c.want)
			}
			if math.Abs(delta) > c.step {
				t.Fatalf("|delta| = %v exceeds step %v", math.Abs(delta), c.step)
			}
		})
	}
}

func TestReputation_NaNWritesDropped(t *testing.T) {
	r := NewReputation()
	r.Set("orcs", -40)
	if old, next := r.Modify("orcs", math.NaN()); old != -40 || next != -40 {
		t.Fatalf("Modify(NaN) = (%v, %v), want unchanged", old, next)
	}
	r.Set("humans", math.NaN())
	if got := r.Standing("humans"); got != 0 {
		t.Fatalf("Set(NaN) stored %v", got)
	}
	r.ModifyToward(7, math.NaN())
	if _, ok := r.Individuals[7]; ok {
		t.Fatal("NaN personal standing stored")
	}
	if r.DecayToward("orcs", math.NaN()) != 0 {
		t.Fatal("NaN step should not move the standing")
	}
	r.DecayToward("orcs", 2)
	if got := r.Standing("orcs"); got != -38 {
		t.Fatalf("standing after decay = %v, want -38", got)
	}
	if got := clampUnit(math.NaN()); got != 0 {
		t.Fatalf("clampUnit(NaN) = %v", got)
	}
}

func TestReputation_PersonalStanding(t *testing.T) {
	r := NewReputation()
	r.Set("humans", -60)
	r.ModifyToward(4, -30)
	if _, next := r.ModifyToward(4, -200); next != MinStanding {
		t.Fatalf("personal standing = %v, want clamped %v", next, MinStanding)
	}
	r.ModifyToward(9, 70)

	cases := []struct {
		name    string
		subject uint64
		faction string
		want    float64
	}{
		{"grudge_and_faction_clamp", 4, "humans", MinStanding},
		{"friend_offsets_faction", 9, "humans", 10},
		{"stranger_is_faction", 5, "humans", -60},
		{"unaffiliated_friend", 9, "", 70},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := r.Effective(c.subject, c.faction); got != c.want {
				t.Fatalf("Effective(%d, %q) = %v, want %v", c.subject, c.faction, got, c.want)
			}
		})
	}

	if diff := cmp.Diff([]uint64{4, 9}, r.Subjects()); diff != "" {
		t.Fatalf("subjects (-want +got):\n%s", diff)
	}
	if moved := r.DecayTowardSubject(9, 80); moved != -70 {
		t.Fatalf("decay moved %v, want -70", moved)
	}
	if diff := cmp.Diff([]uint64{4}, r.Subjects()); diff != "" {
		t.Fatalf("neutral standing should be dropped (-want +got):\n%s", diff)
	}
	r.Forget(4)
	if len(r.Subjects()) != 0 {
		t.Fatalf("forget left %v", r.Subjects())
	}
}

func TestReputation_Titles(t *testing.T) {
	r := NewReputation()
	if !r.AddTitle(TitleSlayer) || r.AddTitle(TitleSlayer) || r.AddTitle("") {
		t.Fatal("a title is granted once and must be named")
	}
	if !r.HasTitle(TitleSlayer) || len(r.Titles) != 1 {
		t.Fatalf("titles = %v", r.Titles)
	}
}

func TestReputation_GrievanceLogBounded(t *testing.T) {
	r := NewReputation()
	r.MaxGrievances = 3
	for i := 0; i < 5; i++ {
		r.AddGrievance(Grievance{Kind: GrievanceAttacked, Faction: "orcs", Tick: int64(i)})
	}
	var ticks []int64
	for _, g := range r.Grievances {
		ticks = append(ticks, g.Tick)
	}
	if diff := cmp.Diff([]int64{2, 3, 4}, ticks); diff != "" {
		t.Fatalf("grievance log (-want +got):\n%s", diff)
	}
	last, ok := r.LastGrievance("orcs")
	if !ok || last.Tick != 4 {
		t.Fatalf("LastGrievance = %+v ok=%v", last, ok)
	}
	if _, ok := r.LastGrievance("humans"); ok {
		t.Fatalf("no grievance expected against humans")
	}
}

func TestTraitsAndDrivesClamp(t *testing.T) {
	p := NewPersonality(map[string]float64{TraitAggression: 1.7, TraitCaution: -0.2}, nil)
	if p.Trait(TraitAggression) != 1 || p.Trait(TraitCaution) != 0 {
		t.Fatalf("traits not clamped: %+v", p.Traits)
	}
	if p.Trait(TraitGreed) != DefaultTraitValue {
		t.Fatalf("unset trait = %v, want default", p.Trait(TraitGreed))
	}

	m := NewMotivation(nil, map[string]float64{DriveFear: 0.9})
	m.AdjustDrive(DriveFear, 0.5)
	if m.Drive(DriveFear) != 1 {
		t.Fatalf("fear = %v, want 1", m.Drive(DriveFear))
	}

	f := NewFaction("orcs", 1, 2)
	if f.Loyalty != 1 {
		t.Fatalf("loyalty = %v, want 1", f.Loyalty)
	}
	f.AdjustLoyalty(-3)
	if f.Loyalty != 0 {
		t.Fatalf("loyalty = %v, want 0", f.Loyalty)
	}
}

func TestBehaviorState_ParseAndWaypoints(t *testing.T) {
	for _, s := range []State{StateIdle, StatePatrol, StatePursue, StateCombat, StateFlee} {
		got, err := ParseState(s.String())
		if err != nil || got != s {
			t.Fatalf("ParseState(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseState("dance"); err == nil {
		t.Fatalf("expected error for unknown state")
	}
}
