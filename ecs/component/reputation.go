package component

import (
	"maps"
	"math"
	"slices"
)

const (
	MinStanding = -100.0
	MaxStanding = 100.0

	DefaultMaxGrievances = 32
)

// Grievance kinds recorded by the AI manager.
const (
	GrievanceAttacked   = "attacked"
	GrievanceAllyHarmed = "ally_harmed"
	GrievanceAllyKilled = "ally_killed"
)

type Grievance struct {
	Kind      string
	Faction   string
	Witnessed bool
	Tick      int64
}

// Titles granted by the AI manager.
const (
	TitleSlayer = "slayer"
)

// Reputation is an entity's standing toward each faction and toward
// individual entities. Every write clamps to [MinStanding, MaxStanding]; NaN
// writes are dropped.
type Reputation struct {
	Standings     map[string]float64
	Individuals   map[uint64]float64
	Grievances    []Grievance
	MaxGrievances int
	Titles        []string
}

var ReputationComponent = NewComponent[Reputation]()

func NewReputation() Reputation {
	return Reputation{
		Standings:     map[string]float64{},
		Individuals:   map[uint64]float64{},
		MaxGrievances: DefaultMaxGrievances,
	}
}

func (r Reputation) Standing(faction string) float64 {
	return r.Standings[faction]
}

// Set writes a clamped standing and returns the old and new values.
func (r *Reputation) Set(faction string, v float64) (float64, float64) {
	if r.Standings == nil {
		r.Standings = map[string]float64{}
	}
	old := r.Standings[faction]
	if math.IsNaN(v) {
		return old, old
	}
	r.Standings[faction] = clamp(v, MinStanding, MaxStanding)
	return old, r.Standings[faction]
}

func (r *Reputation) Modify(faction string, delta float64) (float64, float64) {
	return r.Set(faction, r.Standing(faction)+delta)
}

// Toward is the personal standing toward subject, independent of its faction.
func (r Reputation) Toward(subject uint64) float64 {
	return r.Individuals[subject]
}

func (r *Reputation) SetToward(subject uint64, v float64) (float64, float64) {
	if r.Individuals == nil {
		r.Individuals = map[uint64]float64{}
	}
	old := r.Individuals[subject]
	if math.IsNaN(v) {
		return old, old
	}
	r.Individuals[subject] = clamp(v, MinStanding, MaxStanding)
	return old, r.Individuals[subject]
}

func (r *Reputation) ModifyToward(subject uint64, delta float64) (float64, float64) {
	return r.SetToward(subject, r.Toward(subject)+delta)
}

// Effective is the standing toward subject as a member of faction: the
// faction standing plus the personal one, clamped.
func (r Reputation) Effective(subject uint64, faction string) float64 {
	return clamp(r.Standing(faction)+r.Toward(subject), MinStanding, MaxStanding)
}

// Forget drops the personal standing toward subject.
func (r *Reputation) Forget(subject uint64) {
	delete(r.Individuals, subject)
}

// AddTitle grants title once.
func (r *Reputation) AddTitle(title string) bool {
	if title == "" || r.HasTitle(title) {
		return false
	}
	r.Titles = append(r.Titles, title)
	return true
}

func (r Reputation) HasTitle(title string) bool {
	return slices.Contains(r.Titles, title)
}

// AddGrievance appends g, dropping the oldest entries beyond MaxGrievances.
func (r *Reputation) AddGrievance(g Grievance) {
	limit := r.MaxGrievances
	if limit <= 0 {
		limit = DefaultMaxGrievances
	}
	r.Grievances = append(r.Grievances, g)
	if over := len(r.Grievances) - limit; over > 0 {
		r.Grievances = append([]Grievance(nil), r.Grievances[over:]...)
	}
}

// LastGrievance returns the most recent grievance against faction.
func (r Reputation) LastGrievance(faction string) (Grievance, bool) {
	for i := len(r.Grievances) - 1; i >= 0; i-- {
		if r.Grievances[i].Faction == faction {
			return r.Grievances[i], true
		}
	}
	return Grievance{}, false
}

// DecayToward moves the standing toward neutral by at most step, never
// crossing zero. It returns the applied change.
func (r *Reputation) DecayToward(faction string, step float64) float64 {
	cur := r.Standing(faction)
	move := decayStep(cur, step)
	if move == 0 {
		return 0
	}
	_, next := r.Set(faction, cur+move)
	return next - cur
}

// DecayTowardSubject is DecayToward for a personal standing. A standing that
// reaches neutral is dropped.
func (r *Reputation) DecayTowardSubject(subject uint64, step float64) float64 {
	cur := r.Toward(subject)
	move := decayStep(cur, step)
	if move == 0 {
		return 0
	}
	_, next := r.SetToward(subject, cur+move)
	if next == 0 {
		r.Forget(subject)
	}
	return next - cur
}

func decayStep(cur, step float64) float64 {
	if cur == 0 || step <= 0 || math.IsNaN(step) {
		return 0
	}
	move := math.Min(step, math.Abs(cur))
	if cur > 0 {
		move = -move
	}
	return move
}

// Factions returns the factions with a recorded standing, sorted.
func (r Reputation) Factions() []string {
	return slices.Sorted(maps.Keys(r.Standings))
}

// Subjects returns the entities with a personal standing, sorted.
func (r Reputation) Subjects() []uint64 {
	return slices.Sorted(maps.Keys(r.Individuals))
}
