package component

// Faction records which group an entity belongs to.
type Faction struct {
	FactionID string
	Name      string
	// Rank is ordinal; higher outranks lower.
	Rank      int
	Loyalty   float64
	Relations map[string]float64
	Territory []string
}

var FactionComponent = NewComponent[Faction]()

func NewFaction(id string, rank int, loyalty float64) Faction {
	return Faction{FactionID: id, Rank: rank, Loyalty: clampUnit(loyalty)}
}

func (f *Faction) SetLoyalty(v float64) {
	f.Loyalty = clampUnit(v)
}

func (f *Faction) AdjustLoyalty(delta float64) {
	f.SetLoyalty(f.Loyalty + delta)
}

// Relation returns the configured stance toward other in [-1,1]. Members of
// the same faction are fully allied.
func (f Faction) Relation(other string) float64 {
	if other == f.FactionID {
		return 1
	}
	return f.Relations[other]
}
