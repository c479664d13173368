package component

// DefaultTraitValue is reported for traits an archetype does not set.
const DefaultTraitValue = 0.5

// Trait names understood by the built-in behavior trees.
const (
	TraitAggression   = "aggression"
	TraitCaution      = "caution"
	TraitCuriosity    = "curiosity"
	TraitLoyalty      = "loyalty"
	TraitIntelligence = "intelligence"
	TraitGreed        = "greed"
	TraitEmpathy      = "empathy"
	TraitAmbition     = "ambition"
	TraitRestlessness = "restlessness"
	TraitCharisma     = "charisma"
	TraitCourage      = "courage"
)

type Personality struct {
	Traits      map[string]float64
	Preferences map[string]float64
}

var PersonalityComponent = NewComponent[Personality]()

// NewPersonality copies traits and preferences, clamping every trait to [0,1].
func NewPersonality(traits, preferences map[string]float64) Personality {
	p := Personality{
		Traits:      make(map[string]float64, len(traits)),
		Preferences: make(map[string]float64, len(preferences)),
	}
	for k, v := range traits {
		p.SetTrait(k, v)
	}
	for k, v := range preferences {
		p.Preferences[k] = v
	}
	return p
}

func (p Personality) Trait(name string) float64 {
	if v, ok := p.Traits[name]; ok {
		return v
	}
	return DefaultTraitValue
}

func (p *Personality) SetTrait(name string, v float64) {
	if p.Traits == nil {
		p.Traits = map[string]float64{}
	}
	p.Traits[name] = clampUnit(v)
}

func (p Personality) Preference(name string) float64 {
	return p.Preferences[name]
}
