package prefabs

// Document file names inside a config directory.
const (
	ArchetypesFile    = "archetypes.yaml"
	FactionsFile      = "factions.yaml"
	BehaviorTreesFile = "behavior_trees.yaml"
)

// Systems an archetype can be assigned to.
const (
	SystemBasic    = "basic"
	SystemAdvanced = "advanced"
)

// Behavior tree node types.
const (
	NodeSelector  = "selector"
	NodeSequence  = "sequence"
	NodeInverter  = "inverter"
	NodeCondition = "condition"
	NodeAction    = "action"
)

// Action leaves understood by the advanced system.
var KnownActions = []string{
	"idle", "patrol", "wander", "pursue", "attack", "flee",
	"guard_territory", "socialize", "seek_food", "rest",
}

// Conditions understood by the advanced system.
var KnownConditions = []string{
	"is_threatened", "is_wounded", "is_hungry", "is_angry", "is_confident",
	"is_loyal", "has_target", "target_visible", "target_hostile",
	"ally_in_combat", "under_attack",
}

type ArchetypeSpec struct {
	ID                  string             `yaml:"-"`
	Name                string             `yaml:"name"`
	Faction             string             `yaml:"faction"`
	Rank                int                `yaml:"rank"`
	Loyalty             float64            `yaml:"loyalty"`
	System              string             `yaml:"system"`
	BehaviorTree        string             `yaml:"behavior_tree"`
	EntityTypes         []string           `yaml:"entity_types"`
	Personality         map[string]float64 `yaml:"personality"`
	Preferences         map[string]float64 `yaml:"preferences"`
	Goals               map[string]float64 `yaml:"goals"`
	Drives              map[string]float64 `yaml:"drives"`
	MemoryCapacity      int                `yaml:"memory_capacity"`
	ImportanceThreshold float64            `yaml:"importance_threshold"`
	SightRange          float64            `yaml:"sight_range"`
	Patrol              bool               `yaml:"patrol"`
}

// SystemOrDefault returns the configured system, basic when unset.
func (a ArchetypeSpec) SystemOrDefault() string {
	if a.System == "" {
		return SystemBasic
	}
	return a.System
}

type FactionSpec struct {
	ID          string             `yaml:"-"`
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Relations   map[string]float64 `yaml:"relations"`
	Territory   []string           `yaml:"territory"`
}

type NodeSpec struct {
	Type       string             `yaml:"type"`
	Name       string             `yaml:"name,omitempty"`
	Action     string             `yaml:"action,omitempty"`
	Condition  string             `yaml:"condition,omitempty"`
	Children   []NodeSpec         `yaml:"children,omitempty"`
	Traits     map[string]float64 `yaml:"traits,omitempty"`
	Goals      map[string]float64 `yaml:"goals,omitempty"`
	Reputation float64            `yaml:"reputation,omitempty"`
	Topic      string             `yaml:"topic,omitempty"`
	Base       float64            `yaml:"base,omitempty"`
}

type BehaviorTreeSpec struct {
	ID          string   `yaml:"-"`
	Description string   `yaml:"description"`
	Root        NodeSpec `yaml:"root"`
}

type archetypesDoc struct {
	Archetypes map[string]ArchetypeSpec `yaml:"archetypes"`
}

type factionsDoc struct {
	Factions map[string]FactionSpec `yaml:"factions"`
}

type behaviorTreesDoc struct {
	BehaviorTrees map[string]BehaviorTreeSpec `yaml:"behavior_trees"`
}

// DefaultArchetypeID names the built-in fallback archetype.
const DefaultArchetypeID = "default_idle"

// DefaultArchetype is used for entities whose archetype cannot be resolved.
// It idles under the basic system and belongs to no faction.
func DefaultArchetype() ArchetypeSpec {
	return ArchetypeSpec{
		ID:             DefaultArchetypeID,
		Name:           "Idle",
		System:         SystemBasic,
		Loyalty:        0.5,
		MemoryCapacity: 100,
		SightRange:     6,
	}
}

// DefaultBehaviorTree is evaluated when an archetype names no tree.
func DefaultBehaviorTree() BehaviorTreeSpec {
	return BehaviorTreeSpec{
		ID: "default",
		Root: NodeSpec{Type: NodeSelector, Children: []NodeSpec{
			{Type: NodeSequence, Children: []NodeSpec{
				{Type: NodeCondition, Condition: "is_threatened"},
				{Type: NodeAction, Action: "flee", Traits: map[string]float64{"caution": 1}},
			}},
			{Type: NodeSequence, Children: []NodeSpec{
				{Type: NodeCondition, Condition: "has_target"},
				{Type: NodeAction, Action: "attack", Traits: map[string]float64{"aggression": 1}, Reputation: -0.5},
			}},
			{Type: NodeAction, Action: "idle", Base: 0.3},
		}},
	}
}
