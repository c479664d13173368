package prefabs

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is an immutable, validated snapshot of the content documents.
// Consumers must treat every map and slice reachable from it as read-only.
type Config struct {
	Archetypes    map[string]ArchetypeSpec
	Factions      map[string]FactionSpec
	BehaviorTrees map[string]BehaviorTreeSpec

	Source   string
	Version  int64
	LoadedAt time.Time
	Warnings []string

	byEntityType map[string]string
}

// ConfigError collects every problem found while building a snapshot.
type ConfigError struct {
	Path     string
	Errors   []string
	Warnings []string
}

func (e *ConfigError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("prefabs: invalid config %s: %s", e.Path, e.Errors[0])
	}
	return fmt.Sprintf("prefabs: invalid config %s: %d errors: %s", e.Path, len(e.Errors), strings.Join(e.Errors, "; "))
}

func (e *ConfigError) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ConfigError) addError(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ConfigError) addWarning(format string, args ...any) {
	e.Warnings = append(e.Warnings, fmt.Sprintf(format, args...))
}

// Build decodes and validates the three documents. A nil or missing entry in
// docs is an error; callers fill gaps from the embedded defaults first.
func Build(source string, docs map[string][]byte) (*Config, error) {
	cerr := &ConfigError{Path: source}

	var (
		arch  archetypesDoc
		facts factionsDoc
		trees behaviorTreesDoc
	)
	decode := func(name string, out any) {
		data, ok := docs[name]
		if !ok {
			cerr.addError("%s: missing document", name)
			return
		}
		if err := validateDocument(name, data); err != nil {
			cerr.addError("%s: %v", name, err)
			return
		}
		if err := yaml.Unmarshal(data, out); err != nil {
			cerr.addError("%s: %v", name, err)
		}
	}
	decode(ArchetypesFile, &arch)
	decode(FactionsFile, &facts)
	decode(BehaviorTreesFile, &trees)
	if cerr.HasErrors() {
		return nil, cerr
	}

	cfg := &Config{
		Archetypes:    make(map[string]ArchetypeSpec, len(arch.Archetypes)),
		Factions:      make(map[string]FactionSpec, len(facts.Factions)),
		BehaviorTrees: make(map[string]BehaviorTreeSpec, len(trees.BehaviorTrees)),
		Source:        source,
		LoadedAt:      time.Now(),
		byEntityType:  map[string]string{},
	}
	for id, f := range facts.Factions {
		f.ID = id
		cfg.Factions[id] = f
	}
	for id, t := range trees.BehaviorTrees {
		t.ID = id
		cfg.BehaviorTrees[id] = t
	}
	for id, a := range arch.Archetypes {
		a.ID = id
		if a.System == "" {
			a.System = SystemBasic
		}
		cfg.Archetypes[id] = a
	}

	validateConfig(cfg, cerr)
	if cerr.HasErrors() {
		return nil, cerr
	}

	for _, id := range slices.Sorted(maps.Keys(cfg.Archetypes)) {
		for _, t := range cfg.Archetypes[id].EntityTypes {
			if _, taken := cfg.byEntityType[t]; !taken {
				cfg.byEntityType[t] = id
			}
		}
	}
	cfg.Warnings = cerr.Warnings
	return cfg, nil
}

// Archetype looks up an archetype by id.
func (c *Config) Archetype(id string) (ArchetypeSpec, bool) {
	if c == nil {
		return ArchetypeSpec{}, false
	}
	a, ok := c.Archetypes[id]
	return a, ok
}

// ArchetypeOrDefault returns the archetype, or the built-in default and false.
func (c *Config) ArchetypeOrDefault(id string) (ArchetypeSpec, bool) {
	if a, ok := c.Archetype(id); ok {
		return a, true
	}
	return DefaultArchetype(), false
}

// ArchetypeForType maps a game entity type to the archetype that claims it.
func (c *Config) ArchetypeForType(entityType string) (string, bool) {
	if c == nil {
		return "", false
	}
	id, ok := c.byEntityType[entityType]
	return id, ok
}

func (c *Config) Faction(id string) (FactionSpec, bool) {
	if c == nil {
		return FactionSpec{}, false
	}
	f, ok := c.Factions[id]
	return f, ok
}

// BehaviorTree returns the named tree, or the default tree and false.
func (c *Config) BehaviorTree(id string) (BehaviorTreeSpec, bool) {
	if c != nil {
		if t, ok := c.BehaviorTrees[id]; ok {
			return t, true
		}
	}
	return DefaultBehaviorTree(), false
}

// Relation is a's configured stance toward b in [-1,1]. When a does not list
// b, b's stance toward a is used.
func (c *Config) Relation(a, b string) float64 {
	if a == b && a != "" {
		return 1
	}
	if f, ok := c.Faction(a); ok {
		if v, ok := f.Relations[b]; ok {
			return v
		}
	}
	if f, ok := c.Faction(b); ok {
		return f.Relations[a]
	}
	return 0
}
