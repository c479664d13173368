package prefabs

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"
)

func ptr[T any](v T) *T { return &v }

func number(min, max float64) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Minimum: ptr(min), Maximum: ptr(max)}
}

func stringList() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}}
}

func unitMap() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", AdditionalProperties: number(0, 1)}
}

func weightMap() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", AdditionalProperties: &jsonschema.Schema{Type: "number"}}
}

func archetypesSchema() *jsonschema.Schema {
	archetype := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"faction"},
		Properties: map[string]*jsonschema.Schema{
			"name":                 {Type: "string"},
			"faction":              {Type: "string", MinLength: ptr(1)},
			"rank":                 {Type: "integer", Minimum: ptr(0.0)},
			"loyalty":              number(0, 1),
			"system":               {Type: "string", Enum: []any{SystemBasic, SystemAdvanced}},
			"behavior_tree":        {Type: "string"},
			"entity_types":         stringList(),
			"personality":          unitMap(),
			"preferences":          weightMap(),
			"goals":                unitMap(),
			"drives":               unitMap(),
			"memory_capacity":      {Type: "integer", Minimum: ptr(1.0)},
			"importance_threshold": number(0, 1),
			"sight_range":          {Type: "number", Minimum: ptr(0.0)},
			"patrol":               {Type: "boolean"},
		},
	}
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"archetypes"},
		Properties: map[string]*jsonschema.Schema{
			"archetypes": {Type: "object", AdditionalProperties: archetype},
		},
	}
}

func factionsSchema() *jsonschema.Schema {
	faction := &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"name":        {Type: "string"},
			"description": {Type: "string"},
			"relations":   {Type: "object", AdditionalProperties: number(-1, 1)},
			"territory":   stringList(),
		},
	}
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"factions"},
		Properties: map[string]*jsonschema.Schema{
			"factions": {Type: "object", AdditionalProperties: faction},
		},
	}
}

func behaviorTreesSchema() *jsonschema.Schema {
	node := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"type"},
		Properties: map[string]*jsonschema.Schema{
			"type": {Type: "string", Enum: []any{
				NodeSelector, NodeSequence, NodeInverter, NodeCondition, NodeAction,
			}},
			"name":       {Type: "string"},
			"action":     {Type: "string"},
			"condition":  {Type: "string"},
			"children":   {Type: "array", Items: &jsonschema.Schema{Ref: "#/$defs/node"}},
			"traits":     weightMap(),
			"goals":      weightMap(),
			"reputation": {Type: "number"},
			"topic":      {Type: "string"},
			"base":       {Type: "number"},
		},
	}
	tree := &jsonschema.Schema{
		Type:     "object",
		Required: []string{"root"},
		Properties: map[string]*jsonschema.Schema{
			"description": {Type: "string"},
			"root":        {Ref: "#/$defs/node"},
		},
	}
	return &jsonschema.Schema{
		Type:     "object",
		Required: []string{"behavior_trees"},
		Defs:     map[string]*jsonschema.Schema{"node": node},
		Properties: map[string]*jsonschema.Schema{
			"behavior_trees": {Type: "object", AdditionalProperties: tree},
		},
	}
}

var documentSchemas = map[string]func() *jsonschema.Schema{
	ArchetypesFile:    archetypesSchema,
	FactionsFile:      factionsSchema,
	BehaviorTreesFile: behaviorTreesSchema,
}

// validateDocument checks raw YAML against the schema registered for name.
// The YAML tree is normalised through JSON so the validator sees JSON types.
func validateDocument(name string, data []byte) error {
	build, ok := documentSchemas[name]
	if !ok {
		return fmt.Errorf("no schema for %s", name)
	}
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("normalise: %w", err)
	}
	var instance any
	if err := json.Unmarshal(encoded, &instance); err != nil {
		return fmt.Errorf("normalise: %w", err)
	}
	resolved, err := build().Resolve(nil)
	if err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return resolved.Validate(instance)
}
