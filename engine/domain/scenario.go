package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ScenarioDescriptor describes the active conversational context. It is
// owned by the conversation layer; the retriever only reads it.
type ScenarioDescriptor struct {
	Type            string            `json:"type,omitempty"`
	Setting         string            `json:"setting,omitempty"`
	Goal            string            `json:"goal,omitempty"`
	SystemArchetype string            `json:"system_archetype,omitempty"`
	RoastLevel      int               `json:"roast_level,omitempty"`
	PlayerSex       string            `json:"player_sex,omitempty"`
	SystemSex       string            `json:"system_sex,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
}

// ScenarioField is one non-empty scenario attribute. Value is a string or an int.
type ScenarioField struct {
	Key   string
	Value any
}

// Fields returns the non-empty attributes in a fixed order: the named
// fields first, then extras sorted by key.
func (s ScenarioDescriptor) Fields() []ScenarioField {
	var out []ScenarioField
	add := func(k, v string) {
		if v != "" {
			out = append(out, ScenarioField{Key: k, Value: v})
		}
	}
	add("type", s.Type)
	add("setting", s.Setting)
	add("goal", s.Goal)
	add("system_archetype", s.SystemArchetype)
	if s.RoastLevel != 0 {
		out = append(out, ScenarioField{Key: "roast_level", Value: s.RoastLevel})
	}
	add("player_sex", s.PlayerSex)
	add("system_sex", s.SystemSex)

	keys := make([]string, 0, len(s.Extra))
	for k := range s.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add(k, s.Extra[k])
	}
	return out
}

// Render flattens the fields as "k:v k:v ...".
func (s ScenarioDescriptor) Render() string {
	fields := s.Fields()
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s:%v", f.Key, f.Value)
	}
	return strings.Join(parts, " ")
}
