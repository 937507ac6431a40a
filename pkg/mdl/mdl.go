// Package mdl defines the semantic data model (MDL) the assistant reads and
// enriches: models (tables), their columns, and free-form properties such as
// descriptions.
package mdl

import (
	"encoding/json"
	"fmt"
	"os"
)

// Properties holds free-form string metadata attached to a model or column,
// most notably the "description" key the generation pipeline fills in.
type Properties map[string]string

// Description returns the description property, or an empty string.
func (p Properties) Description() string {
	return p["description"]
}

// Column is a single column of a model.
type Column struct {
	Name         string     `json:"name"`
	Type         string     `json:"type,omitempty"`
	NotNull      bool       `json:"notNull,omitempty"`
	Relationship string     `json:"relationship,omitempty"`
	Properties   Properties `json:"properties,omitempty"`
}

// HasRelationship reports whether the column represents a join to another
// model rather than a scalar value.
func (c Column) HasRelationship() bool {
	return c.Relationship != ""
}

// Model is a single table-like entity in the data model.
type Model struct {
	Name       string     `json:"name"`
	Columns    []Column   `json:"columns"`
	Properties Properties `json:"properties,omitempty"`
}

// Manifest is the top-level data model document.
type Manifest struct {
	Models []Model `json:"models"`
}

// Model returns the named model and whether it exists.
func (m Manifest) Model(name string) (Model, bool) {
	for _, mdl := range m.Models {
		if mdl.Name == name {
			return mdl, true
		}
	}
	return Model{}, false
}

// Parse decodes a manifest from JSON.
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("mdl: parse manifest: %w", err)
	}
	return m, nil
}

// Load reads and parses a manifest file.
func Load(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("mdl: load manifest: %w", err)
	}
	return Parse(data)
}
