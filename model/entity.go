package model

import (
	"strings"
	"time"

	"github.com/siherrmann/graphrag/helper"
)

// CulturalEntity is the typed view of a CulturalEntity node. Name is the
// natural key used for upserts. Unknown properties are kept in Extra.
type CulturalEntity struct {
	Name         string     `json:"name" yaml:"name"`
	Type         EntityType `json:"type" yaml:"type"`
	Description  string     `json:"description,omitempty" yaml:"description"`
	Region       string     `json:"region,omitempty" yaml:"region"`
	Language     string     `json:"language,omitempty" yaml:"language"`
	Significance string     `json:"significance,omitempty" yaml:"significance"`
	Category     string     `json:"category,omitempty" yaml:"category"`
	Popularity   int64      `json:"popularity,omitempty" yaml:"popularity"`
	Verified     bool       `json:"verified" yaml:"verified"`
	DateAdded    *time.Time `json:"dateAdded,omitempty" yaml:"-"`
	LastUpdated  *time.Time `json:"lastUpdated,omitempty" yaml:"-"`
	Extra        Metadata   `json:"extra,omitempty" yaml:"extra"`
}

var entityFields = map[string]bool{
	"name": true, "type": true, "description": true, "region": true, "language": true,
	"significance": true, "category": true, "popularity": true, "verified": true,
	"dateAdded": true, "lastUpdated": true,
}

// Validate rejects entities that cannot be upserted.
func (e *CulturalEntity) Validate() error {
	if e == nil {
		return helper.NewValidationError("entity", "is nil")
	}
	if strings.TrimSpace(e.Name) == "" {
		return helper.NewValidationError("name", "is required")
	}
	if !e.Type.IsValid() {
		return helper.NewValidationError("type", "must be one of the cultural entity types, got "+string(e.Type))
	}
	if e.Popularity < 0 {
		return helper.NewValidationError("popularity", "must not be negative")
	}
	return nil
}

// Properties returns the property map written to the graph store. Timestamps
// are set by the store, not here.
func (e *CulturalEntity) Properties() map[string]interface{} {
	props := make(map[string]interface{}, len(entityFields)+len(e.Extra))
	for k, v := range e.Extra {
		if !entityFields[k] {
			props[k] = v
		}
	}
	props["name"] = e.Name
	props["type"] = string(e.Type)
	props["description"] = e.Description
	props["region"] = e.Region
	props["language"] = e.Language
	props["significance"] = e.Significance
	props["category"] = e.Category
	props["popularity"] = e.Popularity
	props["verified"] = e.Verified
	return props
}

// Labels returns the labels an entity node carries.
func (e *CulturalEntity) Labels() []NodeLabel {
	return []NodeLabel{LabelCulturalEntity, e.Type.Label()}
}

// EntityFromNode reads the well-known fields of a node into a CulturalEntity.
func EntityFromNode(node *GraphNode) *CulturalEntity {
	props := node.Properties
	e := &CulturalEntity{
		Name:         props.GetString("name"),
		Type:         EntityType(props.GetString("type")),
		Description:  props.GetString("description"),
		Region:       props.GetString("region"),
		Language:     props.GetString("language"),
		Significance: props.GetString("significance"),
		Category:     props.GetString("category"),
		Popularity:   props.GetInt("popularity"),
		Verified:     props.GetBool("verified"),
		DateAdded:    timeProperty(props, "dateAdded"),
		LastUpdated:  timeProperty(props, "lastUpdated"),
		Extra:        Metadata{},
	}
	for k, v := range props {
		if !entityFields[k] {
			e.Extra[k] = v
		}
	}
	return e
}

func timeProperty(props Metadata, key string) *time.Time {
	switch v := props[key].(type) {
	case time.Time:
		return &v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return &t
		}
	}
	return nil
}

// CulturalRelationship links two entities by name. The store resolves the
// names to node ids when it is created.
type CulturalRelationship struct {
	From     string           `json:"from" yaml:"from"`
	To       string           `json:"to" yaml:"to"`
	Type     RelationshipType `json:"type" yaml:"type"`
	Strength float64          `json:"strength" yaml:"strength"`
	Since    string           `json:"since,omitempty" yaml:"since"`
	Until    string           `json:"until,omitempty" yaml:"until"`
	Context  string           `json:"context,omitempty" yaml:"context"`
	Verified bool             `json:"verified" yaml:"verified"`
}

func (r *CulturalRelationship) Validate() error {
	if r == nil {
		return helper.NewValidationError("relationship", "is nil")
	}
	if strings.TrimSpace(r.From) == "" {
		return helper.NewValidationError("from", "is required")
	}
	if strings.TrimSpace(r.To) == "" {
		return helper.NewValidationError("to", "is required")
	}
	if !r.Type.IsValid() {
		return helper.NewValidationError("type", "must be in the relationship vocabulary, got "+string(r.Type))
	}
	if r.Strength < 0 || r.Strength > 1 {
		return helper.NewValidationError("strength", "must be within [0,1]")
	}
	return nil
}

// Properties returns the relationship properties written to the graph store.
func (r *CulturalRelationship) Properties() map[string]interface{} {
	props := map[string]interface{}{
		"strength": r.Strength,
		"verified": r.Verified,
	}
	if r.Since != "" {
		props["since"] = r.Since
	}
	if r.Until != "" {
		props["until"] = r.Until
	}
	if r.Context != "" {
		props["context"] = r.Context
	}
	return props
}
