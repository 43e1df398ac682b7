package model

import (
	"fmt"
	"strings"
)

// EntityType is the closed set of cultural entity kinds.
type EntityType string

const (
	EntityTypeFestival  EntityType = "festival"
	EntityTypeFood      EntityType = "food"
	EntityTypePerson    EntityType = "person"
	EntityTypePlace     EntityType = "place"
	EntityTypeTradition EntityType = "tradition"
	EntityTypeCustom    EntityType = "custom"
	EntityTypeDeity     EntityType = "deity"
	EntityTypeLanguage  EntityType = "language"
	EntityTypeArt       EntityType = "art"
	EntityTypeMusic     EntityType = "music"
)

var entityTypes = []EntityType{
	EntityTypeFestival, EntityTypeFood, EntityTypePerson, EntityTypePlace, EntityTypeTradition,
	EntityTypeCustom, EntityTypeDeity, EntityTypeLanguage, EntityTypeArt, EntityTypeMusic,
}

// AllEntityTypes returns the entity types in declaration order.
func AllEntityTypes() []EntityType {
	return append([]EntityType(nil), entityTypes...)
}

func (t EntityType) IsValid() bool {
	for _, known := range entityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Label returns the node label stored alongside CulturalEntity, e.g. "Festival".
func (t EntityType) Label() NodeLabel {
	s := string(t)
	if s == "" {
		return ""
	}
	return NodeLabel(strings.ToUpper(s[:1]) + s[1:])
}

// ParseEntityType accepts any casing of a known entity type.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown entity type %q", s)
	}
	return t, nil
}

// NodeLabel is a type tag on a graph node.
type NodeLabel string

// LabelCulturalEntity is carried by every entity node in addition to its type label.
const LabelCulturalEntity NodeLabel = "CulturalEntity"

// IsKnown reports whether the label belongs to the cultural schema.
func (l NodeLabel) IsKnown() bool {
	if l == LabelCulturalEntity {
		return true
	}
	for _, t := range entityTypes {
		if t.Label() == l {
			return true
		}
	}
	return false
}

// RelationshipType is the closed relationship vocabulary.
type RelationshipType string

const (
	RelCelebratedIn    RelationshipType = "CELEBRATED_IN"
	RelWorships        RelationshipType = "WORSHIPS"
	RelOriginatedFrom  RelationshipType = "ORIGINATED_FROM"
	RelInfluencedBy    RelationshipType = "INFLUENCED_BY"
	RelPartOf          RelationshipType = "PART_OF"
	RelRelatedTo       RelationshipType = "RELATED_TO"
	RelPracticedBy     RelationshipType = "PRACTICED_BY"
	RelAssociatedWith  RelationshipType = "ASSOCIATED_WITH"
	RelSpeaks          RelationshipType = "SPEAKS"
	RelCreatedBy       RelationshipType = "CREATED_BY"
	RelPerformedDuring RelationshipType = "PERFORMED_DURING"
	RelFollows         RelationshipType = "FOLLOWS"
	RelConnectedTo     RelationshipType = "CONNECTED_TO"
	RelVariantOf       RelationshipType = "VARIANT_OF"
	RelEvolvedInto     RelationshipType = "EVOLVED_INTO"
)

var relationshipTypes = []RelationshipType{
	RelCelebratedIn, RelWorships, RelOriginatedFrom, RelInfluencedBy, RelPartOf,
	RelRelatedTo, RelPracticedBy, RelAssociatedWith, RelSpeaks, RelCreatedBy,
	RelPerformedDuring, RelFollows, RelConnectedTo, RelVariantOf, RelEvolvedInto,
}

var relationshipLabels = map[RelationshipType]string{
	RelCelebratedIn:    "Celebrated in",
	RelWorships:        "Worships",
	RelOriginatedFrom:  "Originated from",
	RelInfluencedBy:    "Influenced by",
	RelPartOf:          "Part of",
	RelRelatedTo:       "Related to",
	RelPracticedBy:     "Practiced by",
	RelAssociatedWith:  "Associated with",
	RelSpeaks:          "Speaks",
	RelCreatedBy:       "Created by",
	RelPerformedDuring: "Performed during",
	RelFollows:         "Follows",
	RelConnectedTo:     "Connected to",
	RelVariantOf:       "Variant of",
	RelEvolvedInto:     "Evolved into",
}

// AllRelationshipTypes returns the vocabulary in declaration order.
func AllRelationshipTypes() []RelationshipType {
	return append([]RelationshipType(nil), relationshipTypes...)
}

func (t RelationshipType) IsValid() bool {
	_, ok := relationshipLabels[t]
	return ok
}

// Label returns the human readable name used when rendering answers.
func (t RelationshipType) Label() string {
	if label, ok := relationshipLabels[t]; ok {
		return label
	}
	return strings.ReplaceAll(strings.ToLower(string(t)), "_", " ")
}

// ParseRelationshipType accepts any casing and spaces instead of underscores.
func ParseRelationshipType(s string) (RelationshipType, error) {
	t := RelationshipType(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), " ", "_"))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown relationship type %q", s)
	}
	return t, nil
}

// RelationshipTypeStrings converts types for use as query parameters.
func RelationshipTypeStrings(types []RelationshipType) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}
	return out
}

// Direction restricts which way relationships are followed during traversal.
type Direction string

const (
	DirectionIncoming Direction = "INCOMING"
	DirectionOutgoing Direction = "OUTGOING"
	DirectionBoth     Direction = "BOTH"
)

func (d Direction) IsValid() bool {
	return d == DirectionIncoming || d == DirectionOutgoing || d == DirectionBoth
}
