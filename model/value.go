package model

import (
	"encoding/json"
	"time"
)

// ValueKind discriminates the variants of Value.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueBool
	ValueInt
	ValueFloat
	ValueString
	ValueTime
	ValueDuration
	ValuePoint
	ValueList
	ValueMap
	ValueNode
	ValueRelationship
	ValuePath
)

var valueKindNames = map[ValueKind]string{
	ValueNull:         "null",
	ValueBool:         "bool",
	ValueInt:          "int",
	ValueFloat:        "float",
	ValueString:       "string",
	ValueTime:         "time",
	ValueDuration:     "duration",
	ValuePoint:        "point",
	ValueList:         "list",
	ValueMap:          "map",
	ValueNode:         "node",
	ValueRelationship: "relationship",
	ValuePath:         "path",
}

func (k ValueKind) String() string {
	if name, ok := valueKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Point is a spatial value in any coordinate reference system.
type Point struct {
	SRID uint32  `json:"srid"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z,omitempty"`
}

// Value is one graph-store value after conversion. Exactly the field that
// matches Kind is set.
type Value struct {
	Kind         ValueKind
	Bool         bool
	Int          int64
	Float        float64
	String       string
	Time         time.Time
	Duration     time.Duration
	Point        *Point
	List         []Value
	Map          map[string]Value
	Node         *GraphNode
	Relationship *GraphRelationship
	Path         *GraphPath
}

func NullValue() Value { return Value{Kind: ValueNull} }
func BoolValue(b bool) Value { return Value{Kind: ValueBool, Bool: b} }
func IntValue(i int64) Value { return Value{Kind: ValueInt, Int: i} }
func FloatValue(f float64) Value { return Value{Kind: ValueFloat, Float: f} }
func StringValue(s string) Value { return Value{Kind: ValueString, String: s} }
func TimeValue(t time.Time) Value { return Value{Kind: ValueTime, Time: t} }
func DurationValue(d time.Duration) Value { return Value{Kind: ValueDuration, Duration: d} }
func PointValue(p *Point) Value { return Value{Kind: ValuePoint, Point: p} }
func ListValue(l []Value) Value { return Value{Kind: ValueList, List: l} }
func MapValue(m map[string]Value) Value { return Value{Kind: ValueMap, Map: m} }
func NodeValue(n *GraphNode) Value { return Value{Kind: ValueNode, Node: n} }
func PathValue(p *GraphPath) Value { return Value{Kind: ValuePath, Path: p} }

func RelationshipValue(r *GraphRelationship) Value {
	return Value{Kind: ValueRelationship, Relationship: r}
}

// Interface returns the plain Go representation of v, used for property bags
// and JSON output.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case ValueBool:
		return v.Bool
	case ValueInt:
		return v.Int
	case ValueFloat:
		return v.Float
	case ValueString:
		return v.String
	case ValueTime:
		return v.Time
	case ValueDuration:
		return v.Duration.String()
	case ValuePoint:
		return v.Point
	case ValueList:
		out := make([]interface{}, len(v.List))
		for i, item := range v.List {
			out[i] = item.Interface()
		}
		return out
	case ValueMap:
		out := make(map[string]interface{}, len(v.Map))
		for k, item := range v.Map {
			out[k] = item.Interface()
		}
		return out
	case ValueNode:
		return v.Node
	case ValueRelationship:
		return v.Relationship
	case ValuePath:
		return v.Path
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// Record is one result row keyed by column name.
type Record map[string]Value

// Node returns the node stored under key, if any.
func (r Record) Node(key string) (*GraphNode, bool) {
	v, ok := r[key]
	if !ok || v.Kind != ValueNode {
		return nil, false
	}
	return v.Node, true
}

// Relationship returns the relationship stored under key, if any.
func (r Record) Relationship(key string) (*GraphRelationship, bool) {
	v, ok := r[key]
	if !ok || v.Kind != ValueRelationship {
		return nil, false
	}
	return v.Relationship, true
}

// Float returns a numeric column as float64.
func (r Record) Float(key string) float64 {
	v := r[key]
	switch v.Kind {
	case ValueFloat:
		return v.Float
	case ValueInt:
		return float64(v.Int)
	}
	return 0
}

// Int returns a numeric column as int64.
func (r Record) Int(key string) int64 {
	v := r[key]
	switch v.Kind {
	case ValueInt:
		return v.Int
	case ValueFloat:
		return int64(v.Float)
	}
	return 0
}

// String returns a string column, empty if absent.
func (r Record) String(key string) string {
	v := r[key]
	if v.Kind == ValueString {
		return v.String
	}
	return ""
}

// Strings returns a list-of-strings column.
func (r Record) Strings(key string) []string {
	v := r[key]
	if v.Kind != ValueList {
		return nil
	}
	out := make([]string, 0, len(v.List))
	for _, item := range v.List {
		if item.Kind == ValueString {
			out = append(out, item.String)
		}
	}
	return out
}
