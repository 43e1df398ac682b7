package database

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/siherrmann/graphrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertValue(t *testing.T) {
	date := time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		kind model.ValueKind
	}{
		{"nil", nil, model.ValueNull},
		{"bool", true, model.ValueBool},
		{"int64", int64(7), model.ValueInt},
		{"float64", 0.5, model.ValueFloat},
		{"string", "Diwali", model.ValueString},
		{"time", date, model.ValueTime},
		{"date", dbtype.Date(date), model.ValueTime},
		{"point", dbtype.Point2D{X: 1, Y: 2, SpatialRefId: 4326}, model.ValuePoint},
		{"list", []any{int64(1), "a"}, model.ValueList},
		{"map", map[string]any{"a": int64(1)}, model.ValueMap},
		{"unknown", struct{ A int }{1}, model.ValueString},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.kind, ConvertValue(test.in).Kind, "Expected kind %s", test.kind)
		})
	}

	t.Run("Durations without months become time.Duration", func(t *testing.T) {
		v := ConvertValue(dbtype.Duration{Days: 1, Seconds: 30})
		require.Equal(t, model.ValueDuration, v.Kind)
		assert.Equal(t, 24*time.Hour+30*time.Second, v.Duration)
	})

	t.Run("Durations with months stay ISO strings", func(t *testing.T) {
		v := ConvertValue(dbtype.Duration{Months: 2})
		require.Equal(t, model.ValueString, v.Kind)
		assert.Equal(t, dbtype.Duration{Months: 2}.String(), v.String)
	})

	t.Run("Nested values recurse", func(t *testing.T) {
		v := ConvertValue(map[string]any{"list": []any{map[string]any{"x": 1.5}}})
		assert.Equal(t, 1.5, v.Map["list"].List[0].Map["x"].Float)
	})
}

func TestConvertGraphValues(t *testing.T) {
	diwali := dbtype.Node{ElementId: "n1", Labels: []string{"CulturalEntity", "Festival"}, Props: map[string]any{"name": "Diwali"}}
	lakshmi := dbtype.Node{ElementId: "n2", Labels: []string{"CulturalEntity", "Deity"}, Props: map[string]any{"name": "Lakshmi"}}
	worships := dbtype.Relationship{ElementId: "r1", Type: "WORSHIPS", StartElementId: "n1", EndElementId: "n2", Props: map[string]any{"strength": 0.9}}

	t.Run("Node keeps id, labels and properties", func(t *testing.T) {
		v := ConvertValue(diwali)
		require.Equal(t, model.ValueNode, v.Kind)
		assert.Equal(t, "n1", v.Node.ID)
		assert.Equal(t, "Diwali", v.Node.Name())
		assert.True(t, v.Node.HasLabel("Festival"))
	})

	t.Run("Relationship keeps endpoints", func(t *testing.T) {
		v := ConvertValue(worships)
		require.Equal(t, model.ValueRelationship, v.Kind)
		assert.Equal(t, model.RelWorships, v.Relationship.Type)
		assert.Equal(t, "n1", v.Relationship.StartNodeID)
		assert.Equal(t, "n2", v.Relationship.EndNodeID)
		assert.InDelta(t, 0.9, v.Relationship.Strength(), 1e-9)
	})

	t.Run("Path keeps order and length", func(t *testing.T) {
		v := ConvertValue(dbtype.Path{Nodes: []dbtype.Node{diwali, lakshmi}, Relationships: []dbtype.Relationship{worships}})
		require.Equal(t, model.ValuePath, v.Kind)
		assert.Equal(t, 1, v.Path.Length)
		assert.Equal(t, "n2", v.Path.End().ID)
	})
}

func TestEscapeFullText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"diwali", "diwali"},
		{"  festival   of  lights ", "festival of lights"},
		{"rock & roll", `rock \& roll`},
		{"a:b (c)", `a\:b \(c\)`},
		{"lights AND colours", "lights and colours"},
		{"what?", `what\?`},
		{"", ""},
	}

	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			assert.Equal(t, test.want, EscapeFullText(test.in))
		})
	}
}
