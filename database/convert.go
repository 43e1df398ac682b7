package database

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/siherrmann/graphrag/model"
)

func convertResult(records []*neo4j.Record, summary neo4j.ResultSummary) *model.QueryResult {
	result := &model.QueryResult{
		Records: make([]model.Record, 0, len(records)),
	}

	for _, record := range records {
		if result.Columns == nil {
			result.Columns = record.Keys
		}
		row := make(model.Record, len(record.Keys))
		for i, key := range record.Keys {
			row[key] = ConvertValue(record.Values[i])
		}
		result.Records = append(result.Records, row)
	}

	if summary != nil {
		counters := summary.Counters()
		result.Summary = model.QuerySummary{
			NodesCreated:         counters.NodesCreated(),
			NodesDeleted:         counters.NodesDeleted(),
			RelationshipsCreated: counters.RelationshipsCreated(),
			RelationshipsDeleted: counters.RelationshipsDeleted(),
			PropertiesSet:        counters.PropertiesSet(),
		}
	}

	return result
}

// ConvertValue maps a native driver value onto the model.Value variant.
// Nested lists and maps are converted recursively. Values of unknown type
// fall back to their string form.
func ConvertValue(v any) model.Value {
	switch val := v.(type) {
	case nil:
		return model.NullValue()
	case bool:
		return model.BoolValue(val)
	case int64:
		return model.IntValue(val)
	case int:
		return model.IntValue(int64(val))
	case int32:
		return model.IntValue(int64(val))
	case float64:
		return model.FloatValue(val)
	case float32:
		return model.FloatValue(float64(val))
	case string:
		return model.StringValue(val)
	case []byte:
		return model.StringValue(string(val))
	case time.Time:
		return model.TimeValue(val)
	case dbtype.Date:
		return model.TimeValue(val.Time())
	case dbtype.LocalDateTime:
		return model.TimeValue(val.Time())
	case dbtype.LocalTime:
		return model.TimeValue(val.Time())
	case dbtype.Time:
		return model.TimeValue(val.Time())
	case dbtype.Duration:
		return convertDuration(val)
	case dbtype.Point2D:
		return model.PointValue(&model.Point{SRID: val.SpatialRefId, X: val.X, Y: val.Y})
	case dbtype.Point3D:
		return model.PointValue(&model.Point{SRID: val.SpatialRefId, X: val.X, Y: val.Y, Z: val.Z})
	case dbtype.Node:
		return model.NodeValue(convertNode(val))
	case dbtype.Relationship:
		return model.RelationshipValue(convertRelationship(val))
	case dbtype.Path:
		return model.PathValue(convertPath(val))
	case []any:
		list := make([]model.Value, len(val))
		for i, item := range val {
			list[i] = ConvertValue(item)
		}
		return model.ListValue(list)
	case map[string]any:
		m := make(map[string]model.Value, len(val))
		for k, item := range val {
			m[k] = ConvertValue(item)
		}
		return model.MapValue(m)
	}
	return model.StringValue(fmt.Sprint(v))
}

// Durations with a month component have no fixed length and stay ISO 8601 strings.
func convertDuration(d dbtype.Duration) model.Value {
	if d.Months != 0 {
		return model.StringValue(d.String())
	}
	total := time.Duration(d.Days)*24*time.Hour +
		time.Duration(d.Seconds)*time.Second +
		time.Duration(d.Nanos)
	return model.DurationValue(total)
}

func convertProperties(props map[string]any) model.Metadata {
	out := make(model.Metadata, len(props))
	for k, v := range props {
		out[k] = ConvertValue(v).Interface()
	}
	return out
}

func convertNode(n dbtype.Node) *model.GraphNode {
	labels := make([]model.NodeLabel, len(n.Labels))
	for i, l := range n.Labels {
		labels[i] = model.NodeLabel(l)
	}
	return &model.GraphNode{
		ID:         n.ElementId,
		Labels:     labels,
		Properties: convertProperties(n.Props),
	}
}

func convertRelationship(r dbtype.Relationship) *model.GraphRelationship {
	return &model.GraphRelationship{
		ID:          r.ElementId,
		Type:        model.RelationshipType(r.Type),
		Properties:  convertProperties(r.Props),
		StartNodeID: r.StartElementId,
		EndNodeID:   r.EndElementId,
	}
}

func convertPath(p dbtype.Path) *model.GraphPath {
	nodes := make([]*model.GraphNode, len(p.Nodes))
	for i, n := range p.Nodes {
		nodes[i] = convertNode(n)
	}
	rels := make([]*model.GraphRelationship, len(p.Relationships))
	for i, r := range p.Relationships {
		rels[i] = convertRelationship(r)
	}
	return model.NewGraphPath(nodes, rels)
}
