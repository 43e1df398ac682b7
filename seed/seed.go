// Package seed holds the built-in cultural dataset used to initialize an
// empty graph.
package seed

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/siherrmann/graphrag/helper"
	"github.com/siherrmann/graphrag/model"
	"gopkg.in/yaml.v3"
)

//go:embed cultural.yaml
var culturalYAML []byte

// KnowledgeItem is a curated snippet for the vector store.
type KnowledgeItem struct {
	Content  string `yaml:"content"`
	Category string `yaml:"category"`
}

// Dataset is a set of entities, the relationships between them and
// knowledge snippets about them.
type Dataset struct {
	Entities      []*model.CulturalEntity       `yaml:"entities"`
	Relationships []*model.CulturalRelationship `yaml:"relationships"`
	Knowledge     []KnowledgeItem               `yaml:"knowledge"`
}

// Load parses the embedded cultural dataset.
func Load() (*Dataset, error) {
	return Parse(culturalYAML)
}

// Parse decodes and validates a dataset. Unknown keys, invalid entities and
// relationships to entities outside the dataset are rejected.
func Parse(data []byte) (*Dataset, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	dataset := &Dataset{}
	err := decoder.Decode(dataset)
	if err != nil {
		return nil, helper.NewError("decode dataset", err)
	}

	err = dataset.Validate()
	if err != nil {
		return nil, err
	}
	return dataset, nil
}

// Validate checks every entity and relationship of the dataset.
func (d *Dataset) Validate() error {
	names := make(map[string]bool, len(d.Entities))
	for i, entity := range d.Entities {
		if err := entity.Validate(); err != nil {
			return helper.NewError(fmt.Sprintf("entity %d", i), err)
		}
		if names[entity.Name] {
			return helper.NewError(fmt.Sprintf("entity %d", i), helper.NewValidationError("name", "is duplicated: "+entity.Name))
		}
		names[entity.Name] = true
	}

	for i, rel := range d.Relationships {
		if err := rel.Validate(); err != nil {
			return helper.NewError(fmt.Sprintf("relationship %d", i), err)
		}
		for _, name := range []string{rel.From, rel.To} {
			if !names[name] {
				return helper.NewError(fmt.Sprintf("relationship %d", i), helper.NewValidationError("endpoint", "references unknown entity "+name))
			}
		}
	}

	for i, item := range d.Knowledge {
		if item.Content == "" {
			return helper.NewError(fmt.Sprintf("knowledge %d", i), helper.NewValidationError("content", "is required"))
		}
	}
	return nil
}

// KnowledgeRecords converts the snippets for the vector store.
func (d *Dataset) KnowledgeRecords() []*model.Knowledge {
	records := make([]*model.Knowledge, 0, len(d.Knowledge))
	for _, item := range d.Knowledge {
		records = append(records, &model.Knowledge{
			Content:  item.Content,
			Category: item.Category,
			Metadata: model.Metadata{"source": "seed"},
		})
	}
	return records
}
