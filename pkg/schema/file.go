package schema

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

// LoadFile reads a YAML schema file. Both layouts keep declaration order:
//
//	tables:
//	  users: [id, name]
//	  orders:
//	    columns: [id, user_id]
//	    primary_key: [id]
//
// and a list of tables with name/columns fields. The "tables" wrapper is optional.
func LoadFile(path string) (models.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Schema{}, fmt.Errorf("read schema file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return models.Schema{}, fmt.Errorf("parse schema file %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes a YAML schema document.
func Parse(data []byte) (models.Schema, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return models.Schema{}, err
	}
	if len(doc.Content) == 0 {
		return models.Schema{}, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(root.Content); i += 2 {
			if root.Content[i].Value == "tables" {
				root = root.Content[i+1]
				break
			}
		}
	}

	var s models.Schema
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&s.Tables); err != nil {
			return models.Schema{}, err
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			name := root.Content[i].Value
			val := root.Content[i+1]
			t := models.Table{Name: name}
			switch val.Kind {
			case yaml.SequenceNode:
				if err := val.Decode(&t.Columns); err != nil {
					return models.Schema{}, fmt.Errorf("table %s: %w", name, err)
				}
			case yaml.MappingNode:
				if err := val.Decode(&t); err != nil {
					return models.Schema{}, fmt.Errorf("table %s: %w", name, err)
				}
				t.Name = name
			default:
				return models.Schema{}, fmt.Errorf("table %s: expected column list or mapping", name)
			}
			s.Tables = append(s.Tables, t)
		}
	default:
		return models.Schema{}, fmt.Errorf("expected mapping or list of tables")
	}

	for _, t := range s.Tables {
		if t.Name == "" {
			return models.Schema{}, fmt.Errorf("table without name")
		}
	}
	return s, nil
}

// File is a Discoverer that rereads a YAML schema file on each call.
type File string

// Discover loads the file.
func (f File) Discover(context.Context) (models.Schema, error) {
	return LoadFile(string(f))
}
