package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	model "task-board.com/task-board/internal/models"
)

// LoadBoardSchema reads columns and priorities from a YAML file. An empty
// path yields the built-in schema.
//
//	columns:
//	  - id: Backlog
//	    title: Backlog
//	priorities: [low, medium, urgent]
func LoadBoardSchema(path string) (model.BoardSchema, error) {
	if path == "" {
		return model.DefaultBoardSchema(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.BoardSchema{}, fmt.Errorf("read board schema: %w", err)
	}

	var schema model.BoardSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return model.BoardSchema{}, fmt.Errorf("parse board schema %s: %w", path, err)
	}
	if err := schema.Validate(); err != nil {
		return model.BoardSchema{}, fmt.Errorf("board schema %s: %w", path, err)
	}
	return schema, nil
}
