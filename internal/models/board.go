package model

import (
	"strings"
	"time"

	"task-board.com/task-board/internal/constants"
	apperrors "task-board.com/task-board/internal/errors"
)

type Column struct {
	ID    constants.CardStatus `yaml:"id" json:"id"`
	Title string               `yaml:"title" json:"title"`
}

// BoardSchema is the externally supplied set of columns and priority levels.
// Neither set is hardcoded in the client core.
type BoardSchema struct {
	Columns    []Column             `yaml:"columns" json:"columns"`
	Priorities []constants.Priority `yaml:"priorities" json:"priorities"`
}

func DefaultBoardSchema() BoardSchema {
	columns := make([]Column, 0, len(constants.DefaultStatuses))
	for _, s := range constants.DefaultStatuses {
		columns = append(columns, Column{ID: s, Title: string(s)})
	}
	return BoardSchema{
		Columns:    columns,
		Priorities: append([]constants.Priority(nil), constants.DefaultPriorities...),
	}
}

func (b BoardSchema) Validate() error {
	if len(b.Columns) == 0 {
		return apperrors.Invalid("columns", "at least one column is required")
	}
	seen := make(map[constants.CardStatus]struct{}, len(b.Columns))
	for _, c := range b.Columns {
		if strings.TrimSpace(string(c.ID)) == "" {
			return apperrors.Invalid("columns", "column id must not be empty")
		}
		if _, dup := seen[c.ID]; dup {
			return apperrors.Invalid("columns", "duplicate column %q", c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	if len(b.Priorities) == 0 {
		return apperrors.Invalid("priorities", "at least one priority is required")
	}
	return nil
}

func (b BoardSchema) HasColumn(status constants.CardStatus) bool {
	for _, c := range b.Columns {
		if c.ID == status {
			return true
		}
	}
	return false
}

func (b BoardSchema) HasPriority(p constants.Priority) bool {
	for _, candidate := range b.Priorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// ValidateStatus rejects a status that names no defined column.
func (b BoardSchema) ValidateStatus(status constants.CardStatus) error {
	if !b.HasColumn(status) {
		return apperrors.Invalid("status", "unknown column %q", status)
	}
	return nil
}

// ValidateCard checks the fields that can be checked without the server.
func (b BoardSchema) ValidateCard(c Card) error {
	if strings.TrimSpace(c.Title) == "" {
		return apperrors.Invalid("title", "title is required")
	}
	if len(c.Responsible) == 0 {
		return apperrors.Invalid("responsible", "at least one responsible is required")
	}
	for _, r := range c.Responsible {
		if strings.TrimSpace(r) == "" {
			return apperrors.Invalid("responsible", "responsible must not be empty")
		}
	}
	if err := b.ValidateStatus(c.Status); err != nil {
		return err
	}
	if !b.HasPriority(c.Priority) {
		return apperrors.Invalid("priority", "unknown priority %q", c.Priority)
	}
	if c.Deadline != "" {
		if _, err := time.Parse(constants.DateLayout, c.Deadline); err != nil {
			return apperrors.Invalid("deadline", "deadline must be a calendar date (YYYY-MM-DD)")
		}
	}
	return nil
}
