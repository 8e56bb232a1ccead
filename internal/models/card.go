package model

import (
	"slices"

	"task-board.com/task-board/internal/constants"
)

type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type Card struct {
	ID          string               `gorm:"primaryKey;size:64" json:"id"`
	Title       string               `gorm:"not null" json:"title"`
	Description string               `json:"description,omitempty"`
	Responsible []string             `gorm:"serializer:json" json:"responsible"`
	Status      constants.CardStatus `gorm:"type:varchar(40);not null;index" json:"status"`
	Deadline    string               `gorm:"size:10" json:"deadline"`
	Priority    constants.Priority   `gorm:"type:varchar(20);not null" json:"priority"`
	Tags        []Tag                `gorm:"serializer:json" json:"tags"`
	Comments    []Comment            `gorm:"serializer:json" json:"comments"`
	Attachments []string             `gorm:"serializer:json" json:"attachments,omitempty"`
	Version     uint                 `gorm:"not null;default:1" json:"version,omitempty"`
	Position    int64                `gorm:"not null;index" json:"-"`
}

func (c Card) Key() string {
	return c.ID
}

// Clone returns a copy that shares no slices with c.
func (c Card) Clone() Card {
	out := c
	out.Responsible = slices.Clone(c.Responsible)
	out.Tags = slices.Clone(c.Tags)
	out.Comments = slices.Clone(c.Comments)
	out.Attachments = slices.Clone(c.Attachments)
	return out
}

// IsResponsible reports whether userID is one of the card's responsibles.
func (c Card) IsResponsible(userID string) bool {
	for _, r := range c.Responsible {
		if r == userID {
			return true
		}
	}
	return false
}
