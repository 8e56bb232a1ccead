package model

import (
	"time"

	"task-board.com/task-board/internal/constants"
)

// DemoCards is the board a fresh backend starts with.
func DemoCards(now time.Time) []Card {
	return []Card{
		{
			ID:          "1",
			Title:       "Implementar Drag and Drop",
			Responsible: []string{"User"},
			Status:      constants.StatusBacklog,
			Deadline:    "2026-03-01",
			Priority:    constants.PriorityUrgent,
			Tags: []Tag{
				{ID: "t1", Name: "Frontend", Color: "#3b82f6"},
				{ID: "t2", Name: "UI/UX", Color: "#10b981"},
			},
			Comments: []Comment{
				{ID: "c1", Author: "Admin", Content: "Precisamos usar @dnd-kit para isso.", CreatedAt: now.UTC()},
			},
		},
		{
			ID:          "2",
			Title:       "Configurar Layout Notion",
			Responsible: []string{"User"},
			Status:      constants.StatusToDo,
			Deadline:    "2026-02-20",
			Priority:    constants.PriorityMedium,
			Tags:        []Tag{{ID: "t3", Name: "Design", Color: "#f59e0b"}},
			Comments:    []Comment{},
			Attachments: []string{"cv-pt.pdf"},
		},
	}
}
