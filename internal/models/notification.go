package model

import (
	"time"

	"task-board.com/task-board/internal/constants"
)

type Notification struct {
	ID        string                     `gorm:"primaryKey;size:64" json:"id"`
	Type      constants.NotificationType `gorm:"type:varchar(32);not null" json:"type"`
	Title     string                     `gorm:"not null" json:"title"`
	Message   string                     `gorm:"not null" json:"message"`
	IsRead    bool                       `gorm:"not null;default:false;index" json:"isRead"`
	CreatedAt time.Time                  `gorm:"index" json:"createdAt"`
	UserID    string                     `gorm:"size:64;not null;index" json:"userId"`
	TaskID    string                     `gorm:"size:64" json:"taskId,omitempty"`
	TaskTitle string                     `json:"taskTitle,omitempty"`
}

func (n Notification) Key() string {
	return n.ID
}
