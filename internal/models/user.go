package model

import (
	"strings"

	"task-board.com/task-board/internal/constants"
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Identity is the push channel identity: the user id, then the email, never empty.
func (u User) Identity() string {
	if id := strings.TrimSpace(u.ID); id != "" {
		return id
	}
	if email := strings.TrimSpace(u.Email); email != "" {
		return email
	}
	return constants.UnknownIdentity
}
