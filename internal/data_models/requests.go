package dto

import (
	"github.com/bytedance/sonic"

	"task-board.com/task-board/internal/constants"
)

type MoveCardRequest struct {
	CardID    string               `json:"cardId"`
	NewStatus constants.CardStatus `json:"newStatus"`
}

type MoveCardResponse = MoveCardRequest

type DeleteCardResponse struct {
	CardID string `json:"cardId"`
}

type MarkReadRequest struct {
	NotificationID string `json:"notificationId"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

// PushFrame is one message on the push channel in either direction.
type PushFrame struct {
	Event string                 `json:"event"`
	Data  sonic.NoCopyRawMessage `json:"data,omitempty"`
}

type AuthenticatePayload struct {
	UserID string `json:"userId"`
}
