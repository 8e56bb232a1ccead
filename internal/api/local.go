package api

import (
	"context"
	"sync"

	"task-board.com/task-board/internal/constants"
	dto "task-board.com/task-board/internal/data_models"
	apperrors "task-board.com/task-board/internal/errors"
	model "task-board.com/task-board/internal/models"
)

// Local is an in-process backend that settles every request immediately.
// It serves offline use of the CLI and tests that do not need a network.
type Local struct {
	mu            sync.Mutex
	cards         []model.Card
	notifications []model.Notification
}

func NewLocal(cards []model.Card, notifications []model.Notification) *Local {
	l := &Local{}
	for _, c := range cards {
		l.cards = append(l.cards, c.Clone())
	}
	l.notifications = append(l.notifications, notifications...)
	return l
}

func (l *Local) ListCards(ctx context.Context) ([]model.Card, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.Card, 0, len(l.cards))
	for _, c := range l.cards {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (l *Local) MoveCard(ctx context.Context, cardID string, status constants.CardStatus) (dto.MoveCardResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.cardIndex(cardID)
	if i < 0 {
		return dto.MoveCardResponse{}, apperrors.ErrCardNotFound
	}
	l.cards[i].Status = status
	return dto.MoveCardResponse{CardID: cardID, NewStatus: status}, nil
}

func (l *Local) UpdateCard(ctx context.Context, card model.Card) (model.Card, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.cardIndex(card.ID)
	if i < 0 {
		return model.Card{}, apperrors.ErrCardNotFound
	}
	l.cards[i] = card.Clone()
	return card, nil
}

func (l *Local) CreateCard(ctx context.Context, card model.Card) (model.Card, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cardIndex(card.ID) >= 0 {
		return model.Card{}, apperrors.ErrCardExists
	}
	l.cards = append(l.cards, card.Clone())
	return card, nil
}

func (l *Local) DeleteCard(ctx context.Context, cardID string) (dto.DeleteCardResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i := l.cardIndex(cardID); i >= 0 {
		l.cards = append(l.cards[:i], l.cards[i+1:]...)
	}
	return dto.DeleteCardResponse{CardID: cardID}, nil
}

func (l *Local) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Notification(nil), l.notifications...), nil
}

func (l *Local) UnreadCount(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := 0
	for _, n := range l.notifications {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (l *Local) MarkRead(ctx context.Context, notificationID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.notifications {
		if l.notifications[i].ID == notificationID {
			l.notifications[i].IsRead = true
			return nil
		}
	}
	return apperrors.ErrNotificationNotFound
}

func (l *Local) MarkAllRead(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.notifications {
		l.notifications[i].IsRead = true
	}
	return nil
}

// Notify prepends n as if the backend had generated it.
func (l *Local) Notify(n model.Notification) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notifications = append([]model.Notification{n}, l.notifications...)
}

func (l *Local) cardIndex(id string) int {
	for i, c := range l.cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}
