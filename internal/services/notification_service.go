package services

import (
	"context"

	log "github.com/sirupsen/logrus"

	model "task-board.com/task-board/internal/models"
	"task-board.com/task-board/internal/queue"
	repository "task-board.com/task-board/internal/repositories"
)

type NotificationService struct {
	repo   *repository.NotificationRepository
	broker queue.Broker
	logger log.FieldLogger
}

func NewNotificationService(repo *repository.NotificationRepository, broker queue.Broker, logger log.FieldLogger) *NotificationService {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &NotificationService{
		repo:   repo,
		broker: broker,
		logger: logger.WithField("component", "notifications"),
	}
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]model.Notification, error) {
	return s.repo.ListForUser(ctx, userID)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, userID, id)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// Notify stores n and publishes it for push delivery. A publish failure is
// logged; the notification still reaches the user on the next refresh.
func (s *NotificationService) Notify(ctx context.Context, n model.Notification) error {
	if err := s.repo.Create(ctx, &n); err != nil {
		return err
	}
	if err := s.broker.Publish(ctx, n); err != nil {
		s.logger.WithError(err).WithField("notification_id", n.ID).Warn("publish failed")
	}
	return nil
}
