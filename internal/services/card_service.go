package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	log "github.com/sirupsen/logrus"

	"task-board.com/task-board/internal/constants"
	apperrors "task-board.com/task-board/internal/errors"
	model "task-board.com/task-board/internal/models"
	repository "task-board.com/task-board/internal/repositories"
)

const maxUpdateAttempts = 3

type CardService struct {
	repo          *repository.CardRepository
	notifications *NotificationService
	schema        model.BoardSchema
	logger        log.FieldLogger
}

func NewCardService(
	repo *repository.CardRepository,
	notifications *NotificationService,
	schema model.BoardSchema,
	logger log.FieldLogger,
) *CardService {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &CardService{
		repo:          repo,
		notifications: notifications,
		schema:        schema,
		logger:        logger.WithField("component", "cards"),
	}
}

func (s *CardService) Schema() model.BoardSchema {
	return s.schema
}

func (s *CardService) List(ctx context.Context) ([]model.Card, error) {
	return s.repo.List(ctx)
}

func (s *CardService) Get(ctx context.Context, id string) (*model.Card, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *CardService) Create(ctx context.Context, actor string, card model.Card) (*model.Card, error) {
	if err := s.schema.ValidateCard(card); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &card); err != nil {
		return nil, err
	}
	s.notify(ctx, changes(actor, nil, card))
	return &card, nil
}

// Update replaces every editable field of the stored card with card's.
// Concurrent writers are last-writer-wins; the version lock only guards the
// read-modify-write here.
func (s *CardService) Update(ctx context.Context, actor string, card model.Card) (*model.Card, error) {
	if card.ID == "" {
		return nil, apperrors.ErrCardIDRequired
	}
	if err := s.schema.ValidateCard(card); err != nil {
		return nil, err
	}
	return s.modify(ctx, actor, card.ID, func(current model.Card) model.Card {
		next := card.Clone()
		next.Version = current.Version
		next.Position = current.Position
		return next
	})
}

func (s *CardService) Move(ctx context.Context, actor, id string, status constants.CardStatus) (*model.Card, error) {
	if id == "" {
		return nil, apperrors.ErrCardIDRequired
	}
	if err := s.schema.ValidateStatus(status); err != nil {
		return nil, err
	}
	return s.modify(ctx, actor, id, func(current model.Card) model.Card {
		next := current.Clone()
		next.Status = status
		return next
	})
}

func (s *CardService) Delete(ctx context.Context, actor, id string) error {
	if id == "" {
		return apperrors.ErrCardIDRequired
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithFields(log.Fields{"card_id": id, "actor": actor}).Info("card deleted")
	return nil
}

func (s *CardService) modify(ctx context.Context, actor, id string, apply func(model.Card) model.Card) (*model.Card, error) {
	for attempt := 1; ; attempt++ {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		next := apply(*current)
		err = s.repo.Update(ctx, &next)
		if errors.Is(err, apperrors.ErrOptimisticLock) && attempt < maxUpdateAttempts {
			s.logger.WithFields(log.Fields{"card_id": id, "attempt": attempt}).Debug("optimistic lock conflict, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}

		s.notify(ctx, changes(actor, current, next))
		return &next, nil
	}
}

func (s *CardService) notify(ctx context.Context, pending []model.Notification) {
	for _, n := range pending {
		if err := s.notifications.Notify(ctx, n); err != nil {
			s.logger.WithError(err).WithFields(log.Fields{"user": n.UserID, "card_id": n.TaskID}).Warn("failed to store notification")
		}
	}
}

// changes lists the notifications a write from actor produces. before is nil
// for a new card. The actor is never notified of their own change.
func changes(actor string, before *model.Card, after model.Card) []model.Notification {
	var out []model.Notification
	add := func(userID string, typ constants.NotificationType, title, message string) {
		if userID == "" || userID == actor {
			return
		}
		out = append(out, model.Notification{
			Type:      typ,
			Title:     title,
			Message:   message,
			UserID:    userID,
			TaskID:    after.ID,
			TaskTitle: after.Title,
		})
	}

	var previous []string
	if before != nil {
		previous = before.Responsible
	}
	for _, u := range after.Responsible {
		if !slices.Contains(previous, u) {
			add(u, constants.NotificationTaskAssigned, "Task assigned",
				fmt.Sprintf("You were assigned to %q", after.Title))
		}
	}
	for _, u := range previous {
		if !slices.Contains(after.Responsible, u) {
			add(u, constants.NotificationTaskUnassigned, "Task unassigned",
				fmt.Sprintf("You were removed from %q", after.Title))
		}
	}
	if before != nil && before.Status != after.Status {
		for _, u := range after.Responsible {
			if slices.Contains(previous, u) {
				add(u, constants.NotificationTaskStatusChanged, "Task status changed",
					fmt.Sprintf("%q moved from %s to %s", after.Title, before.Status, after.Status))
			}
		}
	}
	return out
}
