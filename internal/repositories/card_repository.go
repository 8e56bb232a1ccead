package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "task-board.com/task-board/internal/errors"
	model "task-board.com/task-board/internal/models"
)

type CardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) *CardRepository {
	return &CardRepository{db: db}
}

// List returns every card in board order.
func (r *CardRepository) List(ctx context.Context) ([]model.Card, error) {
	var cards []model.Card
	err := r.db.WithContext(ctx).Order("position asc").Find(&cards).Error
	return cards, err
}

func (r *CardRepository) FindByID(ctx context.Context, id string) (*model.Card, error) {
	var card model.Card
	err := r.db.WithContext(ctx).First(&card, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrCardNotFound
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// Create appends card at the end of the board. An empty id is replaced with
// a generated one.
func (r *CardRepository) Create(ctx context.Context, card *model.Card) error {
	if card.ID == "" {
		card.ID = uuid.NewString()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Card{}).Where("id = ?", card.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.ErrCardExists
		}

		var last struct{ Max int64 }
		if err := tx.Model(&model.Card{}).Select("COALESCE(MAX(position), 0) AS max").Scan(&last).Error; err != nil {
			return err
		}
		card.Position = last.Max + 1
		card.Version = 1
		return tx.Create(card).Error
	})
}

// Update writes every field of card, guarded by the version it was read at.
func (r *CardRepository) Update(ctx context.Context, card *model.Card) error {
	res := r.db.WithContext(ctx).Model(&model.Card{}).
		Where("id = ? AND version = ?", card.ID, card.Version).
		Updates(map[string]interface{}{
			"title":       card.Title,
			"description": card.Description,
			"responsible": serialized(card.Responsible),
			"status":      card.Status,
			"deadline":    card.Deadline,
			"priority":    card.Priority,
			"tags":        serialized(card.Tags),
			"comments":    serialized(card.Comments),
			"attachments": serialized(card.Attachments),
			"version":     gorm.Expr("version + 1"),
		})

	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return apperrors.ErrOptimisticLock
	}

	card.Version++
	return nil
}

func (r *CardRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&model.Card{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrCardNotFound
	}
	return nil
}

// Seed inserts cards when the board is empty. It reports whether it did.
func (r *CardRepository) Seed(ctx context.Context, cards []model.Card) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Card{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	for i := range cards {
		card := cards[i].Clone()
		if err := r.Create(ctx, &card); err != nil {
			return false, err
		}
	}
	return true, nil
}
