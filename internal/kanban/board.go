// Package kanban keeps the board's cards in an optimistic client cache.
//
// Moves, edits, additions and deletions show up in the cache before the
// backend answers. The backend's answer then overwrites the optimistic guess.
// Refreshes replace the whole collection in arrival order, so a refresh that
// was generated before an in-flight mutation but delivered after it can
// briefly show the older value. That window is accepted; nothing here orders
// writes by timestamp.
package kanban

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"task-board.com/task-board/internal/constants"
	dto "task-board.com/task-board/internal/data_models"
	apperrors "task-board.com/task-board/internal/errors"
	model "task-board.com/task-board/internal/models"
	"task-board.com/task-board/internal/mutation"
	"task-board.com/task-board/internal/reconcile"
	"task-board.com/task-board/internal/store"
)

type CardAPI interface {
	ListCards(ctx context.Context) ([]model.Card, error)
	MoveCard(ctx context.Context, cardID string, status constants.CardStatus) (dto.MoveCardResponse, error)
	UpdateCard(ctx context.Context, card model.Card) (model.Card, error)
	CreateCard(ctx context.Context, card model.Card) (model.Card, error)
	DeleteCard(ctx context.Context, cardID string) (dto.DeleteCardResponse, error)
}

type Options struct {
	Schema model.BoardSchema
	// RefreshInterval of zero disables periodic refresh; Refresh still works.
	RefreshInterval time.Duration
	Logger          log.FieldLogger
	Metrics         *mutation.Metrics
	OnError         func(error)
	Now             func() time.Time
	NewID           func() string
}

type Board struct {
	api     CardAPI
	schema  model.BoardSchema
	cards   *store.Store[model.Card]
	exec    *mutation.Executor
	poller  *reconcile.Poller
	logger  log.FieldLogger
	loading atomic.Bool
	now     func() time.Time
	newID   func() string
}

func New(api CardAPI, opts Options) (*Board, error) {
	schema := opts.Schema
	if len(schema.Columns) == 0 && len(schema.Priorities) == 0 {
		schema = model.DefaultBoardSchema()
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	logger = logger.WithField("component", "board")

	b := &Board{
		api:    api,
		schema: schema,
		cards:  store.New[model.Card](),
		exec:   mutation.NewExecutor(mutation.Options{Logger: logger, Metrics: opts.Metrics}),
		logger: logger,
		now:    opts.Now,
		newID:  opts.NewID,
	}
	if b.now == nil {
		b.now = time.Now
	}
	if b.newID == nil {
		b.newID = uuid.NewString
	}
	b.poller = reconcile.NewPoller("cards", opts.RefreshInterval, b.Refresh, reconcile.PollerOptions{
		Logger:  logger,
		OnError: opts.OnError,
	})
	return b, nil
}

func (b *Board) Schema() model.BoardSchema {
	return b.schema
}

func (b *Board) Columns() []model.Column {
	return append([]model.Column(nil), b.schema.Columns...)
}

func (b *Board) Cards() []model.Card {
	return b.cards.Get()
}

func (b *Board) Card(id string) (model.Card, bool) {
	return b.cards.Find(id)
}

// CardsInColumn returns the cards whose status is the given column, in cache order.
func (b *Board) CardsInColumn(status constants.CardStatus) []model.Card {
	var out []model.Card
	for _, c := range b.cards.Get() {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out
}

// Subscribe signals after every cache write.
func (b *Board) Subscribe() (<-chan struct{}, func()) {
	return b.cards.Subscribe()
}

// IsLoading is true while the initial load or any mutation is pending.
func (b *Board) IsLoading() bool {
	return b.loading.Load() || b.exec.InFlight() > 0
}

// Load performs the initial fetch.
func (b *Board) Load(ctx context.Context) error {
	b.loading.Store(true)
	defer b.loading.Store(false)
	return b.Refresh(ctx)
}

// Refresh replaces the cache with the backend's cards. On failure the cache
// keeps its last known state.
func (b *Board) Refresh(ctx context.Context) error {
	cards, err := b.api.ListCards(ctx)
	if err != nil {
		return &apperrors.FetchFailed{Resource: "cards", Cause: err}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.cards.ReplaceAll(cards)
	b.logger.WithField("count", len(cards)).Debug("cards refreshed")
	return nil
}

// Start enables periodic refresh.
func (b *Board) Start(ctx context.Context) {
	b.poller.Start(ctx)
}

// Close stops periodic refresh and waits for in-flight mutations.
func (b *Board) Close(ctx context.Context) error {
	b.poller.Stop()
	return b.exec.Drain(ctx)
}

// Move reassigns a card to another column. The cache changes before the
// request is sent; a later Move for the same card supersedes this one.
func (b *Board) Move(ctx context.Context, cardID string, status constants.CardStatus) (*mutation.Call, error) {
	if strings.TrimSpace(cardID) == "" {
		return nil, apperrors.Invalid("cardId", "card id is required")
	}
	if err := b.schema.ValidateStatus(status); err != nil {
		return nil, err
	}

	optimistic := func() {
		b.cards.UpdateWhere(cardID, func(c *model.Card) { c.Status = status })
	}
	request := func(ctx context.Context) (func(), error) {
		res, err := b.api.MoveCard(ctx, cardID, status)
		if err != nil {
			return nil, err
		}
		return func() {
			b.cards.UpdateWhere(res.CardID, func(c *model.Card) { c.Status = res.NewStatus })
		}, nil
	}
	return b.exec.Go(ctx, mutation.KindMove, cardID, optimistic, request), nil
}

// Update replaces every field of an existing card.
func (b *Board) Update(ctx context.Context, card model.Card) (*mutation.Call, error) {
	if strings.TrimSpace(card.ID) == "" {
		return nil, apperrors.Invalid("id", "card id is required")
	}
	if err := b.schema.ValidateCard(card); err != nil {
		return nil, err
	}
	if current, ok := b.cards.Find(card.ID); ok {
		if err := checkCommentsAppendOnly(current.Comments, card.Comments); err != nil {
			return nil, err
		}
	}

	card = card.Clone()
	optimistic := func() {
		b.cards.UpdateWhere(card.ID, func(c *model.Card) { *c = card })
	}
	request := func(ctx context.Context) (func(), error) {
		canonical, err := b.api.UpdateCard(ctx, card)
		if err != nil {
			return nil, err
		}
		return func() {
			b.cards.UpdateWhere(canonical.ID, func(c *model.Card) { *c = canonical })
		}, nil
	}
	return b.exec.Go(ctx, mutation.KindUpdate, card.ID, optimistic, request), nil
}

// Add inserts a new card. A card without an id gets a client-generated one;
// the backend may answer with a different id, which then takes its slot.
// A card deleted before the backend answers stays deleted.
func (b *Board) Add(ctx context.Context, card model.Card) (*mutation.Call, error) {
	card = card.Clone()
	if strings.TrimSpace(card.ID) == "" {
		card.ID = b.newID()
	} else if _, exists := b.cards.Find(card.ID); exists {
		return nil, apperrors.Invalid("id", "card %q already exists", card.ID)
	}
	if card.Tags == nil {
		card.Tags = []model.Tag{}
	}
	if card.Comments == nil {
		card.Comments = []model.Comment{}
	}
	if err := b.schema.ValidateCard(card); err != nil {
		return nil, err
	}

	optimistic := func() {
		b.cards.Upsert(card)
	}
	request := func(ctx context.Context) (func(), error) {
		canonical, err := b.api.CreateCard(ctx, card)
		if err != nil {
			return nil, err
		}
		return func() {
			b.cards.Rekey(card.ID, canonical)
		}, nil
	}
	return b.exec.Go(ctx, mutation.KindAdd, card.ID, optimistic, request), nil
}

func (b *Board) Delete(ctx context.Context, cardID string) (*mutation.Call, error) {
	if strings.TrimSpace(cardID) == "" {
		return nil, apperrors.Invalid("cardId", "card id is required")
	}

	optimistic := func() {
		b.cards.Remove(cardID)
	}
	request := func(ctx context.Context) (func(), error) {
		res, err := b.api.DeleteCard(ctx, cardID)
		if err != nil {
			return nil, err
		}
		return func() {
			b.cards.Remove(res.CardID)
		}, nil
	}
	return b.exec.Go(ctx, mutation.KindDelete, cardID, optimistic, request), nil
}

// AddComment appends a comment to a card through Update.
func (b *Board) AddComment(ctx context.Context, cardID, author, content string) (*mutation.Call, error) {
	current, ok := b.cards.Find(cardID)
	if !ok {
		return nil, apperrors.Invalid("cardId", "unknown card %q", cardID)
	}
	if strings.TrimSpace(author) == "" {
		return nil, apperrors.Invalid("author", "author is required")
	}
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.Invalid("content", "comment must not be empty")
	}

	updated := current.Clone()
	updated.Comments = append(updated.Comments, model.Comment{
		ID:        b.newID(),
		Author:    author,
		Content:   content,
		CreatedAt: b.now().UTC(),
	})
	return b.Update(ctx, updated)
}

func checkCommentsAppendOnly(current, next []model.Comment) error {
	if len(next) < len(current) {
		return apperrors.Invalid("comments", "comments are append-only")
	}
	for i := range current {
		if current[i].ID != next[i].ID {
			return apperrors.Invalid("comments", "comments are append-only")
		}
	}
	return nil
}
