package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"task-board.com/task-board/internal/constants"
	apperrors "task-board.com/task-board/internal/errors"
	model "task-board.com/task-board/internal/models"
	"task-board.com/task-board/internal/queue"
	repository "task-board.com/task-board/internal/repositories"
)

// recorder collects everything published on a broker.
type recorder struct {
	mu   sync.Mutex
	seen []model.Notification
}

func (r *recorder) handle(n model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n)
}

func (r *recorder) all() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Notification(nil), r.seen...)
}

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(&model.Card{}, &model.Notification{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	return db
}

func setupServices(t *testing.T) (*CardService, *NotificationService, *recorder) {
	db := setupTestDB(t)
	broker := queue.NewMemoryBroker()
	rec := &recorder{}
	unsubscribe, err := broker.Subscribe(rec.handle)
	require.NoError(t, err)
	t.Cleanup(unsubscribe)

	notifications := NewNotificationService(repository.NewNotificationRepository(db), broker, nil)
	cards := NewCardService(repository.NewCardRepository(db), notifications, model.DefaultBoardSchema(), nil)
	return cards, notifications, rec
}

func newCard(responsible ...string) model.Card {
	return model.Card{
		Title:       "Write docs",
		Responsible: responsible,
		Status:      constants.StatusBacklog,
		Deadline:    "2026-05-01",
		Priority:    constants.PriorityMedium,
		Tags:        []model.Tag{},
		Comments:    []model.Comment{},
	}
}

func TestCardService_CreateNotifiesResponsibles(t *testing.T) {
	cards, notifications, rec := setupServices(t)
	ctx := context.Background()

	card, err := cards.Create(ctx, "admin", newCard("ana", "admin"))
	require.NoError(t, err)
	assert.NotEmpty(t, card.ID)

	published := rec.all()
	require.Len(t, published, 1)
	assert.Equal(t, "ana", published[0].UserID)
	assert.Equal(t, constants.NotificationTaskAssigned, published[0].Type)
	assert.Equal(t, card.ID, published[0].TaskID)

	count, err := notifications.UnreadCount(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCardService_MoveNotifiesStatusChange(t *testing.T) {
	cards, _, rec := setupServices(t)
	ctx := context.Background()

	card, err := cards.Create(ctx, "admin", newCard("ana"))
	require.NoError(t, err)

	moved, err := cards.Move(ctx, "admin", card.ID, constants.StatusDoing)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusDoing, moved.Status)
	assert.Equal(t, uint(2), moved.Version)

	published := rec.all()
	require.Len(t, published, 2)
	assert.Equal(t, constants.NotificationTaskStatusChanged, published[1].Type)
	assert.Contains(t, published[1].Message, "Doing")
}

func TestCardService_MoveRejectsUnknownColumn(t *testing.T) {
	cards, _, _ := setupServices(t)
	ctx := context.Background()

	card, err := cards.Create(ctx, "admin", newCard("ana"))
	require.NoError(t, err)

	_, err = cards.Move(ctx, "admin", card.ID, "Nowhere")
	var vErr *apperrors.ValidationError
	require.ErrorAs(t, err, &vErr)

	stored, err := cards.Get(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusBacklog, stored.Status)
}

func TestCardService_UpdateDiffsResponsibles(t *testing.T) {
	cards, _, rec := setupServices(t)
	ctx := context.Background()

	card, err := cards.Create(ctx, "admin", newCard("ana", "bo"))
	require.NoError(t, err)

	edited := card.Clone()
	edited.Responsible = []string{"bo", "cy"}
	edited.Version = 0
	updated, err := cards.Update(ctx, "admin", edited)
	require.NoError(t, err)
	assert.Equal(t, []string{"bo", "cy"}, updated.Responsible)

	byUser := map[string]constants.NotificationType{}
	for _, n := range rec.all()[2:] {
		byUser[n.UserID] = n.Type
	}
	assert.Equal(t, map[string]constants.NotificationType{
		"cy":  constants.NotificationTaskAssigned,
		"ana": constants.NotificationTaskUnassigned,
	}, byUser)
}

func TestCardService_ConcurrentMovesAllApply(t *testing.T) {
	cards, _, _ := setupServices(t)
	ctx := context.Background()

	card, err := cards.Create(ctx, "admin", newCard("ana"))
	require.NoError(t, err)

	statuses := []constants.CardStatus{constants.StatusToDo, constants.StatusDoing, constants.StatusBlocked}
	var wg sync.WaitGroup
	errs := make(chan error, len(statuses))
	for _, st := range statuses {
		wg.Add(1)
		go func(st constants.CardStatus) {
			defer wg.Done()
			if _, err := cards.Move(ctx, "admin", card.ID, st); err != nil {
				errs <- err
			}
		}(st)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent move failed: %v", err)
	}

	stored, err := cards.Get(ctx, card.ID)
	require.NoError(t, err)
	assert.Contains(t, statuses, stored.Status)
}

func TestCardService_DeleteMissing(t *testing.T) {
	cards, _, _ := setupServices(t)

	err := cards.Delete(context.Background(), "admin", "missing")
	assert.ErrorIs(t, err, apperrors.ErrCardNotFound)
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	_, notifications, rec := setupServices(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, notifications.Notify(ctx, model.Notification{
			Type:      constants.NotificationTaskAssigned,
			Title:     "Task assigned",
			Message:   "m",
			UserID:    "ana",
			CreatedAt: time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC),
		}))
	}
	assert.Len(t, rec.all(), 3)

	require.NoError(t, notifications.MarkAllRead(ctx, "ana"))
	count, err := notifications.UnreadCount(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
