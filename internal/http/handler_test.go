package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"task-board.com/task-board/internal/constants"
	dto "task-board.com/task-board/internal/data_models"
	model "task-board.com/task-board/internal/models"
	"task-board.com/task-board/internal/queue"
	"task-board.com/task-board/internal/reconcile"
	repository "task-board.com/task-board/internal/repositories"
	"task-board.com/task-board/internal/services"
)

type testBackend struct {
	echo     *echo.Echo
	hub      *Hub
	cards    *services.CardService
	registry *prometheus.Registry
}

func newTestBackend(t *testing.T, rateLimit int) *testBackend {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Card{}, &model.Notification{}))
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	cardRepo := repository.NewCardRepository(db)
	_, err = cardRepo.Seed(context.Background(), model.DemoCards(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	broker := queue.NewMemoryBroker()
	notificationService := services.NewNotificationService(repository.NewNotificationRepository(db), broker, nil)
	cardService := services.NewCardService(cardRepo, notificationService, model.DefaultBoardSchema(), nil)

	codec, err := reconcile.NewCodec()
	require.NoError(t, err)
	registry := prometheus.NewRegistry()
	hub, err := NewHub(codec, []string{"board.example.com"}, registry, nil)
	require.NoError(t, err)
	unsubscribe, err := broker.Subscribe(hub.Deliver)
	require.NoError(t, err)

	e := echo.New()
	Register(e, NewHandler(cardService, notificationService, nil), hub, registry, rateLimit)

	t.Cleanup(func() {
		unsubscribe()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = hub.Close(ctx)
	})
	return &testBackend{echo: e, hub: hub, cards: cardService, registry: registry}
}

func (b *testBackend) do(t *testing.T, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		payload, err := sonic.MarshalString(body)
		require.NoError(t, err)
		reader = strings.NewReader(payload)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if user != "" {
		req.Header.Set(constants.UserHeader, user)
	}
	rec := httptest.NewRecorder()
	b.echo.ServeHTTP(rec, req)
	return rec
}

func TestHandler_ListCards(t *testing.T) {
	b := newTestBackend(t, 100)

	rec := b.do(t, http.MethodGet, "/cards", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var cards []model.Card
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &cards))
	require.Len(t, cards, 2)
	assert.Equal(t, "1", cards[0].ID)
}

func TestHandler_MoveCardEchoesAcceptedState(t *testing.T) {
	b := newTestBackend(t, 100)

	rec := b.do(t, http.MethodPatch, "/cards/1/status", "admin", dto.MoveCardRequest{CardID: "1", NewStatus: constants.StatusDoing})
	require.Equal(t, http.StatusOK, rec.Code)

	var res dto.MoveCardResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, dto.MoveCardResponse{CardID: "1", NewStatus: constants.StatusDoing}, res)
}

func TestHandler_MoveCardErrors(t *testing.T) {
	b := newTestBackend(t, 100)

	rec := b.do(t, http.MethodPatch, "/cards/1/status", "", dto.MoveCardRequest{NewStatus: "Nowhere"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = b.do(t, http.MethodPatch, "/cards/404/status", "", dto.MoveCardRequest{NewStatus: constants.StatusDoing})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = b.do(t, http.MethodPatch, "/cards/1/status", "", dto.MoveCardRequest{CardID: "2", NewStatus: constants.StatusDoing})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPatch, "/cards/1/status", strings.NewReader("{"))
	raw := httptest.NewRecorder()
	b.echo.ServeHTTP(raw, req)
	assert.Equal(t, http.StatusBadRequest, raw.Code)
}

func TestHandler_CreateUpdateDelete(t *testing.T) {
	b := newTestBackend(t, 100)

	card := model.Card{
		Title:       "Ship release",
		Responsible: []string{"ana"},
		Status:      constants.StatusToDo,
		Deadline:    "2026-06-01",
		Priority:    constants.PriorityLow,
		Tags:        []model.Tag{},
		Comments:    []model.Comment{},
	}
	rec := b.do(t, http.MethodPost, "/cards", "admin", card)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Card
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	created.Title = "Ship release 2"
	rec = b.do(t, http.MethodPut, "/cards/"+created.ID, "admin", created)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated model.Card
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Ship release 2", updated.Title)

	rec = b.do(t, http.MethodDelete, "/cards/"+created.ID, "admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted dto.DeleteCardResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &deleted))
	assert.Equal(t, created.ID, deleted.CardID)

	rec = b.do(t, http.MethodDelete, "/cards/"+created.ID, "admin", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_NotificationsRequireUser(t *testing.T) {
	b := newTestBackend(t, 100)

	rec := b.do(t, http.MethodGet, "/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = b.do(t, http.MethodGet, "/notifications/unread-count", "User", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var count dto.UnreadCountResponse
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &count))
	assert.Equal(t, 0, count.Count)
}

func TestHandler_MoveGeneratesNotificationForResponsible(t *testing.T) {
	b := newTestBackend(t, 100)

	rec := b.do(t, http.MethodPatch, "/cards/1/status", "admin", dto.MoveCardRequest{NewStatus: constants.StatusBlocked})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = b.do(t, http.MethodGet, "/notifications", "User", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Notification
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, constants.NotificationTaskStatusChanged, list[0].Type)
	assert.False(t, list[0].IsRead)

	rec = b.do(t, http.MethodPost, "/notifications/"+list[0].ID+"/read", "User", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = b.do(t, http.MethodPost, "/notifications/"+list[0].ID+"/read", "someone-else", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = b.do(t, http.MethodPost, "/notifications/mark-all-read", "User", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_RateLimit(t *testing.T) {
	b := newTestBackend(t, 2)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/cards", "ana", nil).Code)
	}
	rec := b.do(t, http.MethodGet, "/cards", "ana", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, b.do(t, http.MethodGet, "/cards", "bo", nil).Code)
}

func TestHandler_Metrics(t *testing.T) {
	b := newTestBackend(t, 100)

	rec := b.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "taskboard_push_connections")
}
