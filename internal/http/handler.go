package http

import (
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"task-board.com/task-board/internal/constants"
	dto "task-board.com/task-board/internal/data_models"
	apperrors "task-board.com/task-board/internal/errors"
	"task-board.com/task-board/internal/http/validators"
	model "task-board.com/task-board/internal/models"
	"task-board.com/task-board/internal/services"
)

const maxBodySize = 1 << 20

type Handler struct {
	cardService         *services.CardService
	notificationService *services.NotificationService
	logger              log.FieldLogger
}

func NewHandler(cardService *services.CardService, notificationService *services.NotificationService, logger log.FieldLogger) *Handler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Handler{
		cardService:         cardService,
		notificationService: notificationService,
		logger:              logger.WithField("component", "http"),
	}
}

func (h *Handler) ListCards(c echo.Context) error {
	cards, err := h.cardService.List(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	if cards == nil {
		cards = []model.Card{}
	}
	return c.JSON(http.StatusOK, cards)
}

func (h *Handler) Schema(c echo.Context) error {
	return c.JSON(http.StatusOK, h.cardService.Schema())
}

func (h *Handler) CreateCard(c echo.Context) error {
	var card model.Card
	if err := decode(c, &card); err != nil {
		return err
	}
	if err := validators.ValidateCardPayload("", &card); err != nil {
		return err
	}

	created, err := h.cardService.Create(c.Request().Context(), actor(c), card)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) UpdateCard(c echo.Context) error {
	var card model.Card
	if err := decode(c, &card); err != nil {
		return err
	}
	if err := validators.ValidateCardPayload(c.Param("id"), &card); err != nil {
		return err
	}

	updated, err := h.cardService.Update(c.Request().Context(), actor(c), card)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) MoveCard(c echo.Context) error {
	var req dto.MoveCardRequest
	if err := decode(c, &req); err != nil {
		return err
	}
	if err := validators.ValidateMoveRequest(c.Param("id"), &req); err != nil {
		return err
	}

	card, err := h.cardService.Move(c.Request().Context(), actor(c), req.CardID, req.NewStatus)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dto.MoveCardResponse{CardID: card.ID, NewStatus: card.Status})
}

func (h *Handler) DeleteCard(c echo.Context) error {
	id := c.Param("id")
	if err := h.cardService.Delete(c.Request().Context(), actor(c), id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dto.DeleteCardResponse{CardID: id})
}

func (h *Handler) ListNotifications(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	list, err := h.notificationService.List(c.Request().Context(), user)
	if err != nil {
		return h.fail(c, err)
	}
	if list == nil {
		list = []model.Notification{}
	}
	return c.JSON(http.StatusOK, list)
}

func (h *Handler) UnreadCount(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	count, err := h.notificationService.UnreadCount(c.Request().Context(), user)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dto.UnreadCountResponse{Count: count})
}

func (h *Handler) MarkRead(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	if err := h.notificationService.MarkRead(c.Request().Context(), user, c.Param("id")); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	user, err := requireUser(c)
	if err != nil {
		return err
	}
	if err := h.notificationService.MarkAllRead(c.Request().Context(), user); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) fail(c echo.Context, err error) error {
	status := apperrors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).WithFields(log.Fields{
			"method": c.Request().Method,
			"path":   c.Path(),
		}).Error("request failed")
		return echo.NewHTTPError(status, "internal error")
	}
	return echo.NewHTTPError(status, err.Error())
}

func decode(c echo.Context, out any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(c.Request().Body, maxBodySize))
	if err := dec.Decode(out); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, apperrors.ErrInvalidJSON.Message)
	}
	return nil
}

func actor(c echo.Context) string {
	return strings.TrimSpace(c.Request().Header.Get(constants.UserHeader))
}

func requireUser(c echo.Context) (string, error) {
	user := actor(c)
	if user == "" {
		return "", echo.NewHTTPError(apperrors.ErrUserRequired.StatusCode, apperrors.ErrUserRequired.Message)
	}
	return user, nil
}
