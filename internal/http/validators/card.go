package validators

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	dto "task-board.com/task-board/internal/data_models"
	model "task-board.com/task-board/internal/models"
)

// ValidateCardPayload checks what the service cannot: that the body agrees
// with the path. pathID is empty for creation.
func ValidateCardPayload(pathID string, card *model.Card) error {
	if pathID != "" {
		if card.ID == "" {
			card.ID = pathID
		}
		if card.ID != pathID {
			return echo.NewHTTPError(http.StatusBadRequest, "card id does not match path")
		}
	}
	if strings.TrimSpace(card.Title) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	return nil
}

func ValidateMoveRequest(pathID string, r *dto.MoveCardRequest) error {
	if r.CardID == "" {
		r.CardID = pathID
	}
	if r.CardID != pathID {
		return echo.NewHTTPError(http.StatusBadRequest, "card id does not match path")
	}
	if strings.TrimSpace(string(r.NewStatus)) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "newStatus is required")
	}
	return nil
}
