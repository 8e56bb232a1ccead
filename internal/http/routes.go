package http

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	middleware "task-board.com/task-board/internal/http/middlewares"
)

func Register(e *echo.Echo, h *Handler, hub *Hub, gatherer prometheus.Gatherer, rateLimitPerMinute int) {
	e.GET("/ws", hub.ServeWS)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := e.Group("", middleware.NewRateLimiter(rateLimitPerMinute, time.Minute).Middleware())

	api.GET("/board/schema", h.Schema)

	api.GET("/cards", h.ListCards)
	api.POST("/cards", h.CreateCard)
	api.PUT("/cards/:id", h.UpdateCard)
	api.PATCH("/cards/:id/status", h.MoveCard)
	api.DELETE("/cards/:id", h.DeleteCard)

	api.GET("/notifications", h.ListNotifications)
	api.GET("/notifications/unread-count", h.UnreadCount)
	api.POST("/notifications/mark-all-read", h.MarkAllRead)
	api.POST("/notifications/:id/read", h.MarkRead)
}
