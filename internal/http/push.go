package http

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"nhooyr.io/websocket"

	"task-board.com/task-board/internal/constants"
	dto "task-board.com/task-board/internal/data_models"
	model "task-board.com/task-board/internal/models"
	"task-board.com/task-board/internal/reconcile"
)

const (
	authenticateTimeout = 10 * time.Second
	writeTimeout        = 10 * time.Second
	sendBuffer          = 16
)

type pushClient struct {
	user string
	send chan []byte
}

// Hub keeps the authenticated websocket connections and delivers each
// notification to every connection of its user.
type Hub struct {
	codec       *reconcile.Codec
	origins     []string
	logger      log.FieldLogger
	connections prometheus.Gauge

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	users map[string]map[*pushClient]struct{}
}

// NewHub registers the connection gauge on reg when reg is non-nil. Browser
// upgrades are accepted from the server's own host and from hosts matching
// origins (path.Match patterns such as "*.example.com").
func NewHub(codec *reconcile.Codec, origins []string, reg prometheus.Registerer, logger log.FieldLogger) (*Hub, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "taskboard",
		Name:      "push_connections",
		Help:      "Authenticated push connections.",
	})
	if reg != nil {
		if err := reg.Register(gauge); err != nil {
			return nil, err
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		codec:       codec,
		origins:     origins,
		logger:      logger.WithField("component", "hub"),
		connections: gauge,
		ctx:         ctx,
		cancel:      cancel,
		users:       make(map[string]map[*pushClient]struct{}),
	}, nil
}

// Deliver sends n to every connection of n.UserID. A connection whose
// buffer is full misses the notification and catches up on its next refresh.
func (h *Hub) Deliver(n model.Notification) {
	frame, err := h.codec.Encode(constants.EventNotification, n)
	if err != nil {
		h.logger.WithError(err).Error("encode notification")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.users[n.UserID] {
		select {
		case client.send <- frame:
		default:
			h.logger.WithField("user", n.UserID).Warn("push buffer full, dropping notification")
		}
	}
}

// Connections reports how many connections user holds.
func (h *Hub) Connections(user string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.users[user])
}

func (h *Hub) ServeWS(c echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.logger.WithError(err).WithField("origin", c.Request().Header.Get("Origin")).Info("push upgrade rejected")
		return nil
	}

	h.wg.Add(1)
	defer h.wg.Done()

	user, err := h.authenticate(conn)
	if err != nil {
		h.logger.WithError(err).Info("push authentication failed")
		if frame, encErr := h.codec.Encode(constants.EventError, map[string]string{"message": err.Error()}); encErr == nil {
			ctx, cancel := context.WithTimeout(h.ctx, writeTimeout)
			_ = conn.Write(ctx, websocket.MessageText, frame)
			cancel()
		}
		_ = conn.Close(websocket.StatusPolicyViolation, "authentication required")
		return nil
	}

	client := &pushClient{user: user, send: make(chan []byte, sendBuffer)}
	h.register(client)
	defer h.unregister(client)

	h.serve(conn, client)
	return nil
}

func (h *Hub) authenticate(conn *websocket.Conn) (string, error) {
	ctx, cancel := context.WithTimeout(h.ctx, authenticateTimeout)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		return "", err
	}
	frame, err := h.codec.Decode(data)
	if err != nil {
		return "", err
	}
	if frame.Event != constants.EventAuthenticate {
		return "", errors.New("expected authenticate")
	}
	payload, err := h.codec.Authenticate(frame.Data)
	if err != nil {
		return "", err
	}

	ack, err := h.codec.Encode(constants.EventAuthenticated, dto.AuthenticatePayload{UserID: payload.UserID})
	if err != nil {
		return "", err
	}
	if err := conn.Write(ctx, websocket.MessageText, ack); err != nil {
		return "", err
	}
	return payload.UserID, nil
}

func (h *Hub) serve(conn *websocket.Conn, client *pushClient) {
	// Incoming frames after authentication are ignored; CloseRead ends ctx
	// when the peer goes away.
	ctx := conn.CloseRead(h.ctx)

	for {
		select {
		case <-ctx.Done():
			if h.ctx.Err() != nil {
				_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			} else {
				_ = conn.Close(websocket.StatusNormalClosure, "")
			}
			return
		case frame := <-client.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				h.logger.WithError(err).WithField("user", client.user).Debug("push write failed")
				return
			}
		}
	}
}

func (h *Hub) register(client *pushClient) {
	h.mu.Lock()
	set, ok := h.users[client.user]
	if !ok {
		set = make(map[*pushClient]struct{})
		h.users[client.user] = set
	}
	set[client] = struct{}{}
	h.mu.Unlock()

	h.connections.Inc()
	h.logger.WithField("user", client.user).Info("push client connected")
}

func (h *Hub) unregister(client *pushClient) {
	h.mu.Lock()
	if set, ok := h.users[client.user]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(h.users, client.user)
		}
	}
	h.mu.Unlock()

	h.connections.Dec()
	h.logger.WithField("user", client.user).Info("push client disconnected")
}

// Close ends every connection and waits for their handlers to return.
func (h *Hub) Close(ctx context.Context) error {
	h.cancel()
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
