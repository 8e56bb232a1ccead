package reconcile

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"nhooyr.io/websocket"

	"task-board.com/task-board/internal/constants"
	apperrors "task-board.com/task-board/internal/errors"
	model "task-board.com/task-board/internal/models"
)

type PushOptions struct {
	Header http.Header
	Logger log.FieldLogger
	Codec  *Codec
}

// PushChannel is a single websocket connection delivering notifications out
// of band. It is owned by whoever constructs it; there is no process-wide
// instance. A dropped connection is reported through OnError and is not
// retried.
type PushChannel struct {
	url    string
	header http.Header
	codec  *Codec
	logger log.FieldLogger

	connectMu sync.Mutex

	mu             sync.Mutex
	conn           *websocket.Conn
	identity       string
	cancel         context.CancelFunc
	done           chan struct{}
	onNotification func(model.Notification)
	onError        func(error)
}

func NewPushChannel(url string, opts PushOptions) (*PushChannel, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("push url is required")
	}
	codec := opts.Codec
	if codec == nil {
		var err error
		if codec, err = NewCodec(); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &PushChannel{
		url:    url,
		header: opts.Header,
		codec:  codec,
		logger: logger.WithField("component", "push"),
	}, nil
}

// Connect dials, authenticates with identity and starts delivering events.
// It returns nil without dialing when already connected.
func (c *PushChannel) Connect(ctx context.Context, identity string) error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	if c.IsConnected() {
		return nil
	}
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return apperrors.Invalid("identity", "push identity must not be empty")
	}

	conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{HTTPHeader: c.header})
	if err != nil {
		return c.fail("connect", err)
	}

	if err := c.authenticate(ctx, conn, identity); err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, "authentication failed")
		return c.fail("authenticate", err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.identity = identity
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.readLoop(readCtx, conn, done)

	c.logger.WithField("identity", identity).Info("push channel connected")
	return nil
}

func (c *PushChannel) authenticate(ctx context.Context, conn *websocket.Conn, identity string) error {
	frame, err := c.codec.Encode(constants.EventAuthenticate, map[string]string{"userId": identity})
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return err
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	reply, err := c.codec.Decode(data)
	if err != nil {
		return err
	}
	switch reply.Event {
	case constants.EventAuthenticated:
		return nil
	case constants.EventError:
		return fmt.Errorf("server rejected authentication: %s", string(reply.Data))
	default:
		return fmt.Errorf("unexpected %q before authentication", reply.Event)
	}
}

func (c *PushChannel) readLoop(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	defer close(done)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			c.dropped(conn, err)
			return
		}
		c.dispatch(data)
	}
}

func (c *PushChannel) dispatch(data []byte) {
	frame, err := c.codec.Decode(data)
	if err != nil {
		c.logger.WithError(err).Warn("dropping malformed push frame")
		return
	}

	switch frame.Event {
	case constants.EventNotification:
		n, err := c.codec.Notification(frame.Data)
		if err != nil {
			c.logger.WithError(err).Warn("dropping malformed notification")
			return
		}
		c.mu.Lock()
		handler := c.onNotification
		c.mu.Unlock()
		if handler != nil {
			handler(n)
		}
	case constants.EventError:
		c.logger.WithField("detail", string(frame.Data)).Warn("push server reported an error")
	default:
		c.logger.WithField("event", frame.Event).Debug("ignoring push event")
	}
}

// dropped clears the connection when it ended without Disconnect.
func (c *PushChannel) dropped(conn *websocket.Conn, err error) {
	c.mu.Lock()
	current := c.conn == conn
	var onError func(error)
	if current {
		c.conn = nil
		c.cancel()
		onError = c.onError
	}
	c.mu.Unlock()

	if !current {
		return
	}
	_ = conn.Close(websocket.StatusInternalError, "read failed")

	chErr := &apperrors.ChannelError{Op: "read", Cause: err}
	if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
		c.logger.WithField("status", status).Info("push channel closed by server")
	} else {
		c.logger.WithError(err).Warn("push channel dropped")
	}
	if onError != nil {
		onError(chErr)
	}
}

// Disconnect closes the connection and discards the notification callback.
func (c *PushChannel) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	cancel := c.cancel
	done := c.done
	c.conn = nil
	c.onNotification = nil
	c.mu.Unlock()

	if conn == nil {
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
	cancel()
	<-done

	c.logger.Info("push channel disconnected")
}

func (c *PushChannel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *PushChannel) Identity() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.identity
}

// OnNotification replaces the notification callback.
func (c *PushChannel) OnNotification(fn func(model.Notification)) {
	c.mu.Lock()
	c.onNotification = fn
	c.mu.Unlock()
}

func (c *PushChannel) OffNotification() {
	c.OnNotification(nil)
}

// OnError receives ChannelErrors for connections that drop after Connect returned.
func (c *PushChannel) OnError(fn func(error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

func (c *PushChannel) fail(op string, err error) error {
	c.logger.WithField("op", op).WithError(err).Warn("push channel failure")
	return &apperrors.ChannelError{Op: op, Cause: err}
}
