package reconcile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"task-board.com/task-board/internal/constants"
	apperrors "task-board.com/task-board/internal/errors"
	model "task-board.com/task-board/internal/models"
)

type fakePushServer struct {
	codec      *Codec
	accepts    atomic.Int32
	identities chan string
	conns      chan *websocket.Conn
}

func newFakePushServer(t *testing.T) (*fakePushServer, string) {
	codec, err := NewCodec()
	require.NoError(t, err)
	s := &fakePushServer{
		codec:      codec,
		identities: make(chan string, 4),
		conns:      make(chan *websocket.Conn, 4),
	}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func (s *fakePushServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	s.accepts.Add(1)
	ctx := r.Context()

	_, data, err := conn.Read(ctx)
	if err != nil {
		return
	}
	frame, err := s.codec.Decode(data)
	if err != nil || frame.Event != constants.EventAuthenticate {
		_ = conn.Close(websocket.StatusPolicyViolation, "expected authenticate")
		return
	}
	auth, err := s.codec.Authenticate(frame.Data)
	if err != nil {
		_ = conn.Close(websocket.StatusPolicyViolation, "bad authenticate")
		return
	}
	reply, _ := s.codec.Encode(constants.EventAuthenticated, auth)
	if err := conn.Write(ctx, websocket.MessageText, reply); err != nil {
		return
	}
	s.identities <- auth.UserID
	s.conns <- conn

	<-conn.CloseRead(context.Background()).Done()
}

func (s *fakePushServer) send(t *testing.T, conn *websocket.Conn, data []byte) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestPushChannel_DeliversValidNotificationsAndDropsMalformed(t *testing.T) {
	server, url := newFakePushServer(t)
	ch, err := NewPushChannel(url, PushOptions{})
	require.NoError(t, err)

	received := make(chan model.Notification, 4)
	ch.OnNotification(func(n model.Notification) { received <- n })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, ch.Connect(ctx, "user-1"))
	defer ch.Disconnect()

	assert.True(t, ch.IsConnected())
	assert.Equal(t, "user-1", <-server.identities)
	conn := <-server.conns

	require.NoError(t, ch.Connect(ctx, "user-1"))
	assert.Equal(t, int32(1), server.accepts.Load())

	server.send(t, conn, []byte(`not json`))
	server.send(t, conn, []byte(`{"event":"notification","data":{"id":""}}`))
	valid, err := server.codec.Encode(constants.EventNotification, model.Notification{
		ID:        "n1",
		Type:      constants.NotificationTaskStatusChanged,
		Title:     "Moved",
		Message:   "Card moved",
		CreatedAt: time.Now().UTC(),
		UserID:    "user-1",
	})
	require.NoError(t, err)
	server.send(t, conn, valid)

	select {
	case n := <-received:
		assert.Equal(t, "n1", n.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}
	select {
	case n := <-received:
		t.Fatalf("unexpected notification %+v", n)
	default:
	}
	assert.True(t, ch.IsConnected())
}

func TestPushChannel_ServerDropReportsChannelErrorWithoutRetry(t *testing.T) {
	server, url := newFakePushServer(t)
	ch, err := NewPushChannel(url, PushOptions{})
	require.NoError(t, err)

	errs := make(chan error, 1)
	ch.OnError(func(err error) { errs <- err })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, ch.Connect(ctx, "user-1"))
	conn := <-server.conns

	require.NoError(t, conn.Close(websocket.StatusGoingAway, "bye"))

	select {
	case err := <-errs:
		var chErr *apperrors.ChannelError
		assert.ErrorAs(t, err, &chErr)
	case <-time.After(2 * time.Second):
		t.Fatal("expected channel error")
	}
	assert.False(t, ch.IsConnected())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), server.accepts.Load())
}

func TestPushChannel_DisconnectDiscardsCallback(t *testing.T) {
	_, url := newFakePushServer(t)
	ch, err := NewPushChannel(url, PushOptions{})
	require.NoError(t, err)
	ch.OnNotification(func(model.Notification) {})
	ch.OnError(func(error) { t.Error("intentional disconnect must not report an error") })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, ch.Connect(ctx, "user-1"))

	ch.Disconnect()
	assert.False(t, ch.IsConnected())
	ch.mu.Lock()
	assert.Nil(t, ch.onNotification)
	ch.mu.Unlock()

	ch.Disconnect()
}

func TestPushChannel_ConnectFailureIsChannelError(t *testing.T) {
	ch, err := NewPushChannel("ws://127.0.0.1:1/ws", PushOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = ch.Connect(ctx, "user-1")

	var chErr *apperrors.ChannelError
	require.ErrorAs(t, err, &chErr)
	assert.Equal(t, "connect", chErr.Op)
	assert.False(t, ch.IsConnected())
}

func TestPushChannel_RejectsEmptyIdentity(t *testing.T) {
	ch, err := NewPushChannel("ws://127.0.0.1:1/ws", PushOptions{})
	require.NoError(t, err)

	err = ch.Connect(context.Background(), "  ")
	var vErr *apperrors.ValidationError
	assert.ErrorAs(t, err, &vErr)
}
