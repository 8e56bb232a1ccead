package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task-board.com/task-board/internal/constants"
	model "task-board.com/task-board/internal/models"
)

func TestHTTPClient_MoveCardSendsRequestContract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/cards/1/status", r.URL.Path)
		assert.Equal(t, "u1", r.Header.Get(constants.UserHeader))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"cardId":"1","newStatus":"Doing"}`, string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, ClientOptions{UserID: "u1"})
	out, err := c.MoveCard(context.Background(), "1", constants.StatusDoing)

	require.NoError(t, err)
	assert.Equal(t, "1", out.CardID)
	assert.Equal(t, constants.StatusDoing, out.NewStatus)
}

func TestHTTPClient_GetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"1","title":"a","responsible":["u"],"status":"Backlog","priority":"low","tags":[],"comments":[]}]`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, ClientOptions{})
	cards, err := c.ListCards(context.Background())

	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "1", cards[0].ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPClient_GetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"user identity is required"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, ClientOptions{})
	_, err := c.ListNotifications(context.Background())

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.StatusCode)
	assert.Equal(t, "user identity is required", httpErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPClient_GetDoesNotRetryMalformedBody(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"cards": not json`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, ClientOptions{})
	_, err := c.ListCards(context.Background())

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, http.StatusOK, decodeErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPClient_GetRetriesTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, ClientOptions{MaxRetries: 1})
	_, err := c.ListCards(context.Background())

	require.Error(t, err)
	assert.True(t, retriable(context.Background(), err))
}

func TestHTTPClient_MutationsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, ClientOptions{})
	_, err := c.CreateCard(context.Background(), model.Card{ID: "x"})

	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPClient_UnreadCount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/notifications/unread-count", r.URL.Path)
		_, _ = w.Write([]byte(`{"count":4}`))
	}))
	defer srv.Close()

	n, err := NewHTTPClient(srv.URL, ClientOptions{}).UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestLocal_EchoesAndKeepsState(t *testing.T) {
	ctx := context.Background()
	l := NewLocal([]model.Card{{ID: "1", Status: constants.StatusBacklog}}, nil)

	res, err := l.MoveCard(ctx, "1", constants.StatusDoing)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusDoing, res.NewStatus)

	cards, _ := l.ListCards(ctx)
	assert.Equal(t, constants.StatusDoing, cards[0].Status)

	_, err = l.MoveCard(ctx, "missing", constants.StatusDoing)
	assert.Error(t, err)
}
