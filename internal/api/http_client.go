package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"

	"task-board.com/task-board/internal/constants"
	dto "task-board.com/task-board/internal/data_models"
	model "task-board.com/task-board/internal/models"
)

type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// DecodeError reports a successful response whose body could not be decoded.
type DecodeError struct {
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode http %d response: %v", e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

type ClientOptions struct {
	UserID     string
	HTTPClient *http.Client
	// MaxRetries bounds retries of idempotent reads. Mutations are never retried.
	MaxRetries uint64
}

// HTTPClient talks to the board backend REST endpoints.
type HTTPClient struct {
	baseURL    string
	userID     string
	httpClient *http.Client
	maxRetries uint64
}

func NewHTTPClient(baseURL string, opts ClientOptions) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	return &HTTPClient{
		baseURL:    baseURL,
		userID:     strings.TrimSpace(opts.UserID),
		httpClient: httpClient,
		maxRetries: maxRetries,
	}
}

func (c *HTTPClient) ListCards(ctx context.Context) ([]model.Card, error) {
	var out []model.Card
	err := c.get(ctx, "/cards", &out)
	return out, err
}

func (c *HTTPClient) MoveCard(ctx context.Context, cardID string, status constants.CardStatus) (dto.MoveCardResponse, error) {
	var out dto.MoveCardResponse
	body := dto.MoveCardRequest{CardID: cardID, NewStatus: status}
	err := c.doJSON(ctx, http.MethodPatch, "/cards/"+url.PathEscape(cardID)+"/status", body, &out)
	return out, err
}

func (c *HTTPClient) UpdateCard(ctx context.Context, card model.Card) (model.Card, error) {
	var out model.Card
	err := c.doJSON(ctx, http.MethodPut, "/cards/"+url.PathEscape(card.ID), card, &out)
	return out, err
}

func (c *HTTPClient) CreateCard(ctx context.Context, card model.Card) (model.Card, error) {
	var out model.Card
	err := c.doJSON(ctx, http.MethodPost, "/cards", card, &out)
	return out, err
}

func (c *HTTPClient) DeleteCard(ctx context.Context, cardID string) (dto.DeleteCardResponse, error) {
	var out dto.DeleteCardResponse
	err := c.doJSON(ctx, http.MethodDelete, "/cards/"+url.PathEscape(cardID), nil, &out)
	return out, err
}

func (c *HTTPClient) ListNotifications(ctx context.Context) ([]model.Notification, error) {
	var out []model.Notification
	err := c.get(ctx, "/notifications", &out)
	return out, err
}

func (c *HTTPClient) UnreadCount(ctx context.Context) (int, error) {
	var out dto.UnreadCountResponse
	if err := c.get(ctx, "/notifications/unread-count", &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *HTTPClient) MarkRead(ctx context.Context, notificationID string) error {
	return c.doJSON(ctx, http.MethodPost, "/notifications/"+url.PathEscape(notificationID)+"/read", nil, nil)
}

func (c *HTTPClient) MarkAllRead(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/notifications/mark-all-read", nil, nil)
}

// get retries transient failures with exponential backoff.
func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = 2 * time.Second

	return backoff.Retry(func() error {
		err := c.doJSON(ctx, http.MethodGet, path, nil, out)
		if err != nil && !retriable(ctx, err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx))
}

// retriable accepts transport failures, 429 and 5xx. A body that does not
// decode will not decode on the next attempt either.
func retriable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}
	var decodeErr *DecodeError
	return !errors.As(err, &decodeErr)
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := sonic.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set(constants.UserHeader, c.userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errPayload struct {
			Message string `json:"message"`
		}
		_ = sonic.Unmarshal(payload, &errPayload)
		return &HTTPError{StatusCode: resp.StatusCode, Message: errPayload.Message}
	}

	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(payload, out); err != nil {
		return &DecodeError{StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}
