// Package notifications keeps the signed-in user's notifications and unread
// counter in an optimistic client cache fed by polling and push.
package notifications

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	apperrors "task-board.com/task-board/internal/errors"
	model "task-board.com/task-board/internal/models"
	"task-board.com/task-board/internal/mutation"
	"task-board.com/task-board/internal/reconcile"
	"task-board.com/task-board/internal/store"
)

type API interface {
	ListNotifications(ctx context.Context) ([]model.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context) error
}

// Channel is the push side. *reconcile.PushChannel satisfies it.
type Channel interface {
	Connect(ctx context.Context, identity string) error
	Disconnect()
	IsConnected() bool
	OnNotification(fn func(model.Notification))
	OffNotification()
}

type Options struct {
	// Zero intervals disable the matching periodic pull.
	ListInterval  time.Duration
	CountInterval time.Duration
	// RefetchOnSettle re-pulls list and counter after a successful mark and
	// after every push arrival.
	RefetchOnSettle bool
	Logger          log.FieldLogger
	Metrics         *mutation.Metrics
	OnError         func(error)
}

type Feed struct {
	api     API
	channel Channel
	items   *store.Store[model.Notification]
	exec    *mutation.Executor
	list    *reconcile.Poller
	count   *reconcile.Poller
	logger  log.FieldLogger
	refetch bool

	mu     sync.Mutex
	unread int

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}
}

// New builds a feed. channel may be nil, in which case only polling runs.
func New(api API, channel Channel, opts Options) *Feed {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	logger = logger.WithField("component", "notifications")

	f := &Feed{
		api:     api,
		channel: channel,
		items:   store.New[model.Notification](),
		exec:    mutation.NewExecutor(mutation.Options{Logger: logger, Metrics: opts.Metrics}),
		logger:  logger,
		refetch: opts.RefetchOnSettle,
		subs:    make(map[chan struct{}]struct{}),
	}
	f.list = reconcile.NewPoller("notifications", opts.ListInterval, f.RefreshList, reconcile.PollerOptions{
		Logger:  logger,
		OnError: opts.OnError,
	})
	f.count = reconcile.NewPoller("unread-count", opts.CountInterval, f.RefreshUnreadCount, reconcile.PollerOptions{
		Logger:  logger,
		OnError: opts.OnError,
	})
	return f
}

// Notifications returns the cached notifications, newest first as delivered.
func (f *Feed) Notifications() []model.Notification {
	return f.items.Get()
}

func (f *Feed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread
}

func (f *Feed) IsConnected() bool {
	return f.channel != nil && f.channel.IsConnected()
}

// IsLoading is true while a mark request is pending.
func (f *Feed) IsLoading() bool {
	return f.exec.InFlight() > 0
}

// Subscribe signals after every change to the list or the counter.
// Signals coalesce.
func (f *Feed) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	f.subMu.Lock()
	f.subs[ch] = struct{}{}
	f.subMu.Unlock()

	return ch, func() {
		f.subMu.Lock()
		delete(f.subs, ch)
		f.subMu.Unlock()
	}
}

func (f *Feed) changed() {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Start pulls list and counter once, begins polling and connects the push
// channel as user. Fetch and connect failures are returned joined; neither
// stops the feed, which keeps running on its last known state.
func (f *Feed) Start(ctx context.Context, user model.User) error {
	fetchErr := f.Refresh(ctx)
	f.list.Start(ctx)
	f.count.Start(ctx)

	if f.channel == nil {
		return fetchErr
	}
	f.channel.OnNotification(f.receive)
	if err := f.channel.Connect(ctx, user.Identity()); err != nil {
		f.logger.WithError(err).Warn("push channel unavailable; relying on refresh")
		return errors.Join(fetchErr, err)
	}
	return fetchErr
}

// Stop tears the push channel down, stops polling and waits for pending marks.
func (f *Feed) Stop(ctx context.Context) error {
	if f.channel != nil {
		f.channel.OffNotification()
		f.channel.Disconnect()
	}
	f.list.Stop()
	f.count.Stop()
	return f.exec.Drain(ctx)
}

// RefreshList replaces the cached list with the backend's.
func (f *Feed) RefreshList(ctx context.Context) error {
	items, err := f.api.ListNotifications(ctx)
	if err != nil {
		return &apperrors.FetchFailed{Resource: "notifications", Cause: err}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.items.ReplaceAll(items)
	f.changed()
	return nil
}

func (f *Feed) RefreshUnreadCount(ctx context.Context) error {
	n, err := f.api.UnreadCount(ctx)
	if err != nil {
		return &apperrors.FetchFailed{Resource: "unread-count", Cause: err}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	f.unread = max(n, 0)
	f.mu.Unlock()
	f.changed()
	return nil
}

// Refresh pulls list and counter, returning both failures if any.
func (f *Feed) Refresh(ctx context.Context) error {
	return errors.Join(f.RefreshList(ctx), f.RefreshUnreadCount(ctx))
}

func (f *Feed) receive(n model.Notification) {
	f.mu.Lock()
	inserted := f.items.Prepend(n)
	if inserted && !n.IsRead {
		f.unread++
	}
	f.mu.Unlock()
	f.changed()

	f.logger.WithFields(log.Fields{"id": n.ID, "type": n.Type}).Debug("notification pushed")
	if f.refetch {
		f.invalidate()
	}
}

func (f *Feed) invalidate() {
	f.list.Trigger()
	f.count.Trigger()
}

// MarkRead marks one notification read, decrementing the counter if it was unread.
func (f *Feed) MarkRead(ctx context.Context, notificationID string) (*mutation.Call, error) {
	if strings.TrimSpace(notificationID) == "" {
		return nil, apperrors.Invalid("notificationId", "notification id is required")
	}

	optimistic := func() {
		f.mu.Lock()
		wasUnread := false
		f.items.UpdateWhere(notificationID, func(n *model.Notification) {
			wasUnread = !n.IsRead
			n.IsRead = true
		})
		if wasUnread && f.unread > 0 {
			f.unread--
		}
		f.mu.Unlock()
		f.changed()
	}
	request := func(ctx context.Context) (func(), error) {
		if err := f.api.MarkRead(ctx, notificationID); err != nil {
			return nil, err
		}
		return f.settled, nil
	}
	return f.exec.Go(ctx, mutation.KindMarkRead, notificationID, optimistic, request), nil
}

// MarkAllRead marks every notification read and zeroes the counter.
func (f *Feed) MarkAllRead(ctx context.Context) *mutation.Call {
	optimistic := func() {
		f.mu.Lock()
		f.items.UpdateAll(func(n *model.Notification) { n.IsRead = true })
		f.unread = 0
		f.mu.Unlock()
		f.changed()
	}
	request := func(ctx context.Context) (func(), error) {
		if err := f.api.MarkAllRead(ctx); err != nil {
			return nil, err
		}
		return f.settled, nil
	}
	return f.exec.Go(ctx, mutation.KindMarkAllRead, "", optimistic, request)
}

func (f *Feed) settled() {
	if f.refetch {
		f.invalidate()
	}
}
