package queue

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	log "github.com/sirupsen/logrus"

	model "task-board.com/task-board/internal/models"
)

type RedisBroker struct {
	client  rueidis.Client
	channel string
	logger  log.FieldLogger
}

func NewRedisBroker(client rueidis.Client, channel string, logger log.FieldLogger) *RedisBroker {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &RedisBroker{
		client:  client,
		channel: channel,
		logger:  logger.WithField("channel", channel),
	}
}

func (r *RedisBroker) Publish(ctx context.Context, n model.Notification) error {
	payload, err := sonic.MarshalString(n)
	if err != nil {
		return err
	}
	cmd := r.client.B().Publish().Channel(r.channel).Message(payload).Build()
	return r.client.Do(ctx, cmd).Error()
}

func (r *RedisBroker) Subscribe(handler func(model.Notification)) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		cmd := r.client.B().Subscribe().Channel(r.channel).Build()
		err := r.client.Receive(ctx, cmd, func(msg rueidis.PubSubMessage) {
			var n model.Notification
			if err := sonic.UnmarshalString(msg.Message, &n); err != nil {
				r.logger.WithError(err).Warn("dropping malformed broker message")
				return
			}
			handler(n)
		})
		if err != nil && ctx.Err() == nil {
			r.logger.WithError(err).Error("redis subscription ended")
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}
