package queue

import (
	"context"

	model "task-board.com/task-board/internal/models"
)

// Broker fans newly generated notifications out to every backend instance
// holding push connections.
type Broker interface {
	Publish(ctx context.Context, n model.Notification) error

	// Subscribe registers handler and returns a function that unregisters it.
	// Handlers run on the broker's delivery goroutine and must not block.
	Subscribe(handler func(model.Notification)) (unsubscribe func(), err error)
}
