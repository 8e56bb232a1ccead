package mutation

import "context"

type Kind string

const (
	KindMove        Kind = "move"
	KindUpdate      Kind = "update"
	KindAdd         Kind = "add"
	KindDelete      Kind = "delete"
	KindMarkRead    Kind = "markRead"
	KindMarkAllRead Kind = "markAllRead"
)

// Call tracks one issued mutation until its request settles.
type Call struct {
	Kind   Kind
	Target string

	done       chan struct{}
	err        error
	superseded bool
}

func newCall(kind Kind, target string) *Call {
	return &Call{Kind: kind, Target: target, done: make(chan struct{})}
}

// Done is closed once the request has settled.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Err is the settled outcome. It is nil while the call is in flight.
func (c *Call) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Superseded reports whether a later call of the same kind for the same
// target was issued before this one settled, so its response was not applied.
func (c *Call) Superseded() bool {
	select {
	case <-c.done:
		return c.superseded
	default:
		return false
	}
}

func (c *Call) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
