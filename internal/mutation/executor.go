// Package mutation issues optimistic mutations and settles them against the
// server's answer.
//
// The optimistic change is applied before the request leaves, so readers
// never see state older than the caller's own intent. Only the latest call
// per (kind, target) may apply its server payload: an earlier call that
// settles afterwards is superseded and its echo is dropped. Failed calls are
// not rolled back; the caller receives a MutationFailed and decides.
package mutation

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	apperrors "task-board.com/task-board/internal/errors"
)

// Request performs the network call. On success it may return a settle
// function that writes the canonical payload into the store.
type Request func(ctx context.Context) (settle func(), err error)

type Options struct {
	Logger  log.FieldLogger
	Metrics *Metrics
}

type flight struct {
	kind   Kind
	target string
}

type Executor struct {
	mu       sync.Mutex
	seq      uint64
	latest   map[flight]uint64
	inFlight map[Kind]int
	wg       sync.WaitGroup

	logger  log.FieldLogger
	metrics *Metrics
}

func NewExecutor(opts Options) *Executor {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Executor{
		latest:   make(map[flight]uint64),
		inFlight: make(map[Kind]int),
		logger:   logger,
		metrics:  opts.Metrics,
	}
}

// Go applies optimistic synchronously and sends request in the background.
// optimistic and every settle function run under the executor lock, so an
// optimistic write can never interleave with the settle of an older call.
func (e *Executor) Go(ctx context.Context, kind Kind, target string, optimistic func(), request Request) *Call {
	key := flight{kind: kind, target: target}
	call := newCall(kind, target)

	e.mu.Lock()
	e.seq++
	seq := e.seq
	e.latest[key] = seq
	e.inFlight[kind]++
	if optimistic != nil {
		optimistic()
	}
	e.mu.Unlock()

	e.metrics.started(kind)
	e.wg.Add(1)
	go e.send(ctx, call, key, seq, request)

	return call
}

func (e *Executor) send(ctx context.Context, call *Call, key flight, seq uint64, request Request) {
	defer e.wg.Done()
	defer close(call.done)

	settle, err := request(ctx)

	e.mu.Lock()
	superseded := e.latest[key] != seq
	if !superseded {
		delete(e.latest, key)
	}
	e.inFlight[key.kind]--
	if err == nil && !superseded && settle != nil {
		settle()
	}
	e.mu.Unlock()

	call.superseded = superseded
	fields := log.Fields{"kind": key.kind, "target": key.target}

	if err != nil {
		call.err = &apperrors.MutationFailed{Kind: string(key.kind), Target: key.target, Cause: err}
		e.metrics.settled(key.kind, "failed")
		e.logger.WithFields(fields).WithError(err).Warn("mutation failed; optimistic change kept")
		return
	}

	if superseded {
		e.metrics.settled(key.kind, "superseded")
		e.logger.WithFields(fields).Debug("mutation superseded; response dropped")
		return
	}

	e.metrics.settled(key.kind, "ok")
	e.logger.WithFields(fields).Debug("mutation settled")
}

// InFlight counts unsettled calls of the given kinds, or of every kind when
// none are given.
func (e *Executor) InFlight(kinds ...Kind) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(kinds) == 0 {
		total := 0
		for _, n := range e.inFlight {
			total += n
		}
		return total
	}
	total := 0
	for _, k := range kinds {
		total += e.inFlight[k]
	}
	return total
}

// Drain waits for every issued call to settle or for ctx to end.
func (e *Executor) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
