package reconcile

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// FetchFunc pulls authoritative state and writes it to a store. It must not
// write once ctx is done.
type FetchFunc func(ctx context.Context) error

type PollerOptions struct {
	Logger  log.FieldLogger
	OnError func(error)
}

// Poller runs a FetchFunc on a fixed interval. A tick never cancels a fetch
// already in flight, so fetches may overlap; each applies when it completes.
type Poller struct {
	name     string
	interval time.Duration
	fetch    FetchFunc
	logger   log.FieldLogger
	onError  func(error)

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	stop    chan struct{}
	loopWG  sync.WaitGroup
	fetchWG sync.WaitGroup
}

func NewPoller(name string, interval time.Duration, fetch FetchFunc, opts PollerOptions) *Poller {
	logger := opts.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Poller{
		name:     name,
		interval: interval,
		fetch:    fetch,
		logger:   logger.WithField("poller", name),
		onError:  opts.OnError,
	}
}

// Start activates the poller. With a positive interval it also begins
// ticking; otherwise fetches only happen through Trigger.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.stop = make(chan struct{})
	p.running = true

	if p.interval > 0 {
		p.loopWG.Add(1)
		go p.loop(p.stop)
	}
}

func (p *Poller) loop(stop <-chan struct{}) {
	defer p.loopWG.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Trigger()
		case <-stop:
			return
		}
	}
}

// Trigger starts one fetch in the background if the poller is running.
func (p *Poller) Trigger() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	ctx := p.ctx
	p.fetchWG.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.fetchWG.Done()
		if err := p.fetch(ctx); err != nil && ctx.Err() == nil {
			p.logger.WithError(err).Warn("refresh failed; keeping last known state")
			if p.onError != nil {
				p.onError(err)
			}
		}
	}()
}

// Stop halts the ticker, cancels in-flight fetches and waits for them.
// No fetch writes after Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	p.cancel()
	p.mu.Unlock()

	p.loopWG.Wait()
	p.fetchWG.Wait()
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
