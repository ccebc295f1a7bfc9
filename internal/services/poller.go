package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"financeflow/internal/log"
)

// PollFunc performs one poll cycle.
type PollFunc func(ctx context.Context) error

// PollerConfig holds configuration for a Poller.
type PollerConfig struct {
	// Name identifies the poller in logs.
	Name string

	// Interval between cycles (default: 30s).
	Interval time.Duration
}

// DefaultPollerConfig returns the shell defaults.
func DefaultPollerConfig() PollerConfig {
	return PollerConfig{
		Name:     "poller",
		Interval: 30 * time.Second,
	}
}

// Poller runs a PollFunc immediately on Start and then on every tick until
// stopped. Cycles never overlap: a tick or Trigger arriving while a cycle
// is in flight joins that cycle instead of starting another.
type Poller struct {
	poll   PollFunc
	config PollerConfig
	group  singleflight.Group

	mu      sync.Mutex
	running bool
	loopCtx context.Context
	cancel  context.CancelFunc
	doneCh  chan struct{}

	// inflight counts Trigger callers whose cycle has not returned yet;
	// idle is closed when it drops to zero.
	inflight int
	idle     chan struct{}
}

func NewPoller(poll PollFunc, config PollerConfig) *Poller {
	if config.Interval <= 0 {
		config.Interval = DefaultPollerConfig().Interval
	}
	if config.Name == "" {
		config.Name = DefaultPollerConfig().Name
	}
	return &Poller{poll: poll, config: config}
}

// Start begins the polling loop. Returns an error if already running.
// The loop and its in-flight cycle are cancelled by Cancel, Stop or ctx.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("%s is already running", p.config.Name)
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.running = true
	p.loopCtx = loopCtx
	p.cancel = cancel
	p.doneCh = make(chan struct{})
	done := p.doneCh
	p.mu.Unlock()

	go p.runLoop(loopCtx, done)

	slog.InfoContext(ctx, "Poller started",
		log.FieldComponent, log.ComponentPoller,
		"poller", p.config.Name,
		"interval", p.config.Interval)
	return nil
}

// Cancel stops the loop without waiting for it to exit. Safe to call from
// inside a poll cycle.
func (p *Poller) Cancel() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Stop cancels the loop and waits for it and every cycle in flight to
// return. Must not be called from inside a poll cycle.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	running := p.running
	done := p.doneCh
	p.mu.Unlock()

	if running {
		p.Cancel()
		select {
		case <-done:
		case <-ctx.Done():
			slog.WarnContext(ctx, "Poller stop timed out", "poller", p.config.Name)
			return ctx.Err()
		}
	}

	select {
	case <-p.idleCh():
		slog.InfoContext(ctx, "Poller stopped gracefully", "poller", p.config.Name)
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Poller stop timed out waiting for cycle", "poller", p.config.Name)
		return ctx.Err()
	}
}

// idleCh returns a channel that is closed once no cycle is in flight.
func (p *Poller) idleCh() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight == 0 {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.idle
}

func (p *Poller) enter() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inflight == 0 {
		p.idle = make(chan struct{})
	}
	p.inflight++
	return p.loopCtx
}

func (p *Poller) leave() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inflight--
	if p.inflight == 0 {
		close(p.idle)
	}
}

// Busy reports whether the loop or any cycle is still running.
func (p *Poller) Busy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running || p.inflight > 0
}

// IsRunning returns whether the loop is active.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Trigger runs a cycle now, or waits for the one already in flight, and
// returns its result. A cycle it starts is cancelled by ctx and by
// stopping the loop. When ctx ends first, Trigger returns early but the
// cycle still counts as in flight for Stop until it returns.
func (p *Poller) Trigger(ctx context.Context) error {
	loopCtx := p.enter()
	ch := p.group.DoChan("poll", func() (any, error) {
		pollCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if loopCtx != nil {
			defer context.AfterFunc(loopCtx, cancel)()
		}
		return nil, p.poll(pollCtx)
	})
	select {
	case res := <-ch:
		p.leave()
		return res.Err
	case <-ctx.Done():
		go func() {
			<-ch
			p.leave()
		}()
		return ctx.Err()
	}
}

// Refresh runs a cycle that starts now, even if one is already in flight.
// Ticks and Triggers arriving meanwhile join the new cycle.
func (p *Poller) Refresh(ctx context.Context) error {
	p.group.Forget("poll")
	return p.Trigger(ctx)
}

func (p *Poller) runLoop(ctx context.Context, done chan struct{}) {
	defer func() {
		p.mu.Lock()
		p.running = false
		p.cancel = nil
		p.mu.Unlock()
		close(done)
	}()

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

func (p *Poller) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := p.Trigger(ctx); err != nil && ctx.Err() == nil {
		slog.WarnContext(ctx, "Poll cycle failed",
			log.FieldComponent, log.ComponentPoller,
			"poller", p.config.Name,
			log.FieldOperation, log.OpPoll,
			log.FieldError, err)
	}
}
