// Package feed serializes triggers from many producers onto the single
// goroutine that owns an engine.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/danielpatrickdp/affect-engine/internal/emotion"
	"github.com/danielpatrickdp/affect-engine/internal/engine"
	"github.com/danielpatrickdp/affect-engine/internal/trigger"
)

var (
	// ErrDrained is returned to triggers that were still queued when a
	// reset was processed.
	ErrDrained = errors.New("trigger dropped by reset")
	// ErrClosed is returned once the feed has stopped.
	ErrClosed = errors.New("feed closed")
)

// DefaultQueueSize bounds the number of triggers waiting for the worker.
const DefaultQueueSize = 64

// #region options
// Option configures a Feed.
type Option func(*Feed)

// WithRateLimit throttles intake to r triggers per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(f *Feed) { f.limiter = rate.NewLimiter(r, burst) }
}

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) Option {
	return func(f *Feed) {
		if n > 0 {
			f.queueSize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(f *Feed) { f.logger = l } }

// #endregion options

// #region feed
type op int

const (
	opUpdate op = iota
	opReset
)

type request struct {
	op    op
	in    trigger.Input
	ctx   context.Context
	reply chan result
}

type result struct {
	state   emotion.State
	drained int
	err     error
}

// Feed owns an engine and applies queued requests one at a time.
type Feed struct {
	eng       *engine.Engine
	limiter   *rate.Limiter
	logger    *zap.Logger
	queueSize int

	reqs      chan request
	resets    chan request
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// New starts the worker goroutine. Call Close to stop it.
func New(eng *engine.Engine, opts ...Option) *Feed {
	f := &Feed{
		eng:       eng,
		logger:    zap.NewNop(),
		queueSize: DefaultQueueSize,
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.reqs = make(chan request, f.queueSize)
	f.resets = make(chan request, 1)
	go f.run()
	return f
}

// Engine exposes the owned engine for read-only calls (reports, exports).
func (f *Feed) Engine() *engine.Engine { return f.eng }

// Current returns the engine's latest state.
func (f *Feed) Current() emotion.State { return f.eng.CurrentState() }

// Submit queues a trigger and waits for its resulting state.
func (f *Feed) Submit(ctx context.Context, in trigger.Input) (emotion.State, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return emotion.State{}, fmt.Errorf("rate limit: %w", err)
		}
	}
	res, err := f.do(ctx, f.reqs, request{op: opUpdate, in: in})
	if err != nil {
		return emotion.State{}, err
	}
	return res.state, res.err
}

// Reset jumps the queue: once the trigger currently being applied finishes,
// every trigger still queued fails with ErrDrained and the engine is reset.
// It returns how many triggers were dropped.
func (f *Feed) Reset(ctx context.Context) (int, error) {
	res, err := f.do(ctx, f.resets, request{op: opReset})
	if err != nil {
		return 0, err
	}
	return res.drained, res.err
}

// Close stops the worker. Queued requests fail with ErrClosed.
func (f *Feed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
	<-f.stopped
}

// do enqueues req and waits for its outcome. Once queued, the caller always
// learns what the worker did: a request whose ctx ends while queued is skipped
// and answered with the ctx error, one already being applied is reported as
// applied.
func (f *Feed) do(ctx context.Context, queue chan<- request, req request) (result, error) {
	req.ctx = ctx
	req.reply = make(chan result, 1)
	select {
	case <-f.done:
		return result{}, ErrClosed
	case <-ctx.Done():
		return result{}, ctx.Err()
	case queue <- req:
	}
	select {
	case res := <-req.reply:
		return res, nil
	case <-f.stopped:
		select {
		case res := <-req.reply:
			return res, nil
		default:
			return result{}, ErrClosed
		}
	}
}

// #endregion feed

// #region worker
func (f *Feed) run() {
	defer close(f.stopped)
	for {
		// pending resets take priority over queued triggers
		select {
		case req := <-f.resets:
			f.handle(req)
			continue
		default:
		}
		select {
		case <-f.done:
			n := f.drain(f.reqs, ErrClosed) + f.drain(f.resets, ErrClosed)
			if n > 0 {
				f.logger.Info("feed closed with queued requests", zap.Int("dropped", n))
			}
			return
		case req := <-f.resets:
			f.handle(req)
		case req := <-f.reqs:
			f.handle(req)
		}
	}
}

func (f *Feed) handle(req request) {
	if err := req.ctx.Err(); err != nil {
		f.logger.Debug("skipping cancelled request", zap.String("input", req.in.String()), zap.Error(err))
		req.reply <- result{err: err}
		return
	}
	switch req.op {
	case opUpdate:
		st, err := f.eng.Update(req.in)
		if err != nil {
			f.logger.Debug("trigger rejected", zap.String("input", req.in.String()), zap.Error(err))
		}
		req.reply <- result{state: st, err: err}
	case opReset:
		n := f.drain(f.reqs, ErrDrained)
		err := f.eng.Reset()
		if n > 0 {
			f.logger.Info("reset drained queued triggers", zap.Int("dropped", n))
		}
		req.reply <- result{drained: n, err: err}
	}
}

// drain fails every request in queue with err and returns how many there were.
func (f *Feed) drain(queue chan request, err error) int {
	n := 0
	for {
		select {
		case req := <-queue:
			req.reply <- result{err: err}
			n++
		default:
			return n
		}
	}
}

// #endregion worker
