package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"golang.org/x/time/rate"

	"github.com/danielpatrickdp/affect-engine/internal/engine"
	"github.com/danielpatrickdp/affect-engine/internal/trigger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newEngine(t *testing.T, opts ...engine.Option) *engine.Engine {
	t.Helper()
	e, err := engine.New(append([]engine.Option{engine.WithClock(engine.NewManualClock(time.Unix(0, 0)))}, opts...)...)
	require.NoError(t, err)
	return e
}

func TestConcurrentProducersAreSerialized(t *testing.T) {
	e := newEngine(t)
	f := New(e)
	defer f.Close()

	const producers, each = 8, 25
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			keys := []string{"praise", "criticism", "music", "loud_noise"}
			for i := 0; i < each; i++ {
				_, err := f.Submit(context.Background(), trigger.Key(keys[(p+i)%len(keys)]))
				assert.NoError(t, err)
			}
		}(p)
	}
	wg.Wait()

	ts := e.Transitions()
	require.Len(t, ts, producers*each)
	for i := 1; i < len(ts); i++ {
		require.Equal(t, ts[i-1].Next, ts[i].Previous, "transition %d must chain from %d", i, i-1)
		require.True(t, ts[i].Timestamp.After(ts[i-1].Timestamp))
	}
	require.Equal(t, ts[len(ts)-1].Next, f.Current())
}

// gateResolver blocks its first call until released.
type gateResolver struct {
	inner   trigger.Resolver
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gateResolver) Resolve(in trigger.Input) (trigger.Resolution, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.inner.Resolve(in)
}

func TestResetDrainsQueuedTriggers(t *testing.T) {
	g := &gateResolver{
		inner:   trigger.NewLexiconResolver(trigger.DefaultLexicon(), trigger.PolicySum),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	e := newEngine(t, engine.WithResolver(g))
	f := New(e)
	defer f.Close()

	ctx := context.Background()
	first := make(chan error, 1)
	go func() {
		_, err := f.Submit(ctx, trigger.Key("praise"))
		first <- err
	}()
	<-g.entered

	queued := make(chan error, 2)
	for _, k := range []string{"music", "criticism"} {
		go func(k string) {
			_, err := f.Submit(ctx, trigger.Key(k))
			queued <- err
		}(k)
	}
	require.Eventually(t, func() bool { return len(f.reqs) == 2 }, 2*time.Second, time.Millisecond)

	type resetResult struct {
		n   int
		err error
	}
	reset := make(chan resetResult, 1)
	go func() {
		n, err := f.Reset(ctx)
		reset <- resetResult{n, err}
	}()
	require.Eventually(t, func() bool { return len(f.resets) == 1 }, 2*time.Second, time.Millisecond)

	close(g.release)

	require.NoError(t, <-first)
	for i := 0; i < 2; i++ {
		require.ErrorIs(t, <-queued, ErrDrained)
	}
	r := <-reset
	require.NoError(t, r.err)
	require.Equal(t, 2, r.n)
	require.Empty(t, e.Transitions())
}

func TestSubmitAfterClose(t *testing.T) {
	f := New(newEngine(t))
	f.Close()
	f.Close() // idempotent

	_, err := f.Submit(context.Background(), trigger.Key("praise"))
	require.ErrorIs(t, err, ErrClosed)
	_, err = f.Reset(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestValidationErrorsPassThrough(t *testing.T) {
	f := New(newEngine(t))
	defer f.Close()
	_, err := f.Submit(context.Background(), trigger.Key(""))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrClosed))
}

func TestRateLimitHonoursContext(t *testing.T) {
	f := New(newEngine(t), WithRateLimit(rate.Every(time.Hour), 1))
	defer f.Close()

	_, err := f.Submit(context.Background(), trigger.Key("praise"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.Submit(ctx, trigger.Key("music"))
	require.Error(t, err)
	require.Len(t, f.Engine().Transitions(), 1)
}

func TestCancelledWhileQueuedIsNotApplied(t *testing.T) {
	g := &gateResolver{
		inner:   trigger.NewLexiconResolver(trigger.DefaultLexicon(), trigger.PolicySum),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	e := newEngine(t, engine.WithResolver(g))
	f := New(e)
	defer f.Close()

	first := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background(), trigger.Key("praise"))
		first <- err
	}()
	<-g.entered

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := f.Submit(ctx, trigger.Key("criticism"))
		cancelled <- err
	}()
	require.Eventually(t, func() bool { return len(f.reqs) == 1 }, 2*time.Second, time.Millisecond)
	cancel()

	last := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background(), trigger.Key("music"))
		last <- err
	}()
	require.Eventually(t, func() bool { return len(f.reqs) == 2 }, 2*time.Second, time.Millisecond)

	// the cancelled caller keeps waiting for the worker's verdict
	select {
	case err := <-cancelled:
		t.Fatalf("queued submit returned before the worker reached it: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(g.release)
	require.NoError(t, <-first)
	require.ErrorIs(t, <-cancelled, context.Canceled)
	require.NoError(t, <-last)

	ts := e.Transitions()
	require.Len(t, ts, 2)
	assert.Equal(t, "praise", ts[0].Cause.Key)
	assert.Equal(t, "music", ts[1].Cause.Key)
}

func TestAppliedRequestIsReportedDespiteCancel(t *testing.T) {
	g := &gateResolver{
		inner:   trigger.NewLexiconResolver(trigger.DefaultLexicon(), trigger.PolicySum),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	e := newEngine(t, engine.WithResolver(g))
	f := New(e)
	defer f.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(ctx, trigger.Key("praise"))
		done <- err
	}()
	<-g.entered
	cancel()
	close(g.release)

	require.NoError(t, <-done)
	require.Len(t, e.Transitions(), 1)
}
