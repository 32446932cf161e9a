// Package engine owns one affective state: it resolves triggers, decays and
// updates the coordinate, classifies it, and logs every transition.
//
// An Engine has a single writer. Update and Reset must be called from one
// goroutine (or serialized externally, see package feed); an overlapping call
// fails with a ConcurrencyError instead of racing. CurrentState,
// GenerateReport, ExportSession and SessionID may be called from any
// goroutine.
//
// Update performs no I/O of its own. It may log an unresolved-trigger warning;
// give it a buffered logger (logging.NewBuffered) to keep that off stderr.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/affect-engine/internal/coord"
	"github.com/danielpatrickdp/affect-engine/internal/domain"
	"github.com/danielpatrickdp/affect-engine/internal/emotion"
	"github.com/danielpatrickdp/affect-engine/internal/export"
	"github.com/danielpatrickdp/affect-engine/internal/report"
	"github.com/danielpatrickdp/affect-engine/internal/session"
	"github.com/danielpatrickdp/affect-engine/internal/trigger"
	"github.com/danielpatrickdp/affect-engine/internal/update"
)

// #region recorder
// Recorder receives every stored transition for durable persistence.
// Record must not block; failures stay inside the recorder.
type Recorder interface {
	Record(sessionID string, t session.Transition)
}

// #endregion recorder

// #region options
// Option configures an Engine.
type Option func(*Engine)

// WithTable replaces the default emotion table.
func WithTable(t *emotion.Table) Option { return func(e *Engine) { e.table = t } }

// WithResolver replaces the default lexicon resolver.
func WithResolver(r trigger.Resolver) Option { return func(e *Engine) { e.resolver = r } }

// WithRegulator sets the decay parameters.
func WithRegulator(r update.Regulator) Option { return func(e *Engine) { e.reg = r } }

// WithClock sets the time source.
func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithRecorder attaches a durable transition recorder.
func WithRecorder(r Recorder) Option { return func(e *Engine) { e.recorder = r } }

// WithResetPolicy chooses between clearing and rotating the log on Reset.
func WithResetPolicy(p session.ResetPolicy) Option { return func(e *Engine) { e.resetPolicy = p } }

// WithSessionID fixes the initial session ID instead of generating one.
func WithSessionID(id string) Option { return func(e *Engine) { e.sessionID = id } }

// #endregion options

// #region engine
// Engine is the affective state machine.
type Engine struct {
	table       *emotion.Table
	classifier  *emotion.Classifier
	reporter    *report.Reporter
	resolver    trigger.Resolver
	reg         update.Regulator
	clock       Clock
	logger      *zap.Logger
	recorder    Recorder
	resetPolicy session.ResetPolicy

	busy atomic.Bool
	log  *session.Log

	// mu guards the fields below for readers on other goroutines.
	mu        sync.RWMutex
	sessionID string
	current   emotion.State
	lastTick  time.Time
	lastStamp time.Time
}

// New constructs an engine at baseline.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		reg:         update.DefaultRegulator(),
		clock:       SystemClock{},
		resetPolicy: session.ResetClear,
		log:         session.NewLog(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.table == nil {
		e.table = emotion.DefaultTable()
	}
	if e.resolver == nil {
		e.resolver = trigger.NewLexiconResolver(trigger.DefaultLexicon(), trigger.PolicySum)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if err := e.reg.Validate(); err != nil {
		return nil, err
	}
	switch e.resetPolicy {
	case session.ResetClear, session.ResetRotate:
	default:
		return nil, domain.NewValidationError("reset_policy", fmt.Sprintf("unknown policy %q", e.resetPolicy))
	}
	if e.sessionID == "" {
		e.sessionID = uuid.NewString()
	}
	e.classifier = emotion.NewClassifier(e.table)
	e.reporter = report.NewReporter(e.table)

	now := e.clock.Now()
	e.lastTick = now
	e.lastStamp = now.UTC()
	e.current = e.classifier.State(coord.Baseline, e.lastStamp, "baseline")
	return e, nil
}

// Table returns the emotion table in use.
func (e *Engine) Table() *emotion.Table { return e.table }

// Regulator returns the decay parameters.
func (e *Engine) Regulator() update.Regulator { return e.reg }

// SessionID identifies the current log segment. It changes on Reset.
func (e *Engine) SessionID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sessionID
}

// #endregion engine

// #region update
// Update applies one trigger: decay by elapsed time, add the resolved delta,
// clamp, classify, log. A malformed input or overlapping call leaves the
// state and log untouched. An unresolved trigger is a zero-delta transition
// with a warning, not an error.
func (e *Engine) Update(in trigger.Input) (emotion.State, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return emotion.State{}, &domain.ConcurrencyError{Op: "update"}
	}
	defer e.busy.Store(false)

	if err := in.Validate(); err != nil {
		return emotion.State{}, err
	}
	res, err := e.resolver.Resolve(in)
	if err != nil {
		return emotion.State{}, fmt.Errorf("resolve %s: %w", in, err)
	}
	if err := res.Delta.Validate(); err != nil {
		return emotion.State{}, fmt.Errorf("resolve %s: %w", in, err)
	}

	e.mu.RLock()
	prev, lastTick, sessionID := e.current, e.lastTick, e.sessionID
	e.mu.RUnlock()

	now := e.clock.Now()
	step := update.Update(prev.Coordinates, res.Delta, now.Sub(lastTick), e.reg)
	ts := e.stamp(now)
	next := e.classifier.State(step.Next, ts, detail(res))

	stored := e.log.Append(session.Transition{
		ID:         uuid.NewString(),
		Previous:   prev,
		Next:       next,
		Cause:      in,
		Delta:      res.Delta,
		Matched:    res.Matched,
		Unresolved: res.Unresolved,
		Warning:    res.Warning(in),
		Timestamp:  ts,
	})

	e.mu.Lock()
	e.current = next
	e.lastTick = now
	e.lastStamp = ts
	e.mu.Unlock()

	if stored.Warning != nil {
		e.logger.Warn("unresolved trigger",
			zap.String("session_id", sessionID),
			zap.Int("seq", stored.Seq),
			zap.String("input", stored.Warning.Input))
	}
	e.logger.Debug("transition",
		zap.String("session_id", sessionID),
		zap.Int("seq", stored.Seq),
		zap.String("cause", in.String()),
		zap.String("primary", string(next.Primary)),
		zap.String("sub_emotion", next.SubEmotion),
		zap.Float64("intensity", next.Intensity),
		zap.Float64("decay_norm", step.Metrics.DecayNorm),
		zap.Bool("clamped", step.Metrics.Clamped))

	if e.recorder != nil {
		e.recorder.Record(sessionID, stored)
	}
	return next, nil
}

// stamp converts now to a UTC wall time strictly after the previous stamp.
func (e *Engine) stamp(now time.Time) time.Time {
	e.mu.RLock()
	last := e.lastStamp
	e.mu.RUnlock()
	ts := now.UTC()
	if !ts.After(last) {
		ts = last.Add(time.Nanosecond)
	}
	return ts
}

func detail(res trigger.Resolution) string {
	if res.Unresolved {
		return "unresolved"
	}
	return strings.Join(res.Matched, "+")
}

// #endregion update

// #region read
// CurrentState returns a copy of the latest state.
func (e *Engine) CurrentState() emotion.State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Transitions returns a copy of the current log segment.
func (e *Engine) Transitions() []session.Transition {
	return e.log.Snapshot().Transitions
}

// Archived returns the segments rotated out by Reset.
func (e *Engine) Archived() []session.Segment {
	return e.log.Archived()
}

// GenerateReport summarizes the current log segment. It never fails.
func (e *Engine) GenerateReport() report.Report {
	return e.reporter.Generate(e.log.Snapshot().Transitions)
}

// Snapshot captures the session for export. The session ID and transitions
// are read together so a concurrent Reset cannot mix segments.
func (e *Engine) Snapshot() export.Snapshot {
	e.mu.RLock()
	id := e.sessionID
	snap := e.log.Snapshot()
	e.mu.RUnlock()
	return export.Snapshot{
		Format:      export.Format,
		SessionID:   id,
		ExportedAt:  e.clock.Now().UTC(),
		Report:      e.reporter.Generate(snap.Transitions),
		Transitions: snap.Transitions,
	}
}

// ExportSession writes the report and raw log to sink. A sink failure is
// returned as *domain.ExportFailure and never touches the log.
func (e *Engine) ExportSession(ctx context.Context, sink export.Sink) (export.Result, error) {
	s := e.Snapshot()
	if err := sink.Write(ctx, s); err != nil {
		e.logger.Warn("session export failed",
			zap.String("session_id", s.SessionID),
			zap.String("sink", sink.Name()),
			zap.Error(err))
		return export.Result{}, &domain.ExportFailure{Sink: sink.Name(), Cause: err}
	}
	e.logger.Info("session exported",
		zap.String("session_id", s.SessionID),
		zap.String("sink", sink.Name()),
		zap.Int("transitions", len(s.Transitions)))
	return export.Result{
		SessionID:   s.SessionID,
		Sink:        sink.Name(),
		Transitions: len(s.Transitions),
		ExportedAt:  s.ExportedAt,
	}, nil
}

// #endregion read

// #region reset
// Reset returns the coordinate to baseline, clears or rotates the log, and
// starts a new session ID. It fails with a ConcurrencyError if an update is
// in flight.
func (e *Engine) Reset() error {
	if !e.busy.CompareAndSwap(false, true) {
		return &domain.ConcurrencyError{Op: "reset"}
	}
	defer e.busy.Store(false)

	now := e.clock.Now()
	ts := e.stamp(now)

	e.mu.Lock()
	old := e.sessionID
	e.log.Reset(e.resetPolicy, ts)
	e.sessionID = uuid.NewString()
	e.current = e.classifier.State(coord.Baseline, ts, "baseline")
	e.lastTick = now
	e.lastStamp = ts
	id := e.sessionID
	e.mu.Unlock()

	e.logger.Info("engine reset",
		zap.String("previous_session_id", old),
		zap.String("session_id", id),
		zap.String("policy", string(e.resetPolicy)))
	return nil
}

// #endregion reset
