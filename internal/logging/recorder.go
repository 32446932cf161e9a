package logging

import (
	"database/sql"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/affect-engine/internal/session"
)

// #region recorder
type record struct {
	sessionID string
	t         session.Transition
}

// Recorder persists transitions on its own goroutine. Record never blocks:
// when the buffer is full the transition is dropped and counted. Write
// failures are logged and counted; the in-memory log is unaffected either way.
type Recorder struct {
	db     *sql.DB
	logger *zap.Logger
	queue  chan record

	closeOnce sync.Once
	done      chan struct{}

	written atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// NewRecorder starts a recorder writing to db with the given queue size.
func NewRecorder(db *sql.DB, buffer int, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 1
	}
	r := &Recorder{
		db:     db,
		logger: logger,
		queue:  make(chan record, buffer),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues t for persistence.
func (r *Recorder) Record(sessionID string, t session.Transition) {
	select {
	case r.queue <- record{sessionID: sessionID, t: t}:
	default:
		r.dropped.Add(1)
		r.logger.Warn("transition recorder full, dropping durable copy",
			zap.String("session_id", sessionID), zap.Int("seq", t.Seq))
	}
}

// Close writes everything already queued and stops the goroutine. Record
// must not be called after Close.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() { close(r.queue) })
	<-r.done
}

// Stats reports counters.
func (r *Recorder) Stats() Stats {
	return Stats{Written: r.written.Load(), Failed: r.failed.Load(), Dropped: r.dropped.Load()}
}

func (r *Recorder) run() {
	defer close(r.done)
	for rec := range r.queue {
		entry, err := EntryFor(rec.sessionID, rec.t)
		if err == nil {
			err = LogTransition(r.db, entry)
		}
		if err != nil {
			r.failed.Add(1)
			r.logger.Warn("transition persistence failed",
				zap.String("session_id", rec.sessionID),
				zap.Int("seq", rec.t.Seq),
				zap.Error(err))
			continue
		}
		r.written.Add(1)
	}
}

// #endregion recorder
