package session

import (
	"sync"
	"time"

	"github.com/danielpatrickdp/affect-engine/internal/coord"
	"github.com/danielpatrickdp/affect-engine/internal/domain"
	"github.com/danielpatrickdp/affect-engine/internal/emotion"
	"github.com/danielpatrickdp/affect-engine/internal/trigger"
)

// #region transition
// Transition records one decay-then-update-then-classify cycle.
type Transition struct {
	ID         string                           `json:"id"`
	Seq        int                              `json:"seq"`
	Previous   emotion.State                    `json:"previous"`
	Next       emotion.State                    `json:"next"`
	Cause      trigger.Input                    `json:"cause"`
	Delta      coord.Delta                      `json:"delta"`
	Matched    []string                         `json:"matched,omitempty"`
	Unresolved bool                             `json:"unresolved,omitempty"`
	Warning    *domain.UnresolvedTriggerWarning `json:"warning,omitempty"`
	Timestamp  time.Time                        `json:"timestamp"`
}

// clone deep-copies the slice and pointer fields so callers never share
// memory with the log.
func (t Transition) clone() Transition {
	if t.Matched != nil {
		t.Matched = append([]string(nil), t.Matched...)
	}
	if t.Cause.Delta != nil {
		d := *t.Cause.Delta
		t.Cause.Delta = &d
	}
	if t.Warning != nil {
		w := *t.Warning
		t.Warning = &w
	}
	return t
}

// #endregion transition

// #region reset-policy
// ResetPolicy decides what Reset does with the current transitions.
type ResetPolicy string

const (
	// ResetClear discards the current transitions.
	ResetClear ResetPolicy = "clear"
	// ResetRotate moves the current transitions into the archive.
	ResetRotate ResetPolicy = "rotate"
)

// #endregion reset-policy

// #region log
// Snapshot is a consistent, caller-owned copy of the log.
type Snapshot struct {
	Version     uint64       `json:"version"`
	Transitions []Transition `json:"transitions"`
}

// Segment is one archived run of transitions.
type Segment struct {
	ArchivedAt  time.Time    `json:"archived_at"`
	Transitions []Transition `json:"transitions"`
}

// Log is the append-only transition log owned by one engine. Append is called
// only by the owning writer; Snapshot and Archived may be called from any
// goroutine and always see a consistent copy.
type Log struct {
	mu       sync.RWMutex
	entries  []Transition
	version  uint64
	nextSeq  int
	archived []Segment
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{nextSeq: 1}
}

// Append stores t, assigning the next sequence number, and returns the stored copy.
func (l *Log) Append(t Transition) Transition {
	l.mu.Lock()
	defer l.mu.Unlock()
	t = t.clone()
	t.Seq = l.nextSeq
	l.nextSeq++
	l.entries = append(l.entries, t)
	l.version++
	return t.clone()
}

// Len is the number of transitions in the current segment.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Version increments on every Append and Reset.
func (l *Log) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// Last returns the most recent transition, if any.
func (l *Log) Last() (Transition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.entries) == 0 {
		return Transition{}, false
	}
	return l.entries[len(l.entries)-1].clone(), true
}

// Snapshot copies the current segment.
func (l *Log) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Transition, len(l.entries))
	for i, t := range l.entries {
		out[i] = t.clone()
	}
	return Snapshot{Version: l.version, Transitions: out}
}

// Reset empties the current segment. With ResetRotate the old transitions
// are kept in Archived. Sequence numbers restart at 1.
func (l *Log) Reset(policy ResetPolicy, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if policy == ResetRotate && len(l.entries) > 0 {
		l.archived = append(l.archived, Segment{ArchivedAt: at, Transitions: l.entries})
	}
	l.entries = nil
	l.nextSeq = 1
	l.version++
}

// Archived returns copies of every rotated segment, oldest first.
func (l *Log) Archived() []Segment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Segment, len(l.archived))
	for i, s := range l.archived {
		ts := make([]Transition, len(s.Transitions))
		for j, t := range s.Transitions {
			ts[j] = t.clone()
		}
		out[i] = Segment{ArchivedAt: s.ArchivedAt, Transitions: ts}
	}
	return out
}

// #endregion log
