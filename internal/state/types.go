package state

import "time"

// #region session-record
// SessionRecord summarizes one stored session.
type SessionRecord struct {
	SessionID   string
	StartedAt   time.Time
	Transitions int
	LastPrimary string
	Exported    bool
	ExportedAt  time.Time
}

// #endregion session-record
