package logging

import "time"

// #region transition-entry
// TransitionEntry is a single row in the transition_log table.
type TransitionEntry struct {
	SessionID    string
	Seq          int
	TransitionID string
	CauseKind    string
	Cause        string
	Matched      string // comma-joined lexicon keys
	Primary      string
	SubEmotion   string
	Coordinates  [3]float64
	Intensity    float64
	Unresolved   bool
	RecordJSON   string // the full session.Transition
	CreatedAt    time.Time
}

// #endregion transition-entry

// #region recorder-stats
// Stats counts what a Recorder has done since it started.
type Stats struct {
	Written int64 `json:"written"`
	Failed  int64 `json:"failed"`
	Dropped int64 `json:"dropped"`
}

// #endregion recorder-stats
