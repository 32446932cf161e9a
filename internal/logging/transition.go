package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/affect-engine/internal/session"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region entry-from-transition
// EntryFor flattens a transition into its row form.
func EntryFor(sessionID string, t session.Transition) (TransitionEntry, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return TransitionEntry{}, fmt.Errorf("marshal transition: %w", err)
	}
	return TransitionEntry{
		SessionID:    sessionID,
		Seq:          t.Seq,
		TransitionID: t.ID,
		CauseKind:    string(t.Cause.Kind),
		Cause:        t.Cause.String(),
		Matched:      strings.Join(t.Matched, ","),
		Primary:      string(t.Next.Primary),
		SubEmotion:   t.Next.SubEmotion,
		Coordinates:  t.Next.Coordinates.Array(),
		Intensity:    t.Next.Intensity,
		Unresolved:   t.Unresolved,
		RecordJSON:   string(raw),
		CreatedAt:    t.Timestamp,
	}, nil
}

// #endregion entry-from-transition

// #region log-transition
// LogTransition writes a transition row, registering its session on first
// use. The schema is owned by state.Store.
func LogTransition(db *sql.DB, entry TransitionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	created := entry.CreatedAt.UTC().Format(timeLayout)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO sessions (session_id, started_at) VALUES (?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		entry.SessionID, created,
	)
	if err != nil {
		return fmt.Errorf("register session: %w", err)
	}

	unresolved := 0
	if entry.Unresolved {
		unresolved = 1
	}
	_, err = tx.Exec(
		`INSERT INTO transition_log (session_id, seq, transition_id, cause_kind, cause, matched,
		   primary_emotion, sub_emotion, serotonin, dopamine, noradrenaline, intensity, unresolved, record_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		entry.Seq,
		entry.TransitionID,
		entry.CauseKind,
		entry.Cause,
		nullIfEmpty(entry.Matched),
		entry.Primary,
		entry.SubEmotion,
		entry.Coordinates[0],
		entry.Coordinates[1],
		entry.Coordinates[2],
		entry.Intensity,
		unresolved,
		nullIfEmpty(entry.RecordJSON),
		created,
	)
	if err != nil {
		return fmt.Errorf("log transition: %w", err)
	}
	return tx.Commit()
}

// #endregion log-transition

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
