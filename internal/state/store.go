package state

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/affect-engine/internal/export"
	"github.com/danielpatrickdp/affect-engine/internal/session"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned when a session has no stored data.
var ErrNotFound = errors.New("not found")

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id    TEXT PRIMARY KEY,
	started_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS transition_log (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id      TEXT NOT NULL,
	seq             INTEGER NOT NULL,
	transition_id   TEXT NOT NULL UNIQUE,
	cause_kind      TEXT NOT NULL,
	cause           TEXT NOT NULL,
	matched         TEXT,
	primary_emotion TEXT NOT NULL,
	sub_emotion     TEXT NOT NULL,
	serotonin       REAL NOT NULL,
	dopamine        REAL NOT NULL,
	noradrenaline   REAL NOT NULL,
	intensity       REAL NOT NULL,
	unresolved      INTEGER NOT NULL DEFAULT 0,
	record_json     TEXT,
	created_at      TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE INDEX IF NOT EXISTS transition_log_session ON transition_log(session_id, seq);

CREATE TABLE IF NOT EXISTS snapshots (
	session_id    TEXT PRIMARY KEY,
	format        TEXT NOT NULL,
	exported_at   TEXT NOT NULL,
	transitions   INTEGER NOT NULL,
	snapshot_json TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);
`

// #endregion schema

// #region store-struct
// Store persists sessions in SQLite: per-transition rows written by the
// logging recorder and whole-session snapshots written through export.Sink.
type Store struct {
	db   *sql.DB
	path string
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region sink
// Name implements export.Sink.
func (s *Store) Name() string { return "sqlite:" + s.path }

// Write implements export.Sink: the snapshot replaces any earlier export of
// the same session.
func (s *Store) Write(ctx context.Context, snap export.Snapshot) error {
	var buf bytes.Buffer
	if err := export.Encode(&buf, snap); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	exported := snap.ExportedAt.UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	started := exported
	if len(snap.Transitions) > 0 {
		started = snap.Transitions[0].Timestamp.UTC().Format(timeLayout)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (session_id, started_at) VALUES (?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		snap.SessionID, started,
	)
	if err != nil {
		return fmt.Errorf("register session: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (session_id, format, exported_at, transitions, snapshot_json)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   format = excluded.format,
		   exported_at = excluded.exported_at,
		   transitions = excluded.transitions,
		   snapshot_json = excluded.snapshot_json`,
		snap.SessionID, snap.Format, exported, len(snap.Transitions), buf.String(),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return tx.Commit()
}

// #endregion sink

// #region load-snapshot
// LoadSnapshot re-imports the most recent export of a session.
func (s *Store) LoadSnapshot(sessionID string) (export.Snapshot, error) {
	var raw string
	err := s.db.QueryRow(
		`SELECT snapshot_json FROM snapshots WHERE session_id = ?`, sessionID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return export.Snapshot{}, fmt.Errorf("snapshot %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return export.Snapshot{}, fmt.Errorf("get snapshot %s: %w", sessionID, err)
	}
	return export.Decode(bytes.NewReader([]byte(raw)))
}

// #endregion load-snapshot

// #region list-transitions
// ListTransitions returns a session's recorded transitions in order.
func (s *Store) ListTransitions(sessionID string) ([]session.Transition, error) {
	rows, err := s.db.Query(
		`SELECT record_json FROM transition_log WHERE session_id = ? ORDER BY seq, id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []session.Transition
	for rows.Next() {
		var raw sql.NullString
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if !raw.Valid {
			continue
		}
		var t session.Transition
		if err := json.Unmarshal([]byte(raw.String), &t); err != nil {
			return nil, fmt.Errorf("unmarshal transition: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// #endregion list-transitions

// #region list-sessions
// ListSessions returns the most recently started sessions.
func (s *Store) ListSessions(limit int) ([]SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT s.session_id, s.started_at,
		        (SELECT COUNT(*) FROM transition_log t WHERE t.session_id = s.session_id),
		        (SELECT primary_emotion FROM transition_log t WHERE t.session_id = s.session_id ORDER BY seq DESC, id DESC LIMIT 1),
		        p.exported_at, p.transitions
		 FROM sessions s LEFT JOIN snapshots p ON p.session_id = s.session_id
		 ORDER BY s.started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var startedStr string
		var lastPrimary, exportedStr sql.NullString
		var exportedCount sql.NullInt64

		if err := rows.Scan(&rec.SessionID, &startedStr, &rec.Transitions, &lastPrimary, &exportedStr, &exportedCount); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.StartedAt, _ = time.Parse(timeLayout, startedStr)
		if lastPrimary.Valid {
			rec.LastPrimary = lastPrimary.String
		}
		if exportedStr.Valid {
			rec.Exported = true
			rec.ExportedAt, _ = time.Parse(timeLayout, exportedStr.String)
			// a session exported without a recorder has no transition rows
			if rec.Transitions == 0 && exportedCount.Valid {
				rec.Transitions = int(exportedCount.Int64)
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-sessions
