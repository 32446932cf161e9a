package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/affect-engine/internal/domain"
	"github.com/danielpatrickdp/affect-engine/internal/report"
	"github.com/danielpatrickdp/affect-engine/internal/session"
)

// Format identifies the snapshot layout.
const Format = "affect.session/v1"

// #region snapshot
// Snapshot is the portable form of a session: the computed report plus the
// raw transitions it was computed from.
type Snapshot struct {
	Format      string               `json:"format"`
	SessionID   string               `json:"session_id"`
	ExportedAt  time.Time            `json:"exported_at"`
	Report      report.Report        `json:"report"`
	Transitions []session.Transition `json:"transitions"`
}

// Result describes a completed export.
type Result struct {
	SessionID   string    `json:"session_id"`
	Sink        string    `json:"sink"`
	Transitions int       `json:"transitions"`
	ExportedAt  time.Time `json:"exported_at"`
}

// Encode writes s as indented JSON.
func Encode(w io.Writer, s Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// Decode reads one snapshot and checks its format tag.
func Decode(r io.Reader) (Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if s.Format != Format {
		return Snapshot{}, domain.NewValidationError("snapshot.format", fmt.Sprintf("unsupported format %q", s.Format))
	}
	return s, nil
}

// ReadFile re-imports a snapshot written by FileSink.
func ReadFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// #endregion snapshot

// #region sink
// Sink receives exported snapshots. Implementations own their storage format
// and durability.
type Sink interface {
	Write(ctx context.Context, s Snapshot) error
	Name() string
}

// #endregion sink

// #region file-sink
// FileSink writes each snapshot to <Dir>/<session-id>.json. The file is
// written to a temp name first and renamed into place.
type FileSink struct {
	Dir string
}

// Name implements Sink.
func (f FileSink) Name() string { return "file:" + f.Dir }

// Path returns the file a session is written to.
func (f FileSink) Path(sessionID string) string {
	return filepath.Join(f.Dir, sessionID+".json")
}

// Write implements Sink.
func (f FileSink) Write(ctx context.Context, s Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	tmp, err := os.CreateTemp(f.Dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, s); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path(s.SessionID)); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// #endregion file-sink

// #region multi-sink
// MultiSink writes to every sink concurrently. The first failure cancels the
// remaining writes and is returned.
type MultiSink []Sink

// Name implements Sink.
func (m MultiSink) Name() string {
	names := make([]string, len(m))
	for i, s := range m {
		names[i] = s.Name()
	}
	return "multi[" + strings.Join(names, ",") + "]"
}

// Write implements Sink.
func (m MultiSink) Write(ctx context.Context, s Snapshot) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, sink := range m {
		g.Go(func() error {
			if err := sink.Write(ctx, s); err != nil {
				return fmt.Errorf("%s: %w", sink.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}

// #endregion multi-sink
