package state

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/affect-engine/internal/coord"
	"github.com/danielpatrickdp/affect-engine/internal/emotion"
	"github.com/danielpatrickdp/affect-engine/internal/export"
	"github.com/danielpatrickdp/affect-engine/internal/logging"
	"github.com/danielpatrickdp/affect-engine/internal/report"
	"github.com/danielpatrickdp/affect-engine/internal/session"
	"github.com/danielpatrickdp/affect-engine/internal/trigger"

	_ "modernc.org/sqlite"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func transitions(n int) []session.Transition {
	cls := emotion.NewClassifier(emotion.DefaultTable())
	prev := cls.State(coord.Baseline, epoch, "baseline")
	var out []session.Transition
	for i := 1; i <= n; i++ {
		ts := epoch.Add(time.Duration(i) * time.Second)
		next := cls.State(coord.Coordinate{Serotonin: 0.1 * float64(i), Dopamine: 0.1 * float64(i)}, ts, "praise")
		out = append(out, session.Transition{
			ID:        "t" + string(rune('0'+i)),
			Seq:       i,
			Previous:  prev,
			Next:      next,
			Cause:     trigger.Key("praise"),
			Delta:     coord.Delta{Serotonin: 0.1, Dopamine: 0.1},
			Matched:   []string{"praise"},
			Timestamp: ts,
		})
		prev = next
	}
	return out
}

func snapshotOf(id string, trs []session.Transition) export.Snapshot {
	return export.Snapshot{
		Format:      export.Format,
		SessionID:   id,
		ExportedAt:  epoch.Add(time.Hour),
		Report:      report.NewReporter(nil).Generate(trs),
		Transitions: trs,
	}
}

func TestNewStoreIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	for i := 0; i < 2; i++ {
		s, err := NewStore(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		s.Close()
	}
}

func TestWriteAndLoadSnapshot(t *testing.T) {
	s := tempDB(t)
	snap := snapshotOf("s1", transitions(3))

	if err := s.Write(context.Background(), snap); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.LoadSnapshot("s1")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteReplacesEarlierExport(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	if err := s.Write(ctx, snapshotOf("s1", transitions(1))); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := s.Write(ctx, snapshotOf("s1", transitions(4))); err != nil {
		t.Fatalf("second write: %v", err)
	}
	got, err := s.LoadSnapshot("s1")
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(got.Transitions) != 4 {
		t.Fatalf("expected latest export, got %d transitions", len(got.Transitions))
	}
	var n int
	s.DB().QueryRow("SELECT COUNT(*) FROM snapshots").Scan(&n)
	if n != 1 {
		t.Fatalf("expected one snapshot row, got %d", n)
	}
}

func TestWriteCancelledContext(t *testing.T) {
	s := tempDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Write(ctx, snapshotOf("s1", transitions(1))); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if _, err := s.LoadSnapshot("s1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected nothing stored, got %v", err)
	}
}

func TestLoadSnapshotNotFound(t *testing.T) {
	s := tempDB(t)
	if _, err := s.LoadSnapshot("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTransitionsOrdered(t *testing.T) {
	s := tempDB(t)
	trs := transitions(3)
	// write out of order; reads come back by seq
	for _, i := range []int{2, 0, 1} {
		entry, err := logging.EntryFor("s1", trs[i])
		if err != nil {
			t.Fatalf("EntryFor: %v", err)
		}
		if err := logging.LogTransition(s.DB(), entry); err != nil {
			t.Fatalf("LogTransition: %v", err)
		}
	}
	got, err := s.ListTransitions("s1")
	if err != nil {
		t.Fatalf("ListTransitions: %v", err)
	}
	if diff := cmp.Diff(trs, got); diff != "" {
		t.Fatalf("transitions mismatch (-want +got):\n%s", diff)
	}

	none, err := s.ListTransitions("other")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty result, got %v %v", none, err)
	}
}

func TestListSessions(t *testing.T) {
	s := tempDB(t)

	for _, tr := range transitions(2) {
		entry, _ := logging.EntryFor("live", tr)
		if err := logging.LogTransition(s.DB(), entry); err != nil {
			t.Fatalf("LogTransition: %v", err)
		}
	}
	exported := transitions(3)
	for i := range exported {
		exported[i].Timestamp = exported[i].Timestamp.Add(time.Minute)
	}
	if err := s.Write(context.Background(), snapshotOf("archived", exported)); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := s.ListSessions(10)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(got))
	}
	if got[0].SessionID != "archived" || !got[0].Exported || got[0].Transitions != 3 {
		t.Errorf("unexpected newest session %+v", got[0])
	}
	if got[1].SessionID != "live" || got[1].Exported || got[1].Transitions != 2 {
		t.Errorf("unexpected older session %+v", got[1])
	}
	if got[1].LastPrimary != string(transitions(2)[1].Next.Primary) {
		t.Errorf("expected last primary %s, got %s", transitions(2)[1].Next.Primary, got[1].LastPrimary)
	}

	limited, _ := s.ListSessions(1)
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}

func TestStoreImplementsSink(t *testing.T) {
	var _ export.Sink = (*Store)(nil)
	s := tempDB(t)
	if s.Name() == "" {
		t.Fatal("expected sink name")
	}
}
