package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/affect-engine/internal/config"
	"github.com/danielpatrickdp/affect-engine/internal/logging"
	"github.com/danielpatrickdp/affect-engine/internal/replay"
	"github.com/danielpatrickdp/affect-engine/internal/state"
)

var (
	dbPath     string
	sessionID  string
	configPath string
	jsonOut    bool
	verbose    bool
)

// errDiverged makes the process exit 1 without printing an error line; the
// comparison table already says what diverged.
var errDiverged = errors.New("replay diverged")

// #region main
var rootCmd = &cobra.Command{
	Use:   "replay [fixture.json...]",
	Short: "Replay trigger fixtures or recorded sessions through a fresh engine",
	Long: `Replays each fixture file through an engine on a manual clock and compares
the classified emotions with the fixture's expectations. With --db and
--session a recorded session is replayed against its own transition log.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func main() {
	rootCmd.Flags().StringVar(&dbPath, "db", "", "path to affect.db (session mode)")
	rootCmd.Flags().StringVar(&sessionID, "session", "", "session id to replay from --db")
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config for the lexicon, anchors and decay")
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "print results as JSON")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log engine activity")

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errDiverged) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if (dbPath == "") != (sessionID == "") {
		return errors.New("--db and --session must be used together")
	}
	if dbPath == "" && len(args) == 0 {
		return errors.New("no fixtures given; pass fixture files or --db and --session")
	}

	var fixtures []*replay.Fixture
	var names []string
	if dbPath != "" {
		f, err := sessionFixture()
		if err != nil {
			return err
		}
		fixtures, names = append(fixtures, f), append(names, "session "+sessionID)
	}
	for _, path := range args {
		f, err := replay.LoadFixture(path)
		if err != nil {
			return err
		}
		fixtures, names = append(fixtures, f), append(names, path)
	}

	out := cmd.OutOrStdout()
	failed := false
	for i, f := range fixtures {
		summary, results, err := runFixture(f)
		if err != nil {
			return fmt.Errorf("%s: %w", names[i], err)
		}
		if !summary.Passed() {
			failed = true
		}
		if jsonOut {
			if err := printJSON(out, names[i], results, summary); err != nil {
				return err
			}
			continue
		}
		printComparison(out, names[i], f.Description, results, summary)
	}
	if failed {
		return errDiverged
	}
	return nil
}

// #endregion main

// #region session-mode

// sessionFixture builds a fixture from a stored session's transition log,
// falling back to its exported snapshot.
func sessionFixture() (*replay.Fixture, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	store, err := state.NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	ts, err := store.ListTransitions(sessionID)
	if err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		snap, err := store.LoadSnapshot(sessionID)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", sessionID, err)
		}
		ts = snap.Transitions
	}
	if len(ts) == 0 {
		return nil, fmt.Errorf("session %s has no transitions", sessionID)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return replay.FromTransitions("recorded session "+sessionID, ts, &cfg.Decay), nil
}

// #endregion session-mode

// #region run
func runFixture(f *replay.Fixture) (replay.ReplaySummary, []replay.ReplayResult, error) {
	rc, err := f.Config.ToReplayConfig()
	if err != nil {
		return replay.ReplaySummary{}, nil, err
	}
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return replay.ReplaySummary{}, nil, fmt.Errorf("load config: %w", err)
		}
		if rc.Resolver, err = cfg.Resolver(); err != nil {
			return replay.ReplaySummary{}, nil, err
		}
		// fixture priority overrides still win over the configured table
		if len(f.Config.Priority) == 0 {
			if rc.Table, err = cfg.Table(); err != nil {
				return replay.ReplaySummary{}, nil, err
			}
		}
	}
	if verbose {
		if rc.Logger, err = logging.New("debug", true); err != nil {
			return replay.ReplaySummary{}, nil, err
		}
	}

	steps, err := f.ToSteps()
	if err != nil {
		return replay.ReplaySummary{}, nil, err
	}
	results, eng, err := replay.Replay(steps, rc)
	if err != nil {
		return replay.ReplaySummary{}, nil, err
	}
	return replay.Summarize(results, eng), results, nil
}

// #endregion run

// #region output
func printComparison(out io.Writer, name, description string, results []replay.ReplayResult, s replay.ReplaySummary) {
	fmt.Fprintf(out, "== %s\n", name)
	if description != "" {
		fmt.Fprintf(out, "   %s\n", description)
	}
	fmt.Fprintf(out, "%-5s| %-24s| %-9s| %-24s| %s\n", "Step", "Cause", "Action", "Emotion", "Match")
	fmt.Fprintf(out, "%-5s+%-25s+%-10s+%-25s+%s\n",
		"-----", "-------------------------", "----------", "-------------------------", "------")

	for _, r := range results {
		emotion := "-"
		if r.Action == "applied" || r.Action == "reset" {
			emotion = string(r.State.Primary) + "/" + r.State.SubEmotion
		}
		match := "OK"
		switch {
		case r.Mismatch != "":
			match = "DIFF " + r.Mismatch
		case r.EvalResult != nil && !r.EvalResult.Passed:
			match = "EVAL " + r.EvalResult.Reason
		case r.Action == "rejected" && r.Reason != "":
			match = "OK (" + r.Reason + ")"
		}
		fmt.Fprintf(out, "%-5d| %-24s| %-9s| %-24s| %s\n", r.Index, truncate(r.Cause, 24), r.Action, emotion, match)
	}

	fmt.Fprintf(out, "\nSummary: %d steps, %d applied, %d resets, %d rejected, %d mismatches, %d eval failures\n",
		s.TotalSteps, s.Applied, s.Resets, s.Rejected, s.Mismatches, s.EvalFailures)
	fmt.Fprintf(out, "Final: %s/%s intensity=%.3f\n", s.FinalState.Primary, s.FinalState.SubEmotion, s.FinalState.Intensity)
	fmt.Fprintf(out, "%s\n\n", s.Report.Narrative)
}

type jsonRun struct {
	Name    string                `json:"name"`
	Passed  bool                  `json:"passed"`
	Results []replay.ReplayResult `json:"results"`
	Summary replay.ReplaySummary  `json:"summary"`
}

func printJSON(out io.Writer, name string, results []replay.ReplayResult, s replay.ReplaySummary) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonRun{Name: name, Passed: s.Passed(), Results: results, Summary: s})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// #endregion output
