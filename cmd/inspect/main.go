package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/affect-engine/internal/config"
	"github.com/danielpatrickdp/affect-engine/internal/report"
	"github.com/danielpatrickdp/affect-engine/internal/session"
	"github.com/danielpatrickdp/affect-engine/internal/state"
)

var (
	dbPath  string
	jsonOut bool
)

// #region commands
var rootCmd = &cobra.Command{
	Use:          "inspect",
	Short:        "Inspect stored affect sessions",
	SilenceUsage: true,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List the most recent sessions",
	RunE:  runSessions,
}

var reportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Render a session report",
	Long: `Renders the report of an exported session. Sessions that were never
exported are reported from their recorded transitions.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

var transitionsCmd = &cobra.Command{
	Use:   "transitions <session-id>",
	Short: "List a session's recorded transitions",
	Args:  cobra.ExactArgs(1),
	RunE:  runTransitions,
}

// #endregion commands

// #region main
func main() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to affect.db (default from "+config.EnvDB+" or affect.db)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON instead of a table")
	sessionsCmd.Flags().Int("last", 20, "show N most recent sessions")

	rootCmd.AddCommand(sessionsCmd, reportCmd, transitionsCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func openStore() (*state.Store, error) {
	path := dbPath
	if path == "" {
		path = config.Default().Storage.DBPath
		if v := os.Getenv(config.EnvDB); v != "" {
			path = v
		}
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return state.NewStore(path)
}

// #endregion main

// #region sessions
func runSessions(cmd *cobra.Command, _ []string) error {
	last, _ := cmd.Flags().GetInt("last")
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListSessions(last)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderSessions(records))
	return nil
}

// #endregion sessions

// #region report
func runReport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rep, source, err := loadReport(store, args[0])
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(rep)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderReport(args[0], source, rep))
	return nil
}

// loadReport prefers the exported snapshot and falls back to the recorded
// transitions of a session that was never exported.
func loadReport(store *state.Store, id string) (report.Report, string, error) {
	snap, err := store.LoadSnapshot(id)
	if err == nil {
		return snap.Report, "snapshot " + snap.ExportedAt.Format("2006-01-02 15:04:05"), nil
	}
	if !errors.Is(err, state.ErrNotFound) {
		return report.Report{}, "", err
	}
	ts, err := store.ListTransitions(id)
	if err != nil {
		return report.Report{}, "", err
	}
	if len(ts) == 0 {
		return report.Report{}, "", fmt.Errorf("session %s: %w", id, state.ErrNotFound)
	}
	return report.NewReporter(nil).Generate(ts), "transition log", nil
}

// #endregion report

// #region transitions
func runTransitions(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ts, err := store.ListTransitions(args[0])
	if err != nil {
		return err
	}
	if len(ts) == 0 {
		if snap, err := store.LoadSnapshot(args[0]); err == nil {
			ts = snap.Transitions
		}
	}
	if jsonOut {
		if ts == nil {
			ts = []session.Transition{}
		}
		return printJSON(ts)
	}
	if len(ts) == 0 {
		return fmt.Errorf("session %s: %w", args[0], state.ErrNotFound)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTransitions(ts))
	return nil
}

// #endregion transitions

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
