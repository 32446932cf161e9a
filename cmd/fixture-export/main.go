package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/affect-engine/internal/config"
	"github.com/danielpatrickdp/affect-engine/internal/replay"
	"github.com/danielpatrickdp/affect-engine/internal/session"
	"github.com/danielpatrickdp/affect-engine/internal/state"
)

// #region main
var rootCmd = &cobra.Command{
	Use:   "fixture-export <session-id>",
	Short: "Export a recorded session as a replay fixture",
	Long: `Reads a session's transition log (or its exported snapshot) and writes a
fixture that replays the same triggers with the same spacing and expects the
same emotions. Run the result with the replay command.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         run,
}

func main() {
	rootCmd.Flags().String("db", "", "path to affect.db (default from "+config.EnvDB+" or affect.db)")
	rootCmd.Flags().String("out", "", "output fixture JSON path")
	rootCmd.Flags().StringP("config", "c", "", "YAML config whose decay is recorded in the fixture")
	_ = rootCmd.MarkFlagRequired("out")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract
func run(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")
	outPath, _ := cmd.Flags().GetString("out")
	configPath, _ := cmd.Flags().GetString("config")
	id := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dbPath == "" {
		dbPath = cfg.Storage.DBPath
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	store, err := state.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	ts, err := sessionTransitions(store, id)
	if err != nil {
		return err
	}

	f := replay.FromTransitions(fmt.Sprintf("exported from session %s (%d transitions)", id, len(ts)), ts, &cfg.Decay)
	if err := replay.WriteFixture(outPath, f); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d steps to %s\n", len(f.Steps), outPath)
	return nil
}

// sessionTransitions prefers the transition log, which survives sessions
// that were never exported, and falls back to the snapshot.
func sessionTransitions(store *state.Store, id string) ([]session.Transition, error) {
	ts, err := store.ListTransitions(id)
	if err != nil {
		return nil, err
	}
	if len(ts) > 0 {
		return ts, nil
	}
	snap, err := store.LoadSnapshot(id)
	if errors.Is(err, state.ErrNotFound) {
		return nil, fmt.Errorf("session %s: %w", id, err)
	}
	if err != nil {
		return nil, err
	}
	if len(snap.Transitions) == 0 {
		return nil, fmt.Errorf("session %s has no transitions", id)
	}
	return snap.Transitions, nil
}

// #endregion extract
