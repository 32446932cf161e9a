package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// #region commands
var rootCmd = &cobra.Command{
	Use:   "controller",
	Short: "Run the affect engine",
	Long: `controller drives the affect engine: it maps triggers onto a
three-axis emotional coordinate, decays it toward baseline over time, and
records every transition to SQLite.

Configuration comes from --config (YAML) with AFFECT_DB, AFFECT_ADDR and
AFFECT_LEXICON overrides.`,
	SilenceUsage: true,
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Read triggers from stdin",
	Long: `Reads one trigger per line:
  !praise          canonical lexicon key
  =0.2,-0.1,0.4    explicit delta (serotonin, dopamine, noradrenaline)
  anything else    free text matched against the lexicon

Commands: /state, /report, /export, /reset, /quit.`,
	RunE: runREPL,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the engine over gRPC",
	RunE:  runServe,
}

var sendCmd = &cobra.Command{
	Use:   "send <trigger>...",
	Short: "Send trigger lines to a running server",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSend,
}

// #endregion commands

// #region main
func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	sendCmd.Flags().String("addr", "", "server address (default from config)")
	sendCmd.Flags().Bool("report", false, "print the remote session report afterwards")

	rootCmd.AddCommand(replCmd, serveCmd, sendCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main
