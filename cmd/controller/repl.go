package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/affect-engine/internal/emotion"
	"github.com/danielpatrickdp/affect-engine/internal/trigger"
)

// #region repl
func runREPL(cmd *cobra.Command, _ []string) error {
	rt, err := openRuntime()
	if err != nil {
		return err
	}
	defer rt.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		if err := rt.watchLexicon(ctx); err != nil {
			rt.logger.Warn("lexicon watcher stopped", zap.Error(err))
		}
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Affect engine ready.")
	fmt.Fprintf(out, "  DB: %s | session: %s\n", rt.cfg.Storage.DBPath, rt.engine.SessionID())
	fmt.Fprintln(out, "Type a trigger (or /quit to exit):")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := rt.command(ctx, out, line); quit {
				return nil
			}
			continue
		}

		in, err := trigger.Parse(line)
		if err != nil {
			fmt.Fprintf(out, "invalid trigger: %v\n", err)
			continue
		}
		st, err := rt.engine.Update(in)
		if err != nil {
			fmt.Fprintf(out, "update failed: %v\n", err)
			continue
		}
		printState(out, len(rt.engine.Transitions()), st)
	}
}

// command runs a slash command and reports whether the REPL should exit.
func (rt *runtime) command(ctx context.Context, out io.Writer, line string) bool {
	switch line {
	case "/quit", "/exit":
		return true
	case "/state":
		printState(out, len(rt.engine.Transitions()), rt.engine.CurrentState())
	case "/report":
		fmt.Fprintln(out, rt.engine.GenerateReport().Narrative)
	case "/export":
		res, ok, err := rt.exportSession(ctx)
		switch {
		case err != nil:
			fmt.Fprintf(out, "export failed: %v\n", err)
		case !ok:
			fmt.Fprintln(out, "nothing to export")
		default:
			fmt.Fprintf(out, "exported %d transitions of %s to %s\n", res.Transitions, res.SessionID, res.Sink)
		}
	case "/reset":
		if _, _, err := rt.exportSession(ctx); err != nil {
			fmt.Fprintf(out, "export before reset failed: %v\n", err)
		}
		if err := rt.engine.Reset(); err != nil {
			fmt.Fprintf(out, "reset failed: %v\n", err)
			break
		}
		fmt.Fprintf(out, "new session %s\n", rt.engine.SessionID())
	default:
		fmt.Fprintf(out, "unknown command %s\n", line)
	}
	return false
}

func printState(out io.Writer, seq int, s emotion.State) {
	c := s.Coordinates
	fmt.Fprintf(out, "[%d] %s/%s intensity=%.3f (s=%+.3f d=%+.3f n=%+.3f) %s\n",
		seq, s.Primary, s.SubEmotion, s.Intensity, c.Serotonin, c.Dopamine, c.Noradrenaline, s.Detail)
}

// #endregion repl
