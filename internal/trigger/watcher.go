package trigger

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// #region watcher
// Watcher reloads a lexicon file into a LexiconResolver whenever it changes.
// A file that fails to parse is logged and the previous lexicon stays active.
type Watcher struct {
	path     string
	resolver *LexiconResolver
	logger   *zap.Logger
	fsw      *fsnotify.Watcher

	// OnReload, if set, is called after each successful swap.
	OnReload func(*Lexicon)
}

// NewWatcher watches the directory containing path so that editors that
// replace files via rename are still seen.
func NewWatcher(path string, resolver *LexiconResolver, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve lexicon path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	return &Watcher{path: abs, resolver: resolver, logger: logger, fsw: fsw}, nil
}

// Run processes file events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.reload()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("lexicon watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	lex, err := LoadLexicon(w.path)
	if err != nil {
		w.logger.Warn("lexicon reload failed, keeping previous lexicon",
			zap.String("path", w.path), zap.Error(err))
		return
	}
	w.resolver.Swap(lex)
	w.logger.Info("lexicon reloaded", zap.String("path", w.path), zap.Int("entries", lex.Len()))
	if w.OnReload != nil {
		w.OnReload(lex)
	}
}

// #endregion watcher
