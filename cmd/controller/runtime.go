package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/affect-engine/internal/config"
	"github.com/danielpatrickdp/affect-engine/internal/engine"
	"github.com/danielpatrickdp/affect-engine/internal/export"
	"github.com/danielpatrickdp/affect-engine/internal/logging"
	"github.com/danielpatrickdp/affect-engine/internal/session"
	"github.com/danielpatrickdp/affect-engine/internal/state"
	"github.com/danielpatrickdp/affect-engine/internal/trigger"
)

// #region runtime
// runtime is everything a command needs to drive a persistent engine.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	stopLog  func() error
	store    *state.Store
	recorder *logging.Recorder
	resolver *trigger.LexiconResolver
	engine   *engine.Engine
	sink     export.Sink
}

func openRuntime() (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	// development logs stay synchronous; production output is buffered so
	// update-path warnings never block on stderr
	var logger *zap.Logger
	stopLog := func() error { return nil }
	if cfg.Logging.Development {
		logger, err = logging.New(level, true)
	} else {
		logger, stopLog, err = logging.NewBuffered(level)
	}
	if err != nil {
		return nil, err
	}

	table, err := cfg.Table()
	if err != nil {
		return nil, fmt.Errorf("emotion table: %w", err)
	}
	resolver, err := cfg.Resolver()
	if err != nil {
		return nil, fmt.Errorf("lexicon: %w", err)
	}

	store, err := state.NewStore(cfg.Storage.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	recorder := logging.NewRecorder(store.DB(), cfg.Storage.RecorderBuffer, logger.Named("recorder"))

	eng, err := engine.New(
		engine.WithTable(table),
		engine.WithResolver(resolver),
		engine.WithRegulator(cfg.Decay),
		engine.WithLogger(logger.Named("engine")),
		engine.WithRecorder(recorder),
		engine.WithResetPolicy(session.ResetPolicy(cfg.Engine.ResetPolicy)),
	)
	if err != nil {
		recorder.Close()
		store.Close()
		return nil, err
	}

	var sink export.Sink = store
	if cfg.Storage.ExportDir != "" {
		sink = export.MultiSink{store, export.FileSink{Dir: cfg.Storage.ExportDir}}
	}

	logger.Info("engine ready",
		zap.String("session_id", eng.SessionID()),
		zap.String("db", cfg.Storage.DBPath),
		zap.Int("lexicon_entries", resolver.Lexicon().Len()),
		zap.String("match_policy", string(resolver.Policy())))

	return &runtime{
		cfg:      cfg,
		logger:   logger,
		stopLog:  stopLog,
		store:    store,
		recorder: recorder,
		resolver: resolver,
		engine:   eng,
		sink:     sink,
	}, nil
}

// watchLexicon hot-reloads the lexicon file until ctx ends, when configured.
func (rt *runtime) watchLexicon(ctx context.Context) error {
	if !rt.cfg.Lexicon.Watch {
		return nil
	}
	w, err := trigger.NewWatcher(rt.cfg.Lexicon.Path, rt.resolver, rt.logger.Named("lexicon"))
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// exportSession writes the live session to the configured sinks.
// An empty session is skipped.
func (rt *runtime) exportSession(ctx context.Context) (export.Result, bool, error) {
	if len(rt.engine.Transitions()) == 0 {
		return export.Result{}, false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	res, err := rt.engine.ExportSession(ctx, rt.sink)
	return res, err == nil, err
}

// close exports the session, flushes the recorder and releases the store.
func (rt *runtime) close() {
	if _, _, err := rt.exportSession(context.Background()); err != nil {
		rt.logger.Warn("final export failed", zap.Error(err))
	}
	rt.recorder.Close()
	stats := rt.recorder.Stats()
	rt.logger.Info("recorder closed",
		zap.Int64("written", stats.Written),
		zap.Int64("failed", stats.Failed),
		zap.Int64("dropped", stats.Dropped))
	rt.store.Close()
	_ = rt.logger.Sync()
	_ = rt.stopLog()
}

// #endregion runtime
