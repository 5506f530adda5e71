package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc receives every successfully reloaded and validated config.
type ReloadFunc func(cfg *NodeConfig)

// Watcher reloads the node config when its file changes. Only the
// logging level is applied live; other changes take effect on restart.
type Watcher struct {
	path   string
	level  *slog.LevelVar
	logger *slog.Logger
	fsw    *fsnotify.Watcher
	onLoad ReloadFunc
	done   chan struct{}
}

// NewWatcher watches the directory holding path, since editors usually
// replace the file rather than write it in place.
func NewWatcher(path string, level *slog.LevelVar, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	return &Watcher{
		path:   filepath.Clean(path),
		level:  level,
		logger: logger,
		fsw:    fsw,
		done:   make(chan struct{}),
	}, nil
}

// OnReload registers a callback run after each successful reload.
// Must be called before Start.
func (w *Watcher) OnReload(fn ReloadFunc) {
	w.onLoad = fn
}

// Start begins watching for changes (blocking).
// Returns when the context is cancelled or Close() is called.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := LoadNodeConfig(w.path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		w.logger.Warn("ignoring invalid config change", "path", w.path, "error", err)
		return
	}

	level, _ := ParseLevel(cfg.Logging.Level)
	if w.level != nil && w.level.Level() != level {
		w.level.Set(level)
		w.logger.Info("log level changed", "level", level.String())
	}
	if w.onLoad != nil {
		w.onLoad(cfg)
	}
}

// Close stops the watcher and signals Start() to return.
func (w *Watcher) Close() error {
	select {
	case <-w.done:
	default:
		close(w.done)
	}
	return w.fsw.Close()
}
