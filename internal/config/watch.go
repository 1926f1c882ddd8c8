package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches the global config file for edits and re-runs Load,
// handing the new Config to onReload. The Watcher itself applies nothing:
// whether an edit to ~/.agentspine/config.yaml changes a running process
// depends entirely on what onReload does with the reloaded Config.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	logger   *zap.Logger
	onReload func(*Config)
}

// NewWatcher opens an fsnotify watch on the directory containing the
// global config file (fsnotify watches directories, not individual
// files, so renames-over-the-top from editors are still observed).
func NewWatcher(logger *zap.Logger, onReload func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{watcher: fw, path: filepath.Join(HomeDir(), "config.yaml"), logger: logger, onReload: onReload}, nil
}

// Start begins watching in the background. Call Close (or cancel ctx) to
// stop.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(HomeDir()); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handleEvent(event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Error("config watcher error", zap.Error(err))
			}
		}
	}()

	w.logger.Info("config hot-reload watching started", zap.String("path", w.path))
	return nil
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.path) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	cfg, err := Load()
	if err != nil {
		w.logger.Error("config reload failed, keeping previous config", zap.Error(err))
		return
	}
	w.logger.Info("config reloaded", zap.String("path", w.path))
	if w.onReload != nil {
		w.onReload(cfg)
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
