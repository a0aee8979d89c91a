package global

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultReloadDebounce = 250 * time.Millisecond

// ConfigWatcher reloads config.toml after it changes on disk. Editors often
// replace the file, so the directory is watched rather than the file.
type ConfigWatcher struct {
	store    *ConfigStore
	onChange func(GlobalConfig)
	logger   *slog.Logger
	debounce time.Duration
}

func NewConfigWatcher(store *ConfigStore, onChange func(GlobalConfig), logger *slog.Logger) *ConfigWatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ConfigWatcher{
		store:    store,
		onChange: onChange,
		logger:   logger,
		debounce: defaultReloadDebounce,
	}
}

func (w *ConfigWatcher) SetDebounce(d time.Duration) {
	if d > 0 {
		w.debounce = d
	}
}

// Run blocks until ctx is cancelled. A config that fails to parse is logged
// and ignored; the previous config stays in effect.
func (w *ConfigWatcher) Run(ctx context.Context) error {
	if w.store == nil || w.onChange == nil {
		return errors.New("config watcher requires a store and a callback")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(w.store.Dir()); err != nil {
		return err
	}
	want := filepath.Clean(w.store.Path())

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != want {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watch error", "err", err)
		case <-timer.C:
			cfg, err := w.store.Load()
			if err != nil {
				w.logger.Warn("config reload failed", "path", w.store.Path(), "err", err)
				continue
			}
			w.logger.Info("config reloaded", "path", w.store.Path())
			w.onChange(cfg)
		}
	}
}
