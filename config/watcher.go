package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/utils"
)

// DefaultReloadDelay is how long a config file must stay untouched before it is re-read.
const DefaultReloadDelay = 250 * time.Millisecond

// A Watcher re-reads a config file whenever it changes on disk and delivers configs that read
// and validate successfully. Invalid configs are logged and skipped.
type Watcher struct {
	path     string
	logger   logging.Logger
	fsw      *fsnotify.Watcher
	debounce func(f func())
	updates  chan *Config
	workers  utils.StoppableWorkers
}

// NewWatcher starts watching path. The containing directory is watched so that editors which
// replace the file instead of writing it in place are noticed too.
func NewWatcher(ctx context.Context, path string, delay time.Duration, logger logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating config watcher")
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "watching %s", abs), fsw.Close())
	}
	w := &Watcher{
		path:     abs,
		logger:   logger,
		fsw:      fsw,
		debounce: debounce.New(delay),
		updates:  make(chan *Config, 1),
	}
	w.workers = utils.NewStoppableWorkersWithContext(ctx, w.watch)
	return w, nil
}

// Config returns the channel new configs are delivered on. Only the most recent unread config is
// kept.
func (w *Watcher) Config() <-chan *Config {
	return w.updates
}

// Close stops watching.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	w.workers.Stop()
	return err
}

func (w *Watcher) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path || !event.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			w.debounce(func() { w.reload(ctx) })
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.CWarnw(ctx, "config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	cfg, err := Read(ctx, w.path, w.logger)
	if err != nil {
		w.logger.CErrorw(ctx, "ignoring invalid config change", "path", w.path, "error", err)
		return
	}
	w.logger.CInfow(ctx, "config changed", "path", w.path)
	select {
	case <-w.updates:
	default:
	}
	select {
	case w.updates <- cfg:
	default:
	}
}
