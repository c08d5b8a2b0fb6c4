package review

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 300 * time.Millisecond

// Watch reloads the catalog from path whenever the file changes, until ctx
// is canceled. The parent directory is watched so editors that save by
// rename are picked up. Invalid files are logged and ignored.
func (c *Catalog) Watch(ctx context.Context, path string, log *zap.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating rules watcher: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(target), err)
	}
	log.Info("watching rules catalog", zap.String("path", target))

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			fire = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("rules watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			rs, err := c.Reload(target)
			if err != nil {
				log.Error("rules reload failed, keeping previous catalog", zap.String("path", target), zap.Error(err))
				continue
			}
			log.Info("rules catalog reloaded",
				zap.String("name", rs.Name),
				zap.String("version", rs.Version),
				zap.Int("rules", len(rs.Rules)))
		}
	}
}
