package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const registryRefreshDebounce = 250 * time.Millisecond

// startRegistryWatcher keeps the channel id index current as records
// appear: a channel created or bootstrapped by the CLI while the daemon is
// running starts receiving events without a restart.
func (d *Daemon) startRegistryWatcher(ctx context.Context) (<-chan struct{}, error) {
	dir := filepath.Join(d.cfg.StateDir, "channels")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer watcher.Close()

		var timer *time.Timer
		var timerC <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, ".json") {
					continue
				}
				if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) {
					// Debounce: record saves arrive as bursts of temp
					// writes and renames.
					if timer == nil {
						timer = time.NewTimer(registryRefreshDebounce)
						timerC = timer.C
					} else {
						timer.Reset(registryRefreshDebounce)
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Debug().Err(err).Msg("registry watcher error")
			case <-timerC:
				timer = nil
				timerC = nil
				if err := d.RefreshRegistry(); err != nil {
					log.Warn().Err(err).Msg("registry refresh failed")
				}
			}
		}
	}()
	return done, nil
}
