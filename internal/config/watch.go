package config

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watch re-loads the config whenever the file changes and sends the result
// on the returned channel until ctx is cancelled. The parent directory is
// watched rather than the file itself, so editors that save by rename
// still register. Bursts collapse to the latest config; a reload that
// fails to parse is logged and skipped.
func Watch(ctx context.Context, path string) (<-chan Config, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	out := make(chan Config, 1)
	go func() {
		defer watcher.Close()
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				cfg, err := Load(path)
				if err != nil {
					log.Warn().Err(err).Str("path", path).Msg("ignoring config reload")
					continue
				}
				log.Info().Str("path", path).Msg("config file changed")

				select {
				case out <- cfg:
				default:
					select {
					case <-out:
					default:
					}
					out <- cfg
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()

	return out, nil
}
