package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch observa el archivo de config y llama a onReload con la config
// recargada en cada cambio válido. Una config que no valida se descarta
// con warning — la config en curso sigue vigente. Bloquea hasta que el
// contexto se cancele.
//
// Los editores suelen reemplazar el archivo en vez de escribirlo, así
// que tras un Remove/Rename se re-añade el path al watcher.
func Watch(ctx context.Context, path string, onReload func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config.Watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("config.Watch: watch %q: %w", path, err)
	}

	// Cooldown para no recargar varias veces por un solo save.
	const cooldown = 2 * time.Second
	var lastReload time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				time.Sleep(100 * time.Millisecond)
				if err := watcher.Add(path); err != nil {
					slog.Warn("config file gone, waiting for recreation", "path", path, "error", err)
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if time.Since(lastReload) < cooldown {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				slog.Warn("ignoring invalid config reload", "path", path, "error", err)
				continue
			}
			lastReload = time.Now()
			slog.Info("config reloaded", "path", path)
			onReload(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}
