package config

import (
	"context"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Watch monitors the config file and calls onChange with each successfully
// reloaded config. Reload failures keep the previous config active. Runs
// until ctx is cancelled.
func Watch(ctx context.Context, path string, logger *logrus.Logger, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	logger.WithField("path", path).Info("watching config for changes")

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so catch Create as well.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				logger.WithError(err).WithField("path", path).Error("config reload failed; keeping previous config")
				continue
			}
			normalized, vr := NormalizeAndValidate(cfg)
			if !vr.OK() {
				logger.WithField("errors", vr.Errors).Error("config reload rejected; keeping previous config")
				continue
			}

			logger.WithField("path", path).Info("config reloaded")
			onChange(normalized)

			// An atomic save may have replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Error("config watcher error")
		}
	}
}
