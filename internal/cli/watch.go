package cli

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/matzehuels/flowc/pkg/config"
)

// watchDebounce collapses bursts of events (editors often write a file in
// several steps) into one rebuild.
const watchDebounce = 250 * time.Millisecond

// watch calls rebuild whenever a relevant file below the project directory
// changes, until ctx is canceled. Rebuild errors are printed, not returned.
func (c *CLI) watch(ctx context.Context, cfg *config.Config, rebuild func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dirs, err := watchDirs(cfg.Dir(), cfg.OutputDir())
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return err
		}
		c.Logger.Debug("watching", "dir", d)
	}

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(ev) {
				continue
			}
			c.Logger.Debug("change", "path", ev.Name, "op", ev.Op.String())
			if ev.Has(fsnotify.Create) {
				if dirs, err := watchDirs(ev.Name, cfg.OutputDir()); err == nil {
					for _, d := range dirs {
						_ = w.Add(d)
					}
				}
			}
			timer.Reset(watchDebounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watch error", "error", err)
		case <-timer.C:
			printInfo("Change detected, rebundling")
			if err := rebuild(); err != nil {
				printError("%v", err)
			}
		}
	}
}

// watchDirs lists root and its subdirectories, skipping skip and hidden
// directories. A root that is not a directory yields nothing.
func watchDirs(root, skip string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (path == skip || strings.HasPrefix(d.Name(), ".")) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	return dirs, err
}

// relevantEvent reports whether ev can change a bundle: a write, create,
// remove or rename of a Lua source, TOML or JSON file, or a new directory.
func relevantEvent(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
		return false
	}
	switch strings.ToLower(filepath.Ext(ev.Name)) {
	case ".lua", ".luau", ".toml", ".json":
		return true
	case "":
		return ev.Has(fsnotify.Create)
	}
	return false
}
