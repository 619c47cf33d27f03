package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"k8s.io/klog/v2"

	"github.com/tstromberg/pic2pdf/pkg/collection"
)

// settle is how long the inputs must be quiet before a rebuild.
var settle = 500 * time.Millisecond

// watch watches the input directories for image changes and rebuilds until ctx is done.
func watch(ctx context.Context, paths []string, rebuild func() error) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	dirs, err := watchDirs(paths)
	if err != nil {
		return err
	}

	klog.Infof("watching %d dirs ...", len(dirs))
	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			klog.V(1).Infof("event: %s", event)
			if !collection.Supported(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				fire = time.After(settle)
			}
		case <-fire:
			fire = nil
			if err := rebuild(); err != nil {
				klog.Errorf("rebuild failed: %v", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			klog.Errorf("watch error: %v", err)
		}
	}
}

// watchDirs returns every directory holding or named by paths.
func watchDirs(paths []string) ([]string, error) {
	dirs := []string{}
	for _, p := range paths {
		st, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("stat: %w", err)
		}
		if !st.IsDir() {
			dirs = append(dirs, filepath.Dir(p))
			continue
		}

		files, err := collection.Find(p)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, p)
		for _, f := range files {
			dirs = append(dirs, filepath.Dir(f))
		}
	}

	slices.Sort(dirs)
	return slices.Compact(dirs), nil
}
