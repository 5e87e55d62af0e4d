package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/danmuck/igtlctl/internal/geom"
	logs "github.com/danmuck/igtlctl/internal/logging"
	"github.com/danmuck/igtlctl/internal/scene"
)

// Syncer receives a reloaded entity list.
type Syncer interface {
	Replace([]scene.Entity) error
}

const defaultSettle = 100 * time.Millisecond

// Watcher reloads a manifest when it changes on disk and pushes the result to
// a Syncer. The parent directory is watched so editors that replace the file
// by rename are still observed.
//
// A reload only overrides the live pose of an entity whose manifest pose
// changed since the previous load; unchanged entries keep whatever pose the
// registry holds, including poses applied from inbound messages.
type Watcher struct {
	path   string
	sync   Syncer
	settle time.Duration

	mu      sync.Mutex
	applied map[string]geom.Pose
}

func NewWatcher(path string, sync Syncer) *Watcher {
	return &Watcher{path: filepath.Clean(path), sync: sync, settle: defaultSettle}
}

// Run blocks until ctx is done or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	logs.Infof("config.Watcher.Run path=%q", w.path)

	var (
		timer   *time.Timer
		timerC  <-chan time.Time
		pending bool
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// Editors often emit several events per save; reload once they settle.
			if timer == nil {
				timer = time.NewTimer(w.settle)
			} else {
				timer.Reset(w.settle)
			}
			timerC = timer.C
			pending = true
		case <-timerC:
			timerC = nil
			if pending {
				pending = false
				_ = w.Reload()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logs.Errf("config.Watcher.Run path=%q err=%v", w.path, err)
			return err
		}
	}
}

// Reload reads the manifest and pushes it to the Syncer. Invalid manifests are
// logged, returned and leave the registry untouched.
func (w *Watcher) Reload() error {
	m, err := LoadManifest(w.path)
	if err != nil {
		logs.Warnf("config.Watcher.Reload path=%q err=%v", w.path, err)
		return err
	}
	entities := m.SceneEntities()

	w.mu.Lock()
	defer w.mu.Unlock()
	applied := make(map[string]geom.Pose, len(entities))
	for i, e := range entities {
		applied[e.ID] = e.Pose
		if prev, ok := w.applied[e.ID]; ok && prev == e.Pose {
			// zero pose: Replace keeps the registry's current one
			entities[i].Pose = geom.Pose{}
		}
	}
	if err := w.sync.Replace(entities); err != nil {
		logs.Warnf("config.Watcher.Reload path=%q replace err=%v", w.path, err)
		return err
	}
	w.applied = applied
	logs.Infof("config.Watcher.Reload path=%q entities=%d", w.path, len(m.Entities))
	return nil
}
