package codeindex

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
)

// RefreshPolicy governs when a post-turn index refresh actually runs, per
// post_turn_refresh gate: a refresh is only attempted if at
// least RefreshMinSecs have elapsed since the last attempt.
type RefreshPolicy struct {
	Enabled      bool
	RefreshMinSecs int
}

// ShouldRefresh reports whether a post-turn refresh should fire given the
// analytics recorded by the last build attempt.
func (p RefreshPolicy) ShouldRefresh(projectRoot string, now time.Time) bool {
	if !p.Enabled {
		return false
	}
	analytics := loadAnalytics(NewIndexPaths(projectRoot))
	if analytics.LastAttemptTS.IsZero() {
		return true
	}
	return now.Sub(analytics.LastAttemptTS) >= time.Duration(p.RefreshMinSecs)*time.Second
}

// fileStat is the mtime/size pair the delta monitor diffs between snapshots.
type fileStat struct {
	modTime time.Time
	size    int64
}

// DeltaMonitor periodically walks a project root and reports which files
// have been added, modified, or removed since the previous snapshot. It
// exists alongside the filesystem-event fast path (fsnotify) as a
// guaranteed-eventually-consistent slow path for change detection.
type DeltaMonitor struct {
	projectRoot string

	mu       sync.Mutex
	snapshot map[string]fileStat
}

// NewDeltaMonitor creates a monitor with an empty baseline snapshot; the
// first Scan reports every existing file as Added.
func NewDeltaMonitor(projectRoot string) *DeltaMonitor {
	return &DeltaMonitor{projectRoot: projectRoot, snapshot: map[string]fileStat{}}
}

// Scan walks the project and diffs the result against the previous
// snapshot, then replaces the snapshot with the freshly observed state.
func (m *DeltaMonitor) Scan() (SnapshotDiff, error) {
	walker, err := NewWalker(m.projectRoot)
	if err != nil {
		return SnapshotDiff{}, err
	}

	current := map[string]fileStat{}
	if err := walker.Walk(func(rel, abs string) error {
		info, statErr := os.Stat(abs)
		if statErr != nil {
			return nil
		}
		current[rel] = fileStat{modTime: info.ModTime(), size: info.Size()}
		return nil
	}); err != nil {
		return SnapshotDiff{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var diff SnapshotDiff
	for rel, st := range current {
		prev, ok := m.snapshot[rel]
		switch {
		case !ok:
			diff.Added = append(diff.Added, rel)
		case !st.modTime.Equal(prev.modTime) || st.size != prev.size:
			diff.Modified = append(diff.Modified, rel)
		}
	}
	for rel := range m.snapshot {
		if _, ok := current[rel]; !ok {
			diff.Removed = append(diff.Removed, rel)
		}
	}
	m.snapshot = current
	return diff, nil
}

// RunCronSchedule runs Scan on the given cron schedule (default every five
// minutes) until ctx is canceled, invoking onDiff for any non-empty result.
func (m *DeltaMonitor) RunCronSchedule(ctx context.Context, spec string, onDiff func(SnapshotDiff)) error {
	if spec == "" {
		spec = "@every 5m"
	}
	c := cron.New()
	id, err := c.AddFunc(spec, func() {
		diff, scanErr := m.Scan()
		if scanErr == nil && !diff.Empty() {
			onDiff(diff)
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	<-ctx.Done()
	c.Remove(id)
	c.Stop()
	return nil
}

// WatchFS watches the project root with fsnotify as the fast path: a write
// or create/remove event triggers an immediate Scan instead of waiting for
// the next cron tick. Returns once ctx is canceled or the watcher errors.
func WatchFS(ctx context.Context, m *DeltaMonitor, onDiff func(SnapshotDiff)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := filepath.Walk(m.projectRoot, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if info.IsDir() && !builtinExcludeDirs[filepath.Base(path)] {
			return watcher.Add(path)
		}
		return nil
	}); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			diff, scanErr := m.Scan()
			if scanErr == nil && !diff.Empty() {
				onDiff(diff)
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
