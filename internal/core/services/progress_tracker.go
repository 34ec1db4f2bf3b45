package services

import (
	"context"
	"sync"
	"time"

	"github.com/labassist/backend/internal/domain"
	"github.com/labassist/backend/internal/infrastructure/logger"
)

type progressEntry struct {
	task     domain.DownloadTask
	terminal bool
	touched  time.Time
}

// ProgressTracker holds download progress per software name. Within one task
// the percentage never decreases, and once Complete or Fail is recorded the
// value is frozen until a new task begins for that name.
type ProgressTracker struct {
	mu        sync.RWMutex
	entries   map[string]*progressEntry
	retention time.Duration
	now       func() time.Time
	logger    *logger.Logger
}

type ProgressTrackerConfig struct {
	Retention time.Duration
	Logger    *logger.Logger
	Now       func() time.Time
}

func NewProgressTracker(cfg ProgressTrackerConfig) *ProgressTracker {
	t := &ProgressTracker{
		entries:   make(map[string]*progressEntry),
		retention: cfg.Retention,
		now:       cfg.Now,
		logger:    cfg.Logger,
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.logger == nil {
		t.logger = logger.NewNop()
	}
	return t
}

// Begin starts a fresh entry for name, replacing whatever the previous task left.
func (t *ProgressTracker) Begin(name, taskID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.entries[name] = &progressEntry{
		task: domain.DownloadTask{
			ID:             taskID,
			SoftwareName:   name,
			Progress:       domain.ProgressNotStarted,
			BytesTotal:     -1,
			StartedAt:      now,
			InstallOutcome: domain.InstallOutcomePending,
		},
		touched: now,
	}
}

func (t *ProgressTracker) entryFor(name, taskID string) *progressEntry {
	e := t.entries[name]
	if e == nil || e.task.ID != taskID || e.terminal {
		return nil
	}
	return e
}

// SetTotal records the declared artifact size; total < 0 means unknown.
func (t *ProgressTracker) SetTotal(name, taskID string, total int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e := t.entryFor(name, taskID); e != nil {
		e.task.BytesTotal = total
		e.touched = t.now()
	}
}

func (t *ProgressTracker) SetDestination(name, taskID, path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e := t.entryFor(name, taskID); e != nil {
		e.task.DestinationPath = path
	}
}

// Advance records bytes streamed so far and returns the resulting percentage.
// With an unknown total the percentage stays at 0. Advance never writes 100:
// the artifact is not usable until it is verified and renamed, so only
// Complete reports success.
func (t *ProgressTracker) Advance(name, taskID string, done int64) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entryFor(name, taskID)
	if e == nil {
		if cur := t.entries[name]; cur != nil {
			return cur.task.Progress
		}
		return domain.ProgressNotStarted
	}
	if done > e.task.BytesDone {
		e.task.BytesDone = done
	}
	if pct := Percent(e.task.BytesDone, e.task.BytesTotal); pct > e.task.Progress && pct < domain.ProgressComplete {
		e.task.Progress = pct
	}
	e.touched = t.now()
	return e.task.Progress
}

func (t *ProgressTracker) Complete(name, taskID string) {
	t.finish(name, taskID, domain.ProgressComplete, "")
}

func (t *ProgressTracker) Fail(name, taskID string, cause error) {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	t.finish(name, taskID, domain.ProgressFailed, msg)
}

func (t *ProgressTracker) finish(name, taskID string, pct int, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entryFor(name, taskID)
	if e == nil {
		return
	}
	now := t.now()
	e.task.Progress = pct
	e.task.Error = errMsg
	e.task.FinishedAt = &now
	e.terminal = true
	e.touched = now
}

// SetOutcome records the install action result. It is allowed after Complete
// and never changes the percentage.
func (t *ProgressTracker) SetOutcome(name, taskID string, outcome domain.InstallOutcome, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e := t.entries[name]
	if e == nil || e.task.ID != taskID {
		return
	}
	e.task.InstallOutcome = outcome
	if errMsg != "" && e.task.Error == "" {
		e.task.Error = errMsg
	}
	e.touched = t.now()
}

// Get returns 0 if name was never started, the live percentage, 100 on
// success or -1 on failure.
func (t *ProgressTracker) Get(name string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if e := t.entries[name]; e != nil {
		return e.task.Progress
	}
	return domain.ProgressNotStarted
}

func (t *ProgressTracker) Snapshot(name string) (domain.DownloadTask, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e := t.entries[name]
	if e == nil {
		return domain.DownloadTask{}, false
	}
	return e.task, true
}

// Prune drops terminal entries idle for longer than the retention period.
func (t *ProgressTracker) Prune() int {
	if t.retention <= 0 {
		return 0
	}
	cutoff := t.now().Add(-t.retention)
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for name, e := range t.entries {
		if e.terminal && e.touched.Before(cutoff) {
			delete(t.entries, name)
			removed++
		}
	}
	return removed
}

// Start runs the pruning janitor until ctx is done.
func (t *ProgressTracker) Start(ctx context.Context) {
	if t.retention <= 0 {
		return
	}
	interval := t.retention / 2
	if interval < time.Second {
		interval = time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := t.Prune(); n > 0 {
					t.logger.Debugw("progress_pruned", "removed", n)
				}
			}
		}
	}()
}

// Percent is floor(done*100/total) clamped to [0,100]; 0 when total is unknown.
func Percent(done, total int64) int {
	if total <= 0 || done <= 0 {
		return 0
	}
	if done >= total {
		return 100
	}
	return int(done * 100 / total)
}
