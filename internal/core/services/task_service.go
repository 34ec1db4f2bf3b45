package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/labassist/backend/internal/core/ports"
	"github.com/labassist/backend/internal/domain"
)

// InstallTask is the handle for one download-and-install run.
type InstallTask struct {
	id       string
	name     string
	progress ports.ProgressReader
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}

	// Only touched by the goroutine running the task.
	lastReported int

	mu    sync.RWMutex
	final *domain.DownloadTask
}

func newInstallTask(parent context.Context, id, name string, progress ports.ProgressReader) *InstallTask {
	ctx, cancel := context.WithCancel(parent)
	return &InstallTask{
		id:       id,
		name:     name,
		progress: progress,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

func (t *InstallTask) ID() string { return t.id }

func (t *InstallTask) Name() string { return t.name }

func (t *InstallTask) Done() <-chan struct{} { return t.done }

func (t *InstallTask) Cancel() { t.cancel() }

// Snapshot returns the live tracker view while running and the frozen result after.
func (t *InstallTask) Snapshot() domain.DownloadTask {
	t.mu.RLock()
	if t.final != nil {
		f := *t.final
		t.mu.RUnlock()
		return f
	}
	t.mu.RUnlock()

	if snap, ok := t.progress.Snapshot(t.name); ok && snap.ID == t.id {
		return snap
	}
	return domain.DownloadTask{ID: t.id, SoftwareName: t.name, BytesTotal: -1, InstallOutcome: domain.InstallOutcomePending}
}

// Wait blocks until the task finishes or ctx is done.
func (t *InstallTask) Wait(ctx context.Context) (domain.DownloadTask, error) {
	select {
	case <-t.done:
		return t.Snapshot(), nil
	case <-ctx.Done():
		return t.Snapshot(), ctx.Err()
	}
}

func (t *InstallTask) freeze() {
	snap := t.Snapshot()
	t.mu.Lock()
	t.final = &snap
	t.mu.Unlock()
}

// TaskService tracks in-flight install tasks, at most one per software name.
type TaskService struct {
	mu    sync.Mutex
	tasks map[string]*InstallTask
	wg    sync.WaitGroup
}

func NewTaskService() *TaskService {
	return &TaskService{tasks: make(map[string]*InstallTask)}
}

// Acquire returns the running task for name, or registers a new one built
// by create. The bool is true when a new task was registered.
func (s *TaskService) Acquire(name string, create func(id string) *InstallTask) (*InstallTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tasks[name]; ok {
		return t, false
	}
	t := create(uuid.New().String())
	s.tasks[name] = t
	s.wg.Add(1)
	return t, true
}

func (s *TaskService) Active(name string) (*InstallTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	return t, ok
}

// Release freezes t's final snapshot, removes it from the registry and marks it done.
func (s *TaskService) Release(t *InstallTask) {
	t.freeze()
	s.mu.Lock()
	if cur, ok := s.tasks[t.name]; ok && cur == t {
		delete(s.tasks, t.name)
	}
	s.mu.Unlock()
	t.cancel()
	close(t.done)
	s.wg.Done()
}

func (s *TaskService) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tasks {
		t.Cancel()
	}
}

// Wait blocks until every registered task has been released or ctx is done.
func (s *TaskService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
