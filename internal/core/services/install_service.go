package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/labassist/backend/internal/core/ports"
	"github.com/labassist/backend/internal/domain"
	"github.com/labassist/backend/internal/infrastructure/logger"
	"github.com/labassist/backend/internal/infrastructure/source"
)

const (
	DefaultChunkSize   = 64 * 1024
	DefaultIdleTimeout = 60 * time.Second
)

// InstallService downloads and installs catalog items in the background.
// At most one task runs per software name; repeated requests while it runs
// get the same handle back.
type InstallService struct {
	catalog   ports.SoftwareCatalog
	detector  ports.Detector
	tracker   *ProgressTracker
	sources   ports.ArtifactSource
	installer ports.InstallerService
	tasks     *TaskService
	logger    *logger.Logger

	downloadsDir string
	chunkSize    int
	idleTimeout  time.Duration
	stateMaxAge  time.Duration
	baseCtx      context.Context
	onProgress   func(name string, percent int)
}

type InstallServiceConfig struct {
	Catalog      ports.SoftwareCatalog
	Detector     ports.Detector
	Tracker      *ProgressTracker
	Sources      ports.ArtifactSource
	Installer    ports.InstallerService
	Tasks        *TaskService
	Logger       *logger.Logger
	DownloadsDir string
	ChunkSize    int
	IdleTimeout  time.Duration
	// StateMaxAge lets a request reuse a detection result this recent.
	// Zero probes on every request.
	StateMaxAge time.Duration
	// BaseContext parents every task; cancelling it aborts running downloads.
	BaseContext context.Context
	// OnProgress is called from the task goroutine whenever the percentage changes.
	OnProgress func(name string, percent int)
}

func NewInstallService(cfg InstallServiceConfig) *InstallService {
	s := &InstallService{
		catalog:      cfg.Catalog,
		detector:     cfg.Detector,
		tracker:      cfg.Tracker,
		sources:      cfg.Sources,
		installer:    cfg.Installer,
		tasks:        cfg.Tasks,
		logger:       cfg.Logger,
		downloadsDir: cfg.DownloadsDir,
		chunkSize:    cfg.ChunkSize,
		idleTimeout:  cfg.IdleTimeout,
		stateMaxAge:  cfg.StateMaxAge,
		baseCtx:      cfg.BaseContext,
		onProgress:   cfg.OnProgress,
	}
	if s.tasks == nil {
		s.tasks = NewTaskService()
	}
	if s.tracker == nil {
		s.tracker = NewProgressTracker(ProgressTrackerConfig{Logger: cfg.Logger})
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	if s.chunkSize <= 0 {
		s.chunkSize = DefaultChunkSize
	}
	if s.idleTimeout <= 0 {
		s.idleTimeout = DefaultIdleTimeout
	}
	if s.downloadsDir == "" {
		s.downloadsDir = "downloads"
	}
	if s.baseCtx == nil {
		s.baseCtx = context.Background()
	}
	return s
}

func (s *InstallService) Tracker() *ProgressTracker { return s.tracker }

// currentState returns the recorded state when it is younger than
// stateMaxAge and probes otherwise.
func (s *InstallService) currentState(ctx context.Context, d domain.SoftwareDescriptor) domain.InstallState {
	if s.stateMaxAge > 0 {
		st := s.detector.State(d.Name)
		if st.Status != domain.InstallStatusUnknown && time.Since(st.LastCheckedAt) < s.stateMaxAge {
			return st
		}
	}
	return s.detector.Detect(ctx, d)
}

func (s *InstallService) RequestInstall(ctx context.Context, name string) (ports.InstallResult, error) {
	d, ok := s.catalog.Get(name)
	if !ok {
		return ports.InstallResult{}, ErrSoftwareNotFound
	}

	if t, ok := s.tasks.Active(name); ok {
		s.logger.Infow("install_request_in_progress", "software", name, "task_id", t.ID())
		return ports.InstallResult{Outcome: ports.OutcomeInProgress, Task: t}, nil
	}

	if state := s.currentState(ctx, d); state.Installed() {
		s.logger.Infow("install_request_already_installed", "software", name, "path", state.ResolvedPath)
		return ports.InstallResult{Outcome: ports.OutcomeAlreadyInstalled, Message: "already installed"}, nil
	}

	if res, manual := s.manualResult(d); manual {
		s.logger.Infow("install_request_manual", "software", name, "url", res.ManualURL, "reason", res.Message)
		return res, nil
	}

	t, created := s.tasks.Acquire(name, func(id string) *InstallTask {
		s.tracker.Begin(name, id)
		return newInstallTask(s.baseCtx, id, name, s.tracker)
	})
	if !created {
		return ports.InstallResult{Outcome: ports.OutcomeInProgress, Task: t}, nil
	}

	s.logger.Infow("install_task_started", "software", name, "task_id", t.ID(), "source", d.Source)
	go s.run(t, d)
	return ports.InstallResult{Outcome: ports.OutcomeStarted, Task: t}, nil
}

func (s *InstallService) manualResult(d domain.SoftwareDescriptor) (ports.InstallResult, bool) {
	res := ports.InstallResult{Outcome: ports.OutcomeManualRequired, ManualURL: d.Source}
	switch {
	case d.InstallMode == domain.InstallModeManual:
		res.Message = "this software must be installed manually"
	case d.Source == "":
		res.Message = "no install source configured; install manually"
	case !source.IsDirectDownload(d.Source):
		res.Message = "no direct download available; open the link to install"
	case !s.sources.Supports(d.Source):
		res.Message = "install source scheme is not enabled on this host"
	default:
		return ports.InstallResult{}, false
	}
	return res, true
}

// Shutdown cancels running tasks and waits for them to unwind.
func (s *InstallService) Shutdown(ctx context.Context) error {
	s.tasks.CancelAll()
	return s.tasks.Wait(ctx)
}

func (s *InstallService) report(t *InstallTask, pct int) {
	if pct == t.lastReported {
		return
	}
	t.lastReported = pct
	if s.onProgress != nil {
		s.onProgress(t.name, pct)
	}
}

func (s *InstallService) run(t *InstallTask, d domain.SoftwareDescriptor) {
	defer s.tasks.Release(t)
	defer func() {
		if r := recover(); r != nil {
			s.logger.Errorw("install_task_panic", "software", d.Name, "task_id", t.ID(), "panic", r)
			s.tracker.Fail(d.Name, t.ID(), fmt.Errorf("install panic: %v", r))
			s.report(t, domain.ProgressFailed)
		}
	}()

	start := time.Now()
	path, err := s.download(t, d)
	if err != nil {
		s.logger.Errorw("install_download_failed", "software", d.Name, "task_id", t.ID(), "error", err)
		s.tracker.Fail(d.Name, t.ID(), err)
		s.report(t, domain.ProgressFailed)
		return
	}
	s.tracker.Complete(d.Name, t.ID())
	s.report(t, domain.ProgressComplete)
	s.logger.Infow("install_download_ok", "software", d.Name, "task_id", t.ID(), "path", path, "duration_ms", time.Since(start).Milliseconds())

	outcome, err := s.installer.Install(t.ctx, d, path)
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	s.tracker.SetOutcome(d.Name, t.ID(), outcome, errMsg)

	state := s.detector.Detect(context.WithoutCancel(t.ctx), d)
	s.logger.Infow("install_task_finished",
		"software", d.Name,
		"task_id", t.ID(),
		"outcome", outcome,
		"status", state.Status,
	)
}

func (s *InstallService) download(t *InstallTask, d domain.SoftwareDescriptor) (finalPath string, err error) {
	art, err := s.sources.Open(t.ctx, d.Source)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	body := source.NewIdleTimeoutReader(art.Body, s.idleTimeout)
	defer body.Close()

	s.tracker.SetTotal(d.Name, t.ID(), art.Size)

	dir := filepath.Join(s.downloadsDir, safeFileName(d.Name))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	finalPath = filepath.Join(dir, safeFileName(art.Name))
	partPath := finalPath + ".part"
	s.tracker.SetDestination(d.Name, t.ID(), finalPath)

	f, err := os.Create(partPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	committed := false
	defer func() {
		if !committed {
			f.Close()
			os.Remove(partPath)
		}
	}()

	var (
		w      io.Writer = f
		hasher hash.Hash
	)
	if d.SHA256 != "" {
		hasher = sha256.New()
		w = io.MultiWriter(f, hasher)
	}

	buf := make([]byte, s.chunkSize)
	var done int64
	for {
		if err := t.ctx.Err(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
		}
		n, rerr := readChunk(body, buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return "", fmt.Errorf("%w: write: %v", ErrDownloadFailed, werr)
			}
			done += int64(n)
			s.report(t, s.tracker.Advance(d.Name, t.ID(), done))
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return "", fmt.Errorf("%w: %v", ErrDownloadFailed, rerr)
		}
	}

	if art.Size > 0 && done != art.Size {
		return "", fmt.Errorf("%w: got %d of %d bytes", ErrShortDownload, done, art.Size)
	}
	if hasher != nil {
		if got := hex.EncodeToString(hasher.Sum(nil)); got != d.SHA256 {
			return "", fmt.Errorf("%w: got %s", ErrChecksumMismatch, got)
		}
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("%w: close: %v", ErrDownloadFailed, err)
	}
	if err := os.Rename(partPath, finalPath); err != nil {
		os.Remove(partPath)
		committed = true
		return "", fmt.Errorf("%w: rename: %v", ErrDownloadFailed, err)
	}
	committed = true
	return finalPath, nil
}

// readChunk fills buf unless the stream ends or fails first. Unlike
// io.ReadFull it passes the reader's error through unchanged, so a clean EOF
// and a truncated stream stay distinguishable.
func readChunk(r io.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func safeFileName(name string) string {
	n := unsafeFileChars.ReplaceAllString(name, "_")
	if n == "" || n == "." || n == ".." {
		return "artifact"
	}
	return n
}
