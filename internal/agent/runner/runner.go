package runner

import (
	"context"
	"time"

	"github.com/labassist/backend/internal/agent/communicator"
	"github.com/labassist/backend/internal/catalog"
	"github.com/labassist/backend/internal/detect"
	"github.com/labassist/backend/internal/domain"
	"github.com/labassist/backend/internal/infrastructure/logger"
)

// Sender accepts reports without waiting on the network.
type Sender interface {
	Send(report communicator.CheckReport)
}

type Runner struct {
	store        *catalog.Store
	catalogPath  string
	engine       *detect.Engine
	sender       Sender
	hostIdentity string
	platform     string
	version      string
	workers      int
	logger       *logger.Logger
}

type Config struct {
	Store *catalog.Store
	// CatalogPath, when set, is re-read before every periodic check.
	CatalogPath  string
	Engine       *detect.Engine
	Sender       Sender
	HostIdentity string
	Platform     string
	Version      string
	Workers      int
	Logger       *logger.Logger
}

// New wires the runner as a detection listener: every detection the engine
// performs, including post-install re-checks, is reported.
func New(cfg Config) *Runner {
	r := &Runner{
		store:        cfg.Store,
		catalogPath:  cfg.CatalogPath,
		engine:       cfg.Engine,
		sender:       cfg.Sender,
		hostIdentity: cfg.HostIdentity,
		platform:     cfg.Platform,
		version:      cfg.Version,
		workers:      cfg.Workers,
		logger:       cfg.Logger,
	}
	if r.logger == nil {
		r.logger = logger.NewNop()
	}
	if r.workers < 1 {
		r.workers = 1
	}
	if r.sender != nil {
		r.engine.OnDetect(r.report)
	}
	return r
}

func (r *Runner) report(_ context.Context, _ domain.SoftwareDescriptor, st domain.InstallState) {
	path := ""
	if st.Installed() {
		path = st.ResolvedPath
	}
	at := st.LastCheckedAt.UTC()
	r.sender.Send(communicator.CheckReport{
		Hostname:     r.hostIdentity,
		Software:     st.Name,
		Status:       string(st.Status),
		Path:         path,
		Platform:     r.platform,
		AgentVersion: r.version,
		Timestamp:    &at,
	})
}

// CheckAll probes every catalog item that targets this OS.
func (r *Runner) CheckAll(ctx context.Context) []domain.InstallState {
	var descs []domain.SoftwareDescriptor
	for _, d := range r.store.List() {
		if d.AppliesHere() {
			descs = append(descs, d)
		}
	}

	start := time.Now()
	states := r.engine.DetectAll(ctx, descs, r.workers)
	installed := 0
	for _, st := range states {
		if st.Installed() {
			installed++
		}
	}
	r.logger.Infow("agent_check_done",
		"checked", len(states),
		"installed", installed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return states
}

// Run checks immediately and then every interval until ctx is cancelled.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Infow("agent_check_loop_started", "interval", interval.String(), "host", r.hostIdentity)
	r.CheckAll(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Infow("agent_check_loop_stopped")
			return nil
		case <-ticker.C:
			r.reload()
			r.CheckAll(ctx)
		}
	}
}

func (r *Runner) reload() {
	if r.catalogPath == "" {
		return
	}
	res, err := r.store.LoadFile(r.catalogPath)
	if err != nil {
		r.logger.Warnw("agent_catalog_reload_failed", "path", r.catalogPath, "error", err)
		return
	}
	if res.Added > 0 || res.Updated > 0 {
		r.logger.Infow("agent_catalog_reloaded", "added", res.Added, "updated", res.Updated)
	}
}
