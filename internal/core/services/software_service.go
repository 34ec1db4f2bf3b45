package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/labassist/backend/internal/catalog"
	"github.com/labassist/backend/internal/core/ports"
	"github.com/labassist/backend/internal/detect"
	"github.com/labassist/backend/internal/domain"
	"github.com/labassist/backend/internal/infrastructure/logger"
)

// SoftwareService owns the server-side catalog: it loads the descriptor
// file, mirrors it into the database and answers detect-now queries.
type SoftwareService struct {
	store       *catalog.Store
	catalogPath string
	repo        ports.SoftwareRepository
	engine      *detect.Engine
	logger      *logger.Logger

	// Detection results read back from the database, used until the engine
	// has checked an item itself in this process.
	mu        sync.RWMutex
	lastKnown map[string]domain.InstallState
}

type SoftwareServiceConfig struct {
	Store       *catalog.Store
	CatalogPath string
	// Repository is optional; without it state lives only in the engine.
	Repository ports.SoftwareRepository
	Engine     *detect.Engine
	Logger     *logger.Logger
}

func NewSoftwareService(cfg SoftwareServiceConfig) *SoftwareService {
	s := &SoftwareService{
		store:       cfg.Store,
		catalogPath: cfg.CatalogPath,
		repo:        cfg.Repository,
		engine:      cfg.Engine,
		logger:      cfg.Logger,
		lastKnown:   make(map[string]domain.InstallState),
	}
	if s.store == nil {
		s.store = catalog.NewStore()
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	if s.repo != nil {
		s.engine.OnDetect(s.persistState)
	}
	return s
}

func (s *SoftwareService) Catalog() *catalog.Store { return s.store }

func (s *SoftwareService) persistState(ctx context.Context, _ domain.SoftwareDescriptor, st domain.InstallState) {
	if err := s.repo.UpdateState(context.WithoutCancel(ctx), st); err != nil {
		s.logger.Warnw("software_state_persist_failed", "software", st.Name, "error", err)
	}
}

// Reload re-reads the catalog file and upserts by name. Entries missing from
// the file are kept; invalid entries are reported and skipped.
func (s *SoftwareService) Reload(ctx context.Context) (ports.ReloadResult, error) {
	res, err := s.store.LoadFile(s.catalogPath)
	if err != nil {
		s.logger.Errorw("catalog_reload_failed", "path", s.catalogPath, "error", err)
		return ports.ReloadResult{}, fmt.Errorf("%w: %v", ErrCatalogLoad, err)
	}
	for _, r := range res.Rejected {
		s.logger.Warnw("catalog_entry_rejected", "path", s.catalogPath, "reason", r)
	}

	if s.repo != nil {
		for _, d := range s.store.List() {
			row := domain.SoftwareFromDescriptor(d)
			if err := s.repo.Upsert(ctx, &row); err != nil {
				return ports.ReloadResult{}, fmt.Errorf("persist %s: %w", d.Name, err)
			}
		}
		s.loadPersistedState(ctx)
	}

	s.logger.Infow("catalog_reload_ok",
		"path", s.catalogPath,
		"added", res.Added,
		"updated", res.Updated,
		"unchanged", res.Unchanged,
		"rejected", len(res.Rejected),
	)
	return ports.ReloadResult{
		Added:     res.Added,
		Updated:   res.Updated,
		Unchanged: res.Unchanged,
		Rejected:  res.Rejected,
	}, nil
}

func (s *SoftwareService) loadPersistedState(ctx context.Context) {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Warnw("software_state_load_failed", "error", err)
		return
	}
	known := make(map[string]domain.InstallState, len(rows))
	for _, row := range rows {
		known[row.Name] = row.LastKnownState()
	}
	s.mu.Lock()
	s.lastKnown = known
	s.mu.Unlock()
}

// List returns every descriptor with its last known state. It never probes:
// items the engine has not checked yet fall back to the persisted result.
func (s *SoftwareService) List(_ context.Context) []ports.SoftwareView {
	descs := s.store.List()
	views := make([]ports.SoftwareView, 0, len(descs))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range descs {
		st := s.engine.State(d.Name)
		if st.Status == domain.InstallStatusUnknown {
			if p, ok := s.lastKnown[d.Name]; ok {
				st = p
			}
		}
		views = append(views, ports.SoftwareView{Descriptor: d, State: st})
	}
	return views
}

// Status detects name now.
func (s *SoftwareService) Status(ctx context.Context, name string) (domain.InstallState, error) {
	d, ok := s.store.Get(name)
	if !ok {
		return domain.InstallState{}, ErrSoftwareNotFound
	}
	return s.engine.Detect(ctx, d), nil
}

// CheckAll probes every descriptor that targets this host.
func (s *SoftwareService) CheckAll(ctx context.Context, workers int) []domain.InstallState {
	var descs []domain.SoftwareDescriptor
	for _, d := range s.store.List() {
		if d.AppliesHere() {
			descs = append(descs, d)
		}
	}
	states := s.engine.DetectAll(ctx, descs, workers)
	installed := 0
	for _, st := range states {
		if st.Installed() {
			installed++
		}
	}
	s.logger.Infow("software_check_all_done", "checked", len(states), "installed", installed)
	return states
}
