package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/labassist/backend/internal/core/ports"
	"github.com/labassist/backend/internal/domain"
	"github.com/labassist/backend/internal/infrastructure/logger"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
	publishTimeout      = 5 * time.Second
)

type collectorService struct {
	repo      ports.CheckReportRepository
	publisher ports.ReportPublisher
	logger    *logger.Logger
	now       func() time.Time
}

type CollectorServiceConfig struct {
	Repository ports.CheckReportRepository
	// Publisher is optional; accepted reports are mirrored to it best-effort.
	Publisher ports.ReportPublisher
	Logger    *logger.Logger
	Now       func() time.Time
}

func NewCollectorService(cfg CollectorServiceConfig) ports.CollectorService {
	s := &collectorService{
		repo:      cfg.Repository,
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// RecordReport appends one report. Duplicate submissions are stored again.
func (s *collectorService) RecordReport(ctx context.Context, input ports.ReportInput) (*domain.CheckReport, error) {
	host := strings.TrimSpace(input.HostIdentity)
	software := strings.TrimSpace(input.SoftwareName)
	if host == "" {
		return nil, fmt.Errorf("%w: host identity is required", ErrReportInvalid)
	}
	if software == "" {
		return nil, fmt.Errorf("%w: software name is required", ErrReportInvalid)
	}
	status, ok := domain.ParseInstallStatus(input.Status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrReportInvalid, input.Status)
	}

	reportedAt := s.now().UTC()
	if input.Timestamp != nil && !input.Timestamp.IsZero() {
		reportedAt = input.Timestamp.UTC()
	}

	report := &domain.CheckReport{
		HostIdentity: host,
		SoftwareName: software,
		Status:       status,
		ResolvedPath: strings.TrimSpace(input.ResolvedPath),
		Platform:     input.Platform,
		AgentVersion: input.AgentVersion,
		ReportedAt:   reportedAt,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Infow("collector_report_recorded", "host", host, "software", software, "status", status)
	s.publish(report)
	return report, nil
}

func (s *collectorService) publish(report *domain.CheckReport) {
	if s.publisher == nil {
		return
	}
	r := *report
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Errorw("collector_publish_panic", "host", r.HostIdentity, "software", r.SoftwareName, "panic", rec)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.publisher.PublishReport(ctx, &r); err != nil {
			s.logger.Warnw("collector_publish_failed", "host", r.HostIdentity, "software", r.SoftwareName, "error", err)
		}
	}()
}

// LatestStatus returns an Unknown entry when the host never reported on software.
func (s *collectorService) LatestStatus(ctx context.Context, host, software string) (domain.InventoryEntry, error) {
	entry := domain.InventoryEntry{HostIdentity: host, SoftwareName: software, Status: domain.InstallStatusUnknown}
	report, err := s.repo.LatestFor(ctx, host, software)
	if err != nil {
		return entry, err
	}
	if report == nil {
		return entry, nil
	}
	return toInventoryEntry(*report), nil
}

func (s *collectorService) HostInventory(ctx context.Context, host string) ([]domain.InventoryEntry, error) {
	reports, err := s.repo.LatestByHost(ctx, host)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.InventoryEntry, 0, len(reports))
	for _, r := range reports {
		entries = append(entries, toInventoryEntry(r))
	}
	return entries, nil
}

func (s *collectorService) History(ctx context.Context, host, software string, limit int) ([]domain.CheckReport, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.repo.History(ctx, host, software, limit)
}

func (s *collectorService) Hosts(ctx context.Context) ([]string, error) {
	return s.repo.ListHosts(ctx)
}

func toInventoryEntry(r domain.CheckReport) domain.InventoryEntry {
	at := r.ReportedAt
	return domain.InventoryEntry{
		HostIdentity: r.HostIdentity,
		SoftwareName: r.SoftwareName,
		Status:       r.Status,
		ResolvedPath: r.ResolvedPath,
		ReportedAt:   &at,
	}
}
