package db

import (
	"context"
	"errors"

	"github.com/labassist/backend/internal/core/ports"
	"github.com/labassist/backend/internal/domain"
	"github.com/labassist/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

type checkReportRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCheckReportRepository(db *gorm.DB, log *logger.Logger) ports.CheckReportRepository {
	return &checkReportRepository{db: db, log: log}
}

func (r *checkReportRepository) Create(ctx context.Context, report *domain.CheckReport) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		r.log.Errorw("report_repo_create_failed", "host", report.HostIdentity, "software", report.SoftwareName, "error", err)
		return err
	}
	r.log.Infow("report_repo_create_ok", "id", report.ID, "host", report.HostIdentity, "software", report.SoftwareName, "status", report.Status)
	return nil
}

// LatestFor returns nil when the host never reported on software. Ties on
// reported_at go to the later insert.
func (r *checkReportRepository) LatestFor(ctx context.Context, host, software string) (*domain.CheckReport, error) {
	var report domain.CheckReport
	err := r.db.WithContext(ctx).
		Where("host_identity = ? AND software_name = ?", host, software).
		Order("reported_at desc").
		Order("id desc").
		First(&report).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorw("report_repo_latest_failed", "host", host, "software", software, "error", err)
		return nil, err
	}
	return &report, nil
}

func (r *checkReportRepository) LatestByHost(ctx context.Context, host string) ([]domain.CheckReport, error) {
	var reports []domain.CheckReport
	err := r.db.WithContext(ctx).Raw(`
		SELECT DISTINCT ON (software_name) *
		FROM check_reports
		WHERE host_identity = ?
		ORDER BY software_name, reported_at DESC, id DESC
	`, host).Scan(&reports).Error
	if err != nil {
		r.log.Errorw("report_repo_latest_by_host_failed", "host", host, "error", err)
		return nil, err
	}
	r.log.Infow("report_repo_latest_by_host_ok", "host", host, "count", len(reports))
	return reports, nil
}

func (r *checkReportRepository) History(ctx context.Context, host, software string, limit int) ([]domain.CheckReport, error) {
	var reports []domain.CheckReport
	err := r.db.WithContext(ctx).
		Where("host_identity = ? AND software_name = ?", host, software).
		Order("reported_at desc").
		Order("id desc").
		Limit(limit).
		Find(&reports).Error
	if err != nil {
		r.log.Errorw("report_repo_history_failed", "host", host, "software", software, "error", err)
		return nil, err
	}
	return reports, nil
}

func (r *checkReportRepository) ListHosts(ctx context.Context) ([]string, error) {
	var hosts []string
	err := r.db.WithContext(ctx).
		Model(&domain.CheckReport{}).
		Distinct("host_identity").
		Order("host_identity").
		Pluck("host_identity", &hosts).Error
	if err != nil {
		r.log.Errorw("report_repo_list_hosts_failed", "error", err)
		return nil, err
	}
	return hosts, nil
}
