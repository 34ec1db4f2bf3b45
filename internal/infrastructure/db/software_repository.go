package db

import (
	"context"

	"github.com/labassist/backend/internal/core/ports"
	"github.com/labassist/backend/internal/domain"
	"github.com/labassist/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type softwareRepository struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSoftwareRepository(db *gorm.DB, log *logger.Logger) ports.SoftwareRepository {
	return &softwareRepository{db: db, log: log}
}

// Upsert writes catalog columns keyed by name. State columns are left alone so
// a reload never wipes the last detection result.
func (r *softwareRepository) Upsert(ctx context.Context, software *domain.Software) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"kind", "detection_method", "detection_target", "install_source", "platform", "updated_at",
		}),
	}).Create(software).Error
	if err != nil {
		r.log.Errorw("software_repo_upsert_failed", "name", software.Name, "error", err)
		return err
	}
	r.log.Infow("software_repo_upsert_ok", "name", software.Name)
	return nil
}

func (r *softwareRepository) GetAll(ctx context.Context) ([]domain.Software, error) {
	var items []domain.Software
	if err := r.db.WithContext(ctx).Order("name").Find(&items).Error; err != nil {
		r.log.Errorw("software_repo_list_failed", "error", err)
		return nil, err
	}
	r.log.Infow("software_repo_list_ok", "count", len(items))
	return items, nil
}

func (r *softwareRepository) UpdateState(ctx context.Context, state domain.InstallState) error {
	checked := state.LastCheckedAt
	err := r.db.WithContext(ctx).Model(&domain.Software{}).
		Where("name = ?", state.Name).
		Updates(map[string]interface{}{
			"is_installed":    state.Installed(),
			"resolved_path":   state.ResolvedPath,
			"last_checked_at": &checked,
		}).Error
	if err != nil {
		r.log.Errorw("software_repo_update_state_failed", "name", state.Name, "status", state.Status, "error", err)
		return err
	}
	return nil
}
