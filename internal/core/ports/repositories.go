package ports

import (
	"context"

	"github.com/labassist/backend/internal/domain"
)

type SoftwareRepository interface {
	Upsert(ctx context.Context, software *domain.Software) error
	GetAll(ctx context.Context) ([]domain.Software, error)
	UpdateState(ctx context.Context, state domain.InstallState) error
}

// CheckReportRepository is append-only; reports are never updated in place.
type CheckReportRepository interface {
	Create(ctx context.Context, report *domain.CheckReport) error
	LatestFor(ctx context.Context, host, software string) (*domain.CheckReport, error)
	LatestByHost(ctx context.Context, host string) ([]domain.CheckReport, error)
	History(ctx context.Context, host, software string, limit int) ([]domain.CheckReport, error)
	ListHosts(ctx context.Context) ([]string, error)
}
