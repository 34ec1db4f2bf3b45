package ports

import (
	"context"
	"io"
	"time"

	"github.com/labassist/backend/internal/domain"
)

// SoftwareCatalog is the read side of the descriptor store.
type SoftwareCatalog interface {
	Get(name string) (domain.SoftwareDescriptor, bool)
	List() []domain.SoftwareDescriptor
}

type Detector interface {
	Detect(ctx context.Context, d domain.SoftwareDescriptor) domain.InstallState
	State(name string) domain.InstallState
}

// Artifact is an opened install source. Size is -1 when the source does not declare it.
type Artifact struct {
	Body io.ReadCloser
	Size int64
	Name string
}

type ArtifactSource interface {
	Open(ctx context.Context, rawURL string) (*Artifact, error)
	Supports(rawURL string) bool
}

type InstallerService interface {
	Install(ctx context.Context, d domain.SoftwareDescriptor, artifactPath string) (domain.InstallOutcome, error)
}

type ProgressReader interface {
	Get(name string) int
	Snapshot(name string) (domain.DownloadTask, bool)
}

type SoftwareView struct {
	Descriptor domain.SoftwareDescriptor
	State      domain.InstallState
}

type SoftwareService interface {
	Reload(ctx context.Context) (ReloadResult, error)
	List(ctx context.Context) []SoftwareView
	Status(ctx context.Context, name string) (domain.InstallState, error)
}

type ReloadResult struct {
	Added     int
	Updated   int
	Unchanged int
	Rejected  []string
}

type InstallOrchestrator interface {
	RequestInstall(ctx context.Context, name string) (InstallResult, error)
}

type InstallResultOutcome string

const (
	OutcomeAlreadyInstalled InstallResultOutcome = "already_installed"
	OutcomeStarted          InstallResultOutcome = "started"
	OutcomeInProgress       InstallResultOutcome = "in_progress"
	OutcomeManualRequired   InstallResultOutcome = "manual_required"
)

// InstallTaskHandle is what callers get back for a started or running install.
type InstallTaskHandle interface {
	ID() string
	Done() <-chan struct{}
	Wait(ctx context.Context) (domain.DownloadTask, error)
	Snapshot() domain.DownloadTask
	Cancel()
}

type InstallResult struct {
	Outcome   InstallResultOutcome
	Task      InstallTaskHandle
	ManualURL string
	Message   string
}

type ReportInput struct {
	HostIdentity string
	SoftwareName string
	Status       string
	ResolvedPath string
	Platform     string
	AgentVersion string
	Timestamp    *time.Time
}

type CollectorService interface {
	RecordReport(ctx context.Context, input ReportInput) (*domain.CheckReport, error)
	LatestStatus(ctx context.Context, host, software string) (domain.InventoryEntry, error)
	HostInventory(ctx context.Context, host string) ([]domain.InventoryEntry, error)
	History(ctx context.Context, host, software string, limit int) ([]domain.CheckReport, error)
	Hosts(ctx context.Context) ([]string, error)
}

type ReportPublisher interface {
	PublishReport(ctx context.Context, report *domain.CheckReport) error
}
