package domain

import "time"

type InstallOutcome string

const (
	InstallOutcomePending   InstallOutcome = "pending"
	InstallOutcomeLaunched  InstallOutcome = "launched"
	InstallOutcomeInstalled InstallOutcome = "installed"
	InstallOutcomeSurfaced  InstallOutcome = "surfaced"
	InstallOutcomeFailed    InstallOutcome = "failed"
	InstallOutcomeSkipped   InstallOutcome = "skipped"
)

// Progress sentinels shared by the tracker and its readers.
const (
	ProgressNotStarted = 0
	ProgressComplete   = 100
	ProgressFailed     = -1
)

// DownloadTask is a point-in-time copy of an install task.
type DownloadTask struct {
	ID              string         `json:"id"`
	SoftwareName    string         `json:"software_name"`
	Progress        int            `json:"progress"`
	BytesDone       int64          `json:"bytes_done"`
	BytesTotal      int64          `json:"bytes_total"` // -1 when the source did not declare a length
	StartedAt       time.Time      `json:"started_at"`
	FinishedAt      *time.Time     `json:"finished_at,omitempty"`
	DestinationPath string         `json:"destination_path,omitempty"`
	InstallOutcome  InstallOutcome `json:"install_outcome"`
	Error           string         `json:"error,omitempty"`
}

func (t DownloadTask) Terminal() bool {
	return t.Progress == ProgressComplete || t.Progress == ProgressFailed
}
