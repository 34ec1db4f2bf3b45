package dto

import (
	"time"

	"github.com/labassist/backend/internal/core/ports"
	"github.com/labassist/backend/internal/domain"
)

type SoftwareResponse struct {
	Name            string                 `json:"name"`
	Kind            domain.SoftwareKind    `json:"kind,omitempty"`
	DetectionMethod domain.DetectionMethod `json:"detection_method"`
	DetectionTarget string                 `json:"detection_target"`
	InstallSource   string                 `json:"install_source,omitempty"`
	Platform        string                 `json:"platform,omitempty"`
	InstallMode     domain.InstallMode     `json:"install_mode,omitempty"`
	Status          domain.InstallStatus   `json:"status"`
	Installed       bool                   `json:"installed"`
	ResolvedPath    string                 `json:"resolved_path,omitempty"`
	LastCheckedAt   *time.Time             `json:"last_checked_at,omitempty"`
}

func SoftwareToResponse(v ports.SoftwareView) SoftwareResponse {
	r := SoftwareResponse{
		Name:            v.Descriptor.Name,
		Kind:            v.Descriptor.Kind,
		DetectionMethod: v.Descriptor.Method,
		DetectionTarget: v.Descriptor.Target,
		InstallSource:   v.Descriptor.Source,
		Platform:        v.Descriptor.Platform,
		InstallMode:     v.Descriptor.InstallMode,
		Status:          v.State.Status,
		Installed:       v.State.Installed(),
		ResolvedPath:    v.State.ResolvedPath,
	}
	if !v.State.LastCheckedAt.IsZero() {
		t := v.State.LastCheckedAt
		r.LastCheckedAt = &t
	}
	return r
}

func SoftwareListToResponse(views []ports.SoftwareView) []SoftwareResponse {
	out := make([]SoftwareResponse, len(views))
	for i, v := range views {
		out[i] = SoftwareToResponse(v)
	}
	return out
}

type StatusResponse struct {
	Name       string               `json:"name"`
	Installed  bool                 `json:"installed"`
	Status     domain.InstallStatus `json:"status"`
	Path       string               `json:"path,omitempty"`
	CheckedAt  time.Time            `json:"checked_at"`
	ProbeError string               `json:"probe_error,omitempty"`
}

func StateToResponse(st domain.InstallState) StatusResponse {
	return StatusResponse{
		Name:       st.Name,
		Installed:  st.Installed(),
		Status:     st.Status,
		Path:       st.ResolvedPath,
		CheckedAt:  st.LastCheckedAt,
		ProbeError: st.ProbeError,
	}
}

type InstallResponse struct {
	Outcome ports.InstallResultOutcome `json:"outcome"`
	TaskID  string                     `json:"task_id,omitempty"`
	URL     string                     `json:"url,omitempty"`
	Message string                     `json:"message,omitempty"`
}

type ProgressResponse struct {
	Name           string                `json:"name"`
	Progress       int                   `json:"progress"`
	State          string                `json:"state"`
	TaskID         string                `json:"task_id,omitempty"`
	BytesDone      int64                 `json:"bytes_done"`
	BytesTotal     int64                 `json:"bytes_total"`
	InstallOutcome domain.InstallOutcome `json:"install_outcome,omitempty"`
	Error          string                `json:"error,omitempty"`
}

// ProgressToResponse renders a tracker snapshot; ok false means the item was
// never started.
func ProgressToResponse(name string, snap domain.DownloadTask, ok bool) ProgressResponse {
	if !ok {
		return ProgressResponse{Name: name, Progress: domain.ProgressNotStarted, State: "not_started", BytesTotal: -1}
	}
	state := "downloading"
	switch snap.Progress {
	case domain.ProgressComplete:
		state = "completed"
	case domain.ProgressFailed:
		state = "failed"
	}
	return ProgressResponse{
		Name:           name,
		Progress:       snap.Progress,
		State:          state,
		TaskID:         snap.ID,
		BytesDone:      snap.BytesDone,
		BytesTotal:     snap.BytesTotal,
		InstallOutcome: snap.InstallOutcome,
		Error:          snap.Error,
	}
}

type ReloadResponse struct {
	Added     int      `json:"added"`
	Updated   int      `json:"updated"`
	Unchanged int      `json:"unchanged"`
	Rejected  []string `json:"rejected,omitempty"`
}
