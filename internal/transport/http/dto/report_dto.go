package dto

import (
	"strings"
	"time"

	"github.com/labassist/backend/internal/core/ports"
	"github.com/labassist/backend/internal/domain"
)

// ReportRequest is the body agents post. The field names match what older
// lab clients send to the legacy endpoint.
type ReportRequest struct {
	Hostname     string     `json:"hostname"`
	Software     string     `json:"software"`
	Status       string     `json:"status"`
	Path         string     `json:"path"`
	Platform     string     `json:"platform,omitempty"`
	AgentVersion string     `json:"agent_version,omitempty"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
}

func (r *ReportRequest) Validate() []string {
	var errors []string

	if strings.TrimSpace(r.Hostname) == "" {
		errors = append(errors, "hostname is required")
	}
	if strings.TrimSpace(r.Software) == "" {
		errors = append(errors, "software is required")
	}
	if r.Status == "" {
		errors = append(errors, "status is required")
	} else if _, ok := domain.ParseInstallStatus(r.Status); !ok {
		errors = append(errors, "status must be one of: Installed, NotInstalled, Unknown")
	}

	return errors
}

func (r *ReportRequest) ToInput() ports.ReportInput {
	return ports.ReportInput{
		HostIdentity: r.Hostname,
		SoftwareName: r.Software,
		Status:       r.Status,
		ResolvedPath: r.Path,
		Platform:     r.Platform,
		AgentVersion: r.AgentVersion,
		Timestamp:    r.Timestamp,
	}
}

type ReportAcceptedResponse struct {
	ID         uint      `json:"id"`
	Accepted   bool      `json:"accepted"`
	ReportedAt time.Time `json:"reported_at"`
}

type HostsResponse struct {
	Hosts []string `json:"hosts"`
}

type InventoryResponse struct {
	Host     string                  `json:"host"`
	Software []domain.InventoryEntry `json:"software"`
}
