package domain

import "time"

// CheckReport is one append-only detection outcome pushed by an agent.
type CheckReport struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	HostIdentity string        `gorm:"size:255;not null;index:idx_check_reports_host_sw_time,priority:1" json:"host_identity"`
	SoftwareName string        `gorm:"size:255;not null;index:idx_check_reports_host_sw_time,priority:2" json:"software_name"`
	Status       InstallStatus `gorm:"size:20;not null" json:"status"`
	ResolvedPath string        `gorm:"type:text" json:"resolved_path,omitempty"`
	Platform     string        `gorm:"size:50" json:"platform,omitempty"`
	AgentVersion string        `gorm:"size:50" json:"agent_version,omitempty"`
	ReportedAt   time.Time     `gorm:"not null;index:idx_check_reports_host_sw_time,priority:3" json:"reported_at"`
}

// InventoryEntry is the derived latest status of one software item on one host.
type InventoryEntry struct {
	HostIdentity string        `json:"host_identity"`
	SoftwareName string        `json:"software_name"`
	Status       InstallStatus `json:"status"`
	ResolvedPath string        `json:"resolved_path,omitempty"`
	ReportedAt   *time.Time    `json:"reported_at,omitempty"`
}
