package domain

import (
	"runtime"
	"strings"
	"time"
)

// ==================== ENUMS ====================

type DetectionMethod string

const (
	DetectionPathExists DetectionMethod = "path-existence"
	DetectionPathGlob   DetectionMethod = "path-glob"
	DetectionCommand    DetectionMethod = "command-probe"
)

func (m DetectionMethod) Valid() bool {
	switch m {
	case DetectionPathExists, DetectionPathGlob, DetectionCommand:
		return true
	}
	return false
}

type SoftwareKind string

const (
	SoftwareKindExe  SoftwareKind = "exe"
	SoftwareKindDir  SoftwareKind = "dir"
	SoftwareKindFile SoftwareKind = "file"
	SoftwareKindCmd  SoftwareKind = "cmd"
	SoftwareKindPaid SoftwareKind = "paid"
)

type InstallMode string

const (
	InstallModeSilent      InstallMode = "silent"
	InstallModeInteractive InstallMode = "interactive"
	InstallModeManual      InstallMode = "manual"
)

type InstallStatus string

const (
	InstallStatusUnknown      InstallStatus = "Unknown"
	InstallStatusInstalled    InstallStatus = "Installed"
	InstallStatusNotInstalled InstallStatus = "NotInstalled"
)

// ParseInstallStatus accepts the canonical values and the legacy
// "Not Installed" spelling sent by older lab clients.
func ParseInstallStatus(s string) (InstallStatus, bool) {
	switch strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(s), " ", ""), "_", "")) {
	case "installed":
		return InstallStatusInstalled, true
	case "notinstalled":
		return InstallStatusNotInstalled, true
	case "unknown":
		return InstallStatusUnknown, true
	}
	return InstallStatusUnknown, false
}

// ==================== DESCRIPTOR ====================

// SoftwareDescriptor is an immutable catalog entry. Name is the unique key.
type SoftwareDescriptor struct {
	Name        string          `json:"name"`
	Kind        SoftwareKind    `json:"kind,omitempty"`
	Method      DetectionMethod `json:"detection_method"`
	Target      string          `json:"detection_target"`
	Source      string          `json:"install_source,omitempty"`
	Platform    string          `json:"platform,omitempty"`
	InstallArgs []string        `json:"install_args,omitempty"`
	InstallMode InstallMode     `json:"install_mode,omitempty"`
	MinVersion  string          `json:"min_version,omitempty"`
	SHA256      string          `json:"sha256,omitempty"`
}

// AppliesTo reports whether the descriptor targets the given GOOS. An empty
// platform hint matches every OS.
func (d SoftwareDescriptor) AppliesTo(goos string) bool {
	return d.Platform == "" || strings.EqualFold(d.Platform, goos)
}

func (d SoftwareDescriptor) AppliesHere() bool {
	return d.AppliesTo(runtime.GOOS)
}

// ==================== STATE ====================

// InstallState is the last detection outcome for one descriptor.
type InstallState struct {
	Name          string        `json:"name"`
	Status        InstallStatus `json:"status"`
	LastCheckedAt time.Time     `json:"last_checked_at"`
	ResolvedPath  string        `json:"resolved_path,omitempty"`
	ProbeError    string        `json:"probe_error,omitempty"`
}

func (s InstallState) Installed() bool {
	return s.Status == InstallStatusInstalled
}

// ==================== ENTITIES ====================

// Software is the persisted form of a descriptor plus its last known state.
type Software struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name            string          `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Kind            SoftwareKind    `gorm:"size:20" json:"kind"`
	DetectionMethod DetectionMethod `gorm:"size:32;not null" json:"detection_method"`
	DetectionTarget string          `gorm:"type:text;not null" json:"detection_target"`
	InstallSource   string          `gorm:"type:text" json:"install_source"`
	Platform        string          `gorm:"size:20" json:"platform"`

	IsInstalled   bool       `gorm:"default:false" json:"is_installed"`
	ResolvedPath  string     `gorm:"type:text" json:"resolved_path,omitempty"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
}

func (Software) TableName() string {
	return "softwares"
}

// LastKnownState rebuilds the persisted detection result. A row that was
// never checked is Unknown.
func (s Software) LastKnownState() InstallState {
	st := InstallState{Name: s.Name, Status: InstallStatusUnknown}
	if s.LastCheckedAt == nil {
		return st
	}
	st.LastCheckedAt = *s.LastCheckedAt
	st.Status = InstallStatusNotInstalled
	if s.IsInstalled {
		st.Status = InstallStatusInstalled
		st.ResolvedPath = s.ResolvedPath
	}
	return st
}

// SoftwareFromDescriptor maps catalog fields onto a row, leaving state columns untouched.
func SoftwareFromDescriptor(d SoftwareDescriptor) Software {
	return Software{
		Name:            d.Name,
		Kind:            d.Kind,
		DetectionMethod: d.Method,
		DetectionTarget: d.Target,
		InstallSource:   d.Source,
		Platform:        d.Platform,
	}
}
