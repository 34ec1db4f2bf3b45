package hostinfo

import (
	"os"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// Info identifies the machine an agent runs on.
type Info struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	HostID          string `json:"host_id,omitempty"`
}

// PlatformString renders "<os>/<platform> <version>", e.g. "windows/Microsoft Windows 11 Pro 10.0.22631".
func (i Info) PlatformString() string {
	s := i.OS
	if i.Platform != "" {
		s += "/" + i.Platform
	}
	if i.PlatformVersion != "" {
		s += " " + i.PlatformVersion
	}
	return s
}

var hostInfo = host.Info

// Collect gathers host details. Lookup failures fall back to os.Hostname and
// runtime.GOOS so an agent can always report.
func Collect() Info {
	info := Info{OS: runtime.GOOS}
	if hi, err := hostInfo(); err == nil && hi != nil {
		info.Hostname = hi.Hostname
		if hi.OS != "" {
			info.OS = hi.OS
		}
		info.Platform = hi.Platform
		info.PlatformVersion = hi.PlatformVersion
		info.HostID = hi.HostID
	}
	if info.Hostname == "" {
		info.Hostname, _ = os.Hostname()
	}
	return info
}

// Identity picks the name reports are filed under: the configured override
// when set, the hostname otherwise.
func Identity(override string, info Info) string {
	if s := strings.TrimSpace(override); s != "" {
		return s
	}
	if info.Hostname != "" {
		return info.Hostname
	}
	return "unknown-host"
}
