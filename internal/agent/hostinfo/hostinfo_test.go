package hostinfo

import (
	"errors"
	"runtime"
	"testing"

	"github.com/shirou/gopsutil/v3/host"
)

func TestCollectUsesHostInfo(t *testing.T) {
	orig := hostInfo
	defer func() { hostInfo = orig }()
	hostInfo = func() (*host.InfoStat, error) {
		return &host.InfoStat{Hostname: "lab-pc-07", OS: "windows", Platform: "Microsoft Windows 11 Pro", PlatformVersion: "10.0.22631"}, nil
	}

	info := Collect()
	if info.Hostname != "lab-pc-07" || info.OS != "windows" {
		t.Fatalf("info = %+v", info)
	}
	if got := info.PlatformString(); got != "windows/Microsoft Windows 11 Pro 10.0.22631" {
		t.Errorf("platform = %q", got)
	}
}

func TestCollectFallsBack(t *testing.T) {
	orig := hostInfo
	defer func() { hostInfo = orig }()
	hostInfo = func() (*host.InfoStat, error) { return nil, errors.New("wmi unavailable") }

	info := Collect()
	if info.OS != runtime.GOOS {
		t.Errorf("os = %q, want %q", info.OS, runtime.GOOS)
	}
}

func TestIdentity(t *testing.T) {
	info := Info{Hostname: "lab-pc-07"}
	if got := Identity("  room-3-seat-12 ", info); got != "room-3-seat-12" {
		t.Errorf("override = %q", got)
	}
	if got := Identity("", info); got != "lab-pc-07" {
		t.Errorf("hostname = %q", got)
	}
	if got := Identity("", Info{}); got != "unknown-host" {
		t.Errorf("empty = %q", got)
	}
}
