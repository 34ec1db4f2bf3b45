package domain

import (
	"testing"
	"time"
)

func TestParseInstallStatus(t *testing.T) {
	cases := []struct {
		in   string
		want InstallStatus
		ok   bool
	}{
		{"Installed", InstallStatusInstalled, true},
		{"Not Installed", InstallStatusNotInstalled, true},
		{"NotInstalled", InstallStatusNotInstalled, true},
		{"not_installed", InstallStatusNotInstalled, true},
		{"unknown", InstallStatusUnknown, true},
		{"maybe", InstallStatusUnknown, false},
		{"", InstallStatusUnknown, false},
	}
	for _, tc := range cases {
		got, ok := ParseInstallStatus(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseInstallStatus(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDescriptorAppliesTo(t *testing.T) {
	generic := SoftwareDescriptor{Name: "git"}
	if !generic.AppliesTo("linux") || !generic.AppliesTo("windows") {
		t.Error("empty platform should match every OS")
	}
	win := SoftwareDescriptor{Name: "vscode", Platform: "Windows"}
	if !win.AppliesTo("windows") {
		t.Error("platform match should be case-insensitive")
	}
	if win.AppliesTo("linux") {
		t.Error("windows descriptor should not apply to linux")
	}
}

func TestSoftwareLastKnownState(t *testing.T) {
	checked := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	if st := (Software{Name: "ide"}).LastKnownState(); st.Status != InstallStatusUnknown {
		t.Errorf("never checked = %+v", st)
	}

	st := Software{Name: "ide", IsInstalled: true, ResolvedPath: "/opt/ide", LastCheckedAt: &checked}.LastKnownState()
	if !st.Installed() || st.ResolvedPath != "/opt/ide" || !st.LastCheckedAt.Equal(checked) {
		t.Errorf("installed row = %+v", st)
	}

	st = Software{Name: "ide", ResolvedPath: "/stale", LastCheckedAt: &checked}.LastKnownState()
	if st.Status != InstallStatusNotInstalled || st.ResolvedPath != "" {
		t.Errorf("absent row = %+v", st)
	}
}
