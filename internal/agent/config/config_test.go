package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeFile(t, "collector_url: http://lab-server:8080\nagent_token: secret\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ReportTimeout != 6*time.Second {
		t.Errorf("report timeout = %v, want 6s", cfg.ReportTimeout)
	}
	if cfg.ProbeTimeout != 5*time.Second || cfg.CommandPolicy != "strict" {
		t.Errorf("detection defaults = %v %q", cfg.ProbeTimeout, cfg.CommandPolicy)
	}
	if cfg.CheckInterval != 10*time.Minute || cfg.ReportWorkers != 4 || cfg.ReportQueue != 256 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	path := writeFile(t, `collector_url: https://collector.lab
agent_token: secret
report_timeout: 2s
command_policy: lenient
check_interval: 30s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ReportTimeout != 2*time.Second || cfg.CommandPolicy != "lenient" || cfg.CheckInterval != 30*time.Second {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"agent_token: x\n":                                       "collector_url is required",
		"collector_url: lab-server\nagent_token: x\n":            "http(s) URL",
		"collector_url: http://lab\n":                            "agent_token is required",
		"collector_url: http://lab\nagent_token: x\ncheck_interval: 10ms\n": "check_interval",
	}
	for body, want := range cases {
		_, err := Load(writeFile(t, body))
		if err == nil || !strings.Contains(err.Error(), want) {
			t.Errorf("Load(%q) err = %v, want %q", body, err, want)
		}
	}
}

func TestLoadBadYAML(t *testing.T) {
	if _, err := Load(writeFile(t, "collector_url: [unterminated\n")); err == nil {
		t.Fatal("expected parse error")
	}
}
