package runner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/labassist/backend/internal/agent/communicator"
	"github.com/labassist/backend/internal/catalog"
	"github.com/labassist/backend/internal/detect"
	"github.com/labassist/backend/internal/domain"
)

type captureSender struct {
	mu      sync.Mutex
	reports []communicator.CheckReport
}

func (c *captureSender) Send(r communicator.CheckReport) {
	c.mu.Lock()
	c.reports = append(c.reports, r)
	c.mu.Unlock()
}

func (c *captureSender) all() []communicator.CheckReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]communicator.CheckReport(nil), c.reports...)
}

func fixture(t *testing.T) (*Runner, *captureSender, string) {
	t.Helper()
	dir := t.TempDir()
	present := filepath.Join(dir, "ide.exe")
	if err := os.WriteFile(present, nil, 0644); err != nil {
		t.Fatal(err)
	}

	store := catalog.NewStore()
	store.Upsert(
		domain.SoftwareDescriptor{Name: "IDE", Method: domain.DetectionPathExists, Target: present},
		domain.SoftwareDescriptor{Name: "Missing", Method: domain.DetectionPathExists, Target: filepath.Join(dir, "missing")},
		domain.SoftwareDescriptor{Name: "Elsewhere", Method: domain.DetectionPathExists, Target: present, Platform: "plan9"},
	)
	sender := &captureSender{}
	r := New(Config{
		Store:        store,
		Engine:       detect.NewEngine(detect.Config{}),
		Sender:       sender,
		HostIdentity: "lab-pc-1",
		Platform:     "test",
		Version:      "1.0.0",
		Workers:      2,
	})
	return r, sender, present
}

func TestCheckAllReportsEachApplicableItem(t *testing.T) {
	r, sender, present := fixture(t)

	states := r.CheckAll(context.Background())
	if len(states) != 2 {
		t.Fatalf("checked %d items, want 2", len(states))
	}

	byName := map[string]communicator.CheckReport{}
	for _, rep := range sender.all() {
		byName[rep.Software] = rep
	}
	if len(byName) != 2 {
		t.Fatalf("reports = %+v", sender.all())
	}
	ide := byName["IDE"]
	if ide.Status != "Installed" || ide.Path != present || ide.Hostname != "lab-pc-1" || ide.Timestamp == nil {
		t.Errorf("IDE report = %+v", ide)
	}
	if m := byName["Missing"]; m.Status != "NotInstalled" || m.Path != "" {
		t.Errorf("Missing report = %+v", m)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	r, sender, _ := fixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, time.Hour) }()

	deadline := time.After(3 * time.Second)
	for len(sender.all()) < 2 {
		select {
		case <-deadline:
			t.Fatal("initial check did not run")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
