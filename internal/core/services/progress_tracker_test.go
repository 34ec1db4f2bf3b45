package services

import (
	"errors"
	"testing"
	"time"

	"github.com/labassist/backend/internal/domain"
)

func TestPercent(t *testing.T) {
	cases := []struct {
		done, total int64
		want        int
	}{
		{0, 1000, 0},
		{100, 1000, 10},
		{999, 1000, 99},
		{1000, 1000, 100},
		{1200, 1000, 100},
		{500, -1, 0},
		{500, 0, 0},
		{1, 3, 33},
	}
	for _, tc := range cases {
		if got := Percent(tc.done, tc.total); got != tc.want {
			t.Errorf("Percent(%d,%d) = %d, want %d", tc.done, tc.total, got, tc.want)
		}
	}
}

func TestTrackerNeverStarted(t *testing.T) {
	tr := NewProgressTracker(ProgressTrackerConfig{})
	if got := tr.Get("nothing"); got != 0 {
		t.Errorf("Get = %d, want 0", got)
	}
	if _, ok := tr.Snapshot("nothing"); ok {
		t.Error("snapshot should not exist")
	}
}

func TestTrackerMonotonic(t *testing.T) {
	tr := NewProgressTracker(ProgressTrackerConfig{})
	tr.Begin("ide", "t1")
	tr.SetTotal("ide", "t1", 1000)

	tr.Advance("ide", "t1", 500)
	if got := tr.Advance("ide", "t1", 200); got != 50 {
		t.Errorf("after regress = %d, want 50", got)
	}
	tr.Advance("ide", "t1", 700)
	if got := tr.Get("ide"); got != 70 {
		t.Errorf("Get = %d, want 70", got)
	}
}

func TestTrackerTerminalIsSticky(t *testing.T) {
	tr := NewProgressTracker(ProgressTrackerConfig{})
	tr.Begin("ide", "t1")
	tr.SetTotal("ide", "t1", 100)
	tr.Advance("ide", "t1", 40)
	tr.Fail("ide", "t1", errors.New("connection reset"))

	tr.Advance("ide", "t1", 90)
	tr.Complete("ide", "t1")
	if got := tr.Get("ide"); got != -1 {
		t.Fatalf("Get = %d, want -1", got)
	}
	snap, _ := tr.Snapshot("ide")
	if snap.Error != "connection reset" || snap.FinishedAt == nil {
		t.Errorf("snapshot = %+v", snap)
	}

	tr.SetOutcome("ide", "t1", domain.InstallOutcomeSkipped, "")
	if got := tr.Get("ide"); got != -1 {
		t.Errorf("outcome changed progress to %d", got)
	}
}

func TestTrackerAdvanceNeverReportsSuccess(t *testing.T) {
	tr := NewProgressTracker(ProgressTrackerConfig{})
	tr.Begin("ide", "t1")
	tr.SetTotal("ide", "t1", 1000)

	if got := tr.Advance("ide", "t1", 900); got != 90 {
		t.Fatalf("Advance(900) = %d, want 90", got)
	}
	if got := tr.Advance("ide", "t1", 1000); got != 90 {
		t.Fatalf("Advance(all bytes) = %d, want 90 until Complete", got)
	}
	if got := tr.Advance("ide", "t1", 999); got != 90 {
		t.Fatalf("Advance(999) = %d", got)
	}
	snap, _ := tr.Snapshot("ide")
	if snap.BytesDone != 1000 {
		t.Errorf("bytes done = %d, want 1000", snap.BytesDone)
	}

	tr.Fail("ide", "t1", errors.New("rename failed"))
	if got := tr.Get("ide"); got != -1 {
		t.Errorf("Get = %d, want -1", got)
	}
}

func TestTrackerAdvanceSingleChunkWaitsForComplete(t *testing.T) {
	tr := NewProgressTracker(ProgressTrackerConfig{})
	tr.Begin("ide", "t1")
	tr.SetTotal("ide", "t1", 10)
	if got := tr.Advance("ide", "t1", 10); got != 0 {
		t.Fatalf("Advance = %d, want 0", got)
	}
	tr.Complete("ide", "t1")
	if got := tr.Get("ide"); got != 100 {
		t.Errorf("Get after Complete = %d, want 100", got)
	}
}

func TestTrackerNewTaskResets(t *testing.T) {
	tr := NewProgressTracker(ProgressTrackerConfig{})
	tr.Begin("ide", "t1")
	tr.Fail("ide", "t1", nil)

	tr.Begin("ide", "t2")
	if got := tr.Get("ide"); got != 0 {
		t.Fatalf("Get after new task = %d, want 0", got)
	}
	tr.Complete("ide", "t1")
	if got := tr.Get("ide"); got != 0 {
		t.Errorf("stale task updated entry to %d", got)
	}
}

func TestTrackerUnknownTotalStaysAtZero(t *testing.T) {
	tr := NewProgressTracker(ProgressTrackerConfig{})
	tr.Begin("ide", "t1")
	tr.Advance("ide", "t1", 1<<20)
	if got := tr.Get("ide"); got != 0 {
		t.Errorf("Get = %d, want 0", got)
	}
	snap, _ := tr.Snapshot("ide")
	if snap.BytesDone != 1<<20 || snap.BytesTotal != -1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestTrackerPrune(t *testing.T) {
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	tr := NewProgressTracker(ProgressTrackerConfig{
		Retention: 10 * time.Minute,
		Now:       func() time.Time { return now },
	})

	tr.Begin("done", "a")
	tr.Complete("done", "a")
	tr.Begin("running", "b")

	now = now.Add(11 * time.Minute)
	if n := tr.Prune(); n != 1 {
		t.Fatalf("Prune = %d, want 1", n)
	}
	if _, ok := tr.Snapshot("done"); ok {
		t.Error("terminal entry should be pruned")
	}
	if _, ok := tr.Snapshot("running"); !ok {
		t.Error("running entry must be kept")
	}
}
