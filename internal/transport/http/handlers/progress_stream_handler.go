package handlers

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/labassist/backend/internal/core/ports"
	"github.com/labassist/backend/internal/domain"
	"github.com/labassist/backend/internal/infrastructure/logger"
	"github.com/labassist/backend/internal/transport/http/dto"
)

const defaultStreamInterval = 500 * time.Millisecond

// ProgressStreamHandler pushes progress changes for one item over a websocket
// until the task settles or the client goes away.
type ProgressStreamHandler struct {
	progress ports.ProgressReader
	interval time.Duration
	logger   *logger.Logger
}

func NewProgressStreamHandler(progress ports.ProgressReader, interval time.Duration, logger *logger.Logger) *ProgressStreamHandler {
	if interval <= 0 {
		interval = defaultStreamInterval
	}
	return &ProgressStreamHandler{progress: progress, interval: interval, logger: logger}
}

func (h *ProgressStreamHandler) Handle(c *websocket.Conn) {
	name := c.Params("name")
	stop := make(chan struct{})
	go func() {
		defer close(stop)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.logger.Debugw("progress_stream_open", "software", name)
	if err := h.stream(stop, name, func(v dto.ProgressResponse) error { return c.WriteJSON(v) }); err != nil {
		h.logger.Debugw("progress_stream_write_failed", "software", name, "error", err)
	}
	h.logger.Debugw("progress_stream_closed", "software", name)
}

func (h *ProgressStreamHandler) stream(stop <-chan struct{}, name string, send func(dto.ProgressResponse) error) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last *dto.ProgressResponse
	for {
		snap, ok := h.progress.Snapshot(name)
		cur := dto.ProgressToResponse(name, snap, ok)
		if last == nil || changed(*last, cur) {
			if err := send(cur); err != nil {
				return err
			}
			last = &cur
		}
		if ok && settled(snap) {
			return nil
		}

		select {
		case <-stop:
			return nil
		case <-ticker.C:
		}
	}
}

func changed(a, b dto.ProgressResponse) bool {
	return a.Progress != b.Progress || a.State != b.State || a.TaskID != b.TaskID || a.InstallOutcome != b.InstallOutcome
}

// settled is true once nothing more will be written for the task: it failed,
// or it finished downloading and the install action has reported.
func settled(t domain.DownloadTask) bool {
	if t.Progress == domain.ProgressFailed {
		return true
	}
	return t.Progress == domain.ProgressComplete && t.InstallOutcome != domain.InstallOutcomePending
}
