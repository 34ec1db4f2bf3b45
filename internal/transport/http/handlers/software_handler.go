package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/labassist/backend/internal/core/ports"
	"github.com/labassist/backend/internal/core/services"
	"github.com/labassist/backend/internal/infrastructure/logger"
	"github.com/labassist/backend/internal/transport/http/dto"
)

type SoftwareHandler struct {
	software ports.SoftwareService
	installs ports.InstallOrchestrator
	progress ports.ProgressReader
	logger   *logger.Logger
}

func NewSoftwareHandler(software ports.SoftwareService, installs ports.InstallOrchestrator, progress ports.ProgressReader, logger *logger.Logger) *SoftwareHandler {
	return &SoftwareHandler{software: software, installs: installs, progress: progress, logger: logger}
}

func (h *SoftwareHandler) List(c *fiber.Ctx) error {
	views := h.software.List(c.UserContext())
	return c.JSON(dto.SoftwareListToResponse(views))
}

func (h *SoftwareHandler) Reload(c *fiber.Ctx) error {
	res, err := h.software.Reload(c.UserContext())
	if err != nil {
		h.logger.Errorw("software_reload_failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.ReloadResponse{
		Added:     res.Added,
		Updated:   res.Updated,
		Unchanged: res.Unchanged,
		Rejected:  res.Rejected,
	})
}

// Status runs detection now. Command probes may take up to the probe timeout.
func (h *SoftwareHandler) Status(c *fiber.Ctx) error {
	name := c.Params("name")
	st, err := h.software.Status(c.UserContext(), name)
	if err != nil {
		if errors.Is(err, services.ErrSoftwareNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "software not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.StateToResponse(st))
}

func (h *SoftwareHandler) Install(c *fiber.Ctx) error {
	name := c.Params("name")
	res, err := h.installs.RequestInstall(c.UserContext(), name)
	if err != nil {
		if errors.Is(err, services.ErrSoftwareNotFound) {
			h.logger.Warnw("install_request_unknown_software", "software", name)
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "software not found"})
		}
		h.logger.Errorw("install_request_failed", "software", name, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	resp := dto.InstallResponse{Outcome: res.Outcome, URL: res.ManualURL, Message: res.Message}
	switch res.Outcome {
	case ports.OutcomeStarted, ports.OutcomeInProgress:
		resp.TaskID = res.Task.ID()
		return c.Status(fiber.StatusAccepted).JSON(resp)
	default:
		return c.JSON(resp)
	}
}

func (h *SoftwareHandler) Progress(c *fiber.Ctx) error {
	name := c.Params("name")
	snap, ok := h.progress.Snapshot(name)
	return c.JSON(dto.ProgressToResponse(name, snap, ok))
}
