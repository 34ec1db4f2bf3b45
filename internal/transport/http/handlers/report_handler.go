package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/labassist/backend/internal/core/ports"
	"github.com/labassist/backend/internal/core/services"
	"github.com/labassist/backend/internal/infrastructure/logger"
	"github.com/labassist/backend/internal/transport/http/dto"
)

type ReportHandler struct {
	collector ports.CollectorService
	logger    *logger.Logger
}

func NewReportHandler(collector ports.CollectorService, logger *logger.Logger) *ReportHandler {
	return &ReportHandler{collector: collector, logger: logger}
}

// Submit stores one agent report. The response reflects persistence only,
// never the reported status.
func (h *ReportHandler) Submit(c *fiber.Ctx) error {
	var req dto.ReportRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Warnw("report_body_parse_failed", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid request body"})
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.logger.Warnw("report_validation_failed", "hostname", req.Hostname, "software", req.Software, "errors", errs)
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Validation failed", Details: errs})
	}

	report, err := h.collector.RecordReport(c.UserContext(), req.ToInput())
	if err != nil {
		if errors.Is(err, services.ErrReportInvalid) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
		}
		h.logger.Errorw("report_record_failed", "hostname", req.Hostname, "software", req.Software, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "failed to store report"})
	}

	return c.Status(fiber.StatusCreated).JSON(dto.ReportAcceptedResponse{
		ID:         report.ID,
		Accepted:   true,
		ReportedAt: report.ReportedAt,
	})
}
