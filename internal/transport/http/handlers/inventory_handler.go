package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/labassist/backend/internal/core/ports"
	"github.com/labassist/backend/internal/infrastructure/logger"
	"github.com/labassist/backend/internal/transport/http/dto"
)

type InventoryHandler struct {
	collector ports.CollectorService
	logger    *logger.Logger
}

func NewInventoryHandler(collector ports.CollectorService, logger *logger.Logger) *InventoryHandler {
	return &InventoryHandler{collector: collector, logger: logger}
}

func (h *InventoryHandler) Hosts(c *fiber.Ctx) error {
	hosts, err := h.collector.Hosts(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	if hosts == nil {
		hosts = []string{}
	}
	return c.JSON(dto.HostsResponse{Hosts: hosts})
}

func (h *InventoryHandler) Host(c *fiber.Ctx) error {
	host := c.Params("host")
	entries, err := h.collector.HostInventory(c.UserContext(), host)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(dto.InventoryResponse{Host: host, Software: entries})
}

func (h *InventoryHandler) Latest(c *fiber.Ctx) error {
	entry, err := h.collector.LatestStatus(c.UserContext(), c.Params("host"), c.Params("software"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(entry)
}

func (h *InventoryHandler) History(c *fiber.Ctx) error {
	limit := 0
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid limit"})
		}
		limit = n
	}
	reports, err := h.collector.History(c.UserContext(), c.Params("host"), c.Params("software"), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(reports)
}
