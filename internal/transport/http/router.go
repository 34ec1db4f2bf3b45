package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/labassist/backend/internal/config"
	"github.com/labassist/backend/internal/core/ports"
	"github.com/labassist/backend/internal/infrastructure/logger"
	"github.com/labassist/backend/internal/transport/http/handlers"
	httpmw "github.com/labassist/backend/internal/transport/http/middleware"
)

type RouterConfig struct {
	Logger    *logger.Logger
	Config    *config.Config
	Software  ports.SoftwareService
	Installs  ports.InstallOrchestrator
	Progress  ports.ProgressReader
	Collector ports.CollectorService
	// StreamInterval is how often the websocket progress stream polls; zero uses the default.
	StreamInterval time.Duration
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) {
	softwareHandler := handlers.NewSoftwareHandler(cfg.Software, cfg.Installs, cfg.Progress, cfg.Logger)
	streamHandler := handlers.NewProgressStreamHandler(cfg.Progress, cfg.StreamInterval, cfg.Logger)
	reportHandler := handlers.NewReportHandler(cfg.Collector, cfg.Logger)
	inventoryHandler := handlers.NewInventoryHandler(cfg.Collector, cfg.Logger)

	// Progress stream
	app.Use("/ws", httpmw.AdminAuth(cfg.Config), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws/progress/:name", websocket.New(streamHandler.Handle))

	// Legacy lab clients post here without a version prefix.
	app.Post("/api/report_check", httpmw.AgentAuth(cfg.Config), reportHandler.Submit)

	api := app.Group("/api/v1")

	software := api.Group("/software", httpmw.AdminAuth(cfg.Config))
	software.Get("/", softwareHandler.List)
	software.Post("/reload", softwareHandler.Reload)
	software.Get("/:name/status", softwareHandler.Status)
	software.Post("/:name/install", softwareHandler.Install)
	software.Get("/:name/progress", softwareHandler.Progress)

	api.Get("/hosts", httpmw.AdminAuth(cfg.Config), inventoryHandler.Hosts)

	inventory := api.Group("/inventory", httpmw.AdminAuth(cfg.Config))
	inventory.Get("/:host", inventoryHandler.Host)
	inventory.Get("/:host/:software", inventoryHandler.Latest)
	inventory.Get("/:host/:software/history", inventoryHandler.History)

	// Agent routes
	agent := api.Group("/agent", httpmw.AgentAuth(cfg.Config))
	agent.Post("/reports", reportHandler.Submit)
}
