package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/labassist/backend/internal/catalog"
	"github.com/labassist/backend/internal/config"
	"github.com/labassist/backend/internal/core/services"
	"github.com/labassist/backend/internal/detect"
	"github.com/labassist/backend/internal/infrastructure/db"
	"github.com/labassist/backend/internal/infrastructure/events"
	"github.com/labassist/backend/internal/infrastructure/logger"
	"github.com/labassist/backend/internal/infrastructure/source"
	transporthttp "github.com/labassist/backend/internal/transport/http"
	httpmw "github.com/labassist/backend/internal/transport/http/middleware"
	"gorm.io/gorm"
)

const userAgent = "labassist-server"

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("LABASSIST_CONFIG")
	if configPath == "" {
		configPath = "config/config.yaml"
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "../config/config.yaml"
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	database, err := db.NewPostgresConnection(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	log.Info("database connection established")

	if err := db.RunMigrations(database); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	log.Info("database migrations completed")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	policy, err := detect.ParsePolicy(cfg.Detection.CommandPolicy)
	if err != nil {
		log.Fatalf("invalid detection config: %v", err)
	}
	engine := detect.NewEngine(detect.Config{
		ProbeTimeout: cfg.Detection.ProbeTimeout,
		Policy:       policy,
		Logger:       log,
	})

	store := catalog.NewStore()
	software := services.NewSoftwareService(services.SoftwareServiceConfig{
		Store:       store,
		CatalogPath: cfg.Catalog.Path,
		Repository:  db.NewSoftwareRepository(database, log),
		Engine:      engine,
		Logger:      log,
	})
	if _, err := software.Reload(ctx); err != nil {
		log.Fatalf("failed to load software catalog: %v", err)
	}
	go software.CheckAll(ctx, cfg.Detection.CheckWorkers)

	tracker := services.NewProgressTracker(services.ProgressTrackerConfig{
		Retention: cfg.Provisioning.ProgressRetention,
		Logger:    log,
	})
	tracker.Start(ctx)

	installs := services.NewInstallService(services.InstallServiceConfig{
		Catalog:  store,
		Detector: engine,
		Tracker:  tracker,
		Sources:  source.NewRegistryFromConfig(cfg.Sources, userAgent),
		Installer: services.NewInstallerService(services.InstallerServiceConfig{
			Logger:  log,
			Timeout: cfg.Provisioning.InstallTimeout,
			Enabled: cfg.Provisioning.RunInstallers,
		}),
		Logger:       log,
		DownloadsDir: cfg.Provisioning.DownloadsDir,
		ChunkSize:    cfg.Provisioning.ChunkSize,
		IdleTimeout:  cfg.Provisioning.IdleTimeout,
		StateMaxAge:  cfg.Detection.StateMaxAge,
		BaseContext:  ctx,
	})

	var publisher *events.KafkaPublisher
	collectorCfg := services.CollectorServiceConfig{
		Repository: db.NewCheckReportRepository(database, log),
		Logger:     log,
	}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		collectorCfg.Publisher = publisher
		log.Infow("kafka_publisher_enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	collector := services.NewCollectorService(collectorCfg)

	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		ErrorHandler:          httpmw.ErrorHandler(log),
		DisableStartupMessage: true,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	allowedOrigins := "http://localhost:3000"
	if len(cfg.Auth.AllowedOrigins) > 0 {
		allowedOrigins = strings.Join(cfg.Auth.AllowedOrigins, ",")
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: allowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Token, X-Agent-Token",
		AllowMethods: "GET, POST, HEAD",
	}))

	app.Use(httpmw.RequestID(cfg.Features.RequestIDHeader))
	if cfg.Features.EnableRequestLogging {
		app.Use(httpmw.AccessLog(log))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "catalog_size": store.Len()})
	})

	transporthttp.SetupRoutes(app, transporthttp.RouterConfig{
		Logger:    log,
		Config:    cfg,
		Software:  software,
		Installs:  installs,
		Progress:  tracker,
		Collector: collector,
	})

	addr := cfg.Server.Address()
	go func() {
		if err := app.Listen(addr); err != nil {
			log.Fatalf("server failed to start: %v", err)
		}
	}()
	log.Infof("server started on %s", addr)

	gracefulShutdown(app, database, log, stop, installs, publisher)
}

func gracefulShutdown(app *fiber.App, database *gorm.DB, log *logger.Logger, stop context.CancelFunc, installs *services.InstallService, publisher *events.KafkaPublisher) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Errorf("server forced to shutdown: %v", err)
	}

	stop()
	if err := installs.Shutdown(ctx); err != nil {
		log.Warnf("install tasks did not stop in time: %v", err)
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Errorf("failed to close kafka publisher: %v", err)
		}
	}

	if err := db.Close(database); err != nil {
		log.Errorf("failed to close database connection: %v", err)
	}

	log.Info("server exited gracefully")
}
