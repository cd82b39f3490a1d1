package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/agentdeck/backend/internal/config"
	"github.com/agentdeck/backend/internal/core/ports"
	"github.com/agentdeck/backend/internal/core/services"
	"github.com/agentdeck/backend/internal/infrastructure/agent"
	"github.com/agentdeck/backend/internal/infrastructure/chat"
	"github.com/agentdeck/backend/internal/infrastructure/db"
	"github.com/agentdeck/backend/internal/infrastructure/logger"
	"github.com/agentdeck/backend/internal/transport/http/handlers"
)

type RouterConfig struct {
	DB     *gorm.DB
	Logger *logger.Logger
	Config *config.Config
}

// Services holds the long-running components the server must start and stop
// around the fiber app's lifetime.
type Services struct {
	Dispatcher *services.Dispatcher
	Poller     *services.PollerService
}

func SetupRoutes(app *fiber.App, cfg RouterConfig) *Services {
	// Initialize repositories
	taskRepo := db.NewTaskRepository(cfg.DB, cfg.Logger)

	// Initialize services
	queueService := services.NewQueueService(taskRepo, cfg.Logger)
	approvalService := services.NewApprovalService(cfg.Config.Approval.Timeout, cfg.Logger)
	eventHub := services.NewEventHub()

	runner := agent.NewRunner(cfg.Config.Agent, cfg.Logger)
	dispatcher := services.NewDispatcher(services.DispatcherConfig{
		Queue:    queueService,
		Runner:   runner,
		Hub:      eventHub,
		Logger:   cfg.Logger,
		IdlePoll: cfg.Config.Worker.IdlePoll,
	})

	var source ports.UpdateSource
	if cfg.Config.Poller.GatewayURL != "" {
		source = chat.NewLongPollSource(cfg.Config.Poller.GatewayURL, cfg.Config.Poller.RequestTimeout, cfg.Logger)
	}
	pollerService := services.NewPollerService(source, queueService, cfg.Config.Poller.Interval, cfg.Logger)

	// Initialize handlers
	taskHandler := handlers.NewTaskHandler(queueService, cfg.Logger)
	approvalHandler := handlers.NewApprovalHandler(approvalService, cfg.Logger)
	pollerHandler := handlers.NewPollerHandler(pollerService, cfg.Logger)
	eventsHandler := handlers.NewEventsHandler(eventHub, cfg.Logger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Websocket task progress feed
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws/tasks/:id/events", websocket.New(eventsHandler.Handle))

	// API v1 routes
	api := app.Group("/api/v1")

	// Task routes
	tasks := api.Group("/tasks")
	tasks.Post("/", taskHandler.CreateTask)
	tasks.Get("/", taskHandler.GetTasks)
	tasks.Get("/:id", taskHandler.GetTask)
	tasks.Post("/:id/cancel", taskHandler.CancelTask)

	// Approval routes
	approvals := api.Group("/approvals")
	approvals.Get("/status", approvalHandler.GetStatus)
	approvals.Post("/", approvalHandler.SubmitApproval)
	approvals.Post("/:id/resolve", approvalHandler.ResolveApproval)

	// Poller routes
	poller := api.Group("/poller")
	poller.Post("/start", pollerHandler.Start)
	poller.Post("/stop", pollerHandler.Stop)
	poller.Get("/status", pollerHandler.GetStatus)

	return &Services{
		Dispatcher: dispatcher,
		Poller:     pollerService,
	}
}
