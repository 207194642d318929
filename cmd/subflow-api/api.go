// Package main provides the sub-workflow coordinator API server.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/dukex/subflow/pkg/eventbus"
	"github.com/dukex/subflow/pkg/persistence"
	"github.com/dukex/subflow/pkg/queue"
	"github.com/dukex/subflow/pkg/subflow"
	"github.com/dukex/subflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	queue       queue.Queue
	eventBus    eventbus.EventPublisher
	config      subflow.Config
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	queue queue.Queue,
	eventBus eventbus.EventPublisher,
	config subflow.Config,
	tracer trace.Tracer,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		queue:       queue,
		eventBus:    eventBus,
		config:      config,
		tracer:      tracer,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Coordinator wires the coordinator the handlers use. Trigger messages start runs by
// publishing run.triggered on the event bus.
func (a *API) Coordinator() *subflow.Coordinator {
	processor := eventbus.NewRunProcessor(a.eventBus, a.logger)
	stores := subflow.NewStores(a.persistence, subflow.WithMessageTrigger(processor))

	options := []subflow.Option{
		subflow.WithConfig(a.config),
		subflow.WithLogger(a.logger),
	}
	if a.tracer != nil {
		options = append(options, subflow.WithTracer(a.tracer))
	}

	var q subflow.Queue
	if a.queue != nil {
		q = a.queue
	}

	return subflow.NewCoordinator(stores, stores, stores, q, options...)
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.Coordinator(), web.NewPersistenceStore(a.persistence), a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Subflow API")
	})

	handlers.Register(app)

	return app
}

// Start serves the API until ctx is cancelled.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	go func() {
		<-ctx.Done()

		if err := app.Shutdown(); err != nil {
			a.logger.Error("Failed to shut down API", "error", err)
		}
	}()

	return app.Listen(":" + strconv.Itoa(port))
}
