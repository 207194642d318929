package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/subflow/pkg/cmd"
	"github.com/dukex/subflow/pkg/log"
	"github.com/dukex/subflow/pkg/otelhelper"
	"github.com/dukex/subflow/pkg/recursion"
	"github.com/dukex/subflow/pkg/subflow"
	cli "github.com/urfave/cli/v3"
	"go.opentelemetry.io/otel/trace"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "subflow-api",
		Usage:                 "Launch sub-workflows and fetch their results",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence (memory://, file://path, postgres://...)",
				Value:   "memory://",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "queue",
				Usage:   "Execution queue provider (gochannel, kafka, redis)",
				Value:   "gochannel",
				Sources: cli.EnvVars("QUEUE_PROVIDER"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the redis queue",
				Value:   "redis://localhost:6379/0",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.IntFlag{
				Name:    "max-depth",
				Usage:   "Maximum sub-workflow nesting depth",
				Value:   recursion.DefaultMaxDepth,
				Sources: cli.EnvVars("SUBFLOW_MAX_DEPTH"),
			},
			&cli.IntFlag{
				Name:    "default-timeout",
				Usage:   "Seconds a job-mode call waits when the request sets no timeout",
				Value:   subflow.DefaultTimeout,
				Sources: cli.EnvVars("SUBFLOW_DEFAULT_TIMEOUT"),
			},
			&cli.IntFlag{
				Name:    "default-poll-interval",
				Usage:   "Milliseconds between status checks when the request sets no interval",
				Value:   subflow.DefaultPollInterval,
				Sources: cli.EnvVars("SUBFLOW_DEFAULT_POLL_INTERVAL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("subflow-api")

			logger.InfoContext(ctx, "Initializing Subflow API")

			var tracer trace.Tracer
			if command.Bool("tracing") {
				t, err := otelhelper.NewTracer(ctx, "subflow-api")
				if err != nil {
					return err
				}

				tracer = t
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				err := persistence.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger, "subflow-api")
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			executions, err := cmd.NewQueue(ctx, command.String("queue"), command.String("redis-url"), logger, "subflow-api")
			if err != nil {
				return err
			}

			defer func() {
				if err := executions.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close execution queue", "error", err)
				}
			}()

			config := subflow.Config{
				MaxDepth:            int(command.Int("max-depth")),
				DefaultTimeout:      int(command.Int("default-timeout")),
				DefaultPollInterval: int(command.Int("default-poll-interval")),
			}

			api := NewAPI(logger, persistence, executions, eventBus, config, tracer)

			err = api.Start(ctx, int(command.Int("port")))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API", "error", err)

				return err
			}

			return nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		panic(err)
	}
}
