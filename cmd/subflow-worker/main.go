package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/subflow/pkg/cmd"
	"github.com/dukex/subflow/pkg/log"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "subflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Run queued sub-workflow calls",
		Commands: []*cli.Command{
			NewRunCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		panic(err)
	}
}

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Consume the execution queue and apply run reports",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
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
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("subflow-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Subflow Worker")

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

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger, "subflow-worker")
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			executions, err := cmd.NewQueue(ctx, command.String("queue"), command.String("redis-url"), logger, "subflow-worker")
			if err != nil {
				return err
			}

			defer func() {
				if err := executions.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close execution queue", "error", err)
				}
			}()

			worker := NewWorkerManager(workerID, persistence, executions, eventBus, logger)

			err = worker.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Worker stopped with error", "error", err)

				return err
			}

			return nil
		},
	}
}
