package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cuongbtq/employee-ingest/internal/config"
	"github.com/cuongbtq/employee-ingest/internal/ingest"
	"github.com/cuongbtq/employee-ingest/internal/queue"
	"github.com/cuongbtq/employee-ingest/shared/rabbitmq"
)

// CSVEnqueuer queues bulk imports
type CSVEnqueuer interface {
	EnqueueEmployeeCSV(ctx context.Context, filePath string) (*queue.JobHandle, error)
}

// connectFunc opens a queue connection from a config file. close releases it.
type connectFunc func(configPath string, logger *slog.Logger) (enqueuer CSVEnqueuer, close func(), err error)

func enqueueCSVCmd(connect connectFunc) *cobra.Command {
	var skipValidation bool

	cmd := &cobra.Command{
		Use:   "enqueue-csv <file>",
		Short: "Queue a CSV file already on the worker's filesystem for import",
		Long: `Queue a CSV file for bulk import without going through the upload endpoint.

The path must be readable by the worker service. The worker deletes the file
once the job finishes. Progress is published on the notification stream.

Examples:
  employeectl enqueue-csv /shared/uploads/employees.csv
  employeectl enqueue-csv ./employees.csv --config configs/worker-service/config.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", args[0], err)
			}

			if !skipValidation {
				total, err := ingest.CountRows(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d rows\n", path, total)
			}

			configPath, _ := cmd.Flags().GetString("config")
			enqueuer, closeConn, err := connect(configPath, commandLogger(cmd))
			if err != nil {
				return err
			}
			defer closeConn()

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			handle, err := enqueuer.EnqueueEmployeeCSV(ctx, path)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), handle.JobID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipValidation, "skip-check", false, "do not count rows before queueing")

	return cmd
}

func connectRabbitMQ(configPath string, logger *slog.Logger) (CSVEnqueuer, func(), error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Failed to load .env file", slog.Any("error", err))
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	rc := cfg.RabbitMQ
	client, err := rabbitmq.NewClient(&rabbitmq.Config{
		Host:               rc.Host,
		Port:               rc.Port,
		User:               rc.User,
		Password:           rc.Password,
		VHost:              rc.VHost,
		ExchangeName:       rc.Exchange.Name,
		ExchangeType:       rc.Exchange.Type,
		ExchangeDurable:    rc.Exchange.Durable,
		ExchangeAutoDelete: rc.Exchange.AutoDelete,
		QueueName:          rc.Queue.Name,
		QueueDurable:       rc.Queue.Durable,
		QueueAutoDelete:    rc.Queue.AutoDelete,
		QueueExclusive:     rc.Queue.Exclusive,
		RoutingKey:         rc.RoutingKey,
		DeadLetterExchange: rc.DeadLetter.Exchange,
		DeadLetterQueue:    rc.DeadLetter.Queue,
		RetryAttempts:      rc.Connection.RetryAttempts,
		RetryInterval:      rc.Connection.RetryInterval,
		Heartbeat:          rc.Connection.Heartbeat,
		ConnectionTimeout:  rc.Connection.ConnectionTimeout,
		PublishRetries:     rc.Publish.RetryAttempts,
		PublishRetryDelay:  rc.Publish.RetryInterval,
		PublishBackoffMult: rc.Publish.BackoffMultiplier,
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	closeConn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close RabbitMQ client", slog.Any("error", err))
		}
	}

	return queue.NewJobQueue(client, logger), closeConn, nil
}
