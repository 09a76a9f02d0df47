package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/employee-ingest/internal/metrics"
	"github.com/cuongbtq/employee-ingest/internal/model"
	"github.com/cuongbtq/employee-ingest/internal/queue"
	"github.com/cuongbtq/employee-ingest/internal/worker/domain"
)

// processJob runs a single job under the configured timeout. A job already
// running when shutdown begins is allowed to finish; Stop waits for it.
func (w *Worker) processJob(ctx context.Context, msg *domain.JobMessage) error {
	w.logger.Info("Processing job",
		slog.String("job_id", msg.JobID),
		slog.String("job_type", msg.JobType),
		slog.String("worker_id", w.workerID),
	)

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.jobTimeout)
	defer cancel()

	start := time.Now()
	err := w.executeJob(jobCtx, msg)
	if err != nil {
		return fmt.Errorf("job %s failed: %w", msg.JobID, err)
	}

	w.logger.Info("Job executed",
		slog.String("job_id", msg.JobID),
		slog.String("job_type", msg.JobType),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

// executeJob dispatches on job type
func (w *Worker) executeJob(ctx context.Context, msg *domain.JobMessage) error {
	switch msg.JobType {
	case queue.JobTypeCreateEmployee:
		var input model.EmployeeInput
		if err := json.Unmarshal(msg.Payload, &input); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
		}
		if strings.TrimSpace(input.Name) == "" {
			return fmt.Errorf("%w: name is required", domain.ErrInvalidPayload)
		}
		_, err := w.runner.CreateEmployee(ctx, msg.JobID, input)
		return err

	case queue.JobTypeBulkCreateEmployeeCSV:
		var payload queue.CSVPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
		}
		if payload.FilePath == "" {
			return fmt.Errorf("%w: file_path is required", domain.ErrInvalidPayload)
		}
		_, err := w.runner.IngestCSV(ctx, msg.JobID, payload.FilePath)
		return err

	default:
		metrics.JobsProcessed.WithLabelValues(msg.JobType, "dropped").Inc()
		w.logger.Warn("Dropping job of unknown type",
			slog.String("job_id", msg.JobID),
			slog.String("job_type", msg.JobType),
		)
		return fmt.Errorf("%w: %s", domain.ErrUnknownJobType, msg.JobType)
	}
}
