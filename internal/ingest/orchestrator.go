// Package ingest streams an uploaded employee CSV into the store in fixed-size
// batches and reports progress as it goes.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/cuongbtq/employee-ingest/internal/events"
	"github.com/cuongbtq/employee-ingest/internal/metrics"
	"github.com/cuongbtq/employee-ingest/internal/model"
)

// EmployeeStore is the persistence sink used by the orchestrator
type EmployeeStore interface {
	CreateEmployee(ctx context.Context, input model.EmployeeInput) (*model.Employee, error)
	// BulkCreateEmployees persists the whole batch in one operation or none of it
	BulkCreateEmployees(ctx context.Context, records []model.EmployeeRecord) ([]model.Employee, error)
}

// Orchestrator runs ingestion jobs. It holds no per-job state, so one
// instance may serve any number of sequential or concurrent jobs.
type Orchestrator struct {
	store      EmployeeStore
	publisher  events.Publisher
	batchSize  int
	logger     *slog.Logger
	removeFile func(string) error
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithBatchSize sets the number of records committed per batch
func WithBatchSize(size int) Option {
	return func(o *Orchestrator) {
		if size > 0 {
			o.batchSize = size
		}
	}
}

// WithFileRemover replaces os.Remove for source file cleanup
func WithFileRemover(remove func(string) error) Option {
	return func(o *Orchestrator) {
		o.removeFile = remove
	}
}

func NewOrchestrator(store EmployeeStore, publisher events.Publisher, logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:      store,
		publisher:  publisher,
		batchSize:  DefaultBatchSize,
		logger:     logger,
		removeFile: os.Remove,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateEmployee persists a single record and publishes a Created event
func (o *Orchestrator) CreateEmployee(ctx context.Context, jobID string, input model.EmployeeInput) (*model.Employee, error) {
	employee, err := o.store.CreateEmployee(ctx, input)
	if err != nil {
		metrics.JobsProcessed.WithLabelValues(events.NameCreateEmployee, JobStatusFailed).Inc()
		return nil, &PersistenceError{Batch: 1, Err: err}
	}

	o.publish(ctx, events.Created{ID: jobID, Employee: employee})
	metrics.JobsProcessed.WithLabelValues(events.NameCreateEmployee, JobStatusCompleted).Inc()

	o.logger.Info("Employee created",
		slog.String("job_id", jobID),
		slog.String("employee_id", employee.ID),
	)
	return employee, nil
}

// IngestCSV runs one bulk job to completion. The source file is removed
// whether the job succeeds or fails, before the terminal event is published.
// The returned job reflects the final state; err is non-nil only when the job
// failed.
func (o *Orchestrator) IngestCSV(ctx context.Context, jobID, path string) (*IngestionJob, error) {
	job := &IngestionJob{
		ID:         jobID,
		SourcePath: path,
		Status:     JobStatusQueued,
		Stage:      StageQueued,
	}

	start := time.Now()
	o.logger.Info("Starting CSV ingestion",
		slog.String("job_id", jobID),
		slog.String("file_path", path),
		slog.Int("batch_size", o.batchSize),
	)

	if err := o.run(ctx, job); err != nil {
		o.cleanup(job)
		o.fail(ctx, job, err)
		return job, err
	}
	o.cleanup(job)

	job.Status = JobStatusCompleted
	job.Stage = StageCompleted
	o.publish(ctx, events.Completed{ID: job.ID, RecordCount: job.Processed, Total: job.Total})
	metrics.JobsProcessed.WithLabelValues(events.NameBulkEmployeeProgress, JobStatusCompleted).Inc()

	o.logger.Info("CSV ingestion completed",
		slog.String("job_id", jobID),
		slog.Int("records", job.Processed),
		slog.Int("batches", job.Batches),
		slog.Duration("duration", time.Since(start)),
	)
	return job, nil
}

func (o *Orchestrator) run(ctx context.Context, job *IngestionJob) error {
	job.Status = JobStatusProcessing
	job.Stage = StageCounting

	total, err := CountRows(job.SourcePath)
	if err != nil {
		return err
	}
	job.Total = total

	job.Stage = StageStreaming
	f, err := os.Open(job.SourcePath)
	if err != nil {
		return &IOError{Op: "open", Path: job.SourcePath, Err: err}
	}
	defer f.Close()

	acc := NewAccumulator(o.batchSize, func(ctx context.Context, batch []model.EmployeeRecord, final bool) error {
		return o.commit(ctx, job, batch, final)
	})

	parser := NewParser(f)
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("ingestion interrupted: %w", err)
		}

		rec, err := parser.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var ioErr *IOError
			if errors.As(err, &ioErr) && ioErr.Path == "" {
				ioErr.Path = job.SourcePath
			}
			return err
		}

		if err := acc.Push(ctx, rec); err != nil {
			return err
		}
	}

	job.Stage = StageFlushing
	return acc.Flush(ctx)
}

// commit persists one batch and, for full batches, publishes progress
func (o *Orchestrator) commit(ctx context.Context, job *IngestionJob, batch []model.EmployeeRecord, final bool) error {
	number := job.Batches + 1
	start := time.Now()

	created, err := o.store.BulkCreateEmployees(ctx, batch)
	if err != nil {
		return &PersistenceError{Batch: number, Err: err}
	}

	metrics.BatchCommitSeconds.Observe(time.Since(start).Seconds())
	metrics.BatchesCommitted.Inc()
	metrics.RowsCommitted.Add(float64(len(created)))

	job.Batches = number
	job.Processed += len(created)

	o.logger.Debug("Batch committed",
		slog.String("job_id", job.ID),
		slog.Int("batch", number),
		slog.Int("size", len(created)),
		slog.Int("processed", job.Processed),
		slog.Int("total", job.Total),
	)

	if final {
		return nil
	}

	percent := job.Percent()
	status := events.StatusProcessing
	if percent == 100 {
		status = events.StatusCompleted
	}
	o.publish(ctx, events.Progress{
		ID:        job.ID,
		Status:    status,
		Percent:   percent,
		Processed: job.Processed,
		Total:     job.Total,
		Message:   fmt.Sprintf("Processed %d of %d records", job.Processed, job.Total),
	})
	return nil
}

func (o *Orchestrator) fail(ctx context.Context, job *IngestionJob, err error) {
	stage := job.Stage
	job.Status = JobStatusFailed
	job.Stage = StageFailed
	job.LastError = err

	percent := 0
	if job.Total > 0 {
		percent = job.Percent()
	}

	// the job context may already be cancelled; the failure still has to go out
	o.publish(context.WithoutCancel(ctx), events.Failed{
		ID:        job.ID,
		Reason:    err.Error(),
		Percent:   percent,
		Processed: job.Processed,
		Total:     job.Total,
	})
	metrics.JobsProcessed.WithLabelValues(events.NameBulkEmployeeProgress, JobStatusFailed).Inc()

	o.logger.Error("CSV ingestion failed",
		slog.String("job_id", job.ID),
		slog.String("stage", string(stage)),
		slog.Int("processed", job.Processed),
		slog.Int("total", job.Total),
		slog.String("error", err.Error()),
	)
}

// publish never fails the job
func (o *Orchestrator) publish(ctx context.Context, ev events.Event) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(ctx, ev); err != nil {
		o.logger.Warn("Failed to publish event",
			slog.String("job_id", ev.JobID()),
			slog.String("error", (&PublishError{Event: ev.Name(), Err: err}).Error()),
		)
	}
}

func (o *Orchestrator) cleanup(job *IngestionJob) {
	if err := o.removeFile(job.SourcePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		o.logger.Warn("Failed to remove source file",
			slog.String("job_id", job.ID),
			slog.String("error", (&IOError{Op: "remove", Path: job.SourcePath, Err: err}).Error()),
		)
	}
}
