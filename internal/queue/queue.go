// Package queue defines the job messages exchanged between the API service and
// the worker over RabbitMQ.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/employee-ingest/internal/model"
	"github.com/cuongbtq/employee-ingest/shared/rabbitmq"
)

// Job types
const (
	JobTypeCreateEmployee        = "create-employee"
	JobTypeBulkCreateEmployeeCSV = "bulk-create-employee-csv"
)

const contentTypeJSON = "application/json"

// Message is the JSON body of a queued job
type Message struct {
	JobID      string          `json:"job_id"`
	JobType    string          `json:"job_type"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// CSVPayload is the payload of a bulk-create-employee-csv job
type CSVPayload struct {
	FilePath string `json:"file_path"`
}

// JobHandle identifies an enqueued job
type JobHandle struct {
	JobID      string
	JobType    string
	EnqueuedAt time.Time
}

// Publisher is the broker side of the queue
type Publisher interface {
	Publish(ctx context.Context, msg rabbitmq.Message) error
}

// JobQueue enqueues employee jobs
type JobQueue struct {
	publisher Publisher
	logger    *slog.Logger
}

func NewJobQueue(publisher Publisher, logger *slog.Logger) *JobQueue {
	return &JobQueue{
		publisher: publisher,
		logger:    logger,
	}
}

// EnqueueCreateEmployee queues a single-record create
func (q *JobQueue) EnqueueCreateEmployee(ctx context.Context, input model.EmployeeInput) (*JobHandle, error) {
	return q.enqueue(ctx, JobTypeCreateEmployee, input)
}

// EnqueueEmployeeCSV queues a bulk ingestion of the CSV at filePath. The
// worker removes the file when the job ends.
func (q *JobQueue) EnqueueEmployeeCSV(ctx context.Context, filePath string) (*JobHandle, error) {
	if strings.TrimSpace(filePath) == "" {
		return nil, fmt.Errorf("file path is required")
	}
	return q.enqueue(ctx, JobTypeBulkCreateEmployeeCSV, CSVPayload{FilePath: filePath})
}

func (q *JobQueue) enqueue(ctx context.Context, jobType string, payload any) (*JobHandle, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	msg := Message{
		JobID:      uuid.New().String(),
		JobType:    jobType,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := q.publisher.Publish(ctx, rabbitmq.Message{
		ID:          msg.JobID,
		Type:        jobType,
		ContentType: contentTypeJSON,
		Body:        body,
	}); err != nil {
		return nil, fmt.Errorf("failed to enqueue %s job: %w", jobType, err)
	}

	q.logger.Info("Job enqueued",
		slog.String("job_id", msg.JobID),
		slog.String("job_type", jobType),
	)

	return &JobHandle{
		JobID:      msg.JobID,
		JobType:    jobType,
		EnqueuedAt: msg.EnqueuedAt,
	}, nil
}

// Decode parses a queued message body and checks that it names a job
func Decode(body []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message JSON: %w", err)
	}
	if _, err := uuid.Parse(msg.JobID); err != nil {
		return nil, fmt.Errorf("invalid job_id %q: %w", msg.JobID, err)
	}
	if msg.JobType == "" {
		return nil, fmt.Errorf("job_type is required")
	}
	return &msg, nil
}
