package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/employee-ingest/internal/api/storage"
	"github.com/cuongbtq/employee-ingest/internal/model"
	"github.com/cuongbtq/employee-ingest/internal/notification"
	"github.com/cuongbtq/employee-ingest/internal/queue"
)

// EmployeeStore reads and mutates persisted employees
type EmployeeStore interface {
	GetEmployeeByID(ctx context.Context, id string) (*model.Employee, error)
	ListEmployees(ctx context.Context, filter storage.EmployeeFilter) ([]model.Employee, error)
	UpdateEmployee(ctx context.Context, id string, update storage.EmployeeUpdate) (*model.Employee, error)
	DeleteEmployee(ctx context.Context, id string) error
}

// JobEnqueuer hands work to the worker service
type JobEnqueuer interface {
	EnqueueCreateEmployee(ctx context.Context, input model.EmployeeInput) (*queue.JobHandle, error)
	EnqueueEmployeeCSV(ctx context.Context, filePath string) (*queue.JobHandle, error)
}

// HealthChecker reports whether a backing service is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger            *slog.Logger
	ServiceName       string
	Employees         EmployeeStore
	Jobs              JobEnqueuer
	Registry          *notification.Registry
	DB                HealthChecker
	UploadDir         string
	MaxUploadSize     int64
	HeartbeatInterval time.Duration
}

// EmployeeHandler handles employee-related HTTP requests
type EmployeeHandler struct {
	logger        *slog.Logger
	employees     EmployeeStore
	jobs          JobEnqueuer
	uploadDir     string
	maxUploadSize int64
}

// NewEmployeeHandler creates a new EmployeeHandler instance
func NewEmployeeHandler(deps *Dependencies) *EmployeeHandler {
	return &EmployeeHandler{
		logger:        deps.Logger,
		employees:     deps.Employees,
		jobs:          deps.Jobs,
		uploadDir:     deps.UploadDir,
		maxUploadSize: deps.MaxUploadSize,
	}
}

// NotificationHandler serves the server-push progress streams
type NotificationHandler struct {
	logger    *slog.Logger
	registry  *notification.Registry
	heartbeat time.Duration
}

func NewNotificationHandler(deps *Dependencies) *NotificationHandler {
	return &NotificationHandler{
		logger:    deps.Logger,
		registry:  deps.Registry,
		heartbeat: deps.HeartbeatInterval,
	}
}
