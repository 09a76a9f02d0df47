package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/employee-ingest/internal/model"
)

const insertEmployeeQuery = `
	INSERT INTO employees (id, name, age, position, salary, created_at, updated_at)
	VALUES (:id, :name, :age, :position, :salary, :created_at, :updated_at)
`

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// CreateEmployee inserts a single employee and returns the stored row
func (s *Storage) CreateEmployee(ctx context.Context, input model.EmployeeInput) (*model.Employee, error) {
	query := `
		INSERT INTO employees (id, name, age, position, salary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, age, position, salary, created_at, updated_at
	`

	var employee model.Employee
	err := s.db.QueryRowxContext(ctx, query,
		uuid.New().String(),
		input.Name,
		input.Age,
		input.Position,
		input.Salary,
	).StructScan(&employee)
	if err != nil {
		return nil, fmt.Errorf("failed to create employee: %w", err)
	}

	s.logger.Debug("Employee inserted",
		slog.String("employee_id", employee.ID),
	)

	return &employee, nil
}

// BulkCreateEmployees converts and inserts records with a single multi-row
// INSERT. Either every record is stored or none is. Records that fail
// conversion reject the whole batch before the database is touched.
func (s *Storage) BulkCreateEmployees(ctx context.Context, records []model.EmployeeRecord) ([]model.Employee, error) {
	if len(records) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	employees := make([]model.Employee, 0, len(records))
	for _, rec := range records {
		input, err := rec.ToInput()
		if err != nil {
			return nil, err
		}
		employees = append(employees, model.Employee{
			ID:        uuid.New().String(),
			Name:      input.Name,
			Age:       input.Age,
			Position:  input.Position,
			Salary:    input.Salary,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	result, err := s.db.NamedExecContext(ctx, insertEmployeeQuery, employees)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk insert employees: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if int(rowsAffected) != len(employees) {
		return nil, fmt.Errorf("bulk insert stored %d of %d employees", rowsAffected, len(employees))
	}

	return employees, nil
}
