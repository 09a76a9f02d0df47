package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/employee-ingest/internal/api/domain"
	"github.com/cuongbtq/employee-ingest/internal/model"
)

const employeeColumns = "id, name, age, position, salary, created_at, updated_at"

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		db: db,
	}
}

func (s *Storage) GetEmployeeByID(ctx context.Context, id string) (*model.Employee, error) {
	var employee model.Employee
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`

	err := s.db.GetContext(ctx, &employee, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}

	return &employee, nil
}

type EmployeeFilter struct {
	Search   string
	SortBy   string
	Desc     bool
	PageSize int
	Cursor   *EmployeeCursor
}

// EmployeeCursor is the keyset position after the last row of a page. Value is
// the sort column of that row in its text form.
type EmployeeCursor struct {
	SortBy string
	Value  string
	ID     string
}

func (s *Storage) ListEmployees(ctx context.Context, filter EmployeeFilter) ([]model.Employee, error) {
	sortBy := filter.SortBy
	if !isSortField(sortBy) {
		sortBy = domain.SortByCreatedAt
	}

	query := `SELECT ` + employeeColumns + ` FROM employees WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if search := strings.TrimSpace(filter.Search); search != "" {
		query += fmt.Sprintf(" AND (name ILIKE $%d OR position ILIKE $%d)", argIdx, argIdx)
		args = append(args, "%"+search+"%")
		argIdx++
	}

	op, order := ">", "ASC"
	if filter.Desc {
		op, order = "<", "DESC"
	}

	if filter.Cursor != nil {
		if filter.Cursor.SortBy != sortBy {
			return nil, domain.ErrInvalidCursor
		}
		query += fmt.Sprintf(" AND (%s, id) %s ($%d, $%d)", sortBy, op, argIdx, argIdx+1)
		args = append(args, filter.Cursor.Value, filter.Cursor.ID)
		argIdx += 2
	}

	// id breaks ties so pages never overlap
	query += fmt.Sprintf(" ORDER BY %s %s, id %s", sortBy, order, order)

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var employees []model.Employee
	if err := s.db.SelectContext(ctx, &employees, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	return employees, nil
}

// EmployeeUpdate holds the columns to change; nil fields are left as they are
type EmployeeUpdate struct {
	Name     *string
	Age      *int
	Position *string
	Salary   *string
}

func (s *Storage) UpdateEmployee(ctx context.Context, id string, update EmployeeUpdate) (*model.Employee, error) {
	sets := []string{}
	args := []interface{}{}

	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Age != nil {
		add("age", *update.Age)
	}
	if update.Position != nil {
		add("position", *update.Position)
	}
	if update.Salary != nil {
		add("salary", *update.Salary)
	}

	if len(sets) == 0 {
		return s.GetEmployeeByID(ctx, id)
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE employees SET %s, updated_at = NOW() WHERE id = $%d RETURNING `+employeeColumns,
		strings.Join(sets, ", "), len(args),
	)

	var employee model.Employee
	if err := s.db.GetContext(ctx, &employee, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to update employee: %w", err)
	}

	return &employee, nil
}

func (s *Storage) DeleteEmployee(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrEmployeeNotFound
	}

	return nil
}

func isSortField(field string) bool {
	for _, f := range domain.SortFields {
		if f == field {
			return true
		}
	}
	return false
}
