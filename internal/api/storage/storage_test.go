package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/employee-ingest/internal/api/domain"
)

const testID = "0b6f8f5e-8a47-4d1e-9a33-4a3b8c0a9d21"

var columns = []string{"id", "name", "age", "position", "salary", "created_at", "updated_at"}

func newMockStorage(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStorage(sqlx.NewDb(db, "postgres")), mock
}

func employeeRow(id, name string) *sqlmock.Rows {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	return sqlmock.NewRows(columns).AddRow(id, name, 30, "Engineer", "1000.00", now, now)
}

func TestStorage_GetEmployeeByID(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery("SELECT (.+) FROM employees WHERE id = \\$1").
		WithArgs(testID).
		WillReturnRows(employeeRow(testID, "Alice"))

	employee, err := s.GetEmployeeByID(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", employee.Name)
	assert.Equal(t, "1000.00", employee.Salary)

	mock.ExpectQuery("SELECT (.+) FROM employees").WithArgs(testID).WillReturnError(sql.ErrNoRows)
	_, err = s.GetEmployeeByID(context.Background(), testID)
	assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_ListEmployees(t *testing.T) {
	tests := []struct {
		name   string
		filter EmployeeFilter
		query  string
		args   []interface{}
	}{
		{
			name:   "default ordering",
			filter: EmployeeFilter{PageSize: 10, Desc: true},
			query:  "SELECT id, name, age, position, salary, created_at, updated_at FROM employees WHERE 1=1 ORDER BY created_at DESC, id DESC LIMIT $1",
			args:   []interface{}{11},
		},
		{
			name:   "search with ascending sort",
			filter: EmployeeFilter{Search: " ali ", SortBy: "name", PageSize: 5},
			query:  "SELECT id, name, age, position, salary, created_at, updated_at FROM employees WHERE 1=1 AND (name ILIKE $1 OR position ILIKE $1) ORDER BY name ASC, id ASC LIMIT $2",
			args:   []interface{}{"%ali%", 6},
		},
		{
			name: "cursor after last row",
			filter: EmployeeFilter{
				SortBy: "age", Desc: true, PageSize: 2,
				Cursor: &EmployeeCursor{SortBy: "age", Value: "30", ID: testID},
			},
			query: "SELECT id, name, age, position, salary, created_at, updated_at FROM employees WHERE 1=1 AND (age, id) < ($1, $2) ORDER BY age DESC, id DESC LIMIT $3",
			args:  []interface{}{"30", testID, 3},
		},
		{
			name:   "unknown sort field falls back",
			filter: EmployeeFilter{SortBy: "salary; DROP TABLE employees", PageSize: 1},
			query:  "SELECT id, name, age, position, salary, created_at, updated_at FROM employees WHERE 1=1 ORDER BY created_at ASC, id ASC LIMIT $1",
			args:   []interface{}{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)

			args := make([]driver.Value, len(tt.args))
			for i, a := range tt.args {
				args[i] = a
			}
			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).
				WithArgs(args...).
				WillReturnRows(employeeRow(testID, "Alice"))

			employees, err := s.ListEmployees(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Len(t, employees, 1)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_ListEmployees_CursorForOtherSort(t *testing.T) {
	s, _ := newMockStorage(t)

	_, err := s.ListEmployees(context.Background(), EmployeeFilter{
		SortBy:   "name",
		PageSize: 10,
		Cursor:   &EmployeeCursor{SortBy: "age", Value: "30", ID: testID},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCursor)
}

func TestStorage_UpdateEmployee(t *testing.T) {
	s, mock := newMockStorage(t)

	name := "Alice Smith"
	salary := "2000.00"

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE employees SET name = $1, salary = $2, updated_at = NOW() WHERE id = $3 RETURNING")).
		WithArgs(name, salary, testID).
		WillReturnRows(employeeRow(testID, name))

	employee, err := s.UpdateEmployee(context.Background(), testID, EmployeeUpdate{Name: &name, Salary: &salary})
	require.NoError(t, err)
	assert.Equal(t, name, employee.Name)

	mock.ExpectQuery("UPDATE employees").WillReturnError(sql.ErrNoRows)
	_, err = s.UpdateEmployee(context.Background(), testID, EmployeeUpdate{Name: &name})
	assert.ErrorIs(t, err, domain.ErrEmployeeNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_UpdateEmployee_NoChanges(t *testing.T) {
	s, mock := newMockStorage(t)

	mock.ExpectQuery("SELECT (.+) FROM employees WHERE id").
		WithArgs(testID).
		WillReturnRows(employeeRow(testID, "Alice"))

	employee, err := s.UpdateEmployee(context.Background(), testID, EmployeeUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "Alice", employee.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_DeleteEmployee(t *testing.T) {
	tests := []struct {
		name    string
		result  driver.Result
		err     error
		wantErr error
	}{
		{name: "deleted", result: sqlmock.NewResult(0, 1)},
		{name: "not found", result: sqlmock.NewResult(0, 0), wantErr: domain.ErrEmployeeNotFound},
		{name: "database error", err: errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockStorage(t)

			exp := mock.ExpectExec(regexp.QuoteMeta("DELETE FROM employees WHERE id = $1")).WithArgs(testID)
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnResult(tt.result)
			}

			err := s.DeleteEmployee(context.Background(), testID)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.err != nil:
				assert.ErrorContains(t, err, "failed to delete employee")
			default:
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
