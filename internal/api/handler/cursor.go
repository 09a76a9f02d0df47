package handler

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/employee-ingest/internal/api/domain"
	"github.com/cuongbtq/employee-ingest/internal/api/storage"
	"github.com/cuongbtq/employee-ingest/internal/model"
)

// DecodeEmployeeCursor parses "sort_by|value|id". The value may itself contain '|'.
func DecodeEmployeeCursor(cursorStr string) (*storage.EmployeeCursor, error) {
	if cursorStr == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(cursorStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCursor, err)
	}

	sortBy, rest, ok := strings.Cut(string(decoded), "|")
	idx := strings.LastIndex(rest, "|")
	if !ok || idx < 0 || sortBy == "" {
		return nil, fmt.Errorf("%w: invalid cursor format", domain.ErrInvalidCursor)
	}

	return &storage.EmployeeCursor{
		SortBy: sortBy,
		Value:  rest[:idx],
		ID:     rest[idx+1:],
	}, nil
}

func EncodeEmployeeCursor(cursor *storage.EmployeeCursor) string {
	cs := fmt.Sprintf("%s|%s|%s", cursor.SortBy, cursor.Value, cursor.ID)
	return base64.URLEncoding.EncodeToString([]byte(cs))
}

// cursorAfter builds the cursor positioned after employee for the given sort column
func cursorAfter(sortBy string, employee model.Employee) *storage.EmployeeCursor {
	var value string
	switch sortBy {
	case domain.SortByName:
		value = employee.Name
	case domain.SortByPosition:
		value = employee.Position
	case domain.SortByAge:
		value = strconv.Itoa(employee.Age)
	case domain.SortBySalary:
		value = employee.Salary
	default:
		sortBy = domain.SortByCreatedAt
		value = employee.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	return &storage.EmployeeCursor{
		SortBy: sortBy,
		Value:  value,
		ID:     employee.ID,
	}
}
