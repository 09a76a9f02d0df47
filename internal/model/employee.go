package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidRecord is returned when a record's fields cannot be converted to an employee
var ErrInvalidRecord = errors.New("invalid employee record")

// Employee is a persisted employee row
type Employee struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Age       int       `db:"age" json:"age"`
	Position  string    `db:"position" json:"position"`
	Salary    string    `db:"salary" json:"salary"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EmployeeInput is a validated employee that has not been persisted yet
type EmployeeInput struct {
	Name     string `json:"name"`
	Age      int    `json:"age"`
	Position string `json:"position"`
	Salary   string `json:"salary"`
}

// EmployeeRecord is one decoded CSV row; fields are untyped until ToInput
type EmployeeRecord struct {
	Line     int
	Name     string
	Age      string
	Position string
	Salary   string
}

// ToInput converts the raw fields, reporting the source line on failure
func (r EmployeeRecord) ToInput() (EmployeeInput, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return EmployeeInput{}, fmt.Errorf("%w: line %d: name is required", ErrInvalidRecord, r.Line)
	}

	age, err := strconv.Atoi(strings.TrimSpace(r.Age))
	if err != nil || age < 0 {
		return EmployeeInput{}, fmt.Errorf("%w: line %d: invalid age %q", ErrInvalidRecord, r.Line, r.Age)
	}

	salary, err := NormalizeSalary(r.Salary)
	if err != nil {
		return EmployeeInput{}, fmt.Errorf("%w: line %d: %v", ErrInvalidRecord, r.Line, err)
	}

	return EmployeeInput{
		Name:     name,
		Age:      age,
		Position: strings.TrimSpace(r.Position),
		Salary:   salary,
	}, nil
}

// maxSalary is the first value that no longer fits NUMERIC(15,2)
const maxSalary = 1e13

// NormalizeSalary formats a salary for a NUMERIC(15,2) column
func NormalizeSalary(raw string) (string, error) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return "", fmt.Errorf("invalid salary %q", raw)
	}
	if math.Round(value*100)/100 >= maxSalary {
		return "", fmt.Errorf("salary %q exceeds %.0f", raw, maxSalary)
	}
	return strconv.FormatFloat(value, 'f', 2, 64), nil
}
