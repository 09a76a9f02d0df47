package domain

import (
	"errors"
)

// Sortable employee columns
const (
	SortByName      = "name"
	SortByPosition  = "position"
	SortByAge       = "age"
	SortBySalary    = "salary"
	SortByCreatedAt = "created_at"
)

// SortFields is the whitelist of columns accepted for ordering
var SortFields = []string{SortByName, SortByPosition, SortByAge, SortBySalary, SortByCreatedAt}

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrInvalidCursor    = errors.New("invalid cursor")
)
