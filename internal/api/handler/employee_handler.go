package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/employee-ingest/internal/api/domain"
	"github.com/cuongbtq/employee-ingest/internal/api/dto"
	"github.com/cuongbtq/employee-ingest/internal/api/storage"
	"github.com/cuongbtq/employee-ingest/internal/model"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CreateEmployee handles POST /api/v1/employees
// The employee is created asynchronously by the worker
func (h *EmployeeHandler) CreateEmployee(c *gin.Context) {
	var req dto.CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	salary, err := model.NormalizeSalary(req.Salary.String())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	input := model.EmployeeInput{
		Name:     strings.TrimSpace(req.Name),
		Age:      req.Age,
		Position: strings.TrimSpace(req.Position),
		Salary:   salary,
	}

	handle, err := h.jobs.EnqueueCreateEmployee(c.Request.Context(), input)
	if err != nil {
		h.logger.Error("Failed to enqueue create employee job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue job",
		})
		return
	}

	c.JSON(http.StatusAccepted, dto.JobAcceptedResponse{
		JobID:   handle.JobID,
		JobType: handle.JobType,
		Status:  "queued",
	})
}

// GetEmployee handles GET /api/v1/employees/:id
func (h *EmployeeHandler) GetEmployee(c *gin.Context) {
	id, ok := h.employeeID(c)
	if !ok {
		return
	}

	employee, err := h.employees.GetEmployeeByID(c.Request.Context(), id)
	if err != nil {
		h.storageError(c, "Failed to get employee", err)
		return
	}

	c.JSON(http.StatusOK, toEmployeeDTO(*employee))
}

// ListEmployees handles GET /api/v1/employees
// Supports search, sorting and keyset pagination
func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	var req dto.ListEmployeesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	if req.SortBy == "" {
		req.SortBy = domain.SortByCreatedAt
	}
	if !isValidSortField(req.SortBy) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "sort_by must be one of " + strings.Join(domain.SortFields, ", "),
		})
		return
	}

	desc := true
	switch strings.ToUpper(req.SortOrder) {
	case "", "DESC":
	case "ASC":
		desc = false
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "sort_order must be ASC or DESC",
		})
		return
	}

	cursor, err := DecodeEmployeeCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	employees, err := h.employees.ListEmployees(c.Request.Context(), storage.EmployeeFilter{
		Search:   req.Search,
		SortBy:   req.SortBy,
		Desc:     desc,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCursor) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid cursor",
			})
			return
		}
		h.logger.Error("Failed to list employees", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list employees",
		})
		return
	}

	hasMore := len(employees) > req.PageSize
	if hasMore {
		employees = employees[:req.PageSize]
	}

	resp := dto.ListEmployeesResponse{
		Employees: make([]dto.EmployeeDTO, len(employees)),
	}
	for i, e := range employees {
		resp.Employees[i] = toEmployeeDTO(e)
	}
	if hasMore {
		resp.NextCursor = EncodeEmployeeCursor(cursorAfter(req.SortBy, employees[len(employees)-1]))
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateEmployee handles PUT /api/v1/employees/:id
func (h *EmployeeHandler) UpdateEmployee(c *gin.Context) {
	id, ok := h.employeeID(c)
	if !ok {
		return
	}

	var req dto.UpdateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	update := storage.EmployeeUpdate{
		Name:     req.Name,
		Age:      req.Age,
		Position: req.Position,
	}
	if req.Salary != nil {
		salary, err := model.NormalizeSalary(req.Salary.String())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}
		update.Salary = &salary
	}

	employee, err := h.employees.UpdateEmployee(c.Request.Context(), id, update)
	if err != nil {
		h.storageError(c, "Failed to update employee", err)
		return
	}

	c.JSON(http.StatusOK, toEmployeeDTO(*employee))
}

// DeleteEmployee handles DELETE /api/v1/employees/:id
func (h *EmployeeHandler) DeleteEmployee(c *gin.Context) {
	id, ok := h.employeeID(c)
	if !ok {
		return
	}

	if err := h.employees.DeleteEmployee(c.Request.Context(), id); err != nil {
		h.storageError(c, "Failed to delete employee", err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *EmployeeHandler) employeeID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		h.logger.Error("Invalid employee id format", slog.String("id", id), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "id must be a valid UUID",
		})
		return "", false
	}
	return id, true
}

func (h *EmployeeHandler) storageError(c *gin.Context, msg string, err error) {
	if errors.Is(err, domain.ErrEmployeeNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Employee not found",
		})
		return
	}
	h.logger.Error(msg, slog.String("error", err.Error()))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": msg,
	})
}

func toEmployeeDTO(e model.Employee) dto.EmployeeDTO {
	return dto.EmployeeDTO{
		ID:        e.ID,
		Name:      e.Name,
		Age:       e.Age,
		Position:  e.Position,
		Salary:    e.Salary,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
		UpdatedAt: e.UpdatedAt.Format(time.RFC3339),
	}
}

func isValidSortField(field string) bool {
	for _, f := range domain.SortFields {
		if f == field {
			return true
		}
	}
	return false
}
