package dto

import "encoding/json"

type CreateEmployeeRequest struct {
	Name     string      `json:"name" binding:"required"`
	Age      int         `json:"age" binding:"min=0,max=150"`
	Position string      `json:"position"`
	Salary   json.Number `json:"salary" binding:"required"`
}

// UpdateEmployeeRequest is a partial update; nil fields are left unchanged
type UpdateEmployeeRequest struct {
	Name     *string      `json:"name" binding:"omitempty,min=1"`
	Age      *int         `json:"age" binding:"omitempty,min=0,max=150"`
	Position *string      `json:"position"`
	Salary   *json.Number `json:"salary"`
}

type ListEmployeesRequest struct {
	Search    string `form:"search"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
	PageSize  int    `form:"page_size"`
	Cursor    string `form:"cursor"`
}

type ListEmployeesResponse struct {
	Employees  []EmployeeDTO `json:"employees"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type EmployeeDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Age       int    `json:"age"`
	Position  string `json:"position"`
	Salary    string `json:"salary"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type JobAcceptedResponse struct {
	JobID   string `json:"job_id"`
	JobType string `json:"job_type"`
	Status  string `json:"status"`
}

type UploadResponse struct {
	JobID    string `json:"job_id"`
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
}
