// Package events defines the progress events exchanged between the ingestion
// worker and the API service over the pub/sub channel.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/cuongbtq/employee-ingest/internal/model"
)

// DefaultChannel is the pub/sub channel carrying employee events
const DefaultChannel = "employee-events"

// Envelope event names
const (
	NameCreateEmployee       = "create-employee"
	NameBulkEmployeeProgress = "bulk-create-employee-progress"
)

// Progress statuses carried in bulk events
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Event is one of Created, Progress, Completed or Failed
type Event interface {
	Name() string
	JobID() string
	payload() any
}

// Created reports a single-record create job
type Created struct {
	ID       string
	Employee *model.Employee
}

// Progress reports a committed full batch
type Progress struct {
	ID        string
	Status    string
	Percent   int
	Processed int
	Total     int
	Message   string
}

// Completed reports a bulk job that committed every record
type Completed struct {
	ID          string
	RecordCount int
	Total       int
}

// Failed reports a bulk job that stopped on an error
type Failed struct {
	ID        string
	Reason    string
	Percent   int
	Processed int
	Total     int
}

type createdData struct {
	JobID    string          `json:"jobId"`
	Employee *model.Employee `json:"employee"`
}

type progressData struct {
	JobID       string `json:"jobId"`
	Status      string `json:"status"`
	Percent     int    `json:"percent"`
	Processed   int    `json:"processed"`
	Total       int    `json:"total"`
	RecordCount *int   `json:"recordCount,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Message     string `json:"message,omitempty"`
}

func (e Created) Name() string  { return NameCreateEmployee }
func (e Created) JobID() string { return e.ID }
func (e Created) payload() any  { return createdData{JobID: e.ID, Employee: e.Employee} }

func (e Progress) Name() string  { return NameBulkEmployeeProgress }
func (e Progress) JobID() string { return e.ID }
func (e Progress) payload() any {
	return progressData{
		JobID:     e.ID,
		Status:    e.Status,
		Percent:   e.Percent,
		Processed: e.Processed,
		Total:     e.Total,
		Message:   e.Message,
	}
}

func (e Completed) Name() string  { return NameBulkEmployeeProgress }
func (e Completed) JobID() string { return e.ID }
func (e Completed) payload() any {
	count := e.RecordCount
	return progressData{
		JobID:       e.ID,
		Status:      StatusCompleted,
		Percent:     100,
		Processed:   e.RecordCount,
		Total:       e.Total,
		RecordCount: &count,
		Message:     fmt.Sprintf("Imported %d employees", e.RecordCount),
	}
}

func (e Failed) Name() string  { return NameBulkEmployeeProgress }
func (e Failed) JobID() string { return e.ID }
func (e Failed) payload() any {
	return progressData{
		JobID:     e.ID,
		Status:    StatusFailed,
		Percent:   e.Percent,
		Processed: e.Processed,
		Total:     e.Total,
		Reason:    e.Reason,
		Message:   "Import failed",
	}
}

// Envelope is the JSON frame on the pub/sub channel. Data is kept raw so the
// bridge relays fields it does not know about.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Encode serializes an event into its envelope
func Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev.payload())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s data: %w", ev.Name(), err)
	}

	body, err := json.Marshal(Envelope{Event: ev.Name(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return body, nil
}

// Decode parses an envelope without interpreting its data
func Decode(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("envelope has no event name")
	}
	if len(env.Data) == 0 {
		env.Data = json.RawMessage("null")
	}
	return &env, nil
}
