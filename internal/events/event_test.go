package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/employee-ingest/internal/model"
)

func TestEncode(t *testing.T) {
	createdAt := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name      string
		event     Event
		wantEvent string
		wantData  string
	}{
		{
			name: "created",
			event: Created{ID: "job-1", Employee: &model.Employee{
				ID: "emp-1", Name: "John", Age: 30, Position: "Dev", Salary: "10.00",
				CreatedAt: createdAt, UpdatedAt: createdAt,
			}},
			wantEvent: NameCreateEmployee,
			wantData: `{"jobId":"job-1","employee":{"id":"emp-1","name":"John","age":30,"position":"Dev","salary":"10.00",
				"created_at":"2025-01-02T03:04:05Z","updated_at":"2025-01-02T03:04:05Z"}}`,
		},
		{
			name:      "progress",
			event:     Progress{ID: "job-2", Status: StatusProcessing, Percent: 40, Processed: 1000, Total: 2500, Message: "Processed 1000 of 2500 records"},
			wantEvent: NameBulkEmployeeProgress,
			wantData:  `{"jobId":"job-2","status":"processing","percent":40,"processed":1000,"total":2500,"message":"Processed 1000 of 2500 records"}`,
		},
		{
			name:      "completed",
			event:     Completed{ID: "job-3", RecordCount: 2500, Total: 2500},
			wantEvent: NameBulkEmployeeProgress,
			wantData:  `{"jobId":"job-3","status":"completed","percent":100,"processed":2500,"total":2500,"recordCount":2500,"message":"Imported 2500 employees"}`,
		},
		{
			name:      "failed",
			event:     Failed{ID: "job-4", Reason: "boom", Percent: 40, Processed: 1000, Total: 2500},
			wantEvent: NameBulkEmployeeProgress,
			wantData:  `{"jobId":"job-4","status":"failed","percent":40,"processed":1000,"total":2500,"reason":"boom","message":"Import failed"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := Encode(tt.event)
			require.NoError(t, err)

			env, err := Decode(body)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEvent, env.Event)
			assert.JSONEq(t, tt.wantData, string(env.Data))
		})
	}
}

func TestDecode(t *testing.T) {
	t.Run("tolerates unknown fields", func(t *testing.T) {
		env, err := Decode([]byte(`{"event":"x","data":{"a":1},"version":7}`))
		require.NoError(t, err)
		assert.Equal(t, "x", env.Event)
		assert.JSONEq(t, `{"a":1}`, string(env.Data))
	})

	t.Run("missing data becomes null", func(t *testing.T) {
		env, err := Decode([]byte(`{"event":"x"}`))
		require.NoError(t, err)
		assert.Equal(t, json.RawMessage("null"), env.Data)
	})

	t.Run("missing event name", func(t *testing.T) {
		_, err := Decode([]byte(`{"data":{}}`))
		require.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := Decode([]byte(`{`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to unmarshal envelope")
	})
}
