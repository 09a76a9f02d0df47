package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/employee-ingest/internal/events"
	"github.com/cuongbtq/employee-ingest/internal/model"
)

type fakeStore struct {
	mu        sync.Mutex
	batches   [][]model.EmployeeRecord
	failBatch int
	created   []model.EmployeeInput
	createErr error
}

func (s *fakeStore) CreateEmployee(_ context.Context, input model.EmployeeInput) (*model.Employee, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = append(s.created, input)
	return &model.Employee{
		ID:       fmt.Sprintf("emp-%d", len(s.created)),
		Name:     input.Name,
		Age:      input.Age,
		Position: input.Position,
		Salary:   input.Salary,
	}, nil
}

func (s *fakeStore) BulkCreateEmployees(_ context.Context, records []model.EmployeeRecord) ([]model.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failBatch == len(s.batches)+1 {
		return nil, errors.New("unique violation")
	}
	s.batches = append(s.batches, records)

	out := make([]model.Employee, len(records))
	for i, r := range records {
		out[i] = model.Employee{ID: fmt.Sprintf("emp-%d", r.Line), Name: r.Name}
	}
	return out, nil
}

func (s *fakeStore) committed() int {
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

type fakePublisher struct {
	events    []events.Event
	ctxErr    []error
	err       error
	onPublish func(events.Event)
}

func (p *fakePublisher) Publish(ctx context.Context, ev events.Event) error {
	if p.onPublish != nil {
		p.onPublish(ev)
	}
	p.events = append(p.events, ev)
	p.ctxErr = append(p.ctxErr, ctx.Err())
	return p.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func csvWithRows(t *testing.T, rows int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("name,age,position,salary\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&b, "Employee %d,%d,Engineer,%d.50\n", i, 20+i%40, 1000+i)
	}
	return writeFile(t, b.String())
}

func TestOrchestrator_IngestCSV_ProgressPerBatch(t *testing.T) {
	path := csvWithRows(t, 2500)
	store := &fakeStore{}
	pub := &fakePublisher{}
	o := NewOrchestrator(store, pub, discardLogger(), WithBatchSize(1000))

	job, err := o.IngestCSV(context.Background(), "job-1", path)
	require.NoError(t, err)

	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, StageCompleted, job.Stage)
	assert.Equal(t, 2500, job.Total)
	assert.Equal(t, 2500, job.Processed)
	assert.Equal(t, 3, job.Batches)
	assert.Equal(t, 2500, store.committed())

	require.Len(t, pub.events, 3)
	assert.Equal(t, events.Progress{
		ID: "job-1", Status: events.StatusProcessing, Percent: 40, Processed: 1000, Total: 2500,
		Message: "Processed 1000 of 2500 records",
	}, pub.events[0])
	assert.Equal(t, events.Progress{
		ID: "job-1", Status: events.StatusProcessing, Percent: 80, Processed: 2000, Total: 2500,
		Message: "Processed 2000 of 2500 records",
	}, pub.events[1])
	assert.Equal(t, events.Completed{ID: "job-1", RecordCount: 2500, Total: 2500}, pub.events[2])

	assert.NoFileExists(t, path)
}

func TestOrchestrator_IngestCSV_LastFullBatchReportsCompletedStatus(t *testing.T) {
	path := csvWithRows(t, 2000)
	pub := &fakePublisher{}
	o := NewOrchestrator(&fakeStore{}, pub, discardLogger(), WithBatchSize(1000))

	_, err := o.IngestCSV(context.Background(), "job-2", path)
	require.NoError(t, err)

	require.Len(t, pub.events, 3)
	last := pub.events[1].(events.Progress)
	assert.Equal(t, 100, last.Percent)
	assert.Equal(t, events.StatusCompleted, last.Status)
	assert.Equal(t, events.Completed{ID: "job-2", RecordCount: 2000, Total: 2000}, pub.events[2])
}

func TestOrchestrator_IngestCSV_HeaderOnly(t *testing.T) {
	path := writeFile(t, "name,age,position,salary\n")
	store := &fakeStore{}
	pub := &fakePublisher{}
	o := NewOrchestrator(store, pub, discardLogger())

	job, err := o.IngestCSV(context.Background(), "job-empty", path)
	require.NoError(t, err)

	assert.Equal(t, 0, job.Total)
	assert.Equal(t, 0, job.Batches)
	assert.Empty(t, store.batches)
	assert.Equal(t, []events.Event{events.Completed{ID: "job-empty", RecordCount: 0, Total: 0}}, pub.events)
	assert.NoFileExists(t, path)
}

func TestOrchestrator_IngestCSV_PersistenceFailure(t *testing.T) {
	path := csvWithRows(t, 2500)
	store := &fakeStore{failBatch: 2}
	pub := &fakePublisher{}
	o := NewOrchestrator(store, pub, discardLogger(), WithBatchSize(1000))

	job, err := o.IngestCSV(context.Background(), "job-3", path)

	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, 2, persistErr.Batch)

	assert.Len(t, store.batches, 1, "batch after the failing one must not be attempted")
	assert.Equal(t, 1000, job.Processed)
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, err, job.LastError)

	require.Len(t, pub.events, 2)
	assert.IsType(t, events.Progress{}, pub.events[0])
	failed, ok := pub.events[1].(events.Failed)
	require.True(t, ok)
	assert.Equal(t, 40, failed.Percent)
	assert.Contains(t, failed.Reason, "unique violation")

	assert.NoFileExists(t, path)
}

func TestOrchestrator_IngestCSV_MalformedRow(t *testing.T) {
	path := writeFile(t, "name,age,position,salary\nAlice,30,Engineer,1000\nBob,41\nCarol,50,CTO,9000\n")
	store := &fakeStore{}
	pub := &fakePublisher{}
	o := NewOrchestrator(store, pub, discardLogger(), WithBatchSize(10))

	job, err := o.IngestCSV(context.Background(), "job-4", path)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, 3, parseErr.Line)
	assert.Empty(t, store.batches, "buffered rows are not flushed after a parse error")
	assert.Equal(t, StageFailed, job.Stage)

	require.Len(t, pub.events, 1)
	assert.IsType(t, events.Failed{}, pub.events[0])
	assert.NoFileExists(t, path)
}

func TestOrchestrator_IngestCSV_MissingFile(t *testing.T) {
	pub := &fakePublisher{}
	o := NewOrchestrator(&fakeStore{}, pub, discardLogger())

	_, err := o.IngestCSV(context.Background(), "job-5", "/nonexistent/employees.csv")

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	require.Len(t, pub.events, 1)
	assert.Equal(t, 0, pub.events[0].(events.Failed).Percent)
}

func TestOrchestrator_IngestCSV_PublishFailureIsNotFatal(t *testing.T) {
	path := csvWithRows(t, 25)
	store := &fakeStore{}
	pub := &fakePublisher{err: errors.New("redis down")}
	o := NewOrchestrator(store, pub, discardLogger(), WithBatchSize(10))

	job, err := o.IngestCSV(context.Background(), "job-6", path)
	require.NoError(t, err)

	assert.Equal(t, 25, store.committed())
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Len(t, pub.events, 3)
}

func TestOrchestrator_IngestCSV_Cancelled(t *testing.T) {
	path := csvWithRows(t, 10)
	pub := &fakePublisher{}
	o := NewOrchestrator(&fakeStore{}, pub, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.IngestCSV(ctx, "job-7", path)
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, pub.events, 1)
	assert.IsType(t, events.Failed{}, pub.events[0])
	assert.NoError(t, pub.ctxErr[0], "failure event must be published on a live context")
	assert.NoFileExists(t, path)
}

func TestOrchestrator_IngestCSV_RemoveFailureIsLogged(t *testing.T) {
	path := csvWithRows(t, 3)
	var removed []string
	o := NewOrchestrator(&fakeStore{}, &fakePublisher{}, discardLogger(),
		WithFileRemover(func(p string) error {
			removed = append(removed, p)
			return os.ErrPermission
		}),
	)

	job, err := o.IngestCSV(context.Background(), "job-8", path)
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Equal(t, []string{path}, removed)
}

func TestOrchestrator_IngestCSV_FileRemovedBeforeTerminalEvent(t *testing.T) {
	tests := []struct {
		name  string
		store *fakeStore
	}{
		{name: "completed", store: &fakeStore{}},
		{name: "failed", store: &fakeStore{failBatch: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := csvWithRows(t, 3)
			var existedAtTerminal []bool
			pub := &fakePublisher{onPublish: func(ev events.Event) {
				switch ev.(type) {
				case events.Completed, events.Failed:
					_, err := os.Stat(path)
					existedAtTerminal = append(existedAtTerminal, err == nil)
				}
			}}
			o := NewOrchestrator(tt.store, pub, discardLogger())

			_, _ = o.IngestCSV(context.Background(), "job-order", path)

			assert.Equal(t, []bool{false}, existedAtTerminal)
			assert.NoFileExists(t, path)
		})
	}
}

func TestOrchestrator_CreateEmployee(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	o := NewOrchestrator(store, pub, discardLogger())

	input := model.EmployeeInput{Name: "Alice", Age: 30, Position: "Engineer", Salary: "1000.00"}
	employee, err := o.CreateEmployee(context.Background(), "job-9", input)
	require.NoError(t, err)

	assert.Equal(t, "emp-1", employee.ID)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.Created{ID: "job-9", Employee: employee}, pub.events[0])
}

func TestOrchestrator_CreateEmployeeFailure(t *testing.T) {
	pub := &fakePublisher{}
	o := NewOrchestrator(&fakeStore{createErr: errors.New("db down")}, pub, discardLogger())

	_, err := o.CreateEmployee(context.Background(), "job-10", model.EmployeeInput{Name: "Bob"})

	var persistErr *PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Empty(t, pub.events)
}

func TestIngestionJob_Percent(t *testing.T) {
	tests := []struct {
		processed, total, want int
	}{
		{0, 0, 100},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{3, 3, 100},
		{4, 3, 100},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d of %d", tt.processed, tt.total), func(t *testing.T) {
			job := &IngestionJob{Processed: tt.processed, Total: tt.total}
			assert.Equal(t, tt.want, job.Percent())
		})
	}
}
