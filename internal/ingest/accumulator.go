package ingest

import (
	"context"

	"github.com/cuongbtq/employee-ingest/internal/model"
)

// DefaultBatchSize is used when no batch size is configured
const DefaultBatchSize = 1000

// CommitFunc receives a batch. final is true only for the end-of-stream flush.
// The callee owns the slice.
type CommitFunc func(ctx context.Context, batch []model.EmployeeRecord, final bool) error

// Accumulator buffers records and hands them downstream in fixed-size batches.
// Push blocks while a full batch is committed, so the producer is never more
// than one batch ahead of persistence.
type Accumulator struct {
	size   int
	buf    []model.EmployeeRecord
	commit CommitFunc
}

func NewAccumulator(size int, commit CommitFunc) *Accumulator {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &Accumulator{
		size:   size,
		buf:    make([]model.EmployeeRecord, 0, size),
		commit: commit,
	}
}

// Push appends rec and commits the buffer once it reaches the batch size
func (a *Accumulator) Push(ctx context.Context, rec model.EmployeeRecord) error {
	a.buf = append(a.buf, rec)
	if len(a.buf) < a.size {
		return nil
	}
	return a.emit(ctx, false)
}

// Flush commits whatever is left. An empty buffer commits nothing.
func (a *Accumulator) Flush(ctx context.Context) error {
	if len(a.buf) == 0 {
		return nil
	}
	return a.emit(ctx, true)
}

// Len is the number of buffered records
func (a *Accumulator) Len() int {
	return len(a.buf)
}

func (a *Accumulator) emit(ctx context.Context, final bool) error {
	batch := a.buf
	a.buf = make([]model.EmployeeRecord, 0, a.size)
	return a.commit(ctx, batch, final)
}
