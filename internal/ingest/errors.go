package ingest

import "fmt"

// IOError is a failure to open, read or remove the source file
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("io error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError is a row that could not be structurally decoded
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error on line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// PersistenceError is a failed bulk insert. Batches before Batch stay committed.
type PersistenceError struct {
	Batch int
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error on batch %d: %v", e.Batch, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// PublishError is a progress event that could not be published. Never fatal.
type PublishError struct {
	Event string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish error for %s: %v", e.Event, e.Err)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}
