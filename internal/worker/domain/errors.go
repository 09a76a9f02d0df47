package domain

import "errors"

var (
	// ErrInvalidPayload is returned when a job payload cannot be decoded
	ErrInvalidPayload = errors.New("invalid job payload")

	// ErrUnknownJobType is returned for a job type no handler is registered for
	ErrUnknownJobType = errors.New("unknown job type")

	// ErrWorkerStopping is returned for a job picked up after shutdown began
	ErrWorkerStopping = errors.New("worker is stopping")
)
