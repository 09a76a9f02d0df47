package ingest

import "math"

// IngestionJob statuses
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Stage is a step of the bulk ingestion state machine
type Stage string

const (
	StageQueued    Stage = "queued"
	StageCounting  Stage = "counting"
	StageStreaming Stage = "streaming"
	StageFlushing  Stage = "flushing"
	StageCompleted Stage = "completed"
	StageFailed    Stage = "failed"
)

// IngestionJob is the in-flight state of one bulk CSV upload. It lives only
// for the duration of a worker run.
type IngestionJob struct {
	ID         string
	SourcePath string
	Total      int
	Processed  int
	Batches    int
	Status     string
	Stage      Stage
	LastError  error
}

// Percent is round(processed / total * 100), capped at 100. A job with no rows is 100% done.
func (j *IngestionJob) Percent() int {
	if j.Total <= 0 {
		return 100
	}
	pct := int(math.Round(float64(j.Processed) / float64(j.Total) * 100))
	return min(pct, 100)
}
