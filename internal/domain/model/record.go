package model

import "time"

// Evaluation is the outcome of scoring one submission against the reference.
type Evaluation struct {
	// Score is the mean of all per-subject scores.
	Score float64
	// PerSubject holds the macro Dice of each subject.
	PerSubject map[string]float64
	// PerClass holds per-label Dice for each subject, keyed by label.
	PerClass map[string]map[int64]float64
}

// Record is one persisted leaderboard row. Older files only carry name and score.
type Record struct {
	ID          string             `json:"id,omitempty"`
	Name        string             `json:"name"`
	Score       float64            `json:"score"`
	PerSubject  map[string]float64 `json:"per_subject,omitempty"`
	SubmittedAt time.Time          `json:"submitted_at,omitzero"`
}

// WriteJob carries a record to the leaderboard writer. Done receives exactly
// one value: the append result.
type WriteJob struct {
	Record Record
	Done   chan error
}

// NewWriteJob returns a job with a buffered completion channel so the writer
// never blocks on an abandoned caller.
func NewWriteJob(rec Record) WriteJob {
	return WriteJob{Record: rec, Done: make(chan error, 1)}
}
