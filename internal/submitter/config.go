package submitter

import "time"

// Config holds configuration for a submission run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Name        string        // Contestant name sent with every file
	Files       []string      // Archives to upload
	Workers     int           // Concurrent uploads
	Timeout     time.Duration // HTTP request timeout
	Idempotent  bool          // Send a fresh Idempotency-Key per file
	Leaderboard bool          // Print the leaderboard after uploading
}

// Result is the service's answer to an accepted submission.
type Result struct {
	ID         string                        `json:"id"`
	Name       string                        `json:"name"`
	Score      float64                       `json:"score"`
	PerSubject map[string]float64            `json:"per_subject"`
	PerClass   map[string]map[string]float64 `json:"per_class,omitempty"`
}

// Entry represents a leaderboard entry.
type Entry struct {
	Rank  int     `json:"rank"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Podium is the leaderboard split returned by GET /leaderboard.
type Podium struct {
	Top    []Entry `json:"top3"`
	Others []Entry `json:"others"`
}

// Stats holds run statistics.
type Stats struct {
	Submitted int
	Accepted  int
	Rejected  int
	Failed    int
	Best      float64
	Duration  time.Duration
}
