package journal

import "time"

// Intent labels for recorded requests.
const (
	IntentPulse        = "pulse"
	IntentImage        = "image"
	IntentPulseImage   = "pulse+image"
	IntentUnrecognized = "unrecognized"
)

// Final status of a recorded request.
const (
	StatusDone    = "done"    // every carried intent reached the printer
	StatusFailed  = "failed"  // at least one intent failed after retries
	StatusSkipped = "skipped" // nothing actionable in the body
)

// Job is one handled print request.
type Job struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	Intent     string    `json:"intent"`
	WidthPx    int       `json:"width_px,omitempty"`
	Height     int       `json:"height,omitempty"`
	BodyBytes  int       `json:"body_bytes"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
}

// Filter narrows job listings.
type Filter struct {
	Status string
	Intent string
	Limit  int
	Offset int
}

// Stats summarizes the journal for the admin surface.
type Stats struct {
	Total   int64 `json:"total"`
	Done    int64 `json:"done"`
	Failed  int64 `json:"failed"`
	Skipped int64 `json:"skipped"`
	Today   int64 `json:"today"`
}

// Setting is one key/value pair from the settings table.
type Setting struct {
	Key   string
	Value string
}
