package domain

import "time"

// Domain contains core models shared by the prober, storage and publishers.

// Outcome results.
const (
	ResultSucceeded = "succeeded"
	ResultFailed    = "failed"
	ResultAborted   = "aborted"
)

// Outcome is the result of one probe of one target.
type Outcome struct {
	TargetID   string    `json:"target_id"`
	TargetName string    `json:"target_name"`
	URL        string    `json:"url"`
	Result     string    `json:"result"`
	StatusCode int       `json:"status_code,omitempty"`
	ErrorCode  int       `json:"error_code,omitempty"`
	ErrorText  string    `json:"error_text,omitempty"`
	Bytes      int64     `json:"bytes"`
	Chunks     int       `json:"chunks"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Page       *PageMeta `json:"page,omitempty"`
}

// OK reports whether the probe succeeded.
func (o Outcome) OK() bool { return o.Result == ResultSucceeded }

// PageMeta is what could be read from an HTML response body.
type PageMeta struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}
