package publishers

import (
	"strconv"
	"time"

	"github.com/samvad-hq/samvad-probe/internal/domain"
)

// Event is the payload published downstream for every probe.
type Event struct {
	TargetID    string         `json:"target_id"`
	Result      string         `json:"result"`
	Outcome     domain.Outcome `json:"outcome"`
	PublishedAt time.Time      `json:"published_at"`
}

// NewEvent wraps an outcome for publishing.
func NewEvent(o domain.Outcome) Event {
	return Event{
		TargetID:    o.TargetID,
		Result:      o.Result,
		Outcome:     o,
		PublishedAt: time.Now().UTC(),
	}
}

// Attributes are the routing attributes attached to queue and topic messages.
func (e Event) Attributes() map[string]string {
	attrs := map[string]string{
		"target_id": e.TargetID,
		"result":    e.Result,
	}
	if e.Outcome.StatusCode != 0 {
		attrs["status_code"] = strconv.Itoa(e.Outcome.StatusCode)
	}
	return attrs
}
