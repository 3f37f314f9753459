package scanner

import (
	"time"

	"github.com/nvduc/joomprobe-cli/internal/matcher"
)

// ProbeError records a target that never produced a usable response.
type ProbeError struct {
	Component string `json:"component"`
	URL       string `json:"url"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// Stats summarizes how the scan went.
type Stats struct {
	TargetsTotal   int `json:"targets_total"`
	TargetsProbed  int `json:"targets_probed"`
	TargetsErrored int `json:"targets_errored"`
	Abandoned      int `json:"abandoned"`
}

// Report is the finalized outcome of one scan. It is built by the aggregator
// under single-writer discipline and must not be mutated after Collect
// returns.
type Report struct {
	ID              string            `json:"id"`
	TargetURL       string            `json:"target_url"`
	StartedAt       time.Time         `json:"started_at"`
	CompletedAt     time.Time         `json:"completed_at"`
	Incomplete      bool              `json:"incomplete"`
	ComponentsFound []string          `json:"components_found"`
	Findings        []matcher.Finding `json:"findings"`
	Errors          []ProbeError      `json:"errors"`
	Stats           Stats             `json:"stats"`
}

// Duration is derived from the timestamps, never set independently.
func (r *Report) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}
