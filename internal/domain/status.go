package domain

import (
	"encoding/json"
	"fmt"
)

// Status is the derived state of a monitor.
type Status string

const (
	StatusUp      Status = "up"
	StatusDown    Status = "down"
	StatusUnknown Status = "unknown"
	// StatusDegraded only arrives from push reports; it counts as down.
	StatusDegraded Status = "degraded"
)

// DownLike is true for down and degraded.
func (s Status) DownLike() bool {
	return s == StatusDown || s == StatusDegraded
}

// ReportedStatus is what a webhook or manual report may claim.
type ReportedStatus string

const (
	ReportedUp       ReportedStatus = "up"
	ReportedDown     ReportedStatus = "down"
	ReportedDegraded ReportedStatus = "degraded"
)

func (r *ReportedStatus) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch ReportedStatus(s) {
	case ReportedUp, ReportedDown, ReportedDegraded:
		*r = ReportedStatus(s)
		return nil
	}
	return fmt.Errorf("invalid reported status %q", s)
}

// Status maps a report onto a probe status. Degraded is kept for display
// and is DownLike for counting and alerting.
func (r ReportedStatus) Status() Status {
	switch r {
	case ReportedUp:
		return StatusUp
	case ReportedDegraded:
		return StatusDegraded
	}
	return StatusDown
}

// Result is the normalized outcome of one probe run.
type Result struct {
	Status    Status  `json:"status"`
	Reason    string  `json:"reason,omitempty"`
	LatencyMS float64 `json:"latency_ms,omitempty"`
}

func Up(latencyMS float64) Result {
	return Result{Status: StatusUp, LatencyMS: latencyMS}
}

func Down(reason string, latencyMS float64) Result {
	return Result{Status: StatusDown, Reason: reason, LatencyMS: latencyMS}
}
