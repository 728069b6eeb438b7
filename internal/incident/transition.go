// Package incident owns the failure counter and incident lifecycle of each
// monitor.
package incident

import "github.com/hamed0406/uptimeguard/internal/domain"

type Transition struct {
	NextFailures  int
	ShouldOpen    bool
	ShouldResolve bool
}

// ComputeTransition is the pure state machine step. A failure under
// maintenance resets the counter and never opens; a single success resolves.
func ComputeTransition(status domain.Status, prevFailures int, incidentOpen bool, threshold int, isMaintenance bool) Transition {
	threshold = domain.ClampThreshold(threshold)

	var t Transition
	switch {
	case status.DownLike() && isMaintenance:
		t.NextFailures = 0
	case status.DownLike():
		t.NextFailures = max(prevFailures, 0) + 1
	case status == domain.StatusUp:
		t.NextFailures = 0
	default:
		// unknown leaves the counter alone
		t.NextFailures = max(prevFailures, 0)
	}

	t.ShouldOpen = status.DownLike() && !isMaintenance && !incidentOpen && t.NextFailures >= threshold
	t.ShouldResolve = status == domain.StatusUp && incidentOpen
	return t
}
