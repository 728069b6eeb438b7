package notify

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

// Notifier delivers one alert to an external channel.
type Notifier interface {
	Notify(ctx context.Context, job domain.AlertJob) error
}

// Multi fans out to every notifier and returns the combined error.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, job domain.AlertJob) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Notify(ctx, job))
	}
	return err
}

// Format renders the human message for an alert.
func Format(job domain.AlertJob) (title, text string) {
	name := job.Monitor
	if name == "" {
		name = string(job.MonitorID)
	}
	title = "🔴 " + name + " is DOWN"
	if job.Status == domain.DirectionUp {
		title = "🟢 " + name + " RECOVERED"
	}

	reason := job.Reason
	if reason == "" {
		reason = "n/a"
	}
	incident := job.IncidentID
	if incident == "" {
		incident = "n/a"
	}
	text = fmt.Sprintf("Team: %s\nTarget: %s\nReason: %s\nIncident: %s",
		job.TeamID, job.Target, reason, incident)
	return title, text
}
