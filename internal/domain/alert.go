package domain

type Direction string

const (
	DirectionDown Direction = "down"
	DirectionUp   Direction = "up"
)

// AlertJob is what the dispatcher places on the delivery queue.
type AlertJob struct {
	Type       string    `json:"type"`
	AlertID    string    `json:"alert_id"`
	TeamID     TeamID    `json:"team_id"`
	MonitorID  MonitorID `json:"monitor_id"`
	Monitor    string    `json:"monitor_name,omitempty"`
	Target     string    `json:"target,omitempty"`
	Status     Direction `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	IncidentID string    `json:"incident_id,omitempty"`
}
