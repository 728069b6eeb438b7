package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type MonitorID string

type TeamID string

// MonitorType is the probe protocol of a monitor.
type MonitorType string

const (
	TypeHTTP        MonitorType = "http"
	TypeHTTPAssert  MonitorType = "http_assert"
	TypeHTTPKeyword MonitorType = "http_keyword"
	TypeBrowser     MonitorType = "browser"
	TypeTCP         MonitorType = "tcp"
	TypePing        MonitorType = "ping"
	TypeTLS         MonitorType = "tls"
	TypeDNS         MonitorType = "dns"
	TypeHeartbeat   MonitorType = "heartbeat"
	TypeWebhook     MonitorType = "webhook"
	TypeManual      MonitorType = "manual"
	TypeExternal    MonitorType = "external"
)

var monitorTypes = []MonitorType{
	TypeHTTP, TypeHTTPAssert, TypeHTTPKeyword, TypeBrowser, TypeTCP, TypePing,
	TypeTLS, TypeDNS, TypeHeartbeat, TypeWebhook, TypeManual, TypeExternal,
}

// ParseMonitorType rejects anything outside the closed set of protocols.
func ParseMonitorType(s string) (MonitorType, error) {
	for _, t := range monitorTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown monitor type %q", s)
}

// Pushed reports whether status arrives from an inbound report instead of a probe.
func (t MonitorType) Pushed() bool {
	return t == TypeWebhook || t == TypeManual
}

// Passive types never open an outbound connection.
func (t MonitorType) Passive() bool {
	return t.Pushed() || t == TypeHeartbeat
}

const (
	MinTimeoutMS = 1000
	MaxTimeoutMS = 30000
	MinThreshold = 1
	MaxThreshold = 10
)

func ClampTimeoutMS(ms int) int {
	return clamp(ms, MinTimeoutMS, MaxTimeoutMS)
}

func ClampThreshold(n int) int {
	return clamp(n, MinThreshold, MaxThreshold)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type Monitor struct {
	ID               MonitorID       `json:"id" yaml:"id"`
	Team             TeamID          `json:"team_id" yaml:"team"`
	Name             string          `json:"name" yaml:"name"`
	Type             MonitorType     `json:"type" yaml:"type"`
	Target           string          `json:"target" yaml:"target"`
	IntervalSeconds  int             `json:"interval_seconds" yaml:"interval_seconds"`
	TimeoutMS        int             `json:"timeout_ms" yaml:"timeout_ms"`
	FailureThreshold int             `json:"failure_threshold" yaml:"failure_threshold"`
	Enabled          bool            `json:"enabled" yaml:"-"`
	GroupID          string          `json:"group_id,omitempty" yaml:"group_id"`
	Config           json.RawMessage `json:"config,omitempty" yaml:"-"`
	PushTokenHash    string          `json:"-" yaml:"push_token_hash"`
	CreatedAt        time.Time       `json:"created_at" yaml:"-"`
}

// Job builds the CheckJob the scheduler hands to the runner.
func (m *Monitor) Job(jobID string) CheckJob {
	return CheckJob{
		MonitorID:        m.ID,
		TeamID:           m.Team,
		MonitorType:      m.Type,
		Target:           m.Target,
		TimeoutMS:        m.TimeoutMS,
		IntervalSeconds:  m.IntervalSeconds,
		FailureThreshold: m.FailureThreshold,
		Config:           m.Config,
		JobID:            jobID,
	}
}

// CheckJob is one unit of probe work.
type CheckJob struct {
	MonitorID        MonitorID       `json:"monitor_id"`
	TeamID           TeamID          `json:"team_id"`
	MonitorType      MonitorType     `json:"monitor_type"`
	Target           string          `json:"url"`
	TimeoutMS        int             `json:"timeout_ms"`
	IntervalSeconds  int             `json:"interval_seconds"`
	FailureThreshold int             `json:"failure_threshold"`
	Config           json.RawMessage `json:"config,omitempty"`
	ExternalConfig   json.RawMessage `json:"external_config,omitempty"`
	JobID            string          `json:"job_id"`
	ReportedStatus   *ReportedStatus `json:"reported_status,omitempty"`
	ReportedReason   string          `json:"reported_reason,omitempty"`
}

// UnmarshalJSON takes the target from "url" or, failing that, "target".
func (j *CheckJob) UnmarshalJSON(b []byte) error {
	type plain CheckJob
	var aux struct {
		plain
		AltTarget string `json:"target"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*j = CheckJob(aux.plain)
	if j.Target == "" {
		j.Target = aux.AltTarget
	}
	return nil
}

func (j CheckJob) Timeout() time.Duration {
	return time.Duration(ClampTimeoutMS(j.TimeoutMS)) * time.Millisecond
}

type MonitorKey struct {
	Team    TeamID
	Monitor MonitorID
}

func (k MonitorKey) String() string { return string(k.Team) + ":" + string(k.Monitor) }

func (j CheckJob) Key() MonitorKey { return MonitorKey{Team: j.TeamID, Monitor: j.MonitorID} }

func (m *Monitor) Key() MonitorKey { return MonitorKey{Team: m.Team, Monitor: m.ID} }

// MonitorState is the single mutable row per monitor.
type MonitorState struct {
	MonitorID           MonitorID `json:"monitor_id"`
	Team                TeamID    `json:"team_id"`
	LastCheckedAt       time.Time `json:"last_checked_at"`
	LastStatus          Status    `json:"last_status"`
	LastLatencyMS       float64   `json:"last_latency_ms"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastError           string    `json:"last_error,omitempty"`
	IncidentOpen        bool      `json:"incident_open"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Datapoint is appended to the metrics sink once per run.
type Datapoint struct {
	TeamID    TeamID    `json:"team_id"`
	MonitorID MonitorID `json:"monitor_id"`
	Status    Status    `json:"status"`
	LatencyMS float64   `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}
