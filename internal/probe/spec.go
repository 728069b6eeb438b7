package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

// Spec is the parsed, protocol-specific payload of a job. The set of
// implementations is closed: every variant must carry its own probe.
type Spec interface {
	probe(ctx context.Context, e *Executor, job domain.CheckJob) domain.Result
}

type httpMode int

const (
	modePlain httpMode = iota
	modeAssert
	modeKeyword
	modeBrowser
)

type httpSpec struct {
	Mode           httpMode
	URL            string
	ExpectedStatus []int
	BodyContains   string
	Keyword        string
	CaseSensitive  bool
}

type tcpSpec struct {
	Host string
	Port string
	TLS  bool
}

type tlsSpec struct {
	Host         string
	Port         string
	MinDays      int
	AllowInvalid bool
}

type dnsSpec struct {
	Name             string
	RecordType       string
	ExpectedIncludes string
}

type heartbeatSpec struct {
	IntervalSec int64
	GraceSec    int64
}

type pushSpec struct {
	Reported *domain.ReportedStatus
	Reason   string
}

type externalSpec struct {
	FeedURL   string
	StatusURL string
}

type httpConfig struct {
	ExpectedStatus []int  `json:"expectedStatus"`
	BodyContains   string `json:"bodyContains"`
	Keyword        string `json:"keyword"`
	CaseSensitive  bool   `json:"caseSensitive"`
}

type tlsConfig struct {
	MinDays      *int `json:"minDays"`
	AllowInvalid bool `json:"allowInvalid"`
}

type dnsConfig struct {
	RecordType       string `json:"recordType"`
	ExpectedIncludes string `json:"expectedIncludes"`
}

type heartbeatConfig struct {
	GraceSeconds *int64 `json:"graceSeconds"`
}

type externalConfig struct {
	Provider  string `json:"provider"`
	PageURL   string `json:"pageUrl"`
	StatusURL string `json:"statusUrl"`
}

const (
	DefaultTLSMinDays     = 14
	DefaultHeartbeatGrace = 60
)

var dnsRecordTypes = map[string]bool{
	"A": true, "AAAA": true, "CNAME": true, "MX": true, "NS": true, "TXT": true, "SRV": true, "CAA": true, "PTR": true, "SOA": true,
}

func decodeConfig(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid config: %v", err)
	}
	return nil
}

// ParseSpec validates the job's target and config blob for its protocol.
func ParseSpec(job domain.CheckJob) (Spec, error) {
	target := strings.TrimSpace(job.Target)
	switch job.MonitorType {
	case domain.TypeHTTP, domain.TypeHTTPAssert, domain.TypeHTTPKeyword, domain.TypeBrowser:
		return parseHTTP(job.MonitorType, target, job.Config)

	case domain.TypeTCP, domain.TypePing:
		port := "80"
		if job.MonitorType == domain.TypePing {
			port = "443"
		}
		host, p, err := ParseHostPort(target, port)
		if err != nil {
			return nil, err
		}
		return tcpSpec{Host: host, Port: p, TLS: job.MonitorType == domain.TypePing}, nil

	case domain.TypeTLS:
		host, port, err := ParseHostPort(target, "443")
		if err != nil {
			return nil, err
		}
		var cfg tlsConfig
		if err := decodeConfig(job.Config, &cfg); err != nil {
			return nil, err
		}
		min := DefaultTLSMinDays
		if cfg.MinDays != nil {
			min = *cfg.MinDays
		}
		return tlsSpec{Host: host, Port: port, MinDays: min, AllowInvalid: cfg.AllowInvalid}, nil

	case domain.TypeDNS:
		var cfg dnsConfig
		if err := decodeConfig(job.Config, &cfg); err != nil {
			return nil, err
		}
		name, _, err := ParseHostPort(target, "53")
		if err != nil {
			return nil, err
		}
		rt := strings.ToUpper(strings.TrimSpace(cfg.RecordType))
		if rt == "" {
			rt = "A"
		}
		if !dnsRecordTypes[rt] {
			return nil, fmt.Errorf("unsupported DNS record type %q", cfg.RecordType)
		}
		return dnsSpec{Name: name, RecordType: rt, ExpectedIncludes: cfg.ExpectedIncludes}, nil

	case domain.TypeHeartbeat:
		var cfg heartbeatConfig
		if err := decodeConfig(job.Config, &cfg); err != nil {
			return nil, err
		}
		grace := int64(DefaultHeartbeatGrace)
		if cfg.GraceSeconds != nil {
			grace = *cfg.GraceSeconds
		}
		return heartbeatSpec{IntervalSec: int64(job.IntervalSeconds), GraceSec: grace}, nil

	case domain.TypeWebhook, domain.TypeManual:
		return pushSpec{Reported: job.ReportedStatus, Reason: job.ReportedReason}, nil

	case domain.TypeExternal:
		raw := job.ExternalConfig
		if len(raw) == 0 {
			raw = job.Config
		}
		var cfg externalConfig
		if err := decodeConfig(raw, &cfg); err != nil {
			return nil, err
		}
		return parseExternal(cfg, target)
	}
	return nil, fmt.Errorf("unsupported monitor type %q", job.MonitorType)
}

func parseHTTP(t domain.MonitorType, target string, raw json.RawMessage) (Spec, error) {
	if err := validateHTTPURL(target); err != nil {
		return nil, err
	}
	var cfg httpConfig
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, err
	}
	s := httpSpec{URL: target, CaseSensitive: cfg.CaseSensitive}
	switch t {
	case domain.TypeHTTPAssert:
		s.Mode = modeAssert
		s.ExpectedStatus = cfg.ExpectedStatus
		s.BodyContains = cfg.BodyContains
		if len(s.ExpectedStatus) == 0 && s.BodyContains == "" {
			return nil, fmt.Errorf("http_assert needs expectedStatus or bodyContains")
		}
	case domain.TypeHTTPKeyword:
		s.Mode = modeKeyword
		s.Keyword = cfg.Keyword
		if s.Keyword == "" {
			return nil, fmt.Errorf("http_keyword needs a keyword")
		}
	case domain.TypeBrowser:
		s.Mode = modeBrowser
		s.Keyword = cfg.Keyword
		if s.Keyword == "" {
			return nil, fmt.Errorf("browser needs a keyword")
		}
	}
	return s, nil
}
