package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

// statusFeeds maps provider names to their Statuspage base URLs.
var statusFeeds = map[string]string{
	"github":     "https://www.githubstatus.com",
	"cloudflare": "https://www.cloudflarestatus.com",
	"atlassian":  "https://status.atlassian.com",
	"openai":     "https://status.openai.com",
	"discord":    "https://discordstatus.com",
	"reddit":     "https://www.redditstatus.com",
	"dropbox":    "https://status.dropbox.com",
	"npm":        "https://status.npmjs.org",
}

func parseExternal(cfg externalConfig, target string) (Spec, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch {
	case provider == "statuspage":
		if err := validateHTTPURL(cfg.PageURL); err != nil {
			return nil, fmt.Errorf("statuspage provider needs pageUrl: %v", err)
		}
		return externalSpec{FeedURL: strings.TrimRight(cfg.PageURL, "/") + "/api/v2/status.json"}, nil
	case provider != "":
		base, ok := statusFeeds[provider]
		if !ok {
			return nil, fmt.Errorf("unknown status provider %q", cfg.Provider)
		}
		return externalSpec{FeedURL: base + "/api/v2/status.json"}, nil
	}

	statusURL := cfg.StatusURL
	if statusURL == "" {
		statusURL = target
	}
	if err := validateHTTPURL(statusURL); err != nil {
		return nil, fmt.Errorf("external monitor needs provider or statusUrl: %v", err)
	}
	return externalSpec{StatusURL: statusURL}, nil
}

type statuspageSummary struct {
	Status struct {
		Indicator   string `json:"indicator"`
		Description string `json:"description"`
	} `json:"status"`
}

func (s externalSpec) probe(ctx context.Context, e *Executor, job domain.CheckJob) domain.Result {
	if s.StatusURL != "" {
		return httpSpec{Mode: modePlain, URL: s.StatusURL}.probe(ctx, e, job)
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.FeedURL, nil)
	if err != nil {
		return domain.Down(err.Error(), 0)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", probeUserAgent)

	resp, err := e.Client.Do(req)
	if err != nil {
		return domain.Down(reason(err), msSince(start))
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	latency := msSince(start)
	if err != nil {
		return domain.Down(reason(err), latency)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Down(fmt.Sprintf("Status feed returned HTTP %d", resp.StatusCode), latency)
	}
	var sum statuspageSummary
	if err := json.Unmarshal(b, &sum); err != nil {
		return domain.Down("invalid status feed response", latency)
	}
	if IndicatorUp(sum.Status.Indicator) {
		return domain.Up(latency)
	}
	desc := sum.Status.Description
	if desc == "" {
		desc = "indicator " + sum.Status.Indicator
	}
	return domain.Down(desc, latency)
}

// IndicatorUp maps a Statuspage indicator to the binary status.
func IndicatorUp(indicator string) bool {
	switch strings.ToLower(indicator) {
	case "none", "minor":
		return true
	}
	return false
}
