package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	browserAccept    = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	probeUserAgent   = "uptimeguard/1.0"
)

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL %q: scheme must be http or https", raw)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("invalid URL %q: missing host", raw)
	}
	return nil
}

func (s httpSpec) probe(ctx context.Context, e *Executor, _ domain.CheckJob) domain.Result {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return domain.Down(err.Error(), 0)
	}
	if s.Mode == modeBrowser {
		req.Header.Set("User-Agent", browserUserAgent)
		req.Header.Set("Accept", browserAccept)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	} else {
		req.Header.Set("User-Agent", probeUserAgent)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return domain.Down(reason(err), msSince(start))
	}
	defer resp.Body.Close()

	var body string
	if s.needsBody() {
		b, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
		if err != nil {
			return domain.Down(reason(err), msSince(start))
		}
		body = string(b)
	}
	latency := msSince(start)

	if r := s.evaluate(resp.StatusCode, body); r != "" {
		return domain.Down(r, latency)
	}
	return domain.Up(latency)
}

func (s httpSpec) needsBody() bool {
	return s.BodyContains != "" || s.Keyword != ""
}

// evaluate returns a down reason, or "" when the response passes.
func (s httpSpec) evaluate(code int, body string) string {
	if s.Mode == modeAssert && len(s.ExpectedStatus) > 0 {
		if !slices.Contains(s.ExpectedStatus, code) {
			return fmt.Sprintf("HTTP %d not in expected status list", code)
		}
	} else if code < 200 || code > 299 {
		return fmt.Sprintf("HTTP %d", code)
	}

	if s.BodyContains != "" && !strings.Contains(body, s.BodyContains) {
		return fmt.Sprintf("Body does not contain %q", s.BodyContains)
	}
	if s.Keyword != "" && !containsFold(body, s.Keyword, s.CaseSensitive) {
		return fmt.Sprintf("Keyword %q not found", s.Keyword)
	}
	return ""
}

func containsFold(body, needle string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(body, needle)
	}
	return strings.Contains(strings.ToLower(body), strings.ToLower(needle))
}
