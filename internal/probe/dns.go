package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

// dohResponse is the JSON format served with accept: application/dns-json.
type dohResponse struct {
	Status int         `json:"Status"`
	Answer []dohAnswer `json:"Answer"`
}

type dohAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

var rcodeNames = map[int]string{
	1: "FORMERR",
	2: "SERVFAIL",
	3: "NXDOMAIN",
	4: "NOTIMP",
	5: "REFUSED",
}

func (s dnsSpec) probe(ctx context.Context, e *Executor, _ domain.CheckJob) domain.Result {
	start := time.Now()
	endpoint := e.DoHURL
	if endpoint == "" {
		endpoint = DefaultDoHURL
	}
	q := url.Values{"name": {s.Name}, "type": {s.RecordType}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return domain.Down(err.Error(), 0)
	}
	req.Header.Set("Accept", "application/dns-json")

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
	if resp.StatusCode != http.StatusOK {
		return domain.Down(fmt.Sprintf("DNS-over-HTTPS returned HTTP %d", resp.StatusCode), latency)
	}
	var out dohResponse
	if err := json.Unmarshal(b, &out); err != nil {
		return domain.Down("invalid DNS-over-HTTPS response", latency)
	}
	if out.Status != 0 {
		name := rcodeNames[out.Status]
		if name == "" {
			name = fmt.Sprintf("rcode %d", out.Status)
		}
		return domain.Down(fmt.Sprintf("DNS %s for %s %s", name, s.RecordType, s.Name), latency)
	}
	if len(out.Answer) == 0 {
		return domain.Down(fmt.Sprintf("No %s records for %s", s.RecordType, s.Name), latency)
	}
	if s.ExpectedIncludes != "" {
		for _, a := range out.Answer {
			if strings.Contains(a.Data, s.ExpectedIncludes) {
				return domain.Up(latency)
			}
		}
		return domain.Down(fmt.Sprintf("No %s answer contains %q", s.RecordType, s.ExpectedIncludes), latency)
	}
	return domain.Up(latency)
}
