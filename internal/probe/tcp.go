package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

var schemePorts = map[string]string{
	"http":     "80",
	"https":    "443",
	"ws":       "80",
	"wss":      "443",
	"ftp":      "21",
	"ssh":      "22",
	"smtp":     "25",
	"smtps":    "465",
	"imap":     "143",
	"imaps":    "993",
	"dns":      "53",
	"ldap":     "389",
	"ldaps":    "636",
	"mysql":    "3306",
	"postgres": "5432",
	"redis":    "6379",
	"mongodb":  "27017",
}

// ParseHostPort accepts "host", "host:port", "[v6]:port" or a URL whose
// scheme implies a port.
func ParseHostPort(target, defaultPort string) (string, string, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", "", fmt.Errorf("empty target")
	}

	if strings.Contains(target, "://") {
		u, err := url.Parse(target)
		if err != nil {
			return "", "", fmt.Errorf("invalid target URL: %v", err)
		}
		host := u.Hostname()
		if host == "" {
			return "", "", fmt.Errorf("invalid target %q: missing host", target)
		}
		port := u.Port()
		if port == "" {
			port = schemePorts[strings.ToLower(u.Scheme)]
		}
		if port == "" {
			port = defaultPort
		}
		return host, port, validPort(port)
	}

	if host, port, err := net.SplitHostPort(target); err == nil {
		if host == "" {
			return "", "", fmt.Errorf("invalid target %q: missing host", target)
		}
		return host, port, validPort(port)
	}
	host := strings.TrimSuffix(strings.TrimPrefix(target, "["), "]")
	if strings.ContainsAny(host, "/ ") {
		return "", "", fmt.Errorf("invalid target %q", target)
	}
	return host, defaultPort, validPort(defaultPort)
}

func validPort(p string) error {
	n, err := strconv.Atoi(p)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid port %q", p)
	}
	return nil
}

func (s tcpSpec) probe(ctx context.Context, e *Executor, _ domain.CheckJob) domain.Result {
	start := time.Now()
	addr := net.JoinHostPort(s.Host, s.Port)

	var (
		conn net.Conn
		err  error
	)
	if s.TLS {
		d := &tls.Dialer{NetDialer: e.Dialer, Config: &tls.Config{ServerName: s.Host}}
		conn, err = d.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = e.Dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return domain.Down(reason(err), msSince(start))
	}
	latency := msSince(start)
	_ = conn.Close()
	return domain.Up(latency)
}
