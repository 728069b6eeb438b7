package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"math"
	"net"
	"time"

	"github.com/hamed0406/uptimeguard/internal/domain"
)

func (s tlsSpec) probe(ctx context.Context, e *Executor, _ domain.CheckJob) domain.Result {
	start := time.Now()
	d := &tls.Dialer{
		NetDialer: e.Dialer,
		Config: &tls.Config{
			ServerName:         s.Host,
			InsecureSkipVerify: s.AllowInvalid,
		},
	}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(s.Host, s.Port))
	if err != nil {
		return domain.Down(reason(err), msSince(start))
	}
	defer conn.Close()
	latency := msSince(start)

	tc, ok := conn.(*tls.Conn)
	if !ok {
		return domain.Down("not a TLS connection", latency)
	}
	certs := tc.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return domain.Down("no peer certificate", latency)
	}

	days := DaysUntil(certs[0].NotAfter, e.now())
	if days < s.MinDays {
		return domain.Down(fmt.Sprintf("Certificate expires in %d days (minimum %d)", days, s.MinDays), latency)
	}
	return domain.Up(latency)
}

// DaysUntil is the whole number of days from now to t, negative once expired.
func DaysUntil(t, now time.Time) int {
	return int(math.Floor(t.Sub(now).Hours() / 24))
}
