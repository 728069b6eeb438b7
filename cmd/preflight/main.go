// cmd/preflight/main.go
package main

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/hamed0406/uptimeguard/internal/config"
	"github.com/hamed0406/uptimeguard/internal/logging"
)

func main() {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	admin := strings.TrimSpace(os.Getenv("ADMIN_API_KEYS"))
	pub := strings.TrimSpace(os.Getenv("PUBLIC_API_KEYS"))
	allowed := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS"))

	if admin == "" {
		fail("ADMIN_API_KEYS is empty (job route is open).")
	}
	if pub == "" {
		fail("PUBLIC_API_KEYS is empty (read routes are open).")
	}

	// Normalize and sanity-check lists (no spaces around commas).
	for name, v := range map[string]string{"ADMIN_API_KEYS": admin, "PUBLIC_API_KEYS": pub} {
		if strings.Contains(v, " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	for _, name := range []string{
		"PUBLIC_RPM", "PUBLIC_BURST", "ADMIN_RPM", "ADMIN_BURST", "RETRY_ATTEMPTS", "RETRY_BACKOFF_MS",
		"CHECK_INTERVAL_MS", "MAX_CONCURRENT_CHECKS", "MAX_BUCKETS", "ALERT_DEDUP_TTL_HOURS", "BOUNDARY_TIMEOUT_MS",
	} {
		if v := os.Getenv(name); v != "" {
			if _, err := strconv.Atoi(v); err != nil {
				fail(name + " is not an integer: " + v)
			}
		}
	}

	cfg := config.FromEnv()
	ok("API_ADDR=" + cfg.Addr)

	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		fail("LOG_LEVEL: " + err.Error())
	}

	if cfg.DatabaseURL == "" {
		warn("DATABASE_URL empty, API will use in-memory stores.")
	} else {
		ok("DATABASE_URL present")
	}

	if allowed == "" {
		warn("ALLOWED_ORIGINS empty, CORS allows every origin.")
	} else {
		ok("ALLOWED_ORIGINS=" + allowed)
	}

	for name, v := range map[string]string{
		"SLACK_WEBHOOK_URL": cfg.SlackWebhookURL,
		"ALERT_WEBHOOK_URL": cfg.AlertWebhookURL,
		"DOH_URL":           cfg.DoHURL,
	} {
		if v == "" {
			continue
		}
		if u, err := url.Parse(v); err != nil || u.Scheme != "https" || u.Host == "" {
			fail(name + " must be an https URL")
		}
	}
	if cfg.SlackWebhookURL == "" && cfg.AlertWebhookURL == "" {
		warn("no SLACK_WEBHOOK_URL or ALERT_WEBHOOK_URL, alerts will be dropped.")
	}

	if cfg.FixturesFile != "" {
		fx, err := config.LoadFixtures(cfg.FixturesFile)
		if err != nil {
			fail("FIXTURES_FILE: " + err.Error())
		} else {
			ok(fmt.Sprintf("FIXTURES_FILE ok (%d monitors)", len(fx.Monitors)))
		}
	}

	if failed {
		os.Exit(1)
	}
	ok("preflight passed")
}
