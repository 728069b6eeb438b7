package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimeguard/internal/availability"
	"github.com/hamed0406/uptimeguard/internal/domain"
	"github.com/hamed0406/uptimeguard/internal/probe"
)

type globals struct {
	api    string
	apiKey string
	client *http.Client
}

func newRootCmd() *cobra.Command {
	g := &globals{client: &http.Client{Timeout: 30 * time.Second}}
	root := &cobra.Command{
		Use:           "uptimectl",
		Short:         "Operate the uptime API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&g.api, "api", api, "API base URL")
	root.PersistentFlags().StringVar(&g.apiKey, "key", os.Getenv("API_KEY"), "API key (X-API-Key)")

	root.AddCommand(newProbeCmd(), newPushCmd(g), newReportCmd(g), newMonthRangeCmd())
	return root
}

func newProbeCmd() *cobra.Command {
	var (
		typ       string
		timeoutMS int
		rawConfig string
	)
	cmd := &cobra.Command{
		Use:   "probe TARGET",
		Short: "Run one probe locally and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mt, err := domain.ParseMonitorType(typ)
			if err != nil {
				return err
			}
			if mt.Passive() {
				return fmt.Errorf("%s monitors cannot be probed locally", mt)
			}
			job := domain.CheckJob{
				MonitorID:   "cli",
				TeamID:      "cli",
				MonitorType: mt,
				Target:      args[0],
				TimeoutMS:   timeoutMS,
			}
			if rawConfig != "" {
				if !json.Valid([]byte(rawConfig)) {
					return fmt.Errorf("--config is not valid JSON")
				}
				job.Config = json.RawMessage(rawConfig)
			}
			res := probe.NewExecutor(zap.NewNop(), nil, nil).Run(cmd.Context(), job)
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&typ, "type", "t", string(domain.TypeHTTP), "monitor type")
	cmd.Flags().IntVar(&timeoutMS, "timeout-ms", 10000, "probe timeout in milliseconds")
	cmd.Flags().StringVar(&rawConfig, "config", "", "type-specific config as JSON")
	return cmd
}

func newPushCmd(g *globals) *cobra.Command {
	var token, status, reason string
	cmd := &cobra.Command{
		Use:   "push MONITOR_ID",
		Short: "Send a push report for a heartbeat, webhook or manual monitor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{}
			if status != "" {
				body["status"] = status
			}
			if reason != "" {
				body["reason"] = reason
			}
			b, _ := json.Marshal(body)
			u := strings.TrimRight(g.api, "/") + "/api/push/" + url.PathEscape(args[0])
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, u, bytes.NewReader(b))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Push-Token", token)
			return g.do(req, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&token, "token", os.Getenv("PUSH_TOKEN"), "push token")
	cmd.Flags().StringVar(&status, "status", "", "up|down|degraded")
	cmd.Flags().StringVar(&reason, "reason", "", "optional reason")
	return cmd
}

func newReportCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report TEAM_ID YYYY-MM",
		Short: "Fetch a team's monthly availability report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := availability.UTCMonthRange(args[1]); err != nil {
				return err
			}
			u := fmt.Sprintf("%s/api/teams/%s/reports/%s", strings.TrimRight(g.api, "/"), url.PathEscape(args[0]), args[1])
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, u, nil)
			if err != nil {
				return err
			}
			return g.do(req, cmd.OutOrStdout())
		},
	}
	return cmd
}

func newMonthRangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "month-range YYYY-MM",
		Short: "Print the UTC unix-second bounds of a month",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to, err := availability.UTCMonthRange(args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]int64{"from": from, "to": to})
		},
	}
}

func (g *globals) do(req *http.Request, out io.Writer) error {
	if g.apiKey != "" {
		req.Header.Set("X-API-Key", g.apiKey)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("contacting API: %w", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API returned %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	_, err = out.Write(b)
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

