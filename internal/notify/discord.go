package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kubo-market/minio-sentinel/internal/domain"
)

const sendTimeout = 5 * time.Second

// Severity embed colors.
const (
	colorLow    = 0xFFA500
	colorMedium = 0xFF6600
	colorHigh   = 0xFF0000
)

// Notifier delivers anomaly alerts to a Discord webhook.
type Notifier struct {
	webhookURL string
	httpc      *http.Client
}

// NewNotifier creates a Notifier for the given webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		httpc:      &http.Client{Timeout: sendTimeout},
	}
}

type payload struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Title  string  `json:"title"`
	Color  int     `json:"color"`
	Fields []field `json:"fields"`
	Footer footer  `json:"footer"`
}

type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type footer struct {
	Text string `json:"text"`
}

// Send posts a formatted alert embed. Delivery failures are returned to the
// caller for logging; they never block or retry.
func (n *Notifier) Send(ctx context.Context, a domain.Alert) error {
	body, err := json.Marshal(payload{Embeds: []embed{buildEmbed(a)}})
	if err != nil {
		return fmt.Errorf("marshal embed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func buildEmbed(a domain.Alert) embed {
	color := colorMedium
	switch a.Severity {
	case domain.SeverityHigh:
		color = colorHigh
	case domain.SeverityLow:
		color = colorLow
	}

	title := a.DisplayName
	if title == "" {
		title = a.Metric
	}

	e := embed{
		Title: fmt.Sprintf("🚨 %s Anomaly Detected", title),
		Color: color,
		Fields: []field{
			{Name: "Severity", Value: string(a.Severity), Inline: true},
			{Name: "Current Value", Value: fmt.Sprintf("`%s`", formatValue(a.Value, a)), Inline: true},
			{Name: "Expected Range", Value: fmt.Sprintf("`%s - %s`", formatValue(a.LowerBound, a), formatValue(a.UpperBound, a))},
			{Name: "Triggered Rule", Value: ruleText(a)},
			{Name: "Timestamp", Value: a.FiredAt.Format(time.RFC3339)},
		},
		Footer: footer{Text: "minio-sentinel"},
	}
	if a.Insight != "" {
		e.Fields = append(e.Fields, field{Name: "Insight", Value: a.Insight})
	}
	return e
}

// formatValue renders a raw metric value in the alert's display unit.
func formatValue(v float64, a domain.Alert) string {
	if a.DisplayDivisor > 0 && a.DisplayDivisor != 1 {
		v /= a.DisplayDivisor
	}
	if a.Unit != "" {
		return fmt.Sprintf("%.2f %s", v, a.Unit)
	}
	return fmt.Sprintf("%.2f", v)
}

func ruleText(a domain.Alert) string {
	switch a.Rule {
	case domain.RuleZScore:
		return fmt.Sprintf("z-score (z=%.2f)", a.ZScore)
	case domain.RuleRateOfChange:
		return fmt.Sprintf("rate of change (%+.1f%%)", a.PercentChange)
	case domain.RuleBoth:
		return fmt.Sprintf("z-score (z=%.2f) + rate of change (%+.1f%%)", a.ZScore, a.PercentChange)
	}
	return string(a.Rule)
}
