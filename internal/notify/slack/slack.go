// Package slack sends assessment notifications to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/acuity/internal/assessment"
	"github.com/linnemanlabs/acuity/internal/risk"
)

const (
	maxNarrativeLen = 3000
	maxListItems    = 8
	httpTimeout     = 10 * time.Second
)

// Notifier sends assessment verdicts to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts an assessment verdict to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, a *assessment.Assessment) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(a)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(a *assessment.Assessment) map[string]any {
	blocks := []map[string]any{
		headerBlock(a),
		{"type": "divider"},
		fieldsBlock(a),
	}
	if a.Result != nil && len(a.Result.RiskFactors) > 0 {
		blocks = append(blocks, map[string]any{"type": "divider"}, factorsBlock(a.Result))
	}
	if a.Explanation != "" {
		blocks = append(blocks, map[string]any{"type": "divider"}, narrativeBlock(a))
	}
	blocks = append(blocks, map[string]any{"type": "divider"}, contextBlock(a))

	return map[string]any{"blocks": blocks}
}

func headerBlock(a *assessment.Assessment) map[string]any {
	tier := risk.TierLow
	if a.Result != nil {
		tier = a.Result.Tier
	}
	text := fmt.Sprintf("%s Assessment Complete: %s risk", tierEmoji(tier), strings.ToUpper(tier.String()))
	if a.Status == assessment.StatusFailed {
		text = "\U0001f534 Assessment Failed"
	}

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(a *assessment.Assessment) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Patient:* %s", orDash(a.PatientRef)),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Duration:* %.1fs", a.Duration),
		},
	}

	if r := a.Result; r != nil {
		fields = append(fields,
			map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Score:* %.2f (%.2f-%.2f)", r.Score, r.Interval.Lower, r.Interval.Upper),
			},
			map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Confidence:* %.2f", r.Confidence),
			},
		)
		if len(r.TriggeredRules) > 0 {
			fields = append(fields, map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Triggered:* %s", strings.Join(capList(r.TriggeredRules), ", ")),
			})
		}
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func factorsBlock(r *risk.Result) map[string]any {
	var b strings.Builder
	b.WriteString("*Risk factors*\n")
	for _, f := range capList(r.RiskFactors) {
		fmt.Fprintf(&b, "• %s\n", f)
	}
	if extra := len(r.RiskFactors) - maxListItems; extra > 0 {
		fmt.Fprintf(&b, "_and %d more_\n", extra)
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": strings.TrimRight(b.String(), "\n"),
		},
	}
}

func narrativeBlock(a *assessment.Assessment) map[string]any {
	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Narrative*\n\n%s", truncate(a.Explanation, maxNarrativeLen)),
		},
	}
}

func contextBlock(a *assessment.Assessment) map[string]any {
	ts := a.CompletedAt
	if ts.IsZero() {
		ts = a.CreatedAt
	}

	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("acuity • assessment %s • %s", a.ID, ts.UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func tierEmoji(tier risk.Tier) string {
	switch tier {
	case risk.TierCritical:
		return "\U0001f6a8" // rotating light
	case risk.TierHigh:
		return "\U0001f534" // red circle
	case risk.TierModerate:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func capList(items []string) []string {
	if len(items) > maxListItems {
		return items[:maxListItems]
	}
	return items
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
