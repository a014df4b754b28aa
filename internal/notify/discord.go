package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/donaldgifford/wb-seller-tracker/internal/metrics"
	domain "github.com/donaldgifford/wb-seller-tracker/pkg/types"
)

const (
	colorRed    = 0xE74C3C // failed
	colorOrange = 0xE67E22 // timed out
	colorYellow = 0xF1C40F // low balance, overflow

	maxEmbeds = 10
)

// DiscordNotifier implements Notifier via Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string, opts ...DiscordOption) *DiscordNotifier {
	d := &DiscordNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscordOption configures a DiscordNotifier.
type DiscordOption func(*DiscordNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordNotifier) {
		d.client = c
	}
}

// discordWebhookPayload is the Discord webhook JSON structure.
type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// SendTaskAlert sends a single task alert as a Discord embed.
func (d *DiscordNotifier) SendTaskAlert(ctx context.Context, alert *TaskAlert) error {
	return d.post(ctx, discordWebhookPayload{Embeds: []discordEmbed{taskEmbed(alert)}})
}

// SendTaskAlerts sends multiple task alerts as a single Discord message.
func (d *DiscordNotifier) SendTaskAlerts(ctx context.Context, alerts []TaskAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	limit := min(len(alerts), maxEmbeds)
	embeds := make([]discordEmbed, 0, limit+1)
	for i := range limit {
		embeds = append(embeds, taskEmbed(&alerts[i]))
	}

	if len(alerts) > maxEmbeds {
		embeds = append(embeds, discordEmbed{
			Title:       fmt.Sprintf("... and %d more finished tasks", len(alerts)-maxEmbeds),
			Color:       colorYellow,
			Description: "Check GET /api/v1/tasks for the full list.",
		})
	}

	return d.post(ctx, discordWebhookPayload{Embeds: embeds})
}

// SendBalanceAlert sends a low balance warning.
func (d *DiscordNotifier) SendBalanceAlert(ctx context.Context, alert *BalanceAlert) error {
	cur := alert.Currency
	if cur == "" {
		cur = "RUB"
	}
	embed := discordEmbed{
		Title: "Low balance",
		Color: colorYellow,
		Fields: []discordEmbedField{
			{Name: "Current", Value: money(alert.Current, cur), Inline: true},
			{Name: "For withdraw", Value: money(alert.ForWithdraw, cur), Inline: true},
			{Name: "Threshold", Value: money(alert.Threshold, cur), Inline: true},
		},
	}
	if !alert.CapturedAt.IsZero() {
		embed.Timestamp = alert.CapturedAt.UTC().Format(time.RFC3339)
	}
	return d.post(ctx, discordWebhookPayload{Embeds: []discordEmbed{embed}})
}

func taskEmbed(alert *TaskAlert) discordEmbed {
	title := fmt.Sprintf("Task %s: %s", outcomeWord(alert.Outcome), alert.ExternalID)
	if alert.Label != "" {
		title += " (" + alert.Label + ")"
	}
	embed := discordEmbed{
		Title: title,
		Color: outcomeColor(alert.Outcome),
		Fields: []discordEmbedField{
			{Name: "Kind", Value: string(alert.Kind), Inline: true},
			{Name: "Status", Value: orDash(alert.Status), Inline: true},
			{Name: "Errors", Value: strconv.Itoa(alert.Errors), Inline: true},
		},
	}
	if alert.ErrorText != "" {
		embed.Description = alert.ErrorText
	}
	return embed
}

func outcomeWord(o domain.TaskOutcome) string {
	switch o {
	case domain.OutcomeTimedOut:
		return "timed out"
	case domain.OutcomeFailed:
		return "failed"
	default:
		return string(o)
	}
}

func outcomeColor(o domain.TaskOutcome) int {
	if o == domain.OutcomeTimedOut {
		return colorOrange
	}
	return colorRed
}

func money(v float64, currency string) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + " " + currency
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (d *DiscordNotifier) post(ctx context.Context, payload discordWebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	metrics.NotificationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("sending discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("discord returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, respBody)
	}

	metrics.NotificationLastSuccessTimestamp.SetToCurrentTime()
	return nil
}
