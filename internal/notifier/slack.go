package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/amishk599/mcfradar/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier posts run summaries to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each summary to Slack.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends the summary as one Block Kit message, retrying once when
// Slack rate limits the webhook.
func (s *SlackNotifier) Notify(ctx context.Context, sum model.RunSummary) error {
	body, err := json.Marshal(buildPayload(sum))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryAfter):
		}
		if status, _, err = s.post(ctx, body); err != nil {
			return fmt.Errorf("retry: %w", err)
		}
	}
	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	s.logger.Info("slack summary sent", "run_id", sum.RunID)
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	if secs <= 0 {
		secs = 1
	}
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTestMessage sends a sample summary to verify the integration works.
func SendTestMessage(ctx context.Context, n model.Notifier) error {
	return n.Notify(ctx, model.RunSummary{
		RunID:    model.NewRunID(time.Now()),
		Kind:     model.RunFull,
		Counts:   model.RunCounts{TotalSeen: 3, Added: 1, Maintained: 1, Removed: 1},
		Complete: true,
		Duration: 42 * time.Second,
	})
}

func headline(sum model.RunSummary) string {
	switch {
	case sum.Interrupted:
		return "⚠️ Crawl interrupted"
	case sum.Complete:
		return "✅ Full crawl finished"
	default:
		return "🔎 Partial crawl finished"
	}
}

func buildPayload(sum model.RunSummary) slackPayload {
	c := sum.Counts
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: headline(sum)},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Run:*\n" + sum.RunID},
				{Type: "mrkdwn", Text: "*Kind:*\n" + string(sum.Kind)},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: fmt.Sprintf("*Seen:*\n%d", c.TotalSeen)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Added:*\n%d", c.Added)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Maintained:*\n%d", c.Maintained)},
				{Type: "mrkdwn", Text: fmt.Sprintf("*Removed:*\n%d", c.Removed)},
			},
		},
	}

	if sum.DetailErrors > 0 || !sum.Complete {
		note := fmt.Sprintf("Took %s.", sum.Duration.Round(time.Second))
		if !sum.Complete {
			note += " Partial view, nothing was deactivated."
		}
		if sum.DetailErrors > 0 {
			note += fmt.Sprintf(" %d detail fetches failed and will be retried next run.", sum.DetailErrors)
		}
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: note},
		})
	}

	blocks = append(blocks, slackBlock{Type: "divider"})
	return slackPayload{Blocks: blocks}
}
