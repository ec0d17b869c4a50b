package notifier

import (
	"context"
	"log/slog"
	"time"

	"github.com/amishk599/mcfradar/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes run summaries to the given logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each summary via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the summary. It never fails.
func (n *LogNotifier) Notify(_ context.Context, s model.RunSummary) error {
	args := []any{
		"run_id", s.RunID,
		"kind", s.Kind,
		"seen", s.Counts.TotalSeen,
		"added", s.Counts.Added,
		"maintained", s.Counts.Maintained,
		"removed", s.Counts.Removed,
		"complete", s.Complete,
		"duration", s.Duration.Round(time.Second),
	}
	if s.DetailErrors > 0 {
		args = append(args, "detail_errors", s.DetailErrors)
	}
	if s.Interrupted {
		n.logger.Warn("crawl interrupted", args...)
		return nil
	}
	n.logger.Info("crawl summary", args...)
	return nil
}
