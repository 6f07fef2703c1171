// Package notify defines the outbound notification port. The core only
// decides when to notify; presentation is the collaborator's problem, so
// every implementation is fire-and-forget.
package notify

import (
	"context"
	"log/slog"

	id "deicer/pkg/domain"
)

// Request is one notification the monitor wants delivered.
type Request struct {
	Title    string      `json:"title"`
	Body     string      `json:"body"`
	MarkerID id.MarkerID `json:"marker_id"`
}

// Notifier accepts notification requests for delivery.
type Notifier interface {
	Notify(ctx context.Context, req Request) error
}

// LogNotifier writes notification requests to the log. The default sink in
// development and in deployments without a delivery pipeline.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, req Request) error {
	n.logger.InfoContext(ctx, "notification request",
		"marker_id", req.MarkerID,
		"title", req.Title,
		"body", req.Body,
	)
	return nil
}
