package notifier

import (
	"context"
	"log/slog"

	"arcop/internal/domain"
)

// Log writes each email to the structured log instead of sending it. It is
// the default when no SMTP relay is configured, which keeps local runs and
// demos working without a mail server.
type Log struct {
	logger   *slog.Logger
	renderer *Renderer
}

func NewLog(logger *slog.Logger, settings Settings) *Log {
	return &Log{logger: logger, renderer: NewRenderer(settings)}
}

func (n *Log) SendConfirmation(ctx context.Context, req domain.Request) error {
	subject, _, err := n.renderer.Confirmation(req)
	if err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "email suppressed, no smtp relay configured",
		"to", req.Email, "subject", subject, "number", req.Number)
	return nil
}

func (n *Log) SendIdentityConfirmed(ctx context.Context, req domain.Request) error {
	subject, _, err := n.renderer.IdentityConfirmed(req)
	if err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "email suppressed, no smtp relay configured",
		"to", req.Email, "subject", subject, "number", req.Number)
	return nil
}

func (n *Log) SendDataReady(ctx context.Context, req domain.Request) error {
	subject, _, err := n.renderer.DataReady(req)
	if err != nil {
		return err
	}
	n.logger.InfoContext(ctx, "email suppressed, no smtp relay configured",
		"to", req.Email, "subject", subject, "number", req.Number)
	return nil
}
