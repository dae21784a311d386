package secrets

import (
	"context"
	"log/slog"
)

// AuditLogger receives secret access events. Implementations must be
// safe for concurrent use and must never log secret values; only the
// reference, action, and outcome are available to them.
type AuditLogger interface {
	// LogAccess records one access attempt. action names the operation
	// ("resolve", "store", "delete"), ref identifies the secret, success
	// reports the outcome, and err carries the failure if any.
	LogAccess(ctx context.Context, action string, ref SecretRef, success bool, err error)
}

// SlogAuditLogger writes access events through a structured logger.
type SlogAuditLogger struct {
	logger *slog.Logger
}

// NewSlogAuditLogger creates an audit logger backed by the given
// structured logger. A nil logger uses slog.Default().
func NewSlogAuditLogger(logger *slog.Logger) *SlogAuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditLogger{logger: logger}
}

// LogAccess implements AuditLogger.
func (l *SlogAuditLogger) LogAccess(ctx context.Context, action string, ref SecretRef, success bool, err error) {
	attrs := []any{
		slog.String("action", action),
		slog.String("path", ref.Path),
		slog.Bool("success", success),
	}
	if ref.Version != "" {
		attrs = append(attrs, slog.String("version", ref.Version))
	}

	if success {
		l.logger.DebugContext(ctx, "secret access", attrs...)
		return
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.logger.WarnContext(ctx, "secret access failed", attrs...)
}
