package observability

import (
	"context"
	"log/slog"
)

// Audit mirrors a security-relevant event to the structured log stream. The
// durable audit trail lives in storage; this is the operational copy.
func Audit(ctx context.Context, event string, attrs ...any) {
	base := []any{"event", event}
	base = append(base, attrs...)
	slog.InfoContext(ctx, "audit", base...)
}
