package audit

import (
	"context"
	"log/slog"

	"claimsreg/pkg/requestcontext"
)

// Emitter is the interface for audit event emission.
// Satisfied by publisher.Publisher.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Logger writes an audit line to the structured log and forwards the event to
// the emitter. Services use it so every state change is recorded the same way.
type Logger struct {
	textLogger *slog.Logger
	emitter    Emitter
}

// NewLogger creates an audit logger. Both arguments are optional.
func NewLogger(textLogger *slog.Logger, emitter Emitter) *Logger {
	return &Logger{textLogger: textLogger, emitter: emitter}
}

// Log records event. The request ID is taken from ctx when not already set.
func (l *Logger) Log(ctx context.Context, action AuditEvent, event Event) {
	if l == nil {
		return
	}
	event.Action = string(action)
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	l.logToText(ctx, event)
	l.emitToAudit(ctx, event)
}

func (l *Logger) logToText(ctx context.Context, event Event) {
	if l.textLogger == nil {
		return
	}
	args := []any{"event", event.Action, "log_type", "audit"}
	args = appendAddr(args, "subject", event.Subject.IsNil(), event.Subject.String())
	args = appendAddr(args, "claim_type", event.ClaimType.IsNil(), event.ClaimType.String())
	args = appendAddr(args, "issuer", event.Issuer.IsNil(), event.Issuer.String())
	args = appendAddr(args, "owner", event.Owner.IsNil(), event.Owner.String())
	args = appendAddr(args, "signer", event.Signer.IsNil(), event.Signer.String())
	args = appendAddr(args, "store_ref", event.StoreRef.IsNil(), event.StoreRef.String())
	args = appendAddr(args, "actor", event.Actor.IsNil(), event.Actor.String())
	if event.Outcome != "" {
		args = append(args, "outcome", event.Outcome)
	}
	if event.RequestID != "" {
		args = append(args, "request_id", event.RequestID)
	}
	l.textLogger.InfoContext(ctx, event.Action, args...)
}

func (l *Logger) emitToAudit(ctx context.Context, event Event) {
	if l.emitter == nil {
		return
	}
	if err := l.emitter.Emit(ctx, event); err != nil && l.textLogger != nil {
		l.textLogger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"event", event.Action,
		)
	}
}

func appendAddr(args []any, key string, isNil bool, value string) []any {
	if isNil {
		return args
	}
	return append(args, key, value)
}
