package audit

import (
	"context"
	"errors"
	"log/slog"

	"hetu/pkg/platform/privacy"
	"hetu/pkg/requestcontext"
)

// Emitter is the interface for audit event emission.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Logger provides structured audit logging with optional event emission.
// Use this in services to standardize audit logging patterns.
type Logger struct {
	textLogger *slog.Logger
	emitter    Emitter
}

// NewLogger creates an audit logger.
// textLogger is used for structured logging; emitter is optional for event persistence.
func NewLogger(textLogger *slog.Logger, emitter Emitter) *Logger {
	return &Logger{
		textLogger: textLogger,
		emitter:    emitter,
	}
}

// Log logs an audit event to text and optionally emits to the audit sink.
// Automatically enriches with request_id and anonymized client IP from context.
// Emit failures are logged, not propagated; use LogCritical when the caller
// must fail closed.
//
// Usage:
//
//	logger.Log(ctx, string(audit.EventCodeVerified), "subject_hash", hash, "outcome", "valid")
func (l *Logger) Log(ctx context.Context, event string, attributes ...any) {
	if err := l.publish(ctx, event, attributes); err != nil && l.textLogger != nil {
		l.textLogger.ErrorContext(ctx, "failed to emit audit event",
			"error", err,
			"event", event,
		)
	}
}

// LogCritical publishes an audit event that MUST reach the sink. It returns
// an error when no emitter is configured or the emit fails, so the caller
// can block the operation. Use this for privileged actions such as admin
// cache purges.
func (l *Logger) LogCritical(ctx context.Context, event string, attributes ...any) error {
	if l.emitter == nil {
		return errors.New("audit sink not configured")
	}
	return l.publish(ctx, event, attributes)
}

// publish enriches the event from context, writes the text line, and emits
// to the sink. The returned error is the emit error only; text logging never
// fails the publish.
func (l *Logger) publish(ctx context.Context, event string, attributes []any) error {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}

	l.logToText(ctx, event, attributes)

	return l.emitToAudit(ctx, event, requestID, attributes)
}

func (l *Logger) logToText(ctx context.Context, event string, attributes []any) {
	if l.textLogger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit")
	l.textLogger.InfoContext(ctx, event, args...)
}

func (l *Logger) emitToAudit(ctx context.Context, event, requestID string, attributes []any) error {
	if l.emitter == nil {
		return nil
	}

	// Extract known fields from attributes
	return l.emitter.Emit(ctx, Event{
		Timestamp:    requestcontext.Now(ctx),
		Actor:        extractString(attributes, "actor"),
		SubjectHash:  extractString(attributes, "subject_hash"),
		Action:       event,
		Outcome:      extractString(attributes, "outcome"),
		Reason:       extractString(attributes, "reason"),
		ClientIP:     privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
		ClientDevice: extractString(attributes, "client_device"),
		RequestID:    requestID,
	})
}

// extractString pulls a string value for key out of alternating key/value attributes.
func extractString(attributes []any, key string) string {
	for i := 0; i+1 < len(attributes); i += 2 {
		k, ok := attributes[i].(string)
		if !ok || k != key {
			continue
		}
		if v, ok := attributes[i+1].(string); ok {
			return v
		}
	}
	return ""
}
