package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// SlogEmitter writes audit events to a structured logger. It is the default
// production sink: the audit trail is the service's JSON log stream,
// filterable by log_type=audit and the event category.
type SlogEmitter struct {
	logger *slog.Logger
}

// NewSlogEmitter creates an emitter backed by the given logger.
func NewSlogEmitter(logger *slog.Logger) *SlogEmitter {
	return &SlogEmitter{logger: logger}
}

// Emit writes the event as one structured log line. Empty fields are
// omitted so public-endpoint events don't carry blank actor attributes.
func (e *SlogEmitter) Emit(ctx context.Context, event Event) error {
	if e.logger == nil {
		return errors.New("audit emitter has no logger")
	}

	args := []any{
		"log_type", "audit",
		"category", string(AuditEvent(event.Action).Category()),
	}
	if !event.Timestamp.IsZero() {
		args = append(args, "event_time", event.Timestamp.Format(time.RFC3339))
	}
	if event.Actor != "" {
		args = append(args, "actor", event.Actor)
	}
	if event.SubjectHash != "" {
		args = append(args, "subject_hash", event.SubjectHash)
	}
	if event.Outcome != "" {
		args = append(args, "outcome", event.Outcome)
	}
	if event.Reason != "" {
		args = append(args, "reason", event.Reason)
	}
	if event.ClientIP != "" {
		args = append(args, "client_ip", event.ClientIP)
	}
	if event.ClientDevice != "" {
		args = append(args, "client_device", event.ClientDevice)
	}
	if event.RequestID != "" {
		args = append(args, "request_id", event.RequestID)
	}

	e.logger.InfoContext(ctx, event.Action, args...)
	return nil
}

// Verify interface is satisfied.
var _ Emitter = (*SlogEmitter)(nil)
