package audit

import (
	"time"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// SubjectHash carries a one-way hash of the identity code. The raw code must
// never enter an audit trail; callers hash before emitting.
type Event struct {
	Timestamp    time.Time
	Actor        string // admin actor ID, or empty for public endpoints
	SubjectHash  string // hashed identity code
	Action       string
	Outcome      string // valid, invalid, issued, rejected, purged
	Reason       string // failure category for invalid outcomes
	ClientIP     string // anonymized network prefix, never the full address
	ClientDevice string // human-readable descriptor derived from User-Agent
	RequestID    string // correlation ID from HTTP request context
}

type AuditEvent string

const (
	EventCodeVerified      AuditEvent = "identity.verify"
	EventBatchVerified     AuditEvent = "identity.verify_batch"
	EventAttestationIssued AuditEvent = "identity.attest"
	EventCachePurged       AuditEvent = "admin.cache_purge"
)

// Category classifies audit events for retention and alerting policy.
type Category string

const (
	// CategoryCompliance covers events that process personal data and feed
	// regulatory audit trails.
	CategoryCompliance Category = "compliance"
	// CategorySecurity covers privileged or security-sensitive actions.
	CategorySecurity Category = "security"
	// CategoryOperations covers routine operational events.
	CategoryOperations Category = "operations"
)

// Category returns the retention category for the event.
// Unknown events default to CategoryOperations so a new event type cannot
// silently inflate compliance or security trails.
func (e AuditEvent) Category() Category {
	switch e {
	case EventCodeVerified, EventBatchVerified, EventAttestationIssued:
		return CategoryCompliance
	case EventCachePurged:
		return CategorySecurity
	default:
		return CategoryOperations
	}
}
