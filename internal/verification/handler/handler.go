// Package handler exposes identity code verification over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"hetu/internal/attestation"
	"hetu/internal/platform/client"
	"hetu/internal/verification/models"
	"hetu/internal/verification/tracer"
	dErrors "hetu/pkg/domain-errors"
	"hetu/pkg/henkilotunnus"
	"hetu/pkg/platform/audit"
	"hetu/pkg/platform/httputil"
	"hetu/pkg/platform/middleware/admin"
	"hetu/pkg/platform/privacy"
	"hetu/pkg/platform/validation"
	"hetu/pkg/requestcontext"
)

// VerificationService defines the interface for verification operations used
// by handlers.
type VerificationService interface {
	Verify(ctx context.Context, rawCode string) (*models.Verdict, error)
	VerifyBatch(ctx context.Context, rawCodes []string) ([]models.Verdict, error)
	Attest(ctx context.Context, rawCode string) (*models.Verdict, *attestation.Receipt, error)
	PurgeCache(ctx context.Context) (int, error)
}

// Handler handles HTTP requests for verification operations.
type Handler struct {
	service VerificationService
	audit   *audit.Logger
	logger  *slog.Logger
	tracer  tracer.Tracer
}

// HandlerOption configures the Handler.
type HandlerOption func(*Handler)

// WithHandlerTracer sets the tracer for the handler.
// When set, the handler emits audit.emitted span events after audit publishing.
func WithHandlerTracer(t tracer.Tracer) HandlerOption {
	return func(h *Handler) {
		h.tracer = t
	}
}

// New creates a new verification handler.
func New(service VerificationService, auditLog *audit.Logger, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		service: service,
		audit:   auditLog,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the public verification routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verifications", h.HandleVerify)
	r.Post("/verifications/batch", h.HandleVerifyBatch)
	r.Post("/attestations", h.HandleAttest)
}

// RegisterAdmin mounts the admin routes. Callers are expected to wrap the
// router with the admin token middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/cache/purge", h.HandlePurgeCache)
}

// VerifyRequest is the request body for single-code verification.
// IdentityCode is a pointer so an absent or null field is distinguishable
// from an empty string: only the former is a request error. An empty or
// malformed string is a verifiable input that yields an invalid verdict.
type VerifyRequest struct {
	IdentityCode *string `json:"identity_code"`
}

// Validate rejects requests without an identity code. Anything present is
// passed to verification verbatim; the verdict, not the transport, judges it.
func (r *VerifyRequest) Validate() error {
	if r.IdentityCode == nil {
		return dErrors.New(dErrors.CodeValidation, henkilotunnus.ErrMissing.Error())
	}
	return validation.CheckStringLength("identity_code", *r.IdentityCode, validation.MaxIdentityCodeLength)
}

// VerifyBatchRequest is the request body for batch verification.
type VerifyBatchRequest struct {
	IdentityCodes []string `json:"identity_codes"`
}

// Validate bounds the batch between one and the configured maximum.
func (r *VerifyBatchRequest) Validate() error {
	if len(r.IdentityCodes) == 0 {
		return dErrors.New(dErrors.CodeValidation, "identity_codes must contain at least one code")
	}
	if err := validation.CheckSliceCount("identity_codes", len(r.IdentityCodes), validation.MaxBatchCodes); err != nil {
		return err
	}
	return validation.CheckEachStringLength("identity_codes", r.IdentityCodes, validation.MaxIdentityCodeLength)
}

// AttestRequest is the request body for attestation issuance.
type AttestRequest struct {
	IdentityCode *string `json:"identity_code"`
}

// Validate rejects requests without an identity code.
func (r *AttestRequest) Validate() error {
	if r.IdentityCode == nil {
		return dErrors.New(dErrors.CodeValidation, henkilotunnus.ErrMissing.Error())
	}
	return validation.CheckStringLength("identity_code", *r.IdentityCode, validation.MaxIdentityCodeLength)
}

// VerifyResponse is the verdict payload for verification endpoints.
// Decoded fields are present only for valid codes.
type VerifyResponse struct {
	Valid       bool   `json:"valid"`
	Reason      string `json:"reason,omitempty"`
	BirthDate   string `json:"birth_date,omitempty"`
	Sex         string `json:"sex,omitempty"`
	Age         *int   `json:"age,omitempty"`
	Adult       *bool  `json:"adult,omitempty"`
	SubjectHash string `json:"subject_hash"`
	CheckedAt   string `json:"checked_at"`
}

// VerifyBatchResponse is the response body for batch verification.
type VerifyBatchResponse struct {
	Results []VerifyResponse `json:"results"`
	Count   int              `json:"count"`
}

// AttestResponse is the response body for attestation issuance.
type AttestResponse struct {
	Attestation string `json:"attestation"`
	SubjectHash string `json:"subject_hash"`
	IssuedAt    string `json:"issued_at"`
	ExpiresAt   string `json:"expires_at"`
}

// PurgeCacheResponse is the response body for the admin cache purge.
type PurgeCacheResponse struct {
	PurgedEntries int    `json:"purged_entries"`
	PurgedAt      string `json:"purged_at"`
}

// HandleVerify handles POST /verifications requests.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	// Decode and validate request
	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	verdict, err := h.service.Verify(ctx, *req.IdentityCode)
	if err != nil {
		h.logger.ErrorContext(ctx, "verification failed",
			"request_id", requestID,
			"identity_code_suffix", privacy.RedactIdentityCode(*req.IdentityCode),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.auditVerdict(ctx, string(audit.EventCodeVerified), verdict)

	httputil.WriteJSON(w, http.StatusOK, toVerifyResponse(verdict))
}

// HandleVerifyBatch handles POST /verifications/batch requests.
func (h *Handler) HandleVerifyBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	// Decode and validate request
	req, ok := httputil.DecodeAndPrepare[VerifyBatchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	verdicts, err := h.service.VerifyBatch(ctx, req.IdentityCodes)
	if err != nil {
		h.logger.ErrorContext(ctx, "batch verification failed",
			"request_id", requestID,
			"batch_size", len(req.IdentityCodes),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.auditBatch(ctx, verdicts)

	response := VerifyBatchResponse{
		Results: make([]VerifyResponse, 0, len(verdicts)),
		Count:   len(verdicts),
	}
	for i := range verdicts {
		response.Results = append(response.Results, toVerifyResponse(&verdicts[i]))
	}

	httputil.WriteJSON(w, http.StatusOK, response)
}

// HandleAttest handles POST /attestations requests.
func (h *Handler) HandleAttest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	// Decode and validate request
	req, ok := httputil.DecodeAndPrepare[AttestRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	verdict, receipt, err := h.service.Attest(ctx, *req.IdentityCode)
	if err != nil {
		// A completed verification that failed is compliance-relevant even
		// though no receipt was issued.
		if verdict != nil && !verdict.Valid {
			h.auditRejectedAttestation(ctx, verdict)
		}
		h.logger.WarnContext(ctx, "attestation refused",
			"request_id", requestID,
			"identity_code_suffix", privacy.RedactIdentityCode(*req.IdentityCode),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.auditIssuedAttestation(ctx, verdict, receipt)

	httputil.WriteJSON(w, http.StatusOK, AttestResponse{
		Attestation: receipt.Token,
		SubjectHash: verdict.SubjectHash,
		IssuedAt:    receipt.IssuedAt.Format(time.RFC3339),
		ExpiresAt:   receipt.ExpiresAt.Format(time.RFC3339),
	})
}

// HandlePurgeCache handles POST /admin/cache/purge requests.
func (h *Handler) HandlePurgeCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	actorID := admin.GetAdminActorID(ctx)

	purged, err := h.service.PurgeCache(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "cache purge failed",
			"request_id", requestID,
			"admin_actor_id", actorID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	// Privileged action: the audit record must exist before the response.
	if err := h.auditCachePurge(ctx, actorID, purged); err != nil {
		h.logger.ErrorContext(ctx, "CRITICAL: audit failed for cache purge - blocking response",
			"request_id", requestID,
			"admin_actor_id", actorID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "unable to complete cache purge"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, PurgeCacheResponse{
		PurgedEntries: purged,
		PurgedAt:      requestcontext.Now(ctx).Format(time.RFC3339),
	})
}

// toVerifyResponse maps a verdict to its wire shape. Decoded fields are
// attached only for valid codes so invalid verdicts don't carry zero values
// that look like data.
func toVerifyResponse(verdict *models.Verdict) VerifyResponse {
	response := VerifyResponse{
		Valid:       verdict.Valid,
		Reason:      string(verdict.Reason),
		SubjectHash: verdict.SubjectHash,
		CheckedAt:   verdict.CheckedAt.Format(time.RFC3339),
	}
	if verdict.Valid {
		age := verdict.Age
		adult := verdict.Adult
		response.BirthDate = verdict.BirthDate.Format("2006-01-02")
		response.Sex = verdict.Sex
		response.Age = &age
		response.Adult = &adult
	}
	return response
}

// auditVerdict publishes a verification audit event. Failures are logged but
// don't fail the operation.
func (h *Handler) auditVerdict(ctx context.Context, action string, verdict *models.Verdict) {
	if h.audit == nil {
		return
	}
	outcome := "invalid"
	if verdict.Valid {
		outcome = "valid"
	}
	attributes := []any{
		"subject_hash", verdict.SubjectHash,
		"outcome", outcome,
		"client_device", client.Describe(requestcontext.UserAgent(ctx)),
	}
	if !verdict.Valid {
		attributes = append(attributes, "reason", string(verdict.Reason))
	}
	h.audit.Log(ctx, action, attributes...)
	h.emitAuditSpanEvent(ctx, action)
}

// auditBatch publishes a single audit event for a batch verification.
// Per-code events would flood the trail; the batch size and invalid count
// give the compliance view.
func (h *Handler) auditBatch(ctx context.Context, verdicts []models.Verdict) {
	if h.audit == nil {
		return
	}
	invalid := 0
	for i := range verdicts {
		if !verdicts[i].Valid {
			invalid++
		}
	}
	h.audit.Log(ctx, string(audit.EventBatchVerified),
		"outcome", "completed",
		"batch_size", strconv.Itoa(len(verdicts)),
		"invalid_count", strconv.Itoa(invalid),
		"client_device", client.Describe(requestcontext.UserAgent(ctx)),
	)
	h.emitAuditSpanEvent(ctx, string(audit.EventBatchVerified))
}

// auditIssuedAttestation publishes an audit event for an issued receipt.
func (h *Handler) auditIssuedAttestation(ctx context.Context, verdict *models.Verdict, receipt *attestation.Receipt) {
	if h.audit == nil {
		return
	}
	h.audit.Log(ctx, string(audit.EventAttestationIssued),
		"subject_hash", verdict.SubjectHash,
		"outcome", "issued",
		"receipt_id", receipt.ID,
		"client_device", client.Describe(requestcontext.UserAgent(ctx)),
	)
	h.emitAuditSpanEvent(ctx, string(audit.EventAttestationIssued))
}

// auditRejectedAttestation publishes an audit event for an attestation
// refused because the code failed verification.
func (h *Handler) auditRejectedAttestation(ctx context.Context, verdict *models.Verdict) {
	if h.audit == nil {
		return
	}
	h.audit.Log(ctx, string(audit.EventAttestationIssued),
		"subject_hash", verdict.SubjectHash,
		"outcome", "rejected",
		"reason", string(verdict.Reason),
		"client_device", client.Describe(requestcontext.UserAgent(ctx)),
	)
	h.emitAuditSpanEvent(ctx, string(audit.EventAttestationIssued))
}

// auditCachePurge publishes the purge audit event with fail-closed
// semantics: the caller must not return success if this fails.
func (h *Handler) auditCachePurge(ctx context.Context, actorID string, purged int) error {
	if h.audit == nil {
		return dErrors.New(dErrors.CodeInternal, "audit system unavailable")
	}
	err := h.audit.LogCritical(ctx, string(audit.EventCachePurged),
		"actor", actorID,
		"outcome", "purged",
		"entries_removed", strconv.Itoa(purged),
		"client_device", client.Describe(requestcontext.UserAgent(ctx)),
	)
	if err != nil {
		return err
	}
	h.emitAuditSpanEvent(ctx, string(audit.EventCachePurged))
	return nil
}

// emitAuditSpanEvent adds an audit.emitted span event to the current trace if a tracer is configured.
// This correlates audit logs with distributed traces for compliance analysis.
func (h *Handler) emitAuditSpanEvent(ctx context.Context, action string) {
	if h.tracer == nil {
		return
	}
	// Get or create a span from context to add the event
	// Since we're adding an event to an existing span, we start a minimal span
	// that ends immediately after adding the event
	_, span := h.tracer.Start(ctx, "audit.publish",
		tracer.String("audit.action", action),
	)
	if span != nil {
		span.AddEvent(tracer.EventAuditEmitted,
			tracer.String("audit.action", action),
		)
		span.End(nil)
	}
}
