// Package service orchestrates identity code verification: cache lookup,
// core parsing, verdict assembly, and instrumentation.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"hetu/internal/attestation"
	"hetu/internal/verification/metrics"
	"hetu/internal/verification/models"
	"hetu/internal/verification/store"
	"hetu/internal/verification/tracer"
	dErrors "hetu/pkg/domain-errors"
	"hetu/pkg/henkilotunnus"
	"hetu/pkg/requestcontext"
)

// maxBatchConcurrency bounds the verification fan-out for batch requests.
// Verification is CPU-bound; a small pool keeps batches from starving
// single-code requests.
const maxBatchConcurrency = 8

// Service coordinates verification of identity codes with caching and
// instrumentation. Verdicts are cached by subject hash so repeated checks of
// the same code within the TTL are served without re-parsing.
type Service struct {
	cache   ResultCache
	issuer  ReceiptIssuer
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	logger  *slog.Logger
}

// ResultCache defines the interface for verdict caching operations.
type ResultCache interface {
	Find(ctx context.Context, subjectHash string) (*models.Verdict, error)
	Save(ctx context.Context, verdict *models.Verdict) error
	Purge(ctx context.Context) int
	Len() int
}

// ReceiptIssuer defines the interface for signing verification receipts.
type ReceiptIssuer interface {
	Issue(ctx context.Context, verdict *models.Verdict) (*attestation.Receipt, error)
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the Prometheus metrics collector for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer for the service.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithReceiptIssuer enables the attestation operation.
func WithReceiptIssuer(issuer ReceiptIssuer) Option {
	return func(s *Service) {
		s.issuer = issuer
	}
}

// New creates a new verification service. The cache may be nil, in which
// case every verification is computed fresh.
func New(cache ResultCache, opts ...Option) *Service {
	s := &Service{
		cache: cache,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = tracer.NewNoop()
	}
	return s
}

// Verify checks a single identity code and returns its verdict.
//
// An invalid code is not an error: the verdict reports Valid=false with a
// reason category. An error is returned only when verification itself could
// not run, such as a failing cache backend.
func (s *Service) Verify(ctx context.Context, rawCode string) (*models.Verdict, error) {
	start := time.Now()
	subjectHash := henkilotunnus.HashCode(rawCode)

	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify,
		tracer.String(tracer.AttrSubjectHash, subjectHash),
	)

	// Phase 1: Check cache
	verdict, cacheHit, err := s.checkCache(ctx, subjectHash)
	if err != nil {
		span.End(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "verdict cache lookup failed")
	}

	// Phase 2: Evaluate and commit on miss
	if !cacheHit {
		verdict = s.evaluate(ctx, rawCode, subjectHash)
		s.commitCache(ctx, verdict)
	}

	s.recordVerification(verdict, cacheHit, time.Since(start))

	span.SetAttributes(
		tracer.Bool(tracer.AttrValid, verdict.Valid),
		tracer.Bool(tracer.AttrCacheHit, cacheHit),
	)
	if !verdict.Valid {
		span.SetAttributes(tracer.String(tracer.AttrReason, string(verdict.Reason)))
	}
	span.End(nil)

	return verdict, nil
}

// VerifyBatch checks a batch of identity codes and returns one verdict per
// input, in input order. Individual invalid codes do not fail the batch;
// only infrastructure errors do. Batch size limits are enforced at the
// transport boundary.
func (s *Service) VerifyBatch(ctx context.Context, rawCodes []string) ([]models.Verdict, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerifyBatch,
		tracer.Int64(tracer.AttrBatchSize, int64(len(rawCodes))),
	)

	// Each goroutine writes only its own index, avoiding data races.
	verdicts := make([]models.Verdict, len(rawCodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBatchConcurrency)
	for i, rawCode := range rawCodes {
		g.Go(func() error {
			verdict, err := s.Verify(gctx, rawCode)
			if err != nil {
				return err
			}
			verdicts[i] = *verdict
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.End(err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ObserveBatchSize(len(rawCodes))
	}
	span.End(nil)

	return verdicts, nil
}

// Attest verifies an identity code and issues a signed receipt for it.
// Unlike Verify, a failed verification is an error here: receipts exist only
// for valid codes.
func (s *Service) Attest(ctx context.Context, rawCode string) (*models.Verdict, *attestation.Receipt, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanAttestationIssue,
		tracer.String(tracer.AttrSubjectHash, henkilotunnus.HashCode(rawCode)),
	)

	if s.issuer == nil {
		err := dErrors.New(dErrors.CodeInternal, "receipt issuer not configured")
		span.End(err)
		return nil, nil, err
	}

	verdict, err := s.Verify(ctx, rawCode)
	if err != nil {
		span.End(err)
		return nil, nil, err
	}
	if !verdict.Valid {
		err := dErrors.New(dErrors.CodeUnprocessable, "identity code failed verification: "+string(verdict.Reason))
		span.End(err)
		return verdict, nil, err
	}

	receipt, err := s.issuer.Issue(ctx, verdict)
	if err != nil {
		span.End(err)
		return verdict, nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordAttestationIssued()
	}

	span.End(nil)
	return verdict, receipt, nil
}

// PurgeCache drops every cached verdict and reports how many were removed.
func (s *Service) PurgeCache(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanCachePurge)

	if s.cache == nil {
		span.End(nil)
		return 0, nil
	}

	purged := s.cache.Purge(ctx)
	if s.metrics != nil {
		s.metrics.RecordCachePurge()
		s.metrics.SetCacheEntries(s.cache.Len())
	}
	s.logger.InfoContext(ctx, "verification cache purged", "entries_removed", purged)

	span.SetAttributes(tracer.Int64(tracer.AttrPurgedEntries, int64(purged)))
	span.End(nil)

	return purged, nil
}

// checkCache retrieves a cached verdict by subject hash.
// Returns the verdict (if cached), a flag indicating a cache hit, and any
// error other than a plain miss.
func (s *Service) checkCache(ctx context.Context, subjectHash string) (*models.Verdict, bool, error) {
	if s.cache == nil {
		return nil, false, nil
	}
	cached, err := s.cache.Find(ctx, subjectHash)
	if err == nil {
		return cached, true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}
	return nil, false, nil
}

// evaluate runs the core parse and assembles a verdict. It never fails: a
// code the parser rejects becomes an invalid verdict with a reason category.
func (s *Service) evaluate(ctx context.Context, rawCode, subjectHash string) *models.Verdict {
	now := requestcontext.Now(ctx)
	verdict := &models.Verdict{
		SubjectHash: subjectHash,
		Code:        rawCode,
		CheckedAt:   now,
	}

	id, err := henkilotunnus.Parse(rawCode)
	if err != nil {
		verdict.Reason = failureReason(err)
		return verdict
	}

	birthDate := id.BirthDate()
	verdict.Valid = true
	verdict.BirthDate = birthDate
	verdict.Sex = string(id.Sex())
	verdict.Age = henkilotunnus.Age(birthDate, now)
	verdict.Adult = henkilotunnus.IsAdult(birthDate, now)
	return verdict
}

// commitCache saves a verdict to the cache. Save failures are logged, not
// propagated; the verdict is still correct without a cache entry.
func (s *Service) commitCache(ctx context.Context, verdict *models.Verdict) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, verdict); err != nil {
		s.logger.WarnContext(ctx, "failed to cache verdict",
			"subject_hash", verdict.SubjectHash,
			"error", err,
		)
		return
	}
	if s.metrics != nil {
		s.metrics.SetCacheEntries(s.cache.Len())
	}
}

// recordVerification emits outcome, latency, and cache metrics for a single
// verification.
func (s *Service) recordVerification(verdict *models.Verdict, cacheHit bool, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordVerification(verdict.Valid, string(verdict.Reason))
	s.metrics.ObserveVerificationDuration(elapsed.Seconds())
	if cacheHit {
		s.metrics.RecordCacheHit()
	} else {
		s.metrics.RecordCacheMiss()
	}
}

// failureReason maps core parse errors to verdict reason categories.
func failureReason(err error) models.Reason {
	switch {
	case errors.Is(err, henkilotunnus.ErrChecksumMismatch):
		return models.ReasonChecksum
	case errors.Is(err, henkilotunnus.ErrInvalidBirthDate):
		return models.ReasonBirthDate
	default:
		return models.ReasonFormat
	}
}
