// Package reconcile derives canonical credential facts from the authority's
// inconsistently shaped lookup responses. One lookup attempt is terminal:
// Success, Pending, or Failed. Merging an outcome into local state without
// destroying previously known good fields is the ledger's responsibility.
package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"vc-gateway/internal/authority"
	"vc-gateway/internal/reconcile/metrics"
)

// AuthorityClient is the nonce-lookup dependency.
type AuthorityClient interface {
	Nonce(ctx context.Context, transactionID string) (authority.Result, error)
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the lookup metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPendingPredicate overrides the not-yet-collected detection.
func WithPendingPredicate(p PendingPredicate) Option {
	return func(s *Service) { s.pending = p }
}

// Service performs authority lookups and normalizes their results.
type Service struct {
	client  AuthorityClient
	pending PendingPredicate
	metrics *metrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New creates a reconcile service. The default pending predicate only knows
// the phrase heuristics; pass WithPendingPredicate to add environment codes.
func New(client AuthorityClient, opts ...Option) *Service {
	s := &Service{
		client:  client,
		pending: DefaultPendingPredicate(nil),
		tracer:  otel.Tracer("vc-gateway/reconcile"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// LookupByTransaction resolves the current remote truth for a transaction id.
//
// The returned Outcome is total: transport failures and authority rejections
// come back as Error or Pending fields, never as a Go error, so callers can
// merge every attempt the same way.
func (s *Service) LookupByTransaction(ctx context.Context, transactionID string) Outcome {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return Outcome{Error: "transaction id is required"}
	}

	ctx, span := s.tracer.Start(ctx, "reconcile.lookup",
		trace.WithAttributes(attribute.String("transaction.id", transactionID)))
	defer span.End()

	start := time.Now()
	result, err := s.client.Nonce(ctx, transactionID)
	if err != nil {
		s.observe("failed", start)
		span.SetAttributes(attribute.String("lookup.outcome", "failed"))
		s.logger.WarnContext(ctx, "authority lookup failed",
			"transaction_id", transactionID,
			"error", err,
		)
		return Outcome{Error: err.Error()}
	}

	if !result.OK {
		if matched, hint := s.pending(result.Status, result.Detail, result.DetailFields); matched {
			s.observe("pending", start)
			span.SetAttributes(attribute.String("lookup.outcome", "pending"))
			return Outcome{Pending: true, Hint: hint}
		}
		s.observe("failed", start)
		span.SetAttributes(attribute.String("lookup.outcome", "failed"))
		s.logger.WarnContext(ctx, "authority rejected lookup",
			"transaction_id", transactionID,
			"status", result.Status,
			"detail", result.Detail,
		)
		return Outcome{Error: result.Detail}
	}

	outcome := extract(result)
	s.observe("ok", start)
	span.SetAttributes(
		attribute.String("lookup.outcome", "ok"),
		attribute.Bool("lookup.collected", outcome.Collected),
	)
	s.logger.InfoContext(ctx, "authority lookup reconciled",
		"transaction_id", transactionID,
		"cid", outcome.CID,
		"status", outcome.Status,
		"collected", outcome.Collected,
	)
	return outcome
}

func (s *Service) observe(outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveLookup(outcome, time.Since(start))
	}
}
