package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vc-gateway/internal/ledger/metrics"
	"vc-gateway/internal/sentinel"
)

// Option configures the Service.
type Option func(*Service)

// WithCap overrides the ledger capacity.
func WithCap(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cap = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the ledger metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithEventSink adds a mutation event sink.
func WithEventSink(sink EventSink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithAuthorityLocation sets the routing prefix and base URL used when
// normalizing revocation locators on records that do not carry their own.
func WithAuthorityLocation(routingPrefix, baseURL string) Option {
	return func(s *Service) {
		s.routingPrefix = routingPrefix
		s.baseURL = baseURL
	}
}

// Service is the issuance ledger: a bounded, most-recent-first list of
// credential records, merged by identity, snapshotted to a Store after every
// mutation. All methods are safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	records []Record

	cap           int
	store         Store
	sink          EventSink
	metrics       *metrics.Metrics
	logger        *slog.Logger
	routingPrefix string
	baseURL       string

	subMu   sync.Mutex
	subs    map[int]func([]Record)
	nextSub int
	now     func() time.Time
}

// New creates the ledger and rehydrates it from the store's last snapshot.
// Snapshot entries that no longer normalize are dropped, not fatal; a broken
// persisted entry must not take the whole ledger down with it.
func New(ctx context.Context, store Store, opts ...Option) (*Service, error) {
	s := &Service{
		cap:   DefaultCap,
		store: store,
		subs:  map[int]func([]Record){},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	saved, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("rehydrate ledger: %w", err)
	}
	for _, rec := range saved {
		normalized, err := normalizeRecord(rec, s.routingPrefix, s.baseURL, s.now())
		if err != nil {
			s.logger.Warn("dropping unreadable ledger snapshot entry", "error", err)
			if s.metrics != nil {
				s.metrics.RehydrateDropped.Inc()
			}
			continue
		}
		s.records = append(s.records, normalized)
	}
	if len(s.records) > s.cap {
		s.records = s.records[:s.cap]
	}
	if s.metrics != nil {
		s.metrics.Records.Set(float64(len(s.records)))
	}

	return s, nil
}

// Records returns a copy of the ledger, most recent first.
func (s *Service) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Get returns the record at index.
func (s *Service) Get(index int) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.records) {
		return Record{}, fmt.Errorf("ledger index %d: %w", index, sentinel.ErrNotFound)
	}
	return s.records[index], nil
}

// Append merges a record into the ledger. An existing record with the same
// transaction id or CID absorbs the new fields and moves to the front;
// otherwise the record is prepended and the oldest entry falls off once the
// ledger is at capacity. Returns the stored record.
func (s *Service) Append(ctx context.Context, rec Record) (Record, error) {
	incoming, err := normalizeRecord(rec, s.routingPrefix, s.baseURL, s.now())
	if err != nil {
		return Record{}, fmt.Errorf("%w: %s", sentinel.ErrInvalidInput, err)
	}

	s.mu.Lock()
	merged := false
	stored := incoming
	for i, existing := range s.records {
		if !sameIdentity(existing, incoming) {
			continue
		}
		combined := mergeRecords(existing, incoming)
		normalized, nerr := normalizeRecord(combined, s.routingPrefix, s.baseURL, s.now())
		if nerr == nil {
			combined = normalized
		}
		s.records = append(s.records[:i], s.records[i+1:]...)
		s.records = append([]Record{combined}, s.records...)
		stored = combined
		merged = true
		break
	}
	if !merged {
		s.records = append([]Record{incoming}, s.records...)
		if len(s.records) > s.cap {
			s.records = s.records[:s.cap]
		}
	}
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	op := EventAppended
	if merged {
		op = EventUpdated
	}
	s.afterMutation(ctx, op, &stored, snapshot)
	return stored, nil
}

// Update mutates the record at index through fn and renormalizes it. If the
// mutated record no longer normalizes the update is rolled back.
func (s *Service) Update(ctx context.Context, index int, fn func(*Record)) (Record, error) {
	s.mu.Lock()
	if index < 0 || index >= len(s.records) {
		s.mu.Unlock()
		return Record{}, fmt.Errorf("ledger index %d: %w", index, sentinel.ErrNotFound)
	}

	updated := s.records[index]
	fn(&updated)
	normalized, err := normalizeRecord(updated, s.routingPrefix, s.baseURL, s.now())
	if err != nil {
		s.mu.Unlock()
		return Record{}, fmt.Errorf("%w: %s", sentinel.ErrInvalidInput, err)
	}
	s.records[index] = normalized
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.afterMutation(ctx, EventUpdated, &normalized, snapshot)
	return normalized, nil
}

// ApplyFacts merges a reconciled lookup result into the record at index.
// Pending and failed lookups only annotate the record; fields reconciled by
// earlier successful lookups survive.
func (s *Service) ApplyFacts(ctx context.Context, index int, facts Facts) (Record, error) {
	return s.Update(ctx, index, func(rec *Record) {
		*rec = applyFacts(*rec, facts)
	})
}

// Remove deletes the record at index.
func (s *Service) Remove(ctx context.Context, index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.records) {
		s.mu.Unlock()
		return fmt.Errorf("ledger index %d: %w", index, sentinel.ErrNotFound)
	}
	removed := s.records[index]
	s.records = append(s.records[:index], s.records[index+1:]...)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.afterMutation(ctx, EventRemoved, &removed, snapshot)
	return nil
}

// Clear empties the ledger.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.records = nil
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.afterMutation(ctx, EventCleared, nil, snapshot)
	return nil
}

// Subscribe registers fn to be called with a fresh snapshot after every
// mutation. The returned function unsubscribes.
func (s *Service) Subscribe(fn func([]Record)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Service) snapshotLocked() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// afterMutation persists the snapshot, updates metrics, publishes the event,
// and notifies subscribers. Persistence and publishing are best-effort: the
// in-memory ledger is the source of truth and a flaky backend must not turn
// a completed mutation into an error.
func (s *Service) afterMutation(ctx context.Context, op string, rec *Record, snapshot []Record) {
	if err := s.store.Save(ctx, snapshot); err != nil {
		s.logger.ErrorContext(ctx, "ledger snapshot save failed", "op", op, "error", err)
		if s.metrics != nil {
			s.metrics.SnapshotFailures.Inc()
		}
	}

	if s.metrics != nil {
		s.metrics.Records.Set(float64(len(snapshot)))
		s.metrics.Mutations.WithLabelValues(op).Inc()
	}

	if s.sink != nil {
		if err := s.sink.Publish(ctx, newEvent(op, rec, len(snapshot))); err != nil {
			s.logger.WarnContext(ctx, "ledger event publish failed", "op", op, "error", err)
		}
	}

	s.subMu.Lock()
	subs := make([]func([]Record), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(snapshot)
	}
}
