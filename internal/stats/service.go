// Package stats maintains aggregate counts over the issuance ledger. The
// service subscribes to ledger mutations and recomputes on every snapshot,
// so reads never touch the ledger lock.
package stats

import (
	"sync"

	"vc-gateway/internal/credential/status"
	"vc-gateway/internal/ledger"
)

// Snapshot is the aggregate view of the ledger.
type Snapshot struct {
	Total     int            `json:"total"`
	Collected int            `json:"collected"`
	Pending   int            `json:"pending"`
	Revoked   int            `json:"revoked"`
	Failed    int            `json:"failed"`
	ByStatus  map[string]int `json:"byStatus"`
	ByScope   map[string]int `json:"byScope"`
	ByTone    map[string]int `json:"byTone"`
}

// Service computes and caches ledger aggregates.
type Service struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Ledger is the subscription surface the service needs.
type Ledger interface {
	Records() []ledger.Record
	Subscribe(fn func([]ledger.Record)) func()
}

// New creates the stats service and subscribes it to the ledger.
func New(l Ledger) *Service {
	s := &Service{}
	s.recompute(l.Records())
	l.Subscribe(s.recompute)
	return s
}

// Snapshot returns the current aggregates.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.snapshot
	out.ByStatus = copyCounts(s.snapshot.ByStatus)
	out.ByScope = copyCounts(s.snapshot.ByScope)
	out.ByTone = copyCounts(s.snapshot.ByTone)
	return out
}

func (s *Service) recompute(records []ledger.Record) {
	snap := Snapshot{
		Total:    len(records),
		ByStatus: map[string]int{},
		ByScope:  map[string]int{},
		ByTone:   map[string]int{},
	}

	for _, rec := range records {
		switch {
		case status.IsRevoked(rec.Status):
			snap.Revoked++
		case rec.Collected:
			snap.Collected++
		case rec.LookupPending:
			snap.Pending++
		}
		if rec.LookupError != "" {
			snap.Failed++
		}

		key := rec.Status
		if key == "" {
			key = "UNKNOWN"
		}
		snap.ByStatus[key]++
		if rec.Scope != "" {
			snap.ByScope[string(rec.Scope)]++
		}
		if rec.StatusTone != "" {
			snap.ByTone[rec.StatusTone]++
		}
	}

	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
