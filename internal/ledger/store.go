package ledger

import "context"

// Store persists ledger snapshots. The ledger writes the full snapshot after
// every mutation and reads it back once at startup, so stores only need two
// operations.
type Store interface {
	// Load returns the last saved snapshot, or nil when none exists.
	Load(ctx context.Context) ([]Record, error)
	// Save replaces the snapshot.
	Save(ctx context.Context, records []Record) error
}
