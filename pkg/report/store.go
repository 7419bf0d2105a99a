package report

import (
	"context"
	"strings"
)

// Store persists run records.
type Store interface {
	// Save stores a record, replacing any record with the same ID.
	Save(ctx context.Context, rec *Record) error
	// List returns up to limit records, most recent first. A limit of zero
	// or less returns all records.
	List(ctx context.Context, limit int) ([]*Record, error)
	// Get returns the record with the given ID, or nil if none exists.
	Get(ctx context.Context, id string) (*Record, error)
	Close() error
}

// OpenStore opens the history store named by target: a mongodb:// or
// mongodb+srv:// URI selects MongoDB, anything else is a directory for a
// FileStore. An empty target uses the default history directory.
func OpenStore(ctx context.Context, target string) (Store, error) {
	if strings.HasPrefix(target, "mongodb://") || strings.HasPrefix(target, "mongodb+srv://") {
		return NewMongoStore(ctx, target)
	}
	return NewFileStore(target)
}
