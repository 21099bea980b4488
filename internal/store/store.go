package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when no document exists at the requested path.
var ErrNotFound = errors.New("document not found")

// DocumentStore is the minimal contract the application needs from its
// backing document database: whole-document reads and overwrites addressed by
// slash-separated paths. Partial-field merges are done by callers via
// read-then-write; the store itself never merges.
//
// Paths in use:
//
//	batches/{batchId}
//	batch_history/{batchId}/{timestamp}
//	batch_daily/{batchId}/{dateString}
//	sensor_data/{key}
//	users/{email}
type DocumentStore interface {
	// Get unmarshals the document at path into out. Returns ErrNotFound
	// when the path is absent.
	Get(ctx context.Context, path string, out interface{}) error

	// Set writes the document at path, replacing any previous value.
	Set(ctx context.Context, path string, value interface{}) error

	// Delete removes the document at path. Deleting an absent path is not
	// an error.
	Delete(ctx context.Context, path string) error

	// List returns the direct children of a node, keyed by the final path
	// segment. An empty node yields an empty map, not an error.
	List(ctx context.Context, prefix string) (map[string]json.RawMessage, error)
}
