// Package store persists committed diagram snapshots.
//
// A snapshot is one committed render of a session. Stores keep every
// snapshot so clients can fetch the latest diagram after a reconnect and
// browse earlier ones. Implementations:
//   - [MemoryStore]: in-process, for tests and single-shot CLI runs
//   - [FileStore]: JSON files under a directory, for watch mode
//   - [MongoStore]: a MongoDB collection, for the server
package store

import (
	"context"
	"time"

	"github.com/matzehuels/upgraph/pkg/build"
	"github.com/matzehuels/upgraph/pkg/diagram"
)

// Snapshot is one committed render.
type Snapshot struct {
	ID          string             `json:"id" bson:"_id"`
	SessionID   string             `json:"sessionId" bson:"session_id"`
	Seq         uint64             `json:"seq" bson:"seq"`
	Caller      string             `json:"caller" bson:"caller"`
	Diagram     *diagram.Diagram   `json:"diagram" bson:"diagram"`
	Diagnostics []build.Diagnostic `json:"diagnostics,omitempty" bson:"diagnostics,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
}

// Store is the interface for snapshot storage backends.
type Store interface {
	// Save stores a snapshot. Saving the same session and seq twice
	// replaces the earlier snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the snapshot with the highest seq of a session.
	// Returns nil, nil if the session has no snapshots.
	Latest(ctx context.Context, sessionID string) (*Snapshot, error)

	// List returns up to limit snapshots of a session, newest first.
	// A limit <= 0 returns all of them.
	List(ctx context.Context, sessionID string, limit int) ([]*Snapshot, error)

	// Delete removes every snapshot of a session.
	Delete(ctx context.Context, sessionID string) error

	// Close releases backend resources.
	Close() error
}
