// Package artifact stores exported diagrams.
//
// A [Sink] keeps rendered files under slash separated keys. [FileSink]
// writes below a local directory; [S3Sink] writes to an S3-compatible
// bucket. [Export] renders a committed snapshot and stores it under
// "<session>/<seq>.<ext>".
package artifact

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/matzehuels/upgraph/pkg/errors"
	"github.com/matzehuels/upgraph/pkg/render"
	"github.com/matzehuels/upgraph/pkg/store"
)

// Sink stores artifacts by key.
type Sink interface {
	// Put stores data and returns where it was written.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Get returns the artifact, or a NOT_FOUND error.
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the keys below prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Key returns the key of a snapshot exported in format f.
func Key(sessionID string, seq uint64, f render.Format) string {
	return fmt.Sprintf("%s/%06d%s", sessionID, seq, f.Ext())
}

// Export renders snap in format f and stores it in sink.
func Export(ctx context.Context, sink Sink, snap *store.Snapshot, f render.Format, opts render.Options) (string, error) {
	if snap == nil || snap.Diagram == nil {
		return "", errors.New(errors.ErrCodeInvalidInput, "no committed diagram to export")
	}
	data, err := render.Render(ctx, snap.Diagram, f, opts)
	if err != nil {
		return "", err
	}
	return sink.Put(ctx, Key(snap.SessionID, snap.Seq, f), data, f.ContentType())
}

// cleanKey normalizes key and rejects keys escaping the sink root.
func cleanKey(key string) (string, error) {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return "", errors.New(errors.ErrCodeInvalidPath, "artifact key is required")
	}
	if err := errors.ValidatePath(key); err != nil {
		return "", err
	}
	return path.Clean(key), nil
}
