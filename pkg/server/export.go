package server

import (
	"context"
	"encoding/json"

	"github.com/matzehuels/upgraph/pkg/cache"
	"github.com/matzehuels/upgraph/pkg/observability"
	"github.com/matzehuels/upgraph/pkg/render"
	"github.com/matzehuels/upgraph/pkg/store"
)

// renderExport renders snap in format f through the export cache. Keys are
// scoped per session so one session never reads another's exports.
func (s *Server) renderExport(ctx context.Context, snap *store.Snapshot, f render.Format) ([]byte, error) {
	if s.opts.Cache == nil || snap.Diagram == nil {
		return render.Render(ctx, snap.Diagram, f, render.Options{})
	}
	raw, err := json.Marshal(snap.Diagram)
	if err != nil {
		return render.Render(ctx, snap.Diagram, f, render.Options{})
	}
	keyer := cache.NewScopedKeyer(s.opts.Keyer, "session:"+snap.SessionID+":")
	key := keyer.ArtifactKey(cache.Hash(raw), cache.ArtifactKeyOpts{Format: string(f)})

	hooks := observability.Cache()
	if data, ok, err := s.opts.Cache.Get(ctx, key); err == nil && ok {
		hooks.OnCacheHit(ctx, key)
		return data, nil
	} else if err != nil {
		s.logger.Warn("export cache read failed", "key", key, "err", err)
	}
	hooks.OnCacheMiss(ctx, key)

	data, err := render.Render(ctx, snap.Diagram, f, render.Options{})
	if err != nil {
		return nil, err
	}
	if err := s.opts.Cache.Set(ctx, key, data, cache.TTLArtifact); err != nil {
		s.logger.Warn("export cache write failed", "key", key, "err", err)
	} else {
		hooks.OnCacheSet(ctx, key, len(data))
	}
	return data, nil
}
