// Package observability carries render, cache and HTTP events out of the
// core packages without tying them to a metrics backend.
//
// The pipeline, cache and server call the registered hooks; the defaults do
// nothing. Commands register hooks once at startup, for example log hooks
// when --verbose is set:
//
//	observability.SetPipelineHooks(observability.NewLogHooks(logger))
//
// and the pipeline reports each layout stage:
//
//	hooks := observability.Pipeline()
//	hooks.OnStageStart(ctx, "nested", nodeCount)
//	hooks.OnStageComplete(ctx, "nested", elapsed, err)
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// PipelineHooks receives events from the render pipeline.
type PipelineHooks interface {
	// OnBuild reports the diagram graph built for caller.
	OnBuild(ctx context.Context, caller string, nodeCount, edgeCount, diagnostics int)

	// Layout stage events ("nested", "tree").
	OnStageStart(ctx context.Context, stage string, nodeCount int)
	OnStageComplete(ctx context.Context, stage string, duration time.Duration, err error)

	// OnRefine reports how many refiner adjustments were applied.
	OnRefine(ctx context.Context, adjustments int)

	// OnCommit reports a render committed to a session, or rejected as stale.
	OnCommit(ctx context.Context, sessionID string, seq uint64, stale bool)
}

// CacheHooks receives layout and artifact cache events. keyType is
// "layout" or "artifact".
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives API request events.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, path string)
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)
}

type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnBuild(context.Context, string, int, int, int)                {}
func (NoopPipelineHooks) OnStageStart(context.Context, string, int)                     {}
func (NoopPipelineHooks) OnStageComplete(context.Context, string, time.Duration, error) {}
func (NoopPipelineHooks) OnRefine(context.Context, int)                                 {}
func (NoopPipelineHooks) OnCommit(context.Context, string, uint64, bool)                {}

type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// registry is replaced as a whole on every change, so a render that loaded
// it once sees one consistent set of hooks.
type registry struct {
	pipeline PipelineHooks
	cache    CacheHooks
	http     HTTPHooks
}

var current atomic.Pointer[registry]

func init() { Reset() }

func update(fn func(r *registry)) {
	for {
		old := current.Load()
		next := *old
		fn(&next)
		if current.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetPipelineHooks registers pipeline hooks. nil is ignored.
func SetPipelineHooks(h PipelineHooks) {
	if h != nil {
		update(func(r *registry) { r.pipeline = h })
	}
}

// SetCacheHooks registers cache hooks. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		update(func(r *registry) { r.cache = h })
	}
}

// SetHTTPHooks registers HTTP hooks. nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		update(func(r *registry) { r.http = h })
	}
}

func Pipeline() PipelineHooks { return current.Load().pipeline }

func Cache() CacheHooks { return current.Load().cache }

func HTTP() HTTPHooks { return current.Load().http }

// Reset restores the no-op hooks.
func Reset() {
	current.Store(&registry{NoopPipelineHooks{}, NoopCacheHooks{}, NoopHTTPHooks{}})
}
