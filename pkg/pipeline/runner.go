package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/upgraph/pkg/build"
	"github.com/matzehuels/upgraph/pkg/cache"
	"github.com/matzehuels/upgraph/pkg/errors"
	"github.com/matzehuels/upgraph/pkg/layout"
	"github.com/matzehuels/upgraph/pkg/layout/gv"
	"github.com/matzehuels/upgraph/pkg/layout/nested"
	"github.com/matzehuels/upgraph/pkg/layout/tree"
	"github.com/matzehuels/upgraph/pkg/observability"
	"github.com/matzehuels/upgraph/pkg/refine"
	"github.com/matzehuels/upgraph/pkg/upg"
)

// Runner encapsulates render execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store render results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	// Nested and Tree replace the engines named in Options when set.
	Nested layout.HierarchicalPort
	Tree   layout.TreePort

	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Render runs build, both layout stages and the refiner for caller.
func (r *Runner) Render(ctx context.Context, caller *upg.Caller, tags upg.TagTable, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	r.applyLogger(&opts)
	hooks := observability.Pipeline()
	result := &Result{}

	// Build
	buildStart := time.Now()
	built, err := build.Build(caller, tags, opts.BuildOptions())
	if err != nil {
		return nil, err
	}
	built.Graph.Algorithm = opts.Algorithm()
	result.RootID = built.RootID
	result.Diagnostics = built.Diagnostics
	result.Stats.BuildTime = time.Since(buildStart)
	hooks.OnBuild(ctx, caller.Name, built.Kinds.Len(), len(built.Edges), len(built.Diagnostics))

	r.Logger.Info("built graph",
		"caller", caller.Name,
		"nodes", built.Kinds.Len(),
		"edges", len(built.Edges),
		"skipped", len(built.Diagnostics))

	nestedPort, treePort := r.ports(opts)

	// Stage A: nested layout
	nestedStart := time.Now()
	hooks.OnStageStart(ctx, StageNested, built.Kinds.Len())
	abs, hit, err := r.nestedLayout(ctx, nestedPort, built.Graph, opts)
	result.Stats.NestedTime = time.Since(nestedStart)
	hooks.OnStageComplete(ctx, StageNested, result.Stats.NestedTime, err)
	if err != nil {
		return nil, stageError(StageNested, nestedPort, err)
	}
	result.CacheInfo.NestedHit = hit

	d := flatten(built, abs)

	// Stage B: tree refinement of the top level
	treeStart := time.Now()
	nodes, edges := treeInput(d, built.RootID)
	hooks.OnStageStart(ctx, StageTree, len(nodes))
	if len(nodes) > 0 {
		pos, hit, err := r.treeLayout(ctx, treePort, nodes, edges, opts)
		if err != nil {
			result.Stats.TreeTime = time.Since(treeStart)
			hooks.OnStageComplete(ctx, StageTree, result.Stats.TreeTime, err)
			return nil, stageError(StageTree, treePort, err)
		}
		applyTree(d, pos)
		result.CacheInfo.TreeHit = hit
	}
	result.Stats.TreeTime = time.Since(treeStart)
	hooks.OnStageComplete(ctx, StageTree, result.Stats.TreeTime, nil)

	r.Logger.Info("computed layout",
		"algorithm", opts.Algorithm(),
		"nested", result.Stats.NestedTime,
		"tree", result.Stats.TreeTime)

	// Refine
	refineStart := time.Now()
	result.Refine = refine.Refine(d, built.RootID, refine.Options{CharWidth: opts.CharWidth, Logger: opts.Logger})
	result.Stats.RefineTime = time.Since(refineStart)
	hooks.OnRefine(ctx, result.Refine.Grown+result.Refine.Widened+result.Refine.Moved+result.Refine.Headers)

	d.Edges = built.Edges
	d.FitView = opts.FitView
	d.ComputeBounds()

	result.Diagram = d
	result.Stats.NodeCount = len(d.Nodes)
	result.Stats.EdgeCount = len(d.Edges)
	return result, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// ports returns the engines for both stages.
func (r *Runner) ports(opts Options) (layout.HierarchicalPort, layout.TreePort) {
	np, tp := r.Nested, r.Tree
	if np == nil {
		if opts.NestedEngine == EngineGraphviz {
			np = gv.NewHierarchical(opts.Logger)
		} else {
			np = nested.New(opts.Logger)
		}
	}
	if tp == nil {
		if opts.TreeEngine == EngineGraphviz {
			tp = gv.NewTree(opts.Logger)
		} else {
			e := tree.New(opts.Logger)
			e.Order = tree.OrderInput
			tp = e
		}
	}
	return np, tp
}

func (r *Runner) nestedLayout(ctx context.Context, port layout.HierarchicalPort, g *layout.Graph, opts Options) (layout.Positions, bool, error) {
	digest, err := cache.HashInput(g)
	if err != nil {
		return nil, false, err
	}
	key := r.Keyer.LayoutKey(digest, cache.LayoutKeyOpts{
		Stage:     StageNested,
		Engine:    engineName(port),
		Algorithm: string(g.Algorithm),
	})
	ids := g.IDs()
	return r.cached(ctx, key, engineName(port), ids, opts.Refresh, func() (layout.Positions, error) {
		return port.Layout(ctx, g)
	})
}

func (r *Runner) treeLayout(ctx context.Context, port layout.TreePort, nodes []layout.TreeNode, edges []layout.Edge, opts Options) (layout.Positions, bool, error) {
	digest, err := cache.HashInput(struct {
		Nodes []layout.TreeNode
		Edges []layout.Edge
	}{nodes, edges})
	if err != nil {
		return nil, false, err
	}
	key := r.Keyer.LayoutKey(digest, cache.LayoutKeyOpts{
		Stage:  StageTree,
		Engine: engineName(port),
	})
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return r.cached(ctx, key, engineName(port), ids, opts.Refresh, func() (layout.Positions, error) {
		return port.Layout(ctx, nodes, edges)
	})
}

// cached returns the positions stored under key, or computes and stores
// them. Cache errors and incomplete entries fall through to compute; an
// engine result missing any of ids is an error.
func (r *Runner) cached(ctx context.Context, key, engine string, ids []string, refresh bool, compute func() (layout.Positions, error)) (layout.Positions, bool, error) {
	if !refresh {
		data, hit, err := r.Cache.Get(ctx, key)
		if err != nil {
			r.Logger.Warn("layout cache read failed", "err", errors.Wrap(errors.ErrCodeCache, err, "get %s", key))
		}
		if err == nil && hit {
			var pos layout.Positions
			if json.Unmarshal(data, &pos) == nil && layout.CheckComplete("cache", pos, ids) == nil {
				observability.Cache().OnCacheHit(ctx, "layout")
				return pos, true, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, "layout")
	}

	pos, err := compute()
	if err != nil {
		return nil, false, err
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := layout.CheckComplete(engine, pos, ids); err != nil {
		return nil, false, err
	}

	if data, err := json.Marshal(pos); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLLayout); err != nil {
			r.Logger.Warn("layout cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "layout", len(data))
		}
	}
	return pos, false, nil
}

func stageError(stage string, port any, err error) error {
	return &errors.StageError{Stage: stage, Err: layout.Failure(engineName(port), err)}
}

// engineName identifies an engine in cache keys and errors.
func engineName(port any) string {
	return fmt.Sprintf("%T", port)
}
