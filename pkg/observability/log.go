package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event to a logger at debug level. It implements
// all hook interfaces.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks creates hooks logging to logger.
func NewLogHooks(logger *log.Logger) *LogHooks {
	return &LogHooks{Logger: logger}
}

func (h *LogHooks) OnBuild(_ context.Context, caller string, nodes, edges, diags int) {
	h.Logger.Debug("built graph", "caller", caller, "nodes", nodes, "edges", edges, "diagnostics", diags)
}

func (h *LogHooks) OnStageStart(_ context.Context, stage string, nodes int) {
	h.Logger.Debug("layout stage started", "stage", stage, "nodes", nodes)
}

func (h *LogHooks) OnStageComplete(_ context.Context, stage string, d time.Duration, err error) {
	if err != nil {
		h.Logger.Debug("layout stage failed", "stage", stage, "duration", d, "err", err)
		return
	}
	h.Logger.Debug("layout stage done", "stage", stage, "duration", d)
}

func (h *LogHooks) OnRefine(_ context.Context, adjustments int) {
	h.Logger.Debug("refined geometry", "adjustments", adjustments)
}

func (h *LogHooks) OnCommit(_ context.Context, session string, seq uint64, stale bool) {
	h.Logger.Debug("render finished", "session", session, "seq", seq, "stale", stale)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, path string) {
	h.Logger.Debug("request", "method", method, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, path string, status int, d time.Duration) {
	h.Logger.Debug("response", "method", method, "path", path, "status", status, "duration", d)
}

var (
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
