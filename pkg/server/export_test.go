package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/upgraph/pkg/cache"
	"github.com/matzehuels/upgraph/pkg/diagram"
	"github.com/matzehuels/upgraph/pkg/render"
	"github.com/matzehuels/upgraph/pkg/store"
)

func TestRenderExportCachesPerSession(t *testing.T) {
	mc, err := cache.NewMemoryCache(16)
	require.NoError(t, err)
	srv := New(nil, Options{Cache: mc})
	ctx := context.Background()

	d := &diagram.Diagram{Nodes: []diagram.Node{{ID: "root", Label: "crate::foo", Width: 80, Height: 30}}}
	a := &store.Snapshot{SessionID: "a", Seq: 1, Diagram: d}
	b := &store.Snapshot{SessionID: "b", Seq: 1, Diagram: d}

	first, err := srv.renderExport(ctx, a, render.FormatDOT)
	require.NoError(t, err)
	second, err := srv.renderExport(ctx, a, render.FormatDOT)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, mc.Len())

	_, err = srv.renderExport(ctx, b, render.FormatDOT)
	require.NoError(t, err)
	assert.Equal(t, 2, mc.Len(), "sessions do not share export entries")

	_, err = srv.renderExport(ctx, a, render.FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 3, mc.Len())
}

func TestRenderExportWithoutCache(t *testing.T) {
	srv := New(nil, Options{})
	d := &diagram.Diagram{Nodes: []diagram.Node{{ID: "root", Label: "crate::foo", Width: 80, Height: 30}}}
	data, err := srv.renderExport(context.Background(), &store.Snapshot{SessionID: "a", Diagram: d}, render.FormatJSON)
	require.NoError(t, err)
	assert.Contains(t, string(data), "crate::foo")
}
