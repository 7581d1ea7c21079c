package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/upgraph/pkg/pipeline"
	"github.com/matzehuels/upgraph/pkg/render"
)

// renderFlags are the flags shared by render, watch and browse.
type renderFlags struct {
	tags     string
	output   string
	formats  string
	noCache  bool
	refresh  bool
	views    string
	opts     pipeline.Options
	explicit func(name string) bool
}

func (f *renderFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.tags, "tags", "", "tag table JSON file")
	fl.StringVarP(&f.output, "output", "o", "", "output file (single format) or base path (multiple)")
	fl.StringVarP(&f.formats, "format", "f", "", "output format(s): svg (default), json, dot, pdf, png (comma-separated)")
	fl.BoolVar(&f.noCache, "no-cache", false, "disable the layout cache")
	fl.BoolVar(&f.refresh, "refresh", false, "recompute layouts even when cached")
	fl.StringVar(&f.opts.Layout, "layout", "", "nested layout algorithm: tree (default), layered, radial, force")
	fl.StringVar(&f.opts.EdgeStyle, "edge-style", "", "caller edge style: curve (default), step, smoothstep, straight")
	fl.StringVar(&f.views, "views", "", "views to draw: callees, adts, tags or none (comma-separated, default all)")
	fl.StringVar(&f.opts.FieldView, "field-view", "", "field accesses to draw: caller (default, read and write), aggregate (all)")
	fl.BoolVar(&f.opts.TagArgs, "tag-args", false, "show tag arguments")
	fl.BoolVar(&f.opts.FitView, "fit-view", false, "ask viewers to fit the diagram to the viewport")
	fl.Float64Var(&f.opts.CharWidth, "char-width", 0, "width of one label character in pixels")
	fl.StringVar(&f.opts.NestedEngine, "nested-engine", "", "nested layout engine: native (default), graphviz")
	fl.StringVar(&f.opts.TreeEngine, "tree-engine", "", "tree layout engine: native (default), graphviz")
	f.explicit = func(name string) bool { return fl.Changed(name) }
	registerFlagCompletions(cmd)
}

// options merges the flags over the configured defaults.
func (f *renderFlags) options(base pipeline.Options) pipeline.Options {
	out := base
	set := func(name string, apply func()) {
		if f.explicit != nil && f.explicit(name) {
			apply()
		}
	}
	set("layout", func() { out.Layout = f.opts.Layout })
	set("edge-style", func() { out.EdgeStyle = f.opts.EdgeStyle })
	set("views", func() { out.Views = splitList(f.views) })
	set("field-view", func() { out.FieldView = f.opts.FieldView })
	set("tag-args", func() { out.TagArgs = f.opts.TagArgs })
	set("fit-view", func() { out.FitView = f.opts.FitView })
	set("char-width", func() { out.CharWidth = f.opts.CharWidth })
	set("nested-engine", func() { out.NestedEngine = f.opts.NestedEngine })
	set("tree-engine", func() { out.TreeEngine = f.opts.TreeEngine })
	out.Refresh = f.refresh
	return out
}

// parseFormats parses the --format flag. An empty flag means svg.
func parseFormats(s string) ([]render.Format, error) {
	names := splitList(s)
	if len(names) == 0 {
		return []render.Format{render.FormatSVG}, nil
	}
	formats := make([]render.Format, 0, len(names))
	for _, name := range names {
		f, err := render.ParseFormat(name)
		if err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
