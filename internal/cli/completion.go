package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/upgraph/pkg/diagram"
	"github.com/matzehuels/upgraph/pkg/layout"
	"github.com/matzehuels/upgraph/pkg/pipeline"
	"github.com/matzehuels/upgraph/pkg/render"
	"github.com/matzehuels/upgraph/pkg/upg"
)

// completionCommand prints a shell completion script. Besides command
// names, the scripts complete caller record paths and the values of the
// render flags (--layout, --edge-style, --views, --format and others).
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion <bash|zsh|fish|powershell>",
		Short: "Print a shell completion script",
		Long: `Print a shell completion script for upgraph.

  bash:        source <(upgraph completion bash)
  zsh:         upgraph completion zsh > "${fpath[1]}/_upgraph"
  fish:        upgraph completion fish > ~/.config/fish/completions/upgraph.fish
  powershell:  upgraph completion powershell | Out-String | Invoke-Expression

Completion suggests .json caller records for render and watch, directories
for browse, and the accepted values of every render flag.`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			default:
				return root.GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

// completeCallerFile completes the caller record argument with .json files.
func completeCallerFile(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"json"}, cobra.ShellCompDirectiveFilterFileExt
}

// completeDir completes a directory argument.
func completeDir(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveFilterDirs
}

// renderFlagValues are the accepted values of the enumerated render flags.
func renderFlagValues() map[string][]string {
	algorithms := make([]string, len(layout.Algorithms))
	for i, a := range layout.Algorithms {
		algorithms[i] = string(a)
	}
	formats := make([]string, len(render.Formats))
	for i, f := range render.Formats {
		formats[i] = string(f)
	}
	engines := []string{pipeline.EngineNative, pipeline.EngineGraphviz}
	return map[string][]string{
		"layout": algorithms,
		"edge-style": {
			string(diagram.EdgeCurve), string(diagram.EdgeStep),
			string(diagram.EdgeSmoothStep), string(diagram.EdgeStraight),
		},
		"views":         {"callees", "adts", "tags", "none"},
		"format":        formats,
		"field-view":    {string(upg.FieldViewCaller), string(upg.FieldViewAggregate)},
		"nested-engine": engines,
		"tree-engine":   engines,
	}
}

// listFlags are completed one comma-separated item at a time.
var listFlags = map[string]bool{"views": true, "format": true}

// registerFlagCompletions attaches value completion to the render flags of
// cmd. Flags missing from cmd are skipped.
func registerFlagCompletions(cmd *cobra.Command) {
	for name, values := range renderFlagValues() {
		if cmd.Flags().Lookup(name) == nil {
			continue
		}
		_ = cmd.RegisterFlagCompletionFunc(name, completeValues(values, listFlags[name]))
	}
	if cmd.Flags().Lookup("tags") != nil {
		_ = cmd.RegisterFlagCompletionFunc("tags", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return []string{"json"}, cobra.ShellCompDirectiveFilterFileExt
		})
	}
}

// completeValues suggests values. For list flags, the items already typed
// before the last comma are kept as a prefix.
func completeValues(values []string, list bool) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		prefix, partial := "", toComplete
		if list {
			if i := strings.LastIndex(toComplete, ","); i >= 0 {
				prefix, partial = toComplete[:i+1], toComplete[i+1:]
			}
		}
		var out []string
		for _, v := range values {
			if strings.HasPrefix(v, partial) {
				out = append(out, prefix+v)
			}
		}
		directive := cobra.ShellCompDirectiveNoFileComp
		if list {
			directive |= cobra.ShellCompDirectiveNoSpace
		}
		return out, directive
	}
}
