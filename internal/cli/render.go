package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/upgraph/pkg/diagram"
	"github.com/matzehuels/upgraph/pkg/pipeline"
	"github.com/matzehuels/upgraph/pkg/render"
	"github.com/matzehuels/upgraph/pkg/upg"
)

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "render <caller.json>",
		Short: "Render a caller record to diagram files",
		Long: `Render a caller record to diagram files.

The caller record lists the function's callees, the data types they touch
and how. Tags come from a separate tag table (--tags).`,
		Example: `  upgraph render caller.json
  upgraph render caller.json --tags tags.json -f svg,json -o out/vec_push
  upgraph render caller.json --layout force --edge-style step`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeCallerFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			formats, err := parseFormats(flags.formats)
			if err != nil {
				return err
			}
			runner, err := c.newRunner(cmd, flags.noCache)
			if err != nil {
				return err
			}
			defer runner.Cache.Close()
			base, err := c.cfg().Options()
			if err != nil {
				return err
			}
			if err := c.runRender(cmd.Context(), runner, args[0], formats, &flags, flags.options(base)); err != nil {
				return err
			}
			printNextStep("Re-render on every save", "upgraph watch "+args[0])
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

// runRender loads input, renders it and writes every requested format.
func (c *CLI) runRender(ctx context.Context, runner *pipeline.Runner, input string, formats []render.Format, flags *renderFlags, opts pipeline.Options) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	caller, tags, err := loadInput(input, flags.tags)
	if err != nil {
		return err
	}

	spinner := newSpinnerWithContext(ctx, "Rendering "+caller.Name)
	restore := trackStages(spinner)
	spinner.Start()
	res, err := runner.Render(ctx, caller, tags, opts)
	restore()
	if err != nil {
		spinner.StopWithError(err.Error())
		return err
	}
	spinner.StopWithSuccess("Rendered " + safetyLabel(caller.Name, caller.Safe))
	for _, d := range res.Diagnostics {
		logger.Debug("skipped input entry", "code", d.Code, "subject", d.Subject, "reason", d.Message)
	}
	prog.done(fmt.Sprintf("Rendered %s", caller.Name))
	printSummary(res)
	printDiagnostics(res.Diagnostics)

	paths, err := writeOutputs(ctx, res.Diagram, formats, outputBase(flags.output, input, formats), flags.output, len(formats) == 1)
	if err != nil {
		return err
	}
	for _, p := range paths {
		printFile(p)
	}
	return nil
}

// loadInput reads the caller record and the optional tag table.
func loadInput(callerPath, tagPath string) (*upg.Caller, upg.TagTable, error) {
	caller, err := upg.LoadCaller(callerPath)
	if err != nil {
		return nil, nil, err
	}
	tags, err := upg.LoadTagTable(tagPath)
	if err != nil {
		return nil, nil, err
	}
	return caller, tags, nil
}

// outputBase derives the base output path. Without -o the input file name
// without extension is used; a known format extension on -o is stripped.
func outputBase(output, input string, formats []render.Format) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input))
	}
	ext := filepath.Ext(output)
	if _, err := render.ParseFormat(ext); err == nil && ext != "" {
		return strings.TrimSuffix(output, ext)
	}
	return output
}

// writeOutputs renders d in every format and writes base.<ext> files. With
// a single format an explicit output path is used as is.
func writeOutputs(ctx context.Context, d *diagram.Diagram, formats []render.Format, base, output string, single bool) ([]string, error) {
	var paths []string
	for _, f := range formats {
		data, err := render.Render(ctx, d, f, render.Options{Indent: true})
		if err != nil {
			return paths, fmt.Errorf("%s: %w", f, err)
		}
		path := base + f.Ext()
		if single && output != "" {
			path = output
		}
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return paths, err
			}
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return paths, err
		}
		loggerFromContext(ctx).Debugf("Generated %s: %d bytes", path, len(data))
		paths = append(paths, path)
	}
	return paths, nil
}
