package cli

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"

	"github.com/matzehuels/upgraph/pkg/errors"
	"github.com/matzehuels/upgraph/pkg/pipeline"
	"github.com/matzehuels/upgraph/pkg/render"
	"github.com/matzehuels/upgraph/pkg/session"
	"github.com/matzehuels/upgraph/pkg/store"
	"github.com/matzehuels/upgraph/pkg/watch"
)

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var flags renderFlags

	cmd := &cobra.Command{
		Use:   "watch <caller.json>",
		Short: "Re-render whenever the caller record or tag table changes",
		Long: `Re-render whenever the caller record or tag table changes.

Renders once at start, then again after every save. When saves arrive
faster than renders finish, only the newest result is written.`,
		Example:           `  upgraph watch caller.json --tags tags.json -f svg,json`,
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
			return c.runWatch(cmd.Context(), runner, args[0], formats, &flags, flags.options(base))
		},
	}
	flags.register(cmd)
	return cmd
}

// runWatch renders input into a session on every change and writes each
// committed snapshot. Blocks until ctx is done.
func (c *CLI) runWatch(ctx context.Context, r session.Renderer, input string, formats []render.Format, flags *renderFlags, opts pipeline.Options) error {
	logger := loggerFromContext(ctx)
	sess := session.New(r, session.WithLogger(logger))

	snaps, unsubscribe := sess.Subscribe()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeSnapshots(ctx, snaps, formats, flags, input)
	}()
	defer func() {
		unsubscribe()
		wg.Wait()
	}()

	rerender := func(ctx context.Context, changed []string) {
		if len(changed) > 0 {
			logger.Info("Change detected", "files", changed)
		}
		caller, tags, err := loadInput(input, flags.tags)
		if err != nil {
			logger.Error("Failed to load input", "err", err)
			return
		}
		_, err = sess.Render(ctx, session.Request{Caller: caller, Tags: tags, Options: opts})
		switch {
		case err == nil:
		case errors.Is(err, errors.ErrCodeStaleRender):
			logger.Debug("Superseded by a newer render", "err", err)
		default:
			logger.Error("Render failed", "err", err)
		}
	}

	files := []string{input}
	if flags.tags != "" {
		files = append(files, flags.tags)
	}
	w, err := watch.New(files, rerender, watch.WithLogger(logger), watch.WithOnError(func(err error) {
		logger.Warn("Watcher error", "err", err)
	}))
	if err != nil {
		return err
	}

	rerender(ctx, nil)
	printInfo("Watching %s", StyleHighlight.Render(filepath.Base(input)))
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// writeSnapshots writes every received snapshot until snaps closes.
func (c *CLI) writeSnapshots(ctx context.Context, snaps <-chan *store.Snapshot, formats []render.Format, flags *renderFlags, input string) {
	logger := loggerFromContext(ctx)
	base := outputBase(flags.output, input, formats)
	for snap := range snaps {
		paths, err := writeOutputs(ctx, snap.Diagram, formats, base, flags.output, len(formats) == 1)
		if err != nil {
			logger.Error("Failed to write outputs", "seq", snap.Seq, "err", err)
			continue
		}
		printSuccess("Rendered %s (#%d)", snap.Caller, snap.Seq)
		for _, p := range paths {
			printFile(p)
		}
	}
}
