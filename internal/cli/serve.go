package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/upgraph/pkg/server"
	"github.com/matzehuels/upgraph/pkg/session"
)

// shutdownTimeout bounds graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Endpoints:
  POST   /v1/render                   render a caller record in a session
  POST   /v1/sessions                 create a session
  GET    /v1/sessions/{id}            latest committed diagram
  GET    /v1/sessions/{id}/export     latest diagram as json, dot, svg, pdf or png
  POST   /v1/sessions/{id}/artifacts  store the latest diagram in the artifact sink
  GET    /v1/sessions/{id}/stream     websocket of committed diagrams
  GET    /healthz                     liveness`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				c.cfg().Server.Addr = addr
			}
			return c.runServe(cmd, noCache)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the layout cache")
	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, noCache bool) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	cfg := c.cfg()

	runner, err := c.newRunner(cmd, noCache)
	if err != nil {
		return err
	}
	defer runner.Cache.Close()

	st, err := cfg.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	sink, err := cfg.OpenSink()
	if err != nil {
		logger.Warn("artifact sink unavailable", "err", err)
		sink = nil
	}

	defaults, err := cfg.Options()
	if err != nil {
		return err
	}
	manager, err := session.NewManager(runner, st, logger, cfg.Server.MaxSessions)
	if err != nil {
		return err
	}
	srv := server.New(manager, server.Options{
		Defaults:      defaults,
		RenderTimeout: cfg.Server.RenderTimeout,
		Sink:          sink,
		Cache:         runner.Cache,
		Keyer:         cfg.Keyer(),
		AllowOrigins:  cfg.Server.AllowOrigins,
		Logger:        logger,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()
	printSuccess("Listening on %s", StyleHighlight.Render(cfg.Server.Addr))
	printKeyValue("store", cfg.Store.Backend)
	printKeyValue("cache", cfg.Cache.Backend)
	printKeyValue("artifacts", cfg.Artifacts.Backend)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}
