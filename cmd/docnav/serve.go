package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docnav/internal/api"
	"github.com/dgallion1/docnav/internal/metrics"
	"github.com/dgallion1/docnav/internal/source"
	"github.com/dgallion1/docnav/internal/store"
	"github.com/dgallion1/docnav/internal/watcher"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the structure document and the query API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				a.log.Error("invalid configuration", "error", err)
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// Build locally when a content dir is configured.
	var (
		doc     *source.Document
		builder *source.Builder
	)
	if cfg.ContentDir != "" {
		doc = &source.Document{}
		builder = source.NewBuilder(cfg.ContentDir,
			source.WithRoutePrefix(cfg.DocsPrefix),
			source.WithWorkers(cfg.BuildWorkers),
			source.WithBuildLogger(log),
			source.WithBuildRecorder(m),
		)
		if err := builder.Rebuild(ctx, doc); err != nil {
			return fmt.Errorf("initial build: %w", err)
		}
	}

	fetcher := store.NewHTTPFetcher(cfg.StructureBaseURL(), cfg.StructureAPIKey, cfg.FetchTimeout, cfg.MaxStructureBytes)
	defer fetcher.Close()
	st := store.New(store.Retrying(fetcher, cfg.FetchRetries),
		store.WithLogger(log),
		store.WithRecorder(m),
		store.WithPrefix(cfg.DocsPrefix),
	)
	defer st.Close()

	opts := []api.Option{api.WithMetrics(reg)}
	if builder != nil {
		opts = append(opts, api.WithRebuild(func(ctx context.Context) error {
			return builder.Rebuild(ctx, doc)
		}))
	}
	srv := api.NewServer(st, doc, log, cfg, opts...)

	httpServer := &http.Server{
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // event streams are long-lived
		IdleTimeout:  60 * time.Second,
	}
	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting docnav", "port", cfg.Port, "structure_url", fetcher.URL())
		serveErr <- httpServer.Serve(ln)
	}()

	// The listener is bound, so loading from our own endpoint works now.
	go st.Load(ctx)

	if builder != nil && cfg.Watch {
		w, err := watcher.New(cfg.ContentDir, cfg.WatchDebounce, func(ctx context.Context, paths []string) {
			if err := builder.Rebuild(ctx, doc); err != nil {
				return
			}
			st.Refetch(ctx)
		}, log)
		if err != nil {
			log.Warn("content watching disabled", "error", err)
		} else {
			go w.Run(ctx)
		}
	}

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Closing the store first ends websocket streams so Shutdown can drain.
	st.Close()
	return httpServer.Shutdown(shutdownCtx)
}
