package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/textrelay/wa-assistant/internal/api"
	"github.com/textrelay/wa-assistant/internal/observability"
	"github.com/textrelay/wa-assistant/internal/server"
	"github.com/textrelay/wa-assistant/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook receiver and admin API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Str("component", "telemetry").Err(err).Msg("failed to flush traces")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(reg)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	relay := service.NewRelayService(a.Pipeline, a.repos.Notify, metrics)
	handler := api.NewServer(cfg.Server, cfg.Admin.APIKey, api.Deps{
		Relay:     relay,
		Knowledge: a.Knowledge,
		Settings:  a.Settings,
		Messages:  a.repos.Message,
		Whitelist: a.repos.Whitelist,
		Metrics:   metrics,
		Gatherer:  reg,
	}).Routes()
	srv := server.NewHTTPServer(cfg.Server, handler, relay)

	if cfg.Admin.APIKey == "" {
		log.Warn().Str("component", "app").Msg("ADMIN_API_KEY is not set, the admin API is unauthenticated")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		return srv.Stop(context.Background())
	})
	return g.Wait()
}
