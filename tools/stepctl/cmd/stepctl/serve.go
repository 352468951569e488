package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"github.com/AltairaLabs/stepflow/runtime/definition"
	"github.com/AltairaLabs/stepflow/runtime/logger"
	"github.com/AltairaLabs/stepflow/runtime/metrics/prometheus"
	"github.com/AltairaLabs/stepflow/runtime/statestore"
	"github.com/AltairaLabs/stepflow/runtime/telemetry"
	"github.com/AltairaLabs/stepflow/server/bridge"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve workflows over WebSocket",
		Long: `Serves every workflow found in the configured paths at
GET /ws?workflow=<name>[&run=<id>].

Runs are checkpointed to Redis when an address is configured and kept in
memory otherwise. Prometheus metrics are exported on --metrics-addr and
traces are sent to --otlp-endpoint when set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := bindFlags(v, cmd.Flags(), map[string]string{
				"listen":        "listen",
				"metrics_addr":  "metrics-addr",
				"workflows":     "workflows",
				"redis.addr":    "redis",
				"otlp.endpoint": "otlp-endpoint",
			}); err != nil {
				return err
			}
			s, err := loadSettings(v)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), s)
		},
	}
	cmd.Flags().String("listen", ":8080", "Bridge listen address")
	cmd.Flags().String("metrics-addr", "", "Prometheus exporter address, e.g. :9090")
	cmd.Flags().StringSlice("workflows", []string{"workflows"}, "Workflow files or directories")
	cmd.Flags().String("redis", "", "Redis address for run checkpoints")
	cmd.Flags().String("otlp-endpoint", "", "OTLP/HTTP trace endpoint URL")
	return cmd
}

func runServe(ctx context.Context, s *settings) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := definition.LoadPaths(s.Workflows...)
	if err != nil {
		return err
	}
	if catalog.Len() == 0 {
		return fmt.Errorf("no workflows found in %v", s.Workflows)
	}

	store, closeStore := openStore(s)
	defer func() { _ = closeStore() }()
	if store == nil {
		store = statestore.NewMemoryStore()
	}

	opts := []bridge.Option{
		bridge.WithAddr(s.Listen),
		bridge.WithStore(store),
		bridge.WithCommandRate(s.Commands.Rate, s.Commands.Burst),
	}

	if s.MetricsAddr != "" {
		opts = append(opts, bridge.WithSessionHook(bridge.MetricsHook(prometheus.NewMetricsListener())))
	}

	if s.OTLP.Endpoint != "" {
		telemetry.SetupPropagation()
		tp, err := telemetry.NewTracerProvider(ctx, s.OTLP.Endpoint, s.OTLP.Service)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		otel.SetTracerProvider(tp)
		defer shutdown("tracer provider", tp.Shutdown)
		listener := telemetry.NewOTelEventListener(telemetry.Tracer(tp))
		opts = append(opts, bridge.WithSessionHook(bridge.TracingHook(listener)))
	}

	srv := bridge.NewServer(catalog, opts...)
	logger.Info("serving workflows", "workflows", catalog.Names(), "listen", s.Listen)

	if s.MetricsAddr != "" {
		exporter := prometheus.NewExporter(s.MetricsAddr,
			prometheus.WithRoute("GET /workflows", srv.Handler()),
			prometheus.WithHealthCheck(storeHealth(store)),
		)
		go func() {
			if err := exporter.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics exporter stopped", "error", err)
			}
		}()
		defer shutdown("metrics exporter", exporter.Shutdown)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdown("bridge", srv.Shutdown)
	return nil
}

// storeHealth reports the run store unhealthy while it cannot list runs.
func storeHealth(store statestore.Store) prometheus.HealthCheck {
	return func(ctx context.Context) error {
		_, err := store.List(ctx, statestore.ListOptions{Limit: 1})
		return err
	}
}

func shutdown(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warn("shutdown failed", "component", name, "error", err)
	}
}
