package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Digital-Shane/metahub/internal/log"
	"github.com/Digital-Shane/metahub/internal/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newMonitorCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run background health checks and serve Prometheus metrics",
		Long: `Start the periodic health check loop and expose registry statistics on
/metrics until interrupted. The check interval comes from
registry.health_check_interval in the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.monitor(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9090", "Metrics listen address")
	return cmd
}

func metricsHandler(r *registry.Registry) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		registry.NewCollector(r),
		collectors.NewGoCollector(),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// startMonitoring runs one round of health checks so that /metrics reports
// health from the start, then starts the periodic loop.
func (a *app) startMonitoring(ctx context.Context) {
	reports := a.registry.PerformHealthChecks(ctx)
	a.logger.Debug("initial health check round", log.Int("providers", len(reports)))
	a.registry.StartHealthMonitoring(ctx)
}

func (a *app) monitor(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           metricsHandler(a.registry),
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.startMonitoring(ctx)
	defer a.registry.StopHealthMonitoring()

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("serving metrics", log.String("addr", addr))
		serveErr <- server.ListenAndServe()
	}()

	a.printf("Monitoring %d providers every %s; metrics on %s/metrics\n",
		len(a.registry.Providers()), a.registry.Config().HealthCheckInterval, addr)

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	return nil
}
