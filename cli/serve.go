// ABOUTME: HTTP API server subcommand
// ABOUTME: Serves the JSON API and /metrics, reloading rate limits when the config file changes
package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/harperreed/dealdesk/config"
	"github.com/harperreed/dealdesk/crm"
	"github.com/harperreed/dealdesk/metrics"
	"github.com/harperreed/dealdesk/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			collector := metrics.NewCollector(reg)

			svc, err := a.service(ctx, crm.WithMetrics(collector))
			if err != nil {
				return err
			}

			srv := web.NewServer(svc, web.Options{
				Logger:    a.logger,
				Metrics:   collector,
				Gatherer:  reg,
				RateLimit: a.cfg.RateLimit,
				RateBurst: a.cfg.RateBurst,
			})

			go a.watchConfig(ctx, srv)

			if addr == "" {
				addr = a.cfg.HTTPAddr
			}
			return srv.ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, 127.0.0.1:8080)")
	return cmd
}

// watchConfig applies rate limit changes from the config file until ctx ends.
// Other settings need a restart.
func (a *app) watchConfig(ctx context.Context, srv *web.Server) {
	path := a.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	err := config.Watch(ctx, path,
		func(cfg *config.Config) {
			srv.SetRateLimit(cfg.RateLimit, cfg.RateBurst)
			a.logger.Info("reloaded rate limit",
				zap.Float64("per_second", cfg.RateLimit),
				zap.Int("burst", cfg.RateBurst))
		},
		func(err error) {
			a.logger.Warn("config reload failed", zap.Error(err))
		},
	)
	if err != nil {
		a.logger.Warn("config watch disabled", zap.String("path", path), zap.Error(err))
	}
}
