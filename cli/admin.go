package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/daiverp/daiverp/config"
	"github.com/daiverp/daiverp/internal/admin"
	"github.com/daiverp/daiverp/internal/report"
	"github.com/daiverp/daiverp/pkg/chart"
	"github.com/daiverp/daiverp/pkg/dashapi"
	"github.com/daiverp/daiverp/pkg/series"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newAdminCommand() *cobra.Command {
	adminCmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin panel metrics and prediction charts",
		Args:  NoArgs,
	}

	adminCmd.AddCommand(
		newAdminMetricsCommand(),
		newAdminChartCommand(),
		newAdminWatchCommand(),
	)
	return adminCmd
}

type metricsOutput struct {
	Metrics     dashapi.Metrics     `json:"metrics" yaml:"metrics"`
	ModelUsage  dashapi.ModelCounts `json:"modelUsage" yaml:"modelUsage"`
	DailyTotals series.Series       `json:"dailyTotals" yaml:"dailyTotals"`
}

func newAdminMetricsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show the metric cards, model usage and daily totals",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := newClient()

			m, err := client.Metrics(ctx)
			if err != nil {
				return err
			}

			out := metricsOutput{Metrics: m}
			if out.ModelUsage, err = client.ModelUsage(ctx); err != nil {
				slog.Warn("could not fetch model usage", "err", err)
			}
			if out.DailyTotals, err = client.DailyTotals(ctx); err != nil {
				slog.Warn("could not fetch daily totals", "err", err)
			}

			return printOut(out, func(w io.Writer) error {
				if err := report.ResolveMetrics(w, out.Metrics); err != nil {
					return err
				}
				fmt.Fprintf(w, "\nModel usage | V1: %s V2: %s\n\n",
					config.Yellow(out.ModelUsage.V1), config.Yellow(out.ModelUsage.V2))
				return report.ResolveSeries(w, out.DailyTotals)
			})
		},
	}
}

func newAdminChartCommand() *cobra.Command {
	var (
		rangeName string
		png       bool
	)

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Show the prediction chart of a range, demo data merged with live data",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			r, err := dashapi.ParseRange(rangeName)
			if err != nil {
				return err
			}

			panel := admin.NewPanel(newClient(), loadDemo(ctx), r)
			if err := panel.Refresh(ctx); err != nil {
				slog.Warn("showing demo data only", "err", err)
			}
			snap := panel.Snapshot()

			if err := printOut(snap, func(w io.Writer) error {
				return report.ResolveSnapshot(w, snap)
			}); err != nil {
				return err
			}

			if png {
				return saveCharts(snap)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&rangeName, "range", "r", string(dashapi.RangeDaily), "daily, weekly, monthly or all")
	cmd.Flags().BoolVar(&png, "png", false, "save the charts as PNG in the output location")

	return cmd
}

// saveCharts renders the stacked bars, the pie and the hourly totals
func saveCharts(snap admin.Snapshot) error {
	now := time.Now()
	charts := []struct {
		name   string
		data   chart.Data
		render func(io.Writer, chart.Data) error
	}{
		{"predictions-" + string(snap.Range), snap.Stacked, chart.RenderStacked},
		{"model-usage-" + string(snap.Range), snap.Pie, chart.RenderPie},
		{"hourly-totals", snap.HourTotals, chart.RenderBar},
	}

	for _, c := range charts {
		if c.data.Empty() {
			continue
		}

		data, render := c.data, c.render
		_, err := report.SaveBeside(config.Runtime.Output, report.Stamped(c.name, "png", now), func(w io.Writer) error {
			return render(w, data)
		})
		if errors.Is(err, chart.ErrNoData) {
			slog.Info("nothing to draw", "chart", c.name)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func newAdminWatchCommand() *cobra.Command {
	var (
		rangeName   string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the backend and print the admin panel on every update",
		Args:  NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r, err := dashapi.ParseRange(rangeName)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			if metricsAddr != "" {
				srv := serveMetrics(metricsAddr, reg)
				defer srv.Shutdown(context.Background()) // nolint: errcheck
			}

			client := newClient()
			if err := client.Ping(ctx); err != nil {
				slog.Debug("ping failed", "err", err)
			}

			panel := admin.NewPanel(client, loadDemo(ctx), r,
				admin.WithMetrics(admin.NewMetrics(reg)),
				admin.WithUpdateHook(func(s admin.Snapshot) {
					if err := printOut(s, func(w io.Writer) error {
						return report.ResolveSnapshot(w, s)
					}); err != nil {
						slog.Error("could not print snapshot", "err", err)
					}
				}),
			)

			slog.Info("watching admin panel", "range", r, "interval", config.Runtime.PollInterval)
			err = admin.NewPoller(panel, config.Runtime.PollInterval).Run(ctx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&rangeName, "range", "r", string(dashapi.RangeDaily), "daily, weekly, monthly or all")
	cmd.Flags().Duration("pollInterval", admin.DefaultInterval, "time between two refreshes")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090")

	return cmd
}

func serveMetrics(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "err", err)
		}
	}()
	return srv
}
