package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/alphalat/alphalat/internal/server"
	"github.com/alphalat/alphalat/internal/store"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the alat HTTP server.

The server provides:
  - JSON API for datasets and runs at /api
  - Table downloads at /api/runs/{id}/export
  - Dashboard for browsing results (token protected)
  - Prometheus metrics at /metrics
  - Health check at /health

Example:
  alat serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			return a.withStore(func(s *store.SQLiteStore) error {
				reg := prometheus.NewRegistry()
				reg.MustRegister(
					collectors.NewGoCollector(),
					collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
				)

				srv, err := server.New(s, server.Options{
					Port:      a.cfg.Server.Port,
					Token:     a.cfg.Server.Token,
					TokenFile: getTokenFilePath(a.cfg.Database.Path),
					Gatherer:  reg,
					Logger:    a.logger,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out)
				fmt.Fprintf(out, "alat running on http://localhost:%d\n", srv.Port())
				fmt.Fprintf(out, "Dashboard: %s\n", srv.DashboardURL())
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Press Ctrl+C to stop")

				return srv.Start(cmd.Context())
			})
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on (overrides config)")
	return cmd
}
