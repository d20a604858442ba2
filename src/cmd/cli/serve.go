package main

import (
	"context"

	"github.com/spf13/cobra"

	"operator-dashboard/src/contracts"
	"operator-dashboard/src/store"
	"operator-dashboard/src/web"
)

var (
	serveDataPath string
	serveAddr     string
	serveRate     int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTML report and a JSON API over HTTP",
	Long: `Serves the dashboard data over HTTP. The data file is read on every request.

Routes:
  GET /                              HTML report
  GET /health                        liveness
  GET /api/versions                  one summary per OpenShift version
  GET /api/versions/{bucket}         persisted history of one version
  GET /api/versions/{bucket}/matrix  release matrix of one version`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), serveDataPath, serveAddr, serveRate)
	},
}

func runServe(ctx context.Context, dataPath, addr string, perMinute int) error {
	st := store.NewFileStore(dataPath, contracts.NewCodec(appConfig.Operator))
	defer st.Close()

	srv := web.NewServer(st, appConfig.Operator,
		web.WithLogger(appLogger),
		web.WithRateLimit(perMinute),
	)
	return srv.Start(ctx, addr)
}

func init() {
	serveCmd.Flags().StringVar(&serveDataPath, "dashboard_data_filepath", "", "Dashboard data to serve")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().IntVar(&serveRate, "rate_limit", web.RequestsPerMinute, "Requests per minute per client, 0 disables limiting")
	_ = serveCmd.MarkFlagRequired("dashboard_data_filepath")
}
