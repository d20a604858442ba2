package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"operator-dashboard/src/config"
	"operator-dashboard/src/contracts"
	"operator-dashboard/src/report"
	"operator-dashboard/src/store"
)

var (
	dashboardDataPath string
	dashboardHTMLPath string
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Write the HTML report for the dashboard data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := runRender(cmd.Context(), appConfig, dashboardDataPath, dashboardHTMLPath, time.Now()); err != nil {
			return err
		}
		appLogger.Info("[Render] Wrote %s", dashboardHTMLPath)
		return nil
	},
}

// runRender renders the dashboard at dataPath into htmlPath. The HTML file
// is only written once rendering succeeded.
func runRender(ctx context.Context, cfg *config.Config, dataPath, htmlPath string, now time.Time) error {
	st := store.NewFileStore(dataPath, contracts.NewCodec(cfg.Operator))
	defer st.Close()

	d, err := st.Load(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, d, cfg.Operator, now); err != nil {
		return err
	}
	if err := os.WriteFile(htmlPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", htmlPath, err)
	}
	return nil
}

func init() {
	renderCmd.Flags().StringVar(&dashboardDataPath, "dashboard_data_filepath", "", "Dashboard data to render")
	renderCmd.Flags().StringVar(&dashboardHTMLPath, "dashboard_html_filepath", "", "Where to write the HTML report")
	_ = renderCmd.MarkFlagRequired("dashboard_data_filepath")
	_ = renderCmd.MarkFlagRequired("dashboard_html_filepath")
}
