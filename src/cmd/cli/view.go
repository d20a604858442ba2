package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"operator-dashboard/src/broker"
	"operator-dashboard/src/config"
	"operator-dashboard/src/contracts"
	"operator-dashboard/src/logger"
	"operator-dashboard/src/store"
	"operator-dashboard/src/tui"
	"operator-dashboard/src/watch"
)

var (
	viewDataPath string
	viewNoWatch  bool
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse the dashboard data in the terminal",
	Long: `Opens an interactive viewer over the dashboard data. The file is read
again on refresh (r) and, unless --no_watch is set, whenever it changes on
disk, so a concurrent fetch shows up without restarting. When Redpanda
brokers are configured the viewer also reloads on every dashboard update
event published by a fetch run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		st := store.NewFileStore(viewDataPath, contracts.NewCodec(appConfig.Operator))
		defer st.Close()

		var opts []tui.Option
		if !viewNoWatch {
			signals, err := startWatchers(ctx, appConfig, viewDataPath, appLogger)
			if err != nil {
				return err
			}
			opts = append(opts, tui.WithReload(signals))
		}

		return tui.Start(ctx, appConfig.Operator, func(ctx context.Context) (contracts.Dashboard, error) {
			return st.Load(ctx)
		}, opts...)
	},
}

// startWatchers returns one reload signal fed by the data file watcher and,
// with brokers configured, by dashboard update events. Everything stops with
// ctx.
func startWatchers(ctx context.Context, cfg *config.Config, path string, log logger.Logger) (<-chan struct{}, error) {
	fw, err := watch.NewFileWatcher(path, log)
	if err != nil {
		return nil, err
	}
	go fw.Run(ctx)
	if len(cfg.RedpandaBrokers) == 0 {
		return fw.Changes(), nil
	}

	rb, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers, log)
	if err != nil {
		return nil, err
	}
	uw, err := watch.NewUpdateWatcher(ctx, rb, cfg.Operator.Name, "dashboard-view-"+uuid.NewString(), log)
	if err != nil {
		rb.Close()
		return nil, err
	}
	go func() {
		uw.Run(ctx)
		rb.Close()
	}()
	return watch.Merge(ctx, fw.Changes(), uw.Changes()), nil
}

func init() {
	viewCmd.Flags().StringVar(&viewDataPath, "dashboard_data_filepath", "", "Dashboard data to browse")
	viewCmd.Flags().BoolVar(&viewNoWatch, "no_watch", false, "Do not reload when the data file changes")
	_ = viewCmd.MarkFlagRequired("dashboard_data_filepath")
}
