package main

import (
	"github.com/spf13/cobra"

	"operator-dashboard/src/contracts"
	"operator-dashboard/src/mcp"
	"operator-dashboard/src/store"
)

var mcpDataPath string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the dashboard data over MCP on stdio",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st := store.NewFileStore(mcpDataPath, contracts.NewCodec(appConfig.Operator))
		defer st.Close()

		return mcp.NewServer(st, appConfig.Operator, appLogger).Run()
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpDataPath, "dashboard_data_filepath", "", "Dashboard data to serve")
	_ = mcpCmd.MarkFlagRequired("dashboard_data_filepath")
}
