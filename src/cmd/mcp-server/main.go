// Package main provides a standalone MCP server over one dashboard data
// file. Configuration comes from the environment; logs go to stderr so
// stdout stays reserved for the protocol.
package main

import (
	"log"

	"github.com/spf13/pflag"

	"operator-dashboard/src/config"
	"operator-dashboard/src/contracts"
	"operator-dashboard/src/logger"
	"operator-dashboard/src/mcp"
	"operator-dashboard/src/store"
)

func main() {
	dataPath := pflag.String("dashboard_data_filepath", "", "Dashboard data to serve")
	pflag.Parse()
	if *dataPath == "" {
		log.Fatal("--dashboard_data_filepath is required")
	}

	cfg := config.MustLoadFromEnv()
	zl, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zl.Sync()

	st := store.NewFileStore(*dataPath, contracts.NewCodec(cfg.Operator))
	defer st.Close()

	if err := mcp.NewServer(st, cfg.Operator, zl).Run(); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
