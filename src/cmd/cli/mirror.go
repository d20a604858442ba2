package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"operator-dashboard/src/config"
	"operator-dashboard/src/localfs"
	"operator-dashboard/src/logger"
	"operator-dashboard/src/pipeline"
)

var (
	mirrorPRNumber string
	mirrorDir      string
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Copy the artifacts of a pull request from GCS into a local directory",
	Long: `Downloads the status and version files of one pull request into a local
directory with the bucket layout preserved. Use the directory with
'dashboard fetch --artifacts_dir' to rerun fetches offline.

Example:
  dashboard mirror --pr_number 1234 --dir ./artifacts`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := runMirror(cmd.Context(), appConfig, mirrorPRNumber, mirrorDir, appLogger)
		if err != nil {
			return err
		}
		fmt.Printf("Mirrored %d artifacts into %s\n", n, mirrorDir)
		return nil
	},
}

func runMirror(ctx context.Context, cfg *config.Config, prNumber, dir string, log logger.Logger) (int, error) {
	if strings.TrimSpace(prNumber) == "" || pipeline.IsAllChangeRequests(prNumber) {
		return 0, fmt.Errorf("mirror needs a single pull request number")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	dst, err := localfs.New(dir)
	if err != nil {
		return 0, err
	}
	src, err := artifactStore(cfg, "", log)
	if err != nil {
		return 0, err
	}
	status, platform, component := pipeline.Globs(cfg.Operator)
	return dst.Mirror(ctx, src, cfg.ChangeRequestPrefix(prNumber), status, platform, component)
}

func init() {
	mirrorCmd.Flags().StringVar(&mirrorPRNumber, "pr_number", "", "Pull request number")
	mirrorCmd.Flags().StringVar(&mirrorDir, "dir", "", "Destination directory")
	_ = mirrorCmd.MarkFlagRequired("pr_number")
	_ = mirrorCmd.MarkFlagRequired("dir")
}
