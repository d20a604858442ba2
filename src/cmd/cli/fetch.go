package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"operator-dashboard/src/broker"
	"operator-dashboard/src/config"
	"operator-dashboard/src/contracts"
	"operator-dashboard/src/gcs"
	"operator-dashboard/src/github"
	"operator-dashboard/src/localfs"
	"operator-dashboard/src/logger"
	"operator-dashboard/src/pipeline"
	"operator-dashboard/src/provider"
	"operator-dashboard/src/reconcile"
	"operator-dashboard/src/store"
)

// fetchOptions are the flags of the fetch command.
type fetchOptions struct {
	PRNumber     string
	BaselinePath string
	MergedPath   string
	BundleLimit  reconcile.Retention
	// ArtifactsDir reads artifacts from a local mirror instead of GCS.
	ArtifactsDir string
}

var fetchOpts = fetchOptions{BundleLimit: reconcile.Unlimited}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Collect the build results of pull requests into the dashboard data",
	Long: `Lists the artifacts of the given pull request (or of every closed pull
request with --pr_number all), materializes one result per build and merges
them into the baseline dashboard data. The merged data is written to
--merged_data_filepath and, when configured, mirrored to SQL.

Example:
  dashboard fetch --pr_number 1234 \
    --baseline_data_filepath gpu_operator_matrix.json \
    --merged_data_filepath gpu_operator_matrix.json \
    --bundle_result_limit 20`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := runFetch(cmd.Context(), appConfig, fetchOpts, appLogger)
		if err != nil {
			return err
		}
		fmt.Printf("Run %s processed %d pull requests: %d builds, %d status mismatches\n",
			summary.RunID, summary.PRs, summary.Builds, summary.Mismatches)
		if len(summary.Buckets) > 0 {
			fmt.Printf("Updated versions: %s\n", strings.Join(summary.Buckets, ", "))
		}
		return nil
	},
}

// runFetch wires the collaborators from cfg and performs one update.
func runFetch(ctx context.Context, cfg *config.Config, opts fetchOptions, log logger.Logger) (pipeline.Summary, error) {
	if opts.BaselinePath == "" || opts.MergedPath == "" {
		return pipeline.Summary{}, fmt.Errorf("--baseline_data_filepath and --merged_data_filepath are required")
	}
	codec := contracts.NewCodec(cfg.Operator)

	artifacts, err := artifactStore(cfg, opts.ArtifactsDir, log)
	if err != nil {
		return pipeline.Summary{}, err
	}

	var lister provider.ChangeRequestLister
	if pipeline.IsAllChangeRequests(opts.PRNumber) {
		ghOpts := []github.Option{
			github.WithBaseBranch(cfg.GitHubBase),
			github.WithPages(cfg.GitHubPages),
			github.WithLogger(log),
		}
		if cfg.GitHubAPIURL != "" {
			ghOpts = append(ghOpts, github.WithBaseURL(cfg.GitHubAPIURL))
		}
		gh, err := github.NewClient(cfg.GitHubToken, cfg.GitHubOwner, cfg.GitHubRepo, ghOpts...)
		if err != nil {
			return pipeline.Summary{}, err
		}
		lister = gh
	}

	baseline := store.NewFileStore(opts.BaselinePath, codec)
	defer baseline.Close()

	outputs, err := openOutputs(ctx, cfg, opts.MergedPath, codec, log)
	if err != nil {
		return pipeline.Summary{}, err
	}
	defer closeAll(outputs, log)

	var b broker.Broker
	if len(cfg.RedpandaBrokers) > 0 {
		rb, err := broker.NewRedpandaBroker(cfg.RedpandaBrokers, log)
		if err != nil {
			return pipeline.Summary{}, err
		}
		defer rb.Close()
		b = rb
	}

	runner, err := pipeline.NewRunner(pipeline.Config{
		Operator:       cfg.Operator,
		Artifacts:      artifacts,
		Lister:         lister,
		Baseline:       baseline,
		Outputs:        outputs,
		Broker:         b,
		URLs:           cfg.URLs(),
		RepositorySlug: cfg.RepositorySlug,
		Concurrency:    cfg.Concurrency,
		Logger:         log,
	})
	if err != nil {
		return pipeline.Summary{}, err
	}

	return runner.Run(ctx, pipeline.Options{PRNumber: opts.PRNumber, BundleLimit: opts.BundleLimit})
}

// artifactStore returns the local mirror at dir, or the rate limited GCS
// client when dir is empty.
func artifactStore(cfg *config.Config, dir string, log logger.Logger) (provider.ArtifactStore, error) {
	if dir != "" {
		mirror, err := localfs.New(dir)
		if err != nil {
			return nil, err
		}
		log.Info("[Fetch] Reading artifacts from local mirror %s", dir)
		return mirror, nil
	}
	return gcs.NewClient(
		gcs.WithBaseURL(cfg.GCSBaseURL),
		gcs.WithRateLimit(cfg.RequestsPerSecond, cfg.Concurrency),
		gcs.WithLogger(log),
	), nil
}

// openOutputs returns the JSON file store followed by the configured SQL
// mirrors.
// openOutputs returns the configured mirrors followed by the merged data
// file. The file is saved last so a failing mirror leaves it untouched.
func openOutputs(ctx context.Context, cfg *config.Config, path string, codec contracts.Codec, log logger.Logger) ([]store.Store, error) {
	var outputs []store.Store

	if cfg.PostgresDSN != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.PostgresDSN, cfg.Operator.Name, codec)
		if err != nil {
			closeAll(outputs, log)
			return nil, err
		}
		log.Info("[Fetch] Mirroring dashboard to Postgres")
		outputs = append(outputs, pg)
	}
	if cfg.SQLitePath != "" {
		lite, err := store.NewSQLiteStore(ctx, cfg.SQLitePath, cfg.Operator.Name, codec)
		if err != nil {
			closeAll(outputs, log)
			return nil, err
		}
		log.Info("[Fetch] Mirroring dashboard to SQLite %s", cfg.SQLitePath)
		outputs = append(outputs, lite)
	}
	return append(outputs, store.NewFileStore(path, codec)), nil
}

func closeAll(stores []store.Store, log logger.Logger) {
	for _, s := range stores {
		if err := s.Close(); err != nil {
			log.Warn("[Fetch] Failed to close store: %v", err)
		}
	}
}

func init() {
	f := fetchCmd.Flags()
	f.StringVar(&fetchOpts.PRNumber, "pr_number", pipeline.AllChangeRequests, `Pull request number, or "all" for every closed pull request`)
	f.StringVar(&fetchOpts.BaselinePath, "baseline_data_filepath", "", "Existing dashboard data to merge into")
	f.StringVar(&fetchOpts.MergedPath, "merged_data_filepath", "", "Where to write the merged dashboard data")
	f.Var(&fetchOpts.BundleLimit, "bundle_result_limit", `Bundle results kept per version, or "unlimited"`)
	f.StringVar(&fetchOpts.ArtifactsDir, "artifacts_dir", "", "Read artifacts from a local mirror instead of GCS")
	_ = fetchCmd.MarkFlagRequired("baseline_data_filepath")
	_ = fetchCmd.MarkFlagRequired("merged_data_filepath")
}
