package main

import (
	"context"

	"github.com/spf13/cobra"

	"suppressible/internal/coalesce"
	"suppressible/internal/driver"
	"suppressible/internal/observ"
	"suppressible/internal/source"
	"suppressible/internal/stage"
	"suppressible/internal/version"
)

var coalesceCmd = &cobra.Command{
	Use:   "coalesce [flags] <file.java|directory>...",
	Short: "Stage 2: merge rollout markers into @SuppressWarnings",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCoalesce,
}

func init() {
	coalesceCmd.Flags().Bool("dry-run", false, "print a diff instead of rewriting files")
	coalesceCmd.Flags().String("fix-id", "", "apply only the fix with this id")
}

func runCoalesce(cmd *cobra.Command, args []string) error {
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return err
	}
	fixID, err := cmd.Flags().GetString("fix-id")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	jobs, err := jobsFlag(cmd)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	plan, err := stage.NewPlan(stage.StageCoalesce, nil, nil, nil, cfg.StageOptions(version.Version))
	if err != nil {
		return err
	}

	checker := coalesce.New()
	checker.Marker = cfg.Patch.Marker

	return runTraced(cmd, "coalesce", func(ctx context.Context, timer *observ.Timer) error {
		opts := driver.Options{Jobs: jobs, Exclude: plan.Excluded, DryRun: dryRun, FixID: fixID, Timer: timer}
		var (
			fset *source.FileSet
			res  *driver.Result
		)
		err := withProgress(cmd, "coalesce", &opts, func() (err error) {
			fset, res, err = driver.Coalesce(ctx, args, checker, opts)
			return err
		})
		if err != nil {
			return err
		}
		// findings without a fix need a human
		for _, f := range res.Findings {
			if len(f.Fixes) == 0 {
				printFinding(cmd.ErrOrStderr(), fset, f)
			}
		}
		printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res, dryRun, quiet)
		return nil
	})
}
