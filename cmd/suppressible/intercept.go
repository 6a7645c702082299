package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"suppressible/internal/diag"
	"suppressible/internal/driver"
	"suppressible/internal/observ"
	"suppressible/internal/source"
	"suppressible/internal/stage"
	"suppressible/internal/version"
)

var interceptCmd = &cobra.Command{
	Use:   "intercept --findings <findings.json>",
	Short: "Stage 1: annotate every finding's declaration with a rollout marker",
	Long: `Reads the findings the engine reported and inserts a marker annotation
on the nearest enclosing class, method or variable of each one.`,
	Args: cobra.NoArgs,
	RunE: runIntercept,
}

func init() {
	interceptCmd.Flags().String("findings", "", "JSON findings written by the engine (- for stdin)")
	interceptCmd.Flags().Bool("dry-run", false, "print a diff instead of rewriting files")
	interceptCmd.Flags().String("fix-id", "", "apply only the fix with this id")
	_ = interceptCmd.MarkFlagRequired("findings")
}

func readFindings(fset *source.FileSet, path string) ([]diag.Finding, error) {
	if path == "-" {
		return diag.LoadFindings(fset, os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	findings, err := diag.LoadFindings(fset, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return findings, nil
}

func runIntercept(cmd *cobra.Command, args []string) error {
	findingsPath, err := cmd.Flags().GetString("findings")
	if err != nil {
		return err
	}
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
	plan, err := stage.NewPlan(stage.StageIntercept, nil, nil, nil, cfg.StageOptions(version.Version))
	if err != nil {
		return err
	}

	return runTraced(cmd, "intercept", func(ctx context.Context, timer *observ.Timer) error {
		fset := source.NewFileSet()
		findings, err := readFindings(fset, findingsPath)
		if err != nil {
			return err
		}
		opts := driver.Options{Jobs: jobs, Exclude: plan.Excluded, DryRun: dryRun, FixID: fixID, Timer: timer}
		var res *driver.Result
		err = withProgress(cmd, "intercept", &opts, func() (err error) {
			res, err = driver.Intercept(ctx, fset, findings, cfg.Interceptor(), opts)
			return err
		})
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res, dryRun, quiet)
		return nil
	})
}
