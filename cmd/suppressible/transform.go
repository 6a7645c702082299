package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"suppressible/internal/cache"
	"suppressible/internal/driver"
	"suppressible/internal/observ"
)

var transformCmd = &cobra.Command{
	Use:   "transform [flags] <archive.jar>...",
	Short: "Patch the analysis engine archive for a stage",
	Long: `Writes a patched copy of each engine archive and prints its path.
Archives that are not the engine's check API are printed unchanged.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTransform,
}

func init() {
	addStageFlags(transformCmd)
	addCompilationFlags(transformCmd)
	transformCmd.Flags().String("out", "", "write outputs here instead of the cache")
	transformCmd.Flags().String("cache-bust", "", "cache-bust token (true = always miss; default $"+cache.EnvCacheBust+")")
}

func runTransform(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	plan, err := buildPlan(cmd, cfg)
	if err != nil {
		return err
	}
	outDir, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	bustFlag, err := cmd.Flags().GetString("cache-bust")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}

	t := cfg.Transformer()
	if jobs, err := jobsFlag(cmd); err != nil {
		return err
	} else if jobs > 0 {
		t.Jobs = jobs
	}

	return runTraced(cmd, "transform", func(ctx context.Context, timer *observ.Timer) error {
		var c *cache.Cache
		if outDir == "" {
			if c, err = cache.Open("suppressible"); err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
		}
		bust := cache.ResolveBust(bustFlag)

		for _, in := range args {
			if !plan.PatchEngine {
				fmt.Fprintln(cmd.OutOrStdout(), in)
				continue
			}
			idx := timer.Begin(filepath.Base(in))
			res, err := driver.TransformArchive(ctx, t, c, in, plan.Variant, bust, outDir)
			timer.End(idx, plan.Variant.String())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Path)
			if !quiet && !res.Skipped {
				state := "patched"
				if res.Cached {
					state = "cached"
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %d entries (%s)\n", state, filepath.Base(in), len(res.Patched), plan.Variant)
			}
		}
		return nil
	})
}
