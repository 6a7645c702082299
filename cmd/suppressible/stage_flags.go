package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"suppressible/internal/checks"
	"suppressible/internal/config"
	"suppressible/internal/stage"
	"suppressible/internal/version"
)

// bareApply is what a bare --apply parses to; ApplyList trims it away, so
// the resolved set is used.
const bareApply = " "

func addStageFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("disable", false, "turn the analysis engine off")
	cmd.Flags().Bool("suppress-stage-1", false, "rewrite every finding into a rollout marker")
	cmd.Flags().Bool("suppress-stage-2", false, "coalesce rollout markers into @SuppressWarnings")
	cmd.Flags().String("apply", "", "apply fixes of the given checks (bare: the configured set)")
	cmd.Flags().Lookup("apply").NoOptDefVal = bareApply
}

func readStageFlags(cmd *cobra.Command) (stage.Flags, error) {
	var f stage.Flags
	var err error
	if f.Disable, err = cmd.Flags().GetBool("disable"); err != nil {
		return f, err
	}
	if f.Stage1, err = cmd.Flags().GetBool("suppress-stage-1"); err != nil {
		return f, err
	}
	if f.Stage2, err = cmd.Flags().GetBool("suppress-stage-2"); err != nil {
		return f, err
	}
	if cmd.Flags().Changed("apply") {
		v, err := cmd.Flags().GetString("apply")
		if err != nil {
			return f, err
		}
		f.Apply = &v
	}
	return f, nil
}

func addCompilationFlags(cmd *cobra.Command) {
	cmd.Flags().String("compilation", "main", "name of the compilation being configured")
	cmd.Flags().String("deps", "", "file listing the resolved dependencies, one group:name[:version] per line")
	cmd.Flags().StringArray("severity", nil, "severity override Check:LEVEL (repeatable)")
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, err
	}
	if path != "" {
		return config.Load(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.Discover(wd)
}

func readCompilation(cmd *cobra.Command, cfg *config.Config) (*checks.Compilation, error) {
	name, err := cmd.Flags().GetString("compilation")
	if err != nil {
		return nil, err
	}
	depsPath, err := cmd.Flags().GetString("deps")
	if err != nil {
		return nil, err
	}
	overrides, err := cmd.Flags().GetStringArray("severity")
	if err != nil {
		return nil, err
	}

	var deps []checks.Module
	if depsPath != "" {
		if deps, err = config.LoadDependencies(depsPath); err != nil {
			return nil, err
		}
	}
	comp := cfg.Compilation(name, deps)
	for _, o := range overrides {
		check, level, ok := strings.Cut(o, ":")
		if !ok || check == "" || level == "" {
			return nil, fmt.Errorf("invalid --severity %q (expected Check:LEVEL)", o)
		}
		comp.Severities[check] = strings.ToUpper(level)
	}
	return comp, nil
}

// buildPlan reads the stage flags and derives the plan for this invocation.
func buildPlan(cmd *cobra.Command, cfg *config.Config) (*stage.Plan, error) {
	flags, err := readStageFlags(cmd)
	if err != nil {
		return nil, err
	}
	st, err := flags.Select()
	if err != nil {
		return nil, err
	}
	comp, err := readCompilation(cmd, cfg)
	if err != nil {
		return nil, err
	}
	resolver := checks.NewResolver(cfg.Selection())
	return stage.NewPlan(st, flags.ApplyList(), resolver, comp, cfg.StageOptions(version.Version))
}

func jobsFlag(cmd *cobra.Command) (int, error) {
	return cmd.Root().PersistentFlags().GetInt("jobs")
}
