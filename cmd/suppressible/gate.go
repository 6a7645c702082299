package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"suppressible/internal/diag"
	"suppressible/internal/driver"
	"suppressible/internal/observ"
	"suppressible/internal/source"
)

var gateCmd = &cobra.Command{
	Use:   "gate --findings <findings.json> [stage flags]",
	Short: "Apply the stage's exit policy to reported findings",
	Long: `Exits non-zero when a finding is neither patched by the stage nor
suppressed in source. Rollout stages always succeed.`,
	Args: cobra.NoArgs,
	RunE: runGate,
}

func init() {
	addStageFlags(gateCmd)
	addCompilationFlags(gateCmd)
	gateCmd.Flags().String("findings", "", "JSON findings written by the engine (- for stdin)")
	gateCmd.Flags().Bool("werror", false, "warnings fail the gate too")
	gateCmd.Flags().Int("max-findings", 0, "print at most this many failing findings (0 = all)")
	_ = gateCmd.MarkFlagRequired("findings")
}

func runGate(cmd *cobra.Command, args []string) error {
	findingsPath, err := cmd.Flags().GetString("findings")
	if err != nil {
		return err
	}
	werror, err := cmd.Flags().GetBool("werror")
	if err != nil {
		return err
	}
	maxFindings, err := cmd.Flags().GetInt("max-findings")
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
	plan, err := buildPlan(cmd, cfg)
	if err != nil {
		return err
	}
	failAt := diag.SevError
	if werror {
		failAt = diag.SevWarning
	}

	return runTraced(cmd, "gate", func(ctx context.Context, timer *observ.Timer) error {
		fset := source.NewFileSet()
		findings, err := readFindings(fset, findingsPath)
		if err != nil {
			return err
		}
		opts := driver.Options{Jobs: jobs, Timer: timer}
		res, err := driver.Gate(ctx, fset, plan, findings, cfg.Patch.Prefix, failAt, opts)
		if err != nil {
			return err
		}
		shown := diag.NewBag(maxFindings)
		for _, f := range res.Failing {
			if !shown.Add(f) {
				break
			}
		}
		for _, f := range shown.Items() {
			printFinding(cmd.ErrOrStderr(), fset, f)
		}
		if more := len(res.Failing) - shown.Len(); more > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "... and %d more\n", more)
		}
		if res.ExitCode != 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %d finding(s) in stage %s\n", errorColor.Sprint("failed:"), len(res.Failing), plan.Stage)
			return errGateFailed
		}
		return nil
	})
}
