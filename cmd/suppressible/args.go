package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"suppressible/internal/stage"
)

var argsCmd = &cobra.Command{
	Use:   "args [flags] [-- compiler-args...]",
	Short: "Print the engine arguments and compile settings for a stage",
	Long: `Prints what the selected stage changes about a compilation. Compiler
arguments given after -- are echoed back without the ones the stage strips.`,
	RunE: runArgs,
}

func init() {
	addStageFlags(argsCmd)
	addCompilationFlags(argsCmd)
	argsCmd.Flags().String("format", "text", "output format (text|json)")
}

type argsPayload struct {
	Stage             string   `json:"stage"`
	Enabled           bool     `json:"enabled"`
	PatchEngine       bool     `json:"patch_engine"`
	Variant           string   `json:"variant,omitempty"`
	EngineArgs        []string `json:"engine_args"`
	PatchChecks       []string `json:"patch_checks"`
	CompileOnly       []string `json:"compile_only,omitempty"`
	CompilerArgs      []string `json:"compiler_args,omitempty"`
	DisableBuildCache bool     `json:"disable_build_cache"`
	Warnings          bool     `json:"warnings"`
	Deprecation       bool     `json:"deprecation"`
}

func runArgs(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
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

	p := planPayload(plan, args)
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	case "text":
		renderArgsText(cmd.OutOrStdout(), p)
		return nil
	}
	return fmt.Errorf("unsupported format %q (must be text or json)", format)
}

func planPayload(plan *stage.Plan, compilerArgs []string) argsPayload {
	p := argsPayload{
		Stage:             plan.Stage.String(),
		Enabled:           plan.Enabled,
		PatchEngine:       plan.PatchEngine,
		EngineArgs:        nonNil(plan.EngineArgs),
		PatchChecks:       nonNil(plan.PatchChecks),
		CompileOnly:       plan.CompileOnly,
		DisableBuildCache: plan.DisableBuildCache,
		Warnings:          plan.Warnings,
		Deprecation:       plan.Deprecation,
	}
	if plan.PatchEngine {
		p.Variant = plan.Variant.String()
	}
	if len(compilerArgs) > 0 {
		p.CompilerArgs = plan.CompilerArgs(compilerArgs)
	}
	return p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func renderArgsText(out io.Writer, p argsPayload) {
	fmt.Fprintf(out, "stage:        %s\n", p.Stage)
	if !p.Enabled {
		fmt.Fprintln(out, "engine:       off")
		return
	}
	fmt.Fprintf(out, "engine:       %s archive\n", p.Variant)
	for _, a := range p.EngineArgs {
		fmt.Fprintf(out, "  %s\n", a)
	}
	if len(p.PatchChecks) > 0 {
		fmt.Fprintf(out, "patching:     %s\n", strings.Join(p.PatchChecks, ", "))
	}
	for _, c := range p.CompileOnly {
		fmt.Fprintf(out, "compile-only: %s\n", c)
	}
	if p.DisableBuildCache {
		fmt.Fprintln(out, "build cache:  disabled")
	}
	if !p.Warnings || !p.Deprecation {
		fmt.Fprintln(out, "warnings:     off")
	}
	if p.CompilerArgs != nil {
		fmt.Fprintf(out, "javac:        %s\n", strings.Join(p.CompilerArgs, " "))
	}
}
