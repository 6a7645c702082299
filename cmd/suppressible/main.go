package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"suppressible/internal/trace"
	"suppressible/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "suppressible",
	Short: "Staged rollout of static-analysis checks",
	Long: `suppressible rolls out new checks without breaking the build: it
patches the analysis engine, turns findings into rollout suppressions,
coalesces them into @SuppressWarnings, and gates builds on what is left.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupColor(cmd)
	},
}

// errGateFailed makes main exit non-zero without printing another message.
var errGateFailed = errors.New("findings failed the gate")

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(argsCmd)
	rootCmd.AddCommand(interceptCmd)
	rootCmd.AddCommand(coalesceCmd)
	rootCmd.AddCommand(gateCmd)
	rootCmd.AddCommand(checksCmd)
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("color", "auto", "colorize output (auto|on|off)")
	flags.Bool("quiet", false, "suppress non-essential output")
	flags.Bool("timings", false, "show timing information")
	flags.String("ui", "auto", "live progress view for rewriting commands (auto|on|off)")
	flags.String("config", "", "path to suppressible.toml (default: search upward from the working directory)")
	flags.Int("jobs", 0, "parallel workers (0 = GOMAXPROCS)")
	flags.String("trace", "", "trace output file (- for stderr)")
	flags.String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	flags.String("trace-mode", "stream", "trace storage (stream|ring|both)")
	flags.String("trace-format", "auto", "trace format (auto|text|ndjson)")
	flags.Int("trace-ring-size", trace.DefaultRingSize, "events kept for the failure dump")
	flags.Duration("trace-heartbeat", 0, "heartbeat interval (0 = off)")
	flags.String("cpu-profile", "", "write a CPU profile to this file")
	flags.String("mem-profile", "", "write a heap profile to this file on exit")
	flags.String("runtime-trace", "", "write a Go runtime trace to this file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errGateFailed) {
			fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		}
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func setupColor(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stdout) || os.Getenv("NO_COLOR") != ""
	default:
		return fmt.Errorf("invalid --color %q (expected auto|on|off)", mode)
	}
	return nil
}
