package main

import (
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"suppressible/internal/checks"
)

var checksCmd = &cobra.Command{
	Use:   "checks [flags]",
	Short: "List configured patch checks and whether they apply to a compilation",
	Args:  cobra.NoArgs,
	RunE:  runChecks,
}

func init() {
	addCompilationFlags(checksCmd)
}

type checkRow struct {
	name   string
	source string
	state  string
}

func runChecks(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	comp, err := readCompilation(cmd, cfg)
	if err != nil {
		return err
	}
	sel := cfg.Selection()
	effective, err := checks.NewResolver(sel).Effective(comp)
	if err != nil {
		return err
	}

	var rows []checkRow
	state := func(name string, active bool) string {
		switch {
		case slices.Contains(effective, name):
			return okColor.Sprint("patch")
		case active:
			return warningColor.Sprint("off")
		}
		return "inactive"
	}
	for _, name := range sel.Static {
		rows = append(rows, checkRow{name: name, source: "static", state: state(name, true)})
	}
	for _, rule := range sel.Rules {
		active, err := rule.When.Eval(comp)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", checks.ErrPredicate, rule.When, err)
		}
		for _, name := range rule.Checks {
			rows = append(rows, checkRow{name: name, source: rule.When.String(), state: state(name, active)})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].name < rows[j].name })

	if cfg.Path != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "config: %s\n", cfg.Path)
	}
	renderTable(cmd.OutOrStdout(), []string{"CHECK", "SOURCE", "STATE"}, rows)
	return nil
}

// renderTable pads by display width, since check names and coordinates may
// carry wide runes and colour escapes.
func renderTable(out io.Writer, header []string, rows []checkRow) {
	widths := make([]int, len(header))
	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, header)
	for _, r := range rows {
		cells = append(cells, []string{r.name, r.source, r.state})
	}
	for _, row := range cells {
		for i, c := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(stripANSI(c)))
		}
	}
	for _, row := range cells {
		for i, c := range row {
			if i == len(row)-1 {
				fmt.Fprintln(out, c)
				continue
			}
			pad := widths[i] - runewidth.StringWidth(stripANSI(c))
			fmt.Fprint(out, c, runewidth.FillRight("", pad+2))
		}
	}
}

func stripANSI(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == 0x1b {
			for i < len(s) && s[i] != 'm' {
				i++
			}
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}
