package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags restores every flag to its default; cobra keeps parsed values
// on the shared command tree between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Value.Type() == "stringArray" {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				_ = sv.Replace(nil)
			}
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and a config file holding toml.
func execute(t *testing.T, toml string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	color.NoColor = true
	cfg := filepath.Join(t.TempDir(), "suppressible.toml")
	if err := os.WriteFile(cfg, []byte(toml), 0o600); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--color=off", "--config", cfg}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

const testConfig = `
[suppressible]
patch-checks = ["StrictUnusedVariable", "Disabled"]

[[suppressible.conditional]]
module-used = "com.google.guava:guava"
checks = ["PreferGuava"]

[severities]
Disabled = "OFF"
`

func TestArgsStage1JSON(t *testing.T) {
	out, err := execute(t, testConfig, "args", "--suppress-stage-1", "--format", "json", "--", "-Werror", "-g")
	if err != nil {
		t.Fatalf("args: %v\n%s", err, out)
	}
	var p argsPayload
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if p.Stage != "suppress-stage-1" || p.Variant != "intercept" || !p.DisableBuildCache {
		t.Errorf("payload = %+v", p)
	}
	if !slices.Equal(p.CompilerArgs, []string{"-g"}) {
		t.Errorf("compiler args = %q", p.CompilerArgs)
	}
}

func TestArgsBareApplyUsesResolvedSet(t *testing.T) {
	out, err := execute(t, testConfig, "args", "--apply", "--format", "json")
	if err != nil {
		t.Fatalf("args: %v\n%s", err, out)
	}
	var p argsPayload
	if err := json.Unmarshal([]byte(out), &p); err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(p.PatchChecks, []string{"StrictUnusedVariable"}) {
		t.Errorf("patch checks = %q", p.PatchChecks)
	}
}

func TestArgsConflictingStages(t *testing.T) {
	_, err := execute(t, testConfig, "args", "--suppress-stage-1", "--suppress-stage-2")
	if err == nil || !strings.Contains(err.Error(), "conflicting stage flags") {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRenderTableAlignsByWidth(t *testing.T) {
	var buf bytes.Buffer
	renderTable(&buf, []string{"CHECK", "SOURCE", "STATE"}, []checkRow{
		{name: "检查", source: "static", state: "patch"},
		{name: "LongerCheckName", source: "module-used g:m", state: "inactive"},
	})
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	col := strings.Index(lines[2], "module-used")
	if got := strings.Index(lines[0], "SOURCE"); got != col {
		t.Errorf("SOURCE at %d, want %d\n%s", got, col, buf.String())
	}
}

func TestStripANSI(t *testing.T) {
	if got := stripANSI("\x1b[32mpatch\x1b[0m"); got != "patch" {
		t.Fatalf("stripANSI = %q", got)
	}
}

func TestReadUIMode(t *testing.T) {
	tests := []struct {
		in      string
		want    uiMode
		wantErr bool
	}{
		{"", uiModeAuto, false},
		{" ON ", uiModeOn, false},
		{"off", uiModeOff, false},
		{"sometimes", "", true},
	}
	for _, tt := range tests {
		got, err := readUIMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("readUIMode(%q) = %q, %v", tt.in, got, err)
		}
	}
	if shouldUseTUI(uiModeAuto, true) {
		t.Error("quiet runs must not start the progress view")
	}
}
