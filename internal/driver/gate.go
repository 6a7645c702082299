package driver

import (
	"context"

	"suppressible/internal/checks"
	"suppressible/internal/diag"
	"suppressible/internal/source"
	"suppressible/internal/stage"
)

// Suppressions returns a predicate reporting whether a finding sits under a
// @SuppressWarnings naming its check or the check's rollout alias. Findings
// in files that do not parse are never suppressed.
func Suppressions(ctx context.Context, fset *source.FileSet, findings []diag.Finding, prefix string, opts Options) (func(diag.Finding) bool, error) {
	pctx, done := phase(ctx, opts, "parse")
	units, err := parseByFile(pctx, fset, findings, opts)
	done("")
	if err != nil {
		return nil, err
	}
	return func(f diag.Finding) bool {
		u := unitOf(units, f)
		if u == nil {
			return false
		}
		n := u.NodeAt(f.Primary)
		if n == nil {
			return false
		}
		return checks.Suppressed(u, n, checks.WithRolloutAlias(checks.Info{Name: f.Check}, prefix))
	}, nil
}

// Gate applies the plan's exit policy to findings, skipping excluded files.
func Gate(ctx context.Context, fset *source.FileSet, plan *stage.Plan, findings []diag.Finding, prefix string, failAt diag.Severity, opts Options) (stage.GateResult, error) {
	var kept []diag.Finding
	for _, f := range findings {
		if !f.IsNone() && !plan.Excluded(fset.Get(f.Primary.File).Path) {
			kept = append(kept, f)
		}
	}
	suppressed, err := Suppressions(ctx, fset, kept, prefix, opts)
	if err != nil {
		return stage.GateResult{}, err
	}
	return plan.Gate(kept, suppressed, failAt), nil
}
