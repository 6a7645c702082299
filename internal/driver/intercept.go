package driver

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"suppressible/internal/diag"
	"suppressible/internal/fix"
	"suppressible/internal/intercept"
	"suppressible/internal/javasyntax"
	"suppressible/internal/source"
)

// Result is the outcome of a source-rewriting run.
type Result struct {
	// Findings are the findings whose fixes were offered to the fix engine.
	Findings []diag.Finding
	Apply    *fix.ApplyResult
	// Broken lists files that did not parse and were left untouched.
	Broken []Unit
}

// parseByFile parses every file the findings point into, keyed by file ID.
func parseByFile(ctx context.Context, fset *source.FileSet, findings []diag.Finding, opts Options) (map[source.FileID]Unit, error) {
	seen := make(map[source.FileID]bool)
	var files []*source.File
	for _, f := range findings {
		if f.IsNone() || seen[f.Primary.File] {
			continue
		}
		seen[f.Primary.File] = true
		files = append(files, fset.Get(f.Primary.File))
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ID < files[j].ID })

	units, err := ParseUnits(ctx, files, opts)
	if err != nil {
		return nil, err
	}
	out := make(map[source.FileID]Unit, len(units))
	for _, u := range units {
		out[u.File.ID] = u
	}
	return out, nil
}

// Intercept rewrites every finding into a marker-annotation suggestion and
// applies all of them. Findings in excluded files are dropped first. A
// finding with no suppressible ancestor aborts the run.
func Intercept(ctx context.Context, fset *source.FileSet, findings []diag.Finding, ic *intercept.Interceptor, opts Options) (*Result, error) {
	var kept []diag.Finding
	for _, f := range findings {
		if f.IsNone() || opts.excluded(fset.Get(f.Primary.File).Path) {
			continue
		}
		kept = append(kept, f)
	}

	for _, f := range kept {
		opts.emit(fset.Get(f.Primary.File).Path, StepParse, StatusQueued, nil)
	}
	pctx, done := phase(ctx, opts, "parse")
	units, err := parseByFile(pctx, fset, kept, opts)
	done(fmt.Sprintf("%d units", len(units)))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, u := range units {
		if u.Err != nil {
			opts.emit(u.File.Path, StepParse, StatusError, u.Err)
			return nil, fmt.Errorf("%s: %w", u.File.Path, u.Err)
		}
	}

	_, done = phase(ctx, opts, "intercept")
	bag := diag.NewBag(0)
	r := diag.BagReporter{Bag: bag}
	states := make(map[source.FileID]*intercept.State, len(units))
	for _, f := range kept {
		st := states[f.Primary.File]
		if st == nil {
			st = intercept.NewState(units[f.Primary.File].Syntax)
			states[f.Primary.File] = st
			opts.emit(fset.Get(f.Primary.File).Path, StepRewrite, StatusWorking, nil)
		}
		out, err := ic.Intercept(st, f)
		if err != nil {
			done("failed")
			return nil, err
		}
		r.Report(out)
	}
	res.Findings = bag.Items()
	done(fmt.Sprintf("%d findings", len(res.Findings)))

	err = applyFixes(ctx, fset, res, opts)
	for _, u := range units {
		opts.emit(u.File.Path, StepApply, StatusDone, nil)
	}
	return res, err
}

func applyFixes(ctx context.Context, fset *source.FileSet, res *Result, opts Options) error {
	_, done := phase(ctx, opts, "apply")
	apply := fix.ApplyOptions{Mode: fix.ApplyModeAll, DryRun: opts.DryRun}
	if opts.FixID != "" {
		apply.Mode, apply.TargetID = fix.ApplyModeID, opts.FixID
	}
	applied, err := fix.Apply(fset, res.Findings, apply)
	res.Apply = applied
	if errors.Is(err, fix.ErrNoFixes) {
		err = nil
	}
	if applied != nil {
		done(fmt.Sprintf("%d applied, %d skipped", len(applied.Applied), len(applied.Skipped)))
	} else {
		done("")
	}
	return err
}

// unitOf returns the parsed unit for a finding's file, if it parsed.
func unitOf(units map[source.FileID]Unit, f diag.Finding) *javasyntax.Unit {
	u, ok := units[f.Primary.File]
	if !ok || u.Err != nil {
		return nil
	}
	return u.Syntax
}
