package driver

import (
	"context"
	"fmt"

	"suppressible/internal/coalesce"
	"suppressible/internal/diag"
	"suppressible/internal/source"
)

// Coalesce runs the coalescing check over every .java file under roots and
// applies its fixes. Files that do not parse are reported in Result.Broken
// and left alone.
func Coalesce(ctx context.Context, roots []string, c *coalesce.Checker, opts Options) (*source.FileSet, *Result, error) {
	fset := source.NewFileSet()

	_, done := phase(ctx, opts, "load")
	paths, err := ListJavaFiles(roots, opts.Exclude)
	if err != nil {
		done("failed")
		return fset, nil, err
	}
	files, err := LoadFiles(fset, paths)
	done(fmt.Sprintf("%d files", len(files)))
	if err != nil {
		return fset, nil, err
	}
	for _, f := range files {
		opts.emit(f.Path, StepParse, StatusQueued, nil)
	}

	pctx, done := phase(ctx, opts, "parse")
	units, err := ParseUnits(pctx, files, opts)
	done(fmt.Sprintf("%d units", len(units)))
	if err != nil {
		return fset, nil, err
	}

	res := &Result{}
	bag := diag.NewBag(0)
	_, done = phase(ctx, opts, "coalesce")
	for _, u := range units {
		if u.Err != nil {
			res.Broken = append(res.Broken, u)
			continue
		}
		opts.emit(u.File.Path, StepRewrite, StatusWorking, nil)
		c.Report(u.Syntax, diag.BagReporter{Bag: bag})
	}
	res.Findings = bag.Items()
	done(fmt.Sprintf("%d findings", len(res.Findings)))

	err = applyFixes(ctx, fset, res, opts)
	opts.emitOutcome(units)
	return fset, res, err
}
