// Package driver runs the source-level stages over a set of Java files.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"suppressible/internal/javasyntax"
	"suppressible/internal/observ"
	"suppressible/internal/source"
	"suppressible/internal/trace"
)

// Options configures a driver run.
type Options struct {
	// Jobs bounds parallel parsing; <= 0 uses GOMAXPROCS.
	Jobs int
	// Exclude reports paths that must be neither analysed nor rewritten.
	Exclude func(path string) bool
	// DryRun computes rewritten contents without writing them.
	DryRun bool
	// FixID limits the apply step to the fix with this ID; empty applies all.
	FixID    string
	Timer    *observ.Timer
	Progress ProgressSink
}

func (o Options) excluded(path string) bool {
	return o.Exclude != nil && o.Exclude(path)
}

func (o Options) jobs(n int) int {
	jobs := o.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return max(1, min(jobs, n))
}

// Unit is one parsed source file. Err is set when the file did not parse;
// Syntax is nil then.
type Unit struct {
	File   *source.File
	Syntax *javasyntax.Unit
	Err    error
}

// ListJavaFiles expands roots into a sorted, duplicate-free list of .java
// files. A root may be a directory, walked recursively, or a single file.
func ListJavaFiles(roots []string, exclude func(string) bool) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if seen[path] || (exclude != nil && exclude(path)) {
			return
		}
		seen[path] = true
		files = append(files, path)
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(filepath.Clean(root))
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, ".java") {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(files)
	return files, nil
}

// LoadFiles reads paths into fs in order. FileSet is not safe for
// concurrent use, so loading stays sequential.
func LoadFiles(fset *source.FileSet, paths []string) ([]*source.File, error) {
	out := make([]*source.File, 0, len(paths))
	var errs []error
	for _, path := range paths {
		id, err := fset.Load(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", path, err))
			continue
		}
		out = append(out, fset.Get(id))
	}
	return out, errors.Join(errs...)
}

// ParseUnits parses files in parallel. Results keep the order of files; a
// parse error is recorded on its unit and does not stop the others.
func ParseUnits(ctx context.Context, files []*source.File, opts Options) ([]Unit, error) {
	units := make([]Unit, len(files))
	if len(files) == 0 {
		return units, nil
	}
	tr := trace.FromContext(ctx)
	parent := trace.ParentID(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs(len(files)))
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			span := trace.Begin(tr, trace.ScopeUnit, "unit:"+file.Path, parent)
			opts.emit(file.Path, StepParse, StatusWorking, nil)
			syntax, err := javasyntax.Parse(file)
			// each goroutine owns units[i]
			units[i] = Unit{File: file, Syntax: syntax, Err: err}
			if err != nil {
				span.End(err.Error())
			} else {
				span.End("")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return units, err
	}
	return units, nil
}

// phase opens a timer phase and a trace span together.
func phase(ctx context.Context, opts Options, name string) (context.Context, func(note string)) {
	idx := opts.Timer.Begin(name)
	ctx, span := trace.Start(ctx, trace.ScopePhase, name)
	return ctx, func(note string) {
		span.End(note)
		opts.Timer.End(idx, note)
	}
}
