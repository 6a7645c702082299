package stage

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"suppressible/internal/archive"
	"suppressible/internal/checks"
	"suppressible/internal/coalesce"
)

// Engine arguments.
const (
	ArgPatchLocation            = "-XepPatchLocation:IN_PLACE"
	ArgPatchChecks              = "-XepPatchChecks:"
	ArgDisableWarningsGenerated = "-XepDisableWarningsInGeneratedCode"
	ArgExcludedPaths            = "-XepExcludedPaths:"
)

// DefaultStripArgs are the compiler arguments removed in patching stages so
// code near deprecated usages can still be rewritten.
var DefaultStripArgs = []string{"-Werror", "-deprecation", "-Xlint:deprecation"}

// Options carries configuration that does not depend on the stage.
type Options struct {
	// ExcludePaths is a regular expression over slash-separated source
	// paths. Empty excludes nothing.
	ExcludePaths string
	// Annotations is the artifact holding the marker annotation type,
	// needed on the compile classpath in Stage 2.
	Annotations string
}

// Plan is everything one invocation needs to know about its stage.
type Plan struct {
	Stage Stage
	// Enabled is false when the engine must not run at all.
	Enabled bool
	// PatchEngine asks for the transformed engine archive, in Variant.
	PatchEngine bool
	Variant     archive.Variant
	EngineArgs  []string
	// PatchChecks are the checks whose fixes are written to source. Empty
	// in Apply mode means nothing is patched.
	PatchChecks       []string
	CompileOnly       []string
	DisableBuildCache bool
	StripArgs         []string
	Warnings          bool
	Deprecation       bool

	exclude *regexp.Regexp
}

// NewPlan derives the plan for stage. explicit is the apply list from
// Flags.ApplyList; when empty, the resolver supplies the checks.
func NewPlan(st Stage, explicit []string, r *checks.Resolver, comp *checks.Compilation, opts Options) (*Plan, error) {
	p := &Plan{
		Stage:       st,
		Enabled:     st != StageDisabled,
		Variant:     archive.VariantStandard,
		Warnings:    true,
		Deprecation: true,
	}
	if opts.ExcludePaths != "" {
		re, err := regexp.Compile(opts.ExcludePaths)
		if err != nil {
			return nil, fmt.Errorf("exclude-paths: %w", err)
		}
		p.exclude = re
	}
	if !p.Enabled {
		return p, nil
	}
	p.PatchEngine = true
	p.EngineArgs = append(p.EngineArgs, ArgDisableWarningsGenerated)
	if p.exclude != nil {
		p.EngineArgs = append(p.EngineArgs, ArgExcludedPaths+opts.ExcludePaths)
	}

	switch st {
	case StageIntercept:
		p.Variant = archive.VariantIntercept
		p.EngineArgs = append(p.EngineArgs, ArgPatchLocation, ArgPatchChecks)
	case StageCoalesce:
		p.PatchChecks = []string{coalesce.CheckName}
		p.EngineArgs = append(p.EngineArgs, ArgPatchLocation, ArgPatchChecks+coalesce.CheckName)
		if opts.Annotations != "" {
			p.CompileOnly = append(p.CompileOnly, opts.Annotations)
		}
	case StageApply:
		pc := slices.Clone(explicit)
		if len(pc) == 0 && r != nil {
			resolved, err := r.Effective(comp)
			if err != nil {
				return nil, err
			}
			pc = resolved
		}
		// an empty list would make the engine patch every enabled check
		if len(pc) > 0 {
			p.PatchChecks = pc
			p.EngineArgs = append(p.EngineArgs, ArgPatchLocation, ArgPatchChecks+strings.Join(pc, ","))
		}
	}

	if st.Patching() {
		p.DisableBuildCache = true
		p.StripArgs = slices.Clone(DefaultStripArgs)
		p.Warnings = false
		p.Deprecation = false
	}
	return p, nil
}

// CompilerArgs returns args without the ones the plan strips.
func (p *Plan) CompilerArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if !slices.Contains(p.StripArgs, a) {
			out = append(out, a)
		}
	}
	return out
}

// Excluded reports whether path is exempt from analysis and rewriting.
func (p *Plan) Excluded(path string) bool {
	if p.exclude == nil {
		return false
	}
	return p.exclude.MatchString(strings.ReplaceAll(path, "\\", "/"))
}

// Patches reports whether findings of check are fixed in place.
func (p *Plan) Patches(check string) bool {
	return slices.Contains(p.PatchChecks, check)
}
