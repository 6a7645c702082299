package archive

import (
	"path/filepath"
	"strings"

	"suppressible/internal/classfile"
	"suppressible/internal/patch"
)

// Variant selects which flavour of the engine patch an archive receives.
type Variant uint8

const (
	// VariantStandard only adds the rollout alias hook.
	VariantStandard Variant = iota
	// VariantIntercept additionally turns every finding into a marker fix.
	VariantIntercept
)

func (v Variant) String() string {
	switch v {
	case VariantStandard:
		return "standard"
	case VariantIntercept:
		return "intercept"
	}
	return "unknown"
}

// Route sends one archive entry through a list of edits.
type Route struct {
	Entry    string
	Variants []Variant // empty applies to every variant
	Edits    []patch.Edit
}

func (r Route) appliesTo(v Variant) bool {
	if len(r.Variants) == 0 {
		return true
	}
	for _, x := range r.Variants {
		if x == v {
			return true
		}
	}
	return false
}

// Targets names the runtime routines the default routes call into.
type Targets struct {
	ConstructorHook classfile.MemberRef
	ReportTarget    classfile.MemberRef
	Interceptor     classfile.MemberRef
}

// DefaultTargets returns the routines shipped with the engine runtime.
func DefaultTargets() Targets {
	return Targets{
		ConstructorHook: patch.DefaultConstructorHook,
		ReportTarget:    patch.DefaultReportTarget,
		Interceptor:     patch.DefaultInterceptor,
	}
}

// DefaultRoutes patches BugCheckerInfo in every variant and VisitorState
// only when intercepting.
func DefaultRoutes(t Targets) []Route {
	return []Route{
		{
			Entry: patch.BugCheckerInfoClass + ".class",
			Edits: []patch.Edit{patch.ConstructorHook(t.ConstructorHook)},
		},
		{
			Entry:    patch.VisitorStateClass + ".class",
			Variants: []Variant{VariantIntercept},
			Edits:    []patch.Edit{patch.ReportInterception(t.ReportTarget, t.Interceptor)},
		},
	}
}

// DefaultPrefix selects the engine's check API archive by file name.
const DefaultPrefix = "error_prone_check_api"

// OutputName is the file name a transformed archive is published under.
func OutputName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, ".jar") + "_suppressible_modified.jar"
}
