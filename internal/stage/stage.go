// Package stage selects the mode of one compiler invocation and derives
// everything that mode changes: engine arguments, patching, and the exit
// policy.
package stage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConflictingStages is returned when more than one stage flag is set.
var ErrConflictingStages = errors.New("conflicting stage flags")

// Stage is the mode of a single invocation. Nothing persists between
// invocations; callers pick the next stage themselves.
type Stage uint8

const (
	StageNormal Stage = iota
	StageDisabled
	// StageIntercept turns every finding into a marker annotation.
	StageIntercept
	// StageCoalesce runs only the coalescing check.
	StageCoalesce
	// StageApply applies the fixes of a set of patchable checks.
	StageApply
)

func (s Stage) String() string {
	switch s {
	case StageNormal:
		return "normal"
	case StageDisabled:
		return "disabled"
	case StageIntercept:
		return "suppress-stage-1"
	case StageCoalesce:
		return "suppress-stage-2"
	case StageApply:
		return "apply"
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// Patching reports whether s edits source files.
func (s Stage) Patching() bool {
	return s == StageIntercept || s == StageCoalesce || s == StageApply
}

// Flags are the mutually exclusive stage selectors.
type Flags struct {
	Disable bool
	Stage1  bool
	Stage2  bool
	// Apply is nil when the flag is absent. An empty value asks for the
	// resolved default set.
	Apply *string
}

// Select returns the single selected stage.
func (f Flags) Select() (Stage, error) {
	var set []string
	st := StageNormal
	if f.Disable {
		set, st = append(set, "disable"), StageDisabled
	}
	if f.Stage1 {
		set, st = append(set, "suppress-stage-1"), StageIntercept
	}
	if f.Stage2 {
		set, st = append(set, "suppress-stage-2"), StageCoalesce
	}
	if f.Apply != nil {
		set, st = append(set, "apply"), StageApply
	}
	if len(set) > 1 {
		return StageNormal, fmt.Errorf("%w: %s", ErrConflictingStages, strings.Join(set, ", "))
	}
	return st, nil
}

// ApplyList returns the explicitly requested checks: the apply value split
// on commas, trimmed, with empty names dropped. nil means "use the
// resolved set".
func (f Flags) ApplyList() []string {
	if f.Apply == nil {
		return nil
	}
	var out []string
	for _, c := range strings.Split(*f.Apply, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
