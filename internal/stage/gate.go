package stage

import (
	"suppressible/internal/diag"
)

// GateResult is the outcome of an invocation's exit policy.
type GateResult struct {
	ExitCode int
	// Failing lists the findings that caused a non-zero exit, ordered by
	// position with repeats of the same check and span dropped.
	Failing []diag.Finding
}

// Gate applies the exit policy. Disabled, Stage 1 and Stage 2 invocations
// always succeed. Otherwise a finding fails the invocation when its check is
// not patched, it is not suppressed, and its severity is at least failAt.
func (p *Plan) Gate(findings []diag.Finding, suppressed func(diag.Finding) bool, failAt diag.Severity) GateResult {
	switch p.Stage {
	case StageDisabled, StageIntercept, StageCoalesce:
		return GateResult{}
	}
	failing := diag.NewBag(0)
	for _, f := range findings {
		if f.IsNone() || f.Severity < failAt || p.Patches(f.Check) {
			continue
		}
		if suppressed != nil && suppressed(f) {
			continue
		}
		failing.Add(f)
	}
	failing.Dedup()
	failing.Sort()

	res := GateResult{Failing: failing.Items()}
	if len(res.Failing) > 0 {
		res.ExitCode = 1
	}
	return res
}
