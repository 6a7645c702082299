package patch

import "suppressible/internal/classfile"

// Internal names of the analysis engine types the default edits target.
const (
	BugCheckerInfoClass = "com/google/errorprone/BugCheckerInfo"
	VisitorStateClass   = "com/google/errorprone/VisitorState"
	DescriptionClass    = "com/google/errorprone/matchers/Description"

	runtimePackage = "com/palantir/suppressibleerrorprone/"
)

// DefaultConstructorHook is the routine that gives every check an extra
// rollout alias once its metadata object is fully built.
var DefaultConstructorHook = classfile.MemberRef{
	Owner:      runtimePackage + "BugCheckerInfoModifications",
	Name:       "addAutomaticallyAddedPrefix",
	Descriptor: "(L" + BugCheckerInfoClass + ";)V",
}

// DefaultReportTarget is the call inside VisitorState.reportMatch whose result
// is the finding about to be reported. Any descriptor matches.
var DefaultReportTarget = classfile.MemberRef{
	Owner: DescriptionClass,
	Name:  "applySeverityOverride",
}

// DefaultInterceptor decorates each finding with a marker-annotation fix.
var DefaultInterceptor = classfile.MemberRef{
	Owner:      runtimePackage + "VisitorStateModifications",
	Name:       "interceptDescription",
	Descriptor: "(L" + VisitorStateClass + ";L" + DescriptionClass + ";)L" + DescriptionClass + ";",
}

// ConstructorHook returns the edit applied to BugCheckerInfo in every stage.
func ConstructorHook(hook classfile.MemberRef) *ConstructorTailHook {
	return &ConstructorTailHook{Owner: BugCheckerInfoClass, Hook: hook}
}

// ReportInterception returns the edit applied to VisitorState in Stage 1.
func ReportInterception(target, wrapper classfile.MemberRef) *CallSiteWrap {
	return &CallSiteWrap{
		Owner:        VisitorStateClass,
		HostMethod:   "reportMatch",
		Target:       target,
		Wrapper:      wrapper,
		PassReceiver: true,
	}
}
