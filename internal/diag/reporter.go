package diag

import "suppressible/internal/source"

// Reporter receives findings from checks.
type Reporter interface {
	Report(f Finding)
}

// ReportBuilder accumulates finding details before emitting to Reporter.
type ReportBuilder struct {
	reporter Reporter
	finding  Finding
	emitted  bool
}

// NewReportBuilder constructs a builder bound to Reporter.
func NewReportBuilder(r Reporter, sev Severity, check string, primary source.Span, msg string) *ReportBuilder {
	return &ReportBuilder{
		reporter: r,
		finding: Finding{
			Check:    check,
			Severity: sev,
			Message:  msg,
			Primary:  primary,
		},
	}
}

// WithFix appends a fix.
func (b *ReportBuilder) WithFix(fix Fix) *ReportBuilder {
	if b == nil {
		return nil
	}
	b.finding = b.finding.WithFix(fix)
	return b
}

// Emit sends the finding to the underlying reporter exactly once.
func (b *ReportBuilder) Emit() {
	if b == nil || b.emitted {
		return
	}
	if b.reporter != nil {
		b.reporter.Report(b.finding)
	}
	b.emitted = true
}

// BagReporter writes into a *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(f Finding) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(f)
}
