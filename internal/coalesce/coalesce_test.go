package coalesce

import (
	"testing"

	"suppressible/internal/diag"
	"suppressible/internal/fix"
	"suppressible/internal/javasyntax"
	"suppressible/internal/source"
)

const marker = "@com.palantir.suppressibleerrorprone.RepeatableSuppressWarnings"

// run coalesces src once and returns the rewritten text and the findings.
func run(t *testing.T, src string) (string, []diag.Finding) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.AddVirtual("A.java", []byte(src))
	u, err := javasyntax.Parse(fs.Get(id))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	findings := New().Check(u)
	res, err := fix.Apply(fs, findings, fix.ApplyOptions{Mode: fix.ApplyModeAll, DryRun: true})
	if err != nil {
		return src, findings
	}
	return string(res.FileChanges[0].After), findings
}

func TestCoalesceMergesManualAndMarkers(t *testing.T) {
	src := "class A {\n" +
		"    " + marker + "(\"for-rollout:C\")\n" +
		"    " + marker + "(\"for-rollout:B\")\n" +
		"    @SuppressWarnings(\"A\")\n" +
		"    int x;\n" +
		"}\n"
	want := "class A {\n" +
		"    @SuppressWarnings({\"A\", \"for-rollout:B\", \"for-rollout:C\"})\n" +
		"    int x;\n" +
		"}\n"

	got, findings := run(t, src)
	if len(findings) != 1 || findings[0].Check != CheckName {
		t.Fatalf("unexpected findings %+v", findings)
	}
	if got != want {
		t.Fatalf("got\n%s\nwant\n%s", got, want)
	}

	again, findings := run(t, got)
	if len(findings) != 0 || again != got {
		t.Errorf("second run changed the source:\n%s", again)
	}
}

func TestCoalesceWithoutManual(t *testing.T) {
	src := "class A {\n    " + marker + "(\"for-rollout:B\")\n    void f() {}\n}\n"
	want := "class A {\n    @SuppressWarnings(\"for-rollout:B\")\n    void f() {}\n}\n"
	if got, _ := run(t, src); got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestCoalesceDropsDuplicates(t *testing.T) {
	src := "@RepeatableSuppressWarnings(\"for-rollout:B\")\n" +
		"@RepeatableSuppressWarnings(\"for-rollout:B\")\n" +
		"@java.lang.SuppressWarnings({\"for-rollout:B\", \"A\"})\n" +
		"class A {}\n"
	want := "@java.lang.SuppressWarnings({\"for-rollout:B\", \"A\"})\nclass A {}\n"
	if got, _ := run(t, src); got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestCoalesceSharedModifiersOnce(t *testing.T) {
	src := "class A {\n    " + marker + "(\"for-rollout:B\")\n    int a, b;\n}\n"
	got, findings := run(t, src)
	if len(findings) != 1 {
		t.Fatalf("expected one finding for shared modifiers, got %d", len(findings))
	}
	if want := "class A {\n    @SuppressWarnings(\"for-rollout:B\")\n    int a, b;\n}\n"; got != want {
		t.Errorf("got\n%s\nwant\n%s", got, want)
	}
}

func TestCoalesceNonLiteralManual(t *testing.T) {
	src := "class A {\n    " + marker + "(\"for-rollout:B\")\n    @SuppressWarnings(Names.ALL)\n    int x;\n}\n"
	got, findings := run(t, src)
	if len(findings) != 1 || len(findings[0].Fixes) != 0 {
		t.Fatalf("expected a finding without fix, got %+v", findings)
	}
	if got != src {
		t.Errorf("source changed:\n%s", got)
	}
}

func TestCoalesceNoMarkers(t *testing.T) {
	src := "class A {\n    @SuppressWarnings(\"A\")\n    int x;\n}\n"
	if _, findings := run(t, src); len(findings) != 0 {
		t.Errorf("unexpected findings %+v", findings)
	}
}

func TestRender(t *testing.T) {
	if got := render("SuppressWarnings", []string{"a\"b"}); got != `@SuppressWarnings("a\"b")` {
		t.Errorf("render = %s", got)
	}
}

func TestReportNamesFixByPosition(t *testing.T) {
	src := "class A {\n    " + marker + "(\"for-rollout:B\")\n    void f() {}\n}\n"
	fs := source.NewFileSet()
	u, err := javasyntax.Parse(fs.Get(fs.AddVirtual("src/A.java", []byte(src))))
	if err != nil {
		t.Fatal(err)
	}
	bag := diag.NewBag(0)
	New().Report(u, diag.BagReporter{Bag: bag})
	if bag.Len() != 1 {
		t.Fatalf("reported %d findings", bag.Len())
	}
	f := bag.Items()[0]
	if len(f.Fixes) != 1 || f.Fixes[0].ID != CheckName+"@src/A.java:2:5" {
		t.Fatalf("fixes = %+v", f.Fixes)
	}
}
