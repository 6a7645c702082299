package diff

import (
	"strings"
	"testing"
)

func TestUnifiedShowsInsertedLine(t *testing.T) {
	a := []byte("class A {\n  void f() {}\n}\n")
	b := []byte("class A {\n  @X\n  void f() {}\n}\n")

	got, oversize := Unified("src/A.java", a, b, Options{})
	if oversize {
		t.Fatal("unexpected oversize")
	}
	for _, want := range []string{"--- a/src/A.java", "+++ b/src/A.java", "+  @X\n", " class A {\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("diff missing %q:\n%s", want, got)
		}
	}
}

func TestUnifiedIdentical(t *testing.T) {
	got, _ := Unified("A.java", []byte("x\n"), []byte("x\n"), Options{})
	if got != "" {
		t.Errorf("expected empty diff, got %q", got)
	}
}

func TestUnifiedOversize(t *testing.T) {
	got, oversize := Unified("A.java", []byte("aaaa"), []byte("bbbb"), Options{MaxBytes: 4})
	if !oversize || !strings.Contains(got, "oversize") {
		t.Errorf("expected placeholder, got %q (%v)", got, oversize)
	}
}

func TestSplitLines(t *testing.T) {
	if got := splitLines("a\nb"); len(got) != 2 || got[1] != "b" {
		t.Errorf("unexpected split %q", got)
	}
	if got := splitLines("a\n"); len(got) != 1 {
		t.Errorf("trailing newline produced %q", got)
	}
}
