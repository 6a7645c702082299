package diag

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"suppressible/internal/source"
)

func TestLoadFindings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.java")
	if err := os.WriteFile(path, []byte("class A {\n  int x;\n}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	js := `[
		{"check": "Unused", "file": "` + filepath.ToSlash(path) + `", "line": 2, "column": 3, "message": "unused", "severity": "WARNING"},
		{"check": "Other", "file": "` + filepath.ToSlash(path) + `", "start": 0, "end": 5, "message": "m"}
	]`
	fs := source.NewFileSet()
	got, err := LoadFindings(fs, strings.NewReader(js))
	if err != nil {
		t.Fatalf("LoadFindings: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d findings", len(got))
	}
	if got[0].Primary.Start != 12 || got[0].Severity != SevWarning {
		t.Errorf("first finding = %+v", got[0])
	}
	if got[1].Primary.End != 5 || got[1].Severity != SevError {
		t.Errorf("second finding = %+v", got[1])
	}
	if fs.Len() != 1 {
		t.Errorf("file loaded %d times", fs.Len())
	}
}

func TestLoadFindingsRejectsBadInput(t *testing.T) {
	fs := source.NewFileSet()
	fs.AddVirtual("V.java", []byte("class V {}"))
	cases := map[string]string{
		"no check":    `[{"file": "V.java", "start": 0}]`,
		"no position": `[{"check": "C", "file": "V.java"}]`,
		"past end":    `[{"check": "C", "file": "V.java", "start": 3, "end": 99}]`,
		"severity":    `[{"check": "C", "file": "V.java", "start": 0, "severity": "LOUD"}]`,
		"not json":    `{`,
	}
	for name, js := range cases {
		if _, err := LoadFindings(fs, strings.NewReader(js)); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestBagSortDedup(t *testing.T) {
	b := NewBag(0)
	r := BagReporter{Bag: b}
	sp := func(s, e uint32) source.Span { return source.Span{Start: s, End: e} }
	NewReportBuilder(r, SevWarning, "B", sp(5, 6), "b").Emit()
	NewReportBuilder(r, SevError, "A", sp(1, 2), "a").Emit()
	NewReportBuilder(r, SevWarning, "B", sp(5, 6), "dup").Emit()
	b.Sort()
	b.Dedup()
	items := b.Items()
	if len(items) != 2 || items[0].Check != "A" || items[1].Message != "b" {
		t.Fatalf("items = %+v", items)
	}

	limited := NewBag(1)
	if !limited.Add(items[0]) || limited.Add(items[1]) || limited.Len() != 1 {
		t.Fatalf("limited bag kept %d findings", limited.Len())
	}
}

func TestNoFinding(t *testing.T) {
	if !NoFinding.IsNone() {
		t.Fatal("NoFinding is not none")
	}
	f := Finding{Check: "X"}
	g := f.WithFix(Fix{Title: "t"})
	if len(f.Fixes) != 0 || len(g.Fixes) != 1 || g.IsNone() {
		t.Fatal("WithFix mutated the receiver or lost the fix")
	}
}
