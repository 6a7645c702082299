package fix

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"suppressible/internal/diag"
	"suppressible/internal/source"
)

func TestGatherCandidatesSkipsDuplicateFixIDs(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("A.java", []byte(""))
	span := source.Span{File: fileID, Start: 0, End: 0}

	findings := []diag.Finding{{
		Check:   "MissingSemicolon",
		Message: "missing semicolon",
		Primary: span,
		Fixes: []diag.Fix{
			{
				ID:    "fix-duplicate",
				Title: "insert semicolon",
				Edits: []diag.TextEdit{{Span: span, NewText: ";"}},
			},
			{
				ID:    "fix-duplicate",
				Title: "insert semicolon again",
				Edits: []diag.TextEdit{{Span: span, NewText: ";"}},
			},
		},
	}}

	candidates, skips := gatherCandidates(findings)
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if len(skips) != 1 {
		t.Fatalf("expected 1 skipped fix, got %d", len(skips))
	}
	if skips[0].ID != "fix-duplicate" || skips[0].Reason != "duplicate fix id" {
		t.Fatalf("unexpected skip %+v", skips[0])
	}
}

func TestGatherCandidatesSynthesizesIDs(t *testing.T) {
	span := source.Span{File: 1, Start: 7, End: 7}
	findings := []diag.Finding{{
		Check:   "Foo",
		Primary: span,
		Fixes: []diag.Fix{
			{Title: "a", Edits: []diag.TextEdit{{Span: span, NewText: "x"}}},
			{Title: "empty"},
		},
	}}
	candidates, skips := gatherCandidates(findings)
	if len(candidates) != 1 || candidates[0].fix.ID != "Foo-1-7-0" {
		t.Fatalf("unexpected candidates %+v", candidates)
	}
	if len(skips) != 1 || skips[0].Reason != "fix has no edits" {
		t.Fatalf("unexpected skips %+v", skips)
	}
}

func TestSpansConflict(t *testing.T) {
	edit := func(s, e uint32) diag.TextEdit {
		return diag.TextEdit{Span: source.Span{Start: s, End: e}}
	}
	cases := []struct {
		name string
		a, b diag.TextEdit
		want bool
	}{
		{"two inserts", edit(3, 3), edit(3, 3), false},
		{"insert inside range", edit(4, 4), edit(2, 6), true},
		{"insert at range end", edit(6, 6), edit(2, 6), false},
		{"overlap", edit(0, 4), edit(3, 8), true},
		{"adjacent", edit(0, 3), edit(3, 8), false},
	}
	for _, tc := range cases {
		if got := spansConflict(tc.a, tc.b); got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestApplyDryRunOnVirtualFile(t *testing.T) {
	fs := source.NewFileSet()
	content := "class A {\n  int x\n}\n"
	fileID := fs.AddVirtual("A.java", []byte(content))

	at := source.Span{File: fileID, Start: 17, End: 17}
	findings := []diag.Finding{{
		Check:   "MissingSemicolon",
		Primary: at,
		Fixes:   []diag.Fix{InsertText("insert semicolon", at, ";", "")},
	}}

	res, err := Apply(fs, findings, ApplyOptions{Mode: ApplyModeAll, DryRun: true})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(res.FileChanges) != 1 {
		t.Fatalf("expected 1 file change, got %d", len(res.FileChanges))
	}
	change := res.FileChanges[0]
	if string(change.Before) != content {
		t.Errorf("Before changed: %q", change.Before)
	}
	if want := "class A {\n  int x;\n}\n"; string(change.After) != want {
		t.Errorf("After = %q, want %q", change.After, want)
	}
	if res.Applied[0].Check != "MissingSemicolon" {
		t.Errorf("unexpected check %q", res.Applied[0].Check)
	}
}

func TestApplySkipsVirtualFileWhenWriting(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("A.java", []byte("x"))
	at := source.Span{File: fileID}
	findings := []diag.Finding{{
		Check:   "C",
		Primary: at,
		Fixes:   []diag.Fix{InsertText("t", at, "y", "")},
	}}
	res, err := Apply(fs, findings, ApplyOptions{Mode: ApplyModeAll})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("expected ErrNoFixes, got %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Reason != "target file is virtual" {
		t.Fatalf("unexpected skips %+v", res.Skipped)
	}
}

func TestApplyWritesFileAndShiftsLaterEdits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.java")
	if err := os.WriteFile(path, []byte("aaa bbb ccc"), 0o600); err != nil {
		t.Fatal(err)
	}
	fs := source.NewFileSet()
	fileID, err := fs.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	first := source.Span{File: fileID, Start: 0, End: 3}
	second := source.Span{File: fileID, Start: 8, End: 11}
	findings := []diag.Finding{
		{Check: "A", Primary: first, Fixes: []diag.Fix{ReplaceSpan("grow", first, "aaaaa", "aaa")}},
		{Check: "B", Primary: second, Fixes: []diag.Fix{DeleteSpan("drop", second, "ccc")}},
		{Check: "C", Primary: first, Fixes: []diag.Fix{ReplaceSpan("clash", first, "z", "")}},
	}

	res, err := Apply(fs, findings, ApplyOptions{Mode: ApplyModeAll})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(res.Applied) != 2 {
		t.Fatalf("expected 2 applied fixes, got %+v", res.Applied)
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("expected the overlapping fix to be skipped, got %+v", res.Skipped)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "aaaaa bbb " {
		t.Errorf("file = %q", got)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode not preserved: %v", info.Mode())
	}
}

func TestApplyGuardMismatch(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("A.java", []byte("hello"))
	span := source.Span{File: fileID, Start: 0, End: 5}
	findings := []diag.Finding{{
		Check:   "C",
		Primary: span,
		Fixes:   []diag.Fix{ReplaceSpan("r", span, "bye", "world")},
	}}
	res, err := Apply(fs, findings, ApplyOptions{Mode: ApplyModeAll, DryRun: true})
	if !errors.Is(err, ErrNoFixes) {
		t.Fatalf("expected ErrNoFixes, got %v", err)
	}
	if res.Skipped[0].Reason != "existing text does not match expected content" {
		t.Errorf("unexpected reason %q", res.Skipped[0].Reason)
	}
}

func TestSelectByID(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("A.java", []byte("ab"))
	a := source.Span{File: fileID, Start: 0, End: 1}
	b := source.Span{File: fileID, Start: 1, End: 2}
	findings := []diag.Finding{
		{Check: "A", Primary: a, Fixes: []diag.Fix{ReplaceSpan("a", a, "A", "", WithID("fa"))}},
		{Check: "B", Primary: b, Fixes: []diag.Fix{ReplaceSpan("b", b, "B", "", WithID("fb"))}},
	}
	res, err := Apply(fs, findings, ApplyOptions{Mode: ApplyModeID, TargetID: "fb", DryRun: true})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if string(res.FileChanges[0].After) != "aB" {
		t.Errorf("After = %q", res.FileChanges[0].After)
	}

	_, err = Apply(fs, findings, ApplyOptions{Mode: ApplyModeID, TargetID: "missing", DryRun: true})
	if !errors.Is(err, ErrNoFixes) {
		t.Errorf("expected ErrNoFixes for unknown id, got %v", err)
	}
}
