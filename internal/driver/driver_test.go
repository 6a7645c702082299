package driver

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	"suppressible/internal/archive"
	"suppressible/internal/cache"
	"suppressible/internal/coalesce"
	"suppressible/internal/diag"
	"suppressible/internal/intercept"
	"suppressible/internal/observ"
	"suppressible/internal/source"
	"suppressible/internal/stage"
)

const sampleA = `package p;

class A {
    void run() {
        int x = 1;
    }
}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func loadFindings(t *testing.T, fset *source.FileSet, json string) []diag.Finding {
	t.Helper()
	findings, err := diag.LoadFindings(fset, strings.NewReader(json))
	if err != nil {
		t.Fatalf("LoadFindings: %v", err)
	}
	return findings
}

func findingsJSON(path, check string, line, col int) string {
	return `[{"check":"` + check + `","file":"` + filepath.ToSlash(path) + `","line":` +
		strconv.Itoa(line) + `,"column":` + strconv.Itoa(col) + `,"message":"m","severity":"error"}]`
}

func TestListJavaFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b/B.java", "a/A.java", "gen/G.java", "notes.txt"} {
		writeFile(t, filepath.Join(dir, name), "")
	}
	single := filepath.Join(dir, "a", "A.java")
	exclude := func(p string) bool { return strings.Contains(filepath.ToSlash(p), "/gen/") }

	got, err := ListJavaFiles([]string{dir, single}, exclude)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "a", "A.java"), filepath.Join(dir, "b", "B.java")}
	if !slices.Equal(got, want) {
		t.Fatalf("ListJavaFiles = %q, want %q", got, want)
	}

	if _, err := ListJavaFiles([]string{filepath.Join(dir, "missing")}, nil); err == nil {
		t.Fatal("missing root should fail")
	}
}

func TestParseUnitsKeepsOrderAndErrors(t *testing.T) {
	fset := source.NewFileSet()
	good := fset.Get(fset.AddVirtual("A.java", []byte(sampleA)))
	bad := fset.Get(fset.AddVirtual("B.java", []byte("class B { \"unterminated }")))

	units, err := ParseUnits(context.Background(), []*source.File{good, bad, good}, Options{Jobs: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(units) != 3 || units[0].Err != nil || units[2].Syntax == nil {
		t.Fatalf("good units: %+v", units)
	}
	if units[1].Err == nil || units[1].File != bad {
		t.Fatalf("bad unit should carry its error: %+v", units[1])
	}
}

func TestInterceptThenCoalesce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "src", "A.java")
	writeFile(t, path, sampleA)

	fset := source.NewFileSet()
	findings := loadFindings(t, fset, findingsJSON(path, "Unused", 5, 13))

	timer := observ.NewTimer()
	res, err := Intercept(context.Background(), fset, findings, intercept.New(), Options{Timer: timer})
	if err != nil {
		t.Fatalf("Intercept: %v", err)
	}
	if len(res.Apply.Applied) != 1 {
		t.Fatalf("applied = %+v", res.Apply)
	}
	stage1 := readFile(t, path)
	marker := "        @" + intercept.DefaultMarker + "(\"for-rollout:Unused\")\n        int x = 1;"
	if !strings.Contains(stage1, marker) {
		t.Fatalf("stage 1 output:\n%s", stage1)
	}

	_, res, err = Coalesce(context.Background(), []string{dir}, coalesce.New(), Options{Timer: timer})
	if err != nil {
		t.Fatalf("Coalesce: %v", err)
	}
	if len(res.Findings) != 1 || len(res.Broken) != 0 {
		t.Fatalf("coalesce findings = %+v", res.Findings)
	}
	stage2 := readFile(t, path)
	want := strings.Replace(sampleA, "        int x = 1;", "        @SuppressWarnings(\"for-rollout:Unused\")\n        int x = 1;", 1)
	if stage2 != want {
		t.Fatalf("stage 2 output:\n%s\nwant:\n%s", stage2, want)
	}

	// a second pass has nothing to do
	_, res, err = Coalesce(context.Background(), []string{dir}, coalesce.New(), Options{})
	if err != nil || len(res.Findings) != 0 {
		t.Fatalf("second coalesce: %+v, %v", res, err)
	}

	var names []string
	for _, p := range timer.Report().Phases {
		names = append(names, p.Name)
	}
	if !slices.Contains(names, "intercept") || !slices.Contains(names, "coalesce") {
		t.Errorf("timer phases = %q", names)
	}
}

func TestInterceptCRLFOffsetsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.java")
	crlf := strings.ReplaceAll(sampleA, "\n", "\r\n")
	writeFile(t, path, crlf)

	start := strings.Index(crlf, "int x = 1;")
	end := start + len("int x = 1;")
	json := `[{"check":"Foo","file":"` + filepath.ToSlash(path) + `","start":` + strconv.Itoa(start) +
		`,"end":` + strconv.Itoa(end) + `,"message":"m"}]`

	fset := source.NewFileSet()
	findings := loadFindings(t, fset, json)
	if _, err := Intercept(context.Background(), fset, findings, intercept.New(), Options{}); err != nil {
		t.Fatalf("Intercept: %v", err)
	}
	want := strings.Replace(sampleA, "        int x = 1;",
		"        @"+intercept.DefaultMarker+"(\"for-rollout:Foo\")\n        int x = 1;", 1)
	want = strings.ReplaceAll(want, "\n", "\r\n")
	if got := readFile(t, path); got != want {
		t.Fatalf("output:\n%q\nwant:\n%q", got, want)
	}
}

func TestInterceptMixedLineEndingsKeepsUntouchedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.java")
	mixed := strings.Replace(sampleA, "class A {\n", "class A {\r\n", 1)
	writeFile(t, path, mixed)

	fset := source.NewFileSet()
	findings := loadFindings(t, fset, findingsJSON(path, "Unused", 5, 13))
	if _, err := Intercept(context.Background(), fset, findings, intercept.New(), Options{}); err != nil {
		t.Fatalf("Intercept: %v", err)
	}
	want := strings.Replace(mixed, "        int x = 1;",
		"        @"+intercept.DefaultMarker+"(\"for-rollout:Unused\")\n        int x = 1;", 1)
	if got := readFile(t, path); got != want {
		t.Fatalf("output:\n%q\nwant:\n%q", got, want)
	}
}

func TestInterceptFixIDAppliesOnlyThatFix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.java")
	writeFile(t, path, sampleA)

	fset := source.NewFileSet()
	findings := loadFindings(t, fset, findingsJSON(path, "Unused", 5, 13))
	findings = append(findings, loadFindings(t, fset, findingsJSON(path, "Other", 4, 10))...)

	preview, err := Intercept(context.Background(), fset, findings, intercept.New(), Options{DryRun: true})
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if len(preview.Apply.Applied) != 2 {
		t.Fatalf("dry run applied = %+v", preview.Apply.Applied)
	}
	var id string
	for _, a := range preview.Apply.Applied {
		if a.Check == "Unused" {
			id = a.ID
		}
	}
	if !strings.HasPrefix(id, "Unused@") || !strings.HasSuffix(id, ":5:13") {
		t.Fatalf("fix id = %q", id)
	}

	res, err := Intercept(context.Background(), fset, findings, intercept.New(), Options{FixID: id})
	if err != nil {
		t.Fatalf("Intercept: %v", err)
	}
	if len(res.Apply.Applied) != 1 || res.Apply.Applied[0].ID != id {
		t.Fatalf("applied = %+v", res.Apply.Applied)
	}
	got := readFile(t, path)
	if !strings.Contains(got, "for-rollout:Unused") || strings.Contains(got, "for-rollout:Other") {
		t.Fatalf("output:\n%s", got)
	}

	none, err := Intercept(context.Background(), fset, findings, intercept.New(), Options{FixID: "missing", DryRun: true})
	if err != nil {
		t.Fatalf("unknown id: %v", err)
	}
	if len(none.Apply.Applied) != 0 || len(none.Apply.Skipped) != 1 || none.Apply.Skipped[0].Reason != "fix id not found" {
		t.Fatalf("unknown id result = %+v", none.Apply)
	}
}

func TestInterceptDryRunLeavesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.java")
	writeFile(t, path, sampleA)

	fset := source.NewFileSet()
	findings := loadFindings(t, fset, findingsJSON(path, "Unused", 5, 13))
	res, err := Intercept(context.Background(), fset, findings, intercept.New(), Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if readFile(t, path) != sampleA {
		t.Fatal("dry run wrote the file")
	}
	if len(res.Apply.FileChanges) != 1 || !strings.Contains(string(res.Apply.FileChanges[0].After), "for-rollout:Unused") {
		t.Fatalf("dry run changes = %+v", res.Apply.FileChanges)
	}
}

func TestInterceptSkipsExcludedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "generated", "A.java")
	writeFile(t, path, sampleA)

	fset := source.NewFileSet()
	findings := loadFindings(t, fset, findingsJSON(path, "Unused", 5, 13))
	opts := Options{Exclude: func(p string) bool { return strings.Contains(p, "generated") }}
	res, err := Intercept(context.Background(), fset, findings, intercept.New(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Findings) != 0 || readFile(t, path) != sampleA {
		t.Fatalf("excluded file was touched: %+v", res.Findings)
	}
}

func TestInterceptUnsuppressibleAborts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.java")
	writeFile(t, path, sampleA)

	fset := source.NewFileSet()
	// the package clause has no enclosing declaration
	findings := loadFindings(t, fset, findingsJSON(path, "BadPackage", 1, 9))
	_, err := Intercept(context.Background(), fset, findings, intercept.New(), Options{})
	if err == nil || !strings.Contains(err.Error(), "can't find anything we can suppress") {
		t.Fatalf("expected unsuppressible error, got %v", err)
	}
	if readFile(t, path) != sampleA {
		t.Fatal("file changed after a failed run")
	}
}

func TestGateHonoursSuppressions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "A.java")
	src := strings.Replace(sampleA, "        int x = 1;", "        @SuppressWarnings(\"for-rollout:Unused\")\n        int x = 1;", 1)
	writeFile(t, path, src)

	fset := source.NewFileSet()
	suppressed := loadFindings(t, fset, findingsJSON(path, "Unused", 6, 13))
	open := loadFindings(t, fset, findingsJSON(path, "Other", 6, 13))

	plan, err := stage.NewPlan(stage.StageNormal, nil, nil, nil, stage.Options{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := Gate(context.Background(), fset, plan, suppressed, intercept.DefaultPrefix, diag.SevError, Options{})
	if err != nil || res.ExitCode != 0 {
		t.Fatalf("suppressed finding failed the gate: %+v, %v", res, err)
	}
	res, err = Gate(context.Background(), fset, plan, append(suppressed, open...), intercept.DefaultPrefix, diag.SevError, Options{})
	if err != nil || res.ExitCode != 1 || len(res.Failing) != 1 || res.Failing[0].Check != "Other" {
		t.Fatalf("open finding should fail: %+v, %v", res, err)
	}
}

func writeJar(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	fw, err := w.Create("META-INF/MANIFEST.MF")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("Manifest-Version: 1.0\n")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestTransformArchiveCache(t *testing.T) {
	dir := t.TempDir()
	jar := filepath.Join(dir, archive.DefaultPrefix+"-2.36.0.jar")
	writeJar(t, jar)
	c, err := cache.OpenDir(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatal(err)
	}
	tr := archive.New(archive.DefaultTargets())
	ctx := context.Background()

	first, err := TransformArchive(ctx, tr, c, jar, archive.VariantIntercept, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached || !strings.HasSuffix(first.Path, "_suppressible_modified.jar") {
		t.Fatalf("first transform = %+v", first)
	}
	second, err := TransformArchive(ctx, tr, c, jar, archive.VariantIntercept, "", "")
	if err != nil || !second.Cached || second.Path != first.Path {
		t.Fatalf("second transform = %+v, %v", second, err)
	}
	busted, err := TransformArchive(ctx, tr, c, jar, archive.VariantIntercept, "token", "")
	if err != nil || busted.Cached || busted.Path == first.Path {
		t.Fatalf("busted transform = %+v, %v", busted, err)
	}
	other, err := TransformArchive(ctx, tr, c, jar, archive.VariantStandard, "", "")
	if err != nil || other.Cached {
		t.Fatalf("variant must change the key: %+v, %v", other, err)
	}

	plain := filepath.Join(dir, "guava-33.0.jar")
	writeJar(t, plain)
	skipped, err := TransformArchive(ctx, tr, c, plain, archive.VariantStandard, "", "")
	if err != nil || !skipped.Skipped || skipped.Path != plain {
		t.Fatalf("unrelated archive = %+v, %v", skipped, err)
	}
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) OnEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *recordingSink) last(file string) (Event, bool) {
	var out Event
	found := false
	for _, ev := range s.events {
		if ev.File == file {
			out, found = ev, true
		}
	}
	return out, found
}

func TestCoalesceReportsProgress(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "A.java")
	bad := filepath.Join(dir, "B.java")
	writeFile(t, good, sampleA)
	writeFile(t, bad, "class B { \"unterminated }")

	sink := &recordingSink{}
	fset, res, err := Coalesce(context.Background(), []string{dir}, coalesce.New(), Options{Progress: sink})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Broken) != 1 {
		t.Fatalf("broken = %d, want 1", len(res.Broken))
	}
	if fset.Len() != 2 {
		t.Fatalf("loaded %d files, want 2", fset.Len())
	}
	for i := 0; i < fset.Len(); i++ {
		f := fset.Get(source.FileID(i))
		ev, ok := sink.last(f.Path)
		if !ok {
			t.Fatalf("no events for %s", f.Path)
		}
		want := StatusDone
		if strings.HasSuffix(f.Path, "B.java") {
			want = StatusError
		}
		if ev.Status != want {
			t.Errorf("%s last status = %s, want %s", f.Path, ev.Status, want)
		}
	}
}
