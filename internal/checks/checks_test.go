package checks

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"suppressible/internal/javasyntax"
	"suppressible/internal/source"
)

func TestEffectiveConditionalGating(t *testing.T) {
	sel := &Selection{}
	sel.AddStatic("Static1", "Static2")
	sel.AddRule(ModuleUsed{Group: "com.palantir.baseline", Module: "baseline-refaster"}, "Refaster")
	sel.AddRule(ModuleUsed{Group: "org.junit", Module: "junit5"}, "JUnit5")

	comp := &Compilation{
		Name:         "main",
		Dependencies: []Module{{Group: "org.junit", Name: "junit5", Version: "5.10.0"}},
	}
	got, err := NewResolver(sel).Effective(comp)
	if err != nil {
		t.Fatalf("Effective: %v", err)
	}
	if want := "JUnit5,Static1,Static2"; strings.Join(got, ",") != want {
		t.Errorf("effective = %v, want %s", got, want)
	}
}

func TestEffectiveDropsChecksTurnedOff(t *testing.T) {
	sel := &Selection{Static: []string{"A", "B"}}
	sel.AddRule(PredicateFunc{Desc: "always", Fn: func(*Compilation) (bool, error) { return true, nil }}, "C")
	comp := &Compilation{Name: "main", Severities: map[string]string{"B": "off", "C": "OFF", "A": "WARN"}}

	got, err := NewResolver(sel).Effective(comp)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "A" {
		t.Errorf("effective = %v, want [A]", got)
	}
}

func TestPredicateMemoisedPerCompilation(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	sel := &Selection{}
	sel.AddRule(PredicateFunc{Desc: "counting", Fn: func(*Compilation) (bool, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return true, nil
	}}, "X")

	r := NewResolver(sel)
	main, test := &Compilation{Name: "main"}, &Compilation{Name: "test"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Effective(main); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if _, err := r.Effective(test); err != nil {
		t.Fatal(err)
	}
	// concurrent first evaluations may race, but never more than once per caller
	if calls < 2 || calls > 9 {
		t.Errorf("predicate ran %d times", calls)
	}
	before := calls
	_, _ = r.Effective(main)
	_, _ = r.Effective(test)
	if calls != before {
		t.Errorf("memoised predicate re-ran: %d -> %d", before, calls)
	}
}

func TestPredicateErrorIsConfigurationError(t *testing.T) {
	boom := errors.New("boom")
	sel := &Selection{}
	sel.AddRule(PredicateFunc{Desc: "broken", Fn: func(*Compilation) (bool, error) { return false, boom }}, "X")
	_, err := NewResolver(sel).Effective(&Compilation{Name: "main"})
	if !errors.Is(err, ErrPredicate) || !errors.Is(err, boom) {
		t.Fatalf("expected ErrPredicate wrapping boom, got %v", err)
	}
}

func TestParseModule(t *testing.T) {
	m, err := ParseModule("org.junit:junit5:5.10.0")
	if err != nil || m.Group != "org.junit" || m.Name != "junit5" || m.Version != "5.10.0" {
		t.Errorf("ParseModule = %+v, %v", m, err)
	}
	for _, bad := range []string{"", "group", ":name", "a:b:c:d"} {
		if _, err := ParseModule(bad); err == nil {
			t.Errorf("ParseModule(%q) should fail", bad)
		}
	}
}

func TestWithRolloutAlias(t *testing.T) {
	info := Info{Name: "UnusedVariable", AltNames: []string{"unused"}}
	got := WithRolloutAlias(WithRolloutAlias(info, "for-rollout:"), "for-rollout:")
	if want := "UnusedVariable,unused,for-rollout:UnusedVariable"; strings.Join(got.Names(), ",") != want {
		t.Errorf("names = %v", got.Names())
	}
	if len(info.AltNames) != 1 {
		t.Error("input info was modified")
	}
}

func TestSuppressed(t *testing.T) {
	src := `@SuppressWarnings("for-rollout:Outer")
class A {
    @java.lang.SuppressWarnings({"unused", "Other"})
    void f() {
        int x = 1;
    }
    void g() {
        int y = 2;
    }
}
`
	fs := source.NewFileSet()
	id := fs.AddVirtual("A.java", []byte(src))
	u, err := javasyntax.Parse(fs.Get(id))
	if err != nil {
		t.Fatal(err)
	}
	at := func(text string) *javasyntax.Node {
		off := strings.Index(src, text)
		return u.NodeAt(source.Span{File: id, Start: uint32(off), End: uint32(off + len(text))})
	}

	unused := Info{Name: "UnusedVariable", AltNames: []string{"unused"}}
	if !Suppressed(u, at("int x"), unused) {
		t.Error("x should be suppressed through f's alt name")
	}
	if Suppressed(u, at("int y"), unused) {
		t.Error("y is not suppressed")
	}
	outer := Info{Name: "Outer"}
	if Suppressed(u, at("int y"), outer) {
		t.Error("rollout entry must not match without the alias")
	}
	if !Suppressed(u, at("int y"), WithRolloutAlias(outer, "for-rollout:")) {
		t.Error("rollout entry should match once the alias is added")
	}
}
