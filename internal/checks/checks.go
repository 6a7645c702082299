// Package checks resolves which checks are patchable for a compilation.
package checks

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrPredicate wraps a failure raised while evaluating a conditional rule.
// It is a configuration error and stops the invocation before analysis.
var ErrPredicate = errors.New("check selection predicate failed")

// SeverityOff turns a check off in a compilation's severity overrides.
const SeverityOff = "OFF"

// Module identifies one resolved dependency.
type Module struct {
	Group   string
	Name    string
	Version string
}

func (m Module) String() string {
	if m.Version == "" {
		return m.Group + ":" + m.Name
	}
	return m.Group + ":" + m.Name + ":" + m.Version
}

// ParseModule parses "group:name[:version]".
func ParseModule(s string) (Module, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return Module{}, fmt.Errorf("invalid module coordinate %q", s)
	}
	m := Module{Group: parts[0], Name: parts[1]}
	if len(parts) == 3 {
		m.Version = parts[2]
	}
	return m, nil
}

// Compilation is the context checks are selected for.
type Compilation struct {
	Name string
	// Dependencies is the resolved dependency closure.
	Dependencies []Module
	// Severities maps check names to the severity configured for this
	// compilation, for example "OFF" or "WARN".
	Severities map[string]string
}

func (c *Compilation) disabled(check string) bool {
	return strings.EqualFold(c.Severities[check], SeverityOff)
}

// Predicate decides whether a conditional rule applies to a compilation.
type Predicate interface {
	Eval(comp *Compilation) (bool, error)
	String() string
}

// ModuleUsed holds when the compilation depends on Group:Module.
type ModuleUsed struct {
	Group  string
	Module string
}

func (p ModuleUsed) Eval(comp *Compilation) (bool, error) {
	for _, d := range comp.Dependencies {
		if d.Group == p.Group && d.Name == p.Module {
			return true, nil
		}
	}
	return false, nil
}

func (p ModuleUsed) String() string {
	return "module-used " + p.Group + ":" + p.Module
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc struct {
	Desc string
	Fn   func(*Compilation) (bool, error)
}

func (p PredicateFunc) Eval(comp *Compilation) (bool, error) { return p.Fn(comp) }

func (p PredicateFunc) String() string { return p.Desc }

// Rule contributes Checks when When holds.
type Rule struct {
	When   Predicate
	Checks []string
}

// Selection is the configured static set plus ordered conditional rules.
// Callers populate it before the first resolution.
type Selection struct {
	Static []string
	Rules  []Rule
}

// AddStatic adds checks to the static set.
func (s *Selection) AddStatic(checks ...string) {
	s.Static = append(s.Static, checks...)
}

// AddRule appends a conditional rule.
func (s *Selection) AddRule(when Predicate, checks ...string) {
	s.Rules = append(s.Rules, Rule{When: when, Checks: checks})
}

type memoKey struct {
	comp *Compilation
	rule int
}

// Resolver computes effective check sets. Predicate results are memoised
// per compilation for the resolver's lifetime. A Resolver is safe for
// concurrent use.
type Resolver struct {
	sel  *Selection
	mu   sync.Mutex
	memo map[memoKey]bool
}

// NewResolver returns a resolver over sel.
func NewResolver(sel *Selection) *Resolver {
	return &Resolver{sel: sel, memo: make(map[memoKey]bool)}
}

// Effective returns the sorted union of the static set and every satisfied
// rule, minus checks the compilation turns off.
func (r *Resolver) Effective(comp *Compilation) ([]string, error) {
	set := make(map[string]struct{})
	for _, c := range r.sel.Static {
		set[c] = struct{}{}
	}
	for i, rule := range r.sel.Rules {
		ok, err := r.eval(comp, i, rule)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for _, c := range rule.Checks {
			set[c] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		if c == "" || comp.disabled(c) {
			continue
		}
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

func (r *Resolver) eval(comp *Compilation, i int, rule Rule) (bool, error) {
	key := memoKey{comp: comp, rule: i}
	r.mu.Lock()
	v, ok := r.memo[key]
	r.mu.Unlock()
	if ok {
		return v, nil
	}
	if rule.When == nil {
		return false, fmt.Errorf("%w: rule %d has no predicate", ErrPredicate, i)
	}
	v, err := rule.When.Eval(comp)
	if err != nil {
		return false, fmt.Errorf("%w: rule %d (%s) for %s: %w", ErrPredicate, i, rule.When, comp.Name, err)
	}
	r.mu.Lock()
	r.memo[key] = v
	r.mu.Unlock()
	return v, nil
}
