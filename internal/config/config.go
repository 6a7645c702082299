// Package config loads suppressible.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"suppressible/internal/archive"
	"suppressible/internal/checks"
	"suppressible/internal/classfile"
	"suppressible/internal/intercept"
	"suppressible/internal/stage"
)

// FileName is the configuration file looked up from the working directory.
const FileName = "suppressible.toml"

// DefaultAnnotations is the artifact carrying the marker annotation type.
const DefaultAnnotations = "com.palantir.baseline:suppressible-error-prone-annotations"

// ErrInvalid marks a configuration file that decoded but does not validate.
var ErrInvalid = errors.New("invalid configuration")

// Conditional is one [[suppressible.conditional]] rule.
type Conditional struct {
	ModuleUsed string   `toml:"module-used"`
	Checks     []string `toml:"checks"`
}

// Patch configures the engine archive transform and the marker annotation.
type Patch struct {
	ArchivePrefix   string `toml:"archive-prefix"`
	ConstructorHook string `toml:"constructor-hook"`
	ReportTarget    string `toml:"report-target"`
	Interceptor     string `toml:"interceptor"`
	Marker          string `toml:"marker"`
	Prefix          string `toml:"prefix"`
	Jobs            int    `toml:"jobs"`
}

// Stage holds options applied to every invocation.
type Stage struct {
	ExcludePaths string `toml:"exclude-paths"`
}

// Config is the decoded file. Path is empty when defaults are in use.
type Config struct {
	Path         string            `toml:"-"`
	Suppressible Suppressible      `toml:"suppressible"`
	Severities   map[string]string `toml:"severities"`
	Patch        Patch             `toml:"patch"`
	Stage        Stage             `toml:"stage"`

	targets archive.Targets
}

// Suppressible is the [suppressible] table.
type Suppressible struct {
	PatchChecks []string      `toml:"patch-checks"`
	Conditional []Conditional `toml:"conditional"`
	Annotations string        `toml:"annotations"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.fill()
	return c
}

func (c *Config) fill() {
	if c.Severities == nil {
		c.Severities = map[string]string{}
	}
	if c.Suppressible.Annotations == "" {
		c.Suppressible.Annotations = DefaultAnnotations
	}
	if c.Patch.ArchivePrefix == "" {
		c.Patch.ArchivePrefix = archive.DefaultPrefix
	}
	if c.Patch.Marker == "" {
		c.Patch.Marker = intercept.DefaultMarker
	}
	if c.Patch.Prefix == "" {
		c.Patch.Prefix = intercept.DefaultPrefix
	}
	c.targets = archive.DefaultTargets()
}

// Find walks up from startDir to locate suppressible.toml.
func Find(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Discover loads the nearest suppressible.toml above startDir, or the
// defaults when there is none.
func Discover(startDir string) (*Config, error) {
	path, ok, err := Find(startDir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return Default(), nil
	}
	return Load(path)
}

// Load decodes and validates the file at path.
func Load(path string) (*Config, error) {
	var c Config
	meta, err := toml.DecodeFile(path, &c)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: %w: unknown key %q", path, ErrInvalid, undecoded[0].String())
	}
	c.Path = path
	c.fill()
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

func (c *Config) validate() error {
	for i, rule := range c.Suppressible.Conditional {
		if _, err := checks.ParseModule(rule.ModuleUsed); err != nil {
			return fmt.Errorf("%w: suppressible.conditional[%d]: %w", ErrInvalid, i, err)
		}
		if len(rule.Checks) == 0 {
			return fmt.Errorf("%w: suppressible.conditional[%d]: no checks", ErrInvalid, i)
		}
	}
	for name, sev := range c.Severities {
		switch strings.ToUpper(sev) {
		case checks.SeverityOff, "WARN", "ERROR", "DEFAULT":
		default:
			return fmt.Errorf("%w: severities.%s: unknown severity %q", ErrInvalid, name, sev)
		}
	}
	if c.Patch.Jobs < 0 {
		return fmt.Errorf("%w: patch.jobs must not be negative", ErrInvalid)
	}
	refs := []struct {
		key string
		raw string
		dst *classfile.MemberRef
	}{
		{"patch.constructor-hook", c.Patch.ConstructorHook, &c.targets.ConstructorHook},
		{"patch.report-target", c.Patch.ReportTarget, &c.targets.ReportTarget},
		{"patch.interceptor", c.Patch.Interceptor, &c.targets.Interceptor},
	}
	for _, r := range refs {
		if r.raw == "" {
			continue
		}
		ref, err := ParseMemberRef(r.raw)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, r.key, err)
		}
		*r.dst = ref
	}
	return nil
}

// ParseMemberRef parses "pkg/Owner.name(desc)". The descriptor is optional;
// without it any overload matches.
func ParseMemberRef(s string) (classfile.MemberRef, error) {
	s = strings.TrimSpace(s)
	head, desc := s, ""
	if i := strings.IndexByte(s, '('); i >= 0 {
		head, desc = s[:i], s[i:]
	}
	dot := strings.LastIndexByte(head, '.')
	if dot <= 0 || dot == len(head)-1 {
		return classfile.MemberRef{}, fmt.Errorf("member reference %q is not Owner.name", s)
	}
	if strings.Contains(head[:dot], ".") {
		return classfile.MemberRef{}, fmt.Errorf("owner of %q must use '/' separators", s)
	}
	if desc != "" && !strings.Contains(desc, ")") {
		return classfile.MemberRef{}, fmt.Errorf("descriptor of %q is unterminated", s)
	}
	return classfile.MemberRef{Owner: head[:dot], Name: head[dot+1:], Descriptor: desc}, nil
}

// Selection builds the check selection model from the file.
func (c *Config) Selection() *checks.Selection {
	sel := &checks.Selection{}
	sel.AddStatic(c.Suppressible.PatchChecks...)
	for _, rule := range c.Suppressible.Conditional {
		m, _ := checks.ParseModule(rule.ModuleUsed) // validated on load
		sel.AddRule(checks.ModuleUsed{Group: m.Group, Module: m.Name}, rule.Checks...)
	}
	return sel
}

// Compilation returns the compilation context for name with the file's
// severities and the given dependencies.
func (c *Config) Compilation(name string, deps []checks.Module) *checks.Compilation {
	sev := make(map[string]string, len(c.Severities))
	for k, v := range c.Severities {
		sev[k] = v
	}
	return &checks.Compilation{Name: name, Dependencies: deps, Severities: sev}
}

// Transformer returns an archive transformer for the configured routines.
func (c *Config) Transformer() *archive.Transformer {
	t := archive.New(c.targets)
	t.Prefix = c.Patch.ArchivePrefix
	t.Jobs = c.Patch.Jobs
	return t
}

// Interceptor returns the Stage 1 interceptor for the configured marker.
func (c *Config) Interceptor() *intercept.Interceptor {
	ic := intercept.New()
	ic.Marker = c.Patch.Marker
	ic.Prefix = c.Patch.Prefix
	return ic
}

// StageOptions returns the stage options. version, when non-empty, is
// appended to the annotations coordinate.
func (c *Config) StageOptions(version string) stage.Options {
	ann := c.Suppressible.Annotations
	if version != "" && strings.Count(ann, ":") == 1 {
		ann += ":" + version
	}
	return stage.Options{ExcludePaths: c.Stage.ExcludePaths, Annotations: ann}
}
