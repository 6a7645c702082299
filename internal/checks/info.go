package checks

import (
	"slices"

	"suppressible/internal/javasyntax"
)

const suppressWarnings = "java.lang.SuppressWarnings"

// Info is the identity of a check as suppressions see it.
type Info struct {
	Name     string
	AltNames []string
}

// WithRolloutAlias returns info extended with prefix+Name as an alternate
// name, which is what the constructor hook does to every check's metadata.
// Applying it twice adds the alias once.
func WithRolloutAlias(info Info, prefix string) Info {
	alias := prefix + info.Name
	if slices.Contains(info.AltNames, alias) {
		return info
	}
	out := Info{Name: info.Name, AltNames: make([]string, 0, len(info.AltNames)+1)}
	out.AltNames = append(out.AltNames, info.AltNames...)
	out.AltNames = append(out.AltNames, alias)
	return out
}

// Names returns the canonical name followed by the alternate names.
func (i Info) Names() []string {
	return append([]string{i.Name}, i.AltNames...)
}

// Suppressed reports whether a @SuppressWarnings on n or any enclosing
// declaration names the check.
func Suppressed(u *javasyntax.Unit, n *javasyntax.Node, info Info) bool {
	names := info.Names()
	for _, anc := range u.PathTo(n) {
		for _, a := range anc.Annotations() {
			if !a.Ann.Matches(suppressWarnings) {
				continue
			}
			for _, v := range a.Ann.Values {
				if slices.Contains(names, v) {
					return true
				}
			}
		}
	}
	return false
}
