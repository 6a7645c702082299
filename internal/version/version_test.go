package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestString(t *testing.T) {
	prevNoColor := color.NoColor
	color.NoColor = true
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() {
		color.NoColor = prevNoColor
		Version, GitCommit, BuildDate = origVersion, origCommit, origDate
	})

	cases := []struct {
		version, commit, date string
		want                  string
	}{
		{"0.1.0-dev", "", "", "suppressible 0.1.0-dev"},
		{"1.2.3", "abc123", "", "suppressible 1.2.3 (abc123)"},
		{"1.2.3-rc.1", "abc123", "2024-01-15", "suppressible 1.2.3-rc.1 (abc123) built 2024-01-15"},
		{"snapshot", "", "", "suppressible snapshot"},
	}
	for _, tc := range cases {
		Version, GitCommit, BuildDate = tc.version, tc.commit, tc.date
		if got := String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
