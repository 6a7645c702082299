package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"suppressible/internal/checks"
)

// LoadDependencies reads a resolved dependency list: one group:name[:version]
// coordinate per line. Blank lines and lines starting with '#' are ignored.
func LoadDependencies(path string) ([]checks.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []checks.Module
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		m, err := checks.ParseModule(text)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		out = append(out, m)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}
