package diag

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a finding.
type Severity uint8

const (
	// SevInfo is for informational findings.
	SevInfo Severity = iota
	// SevWarning is for warning findings.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// ParseSeverity accepts the engine's spellings (WARN, WARNING, SUGGESTION...).
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO", "NOTE", "SUGGESTION":
		return SevInfo, nil
	case "WARN", "WARNING":
		return SevWarning, nil
	case "ERROR", "":
		return SevError, nil
	}
	return SevError, fmt.Errorf("unknown severity %q", s)
}
