package diag

import (
	"encoding/json"
	"fmt"
	"io"

	"suppressible/internal/source"
)

// Record is the JSON form of a finding as the analysis engine writes it.
// Either Start or Line/Column (1-based) locates the node. Start and End are
// byte offsets into the file as it is stored on disk.
type Record struct {
	Check    string  `json:"check"`
	File     string  `json:"file"`
	Start    *uint32 `json:"start,omitempty"`
	End      *uint32 `json:"end,omitempty"`
	Line     uint32  `json:"line,omitempty"`
	Column   uint32  `json:"column,omitempty"`
	Message  string  `json:"message"`
	Severity string  `json:"severity,omitempty"`
}

// LoadFindings decodes a JSON array of records. Referenced files are loaded
// into fs on first use.
func LoadFindings(fs *source.FileSet, r io.Reader) ([]Finding, error) {
	var recs []Record
	if err := json.NewDecoder(r).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode findings: %w", err)
	}
	out := make([]Finding, 0, len(recs))
	for i, rec := range recs {
		f, err := rec.resolve(fs)
		if err != nil {
			return nil, fmt.Errorf("finding %d (%s): %w", i, rec.Check, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func (rec Record) resolve(fs *source.FileSet) (Finding, error) {
	if rec.Check == "" {
		return NoFinding, fmt.Errorf("missing check name")
	}
	sev, err := ParseSeverity(rec.Severity)
	if err != nil {
		return NoFinding, err
	}
	file, ok := fs.GetByPath(rec.File)
	if !ok {
		id, err := fs.Load(rec.File)
		if err != nil {
			return NoFinding, err
		}
		file = fs.Get(id)
	}

	var start uint32
	switch {
	case rec.Start != nil:
		start, ok = file.FromDisk(*rec.Start)
		if !ok {
			return NoFinding, fmt.Errorf("offset %d cannot be mapped into %s", *rec.Start, rec.File)
		}
	case rec.Line > 0:
		col := max(rec.Column, 1)
		off, ok := file.Offset(source.LineCol{Line: rec.Line, Col: col})
		if !ok {
			return NoFinding, fmt.Errorf("%s:%d:%d is outside the file", rec.File, rec.Line, col)
		}
		start = off
	default:
		return NoFinding, fmt.Errorf("no position")
	}
	end := start
	if rec.End != nil {
		end, ok = file.FromDisk(*rec.End)
		if !ok {
			return NoFinding, fmt.Errorf("offset %d cannot be mapped into %s", *rec.End, rec.File)
		}
	}
	if end < start || int(end) > len(file.Content) {
		return NoFinding, fmt.Errorf("span %d-%d outside %s", start, end, rec.File)
	}
	return Finding{
		Check:    rec.Check,
		Severity: sev,
		Message:  rec.Message,
		Primary:  source.Span{File: file.ID, Start: start, End: end},
	}, nil
}
