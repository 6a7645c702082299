// Package patch applies named structural edits to compiled modules.
//
// Each edit is a pass over a parsed classfile.ClassFile. Edits look their
// targets up by name; a target that is absent makes the edit a no-op, since not
// every module contains every construct an edit is written for.
package patch

import (
	"fmt"

	"suppressible/internal/classfile"
)

// Edit is one visitor pass over a module.
type Edit interface {
	// Name identifies the edit in traces and errors.
	Name() string
	// Apply mutates cf in place and reports whether anything changed.
	Apply(cf *classfile.ClassFile) (bool, error)
}

// Apply runs edits in order and reports whether any of them changed cf.
func Apply(cf *classfile.ClassFile, edits ...Edit) (bool, error) {
	changed := false
	for _, e := range edits {
		ok, err := e.Apply(cf)
		if err != nil {
			name, _ := cf.Name()
			return changed, fmt.Errorf("%s on %s: %w", e.Name(), name, err)
		}
		changed = changed || ok
	}
	return changed, nil
}

// Module parses data, applies edits and serialises the result. When no edit
// changed anything the input slice is returned as is.
func Module(data []byte, edits ...Edit) ([]byte, bool, error) {
	cf, err := classfile.Parse(data)
	if err != nil {
		return nil, false, err
	}
	changed, err := Apply(cf, edits...)
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return data, false, nil
	}
	out, err := cf.Bytes()
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// matches reports whether the module is the one an edit targets. An empty
// owner matches every module.
func matches(cf *classfile.ClassFile, owner string) (string, bool, error) {
	name, err := cf.Name()
	if err != nil {
		return "", false, err
	}
	return name, owner == "" || owner == name, nil
}
