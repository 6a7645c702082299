package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"suppressible/internal/diag"
	"suppressible/internal/diff"
	"suppressible/internal/driver"
	"suppressible/internal/source"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	okColor      = color.New(color.FgGreen)
	pathColor    = color.New(color.Bold)
)

func severityLabel(s diag.Severity) string {
	switch s {
	case diag.SevError:
		return errorColor.Sprint("error")
	case diag.SevWarning:
		return warningColor.Sprint("warning")
	}
	return infoColor.Sprint("info")
}

// printFinding writes "path:line:col: severity: [Check] message".
func printFinding(out io.Writer, fset *source.FileSet, f diag.Finding) {
	file := fset.Get(f.Primary.File)
	pos := file.Position(f.Primary.Start)
	fmt.Fprintf(out, "%s: %s: [%s] %s\n",
		pathColor.Sprintf("%s:%d:%d", file.Path, pos.Line, pos.Col),
		severityLabel(f.Severity), f.Check, f.Message)
}

// printResult reports what a rewriting run did. In a dry run it prints a
// unified diff per changed file.
func printResult(out, errOut io.Writer, res *driver.Result, dryRun, quiet bool) {
	if res == nil {
		return
	}
	for _, u := range res.Broken {
		fmt.Fprintf(errOut, "%s: %s: %v\n", pathColor.Sprint(u.File.Path), warningColor.Sprint("skipped"), u.Err)
	}
	if res.Apply == nil {
		return
	}
	for _, s := range res.Apply.Skipped {
		fmt.Fprintf(errOut, "%s %s: %s\n", warningColor.Sprint("skipped fix"), s.ID, s.Reason)
	}
	if dryRun {
		// ids let a later run narrow itself with --fix-id
		if !quiet {
			for _, a := range res.Apply.Applied {
				fmt.Fprintf(errOut, "%s %s: %s\n", infoColor.Sprint("fix"), a.ID, a.Title)
			}
		}
		for _, ch := range res.Apply.FileChanges {
			patch, _ := diff.Unified(ch.Path, ch.Before, ch.After, diff.Options{})
			fmt.Fprint(out, patch)
		}
		return
	}
	if quiet {
		return
	}
	for _, ch := range res.Apply.FileChanges {
		fmt.Fprintf(out, "%s %s (%d edits)\n", infoColor.Sprint("rewrote"), ch.Path, ch.EditCount)
	}
}
