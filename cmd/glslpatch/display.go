package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/pterm/pterm"

	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
)

var (
	successStyle = pterm.NewStyle(pterm.BgLightGreen, pterm.FgBlack)
	warnStyle    = pterm.NewStyle(pterm.BgYellow, pterm.FgBlack)
	errorStyle   = pterm.NewStyle(pterm.BgRed, pterm.FgWhite)
	infoColor    = pterm.FgLightGreen
	warnColor    = pterm.FgYellow
	errorColor   = pterm.FgRed
)

// sourceError is a patch failure in a named source.
type sourceError struct {
	name   string
	source string
	err    error
}

func (e *sourceError) Error() string { return e.name + ": " + e.err.Error() }

func (e *sourceError) Unwrap() error { return e.err }

// Status lines go to stderr so stdout stays the patched shader.
func printInfo(tag, msg string) {
	fmt.Fprintln(os.Stderr, successStyle.Sprint(" "+tag+" ")+infoColor.Sprint(" "+msg))
}

func printWarnings(name string, warnings []diagnostic.Diagnostic) {
	for _, w := range warnings {
		fmt.Fprintln(os.Stderr, warnStyle.Sprint(" "+w.Severity.String()+" ")+
			warnColor.Sprintf(" %s:%d:%d: %s [%s]", name, w.Pos.Line, w.Pos.Column, w.Message, w.Code))
	}
}

func printError(err error) {
	tag := errorStyle.Sprint(" error ")

	var se *sourceError
	if !errors.As(err, &se) {
		fmt.Fprintln(os.Stderr, tag+errorColor.Sprint(" "+err.Error()))
		return
	}
	fmt.Fprintln(os.Stderr, tag+errorColor.Sprint(" "+se.Error()))
	if sem, ok := diagnostic.AsSemantic(se.err); ok && sem.Pos >= 0 {
		fmt.Fprint(os.Stderr, diagnostic.Snippet(diagnostic.NewLineIndex(se.source), sem.Pos))
	}
}
