// Package diagnostic provides error reporting for the GLSL patcher.
//
// Two kinds of reports exist: a SemanticError aborts a patch job and is
// returned to the caller, while Diagnostics are non-fatal notes (legacy
// residue, suspicious constructs) collected into a DiagnosticList.
package diagnostic

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
)

// Severity represents the severity level of a diagnostic.
type Severity uint8

const (
	// Error prevents the shader from being patched.
	Error Severity = iota
	// Warning is a non-blocking issue.
	Warning
	// Info is an informational message.
	Info
	// Note provides additional context for another diagnostic.
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Note:
		return "note"
	default:
		return "unknown"
	}
}

// Position represents a position in source code.
type Position struct {
	Offset int // Byte offset (0-based)
	Line   int // Line number (1-based)
	Column int // Column number (1-based, in grapheme clusters)
}

// Diagnostic represents a single diagnostic message.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Pos      Position
}

// Error returns a formatted error string.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", d.Pos.Line, d.Pos.Column, d.Severity, d.Message)
}

// Code identifies a diagnostic rule.
type Code string

const (
	CodeLegacyBuiltin   Code = "legacy-builtin"
	CodeLegacyQualifier Code = "legacy-qualifier"
	CodeTextureMatrix   Code = "texture-matrix"
	CodeUnusedOutput    Code = "unused-output"

	// Codes reported by the validator over patched source.
	CodeLegacyFunction    Code = "legacy-function"
	CodeProfile           Code = "profile"
	CodeMainCount         Code = "main-count"
	CodeDuplicateLocation Code = "duplicate-location"
)

// DiagnosticList collects diagnostics for one source.
type DiagnosticList struct {
	diagnostics []Diagnostic
	lineIndex   *LineIndex
	hasErrors   bool
}

// NewDiagnosticList creates a new diagnostic list for the given source.
func NewDiagnosticList(source string) *DiagnosticList {
	return &DiagnosticList{lineIndex: NewLineIndex(source)}
}

// Add adds a diagnostic to the list.
func (dl *DiagnosticList) Add(d Diagnostic) {
	dl.diagnostics = append(dl.diagnostics, d)
	if d.Severity == Error {
		dl.hasErrors = true
	}
}

// AddWarning adds a warning at the given byte offset. Negative offsets mark
// synthesized code and yield a zero position.
func (dl *DiagnosticList) AddWarning(offset int, code Code, message string) {
	dl.Add(Diagnostic{
		Severity: Warning,
		Code:     code,
		Message:  message,
		Pos:      dl.MakePosition(offset),
	})
}

// MakePosition converts a byte offset to a Position.
func (dl *DiagnosticList) MakePosition(offset int) Position {
	if offset < 0 {
		return Position{Offset: -1}
	}
	line, col := dl.lineIndex.LineColumn(offset)
	return Position{Offset: offset, Line: line + 1, Column: col + 1}
}

// HasErrors returns true if there are any error-level diagnostics.
func (dl *DiagnosticList) HasErrors() bool {
	return dl.hasErrors
}

// Diagnostics returns all collected diagnostics.
func (dl *DiagnosticList) Diagnostics() []Diagnostic {
	return dl.diagnostics
}

// Count returns the total number of diagnostics.
func (dl *DiagnosticList) Count() int {
	return len(dl.diagnostics)
}

// Format formats all diagnostics as a human-readable string.
func (dl *DiagnosticList) Format() string {
	var sb strings.Builder
	for i := range dl.diagnostics {
		d := &dl.diagnostics[i]
		sb.WriteString(d.Error())
		sb.WriteByte('\n')
		if d.Pos.Offset >= 0 {
			sb.WriteString(Snippet(dl.lineIndex, d.Pos.Offset))
		}
	}
	return sb.String()
}

// Snippet renders the source line holding offset with a caret under the
// offending column. The caret is placed by display width so wide characters
// in comments keep it aligned.
func Snippet(idx *LineIndex, offset int) string {
	line, _ := idx.LineColumn(offset)
	text := idx.Line(line)
	if text == "" {
		return ""
	}
	start := idx.LineStart(line)
	prefix := text
	if rel := offset - start; rel >= 0 && rel <= len(text) {
		prefix = text[:rel]
	}
	prefix = strings.ReplaceAll(prefix, "\t", "    ")
	return fmt.Sprintf("    %s\n    %s^\n", strings.ReplaceAll(text, "\t", "    "),
		strings.Repeat(" ", uniseg.StringWidth(prefix)))
}
