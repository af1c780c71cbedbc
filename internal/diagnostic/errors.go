package diagnostic

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a SemanticError.
type ErrorKind uint8

const (
	KindSyntax ErrorKind = iota
	KindReservedPrefix
	KindDirective
	KindVersion
	KindStorageQualifier
	KindFragOutput
	KindOutputLocation
	KindMissingMain
	KindInjection
	KindTextureIndex
)

var errorKindNames = [...]string{
	KindSyntax:           "syntax",
	KindReservedPrefix:   "reserved-prefix",
	KindDirective:        "directive",
	KindVersion:          "version",
	KindStorageQualifier: "storage-qualifier",
	KindFragOutput:       "fragment-output",
	KindOutputLocation:   "output-location",
	KindMissingMain:      "missing-main",
	KindInjection:        "injection",
	KindTextureIndex:     "texture-index",
}

func (k ErrorKind) String() string {
	if int(k) < len(errorKindNames) {
		return errorKindNames[k]
	}
	return "unknown"
}

// SemanticError reports a user-triggerable failure: the shader violates a
// constraint the patcher depends on. It carries the stage and patch kind of
// the job that rejected it.
type SemanticError struct {
	Kind      ErrorKind
	Message   string
	Construct string // offending identifier or directive, if any
	Pos       int    // byte offset, -1 when unknown
	Line      int    // 1-based, 0 when unknown
	Column    int
	Stage     string
	Patch     string
}

func (e *SemanticError) Error() string {
	var sb strings.Builder
	if e.Stage != "" || e.Patch != "" {
		sb.WriteString(e.Stage)
		sb.WriteByte('/')
		sb.WriteString(e.Patch)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "%d:%d: ", e.Line, e.Column)
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// Errorf creates a SemanticError without a source location.
func Errorf(kind ErrorKind, format string, args ...any) *SemanticError {
	return &SemanticError{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: -1}
}

// At records the source location of the error using idx.
func (e *SemanticError) At(idx *LineIndex, offset int) *SemanticError {
	e.Pos = offset
	if offset >= 0 && idx != nil {
		line, col := idx.LineColumn(offset)
		e.Line, e.Column = line+1, col+1
	}
	return e
}

// WithConstruct records the offending construct.
func (e *SemanticError) WithConstruct(construct string) *SemanticError {
	e.Construct = construct
	return e
}

// AsSemantic returns the SemanticError in err's chain, if any.
func AsSemantic(err error) (*SemanticError, bool) {
	var se *SemanticError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ErrInternal marks violations of patcher invariants. Such failures are bugs
// in a pass, not in the shader.
var ErrInternal = errors.New("internal patcher error")

// Internalf wraps ErrInternal with a message.
func Internalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}
