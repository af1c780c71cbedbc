package params

import (
	"fmt"
	"strconv"
	"strings"
)

// AlphaFunc is a legacy alpha-test comparison function.
type AlphaFunc uint8

const (
	AlphaNever AlphaFunc = iota
	AlphaLess
	AlphaEqual
	AlphaLEqual
	AlphaGreater
	AlphaNotEqual
	AlphaGEqual
	AlphaAlways
)

var alphaFuncNames = [...]string{
	AlphaNever:    "NEVER",
	AlphaLess:     "LESS",
	AlphaEqual:    "EQUAL",
	AlphaLEqual:   "LEQUAL",
	AlphaGreater:  "GREATER",
	AlphaNotEqual: "NOTEQUAL",
	AlphaGEqual:   "GEQUAL",
	AlphaAlways:   "ALWAYS",
}

var alphaOperators = [...]string{
	AlphaLess:     "<",
	AlphaEqual:    "==",
	AlphaLEqual:   "<=",
	AlphaGreater:  ">",
	AlphaNotEqual: "!=",
	AlphaGEqual:   ">=",
}

func (f AlphaFunc) String() string {
	if int(f) < len(alphaFuncNames) {
		return alphaFuncNames[f]
	}
	return fmt.Sprintf("alpha(%d)", f)
}

// AlphaTest is the emulated fixed-function alpha test: a fragment passes
// when "alpha Func Reference" holds.
type AlphaTest struct {
	Func      AlphaFunc
	Reference float32
}

// ParseAlphaTest parses "GREATER 0.1" style descriptors. NEVER and ALWAYS
// take no reference.
func ParseAlphaTest(s string) (AlphaTest, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return AlphaTest{}, fmt.Errorf("empty alpha test")
	}
	name := strings.ToUpper(fields[0])
	for i, n := range alphaFuncNames {
		if n != name {
			continue
		}
		a := AlphaTest{Func: AlphaFunc(i)}
		if a.Func == AlphaNever || a.Func == AlphaAlways {
			if len(fields) > 1 {
				return AlphaTest{}, fmt.Errorf("alpha function %s takes no reference", name)
			}
			return a, nil
		}
		if len(fields) != 2 {
			return AlphaTest{}, fmt.Errorf("alpha function %s needs a reference value", name)
		}
		ref, err := strconv.ParseFloat(fields[1], 32)
		if err != nil {
			return AlphaTest{}, fmt.Errorf("invalid alpha reference %q: %w", fields[1], err)
		}
		a.Reference = float32(ref)
		return a, nil
	}
	return AlphaTest{}, fmt.Errorf("unknown alpha function %q", fields[0])
}

// Active reports whether the test can ever discard a fragment.
func (a AlphaTest) Active() bool {
	return a.Func != AlphaAlways
}

// Condition renders the GLSL condition under which a fragment with the given
// alpha expression passes the test.
func (a AlphaTest) Condition(alpha string) string {
	switch a.Func {
	case AlphaNever:
		return "false"
	case AlphaAlways:
		return "true"
	}
	return alpha + " " + alphaOperators[a.Func] + " " + FormatFloat(a.Reference)
}

func (a AlphaTest) String() string {
	if a.Func == AlphaNever || a.Func == AlphaAlways {
		return a.Func.String()
	}
	return a.Func.String() + " " + FormatFloat(a.Reference)
}

// FormatFloat formats f as a GLSL float literal.
func FormatFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'g', -1, 32)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
