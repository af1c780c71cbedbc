package validator

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
	"github.com/HugoDaniel/glslpatch/internal/parser"
)

// TestCase represents a single annotated validation test file.
type TestCase struct {
	Name     string
	FilePath string
	Source   string
	Expected ExpectedResult
}

// ExpectedResult describes the expected validation outcome.
type ExpectedResult struct {
	Valid    bool
	Errors   []ExpectedDiagnostic
	Warnings []ExpectedDiagnostic
}

// ExpectedDiagnostic describes an expected diagnostic message.
type ExpectedDiagnostic struct {
	Code    string // e.g., "legacy-builtin"
	Pattern string // substring to match in message
}

// Annotation patterns for test files.
var (
	expectValidRe   = regexp.MustCompile(`//\s*@expect-valid`)
	expectErrorRe   = regexp.MustCompile(`//\s*@expect-error\s+([\w-]+)(?:\s+"([^"]*)")?`)
	expectWarningRe = regexp.MustCompile(`//\s*@expect-warning\s+([\w-]+)(?:\s+"([^"]*)")?`)
	testNameRe      = regexp.MustCompile(`//\s*@test:\s*(.+)`)
)

// ParseTestFile parses a GLSL test file and extracts annotations.
func ParseTestFile(path string) (*TestCase, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	source := string(content)
	tc := &TestCase{
		FilePath: path,
		Source:   source,
		Name:     filepath.Base(path),
	}

	scanner := bufio.NewScanner(strings.NewReader(source))
	for scanner.Scan() {
		line := scanner.Text()
		if match := testNameRe.FindStringSubmatch(line); match != nil {
			tc.Name = strings.TrimSpace(match[1])
		}
		if expectValidRe.MatchString(line) {
			tc.Expected.Valid = true
		}
		if match := expectErrorRe.FindStringSubmatch(line); match != nil {
			tc.Expected.Errors = append(tc.Expected.Errors, ExpectedDiagnostic{Code: match[1], Pattern: match[2]})
		}
		if match := expectWarningRe.FindStringSubmatch(line); match != nil {
			tc.Expected.Warnings = append(tc.Expected.Warnings, ExpectedDiagnostic{Code: match[1], Pattern: match[2]})
		}
	}

	// If no explicit expectation, default to valid if no @expect-error found
	if !tc.Expected.Valid && len(tc.Expected.Errors) == 0 {
		tc.Expected.Valid = true
	}
	return tc, scanner.Err()
}

func findDiagnostic(result *Result, severity diagnostic.Severity, expected ExpectedDiagnostic) bool {
	for _, actual := range result.Diagnostics.Diagnostics() {
		if actual.Severity != severity {
			continue
		}
		if expected.Code != "" && string(actual.Code) != expected.Code {
			continue
		}
		if expected.Pattern != "" && !strings.Contains(actual.Message, expected.Pattern) {
			continue
		}
		return true
	}
	return false
}

// RunTestCase executes a single test case and reports results.
func RunTestCase(t *testing.T, tc *TestCase) {
	t.Helper()

	tree, errs := parser.Parse(tc.Source)
	if len(errs) > 0 {
		t.Fatalf("parse failed: %v", errs)
	}
	result := Validate(tree, tc.Source, Options{})

	if tc.Expected.Valid {
		if !result.Valid {
			t.Errorf("expected valid shader, got errors:\n%s", result.Diagnostics.Format())
		}
	} else {
		if result.Valid {
			t.Errorf("expected invalid shader with errors, but validation passed")
			return
		}
		for _, expected := range tc.Expected.Errors {
			if !findDiagnostic(result, diagnostic.Error, expected) {
				t.Errorf("expected error not found: code=%s pattern=%q\n%s",
					expected.Code, expected.Pattern, result.Diagnostics.Format())
			}
		}
	}

	// Check expected warnings (independent of valid/invalid)
	for _, expected := range tc.Expected.Warnings {
		if !findDiagnostic(result, diagnostic.Warning, expected) {
			t.Errorf("expected warning not found: code=%s pattern=%q\n%s",
				expected.Code, expected.Pattern, result.Diagnostics.Format())
		}
	}
}

// RunTestDir runs all .glsl test files in a directory.
func RunTestDir(t *testing.T, dir string) {
	t.Helper()

	paths, err := filepath.Glob(filepath.Join(dir, "*.glsl"))
	if err != nil {
		t.Fatalf("failed to list %s: %v", dir, err)
	}
	if len(paths) == 0 {
		t.Fatalf("no test files in %s", dir)
	}
	for _, path := range paths {
		tc, err := ParseTestFile(path)
		if err != nil {
			t.Fatalf("failed to parse %s: %v", path, err)
		}
		t.Run(tc.Name, func(t *testing.T) {
			RunTestCase(t, tc)
		})
	}
}
