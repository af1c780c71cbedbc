// Package patcher provides the main patching API.
//
// It coordinates parsing, the pass schedule and printing to turn one
// legacy shader stage into core-profile GLSL. A Patcher is built once and
// shared: it owns the process-wide transform.Context and the schedule, and
// every Patch call gets its own tree and job.
package patcher

import (
	"errors"
	"fmt"
	"time"

	"github.com/tliron/commonlog"

	"github.com/HugoDaniel/glslpatch/internal/cache"
	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
	"github.com/HugoDaniel/glslpatch/internal/params"
	"github.com/HugoDaniel/glslpatch/internal/parser"
	"github.com/HugoDaniel/glslpatch/internal/passes"
	"github.com/HugoDaniel/glslpatch/internal/printer"
	"github.com/HugoDaniel/glslpatch/internal/reflect"
	"github.com/HugoDaniel/glslpatch/internal/sourcemap"
	"github.com/HugoDaniel/glslpatch/internal/transform"
	"github.com/HugoDaniel/glslpatch/internal/validator"
)

var log = commonlog.GetLogger("glslpatch.patcher")

// Options controls patching behavior.
type Options struct {
	// MinifyWhitespace removes unnecessary whitespace and newlines
	MinifyWhitespace bool

	// CacheSize bounds the fragment and template caches. Zero selects
	// cache.DefaultSize.
	CacheSize int

	// Reflect attaches the interface of the patched stage to the result.
	Reflect bool

	// Validate checks the patched tree for legacy residue. Findings are
	// added to the result's warnings.
	Validate bool

	// StrictValidation makes any validator finding fail the patch.
	StrictValidation bool

	// SourceMap attaches a map from patched lines to source lines.
	SourceMap bool
}

// DefaultOptions returns the options used by the CLI and the library
// bindings.
func DefaultOptions() Options {
	return Options{
		CacheSize: cache.DefaultSize,
		Validate:  true,
	}
}

// Result contains the patching output.
type Result struct {
	// Patched GLSL code
	Code string

	// Warnings are non-fatal diagnostics from the passes and the validator.
	Warnings []diagnostic.Diagnostic

	// Statistics about the patch
	Stats Stats

	// Interface is the reflected interface (nil if not requested)
	Interface *reflect.Interface

	// SourceMap maps the patched code back to the input (nil if not
	// requested). Its source name is empty; callers fill it in.
	SourceMap *sourcemap.SourceMap
}

// Stats provides patching statistics.
type Stats struct {
	OriginalSize int
	PatchedSize  int
	PassesRun    []string
	Rewrites     int
	Injected     int
	Renamed      int
	WrapDepth    int
	Duration     time.Duration
}

// ErrValidation is returned under StrictValidation when the patched output
// still contains constructs a core-profile compiler rejects.
var ErrValidation = errors.New("patched shader failed validation")

// Patcher patches shader stages.
type Patcher struct {
	options  Options
	ctx      *transform.Context
	schedule *transform.Schedule
}

// New creates a patcher running the default pass graph.
func New(options Options) (*Patcher, error) {
	return NewWithPasses(options, passes.Registrations())
}

// NewWithPasses creates a patcher running a custom pass graph.
func NewWithPasses(options Options, regs []transform.Registration) (*Patcher, error) {
	ctx, err := transform.NewContext(options.CacheSize)
	if err != nil {
		return nil, err
	}
	schedule, err := transform.NewSchedule(regs)
	if err != nil {
		return nil, err
	}
	log.Debugf("pass order: %v", schedule.Order())
	return &Patcher{options: options, ctx: ctx, schedule: schedule}, nil
}

// Order returns the pass names in execution order.
func (p *Patcher) Order() []string {
	return p.schedule.Order()
}

// CacheStats reports fragment and template cache traffic.
func (p *Patcher) CacheStats() (fragments, templates cache.Stats) {
	return p.ctx.CacheStats()
}

// Patch patches one shader stage. A shader the patcher cannot handle
// yields a *diagnostic.SemanticError carrying the stage and patch kind.
func (p *Patcher) Patch(source string, pr params.Parameters) (Result, error) {
	start := time.Now()

	tree, errs := parser.Parse(source)
	if len(errs) > 0 {
		e := errs[0]
		err := diagnostic.Errorf(diagnostic.KindSyntax, "%s", e.Message)
		err.Pos, err.Line, err.Column = e.Pos, e.Line, e.Column
		err.Stage, err.Patch = pr.Stage().String(), pr.Kind().String()
		return Result{}, err
	}

	job := transform.NewJob(p.ctx, tree, pr, source)
	if err := p.schedule.Execute(job); err != nil {
		log.Debugf("%s: %v", pr, err)
		return Result{}, err
	}

	result := Result{
		Stats: Stats{
			OriginalSize: len(source),
			PassesRun:    job.Stats.PassesRun,
			Rewrites:     job.Stats.Rewrites,
			Injected:     job.Stats.Injected,
			Renamed:      job.Stats.Renamed,
			WrapDepth:    job.WrapDepth(),
		},
	}
	result.Warnings = append(result.Warnings, job.Warnings().Diagnostics()...)

	if p.options.Validate || p.options.StrictValidation {
		v := validator.Validate(tree, source, validator.Options{StrictMode: p.options.StrictValidation})
		result.Warnings = append(result.Warnings, v.Diagnostics.Diagnostics()...)
		if !v.Valid && p.options.StrictValidation {
			return Result{}, fmt.Errorf("%s: %w:\n%s", pr, ErrValidation, v.Diagnostics.Format())
		}
	}

	if p.options.Reflect {
		iface := reflect.Reflect(tree)
		result.Interface = &iface
	}

	printOpts := printer.Options{MinifyWhitespace: p.options.MinifyWhitespace}
	var gen *sourcemap.Generator
	if p.options.SourceMap {
		gen = sourcemap.NewGenerator(source)
		printOpts.Mapper = gen
	}
	result.Code = printer.New(printOpts).Print(tree)
	if gen != nil {
		result.SourceMap = gen.Generate("", "", false)
	}
	result.Stats.PatchedSize = len(result.Code)
	result.Stats.Duration = time.Since(start)
	log.Debugf("%s: %d passes, %d rewrites, %d injected in %s",
		pr, len(result.Stats.PassesRun), result.Stats.Rewrites, result.Stats.Injected, result.Stats.Duration)
	return result, nil
}
