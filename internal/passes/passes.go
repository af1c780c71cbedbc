// Package passes implements the patch passes that turn legacy
// fixed-function GLSL into core-profile GLSL, and the default pass graph
// that orders them.
//
// Each pass is a stateless value. Per-job state lives on the
// transform.Job, so one set of passes serves every concurrent job.
package passes

import (
	"github.com/tliron/commonlog"

	"github.com/HugoDaniel/glslpatch/internal/params"
	"github.com/HugoDaniel/glslpatch/internal/transform"
)

var log = commonlog.GetLogger("glslpatch.passes")

// pass adapts a pair of functions to transform.Pass.
type pass struct {
	name   string
	active func(p params.Parameters, flags transform.Flags) bool
	run    func(job *transform.Job) error
}

func (p *pass) Name() string { return p.name }

func (p *pass) Active(pr params.Parameters, flags transform.Flags) bool {
	return p.active == nil || p.active(pr, flags)
}

func (p *pass) Run(job *transform.Job) error { return p.run(job) }

// Registrations returns the default pass graph. The schedule built from it
// is the one the patcher runs for every job.
func Registrations() []transform.Registration {
	return []transform.Registration{
		{Pass: Directives},
		{Pass: ReservedPrefix, After: []string{"directives"}},
		{Pass: Version, After: []string{"reserved-prefix"}},
		{Pass: StorageQualifiers, After: []string{"version"}},
		{Pass: DriverWorkarounds, After: []string{"version"}},
		{Pass: TextureRenames, After: []string{"driver-workarounds"}},
		{Pass: TextureFunctions, After: []string{"driver-workarounds"}},
		{Pass: TextureMatrix, After: []string{"texture-functions"}},
		{Pass: FTransform, After: []string{"texture-matrix"}},
		{Pass: Matrices, After: []string{"ftransform"}},
		{Pass: VertexAttributes, After: []string{"ftransform"}},
		{Pass: Fog, After: []string{"storage-qualifiers", "vertex-attributes"}},
		{Pass: FixedVaryings, After: []string{"storage-qualifiers", "vertex-attributes"}},
		{Pass: FragOutputs, After: []string{"fixed-varyings"}},
		{Pass: Overlay, After: []string{"frag-outputs", "matrices"}},
		{Pass: WideLines, After: []string{"overlay", "vertex-attributes"}},
		{Pass: AlphaTest, After: []string{"overlay"}},
	}
}

// ----------------------------------------------------------------------------
// Activation Helpers
// ----------------------------------------------------------------------------

// fixedFunction reports whether a job can reference the fixed-function
// builtins at all. Compute jobs never do.
func fixedFunction(p params.Parameters) bool {
	return p.Kind() != params.PatchCompute && p.Stage() != params.StageCompute
}

func isStage(p params.Parameters, s params.Stage) bool {
	return fixedFunction(p) && p.Stage() == s
}

// entityKind reports whether the job patches vanilla or attribute shaders,
// the only kinds that draw entities and lines.
func entityKind(p params.Parameters) bool {
	return p.Kind() == params.PatchAttributes || p.Kind() == params.PatchVanilla
}
