package passes

import (
	"fmt"
	"sort"

	"github.com/HugoDaniel/glslpatch/internal/ast"
	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
	"github.com/HugoDaniel/glslpatch/internal/params"
	"github.com/HugoDaniel/glslpatch/internal/renamer"
	"github.com/HugoDaniel/glslpatch/internal/transform"
)

// ----------------------------------------------------------------------------
// Fragment Outputs
// ----------------------------------------------------------------------------

// OutputState is the convention a fragment shader uses to write color.
type OutputState uint8

const (
	OutputUndetermined OutputState = iota
	OutputColor                    // gl_FragColor
	OutputData                     // gl_FragData[n]
	OutputCustom                   // layout(location = 0) out vec4
	OutputNormalized
)

var outputStateNames = [...]string{
	OutputUndetermined: "undetermined",
	OutputColor:        "color",
	OutputData:         "data",
	OutputCustom:       "custom",
	OutputNormalized:   "normalized",
}

func (s OutputState) String() string {
	if int(s) < len(outputStateNames) {
		return outputStateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// output is one user-declared fragment output.
type output struct {
	name     string
	decl     ast.NodeID
	location int
	hasLoc   bool
	vec4     bool
}

// fragOutputs is the scratch state of one FragOutputs run.
type fragOutputs struct {
	job     *transform.Job
	state   OutputState
	outputs []output
	custom  *output
}

// FragOutputs binds the fragment color to iris_FragData0 whichever
// convention the shader uses, and rejects shaders that mix conventions or
// declare outputs without a location.
var FragOutputs transform.Pass = &pass{
	name: "frag-outputs",
	active: func(p params.Parameters, _ transform.Flags) bool {
		return isStage(p, params.StageFragment)
	},
	run: func(job *transform.Job) error {
		f := &fragOutputs{job: job}
		if err := f.determine(); err != nil {
			return err
		}
		log.Debugf("%s: fragment outputs are %s", job.Params, f.state)
		return f.normalize()
	},
}

func (f *fragOutputs) collect() error {
	t := f.job.Tree
	for _, id := range t.TopLevel() {
		if t.Kind(id) != ast.KindDeclaration || !t.HasQualifier(id, "out") {
			continue
		}
		ts := t.DeclType(id)
		for _, d := range t.Declarators(id) {
			o := output{
				name: t.Text(t.Child(d, 0)),
				decl: id,
				vec4: ts.IsValid() && t.Text(ts) == "vec4" && len(t.Children(ts)) == 0 && len(t.Children(d)) == 1,
			}
			loc, ok := t.LayoutParam(id, "location")
			if !ok {
				return f.job.Errorf(diagnostic.KindOutputLocation, d,
					"fragment output %q has no location qualifier", o.name).WithConstruct(o.name)
			}
			o.location, o.hasLoc = t.IntLiteralValue(loc)
			f.outputs = append(f.outputs, o)
		}
	}
	return nil
}

func (f *fragOutputs) determine() error {
	if err := f.collect(); err != nil {
		return err
	}
	t := f.job.Tree
	color, data := t.HasIdent("gl_FragColor"), t.HasIdent("gl_FragData")
	if color && data {
		return f.job.Errorf(diagnostic.KindFragOutput, t.Occurrences("gl_FragData")[0],
			"shader writes both gl_FragColor and gl_FragData")
	}
	legacy := ""
	switch {
	case color:
		legacy, f.state = "gl_FragColor", OutputColor
	case data:
		legacy, f.state = "gl_FragData", OutputData
	}

	for i := range f.outputs {
		o := &f.outputs[i]
		if legacy != "" {
			return f.job.Errorf(diagnostic.KindFragOutput, o.decl,
				"shader mixes custom output %q with %s", o.name, legacy).WithConstruct(o.name)
		}
		if !o.hasLoc || o.location != 0 || !o.vec4 {
			continue
		}
		if t.Count(o.name) < 2 {
			f.job.Warn(o.decl, diagnostic.CodeUnusedOutput, "output %q is declared but never written", o.name)
			continue
		}
		if f.custom != nil {
			return f.job.Errorf(diagnostic.KindOutputLocation, o.decl,
				"outputs %q and %q are both bound to location 0", f.custom.name, o.name).WithConstruct(o.name)
		}
		f.custom = o
		f.state = OutputCustom
	}
	return nil
}

func (f *fragOutputs) normalize() error {
	job := f.job
	switch f.state {
	case OutputUndetermined:
		return nil
	case OutputColor:
		if _, err := job.ReplaceIdent("gl_FragColor", "iris_FragData0"); err != nil {
			return err
		}
		if err := inject(job, fragData(0)); err != nil {
			return err
		}
		job.Flags |= transform.FlagFragOutputNormalized
	case OutputData:
		indices, err := f.replaceFragData()
		if err != nil {
			return err
		}
		for _, n := range indices {
			if err := inject(job, fragData(n)); err != nil {
				return err
			}
			if n == 0 {
				job.Flags |= transform.FlagFragOutputNormalized
			}
		}
	case OutputCustom:
		name := f.custom.name
		job.RemoveDeclarator(name)
		job.Stats.Renamed += renamer.Rename(job.Tree, name, "iris_FragData0", renamer.All)
		if err := inject(job, fragData(0)); err != nil {
			return err
		}
		job.Flags |= transform.FlagFragOutputNormalized
	}
	f.state = OutputNormalized
	return nil
}

// replaceFragData rewrites gl_FragData[n] to iris_FragDataN and returns the
// indices used, in order.
func (f *fragOutputs) replaceFragData() ([]int, error) {
	t := f.job.Tree
	used := make(map[int]bool)
	for _, id := range t.Occurrences("gl_FragData") {
		index := t.Parent(id)
		n, ok := 0, false
		if t.Kind(index) == ast.KindIndex && t.Child(index, 0) == id {
			n, ok = t.IntLiteralValue(t.Child(index, 1))
		}
		if !ok {
			return nil, f.job.Errorf(diagnostic.KindFragOutput, id,
				"gl_FragData must be indexed with a constant").WithConstruct("gl_FragData")
		}
		t.Replace(index, t.NewNode(ast.KindIdent, fmt.Sprintf("iris_FragData%d", n)))
		used[n] = true
		f.job.Stats.Rewrites++
	}
	indices := make([]int, 0, len(used))
	for n := range used {
		indices = append(indices, n)
	}
	sort.Ints(indices)
	return indices, nil
}
