// Package pack patches every stage of a shader pack as one unit.
//
// A pack is a directory of stage files named by program: gbuffers_terrain.vsh
// and gbuffers_terrain.fsh are the vertex and fragment stages of the
// gbuffers_terrain program. A Loader patches a whole pack concurrently and
// publishes the result only when every stage succeeded, so readers never
// observe a half-patched pack.
package pack

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/HugoDaniel/glslpatch/internal/config"
	"github.com/HugoDaniel/glslpatch/internal/params"
)

// StagePattern matches every stage file in a pack.
const StagePattern = "**/*.{vsh,tcs,tes,gsh,fsh,csh}"

// Source is the unpatched code of one stage.
type Source struct {
	Stage params.Stage
	Path  string
	Code  string
}

// Program is a named group of stages.
type Program struct {
	Name   string
	Stages []Source
}

// Pack is a set of programs, sorted by name.
type Pack struct {
	Name     string
	Programs []Program
}

// Stages returns the number of stage sources in the pack.
func (p Pack) Stages() int {
	n := 0
	for _, prog := range p.Programs {
		n += len(prog.Stages)
	}
	return n
}

// Discover reads every stage file under dir.
func Discover(dir string) (Pack, error) {
	return DiscoverFS(os.DirFS(dir), path.Base(dir))
}

// DiscoverFS reads every stage file in fsys. Program names are the
// slash-separated path without the extension.
func DiscoverFS(fsys fs.FS, name string) (Pack, error) {
	matches, err := doublestar.Glob(fsys, StagePattern)
	if err != nil {
		return Pack{}, fmt.Errorf("pack %s: %w", name, err)
	}

	programs := make(map[string]*Program)
	for _, match := range matches {
		ext := path.Ext(match)
		stage, err := params.ParseStage(ext)
		if err != nil {
			return Pack{}, fmt.Errorf("pack %s: %s: %w", name, match, err)
		}
		data, err := fs.ReadFile(fsys, match)
		if err != nil {
			return Pack{}, fmt.Errorf("pack %s: %w", name, err)
		}

		progName := strings.TrimSuffix(match, ext)
		prog, ok := programs[progName]
		if !ok {
			prog = &Program{Name: progName}
			programs[progName] = prog
		}
		prog.Stages = append(prog.Stages, Source{Stage: stage, Path: match, Code: string(data)})
	}

	pk := Pack{Name: name, Programs: make([]Program, 0, len(programs))}
	for _, prog := range programs {
		sort.Slice(prog.Stages, func(i, j int) bool { return prog.Stages[i].Stage < prog.Stages[j].Stage })
		pk.Programs = append(pk.Programs, *prog)
	}
	sort.Slice(pk.Programs, func(i, j int) bool { return pk.Programs[i].Name < pk.Programs[j].Name })
	return pk, nil
}

// ----------------------------------------------------------------------------
// Parameters
// ----------------------------------------------------------------------------

// Resolver chooses the job descriptor for one stage of a program.
type Resolver func(program string, stage params.Stage) (params.Parameters, error)

// compositePrefixes name the full-screen passes of a pack.
var compositePrefixes = []string{"composite", "deferred", "final", "prepare", "begin", "setup", "shadowcomp"}

// DefaultKind guesses the patch kind from the program name and stage.
func DefaultKind(program string, stage params.Stage) params.PatchKind {
	if stage == params.StageCompute {
		return params.PatchCompute
	}
	base := path.Base(program)
	for _, prefix := range compositePrefixes {
		if strings.HasPrefix(base, prefix) {
			return params.PatchComposite
		}
	}
	return params.PatchVanilla
}

// ConfigResolver resolves parameters from cfg, falling back to DefaultKind
// for programs without a configured patch kind. A nil cfg uses defaults only.
func ConfigResolver(cfg *config.Config) Resolver {
	return func(program string, stage params.Stage) (params.Parameters, error) {
		return cfg.Program(program).Parameters(stage, DefaultKind(program, stage))
	}
}
