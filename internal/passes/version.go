package passes

import (
	"strconv"

	"github.com/HugoDaniel/glslpatch/internal/ast"
	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
	"github.com/HugoDaniel/glslpatch/internal/transform"
)

const (
	// BaselineVersion replaces any version below minProfileVersion.
	BaselineVersion = 330

	// minProfileVersion is the first version that carries a profile.
	minProfileVersion = 200
)

// Version moves the shader to the core profile. A version that already
// declares core is rejected; a version with a profile must declare
// compatibility; older versions are raised to BaselineVersion.
var Version transform.Pass = &pass{
	name: "version",
	run: func(job *transform.Job) error {
		t := job.Tree
		var version ast.NodeID
		for _, id := range t.TopLevel() {
			if t.Kind(id) == ast.KindVersion {
				version = id
				break
			}
		}
		if !version.IsValid() {
			return job.Errorf(diagnostic.KindVersion, ast.NoNode, "shader has no #version directive")
		}

		profile := t.Node(version).Aux
		if profile == "core" {
			return job.Errorf(diagnostic.KindVersion, version,
				"shader already declares the core profile").WithConstruct("#version")
		}
		number, err := strconv.Atoi(t.Text(version))
		if err != nil {
			return job.Errorf(diagnostic.KindVersion, version,
				"invalid version number %q", t.Text(version)).WithConstruct("#version")
		}

		if number >= minProfileVersion {
			if profile != "compatibility" {
				return job.Errorf(diagnostic.KindVersion, version,
					"version %d must declare the compatibility profile, got %q", number, profile).WithConstruct("#version")
			}
		} else {
			t.SetText(version, strconv.Itoa(BaselineVersion))
		}
		t.SetAux(version, "core")
		log.Debugf("%s: #version %d %s -> #version %s core", job.Params, number, profile, t.Text(version))
		return nil
	},
}
