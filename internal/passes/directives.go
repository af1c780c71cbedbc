package passes

import (
	"strings"

	"github.com/HugoDaniel/glslpatch/internal/ast"
	"github.com/HugoDaniel/glslpatch/internal/builtins"
	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
	"github.com/HugoDaniel/glslpatch/internal/params"
	"github.com/HugoDaniel/glslpatch/internal/renamer"
	"github.com/HugoDaniel/glslpatch/internal/transform"
)

// ----------------------------------------------------------------------------
// Preprocessor Residue
// ----------------------------------------------------------------------------

// Directives rejects preprocessor directives that should have been resolved
// before patching, at top level or inside function bodies. Only #version,
// #extension, #pragma and #line survive.
var Directives transform.Pass = &pass{
	name: "directives",
	run: func(job *transform.Job) error {
		t := job.Tree
		var bad ast.NodeID
		t.Walk(t.Root(), func(id ast.NodeID) bool {
			if bad.IsValid() {
				return false
			}
			if t.Kind(id) == ast.KindDirective && !builtins.AllowedDirectives[builtins.DirectiveName(t.Text(id))] {
				bad = id
				return false
			}
			return !t.Kind(id).IsExpression()
		})
		if !bad.IsValid() {
			return nil
		}
		name := builtins.DirectiveName(t.Text(bad))
		return job.Errorf(diagnostic.KindDirective, bad,
			"directive #%s must be resolved before patching", name).WithConstruct("#" + name)
	},
}

// ReservedPrefix rejects sources that already use the patcher's identifier
// prefix. Patched output always does, so patching twice fails here.
var ReservedPrefix transform.Pass = &pass{
	name: "reserved-prefix",
	run: func(job *transform.Job) error {
		names := job.Tree.NamesWithPrefix(builtins.ReservedPrefix)
		if len(names) == 0 {
			return nil
		}
		first := job.Tree.Occurrences(names[0])[0]
		return job.Errorf(diagnostic.KindReservedPrefix, first,
			"identifier %q uses the reserved prefix %q", names[0], builtins.ReservedPrefix).WithConstruct(names[0])
	},
}

// ----------------------------------------------------------------------------
// Driver Workarounds
// ----------------------------------------------------------------------------

// DriverWorkarounds renames user variables named texture, which shadow the
// core texture() builtin, and drops #extension lines for functionality that
// 330 core already provides.
var DriverWorkarounds transform.Pass = &pass{
	name: "driver-workarounds",
	run: func(job *transform.Job) error {
		t := job.Tree
		job.Stats.Renamed += renamer.Rename(t, "texture", "gtexture", renamer.NotMembers)

		var redundant []ast.NodeID
		for _, id := range t.TopLevel() {
			if t.Kind(id) != ast.KindDirective {
				continue
			}
			fields := strings.Fields(t.Text(id))
			if len(fields) >= 2 && fields[0] == "extension" && builtins.CoreExtensions[fields[1]] {
				redundant = append(redundant, id)
			}
		}
		for _, id := range redundant {
			log.Debugf("%s: dropping #%s", job.Params, t.Text(id))
			t.Detach(id)
		}
		return nil
	},
}

// ----------------------------------------------------------------------------
// Storage Qualifiers
// ----------------------------------------------------------------------------

// StorageQualifiers rewrites attribute and varying into in and out for the
// job's stage.
var StorageQualifiers transform.Pass = &pass{
	name: "storage-qualifiers",
	run: func(job *transform.Job) error {
		t := job.Tree
		stage := job.Params.Stage()
		for _, id := range t.TopLevel() {
			if t.Kind(id) != ast.KindDeclaration {
				continue
			}
			quals := t.Child(id, 0)
			var attribute, varying, direction ast.NodeID
			for _, q := range t.Children(quals) {
				if t.Kind(q) != ast.KindQualifier {
					continue
				}
				switch t.Text(q) {
				case "attribute":
					attribute = q
				case "varying":
					varying = q
				case "in", "out":
					direction = q
				}
			}

			switch {
			case attribute.IsValid():
				if stage != params.StageVertex || varying.IsValid() || direction.IsValid() {
					return job.Errorf(diagnostic.KindStorageQualifier, attribute,
						"attribute is only valid alone on %s shader inputs", params.StageVertex).WithConstruct("attribute")
				}
				t.SetText(attribute, "in")
			case varying.IsValid() && direction.IsValid():
				t.Detach(varying)
			case varying.IsValid():
				switch stage {
				case params.StageVertex:
					t.SetText(varying, "out")
				case params.StageFragment:
					t.SetText(varying, "in")
				default:
					return job.Errorf(diagnostic.KindStorageQualifier, varying,
						"varying has no direction in %s shaders", stage).WithConstruct("varying")
				}
			default:
				continue
			}
			job.Stats.Rewrites++
		}
		return nil
	},
}
