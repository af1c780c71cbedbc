// Package params defines the immutable job descriptor handed to the patcher
// for one shader stage.
//
// Parameters are compared structurally and hashed over a canonical CBOR
// encoding, so two jobs with equal Parameters may share cached fragments.
package params

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/xxh3"
)

// ----------------------------------------------------------------------------
// Stage
// ----------------------------------------------------------------------------

// Stage is a shader pipeline stage.
type Stage uint8

const (
	StageVertex Stage = iota
	StageTessControl
	StageTessEval
	StageGeometry
	StageFragment
	StageCompute
)

var stageNames = [...]string{
	StageVertex:      "vertex",
	StageTessControl: "tess-control",
	StageTessEval:    "tess-eval",
	StageGeometry:    "geometry",
	StageFragment:    "fragment",
	StageCompute:     "compute",
}

// stageExtensions are the file extensions shader packs use per stage.
var stageExtensions = [...]string{
	StageVertex:      "vsh",
	StageTessControl: "tcs",
	StageTessEval:    "tes",
	StageGeometry:    "gsh",
	StageFragment:    "fsh",
	StageCompute:     "csh",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", s)
}

// Extension returns the shader-pack file extension for s, without the dot.
func (s Stage) Extension() string {
	if int(s) < len(stageExtensions) {
		return stageExtensions[s]
	}
	return ""
}

// ParseStage accepts a stage name ("fragment") or extension ("fsh").
func ParseStage(s string) (Stage, error) {
	s = strings.ToLower(strings.TrimPrefix(s, "."))
	for i := range stageNames {
		if stageNames[i] == s || stageExtensions[i] == s {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown shader stage %q", s)
}

// ----------------------------------------------------------------------------
// Patch Kind
// ----------------------------------------------------------------------------

// PatchKind selects the transformation profile for a job.
type PatchKind uint8

const (
	PatchAttributes PatchKind = iota
	PatchSodiumTerrain
	PatchVanilla
	PatchComposite
	PatchCompute
)

var patchNames = [...]string{
	PatchAttributes:    "attributes",
	PatchSodiumTerrain: "sodium-terrain",
	PatchVanilla:       "vanilla",
	PatchComposite:     "composite",
	PatchCompute:       "compute",
}

func (k PatchKind) String() string {
	if int(k) < len(patchNames) {
		return patchNames[k]
	}
	return fmt.Sprintf("patch(%d)", k)
}

// ParsePatchKind parses a patch kind name. Underscores and case are ignored.
func ParsePatchKind(s string) (PatchKind, error) {
	s = strings.ReplaceAll(strings.ToLower(s), "_", "-")
	for i, name := range patchNames {
		if name == s || strings.ReplaceAll(name, "-", "") == s {
			return PatchKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown patch kind %q", s)
}

// ----------------------------------------------------------------------------
// Attributes
// ----------------------------------------------------------------------------

// AttributeSet records which vertex inputs the mesh format provides.
type AttributeSet uint8

const (
	AttrTexCoord AttributeSet = 1 << iota
	AttrLightmap
	AttrOverlay
	AttrColor
	AttrNormal
	AttrWideLines

	AttrNone AttributeSet = 0
	AttrAll               = AttrTexCoord | AttrLightmap | AttrOverlay | AttrColor | AttrNormal
)

var attributeNames = []struct {
	bit  AttributeSet
	name string
}{
	{AttrTexCoord, "texcoord"},
	{AttrLightmap, "lightmap"},
	{AttrOverlay, "overlay"},
	{AttrColor, "color"},
	{AttrNormal, "normal"},
	{AttrWideLines, "wide-lines"},
}

// Has reports whether every attribute in a is present in s.
func (s AttributeSet) Has(a AttributeSet) bool {
	return s&a == a
}

func (s AttributeSet) String() string {
	var names []string
	for _, a := range attributeNames {
		if s.Has(a.bit) {
			names = append(names, a.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ParseAttributes parses attribute names into a set.
func ParseAttributes(names []string) (AttributeSet, error) {
	var s AttributeSet
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		found := false
		for _, a := range attributeNames {
			if a.name == n {
				s |= a.bit
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown vertex attribute %q", n)
		}
	}
	return s, nil
}

// ----------------------------------------------------------------------------
// Parameters
// ----------------------------------------------------------------------------

// Parameters describes one patch job. The zero value is not useful; use New.
type Parameters struct {
	stage          Stage
	kind           PatchKind
	attributes     AttributeSet
	alpha          AlphaTest
	hasAlpha       bool
	chunkOffset    bool
	textureRenames map[string]string
	hash           uint64
}

// Option configures Parameters during construction.
type Option func(*Parameters)

// WithAttributes sets the available vertex attributes.
func WithAttributes(attrs AttributeSet) Option {
	return func(p *Parameters) { p.attributes = attrs }
}

// WithAlphaTest enables the emulated alpha test.
func WithAlphaTest(a AlphaTest) Option {
	return func(p *Parameters) {
		p.alpha = a
		p.hasAlpha = true
	}
}

// WithChunkOffset enables the terrain chunk offset.
func WithChunkOffset(enabled bool) Option {
	return func(p *Parameters) { p.chunkOffset = enabled }
}

// WithTextureRenames sets the sampler rename map. The map is copied.
func WithTextureRenames(renames map[string]string) Option {
	return func(p *Parameters) {
		if len(renames) == 0 {
			p.textureRenames = nil
			return
		}
		p.textureRenames = make(map[string]string, len(renames))
		for k, v := range renames {
			p.textureRenames[k] = v
		}
	}
}

// New creates Parameters for stage and kind.
func New(stage Stage, kind PatchKind, opts ...Option) Parameters {
	p := Parameters{stage: stage, kind: kind}
	for _, opt := range opts {
		opt(&p)
	}
	p.hash = xxh3.Hash(p.encode())
	return p
}

func (p Parameters) Stage() Stage                 { return p.stage }
func (p Parameters) Kind() PatchKind              { return p.kind }
func (p Parameters) Attributes() AttributeSet     { return p.attributes }
func (p Parameters) ChunkOffset() bool            { return p.chunkOffset }
func (p Parameters) AlphaTest() (AlphaTest, bool) { return p.alpha, p.hasAlpha }

// TextureRename returns the replacement for a sampler name.
func (p Parameters) TextureRename(name string) (string, bool) {
	v, ok := p.textureRenames[name]
	return v, ok
}

// TextureRenameNames returns the renamed sampler names in sorted order.
func (p Parameters) TextureRenameNames() []string {
	names := make([]string, 0, len(p.textureRenames))
	for k := range p.textureRenames {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Hash returns the xxh3 hash of the canonical encoding.
func (p Parameters) Hash() uint64 {
	return p.hash
}

// Signature is the hash as fixed-width hex, used in cache keys.
func (p Parameters) Signature() string {
	return fmt.Sprintf("%016x", p.hash)
}

// Equal reports whether p and o describe the same job.
func (p Parameters) Equal(o Parameters) bool {
	if p.stage != o.stage || p.kind != o.kind || p.attributes != o.attributes ||
		p.hasAlpha != o.hasAlpha || p.chunkOffset != o.chunkOffset ||
		len(p.textureRenames) != len(o.textureRenames) {
		return false
	}
	if p.hasAlpha && p.alpha != o.alpha {
		return false
	}
	for k, v := range p.textureRenames {
		if ov, ok := o.textureRenames[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func (p Parameters) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s/%s attrs=%s", p.stage, p.kind, p.attributes)
	if p.hasAlpha {
		fmt.Fprintf(&sb, " alpha=%s", p.alpha)
	}
	if p.chunkOffset {
		sb.WriteString(" chunk-offset")
	}
	for _, k := range p.TextureRenameNames() {
		fmt.Fprintf(&sb, " %s=%s", k, p.textureRenames[k])
	}
	return sb.String()
}

// ----------------------------------------------------------------------------
// Canonical Encoding
// ----------------------------------------------------------------------------

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("params: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

type wireParameters struct {
	Stage          uint8             `cbor:"1,keyasint"`
	Kind           uint8             `cbor:"2,keyasint"`
	Attributes     uint8             `cbor:"3,keyasint"`
	HasAlpha       bool              `cbor:"4,keyasint"`
	AlphaFunc      uint8             `cbor:"5,keyasint"`
	AlphaReference float32           `cbor:"6,keyasint"`
	ChunkOffset    bool              `cbor:"7,keyasint"`
	TextureRenames map[string]string `cbor:"8,keyasint,omitempty"`
}

func (p Parameters) encode() []byte {
	w := wireParameters{
		Stage:          uint8(p.stage),
		Kind:           uint8(p.kind),
		Attributes:     uint8(p.attributes),
		HasAlpha:       p.hasAlpha,
		ChunkOffset:    p.chunkOffset,
		TextureRenames: p.textureRenames,
	}
	if p.hasAlpha {
		w.AlphaFunc = uint8(p.alpha.Func)
		w.AlphaReference = p.alpha.Reference
	}
	data, err := encMode.Marshal(w)
	if err != nil {
		panic(fmt.Sprintf("params: encode: %v", err))
	}
	return data
}
