// Package sourcemap maps patched shader output back to the original source.
//
// Drivers report compile errors against the patched code. A Source Map v3
// (https://sourcemaps.info/spec.html) produced alongside the output lets a
// host translate those lines back to what the shader author wrote. Mappings
// are recorded per statement and declaration; injected code has none.
package sourcemap

import (
	"encoding/base64"
	"encoding/json"
	"sort"
	"strings"

	"github.com/HugoDaniel/glslpatch/internal/diagnostic"
)

// SourceMap is a Source Map v3 document with a single source.
type SourceMap struct {
	Version        int      `json:"version"`
	File           string   `json:"file,omitempty"`
	Sources        []string `json:"sources"`
	SourcesContent []string `json:"sourcesContent,omitempty"`
	Names          []string `json:"names"`
	Mappings       string   `json:"mappings"`
}

// Mapping links a generated position to a source position. All fields are
// 0-indexed; columns are byte offsets within the line.
type Mapping struct {
	GenLine int
	GenCol  int
	SrcLine int
	SrcCol  int
}

// Generator collects mappings while the printer writes output.
type Generator struct {
	source   string
	lines    *diagnostic.LineIndex
	mappings []Mapping
}

// NewGenerator creates a generator for output printed from source.
func NewGenerator(source string) *Generator {
	return &Generator{source: source, lines: diagnostic.NewLineIndex(source)}
}

// AddMapping records that output at genLine:genCol came from srcOffset.
// Negative offsets belong to synthesized code and are ignored.
func (g *Generator) AddMapping(genLine, genCol, srcOffset int) {
	if srcOffset < 0 || srcOffset > len(g.source) {
		return
	}
	line, _ := g.lines.LineColumn(srcOffset)
	g.mappings = append(g.mappings, Mapping{
		GenLine: genLine,
		GenCol:  genCol,
		SrcLine: line,
		SrcCol:  srcOffset - g.lines.LineStart(line),
	})
}

// Mappings returns the recorded mappings in generated order.
func (g *Generator) Mappings() []Mapping {
	return g.mappings
}

// Generate encodes the collected mappings. sourceName names the original
// file; includeSource embeds its text.
func (g *Generator) Generate(file, sourceName string, includeSource bool) *SourceMap {
	sm := &SourceMap{
		Version:  3,
		File:     file,
		Sources:  []string{sourceName},
		Names:    []string{},
		Mappings: EncodeMappings(g.mappings),
	}
	if includeSource {
		sm.SourcesContent = []string{g.source}
	}
	return sm
}

// EncodeMappings encodes mappings, which must be sorted by generated
// position, as a VLQ mappings string.
func EncodeMappings(mappings []Mapping) string {
	var sb strings.Builder
	var prevCol, prevSrcLine, prevSrcCol int
	line := 0
	first := true
	for _, m := range mappings {
		for line < m.GenLine {
			sb.WriteByte(';')
			line++
			prevCol = 0
			first = true
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false

		appendVLQ(&sb, m.GenCol-prevCol)
		appendVLQ(&sb, 0) // single source
		appendVLQ(&sb, m.SrcLine-prevSrcLine)
		appendVLQ(&sb, m.SrcCol-prevSrcCol)
		prevCol, prevSrcLine, prevSrcCol = m.GenCol, m.SrcLine, m.SrcCol
	}
	return sb.String()
}

// DecodeMappings decodes a VLQ mappings string. Name indices are dropped.
func DecodeMappings(mappings string) ([]Mapping, error) {
	var out []Mapping
	var srcLine, srcCol int
	for genLine, group := range strings.Split(mappings, ";") {
		col := 0
		for _, seg := range strings.Split(group, ",") {
			if seg == "" {
				continue
			}
			var fields [5]int
			n := 0
			for len(seg) > 0 && n < len(fields) {
				v, used, err := readVLQ(seg)
				if err != nil {
					return nil, err
				}
				fields[n] = v
				n++
				seg = seg[used:]
			}
			col += fields[0]
			if n < 4 {
				continue
			}
			srcLine += fields[2]
			srcCol += fields[3]
			out = append(out, Mapping{GenLine: genLine, GenCol: col, SrcLine: srcLine, SrcCol: srcCol})
		}
	}
	return out, nil
}

// ToJSON returns the source map as JSON.
func (sm *SourceMap) ToJSON() string {
	data, _ := json.Marshal(sm)
	return string(data)
}

// ToDataURI returns the source map as a data URI for inline embedding.
func (sm *SourceMap) ToDataURI() string {
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString([]byte(sm.ToJSON()))
}

// OriginalLine translates a 1-based line of the patched output to the
// 1-based source line of the nearest mapping on or before it. Lines before
// the first mapping have no source line.
func (sm *SourceMap) OriginalLine(line int) (int, bool) {
	mappings, err := DecodeMappings(sm.Mappings)
	if err != nil || len(mappings) == 0 {
		return 0, false
	}
	gen := line - 1
	i := sort.Search(len(mappings), func(i int) bool { return mappings[i].GenLine > gen })
	if i == 0 {
		return 0, false
	}
	return mappings[i-1].SrcLine + 1, true
}
