package diagnostic

import (
	"sort"
	"strings"

	"github.com/rivo/uniseg"
)

// LineIndex provides byte offset to line/column conversion.
// It pre-computes line start positions for O(log n) lookups.
type LineIndex struct {
	source     string
	lineStarts []int
}

// NewLineIndex creates a LineIndex for the given source.
func NewLineIndex(source string) *LineIndex {
	idx := &LineIndex{source: source, lineStarts: []int{0}}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' && i+1 < len(source) {
			idx.lineStarts = append(idx.lineStarts, i+1)
		}
	}
	return idx
}

// LineCount returns the number of lines in the source.
func (idx *LineIndex) LineCount() int {
	return len(idx.lineStarts)
}

// LineColumn converts a byte offset to a 0-indexed line and a 0-indexed
// column counted in grapheme clusters.
func (idx *LineIndex) LineColumn(offset int) (line, col int) {
	if offset < 0 || len(idx.source) == 0 {
		return 0, 0
	}
	if offset > len(idx.source) {
		offset = len(idx.source)
	}
	line = sort.Search(len(idx.lineStarts), func(i int) bool {
		return idx.lineStarts[i] > offset
	}) - 1
	if line < 0 {
		line = 0
	}
	col = uniseg.GraphemeClusterCount(idx.source[idx.lineStarts[line]:offset])
	return line, col
}

// LineStart returns the byte offset where a 0-indexed line begins.
func (idx *LineIndex) LineStart(line int) int {
	if line < 0 || line >= len(idx.lineStarts) {
		return len(idx.source)
	}
	return idx.lineStarts[line]
}

// Line returns the text of a 0-indexed line without its terminator.
func (idx *LineIndex) Line(line int) string {
	if line < 0 || line >= len(idx.lineStarts) {
		return ""
	}
	end := len(idx.source)
	if line+1 < len(idx.lineStarts) {
		end = idx.lineStarts[line+1]
	}
	return strings.TrimRight(idx.source[idx.lineStarts[line]:end], "\r\n")
}
