package ast

import (
	"fmt"
	"strings"
)

// Location is a half-open span [start, end) into the source of one file.
// It keeps the file content around so that diagnostics can be rendered
// without consulting the file system again.
type Location struct {
	filePath    string
	fileContent []rune
	start       uint32
	end         uint32
}

func NewLocation(filePath string, content []rune, start uint32, end uint32) Location {
	return Location{
		filePath:    filePath,
		fileContent: content,
		start:       start,
		end:         end,
	}
}

func NewLocationCursor(filePath string, content []rune, start uint32) Location {
	return NewLocation(filePath, content, start, start)
}

func (loc Location) EqualsTo(other Location) bool {
	return loc.filePath == other.filePath && loc.start == other.start && loc.end == other.end
}

func (loc Location) IsEmpty() bool {
	return loc.filePath == ""
}

// Merge returns the smallest location covering both loc and other.
// Locations in different files cannot be merged; loc wins.
func (loc Location) Merge(other Location) Location {
	if loc.IsEmpty() {
		return other
	}
	if other.IsEmpty() || loc.filePath != other.filePath {
		return loc
	}
	merged := loc
	if other.start < merged.start {
		merged.start = other.start
	}
	if other.end > merged.end {
		merged.end = other.end
	}
	return merged
}

func (loc Location) CursorString() string {
	if loc.IsEmpty() {
		return ""
	}
	line, col, _, _ := loc.GetLineAndColumn()
	return fmt.Sprintf("%s:%d:%d", loc.filePath, line, col)
}

func (loc Location) GetLineAndColumn() (startLine, startColumn, endLine, endColumn int) {
	line := 1
	column := 1

	for i := uint32(0); i <= uint32(len(loc.fileContent)); i++ {
		if i == loc.start {
			startLine = line
			startColumn = column
		}
		if i == loc.end {
			endLine = line
			endColumn = column
		}
		if i == uint32(len(loc.fileContent)) {
			break
		}

		if '\n' == loc.fileContent[i] {
			line++
			column = 1
		} else {
			column++
		}
	}
	return
}

// LineText returns the full source line the location starts on,
// without the trailing newline.
func (loc Location) LineText() string {
	if loc.IsEmpty() || len(loc.fileContent) == 0 {
		return ""
	}
	start := loc.start
	if start > uint32(len(loc.fileContent)) {
		start = uint32(len(loc.fileContent))
	}
	lineStart := start
	for lineStart > 0 && loc.fileContent[lineStart-1] != '\n' {
		lineStart--
	}
	lineEnd := start
	for lineEnd < uint32(len(loc.fileContent)) && loc.fileContent[lineEnd] != '\n' {
		lineEnd++
	}
	return strings.TrimRight(string(loc.fileContent[lineStart:lineEnd]), "\r")
}

func (loc Location) FilePath() string {
	return loc.filePath
}

func (loc Location) Text() string {
	if loc.end > uint32(len(loc.fileContent)) {
		return ""
	}
	return string(loc.fileContent[loc.start:loc.end])
}

func (loc Location) Contains(cursor Location) bool {
	return loc.start <= cursor.start && cursor.end <= loc.end
}

func (loc Location) Start() uint32 {
	return loc.start
}

func (loc Location) End() uint32 {
	return loc.end
}

func (loc Location) Size() uint32 {
	return loc.end - loc.start
}
