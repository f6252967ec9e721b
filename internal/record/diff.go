package record

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffLine is one line of a field-by-field record diff.
type DiffLine struct {
	Type    DiffLineType
	Content string
}

// DiffLineType classifies a diff line.
type DiffLineType int

const (
	DiffLineContext DiffLineType = iota
	DiffLineAdd
	DiffLineDelete
)

// Diff compares two versions of a record as "field: value" lines, one per
// field in key order. A nil record diffs as empty.
func Diff(before, after Record) []DiffLine {
	dmp := diffmatchpatch.New()

	oldRunes, newRunes, lineArray := dmp.DiffLinesToRunes(fieldText(before), fieldText(after))
	diffs := dmp.DiffMainRunes(oldRunes, newRunes, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var lines []DiffLine
	for _, diff := range diffs {
		parts := strings.Split(diff.Text, "\n")
		for i, line := range parts {
			if i == len(parts)-1 && line == "" {
				continue
			}

			var lineType DiffLineType
			switch diff.Type {
			case diffmatchpatch.DiffEqual:
				lineType = DiffLineContext
			case diffmatchpatch.DiffInsert:
				lineType = DiffLineAdd
			case diffmatchpatch.DiffDelete:
				lineType = DiffLineDelete
			}
			lines = append(lines, DiffLine{Type: lineType, Content: line})
		}
	}
	return lines
}

// Changed reports whether a diff contains any added or deleted lines.
func Changed(lines []DiffLine) bool {
	for _, l := range lines {
		if l.Type != DiffLineContext {
			return true
		}
	}
	return false
}

// FormatDiff renders changed lines with +/- prefixes, dropping context.
func FormatDiff(lines []DiffLine) string {
	var sb strings.Builder
	for _, l := range lines {
		switch l.Type {
		case DiffLineAdd:
			sb.WriteString("+ " + l.Content + "\n")
		case DiffLineDelete:
			sb.WriteString("- " + l.Content + "\n")
		}
	}
	return sb.String()
}

func fieldText(r Record) string {
	if r == nil {
		return ""
	}
	var sb strings.Builder
	for _, k := range r.Keys() {
		sb.WriteString(k)
		sb.WriteString(": ")
		sb.WriteString(Stringify(r[k]))
		sb.WriteByte('\n')
	}
	return sb.String()
}
