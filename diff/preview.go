package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DefaultContextLines is how many unchanged lines surround each preview hunk.
const DefaultContextLines = 3

// PreviewResult summarizes a committed revision as line hunks for the history view.
type PreviewResult struct {
	Hunks []Hunk `json:"hunks"`
	Stats Stats  `json:"stats"`
}

// Hunk is a contiguous run of changed lines with surrounding context.
type Hunk struct {
	OldStart int        `json:"oldStart"` // 1-based
	OldLines int        `json:"oldLines"`
	NewStart int        `json:"newStart"` // 1-based
	NewLines int        `json:"newLines"`
	Lines    []HunkLine `json:"lines"`
}

// HunkLine is one line of a hunk.
type HunkLine struct {
	Type    string `json:"type"`              // "add", "delete", "context"
	OldLine *int   `json:"oldLine,omitempty"` // nil for added lines
	NewLine *int   `json:"newLine,omitempty"` // nil for deleted lines
	Content string `json:"content"`
}

// Stats counts added and deleted lines.
type Stats struct {
	Added   int `json:"added"`
	Deleted int `json:"deleted"`
}

// Preview diffs two texts line by line and groups the result into hunks.
func Preview(before, after string, contextLines int) *PreviewResult {
	if contextLines < 0 {
		contextLines = DefaultContextLines
	}

	ops := lineOps(before, after)
	result := &PreviewResult{Hunks: groupIntoHunks(ops, contextLines)}
	for _, op := range ops {
		switch op.opType {
		case "add":
			result.Stats.Added++
		case "delete":
			result.Stats.Deleted++
		}
	}
	return result
}

// lineOp is a single line-level operation with 1-based line numbers.
type lineOp struct {
	opType  string // "equal", "delete", "add"
	oldLine int
	newLine int
	content string
}

// lineOps runs diffmatchpatch in line mode and flattens the result into per-line ops.
func lineOps(before, after string) []lineOp {
	dmp := diffmatchpatch.New()
	rBefore, rAfter, lineArray := dmp.DiffLinesToRunes(before, after)
	diffs := dmp.DiffMainRunes(rBefore, rAfter, false)
	diffs = dmp.DiffCleanupMerge(diffs)

	var ops []lineOp
	oldLine, newLine := 1, 1
	for _, d := range diffs {
		for _, r := range d.Text {
			idx := int(r)
			if idx < 0 || idx >= len(lineArray) {
				continue
			}
			content := strings.TrimSuffix(lineArray[idx], "\n")
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				ops = append(ops, lineOp{opType: "equal", oldLine: oldLine, newLine: newLine, content: content})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				ops = append(ops, lineOp{opType: "delete", oldLine: oldLine, newLine: newLine, content: content})
				oldLine++
			case diffmatchpatch.DiffInsert:
				ops = append(ops, lineOp{opType: "add", oldLine: oldLine, newLine: newLine, content: content})
				newLine++
			}
		}
	}
	return ops
}

// groupIntoHunks groups line ops into hunks, merging changes that are
// at most 2*contextLines apart.
func groupIntoHunks(ops []lineOp, contextLines int) []Hunk {
	hunks := []Hunk{}
	var current *Hunk
	lastChange := -1

	finish := func() {
		if current == nil {
			return
		}
		for _, line := range current.Lines {
			if line.OldLine != nil {
				current.OldLines++
			}
			if line.NewLine != nil {
				current.NewLines++
			}
		}
		hunks = append(hunks, *current)
		current = nil
	}

	for i, op := range ops {
		if op.opType == "equal" {
			if current != nil && i-lastChange <= contextLines {
				current.Lines = append(current.Lines, op.toHunkLine())
			}
			continue
		}

		if current == nil || i-lastChange > contextLines*2 {
			finish()
			current = &Hunk{OldStart: op.oldLine, NewStart: op.newLine}
			for k := maxInt(0, i-contextLines); k < i; k++ {
				if len(current.Lines) == 0 {
					current.OldStart = ops[k].oldLine
					current.NewStart = ops[k].newLine
				}
				current.Lines = append(current.Lines, ops[k].toHunkLine())
			}
		} else {
			// Fill the equal lines between the previous change and this one
			// that were not already added as trailing context.
			for k := lastChange + contextLines + 1; k < i; k++ {
				current.Lines = append(current.Lines, ops[k].toHunkLine())
			}
		}

		current.Lines = append(current.Lines, op.toHunkLine())
		lastChange = i
	}
	finish()

	return hunks
}

func (op lineOp) toHunkLine() HunkLine {
	line := HunkLine{Content: op.content}
	oldLine, newLine := op.oldLine, op.newLine

	switch op.opType {
	case "equal":
		line.Type = "context"
		line.OldLine = &oldLine
		line.NewLine = &newLine
	case "delete":
		line.Type = "delete"
		line.OldLine = &oldLine
	case "add":
		line.Type = "add"
		line.NewLine = &newLine
	}
	return line
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
