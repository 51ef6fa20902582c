package diff

// ChangeType tags a single entry produced by line alignment.
type ChangeType string

const (
	ChangeInsert ChangeType = "insert"
	ChangeDelete ChangeType = "delete"
	// ChangeUpdate is reserved. Alignment never produces it.
	ChangeUpdate ChangeType = "update"
)

// DefaultLookahead is how far alignment searches on each side for a resync point.
const DefaultLookahead = 10

// Change is one aligned difference between two line sequences.
// Index is always a position in the new sequence: the inserted line's index for
// inserts, and the new cursor at the time of the deletion for deletes.
type Change struct {
	Type  ChangeType `json:"type"`
	Index int        `json:"index"`
	Line  string     `json:"line"`
}

// alignLines walks both sequences greedily and returns the ordered changes.
// On a mismatch it searches up to lookahead lines on each side for the nearest
// matching pair, scanning old offsets in the outer loop and new offsets in the inner loop.
// The first pair found wins. Edits wider than the window degrade to forced one-line steps.
func alignLines(oldLines, newLines []string, lookahead int) []Change {
	if lookahead < 1 {
		lookahead = DefaultLookahead
	}

	var changes []Change
	i, j := 0, 0

	for i < len(oldLines) || j < len(newLines) {
		if i < len(oldLines) && j < len(newLines) && oldLines[i] == newLines[j] {
			i++
			j++
			continue
		}

		oi, nj, found := findResync(oldLines, newLines, i, j, lookahead)
		if found {
			for k := j; k < nj; k++ {
				changes = append(changes, Change{Type: ChangeInsert, Index: k, Line: newLines[k]})
			}
			for k := i; k < oi; k++ {
				changes = append(changes, Change{Type: ChangeDelete, Index: j, Line: oldLines[k]})
			}
			i, j = oi, nj
			continue
		}

		// No resync point in the window: step past one line on each side that has one left
		if i < len(oldLines) {
			changes = append(changes, Change{Type: ChangeDelete, Index: j, Line: oldLines[i]})
			i++
		}
		if j < len(newLines) {
			changes = append(changes, Change{Type: ChangeInsert, Index: j, Line: newLines[j]})
			j++
		}
	}

	return changes
}

// findResync returns the first (oi, nj) with oldLines[oi] == newLines[nj] inside the window.
func findResync(oldLines, newLines []string, i, j, lookahead int) (int, int, bool) {
	oldEnd := minInt(i+lookahead, len(oldLines))
	newEnd := minInt(j+lookahead, len(newLines))

	for oi := i; oi < oldEnd; oi++ {
		for nj := j; nj < newEnd; nj++ {
			if oldLines[oi] == newLines[nj] {
				return oi, nj, true
			}
		}
	}
	return 0, 0, false
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
