package diff

import (
	"strings"
)

// BlockRules describes the text patterns that widen a raw line diff to whole blocks.
// A changed heading, bullet or trigger line pulls in the rest of its block, and any
// line carrying a trigger term pulls in the reference block around it.
type BlockRules struct {
	HeadingPrefix  string
	BulletPrefixes []string
	// TriggerTerms are matched as literal substrings.
	TriggerTerms []string
	// LinkMarker lets a line continue a trigger block.
	LinkMarker string
}

// DefaultBlockRules absorbs markdown sections, lists and encyclopedia reference blocks.
func DefaultBlockRules() BlockRules {
	return BlockRules{
		HeadingPrefix:  "##",
		BulletPrefixes: []string{"-", "*"},
		TriggerTerms:   []string{"Wikipedia", "wikipedia"},
		LinkMarker:     "http",
	}
}

func (r BlockRules) isHeading(line string) bool {
	return r.HeadingPrefix != "" && strings.HasPrefix(line, r.HeadingPrefix)
}

func (r BlockRules) isBullet(line string) bool {
	for _, p := range r.BulletPrefixes {
		if p != "" && strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func (r BlockRules) hasTrigger(line string) bool {
	for _, term := range r.TriggerTerms {
		if term != "" && strings.Contains(line, term) {
			return true
		}
	}
	return false
}

func (r BlockRules) hasLink(line string) bool {
	return r.LinkMarker != "" && strings.Contains(line, r.LinkMarker)
}

// isBoundary reports whether a line ends a block.
func (r BlockRules) isBoundary(line string) bool {
	return isBlank(line) || r.isHeading(line)
}

// expandStructural extends every changed heading, bullet or trigger line forward to
// the end of its block. Only lines changed before this pass act as anchors.
func (r BlockRules) expandStructural(lines []string, changed LineSet) {
	for _, idx := range changed.Sorted() {
		if idx >= len(lines) {
			continue
		}
		line := lines[idx]
		if !r.isHeading(line) && !r.isBullet(line) && !r.hasTrigger(line) {
			continue
		}
		for k := idx + 1; k < len(lines) && !r.isBoundary(lines[k]); k++ {
			changed.Add(k)
		}
	}
}

// expandTriggerBlocks marks every block that carries a trigger term: back to the
// preceding heading (inclusive) or blank line (exclusive), and forward while lines
// keep looking like references.
func (r BlockRules) expandTriggerBlocks(lines []string, changed LineSet) {
	if len(r.TriggerTerms) == 0 {
		return
	}

	for i := 0; i < len(lines); {
		if !r.hasTrigger(lines[i]) {
			i++
			continue
		}

		start := i
		for start > 0 {
			prev := lines[start-1]
			if isBlank(prev) {
				break
			}
			start--
			if r.isHeading(prev) {
				break
			}
		}
		for k := start; k <= i; k++ {
			changed.Add(k)
		}

		end := i + 1
		for end < len(lines) && r.continuesReference(lines[end]) {
			changed.Add(end)
			end++
		}
		i = end
	}
}

// continuesReference reports whether a line following a trigger line belongs to its block.
func (r BlockRules) continuesReference(line string) bool {
	if r.isBoundary(line) {
		return false
	}
	return r.hasTrigger(line) || r.isBullet(line) || r.hasLink(line)
}
