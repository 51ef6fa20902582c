package diff

// DefaultRewriteThreshold is the share of unseen new lines above which
// every line counts as changed.
const DefaultRewriteThreshold = 0.8

// Options tune the engine.
// Lookahead is a tunable: larger windows resync across wider edits at quadratic cost.
type Options struct {
	Lookahead        int
	RewriteThreshold float64
	Rules            BlockRules
}

// DefaultOptions returns the settings notes are reviewed with out of the box.
func DefaultOptions() Options {
	return Options{
		Lookahead:        DefaultLookahead,
		RewriteThreshold: DefaultRewriteThreshold,
		Rules:            DefaultBlockRules(),
	}
}

// Engine computes which lines of a new text should be shown as changed.
// It is stateless and safe for concurrent use.
type Engine struct {
	opts Options
}

// NewEngine creates an engine. Zero values in opts fall back to the defaults.
func NewEngine(opts Options) *Engine {
	if opts.Lookahead < 1 {
		opts.Lookahead = DefaultLookahead
	}
	if opts.RewriteThreshold <= 0 {
		opts.RewriteThreshold = DefaultRewriteThreshold
	}
	return &Engine{opts: opts}
}

var defaultEngine = NewEngine(DefaultOptions())

// ComputeChangedLines runs the default engine.
func ComputeChangedLines(oldLines, newLines []string) LineSet {
	return defaultEngine.ComputeChangedLines(oldLines, newLines)
}

func (e *Engine) Options() Options {
	return e.opts
}

// ComputeChangedLines returns the indices into newLines that differ from oldLines,
// widened to whole blocks. Every returned index is < len(newLines).
func (e *Engine) ComputeChangedLines(oldLines, newLines []string) LineSet {
	changes := alignLines(oldLines, newLines, e.opts.Lookahead)
	changed := baseChangedSet(changes, len(newLines))

	// Identical inputs must stay clean, so block rules only apply to a real diff
	if changed.Len() == 0 {
		return changed
	}

	e.opts.Rules.expandStructural(newLines, changed)
	e.opts.Rules.expandTriggerBlocks(newLines, changed)

	if rewriteRatio(oldLines, newLines) > e.opts.RewriteThreshold {
		for idx := range newLines {
			changed.Add(idx)
		}
	}

	return changed
}

// baseChangedSet turns aligned changes into line marks. Inserts carry one line of
// context on each side; deletes mark the line now sitting at the deletion point,
// or the last line when the deletion happened at the tail.
func baseChangedSet(changes []Change, newLen int) LineSet {
	changed := make(LineSet)

	for _, c := range changes {
		switch c.Type {
		case ChangeInsert:
			changed.Add(c.Index)
			if c.Index > 0 {
				changed.Add(c.Index - 1)
			}
			if c.Index+1 < newLen {
				changed.Add(c.Index + 1)
			}
		case ChangeDelete:
			if c.Index < newLen {
				changed.Add(c.Index)
			} else if newLen > 0 {
				changed.Add(newLen - 1)
			}
		}
	}

	return changed
}

// rewriteRatio is the fraction of new lines that appear nowhere in the old lines.
// An empty new sequence has ratio 0.
func rewriteRatio(oldLines, newLines []string) float64 {
	if len(newLines) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(oldLines))
	for _, line := range oldLines {
		seen[line] = struct{}{}
	}

	unseen := 0
	for _, line := range newLines {
		if _, ok := seen[line]; !ok {
			unseen++
		}
	}
	return float64(unseen) / float64(len(newLines))
}
