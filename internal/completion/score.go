package completion

// DocumentScore is the best score of selector over the document's selections,
// or at point 0 when the document has no selection.
func DocumentScore(doc Document, selector string) int {
	sel := doc.Selections()
	if len(sel) == 0 {
		return doc.ScoreSelector(0, selector)
	}
	return SelectionScore(doc, sel, selector)
}

// SelectionScore is the best score of selector over positions.
func SelectionScore(oracle ScopeOracle, positions []int, selector string) int {
	if len(positions) == 0 {
		return oracle.ScoreSelector(0, selector)
	}
	best := 0
	for _, p := range positions {
		if s := oracle.ScoreSelector(p, selector); s > best {
			best = s
		}
	}
	return best
}
