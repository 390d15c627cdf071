// Package scope provides scope oracles: selector scoring against scope stacks,
// a fixed language scope for plain buffers, and a shell oracle that derives
// scopes from the syntax tree of a shell buffer.
package scope

import "strings"

// Score returns how well selector matches the space-separated scope stack
// scopeName. Zero means no match.
//
// A selector is a comma-separated list of alternatives; the best alternative
// wins. Each alternative is a sequence of atoms that must match elements of the
// stack in order, optionally followed by " - " exclusions. An atom matches an
// element equal to it or extending it by dotted segments, so "source.shell"
// matches "source.shell.bash". Deeper and longer matches score higher. The
// empty selector matches everything with score 1.
func Score(scopeName, selector string) int {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return 1
	}

	stack := strings.Fields(scopeName)
	best := 0
	for _, alt := range strings.Split(selector, ",") {
		if s := scoreAlternative(stack, alt); s > best {
			best = s
		}
	}
	return best
}

func scoreAlternative(stack []string, alt string) int {
	parts := strings.Split(alt, " - ")
	include := strings.TrimSpace(parts[0])
	if include == "" {
		return 0
	}

	score := scorePath(stack, strings.Fields(include))
	if score == 0 {
		return 0
	}
	for _, exclude := range parts[1:] {
		atoms := strings.Fields(exclude)
		if len(atoms) > 0 && scorePath(stack, atoms) > 0 {
			return 0
		}
	}
	return score
}

func scorePath(stack, atoms []string) int {
	score := 0
	next := 0
	for _, atom := range atoms {
		found := -1
		for j := next; j < len(stack); j++ {
			if atomMatches(stack[j], atom) {
				found = j
				break
			}
		}
		if found < 0 {
			return 0
		}
		score += (found+1)*8 + strings.Count(atom, ".") + 1
		next = found + 1
	}
	return score
}

func atomMatches(element, atom string) bool {
	return element == atom || strings.HasPrefix(element, atom+".")
}
