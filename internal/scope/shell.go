package scope

import (
	"strings"

	"github.com/cockroachdb/errors"
	"mvdan.cc/sh/v3/syntax"
)

// ShellScope is the base scope of shell buffers.
const ShellScope = "source.shell"

const (
	scopeFunctionCall = "meta.function-call.shell"
	scopeCommandName  = "variable.function.shell"
	scopeArguments    = "meta.function-call.arguments.shell"
	scopeVariable     = "variable.other.readwrite.shell"
	scopeDoubleQuoted = "string.quoted.double.shell"
	scopeSingleQuoted = "string.quoted.single.shell"
	scopeComment      = "comment.line.number-sign.shell"
	scopeFunction     = "meta.function.shell"
	scopeFunctionName = "entity.name.function.shell"
)

type span struct {
	start, end int
	name       string
}

// Shell derives scopes from the syntax tree of a shell buffer.
type Shell struct {
	spans []span
}

// NewShell parses text and records the scope spans of its nodes. On a parse
// error the returned oracle still reports ShellScope everywhere.
func NewShell(name, text string) (*Shell, error) {
	s := &Shell{}

	file, err := syntax.NewParser(syntax.KeepComments(true)).Parse(strings.NewReader(text), name)
	if err != nil {
		return s, errors.Wrap(err, "failed to parse shell buffer")
	}

	syntax.Walk(file, func(node syntax.Node) bool {
		switch x := node.(type) {
		case *syntax.Stmt:
			for _, c := range x.Comments {
				s.add(c.Pos(), c.End(), scopeComment)
			}
		case *syntax.CallExpr:
			s.addCall(text, x)
		case *syntax.FuncDecl:
			s.add(x.Pos(), x.End(), scopeFunction)
			if x.Name != nil {
				s.add(x.Name.Pos(), x.Name.End(), scopeFunctionName)
			}
		case *syntax.ParamExp:
			s.add(x.Pos(), x.End(), scopeVariable)
		case *syntax.DblQuoted:
			s.add(x.Pos(), x.End(), scopeDoubleQuoted)
		case *syntax.SglQuoted:
			s.add(x.Pos(), x.End(), scopeSingleQuoted)
		}
		return true
	})
	for _, c := range file.Last {
		s.add(c.Pos(), c.End(), scopeComment)
	}

	return s, nil
}

// addCall records the call, its command name and its arguments. The call and
// argument spans extend over trailing blanks so that a cursor placed after
// "git " is inside the arguments of git.
func (s *Shell) addCall(text string, call *syntax.CallExpr) {
	if len(call.Args) == 0 {
		return
	}
	start := int(call.Pos().Offset())
	end := extendOverBlanks(text, int(call.End().Offset()))
	s.spans = append(s.spans, span{start: start, end: end, name: scopeFunctionCall})

	name := call.Args[0]
	nameEnd := int(name.End().Offset())
	s.add(name.Pos(), name.End(), scopeCommandName)
	if end > nameEnd {
		s.spans = append(s.spans, span{start: nameEnd + 1, end: end, name: scopeArguments})
	}
}

func (s *Shell) add(pos, end syntax.Pos, name string) {
	if !pos.IsValid() || !end.IsValid() {
		return
	}
	s.spans = append(s.spans, span{start: int(pos.Offset()), end: int(end.Offset()), name: name})
}

func extendOverBlanks(text string, end int) int {
	for end < len(text) && (text[end] == ' ' || text[end] == '\t') {
		end++
	}
	return end
}

// ScopeName implements completion.ScopeOracle. Spans are recorded outermost
// first, so the returned stack reads from the base scope inwards.
func (s *Shell) ScopeName(point int) string {
	parts := []string{ShellScope}
	for _, sp := range s.spans {
		if sp.start <= point && point <= sp.end {
			parts = append(parts, sp.name)
		}
	}
	return strings.Join(parts, " ")
}

// ScoreSelector implements completion.ScopeOracle.
func (s *Shell) ScoreSelector(point int, selector string) int {
	return Score(s.ScopeName(point), selector)
}
