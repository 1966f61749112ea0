package resolved

import (
	"fmt"
	"strings"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
)

// Pattern is the head of a clause: a constructor or destructor name
// together with the fresh binders for its parameters. Patterns and
// copatterns share this shape.
type Pattern struct {
	Location    ast.Location
	IsCopattern bool
	Name        ast.Identifier
	Params      TelescopeInst
}

func (p Pattern) String() string {
	if p.IsCopattern {
		return "." + string(p.Name) + p.Params.String()
	}
	return string(p.Name) + p.Params.String()
}

// Case is one clause of a match, comatch, def or codef. A nil Body
// marks an absurd clause: the typechecker must derive a contradiction
// from the pattern's indices.
type Case struct {
	Location ast.Location
	Pattern  Pattern
	Body     Exp
}

func (c *Case) IsAbsurd() bool {
	return c.Body == nil
}

func (c *Case) String() string {
	if c.IsAbsurd() {
		return fmt.Sprintf("%v absurd", c.Pattern)
	}
	return fmt.Sprintf("%v => %v", c.Pattern, c.Body)
}

func casesString(cases []*Case) string {
	parts := make([]string, len(cases))
	for i, c := range cases {
		parts[i] = c.String()
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

// Motive is the dependent return type of a match, written
// `as self => t`. Ret is an expression under one extra binder for the
// scrutinee.
type Motive struct {
	Location ast.Location
	Param    ast.Identifier
	Ret      Exp
}

func (m *Motive) String() string {
	return fmt.Sprintf("as %s => %v", m.Param, m.Ret)
}

// LocalMatch is a pattern match on a data value.
type LocalMatch struct {
	Location ast.Location
	Label    ast.Identifier
	OnExp    Exp
	Motive   *Motive // optional
	Cases    []*Case
	Type     Exp
}

func (*LocalMatch) _expression() {}

func (e *LocalMatch) GetLocation() ast.Location { return e.Location }

func (e *LocalMatch) GetType() Exp { return e.Type }

func (e *LocalMatch) String() string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("%v.match", e.OnExp))
	if e.Motive != nil {
		sb.WriteString(" " + e.Motive.String())
	}
	sb.WriteString(" " + casesString(e.Cases))
	return sb.String()
}

// LocalComatch is a copattern match producing a codata value.
type LocalComatch struct {
	Location ast.Location
	Label    ast.Identifier
	Cases    []*Case
	Type     Exp
}

func (*LocalComatch) _expression() {}

func (e *LocalComatch) GetLocation() ast.Location { return e.Location }

func (e *LocalComatch) GetType() Exp { return e.Type }

func (e *LocalComatch) String() string {
	return "comatch " + casesString(e.Cases)
}
