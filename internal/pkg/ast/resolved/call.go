package resolved

import (
	"fmt"
	"strings"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
)

// Arg is one argument of a call. Name is empty for positional
// arguments; Inserted marks implicit arguments materialized by lowering
// (their Exp is always a Hole).
type Arg struct {
	Name     ast.Identifier
	Exp      Exp
	Inserted bool
}

func (a Arg) String() string {
	if a.Name != "" {
		return fmt.Sprintf("%s := %v", a.Name, a.Exp)
	}
	return fmt.Sprintf("%v", a.Exp)
}

func argsString(args []Arg) string {
	if len(args) == 0 {
		return ""
	}
	shown := make([]string, 0, len(args))
	for _, a := range args {
		if a.Inserted {
			continue
		}
		shown = append(shown, a.String())
	}
	return "(" + strings.Join(shown, ", ") + ")"
}

// TypCtor is an applied data type constructor, e.g. Vec(n).
type TypCtor struct {
	Location ast.Location
	Name     ast.Identifier
	Args     []Arg
	Type     Exp
}

func (*TypCtor) _expression() {}

func (e *TypCtor) GetLocation() ast.Location { return e.Location }

func (e *TypCtor) GetType() Exp { return e.Type }

func (e *TypCtor) String() string {
	return string(e.Name) + argsString(e.Args)
}

// CoTypCtor is an applied codata type constructor, e.g. Stream.
type CoTypCtor struct {
	Location ast.Location
	Name     ast.Identifier
	Args     []Arg
	Type     Exp
}

func (*CoTypCtor) _expression() {}

func (e *CoTypCtor) GetLocation() ast.Location { return e.Location }

func (e *CoTypCtor) GetType() Exp { return e.Type }

func (e *CoTypCtor) String() string {
	return string(e.Name) + argsString(e.Args)
}

// CallKind distinguishes the three kinds of saturated calls that share
// the Call node: term constructors of a data type, codefinitions, and
// top-level let-bound names.
type CallKind int

const (
	CallConstructor CallKind = iota
	CallCodefinition
	CallLetBound
)

func (k CallKind) String() string {
	switch k {
	case CallConstructor:
		return "constructor"
	case CallCodefinition:
		return "codefinition"
	case CallLetBound:
		return "let"
	}
	return "call"
}

type Call struct {
	Location ast.Location
	Kind     CallKind
	Name     ast.Identifier
	Args     []Arg
	Type     Exp
}

func (*Call) _expression() {}

func (e *Call) GetLocation() ast.Location { return e.Location }

func (e *Call) GetType() Exp { return e.Type }

func (e *Call) String() string {
	return string(e.Name) + argsString(e.Args)
}

// DotCallKind distinguishes destructor projections on codata values
// from calls to top-level definitions on data values.
type DotCallKind int

const (
	DotCallDestructor DotCallKind = iota
	DotCallDefinition
)

func (k DotCallKind) String() string {
	switch k {
	case DotCallDestructor:
		return "destructor"
	case DotCallDefinition:
		return "definition"
	}
	return "dotcall"
}

// DotCall is `e.d(args)`: either a destructor observation or a
// saturated call to a top-level def with scrutinee e.
type DotCall struct {
	Location ast.Location
	Kind     DotCallKind
	Exp      Exp
	Name     ast.Identifier
	Args     []Arg
	Type     Exp
}

func (*DotCall) _expression() {}

func (e *DotCall) GetLocation() ast.Location { return e.Location }

func (e *DotCall) GetType() Exp { return e.Type }

func (e *DotCall) String() string {
	return fmt.Sprintf("%v.%s%s", e.Exp, e.Name, argsString(e.Args))
}
