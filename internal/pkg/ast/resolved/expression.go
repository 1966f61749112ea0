package resolved

import (
	"fmt"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
)

// Exp is an expression of the resolved syntax tree. The same tree shape
// is used before and after elaboration: the lowering stage produces
// expressions whose Type is nil, the typechecker returns copies whose
// Type carries the read-back of the inferred or checked type value.
type Exp interface {
	fmt.Stringer
	_expression()
	GetLocation() ast.Location
	GetType() Exp
}

// MetaID identifies a metavariable. IDs are allocated monotonically by
// the metavariable store, never reused.
type MetaID uint64

func (m MetaID) String() string {
	return fmt.Sprintf("?%d", uint64(m))
}

// HoleKind distinguishes holes that must be solved during elaboration
// from holes that may be left open as user-visible goals.
type HoleKind int

const (
	// MustSolve is a `_` hole written by the user.
	MustSolve HoleKind = iota
	// CanSolve is a `?` hole that may remain open as a goal.
	CanSolve
	// Inserted is a hole generated by lowering for an implicit argument.
	// Like MustSolve it is an error to leave it open.
	Inserted
)

func (k HoleKind) String() string {
	switch k {
	case MustSolve:
		return "_"
	case CanSolve:
		return "?"
	case Inserted:
		return "<inserted>"
	}
	return "<hole>"
}

// MustBeSolved reports whether leaving the hole open at the end of a
// declaration is an error.
func (k HoleKind) MustBeSolved() bool {
	return k != CanSolve
}

type Variable struct {
	Location ast.Location
	Index    int
	Name     ast.Identifier
	Type     Exp
}

func (*Variable) _expression() {}

func (e *Variable) GetLocation() ast.Location { return e.Location }

func (e *Variable) GetType() Exp { return e.Type }

func (e *Variable) String() string {
	return fmt.Sprintf("%s@%d", e.Name, e.Index)
}

// TypeUniv is the single universe `Type`. Its type is itself.
type TypeUniv struct {
	Location ast.Location
}

func (*TypeUniv) _expression() {}

func (e *TypeUniv) GetLocation() ast.Location { return e.Location }

func (e *TypeUniv) GetType() Exp { return &TypeUniv{Location: e.Location} }

func (e *TypeUniv) String() string { return "Type" }

type Anno struct {
	Location ast.Location
	Exp      Exp
	Typ      Exp
	Type     Exp
}

func (*Anno) _expression() {}

func (e *Anno) GetLocation() ast.Location { return e.Location }

func (e *Anno) GetType() Exp { return e.Type }

func (e *Anno) String() string {
	return fmt.Sprintf("(%v : %v)", e.Exp, e.Typ)
}

// Hole is a metavariable occurrence. Args is the explicit substitution
// of the local context at the occurrence site; lowering fills it with
// one variable per binder in scope, innermost last.
type Hole struct {
	Location ast.Location
	Kind     HoleKind
	Meta     MetaID
	Args     []Exp
	Type     Exp
}

func (*Hole) _expression() {}

func (e *Hole) GetLocation() ast.Location { return e.Location }

func (e *Hole) GetType() Exp { return e.Type }

func (e *Hole) String() string {
	return fmt.Sprintf("?%d", uint64(e.Meta))
}

// NatLit is a numeral. Lowering resolves the constructor names of the
// Nat type in scope; the typechecker desugars the literal into Succ
// applications over Zero.
type NatLit struct {
	Location ast.Location
	Value    uint64
	Zero     ast.Identifier
	Succ     ast.Identifier
	Type     Exp
}

func (*NatLit) _expression() {}

func (e *NatLit) GetLocation() ast.Location { return e.Location }

func (e *NatLit) GetType() Exp { return e.Type }

func (e *NatLit) String() string {
	return fmt.Sprintf("%d", e.Value)
}

type LocalLet struct {
	Location ast.Location
	Name     ast.Identifier
	Typ      Exp // optional
	Bound    Exp
	Body     Exp
	Type     Exp
}

func (*LocalLet) _expression() {}

func (e *LocalLet) GetLocation() ast.Location { return e.Location }

func (e *LocalLet) GetType() Exp { return e.Type }

func (e *LocalLet) String() string {
	if e.Typ != nil {
		return fmt.Sprintf("let %s : %v := %v; %v", e.Name, e.Typ, e.Bound, e.Body)
	}
	return fmt.Sprintf("let %s := %v; %v", e.Name, e.Bound, e.Body)
}
