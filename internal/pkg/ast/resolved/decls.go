package resolved

import (
	"fmt"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
)

// Decl is a top-level declaration of a module.
type Decl interface {
	fmt.Stringer
	_declaration()
	GetName() ast.Identifier
	GetLocation() ast.Location
}

// Ctor declares one constructor of a data type. The telescope is
// self-contained: it redeclares the data type's parameters it needs.
// TypArgs are the indices of the constructed type, under Params.
type Ctor struct {
	Location ast.Location
	Name     ast.Identifier
	Params   Telescope
	TypArgs  []Arg
}

func (c *Ctor) String() string {
	return string(c.Name) + c.Params.String()
}

type Data struct {
	Location ast.Location
	Name     ast.Identifier
	Params   Telescope
	Ctors    []*Ctor
}

func (*Data) _declaration() {}

func (d *Data) GetName() ast.Identifier { return d.Name }

func (d *Data) GetLocation() ast.Location { return d.Location }

func (d *Data) String() string {
	return fmt.Sprintf("data %s%v", d.Name, d.Params)
}

// Dtor declares one destructor of a codata type. SelfTyp (under
// Params) is the type of the observed value; Ret lives under
// [Params, self].
type Dtor struct {
	Location ast.Location
	Name     ast.Identifier
	Params   Telescope
	SelfName ast.Identifier
	SelfTyp  *CoTypCtor
	Ret      Exp
}

func (d *Dtor) String() string {
	return fmt.Sprintf("%v.%s%v: %v", d.SelfTyp, d.Name, d.Params, d.Ret)
}

type Codata struct {
	Location ast.Location
	Name     ast.Identifier
	Params   Telescope
	Dtors    []*Dtor
}

func (*Codata) _declaration() {}

func (d *Codata) GetName() ast.Identifier { return d.Name }

func (d *Codata) GetLocation() ast.Location { return d.Location }

func (d *Codata) String() string {
	return fmt.Sprintf("codata %s%v", d.Name, d.Params)
}

// Def is a top-level destructor-like clause set on a data type: a named
// match. SelfTyp (under Params) is the scrutinee type, Ret lives under
// [Params, self], and each case body lives under [Params, pattern
// binders].
type Def struct {
	Location ast.Location
	Name     ast.Identifier
	Params   Telescope
	SelfName ast.Identifier
	SelfTyp  *TypCtor
	Ret      Exp
	Cases    []*Case
}

func (*Def) _declaration() {}

func (d *Def) GetName() ast.Identifier { return d.Name }

func (d *Def) GetLocation() ast.Location { return d.Location }

func (d *Def) String() string {
	return fmt.Sprintf("def %v.%s%v: %v %s", d.SelfTyp, d.Name, d.Params, d.Ret, casesString(d.Cases))
}

// Codef is a top-level producer of a codata type: a named comatch.
type Codef struct {
	Location ast.Location
	Name     ast.Identifier
	Params   Telescope
	Typ      *CoTypCtor
	Cases    []*Case
}

func (*Codef) _declaration() {}

func (d *Codef) GetName() ast.Identifier { return d.Name }

func (d *Codef) GetLocation() ast.Location { return d.Location }

func (d *Codef) String() string {
	return fmt.Sprintf("codef %s%v: %v %s", d.Name, d.Params, d.Typ, casesString(d.Cases))
}

// Let is a top-level binding. Opaque lets (the default) block
// unfolding during evaluation and conversion checking.
type Let struct {
	Location    ast.Location
	Name        ast.Identifier
	Params      Telescope
	Typ         Exp
	Body        Exp
	Transparent bool
}

func (*Let) _declaration() {}

func (d *Let) GetName() ast.Identifier { return d.Name }

func (d *Let) GetLocation() ast.Location { return d.Location }

func (d *Let) String() string {
	attr := ""
	if d.Transparent {
		attr = "#[transparent] "
	}
	return fmt.Sprintf("%slet %s%v: %v", attr, d.Name, d.Params, d.Typ)
}

// Infix maps a user operator symbol onto a binary call. Lowering has
// already rewritten all uses; the entry is kept so downstream printers
// can reconstruct the operator form.
type Infix struct {
	Location ast.Location
	Symbol   ast.InfixIdentifier
	Call     ast.Identifier
}

func (*Infix) _declaration() {}

func (d *Infix) GetName() ast.Identifier { return ast.Identifier(d.Symbol) }

func (d *Infix) GetLocation() ast.Location { return d.Location }

func (d *Infix) String() string {
	return fmt.Sprintf("infix _ %s _ := %s", d.Symbol, d.Call)
}

// Module is the unit of elaboration handed over by the lowering stage.
// SymbolTable is opaque to the core and passed through unchanged.
type Module struct {
	Name        ast.QualifiedIdentifier
	Imports     []ast.QualifiedIdentifier
	Decls       []Decl
	SymbolTable any
}

func (m *Module) String() string {
	return fmt.Sprintf("module %s (%d decls)", m.Name, len(m.Decls))
}
