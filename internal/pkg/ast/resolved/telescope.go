package resolved

import (
	"fmt"
	"strings"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
)

// Param is one declared parameter of a telescope. Its type may mention
// every parameter to its left.
type Param struct {
	Location ast.Location
	Name     ast.Identifier
	Typ      Exp
	Implicit bool
}

func (p *Param) String() string {
	if p.Implicit {
		return fmt.Sprintf("implicit %s: %v", p.Name, p.Typ)
	}
	return fmt.Sprintf("%s: %v", p.Name, p.Typ)
}

// Telescope is an ordered sequence of typed parameters.
type Telescope struct {
	Params []*Param
}

func (t Telescope) Len() int {
	return len(t.Params)
}

func (t Telescope) String() string {
	if len(t.Params) == 0 {
		return ""
	}
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// ParamInst is a binder introduced by a pattern or copattern. Before
// elaboration only the name is known; the typechecker fills Typ with
// the read-back of the binder's type.
type ParamInst struct {
	Location ast.Location
	Name     ast.Identifier
	Typ      Exp
}

func (p *ParamInst) String() string {
	return string(p.Name)
}

// TelescopeInst is an instantiated telescope: the fresh binders a
// clause introduces for the parameters of its constructor or
// destructor.
type TelescopeInst struct {
	Params []*ParamInst
}

func (t TelescopeInst) Len() int {
	return len(t.Params)
}

func (t TelescopeInst) String() string {
	if len(t.Params) == 0 {
		return ""
	}
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
