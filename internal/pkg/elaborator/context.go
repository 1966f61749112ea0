package elaborator

import (
	"fmt"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
	"github.com/polarity-lang/polarity/internal/pkg/common"
)

type binding struct {
	name ast.Identifier
	typ  Value
	// val is set for binders with a known value: local lets, and
	// variables refined by index unification. Binders without a value
	// evaluate to themselves as neutral variables.
	val Value
}

// Context is the stack of locally bound variables during typechecking.
// Positions are De Bruijn levels; the type of each binder is a value.
type Context struct {
	bindings []binding
}

func newContext() *Context {
	return &Context{}
}

func (c *Context) Len() int {
	return len(c.bindings)
}

// Extend binds a new variable and returns its De Bruijn level.
func (c *Context) Extend(name ast.Identifier, typ Value) int {
	c.bindings = append(c.bindings, binding{name: name, typ: typ})
	return len(c.bindings) - 1
}

// ExtendDef binds a variable with a known value, as for a local let.
func (c *Context) ExtendDef(name ast.Identifier, typ Value, val Value) int {
	c.bindings = append(c.bindings, binding{name: name, typ: typ, val: val})
	return len(c.bindings) - 1
}

// Clone returns an independent copy. Clause checking refines a copy of
// the context so the original stays intact for sibling clauses.
func (c *Context) Clone() *Context {
	bindings := make([]binding, len(c.bindings))
	copy(bindings, c.bindings)
	return &Context{bindings: bindings}
}

// SetValLvl records the value a binder was refined to.
func (c *Context) SetValLvl(lvl int, val Value) {
	if lvl < 0 || lvl >= len(c.bindings) {
		panic(common.SystemError{Message: fmt.Sprintf("context level out of range: %d in %d", lvl, len(c.bindings))})
	}
	c.bindings[lvl].val = val
}

// Drop removes the n innermost binders.
func (c *Context) Drop(n int) {
	if n > len(c.bindings) {
		panic(common.SystemError{Message: "context drop below empty"})
	}
	c.bindings = c.bindings[:len(c.bindings)-n]
}

// Lookup resolves a De Bruijn index to the binder's name and type.
func (c *Context) Lookup(idx int) (ast.Identifier, Value) {
	if idx < 0 || idx >= len(c.bindings) {
		panic(common.SystemError{Message: fmt.Sprintf("context lookup out of range: %d in %d", idx, len(c.bindings))})
	}
	b := c.bindings[len(c.bindings)-1-idx]
	return b.name, b.typ
}

// LookupLvl resolves a De Bruijn level.
func (c *Context) LookupLvl(lvl int) (ast.Identifier, Value) {
	if lvl < 0 || lvl >= len(c.bindings) {
		panic(common.SystemError{Message: fmt.Sprintf("context level out of range: %d in %d", lvl, len(c.bindings))})
	}
	b := c.bindings[lvl]
	return b.name, b.typ
}

// SetTypeLvl replaces the type of the binder at lvl. Used when index
// unification refines the context of a clause.
func (c *Context) SetTypeLvl(lvl int, typ Value) {
	if lvl < 0 || lvl >= len(c.bindings) {
		panic(common.SystemError{Message: fmt.Sprintf("context level out of range: %d in %d", lvl, len(c.bindings))})
	}
	c.bindings[lvl].typ = typ
}

// Names lists the binder names, outermost first.
func (c *Context) Names() []ast.Identifier {
	names := make([]ast.Identifier, len(c.bindings))
	for i, b := range c.bindings {
		names[i] = b.name
	}
	return names
}

// ToEnv views the context as an environment: binders with a known
// value contribute that value, all others contribute themselves as
// neutral variables.
func (c *Context) ToEnv() *Env {
	values := make([]Value, len(c.bindings))
	for lvl, b := range c.bindings {
		if b.val != nil {
			values[lvl] = b.val
		} else {
			values[lvl] = &VNeutral{Head: &HVariable{Level: lvl, Name: b.name}}
		}
	}
	return envOf(values)
}

// varValue is the value of the binder at lvl: its refinement if it has
// one, itself as a neutral variable otherwise.
func (c *Context) varValue(lvl int) Value {
	if c.bindings[lvl].val != nil {
		return c.bindings[lvl].val
	}
	name, _ := c.LookupLvl(lvl)
	return &VNeutral{Head: &HVariable{Level: lvl, Name: name}}
}
