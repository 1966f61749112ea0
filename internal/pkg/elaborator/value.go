package elaborator

import (
	"fmt"
	"strings"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
	"github.com/polarity-lang/polarity/internal/pkg/ast/resolved"
	"github.com/polarity-lang/polarity/internal/pkg/common"
)

// Value is a weak-head normal form. Values are closed over their
// environments and indexed by De Bruijn levels, so they stay valid when
// the context is extended.
type Value interface {
	fmt.Stringer
	_value()
}

type VTypeUniv struct{}

func (*VTypeUniv) _value() {}

func (v *VTypeUniv) String() string { return "Type" }

// VTypCtor is an applied data type constructor.
type VTypCtor struct {
	Name ast.Identifier
	Args []Value
}

func (*VTypCtor) _value() {}

func (v *VTypCtor) String() string {
	return string(v.Name) + valueArgsString(v.Args)
}

// VCoTypCtor is an applied codata type constructor.
type VCoTypCtor struct {
	Name ast.Identifier
	Args []Value
}

func (*VCoTypCtor) _value() {}

func (v *VCoTypCtor) String() string {
	return string(v.Name) + valueArgsString(v.Args)
}

// VCtor is a data value: a constructor applied to argument values.
type VCtor struct {
	Name ast.Identifier
	Args []Value
}

func (*VCtor) _value() {}

func (v *VCtor) String() string {
	return string(v.Name) + valueArgsString(v.Args)
}

// VComatch is a codata value awaiting observation: the cases of a local
// comatch closed over their environment.
type VComatch struct {
	Label ast.Identifier
	Cases []*VCase
}

func (*VComatch) _value() {}

func (v *VComatch) String() string {
	parts := common.Map(func(c *VCase) string { return c.String() }, v.Cases)
	return "comatch { " + strings.Join(parts, ", ") + " }"
}

// VNeutral is a stuck computation: a head that cannot reduce, together
// with the eliminations applied to it, in application order.
type VNeutral struct {
	Head  Head
	Spine []Elim
}

func (*VNeutral) _value() {}

func (v *VNeutral) String() string {
	sb := strings.Builder{}
	sb.WriteString(v.Head.String())
	for _, e := range v.Spine {
		sb.WriteString(e.String())
	}
	return sb.String()
}

// Head is the reason a neutral is stuck.
type Head interface {
	fmt.Stringer
	_head()
}

// HVariable is a free variable, identified by its De Bruijn level.
type HVariable struct {
	Level int
	Name  ast.Identifier
}

func (*HVariable) _head() {}

func (h *HVariable) String() string {
	return fmt.Sprintf("%s@!%d", h.Name, h.Level)
}

// HMeta is an unsolved metavariable. Args instantiate the context the
// metavariable was introduced in, one value per binder.
type HMeta struct {
	Meta resolved.MetaID
	Args []Value
}

func (*HMeta) _head() {}

func (h *HMeta) String() string {
	return h.Meta.String() + valueArgsString(h.Args)
}

// HOpaque is a call to an opaque top-level let. It blocks computation;
// two opaque calls are convertible only if name and arguments agree.
type HOpaque struct {
	Name ast.Identifier
	Args []Value
}

func (*HOpaque) _head() {}

func (h *HOpaque) String() string {
	return string(h.Name) + valueArgsString(h.Args)
}

// HCodef is a codefinition call awaiting a destructor observation.
type HCodef struct {
	Name ast.Identifier
	Args []Value
}

func (*HCodef) _head() {}

func (h *HCodef) String() string {
	return string(h.Name) + valueArgsString(h.Args)
}

// HStuck wraps a non-neutral value an elimination got stuck on, e.g. a
// constructor value matched against a clause set that has no arm for it
// yet. Exhaustiveness checking rules this out post-elaboration.
type HStuck struct {
	Value Value
}

func (*HStuck) _head() {}

func (h *HStuck) String() string {
	return h.Value.String()
}

// Elim is one element of a neutral spine.
type Elim interface {
	fmt.Stringer
	_elim()
}

// EDot is a destructor projection or def call that is stuck on its
// scrutinee.
type EDot struct {
	Kind resolved.DotCallKind
	Name ast.Identifier
	Args []Value
}

func (*EDot) _elim() {}

func (e *EDot) String() string {
	return "." + string(e.Name) + valueArgsString(e.Args)
}

// EMatch is a local match stuck on its scrutinee.
type EMatch struct {
	Label ast.Identifier
	Cases []*VCase
}

func (*EMatch) _elim() {}

func (e *EMatch) String() string {
	parts := common.Map(func(c *VCase) string { return c.String() }, e.Cases)
	return ".match { " + strings.Join(parts, ", ") + " }"
}

// VCase is one clause of a match or comatch value. A nil Body is an
// absurd clause.
type VCase struct {
	Name        ast.Identifier
	IsCopattern bool
	Binders     []ast.Identifier
	Body        *Closure
}

func (c *VCase) String() string {
	if c.Body == nil {
		return string(c.Name) + " absurd"
	}
	return string(c.Name) + " => ..."
}

// Closure pairs a term with the lexical environment it was evaluated
// in. Applying it binds one value per binder of the deferred term.
type Closure struct {
	Env     *Env
	Binders int
	Body    resolved.Exp
}

func valueArgsString(args []Value) string {
	if len(args) == 0 {
		return ""
	}
	return "(" + strings.Join(common.Map(func(v Value) string { return v.String() }, args), ", ") + ")"
}
