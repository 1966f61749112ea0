package elaborator

import (
	"fmt"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
	"github.com/polarity-lang/polarity/internal/pkg/ast/resolved"
	"github.com/polarity-lang/polarity/internal/pkg/common"
)

// readback reifies a value into a β-normal term in a context of depth
// free variables. Levels are converted back to indices; closures are
// evaluated under fresh neutral variables, so the result is normal
// under binders as well.
func (el *Elaborator) readback(depth int, v Value) (resolved.Exp, error) {
	v, err := el.force(v)
	if err != nil {
		return nil, err
	}
	switch v := v.(type) {
	case *VTypeUniv:
		return &resolved.TypeUniv{}, nil
	case *VTypCtor:
		args, err := el.readbackArgs(depth, v.Args)
		if err != nil {
			return nil, err
		}
		return &resolved.TypCtor{Name: v.Name, Args: args}, nil
	case *VCoTypCtor:
		args, err := el.readbackArgs(depth, v.Args)
		if err != nil {
			return nil, err
		}
		return &resolved.CoTypCtor{Name: v.Name, Args: args}, nil
	case *VCtor:
		args, err := el.readbackArgs(depth, v.Args)
		if err != nil {
			return nil, err
		}
		return &resolved.Call{Kind: resolved.CallConstructor, Name: v.Name, Args: args}, nil
	case *VComatch:
		cases, err := el.readbackCases(depth, v.Cases)
		if err != nil {
			return nil, err
		}
		return &resolved.LocalComatch{Label: v.Label, Cases: cases}, nil
	case *VNeutral:
		head, err := el.readbackHead(depth, v.Head)
		if err != nil {
			return nil, err
		}
		for _, elim := range v.Spine {
			head, err = el.readbackElim(depth, head, elim)
			if err != nil {
				return nil, err
			}
		}
		return head, nil
	}
	panic(common.SystemError{Message: fmt.Sprintf("invalid value %T", v)})
}

func (el *Elaborator) readbackHead(depth int, h Head) (resolved.Exp, error) {
	switch h := h.(type) {
	case *HVariable:
		idx := depth - 1 - h.Level
		if idx < 0 {
			panic(common.SystemError{Message: fmt.Sprintf("level %d read back at depth %d", h.Level, depth)})
		}
		return &resolved.Variable{Index: idx, Name: h.Name}, nil
	case *HMeta:
		args, err := common.MapErr(func(a Value) (resolved.Exp, error) { return el.readback(depth, a) }, h.Args)
		if err != nil {
			return nil, err
		}
		kind := resolved.CanSolve
		if entry := el.metas.Lookup(h.Meta); entry != nil {
			kind = entry.Kind
		}
		return &resolved.Hole{Kind: kind, Meta: h.Meta, Args: args}, nil
	case *HOpaque:
		args, err := el.readbackArgs(depth, h.Args)
		if err != nil {
			return nil, err
		}
		return &resolved.Call{Kind: resolved.CallLetBound, Name: h.Name, Args: args}, nil
	case *HCodef:
		args, err := el.readbackArgs(depth, h.Args)
		if err != nil {
			return nil, err
		}
		return &resolved.Call{Kind: resolved.CallCodefinition, Name: h.Name, Args: args}, nil
	case *HStuck:
		return el.readback(depth, h.Value)
	}
	panic(common.SystemError{Message: fmt.Sprintf("invalid neutral head %T", h)})
}

func (el *Elaborator) readbackElim(depth int, head resolved.Exp, elim Elim) (resolved.Exp, error) {
	switch e := elim.(type) {
	case *EDot:
		args, err := el.readbackArgs(depth, e.Args)
		if err != nil {
			return nil, err
		}
		return &resolved.DotCall{Kind: e.Kind, Exp: head, Name: e.Name, Args: args}, nil
	case *EMatch:
		cases, err := el.readbackCases(depth, e.Cases)
		if err != nil {
			return nil, err
		}
		return &resolved.LocalMatch{Label: e.Label, OnExp: head, Cases: cases}, nil
	}
	panic(common.SystemError{Message: fmt.Sprintf("invalid elimination %T", elim)})
}

func (el *Elaborator) readbackArgs(depth int, args []Value) ([]resolved.Arg, error) {
	out := make([]resolved.Arg, len(args))
	for i, a := range args {
		e, err := el.readback(depth, a)
		if err != nil {
			return nil, err
		}
		out[i] = resolved.Arg{Exp: e}
	}
	return out, nil
}

func (el *Elaborator) readbackCases(depth int, cases []*VCase) ([]*resolved.Case, error) {
	out := make([]*resolved.Case, len(cases))
	for i, c := range cases {
		params := make([]*resolved.ParamInst, len(c.Binders))
		fresh := make([]Value, len(c.Binders))
		for j, name := range c.Binders {
			params[j] = &resolved.ParamInst{Name: name}
			fresh[j] = &VNeutral{Head: &HVariable{Level: depth + j, Name: name}}
		}
		var body resolved.Exp
		if c.Body != nil {
			bodyVal, err := el.apply(c.Body, fresh)
			if err != nil {
				return nil, err
			}
			body, err = el.readback(depth+len(c.Binders), bodyVal)
			if err != nil {
				return nil, err
			}
		}
		out[i] = &resolved.Case{
			Pattern: resolved.Pattern{
				IsCopattern: c.IsCopattern,
				Name:        c.Name,
				Params:      resolved.TelescopeInst{Params: params},
			},
			Body: body,
		}
	}
	return out, nil
}

// readbackAt is type-directed read-back: when the value has codata type
// and is not literally a comatch, it is η-expanded into one applied
// destructor per destructor of the codata declaration, producing η-long
// terms.
func (el *Elaborator) readbackAt(depth int, ty Value, v Value) (resolved.Exp, error) {
	ty, err := el.force(ty)
	if err != nil {
		return nil, err
	}
	co, ok := ty.(*VCoTypCtor)
	if !ok {
		return el.readback(depth, v)
	}
	v, err = el.force(v)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(*VComatch); ok {
		return el.readback(depth, v)
	}
	if _, ok := v.(*VNeutral); !ok {
		return el.readback(depth, v)
	}
	codata, err := el.sig.LookupCodata(ast.Location{}, co.Name)
	if err != nil {
		return nil, err
	}

	var cases []*resolved.Case
	for _, dtor := range codata.Dtors {
		n := dtor.Params.Len()
		params := make([]*resolved.ParamInst, n)
		fresh := make([]Value, n)
		for j, p := range dtor.Params.Params {
			params[j] = &resolved.ParamInst{Name: p.Name}
			fresh[j] = &VNeutral{Head: &HVariable{Level: depth + j, Name: p.Name}}
		}
		observed, err := el.applyDot(dtor.Location, v, resolved.DotCallDestructor, dtor.Name, fresh)
		if err != nil {
			return nil, err
		}
		body, err := el.readback(depth+n, observed)
		if err != nil {
			return nil, err
		}
		cases = append(cases, &resolved.Case{
			Pattern: resolved.Pattern{
				IsCopattern: true,
				Name:        dtor.Name,
				Params:      resolved.TelescopeInst{Params: params},
			},
			Body: body,
		})
	}
	return &resolved.LocalComatch{Cases: cases}, nil
}
