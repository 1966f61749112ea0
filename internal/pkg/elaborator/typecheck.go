package elaborator

import (
	"errors"
	"fmt"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
	"github.com/polarity-lang/polarity/internal/pkg/ast/resolved"
	"github.com/polarity-lang/polarity/internal/pkg/common"
)

// check verifies that e has the expected type, which must be a forced
// value, and returns the annotated expression.
func (el *Elaborator) check(ctx *Context, e resolved.Exp, expected Value) (resolved.Exp, error) {
	switch e := e.(type) {
	case *resolved.Hole:
		return el.checkHole(ctx, e, expected)
	case *resolved.LocalMatch:
		out, _, err := el.checkLocalMatch(ctx, e, expected)
		return out, err
	case *resolved.LocalComatch:
		return el.checkLocalComatch(ctx, e, expected)
	case *resolved.LocalLet:
		out, _, err := el.inferLocalLet(ctx, e, expected)
		return out, err
	}
	out, inferred, err := el.infer(ctx, e)
	if err != nil {
		return nil, err
	}
	if err := el.convert(e.GetLocation(), ctx.Len(), expected, inferred); err != nil {
		return nil, err
	}
	return out, nil
}

// infer synthesizes the type of e and returns the annotated expression
// together with its type value.
func (el *Elaborator) infer(ctx *Context, e resolved.Exp) (resolved.Exp, Value, error) {
	switch e := e.(type) {
	case *resolved.Variable:
		_, typ := ctx.Lookup(e.Index)
		tyTerm, err := el.readback(ctx.Len(), typ)
		if err != nil {
			return nil, nil, err
		}
		return &resolved.Variable{Location: e.Location, Index: e.Index, Name: e.Name, Type: tyTerm}, typ, nil

	case *resolved.TypeUniv:
		// Type : Type. Inconsistent, and intentionally so.
		return &resolved.TypeUniv{Location: e.Location}, &VTypeUniv{}, nil

	case *resolved.Anno:
		typ, typV, err := el.checkIsType(ctx, e.Typ)
		if err != nil {
			return nil, nil, err
		}
		body, err := el.check(ctx, e.Exp, typV)
		if err != nil {
			return nil, nil, err
		}
		tyTerm, err := el.readback(ctx.Len(), typV)
		if err != nil {
			return nil, nil, err
		}
		return &resolved.Anno{Location: e.Location, Exp: body, Typ: typ, Type: tyTerm}, typV, nil

	case *resolved.TypCtor:
		data, err := el.sig.LookupData(e.Location, e.Name)
		if err != nil {
			return nil, nil, err
		}
		args, _, err := el.checkArgs(ctx, e.Location, e.Name, e.Args, data.Params)
		if err != nil {
			return nil, nil, err
		}
		return &resolved.TypCtor{Location: e.Location, Name: e.Name, Args: args, Type: &resolved.TypeUniv{}}, &VTypeUniv{}, nil

	case *resolved.CoTypCtor:
		codata, err := el.sig.LookupCodata(e.Location, e.Name)
		if err != nil {
			return nil, nil, err
		}
		args, _, err := el.checkArgs(ctx, e.Location, e.Name, e.Args, codata.Params)
		if err != nil {
			return nil, nil, err
		}
		return &resolved.CoTypCtor{Location: e.Location, Name: e.Name, Args: args, Type: &resolved.TypeUniv{}}, &VTypeUniv{}, nil

	case *resolved.Call:
		return el.inferCall(ctx, e)

	case *resolved.DotCall:
		return el.inferDotCall(ctx, e)

	case *resolved.Hole:
		// The type of the hole is itself unknown: allocate a second
		// metavariable at type Type to stand for it.
		_, tyVal := el.freshHole(ctx, resolved.Inserted, e.Location, &resolved.TypeUniv{})
		out, err := el.checkHole(ctx, e, tyVal)
		if err != nil {
			return nil, nil, err
		}
		return out, tyVal, nil

	case *resolved.NatLit:
		_, typV, err := el.infer(ctx, natCalls(e))
		if err != nil {
			return nil, nil, err
		}
		tyTerm, err := el.readback(ctx.Len(), typV)
		if err != nil {
			return nil, nil, err
		}
		return &resolved.NatLit{Location: e.Location, Value: e.Value, Zero: e.Zero, Succ: e.Succ, Type: tyTerm}, typV, nil

	case *resolved.LocalLet:
		return el.inferLocalLet(ctx, e, nil)

	case *resolved.LocalMatch:
		if e.Motive == nil {
			return nil, nil, common.Error{
				Kind:     common.KindCannotInfer,
				Location: e.Location,
				Message:  "cannot infer the type of a match without a motive",
			}
		}
		return el.checkLocalMatch(ctx, e, nil)

	case *resolved.LocalComatch:
		return nil, nil, common.Error{
			Kind:     common.KindCannotInfer,
			Location: e.Location,
			Message:  "cannot infer the type of a comatch; annotate the expected codata type",
		}
	}
	panic(common.SystemError{Message: fmt.Sprintf("invalid expression %T", e)})
}

// checkIsType checks e against the universe and evaluates it. A term
// of any other type in type position is a universe mismatch.
func (el *Elaborator) checkIsType(ctx *Context, e resolved.Exp) (resolved.Exp, Value, error) {
	out, err := el.check(ctx, e, &VTypeUniv{})
	if err != nil {
		var ce common.Error
		if errors.As(err, &ce) && ce.Kind == common.KindTypeMismatch {
			ce.Kind = common.KindUniverseMismatch
			return nil, nil, ce
		}
		return nil, nil, err
	}
	typV, err := el.eval(ctx.ToEnv(), out)
	if err != nil {
		return nil, nil, err
	}
	return out, typV, nil
}

func (el *Elaborator) inferCall(ctx *Context, e *resolved.Call) (resolved.Exp, Value, error) {
	var params resolved.Telescope
	var result func(argVals []Value) (Value, error)

	switch e.Kind {
	case resolved.CallConstructor:
		data, ctor, err := el.sig.LookupCtor(e.Location, e.Name)
		if err != nil {
			return nil, nil, err
		}
		params = ctor.Params
		result = func(argVals []Value) (Value, error) {
			idx, err := el.evalArgs(envOf(argVals), ctor.TypArgs)
			if err != nil {
				return nil, err
			}
			return &VTypCtor{Name: data.Name, Args: idx}, nil
		}
	case resolved.CallCodefinition:
		codef, err := el.sig.LookupCodef(e.Location, e.Name)
		if err != nil {
			return nil, nil, err
		}
		params = codef.Params
		result = func(argVals []Value) (Value, error) {
			idx, err := el.evalArgs(envOf(argVals), codef.Typ.Args)
			if err != nil {
				return nil, err
			}
			return &VCoTypCtor{Name: codef.Typ.Name, Args: idx}, nil
		}
	case resolved.CallLetBound:
		let, err := el.sig.LookupLet(e.Location, e.Name)
		if err != nil {
			return nil, nil, err
		}
		params = let.Params
		result = func(argVals []Value) (Value, error) {
			return el.eval(envOf(argVals), let.Typ)
		}
	default:
		panic(common.SystemError{Message: fmt.Sprintf("invalid call kind %v", e.Kind)})
	}

	args, argVals, err := el.checkArgs(ctx, e.Location, e.Name, e.Args, params)
	if err != nil {
		return nil, nil, err
	}
	typV, err := result(argVals)
	if err != nil {
		return nil, nil, err
	}
	tyTerm, err := el.readback(ctx.Len(), typV)
	if err != nil {
		return nil, nil, err
	}
	return &resolved.Call{Location: e.Location, Kind: e.Kind, Name: e.Name, Args: args, Type: tyTerm}, typV, nil
}

func (el *Elaborator) inferDotCall(ctx *Context, e *resolved.DotCall) (resolved.Exp, Value, error) {
	var params resolved.Telescope
	var selfTyp resolved.Exp
	var retTyp resolved.Exp

	switch e.Kind {
	case resolved.DotCallDestructor:
		_, dtor, err := el.sig.LookupDtor(e.Location, e.Name)
		if err != nil {
			return nil, nil, err
		}
		params, selfTyp, retTyp = dtor.Params, dtor.SelfTyp, dtor.Ret
	case resolved.DotCallDefinition:
		def, err := el.sig.LookupDef(e.Location, e.Name)
		if err != nil {
			return nil, nil, err
		}
		params, selfTyp, retTyp = def.Params, def.SelfTyp, def.Ret
	default:
		panic(common.SystemError{Message: fmt.Sprintf("invalid dot call kind %v", e.Kind)})
	}

	args, argVals, err := el.checkArgs(ctx, e.Location, e.Name, e.Args, params)
	if err != nil {
		return nil, nil, err
	}
	selfTyV, err := el.eval(envOf(argVals), selfTyp)
	if err != nil {
		return nil, nil, err
	}
	selfTyV, err = el.force(selfTyV)
	if err != nil {
		return nil, nil, err
	}
	exp, err := el.check(ctx, e.Exp, selfTyV)
	if err != nil {
		return nil, nil, err
	}
	expVal, err := el.eval(ctx.ToEnv(), exp)
	if err != nil {
		return nil, nil, err
	}
	typV, err := el.eval(envOf(argVals).Extend(expVal), retTyp)
	if err != nil {
		return nil, nil, err
	}
	tyTerm, err := el.readback(ctx.Len(), typV)
	if err != nil {
		return nil, nil, err
	}
	return &resolved.DotCall{Location: e.Location, Kind: e.Kind, Exp: exp, Name: e.Name, Args: args, Type: tyTerm}, typV, nil
}

// checkArgs checks an argument vector against a telescope. The
// telescope is dependent: the expected type of each argument is
// evaluated under the values of the preceding arguments.
func (el *Elaborator) checkArgs(ctx *Context, loc ast.Location, name ast.Identifier, args []resolved.Arg, params resolved.Telescope) ([]resolved.Arg, []Value, error) {
	if len(args) != params.Len() {
		return nil, nil, common.Error{
			Kind:     common.KindArityMismatch,
			Location: loc,
			Message:  fmt.Sprintf("`%s` expects %d arguments, got %d", name, params.Len(), len(args)),
		}
	}
	out := make([]resolved.Arg, len(args))
	argVals := make([]Value, 0, len(args))
	for i, arg := range args {
		expected, err := el.eval(envOf(argVals), params.Params[i].Typ)
		if err != nil {
			return nil, nil, err
		}
		expected, err = el.force(expected)
		if err != nil {
			return nil, nil, err
		}
		exp, err := el.check(ctx, arg.Exp, expected)
		if err != nil {
			return nil, nil, err
		}
		val, err := el.eval(ctx.ToEnv(), exp)
		if err != nil {
			return nil, nil, err
		}
		out[i] = resolved.Arg{Name: arg.Name, Exp: exp, Inserted: arg.Inserted}
		argVals = append(argVals, val)
	}
	return out, argVals, nil
}

// freshHole allocates a metavariable over the current context and
// returns its term and value form.
func (el *Elaborator) freshHole(ctx *Context, kind resolved.HoleKind, loc ast.Location, typTerm resolved.Exp) (*resolved.Hole, Value) {
	id := el.metas.Fresh(kind, loc, ctx.Names(), typTerm)
	n := ctx.Len()
	argTerms := make([]resolved.Exp, n)
	argVals := make([]Value, n)
	for lvl := 0; lvl < n; lvl++ {
		name, _ := ctx.LookupLvl(lvl)
		argTerms[lvl] = &resolved.Variable{Index: n - 1 - lvl, Name: name}
		argVals[lvl] = ctx.varValue(lvl)
	}
	hole := &resolved.Hole{Location: loc, Kind: kind, Meta: id, Args: argTerms, Type: typTerm}
	return hole, &VNeutral{Head: &HMeta{Meta: id, Args: argVals}}
}

func (el *Elaborator) checkHole(ctx *Context, e *resolved.Hole, expected Value) (resolved.Exp, error) {
	tyTerm, err := el.readback(ctx.Len(), expected)
	if err != nil {
		return nil, err
	}
	hole, _ := el.freshHole(ctx, e.Kind, e.Location, tyTerm)
	return hole, nil
}

// inferLocalLet handles a local let in both modes: with expected nil it
// infers, otherwise it checks the body against expected.
func (el *Elaborator) inferLocalLet(ctx *Context, e *resolved.LocalLet, expected Value) (resolved.Exp, Value, error) {
	var typ resolved.Exp
	var typV Value
	var bound resolved.Exp
	var err error

	if e.Typ != nil {
		typ, typV, err = el.checkIsType(ctx, e.Typ)
		if err != nil {
			return nil, nil, err
		}
		bound, err = el.check(ctx, e.Bound, typV)
		if err != nil {
			return nil, nil, err
		}
	} else {
		bound, typV, err = el.infer(ctx, e.Bound)
		if err != nil {
			return nil, nil, err
		}
		typ, err = el.readback(ctx.Len(), typV)
		if err != nil {
			return nil, nil, err
		}
	}
	boundVal, err := el.eval(ctx.ToEnv(), bound)
	if err != nil {
		return nil, nil, err
	}

	inner := ctx.Clone()
	inner.ExtendDef(e.Name, typV, boundVal)

	var body resolved.Exp
	var bodyTy Value
	if expected != nil {
		body, err = el.check(inner, e.Body, expected)
		bodyTy = expected
	} else {
		body, bodyTy, err = el.infer(inner, e.Body)
	}
	if err != nil {
		return nil, nil, err
	}
	tyTerm, err := el.readback(ctx.Len(), bodyTy)
	if err != nil {
		return nil, nil, err
	}
	return &resolved.LocalLet{
		Location: e.Location,
		Name:     e.Name,
		Typ:      typ,
		Bound:    bound,
		Body:     body,
		Type:     tyTerm,
	}, bodyTy, nil
}
