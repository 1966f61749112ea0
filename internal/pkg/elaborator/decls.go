package elaborator

import (
	"fmt"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
	"github.com/polarity-lang/polarity/internal/pkg/ast/resolved"
	"github.com/polarity-lang/polarity/internal/pkg/common"
)

// inferTelescope checks the parameter types of a telescope against the
// universe, binding each parameter before checking the next.
func (el *Elaborator) inferTelescope(ctx *Context, tele resolved.Telescope) (resolved.Telescope, error) {
	params := make([]*resolved.Param, tele.Len())
	for i, p := range tele.Params {
		typ, typV, err := el.checkIsType(ctx, p.Typ)
		if err != nil {
			return resolved.Telescope{}, err
		}
		typV, err = el.force(typV)
		if err != nil {
			return resolved.Telescope{}, err
		}
		ctx.Extend(p.Name, typV)
		params[i] = &resolved.Param{Location: p.Location, Name: p.Name, Typ: typ, Implicit: p.Implicit}
	}
	return resolved.Telescope{Params: params}, nil
}

// bindTelescope re-binds an already-checked telescope.
func (el *Elaborator) bindTelescope(ctx *Context, tele resolved.Telescope) error {
	for _, p := range tele.Params {
		typV, err := el.eval(ctx.ToEnv(), p.Typ)
		if err != nil {
			return err
		}
		ctx.Extend(p.Name, typV)
	}
	return nil
}

// scrutineeName keeps a user-supplied scrutinee name for diagnostics
// and invents one otherwise.
func scrutineeName(name ast.Identifier) ast.Identifier {
	if name.IsWildcard() {
		return "self"
	}
	return name
}

// checkDeclHead elaborates the signature part of a declaration: the
// telescopes and types everything else may refer to. The body stays
// untouched until checkDeclBody.
func (el *Elaborator) checkDeclHead(decl resolved.Decl) (resolved.Decl, error) {
	switch d := decl.(type) {
	case *resolved.Data:
		ctx := newContext()
		params, err := el.inferTelescope(ctx, d.Params)
		if err != nil {
			return nil, err
		}
		return &resolved.Data{Location: d.Location, Name: d.Name, Params: params, Ctors: d.Ctors}, nil

	case *resolved.Codata:
		ctx := newContext()
		params, err := el.inferTelescope(ctx, d.Params)
		if err != nil {
			return nil, err
		}
		return &resolved.Codata{Location: d.Location, Name: d.Name, Params: params, Dtors: d.Dtors}, nil

	case *resolved.Def:
		ctx := newContext()
		params, err := el.inferTelescope(ctx, d.Params)
		if err != nil {
			return nil, err
		}
		selfExp, _, err := el.infer(ctx, d.SelfTyp)
		if err != nil {
			return nil, err
		}
		selfTyp, ok := selfExp.(*resolved.TypCtor)
		if !ok {
			panic(common.SystemError{Message: "def scrutinee type is not a type constructor"})
		}
		selfV, err := el.eval(ctx.ToEnv(), selfTyp)
		if err != nil {
			return nil, err
		}
		selfName := scrutineeName(d.SelfName)
		ctx.Extend(selfName, selfV)
		ret, _, err := el.checkIsType(ctx, d.Ret)
		if err != nil {
			return nil, err
		}
		return &resolved.Def{
			Location: d.Location,
			Name:     d.Name,
			Params:   params,
			SelfName: selfName,
			SelfTyp:  selfTyp,
			Ret:      ret,
			Cases:    d.Cases,
		}, nil

	case *resolved.Codef:
		ctx := newContext()
		params, err := el.inferTelescope(ctx, d.Params)
		if err != nil {
			return nil, err
		}
		typExp, _, err := el.infer(ctx, d.Typ)
		if err != nil {
			return nil, err
		}
		typ, ok := typExp.(*resolved.CoTypCtor)
		if !ok {
			panic(common.SystemError{Message: "codef result type is not a codata type constructor"})
		}
		return &resolved.Codef{Location: d.Location, Name: d.Name, Params: params, Typ: typ, Cases: d.Cases}, nil

	case *resolved.Let:
		ctx := newContext()
		params, err := el.inferTelescope(ctx, d.Params)
		if err != nil {
			return nil, err
		}
		typ, _, err := el.checkIsType(ctx, d.Typ)
		if err != nil {
			return nil, err
		}
		return &resolved.Let{
			Location:    d.Location,
			Name:        d.Name,
			Params:      params,
			Typ:         typ,
			Body:        d.Body,
			Transparent: d.Transparent,
		}, nil

	case *resolved.Infix:
		if _, ok := el.sig.Lookup(d.Call); !ok {
			return nil, common.Error{
				Kind:     common.KindUndeclaredName,
				Location: d.Location,
				Message:  fmt.Sprintf("infix operator `%s` maps to undeclared `%s`", d.Symbol, d.Call),
			}
		}
		return d, nil
	}
	panic(common.SystemError{Message: fmt.Sprintf("invalid declaration %T", decl)})
}

// checkDeclBody elaborates the part of a declaration that its head made
// opaque: constructor and destructor telescopes, clause sets, and let
// bodies.
func (el *Elaborator) checkDeclBody(decl resolved.Decl) (resolved.Decl, error) {
	switch d := decl.(type) {
	case *resolved.Data:
		ctors := make([]*resolved.Ctor, len(d.Ctors))
		for i, ctor := range d.Ctors {
			out, err := el.checkCtor(d, ctor)
			if err != nil {
				return nil, err
			}
			ctors[i] = out
		}
		return &resolved.Data{Location: d.Location, Name: d.Name, Params: d.Params, Ctors: ctors}, nil

	case *resolved.Codata:
		dtors := make([]*resolved.Dtor, len(d.Dtors))
		for i, dtor := range d.Dtors {
			out, err := el.checkDtor(d, dtor)
			if err != nil {
				return nil, err
			}
			dtors[i] = out
		}
		return &resolved.Codata{Location: d.Location, Name: d.Name, Params: d.Params, Dtors: dtors}, nil

	case *resolved.Def:
		ctx := newContext()
		if err := el.bindTelescope(ctx, d.Params); err != nil {
			return nil, err
		}
		selfTyV, err := el.eval(ctx.ToEnv(), d.SelfTyp)
		if err != nil {
			return nil, err
		}
		selfTyV, err = el.force(selfTyV)
		if err != nil {
			return nil, err
		}
		tc, ok := selfTyV.(*VTypCtor)
		if !ok {
			panic(common.SystemError{Message: "def scrutinee type did not evaluate to a data type"})
		}
		data, err := el.sig.LookupData(d.Location, tc.Name)
		if err != nil {
			return nil, err
		}
		ctorNames := common.Map(func(c *resolved.Ctor) ast.Identifier { return c.Name }, data.Ctors)
		byName, err := checkClauseCoverage(d.Location, "constructor", ctorNames, d.Cases)
		if err != nil {
			return nil, err
		}
		paramEnv := ctx.ToEnv()
		expectedFor := func(ctorVal Value) (Value, error) {
			v, err := el.eval(paramEnv.Extend(ctorVal), d.Ret)
			if err != nil {
				return nil, err
			}
			return el.force(v)
		}
		var cases []*resolved.Case
		for _, ctor := range data.Ctors {
			c, err := el.checkMatchClause(ctx, ctor, tc, -1, byName[ctor.Name], expectedFor)
			if err != nil {
				return nil, err
			}
			cases = append(cases, c)
		}
		return &resolved.Def{
			Location: d.Location,
			Name:     d.Name,
			Params:   d.Params,
			SelfName: d.SelfName,
			SelfTyp:  d.SelfTyp,
			Ret:      d.Ret,
			Cases:    cases,
		}, nil

	case *resolved.Codef:
		ctx := newContext()
		if err := el.bindTelescope(ctx, d.Params); err != nil {
			return nil, err
		}
		onTyV, err := el.eval(ctx.ToEnv(), d.Typ)
		if err != nil {
			return nil, err
		}
		onTyV, err = el.force(onTyV)
		if err != nil {
			return nil, err
		}
		co, ok := onTyV.(*VCoTypCtor)
		if !ok {
			panic(common.SystemError{Message: "codef result type did not evaluate to a codata type"})
		}
		codata, err := el.sig.LookupCodata(d.Location, co.Name)
		if err != nil {
			return nil, err
		}
		dtorNames := common.Map(func(dt *resolved.Dtor) ast.Identifier { return dt.Name }, codata.Dtors)
		byName, err := checkClauseCoverage(d.Location, "destructor", dtorNames, d.Cases)
		if err != nil {
			return nil, err
		}
		selfArgs := make([]Value, ctx.Len())
		for lvl := 0; lvl < ctx.Len(); lvl++ {
			selfArgs[lvl] = ctx.varValue(lvl)
		}
		selfVal := &VNeutral{Head: &HCodef{Name: d.Name, Args: selfArgs}}
		cases, err := el.checkComatchClauses(ctx, codata, co, byName, selfVal)
		if err != nil {
			return nil, err
		}
		return &resolved.Codef{Location: d.Location, Name: d.Name, Params: d.Params, Typ: d.Typ, Cases: cases}, nil

	case *resolved.Let:
		ctx := newContext()
		if err := el.bindTelescope(ctx, d.Params); err != nil {
			return nil, err
		}
		typV, err := el.eval(ctx.ToEnv(), d.Typ)
		if err != nil {
			return nil, err
		}
		typV, err = el.force(typV)
		if err != nil {
			return nil, err
		}
		body, err := el.check(ctx, d.Body, typV)
		if err != nil {
			return nil, err
		}
		return &resolved.Let{
			Location:    d.Location,
			Name:        d.Name,
			Params:      d.Params,
			Typ:         d.Typ,
			Body:        body,
			Transparent: d.Transparent,
		}, nil

	case *resolved.Infix:
		return d, nil
	}
	panic(common.SystemError{Message: fmt.Sprintf("invalid declaration %T", decl)})
}

// checkCtor elaborates one constructor: its telescope, and its result
// indices against the parameters of the data type.
func (el *Elaborator) checkCtor(data *resolved.Data, ctor *resolved.Ctor) (*resolved.Ctor, error) {
	ctx := newContext()
	params, err := el.inferTelescope(ctx, ctor.Params)
	if err != nil {
		return nil, err
	}
	if len(ctor.TypArgs) != data.Params.Len() {
		return nil, common.Error{
			Kind:     common.KindArityMismatch,
			Location: ctor.Location,
			Extra:    []ast.Location{data.Location},
			Message: fmt.Sprintf("constructor `%s` returns %d indices, data type `%s` has %d parameters",
				ctor.Name, len(ctor.TypArgs), data.Name, data.Params.Len()),
		}
	}
	typArgs, _, err := el.checkArgs(ctx, ctor.Location, data.Name, ctor.TypArgs, data.Params)
	if err != nil {
		return nil, err
	}
	return &resolved.Ctor{Location: ctor.Location, Name: ctor.Name, Params: params, TypArgs: typArgs}, nil
}

// checkDtor elaborates one destructor: its telescope, its self type,
// and its return type under [params, self].
func (el *Elaborator) checkDtor(codata *resolved.Codata, dtor *resolved.Dtor) (*resolved.Dtor, error) {
	ctx := newContext()
	params, err := el.inferTelescope(ctx, dtor.Params)
	if err != nil {
		return nil, err
	}
	if dtor.SelfTyp.Name != codata.Name {
		return nil, common.Error{
			Kind:     common.KindTypeMismatch,
			Location: dtor.SelfTyp.Location,
			Message: fmt.Sprintf("destructor `%s` observes `%s`, expected `%s`",
				dtor.Name, dtor.SelfTyp.Name, codata.Name),
		}
	}
	selfExp, _, err := el.infer(ctx, dtor.SelfTyp)
	if err != nil {
		return nil, err
	}
	selfTyp := selfExp.(*resolved.CoTypCtor)
	selfV, err := el.eval(ctx.ToEnv(), selfTyp)
	if err != nil {
		return nil, err
	}
	selfName := scrutineeName(dtor.SelfName)
	ctx.Extend(selfName, selfV)
	ret, _, err := el.checkIsType(ctx, dtor.Ret)
	if err != nil {
		return nil, err
	}
	return &resolved.Dtor{
		Location: dtor.Location,
		Name:     dtor.Name,
		Params:   params,
		SelfName: selfName,
		SelfTyp:  selfTyp,
		Ret:      ret,
	}, nil
}
