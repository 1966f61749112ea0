package elaborator

import (
	"fmt"
	"strings"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
	"github.com/polarity-lang/polarity/internal/pkg/ast/resolved"
	"github.com/polarity-lang/polarity/internal/pkg/common"
)

// checkClauseCoverage verifies that a clause set has exactly one clause
// per declared constructor or destructor: no clause missing, none
// duplicated, none for an undeclared name.
func checkClauseCoverage(loc ast.Location, what string, declared []ast.Identifier, cases []*resolved.Case) (map[ast.Identifier]*resolved.Case, error) {
	byName := map[ast.Identifier]*resolved.Case{}
	for _, c := range cases {
		if prev, ok := byName[c.Pattern.Name]; ok {
			return nil, common.Error{
				Kind:     common.KindRedundantClause,
				Location: c.Location,
				Extra:    []ast.Location{prev.Location},
				Message:  fmt.Sprintf("duplicate clause for %s `%s`", what, c.Pattern.Name),
			}
		}
		byName[c.Pattern.Name] = c
	}
	var missing []string
	for _, name := range declared {
		if _, ok := byName[name]; !ok {
			missing = append(missing, string(name))
		}
	}
	if len(missing) > 0 {
		return nil, common.Error{
			Kind:     common.KindNonExhaustiveMatch,
			Location: loc,
			Message:  fmt.Sprintf("missing clauses for: %s", strings.Join(missing, ", ")),
		}
	}
	for _, c := range cases {
		known := false
		for _, name := range declared {
			if name == c.Pattern.Name {
				known = true
				break
			}
		}
		if !known {
			return nil, common.Error{
				Kind:     common.KindUnknownClause,
				Location: c.Location,
				Message:  fmt.Sprintf("`%s` is not a %s of the matched type", c.Pattern.Name, what),
			}
		}
	}
	return byName, nil
}

// checkLocalMatch elaborates a pattern match. With expected nil the
// match is being inferred, which requires a motive.
func (el *Elaborator) checkLocalMatch(ctx *Context, e *resolved.LocalMatch, expected Value) (resolved.Exp, Value, error) {
	onExp, onTyV, err := el.infer(ctx, e.OnExp)
	if err != nil {
		return nil, nil, err
	}
	onTyV, err = el.force(onTyV)
	if err != nil {
		return nil, nil, err
	}
	tc, ok := onTyV.(*VTypCtor)
	if !ok {
		return nil, nil, common.Error{
			Kind:     common.KindTypeMismatch,
			Location: e.OnExp.GetLocation(),
			Message:  fmt.Sprintf("matched expression must have a data type, its type is `%v`", onTyV),
		}
	}
	data, err := el.sig.LookupData(e.Location, tc.Name)
	if err != nil {
		return nil, nil, err
	}

	outerEnv := ctx.ToEnv()
	scrutVal, err := el.eval(outerEnv, onExp)
	if err != nil {
		return nil, nil, err
	}
	// When the scrutinee is a variable, matching refines it: within
	// each clause the variable is known to be the clause's constructor.
	scrutLvl := -1
	if neu, ok := scrutVal.(*VNeutral); ok && len(neu.Spine) == 0 {
		if v, ok := neu.Head.(*HVariable); ok {
			scrutLvl = v.Level
		}
	}

	var motiveOut *resolved.Motive
	var expectedFor func(ctorVal Value) (Value, error)

	if e.Motive != nil {
		mctx := ctx.Clone()
		mctx.Extend(e.Motive.Param, tc)
		ret, err := el.check(mctx, e.Motive.Ret, &VTypeUniv{})
		if err != nil {
			return nil, nil, err
		}
		motiveOut = &resolved.Motive{Location: e.Motive.Location, Param: e.Motive.Param, Ret: ret}
		instV, err := el.eval(outerEnv.Extend(scrutVal), ret)
		if err != nil {
			return nil, nil, err
		}
		if expected != nil {
			if err := el.convert(e.Location, ctx.Len(), expected, instV); err != nil {
				return nil, nil, err
			}
		} else {
			expected = instV
		}
		expectedFor = func(ctorVal Value) (Value, error) {
			v, err := el.eval(outerEnv.Extend(ctorVal), ret)
			if err != nil {
				return nil, err
			}
			return el.force(v)
		}
	} else {
		if expected == nil {
			return nil, nil, common.Error{
				Kind:     common.KindCannotInfer,
				Location: e.Location,
				Message:  "cannot infer the type of a match without a motive",
			}
		}
		t := expected
		expectedFor = func(Value) (Value, error) { return t, nil }
	}

	ctorNames := common.Map(func(c *resolved.Ctor) ast.Identifier { return c.Name }, data.Ctors)
	byName, err := checkClauseCoverage(e.Location, "constructor", ctorNames, e.Cases)
	if err != nil {
		return nil, nil, err
	}

	var cases []*resolved.Case
	for _, ctor := range data.Ctors {
		c, err := el.checkMatchClause(ctx, ctor, tc, scrutLvl, byName[ctor.Name], expectedFor)
		if err != nil {
			return nil, nil, err
		}
		cases = append(cases, c)
	}

	tyTerm, err := el.readback(ctx.Len(), expected)
	if err != nil {
		return nil, nil, err
	}
	return &resolved.LocalMatch{
		Location: e.Location,
		Label:    e.Label,
		OnExp:    onExp,
		Motive:   motiveOut,
		Cases:    cases,
		Type:     tyTerm,
	}, expected, nil
}

// checkMatchClause elaborates a single clause of a match or def. The
// constructor's result indices are unified with the indices of the
// scrutinee's type; the resulting substitution refines the clause's
// context and expected type, or discharges an absurd clause.
func (el *Elaborator) checkMatchClause(ctx *Context, ctor *resolved.Ctor, onTyV *VTypCtor, scrutLvl int, clause *resolved.Case, expectedFor func(Value) (Value, error)) (*resolved.Case, error) {
	bctx := ctx.Clone()
	if clause.Pattern.Params.Len() != ctor.Params.Len() {
		return nil, common.Error{
			Kind:     common.KindArityMismatch,
			Location: clause.Location,
			Extra:    []ast.Location{ctor.Location},
			Message: fmt.Sprintf("constructor `%s` has %d parameters, pattern binds %d",
				ctor.Name, ctor.Params.Len(), clause.Pattern.Params.Len()),
		}
	}

	var patVals []Value
	var lvls []int
	for j, p := range ctor.Params.Params {
		tyV, err := el.eval(envOf(patVals), p.Typ)
		if err != nil {
			return nil, err
		}
		name := clause.Pattern.Params.Params[j].Name
		if name.IsWildcard() {
			name = p.Name
		}
		lvl := bctx.Extend(name, tyV)
		lvls = append(lvls, lvl)
		patVals = append(patVals, bctx.varValue(lvl))
	}
	depth := bctx.Len()

	defArgVals, err := el.evalArgs(envOf(patVals), ctor.TypArgs)
	if err != nil {
		return nil, err
	}
	defArgs, err := common.MapErr(func(v Value) (resolved.Exp, error) { return el.readback(depth, v) }, defArgVals)
	if err != nil {
		return nil, err
	}
	onArgs, err := common.MapErr(func(v Value) (resolved.Exp, error) { return el.readback(depth, v) }, onTyV.Args)
	if err != nil {
		return nil, err
	}

	dec, err := el.unifyIndices(clause.Location, depth, defArgs, onArgs)
	if err != nil {
		return nil, err
	}

	if clause.IsAbsurd() {
		if dec.Yes {
			return nil, common.Error{
				Kind:     common.KindPatternNotAbsurd,
				Location: clause.Location,
				Message:  fmt.Sprintf("clause `%s` is marked absurd but its indices admit an inhabitant", ctor.Name),
			}
		}
		return el.annotateClause(bctx, depth, clause, lvls)
	}
	if !dec.Yes {
		return nil, common.Error{
			Kind:     common.KindPatternIsAbsurd,
			Location: clause.Location,
			Message:  fmt.Sprintf("the indices of clause `%s` are contradictory; mark the clause absurd", ctor.Name),
		}
	}

	sub := dec.Subst
	if scrutLvl >= 0 {
		if _, ok := sub[scrutLvl]; !ok {
			ctorArgs := make([]resolved.Arg, len(lvls))
			for j, lvl := range lvls {
				name, _ := bctx.LookupLvl(lvl)
				ctorArgs[j] = resolved.Arg{Exp: &resolved.Variable{Index: depth - 1 - lvl, Name: name}}
			}
			ctorTerm := resolved.SubstLvls(&resolved.Call{
				Kind: resolved.CallConstructor,
				Name: ctor.Name,
				Args: ctorArgs,
			}, depth, sub)
			single := resolved.LvlSubst{scrutLvl: ctorTerm}
			for k, v := range sub {
				sub[k] = resolved.SubstLvls(v, depth, single)
			}
			sub[scrutLvl] = ctorTerm
		}
	}

	if err := el.refineContext(bctx, depth, sub); err != nil {
		return nil, err
	}

	ctorVal := &VCtor{Name: ctor.Name, Args: common.Map(func(lvl int) Value { return bctx.varValue(lvl) }, lvls)}
	expectedV, err := expectedFor(ctorVal)
	if err != nil {
		return nil, err
	}
	expV, err := el.refineValue(bctx, depth, expectedV, sub)
	if err != nil {
		return nil, err
	}

	body, err := el.check(bctx, clause.Body, expV)
	if err != nil {
		return nil, err
	}

	out, err := el.annotateClause(bctx, depth, clause, lvls)
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}

// refineContext applies a refining substitution to the clause context:
// every assigned binder gets its value recorded, and every binder type
// is rewritten under the substitution.
func (el *Elaborator) refineContext(bctx *Context, depth int, sub resolved.LvlSubst) error {
	if len(sub) == 0 {
		return nil
	}
	env0 := bctx.ToEnv()
	for lvl, term := range sub {
		v, err := el.eval(env0, term)
		if err != nil {
			return err
		}
		bctx.SetValLvl(lvl, v)
	}
	for lvl := 0; lvl < depth; lvl++ {
		_, tyV := bctx.LookupLvl(lvl)
		refined, err := el.refineValue(bctx, depth, tyV, sub)
		if err != nil {
			return err
		}
		bctx.SetTypeLvl(lvl, refined)
	}
	return nil
}

// refineValue pushes a refining substitution through a value by a
// read-back/substitute/re-evaluate round trip.
func (el *Elaborator) refineValue(bctx *Context, depth int, v Value, sub resolved.LvlSubst) (Value, error) {
	if len(sub) == 0 {
		return el.force(v)
	}
	term, err := el.readback(depth, v)
	if err != nil {
		return nil, err
	}
	term = resolved.SubstLvls(term, depth, sub)
	out, err := el.eval(bctx.ToEnv(), term)
	if err != nil {
		return nil, err
	}
	return el.force(out)
}

// annotateClause rebuilds the clause head with the (refined) types of
// its binders.
func (el *Elaborator) annotateClause(bctx *Context, depth int, clause *resolved.Case, lvls []int) (*resolved.Case, error) {
	params := make([]*resolved.ParamInst, len(lvls))
	for j, lvl := range lvls {
		name, tyV := bctx.LookupLvl(lvl)
		tyTerm, err := el.readback(depth, tyV)
		if err != nil {
			return nil, err
		}
		orig := clause.Pattern.Params.Params[j]
		params[j] = &resolved.ParamInst{Location: orig.Location, Name: name, Typ: tyTerm}
	}
	return &resolved.Case{
		Location: clause.Location,
		Pattern: resolved.Pattern{
			Location:    clause.Pattern.Location,
			IsCopattern: clause.Pattern.IsCopattern,
			Name:        clause.Pattern.Name,
			Params:      resolved.TelescopeInst{Params: params},
		},
	}, nil
}

// checkLocalComatch elaborates a copattern match against its expected
// codata type.
func (el *Elaborator) checkLocalComatch(ctx *Context, e *resolved.LocalComatch, expected Value) (resolved.Exp, error) {
	expected, err := el.force(expected)
	if err != nil {
		return nil, err
	}
	co, ok := expected.(*VCoTypCtor)
	if !ok {
		return nil, common.Error{
			Kind:     common.KindTypeMismatch,
			Location: e.Location,
			Message:  fmt.Sprintf("a comatch produces a codata value, but `%v` was expected", expected),
		}
	}
	codata, err := el.sig.LookupCodata(e.Location, co.Name)
	if err != nil {
		return nil, err
	}

	dtorNames := common.Map(func(d *resolved.Dtor) ast.Identifier { return d.Name }, codata.Dtors)
	byName, err := checkClauseCoverage(e.Location, "destructor", dtorNames, e.Cases)
	if err != nil {
		return nil, err
	}

	cases, err := el.checkComatchClauses(ctx, codata, co, byName, nil)
	if err != nil {
		return nil, err
	}

	tyTerm, err := el.readback(ctx.Len(), expected)
	if err != nil {
		return nil, err
	}
	return &resolved.LocalComatch{Location: e.Location, Label: e.Label, Cases: cases, Type: tyTerm}, nil
}

// usesSelf reports whether the destructor's return type mentions the
// observed value itself.
func usesSelf(dtor *resolved.Dtor) bool {
	n := dtor.Params.Len()
	return resolved.OccursLvl(dtor.Ret, n+1, n)
}

// checkComatchClauses elaborates the clauses of a comatch or codef
// against the destructor set of the codata type. selfVal is the value
// the destructors' self parameter stands for; it is nil for a local
// comatch, which cannot be observed by destructors whose return type
// mentions self.
func (el *Elaborator) checkComatchClauses(ctx *Context, codata *resolved.Codata, onTyV *VCoTypCtor, byName map[ast.Identifier]*resolved.Case, selfVal Value) ([]*resolved.Case, error) {
	var out []*resolved.Case
	for _, dtor := range codata.Dtors {
		c, err := el.checkComatchClause(ctx, dtor, onTyV, byName[dtor.Name], selfVal)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (el *Elaborator) checkComatchClause(ctx *Context, dtor *resolved.Dtor, onTyV *VCoTypCtor, clause *resolved.Case, selfVal Value) (*resolved.Case, error) {
	bctx := ctx.Clone()
	if clause.Pattern.Params.Len() != dtor.Params.Len() {
		return nil, common.Error{
			Kind:     common.KindArityMismatch,
			Location: clause.Location,
			Extra:    []ast.Location{dtor.Location},
			Message: fmt.Sprintf("destructor `%s` has %d parameters, copattern binds %d",
				dtor.Name, dtor.Params.Len(), clause.Pattern.Params.Len()),
		}
	}

	var patVals []Value
	var lvls []int
	for j, p := range dtor.Params.Params {
		tyV, err := el.eval(envOf(patVals), p.Typ)
		if err != nil {
			return nil, err
		}
		name := clause.Pattern.Params.Params[j].Name
		if name.IsWildcard() {
			name = p.Name
		}
		lvl := bctx.Extend(name, tyV)
		lvls = append(lvls, lvl)
		patVals = append(patVals, bctx.varValue(lvl))
	}
	depth := bctx.Len()

	defArgVals, err := el.evalArgs(envOf(patVals), dtor.SelfTyp.Args)
	if err != nil {
		return nil, err
	}
	defArgs, err := common.MapErr(func(v Value) (resolved.Exp, error) { return el.readback(depth, v) }, defArgVals)
	if err != nil {
		return nil, err
	}
	onArgs, err := common.MapErr(func(v Value) (resolved.Exp, error) { return el.readback(depth, v) }, onTyV.Args)
	if err != nil {
		return nil, err
	}

	dec, err := el.unifyIndices(clause.Location, depth, defArgs, onArgs)
	if err != nil {
		return nil, err
	}

	if clause.IsAbsurd() {
		if dec.Yes {
			return nil, common.Error{
				Kind:     common.KindPatternNotAbsurd,
				Location: clause.Location,
				Message:  fmt.Sprintf("cocase `%s` is marked absurd but its indices admit an observation", dtor.Name),
			}
		}
		return el.annotateClause(bctx, depth, clause, lvls)
	}
	if !dec.Yes {
		return nil, common.Error{
			Kind:     common.KindPatternIsAbsurd,
			Location: clause.Location,
			Message:  fmt.Sprintf("the indices of cocase `%s` are contradictory; mark the cocase absurd", dtor.Name),
		}
	}

	if selfVal == nil && usesSelf(dtor) {
		return nil, common.Error{
			Kind:     common.KindTypeMismatch,
			Location: clause.Location,
			Extra:    []ast.Location{dtor.Location},
			Message:  fmt.Sprintf("destructor `%s` mentions the observed value in its return type; a local comatch cannot produce it", dtor.Name),
		}
	}

	if err := el.refineContext(bctx, depth, dec.Subst); err != nil {
		return nil, err
	}

	self := selfVal
	if self == nil {
		// Placeholder for the unused self slot of the return type's
		// environment; usesSelf guarantees it is never consulted.
		self = &VNeutral{Head: &HVariable{Level: depth, Name: dtor.SelfName}}
	}
	refinedPatVals := common.Map(func(lvl int) Value { return bctx.varValue(lvl) }, lvls)
	expectedV, err := el.eval(envOf(refinedPatVals).Extend(self), dtor.Ret)
	if err != nil {
		return nil, err
	}
	expV, err := el.refineValue(bctx, depth, expectedV, dec.Subst)
	if err != nil {
		return nil, err
	}

	body, err := el.check(bctx, clause.Body, expV)
	if err != nil {
		return nil, err
	}

	out, err := el.annotateClause(bctx, depth, clause, lvls)
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}
