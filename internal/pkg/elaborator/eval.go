package elaborator

import (
	"fmt"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
	"github.com/polarity-lang/polarity/internal/pkg/ast/resolved"
	"github.com/polarity-lang/polarity/internal/pkg/common"
)

// step counts one reduction step against the configured budget. The
// evaluator does not enforce termination; the budget exists so tooling
// can bail out of diverging programs.
func (el *Elaborator) step(loc ast.Location) error {
	el.steps++
	if el.opts.StepBudget > 0 && el.steps > el.opts.StepBudget {
		return common.Error{
			Kind:     common.KindStepBudgetExhausted,
			Location: loc,
			Message:  fmt.Sprintf("evaluation exceeded %d steps", el.opts.StepBudget),
		}
	}
	return nil
}

// eval reflects a term into the semantic domain. Reduction proceeds
// leftmost-outermost on the head and never under binders: the result is
// a weak-head normal form.
func (el *Elaborator) eval(env *Env, e resolved.Exp) (Value, error) {
	if err := el.step(e.GetLocation()); err != nil {
		return nil, err
	}
	switch e := e.(type) {
	case *resolved.Variable:
		return env.Lookup(e.Index), nil
	case *resolved.TypeUniv:
		return &VTypeUniv{}, nil
	case *resolved.TypCtor:
		args, err := el.evalArgs(env, e.Args)
		if err != nil {
			return nil, err
		}
		return &VTypCtor{Name: e.Name, Args: args}, nil
	case *resolved.CoTypCtor:
		args, err := el.evalArgs(env, e.Args)
		if err != nil {
			return nil, err
		}
		return &VCoTypCtor{Name: e.Name, Args: args}, nil
	case *resolved.Call:
		return el.evalCall(env, e)
	case *resolved.DotCall:
		scrutinee, err := el.eval(env, e.Exp)
		if err != nil {
			return nil, err
		}
		args, err := el.evalArgs(env, e.Args)
		if err != nil {
			return nil, err
		}
		return el.applyDot(e.GetLocation(), scrutinee, e.Kind, e.Name, args)
	case *resolved.Anno:
		return el.eval(env, e.Exp)
	case *resolved.Hole:
		args, err := common.MapErr(func(a resolved.Exp) (Value, error) { return el.eval(env, a) }, e.Args)
		if err != nil {
			return nil, err
		}
		if entry := el.metas.Lookup(e.Meta); entry != nil && entry.Solved() {
			return el.eval(envOf(args), entry.Solution)
		}
		return &VNeutral{Head: &HMeta{Meta: e.Meta, Args: args}}, nil
	case *resolved.NatLit:
		var v Value = &VCtor{Name: e.Zero}
		for i := uint64(0); i < e.Value; i++ {
			v = &VCtor{Name: e.Succ, Args: []Value{v}}
		}
		return v, nil
	case *resolved.LocalLet:
		bound, err := el.eval(env, e.Bound)
		if err != nil {
			return nil, err
		}
		return el.eval(env.Extend(bound), e.Body)
	case *resolved.LocalMatch:
		scrutinee, err := el.eval(env, e.OnExp)
		if err != nil {
			return nil, err
		}
		cases := evalCases(env, e.Cases)
		return el.applyMatch(e.GetLocation(), scrutinee, e.Label, cases)
	case *resolved.LocalComatch:
		return &VComatch{Label: e.Label, Cases: evalCases(env, e.Cases)}, nil
	}
	panic(common.SystemError{Message: fmt.Sprintf("invalid expression %T", e)})
}

func (el *Elaborator) evalArgs(env *Env, args []resolved.Arg) ([]Value, error) {
	return common.MapErr(func(a resolved.Arg) (Value, error) { return el.eval(env, a.Exp) }, args)
}

func evalCases(env *Env, cases []*resolved.Case) []*VCase {
	return common.Map(func(c *resolved.Case) *VCase {
		vc := &VCase{
			Name:        c.Pattern.Name,
			IsCopattern: c.Pattern.IsCopattern,
			Binders: common.Map(func(p *resolved.ParamInst) ast.Identifier {
				return p.Name
			}, c.Pattern.Params.Params),
		}
		if c.Body != nil {
			vc.Body = &Closure{Env: env, Binders: c.Pattern.Params.Len(), Body: c.Body}
		}
		return vc
	}, cases)
}

func (el *Elaborator) evalCall(env *Env, e *resolved.Call) (Value, error) {
	args, err := el.evalArgs(env, e.Args)
	if err != nil {
		return nil, err
	}
	switch e.Kind {
	case resolved.CallConstructor:
		return &VCtor{Name: e.Name, Args: args}, nil
	case resolved.CallCodefinition:
		// A codefinition only computes once a destructor observes it.
		return &VNeutral{Head: &HCodef{Name: e.Name, Args: args}}, nil
	case resolved.CallLetBound:
		let, err := el.sig.LookupLet(e.GetLocation(), e.Name)
		if err != nil {
			return nil, err
		}
		if let.Transparent {
			// Nullary bodies are memoized for the lifetime of the
			// signature; applied lets are re-evaluated per call.
			if len(args) == 0 {
				if v, ok := el.letMemo[e.Name]; ok {
					return v, nil
				}
				v, err := el.eval(emptyEnv(), let.Body)
				if err != nil {
					return nil, err
				}
				el.letMemo[e.Name] = v
				return v, nil
			}
			return el.eval(envOf(args), let.Body)
		}
		return &VNeutral{Head: &HOpaque{Name: e.Name, Args: args}}, nil
	}
	panic(common.SystemError{Message: fmt.Sprintf("invalid call kind %v", e.Kind)})
}

// apply substitutes args for the binders of the closure and continues
// evaluating its body.
func (el *Elaborator) apply(cl *Closure, args []Value) (Value, error) {
	if len(args) != cl.Binders {
		panic(common.SystemError{Message: fmt.Sprintf("closure applied to %d arguments, expected %d", len(args), cl.Binders)})
	}
	return el.eval(cl.Env.Extend(args...), cl.Body)
}

func findCase(cases []*VCase, name ast.Identifier) *VCase {
	c, _ := common.Find(func(c *VCase) bool { return c.Name == name }, cases)
	return c
}

// applyDot eliminates a destructor projection or def call against an
// evaluated scrutinee.
func (el *Elaborator) applyDot(loc ast.Location, scrutinee Value, kind resolved.DotCallKind, name ast.Identifier, args []Value) (Value, error) {
	if err := el.step(loc); err != nil {
		return nil, err
	}
	scrutinee, err := el.force(scrutinee)
	if err != nil {
		return nil, err
	}
	stuck := func() Value {
		elim := &EDot{Kind: kind, Name: name, Args: args}
		if neu, ok := scrutinee.(*VNeutral); ok {
			return &VNeutral{Head: neu.Head, Spine: append(spineCopy(neu.Spine), elim)}
		}
		return &VNeutral{Head: &HStuck{Value: scrutinee}, Spine: []Elim{elim}}
	}

	switch v := scrutinee.(type) {
	case *VCtor:
		if kind != resolved.DotCallDefinition {
			panic(common.SystemError{Message: fmt.Sprintf("destructor `%s` applied to constructor value", name)})
		}
		def, err := el.sig.LookupDef(loc, name)
		if err != nil {
			return nil, err
		}
		c := findCase(evalCases(envOf(args), def.Cases), v.Name)
		if c == nil || c.Body == nil {
			return stuck(), nil
		}
		return el.apply(c.Body, v.Args)
	case *VComatch:
		if kind != resolved.DotCallDestructor {
			panic(common.SystemError{Message: fmt.Sprintf("definition `%s` applied to comatch value", name)})
		}
		c := findCase(v.Cases, name)
		if c == nil || c.Body == nil {
			return stuck(), nil
		}
		return el.apply(c.Body, args)
	case *VNeutral:
		if codef, ok := v.Head.(*HCodef); ok && len(v.Spine) == 0 && kind == resolved.DotCallDestructor {
			decl, err := el.sig.LookupCodef(loc, codef.Name)
			if err != nil {
				return nil, err
			}
			c := findCase(evalCases(envOf(codef.Args), decl.Cases), name)
			if c == nil || c.Body == nil {
				return stuck(), nil
			}
			return el.apply(c.Body, args)
		}
		return stuck(), nil
	}
	panic(common.SystemError{Message: fmt.Sprintf("dot call `%s` on non-eliminable value %v", name, scrutinee)})
}

// applyMatch eliminates a local match against an evaluated scrutinee.
func (el *Elaborator) applyMatch(loc ast.Location, scrutinee Value, label ast.Identifier, cases []*VCase) (Value, error) {
	if err := el.step(loc); err != nil {
		return nil, err
	}
	scrutinee, err := el.force(scrutinee)
	if err != nil {
		return nil, err
	}
	switch v := scrutinee.(type) {
	case *VCtor:
		c := findCase(cases, v.Name)
		if c == nil || c.Body == nil {
			return &VNeutral{
				Head:  &HStuck{Value: scrutinee},
				Spine: []Elim{&EMatch{Label: label, Cases: cases}},
			}, nil
		}
		return el.apply(c.Body, v.Args)
	case *VNeutral:
		return &VNeutral{
			Head:  v.Head,
			Spine: append(spineCopy(v.Spine), &EMatch{Label: label, Cases: cases}),
		}, nil
	}
	panic(common.SystemError{Message: fmt.Sprintf("match on non-data value %v", scrutinee)})
}

func (el *Elaborator) applyElim(loc ast.Location, v Value, elim Elim) (Value, error) {
	switch e := elim.(type) {
	case *EDot:
		return el.applyDot(loc, v, e.Kind, e.Name, e.Args)
	case *EMatch:
		return el.applyMatch(loc, v, e.Label, e.Cases)
	}
	panic(common.SystemError{Message: fmt.Sprintf("invalid elimination %T", elim)})
}

// force resolves solved metavariables at the head of a neutral: the
// stored solution is evaluated under the hole's context instantiation
// and the spine is re-applied. Any other value is returned unchanged.
func (el *Elaborator) force(v Value) (Value, error) {
	for {
		neu, ok := v.(*VNeutral)
		if !ok {
			return v, nil
		}
		meta, ok := neu.Head.(*HMeta)
		if !ok {
			return v, nil
		}
		entry := el.metas.Lookup(meta.Meta)
		if entry == nil || !entry.Solved() {
			return v, nil
		}
		head, err := el.eval(envOf(meta.Args), entry.Solution)
		if err != nil {
			return nil, err
		}
		for _, elim := range neu.Spine {
			head, err = el.applyElim(entry.Location, head, elim)
			if err != nil {
				return nil, err
			}
		}
		v = head
	}
}

func spineCopy(spine []Elim) []Elim {
	out := make([]Elim, len(spine))
	copy(out, spine)
	return out
}
