package resolved

import (
	"fmt"

	"github.com/polarity-lang/polarity/internal/pkg/common"
)

// The traversals below share one structural walker. All of them are
// defined on terms; values never need shifting because they are indexed
// by De Bruijn levels.

type varFunc func(v *Variable, binders int) (Exp, error)

type holeFunc func(h *Hole, binders int) (Exp, error)

func keepVar(v *Variable, _ int) (Exp, error) { return v, nil }

func keepHole(h *Hole, _ int) (Exp, error) { return h, nil }

// mapExp rebuilds e bottom-up. onVar is called for every variable with
// the number of binders crossed between the root and the occurrence;
// onHole likewise for every hole (after its argument list has been
// rebuilt). Either callback may return a replacement expression.
func mapExp(e Exp, binders int, onVar varFunc, onHole holeFunc) (Exp, error) {
	if e == nil {
		return nil, nil
	}
	mapTyp := func(t Exp) (Exp, error) {
		if t == nil {
			return nil, nil
		}
		return mapExp(t, binders, onVar, onHole)
	}
	switch e := e.(type) {
	case *Variable:
		return onVar(e, binders)
	case *TypeUniv:
		return e, nil
	case *TypCtor:
		args, err := mapArgs(e.Args, binders, onVar, onHole)
		if err != nil {
			return nil, err
		}
		typ, err := mapTyp(e.Type)
		if err != nil {
			return nil, err
		}
		return &TypCtor{Location: e.Location, Name: e.Name, Args: args, Type: typ}, nil
	case *CoTypCtor:
		args, err := mapArgs(e.Args, binders, onVar, onHole)
		if err != nil {
			return nil, err
		}
		typ, err := mapTyp(e.Type)
		if err != nil {
			return nil, err
		}
		return &CoTypCtor{Location: e.Location, Name: e.Name, Args: args, Type: typ}, nil
	case *Call:
		args, err := mapArgs(e.Args, binders, onVar, onHole)
		if err != nil {
			return nil, err
		}
		typ, err := mapTyp(e.Type)
		if err != nil {
			return nil, err
		}
		return &Call{Location: e.Location, Kind: e.Kind, Name: e.Name, Args: args, Type: typ}, nil
	case *DotCall:
		exp, err := mapExp(e.Exp, binders, onVar, onHole)
		if err != nil {
			return nil, err
		}
		args, err := mapArgs(e.Args, binders, onVar, onHole)
		if err != nil {
			return nil, err
		}
		typ, err := mapTyp(e.Type)
		if err != nil {
			return nil, err
		}
		return &DotCall{Location: e.Location, Kind: e.Kind, Exp: exp, Name: e.Name, Args: args, Type: typ}, nil
	case *Anno:
		exp, err := mapExp(e.Exp, binders, onVar, onHole)
		if err != nil {
			return nil, err
		}
		ty, err := mapExp(e.Typ, binders, onVar, onHole)
		if err != nil {
			return nil, err
		}
		typ, err := mapTyp(e.Type)
		if err != nil {
			return nil, err
		}
		return &Anno{Location: e.Location, Exp: exp, Typ: ty, Type: typ}, nil
	case *Hole:
		args := make([]Exp, len(e.Args))
		for i, a := range e.Args {
			r, err := mapExp(a, binders, onVar, onHole)
			if err != nil {
				return nil, err
			}
			args[i] = r
		}
		typ, err := mapTyp(e.Type)
		if err != nil {
			return nil, err
		}
		return onHole(&Hole{Location: e.Location, Kind: e.Kind, Meta: e.Meta, Args: args, Type: typ}, binders)
	case *NatLit:
		return e, nil
	case *LocalLet:
		ty, err := mapExp(e.Typ, binders, onVar, onHole)
		if err != nil {
			return nil, err
		}
		bound, err := mapExp(e.Bound, binders, onVar, onHole)
		if err != nil {
			return nil, err
		}
		body, err := mapExp(e.Body, binders+1, onVar, onHole)
		if err != nil {
			return nil, err
		}
		typ, err := mapTyp(e.Type)
		if err != nil {
			return nil, err
		}
		return &LocalLet{Location: e.Location, Name: e.Name, Typ: ty, Bound: bound, Body: body, Type: typ}, nil
	case *LocalMatch:
		onExp, err := mapExp(e.OnExp, binders, onVar, onHole)
		if err != nil {
			return nil, err
		}
		motive, err := mapMotive(e.Motive, binders, onVar, onHole)
		if err != nil {
			return nil, err
		}
		cases, err := mapCases(e.Cases, binders, onVar, onHole)
		if err != nil {
			return nil, err
		}
		typ, err := mapTyp(e.Type)
		if err != nil {
			return nil, err
		}
		return &LocalMatch{Location: e.Location, Label: e.Label, OnExp: onExp, Motive: motive, Cases: cases, Type: typ}, nil
	case *LocalComatch:
		cases, err := mapCases(e.Cases, binders, onVar, onHole)
		if err != nil {
			return nil, err
		}
		typ, err := mapTyp(e.Type)
		if err != nil {
			return nil, err
		}
		return &LocalComatch{Location: e.Location, Label: e.Label, Cases: cases, Type: typ}, nil
	}
	panic(common.SystemError{Message: fmt.Sprintf("invalid expression %T", e)})
}

func mapArgs(args []Arg, binders int, onVar varFunc, onHole holeFunc) ([]Arg, error) {
	out := make([]Arg, len(args))
	for i, a := range args {
		exp, err := mapExp(a.Exp, binders, onVar, onHole)
		if err != nil {
			return nil, err
		}
		out[i] = Arg{Name: a.Name, Exp: exp, Inserted: a.Inserted}
	}
	return out, nil
}

func mapMotive(m *Motive, binders int, onVar varFunc, onHole holeFunc) (*Motive, error) {
	if m == nil {
		return nil, nil
	}
	ret, err := mapExp(m.Ret, binders+1, onVar, onHole)
	if err != nil {
		return nil, err
	}
	return &Motive{Location: m.Location, Param: m.Param, Ret: ret}, nil
}

func mapCases(cases []*Case, binders int, onVar varFunc, onHole holeFunc) ([]*Case, error) {
	out := make([]*Case, len(cases))
	for i, c := range cases {
		params := make([]*ParamInst, len(c.Pattern.Params.Params))
		for j, p := range c.Pattern.Params.Params {
			typ, err := mapExp(p.Typ, binders+j, onVar, onHole)
			if err != nil {
				return nil, err
			}
			params[j] = &ParamInst{Location: p.Location, Name: p.Name, Typ: typ}
		}
		var body Exp
		if c.Body != nil {
			var err error
			body, err = mapExp(c.Body, binders+len(params), onVar, onHole)
			if err != nil {
				return nil, err
			}
		}
		out[i] = &Case{
			Location: c.Location,
			Pattern: Pattern{
				Location:    c.Pattern.Location,
				IsCopattern: c.Pattern.IsCopattern,
				Name:        c.Pattern.Name,
				Params:      TelescopeInst{Params: params},
			},
			Body: body,
		}
	}
	return out, nil
}

// Shift adds by to every free variable index of e.
func Shift(e Exp, by int) Exp {
	if by == 0 {
		return e
	}
	out, err := mapExp(e, 0, func(v *Variable, k int) (Exp, error) {
		if v.Index < k {
			return v, nil
		}
		idx := v.Index + by
		if idx < k {
			panic(common.SystemError{Message: fmt.Sprintf("shift underflow on %v", v)})
		}
		return &Variable{Location: v.Location, Index: idx, Name: v.Name, Type: v.Type}, nil
	}, keepHole)
	if err != nil {
		panic(common.SystemError{Message: err.Error()})
	}
	return out
}

// LvlSubst maps De Bruijn levels to replacement terms. Both the levels
// and the replacements are relative to one fixed context depth.
type LvlSubst map[int]Exp

// SubstLvls replaces every free variable of e that refers to a level in
// sub. e and the replacement terms live at context depth depth; the
// context itself is not strengthened.
func SubstLvls(e Exp, depth int, sub LvlSubst) Exp {
	if len(sub) == 0 {
		return e
	}
	out, err := mapExp(e, 0, func(v *Variable, k int) (Exp, error) {
		if v.Index < k {
			return v, nil
		}
		lvl := depth + k - 1 - v.Index
		if repl, ok := sub[lvl]; ok {
			return Shift(repl, k), nil
		}
		return v, nil
	}, keepHole)
	if err != nil {
		panic(common.SystemError{Message: err.Error()})
	}
	return out
}

var errFound = fmt.Errorf("found")

// OccursLvl reports whether e (at context depth depth) mentions the
// variable bound at level lvl.
func OccursLvl(e Exp, depth int, lvl int) bool {
	_, err := mapExp(e, 0, func(v *Variable, k int) (Exp, error) {
		if v.Index >= k && depth+k-1-v.Index == lvl {
			return nil, errFound
		}
		return v, nil
	}, keepHole)
	return err == errFound
}

// OccursHole reports whether e contains an occurrence of the
// metavariable id.
func OccursHole(e Exp, id MetaID) bool {
	_, err := mapExp(e, 0, keepVar, func(h *Hole, _ int) (Exp, error) {
		if h.Meta == id {
			return nil, errFound
		}
		return h, nil
	})
	return err == errFound
}

// MaxFreeIndex returns the largest free variable index of e, or -1 if e
// is closed.
func MaxFreeIndex(e Exp) int {
	max := -1
	_, err := mapExp(e, 0, func(v *Variable, k int) (Exp, error) {
		if v.Index >= k && v.Index-k > max {
			max = v.Index - k
		}
		return v, nil
	}, keepHole)
	if err != nil {
		panic(common.SystemError{Message: err.Error()})
	}
	return max
}

// UnboundLevelError reports a free variable that escaped the renaming
// of AbstractLevels: the candidate solution of a metavariable depends
// on a variable outside the metavariable's context.
type UnboundLevelError struct {
	Var *Variable
}

func (e UnboundLevelError) Error() string {
	return fmt.Sprintf("variable %s escapes its scope", e.Var.Name)
}

// AbstractLevels renames the free variables of e (at context depth
// depth) into a target context of depth targetDepth according to ren,
// which maps source levels to target levels. A free variable whose
// level is not in ren yields an UnboundLevelError.
func AbstractLevels(e Exp, depth int, ren map[int]int, targetDepth int) (Exp, error) {
	return mapExp(e, 0, func(v *Variable, k int) (Exp, error) {
		if v.Index < k {
			return v, nil
		}
		lvl := depth + k - 1 - v.Index
		pos, ok := ren[lvl]
		if !ok {
			return nil, UnboundLevelError{Var: v}
		}
		return &Variable{
			Location: v.Location,
			Index:    targetDepth + k - 1 - pos,
			Name:     v.Name,
		}, nil
	}, keepHole)
}

// Instantiate substitutes args for the free variables of sol. sol is a
// term over a context of exactly len(args) binders; args[i] is the
// replacement for the variable bound at level i and lives at the
// caller's depth.
func Instantiate(sol Exp, args []Exp) Exp {
	n := len(args)
	out, err := mapExp(sol, 0, func(v *Variable, k int) (Exp, error) {
		if v.Index < k {
			return v, nil
		}
		lvl := n + k - 1 - v.Index
		if lvl < 0 || lvl >= n {
			panic(common.SystemError{Message: fmt.Sprintf("metavariable solution mentions out-of-scope %v", v)})
		}
		return Shift(args[lvl], k), nil
	}, keepHole)
	if err != nil {
		panic(common.SystemError{Message: err.Error()})
	}
	return out
}

// MapHoles rebuilds e, replacing holes by whatever f returns for them.
// The argument lists of the holes handed to f are already rebuilt.
func MapHoles(e Exp, f func(h *Hole) (Exp, error)) (Exp, error) {
	return mapExp(e, 0, keepVar, func(h *Hole, _ int) (Exp, error) {
		return f(h)
	})
}

// ArgExps projects the expressions out of an argument vector.
func ArgExps(args []Arg) []Exp {
	out := make([]Exp, len(args))
	for i, a := range args {
		out[i] = a.Exp
	}
	return out
}
