package elaborator

import (
	"fmt"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
	"github.com/polarity-lang/polarity/internal/pkg/ast/resolved"
	"github.com/polarity-lang/polarity/internal/pkg/common"
)

// Dec is the outcome of index unification: either a refining
// substitution for the clause's context, or a contradiction that makes
// an absurd clause well-typed.
type Dec struct {
	Yes   bool
	Subst resolved.LvlSubst
}

type equation struct {
	lhs resolved.Exp
	rhs resolved.Exp
}

// indexUnifier is a first-order syntactic unifier over constructor
// terms. It works on datatype indices only: constructors are injective,
// distinct constructors of the same type clash, calls and dot calls with
// equal heads are decomposed argument by argument, and any other
// equation between non-constructor terms cannot be decided. Every step strictly
// shrinks the multiset of term sizes or the number of distinct
// variables, so the loop terminates.
type indexUnifier struct {
	loc   ast.Location
	depth int
	unif  resolved.LvlSubst
	queue []equation
}

// unifyIndices solves the equations between the outer indices of a
// scrutinee's type and the result indices of a clause's constructor.
func (el *Elaborator) unifyIndices(loc ast.Location, depth int, lhs, rhs []resolved.Exp) (Dec, error) {
	if len(lhs) != len(rhs) {
		panic(common.SystemError{Message: "index vectors of unequal length"})
	}
	u := &indexUnifier{loc: loc, depth: depth, unif: resolved.LvlSubst{}}
	for i := range lhs {
		u.push(lhs[i], rhs[i])
	}
	for len(u.queue) > 0 {
		eqn := u.queue[len(u.queue)-1]
		u.queue = u.queue[:len(u.queue)-1]
		dec, err := u.unifyEqn(eqn)
		if err != nil {
			return Dec{}, err
		}
		if !dec {
			return Dec{Yes: false}, nil
		}
	}
	return Dec{Yes: true, Subst: u.unif}, nil
}

func (u *indexUnifier) push(lhs, rhs resolved.Exp) {
	u.queue = append(u.queue, equation{lhs: lhs, rhs: rhs})
}

func (u *indexUnifier) pushArgs(lhs, rhs []resolved.Arg) {
	if len(lhs) != len(rhs) {
		panic(common.SystemError{Message: "argument vectors of unequal length"})
	}
	for i := range lhs {
		u.push(lhs[i].Exp, rhs[i].Exp)
	}
}

func stripAnno(e resolved.Exp) resolved.Exp {
	for {
		if a, ok := e.(*resolved.Anno); ok {
			e = a.Exp
			continue
		}
		return e
	}
}

// natCalls desugars a numeral into its constructor spine so that
// literals unify against constructor terms.
func natCalls(n *resolved.NatLit) resolved.Exp {
	var e resolved.Exp = &resolved.Call{Location: n.Location, Kind: resolved.CallConstructor, Name: n.Zero}
	for i := uint64(0); i < n.Value; i++ {
		e = &resolved.Call{
			Location: n.Location,
			Kind:     resolved.CallConstructor,
			Name:     n.Succ,
			Args:     []resolved.Arg{{Exp: e}},
		}
	}
	return e
}

func (u *indexUnifier) unifyEqn(eqn equation) (bool, error) {
	lhs := stripAnno(eqn.lhs)
	rhs := stripAnno(eqn.rhs)
	if n, ok := lhs.(*resolved.NatLit); ok {
		lhs = natCalls(n)
	}
	if n, ok := rhs.(*resolved.NatLit); ok {
		rhs = natCalls(n)
	}

	if l, ok := lhs.(*resolved.Variable); ok {
		if r, ok := rhs.(*resolved.Variable); ok && l.Index == r.Index {
			return true, nil
		}
		return u.assign(l, rhs)
	}
	if r, ok := rhs.(*resolved.Variable); ok {
		return u.assign(r, lhs)
	}

	switch l := lhs.(type) {
	case *resolved.TypeUniv:
		if _, ok := rhs.(*resolved.TypeUniv); ok {
			return true, nil
		}
	case *resolved.TypCtor:
		if r, ok := rhs.(*resolved.TypCtor); ok {
			if l.Name != r.Name {
				return false, nil
			}
			u.pushArgs(l.Args, r.Args)
			return true, nil
		}
	case *resolved.CoTypCtor:
		if r, ok := rhs.(*resolved.CoTypCtor); ok {
			if l.Name != r.Name {
				return false, nil
			}
			u.pushArgs(l.Args, r.Args)
			return true, nil
		}
	case *resolved.Call:
		if r, ok := rhs.(*resolved.Call); ok {
			if l.Name == r.Name {
				// Constructors are injective; equal non-constructor
				// heads decompose as well.
				u.pushArgs(l.Args, r.Args)
				return true, nil
			}
			if l.Kind == resolved.CallConstructor && r.Kind == resolved.CallConstructor {
				// Clash between distinct constructors of the data type.
				return false, nil
			}
		}
	case *resolved.DotCall:
		if r, ok := rhs.(*resolved.DotCall); ok && l.Kind == r.Kind && l.Name == r.Name {
			u.push(l.Exp, r.Exp)
			u.pushArgs(l.Args, r.Args)
			return true, nil
		}
	}

	return false, common.Error{
		Kind:     common.KindCannotDecide,
		Location: u.loc,
		Message:  fmt.Sprintf("cannot decide whether index `%v` equals `%v`", lhs, rhs),
	}
}

// assign extends the substitution with v := e, composing with the
// substitution computed so far.
func (u *indexUnifier) assign(v *resolved.Variable, e resolved.Exp) (bool, error) {
	lvl := u.depth - 1 - v.Index
	if lvl < 0 {
		panic(common.SystemError{Message: fmt.Sprintf("index %d out of range at depth %d", v.Index, u.depth)})
	}
	if resolved.OccursLvl(e, u.depth, lvl) {
		return false, common.Error{
			Kind:     common.KindCyclicEquation,
			Location: u.loc,
			Message:  fmt.Sprintf("cyclic equation: `%v` occurs in `%v`", v, e),
		}
	}
	e = resolved.SubstLvls(e, u.depth, u.unif)
	if ev, ok := stripAnno(e).(*resolved.Variable); ok && u.depth-1-ev.Index == lvl {
		return true, nil
	}
	single := resolved.LvlSubst{lvl: e}
	for k, prev := range u.unif {
		u.unif[k] = resolved.SubstLvls(prev, u.depth, single)
	}
	if prev, ok := u.unif[lvl]; ok {
		u.push(e, prev)
		return true, nil
	}
	u.unif[lvl] = e
	return true, nil
}
