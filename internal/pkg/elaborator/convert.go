package elaborator

import (
	"errors"
	"fmt"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
	"github.com/polarity-lang/polarity/internal/pkg/ast/resolved"
	"github.com/polarity-lang/polarity/internal/pkg/common"
)

// constraint is a conversion problem that could not be decided yet,
// typically because a metavariable was applied outside the pattern
// fragment. Postponed constraints are retried after every solved
// metavariable and drained at declaration boundaries.
type constraint struct {
	loc   ast.Location
	depth int
	lhs   Value
	rhs   Value
}

// errNotPattern signals that a flexible neutral falls outside Miller's
// pattern fragment; the caller postpones instead of failing.
var errNotPattern = errors.New("constraint outside the pattern fragment")

// convert checks that two values are equal up to α, β, η for codata,
// unfolding of transparent definitions and solved metavariables.
// Opaque lets stay opaque: two calls to the same opaque name must have
// convertible arguments, distinct opaque names never compare equal.
func (el *Elaborator) convert(loc ast.Location, depth int, lhs, rhs Value) error {
	lhs, err := el.force(lhs)
	if err != nil {
		return err
	}
	rhs, err = el.force(rhs)
	if err != nil {
		return err
	}

	lneu, lok := lhs.(*VNeutral)
	rneu, rok := rhs.(*VNeutral)
	lflex := lok && isFlex(lneu)
	rflex := rok && isFlex(rneu)

	switch {
	case lflex && rflex && lneu.Head.(*HMeta).Meta == rneu.Head.(*HMeta).Meta:
		lm := lneu.Head.(*HMeta)
		rm := rneu.Head.(*HMeta)
		if len(lm.Args) != len(rm.Args) || len(lneu.Spine) != len(rneu.Spine) {
			return el.mismatch(loc, depth, lhs, rhs)
		}
		for i := range lm.Args {
			if err := el.convert(loc, depth, lm.Args[i], rm.Args[i]); err != nil {
				return err
			}
		}
		return el.convertSpines(loc, depth, lneu.Spine, rneu.Spine)
	case lflex:
		if err := el.trySolve(loc, depth, lneu, rhs); err != nil {
			if errors.Is(err, errNotPattern) {
				if rflex {
					if err2 := el.trySolve(loc, depth, rneu, lhs); err2 == nil {
						return nil
					} else if !errors.Is(err2, errNotPattern) {
						return err2
					}
				}
				return el.postpone(constraint{loc: loc, depth: depth, lhs: lhs, rhs: rhs})
			}
			return err
		}
		return nil
	case rflex:
		if err := el.trySolve(loc, depth, rneu, lhs); err != nil {
			if errors.Is(err, errNotPattern) {
				return el.postpone(constraint{loc: loc, depth: depth, lhs: lhs, rhs: rhs})
			}
			return err
		}
		return nil
	}

	switch l := lhs.(type) {
	case *VTypeUniv:
		if _, ok := rhs.(*VTypeUniv); ok {
			return nil
		}
	case *VTypCtor:
		if r, ok := rhs.(*VTypCtor); ok && l.Name == r.Name {
			return el.convertAll(loc, depth, l.Args, r.Args)
		}
	case *VCoTypCtor:
		if r, ok := rhs.(*VCoTypCtor); ok && l.Name == r.Name {
			return el.convertAll(loc, depth, l.Args, r.Args)
		}
	case *VCtor:
		if r, ok := rhs.(*VCtor); ok && l.Name == r.Name {
			return el.convertAll(loc, depth, l.Args, r.Args)
		}
	case *VComatch:
		return el.convertObservations(loc, depth, l, rhs)
	case *VNeutral:
		if r, ok := rhs.(*VComatch); ok {
			return el.convertObservations(loc, depth, r, lhs)
		}
		if rok {
			if err := el.convertHeads(loc, depth, l.Head, rneu.Head); err != nil {
				return err
			}
			return el.convertSpines(loc, depth, l.Spine, rneu.Spine)
		}
	}
	if r, ok := rhs.(*VComatch); ok {
		if _, ok := lhs.(*VNeutral); ok {
			return el.convertObservations(loc, depth, r, lhs)
		}
	}
	return el.mismatch(loc, depth, lhs, rhs)
}

func isFlex(neu *VNeutral) bool {
	_, ok := neu.Head.(*HMeta)
	return ok
}

func (el *Elaborator) convertAll(loc ast.Location, depth int, lhs, rhs []Value) error {
	if len(lhs) != len(rhs) {
		panic(common.SystemError{Message: "argument count mismatch in conversion"})
	}
	for i := range lhs {
		if err := el.convert(loc, depth, lhs[i], rhs[i]); err != nil {
			return err
		}
	}
	return nil
}

// convertObservations implements η for codata: a comatch is convertible
// to another value iff every destructor observation yields convertible
// results. Absurd cocases have no observable behavior and are skipped.
func (el *Elaborator) convertObservations(loc ast.Location, depth int, comatch *VComatch, other Value) error {
	switch other.(type) {
	case *VComatch, *VNeutral:
	default:
		return el.mismatch(loc, depth, comatch, other)
	}
	for _, c := range comatch.Cases {
		if c.Body == nil {
			continue
		}
		fresh := make([]Value, len(c.Binders))
		for j, name := range c.Binders {
			fresh[j] = &VNeutral{Head: &HVariable{Level: depth + j, Name: name}}
		}
		lhs, err := el.apply(c.Body, fresh)
		if err != nil {
			return err
		}
		rhs, err := el.applyDot(loc, other, resolved.DotCallDestructor, c.Name, fresh)
		if err != nil {
			return err
		}
		if err := el.convert(loc, depth+len(c.Binders), lhs, rhs); err != nil {
			return err
		}
	}
	return nil
}

func (el *Elaborator) convertHeads(loc ast.Location, depth int, lhs, rhs Head) error {
	switch l := lhs.(type) {
	case *HVariable:
		if r, ok := rhs.(*HVariable); ok && l.Level == r.Level {
			return nil
		}
	case *HOpaque:
		if r, ok := rhs.(*HOpaque); ok && l.Name == r.Name {
			return el.convertAll(loc, depth, l.Args, r.Args)
		}
	case *HCodef:
		if r, ok := rhs.(*HCodef); ok && l.Name == r.Name {
			return el.convertAll(loc, depth, l.Args, r.Args)
		}
	case *HStuck:
		if r, ok := rhs.(*HStuck); ok {
			return el.convert(loc, depth, l.Value, r.Value)
		}
	}
	return el.mismatch(loc, depth, &VNeutral{Head: lhs}, &VNeutral{Head: rhs})
}

func (el *Elaborator) convertSpines(loc ast.Location, depth int, lhs, rhs []Elim) error {
	if len(lhs) != len(rhs) {
		return el.mismatch(loc, depth, &VNeutral{Head: &HStuck{Value: &VTypeUniv{}}, Spine: lhs}, &VNeutral{Head: &HStuck{Value: &VTypeUniv{}}, Spine: rhs})
	}
	for i := range lhs {
		switch l := lhs[i].(type) {
		case *EDot:
			r, ok := rhs[i].(*EDot)
			if !ok || l.Kind != r.Kind || l.Name != r.Name {
				return el.mismatchElim(loc, lhs[i], rhs[i])
			}
			if err := el.convertAll(loc, depth, l.Args, r.Args); err != nil {
				return err
			}
		case *EMatch:
			r, ok := rhs[i].(*EMatch)
			if !ok {
				return el.mismatchElim(loc, lhs[i], rhs[i])
			}
			if err := el.convertCases(loc, depth, l.Cases, r.Cases); err != nil {
				return err
			}
		}
	}
	return nil
}

// convertCases compares the clause sets of two stuck matches, zipped by
// clause name. Clauses present on one side only do not compare.
func (el *Elaborator) convertCases(loc ast.Location, depth int, lhs, rhs []*VCase) error {
	for _, lc := range lhs {
		rc := findCase(rhs, lc.Name)
		if rc == nil {
			continue
		}
		if lc.Body == nil || rc.Body == nil {
			if lc.Body != rc.Body {
				return common.Error{
					Kind:     common.KindTypeMismatch,
					Location: loc,
					Message:  fmt.Sprintf("clause `%s` is absurd on one side only", lc.Name),
				}
			}
			continue
		}
		fresh := make([]Value, len(lc.Binders))
		for j, name := range lc.Binders {
			fresh[j] = &VNeutral{Head: &HVariable{Level: depth + j, Name: name}}
		}
		lb, err := el.apply(lc.Body, fresh)
		if err != nil {
			return err
		}
		rb, err := el.apply(rc.Body, fresh)
		if err != nil {
			return err
		}
		if err := el.convert(loc, depth+len(fresh), lb, rb); err != nil {
			return err
		}
	}
	return nil
}

func (el *Elaborator) mismatch(loc ast.Location, depth int, lhs, rhs Value) error {
	lt, err := el.readback(depth, lhs)
	lstr := "<value>"
	if err == nil {
		lstr = lt.String()
	}
	rt, err := el.readback(depth, rhs)
	rstr := "<value>"
	if err == nil {
		rstr = rt.String()
	}
	return common.Error{
		Kind:     common.KindTypeMismatch,
		Location: loc,
		Message:  fmt.Sprintf("expected `%s`, got `%s`", lstr, rstr),
	}
}

func (el *Elaborator) mismatchElim(loc ast.Location, lhs, rhs Elim) error {
	return common.Error{
		Kind:     common.KindTypeMismatch,
		Location: loc,
		Message:  fmt.Sprintf("eliminations `%v` and `%v` differ", lhs, rhs),
	}
}

// trySolve attempts to solve the metavariable at the head of a flexible
// neutral by pattern unification. The three Miller conditions are
// checked in order: the context instantiation must consist of distinct
// bound variables, the metavariable must not occur in the candidate,
// and the candidate must not depend on variables outside the
// instantiation.
func (el *Elaborator) trySolve(loc ast.Location, depth int, flex *VNeutral, candidate Value) error {
	meta := flex.Head.(*HMeta)
	if len(flex.Spine) > 0 {
		return errNotPattern
	}
	entry := el.metas.Lookup(meta.Meta)
	if entry == nil {
		return errNotPattern
	}

	ren := make(map[int]int, len(meta.Args))
	for i, arg := range meta.Args {
		arg, err := el.force(arg)
		if err != nil {
			return err
		}
		neu, ok := arg.(*VNeutral)
		if !ok || len(neu.Spine) != 0 {
			return errNotPattern
		}
		v, ok := neu.Head.(*HVariable)
		if !ok {
			return errNotPattern
		}
		if _, dup := ren[v.Level]; dup {
			return errNotPattern
		}
		ren[v.Level] = i
	}

	candidateTerm, err := el.readback(depth, candidate)
	if err != nil {
		return err
	}
	if resolved.OccursHole(candidateTerm, meta.Meta) {
		return common.Error{
			Kind:     common.KindOccursCheck,
			Location: loc,
			Extra:    []ast.Location{entry.Location},
			Message:  fmt.Sprintf("metavariable %v occurs in candidate solution `%v`", meta.Meta, candidateTerm),
		}
	}
	solution, err := resolved.AbstractLevels(candidateTerm, depth, ren, len(entry.Ctx))
	if err != nil {
		var unbound resolved.UnboundLevelError
		if errors.As(err, &unbound) {
			return common.Error{
				Kind:     common.KindScopeViolation,
				Location: loc,
				Extra:    []ast.Location{entry.Location},
				Message:  fmt.Sprintf("solution of %v would capture `%s`", meta.Meta, unbound.Var.Name),
			}
		}
		return err
	}
	if err := el.metas.Solve(meta.Meta, solution); err != nil {
		return err
	}
	return el.retryPostponed()
}

// postpone queues an undecided constraint, or fails if elaboration of
// the declaration is being finalized and no further progress can
// unblock it.
func (el *Elaborator) postpone(c constraint) error {
	if el.finalizing {
		return common.Error{
			Kind:     common.KindCannotDecide,
			Location: c.loc,
			Message:  fmt.Sprintf("cannot decide `%v` = `%v`", c.lhs, c.rhs),
		}
	}
	el.postponed = append(el.postponed, c)
	return nil
}

// retryPostponed re-runs queued constraints after a metavariable was
// solved; constraints that are still stuck are queued again.
func (el *Elaborator) retryPostponed() error {
	if el.retrying {
		return nil
	}
	el.retrying = true
	defer func() { el.retrying = false }()

	queue := el.postponed
	el.postponed = nil
	for _, c := range queue {
		if err := el.convert(c.loc, c.depth, c.lhs, c.rhs); err != nil {
			return err
		}
	}
	return nil
}

// drainPostponed is run at declaration boundaries: every constraint
// must now be decidable, and undecidable ones are errors.
func (el *Elaborator) drainPostponed() error {
	if err := el.retryPostponed(); err != nil {
		return err
	}
	el.finalizing = true
	defer func() { el.finalizing = false }()
	queue := el.postponed
	el.postponed = nil
	for _, c := range queue {
		if err := el.convert(c.loc, c.depth, c.lhs, c.rhs); err != nil {
			return err
		}
	}
	return nil
}
