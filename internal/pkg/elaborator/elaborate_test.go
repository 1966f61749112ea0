package elaborator

import (
	"errors"
	"strings"
	"testing"

	"github.com/kr/pretty"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
	"github.com/polarity-lang/polarity/internal/pkg/ast/resolved"
	"github.com/polarity-lang/polarity/internal/pkg/common"
)

func noErrors(t *testing.T, errs []error) {
	t.Helper()
	for _, err := range errs {
		t.Errorf("unexpected error: %v", err)
	}
}

func wantKind(t *testing.T, errs []error, kind common.ErrorKind) {
	t.Helper()
	for _, err := range errs {
		var ce common.Error
		if errors.As(err, &ce) && ce.Kind == kind {
			return
		}
	}
	t.Errorf("expected a %v error, got %s", kind, pretty.Sprint(errs))
}

func wantNf(t *testing.T, el *Elaborator, e resolved.Exp, want string) {
	t.Helper()
	nf, err := el.Normalize(e)
	if err != nil {
		t.Fatalf("normalize %v: %v", e, err)
	}
	if nf.String() != want {
		t.Errorf("nf(%v) = %s, want %s", e, nf, want)
	}
}

func TestIdentityOnNaturals(t *testing.T) {
	id := &resolved.Let{Name: "id", Typ: tData("Nat"), Body: natNum(2)}
	el, typed, errs := elaborate(natDecl(), id)
	noErrors(t, errs)

	out, ok := findDecl(typed, "id").(*resolved.Let)
	if !ok {
		t.Fatalf("let `id` missing from typed module")
	}
	wantNf(t, el, out.Body, "S(S(Z))")
	if out.Body.GetType() == nil {
		t.Errorf("elaborated body carries no type")
	}
}

func TestDefinitionalEqualityViaUnfolding(t *testing.T) {
	// let two_plus_two : Eq(Nat, S(S(Z)).add(S(S(Z))), S(S(S(S(Z)))))
	//   { Refl(Nat, S(S(S(S(Z))))) }
	sum := tDef(natNum(2), "add", natNum(2))
	proof := &resolved.Let{
		Name: "two_plus_two",
		Typ:  tData("Eq", tData("Nat"), sum, natNum(4)),
		Body: tCtor("Refl", tData("Nat"), natNum(4)),
	}
	el, _, errs := elaborate(natDecl(), addDecl(), eqDecl(), proof)
	noErrors(t, errs)
	wantNf(t, el, sum, "S(S(S(S(Z))))")
}

func TestOpaqueLetResistsUnfolding(t *testing.T) {
	two := &resolved.Let{Name: "two", Typ: tData("Nat"), Body: natNum(2)}
	call := func() resolved.Exp { return tDef(tLet("two"), "add", natNum(2)) }

	// Both sides of the equation are the same opaque call: convertible
	// without normalizing either.
	foo := &resolved.Let{
		Name: "foo",
		Typ:  tData("Eq", tData("Nat"), call(), call()),
		Body: tCtor("Refl", tData("Nat"), call()),
	}
	_, _, errs := elaborate(natDecl(), addDecl(), eqDecl(), two, foo)
	noErrors(t, errs)

	// The opaque call does not reduce, so it is not convertible to the
	// numeral it would evaluate to.
	bad := &resolved.Let{
		Name: "bad",
		Typ:  tData("Eq", tData("Nat"), call(), natNum(4)),
		Body: tCtor("Refl", tData("Nat"), call()),
	}
	_, _, errs = elaborate(natDecl(), addDecl(), eqDecl(), two, bad)
	wantKind(t, errs, common.KindTypeMismatch)
}

func TestTransparentLetUnfolds(t *testing.T) {
	two := &resolved.Let{Name: "two", Typ: tData("Nat"), Body: natNum(2), Transparent: true}
	call := tDef(tLet("two"), "add", natNum(2))
	foo := &resolved.Let{
		Name: "foo",
		Typ:  tData("Eq", tData("Nat"), call, natNum(4)),
		Body: tCtor("Refl", tData("Nat"), natNum(4)),
	}
	el, _, errs := elaborate(natDecl(), addDecl(), eqDecl(), two, foo)
	noErrors(t, errs)
	wantNf(t, el, call, "S(S(S(S(Z))))")
}

func TestAbsurdClauseDischargedByIndexUnification(t *testing.T) {
	// def Vec(S(n)).head(n: Nat): Nat { VNil absurd, VCons(_, x, _) => x }
	head := &resolved.Def{
		Name:    "head",
		Params:  tTele(tParam("n", tData("Nat"))),
		SelfTyp: tData("Vec", tCtor("S", tVar(0, "n"))),
		Ret:     tData("Nat"),
		Cases: []*resolved.Case{
			tAbsurd("VNil"),
			tClause("VCons", []string{"_", "x", "_"}, tVar(1, "x")),
		},
	}
	el, _, errs := elaborate(natDecl(), vecDecl(), head)
	noErrors(t, errs)

	// head(VCons(Z, S(Z), VNil), n := Z) reduces to S(Z).
	call := tDef(tCtor("VCons", tCtor("Z"), natNum(1), tCtor("VNil")), "head", tCtor("Z"))
	wantNf(t, el, call, "S(Z)")
}

func TestAbsurdClauseRejectedWhenIndicesUnify(t *testing.T) {
	bogus := &resolved.Def{
		Name:    "bogus",
		Params:  tTele(tParam("n", tData("Nat"))),
		SelfTyp: tData("Vec", tVar(0, "n")),
		Ret:     tData("Nat"),
		Cases: []*resolved.Case{
			tAbsurd("VNil"),
			tClause("VCons", []string{"_", "x", "_"}, tVar(1, "x")),
		},
	}
	_, _, errs := elaborate(natDecl(), vecDecl(), bogus)
	wantKind(t, errs, common.KindPatternNotAbsurd)
}

func TestMissingAbsurdMarkIsRejected(t *testing.T) {
	broken := &resolved.Def{
		Name:    "head",
		Params:  tTele(tParam("n", tData("Nat"))),
		SelfTyp: tData("Vec", tCtor("S", tVar(0, "n"))),
		Ret:     tData("Nat"),
		Cases: []*resolved.Case{
			tClause("VNil", nil, natNum(0)),
			tClause("VCons", []string{"_", "x", "_"}, tVar(1, "x")),
		},
	}
	_, _, errs := elaborate(natDecl(), vecDecl(), broken)
	wantKind(t, errs, common.KindPatternIsAbsurd)
}

func TestInfiniteCodataViaCopatterns(t *testing.T) {
	// codef Zeroes: Stream { .head => Z, .tail => Zeroes }
	zeroes := &resolved.Codef{
		Name: "Zeroes",
		Typ:  tCodata("Stream"),
		Cases: []*resolved.Case{
			tCoclause("head", nil, tCtor("Z")),
			tCoclause("tail", nil, tCodef("Zeroes")),
		},
	}
	el, _, errs := elaborate(natDecl(), streamDecl(), zeroes)
	noErrors(t, errs)

	unfolded := tProj(tProj(tProj(tCodef("Zeroes"), "tail"), "tail"), "head")
	wantNf(t, el, unfolded, "Z")
}

func TestLocalComatchChecks(t *testing.T) {
	// let ones: Stream { comatch { .head => S(Z), .tail => ones } }
	ones := &resolved.Let{
		Name: "ones",
		Typ:  tCodata("Stream"),
		Body: &resolved.LocalComatch{
			Cases: []*resolved.Case{
				tCoclause("head", nil, natNum(1)),
				tCoclause("tail", nil, tLet("ones")),
			},
		},
	}
	el, _, errs := elaborate(natDecl(), streamDecl(), ones)
	noErrors(t, errs)

	taken := tProj(tProj(&resolved.LocalComatch{
		Cases: []*resolved.Case{
			tCoclause("head", nil, natNum(1)),
			tCoclause("tail", nil, tLet("ones")),
		},
	}, "tail"), "head")
	// ones is opaque, so its tail is stuck, but the first unfolding of
	// the literal comatch reduces.
	nf, err := el.Normalize(tProj(&resolved.LocalComatch{
		Cases: []*resolved.Case{
			tCoclause("head", nil, natNum(1)),
			tCoclause("tail", nil, tLet("ones")),
		},
	}, "head"))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if nf.String() != "S(Z)" {
		t.Errorf("nf = %v, want S(Z)", nf)
	}
	if _, err := el.Normalize(taken); err != nil {
		t.Errorf("normalizing a stuck observation should not fail: %v", err)
	}
}

func TestLocalMatchWithScrutineeRefinement(t *testing.T) {
	// let pred(n: Nat): Nat { n.match { Z => Z, S(m) => m } }
	pred := &resolved.Let{
		Name:   "pred",
		Params: tTele(tParam("n", tData("Nat"))),
		Typ:    tData("Nat"),
		Body: &resolved.LocalMatch{
			OnExp: tVar(0, "n"),
			Cases: []*resolved.Case{
				tClause("Z", nil, tCtor("Z")),
				tClause("S", []string{"m"}, tVar(0, "m")),
			},
		},
		Transparent: true,
	}
	el, _, errs := elaborate(natDecl(), pred)
	noErrors(t, errs)
	wantNf(t, el, tLet("pred", natNum(3)), "S(S(Z))")
}

func TestSolvableHole(t *testing.T) {
	// let foo(b: Bool): Eq(Bool, _, b) { Refl(Bool, b) }
	for _, kind := range []resolved.HoleKind{resolved.MustSolve, resolved.CanSolve} {
		foo := &resolved.Let{
			Name:   "foo",
			Params: tTele(tParam("b", tData("Bool"))),
			Typ:    tData("Eq", tData("Bool"), tHole(kind), tVar(0, "b")),
			Body:   tCtor("Refl", tData("Bool"), tVar(0, "b")),
		}
		el, _, errs := elaborate(boolDecl(), eqDecl(), foo)
		noErrors(t, errs)

		solved := 0
		for _, entry := range el.Metas().Entries() {
			if entry.Kind == kind && entry.Solved() {
				solved++
				if entry.Solution.String() != "b@0" {
					t.Errorf("hole solved with %v, want b@0", entry.Solution)
				}
			}
		}
		if solved != 1 {
			t.Errorf("expected exactly one solved %v hole, got %d", kind, solved)
		}
	}
}

func TestUnsolvableHoleIsReported(t *testing.T) {
	// let foo(b: Nat): Eq(Nat, _.add(b), b) { Refl(Nat, b) }
	// The metavariable occurs under an elimination, outside the
	// pattern fragment, and can never be solved.
	foo := &resolved.Let{
		Name:   "foo",
		Params: tTele(tParam("b", tData("Nat"))),
		Typ:    tData("Eq", tData("Nat"), tDef(tHole(resolved.MustSolve), "add", tVar(0, "b")), tVar(0, "b")),
		Body:   tCtor("Refl", tData("Nat"), tVar(0, "b")),
	}
	_, _, errs := elaborate(natDecl(), addDecl(), eqDecl(), foo)
	if len(errs) == 0 {
		t.Fatalf("expected an error for the unsolvable metavariable")
	}
}

func TestOpenCanSolveHoleSurvives(t *testing.T) {
	goal := &resolved.Let{
		Name: "goal",
		Typ:  tData("Nat"),
		Body: tHole(resolved.CanSolve),
	}
	el, typed, errs := elaborate(natDecl(), goal)
	noErrors(t, errs)
	if findDecl(typed, "goal") == nil {
		t.Fatalf("declaration with open goal was dropped")
	}
	open := 0
	for _, entry := range el.Metas().Entries() {
		if !entry.Solved() {
			open++
		}
	}
	if open != 1 {
		t.Errorf("expected one open goal, got %d", open)
	}
}

func TestUnsolvedMustSolveHoleFailsDeclaration(t *testing.T) {
	goal := &resolved.Let{
		Name: "goal",
		Typ:  tData("Nat"),
		Body: tHole(resolved.MustSolve),
	}
	_, typed, errs := elaborate(natDecl(), goal)
	wantKind(t, errs, common.KindUnsolvedMeta)
	if findDecl(typed, "goal") != nil {
		t.Errorf("failed declaration must not be emitted")
	}
}

func TestExhaustivenessErrors(t *testing.T) {
	clause := func(cases ...*resolved.Case) *resolved.Def {
		return &resolved.Def{
			Name:    "f",
			SelfTyp: tData("Nat"),
			Ret:     tData("Nat"),
			Cases:   cases,
		}
	}
	tests := []struct {
		name  string
		def   *resolved.Def
		kind  common.ErrorKind
	}{
		{
			name: "missing clause",
			def:  clause(tClause("Z", nil, tCtor("Z"))),
			kind: common.KindNonExhaustiveMatch,
		},
		{
			name: "duplicate clause",
			def: clause(
				tClause("Z", nil, tCtor("Z")),
				tClause("Z", nil, tCtor("Z")),
				tClause("S", []string{"n"}, tVar(0, "n")),
			),
			kind: common.KindRedundantClause,
		},
		{
			name: "unknown constructor",
			def: clause(
				tClause("Z", nil, tCtor("Z")),
				tClause("S", []string{"n"}, tVar(0, "n")),
				tClause("Succ", []string{"n"}, tVar(0, "n")),
			),
			kind: common.KindUnknownClause,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, errs := elaborate(natDecl(), tc.def)
			wantKind(t, errs, tc.kind)
		})
	}
}

func TestDuplicateDeclaration(t *testing.T) {
	_, _, errs := elaborate(natDecl(), natDecl())
	wantKind(t, errs, common.KindDuplicateDeclaration)
}

func TestArityMismatch(t *testing.T) {
	bad := &resolved.Let{Name: "bad", Typ: tData("Nat"), Body: tCtor("S")}
	_, _, errs := elaborate(natDecl(), bad)
	wantKind(t, errs, common.KindArityMismatch)
}

func TestNatLiteralsDesugar(t *testing.T) {
	lit := &resolved.NatLit{Value: 3, Zero: "Z", Succ: "S"}
	three := &resolved.Let{Name: "three", Typ: tData("Nat"), Body: lit, Transparent: true}
	el, typed, errs := elaborate(natDecl(), three)
	noErrors(t, errs)
	out := findDecl(typed, "three").(*resolved.Let)
	if out.Body.GetType() == nil {
		t.Errorf("literal carries no type after elaboration")
	}
	wantNf(t, el, tLet("three"), "S(S(S(Z)))")
}

func TestMotiveOnLocalMatch(t *testing.T) {
	// let idem(n: Nat): Eq(Nat, n, n)
	//   { n.match as m => Eq(Nat, m, m) { Z => Refl(Nat, Z), S(k) => Refl(Nat, S(k)) } }
	match := &resolved.LocalMatch{
		OnExp: tVar(0, "n"),
		Motive: &resolved.Motive{
			Param: "m",
			Ret:   tData("Eq", tData("Nat"), tVar(0, "m"), tVar(0, "m")),
		},
		Cases: []*resolved.Case{
			tClause("Z", nil, tCtor("Refl", tData("Nat"), tCtor("Z"))),
			tClause("S", []string{"k"}, tCtor("Refl", tData("Nat"), tCtor("S", tVar(0, "k")))),
		},
	}
	idem := &resolved.Let{
		Name:   "idem",
		Params: tTele(tParam("n", tData("Nat"))),
		Typ:    tData("Eq", tData("Nat"), tVar(0, "n"), tVar(0, "n")),
		Body:   match,
	}
	_, _, errs := elaborate(natDecl(), eqDecl(), idem)
	noErrors(t, errs)
}

func TestElaborateAllRespectsImports(t *testing.T) {
	prelude := module(natDecl(), addDecl())
	prelude.Name = "test.Prelude"
	main := module(&resolved.Let{Name: "two", Typ: tData("Nat"), Body: natNum(2)})
	main.Name = "test.Main"
	main.Imports = []ast.QualifiedIdentifier{"test.Prelude"}

	typed, metas, errs := ElaborateAll([]*resolved.Module{main, prelude}, Options{})
	noErrors(t, errs)
	if len(typed) != 2 {
		t.Fatalf("expected 2 typed modules, got %d", len(typed))
	}
	if metas["test.Main"] == nil || metas["test.Prelude"] == nil {
		t.Errorf("missing metavariable tables: %s", pretty.Sprint(metas))
	}
	if findDecl(typed["test.Main"], "two") == nil {
		t.Errorf("typed main module lost its declaration")
	}
}

func TestStepBudget(t *testing.T) {
	// let loop: Nat { loop } with a transparent attribute diverges;
	// the budget turns divergence into an error.
	loop := &resolved.Let{Name: "loop", Typ: tData("Nat"), Body: tLet("loop"), Transparent: true}
	el := New(Options{StepBudget: 1000})
	_, errs := el.ElaborateModule(module(natDecl(), loop))
	noErrors(t, errs)
	_, err := el.Normalize(tLet("loop"))
	var ce common.Error
	if !errors.As(err, &ce) || ce.Kind != common.KindStepBudgetExhausted {
		t.Errorf("expected step budget error, got %v", err)
	}
}

func TestUniverseMismatch(t *testing.T) {
	// A term of type Nat in type position.
	bad := &resolved.Let{Name: "bad", Typ: tCtor("Z"), Body: tCtor("Z")}
	_, _, errs := elaborate(natDecl(), bad)
	wantKind(t, errs, common.KindUniverseMismatch)
}

func TestErrorRendering(t *testing.T) {
	bad := &resolved.Let{Name: "bad", Typ: tData("Nat"), Body: tCtor("True")}
	_, _, errs := elaborate(natDecl(), boolDecl(), bad)
	wantKind(t, errs, common.KindTypeMismatch)
	found := false
	for _, err := range errs {
		if strings.Contains(err.Error(), "type mismatch") {
			found = true
		}
	}
	if !found {
		t.Errorf("rendered error does not name its kind: %s", pretty.Sprint(errs))
	}
}
