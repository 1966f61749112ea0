package elaborator

import (
	"testing"

	"github.com/polarity-lang/polarity/internal/pkg/ast/resolved"
)

// preludeElaborator builds an elaborator whose signature holds the
// shared test prelude.
func preludeElaborator(t *testing.T) *Elaborator {
	t.Helper()
	el, _, errs := elaborate(natDecl(), boolDecl(), addDecl(), eqDecl(), vecDecl(), streamDecl(),
		&resolved.Codef{
			Name: "Zeroes",
			Typ:  tCodata("Stream"),
			Cases: []*resolved.Case{
				tCoclause("head", nil, tCtor("Z")),
				tCoclause("tail", nil, tCodef("Zeroes")),
			},
		},
		&resolved.Let{Name: "two", Typ: tData("Nat"), Body: natNum(2)},
	)
	noErrors(t, errs)
	return el
}

// closedSamples is a grab bag of closed well-typed terms exercised by
// the property tests, paired with their types.
func closedSamples() []struct {
	name string
	exp  resolved.Exp
	typ  resolved.Exp
} {
	return []struct {
		name string
		exp  resolved.Exp
		typ  resolved.Exp
	}{
		{"numeral", natNum(3), tData("Nat")},
		{"sum", tDef(natNum(2), "add", natNum(2)), tData("Nat")},
		{"opaque call", tDef(tLet("two"), "add", natNum(1)), tData("Nat")},
		{"vector", tCtor("VCons", tCtor("Z"), natNum(1), tCtor("VNil")), tData("Vec", natNum(1))},
		{"stream head", tProj(tProj(tCodef("Zeroes"), "tail"), "head"), tData("Nat")},
		{"refl", tCtor("Refl", tData("Nat"), natNum(2)), tData("Eq", tData("Nat"), natNum(2), natNum(2))},
		{"type", tData("Vec", natNum(2)), tType()},
	}
}

// nf(nf(e)) = nf(e), syntactically.
func TestNormalizationIsIdempotent(t *testing.T) {
	el := preludeElaborator(t)
	for _, sample := range closedSamples() {
		t.Run(sample.name, func(t *testing.T) {
			once, err := el.Normalize(sample.exp)
			if err != nil {
				t.Fatalf("nf: %v", err)
			}
			twice, err := el.Normalize(once)
			if err != nil {
				t.Fatalf("nf of nf: %v", err)
			}
			if once.String() != twice.String() {
				t.Errorf("nf is not idempotent: %v vs %v", once, twice)
			}
		})
	}
}

// convert(a, b) succeeds iff convert(b, a) succeeds, and transitivity
// holds along the sample chain.
func TestConvertibilityIsSymmetric(t *testing.T) {
	el := preludeElaborator(t)
	samples := closedSamples()
	for i, a := range samples {
		for j, b := range samples {
			ab := el.Convert(a.exp, b.exp) == nil
			ba := el.Convert(b.exp, a.exp) == nil
			if ab != ba {
				t.Errorf("convert(%d,%d)=%v but convert(%d,%d)=%v", i, j, ab, j, i, ba)
			}
			if i == j && !ab {
				t.Errorf("sample %d is not convertible to itself", i)
			}
		}
	}
	for i, a := range samples {
		for j, b := range samples {
			for k, c := range samples {
				if el.Convert(a.exp, b.exp) == nil && el.Convert(b.exp, c.exp) == nil {
					if el.Convert(a.exp, c.exp) != nil {
						t.Errorf("transitivity fails along %d -> %d -> %d", i, j, k)
					}
				}
			}
		}
	}
}

// Read-back then re-evaluation yields a value convertible to the
// original.
func TestRoundTripForClosedData(t *testing.T) {
	el := preludeElaborator(t)
	for _, sample := range closedSamples() {
		t.Run(sample.name, func(t *testing.T) {
			nf, err := el.Normalize(sample.exp)
			if err != nil {
				t.Fatalf("nf: %v", err)
			}
			if err := el.Convert(sample.exp, nf); err != nil {
				t.Errorf("round trip is not convertible: %v", err)
			}
		})
	}
}

// Evaluating a closed well-typed term and reading it back produces a
// term that checks against the original type.
func TestPreservationUnderEvaluation(t *testing.T) {
	el := preludeElaborator(t)
	for _, sample := range closedSamples() {
		t.Run(sample.name, func(t *testing.T) {
			nf, err := el.Normalize(sample.exp)
			if err != nil {
				t.Fatalf("nf: %v", err)
			}
			tyV, err := el.eval(emptyEnv(), sample.typ)
			if err != nil {
				t.Fatalf("eval type: %v", err)
			}
			tyV, err = el.force(tyV)
			if err != nil {
				t.Fatalf("force: %v", err)
			}
			if _, err := el.check(newContext(), nf, tyV); err != nil {
				t.Errorf("normal form no longer checks: %v", err)
			}
		})
	}
}

// Solving only appends to the metavariable store: every entry present
// before a solve is present afterwards with the same status or a newly
// written solution, and solutions never change.
func TestMetavariableMonotonicity(t *testing.T) {
	foo := &resolved.Let{
		Name:   "foo",
		Params: tTele(tParam("b", tData("Bool"))),
		Typ:    tData("Eq", tData("Bool"), tHole(resolved.MustSolve), tVar(0, "b")),
		Body:   tCtor("Refl", tData("Bool"), tVar(0, "b")),
	}
	goal := &resolved.Let{
		Name: "goal",
		Typ:  tData("Bool"),
		Body: tHole(resolved.CanSolve),
	}

	el := New(Options{})
	before := map[resolved.MetaID]string{}
	record := func() {
		for _, e := range el.Metas().Entries() {
			key := "open"
			if e.Solved() {
				key = e.Solution.String()
			}
			if prev, ok := before[e.Meta]; ok && prev != "open" && prev != key {
				t.Fatalf("solution of %v changed from %s to %s", e.Meta, prev, key)
			}
			before[e.Meta] = key
		}
	}

	_, errs := el.ElaborateModule(module(boolDecl(), eqDecl(), foo))
	noErrors(t, errs)
	record()
	_, errs = el.ElaborateModule(&resolved.Module{Name: "test.More", Decls: []resolved.Decl{goal}})
	noErrors(t, errs)
	record()

	if el.Metas().Len() < 2 {
		t.Errorf("expected at least two metavariables, got %d", el.Metas().Len())
	}
}

// Exhaustiveness completeness: every constructor of the scrutinee's
// type is covered by a clause or discharged as absurd in a well-typed
// match.
func TestExhaustivenessCompleteness(t *testing.T) {
	el := preludeElaborator(t)
	def, err := el.Signature().LookupDef(natDecl().Location, "add")
	if err != nil {
		t.Fatalf("lookup add: %v", err)
	}
	data, err := el.Signature().LookupData(natDecl().Location, "Nat")
	if err != nil {
		t.Fatalf("lookup Nat: %v", err)
	}
	for _, ctor := range data.Ctors {
		found := false
		for _, c := range def.Cases {
			if c.Pattern.Name == ctor.Name {
				found = true
			}
		}
		if !found {
			t.Errorf("constructor %s has no clause in the elaborated def", ctor.Name)
		}
	}
}
