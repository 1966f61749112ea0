package elaborator

import (
	"errors"
	"testing"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
	"github.com/polarity-lang/polarity/internal/pkg/ast/resolved"
	"github.com/polarity-lang/polarity/internal/pkg/common"
)

// The index unifier works on terms at a fixed depth; these tests run it
// directly on hand-built index vectors over a two-variable context
// [x, y] (levels 0 and 1).
func TestIndexUnification(t *testing.T) {
	el := New(Options{})
	x := func() resolved.Exp { return tVar(1, "x") } // level 0 at depth 2
	y := func() resolved.Exp { return tVar(0, "y") } // level 1 at depth 2

	t.Run("clash between distinct constructors", func(t *testing.T) {
		dec, err := el.unifyIndices(ast.Location{}, 2, []resolved.Exp{tCtor("Z")}, []resolved.Exp{tCtor("S", x())})
		if err != nil {
			t.Fatalf("unify: %v", err)
		}
		if dec.Yes {
			t.Errorf("Z = S(x) must clash")
		}
	})

	t.Run("injectivity refines a variable", func(t *testing.T) {
		dec, err := el.unifyIndices(ast.Location{}, 2, []resolved.Exp{tCtor("S", x())}, []resolved.Exp{tCtor("S", tCtor("Z"))})
		if err != nil {
			t.Fatalf("unify: %v", err)
		}
		if !dec.Yes {
			t.Fatalf("S(x) = S(Z) must unify")
		}
		if got := dec.Subst[0]; got == nil || got.String() != "Z" {
			t.Errorf("expected x := Z, got %s", substString(dec.Subst))
		}
	})

	t.Run("variable-variable equation", func(t *testing.T) {
		dec, err := el.unifyIndices(ast.Location{}, 2, []resolved.Exp{x()}, []resolved.Exp{y()})
		if err != nil {
			t.Fatalf("unify: %v", err)
		}
		if !dec.Yes || len(dec.Subst) != 1 {
			t.Fatalf("x = y must refine one variable, got %s", substString(dec.Subst))
		}
	})

	t.Run("cyclic equation is rejected", func(t *testing.T) {
		_, err := el.unifyIndices(ast.Location{}, 2, []resolved.Exp{x()}, []resolved.Exp{tCtor("S", x())})
		var ce common.Error
		if !errors.As(err, &ce) || ce.Kind != common.KindCyclicEquation {
			t.Fatalf("expected cyclic equation error, got %v", err)
		}
	})

	t.Run("stuck equation cannot be decided", func(t *testing.T) {
		lhs := tDef(x(), "add", y())
		rhs := tDef(x(), "mul", y())
		_, err := el.unifyIndices(ast.Location{}, 2, []resolved.Exp{tCtor("S", lhs)}, []resolved.Exp{tCtor("S", rhs)})
		var ce common.Error
		if !errors.As(err, &ce) || ce.Kind != common.KindCannotDecide {
			t.Fatalf("expected cannot-decide error, got %v", err)
		}
	})

	t.Run("substitutions compose", func(t *testing.T) {
		// S(x) = S(y) and y = Z force x := Z as well.
		dec, err := el.unifyIndices(ast.Location{}, 2,
			[]resolved.Exp{tCtor("S", x()), y()},
			[]resolved.Exp{tCtor("S", y()), tCtor("Z")})
		if err != nil {
			t.Fatalf("unify: %v", err)
		}
		if !dec.Yes {
			t.Fatalf("expected success")
		}
		for lvl, e := range dec.Subst {
			if e.String() != "Z" {
				t.Errorf("level %d refined to %v, want Z", lvl, e)
			}
		}
		if len(dec.Subst) != 2 {
			t.Errorf("expected both variables refined, got %s", substString(dec.Subst))
		}
	})

	t.Run("numerals unify with constructor spines", func(t *testing.T) {
		lit := &resolved.NatLit{Value: 1, Zero: "Z", Succ: "S"}
		dec, err := el.unifyIndices(ast.Location{}, 2, []resolved.Exp{lit}, []resolved.Exp{tCtor("S", tCtor("Z"))})
		if err != nil {
			t.Fatalf("unify: %v", err)
		}
		if !dec.Yes {
			t.Errorf("1 = S(Z) must unify")
		}
	})
}

func substString(sub resolved.LvlSubst) string {
	out := "{"
	for lvl, e := range sub {
		out += " " + string(rune('0'+lvl)) + ":=" + e.String()
	}
	return out + " }"
}
