package elaborator

import (
	"errors"
	"testing"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
	"github.com/polarity-lang/polarity/internal/pkg/ast/resolved"
	"github.com/polarity-lang/polarity/internal/pkg/common"
)

func TestMetaStoreAllocationIsMonotonic(t *testing.T) {
	s := NewMetaStore()
	a := s.Fresh(resolved.MustSolve, ast.Location{}, nil, nil)
	b := s.Fresh(resolved.CanSolve, ast.Location{}, []ast.Identifier{"x"}, nil)
	if b <= a {
		t.Errorf("ids must increase: %v then %v", a, b)
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", s.Len())
	}
}

func TestMetaStoreSolveChecksScope(t *testing.T) {
	s := NewMetaStore()
	id := s.Fresh(resolved.MustSolve, ast.Location{}, []ast.Identifier{"x"}, nil)

	// y@1 refers outside the one-binder context of the metavariable.
	err := s.Solve(id, &resolved.Variable{Index: 1, Name: "y"})
	var ce common.Error
	if !errors.As(err, &ce) || ce.Kind != common.KindScopeViolation {
		t.Fatalf("expected scope violation, got %v", err)
	}

	if err := s.Solve(id, &resolved.Variable{Index: 0, Name: "x"}); err != nil {
		t.Fatalf("well-scoped solve failed: %v", err)
	}
	if !s.Lookup(id).Solved() {
		t.Errorf("entry not marked solved")
	}
}

func TestMetaStoreSolveChecksOccurs(t *testing.T) {
	s := NewMetaStore()
	id := s.Fresh(resolved.MustSolve, ast.Location{}, nil, nil)
	cyclic := &resolved.Call{
		Kind: resolved.CallConstructor,
		Name: "S",
		Args: []resolved.Arg{{Exp: &resolved.Hole{Kind: resolved.MustSolve, Meta: id}}},
	}
	err := s.Solve(id, cyclic)
	var ce common.Error
	if !errors.As(err, &ce) || ce.Kind != common.KindOccursCheck {
		t.Fatalf("expected occurs check failure, got %v", err)
	}
}

func TestMetaStoreRejectsConflictingSolutions(t *testing.T) {
	s := NewMetaStore()
	id := s.Fresh(resolved.MustSolve, ast.Location{}, nil, nil)
	if err := s.Solve(id, tCtor("Z")); err != nil {
		t.Fatalf("first solve failed: %v", err)
	}
	if err := s.Solve(id, tCtor("Z")); err != nil {
		t.Errorf("re-solving with the identical term must be a no-op, got %v", err)
	}
	err := s.Solve(id, natNum(1))
	var ce common.Error
	if !errors.As(err, &ce) || ce.Kind != common.KindMetaConflict {
		t.Fatalf("expected a conflict error, got %v", err)
	}
}

func TestZonkReplacesSolvedHoles(t *testing.T) {
	s := NewMetaStore()
	id := s.Fresh(resolved.MustSolve, ast.Location{}, []ast.Identifier{"x"}, nil)
	if err := s.Solve(id, &resolved.Variable{Index: 0, Name: "x"}); err != nil {
		t.Fatalf("solve: %v", err)
	}
	hole := &resolved.Hole{Kind: resolved.MustSolve, Meta: id, Args: []resolved.Exp{natNum(2)}}
	out := s.Zonk(tCtor("S", hole))
	if out.String() != "S(S(S(Z)))" {
		t.Errorf("zonk produced %v, want S(S(S(Z)))", out)
	}
}
