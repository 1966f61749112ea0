package elaborator

import (
	"fmt"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
	"github.com/polarity-lang/polarity/internal/pkg/ast/resolved"
	"github.com/polarity-lang/polarity/internal/pkg/common"
)

// MetaEntry is the state of one metavariable. Ctx records the binders
// the metavariable was introduced under; a solution is a term over
// exactly that context, re-evaluated under the environment of each
// occurrence.
type MetaEntry struct {
	Meta     resolved.MetaID
	Kind     resolved.HoleKind
	Location ast.Location
	Ctx      []ast.Identifier
	Typ      resolved.Exp // read-back of the expected type, diagnostics only
	Solution resolved.Exp // nil while unsolved
}

func (e *MetaEntry) Solved() bool {
	return e.Solution != nil
}

// MetaStore is the append-only table of metavariables of one module.
// IDs increase monotonically; a solution, once written, is never
// retracted or replaced.
type MetaStore struct {
	entries map[resolved.MetaID]*MetaEntry
	order   []resolved.MetaID
	next    resolved.MetaID
}

func NewMetaStore() *MetaStore {
	return &MetaStore{entries: map[resolved.MetaID]*MetaEntry{}}
}

// Fresh allocates a metavariable bound over the given context.
func (s *MetaStore) Fresh(kind resolved.HoleKind, loc ast.Location, ctx []ast.Identifier, typ resolved.Exp) resolved.MetaID {
	id := s.next
	s.next++
	s.entries[id] = &MetaEntry{
		Meta:     id,
		Kind:     kind,
		Location: loc,
		Ctx:      ctx,
		Typ:      typ,
	}
	s.order = append(s.order, id)
	return id
}

// Lookup returns the entry for id, or nil for foreign IDs.
func (s *MetaStore) Lookup(id resolved.MetaID) *MetaEntry {
	return s.entries[id]
}

// Entries lists all entries in allocation order.
func (s *MetaStore) Entries() []*MetaEntry {
	return common.Map(func(id resolved.MetaID) *MetaEntry { return s.entries[id] }, s.order)
}

// Len returns the number of allocated metavariables.
func (s *MetaStore) Len() int {
	return len(s.order)
}

// Solve records a solution for id. The solution must be a term over the
// metavariable's recorded context; it must not mention the
// metavariable itself. Both violations are hard errors.
func (s *MetaStore) Solve(id resolved.MetaID, solution resolved.Exp) error {
	entry, ok := s.entries[id]
	if !ok {
		panic(common.SystemError{Message: fmt.Sprintf("solving unknown metavariable %v", id)})
	}
	if entry.Solved() {
		if entry.Solution.String() == solution.String() {
			return nil
		}
		return common.Error{
			Kind:     common.KindMetaConflict,
			Location: entry.Location,
			Message:  fmt.Sprintf("metavariable %v is already solved with `%v`, refusing `%v`", id, entry.Solution, solution),
		}
	}
	if resolved.OccursHole(solution, id) {
		return common.Error{
			Kind:     common.KindOccursCheck,
			Location: entry.Location,
			Message:  fmt.Sprintf("metavariable %v occurs in its own solution %v", id, solution),
		}
	}
	if max := resolved.MaxFreeIndex(solution); max >= len(entry.Ctx) {
		return common.Error{
			Kind:     common.KindScopeViolation,
			Location: entry.Location,
			Message:  fmt.Sprintf("solution %v of %v escapes the metavariable's context", solution, id),
		}
	}
	entry.Solution = solution
	return nil
}

// Zonk replaces every solved hole of e by its instantiated solution.
// Unsolved holes are kept.
func (s *MetaStore) Zonk(e resolved.Exp) resolved.Exp {
	if e == nil {
		return nil
	}
	for {
		changed := false
		e = s.zonkOnce(e, &changed)
		if !changed {
			return e
		}
	}
}

func (s *MetaStore) zonkOnce(e resolved.Exp, changed *bool) resolved.Exp {
	out, err := resolved.MapHoles(e, func(h *resolved.Hole) (resolved.Exp, error) {
		entry := s.entries[h.Meta]
		if entry == nil || !entry.Solved() {
			return h, nil
		}
		*changed = true
		return resolved.Instantiate(entry.Solution, h.Args), nil
	})
	if err != nil {
		panic(common.SystemError{Message: err.Error()})
	}
	return out
}
