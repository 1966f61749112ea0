package elaborator

import (
	"fmt"
	"slices"

	"golang.org/x/exp/maps"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
	"github.com/polarity-lang/polarity/internal/pkg/ast/resolved"
	"github.com/polarity-lang/polarity/internal/pkg/common"
)

type ctorEntry struct {
	data *resolved.Data
	ctor *resolved.Ctor
}

type dtorEntry struct {
	codata *resolved.Codata
	dtor   *resolved.Dtor
}

// Signature is the global lookup table for top-level declarations. It
// is built incrementally: every declaration of a module is inserted as
// lowered before any head is checked, so declarations can refer to each
// other; its entry is then replaced by the checked head (telescopes and
// types) and, once its body has been checked, by the elaborated form.
type Signature struct {
	decls map[ast.Identifier]resolved.Decl
	order []ast.Identifier
	ctors map[ast.Identifier]ctorEntry
	dtors map[ast.Identifier]dtorEntry
}

func NewSignature() *Signature {
	return &Signature{
		decls: map[ast.Identifier]resolved.Decl{},
		ctors: map[ast.Identifier]ctorEntry{},
		dtors: map[ast.Identifier]dtorEntry{},
	}
}

// Insert registers a declaration. Constructor and destructor names are
// registered alongside their parent type and share the namespace of
// declaration names.
func (s *Signature) Insert(decl resolved.Decl) error {
	name := decl.GetName()
	if prev, ok := s.decls[name]; ok {
		return common.Error{
			Kind:     common.KindDuplicateDeclaration,
			Location: decl.GetLocation(),
			Extra:    []ast.Location{prev.GetLocation()},
			Message:  fmt.Sprintf("`%s` is already declared", name),
		}
	}
	switch d := decl.(type) {
	case *resolved.Data:
		for _, ctor := range d.Ctors {
			if prev, ok := s.ctors[ctor.Name]; ok {
				return common.Error{
					Kind:     common.KindDuplicateDeclaration,
					Location: ctor.Location,
					Extra:    []ast.Location{prev.ctor.Location},
					Message:  fmt.Sprintf("constructor `%s` is already declared", ctor.Name),
				}
			}
			s.ctors[ctor.Name] = ctorEntry{data: d, ctor: ctor}
		}
	case *resolved.Codata:
		for _, dtor := range d.Dtors {
			if prev, ok := s.dtors[dtor.Name]; ok {
				return common.Error{
					Kind:     common.KindDuplicateDeclaration,
					Location: dtor.Location,
					Extra:    []ast.Location{prev.dtor.Location},
					Message:  fmt.Sprintf("destructor `%s` is already declared", dtor.Name),
				}
			}
			s.dtors[dtor.Name] = dtorEntry{codata: d, dtor: dtor}
		}
	}
	s.decls[name] = decl
	s.order = append(s.order, name)
	return nil
}

// Replace swaps in the annotated version of an already-inserted
// declaration under the same name.
func (s *Signature) Replace(decl resolved.Decl) {
	name := decl.GetName()
	if _, ok := s.decls[name]; !ok {
		panic(common.SystemError{Message: fmt.Sprintf("replacing undeclared `%s`", name)})
	}
	s.decls[name] = decl
	switch d := decl.(type) {
	case *resolved.Data:
		for _, ctor := range d.Ctors {
			s.ctors[ctor.Name] = ctorEntry{data: d, ctor: ctor}
		}
	case *resolved.Codata:
		for _, dtor := range d.Dtors {
			s.dtors[dtor.Name] = dtorEntry{codata: d, dtor: dtor}
		}
	}
}

// Lookup finds any declaration by name.
func (s *Signature) Lookup(name ast.Identifier) (resolved.Decl, bool) {
	d, ok := s.decls[name]
	return d, ok
}

// Decls lists all declarations in insertion order.
func (s *Signature) Decls() []resolved.Decl {
	return common.Map(func(n ast.Identifier) resolved.Decl { return s.decls[n] }, s.order)
}

// DeclaredNames lists all declaration names, sorted, for diagnostics.
func (s *Signature) DeclaredNames() []ast.Identifier {
	names := maps.Keys(s.decls)
	slices.Sort(names)
	return names
}

func (s *Signature) undeclared(loc ast.Location, what string, name ast.Identifier) error {
	return common.Error{
		Kind:     common.KindUndeclaredName,
		Location: loc,
		Message:  fmt.Sprintf("%s `%s` is not declared", what, name),
	}
}

func (s *Signature) LookupData(loc ast.Location, name ast.Identifier) (*resolved.Data, error) {
	if d, ok := s.decls[name].(*resolved.Data); ok {
		return d, nil
	}
	return nil, s.undeclared(loc, "data type", name)
}

func (s *Signature) LookupCodata(loc ast.Location, name ast.Identifier) (*resolved.Codata, error) {
	if d, ok := s.decls[name].(*resolved.Codata); ok {
		return d, nil
	}
	return nil, s.undeclared(loc, "codata type", name)
}

func (s *Signature) LookupCtor(loc ast.Location, name ast.Identifier) (*resolved.Data, *resolved.Ctor, error) {
	if e, ok := s.ctors[name]; ok {
		return e.data, e.ctor, nil
	}
	return nil, nil, s.undeclared(loc, "constructor", name)
}

func (s *Signature) LookupDtor(loc ast.Location, name ast.Identifier) (*resolved.Codata, *resolved.Dtor, error) {
	if e, ok := s.dtors[name]; ok {
		return e.codata, e.dtor, nil
	}
	return nil, nil, s.undeclared(loc, "destructor", name)
}

func (s *Signature) LookupDef(loc ast.Location, name ast.Identifier) (*resolved.Def, error) {
	if d, ok := s.decls[name].(*resolved.Def); ok {
		return d, nil
	}
	return nil, s.undeclared(loc, "definition", name)
}

func (s *Signature) LookupCodef(loc ast.Location, name ast.Identifier) (*resolved.Codef, error) {
	if d, ok := s.decls[name].(*resolved.Codef); ok {
		return d, nil
	}
	return nil, s.undeclared(loc, "codefinition", name)
}

func (s *Signature) LookupLet(loc ast.Location, name ast.Identifier) (*resolved.Let, error) {
	if d, ok := s.decls[name].(*resolved.Let); ok {
		return d, nil
	}
	return nil, s.undeclared(loc, "let binding", name)
}

func (s *Signature) LookupInfix(loc ast.Location, symbol ast.InfixIdentifier) (*resolved.Infix, error) {
	if d, ok := s.decls[ast.Identifier(symbol)].(*resolved.Infix); ok {
		return d, nil
	}
	return nil, s.undeclared(loc, "infix operator", ast.Identifier(symbol))
}
