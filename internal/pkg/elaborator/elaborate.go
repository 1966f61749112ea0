package elaborator

import (
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
	"github.com/polarity-lang/polarity/internal/pkg/ast/resolved"
	"github.com/polarity-lang/polarity/internal/pkg/common"
)

// Options configures one elaboration task.
type Options struct {
	// Trace receives a per-declaration elaboration report when set.
	Trace io.Writer
	// StepBudget bounds the total number of evaluation steps of one
	// Elaborator; the count is never reset, so it covers every module
	// and normalization run on it. Zero means unbounded; the language does not guarantee
	// termination, so tooling should set a budget.
	StepBudget int
}

// Elaborator owns all mutable state of a single elaboration task: the
// signature, the metavariable store, postponed conversion constraints
// and the step counter. It must not be shared across goroutines.
type Elaborator struct {
	sig        *Signature
	metas      *MetaStore
	opts       Options
	postponed  []constraint
	finalizing bool
	retrying   bool
	steps      int
	letMemo    map[ast.Identifier]Value
}

func New(opts Options) *Elaborator {
	return &Elaborator{
		sig:     NewSignature(),
		metas:   NewMetaStore(),
		opts:    opts,
		letMemo: map[ast.Identifier]Value{},
	}
}

// Signature exposes the signature built so far.
func (el *Elaborator) Signature() *Signature {
	return el.sig
}

// Metas exposes the metavariable table.
func (el *Elaborator) Metas() *MetaStore {
	return el.metas
}

// Normalize evaluates a closed term and reads the result back: the
// β-normal form used by the driver for printing and by tests.
func (el *Elaborator) Normalize(e resolved.Exp) (resolved.Exp, error) {
	v, err := el.eval(emptyEnv(), e)
	if err != nil {
		return nil, err
	}
	return el.readback(0, v)
}

// NormalizeAt additionally η-expands the result at the given type,
// which must be closed as well.
func (el *Elaborator) NormalizeAt(typ resolved.Exp, e resolved.Exp) (resolved.Exp, error) {
	tyV, err := el.eval(emptyEnv(), typ)
	if err != nil {
		return nil, err
	}
	v, err := el.eval(emptyEnv(), e)
	if err != nil {
		return nil, err
	}
	return el.readbackAt(0, tyV, v)
}

// Convert checks the convertibility of two closed terms.
func (el *Elaborator) Convert(lhs, rhs resolved.Exp) error {
	lv, err := el.eval(emptyEnv(), lhs)
	if err != nil {
		return err
	}
	rv, err := el.eval(emptyEnv(), rhs)
	if err != nil {
		return err
	}
	return el.convert(lhs.GetLocation(), 0, lv, rv)
}

// runDecl converts invariant-violation panics into compiler-bug errors
// so one broken declaration cannot take down the whole task.
func (el *Elaborator) runDecl(f func() (resolved.Decl, error)) (out resolved.Decl, err error) {
	defer func() {
		if r := recover(); r != nil {
			if sysErr, ok := r.(common.SystemError); ok {
				out, err = nil, common.NewCompilerError(sysErr.Message)
				return
			}
			panic(r)
		}
	}()
	return f()
}

// metaRange is the span of metavariable IDs a declaration allocated.
type metaRange struct {
	start int
	end   int
}

// finalizeDecl drains postponed constraints and enforces that every
// metavariable the declaration allocated (in its head or its body)
// which must be solved has been solved. Open can-solve holes survive
// as user-visible goals.
func (el *Elaborator) finalizeDecl(ranges ...metaRange) error {
	if err := el.drainPostponed(); err != nil {
		return err
	}
	entries := el.metas.Entries()
	for _, r := range ranges {
		end := r.end
		if end > len(entries) {
			end = len(entries)
		}
		for _, entry := range entries[r.start:end] {
			if entry.Kind.MustBeSolved() && !entry.Solved() {
				return common.Error{
					Kind:     common.KindUnsolvedMeta,
					Location: entry.Location,
					Message:  fmt.Sprintf("metavariable %v could not be solved", entry.Meta),
				}
			}
		}
	}
	return nil
}

func (el *Elaborator) traceDecl(decl resolved.Decl, boundary int) {
	if el.opts.Trace == nil {
		return
	}
	fmt.Fprintf(el.opts.Trace, "\n%s\n---\n%v\n", decl.GetName(), decl)
	for _, entry := range el.metas.Entries()[boundary:] {
		if entry.Solved() {
			fmt.Fprintf(el.opts.Trace, "| %v | `%v` |\n", entry.Meta, entry.Solution)
		} else {
			fmt.Fprintf(el.opts.Trace, "| %v | open |\n", entry.Meta)
		}
	}
}

// ElaborateModule elaborates all declarations of a module in source
// order: first every declaration head, then every body. An error in
// one declaration drops that declaration and continues with the next,
// so partial typed output is produced for the rest.
func (el *Elaborator) ElaborateModule(m *resolved.Module) (*resolved.Module, []error) {
	var errs []error

	failed := make([]bool, len(m.Decls))
	for i, d := range m.Decls {
		if err := el.sig.Insert(d); err != nil {
			errs = append(errs, err)
			failed[i] = true
		}
	}

	heads := make([]resolved.Decl, 0, len(m.Decls))
	headRanges := make([]metaRange, len(m.Decls))
	for i, d := range m.Decls {
		if failed[i] {
			heads = append(heads, d)
			continue
		}
		start := el.metas.Len()
		out, err := el.runDecl(func() (resolved.Decl, error) { return el.checkDeclHead(d) })
		headRanges[i] = metaRange{start: start, end: el.metas.Len()}
		if err != nil {
			errs = append(errs, err)
			failed[i] = true
			heads = append(heads, d)
			continue
		}
		el.sig.Replace(out)
		heads = append(heads, out)
	}

	typed := &resolved.Module{
		Name:        m.Name,
		Imports:     m.Imports,
		SymbolTable: m.SymbolTable,
	}
	for i, d := range heads {
		if failed[i] {
			continue
		}
		boundary := el.metas.Len()
		out, err := el.runDecl(func() (resolved.Decl, error) { return el.checkDeclBody(d) })
		if err == nil {
			err = el.finalizeDecl(headRanges[i], metaRange{start: boundary, end: el.metas.Len()})
		}
		if err != nil {
			errs = append(errs, err)
			el.postponed = nil
			continue
		}
		el.sig.Replace(out)
		typed.Decls = append(typed.Decls, out)
		el.traceDecl(out, boundary)
	}
	return typed, errs
}

// Elaborate runs a fresh elaboration task over one module. The typed
// declarations of the imports are inserted into the signature first.
func Elaborate(m *resolved.Module, imports []*resolved.Module, opts Options) (*resolved.Module, *MetaStore, []error) {
	el := New(opts)
	var errs []error
	for _, imp := range imports {
		for _, d := range imp.Decls {
			if err := el.sig.Insert(d); err != nil {
				errs = append(errs, err)
			}
		}
	}
	typed, moduleErrs := el.ElaborateModule(m)
	errs = append(errs, moduleErrs...)
	return typed, el.metas, errs
}

// ElaborateAll elaborates a set of modules, running modules whose
// imports are already done in parallel. Every module gets its own
// elaboration task; the core itself stays single-threaded per task.
func ElaborateAll(modules []*resolved.Module, opts Options) (map[ast.QualifiedIdentifier]*resolved.Module, map[ast.QualifiedIdentifier]*MetaStore, []error) {
	byName := map[ast.QualifiedIdentifier]*resolved.Module{}
	for _, m := range modules {
		byName[m.Name] = m
	}

	typed := map[ast.QualifiedIdentifier]*resolved.Module{}
	metas := map[ast.QualifiedIdentifier]*MetaStore{}
	var errs []error
	var mu sync.Mutex

	for _, m := range modules {
		for _, imp := range m.Imports {
			if _, ok := byName[imp]; !ok {
				errs = append(errs, common.Error{
					Kind:    common.KindUndeclaredName,
					Message: fmt.Sprintf("module `%s` imports unknown module `%s`", m.Name, imp),
				})
			}
		}
	}

	done := map[ast.QualifiedIdentifier]bool{}
	remaining := len(modules)
	for remaining > 0 {
		var wave []*resolved.Module
		for _, m := range modules {
			if done[m.Name] {
				continue
			}
			ready := true
			for _, imp := range m.Imports {
				if _, known := byName[imp]; known && !done[imp] {
					ready = false
				}
			}
			if ready {
				wave = append(wave, m)
			}
		}
		if len(wave) == 0 {
			errs = append(errs, common.NewCompilerError("import cycle between modules"))
			break
		}

		var g errgroup.Group
		for _, m := range wave {
			m := m
			g.Go(func() error {
				var imports []*resolved.Module
				mu.Lock()
				for _, imp := range m.Imports {
					if t, ok := typed[imp]; ok {
						imports = append(imports, t)
					}
				}
				mu.Unlock()
				t, ms, moduleErrs := Elaborate(m, imports, opts)
				mu.Lock()
				typed[m.Name] = t
				metas[m.Name] = ms
				errs = append(errs, moduleErrs...)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		for _, m := range wave {
			done[m.Name] = true
			remaining--
		}
	}
	return typed, metas, errs
}
