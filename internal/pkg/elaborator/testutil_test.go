package elaborator

import (
	"github.com/polarity-lang/polarity/internal/pkg/ast"
	"github.com/polarity-lang/polarity/internal/pkg/ast/resolved"
)

// Term builders. The helpers construct resolved trees the way the
// lowering stage would emit them, with empty locations.

func tVar(idx int, name string) resolved.Exp {
	return &resolved.Variable{Index: idx, Name: ast.Identifier(name)}
}

func tType() resolved.Exp {
	return &resolved.TypeUniv{}
}

func tArgs(exps ...resolved.Exp) []resolved.Arg {
	out := make([]resolved.Arg, len(exps))
	for i, e := range exps {
		out[i] = resolved.Arg{Exp: e}
	}
	return out
}

func tData(name string, args ...resolved.Exp) *resolved.TypCtor {
	return &resolved.TypCtor{Name: ast.Identifier(name), Args: tArgs(args...)}
}

func tCodata(name string, args ...resolved.Exp) *resolved.CoTypCtor {
	return &resolved.CoTypCtor{Name: ast.Identifier(name), Args: tArgs(args...)}
}

func tCtor(name string, args ...resolved.Exp) resolved.Exp {
	return &resolved.Call{Kind: resolved.CallConstructor, Name: ast.Identifier(name), Args: tArgs(args...)}
}

func tCodef(name string, args ...resolved.Exp) resolved.Exp {
	return &resolved.Call{Kind: resolved.CallCodefinition, Name: ast.Identifier(name), Args: tArgs(args...)}
}

func tLet(name string, args ...resolved.Exp) resolved.Exp {
	return &resolved.Call{Kind: resolved.CallLetBound, Name: ast.Identifier(name), Args: tArgs(args...)}
}

func tDef(exp resolved.Exp, name string, args ...resolved.Exp) resolved.Exp {
	return &resolved.DotCall{Kind: resolved.DotCallDefinition, Exp: exp, Name: ast.Identifier(name), Args: tArgs(args...)}
}

func tProj(exp resolved.Exp, name string, args ...resolved.Exp) resolved.Exp {
	return &resolved.DotCall{Kind: resolved.DotCallDestructor, Exp: exp, Name: ast.Identifier(name), Args: tArgs(args...)}
}

func tHole(kind resolved.HoleKind) resolved.Exp {
	return &resolved.Hole{Kind: kind}
}

func tParam(name string, typ resolved.Exp) *resolved.Param {
	return &resolved.Param{Name: ast.Identifier(name), Typ: typ}
}

func tTele(params ...*resolved.Param) resolved.Telescope {
	return resolved.Telescope{Params: params}
}

func tBinders(names ...string) resolved.TelescopeInst {
	out := make([]*resolved.ParamInst, len(names))
	for i, n := range names {
		out[i] = &resolved.ParamInst{Name: ast.Identifier(n)}
	}
	return resolved.TelescopeInst{Params: out}
}

func tClause(name string, binders []string, body resolved.Exp) *resolved.Case {
	return &resolved.Case{
		Pattern: resolved.Pattern{Name: ast.Identifier(name), Params: tBinders(binders...)},
		Body:    body,
	}
}

func tCoclause(name string, binders []string, body resolved.Exp) *resolved.Case {
	return &resolved.Case{
		Pattern: resolved.Pattern{IsCopattern: true, Name: ast.Identifier(name), Params: tBinders(binders...)},
		Body:    body,
	}
}

func tAbsurd(name string) *resolved.Case {
	return &resolved.Case{
		Pattern: resolved.Pattern{Name: ast.Identifier(name)},
	}
}

// Declarations of the shared test prelude.

// data Nat { Z, S(n: Nat) }
func natDecl() *resolved.Data {
	return &resolved.Data{
		Name: "Nat",
		Ctors: []*resolved.Ctor{
			{Name: "Z"},
			{Name: "S", Params: tTele(tParam("n", tData("Nat")))},
		},
	}
}

// data Bool { True, False }
func boolDecl() *resolved.Data {
	return &resolved.Data{
		Name: "Bool",
		Ctors: []*resolved.Ctor{
			{Name: "True"},
			{Name: "False"},
		},
	}
}

// data Eq(a: Type, x: a, y: a) { Refl(a: Type, x: a): Eq(a, x, x) }
func eqDecl() *resolved.Data {
	return &resolved.Data{
		Name: "Eq",
		Params: tTele(
			tParam("a", tType()),
			tParam("x", tVar(0, "a")),
			tParam("y", tVar(1, "a")),
		),
		Ctors: []*resolved.Ctor{
			{
				Name: "Refl",
				Params: tTele(
					tParam("a", tType()),
					tParam("x", tVar(0, "a")),
				),
				TypArgs: tArgs(tVar(1, "a"), tVar(0, "x"), tVar(0, "x")),
			},
		},
	}
}

// def Nat.add(m: Nat): Nat { Z => m, S(n) => S(n.add(m)) }
func addDecl() *resolved.Def {
	return &resolved.Def{
		Name:    "add",
		Params:  tTele(tParam("m", tData("Nat"))),
		SelfTyp: tData("Nat"),
		Ret:     tData("Nat"),
		Cases: []*resolved.Case{
			tClause("Z", nil, tVar(0, "m")),
			tClause("S", []string{"n"}, tCtor("S", tDef(tVar(0, "n"), "add", tVar(1, "m")))),
		},
	}
}

// data Vec(n: Nat) { VNil: Vec(Z), VCons(n: Nat, x: Nat, xs: Vec(n)): Vec(S(n)) }
func vecDecl() *resolved.Data {
	return &resolved.Data{
		Name:   "Vec",
		Params: tTele(tParam("n", tData("Nat"))),
		Ctors: []*resolved.Ctor{
			{Name: "VNil", TypArgs: tArgs(tCtor("Z"))},
			{
				Name: "VCons",
				Params: tTele(
					tParam("n", tData("Nat")),
					tParam("x", tData("Nat")),
					tParam("xs", tData("Vec", tVar(1, "n"))),
				),
				TypArgs: tArgs(tCtor("S", tVar(2, "n"))),
			},
		},
	}
}

// codata Stream { .head: Nat, .tail: Stream }
func streamDecl() *resolved.Codata {
	return &resolved.Codata{
		Name: "Stream",
		Dtors: []*resolved.Dtor{
			{Name: "head", SelfName: "s", SelfTyp: tCodata("Stream"), Ret: tData("Nat")},
			{Name: "tail", SelfName: "s", SelfTyp: tCodata("Stream"), Ret: tCodata("Stream")},
		},
	}
}

func natNum(n int) resolved.Exp {
	e := tCtor("Z")
	for i := 0; i < n; i++ {
		e = tCtor("S", e)
	}
	return e
}

func module(decls ...resolved.Decl) *resolved.Module {
	return &resolved.Module{Name: "test.Main", Decls: decls}
}

func elaborate(decls ...resolved.Decl) (*Elaborator, *resolved.Module, []error) {
	el := New(Options{})
	typed, errs := el.ElaborateModule(module(decls...))
	return el, typed, errs
}

func findDecl(m *resolved.Module, name string) resolved.Decl {
	for _, d := range m.Decls {
		if d.GetName() == ast.Identifier(name) {
			return d
		}
	}
	return nil
}
