package common

import (
	"fmt"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/text/width"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
)

// ErrorKind classifies elaboration errors so that downstream consumers
// (driver, LSP) can react without parsing messages.
type ErrorKind int

const (
	KindTypeMismatch ErrorKind = iota
	KindOccursCheck
	KindScopeViolation
	KindUniverseMismatch
	KindCannotInfer
	KindNonExhaustiveMatch
	KindRedundantClause
	KindUnknownClause
	KindArityMismatch
	KindPatternIsAbsurd
	KindPatternNotAbsurd
	KindUnsolvedMeta
	KindMetaConflict
	KindCannotDecide
	KindCyclicEquation
	KindDuplicateDeclaration
	KindUndeclaredName
	KindStepBudgetExhausted
)

func (k ErrorKind) String() string {
	switch k {
	case KindTypeMismatch:
		return "type mismatch"
	case KindOccursCheck:
		return "occurs check failed"
	case KindScopeViolation:
		return "scope violation"
	case KindUniverseMismatch:
		return "universe mismatch"
	case KindCannotInfer:
		return "cannot infer"
	case KindNonExhaustiveMatch:
		return "non-exhaustive match"
	case KindRedundantClause:
		return "redundant clause"
	case KindUnknownClause:
		return "unknown clause"
	case KindArityMismatch:
		return "arity mismatch"
	case KindPatternIsAbsurd:
		return "clause is absurd"
	case KindPatternNotAbsurd:
		return "clause is not absurd"
	case KindUnsolvedMeta:
		return "unsolved metavariable"
	case KindMetaConflict:
		return "conflicting metavariable solutions"
	case KindCannotDecide:
		return "cannot decide equation"
	case KindCyclicEquation:
		return "cyclic equation"
	case KindDuplicateDeclaration:
		return "duplicate declaration"
	case KindUndeclaredName:
		return "undeclared name"
	case KindStepBudgetExhausted:
		return "step budget exhausted"
	}
	return "error"
}

// Error is the structured error value the elaborator reports to the
// driver. Location is the primary span, Extra holds secondary spans
// such as the place a conflicting type was introduced.
type Error struct {
	Kind     ErrorKind
	Location ast.Location
	Extra    []ast.Location
	Message  string
}

func (e Error) Error() string {
	sb := strings.Builder{}
	cursorString := e.Location.CursorString()
	if cursorString != "" {
		sb.WriteString(fmt.Sprintf("%s %s: %s\n", cursorString, e.Kind, e.Message))
		writeSnippet(&sb, e.Location)
	}

	var uniqueExtra []ast.Location
	for _, x := range e.Extra {
		if !slices.ContainsFunc(uniqueExtra, func(u ast.Location) bool {
			return u.EqualsTo(x)
		}) {
			uniqueExtra = append(uniqueExtra, x)
		}
	}

	for _, extra := range uniqueExtra {
		sb.WriteString(fmt.Sprintf("+ %s\n", extra.CursorString()))
	}

	if e.Location.IsEmpty() {
		sb.WriteString(fmt.Sprintf("%s: %s\n", e.Kind, e.Message))
	}
	return sb.String()
}

// writeSnippet renders the source line of loc with a caret under the
// offending column. The caret offset is computed from the display width
// of the preceding runes, not their count, so wide runes in user
// identifiers do not shift the marker.
func writeSnippet(sb *strings.Builder, loc ast.Location) {
	line := loc.LineText()
	if line == "" {
		return
	}
	_, col, _, _ := loc.GetLineAndColumn()
	pad := 0
	for i, r := range []rune(line) {
		if i >= col-1 {
			break
		}
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			pad += 2
		default:
			pad++
		}
	}
	sb.WriteString("  " + line + "\n")
	sb.WriteString("  " + strings.Repeat(" ", pad) + "^\n")
}

// SystemError marks an internal invariant violation. It is raised via
// panic and converted into a compiler-bug error at the elaboration
// boundary; it must never surface for well-formed input.
type SystemError struct {
	Message string
}

func (e SystemError) Error() string {
	return fmt.Sprintf("compiler bug: %s", e.Message)
}

func NewCompilerError(message string) error {
	_, file, line, _ := runtime.Caller(1)
	return compilerError{message: message, file: file, line: line}
}

type compilerError struct {
	message string
	file    string
	line    int
}

func (e compilerError) Error() string {
	return fmt.Sprintf("%s at %s:%d", e.message, e.file, e.line)
}
