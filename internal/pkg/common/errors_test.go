package common

import (
	"strings"
	"testing"

	"github.com/polarity-lang/polarity/internal/pkg/ast"
)

func TestErrorRendersSnippetWithCaret(t *testing.T) {
	content := []rune("let foo : Nat { True }\n")
	loc := ast.NewLocation("m.pol", content, 16, 20)
	err := Error{
		Kind:     KindTypeMismatch,
		Location: loc,
		Message:  "expected `Nat`, got `Bool`",
	}
	rendered := err.Error()
	if !strings.Contains(rendered, "m.pol:1:17 type mismatch") {
		t.Errorf("missing cursor line:\n%s", rendered)
	}
	if !strings.Contains(rendered, "let foo : Nat { True }") {
		t.Errorf("missing snippet:\n%s", rendered)
	}
	caretLine := ""
	for _, line := range strings.Split(rendered, "\n") {
		if strings.Contains(line, "^") {
			caretLine = line
		}
	}
	if caretLine == "" {
		t.Fatalf("missing caret:\n%s", rendered)
	}
	if got := strings.Index(caretLine, "^"); got != 2+16 {
		t.Errorf("caret at column %d, want %d", got, 2+16)
	}
}

func TestErrorCaretAccountsForWideRunes(t *testing.T) {
	content := []rune("let 宽 : Nat { True }\n")
	// The T of True is the 15th rune; locations index runes, not bytes.
	loc := ast.NewLocation("m.pol", content, 14, 18)
	err := Error{Kind: KindTypeMismatch, Location: loc, Message: "boom"}
	rendered := err.Error()
	caretLine := ""
	for _, line := range strings.Split(rendered, "\n") {
		if strings.Contains(line, "^") {
			caretLine = line
		}
	}
	if caretLine == "" {
		t.Fatalf("missing caret:\n%s", rendered)
	}
	// The wide rune occupies two display cells, so the caret moves one
	// cell further right than the rune count suggests.
	runeCol := len([]rune("let 宽 : Nat { "))
	if got := strings.Index(caretLine, "^"); got != 2+runeCol+1 {
		t.Errorf("caret at %d, want %d", got, 2+runeCol+1)
	}
}

func TestErrorDeduplicatesExtraLocations(t *testing.T) {
	content := []rune("data Nat {}\n")
	loc := ast.NewLocation("m.pol", content, 0, 4)
	err := Error{
		Kind:     KindDuplicateDeclaration,
		Location: loc,
		Extra:    []ast.Location{loc, loc},
		Message:  "duplicate",
	}
	rendered := err.Error()
	if strings.Count(rendered, "+ m.pol") != 1 {
		t.Errorf("secondary locations not deduplicated:\n%s", rendered)
	}
}

func TestEmptyLocationStillRendersKind(t *testing.T) {
	err := Error{Kind: KindUnsolvedMeta, Message: "metavariable ?0 could not be solved"}
	if !strings.Contains(err.Error(), "unsolved metavariable") {
		t.Errorf("kind missing from %q", err.Error())
	}
}

func TestSystemErrorAndCompilerError(t *testing.T) {
	if !strings.Contains(SystemError{Message: "broken"}.Error(), "compiler bug") {
		t.Errorf("system error lost its marker")
	}
	err := NewCompilerError("invariant violated")
	if !strings.Contains(err.Error(), "errors_test.go") {
		t.Errorf("compiler error does not carry its call site: %v", err)
	}
}
