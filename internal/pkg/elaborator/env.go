package elaborator

import (
	"fmt"

	"github.com/polarity-lang/polarity/internal/pkg/common"
)

// Env is an immutable sequence of values for the free variables of a
// term, ordered outermost first. Lookup is by De Bruijn index, i.e.
// from the back.
type Env struct {
	values []Value
}

func emptyEnv() *Env {
	return &Env{}
}

func envOf(values []Value) *Env {
	return &Env{values: values}
}

func (e *Env) Len() int {
	return len(e.values)
}

// Lookup resolves a De Bruijn index. An out-of-range index is a
// structural bug in the input, not a user error.
func (e *Env) Lookup(idx int) Value {
	if idx < 0 || idx >= len(e.values) {
		panic(common.SystemError{Message: fmt.Sprintf("environment lookup out of range: %d in %d", idx, len(e.values))})
	}
	return e.values[len(e.values)-1-idx]
}

// Extend returns a new environment with vs bound innermost. The
// receiver is unchanged.
func (e *Env) Extend(vs ...Value) *Env {
	values := make([]Value, 0, len(e.values)+len(vs))
	values = append(values, e.values...)
	values = append(values, vs...)
	return &Env{values: values}
}
