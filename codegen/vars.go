package codegen

import "fmt"

// Vars allocates fresh local variable names. Names are "{stem}_{n}" with a
// per-stem counter. Scope pushes a clone of the current counters so sibling
// trampolines can reuse names while nested renders never clash.
type Vars struct {
	usedNames []map[string]int
}

// NewVars creates an allocator with a single root scope.
func NewVars() *Vars {
	return &Vars{usedNames: []map[string]int{{}}}
}

func (v *Vars) names() map[string]int {
	return v.usedNames[len(v.usedNames)-1]
}

// Next returns a fresh name for the given stem.
func (v *Vars) Next(stem string) string {
	names := v.names()
	next := names[stem]
	names[stem] = next + 1
	return fmt.Sprintf("%s_%d", stem, next)
}

// Many returns count fresh names for the given stem.
func (v *Vars) Many(count int, stem string) []string {
	out := make([]string, count)
	for i := range out {
		out[i] = v.Next(stem)
	}
	return out
}

// Scope pushes a clone of the current counters.
func (v *Vars) Scope() {
	cloned := make(map[string]int, len(v.names()))
	for k, n := range v.names() {
		cloned[k] = n
	}
	v.usedNames = append(v.usedNames, cloned)
}

// Unscope pops the innermost scope.
func (v *Vars) Unscope() {
	if len(v.usedNames) == 1 {
		panic("cannot unscope last scope")
	}
	v.usedNames = v.usedNames[:len(v.usedNames)-1]
}
