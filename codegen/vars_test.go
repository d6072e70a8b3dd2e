package codegen_test

import (
	"testing"

	"github.com/roblox-rs/bindgen/codegen"
)

func TestVarsSequence(t *testing.T) {
	vars := codegen.NewVars()

	if got := vars.Next("param"); got != "param_0" {
		t.Errorf("Next = %q", got)
	}
	if got := vars.Next("param"); got != "param_1" {
		t.Errorf("Next = %q", got)
	}
	if got := vars.Next("spill"); got != "spill_0" {
		t.Errorf("Next = %q", got)
	}

	many := vars.Many(3, "output")
	want := []string{"output_0", "output_1", "output_2"}
	for i := range want {
		if many[i] != want[i] {
			t.Errorf("Many[%d] = %q, want %q", i, many[i], want[i])
		}
	}
}

func TestVarsScoping(t *testing.T) {
	vars := codegen.NewVars()

	vars.Next("param") // param_0

	// Nested scopes continue the outer counters, so inner names never
	// clash with names already in use.
	vars.Scope()
	if got := vars.Next("param"); got != "param_1" {
		t.Errorf("inner Next = %q", got)
	}
	vars.Unscope()

	// The inner allocation is forgotten once the scope pops.
	if got := vars.Next("param"); got != "param_1" {
		t.Errorf("outer Next = %q", got)
	}
}

func TestVarsUnscopeRootPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Unscope of root scope did not panic")
		}
	}()
	codegen.NewVars().Unscope()
}
