package completion

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

var names = []string{"add", "concat", "counter", "div", "metro", "mul", "number", "print", "split", "string", "sub", "tostring"}

func TestNone(t *testing.T) {
	if got := None.Complete("add"); got != nil {
		t.Errorf("None.Complete() = %v, want nil", got)
	}
}

func TestPrefix(t *testing.T) {
	p := NewPrefix(names, 0)
	tests := []struct {
		text string
		want []string
	}{
		{"c", []string{"concat", "counter"}},
		{"S", []string{"split", "string", "sub"}},
		{"st", []string{"string"}},
		{"add", nil},
		{"", nil},
		{"add 1", nil},
		{"zzz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, p.Complete(tt.text)); diff != "" {
				t.Errorf("Complete(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestPrefixLimit(t *testing.T) {
	p := NewPrefix(names, 2)
	if got := p.Complete("s"); len(got) != 2 {
		t.Errorf("Complete(s) = %v, want 2 entries", got)
	}
}

func TestFuzzy(t *testing.T) {
	f := NewFuzzy(names, 0)

	got := f.Complete("sg")
	if len(got) == 0 || got[0] != "string" {
		t.Errorf("Complete(sg) = %v, want string first", got)
	}
	for _, n := range got {
		if n == "add" {
			t.Errorf("Complete(sg) should not contain %q", n)
		}
	}
	if got := f.Complete("xyz"); got != nil {
		t.Errorf("Complete(xyz) = %v, want nil", got)
	}
	if got := f.Complete("a b"); got != nil {
		t.Errorf("Complete with arguments = %v, want nil", got)
	}
}

func TestNew(t *testing.T) {
	for _, mode := range Modes {
		if _, ok := New(mode, names, 0); !ok {
			t.Errorf("New(%q) not accepted", mode)
		}
	}
	if _, ok := New("bogus", names, 0); ok {
		t.Error("New(bogus) should be rejected")
	}
}

func TestFunc(t *testing.T) {
	p := Func(func(s string) []string { return []string{s + "!"} })
	if diff := cmp.Diff([]string{"x!"}, p.Complete("x")); diff != "" {
		t.Errorf("Func mismatch (-want +got):\n%s", diff)
	}
}
