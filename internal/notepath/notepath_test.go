package notepath

import (
	"reflect"
	"testing"
)

func TestValidate(t *testing.T) {
	valid := []string{"a", "work/project/todo", "x y/z"}
	for _, p := range valid {
		if err := Validate(p); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", p, err)
		}
	}
	invalid := []string{"", "/a", "a/", "a//b", "a/../b", "./a"}
	for _, p := range invalid {
		if err := Validate(p); err == nil {
			t.Errorf("Validate(%q) = nil, want error", p)
		}
	}
}

func TestBaseParent(t *testing.T) {
	cases := []struct {
		in, base, parent string
	}{
		{"a/b/c", "c", "a/b"},
		{"todo", "todo", ""},
		{"", "", ""},
	}
	for _, c := range cases {
		if got := Base(c.in); got != c.base {
			t.Errorf("Base(%q) = %q, want %q", c.in, got, c.base)
		}
		if got := Parent(c.in); got != c.parent {
			t.Errorf("Parent(%q) = %q, want %q", c.in, got, c.parent)
		}
	}
}

func TestAncestors(t *testing.T) {
	if got := Ancestors("a/b/c"); !reflect.DeepEqual(got, []string{"a", "a/b"}) {
		t.Errorf("Ancestors = %v", got)
	}
	if got := Ancestors("top"); len(got) != 0 {
		t.Errorf("Ancestors(top) = %v, want empty", got)
	}
}

func TestMoveTarget(t *testing.T) {
	if got := MoveTarget("a/b/c", "x"); got != "x/c" {
		t.Errorf("got %q", got)
	}
	if got := MoveTarget("a/b/c", ""); got != "c" {
		t.Errorf("got %q", got)
	}
}

func TestJoinSkipsEmpty(t *testing.T) {
	if got := Join("", "a", "", "b"); got != "a/b" {
		t.Errorf("Join = %q", got)
	}
}
