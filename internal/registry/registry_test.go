package registry

import (
	"testing"

	"ctxc/internal/source"
)

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	foo, fresh := r.Register("FOO", "u32", false, source.Span{File: 1, Start: 0, End: 3})
	if !fresh || !foo.IsValid() {
		t.Fatalf("Register(FOO) = (%v, %v), want fresh valid id", foo, fresh)
	}
	bar, _ := r.Register("BAR", "f32", false, source.Span{})
	if bar == foo {
		t.Fatalf("distinct items share an id: %v", foo)
	}

	again, fresh := r.Register("FOO", "u64", true, source.Span{})
	if fresh {
		t.Fatalf("re-registering FOO reported fresh")
	}
	if again != foo {
		t.Fatalf("re-register returned %v, want %v", again, foo)
	}
	// первая регистрация выигрывает
	if it := r.Get(foo); it.Type != "u32" || it.Generic {
		t.Fatalf("item mutated by re-register: %+v", it)
	}

	id, ok := r.Lookup("BAR")
	if !ok || id != bar {
		t.Fatalf("Lookup(BAR) = (%v, %v), want (%v, true)", id, ok, bar)
	}
	if _, ok := r.Lookup("MISSING"); ok {
		t.Fatalf("Lookup(MISSING) succeeded")
	}

	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}
	if got := r.Name(NoItemID); got != "?" {
		t.Fatalf("Name(NoItemID) = %q, want %q", got, "?")
	}
}

func TestMutLattice(t *testing.T) {
	if MutRead.Max(MutWrite) != MutWrite || MutWrite.Max(MutRead) != MutWrite {
		t.Fatalf("Max is not commutative on the write side")
	}
	if MutRead.Max(MutRead) != MutRead {
		t.Fatalf("Max(read, read) != read")
	}
	if !MutWrite.Satisfies(MutRead) {
		t.Fatalf("write source must satisfy read requirement")
	}
	if MutRead.Satisfies(MutWrite) {
		t.Fatalf("read source must not satisfy write requirement")
	}
	if MutWrite.Borrow() != "&mut" || MutRead.Borrow() != "&" {
		t.Fatalf("Borrow rendering wrong: %q %q", MutWrite.Borrow(), MutRead.Borrow())
	}
}
