package part

import "testing"

func TestAsReturnedPreservesType(t *testing.T) {
	for _, ty := range Types {
		p := New(ty, 42)
		r := p.AsReturned()
		if r.Type != ty {
			t.Fatalf("AsReturned changed type: got %v want %v", r.Type, ty)
		}
		if !r.Returned() {
			t.Fatalf("AsReturned part should report Returned()")
		}
		if p.Returned() {
			t.Fatalf("original part should not report Returned()")
		}
	}
}

func TestStringFormatting(t *testing.T) {
	p := New(A, 7)
	if got, want := p.String(), "A#7"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	r := p.AsReturned()
	if got, want := r.String(), "A(returned)"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
