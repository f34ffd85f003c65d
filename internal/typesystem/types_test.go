package typesystem

import "testing"

func TestUnifyUnknownTakesOtherShape(t *testing.T) {
	got, err := Unify(Unknown{}, Int{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := got.(Int); !ok {
		t.Fatalf("expected Int, got %#v", got)
	}
}

func TestUnifyFnRecurses(t *testing.T) {
	a := &Fn{Arg: Unknown{}, Ret: Int{}}
	b := &Fn{Arg: Int{}, Ret: Unknown{}}
	got, err := Unify(a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fn := got.(*Fn)
	if _, ok := fn.Arg.(Int); !ok {
		t.Fatalf("expected Int arg, got %#v", fn.Arg)
	}
	if _, ok := fn.Ret.(Int); !ok {
		t.Fatalf("expected Int ret, got %#v", fn.Ret)
	}
}

func TestUnifyMismatchErrors(t *testing.T) {
	_, err := Unify(Int{}, &Fn{Arg: Int{}, Ret: Int{}})
	if err == nil {
		t.Fatal("expected a unification error between Int and Fn")
	}
}

func TestSplitUnknownShortCircuits(t *testing.T) {
	arg, ret, err := Split(Unknown{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !IsUnknown(arg) || !IsUnknown(ret) {
		t.Fatalf("expected (Unknown, Unknown), got (%s, %s)", arg, ret)
	}
}
