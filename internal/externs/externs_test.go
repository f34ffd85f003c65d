package externs

import "testing"

func TestSeedIsPreloaded(t *testing.T) {
	r, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	arity, ok, err := r.Lookup("puts")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !ok || arity != 1 {
		t.Fatalf("expected puts/1 to be pre-seeded, got arity=%d ok=%v", arity, ok)
	}
}

func TestAddAndLookupOverwrite(t *testing.T) {
	r, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	if err := r.Add("myfunc", 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	arity, ok, err := r.Lookup("myfunc")
	if err != nil || !ok || arity != 3 {
		t.Fatalf("expected myfunc/3, got arity=%d ok=%v err=%v", arity, ok, err)
	}

	if err := r.Add("myfunc", 5); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	arity, ok, err = r.Lookup("myfunc")
	if err != nil || !ok || arity != 5 {
		t.Fatalf("expected overwritten myfunc/5, got arity=%d ok=%v err=%v", arity, ok, err)
	}
}

func TestLookupUnknownReturnsNotOK(t *testing.T) {
	r, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	_, ok, err := r.Lookup("does_not_exist")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if ok {
		t.Fatal("expected an unknown extern to report ok=false")
	}
}

func TestListIncludesSeedAndAdded(t *testing.T) {
	r, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer r.Close()

	if err := r.Add("custom", 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	all, err := r.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if all["custom"] != 2 {
		t.Fatalf("expected custom/2 in list, got %v", all)
	}
	if all["puts"] != 1 {
		t.Fatalf("expected seeded puts/1 in list, got %v", all)
	}
}
