package statecodec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func roundTrip(t *testing.T, s *State) {
	t.Helper()
	enc := Encode(s)
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	reenc := Encode(got)
	if string(reenc) != string(enc) {
		t.Fatalf("round-trip mismatch: %x != %x", reenc, enc)
	}
}

func TestRoundTrip_Expr(t *testing.T) {
	roundTrip(t, &State{Tag: TagExpr, ExprId: 7})
	roundTrip(t, &State{Tag: TagExpr, ExprId: 9, Env: []Binding{{Name: "x", Value: 3}, {Name: "y", Value: -1}}})
}

func TestRoundTrip_Parallel(t *testing.T) {
	l := &State{Tag: TagExpr, ExprId: 1}
	r := &State{Tag: TagExpr, ExprId: 2}
	roundTrip(t, &State{Tag: TagParallel, Sync: []string{"a", "b"}, Left: l, Right: r})
}

func TestRoundTrip_Hide(t *testing.T) {
	inner := &State{Tag: TagExpr, ExprId: 4}
	roundTrip(t, &State{Tag: TagHide, Hide: []string{"a"}, Inner: inner})
}

func TestRoundTrip_Nested(t *testing.T) {
	leaf := &State{Tag: TagExpr, ExprId: 1, Env: []Binding{{Name: "x", Value: 5}}}
	hide := &State{Tag: TagHide, Hide: []string{"c"}, Inner: leaf}
	par := &State{Tag: TagParallel, Sync: []string{"a"}, Left: hide, Right: leaf}
	roundTrip(t, par)
}

func TestRoundTrip_Nested_DeepEqual(t *testing.T) {
	leaf := &State{Tag: TagExpr, ExprId: 1, Env: []Binding{{Name: "x", Value: 5}}}
	hide := &State{Tag: TagHide, Hide: []string{"c"}, Inner: leaf}
	par := &State{Tag: TagParallel, Sync: []string{"a"}, Left: hide, Right: leaf}
	got, err := Decode(Encode(par))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(par, got); diff != "" {
		t.Fatalf("decoded state mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_TruncatedRejected(t *testing.T) {
	s := &State{Tag: TagExpr, ExprId: 1, Env: []Binding{{Name: "x", Value: 1}}}
	enc := Encode(s)
	if _, err := Decode(enc[:len(enc)-1]); err == nil {
		t.Fatalf("expected error decoding truncated record")
	}
}

func TestCompare_Orders(t *testing.T) {
	a := Encode(&State{Tag: TagExpr, ExprId: 1})
	b := Encode(&State{Tag: TagExpr, ExprId: 2})
	if Compare(a, b) >= 0 {
		t.Fatalf("expected a < b")
	}
	if Compare(a, a) != 0 {
		t.Fatalf("expected equal records to compare 0")
	}
}
