package ir

import (
	"hash/maphash"
	"math"
	"testing"

	"github.com/google/uuid"
)

func TestValueEqual(t *testing.T) {
	if !NewInt(42).Equal(NewInt(42)) {
		t.Error("equal ints should compare equal")
	}
	if NewInt(42).Equal(NewInt(43)) {
		t.Error("unequal ints should not compare equal")
	}
	if !Null().Equal(Null()) {
		t.Error("Null should equal Null")
	}
	if NewInt(1).Equal(NewFloat(1)) {
		t.Error("values of different kinds should never be equal")
	}

	nan := math.NaN()
	if !NewFloat(nan).Equal(NewFloat(nan)) {
		t.Error("NaN should equal NaN under bit-pattern equality")
	}

	a := NewList([]Value{NewInt(1), NewText("x")})
	b := NewList([]Value{NewInt(1), NewText("x")})
	c := NewList([]Value{NewInt(1), NewText("y")})
	if !a.Equal(b) {
		t.Error("equal lists should compare equal")
	}
	if a.Equal(c) {
		t.Error("lists differing in an element should not compare equal")
	}

	m1 := NewMap(map[string]Value{"a": NewInt(1)})
	m2 := NewMap(map[string]Value{"a": NewInt(1)})
	if !m1.Equal(m2) {
		t.Error("equal maps should compare equal")
	}
}

func TestValueHash(t *testing.T) {
	seed := maphash.MakeSeed()
	if NewInt(1).Hash(seed) != NewInt(1).Hash(seed) {
		t.Error("hashing is expected to be deterministic for a fixed seed")
	}
	if NewText("a").Hash(seed) == NewText("b").Hash(seed) {
		t.Error("distinct texts colliding on the first attempt is unexpected here")
	}
}

func TestValueHashPanicsOnContainers(t *testing.T) {
	for _, v := range []Value{
		NewList([]Value{NewInt(1)}),
		NewSet([]Value{NewInt(1)}),
		NewMap(map[string]Value{"a": NewInt(1)}),
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Hash(%v) should panic: lists/maps/sets are excluded from hashing", v.Kind())
				}
			}()
			v.Hash(maphash.MakeSeed())
		}()
	}
}

func TestValueTotalOrderLess(t *testing.T) {
	if !NewInt(1).TotalOrderLess(NewInt(2)) {
		t.Error("1 should sort before 2")
	}
	if NewInt(2).TotalOrderLess(NewInt(1)) {
		t.Error("2 should not sort before 1")
	}

	neg := NewFloat(math.Copysign(0, -1))
	pos := NewFloat(0)
	if !neg.TotalOrderLess(pos) {
		t.Error("-0.0 should sort before +0.0 under bit-pattern total order")
	}

	// Every float, including NaN, must fit somewhere in the order without
	// panicking and without being less than itself.
	nan := NewFloat(math.NaN())
	if nan.TotalOrderLess(nan) {
		t.Error("a value should never sort strictly less than itself")
	}
}

func TestValueRoundTrips(t *testing.T) {
	u := uuid.New()
	if got := NewUUID(u).UUID(); got != u {
		t.Errorf("UUID round trip = %v, want %v", got, u)
	}

	var oid ObjectID
	copy(oid[:], "abcdefghijkl")
	if got := NewObjectID(oid).ObjectID(); got != oid {
		t.Errorf("ObjectID round trip = %v, want %v", got, oid)
	}

	vec := []float32{1, 2, 3}
	got := NewVector(vec).Vector()
	if len(got) != len(vec) {
		t.Fatalf("vector round trip length = %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("vector[%d] = %v, want %v", i, got[i], vec[i])
		}
	}

	if NewBool(true).Bool() != true || NewBool(false).Bool() != false {
		t.Error("bool round trip failed")
	}
	if Null().Kind() != KindNull || !Null().IsNull() {
		t.Error("Null() should report KindNull and IsNull() == true")
	}
	if NewInt(5).IsNull() {
		t.Error("a non-null value should report IsNull() == false")
	}
}
