package ir

import "testing"

func TestKeyFromString(t *testing.T) {
	k := KeyFromString("user-42")
	if k.String() != "user-42" {
		t.Errorf("String() = %q, want %q", k.String(), "user-42")
	}
	if len(k) != len("user-42") {
		t.Errorf("len(Key) = %d, want %d", len(k), len("user-42"))
	}
}
