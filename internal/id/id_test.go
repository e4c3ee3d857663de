package id

import "testing"

func TestContent_Stable(t *testing.T) {
	a := Content([]byte("payload"))
	b := Content([]byte("payload"))
	if a != b {
		t.Errorf("Content() not stable: %q != %q", a, b)
	}
	if len(a) != 32 {
		t.Errorf("Content() length = %d, want 32", len(a))
	}
}

func TestContent_Distinct(t *testing.T) {
	if Content([]byte("a")) == Content([]byte("b")) {
		t.Error("distinct payloads produced the same id")
	}
}

func TestShort(t *testing.T) {
	a := Short()
	if len(a) != 16 {
		t.Errorf("Short() length = %d, want 16", len(a))
	}
	if a == Short() {
		t.Error("Short() produced a duplicate")
	}
}
