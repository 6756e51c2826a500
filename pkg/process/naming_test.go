package process

import "testing"

func TestMakeUniqueName_Format(t *testing.T) {
	name := makeUniqueName(1234)
	if name == "" {
		t.Fatal("expected non-empty name")
	}
	// adj-noun-counter-pid
	parts := splitName(name)
	if len(parts) != 4 {
		t.Fatalf("expected 4 dash-separated parts, got %d in %q", len(parts), name)
	}
	if parts[3] != "1234" {
		t.Errorf("expected pid suffix 1234, got %q", parts[3])
	}
}

func TestMakeUniqueName_CounterIncreases(t *testing.T) {
	a := makeUniqueName(1)
	b := makeUniqueName(1)
	if a == b {
		t.Errorf("expected distinct names for successive calls, got %q twice", a)
	}
}

func splitName(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '-' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}
