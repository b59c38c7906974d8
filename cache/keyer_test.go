package cache

import (
	"strings"
	"testing"
)

func TestKeyerDeterministic(t *testing.T) {
	k := NewDefaultKeyer()

	vars := map[string]any{"limit": 10, "offset": 0}
	args := map[string]any{"id": "42"}

	first, err := k.Key("GetUser", vars, "profile", args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := k.Key("GetUser", vars, "profile", args)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if again != first {
			t.Fatalf("key not deterministic: %s vs %s", first, again)
		}
	}
}

func TestKeyerMapOrderIndependent(t *testing.T) {
	k := NewDefaultKeyer()

	// Two maps built in different insertion orders with equal contents.
	a := map[string]any{}
	a["alpha"] = 1
	a["beta"] = 2
	a["gamma"] = 3

	b := map[string]any{}
	b["gamma"] = 3
	b["alpha"] = 1
	b["beta"] = 2

	keyA, err := k.Key("Op", a, "field", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	keyB, err := k.Key("Op", b, "field", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if keyA != keyB {
		t.Errorf("equal maps produced different keys: %s vs %s", keyA, keyB)
	}
}

func TestKeyerNestedStructures(t *testing.T) {
	k := NewDefaultKeyer()

	varsA := map[string]any{
		"filter": map[string]any{"status": "active", "tags": []any{"a", "b"}},
	}
	varsB := map[string]any{
		"filter": map[string]any{"tags": []any{"a", "b"}, "status": "active"},
	}

	keyA, err := k.Key("Search", varsA, "results", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	keyB, err := k.Key("Search", varsB, "results", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if keyA != keyB {
		t.Errorf("nested map order changed the key: %s vs %s", keyA, keyB)
	}

	// Slice order is significant.
	varsC := map[string]any{
		"filter": map[string]any{"status": "active", "tags": []any{"b", "a"}},
	}
	keyC, err := k.Key("Search", varsC, "results", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if keyC == keyA {
		t.Error("expected different key for reordered slice")
	}
}

func TestKeyerDistinctInputs(t *testing.T) {
	k := NewDefaultKeyer()

	base, err := k.Key("Op", map[string]any{"x": 1}, "field", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	variants := []struct {
		name      string
		operation string
		vars      map[string]any
		field     string
		args      map[string]any
	}{
		{"different operation", "Other", map[string]any{"x": 1}, "field", nil},
		{"different variables", "Op", map[string]any{"x": 2}, "field", nil},
		{"different field", "Op", map[string]any{"x": 1}, "other", nil},
		{"different args", "Op", map[string]any{"x": 1}, "field", map[string]any{"a": 1}},
	}
	for _, tc := range variants {
		t.Run(tc.name, func(t *testing.T) {
			key, err := k.Key(tc.operation, tc.vars, tc.field, tc.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if key == base {
				t.Errorf("expected a distinct key, got duplicate %s", key)
			}
		})
	}
}

func TestKeyerAnonymousOperation(t *testing.T) {
	k := NewDefaultKeyer()

	key, err := k.Key("", nil, "field", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(key, KeyNamespace+":anonymous:field:") {
		t.Errorf("expected anonymous placeholder in key, got %s", key)
	}
}

func TestKeyerFormat(t *testing.T) {
	k := NewDefaultKeyer()

	key, err := k.Key("GetUser", nil, "profile", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parts := strings.Split(key, ":")
	if len(parts) != 4 {
		t.Fatalf("expected 4 segments, got %d in %s", len(parts), key)
	}
	if parts[0] != KeyNamespace {
		t.Errorf("expected namespace %s, got %s", KeyNamespace, parts[0])
	}
	if parts[1] != "GetUser" || parts[2] != "profile" {
		t.Errorf("unexpected key segments in %s", key)
	}
	if len(parts[3]) != 32 {
		t.Errorf("expected 32 hex chars of hash, got %d in %s", len(parts[3]), key)
	}
}

func TestKeyerUnserializableValue(t *testing.T) {
	k := NewDefaultKeyer()

	if _, err := k.Key("Op", map[string]any{"bad": make(chan int)}, "field", nil); err == nil {
		t.Error("expected error for unserializable variable")
	}
}

func TestKeyerValidUnderValidation(t *testing.T) {
	k := NewDefaultKeyer()

	key, err := k.Key("GetUser", map[string]any{"id": 42}, "profile", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ValidateKey(key); err != nil {
		t.Errorf("derived key failed validation: %v", err)
	}
}
