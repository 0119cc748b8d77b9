package cache

import (
	"sort"
	"testing"
)

func TestInvalidationKeys(t *testing.T) {
	keys := invalidationKeys("Creator/Title/")
	sort.Strings(keys)

	expected := []string{
		"cos:list:",
		"cos:list:Creator/",
		"cos:list:Creator/Title/",
	}
	if len(keys) != len(expected) {
		t.Fatalf("Expected %d keys, got %d: %v", len(expected), len(keys), keys)
	}
	for i, k := range expected {
		if keys[i] != k {
			t.Errorf("Expected key %q, got %q", k, keys[i])
		}
	}
}

func TestInvalidationKeysRoot(t *testing.T) {
	keys := invalidationKeys("")
	if len(keys) != 1 {
		t.Fatalf("Expected only the root key, got %v", keys)
	}
	if keys[0] != "cos:list:" {
		t.Errorf("Expected root key, got %q", keys[0])
	}
}

func TestInvalidationKeysDeepPrefix(t *testing.T) {
	keys := invalidationKeys("a/b/c/")

	want := map[string]bool{
		"cos:list:":       false,
		"cos:list:a/":     false,
		"cos:list:a/b/":   false,
		"cos:list:a/b/c/": false,
	}
	for _, k := range keys {
		if _, ok := want[k]; !ok {
			t.Errorf("Unexpected key %q", k)
			continue
		}
		want[k] = true
	}
	for k, seen := range want {
		if !seen {
			t.Errorf("Expected key %q to be invalidated", k)
		}
	}
}
