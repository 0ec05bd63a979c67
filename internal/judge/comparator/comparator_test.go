package comparator

import (
	"encoding/json"
	"testing"
)

func mustCompare(t *testing.T, r *Registry, name, actual, expected string, opts Options) bool {
	t.Helper()
	fn, err := r.Get(name)
	if err != nil {
		t.Fatalf("get comparator %q: %v", name, err)
	}
	ok, err := fn(json.RawMessage(actual), json.RawMessage(expected), opts)
	if err != nil {
		t.Fatalf("compare(%s, %s): %v", actual, expected, err)
	}
	return ok
}

func TestExactComparator(t *testing.T) {
	r := NewRegistry()
	cases := []struct {
		name     string
		actual   string
		expected string
		want     bool
	}{
		{"equal scalars", `42`, `42`, true},
		{"number formatting", `1.0`, `1`, true},
		{"different scalars", `42`, `43`, false},
		{"object key order", `{"a":1,"b":2}`, `{"b":2,"a":1}`, true},
		{"nested mismatch", `{"a":[1,2]}`, `{"a":[2,1]}`, false},
		{"array order matters", `[1,2]`, `[2,1]`, false},
		{"strings", `"hi"`, `"hi"`, true},
		{"null equals null", `null`, `null`, true},
		{"non-json fallback", `oops`, `oops`, true},
		{"non-json mismatch", `oops`, `"oops"`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mustCompare(t, r, Exact, tc.actual, tc.expected, Options{}); got != tc.want {
				t.Fatalf("exact(%s, %s) = %v, want %v", tc.actual, tc.expected, got, tc.want)
			}
		})
	}
}

func TestUnorderedCollectionComparator(t *testing.T) {
	r := NewRegistry()
	cases := []struct {
		name     string
		actual   string
		expected string
		want     bool
	}{
		{"same order", `[1,2,3]`, `[1,2,3]`, true},
		{"reversed", `[3,2,1]`, `[1,2,3]`, true},
		{"symmetric pair", `["a","b"]`, `["b","a"]`, true},
		{"multiset multiplicity", `[1,1,2]`, `[1,2,2]`, false},
		{"length mismatch", `[1,2]`, `[1,2,2]`, false},
		{"object elements", `[{"x":1},{"y":2}]`, `[{"y":2},{"x":1}]`, true},
		{"not an array", `5`, `[5]`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mustCompare(t, r, UnorderedCollection, tc.actual, tc.expected, Options{}); got != tc.want {
				t.Fatalf("unordered(%s, %s) = %v, want %v", tc.actual, tc.expected, got, tc.want)
			}
		})
	}
}

func TestToleranceComparator(t *testing.T) {
	r := NewRegistry()
	cases := []struct {
		name     string
		actual   string
		expected string
		opts     Options
		want     bool
	}{
		{"within default tolerance", `0.3000000001`, `0.3`, Options{}, true},
		{"outside default tolerance", `0.31`, `0.3`, Options{}, false},
		{"custom tolerance", `0.31`, `0.3`, Options{Tolerance: 0.05}, true},
		{"array of floats", `[0.1, 0.2]`, `[0.1000000002, 0.2]`, Options{}, true},
		{"nested object", `{"pi": 3.14159265}`, `{"pi": 3.141592653589}`, Options{}, true},
		{"non-numeric leaf", `"abc"`, `"abc"`, Options{}, true},
		{"type mismatch", `"1"`, `1`, Options{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := mustCompare(t, r, Tolerance, tc.actual, tc.expected, tc.opts); got != tc.want {
				t.Fatalf("tolerance(%s, %s) = %v, want %v", tc.actual, tc.expected, got, tc.want)
			}
		})
	}
}

func TestRegistryExtension(t *testing.T) {
	r := NewRegistry()

	err := r.Register("always-pass", func(actual, expected json.RawMessage, opts Options) (bool, error) {
		return true, nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if !mustCompare(t, r, "always-pass", `1`, `2`, Options{}) {
		t.Fatal("custom comparator not applied")
	}

	if err := r.Register(Exact, compareExact); err == nil {
		t.Fatal("duplicate registration must fail")
	}
	if _, err := r.Get("missing"); err == nil {
		t.Fatal("unknown comparator must fail")
	}
}

func TestEmptyNameDefaultsToExact(t *testing.T) {
	r := NewRegistry()
	if !mustCompare(t, r, "", `[1,2]`, `[1,2]`, Options{}) {
		t.Fatal("empty comparator name should resolve to exact")
	}
	if mustCompare(t, r, "", `[1,2]`, `[2,1]`, Options{}) {
		t.Fatal("exact must be order sensitive")
	}
}
