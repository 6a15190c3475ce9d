package sequence

import (
	"errors"
	"testing"
)

func TestPairsKnownValues(t *testing.T) {
	cases := []struct {
		name  string
		index int
		want  int
	}{
		{"identity", 0, 0},
		{"identity", 19, 19},
		{"successor", 0, 1},
		{"double", 7, 14},
		{"square", 9, 81},
		{"cube", 3, 27},
		{"triangular", 4, 10},
		{"triangular", 19, 190},
		{"fibonacci", 0, 0},
		{"fibonacci", 1, 1},
		{"fibonacci", 10, 55},
		{"fibonacci", 19, 4181},
		{"powers-of-two", 0, 1},
		{"powers-of-two", 10, 1024},
		{"primes", 0, 2},
		{"primes", 4, 11},
		{"primes", 19, 71},
		{"factorial", 0, 1},
		{"factorial", 5, 120},
		{"factorial", 12, 479001600},
	}
	for _, tc := range cases {
		pairs, err := Pairs(tc.name)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		got := pairs[tc.index]
		if got.Input != tc.index || got.Expected != tc.want {
			t.Fatalf("%s[%d]: got (%d, %d), want (%d, %d)",
				tc.name, tc.index, got.Input, got.Expected, tc.index, tc.want)
		}
	}
}

func TestPairsSampleCounts(t *testing.T) {
	for _, name := range Names() {
		pairs, err := Pairs(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		want := 20
		if name == "factorial" {
			want = 13
		}
		if len(pairs) != want {
			t.Fatalf("%s: %d pairs, want %d", name, len(pairs), want)
		}
		for i, pair := range pairs {
			if pair.Input != i {
				t.Fatalf("%s: inputs not sequential at %d", name, i)
			}
		}
	}
}

func TestPairsUnknownSequence(t *testing.T) {
	_, err := Pairs("no-such-sequence")
	if !errors.Is(err, ErrUnknownSequence) {
		t.Fatalf("expected ErrUnknownSequence, got %v", err)
	}
	if _, err := Describe("no-such-sequence"); !errors.Is(err, ErrUnknownSequence) {
		t.Fatalf("expected ErrUnknownSequence, got %v", err)
	}
}

func TestNamesSortedAndDescribed(t *testing.T) {
	names := Names()
	if len(names) != 10 {
		t.Fatalf("expected 10 sequences, got %d", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("names not sorted: %q before %q", names[i-1], names[i])
		}
	}
	for _, name := range names {
		description, err := Describe(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if description == "" {
			t.Fatalf("%s: empty description", name)
		}
	}
}
