package interp

import (
	"math"
	"testing"

	"stackgp/internal/model"
)

func mustParse(t *testing.T, tokens ...string) []model.Instruction {
	t.Helper()
	code, err := Parse(tokens)
	if err != nil {
		t.Fatalf("parse %v: %v", tokens, err)
	}
	return code
}

func TestRunInputVariable(t *testing.T) {
	code := mustParse(t, "x")
	for _, input := range []int{-3, 0, 7, 100} {
		result, ok := Run(code, input)
		if !ok {
			t.Fatalf("input %d: unexpected overflow", input)
		}
		if result != float64(input) {
			t.Fatalf("input %d: got %v", input, result)
		}
	}
}

func TestRunOperandOrder(t *testing.T) {
	// sub computes second-popped minus first-popped: x 1 sub == x-1.
	result, ok := Run(mustParse(t, "x", "1", "sub"), 10)
	if !ok {
		t.Fatal("unexpected overflow")
	}
	if result != 9 {
		t.Fatalf("expected 9, got %v", result)
	}

	result, ok = Run(mustParse(t, "10", "3", "div"), 0)
	if !ok {
		t.Fatal("unexpected overflow")
	}
	if math.Abs(result-10.0/3.0) > 1e-12 {
		t.Fatalf("expected 10/3, got %v", result)
	}
}

func TestRunArithmetic(t *testing.T) {
	cases := []struct {
		tokens []string
		input  int
		want   float64
	}{
		{[]string{"x", "x", "mul"}, 6, 36},
		{[]string{"x", "1", "add"}, 4, 5},
		{[]string{"7", "3", "mod"}, 0, 1},
		{[]string{"2", "10", "pow"}, 0, 1024},
		{[]string{"x", "0", "max"}, -5, 0},
		{[]string{"x", "0", "min"}, -5, -5},
		{[]string{"-9", "abs"}, 0, 9},
		{[]string{"12", "18", "gcd"}, 0, 6},
		{[]string{"4", "6", "lcm"}, 0, 12},
		{[]string{"49", "sqrt"}, 0, 7},
		{[]string{"27", "cbrt"}, 0, 3},
		{[]string{"-8", "cbrt"}, 0, -2},
		{[]string{"5", "2", "perm"}, 0, 20},
		{[]string{"5", "2", "comb"}, 0, 10},
		{[]string{"0", "sin"}, 0, 0},
		{[]string{"0", "cos"}, 0, 1},
		{[]string{"0", "tan"}, 0, 0},
		{[]string{"100", "log10"}, 0, 2},
	}
	for _, tc := range cases {
		result, ok := Run(mustParse(t, tc.tokens...), tc.input)
		if !ok {
			t.Fatalf("%v: unexpected overflow", tc.tokens)
		}
		if math.Abs(result-tc.want) > 1e-9 {
			t.Fatalf("%v: expected %v, got %v", tc.tokens, tc.want, result)
		}
	}
}

func TestRunDomainFailures(t *testing.T) {
	cases := [][]string{
		{"x", "0", "div"},            // division by zero
		{"x", "0", "mod"},            // modulo zero
		{"0", "ln"},                  // log of non-positive
		{"-1", "ln"},                 //
		{"0", "log10"},               //
		{"-4", "sqrt"},               // even root of negative
		{"2", "5", "perm"},           // k > n
		{"-1", "2", "comb"},          // negative n
		{"3", "-1", "comb"},          // negative k
		{"add"},                      // underflow, empty stack
		{"x", "add"},                 // underflow, one operand
		{"sqrt"},                     // underflow on unary
		{"10", "1000", "pow"},         // non-finite result
		{"-1", "sqrt", "x", "add"},    // overflow suppresses the rest
		{"x", "0", "div", "1", "add"}, // short-circuit after div
	}
	for _, tokens := range cases {
		if _, ok := Run(mustParse(t, tokens...), 5); ok {
			t.Fatalf("%v: expected overflow sentinel", tokens)
		}
	}
}

func TestRunEmptyGenome(t *testing.T) {
	if _, ok := Run(nil, 3); ok {
		t.Fatal("empty genome must yield no result")
	}
}

func TestRunNeverPanics(t *testing.T) {
	// Every ingredient alone, on a spread of inputs, must return a value or
	// the sentinel without raising.
	for _, inst := range Ingredients() {
		for _, input := range []int{-2, -1, 0, 1, 2, 17} {
			Run([]model.Instruction{inst, inst, inst}, input)
		}
	}
}

func TestScorePenalty(t *testing.T) {
	pair := model.TestPair{Input: 4, Expected: 4}

	if got := Score(nil, pair); got != PenaltyError {
		t.Fatalf("empty genome: expected penalty, got %v", got)
	}
	divZero := mustParse(t, "x", "0", "div")
	if got := Score(divZero, pair); got != PenaltyError {
		t.Fatalf("div by zero: expected penalty, got %v", got)
	}
	// Deterministic regardless of how often it runs.
	for i := 0; i < 10; i++ {
		if got := Score(divZero, pair); got != PenaltyError {
			t.Fatalf("div by zero run %d: expected penalty, got %v", i, got)
		}
	}
}

func TestScoreIdentity(t *testing.T) {
	code := mustParse(t, "x")
	for _, input := range []int{0, 1, 5, 19} {
		pair := model.TestPair{Input: input, Expected: input}
		if got := Score(code, pair); got != 0 {
			t.Fatalf("input %d: expected zero error, got %v", input, got)
		}
	}
}

func TestParseRejectsUnknownToken(t *testing.T) {
	if _, err := Parse([]string{"x", "frobnicate"}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	tokens := []string{"x", "-1", "add", "0", "max", "x", "gcd"}
	code := mustParse(t, tokens...)
	if got := Format(code); got != "x -1 add 0 max x gcd" {
		t.Fatalf("unexpected format output: %q", got)
	}
}

func TestUnknownOpFallsBackToLiteral(t *testing.T) {
	// Constructed directly, bypassing Parse: an unrecognized opcode is
	// pushed as a literal instead of failing the run.
	code := []model.Instruction{{Op: "42"}}
	result, ok := Run(code, 0)
	if !ok || result != 42 {
		t.Fatalf("expected literal fallback 42, got %v ok=%v", result, ok)
	}
}

func TestIngredientsClosed(t *testing.T) {
	ingredients := Ingredients()
	if len(ingredients) != 24 {
		t.Fatalf("expected 24 ingredients, got %d", len(ingredients))
	}
	literals := 0
	for _, inst := range ingredients {
		if inst.Op == OpLit {
			literals++
			if inst.Value < -1 || inst.Value > 1 {
				t.Fatalf("literal outside constant pool: %d", inst.Value)
			}
		}
	}
	if literals != 3 {
		t.Fatalf("expected 3 literals, got %d", literals)
	}
}
