package interp

import (
	"math"

	"stackgp/internal/model"
)

// Opcode tokens for the closed instruction set.
const (
	OpAdd   = "add"
	OpSub   = "sub"
	OpMul   = "mul"
	OpDiv   = "div"
	OpMod   = "mod"
	OpPow   = "pow"
	OpMax   = "max"
	OpMin   = "min"
	OpLn    = "ln"
	OpLog10 = "log10"
	OpAbs   = "abs"
	OpGCD   = "gcd"
	OpLCM   = "lcm"
	OpSqrt  = "sqrt"
	OpCbrt  = "cbrt"
	OpSin   = "sin"
	OpCos   = "cos"
	OpTan   = "tan"
	OpPerm  = "perm"
	OpComb  = "comb"
	OpInput = "x"
	OpLit   = "lit"
)

// opSpec binds an opcode to its arity and stack-transition function. The
// boolean result reports domain validity; false collapses the stack into the
// overflow sentinel. Binary operators receive operands in left-to-right
// order: args[0] was pushed before args[1], so sub computes args[0]-args[1].
type opSpec struct {
	arity int
	apply func(args []float64) (float64, bool)
}

// intOperandLimit bounds float operands converted to int64 for the
// integer-domain operators; beyond it the conversion itself is unsafe.
const intOperandLimit = 1 << 53

var opTable = map[string]opSpec{
	OpAdd: {2, func(a []float64) (float64, bool) { return a[0] + a[1], true }},
	OpSub: {2, func(a []float64) (float64, bool) { return a[0] - a[1], true }},
	OpMul: {2, func(a []float64) (float64, bool) { return a[0] * a[1], true }},
	OpDiv: {2, func(a []float64) (float64, bool) {
		if a[1] == 0 {
			return 0, false
		}
		return a[0] / a[1], true
	}},
	OpMod: {2, func(a []float64) (float64, bool) {
		if a[1] == 0 {
			return 0, false
		}
		return math.Mod(a[0], a[1]), true
	}},
	OpPow: {2, func(a []float64) (float64, bool) {
		return math.Pow(a[0], a[1]), true
	}},
	OpMax: {2, func(a []float64) (float64, bool) { return math.Max(a[0], a[1]), true }},
	OpMin: {2, func(a []float64) (float64, bool) { return math.Min(a[0], a[1]), true }},
	OpLn: {1, func(a []float64) (float64, bool) {
		if a[0] <= 0 {
			return 0, false
		}
		return math.Log(a[0]), true
	}},
	OpLog10: {1, func(a []float64) (float64, bool) {
		if a[0] <= 0 {
			return 0, false
		}
		return math.Log10(a[0]), true
	}},
	OpAbs: {1, func(a []float64) (float64, bool) { return math.Abs(a[0]), true }},
	OpGCD: {2, applyGCD},
	OpLCM: {2, applyLCM},
	OpSqrt: {1, func(a []float64) (float64, bool) {
		if a[0] < 0 {
			return 0, false
		}
		return math.Sqrt(a[0]), true
	}},
	OpCbrt: {1, func(a []float64) (float64, bool) { return math.Cbrt(a[0]), true }},
	OpSin:  {1, func(a []float64) (float64, bool) { return math.Sin(a[0]), true }},
	OpCos:  {1, func(a []float64) (float64, bool) { return math.Cos(a[0]), true }},
	OpTan:  {1, func(a []float64) (float64, bool) { return math.Tan(a[0]), true }},
	OpPerm: {2, applyPerm},
	OpComb: {2, applyComb},
}

func applyGCD(a []float64) (float64, bool) {
	x, okX := toInt(a[0])
	y, okY := toInt(a[1])
	if !okX || !okY {
		return 0, false
	}
	return float64(gcd(abs64(x), abs64(y))), true
}

func applyLCM(a []float64) (float64, bool) {
	x, okX := toInt(a[0])
	y, okY := toInt(a[1])
	if !okX || !okY {
		return 0, false
	}
	x, y = abs64(x), abs64(y)
	if x == 0 || y == 0 {
		return 0, true
	}
	g := gcd(x, y)
	// Computed in float64 so an oversized product surfaces as a non-finite
	// value instead of silent int64 wraparound.
	return float64(x/g) * float64(y), true
}

func applyPerm(a []float64) (float64, bool) {
	n, okN := toInt(a[0])
	k, okK := toInt(a[1])
	if !okN || !okK || n < 0 || k < 0 || k > n {
		return 0, false
	}
	result := 1.0
	for i := int64(0); i < k; i++ {
		result *= float64(n - i)
	}
	return result, true
}

func applyComb(a []float64) (float64, bool) {
	n, okN := toInt(a[0])
	k, okK := toInt(a[1])
	if !okN || !okK || n < 0 || k < 0 || k > n {
		return 0, false
	}
	if k > n-k {
		k = n - k
	}
	result := 1.0
	for i := int64(1); i <= k; i++ {
		result = result * float64(n-k+i) / float64(i)
	}
	return math.Round(result), true
}

// toInt truncates toward zero, rejecting operands the integer-domain
// operators cannot represent.
func toInt(v float64) (int64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= intOperandLimit {
		return 0, false
	}
	return int64(math.Trunc(v)), true
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Ingredients returns the fixed random-generation pool: every operator, the
// input-variable token, and the literal constants -1, 0 and 1. The slice is
// freshly allocated on each call.
func Ingredients() []model.Instruction {
	out := []model.Instruction{
		{Op: OpAdd}, {Op: OpSub}, {Op: OpMul}, {Op: OpDiv}, {Op: OpMod},
		{Op: OpPow}, {Op: OpMax}, {Op: OpMin}, {Op: OpLn}, {Op: OpLog10},
		{Op: OpAbs}, {Op: OpGCD}, {Op: OpLCM}, {Op: OpSqrt}, {Op: OpCbrt},
		{Op: OpSin}, {Op: OpCos}, {Op: OpTan}, {Op: OpPerm}, {Op: OpComb},
		{Op: OpInput},
		{Op: OpLit, Value: -1}, {Op: OpLit, Value: 0}, {Op: OpLit, Value: 1},
	}
	return out
}
