package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"stackgp/internal/model"
)

// PenaltyError is the fixed error charged when a program ends in the
// overflow sentinel or produces no result at all.
const PenaltyError = 10_000_000

// Run executes one program against one input on a fresh evaluation stack.
// The second result is false when the stack collapsed into the overflow
// sentinel: any stack underflow, domain violation or non-finite intermediate
// result stops execution immediately and the remaining instructions are
// never executed. Run is pure and consumes no randomness.
func Run(code []model.Instruction, input int) (float64, bool) {
	stack := make([]float64, 0, len(code))
	for _, inst := range code {
		switch inst.Op {
		case OpInput:
			stack = append(stack, float64(input))
			continue
		case OpLit:
			stack = append(stack, float64(inst.Value))
			continue
		}

		spec, ok := opTable[inst.Op]
		if !ok {
			// Defensive fallback: an unrecognized token behaves as a
			// literal. Should not occur while the instruction set stays
			// closed.
			if v, err := strconv.ParseFloat(inst.Op, 64); err == nil {
				stack = append(stack, v)
			} else {
				stack = append(stack, float64(inst.Value))
			}
			continue
		}

		if len(stack) < spec.arity {
			return 0, false
		}
		args := make([]float64, spec.arity)
		copy(args, stack[len(stack)-spec.arity:])
		stack = stack[:len(stack)-spec.arity]

		result, valid := spec.apply(args)
		if !valid || math.IsNaN(result) || math.IsInf(result, 0) {
			return 0, false
		}
		stack = append(stack, result)
	}

	if len(stack) == 0 {
		return 0, false
	}
	return stack[len(stack)-1], true
}

// Score computes the per-case error for one test pair: the absolute
// difference between the expected output and the program result, or the
// fixed penalty when the run overflowed or left an empty stack. Total and
// per-case fitness figures must both come from this function.
func Score(code []model.Instruction, pair model.TestPair) float64 {
	result, ok := Run(code, pair.Input)
	if !ok {
		return PenaltyError
	}
	return math.Abs(float64(pair.Expected) - result)
}

// Parse converts a token list into instructions. Operator and input tokens
// resolve against the closed opcode set; any other token must parse as an
// integer literal.
func Parse(tokens []string) ([]model.Instruction, error) {
	code := make([]model.Instruction, 0, len(tokens))
	for i, token := range tokens {
		if token == OpInput {
			code = append(code, model.Instruction{Op: OpInput})
			continue
		}
		if _, ok := opTable[token]; ok {
			code = append(code, model.Instruction{Op: token})
			continue
		}
		value, err := strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("unknown instruction token at position %d: %s", i, token)
		}
		code = append(code, model.Instruction{Op: OpLit, Value: value})
	}
	return code, nil
}

// Format renders a program as a space-separated token list, the inverse of
// Parse for every well-formed program.
func Format(code []model.Instruction) string {
	if len(code) == 0 {
		return ""
	}
	tokens := make([]string, 0, len(code))
	for _, inst := range code {
		if inst.Op == OpLit {
			tokens = append(tokens, strconv.Itoa(inst.Value))
			continue
		}
		tokens = append(tokens, inst.Op)
	}
	return strings.Join(tokens, " ")
}
