// Package sequence provides the catalog of named integer sequences evolution
// runs can target. Each sequence expands to a fixed ordered set of
// (input, expected-output) pairs.
package sequence

import (
	"errors"
	"fmt"
	"sort"

	"stackgp/internal/model"
)

// ErrUnknownSequence reports a lookup for a name outside the catalog.
var ErrUnknownSequence = errors.New("unknown sequence")

// defaultInputCount is the number of sample inputs, starting at zero, unless
// a sequence narrows its range to stay inside exact integer arithmetic.
const defaultInputCount = 20

type entry struct {
	description string
	inputCount  int
	value       func(n int) int
}

var catalog = map[string]entry{
	"identity": {
		description: "f(n) = n",
		value:       func(n int) int { return n },
	},
	"successor": {
		description: "f(n) = n + 1",
		value:       func(n int) int { return n + 1 },
	},
	"double": {
		description: "f(n) = 2n",
		value:       func(n int) int { return 2 * n },
	},
	"square": {
		description: "f(n) = n^2",
		value:       func(n int) int { return n * n },
	},
	"cube": {
		description: "f(n) = n^3",
		value:       func(n int) int { return n * n * n },
	},
	"triangular": {
		description: "f(n) = n(n+1)/2",
		value:       func(n int) int { return n * (n + 1) / 2 },
	},
	"fibonacci": {
		description: "f(0) = 0, f(1) = 1, f(n) = f(n-1) + f(n-2)",
		value:       fibonacci,
	},
	"powers-of-two": {
		description: "f(n) = 2^n",
		value:       func(n int) int { return 1 << n },
	},
	"primes": {
		description: "f(n) = the (n+1)-th prime",
		value:       nthPrime,
	},
	"factorial": {
		// 13! overflows the exact range useful for error arithmetic, so
		// sampling stops at n = 12.
		description: "f(n) = n!, inputs 0..12",
		inputCount:  13,
		value:       factorial,
	},
}

// Pairs expands a named sequence into its ordered test-pair set.
func Pairs(name string) ([]model.TestPair, error) {
	item, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSequence, name)
	}
	count := item.inputCount
	if count == 0 {
		count = defaultInputCount
	}
	pairs := make([]model.TestPair, count)
	for n := 0; n < count; n++ {
		pairs[n] = model.TestPair{Input: n, Expected: item.value(n)}
	}
	return pairs, nil
}

// Names lists the catalog in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Describe returns the human-readable definition of a named sequence.
func Describe(name string) (string, error) {
	item, ok := catalog[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownSequence, name)
	}
	return item.description, nil
}

func fibonacci(n int) int {
	a, b := 0, 1
	for i := 0; i < n; i++ {
		a, b = b, a+b
	}
	return a
}

func factorial(n int) int {
	result := 1
	for i := 2; i <= n; i++ {
		result *= i
	}
	return result
}

func nthPrime(n int) int {
	candidate := 1
	for found := 0; found <= n; {
		candidate++
		if isPrime(candidate) {
			found++
		}
	}
	return candidate
}

func isPrime(v int) bool {
	if v < 2 {
		return false
	}
	for d := 2; d*d <= v; d++ {
		if v%d == 0 {
			return false
		}
	}
	return true
}
