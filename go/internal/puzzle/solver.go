package puzzle

import (
	"math"
	"strings"
)

// Solver limits. Exponentiation is only explored for small operands and every
// intermediate value is capped, which keeps the search bounded without losing
// the solutions a human could plausibly enter.
const (
	solveEpsilon = 1e-6
	maxInterim   = 1e9
	maxPowBase   = 1000
	maxPowExp    = 6
)

type candidate struct {
	value float64
	expr  string
}

// Solve searches for an expression that reaches target by inserting operators
// into digits without reordering them. It returns one such expression when
// found. The search evaluates every contiguous grouping of the digits into
// numbers and every binary combination of subresults, memoized per substring
// and deduplicated by value to keep the candidate lists small.
func Solve(digits string, target int) (string, bool) {
	n := len(digits)
	if n == 0 {
		return "", false
	}

	memo := make(map[[2]int][]candidate)

	var solve func(i, j int) []candidate
	solve = func(i, j int) []candidate {
		key := [2]int{i, j}
		if cached, ok := memo[key]; ok {
			return cached
		}

		seen := make(map[int64]bool)
		var results []candidate
		add := func(value float64, expr string) {
			if math.IsNaN(value) || math.IsInf(value, 0) || math.Abs(value) > maxInterim {
				return
			}
			k := int64(math.Round(value / solveEpsilon))
			if seen[k] {
				return
			}
			seen[k] = true
			results = append(results, candidate{value: value, expr: expr})
		}

		// The whole substring taken as one multi-digit number
		whole := 0.0
		for k := i; k < j; k++ {
			whole = whole*10 + float64(digits[k]-'0')
		}
		add(whole, digits[i:j])

		for split := i + 1; split < j; split++ {
			for _, l := range solve(i, split) {
				for _, r := range solve(split, j) {
					add(l.value+r.value, combine(l.expr, "+", r.expr))
					add(l.value-r.value, combine(l.expr, "-", r.expr))
					add(l.value*r.value, combine(l.expr, "*", r.expr))
					if math.Abs(r.value) > solveEpsilon {
						add(l.value/r.value, combine(l.expr, "/", r.expr))
					}
					if math.Abs(l.value) <= maxPowBase && math.Abs(r.value) <= maxPowExp {
						add(math.Pow(l.value, r.value), combine(l.expr, "^", r.expr))
					}
				}
			}
		}

		memo[key] = results
		return results
	}

	for _, c := range solve(0, n) {
		if math.Abs(c.value-float64(target)) <= solveEpsilon {
			return c.expr, true
		}
	}
	return "", false
}

// combine fully parenthesizes each composite operand so the printed
// expression always evaluates in the same order the search did.
func combine(left, op, right string) string {
	return wrap(left) + op + wrap(right)
}

func wrap(expr string) string {
	if strings.ContainsAny(expr, "+-*/^") {
		return "(" + expr + ")"
	}
	return expr
}
