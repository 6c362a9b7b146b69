// Package eval validates candidate solutions for a Hecto puzzle: the original
// digits must appear in order with only operators inserted, and the expression
// must evaluate to the target. The package is pure and safe for concurrent use
// by any number of sessions.
package eval

import (
	"errors"
	"math"
	"strings"

	"github.com/hectoclash/server/go/internal/models"
)

// epsilon is the tolerance used when comparing the evaluated result against
// the integer target, and when detecting division by zero.
const epsilon = 1e-6

// Outcome is the verdict for a single candidate solution
type Outcome struct {
	Correct bool
	Reason  models.InvalidReason // set only when Correct is false
}

var (
	errParse      = errors.New("parse error")
	errDivByZero  = errors.New("division by zero")
	errNotANumber = errors.New("result is not a finite number")
)

// Validate checks a candidate solution against the original puzzle digits and
// target value. Validation order follows the duel rules: digit order first,
// then parseability, then numeric equality.
func Validate(originalDigits string, target int, candidate string) Outcome {
	if extractDigits(candidate) != originalDigits {
		return Outcome{Reason: models.InvalidDigitMismatch}
	}

	value, err := Evaluate(candidate)
	if err != nil {
		return Outcome{Reason: models.InvalidEvaluationError}
	}

	if math.Abs(value-float64(target)) > epsilon {
		return Outcome{Reason: models.InvalidWrongResult}
	}
	return Outcome{Correct: true}
}

// Evaluate parses and evaluates an arithmetic expression over the operator
// set {+,-,*,/,^,(,)}. Precedence: ^ highest (right-associative), then * and /,
// then + and - (both left-associative).
func Evaluate(expr string) (float64, error) {
	p := &parser{input: strings.ReplaceAll(expr, " ", "")}
	value, err := p.parseExpression()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.input) {
		return 0, errParse
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errNotANumber
	}
	return value, nil
}

// extractDigits strips everything but digit characters, preserving order
func extractDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// parser is a recursive-descent parser over a byte string. Unary operators
// are deliberately not supported: a leading '-' would effectively reorder or
// negate digits, which the duel rules forbid.
type parser struct {
	input string
	pos   int
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

// parseExpression handles + and - (lowest precedence, left-associative)
func (p *parser) parseExpression() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '+' && op != '-') {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

// parseTerm handles * and / (left-associative)
func (p *parser) parseTerm() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '*' && op != '/') {
			return left, nil
		}
		p.pos++
		right, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
		} else {
			if math.Abs(right) < epsilon {
				return 0, errDivByZero
			}
			left /= right
		}
	}
}

// parsePower handles ^ (highest precedence, right-associative)
func (p *parser) parsePower() (float64, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}
	op, ok := p.peek()
	if !ok || op != '^' {
		return base, nil
	}
	p.pos++
	// Right associativity: 2^3^2 == 2^(3^2)
	exponent, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exponent), nil
}

// parsePrimary handles numbers and parenthesized subexpressions
func (p *parser) parsePrimary() (float64, error) {
	c, ok := p.peek()
	if !ok {
		return 0, errParse
	}

	if c == '(' {
		p.pos++
		value, err := p.parseExpression()
		if err != nil {
			return 0, err
		}
		if c, ok := p.peek(); !ok || c != ')' {
			return 0, errParse
		}
		p.pos++
		return value, nil
	}

	if c < '0' || c > '9' {
		return 0, errParse
	}
	start := p.pos
	for p.pos < len(p.input) && p.input[p.pos] >= '0' && p.input[p.pos] <= '9' {
		p.pos++
	}
	value := 0.0
	for i := start; i < p.pos; i++ {
		value = value*10 + float64(p.input[i]-'0')
	}
	return value, nil
}
