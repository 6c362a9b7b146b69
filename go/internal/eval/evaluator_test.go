package eval

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hectoclash/server/go/internal/models"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		digits    string
		target    int
		candidate string
		correct   bool
		reason    models.InvalidReason
	}{
		{
			name:      "classic hecto solution",
			digits:    "123456",
			target:    100,
			candidate: "1+(2+3+4)*(5+6)",
			correct:   true,
		},
		{
			name:      "multi digit concatenation",
			digits:    "123456",
			target:    100,
			candidate: "1+23*4+56",
			reason:    models.InvalidWrongResult,
		},
		{
			name:      "digits out of order",
			digits:    "123456",
			target:    100,
			candidate: "6+5+4+3+2+1",
			reason:    models.InvalidDigitMismatch,
		},
		{
			name:      "reversed digits bare",
			digits:    "123456",
			target:    100,
			candidate: "654321",
			reason:    models.InvalidDigitMismatch,
		},
		{
			name:      "missing digit",
			digits:    "123456",
			target:    100,
			candidate: "1+2+3+4+5",
			reason:    models.InvalidDigitMismatch,
		},
		{
			name:      "extra digit",
			digits:    "123456",
			target:    100,
			candidate: "1+2+3+4+5+6+7",
			reason:    models.InvalidDigitMismatch,
		},
		{
			name:      "right digits wrong value",
			digits:    "123456",
			target:    100,
			candidate: "1+2+3+4+5+6",
			reason:    models.InvalidWrongResult,
		},
		{
			name:      "unbalanced parenthesis",
			digits:    "123456",
			target:    100,
			candidate: "1+2*(3+4",
			reason:    models.InvalidEvaluationError,
		},
		{
			name:      "empty candidate",
			digits:    "123456",
			target:    100,
			candidate: "",
			reason:    models.InvalidDigitMismatch,
		},
		{
			name:      "whitespace tolerated",
			digits:    "123456",
			target:    100,
			candidate: "1 + (2+3+4) * (5+6)",
			correct:   true,
		},
		{
			name:      "power operator",
			digits:    "325",
			target:    13,
			candidate: "3^2+5-1",
			reason:    models.InvalidDigitMismatch,
		},
		{
			name:      "power solution",
			digits:    "325",
			target:    14,
			candidate: "3^2+5",
			correct:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome := Validate(tt.digits, tt.target, tt.candidate)
			assert.Equal(t, tt.correct, outcome.Correct)
			if !tt.correct {
				assert.Equal(t, tt.reason, outcome.Reason)
			}
		})
	}
}

func TestValidateDivisionByZero(t *testing.T) {
	outcome := Validate("123", 5, "1/(2-3+1)")
	// digits of the candidate are 1,2,3,1 so digit check fires first
	assert.Equal(t, models.InvalidDigitMismatch, outcome.Reason)

	outcome = Validate("1231", 5, "1/(2-3+1)")
	assert.False(t, outcome.Correct)
	assert.Equal(t, models.InvalidEvaluationError, outcome.Reason)
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"1+2*3", 7},
		{"(1+2)*3", 9},
		{"12+34", 46},
		{"2^3^2", 512}, // right associative
		{"10-4-3", 3},  // left associative
		{"100/5/2", 10},
		{"(5+6)*(2+3+4)+1", 100},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := Evaluate(tt.expr)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	for _, expr := range []string{"", "(", "1+", "1++2", "-1+2", "1+2)", "a+b", "(1+2"} {
		t.Run(expr, func(t *testing.T) {
			_, err := Evaluate(expr)
			assert.Error(t, err)
		})
	}
}

func TestValidateIdempotent(t *testing.T) {
	first := Validate("123456", 100, "1+(2+3+4)*(5+6)")
	second := Validate("123456", 100, "1+(2+3+4)*(5+6)")
	assert.Equal(t, first, second)
}

func TestValidateConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome := Validate("123456", 100, "1+(2+3+4)*(5+6)")
			assert.True(t, outcome.Correct)
		}()
	}
	wg.Wait()
}
