package puzzle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hectoclash/server/go/internal/eval"
)

func TestGenerateProducesSolvablePuzzle(t *testing.T) {
	g := NewGenerator(42, DefaultTarget, DefaultDigitCount, DefaultMaxAttempts)

	puz, solution, err := g.Generate()
	require.NoError(t, err)

	assert.Len(t, puz.Digits, DefaultDigitCount)
	for _, c := range puz.Digits {
		assert.GreaterOrEqual(t, c, '1')
		assert.LessOrEqual(t, c, '9')
	}

	outcome := eval.Validate(puz.Digits, puz.Target, solution)
	assert.True(t, outcome.Correct, "generator returned unverified solution %q for %s", solution, puz.Digits)
}

func TestGenerateDeterministicBySeed(t *testing.T) {
	a := NewGenerator(7, DefaultTarget, DefaultDigitCount, DefaultMaxAttempts)
	b := NewGenerator(7, DefaultTarget, DefaultDigitCount, DefaultMaxAttempts)

	pa, _, err := a.Generate()
	require.NoError(t, err)
	pb, _, err := b.Generate()
	require.NoError(t, err)

	assert.Equal(t, pa, pb)
}

func TestGenerateSequenceVaries(t *testing.T) {
	g := NewGenerator(1, DefaultTarget, DefaultDigitCount, DefaultMaxAttempts)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		puz, _, err := g.Generate()
		require.NoError(t, err)
		seen[puz.Digits] = true
	}
	assert.Greater(t, len(seen), 1, "consecutive puzzles should differ")
}

func TestSolveKnownPuzzle(t *testing.T) {
	solution, ok := Solve("123456", 100)
	require.True(t, ok)

	outcome := eval.Validate("123456", 100, solution)
	assert.True(t, outcome.Correct, "solver produced invalid solution %q", solution)
}

func TestSolveUnsolvable(t *testing.T) {
	// A single digit can never reach 100
	_, ok := Solve("7", 100)
	assert.False(t, ok)
}

func TestSolveSingleDigitTarget(t *testing.T) {
	solution, ok := Solve("7", 7)
	require.True(t, ok)
	assert.Equal(t, "7", solution)
}

func TestSolvePreservesDigitOrder(t *testing.T) {
	for _, digits := range []string{"123456", "999999", "111111"} {
		solution, ok := Solve(digits, 100)
		if !ok {
			continue
		}
		outcome := eval.Validate(digits, 100, solution)
		assert.True(t, outcome.Correct, "digits %s solution %q", digits, solution)
	}
}
