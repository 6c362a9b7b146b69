// Package puzzle produces Hecto puzzles: a fixed-length sequence of digits in
// [1,9] that is guaranteed to reach the target value under some insertion of
// the operators {+,-,*,/,^} and parentheses, keeping digit order.
package puzzle

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog/log"
)

const (
	DefaultTarget      = 100
	DefaultDigitCount  = 6
	DefaultMaxAttempts = 200
)

// ErrNoSolvablePuzzle is returned when the generator exhausts its retry
// budget without finding a digit sequence that has a verified solution.
var ErrNoSolvablePuzzle = errors.New("no solvable puzzle found within attempt budget")

// Puzzle is one duel's shared problem statement
type Puzzle struct {
	Digits string `json:"digits"`
	Target int    `json:"target"`
}

// Generator produces verified-solvable puzzles. It is deterministic given a
// seed, which makes session setup reproducible in tests.
type Generator struct {
	mu          sync.Mutex
	rng         *rand.Rand
	target      int
	digitCount  int
	maxAttempts int
}

// NewGenerator creates a generator seeded for reproducibility
func NewGenerator(seed int64, target, digitCount, maxAttempts int) *Generator {
	if target <= 0 {
		target = DefaultTarget
	}
	if digitCount <= 0 {
		digitCount = DefaultDigitCount
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{
		rng:         rand.New(rand.NewSource(seed)),
		target:      target,
		digitCount:  digitCount,
		maxAttempts: maxAttempts,
	}
}

// Generate samples random digit sequences and accepts the first one whose
// solvability is proven by brute-force search over operator insertions. The
// verified solution is returned alongside the puzzle. Generate is safe for
// concurrent use; the shared rand source is serialized internally.
func (g *Generator) Generate() (Puzzle, string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		digits := g.randomDigits()
		solution, ok := Solve(digits, g.target)
		if !ok {
			continue
		}
		if attempt > 1 {
			log.Debug().
				Str("digits", digits).
				Int("attempts", attempt).
				Msg("puzzle accepted after retries")
		}
		return Puzzle{Digits: digits, Target: g.target}, solution, nil
	}
	return Puzzle{}, "", fmt.Errorf("%w after %d attempts", ErrNoSolvablePuzzle, g.maxAttempts)
}

func (g *Generator) randomDigits() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	buf := make([]byte, g.digitCount)
	for i := range buf {
		buf[i] = byte('1' + g.rng.Intn(9))
	}
	return string(buf)
}
