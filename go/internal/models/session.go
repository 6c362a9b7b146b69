package models

import "time"

// SessionState is the lifecycle state of a duel session
type SessionState string

const (
	SessionActive   SessionState = "active"
	SessionResolved SessionState = "resolved"
)

// SessionStatus is the terminal outcome of a resolved session
type SessionStatus string

const (
	StatusCompletedWin SessionStatus = "completed_win"
	StatusTimeout      SessionStatus = "timeout"
	StatusAbandoned    SessionStatus = "abandoned"
)

// ResultReason explains why a session reached its terminal status
type ResultReason string

const (
	ReasonCorrectSolution      ResultReason = "correct_solution"
	ReasonTimeout              ResultReason = "timeout"
	ReasonOpponentDisconnected ResultReason = "opponent_disconnected"
)

// InvalidReason is the reason code attached to a rejected submission
type InvalidReason string

const (
	InvalidDigitMismatch    InvalidReason = "digit_mismatch"
	InvalidWrongResult      InvalidReason = "wrong_result"
	InvalidEvaluationError  InvalidReason = "evaluation_error"
	InvalidGameAlreadyOver  InvalidReason = "game_already_over"
	InvalidAlreadySubmitted InvalidReason = "already_submitted"
)

// Submission is one recorded solution attempt. A player holds at most one
// submission slot per session; resubmitting before resolution overwrites it.
type Submission struct {
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
	Valid      bool      `json:"valid"`
}

// PlayerResult is the per-player slice of a terminal result
type PlayerResult struct {
	ID       string  `json:"id"`
	Solution *string `json:"solution,omitempty"`
}

// Result is the immutable outcome of a resolved session
type Result struct {
	Status   SessionStatus   `json:"status"`
	Reason   ResultReason    `json:"reason"`
	WinnerID string          `json:"winner_id,omitempty"`
	LoserID  string          `json:"loser_id,omitempty"`
	Players  [2]PlayerResult `json:"players"`
}

// GameRecord is the terminal record handed to the persistence sink for
// leaderboard bookkeeping once a session resolves.
type GameRecord struct {
	SessionID    string          `json:"session_id"`
	Status       SessionStatus   `json:"status"`
	Reason       ResultReason    `json:"reason"`
	WinnerID     string          `json:"winner_id,omitempty"`
	LoserID      string          `json:"loser_id,omitempty"`
	Players      [2]PlayerResult `json:"players"`
	PuzzleDigits string          `json:"puzzle_digits"`
	Target       int             `json:"target"`
	StartedAt    time.Time       `json:"started_at"`
	ResolvedAt   time.Time       `json:"resolved_at"`
}
