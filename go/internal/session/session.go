package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/hectoclash/server/go/internal/events"
	"github.com/hectoclash/server/go/internal/models"
	"github.com/hectoclash/server/go/internal/puzzle"
)

// Participant pairs a player's profile with the handle used to reach them
type Participant struct {
	Player models.Player
	Sink   events.Sink
}

// Session is one timed two-player duel. The coordinator owns all sessions;
// other components never touch one directly. All mutable state is guarded by
// mu, and the Active→Resolved transition happens exactly once, under mu, with
// no network I/O inside the critical section.
type Session struct {
	ID         string
	Puzzle     puzzle.Puzzle
	Players    [2]Participant
	StartedAt  time.Time
	DeadlineAt time.Time

	mu          sync.Mutex
	state       models.SessionState
	submissions map[string]models.Submission
	result      *models.Result
	timer       clockwork.Timer
	resolvedAt  time.Time
}

// participantIndex returns the player's slot, or -1 if they are not in the
// session
func (s *Session) participantIndex(playerID string) int {
	for i, p := range s.Players {
		if p.Player.ID == playerID {
			return i
		}
	}
	return -1
}

// lastSolution returns a player's most recent attempt text, if any.
// Callers must hold s.mu.
func (s *Session) lastSolutionLocked(playerID string) *string {
	sub, ok := s.submissions[playerID]
	if !ok {
		return nil
	}
	text := sub.Text
	return &text
}

// resolveLocked performs the single atomic Active→Resolved commit: it records
// the result, flips the state and cancels the deadline timer. It returns false
// if the session was already resolved, in which case the caller's trigger lost
// the race and must treat the stored result as final. Callers must hold s.mu.
func (s *Session) resolveLocked(result models.Result, now time.Time) bool {
	if s.state != models.SessionActive {
		return false
	}
	s.state = models.SessionResolved
	s.result = &result
	s.resolvedAt = now
	if s.timer != nil {
		s.timer.Stop()
	}
	return true
}

// gameOverPayload renders the stored result for broadcast. Both participants
// receive the identical payload. Callers must hold s.mu or be past resolution.
func (s *Session) gameOverPayload() events.GameOverPayload {
	r := *s.result
	return events.GameOverPayload{
		SessionID:   s.ID,
		Status:      r.Status,
		Reason:      r.Reason,
		WinnerID:    r.WinnerID,
		LoserID:     r.LoserID,
		Player1Info: events.PlayerInfo{ID: r.Players[0].ID, Solution: r.Players[0].Solution},
		Player2Info: events.PlayerInfo{ID: r.Players[1].ID, Solution: r.Players[1].Solution},
	}
}

// record builds the terminal record for the persistence sink
func (s *Session) record() models.GameRecord {
	r := *s.result
	return models.GameRecord{
		SessionID:    s.ID,
		Status:       r.Status,
		Reason:       r.Reason,
		WinnerID:     r.WinnerID,
		LoserID:      r.LoserID,
		Players:      r.Players,
		PuzzleDigits: s.Puzzle.Digits,
		Target:       s.Puzzle.Target,
		StartedAt:    s.StartedAt,
		ResolvedAt:   s.resolvedAt,
	}
}
