// Package session owns the lifecycle of duel sessions: puzzle assignment,
// the deadline timer, concurrent solution submission, first-correct-wins
// adjudication, disconnect handling and terminal result broadcast.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/hectoclash/server/go/internal/eval"
	"github.com/hectoclash/server/go/internal/events"
	"github.com/hectoclash/server/go/internal/models"
	"github.com/hectoclash/server/go/internal/puzzle"
)

const (
	// DefaultTimeLimit matches the client's timeLimitSeconds default
	DefaultTimeLimit = 60 * time.Second
	// resolvedLinger keeps a resolved session addressable long enough for a
	// losing-but-correct submission that raced resolution to receive its
	// game-over instead of a dangling-session error.
	resolvedLinger = time.Minute
	// recordTimeout bounds the fire-and-forget hand-off to the sink
	recordTimeout = 5 * time.Second
)

// PuzzleSource produces verified-solvable puzzles for new sessions
type PuzzleSource interface {
	Generate() (puzzle.Puzzle, string, error)
}

// Recorder receives terminal game records. Implementations are best-effort;
// failures must never affect session resolution.
type Recorder interface {
	Record(ctx context.Context, rec models.GameRecord)
}

// Coordinator manages all live sessions. Sessions are independent: the
// coordinator-wide lock only guards the lookup tables, while each session
// serializes its own state transitions.
type Coordinator struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byPlayer map[string]map[string]struct{}

	puzzles   PuzzleSource
	recorder  Recorder
	clock     clockwork.Clock
	timeLimit time.Duration
}

// NewCoordinator creates a session coordinator
func NewCoordinator(puzzles PuzzleSource, recorder Recorder, clock clockwork.Clock, timeLimit time.Duration) *Coordinator {
	if timeLimit <= 0 {
		timeLimit = DefaultTimeLimit
	}
	return &Coordinator{
		sessions:  make(map[string]*Session),
		byPlayer:  make(map[string]map[string]struct{}),
		puzzles:   puzzles,
		recorder:  recorder,
		clock:     clock,
		timeLimit: timeLimit,
	}
}

// CreateSession builds a new duel between two participants and announces it
// to both. On generator failure no session is created and both prospective
// participants are told the start failed.
func (c *Coordinator) CreateSession(a, b Participant) (string, error) {
	puz, knownSolution, err := c.puzzles.Generate()
	if err != nil {
		log.Error().Err(err).
			Str("player_a", a.Player.ID).
			Str("player_b", b.Player.ID).
			Msg("puzzle generation failed, aborting session setup")
		a.Sink.Send(events.EventGameStartFailed, events.GameStartFailedPayload{
			OpponentID: b.Player.ID, Reason: "generator_failure",
		})
		b.Sink.Send(events.EventGameStartFailed, events.GameStartFailedPayload{
			OpponentID: a.Player.ID, Reason: "generator_failure",
		})
		return "", err
	}

	now := c.clock.Now()
	s := &Session{
		ID:          uuid.New().String(),
		Puzzle:      puz,
		Players:     [2]Participant{a, b},
		StartedAt:   now,
		DeadlineAt:  now.Add(c.timeLimit),
		state:       models.SessionActive,
		submissions: make(map[string]models.Submission),
	}

	c.mu.Lock()
	c.sessions[s.ID] = s
	c.indexLocked(a.Player.ID, s.ID)
	c.indexLocked(b.Player.ID, s.ID)
	c.mu.Unlock()

	s.mu.Lock()
	if s.state == models.SessionActive {
		s.timer = c.clock.AfterFunc(c.timeLimit, func() { c.handleDeadline(s.ID) })
	}
	s.mu.Unlock()

	log.Info().
		Str("session_id", s.ID).
		Str("digits", puz.Digits).
		Int("target", puz.Target).
		Str("known_solution", knownSolution).
		Str("player_a", a.Player.ID).
		Str("player_b", b.Player.ID).
		Time("deadline", s.DeadlineAt).
		Msg("session created")

	limitSec := int(c.timeLimit / time.Second)
	a.Sink.Send(events.EventGameStart, events.GameStartPayload{
		SessionID: s.ID, PuzzleDigits: puz.Digits, Target: puz.Target,
		OpponentID: b.Player.ID, OpponentName: b.Player.Name,
		DeadlineAt: s.DeadlineAt, TimeLimitSeconds: limitSec,
	})
	b.Sink.Send(events.EventGameStart, events.GameStartPayload{
		SessionID: s.ID, PuzzleDigits: puz.Digits, Target: puz.Target,
		OpponentID: a.Player.ID, OpponentName: a.Player.Name,
		DeadlineAt: s.DeadlineAt, TimeLimitSeconds: limitSec,
	})
	return s.ID, nil
}

// SubmitSolution processes one player's attempt. The first Correct submission
// wins the session; everything after resolution is answered from the stored
// result. Replies go to the submitting player's handle only, except the
// terminal game-over which goes to both.
func (c *Coordinator) SubmitSolution(sessionID, playerID, text string, from events.Sink) {
	s := c.lookup(sessionID)
	if s == nil {
		log.Warn().Str("session_id", sessionID).Str("player_id", playerID).Msg("submission for unknown session")
		from.Send(events.EventSolutionInvalid, events.SolutionInvalidPayload{
			SessionID: sessionID, Reason: models.InvalidGameAlreadyOver,
		})
		return
	}
	if s.participantIndex(playerID) < 0 {
		log.Warn().Str("session_id", sessionID).Str("player_id", playerID).Msg("submission from non-participant")
		return
	}

	s.mu.Lock()

	if s.state == models.SessionResolved {
		// A correct-but-late submission lost the adjudication race: it gets
		// the final game-over (a loss), not a validation error. Anything
		// else after resolution is just an expired submission.
		outcome := eval.Validate(s.Puzzle.Digits, s.Puzzle.Target, text)
		payload := s.gameOverPayload()
		s.mu.Unlock()
		if outcome.Correct {
			log.Info().Str("session_id", sessionID).Str("player_id", playerID).
				Msg("correct submission after resolution, replaying game-over")
			from.Send(events.EventGameOver, payload)
		} else {
			from.Send(events.EventSolutionInvalid, events.SolutionInvalidPayload{
				SessionID: sessionID, Reason: models.InvalidGameAlreadyOver,
			})
		}
		return
	}

	if prior, ok := s.submissions[playerID]; ok && prior.Valid {
		s.mu.Unlock()
		from.Send(events.EventSolutionInvalid, events.SolutionInvalidPayload{
			SessionID: sessionID, Reason: models.InvalidAlreadySubmitted,
		})
		return
	}

	now := c.clock.Now()
	outcome := eval.Validate(s.Puzzle.Digits, s.Puzzle.Target, text)

	if !outcome.Correct {
		// Overwrites the player's own earlier attempt, never the opponent's
		s.submissions[playerID] = models.Submission{Text: text, ReceivedAt: now, Valid: false}
		s.mu.Unlock()
		from.Send(events.EventSolutionInvalid, events.SolutionInvalidPayload{
			SessionID: sessionID, Reason: outcome.Reason,
		})
		return
	}

	// Adjudication: record the winning attempt and commit Active→Resolved as
	// one unit under the session lock.
	s.submissions[playerID] = models.Submission{Text: text, ReceivedAt: now, Valid: true}
	winnerIdx := s.participantIndex(playerID)
	loserIdx := 1 - winnerIdx
	result := models.Result{
		Status:   models.StatusCompletedWin,
		Reason:   models.ReasonCorrectSolution,
		WinnerID: s.Players[winnerIdx].Player.ID,
		LoserID:  s.Players[loserIdx].Player.ID,
	}
	for i, p := range s.Players {
		result.Players[i] = models.PlayerResult{
			ID:       p.Player.ID,
			Solution: s.lastSolutionLocked(p.Player.ID),
		}
	}
	committed := s.resolveLocked(result, now)
	var payload events.GameOverPayload
	if committed || s.result != nil {
		payload = s.gameOverPayload()
	}
	s.mu.Unlock()

	if !committed {
		// Lost a race against the timer or a disconnect that slipped in
		// between our checks; the stored result stands.
		from.Send(events.EventGameOver, payload)
		return
	}

	log.Info().
		Str("session_id", sessionID).
		Str("winner_id", result.WinnerID).
		Str("solution", text).
		Msg("session resolved by correct solution")
	c.finish(s, payload)
}

// handleDeadline fires when a session's clock runs out
func (c *Coordinator) handleDeadline(sessionID string) {
	s := c.lookup(sessionID)
	if s == nil {
		return
	}

	s.mu.Lock()
	now := c.clock.Now()
	result := models.Result{
		Status: models.StatusTimeout,
		Reason: models.ReasonTimeout,
	}
	for i, p := range s.Players {
		result.Players[i] = models.PlayerResult{
			ID:       p.Player.ID,
			Solution: s.lastSolutionLocked(p.Player.ID),
		}
	}
	committed := s.resolveLocked(result, now)
	var payload events.GameOverPayload
	if committed {
		payload = s.gameOverPayload()
	}
	s.mu.Unlock()

	if !committed {
		log.Debug().Str("session_id", sessionID).Msg("deadline fired after resolution, ignoring")
		return
	}

	log.Info().Str("session_id", sessionID).Msg("session resolved by timeout")
	c.finish(s, payload)
}

// HandleDisconnect resolves every active session the player is part of in
// favor of the remaining player.
func (c *Coordinator) HandleDisconnect(playerID string) {
	for _, s := range c.sessionsFor(playerID) {
		goneIdx := s.participantIndex(playerID)
		if goneIdx < 0 {
			continue
		}
		remainingIdx := 1 - goneIdx

		s.mu.Lock()
		now := c.clock.Now()
		result := models.Result{
			Status:   models.StatusAbandoned,
			Reason:   models.ReasonOpponentDisconnected,
			WinnerID: s.Players[remainingIdx].Player.ID,
			LoserID:  s.Players[goneIdx].Player.ID,
		}
		for i, p := range s.Players {
			result.Players[i] = models.PlayerResult{
				ID:       p.Player.ID,
				Solution: s.lastSolutionLocked(p.Player.ID),
			}
		}
		committed := s.resolveLocked(result, now)
		var payload events.GameOverPayload
		if committed {
			payload = s.gameOverPayload()
		}
		s.mu.Unlock()

		if !committed {
			log.Debug().Str("session_id", s.ID).Str("player_id", playerID).
				Msg("disconnect after resolution, ignoring")
			continue
		}

		log.Info().
			Str("session_id", s.ID).
			Str("disconnected", playerID).
			Str("winner_id", result.WinnerID).
			Msg("session resolved by opponent disconnect")
		c.finish(s, payload)
	}
}

// ActiveSessions reports how many sessions have not yet been reaped
func (c *Coordinator) ActiveSessions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// finish dispatches the terminal broadcast, hands the record to the sink and
// schedules the session for removal. Called exactly once, by whichever
// trigger won the resolution commit, after the session lock is released.
func (c *Coordinator) finish(s *Session, payload events.GameOverPayload) {
	for _, p := range s.Players {
		p.Sink.Send(events.EventGameOver, payload)
	}

	rec := s.record()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		c.recorder.Record(ctx, rec)
	}()

	c.clock.AfterFunc(resolvedLinger, func() { c.remove(s) })
}

func (c *Coordinator) remove(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, s.ID)
	for _, p := range s.Players {
		if set, ok := c.byPlayer[p.Player.ID]; ok {
			delete(set, s.ID)
			if len(set) == 0 {
				delete(c.byPlayer, p.Player.ID)
			}
		}
	}
}

func (c *Coordinator) lookup(sessionID string) *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions[sessionID]
}

func (c *Coordinator) sessionsFor(playerID string) []*Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Session
	for id := range c.byPlayer[playerID] {
		if s, ok := c.sessions[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (c *Coordinator) indexLocked(playerID, sessionID string) {
	if c.byPlayer[playerID] == nil {
		c.byPlayer[playerID] = make(map[string]struct{})
	}
	c.byPlayer[playerID][sessionID] = struct{}{}
}
