// Package challenge mediates the challenge-request / accept-decline handshake
// that precedes every duel session.
package challenge

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/hectoclash/server/go/internal/events"
	"github.com/hectoclash/server/go/internal/models"
	"github.com/hectoclash/server/go/internal/session"
)

// DefaultTimeout is how long an unanswered challenge stays pending
const DefaultTimeout = 30 * time.Second

var (
	// ErrTargetOffline is returned when the challenged player is not present
	ErrTargetOffline = errors.New("challenged player is not online")
	// ErrChallengerOffline is returned when the requesting player has no
	// presence entry of their own
	ErrChallengerOffline = errors.New("challenger is not online")
	// ErrAlreadyPending is returned for a duplicate pending challenge pair
	ErrAlreadyPending = errors.New("challenge already pending for this pair")
)

// Presence is the slice of the presence registry the negotiator needs
type Presence interface {
	IsOnline(playerID string) bool
	Sink(playerID string) (events.Sink, bool)
	Player(playerID string) (models.Player, bool)
}

// SessionCreator starts a session once a challenge is accepted
type SessionCreator interface {
	CreateSession(a, b session.Participant) (string, error)
}

type pairKey struct {
	challenger string
	challenged string
}

type pending struct {
	challenge models.Challenge
	timer     clockwork.Timer
}

// Negotiator runs the per-pair challenge state machine:
// NoChallenge → Pending → {Accepted, Declined, Expired}.
type Negotiator struct {
	mu      sync.Mutex
	pending map[pairKey]*pending

	presence Presence
	sessions SessionCreator
	clock    clockwork.Clock
	timeout  time.Duration
}

// NewNegotiator creates a challenge negotiator
func NewNegotiator(presence Presence, sessions SessionCreator, clock clockwork.Clock, timeout time.Duration) *Negotiator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Negotiator{
		pending:  make(map[pairKey]*pending),
		presence: presence,
		sessions: sessions,
		clock:    clock,
		timeout:  timeout,
	}
}

// Request creates a pending challenge and notifies the challenged player.
// A pending challenge for the same ordered pair makes this a rejected
// duplicate; a declined or expired one is replaced.
func (n *Negotiator) Request(challengerID, challengedID string) error {
	if !n.presence.IsOnline(challengedID) {
		return ErrTargetOffline
	}
	challenger, ok := n.presence.Player(challengerID)
	if !ok {
		return ErrChallengerOffline
	}

	key := pairKey{challenger: challengerID, challenged: challengedID}
	now := n.clock.Now()

	n.mu.Lock()
	if _, exists := n.pending[key]; exists {
		n.mu.Unlock()
		return ErrAlreadyPending
	}
	p := &pending{
		challenge: models.Challenge{
			ID:           uuid.New().String(),
			ChallengerID: challengerID,
			ChallengedID: challengedID,
			Status:       models.ChallengePending,
			CreatedAt:    now,
			ExpiresAt:    now.Add(n.timeout),
		},
	}
	p.timer = n.clock.AfterFunc(n.timeout, func() { n.expire(key) })
	n.pending[key] = p
	n.mu.Unlock()

	log.Info().
		Str("challenger_id", challengerID).
		Str("challenged_id", challengedID).
		Msg("challenge created")

	if sink, ok := n.presence.Sink(challengedID); ok {
		sink.Send(events.EventIncomingChallenge, events.IncomingChallengePayload{
			ChallengerID:   challengerID,
			ChallengerName: challenger.Name,
		})
	}
	return nil
}

// Respond settles a pending challenge. A response with no matching pending
// challenge (requester disconnected, challenge expired) is logged and
// ignored. Accepting hands off synchronously to the session coordinator.
func (n *Negotiator) Respond(challengedID, challengerID string, accept bool) {
	key := pairKey{challenger: challengerID, challenged: challengedID}

	n.mu.Lock()
	p, ok := n.pending[key]
	if !ok {
		n.mu.Unlock()
		log.Warn().
			Str("challenger_id", challengerID).
			Str("challenged_id", challengedID).
			Bool("accept", accept).
			Msg("response without matching pending challenge, ignoring")
		return
	}
	delete(n.pending, key)
	p.timer.Stop()
	n.mu.Unlock()

	if !accept {
		log.Info().
			Str("challenger_id", challengerID).
			Str("challenged_id", challengedID).
			Msg("challenge declined")
		if sink, ok := n.presence.Sink(challengerID); ok {
			sink.Send(events.EventChallengeDeclined, events.ChallengeDeclinedPayload{
				ChallengedID: challengedID,
				Reason:       "declined",
			})
		}
		return
	}

	a, aOK := n.participant(challengerID)
	b, bOK := n.participant(challengedID)
	if !aOK || !bOK {
		log.Warn().
			Str("challenger_id", challengerID).
			Str("challenged_id", challengedID).
			Msg("participant went offline during accept, dropping challenge")
		return
	}

	log.Info().
		Str("challenger_id", challengerID).
		Str("challenged_id", challengedID).
		Msg("challenge accepted, creating session")
	if _, err := n.sessions.CreateSession(a, b); err != nil {
		// The coordinator has already told both players the start failed
		log.Error().Err(err).Msg("session creation failed after accepted challenge")
	}
}

// PendingCount reports the number of live pending challenges
func (n *Negotiator) PendingCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

func (n *Negotiator) expire(key pairKey) {
	n.mu.Lock()
	p, ok := n.pending[key]
	if !ok {
		// Answered between timer fire and lock acquisition
		n.mu.Unlock()
		return
	}
	delete(n.pending, key)
	n.mu.Unlock()

	log.Info().
		Str("challenger_id", p.challenge.ChallengerID).
		Str("challenged_id", p.challenge.ChallengedID).
		Msg("challenge expired without response")

	if sink, ok := n.presence.Sink(key.challenger); ok {
		sink.Send(events.EventChallengeExpired, events.ChallengeExpiredPayload{
			ChallengedID: key.challenged,
			Reason:       "no_response",
		})
	}
}

func (n *Negotiator) participant(playerID string) (session.Participant, bool) {
	player, ok := n.presence.Player(playerID)
	if !ok {
		return session.Participant{}, false
	}
	sink, ok := n.presence.Sink(playerID)
	if !ok {
		return session.Participant{}, false
	}
	return session.Participant{Player: player, Sink: sink}, true
}
